package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campus-insight/student-records-api/internal/dto"
	"github.com/campus-insight/student-records-api/internal/models"
	"github.com/campus-insight/student-records-api/internal/service"
	"github.com/campus-insight/student-records-api/pkg/config"
	appErrors "github.com/campus-insight/student-records-api/pkg/errors"
	"github.com/campus-insight/student-records-api/pkg/response"
)

// AuthHandler wires HTTP endpoints to the auth and access services.
type AuthHandler struct {
	auth      *service.AuthService
	access    *service.AccessService
	bootstrap config.BootstrapAdminConfig
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(auth *service.AuthService, access *service.AccessService, bootstrap config.BootstrapAdminConfig) *AuthHandler {
	return &AuthHandler{auth: auth, access: access, bootstrap: bootstrap}
}

// Register godoc
// @Summary Register user
// @Description Create a platform identity with the user role
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body dto.RegisterRequest true "Registration payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid registration payload"))
		return
	}

	profile, err := h.auth.Register(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, profile)
}

// Login godoc
// @Summary Authenticate user
// @Description Authenticate user by email and password
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid login payload"))
		return
	}
	req.IP = c.ClientIP()
	req.UserAgent = c.GetHeader("User-Agent")

	res, err := h.auth.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, res, nil)
}

// AdminLogin godoc
// @Summary Authenticate into the admin console
// @Description Checks the bootstrap credential first, then platform credentials with an admin role check
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /auth/admin/login [post]
func (h *AuthHandler) AdminLogin(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid login payload"))
		return
	}
	req.IP = c.ClientIP()
	req.UserAgent = c.GetHeader("User-Agent")

	result, err := h.access.AdminLogin(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	if result.Bypass != nil {
		blob, err := service.EncodeBypassSession(*result.Bypass)
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode session"))
			return
		}
		maxAge := int(h.bootstrap.SessionTTL.Seconds())
		c.SetCookie(h.bootstrap.CookieName, blob, maxAge, "/", "", false, true)
		response.JSON(c, http.StatusOK, gin.H{"user": result.Bypass.User, "expires_at": result.Bypass.ExpiresAt}, nil)
		return
	}

	response.JSON(c, http.StatusOK, result.Login, nil)
}

// AdminLogout godoc
// @Summary End the admin console session
// @Tags Authentication
// @Produce json
// @Success 204 {object} response.Envelope
// @Router /auth/admin/logout [post]
func (h *AuthHandler) AdminLogout(c *gin.Context) {
	c.SetCookie(h.bootstrap.CookieName, "", -1, "/", "", false, true)
	response.NoContent(c)
}

// Me godoc
// @Summary Get current user
// @Description Returns the authenticated user's info
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	info := models.UserInfo{
		ID:    claims.UserID,
		Email: claims.Email,
		Role:  claims.Role,
	}
	response.JSON(c, http.StatusOK, info, nil)
}

// Profile godoc
// @Summary Get current profile
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/profile [get]
func (h *AuthHandler) Profile(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	profile, err := h.auth.Profile(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, gin.H{"profile": profile, "complete": profile.Complete()}, nil)
}

// CompleteProfile godoc
// @Summary Complete the current profile
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body dto.CompleteProfileRequest true "Profile payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/profile [put]
func (h *AuthHandler) CompleteProfile(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.CompleteProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid profile payload"))
		return
	}

	profile, err := h.auth.CompleteProfile(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, profile, nil)
}

// CreateUser godoc
// @Summary Provision a user
// @Description Creates a platform identity with an explicit role
// @Tags Administration
// @Accept json
// @Produce json
// @Param payload body dto.CreateUserRequest true "User payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/users [post]
func (h *AuthHandler) CreateUser(c *gin.Context) {
	var req dto.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid user payload"))
		return
	}

	profile, err := h.auth.CreateUser(c.Request.Context(), reviewerID(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, profile)
}
