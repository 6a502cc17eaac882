package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/campus-insight/student-records-api/internal/dto"
	"github.com/campus-insight/student-records-api/internal/models"
	"github.com/campus-insight/student-records-api/internal/service"
	appErrors "github.com/campus-insight/student-records-api/pkg/errors"
	"github.com/campus-insight/student-records-api/pkg/response"
)

// ApprovalHandler wires HTTP endpoints to the approval workflow.
type ApprovalHandler struct {
	service *service.ApprovalService
	metrics *service.MetricsService
}

// NewApprovalHandler creates a new handler.
func NewApprovalHandler(svc *service.ApprovalService, metrics *service.MetricsService) *ApprovalHandler {
	return &ApprovalHandler{service: svc, metrics: metrics}
}

// Create godoc
// @Summary Submit an approval request
// @Description Records a proposed student change for administrator review
// @Tags Approvals
// @Accept json
// @Produce json
// @Param payload body dto.CreateApprovalRequest true "Request payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /approval-requests [post]
func (h *ApprovalHandler) Create(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.CreateApprovalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid request payload"))
		return
	}

	request, err := h.service.Submit(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, request)
}

// List godoc
// @Summary List approval requests
// @Description Admins see every request; users see their own
// @Tags Approvals
// @Produce json
// @Param status query string false "Comma-separated statuses"
// @Param type query string false "Request type"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /approval-requests [get]
func (h *ApprovalHandler) List(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	query := dto.ApprovalQuery{
		Type:   models.RequestType(c.Query("type")),
		Limit:  intQuery(c, "limit", 50),
		Offset: intQuery(c, "offset", 0),
	}
	if raw := c.Query("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			if s = strings.TrimSpace(s); s != "" {
				query.Status = append(query.Status, models.RequestStatus(s))
			}
		}
	}

	requests, err := h.service.List(c.Request.Context(), query, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, requests, nil)
}

// Get godoc
// @Summary Get an approval request
// @Tags Approvals
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /approval-requests/{id} [get]
func (h *ApprovalHandler) Get(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	request, err := h.service.Get(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, request, nil)
}

// Review godoc
// @Summary Decide an approval request
// @Description Approves or rejects a pending request exactly once
// @Tags Approvals
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.ReviewApprovalRequest true "Decision payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /admin/approval-requests/{id}/review [post]
func (h *ApprovalHandler) Review(c *gin.Context) {
	var req dto.ReviewApprovalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid decision payload"))
		return
	}

	request, err := h.service.Transition(c.Request.Context(), c.Param("id"), req, reviewerID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordReview(string(request.Status))
	}
	response.JSON(c, http.StatusOK, request, nil)
}

func intQuery(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return fallback
	}
	return value
}
