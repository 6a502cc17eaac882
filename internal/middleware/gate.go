package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/campus-insight/student-records-api/internal/models"
	"github.com/campus-insight/student-records-api/internal/service"
	appErrors "github.com/campus-insight/student-records-api/pkg/errors"
	"github.com/campus-insight/student-records-api/pkg/response"
)

// ContextAdminKey is the gin context key storing the admin proof that let
// the request through the gate.
const ContextAdminKey = "adminProof"

// AdminGate admits a request when either a live bootstrap session cookie or
// platform admin claims are present. Stale or corrupt session cookies are
// cleared before the request is denied.
func AdminGate(access *service.AccessService, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		state := service.SessionState{}
		if blob, err := c.Cookie(cookieName); err == nil {
			state.BypassBlob = blob
		}
		if value, ok := c.Get(ContextUserKey); ok {
			if claims, ok := value.(*models.JWTClaims); ok {
				state.Claims = claims
			}
		}

		admission := access.Admit(c.Request.Context(), state)
		if admission.ClearBypass {
			c.SetCookie(cookieName, "", -1, "/", "", false, true)
		}
		if !admission.Allowed() {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "access denied: admin privileges required"))
			c.Abort()
			return
		}

		c.Set(ContextAdminKey, admission.Proof)
		c.Next()
	}
}

// AdminProofFromContext returns the proof set by AdminGate, if any.
func AdminProofFromContext(c *gin.Context) (*service.AdminProof, bool) {
	value, ok := c.Get(ContextAdminKey)
	if !ok {
		return nil, false
	}
	proof, ok := value.(*service.AdminProof)
	return proof, ok
}
