package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/campus-insight/student-records-api/internal/middleware"
	"github.com/campus-insight/student-records-api/internal/models"
)

// currentClaims extracts the JWT claims attached by the auth middleware.
func currentClaims(c *gin.Context) (*models.JWTClaims, bool) {
	value, ok := c.Get(middleware.ContextUserKey)
	if !ok {
		return nil, false
	}
	claims, ok := value.(*models.JWTClaims)
	return claims, ok
}

// reviewerID resolves the identity to attribute a privileged action to: the
// gate proof when present, otherwise the JWT subject.
func reviewerID(c *gin.Context) string {
	if proof, ok := middleware.AdminProofFromContext(c); ok && proof != nil {
		return proof.Subject
	}
	if claims, ok := currentClaims(c); ok {
		return claims.UserID
	}
	return ""
}
