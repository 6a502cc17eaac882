package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campus-insight/student-records-api/internal/models"
	"github.com/campus-insight/student-records-api/internal/service"
	"github.com/campus-insight/student-records-api/pkg/config"
)

func gateRouter(cfg config.BootstrapAdminConfig, claims *models.JWTClaims) *gin.Engine {
	gin.SetMode(gin.TestMode)
	access := service.NewAccessService(cfg, nil, nil, nil)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		if claims != nil {
			c.Set(ContextUserKey, claims)
		}
	})
	router.Use(AdminGate(access, cfg.CookieName))
	router.GET("/", func(c *gin.Context) {
		proof, _ := AdminProofFromContext(c)
		c.JSON(http.StatusOK, gin.H{"provider": proof.Provider})
	})
	return router
}

func bootstrapCfg() config.BootstrapAdminConfig {
	return config.BootstrapAdminConfig{
		Enabled:    true,
		Email:      "admin@school.edu",
		SessionTTL: 24 * time.Hour,
		CookieName: "admin_session",
	}
}

func TestAdminGateDeniesAnonymous(t *testing.T) {
	router := gateRouter(bootstrapCfg(), nil)

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	router.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusForbidden {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
}

func TestAdminGateAdmitsPlatformAdmin(t *testing.T) {
	claims := &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}
	router := gateRouter(bootstrapCfg(), claims)

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	router.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
	if !strings.Contains(recorder.Body.String(), "platform") {
		t.Fatalf("expected platform proof, got %s", recorder.Body.String())
	}
}

func TestAdminGateAdmitsBypassCookie(t *testing.T) {
	cfg := bootstrapCfg()
	router := gateRouter(cfg, nil)

	blob, _ := json.Marshal(models.BypassSession{
		User:      models.BypassUser{ID: "bootstrap-1", Email: cfg.Email, Role: models.RoleAdmin},
		ExpiresAt: time.Now().Add(time.Hour).UnixMilli(),
	})

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	// gin stores cookie values URL-escaped.
	req.Header.Set("Cookie", cfg.CookieName+"="+url.QueryEscape(string(blob)))
	router.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
	if !strings.Contains(recorder.Body.String(), "bootstrap") {
		t.Fatalf("expected bootstrap proof, got %s", recorder.Body.String())
	}
}

func TestAdminGateClearsExpiredCookie(t *testing.T) {
	cfg := bootstrapCfg()
	router := gateRouter(cfg, nil)

	blob, _ := json.Marshal(models.BypassSession{
		User:      models.BypassUser{ID: "bootstrap-1", Email: cfg.Email, Role: models.RoleAdmin},
		ExpiresAt: time.Now().Add(-time.Hour).UnixMilli(),
	})

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Cookie", cfg.CookieName+"="+url.QueryEscape(string(blob)))
	router.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusForbidden {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
	cleared := false
	for _, cookie := range recorder.Result().Cookies() {
		if cookie.Name == cfg.CookieName && cookie.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Fatalf("expected expired session cookie to be cleared")
	}
}
