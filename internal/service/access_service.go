package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/campus-insight/student-records-api/internal/models"
	"github.com/campus-insight/student-records-api/pkg/config"
	appErrors "github.com/campus-insight/student-records-api/pkg/errors"
)

// Identity embedded in bootstrap sessions. Matches no profiles row: the
// bootstrap path is a parallel identity outside the platform role system.
const bootstrapAdminID = "11111111-1111-1111-1111-111111111111"

// AdminProof is a successful admission decision naming the provider that
// vouched for the caller.
type AdminProof struct {
	Provider string
	Subject  string
	Email    string
}

// SessionState is everything the gate may inspect: the caller's platform
// claims (nil when unauthenticated) and the raw bypass-session blob (empty
// when absent).
type SessionState struct {
	Claims     *models.JWTClaims
	BypassBlob string
}

// Admission is the gate verdict. ClearBypass instructs the transport layer
// to delete a corrupt or expired bypass blob (self-healing state).
type Admission struct {
	Proof       *AdminProof
	ClearBypass bool
}

// Allowed reports whether any provider produced a proof.
func (a Admission) Allowed() bool {
	return a.Proof != nil
}

// AdminProofProvider turns session state into an admin proof, or nil. A
// provider asking for the bypass blob to be discarded sets clear.
type AdminProofProvider interface {
	Name() string
	Prove(ctx context.Context, state SessionState) (proof *AdminProof, clear bool)
}

// AccessService is the access gate guarding admin-only capabilities. It
// tries its providers in order and admits on the first proof. Evaluation
// never fails: missing or corrupt proof sources degrade to deny.
type AccessService struct {
	providers []AdminProofProvider
	bootstrap config.BootstrapAdminConfig
	auth      *AuthService
	audit     auditLogger
	logger    *zap.Logger
}

// NewAccessService builds the gate with the default provider chain:
// bootstrap bypass session first, then platform role.
func NewAccessService(bootstrap config.BootstrapAdminConfig, auth *AuthService, audit auditLogger, logger *zap.Logger, extra ...AdminProofProvider) *AccessService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &AccessService{
		bootstrap: bootstrap,
		auth:      auth,
		audit:     audit,
		logger:    logger,
	}
	svc.providers = append([]AdminProofProvider{
		&bootstrapSessionProvider{cfg: bootstrap},
		&platformRoleProvider{},
	}, extra...)
	return svc
}

// Admit evaluates the provider chain against the session state.
func (s *AccessService) Admit(ctx context.Context, state SessionState) Admission {
	admission := Admission{}
	for _, provider := range s.providers {
		proof, clear := provider.Prove(ctx, state)
		if clear {
			admission.ClearBypass = true
		}
		if proof != nil {
			admission.Proof = proof
			return admission
		}
	}
	return admission
}

// AdminLoginResult is the outcome of an admin login attempt. Exactly one of
// Bypass or Login is set.
type AdminLoginResult struct {
	Bypass *models.BypassSession
	Login  *models.LoginResponse
}

// AdminLogin first checks the bootstrap credential pair; on an exact match
// it mints a bypass session without contacting the platform identity system
// at all. Otherwise it delegates to the platform login and then rejects on
// role: a successfully authenticated non-admin is still denied.
func (s *AccessService) AdminLogin(ctx context.Context, req models.LoginRequest) (*AdminLoginResult, error) {
	if s.bootstrapMatch(req.Email, req.Password) {
		session := s.MintBypassSession()
		s.emitAudit(ctx, &models.AuditLog{
			Action:    models.AuditActionAdminLogin,
			Resource:  "auth",
			NewValues: []byte(`{"provider":"bootstrap"}`),
			IPAddress: req.IP,
			UserAgent: req.UserAgent,
		})
		return &AdminLoginResult{Bypass: &session}, nil
	}

	login, err := s.auth.Login(ctx, req)
	if err != nil {
		return nil, err
	}
	if login.User.Role != models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "access denied: admin privileges required")
	}

	s.emitAudit(ctx, &models.AuditLog{
		UserID:    &login.User.ID,
		Action:    models.AuditActionAdminLogin,
		Resource:  "auth",
		NewValues: []byte(`{"provider":"platform"}`),
		IPAddress: req.IP,
		UserAgent: req.UserAgent,
	})
	return &AdminLoginResult{Login: login}, nil
}

// MintBypassSession creates a fresh bootstrap session with the configured
// TTL. Once minted it cannot be revoked before expiry.
func (s *AccessService) MintBypassSession() models.BypassSession {
	ttl := s.bootstrap.SessionTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return models.BypassSession{
		User: models.BypassUser{
			ID:    bootstrapAdminID,
			Email: s.bootstrap.Email,
			Role:  models.RoleAdmin,
		},
		ExpiresAt: time.Now().Add(ttl).UnixMilli(),
	}
}

// EncodeBypassSession renders the session blob for client persistence.
func EncodeBypassSession(session models.BypassSession) (string, error) {
	raw, err := json.Marshal(session)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func (s *AccessService) bootstrapMatch(email, password string) bool {
	cfg := s.bootstrap
	if !cfg.Enabled || cfg.Email == "" || cfg.PasswordHash == "" {
		return false
	}
	// Exact, case-sensitive email match.
	if email != cfg.Email {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(cfg.PasswordHash), []byte(password)) == nil
}

func (s *AccessService) emitAudit(ctx context.Context, log *models.AuditLog) {
	if s.audit == nil || log == nil {
		return
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}

// bootstrapSessionProvider validates the client-persisted bypass blob.
type bootstrapSessionProvider struct {
	cfg config.BootstrapAdminConfig
}

func (p *bootstrapSessionProvider) Name() string { return "bootstrap" }

func (p *bootstrapSessionProvider) Prove(_ context.Context, state SessionState) (*AdminProof, bool) {
	blob := strings.TrimSpace(state.BypassBlob)
	if blob == "" {
		return nil, false
	}

	var session models.BypassSession
	if err := json.Unmarshal([]byte(blob), &session); err != nil {
		return nil, true
	}
	if session.User.Email == "" || session.ExpiresAt == 0 {
		return nil, true
	}
	if session.Expired(time.Now()) {
		return nil, true
	}
	if !p.cfg.Enabled || session.User.Email != p.cfg.Email {
		return nil, false
	}
	return &AdminProof{Provider: p.Name(), Subject: session.User.ID, Email: session.User.Email}, false
}

// platformRoleProvider admits authenticated identities whose profile role
// is admin.
type platformRoleProvider struct{}

func (p *platformRoleProvider) Name() string { return "platform" }

func (p *platformRoleProvider) Prove(_ context.Context, state SessionState) (*AdminProof, bool) {
	claims := state.Claims
	if claims == nil || claims.Role != models.RoleAdmin {
		return nil, false
	}
	return &AdminProof{Provider: p.Name(), Subject: claims.UserID, Email: claims.Email}, false
}
