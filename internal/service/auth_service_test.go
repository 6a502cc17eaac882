package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/campus-insight/student-records-api/internal/dto"
	"github.com/campus-insight/student-records-api/internal/models"
	appErrors "github.com/campus-insight/student-records-api/pkg/errors"
)

type profileRepoStub struct {
	profiles map[string]*models.Profile
}

func newProfileRepoStub() *profileRepoStub {
	return &profileRepoStub{profiles: make(map[string]*models.Profile)}
}

func (r *profileRepoStub) FindByEmail(ctx context.Context, email string) (*models.Profile, error) {
	for _, profile := range r.profiles {
		if profile.Email == email {
			copy := *profile
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *profileRepoStub) FindByID(ctx context.Context, id string) (*models.Profile, error) {
	if profile, ok := r.profiles[id]; ok {
		copy := *profile
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (r *profileRepoStub) Create(ctx context.Context, profile *models.Profile) error {
	if profile.ID == "" {
		profile.ID = fmt.Sprintf("profile-%d", len(r.profiles)+1)
	}
	stored := *profile
	r.profiles[profile.ID] = &stored
	return nil
}

func (r *profileRepoStub) UpdateDetails(ctx context.Context, id string, fullName, mobile *string) error {
	profile, ok := r.profiles[id]
	if !ok {
		return sql.ErrNoRows
	}
	if fullName != nil {
		profile.FullName = fullName
	}
	if mobile != nil {
		profile.Mobile = mobile
	}
	return nil
}

func (r *profileRepoStub) UpdateRole(ctx context.Context, id string, role models.UserRole) error {
	profile, ok := r.profiles[id]
	if !ok {
		return sql.ErrNoRows
	}
	profile.Role = role
	return nil
}

func newTestAuthService(repo *profileRepoStub) *AuthService {
	return NewAuthService(repo, &auditStub{}, nil, nil, nil, AuthConfig{
		AccessTokenSecret: "test-secret",
		AccessTokenExpiry: time.Hour,
		Issuer:            "student-records-api",
	})
}

func seedProfile(t *testing.T, repo *profileRepoStub, email, password string, role models.UserRole) *models.Profile {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	profile := &models.Profile{Email: email, PasswordHash: string(hash), Role: role}
	require.NoError(t, repo.Create(context.Background(), profile))
	return profile
}

func TestAuthServiceRegister(t *testing.T) {
	repo := newProfileRepoStub()
	svc := newTestAuthService(repo)

	profile, err := svc.Register(context.Background(), dto.RegisterRequest{
		Email:    "Ana@School.EDU",
		Password: "secret1",
	})
	require.NoError(t, err)
	require.Equal(t, "ana@school.edu", profile.Email)
	require.Equal(t, models.RoleUser, profile.Role)
	require.NotEqual(t, "secret1", profile.PasswordHash)

	_, err = svc.Register(context.Background(), dto.RegisterRequest{
		Email:    "ana@school.edu",
		Password: "secret2",
	})
	require.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLoginAndValidate(t *testing.T) {
	repo := newProfileRepoStub()
	seedProfile(t, repo, "ana@school.edu", "secret1", models.RoleUser)
	svc := newTestAuthService(repo)

	res, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "ana@school.edu",
		Password: "secret1",
	})
	require.NoError(t, err)
	require.NotEmpty(t, res.AccessToken)

	claims, err := svc.ValidateToken(res.AccessToken)
	require.NoError(t, err)
	require.Equal(t, res.User.ID, claims.UserID)
	require.Equal(t, models.RoleUser, claims.Role)

	_, err = svc.Login(context.Background(), models.LoginRequest{
		Email:    "ana@school.edu",
		Password: "wrong",
	})
	require.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceValidateTokenRejectsTampered(t *testing.T) {
	repo := newProfileRepoStub()
	seedProfile(t, repo, "ana@school.edu", "secret1", models.RoleUser)
	svc := newTestAuthService(repo)

	res, err := svc.Login(context.Background(), models.LoginRequest{Email: "ana@school.edu", Password: "secret1"})
	require.NoError(t, err)

	_, err = svc.ValidateToken(res.AccessToken + "x")
	require.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceCompleteProfile(t *testing.T) {
	repo := newProfileRepoStub()
	profile := seedProfile(t, repo, "ana@school.edu", "secret1", models.RoleUser)
	svc := newTestAuthService(repo)

	loaded, err := svc.Profile(context.Background(), profile.ID)
	require.NoError(t, err)
	require.False(t, loaded.Complete())

	updated, err := svc.CompleteProfile(context.Background(), profile.ID, dto.CompleteProfileRequest{
		FullName: "Ana Silva",
		Mobile:   "555-0101",
	})
	require.NoError(t, err)
	require.True(t, updated.Complete())
	require.Equal(t, "Ana Silva", *updated.FullName)
}

func TestAuthServiceCreateUserAssignsRole(t *testing.T) {
	repo := newProfileRepoStub()
	svc := newTestAuthService(repo)

	profile, err := svc.CreateUser(context.Background(), "admin-1", dto.CreateUserRequest{
		Email:    "new-admin@school.edu",
		Password: "secret1",
		Role:     "admin",
	})
	require.NoError(t, err)
	require.Equal(t, models.RoleAdmin, profile.Role)
	require.Equal(t, models.RoleAdmin, repo.profiles[profile.ID].Role)
}
