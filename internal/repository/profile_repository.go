package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campus-insight/student-records-api/internal/models"
)

// ProfileRepository manages platform identity profiles.
type ProfileRepository struct {
	db *sqlx.DB
}

// NewProfileRepository constructs a ProfileRepository.
func NewProfileRepository(db *sqlx.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

const profileColumns = `id, email, password_hash, role, full_name, mobile, created_at, updated_at`

// FindByEmail fetches a profile by email.
func (r *ProfileRepository) FindByEmail(ctx context.Context, email string) (*models.Profile, error) {
	query := fmt.Sprintf("SELECT %s FROM profiles WHERE email = $1", profileColumns)
	var profile models.Profile
	if err := r.db.GetContext(ctx, &profile, query, email); err != nil {
		return nil, err
	}
	return &profile, nil
}

// FindByID fetches a profile by primary key.
func (r *ProfileRepository) FindByID(ctx context.Context, id string) (*models.Profile, error) {
	query := fmt.Sprintf("SELECT %s FROM profiles WHERE id = $1", profileColumns)
	var profile models.Profile
	if err := r.db.GetContext(ctx, &profile, query, id); err != nil {
		return nil, err
	}
	return &profile, nil
}

// Create inserts a new profile.
func (r *ProfileRepository) Create(ctx context.Context, profile *models.Profile) error {
	if profile.ID == "" {
		profile.ID = uuid.NewString()
	}
	if profile.Role == "" {
		profile.Role = models.RoleUser
	}
	now := time.Now().UTC()
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	}
	profile.UpdatedAt = now
	const query = `INSERT INTO profiles (id, email, password_hash, role, full_name, mobile, created_at, updated_at)
        VALUES (:id, :email, :password_hash, :role, :full_name, :mobile, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, profile); err != nil {
		return fmt.Errorf("create profile: %w", err)
	}
	return nil
}

// UpdateDetails persists the self-service profile fields.
func (r *ProfileRepository) UpdateDetails(ctx context.Context, id string, fullName, mobile *string) error {
	const query = `UPDATE profiles SET full_name = $2, mobile = $3, updated_at = $4 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, fullName, mobile, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update profile details: %w", err)
	}
	return requireRow(result)
}

// UpdateRole changes a profile's role.
func (r *ProfileRepository) UpdateRole(ctx context.Context, id string, role models.UserRole) error {
	const query = `UPDATE profiles SET role = $2, updated_at = $3 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, role, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update profile role: %w", err)
	}
	return requireRow(result)
}
