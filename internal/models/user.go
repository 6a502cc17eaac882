package models

import "time"

// UserRole represents the roles known to the platform identity system.
type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

// Profile represents a platform identity stored in the profiles table.
type Profile struct {
	ID           string    `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         UserRole  `db:"role" json:"role"`
	FullName     *string   `db:"full_name" json:"full_name,omitempty"`
	Mobile       *string   `db:"mobile" json:"mobile,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Complete reports whether the profile has passed the completion gate.
func (p Profile) Complete() bool {
	return p.FullName != nil && *p.FullName != ""
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
