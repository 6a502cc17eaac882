package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds credentials for authenticating a user.
type LoginRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// LoginResponse returns the issued token and user info.
type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresIn   int64     `json:"expires_in"`
	User        UserInfo  `json:"user"`
	IssuedAt    time.Time `json:"issued_at"`
}

// UserInfo describes the authenticated user in responses.
type UserInfo struct {
	ID       string   `json:"id"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name,omitempty"`
	Role     UserRole `json:"role"`
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID string   `json:"user_id"`
	Role   UserRole `json:"role"`
	Email  string   `json:"email"`
	jwt.RegisteredClaims
}

// BypassUser is the identity embedded in a bootstrap admin session.
type BypassUser struct {
	ID    string   `json:"id"`
	Email string   `json:"email"`
	Role  UserRole `json:"role"`
}

// BypassSession is the client-persisted admin proof minted by the bootstrap
// login path. ExpiresAt is epoch milliseconds; the blob shape is part of the
// external interface and must stay stable.
type BypassSession struct {
	User      BypassUser `json:"user"`
	ExpiresAt int64      `json:"expires_at"`
}

// Expired reports whether the session TTL has elapsed at the given instant.
func (s BypassSession) Expired(now time.Time) bool {
	return s.ExpiresAt <= now.UnixMilli()
}
