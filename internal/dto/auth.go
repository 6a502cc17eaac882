package dto

// RegisterRequest creates a platform identity with the user role.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	FullName string `json:"full_name"`
}

// CompleteProfileRequest fills in the fields required by the
// profile-completion gate.
type CompleteProfileRequest struct {
	FullName string `json:"full_name" validate:"required"`
	Mobile   string `json:"mobile"`
}

// CreateUserRequest is the admin console payload for provisioning a user
// with an explicit role.
type CreateUserRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	FullName string `json:"full_name"`
	Role     string `json:"role" validate:"required,oneof=user admin"`
}
