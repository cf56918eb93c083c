package transport

import (
	"time"

	"github.com/google/uuid"
)

// LoginRequest is the request body for staff sign-in.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse carries the access token and the signed-in profile.
type LoginResponse struct {
	AccessToken string          `json:"accessToken"`
	Profile     ProfileResponse `json:"profile"`
}

// CreateProfileRequest is the admin request to register a staff member.
type CreateProfileRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8"`
	FullName    string `json:"fullName" validate:"required,min=1,max=200"`
	Role        string `json:"role" validate:"required,oneof=admin receptionist technician"`
	Sede        string `json:"sede,omitempty" validate:"max=200"`
	BranchPhone string `json:"branchPhone,omitempty" validate:"max=50"`
}

// ProfileResponse is the API shape of a staff profile.
type ProfileResponse struct {
	ID          uuid.UUID `json:"id"`
	Email       string    `json:"email"`
	FullName    *string   `json:"fullName,omitempty"`
	Role        string    `json:"role"`
	Sede        *string   `json:"sede,omitempty"`
	BranchPhone *string   `json:"branchPhone,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ListProfilesRequest is the query parameters for listing profiles.
type ListProfilesRequest struct {
	Role string `form:"role" validate:"omitempty,oneof=admin receptionist technician"`
}
