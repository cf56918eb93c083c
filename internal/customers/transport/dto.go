// Package transport defines the HTTP request and response types for the
// customers module.
package transport

import (
	"time"

	"github.com/google/uuid"
)

// CreateCustomerRequest registers a customer.
type CreateCustomerRequest struct {
	FullName string `json:"full_name" validate:"required,max=200"`
	Cedula   string `json:"cedula" validate:"required,max=20"`
	Phone    string `json:"phone" validate:"omitempty,max=50"`
	Email    string `json:"email" validate:"omitempty,email"`
	Address  string `json:"address" validate:"omitempty,max=500"`
}

// UpdateCustomerRequest updates customer data. Nil fields are left unchanged.
type UpdateCustomerRequest struct {
	FullName *string `json:"full_name" validate:"omitempty,max=200"`
	Cedula   *string `json:"cedula" validate:"omitempty,max=20"`
	Phone    *string `json:"phone" validate:"omitempty,max=50"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Address  *string `json:"address" validate:"omitempty,max=500"`
}

// ListCustomersRequest filters the customer list.
type ListCustomersRequest struct {
	Search string `form:"search" validate:"omitempty,max=200"`
}

// CustomerResponse is the customer view returned by the API.
type CustomerResponse struct {
	ID        uuid.UUID `json:"id"`
	FullName  string    `json:"full_name"`
	Cedula    string    `json:"cedula"`
	Phone     *string   `json:"phone,omitempty"`
	Email     *string   `json:"email,omitempty"`
	Address   *string   `json:"address,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
