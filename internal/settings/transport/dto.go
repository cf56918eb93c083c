// Package transport defines the HTTP request and response types for the
// settings module.
package transport

import (
	"time"

	"github.com/google/uuid"
)

// Known feature flag keys.
const (
	FeatureOutsourcing        = "outsourcing"
	FeatureMultiDevice        = "multi_device"
	FeatureEmailNotifications = "email_notifications"
)

// Known required-field keys for the intake form.
const (
	FieldSerialNumber  = "serial_number"
	FieldObservations  = "observations"
	FieldCustomerEmail = "customer_email"
)

// Settings response sources.
const (
	SourceCache  = "cache"
	SourceServer = "server"
)

// UpdateSettingsRequest updates company settings. Nil fields are left
// unchanged; flag maps replace the stored maps wholesale.
type UpdateSettingsRequest struct {
	CompanyName     *string         `json:"company_name" validate:"omitempty,max=200"`
	Nit             *string         `json:"nit" validate:"omitempty,max=50"`
	Address         *string         `json:"address" validate:"omitempty,max=500"`
	Phone           *string         `json:"phone" validate:"omitempty,max=50"`
	Email           *string         `json:"email" validate:"omitempty,email"`
	FeaturesEnabled map[string]bool `json:"features_enabled"`
	RequiredFields  map[string]bool `json:"required_fields"`
}

// SettingsResponse is the company settings view returned by the API. Source
// reports whether the payload came from the cache or the database.
type SettingsResponse struct {
	ID              uuid.UUID       `json:"id"`
	CompanyName     string          `json:"company_name"`
	Nit             *string         `json:"nit,omitempty"`
	Address         *string         `json:"address,omitempty"`
	Phone           *string         `json:"phone,omitempty"`
	Email           *string         `json:"email,omitempty"`
	LogoURL         *string         `json:"logo_url,omitempty"`
	FeaturesEnabled map[string]bool `json:"features_enabled"`
	RequiredFields  map[string]bool `json:"required_fields"`
	UpdatedAt       time.Time       `json:"updated_at"`
	Source          string          `json:"source"`
}
