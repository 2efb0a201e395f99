package types

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// TokenRequest is the operator login request for the HTTP API.
type TokenRequest struct {
	Operator string `json:"operator" validate:"required,min=1"`
	Password string `json:"password" validate:"required,min=8"`
}

// TokenResponse carries an issued bearer token.
type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// DispatchRequest asks the server to send drafted emails for stored leads.
// LeadIDs empty means every stored lead.
type DispatchRequest struct {
	LeadIDs       []int64 `json:"lead_ids,omitempty"`
	SenderEmail   string  `json:"sender_email" validate:"required,email"`
	AppPassword   string  `json:"app_password" validate:"required"`
	TestRecipient string  `json:"test_recipient,omitempty" validate:"omitempty,email"`
	Target        string  `json:"target,omitempty" validate:"omitempty,oneof=per-lead-address fixed-test-address"`
}

// Validate validates the TokenRequest using the validator.
func (r *TokenRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// Validate validates the DispatchRequest using the validator.
func (r *DispatchRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}
