package server

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"github.com/jonathan/outreach-agent/internal/config"
	"github.com/jonathan/outreach-agent/internal/types"
)

// AuthHandler issues bearer tokens to the configured operator.
type AuthHandler struct {
	operator   string
	passwords  *config.PasswordConfig
	jwtService *JWTService
}

// NewAuthHandler creates a new AuthHandler with the given dependencies.
// An empty operator name accepts any name with the operator password.
func NewAuthHandler(operator string, passwords *config.PasswordConfig, jwtService *JWTService) *AuthHandler {
	return &AuthHandler{operator: operator, passwords: passwords, jwtService: jwtService}
}

// IssueToken handles POST /auth/token.
func (h *AuthHandler) IssueToken(w http.ResponseWriter, r *http.Request) {
	var req types.TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := req.Validate(); err != nil {
		verr := extractValidationErrors(err)
		http.Error(w, verr.Error(), HTTPStatus(verr))
		return
	}

	if !h.verify(req) {
		err := &ErrInvalidCredentials{}
		http.Error(w, err.Error(), HTTPStatus(err))
		return
	}

	token, expiresAt, err := h.jwtService.GenerateToken(req.Operator)
	if err != nil {
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(types.TokenResponse{Token: token, ExpiresAt: expiresAt})
}

func (h *AuthHandler) verify(req types.TokenRequest) bool {
	if h.passwords == nil {
		return false
	}
	nameOK := h.operator == "" || subtle.ConstantTimeCompare([]byte(h.operator), []byte(req.Operator)) == 1
	passOK := h.passwords.VerifyOperator(req.Password)
	return nameOK && passOK
}
