package server

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/jonathan/outreach-agent/internal/db"
	"github.com/jonathan/outreach-agent/internal/dispatch"
	"github.com/jonathan/outreach-agent/internal/jobs"
	"github.com/jonathan/outreach-agent/internal/types"
	"github.com/stretchr/testify/assert"
)

func TestErrValidation(t *testing.T) {
	err := &ErrValidation{Field: "max_results", Message: "max"}
	assert.Equal(t, "validation error: max_results - max", err.Error())
	assert.Equal(t, "validation error: bad", (&ErrValidation{Message: "bad"}).Error())
}

func TestHTTPStatus(t *testing.T) {
	campaign := types.Campaign{MaxResults: 0}
	validationErr := campaign.Validate()

	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"invalid credentials", &ErrInvalidCredentials{}, http.StatusUnauthorized},
		{"validation", &ErrValidation{Field: "x", Message: "y"}, http.StatusBadRequest},
		{"validator errors", validationErr, http.StatusBadRequest},
		{"dispatch credentials", dispatch.ErrMissingCredentials, http.StatusBadRequest},
		{"wrapped no recipient", fmt.Errorf("batch: %w", dispatch.ErrNoRecipient), http.StatusBadRequest},
		{"job not found", jobs.ErrNotFound, http.StatusNotFound},
		{"job finished", jobs.ErrFinished, http.StatusConflict},
		{"queue full", jobs.ErrQueueFull, http.StatusServiceUnavailable},
		{"store closed", &db.StoreError{Op: "load", Cause: db.ErrClosed}, http.StatusServiceUnavailable},
		{"unknown", assert.AnError, http.StatusInternalServerError},
		{"nil", nil, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, HTTPStatus(tt.err))
		})
	}
}
