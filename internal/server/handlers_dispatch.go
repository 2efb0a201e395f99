package server

import (
	"encoding/json"
	"net/http"

	"github.com/jonathan/outreach-agent/internal/dispatch"
	"github.com/jonathan/outreach-agent/internal/types"
)

// handleDispatch sends drafted emails for the selected stored leads.
// Credentials and target fall back to the server configuration.
func (s *Server) handleDispatch(w http.ResponseWriter, r *http.Request) {
	var req types.DispatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.SenderEmail == "" {
		req.SenderEmail = s.defaults.SenderEmail
	}
	if req.AppPassword == "" {
		req.AppPassword = s.defaults.AppPassword
	}
	if req.SenderEmail == "" || req.AppPassword == "" {
		s.errorFor(w, dispatch.ErrMissingCredentials)
		return
	}
	if req.Target == "" {
		req.Target = s.defaults.DispatchTarget
	}
	if req.TestRecipient == "" {
		req.TestRecipient = s.defaults.TestRecipient
	}
	if err := req.Validate(); err != nil {
		s.errorFor(w, extractValidationErrors(err))
		return
	}
	target, err := dispatch.ParseTarget(req.Target)
	if err != nil {
		s.errorFor(w, &ErrValidation{Field: "target", Message: err.Error()})
		return
	}

	leads, err := s.store.LoadAll(r.Context())
	if err != nil {
		s.errorFor(w, err)
		return
	}
	leads = types.SelectLeads(leads, req.LeadIDs)

	result, err := s.dispatcher.Dispatch(r.Context(), leads, dispatch.Request{
		SenderEmail:   req.SenderEmail,
		AppPassword:   req.AppPassword,
		Target:        target,
		TestRecipient: req.TestRecipient,
	})
	if err != nil {
		s.errorFor(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, result)
}
