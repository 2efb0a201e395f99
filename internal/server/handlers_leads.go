package server

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/jonathan/outreach-agent/internal/export"
	"github.com/jonathan/outreach-agent/internal/types"
)

// LeadsResponse is the body of GET /leads.
type LeadsResponse struct {
	Leads []types.Lead    `json:"leads"`
	Stats types.LeadStats `json:"stats"`
}

func (s *Server) handleListLeads(w http.ResponseWriter, r *http.Request) {
	leads, err := s.store.LoadAll(r.Context())
	if err != nil {
		s.errorFor(w, err)
		return
	}
	if leads == nil {
		leads = []types.Lead{}
	}
	s.jsonResponse(w, http.StatusOK, LeadsResponse{Leads: leads, Stats: types.SummarizeLeads(leads)})
}

func (s *Server) handleClearLeads(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Clear(r.Context()); err != nil {
		s.errorFor(w, err)
		return
	}
	s.logger.Info("[Server] lead table cleared")
	w.WriteHeader(http.StatusNoContent)
}

// handleExportLeads returns the full table as a CSV attachment.
// ?shape=legacy selects the single-draft column layout.
func (s *Server) handleExportLeads(w http.ResponseWriter, r *http.Request) {
	leads, err := s.store.LoadAll(r.Context())
	if err != nil {
		s.errorFor(w, err)
		return
	}

	write := export.WriteCSV
	switch r.URL.Query().Get("shape") {
	case "", "full":
	case "legacy":
		write = export.WriteLegacyCSV
	default:
		s.errorFor(w, &ErrValidation{Field: "shape", Message: "must be full or legacy"})
		return
	}

	var buf bytes.Buffer
	if err := write(&buf, leads); err != nil {
		s.errorFor(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename(s.now())))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
