package server

import (
	"encoding/json"
	"net/http"

	"github.com/jonathan/outreach-agent/internal/types"
)

// handleCreateHunt submits a hunt. The body is a campaign; missing fields use the server defaults.
func (s *Server) handleCreateHunt(w http.ResponseWriter, r *http.Request) {
	var campaign types.Campaign
	if err := json.NewDecoder(r.Body).Decode(&campaign); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	campaign = s.withCampaignDefaults(campaign)
	if err := campaign.Validate(); err != nil {
		s.errorFor(w, extractValidationErrors(err))
		return
	}

	snap, err := s.queue.Submit(campaign)
	if err != nil {
		s.errorFor(w, err)
		return
	}
	s.logger.Info("[Server] hunt %s submitted for %q", snap.ID, campaign.SearchQuery())
	w.Header().Set("Location", "/hunts/"+snap.ID)
	s.jsonResponse(w, http.StatusAccepted, snap)
}

func (s *Server) withCampaignDefaults(c types.Campaign) types.Campaign {
	d := s.defaults.Campaign
	if c.MaxResults == 0 {
		c.MaxResults = d.MaxResults
	}
	if c.Region == "" {
		c.Region = d.Region
	}
	if c.BudgetTier == "" {
		c.BudgetTier = d.BudgetTier
	}
	if c.Location == "" {
		c.Location = d.Location
	}
	if c.TargetAudience == "" {
		c.TargetAudience = d.TargetAudience
	}
	if c.ContextLinks == "" {
		c.ContextLinks = d.ContextLinks
	}
	return c
}

func (s *Server) handleListHunts(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]any{"hunts": s.queue.List()})
}

func (s *Server) handleGetHunt(w http.ResponseWriter, r *http.Request) {
	snap, err := s.queue.Get(r.PathValue("id"))
	if err != nil {
		s.errorFor(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, snap)
}

// handleCancelHunt cancels a queued or running hunt.
func (s *Server) handleCancelHunt(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.queue.Cancel(id); err != nil {
		s.errorFor(w, err)
		return
	}
	s.logger.Info("[Server] hunt %s cancel requested", id)
	s.jsonResponse(w, http.StatusAccepted, map[string]string{"id": id, "status": "cancelling"})
}

// handleHuntEvents streams a hunt's progress as Server-Sent Events.
// Past events are replayed first; the stream ends with a "complete" event.
func (s *Server) handleHuntEvents(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	past, live, unsubscribe, err := s.queue.Subscribe(id)
	if err != nil {
		s.errorFor(w, err)
		return
	}
	defer unsubscribe()

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	for _, e := range past {
		if err := sse.WriteEvent("progress", e); err != nil {
			return
		}
	}
	for {
		select {
		case <-r.Context().Done():
			return
		case e, ok := <-live:
			if !ok {
				snap, err := s.queue.Get(id)
				if err != nil {
					sse.WriteError(err.Error())
					return
				}
				if snap.Error != "" {
					sse.WriteError(snap.Error)
				}
				sse.WriteComplete(id, string(snap.Status))
				return
			}
			if err := sse.WriteEvent("progress", e); err != nil {
				return
			}
		}
	}
}
