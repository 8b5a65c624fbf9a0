package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"resistance-moderator/internal/moderator"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

func healthHandler(orch *moderator.Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"ok":            true,
			"live_sessions": orch.Registry().Live(),
			"competitors":   orch.Competitors().Len(),
		})
	}
}

func competitorsHandler(orch *moderator.Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"items": orch.Competitors().List()})
	}
}

func poolHandler(orch *moderator.Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		p := orch.Pool()
		writeJSON(w, http.StatusOK, map[string]any{
			"capacity":  p.Capacity(),
			"in_use":    p.InUse(),
			"available": len(p.Available()),
		})
	}
}

func statsHandler(orch *moderator.Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		st := orch.Stats()
		writeJSON(w, http.StatusOK, map[string]any{
			"games": st.Games(),
			"items": st.Records(),
		})
	}
}

func sessionsHandler(orch *moderator.Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"items": orch.Registry().List()})
	}
}

func lookupSession(w http.ResponseWriter, r *http.Request, orch *moderator.Orchestrator) (*moderator.Session, bool) {
	slot, err := strconv.Atoi(chi.URLParam(r, "slot"))
	if err != nil || slot < 1 {
		writeHTTPError(w, http.StatusBadRequest, "invalid_slot")
		return nil, false
	}
	s, ok := orch.Registry().BySlot(slot)
	if !ok {
		writeHTTPError(w, http.StatusNotFound, "session_not_found")
		return nil, false
	}
	return s, true
}

func sessionHandler(orch *moderator.Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := lookupSession(w, r, orch)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, s.Info())
	}
}

func transcriptHandler(orch *moderator.Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := lookupSession(w, r, orch)
		if !ok {
			return
		}
		lines := s.TranscriptAfter(r.URL.Query().Get("after"))
		if lines == nil {
			lines = []moderator.Line{}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"session_id": s.ID,
			"items":      lines,
		})
	}
}

type matchBody struct {
	Play string `json:"play"`
}

// matchesHandler accepts a PLAY roster and runs it in the background.
func matchesHandler(ctx context.Context, orch *moderator.Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body matchBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		req, err := orch.Accept(body.Play)
		if err != nil {
			var re *moderator.RosterError
			switch {
			case errors.As(err, &re):
				writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"error": "roster_error", "missing": re.Missing, "detail": re.Error()})
			case errors.Is(err, moderator.ErrInvalidRequest):
				writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid_request", "detail": err.Error()})
			default:
				writeHTTPError(w, http.StatusInternalServerError, "internal_error")
			}
			return
		}
		go func() {
			if _, err := orch.Complete(ctx, req); err != nil {
				log.Warn().Err(err).Str("match", req.ID).Msg("match interrupted")
			}
		}()
		writeJSON(w, http.StatusAccepted, map[string]any{
			"id":     req.ID,
			"count":  req.Count,
			"roster": req.Roster,
		})
	}
}
