package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"resistance-moderator/internal/moderator"
)

var ssePingInterval = 15 * time.Second

// transcriptStreamHandler follows a session's transcript as server-sent
// events until the session ends or the client goes away.
func transcriptStreamHandler(orch *moderator.Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := lookupSession(w, r, orch)
		if !ok {
			return
		}
		flusher, ok := w.(http.Flusher)
		if !ok {
			writeHTTPError(w, http.StatusInternalServerError, "stream_not_supported")
			return
		}
		setSSEHeaders(w)

		backlog, ch := s.Transcript().Follow(r.Header.Get("Last-Event-ID"))
		defer s.Transcript().Unfollow(ch)
		for _, l := range backlog {
			if err := writeSSE(w, l.ID, "line", s.Public(l)); err != nil {
				return
			}
		}
		flusher.Flush()

		ticker := time.NewTicker(ssePingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-r.Context().Done():
				return
			case l, ok := <-ch:
				if !ok {
					_ = writeSSE(w, "", "end", s.Info())
					flusher.Flush()
					return
				}
				if err := writeSSE(w, l.ID, "line", s.Public(l)); err != nil {
					return
				}
				flusher.Flush()
			case <-ticker.C:
				if err := writeSSE(w, "", "ping", map[string]any{"ts": time.Now().UnixMilli()}); err != nil {
					return
				}
				flusher.Flush()
			}
		}
	}
}

func setSSEHeaders(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache, no-transform")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	h.Set("X-Content-Type-Options", "nosniff")
}

func writeSSE(w http.ResponseWriter, id, event string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if id != "" {
		if _, err := fmt.Fprintf(w, "id: %s\n", id); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	return nil
}
