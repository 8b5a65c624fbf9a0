package main

import (
	"context"
	"expvar"
	"net/http"

	"resistance-moderator/internal/moderator"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

// newRouter mounts the status surface. ctx bounds matches started over HTTP.
func newRouter(ctx context.Context, orch *moderator.Orchestrator) *chi.Mux {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)

	r.With(apiLogMiddleware()).Get("/healthz", healthHandler(orch))

	r.Route("/api", func(r chi.Router) {
		r.Use(apiLogMiddleware())
		r.Get("/competitors", competitorsHandler(orch))
		r.Get("/pool", poolHandler(orch))
		r.Get("/stats", statsHandler(orch))
		r.Get("/sessions", sessionsHandler(orch))
		r.Get("/sessions/{slot}", sessionHandler(orch))
		r.Get("/sessions/{slot}/transcript", transcriptHandler(orch))
		r.Get("/sessions/{slot}/events", transcriptStreamHandler(orch))
		r.Post("/matches", matchesHandler(ctx, orch))
	})
	r.Get("/debug/vars", expvar.Handler().ServeHTTP)

	logRoutes(r)
	return r
}

func logRoutes(r chi.Routes) {
	_ = chi.Walk(r, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		log.Debug().Str("method", method).Str("route", route).Msg("route")
		return nil
	})
}
