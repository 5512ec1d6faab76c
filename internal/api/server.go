// Package api assembles the chi router for the dashboard server.
package api

import (
	_ "embed"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	corslib "github.com/rs/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/svedberg/vintersport-tv/internal/api/handler"
	"github.com/svedberg/vintersport-tv/internal/config"
	"github.com/svedberg/vintersport-tv/internal/store"
)

//go:embed openapi.json
var openAPISpec []byte

// NewRouter creates and configures the chi router with all middleware and
// routes. The store may be nil; store-backed endpoints then answer 503.
func NewRouter(st *store.Store, cfg *config.Config, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	c := corslib.New(corslib.Options{
		AllowedOrigins:   cfg.CORSAllowOrigins,
		AllowedMethods:   []string{"GET", "POST", "HEAD", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
	})
	r.Use(c.Handler)

	h := handler.New(st, cfg, logger)

	r.Get("/", h.Root)

	r.Route("/health", func(r chi.Router) {
		r.Get("/", h.HealthCheck)
		r.Get("/db", h.HealthCheckDB)
	})

	// Dashboard artifact.
	r.Get("/script.js", h.ScriptJS)

	// Swagger UI over the embedded spec.
	r.Get("/docs/openapi.json", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(openAPISpec)
	})
	r.Get("/docs/*", httpSwagger.Handler(
		httpSwagger.URL("/docs/openapi.json"),
	))

	r.Route("/api", func(r chi.Router) {
		r.Get("/events", h.Events)
		r.Get("/events/sports", h.Sports)
		r.Post("/events/import", h.ImportEvents)
		r.Get("/test-ha", h.TestHA)
		r.Get("/test-notification", h.TestNotification)
		r.Get("/reminders/recent", h.RecentReminders)
	})

	return r
}
