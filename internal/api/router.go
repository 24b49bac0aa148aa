package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/2010nasirm-code/synapse-os-sub001/internal/api/handlers"
	"github.com/2010nasirm-code/synapse-os-sub001/internal/api/middleware"
	"github.com/2010nasirm-code/synapse-os-sub001/internal/config"
	"github.com/2010nasirm-code/synapse-os-sub001/internal/orchestrator"
)

// NewRouter creates the HTTP router with all API routes.
func NewRouter(cfg *config.Config, coordinator *orchestrator.Coordinator) http.Handler {
	r := chi.NewRouter()
	h := handlers.New(coordinator)

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))
	r.Use(middleware.Logger)
	r.Use(middleware.Identity)
	r.Use(middleware.Telemetry)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-User-Id", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id", "X-Trace-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.NewAPIKeyAuth().Middleware)

	// Health & info
	r.Get("/health", healthHandler)
	r.Get("/version", versionHandler(cfg))

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		// Assistant pipeline
		r.Route("/assistant", func(r chi.Router) {
			r.Post("/request", h.AssistantRequest)
			r.Post("/stream", h.AssistantStream)
		})

		// Agents
		r.Route("/agents", func(r chi.Router) {
			r.Get("/", h.ListAgents)
			r.Post("/{agentId}/run", h.RunAgent)
		})

		// Provenance
		r.Route("/provenance", func(r chi.Router) {
			r.Get("/recent", h.RecentProvenance)
			r.Get("/stats", h.ProvenanceStats)
			r.Get("/{requestId}", h.GetProvenance)
		})
	})

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "healthy",
		"service": "synapse-orchestrator",
	})
}

func versionHandler(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{
			"version": cfg.Version,
			"service": "synapse-orchestrator",
		})
	}
}
