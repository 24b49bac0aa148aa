// Package server provides the public entry point for initializing the
// Synapse assistant orchestrator.
//
// Usage:
//
//	srv, err := server.New(ctx)
//	http.ListenAndServe(":8080", srv.Handler)
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/2010nasirm-code/synapse-os-sub001/internal/agents"
	"github.com/2010nasirm-code/synapse-os-sub001/internal/api"
	"github.com/2010nasirm-code/synapse-os-sub001/internal/config"
	"github.com/2010nasirm-code/synapse-os-sub001/internal/intent"
	"github.com/2010nasirm-code/synapse-os-sub001/internal/memory"
	"github.com/2010nasirm-code/synapse-os-sub001/internal/orchestrator"
	"github.com/2010nasirm-code/synapse-os-sub001/internal/provenance"
	"github.com/2010nasirm-code/synapse-os-sub001/internal/ratelimit"
	"github.com/2010nasirm-code/synapse-os-sub001/internal/runtime"
	"github.com/2010nasirm-code/synapse-os-sub001/internal/safety"
	"github.com/2010nasirm-code/synapse-os-sub001/internal/sessions"
	"github.com/2010nasirm-code/synapse-os-sub001/internal/telemetry"
)

// Server holds the initialized orchestrator.
type Server struct {
	// Handler is the HTTP handler with all routes and middleware.
	Handler http.Handler

	// Coordinator drives the assistant pipeline; exposed for embedding
	// the orchestrator without the HTTP surface.
	Coordinator *orchestrator.Coordinator

	// Port is the port the server should listen on.
	Port int

	// Close releases background resources (rate limiter sweep).
	Close func()

	// ShutdownFunc should be called on graceful shutdown to flush telemetry.
	ShutdownFunc func(context.Context) error
}

// New initializes all components from environment configuration.
func New(ctx context.Context) (*Server, error) {
	return NewWithConfig(ctx, config.Load())
}

// NewWithConfig initializes the orchestrator with an explicit configuration.
func NewWithConfig(ctx context.Context, cfg *config.Config) (*Server, error) {
	shutdown, err := telemetry.Init(cfg.Telemetry, cfg.Version)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	limiter := ratelimit.New(time.Duration(cfg.RateLimit.WindowMs)*time.Millisecond, cfg.RateLimit.MaxRequests)
	sessionStore := sessions.NewStore()
	memStore := memory.NewStore(cfg.Pipeline.MemoryCapacity)
	registry := agents.NewDefaultRegistry(memStore)

	coordinator := orchestrator.NewCoordinator(orchestrator.Deps{
		Gate:       safety.NewGate(),
		Limiter:    limiter,
		Builder:    runtime.NewBuilder(sessionStore, memStore),
		Classifier: intent.NewClassifier(),
		Registry:   registry,
		Recorder:   provenance.NewRecorder(cfg.Pipeline.ProvenanceCapacity),
		Sessions:   sessionStore,
		Timeout:    cfg.Pipeline.AgentTimeout,
	})

	log.Info().Int("agents", len(registry.Descriptors())).Msg("✅ Agent registry initialized")
	log.Info().
		Int("window_ms", cfg.RateLimit.WindowMs).
		Int("max_requests", cfg.RateLimit.MaxRequests).
		Msg("✅ Rate limiter initialized")

	router := api.NewRouter(cfg, coordinator)

	return &Server{
		Handler:      router,
		Coordinator:  coordinator,
		Port:         cfg.Port,
		Close:        limiter.Close,
		ShutdownFunc: shutdown,
	}, nil
}
