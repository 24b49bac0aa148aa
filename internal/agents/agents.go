// Package agents defines the agent contract and the registry the
// orchestrator selects from. An agent is an independently invocable
// handler producing a partial contribution for a query; failure is a
// value (a result with Success=false), not a panic.
package agents

import (
	"context"
	"fmt"
	"sync"

	"github.com/2010nasirm-code/synapse-os-sub001/internal/runtime"
	"github.com/2010nasirm-code/synapse-os-sub001/pkg/models"
)

// Agent is implemented by every handler the orchestrator can invoke.
// Execute must honor ctx cancellation and should return a failed result
// rather than an error for domain-level problems.
type Agent interface {
	ID() string
	Execute(ctx context.Context, rctx *runtime.Context, analysis *models.IntentAnalysis) (*models.AgentResult, error)
}

// Registry holds registered agents with their scheduling descriptors.
// Registration order is preserved and breaks priority ties downstream.
type Registry struct {
	mu     sync.RWMutex
	agents map[string]Agent
	descs  []models.AgentDescriptor
}

func NewRegistry() *Registry {
	return &Registry{agents: make(map[string]Agent)}
}

// Register adds an agent under its descriptor. Duplicate IDs error.
func (r *Registry) Register(desc models.AgentDescriptor, agent Agent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.agents[desc.ID]; exists {
		return fmt.Errorf("agent %q already registered", desc.ID)
	}
	r.agents[desc.ID] = agent
	r.descs = append(r.descs, desc)
	return nil
}

// Get returns the agent registered under id.
func (r *Registry) Get(id string) (Agent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.agents[id]
	return a, ok
}

// Descriptor returns the scheduling descriptor for id.
func (r *Registry) Descriptor(id string) (models.AgentDescriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, d := range r.descs {
		if d.ID == id {
			return d, true
		}
	}
	return models.AgentDescriptor{}, false
}

// Descriptors returns all descriptors in registration order.
func (r *Registry) Descriptors() []models.AgentDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.AgentDescriptor, len(r.descs))
	copy(out, r.descs)
	return out
}
