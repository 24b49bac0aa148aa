// Package orchestrator drives the assistant pipeline: safety gate, rate
// limiter, context build, intent classification, agent selection,
// phased execution with per-agent timeouts, response synthesis, and
// provenance recording.
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/2010nasirm-code/synapse-os-sub001/internal/agents"
	"github.com/2010nasirm-code/synapse-os-sub001/internal/intent"
	"github.com/2010nasirm-code/synapse-os-sub001/internal/provenance"
	"github.com/2010nasirm-code/synapse-os-sub001/internal/ratelimit"
	"github.com/2010nasirm-code/synapse-os-sub001/internal/runtime"
	"github.com/2010nasirm-code/synapse-os-sub001/internal/safety"
	"github.com/2010nasirm-code/synapse-os-sub001/internal/sessions"
	"github.com/2010nasirm-code/synapse-os-sub001/pkg/models"
)

// DefaultAgentTimeout bounds a single agent invocation.
const DefaultAgentTimeout = 30 * time.Second

// anonymousID keys the rate limiter when a request carries no user ID.
const anonymousID = "anonymous"

// Coordinator owns the end-to-end handling of assistant requests.
type Coordinator struct {
	gate       *safety.Gate
	limiter    *ratelimit.Limiter
	builder    *runtime.Builder
	classifier *intent.Classifier
	registry   *agents.Registry
	recorder   *provenance.Recorder
	sessions   *sessions.Store
	timeout    time.Duration
}

// Deps bundles the coordinator's collaborators.
type Deps struct {
	Gate       *safety.Gate
	Limiter    *ratelimit.Limiter
	Builder    *runtime.Builder
	Classifier *intent.Classifier
	Registry   *agents.Registry
	Recorder   *provenance.Recorder
	Sessions   *sessions.Store
	Timeout    time.Duration
}

func NewCoordinator(deps Deps) *Coordinator {
	timeout := deps.Timeout
	if timeout <= 0 {
		timeout = DefaultAgentTimeout
	}
	return &Coordinator{
		gate:       deps.Gate,
		limiter:    deps.Limiter,
		builder:    deps.Builder,
		classifier: deps.Classifier,
		registry:   deps.Registry,
		recorder:   deps.Recorder,
		sessions:   deps.Sessions,
		timeout:    timeout,
	}
}

// Registry exposes the agent registry for listing endpoints.
func (c *Coordinator) Registry() *agents.Registry {
	return c.registry
}

// Recorder exposes the provenance store for read endpoints.
func (c *Coordinator) Recorder() *provenance.Recorder {
	return c.recorder
}

// Handle runs the full pipeline for one request. Every outcome,
// including rejection and total agent failure, is returned as a
// well-formed response envelope.
func (c *Coordinator) Handle(ctx context.Context, req *models.AssistantRequest) *models.AIResponse {
	requestID := uuid.NewString()
	start := time.Now()
	prov := c.recorder.Begin(requestID)

	if req == nil || req.Query == "" {
		return &models.AIResponse{
			ID:       requestID,
			Success:  false,
			Messages: []string{},
			Error:    "query is required",
			Metadata: &models.ResponseMetadata{DurationMs: time.Since(start).Milliseconds()},
		}
	}

	validation := c.gate.ValidateRequest(req.Query)
	if validation.Crisis.Detected {
		// Crisis is a successful request that short-circuits to the
		// fixed resource message. No agents run.
		prov.Add("safety", []string{c.gate.Sanitize(req.Query)}, provenance.Opts{Operation: "crisis_redirect", Confidence: 1}).Save()
		log.Info().Str("request_id", requestID).Msg("Crisis content detected, returning resource message")
		return &models.AIResponse{
			ID:       requestID,
			Success:  true,
			Messages: []string{safety.CrisisMessage},
			Metadata: &models.ResponseMetadata{
				Crisis:     true,
				DurationMs: time.Since(start).Milliseconds(),
			},
		}
	}
	if !validation.Valid {
		prov.Add("safety", nil, provenance.Opts{Operation: "blocked"}).Save()
		log.Warn().Str("request_id", requestID).Msg("Request blocked by safety gate")
		return &models.AIResponse{
			ID:       requestID,
			Success:  false,
			Messages: []string{safety.BlockedMessage},
			Error:    validation.Reason,
			Metadata: &models.ResponseMetadata{DurationMs: time.Since(start).Milliseconds()},
		}
	}

	limitID := req.UserID
	if limitID == "" {
		limitID = anonymousID
	}
	if decision := c.limiter.Check(limitID); !decision.Allowed {
		return &models.AIResponse{
			ID:       requestID,
			Success:  false,
			Messages: []string{},
			Error:    decision.Reason,
			Metadata: &models.ResponseMetadata{DurationMs: time.Since(start).Milliseconds()},
		}
	}
	c.limiter.Record(limitID)

	rctx, err := c.builder.Build(req)
	if err != nil {
		// Collaborator failure is fatal for the request; the chain
		// built so far is still saved for forensics.
		prov.Save()
		log.Error().Err(err).Str("request_id", requestID).Msg("Context build failed")
		return &models.AIResponse{
			ID:       requestID,
			Success:  false,
			Messages: []string{},
			Error:    fmt.Sprintf("building request context: %v", err),
			Metadata: &models.ResponseMetadata{DurationMs: time.Since(start).Milliseconds()},
		}
	}

	analysis := c.classifier.Analyze(req.Query)
	prov.Add("intent_classifier", []string{req.Query}, provenance.Opts{
		Confidence: analysis.Confidence,
		Operation:  "classify:" + string(analysis.Primary),
	})

	selected := Select(analysis)
	descriptors := make([]models.AgentDescriptor, 0, len(selected))
	for _, id := range selected {
		if d, ok := c.registry.Descriptor(id); ok {
			descriptors = append(descriptors, d)
		}
	}
	plan := Plan(descriptors)

	log.Debug().
		Str("request_id", requestID).
		Str("primary_intent", string(analysis.Primary)).
		Strs("agents", selected).
		Str("strategy", plan.Strategy).
		Msg("Execution planned")

	results := c.executePlan(ctx, plan, rctx, analysis)

	message := Combine(results, rctx)
	var (
		actions []models.ActionDraft
		used    []string
	)
	for _, r := range results {
		used = append(used, r.AgentID)
		if r.Success {
			actions = append(actions, r.Actions...)
		}
		if r.Provenance != nil {
			prov.AddEntry(*r.Provenance)
		}
	}
	prov.Save()
	c.sessions.RecordTurn(rctx.SessionID)

	return &models.AIResponse{
		ID:       requestID,
		Success:  true,
		Messages: []string{message},
		Actions:  actions,
		Metadata: &models.ResponseMetadata{
			Intent:     analysis,
			AgentsUsed: used,
			Strategy:   plan.Strategy,
			DurationMs: time.Since(start).Milliseconds(),
		},
	}
}

// RunAgent bypasses selection and planning to run one named agent.
// Safety and rate limiting still apply.
func (c *Coordinator) RunAgent(ctx context.Context, req *models.AgentRunRequest) *models.AgentRunResponse {
	if req == nil || req.Query == "" {
		return &models.AgentRunResponse{Success: false, Error: "query is required"}
	}

	validation := c.gate.ValidateRequest(req.Query)
	if validation.Crisis.Detected {
		return &models.AgentRunResponse{
			Success: true,
			Result: &models.AgentResult{
				AgentID:  "safety",
				Success:  true,
				Response: safety.CrisisMessage,
			},
		}
	}
	if !validation.Valid {
		return &models.AgentRunResponse{Success: false, Error: validation.Reason}
	}

	limitID := req.UserID
	if limitID == "" {
		limitID = anonymousID
	}
	if decision := c.limiter.Check(limitID); !decision.Allowed {
		return &models.AgentRunResponse{Success: false, Error: decision.Reason}
	}
	c.limiter.Record(limitID)

	if _, ok := c.registry.Get(req.AgentID); !ok {
		return &models.AgentRunResponse{Success: false, Error: fmt.Sprintf("unknown agent %q", req.AgentID)}
	}

	rctx, err := c.builder.Build(&models.AssistantRequest{
		Query:     req.Query,
		UserID:    req.UserID,
		SessionID: req.SessionID,
		UIContext: req.Context,
	})
	if err != nil {
		return &models.AgentRunResponse{Success: false, Error: fmt.Sprintf("building request context: %v", err)}
	}

	analysis := c.classifier.Analyze(req.Query)
	result := c.runAgent(ctx, req.AgentID, rctx, analysis)

	requestID := uuid.NewString()
	prov := c.recorder.Begin(requestID)
	if result.Provenance != nil {
		prov.AddEntry(*result.Provenance)
	}
	prov.Save()

	return &models.AgentRunResponse{Success: true, Result: result}
}

// executePlan runs phases strictly in order: a sequential phase holds
// one agent and completes before the next phase starts; the parallel
// phase fans out and collects every result (all-settled join).
func (c *Coordinator) executePlan(ctx context.Context, plan models.ExecutionPlan, rctx *runtime.Context, analysis *models.IntentAnalysis) []*models.AgentResult {
	var results []*models.AgentResult
	for _, phase := range plan.Phases {
		if !phase.Parallel {
			results = append(results, c.runAgent(ctx, phase.AgentIDs[0], rctx, analysis))
			continue
		}

		phaseResults := make([]*models.AgentResult, len(phase.AgentIDs))
		var wg sync.WaitGroup
		for i, id := range phase.AgentIDs {
			wg.Add(1)
			go func(i int, id string) {
				defer wg.Done()
				phaseResults[i] = c.runAgent(ctx, id, rctx, analysis)
			}(i, id)
		}
		wg.Wait()
		results = append(results, phaseResults...)
	}
	return results
}

// runAgent invokes one agent bounded by the per-agent timeout. Timeout
// and panic both become failed results; siblings are unaffected because
// only this agent's context is cancelled.
func (c *Coordinator) runAgent(ctx context.Context, agentID string, rctx *runtime.Context, analysis *models.IntentAnalysis) *models.AgentResult {
	agent, ok := c.registry.Get(agentID)
	if !ok {
		return failedResult(agentID, fmt.Sprintf("unknown agent %q", agentID), 0)
	}

	start := time.Now()
	actx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resultCh := make(chan *models.AgentResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Str("agent", agentID).Interface("panic", r).Msg("Agent panicked")
				resultCh <- failedResult(agentID, fmt.Sprintf("agent panic: %v", r), time.Since(start).Milliseconds())
			}
		}()
		res, err := agent.Execute(actx, rctx, analysis)
		if err != nil {
			resultCh <- failedResult(agentID, err.Error(), time.Since(start).Milliseconds())
			return
		}
		if res == nil {
			resultCh <- failedResult(agentID, "agent returned no result", time.Since(start).Milliseconds())
			return
		}
		resultCh <- res
	}()

	select {
	case res := <-resultCh:
		return res
	case <-actx.Done():
		log.Warn().Str("agent", agentID).Dur("timeout", c.timeout).Msg("Agent timed out")
		return failedResult(agentID, "Agent timeout", time.Since(start).Milliseconds())
	}
}

func failedResult(agentID, errMsg string, elapsedMs int64) *models.AgentResult {
	return &models.AgentResult{
		AgentID:          agentID,
		Success:          false,
		Error:            errMsg,
		ProcessingTimeMs: elapsedMs,
		Provenance: &models.ProvenanceEntry{
			Agent:      agentID,
			Confidence: 0,
			Operation:  "failed",
			DurationMs: elapsedMs,
			Timestamp:  time.Now().UTC().Format(time.RFC3339Nano),
		},
	}
}
