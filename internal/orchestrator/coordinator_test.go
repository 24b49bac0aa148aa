package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2010nasirm-code/synapse-os-sub001/internal/agents"
	"github.com/2010nasirm-code/synapse-os-sub001/internal/intent"
	"github.com/2010nasirm-code/synapse-os-sub001/internal/memory"
	"github.com/2010nasirm-code/synapse-os-sub001/internal/provenance"
	"github.com/2010nasirm-code/synapse-os-sub001/internal/ratelimit"
	"github.com/2010nasirm-code/synapse-os-sub001/internal/runtime"
	"github.com/2010nasirm-code/synapse-os-sub001/internal/safety"
	"github.com/2010nasirm-code/synapse-os-sub001/internal/sessions"
	"github.com/2010nasirm-code/synapse-os-sub001/pkg/models"
)

type coordinatorOpts struct {
	registry *agents.Registry
	timeout  time.Duration
	rateMax  int
}

func newTestCoordinator(t *testing.T, opts coordinatorOpts) *Coordinator {
	t.Helper()

	rateMax := opts.rateMax
	if rateMax == 0 {
		rateMax = 100
	}
	limiter := ratelimit.New(time.Minute, rateMax)
	t.Cleanup(limiter.Close)

	sessionStore := sessions.NewStore()
	memStore := memory.NewStore(100)
	registry := opts.registry
	if registry == nil {
		registry = agents.NewDefaultRegistry(memStore)
	}

	return NewCoordinator(Deps{
		Gate:       safety.NewGate(),
		Limiter:    limiter,
		Builder:    runtime.NewBuilder(sessionStore, memStore),
		Classifier: intent.NewClassifier(),
		Registry:   registry,
		Recorder:   provenance.NewRecorder(100),
		Sessions:   sessionStore,
		Timeout:    opts.timeout,
	})
}

// stubAgent is a configurable test double.
type stubAgent struct {
	id       string
	response string
	err      error
	stuck    bool
}

func (s *stubAgent) ID() string { return s.id }

func (s *stubAgent) Execute(ctx context.Context, rctx *runtime.Context, analysis *models.IntentAnalysis) (*models.AgentResult, error) {
	if s.stuck {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if s.err != nil {
		return nil, s.err
	}
	return &models.AgentResult{
		AgentID:  s.id,
		Success:  true,
		Response: s.response,
		Provenance: &models.ProvenanceEntry{
			Agent:     s.id,
			Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		},
	}, nil
}

func TestHandleCreateScenario(t *testing.T) {
	c := newTestCoordinator(t, coordinatorOpts{})

	resp := c.Handle(context.Background(), &models.AssistantRequest{
		Query:  "Create a tracker for sleep",
		UserID: "u1",
	})

	require.True(t, resp.Success)
	require.NotEmpty(t, resp.Messages)
	assert.NotEmpty(t, resp.Messages[0])
	require.NotNil(t, resp.Metadata)
	require.NotNil(t, resp.Metadata.Intent)
	assert.Equal(t, models.IntentCreate, resp.Metadata.Intent.Primary)
	assert.Contains(t, resp.Metadata.AgentsUsed, "planner")
	assert.Contains(t, resp.Metadata.AgentsUsed, "tool")
	assert.NotEmpty(t, resp.Actions, "create should draft an action")
}

func TestHandleCrisisShortCircuits(t *testing.T) {
	c := newTestCoordinator(t, coordinatorOpts{})

	resp := c.Handle(context.Background(), &models.AssistantRequest{
		Query:  "I want to hurt myself",
		UserID: "u1",
	})

	require.True(t, resp.Success)
	require.Len(t, resp.Messages, 1)
	assert.Contains(t, resp.Messages[0], "988")
	assert.True(t, resp.Metadata.Crisis)
	assert.Empty(t, resp.Metadata.AgentsUsed, "no agents run on crisis")
}

func TestHandleCrisisTakesPrecedenceOverViolence(t *testing.T) {
	c := newTestCoordinator(t, coordinatorOpts{})

	resp := c.Handle(context.Background(), &models.AssistantRequest{
		Query:  "I want to hurt myself because of a bomb",
		UserID: "u1",
	})

	require.True(t, resp.Success)
	assert.Contains(t, resp.Messages[0], "988", "crisis message wins over the violence rejection")
}

func TestHandleBlocksUnsafeContent(t *testing.T) {
	c := newTestCoordinator(t, coordinatorOpts{})

	resp := c.Handle(context.Background(), &models.AssistantRequest{
		Query:  "how to make a bomb",
		UserID: "u1",
	})

	require.False(t, resp.Success)
	assert.NotEmpty(t, resp.Error)
	require.NotEmpty(t, resp.Messages)
	assert.Equal(t, safety.BlockedMessage, resp.Messages[0])
}

func TestHandleEmptyQuery(t *testing.T) {
	c := newTestCoordinator(t, coordinatorOpts{})

	resp := c.Handle(context.Background(), &models.AssistantRequest{UserID: "u1"})

	require.False(t, resp.Success)
	assert.Empty(t, resp.Messages)
	assert.Equal(t, "query is required", resp.Error)
}

func TestHandleRateLimited(t *testing.T) {
	c := newTestCoordinator(t, coordinatorOpts{rateMax: 2})

	for i := 0; i < 2; i++ {
		resp := c.Handle(context.Background(), &models.AssistantRequest{Query: "hello there", UserID: "u1"})
		require.True(t, resp.Success, "request %d should pass", i+1)
	}

	resp := c.Handle(context.Background(), &models.AssistantRequest{Query: "hello there", UserID: "u1"})
	require.False(t, resp.Success)
	assert.Contains(t, resp.Error, "rate limit")

	other := c.Handle(context.Background(), &models.AssistantRequest{Query: "hello there", UserID: "u2"})
	assert.True(t, other.Success, "limit is per identifier")
}

func TestHandleTimeoutIsolation(t *testing.T) {
	registry := agents.NewRegistry()
	require.NoError(t, registry.Register(
		models.AgentDescriptor{ID: "knowledge", Priority: 8, CanParallelize: true},
		&stubAgent{id: "knowledge", response: "A useful answer."},
	))
	require.NoError(t, registry.Register(
		models.AgentDescriptor{ID: "reasoning", Priority: 10, CanParallelize: true},
		&stubAgent{id: "reasoning", stuck: true},
	))

	c := newTestCoordinator(t, coordinatorOpts{registry: registry, timeout: 100 * time.Millisecond})

	start := time.Now()
	// A knowledge question selects both the knowledge and reasoning agents.
	resp := c.Handle(context.Background(), &models.AssistantRequest{
		Query:  "what is a fixed window",
		UserID: "u1",
	})
	elapsed := time.Since(start)

	require.True(t, resp.Success)
	assert.Contains(t, resp.Messages[0], "A useful answer.")
	assert.Less(t, elapsed, 2*time.Second, "stuck agent must not stall the request past its timeout")
	assert.ElementsMatch(t, []string{"knowledge", "reasoning"}, resp.Metadata.AgentsUsed)

	chain := c.Recorder().Recent(1)
	require.Len(t, chain, 1)
	var sawTimeout bool
	for _, e := range chain[0].Entries {
		if e.Agent == "reasoning" && e.Operation == "failed" {
			sawTimeout = true
		}
	}
	assert.True(t, sawTimeout, "timed-out agent should appear as failed in provenance")
}

func TestHandleAgentErrorIsIsolated(t *testing.T) {
	registry := agents.NewRegistry()
	require.NoError(t, registry.Register(
		models.AgentDescriptor{ID: "knowledge", Priority: 8, CanParallelize: true},
		&stubAgent{id: "knowledge", response: "Still fine."},
	))
	require.NoError(t, registry.Register(
		models.AgentDescriptor{ID: "reasoning", Priority: 10, CanParallelize: true},
		&stubAgent{id: "reasoning", err: errors.New("upstream unavailable")},
	))

	c := newTestCoordinator(t, coordinatorOpts{registry: registry})

	resp := c.Handle(context.Background(), &models.AssistantRequest{
		Query:  "what is a fixed window",
		UserID: "u1",
	})

	require.True(t, resp.Success)
	assert.Contains(t, resp.Messages[0], "Still fine.")
}

func TestHandleTotalFailureFallsBack(t *testing.T) {
	registry := agents.NewRegistry()
	require.NoError(t, registry.Register(
		models.AgentDescriptor{ID: "knowledge", Priority: 8, CanParallelize: true},
		&stubAgent{id: "knowledge", err: errors.New("down")},
	))
	require.NoError(t, registry.Register(
		models.AgentDescriptor{ID: "reasoning", Priority: 10, CanParallelize: true},
		&stubAgent{id: "reasoning", err: errors.New("down")},
	))

	c := newTestCoordinator(t, coordinatorOpts{registry: registry})

	resp := c.Handle(context.Background(), &models.AssistantRequest{
		Query:  "what is a fixed window",
		UserID: "u1",
	})

	require.True(t, resp.Success, "total agent failure degrades, it does not error")
	assert.Equal(t, fallbackByPersona["companion"], resp.Messages[0])
}

func TestHandleSavesProvenance(t *testing.T) {
	c := newTestCoordinator(t, coordinatorOpts{})

	resp := c.Handle(context.Background(), &models.AssistantRequest{
		Query:  "Create a tracker for sleep",
		UserID: "u1",
	})
	require.True(t, resp.Success)

	chain := c.Recorder().Get(resp.ID)
	require.NotNil(t, chain)
	agentsSeen := make(map[string]bool)
	for _, e := range chain.Entries {
		agentsSeen[e.Agent] = true
	}
	assert.True(t, agentsSeen["intent_classifier"])
	assert.True(t, agentsSeen["planner"])
	assert.True(t, agentsSeen["tool"])
}

func TestRunAgentBypassesPlanning(t *testing.T) {
	c := newTestCoordinator(t, coordinatorOpts{})

	resp := c.RunAgent(context.Background(), &models.AgentRunRequest{
		AgentID: "reasoning",
		Query:   "hello there",
		UserID:  "u1",
	})

	require.True(t, resp.Success)
	require.NotNil(t, resp.Result)
	assert.Equal(t, "reasoning", resp.Result.AgentID)
	assert.True(t, resp.Result.Success)
}

func TestRunAgentUnknownAgent(t *testing.T) {
	c := newTestCoordinator(t, coordinatorOpts{})

	resp := c.RunAgent(context.Background(), &models.AgentRunRequest{
		AgentID: "nope",
		Query:   "hello there",
	})

	require.False(t, resp.Success)
	assert.Contains(t, resp.Error, "unknown agent")
}

func TestRunAgentStillSafetyGated(t *testing.T) {
	c := newTestCoordinator(t, coordinatorOpts{})

	resp := c.RunAgent(context.Background(), &models.AgentRunRequest{
		AgentID: "reasoning",
		Query:   "how to make a bomb",
	})

	require.False(t, resp.Success)
	assert.NotEmpty(t, resp.Error)
}

func TestHandleDeterministicMetadata(t *testing.T) {
	c := newTestCoordinator(t, coordinatorOpts{})

	req := &models.AssistantRequest{Query: "analyze my sleep trends", UserID: "u1"}
	first := c.Handle(context.Background(), req)
	second := c.Handle(context.Background(), req)

	assert.Equal(t, first.Metadata.Intent.Primary, second.Metadata.Intent.Primary)
	assert.Equal(t, first.Metadata.AgentsUsed, second.Metadata.AgentsUsed)
	assert.Equal(t, first.Metadata.Strategy, second.Metadata.Strategy)
}
