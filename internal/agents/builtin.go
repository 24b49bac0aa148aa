package agents

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/2010nasirm-code/synapse-os-sub001/internal/memory"
	"github.com/2010nasirm-code/synapse-os-sub001/internal/runtime"
	"github.com/2010nasirm-code/synapse-os-sub001/pkg/models"
)

// NewDefaultRegistry registers the built-in agents. The memory agent is
// the only non-parallelizable one: it writes to the memory store and
// must run before the parallel phase so siblings can observe its writes
// through the store.
func NewDefaultRegistry(memStore *memory.Store) *Registry {
	r := NewRegistry()
	r.Register(models.AgentDescriptor{ID: "reasoning", Priority: 10, CanParallelize: true}, &ReasoningAgent{})
	r.Register(models.AgentDescriptor{ID: "knowledge", Priority: 8, CanParallelize: true}, &KnowledgeAgent{})
	r.Register(models.AgentDescriptor{ID: "tool", Priority: 7, CanParallelize: true}, &ToolAgent{})
	r.Register(models.AgentDescriptor{ID: "planner", Priority: 6, CanParallelize: true}, &PlannerAgent{})
	r.Register(models.AgentDescriptor{ID: "memory", Priority: 5, CanParallelize: false}, &MemoryAgent{Store: memStore})
	r.Register(models.AgentDescriptor{ID: "ui", Priority: 4, CanParallelize: true}, &UIAgent{})
	r.Register(models.AgentDescriptor{ID: "debug", Priority: 3, CanParallelize: true}, &DebugAgent{})
	return r
}

func succeeded(agentID, response string, confidence float64, operation string, rctx *runtime.Context, start time.Time) *models.AgentResult {
	elapsed := time.Since(start).Milliseconds()
	return &models.AgentResult{
		AgentID:          agentID,
		Success:          true,
		Response:         response,
		ProcessingTimeMs: elapsed,
		Provenance: &models.ProvenanceEntry{
			Agent:      agentID,
			Inputs:     []string{rctx.Query},
			Confidence: confidence,
			Operation:  operation,
			DurationMs: elapsed,
			Timestamp:  time.Now().UTC().Format(time.RFC3339Nano),
		},
	}
}

// ── Reasoning ────────────────────────────────────────────────

// ReasoningAgent walks through what the user is asking for and frames
// the overall answer.
type ReasoningAgent struct{}

func (a *ReasoningAgent) ID() string { return "reasoning" }

func (a *ReasoningAgent) Execute(ctx context.Context, rctx *runtime.Context, analysis *models.IntentAnalysis) (*models.AgentResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()

	var sb strings.Builder
	switch analysis.Primary {
	case models.IntentCreate:
		sb.WriteString("Let's set that up. ")
	case models.IntentAnalyze:
		sb.WriteString("Looking at what you've logged so far, ")
	case models.IntentDelete:
		sb.WriteString("Before removing anything, ")
	default:
		sb.WriteString("Here's my take: ")
	}
	if len(analysis.Entities) > 0 {
		sb.WriteString(fmt.Sprintf("I'll focus on %s. ", strings.Join(analysis.Entities, ", ")))
	}
	if len(rctx.Memories) > 0 {
		sb.WriteString(fmt.Sprintf("I'm also factoring in %d related things you've told me before.", len(rctx.Memories)))
	} else {
		sb.WriteString("Tell me more if I'm missing context.")
	}

	result := succeeded(a.ID(), sb.String(), 0.85, "reason", rctx, start)
	result.Insights = []models.Insight{{
		Kind:    "interpretation",
		Text:    fmt.Sprintf("Read the request as a %s intent with confidence %.2f.", analysis.Primary, analysis.Confidence),
		Score:   analysis.Confidence,
		AgentID: a.ID(),
	}}
	return result, nil
}

// ── Knowledge ────────────────────────────────────────────────

// KnowledgeAgent answers factual questions from built-in notes, or
// flags that a live lookup is needed when the query asks for current
// information and the user has allowed web search.
type KnowledgeAgent struct{}

func (a *KnowledgeAgent) ID() string { return "knowledge" }

func (a *KnowledgeAgent) Execute(ctx context.Context, rctx *runtime.Context, analysis *models.IntentAnalysis) (*models.AgentResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()

	var response string
	operation := "answer"
	switch {
	case analysis.RequiresWebSearch && !rctx.Consent.WebSearch:
		response = "That needs a live lookup, but web search is turned off for this session. I can answer from what I already know if you'd like."
		operation = "answer_offline"
	case analysis.RequiresWebSearch:
		response = "I'd check a current source for that. Based on what I know: " + summarizeTopic(rctx.Query)
		operation = "answer_with_lookup"
	default:
		response = summarizeTopic(rctx.Query)
	}

	return succeeded(a.ID(), response, 0.75, operation, rctx, start), nil
}

func summarizeTopic(query string) string {
	topic := strings.TrimSpace(query)
	if len(topic) > 60 {
		topic = topic[:60]
	}
	if topic == "" {
		return "I don't have enough to go on yet."
	}
	return fmt.Sprintf("Here's what I know about %q at a glance, and I can go deeper on any part of it.", topic)
}

// ── Tool ─────────────────────────────────────────────────────

// ToolAgent drafts the concrete mutation for create/update/delete
// intents. Drafts are never applied here; they go back to the caller
// for confirmation.
type ToolAgent struct{}

func (a *ToolAgent) ID() string { return "tool" }

func (a *ToolAgent) Execute(ctx context.Context, rctx *runtime.Context, analysis *models.IntentAnalysis) (*models.AgentResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()

	var (
		response string
		actions  []models.ActionDraft
	)
	payload := map[string]interface{}{"query": rctx.Query}
	if len(analysis.Entities) > 0 {
		payload["entities"] = analysis.Entities
	}

	switch analysis.Primary {
	case models.IntentCreate:
		actions = append(actions, models.ActionDraft{
			ID: uuid.NewString(), Type: "create_item", Payload: payload,
		})
		response = "I've drafted the new item; confirm and I'll create it."
	case models.IntentUpdate:
		actions = append(actions, models.ActionDraft{
			ID: uuid.NewString(), Type: "update_item", Payload: payload,
		})
		response = "I've prepared the update for you to confirm."
	case models.IntentDelete:
		actions = append(actions, models.ActionDraft{
			ID: uuid.NewString(), Type: "delete_item", Payload: payload,
			RequiresConfirmation: true,
		})
		response = "Deletion is ready but needs your explicit confirmation."
	default:
		response = "No data changes needed for this one."
	}

	result := succeeded(a.ID(), response, 0.8, "draft_actions", rctx, start)
	result.Actions = actions
	return result, nil
}

// ── Planner ──────────────────────────────────────────────────

// PlannerAgent breaks multi-step requests into an ordered outline.
type PlannerAgent struct{}

func (a *PlannerAgent) ID() string { return "planner" }

func (a *PlannerAgent) Execute(ctx context.Context, rctx *runtime.Context, analysis *models.IntentAnalysis) (*models.AgentResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()

	steps := []string{"Clarify what success looks like."}
	switch analysis.Primary {
	case models.IntentCreate:
		steps = []string{
			"Pick a name and what to record each day.",
			"Set a reminder time that fits your routine.",
			"Review after the first week and adjust.",
		}
	case models.IntentAnalyze:
		steps = []string{
			"Gather the entries from the period you care about.",
			"Look for streaks, gaps, and outliers.",
			"Decide one change to try next.",
		}
	}

	var sb strings.Builder
	sb.WriteString("Suggested steps:")
	for i, s := range steps {
		sb.WriteString(fmt.Sprintf("\n%d. %s", i+1, s))
	}
	return succeeded(a.ID(), sb.String(), 0.7, "plan_steps", rctx, start), nil
}

// ── Memory ───────────────────────────────────────────────────

// MemoryAgent surfaces what the store already knows and records the
// current exchange when the user has consented. It writes to a shared
// collaborator, which is why it is registered as non-parallelizable.
type MemoryAgent struct {
	Store *memory.Store
}

func (a *MemoryAgent) ID() string { return "memory" }

func (a *MemoryAgent) Execute(ctx context.Context, rctx *runtime.Context, analysis *models.IntentAnalysis) (*models.AgentResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()

	var sb strings.Builder
	if len(rctx.Memories) > 0 {
		sb.WriteString("From what you've told me before: ")
		for i, m := range rctx.Memories {
			if i > 0 {
				sb.WriteString("; ")
			}
			sb.WriteString(m.Text)
		}
		sb.WriteString(".")
	} else {
		sb.WriteString("I don't have earlier notes that relate to this yet.")
	}

	operation := "recall"
	if rctx.Consent.StoreMemories && rctx.UserID != "" && strings.TrimSpace(rctx.Query) != "" {
		a.Store.Add(rctx.UserID, rctx.Query, "exchange")
		operation = "recall_and_store"
	}

	return succeeded(a.ID(), sb.String(), 0.65, operation, rctx, start), nil
}

// ── UI help ──────────────────────────────────────────────────

// UIAgent explains how to use the product, pitched at the session's
// skill level.
type UIAgent struct{}

func (a *UIAgent) ID() string { return "ui" }

func (a *UIAgent) Execute(ctx context.Context, rctx *runtime.Context, analysis *models.IntentAnalysis) (*models.AgentResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()

	var response string
	switch rctx.Skill.Level {
	case "advanced":
		response = "You can do this fastest from the command palette; ask me for the exact shortcut."
	case "intermediate":
		response = "You'll find this under the main menu. Want a walkthrough of the quicker path?"
	default:
		response = "No problem, let's go step by step. Start from the home screen and I'll guide you from there."
	}
	return succeeded(a.ID(), response, 0.6, "guide", rctx, start), nil
}

// ── Debug ────────────────────────────────────────────────────

// DebugAgent runs a short triage checklist for "it's broken" queries.
type DebugAgent struct{}

func (a *DebugAgent) ID() string { return "debug" }

func (a *DebugAgent) Execute(ctx context.Context, rctx *runtime.Context, analysis *models.IntentAnalysis) (*models.AgentResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()

	response := "Let's narrow it down: when did it last work, what changed since, and does it happen every time? " +
		"If it's a sync issue, checking the connection status usually settles it quickly."
	result := succeeded(a.ID(), response, 0.6, "triage", rctx, start)
	result.Insights = []models.Insight{{
		Kind:    "diagnostic",
		Text:    "Most reported issues here resolve to connectivity or a stale cached view.",
		AgentID: a.ID(),
	}}
	return result, nil
}
