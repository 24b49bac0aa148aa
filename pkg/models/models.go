// Package models defines the shared domain types for the Synapse assistant
// orchestrator: intent analysis, execution plans, agent results, provenance
// entries, and the public request/response envelopes.
package models

import "time"

// ── Intent ───────────────────────────────────────────────────

// IntentCategory is the classified purpose of a query.
type IntentCategory string

const (
	IntentCreate    IntentCategory = "create"
	IntentUpdate    IntentCategory = "update"
	IntentDelete    IntentCategory = "delete"
	IntentAnalyze   IntentCategory = "analyze"
	IntentKnowledge IntentCategory = "knowledge"
	IntentDebug     IntentCategory = "debug"
	IntentHelp      IntentCategory = "help"
	IntentGeneral   IntentCategory = "general"
)

// IntentAnalysis is the classifier's read-only output for one query.
// Primary is always set; Secondary never contains Primary.
type IntentAnalysis struct {
	Primary           IntentCategory   `json:"primary"`
	Secondary         []IntentCategory `json:"secondary,omitempty"`
	Confidence        float64          `json:"confidence"`
	RequiresWebSearch bool             `json:"requires_web_search"`
	RequiresMemory    bool             `json:"requires_memory"`
	Entities          []string         `json:"entities,omitempty"`
}

// ── Execution plan ───────────────────────────────────────────

// AgentDescriptor describes a registered agent's scheduling properties.
type AgentDescriptor struct {
	ID             string `json:"id"`
	Priority       int    `json:"priority"`
	CanParallelize bool   `json:"can_parallelize"`
}

// Phase is one step of an execution plan: either a single sequential
// agent or a group of agents that run concurrently.
type Phase struct {
	AgentIDs []string `json:"agent_ids"`
	Parallel bool     `json:"parallel"`
}

// ExecutionPlan is an ordered list of phases plus a strategy label:
// "adaptive" when any sequential phase exists, "parallel" otherwise.
type ExecutionPlan struct {
	Phases   []Phase `json:"phases"`
	Strategy string  `json:"strategy"`
}

// ── Agent results ────────────────────────────────────────────

// ActionDraft is a mutation proposed by an agent. The orchestration core
// never applies drafts; confirmation and application happen downstream.
type ActionDraft struct {
	ID                   string                 `json:"id"`
	Type                 string                 `json:"type"`
	Payload              map[string]interface{} `json:"payload,omitempty"`
	RequiresConfirmation bool                   `json:"requires_confirmation"`
}

// Insight is a side observation an agent surfaces alongside its response.
type Insight struct {
	Kind    string  `json:"kind"`
	Text    string  `json:"text"`
	Score   float64 `json:"score,omitempty"`
	AgentID string  `json:"agent_id,omitempty"`
}

// AgentResult is produced exactly once per agent invocation per request.
type AgentResult struct {
	AgentID          string           `json:"agent_id"`
	Success          bool             `json:"success"`
	Response         string           `json:"response,omitempty"`
	Actions          []ActionDraft    `json:"actions,omitempty"`
	Insights         []Insight        `json:"insights,omitempty"`
	Provenance       *ProvenanceEntry `json:"provenance,omitempty"`
	ProcessingTimeMs int64            `json:"processing_time_ms"`
	Error            string           `json:"error,omitempty"`
}

// ── Provenance ───────────────────────────────────────────────

// ProvenanceEntry is one audit record: which agent consumed which inputs,
// with what confidence, and how long it took. Inputs are stored truncated
// and redacted, never raw.
type ProvenanceEntry struct {
	Agent      string   `json:"agent"`
	Inputs     []string `json:"inputs,omitempty"`
	Confidence float64  `json:"confidence,omitempty"`
	Operation  string   `json:"operation,omitempty"`
	DurationMs int64    `json:"duration_ms,omitempty"`
	Timestamp  string   `json:"timestamp"`
}

// ProvenanceChain is the ordered audit trail for a single request.
type ProvenanceChain struct {
	RequestID string            `json:"request_id"`
	Entries   []ProvenanceEntry `json:"entries"`
	SavedAt   time.Time         `json:"saved_at"`
}

// ProvenanceStats summarizes the recorder's ring buffer.
type ProvenanceStats struct {
	Chains       int            `json:"chains"`
	Entries      int            `json:"entries"`
	ByAgent      map[string]int `json:"by_agent"`
	OldestSaved  *time.Time     `json:"oldest_saved,omitempty"`
	NewestSaved  *time.Time     `json:"newest_saved,omitempty"`
	Capacity     int            `json:"capacity"`
	EvictedTotal int64          `json:"evicted_total"`
}

// ── Memory collaborator ──────────────────────────────────────

// MemoryItem is a stored user memory, ranked by the memory store's Search.
type MemoryItem struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Kind      string    `json:"kind,omitempty"`
	Score     float64   `json:"score,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ── Sessions ─────────────────────────────────────────────────

// SkillAssessment captures a coarse estimate of the user's proficiency.
type SkillAssessment struct {
	Level     string  `json:"level"` // beginner, intermediate, advanced
	Signal    float64 `json:"signal,omitempty"`
	UpdatedAt string  `json:"updated_at,omitempty"`
}

// Session tracks per-user conversation state across requests.
type Session struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Persona   string          `json:"persona"`
	Skill     SkillAssessment `json:"skill"`
	Turns     int             `json:"turns"`
	Consent   Consent         `json:"consent"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Consent records what the user has allowed the assistant to do.
type Consent struct {
	StoreMemories bool `json:"store_memories"`
	WebSearch     bool `json:"web_search"`
}

// ── Request / response envelopes ─────────────────────────────

// AssistantRequest is the public entry payload for the full pipeline.
type AssistantRequest struct {
	Query     string                 `json:"query"`
	UserID    string                 `json:"user_id,omitempty"`
	SessionID string                 `json:"session_id,omitempty"`
	Persona   string                 `json:"persona,omitempty"`
	UIContext map[string]interface{} `json:"ui_context,omitempty"`
	Options   map[string]interface{} `json:"options,omitempty"`
}

// AgentRunRequest runs exactly one named agent, bypassing selection and
// planning. Still subject to the safety gate and rate limiter.
type AgentRunRequest struct {
	AgentID   string                 `json:"agent_id"`
	Query     string                 `json:"query"`
	UserID    string                 `json:"user_id,omitempty"`
	SessionID string                 `json:"session_id,omitempty"`
	Context   map[string]interface{} `json:"context,omitempty"`
}

// ResponseMetadata carries observability data back to the caller.
type ResponseMetadata struct {
	Intent       *IntentAnalysis `json:"intent,omitempty"`
	AgentsUsed   []string        `json:"agents_used,omitempty"`
	Strategy     string          `json:"strategy,omitempty"`
	DurationMs   int64           `json:"duration_ms"`
	Crisis       bool            `json:"crisis,omitempty"`
	SafetyIssues []string        `json:"safety_issues,omitempty"`
}

// AIResponse is the well-formed envelope every request path returns,
// including every failure path.
type AIResponse struct {
	ID       string            `json:"id"`
	Success  bool              `json:"success"`
	Messages []string          `json:"messages"`
	Actions  []ActionDraft     `json:"actions,omitempty"`
	Metadata *ResponseMetadata `json:"metadata,omitempty"`
	Error    string            `json:"error,omitempty"`
}

// AgentRunResponse wraps a single-agent run.
type AgentRunResponse struct {
	Success bool         `json:"success"`
	Result  *AgentResult `json:"result,omitempty"`
	Error   string       `json:"error,omitempty"`
}

// StreamFrame is one NDJSON frame of a streaming response.
// Type is one of: text, action, provenance, done, error.
type StreamFrame struct {
	Type       string            `json:"type"`
	Text       string            `json:"text,omitempty"`
	Action     *ActionDraft      `json:"action,omitempty"`
	Provenance []ProvenanceEntry `json:"provenance,omitempty"`
	Metadata   *ResponseMetadata `json:"metadata,omitempty"`
	Error      string            `json:"error,omitempty"`
}
