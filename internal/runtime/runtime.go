// Package runtime builds the per-request context handed to every agent:
// the query, resolved session state, and relevant memories. The context
// is built once per request and treated as read-only by agents; side
// effects go through the collaborator stores, never through the context.
package runtime

import (
	"time"

	"github.com/2010nasirm-code/synapse-os-sub001/internal/memory"
	"github.com/2010nasirm-code/synapse-os-sub001/internal/sessions"
	"github.com/2010nasirm-code/synapse-os-sub001/pkg/models"
)

// memorySearchLimit caps how many memories are attached to a request.
const memorySearchLimit = 5

// Context is the per-request bundle shared by every agent invocation.
// Safe to share across concurrent agents because nothing mutates it
// after Build returns.
type Context struct {
	Query     string
	UserID    string
	SessionID string
	Persona   string
	Skill     models.SkillAssessment
	Memories  []models.MemoryItem
	Consent   models.Consent
	UIContext map[string]interface{}
	Timestamp time.Time
}

// Builder resolves sessions and memories into a Context.
type Builder struct {
	sessions *sessions.Store
	memories *memory.Store
}

func NewBuilder(sessionStore *sessions.Store, memoryStore *memory.Store) *Builder {
	return &Builder{sessions: sessionStore, memories: memoryStore}
}

// Build resolves or creates the session, searches memories, and applies
// the request's persona override. Deterministic given the same session
// and memory state.
func (b *Builder) Build(req *models.AssistantRequest) (*Context, error) {
	sess := b.sessions.GetOrCreate(req.SessionID, req.UserID)

	persona := sess.Persona
	if req.Persona != "" {
		persona = req.Persona
		b.sessions.SetPersona(sess.ID, req.Persona)
	}

	var memories []models.MemoryItem
	if req.UserID != "" {
		memories = b.memories.Search(req.UserID, req.Query, memorySearchLimit)
	}

	return &Context{
		Query:     req.Query,
		UserID:    req.UserID,
		SessionID: sess.ID,
		Persona:   persona,
		Skill:     sess.Skill,
		Memories:  memories,
		Consent:   sess.Consent,
		UIContext: req.UIContext,
		Timestamp: time.Now().UTC(),
	}, nil
}
