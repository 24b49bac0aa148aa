// Package sessions tracks per-user conversation state across requests:
// persona, a coarse skill assessment, turn counts, and consent flags.
// In-memory with internal locking; one session per session ID.
package sessions

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/2010nasirm-code/synapse-os-sub001/pkg/models"
)

// DefaultPersona is applied when neither the session nor the request
// names one.
const DefaultPersona = "companion"

// Store is the in-memory session registry.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*models.Session
}

func NewStore() *Store {
	return &Store{sessions: make(map[string]*models.Session)}
}

// ErrNotFound reports a missing session.
type ErrNotFound struct {
	Key string
}

func (e *ErrNotFound) Error() string {
	return "session not found: " + e.Key
}

// GetOrCreate returns the session for sessionID, creating it when absent.
// An empty sessionID creates a fresh session with a generated ID.
func (s *Store) GetOrCreate(sessionID, userID string) *models.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sessionID != "" {
		if sess, ok := s.sessions[sessionID]; ok {
			return cloneSession(sess)
		}
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	now := time.Now().UTC()
	sess := &models.Session{
		ID:        sessionID,
		UserID:    userID,
		Persona:   DefaultPersona,
		Skill:     models.SkillAssessment{Level: "beginner"},
		Consent:   models.Consent{StoreMemories: true, WebSearch: true},
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.sessions[sessionID] = sess
	return cloneSession(sess)
}

// Get returns a copy of the session or an ErrNotFound.
func (s *Store) Get(sessionID string) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, &ErrNotFound{Key: sessionID}
	}
	return cloneSession(sess), nil
}

// RecordTurn increments the turn count and refreshes the skill
// assessment. Unknown sessions are ignored.
func (s *Store) RecordTurn(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return
	}
	sess.Turns++
	sess.Skill = assessSkill(sess.Turns)
	sess.UpdatedAt = time.Now().UTC()
}

// SetPersona overrides the session persona.
func (s *Store) SetPersona(sessionID, persona string) {
	if persona == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[sessionID]; ok {
		sess.Persona = persona
		sess.UpdatedAt = time.Now().UTC()
	}
}

// SetConsent replaces the session's consent flags.
func (s *Store) SetConsent(sessionID string, consent models.Consent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[sessionID]; ok {
		sess.Consent = consent
		sess.UpdatedAt = time.Now().UTC()
	}
}

// assessSkill maps cumulative turns to a coarse proficiency level.
func assessSkill(turns int) models.SkillAssessment {
	level := "beginner"
	switch {
	case turns >= 25:
		level = "advanced"
	case turns >= 8:
		level = "intermediate"
	}
	return models.SkillAssessment{
		Level:     level,
		Signal:    float64(turns),
		UpdatedAt: time.Now().UTC().Format(time.RFC3339),
	}
}

func cloneSession(sess *models.Session) *models.Session {
	c := *sess
	return &c
}
