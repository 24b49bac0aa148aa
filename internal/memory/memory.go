// Package memory is the in-process memory collaborator: a bounded,
// per-user store of short text memories with keyword-overlap search.
// Real deployments swap this for an embedding-backed service; the
// orchestration core only depends on Search and Add.
package memory

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/2010nasirm-code/synapse-os-sub001/pkg/models"
)

// Store holds memories per user. Internally synchronized.
type Store struct {
	mu       sync.RWMutex
	byUser   map[string][]models.MemoryItem
	capacity int
}

// NewStore creates a store keeping at most capacity items per user.
func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = 500
	}
	return &Store{
		byUser:   make(map[string][]models.MemoryItem),
		capacity: capacity,
	}
}

// Add stores a memory for userID, evicting the oldest item when the
// per-user bound is reached. Returns the stored item with its ID set.
func (s *Store) Add(userID, text, kind string) models.MemoryItem {
	item := models.MemoryItem{
		ID:        uuid.NewString(),
		Text:      text,
		Kind:      kind,
		CreatedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	items := append(s.byUser[userID], item)
	if len(items) > s.capacity {
		items = items[len(items)-s.capacity:]
	}
	s.byUser[userID] = items
	s.mu.Unlock()

	return item
}

// Search returns up to limit memories for userID ranked by keyword
// overlap with query. Items with zero overlap are excluded.
func (s *Store) Search(userID, query string, limit int) []models.MemoryItem {
	if limit <= 0 {
		limit = 5
	}
	queryTokens := tokenize(query)
	if len(queryTokens) == 0 {
		return nil
	}

	s.mu.RLock()
	items := s.byUser[userID]
	scored := make([]models.MemoryItem, 0, len(items))
	for _, item := range items {
		score := overlap(queryTokens, tokenize(item.Text))
		if score > 0 {
			item.Score = score
			scored = append(scored, item)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored
}

// Count reports how many memories are stored for userID.
func (s *Store) Count(userID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byUser[userID])
}

func tokenize(text string) map[string]bool {
	tokens := make(map[string]bool)
	for _, f := range strings.Fields(strings.ToLower(text)) {
		f = strings.Trim(f, ".,!?\"'():;")
		if len(f) > 2 && !stopWords[f] {
			tokens[f] = true
		}
	}
	return tokens
}

func overlap(query, doc map[string]bool) float64 {
	if len(query) == 0 {
		return 0
	}
	n := 0
	for tok := range query {
		if doc[tok] {
			n++
		}
	}
	return float64(n) / float64(len(query))
}

var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "was": true,
	"are": true, "you": true, "that": true, "this": true, "have": true,
	"what": true, "when": true, "how": true, "did": true, "about": true,
}
