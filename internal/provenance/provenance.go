// Package provenance records the audit trail of a request: which agent
// consumed which inputs, with what confidence, and how long it took.
//
// Chains are built per request with a chainable Builder and saved into a
// fixed-capacity ring buffer with FIFO eviction. Inputs are truncated
// and redacted at Add time, so raw personal data never reaches storage.
package provenance

import (
	"regexp"
	"sync"
	"time"

	"github.com/2010nasirm-code/synapse-os-sub001/pkg/models"
)

// maxInputLength is the stored length of a single input string.
const maxInputLength = 200

var (
	emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	phonePattern = regexp.MustCompile(`\+?\d{1,3}[-.\s]?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}|\b\d{3}[-.]\d{3}[-.]\d{4}\b`)
	cardPattern  = regexp.MustCompile(`\b(?:\d{4}[-\s]?){3}\d{4}\b`)
)

// Recorder stores provenance chains keyed by request ID, bounded by a
// ring buffer. Internally synchronized.
type Recorder struct {
	mu       sync.RWMutex
	chains   map[string]*models.ProvenanceChain
	order    []string // insertion order, oldest first
	capacity int
	evicted  int64
}

// NewRecorder creates a recorder holding at most capacity chains.
func NewRecorder(capacity int) *Recorder {
	if capacity <= 0 {
		capacity = 1000
	}
	return &Recorder{
		chains:   make(map[string]*models.ProvenanceChain),
		capacity: capacity,
	}
}

// Opts carries the optional fields of a provenance entry.
type Opts struct {
	Confidence float64
	Operation  string
	DurationMs int64
}

// Builder accumulates entries for one request before Save.
// Not safe for concurrent use; build from a single goroutine.
type Builder struct {
	recorder  *Recorder
	requestID string
	entries   []models.ProvenanceEntry
}

// Begin starts a chain for requestID.
func (r *Recorder) Begin(requestID string) *Builder {
	return &Builder{recorder: r, requestID: requestID}
}

// Add appends one entry, sanitizing every input string first.
func (b *Builder) Add(agent string, inputs []string, opts Opts) *Builder {
	clean := make([]string, 0, len(inputs))
	for _, in := range inputs {
		clean = append(clean, sanitizeInput(in))
	}
	b.entries = append(b.entries, models.ProvenanceEntry{
		Agent:      agent,
		Inputs:     clean,
		Confidence: opts.Confidence,
		Operation:  opts.Operation,
		DurationMs: opts.DurationMs,
		Timestamp:  time.Now().UTC().Format(time.RFC3339Nano),
	})
	return b
}

// AddEntry appends an already-built entry, re-sanitizing its inputs.
// Used for entries agents attach to their results.
func (b *Builder) AddEntry(entry models.ProvenanceEntry) *Builder {
	clean := make([]string, 0, len(entry.Inputs))
	for _, in := range entry.Inputs {
		clean = append(clean, sanitizeInput(in))
	}
	entry.Inputs = clean
	if entry.Timestamp == "" {
		entry.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	}
	b.entries = append(b.entries, entry)
	return b
}

// Len reports how many entries the builder holds.
func (b *Builder) Len() int {
	return len(b.entries)
}

// Entries returns a copy of the entries built so far.
func (b *Builder) Entries() []models.ProvenanceEntry {
	out := make([]models.ProvenanceEntry, len(b.entries))
	copy(out, b.entries)
	return out
}

// Save persists the chain, evicting the oldest chain when full.
// Saving under an already-used request ID replaces that chain in place.
func (b *Builder) Save() {
	b.recorder.save(b.requestID, b.entries)
}

func (r *Recorder) save(requestID string, entries []models.ProvenanceEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.chains[requestID]; !exists {
		if len(r.order) >= r.capacity {
			oldest := r.order[0]
			r.order = r.order[1:]
			delete(r.chains, oldest)
			r.evicted++
		}
		r.order = append(r.order, requestID)
	}

	stored := make([]models.ProvenanceEntry, len(entries))
	copy(stored, entries)
	r.chains[requestID] = &models.ProvenanceChain{
		RequestID: requestID,
		Entries:   stored,
		SavedAt:   time.Now().UTC(),
	}
}

// Get returns the chain for requestID, or nil when absent.
func (r *Recorder) Get(requestID string) *models.ProvenanceChain {
	r.mu.RLock()
	defer r.mu.RUnlock()

	chain, ok := r.chains[requestID]
	if !ok {
		return nil
	}
	return cloneChain(chain)
}

// Recent returns up to n chains, newest first.
func (r *Recorder) Recent(n int) []models.ProvenanceChain {
	if n <= 0 {
		n = 10
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.ProvenanceChain, 0, n)
	for i := len(r.order) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, *cloneChain(r.chains[r.order[i]]))
	}
	return out
}

// SearchByAgent returns up to n chains containing an entry for agent,
// newest first.
func (r *Recorder) SearchByAgent(agent string, n int) []models.ProvenanceChain {
	if n <= 0 {
		n = 10
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.ProvenanceChain, 0, n)
	for i := len(r.order) - 1; i >= 0 && len(out) < n; i-- {
		chain := r.chains[r.order[i]]
		for _, e := range chain.Entries {
			if e.Agent == agent {
				out = append(out, *cloneChain(chain))
				break
			}
		}
	}
	return out
}

// Stats summarizes the buffer without mutating it.
func (r *Recorder) Stats() models.ProvenanceStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := models.ProvenanceStats{
		Chains:       len(r.order),
		ByAgent:      make(map[string]int),
		Capacity:     r.capacity,
		EvictedTotal: r.evicted,
	}
	for _, id := range r.order {
		chain := r.chains[id]
		stats.Entries += len(chain.Entries)
		for _, e := range chain.Entries {
			stats.ByAgent[e.Agent]++
		}
	}
	if len(r.order) > 0 {
		oldest := r.chains[r.order[0]].SavedAt
		newest := r.chains[r.order[len(r.order)-1]].SavedAt
		stats.OldestSaved = &oldest
		stats.NewestSaved = &newest
	}
	return stats
}

// sanitizeInput truncates long inputs and redacts email, phone, and
// card-like substrings. Runs before storage, never only before display.
func sanitizeInput(in string) string {
	out := emailPattern.ReplaceAllString(in, "[email]")
	out = cardPattern.ReplaceAllString(out, "[card]")
	out = phonePattern.ReplaceAllString(out, "[phone]")

	runes := []rune(out)
	if len(runes) > maxInputLength {
		out = string(runes[:maxInputLength]) + "…"
	}
	return out
}

func cloneChain(chain *models.ProvenanceChain) *models.ProvenanceChain {
	c := *chain
	c.Entries = make([]models.ProvenanceEntry, len(chain.Entries))
	copy(c.Entries, chain.Entries)
	return &c
}
