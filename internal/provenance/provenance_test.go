package provenance

import (
	"fmt"
	"strings"
	"testing"
)

func TestRedactionBeforeStorage(t *testing.T) {
	r := NewRecorder(10)

	r.Begin("req-1").
		Add("tool", []string{"contact me at a@b.com or 555-123-4567"}, Opts{}).
		Save()

	chain := r.Get("req-1")
	if chain == nil {
		t.Fatal("chain not found")
	}
	stored := chain.Entries[0].Inputs[0]
	if strings.Contains(stored, "a@b.com") {
		t.Errorf("stored input %q contains the email", stored)
	}
	if strings.Contains(stored, "555-123-4567") {
		t.Errorf("stored input %q contains the phone number", stored)
	}
}

func TestTruncation(t *testing.T) {
	r := NewRecorder(10)
	long := strings.Repeat("x", 500)

	r.Begin("req-1").Add("tool", []string{long}, Opts{}).Save()

	stored := r.Get("req-1").Entries[0].Inputs[0]
	if got := len([]rune(stored)); got != maxInputLength+1 {
		t.Errorf("stored length = %d runes, want %d plus ellipsis", got, maxInputLength)
	}
	if !strings.HasSuffix(stored, "…") {
		t.Error("truncated input lacks ellipsis marker")
	}
}

func TestBuilderChaining(t *testing.T) {
	r := NewRecorder(10)

	r.Begin("req-1").
		Add("reasoning", []string{"query"}, Opts{Confidence: 0.9, Operation: "analyze"}).
		Add("tool", []string{"query"}, Opts{DurationMs: 12}).
		Save()

	chain := r.Get("req-1")
	if len(chain.Entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(chain.Entries))
	}
	if chain.Entries[0].Agent != "reasoning" || chain.Entries[1].Agent != "tool" {
		t.Errorf("entry order = %q, %q", chain.Entries[0].Agent, chain.Entries[1].Agent)
	}
	if chain.Entries[0].Confidence != 0.9 {
		t.Errorf("confidence = %v, want 0.9", chain.Entries[0].Confidence)
	}
	if chain.Entries[0].Timestamp == "" {
		t.Error("timestamp not set")
	}
}

func TestFIFOEviction(t *testing.T) {
	r := NewRecorder(3)

	for i := 1; i <= 4; i++ {
		r.Begin(fmt.Sprintf("req-%d", i)).Add("tool", nil, Opts{}).Save()
	}

	if got := r.Get("req-1"); got != nil {
		t.Error("oldest chain survived eviction")
	}
	for _, id := range []string{"req-2", "req-3", "req-4"} {
		if r.Get(id) == nil {
			t.Errorf("chain %s missing", id)
		}
	}
	if stats := r.Stats(); stats.EvictedTotal != 1 {
		t.Errorf("evicted = %d, want 1", stats.EvictedTotal)
	}
}

func TestRecentNewestFirst(t *testing.T) {
	r := NewRecorder(10)
	for i := 1; i <= 3; i++ {
		r.Begin(fmt.Sprintf("req-%d", i)).Add("tool", nil, Opts{}).Save()
	}

	recent := r.Recent(2)
	if len(recent) != 2 {
		t.Fatalf("len = %d, want 2", len(recent))
	}
	if recent[0].RequestID != "req-3" || recent[1].RequestID != "req-2" {
		t.Errorf("order = %s, %s; want req-3, req-2", recent[0].RequestID, recent[1].RequestID)
	}
}

func TestSearchByAgent(t *testing.T) {
	r := NewRecorder(10)
	r.Begin("req-1").Add("reasoning", nil, Opts{}).Save()
	r.Begin("req-2").Add("tool", nil, Opts{}).Save()
	r.Begin("req-3").Add("reasoning", nil, Opts{}).Add("tool", nil, Opts{}).Save()

	got := r.SearchByAgent("reasoning", 10)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].RequestID != "req-3" || got[1].RequestID != "req-1" {
		t.Errorf("order = %s, %s; want req-3, req-1", got[0].RequestID, got[1].RequestID)
	}
}

func TestStats(t *testing.T) {
	r := NewRecorder(10)
	r.Begin("req-1").Add("reasoning", nil, Opts{}).Add("tool", nil, Opts{}).Save()
	r.Begin("req-2").Add("tool", nil, Opts{}).Save()

	stats := r.Stats()
	if stats.Chains != 2 {
		t.Errorf("chains = %d, want 2", stats.Chains)
	}
	if stats.Entries != 3 {
		t.Errorf("entries = %d, want 3", stats.Entries)
	}
	if stats.ByAgent["tool"] != 2 {
		t.Errorf("ByAgent[tool] = %d, want 2", stats.ByAgent["tool"])
	}
	if stats.Capacity != 10 {
		t.Errorf("capacity = %d, want 10", stats.Capacity)
	}
	if stats.OldestSaved == nil || stats.NewestSaved == nil {
		t.Error("saved bounds not set")
	}
}

func TestReadsDoNotMutate(t *testing.T) {
	r := NewRecorder(10)
	r.Begin("req-1").Add("tool", []string{"input"}, Opts{}).Save()

	got := r.Get("req-1")
	got.Entries[0].Agent = "mutated"

	if r.Get("req-1").Entries[0].Agent != "tool" {
		t.Error("mutating a returned chain changed the store")
	}
}
