package orchestrator

import (
	"sort"
	"strings"

	"github.com/2010nasirm-code/synapse-os-sub001/internal/runtime"
	"github.com/2010nasirm-code/synapse-os-sub001/pkg/models"
)

// responseSeparator joins contributions from different agents.
const responseSeparator = "\n\n---\n\n"

// dedupPrefixLength is how much of a candidate response is checked
// against the primary response before appending it.
const dedupPrefixLength = 50

// synthesisRank orders agent contributions in the combined response.
// Unknown agents sort after every known one, keeping their relative
// order.
var synthesisRank = map[string]int{
	"reasoning": 0,
	"knowledge": 1,
	"tool":      2,
	"memory":    3,
	"ui":        4,
	"planner":   5,
}

// fallbackByPersona is returned when no agent produced a usable
// response. Total agent failure degrades to a gentle prompt for more
// information rather than an error.
var fallbackByPersona = map[string]string{
	"companion": "I'm not quite sure how to help with that yet. Could you tell me a little more about what you're looking for?",
	"coach":     "Let's regroup. Give me a bit more detail about what you want to achieve and we'll get moving.",
	"clinician": "I need some more information before I can give you a useful answer. Could you describe what you need?",
}

const defaultFallback = "I need a bit more information to help with that. Could you rephrase or add some detail?"

// Combine merges agent responses into one message. Successful responses
// are ordered by the fixed agent ranking, the top one becomes the
// primary text, and later responses are appended only when their
// leading characters do not already appear in the primary. The prefix
// check is a heuristic, not exact duplicate detection.
func Combine(results []*models.AgentResult, rctx *runtime.Context) string {
	usable := make([]*models.AgentResult, 0, len(results))
	for _, r := range results {
		if r != nil && r.Success && strings.TrimSpace(r.Response) != "" {
			usable = append(usable, r)
		}
	}

	if len(usable) == 0 {
		if msg, ok := fallbackByPersona[rctx.Persona]; ok {
			return msg
		}
		return defaultFallback
	}
	if len(usable) == 1 {
		return usable[0].Response
	}

	sort.SliceStable(usable, func(i, j int) bool {
		return rankOf(usable[i].AgentID) < rankOf(usable[j].AgentID)
	})

	primary := usable[0].Response
	parts := []string{primary}
	for _, r := range usable[1:] {
		prefix := r.Response
		if runes := []rune(prefix); len(runes) > dedupPrefixLength {
			prefix = string(runes[:dedupPrefixLength])
		}
		if strings.Contains(primary, prefix) {
			continue
		}
		parts = append(parts, r.Response)
	}
	return strings.Join(parts, responseSeparator)
}

func rankOf(agentID string) int {
	if rank, ok := synthesisRank[agentID]; ok {
		return rank
	}
	return len(synthesisRank)
}
