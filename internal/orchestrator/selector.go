package orchestrator

import (
	"github.com/2010nasirm-code/synapse-os-sub001/pkg/models"
)

// lowConfidenceThreshold pulls the reasoning agent in whenever the
// classifier is unsure about a query.
const lowConfidenceThreshold = 0.7

// Select maps an intent analysis to the ordered, deduplicated list of
// agent IDs to invoke. Pure and total: a general intent alone still
// selects the reasoning agent, so the result is never empty.
//
// Precedence: uncertainty rule, then the primary-intent table, then the
// memory rule. First occurrence wins the position.
func Select(analysis *models.IntentAnalysis) []string {
	var selected []string
	seen := make(map[string]bool)
	add := func(ids ...string) {
		for _, id := range ids {
			if !seen[id] {
				seen[id] = true
				selected = append(selected, id)
			}
		}
	}

	if analysis.Confidence < lowConfidenceThreshold || len(analysis.Secondary) > 0 {
		add("reasoning")
	}

	switch analysis.Primary {
	case models.IntentCreate, models.IntentUpdate, models.IntentDelete:
		add("planner", "tool")
	case models.IntentAnalyze:
		add("reasoning", "tool", "memory")
	case models.IntentKnowledge:
		add("knowledge", "reasoning")
	case models.IntentDebug:
		add("debug", "reasoning")
	case models.IntentHelp:
		add("ui", "reasoning")
	default:
		add("reasoning")
		if analysis.RequiresWebSearch {
			add("knowledge")
		}
	}

	if analysis.RequiresMemory {
		add("memory")
	}

	return selected
}
