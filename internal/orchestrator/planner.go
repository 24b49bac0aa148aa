package orchestrator

import (
	"sort"

	"github.com/2010nasirm-code/synapse-os-sub001/pkg/models"
)

// Plan partitions agents into ordered execution phases. Agents are
// sorted descending by priority; the sort must be stable so priority
// ties keep registration order and the plan stays deterministic.
//
// Every non-parallelizable agent gets its own singleton sequential
// phase, in priority order, ahead of a single trailing phase holding
// all parallelizable agents. Sequential agents may leave side effects
// in shared collaborators (a memory write) that the parallel phase can
// then observe, which is why they run first.
func Plan(descriptors []models.AgentDescriptor) models.ExecutionPlan {
	sorted := make([]models.AgentDescriptor, len(descriptors))
	copy(sorted, descriptors)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority > sorted[j].Priority
	})

	var (
		phases   []models.Phase
		parallel []string
	)
	for _, d := range sorted {
		if d.CanParallelize {
			parallel = append(parallel, d.ID)
			continue
		}
		phases = append(phases, models.Phase{AgentIDs: []string{d.ID}, Parallel: false})
	}
	if len(parallel) > 0 {
		phases = append(phases, models.Phase{AgentIDs: parallel, Parallel: true})
	}

	strategy := "parallel"
	if len(phases) > 0 && !phases[0].Parallel {
		strategy = "adaptive"
	}
	return models.ExecutionPlan{Phases: phases, Strategy: strategy}
}
