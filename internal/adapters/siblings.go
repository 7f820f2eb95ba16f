package adapters

import (
	"indexerfleet/internal/progress"
	"indexerfleet/internal/steal"
)

// SiblingRegistry implements worker.Siblings against the same
// progress.Observatory every worker already reports into via
// StartBatch/RecordChunk/FinishBatch/Complete — the arbiter's own doc
// comment names this as its intended source (§4.6).
type SiblingRegistry struct {
	obs *progress.Observatory
}

func NewSiblingRegistry(obs *progress.Observatory) *SiblingRegistry {
	return &SiblingRegistry{obs: obs}
}

// Siblings reports every other worker currently registered under fleetKey,
// excluding the caller itself, as a steal.Sibling snapshot.
func (r *SiblingRegistry) Siblings(fleetKey, excludeWorkerID string) []steal.Sibling {
	workerIDs := r.obs.WorkerIDs(fleetKey)
	siblings := make([]steal.Sibling, 0, len(workerIDs))
	for _, id := range workerIDs {
		if id == excludeWorkerID {
			continue
		}
		w, ok := r.obs.Snapshot(fleetKey, id)
		if !ok {
			continue
		}
		siblings = append(siblings, steal.Sibling{
			WorkerID:     id,
			Status:       statusOf(w),
			CurrentBlock: w.CurrentBlock,
			TargetBlock:  w.TargetBlock,
		})
	}
	return siblings
}

func statusOf(w progress.Worker) steal.Status {
	switch {
	case !w.CompletedAt.IsZero():
		return steal.StatusCompleted
	case w.IsRunning:
		return steal.StatusRunning
	default:
		return steal.StatusIdle
	}
}
