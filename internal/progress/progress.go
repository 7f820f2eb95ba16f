// Package progress is the Progress Observatory (C3): in-memory live
// per-worker counters, rebuilt from checkpoints at start and aggregated per
// pool/chain for operator visibility (§3.1 "Live Worker Progress", §4.3).
// Grounded on the teacher's in-process eventbus/Bus shape for the "shared,
// mutex-protected, single-process state" idiom, generalized to a counters
// map instead of a pub/sub channel.
package progress

import (
	"sync"
	"time"
)

// EventCounts is blocks-found-by-kind, e.g. {"deposit": 12, "swap": 3}.
type EventCounts map[string]int64

// Worker is one worker's live counters (§3.1).
type Worker struct {
	IsRunning       bool
	CurrentBlock    uint64
	TargetBlock     uint64
	RangeStart      uint64
	RangeEnd        uint64 // 0 means "tracks head", mirrored from nil rangeEnd
	EventsFound     EventCounts
	BatchesComplete int
	StartedAt       time.Time
	LastBatchAt     time.Time
	CompletedAt     time.Time
	LastError       string

	throughputSamples []throughputSample
}

type throughputSample struct {
	at    time.Time
	block uint64
}

// PercentComplete implements §4.3's clamp((current-start)/(end-start)*100, 0, 100).
func (w Worker) PercentComplete() float64 {
	if w.RangeEnd <= w.RangeStart {
		return 0
	}
	pct := float64(w.CurrentBlock-w.RangeStart) / float64(w.RangeEnd-w.RangeStart) * 100
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// Pool is the aggregated view for a pool/chain fleet (§4.3).
type Pool struct {
	IsRunning       bool
	CurrentBlock    uint64
	TargetBlock     uint64
	Counters        EventCounts
	PercentComplete float64
	CompletedAt     *time.Time
}

// Observatory owns the (poolOrChain, workerId) -> Worker map. Safe for
// concurrent use; updates are atomic at map-entry granularity (§5).
type Observatory struct {
	mu      sync.RWMutex
	workers map[string]map[string]*Worker // fleetKey -> workerID -> Worker
}

// New constructs an empty Observatory.
func New() *Observatory {
	return &Observatory{workers: make(map[string]map[string]*Worker)}
}

// Register seeds a worker's entry, called when the worker is (re)launched
// and its checkpoint is read (§4.5 step 2).
func (o *Observatory) Register(fleetKey, workerID string, rangeStart, rangeEnd uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	fleet, ok := o.workers[fleetKey]
	if !ok {
		fleet = make(map[string]*Worker)
		o.workers[fleetKey] = fleet
	}
	fleet[workerID] = &Worker{
		RangeStart:  rangeStart,
		RangeEnd:    rangeEnd,
		EventsFound: make(EventCounts),
	}
}

// StartBatch marks a worker running and sets its batch target.
func (o *Observatory) StartBatch(fleetKey, workerID string, currentBlock, targetBlock uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	w := o.get(fleetKey, workerID)
	if w == nil {
		return
	}
	w.IsRunning = true
	w.CurrentBlock = currentBlock
	w.TargetBlock = targetBlock
	if w.StartedAt.IsZero() {
		w.StartedAt = time.Now()
	}
}

// RecordChunk advances a worker's current block and event counters after
// one successful chunk fetch (§4.4.1), feeding the rolling throughput window.
func (o *Observatory) RecordChunk(fleetKey, workerID string, upToBlock uint64, counts EventCounts) {
	o.mu.Lock()
	defer o.mu.Unlock()
	w := o.get(fleetKey, workerID)
	if w == nil {
		return
	}
	w.CurrentBlock = upToBlock
	w.LastBatchAt = time.Now()
	for k, v := range counts {
		w.EventsFound[k] += v
	}
	w.throughputSamples = append(w.throughputSamples, throughputSample{at: w.LastBatchAt, block: upToBlock})
	w.throughputSamples = pruneOlderThan(w.throughputSamples, 5*time.Minute)
}

// FinishBatch marks a worker idle between batches (not running, not done).
func (o *Observatory) FinishBatch(fleetKey, workerID string, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	w := o.get(fleetKey, workerID)
	if w == nil {
		return
	}
	w.IsRunning = false
	w.BatchesComplete++
	if err != nil {
		w.LastError = err.Error()
	} else {
		w.LastError = ""
	}
}

// Complete marks a worker as having exhausted its assigned range (§4.5 step 4).
func (o *Observatory) Complete(fleetKey, workerID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	w := o.get(fleetKey, workerID)
	if w == nil {
		return
	}
	w.IsRunning = false
	w.CompletedAt = time.Now()
}

// Reassign updates a worker's range after a work-steal (§4.6).
func (o *Observatory) Reassign(fleetKey, workerID string, rangeStart, rangeEnd uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	w := o.get(fleetKey, workerID)
	if w == nil {
		return
	}
	w.RangeStart = rangeStart
	w.RangeEnd = rangeEnd
	w.CompletedAt = time.Time{}
}

// WorkerIDs lists every worker ID registered under a fleet key, for callers
// that need to enumerate siblings (§4.6).
func (o *Observatory) WorkerIDs(fleetKey string) []string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	fleet := o.workers[fleetKey]
	ids := make([]string, 0, len(fleet))
	for id := range fleet {
		ids = append(ids, id)
	}
	return ids
}

// Snapshot returns a copy of one worker's state.
func (o *Observatory) Snapshot(fleetKey, workerID string) (Worker, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	w := o.get(fleetKey, workerID)
	if w == nil {
		return Worker{}, false
	}
	return *w, true
}

// Aggregate computes the §4.3 pool-level view across all workers in a fleet.
func (o *Observatory) Aggregate(fleetKey string) Pool {
	o.mu.RLock()
	defer o.mu.RUnlock()

	fleet := o.workers[fleetKey]
	agg := Pool{Counters: make(EventCounts)}
	if len(fleet) == 0 {
		return agg
	}

	var pctSum float64
	var allCompleted = true
	var maxCompleted time.Time

	for _, w := range fleet {
		if w.IsRunning {
			agg.IsRunning = true
		}
		if w.CurrentBlock > agg.CurrentBlock {
			agg.CurrentBlock = w.CurrentBlock
		}
		if w.TargetBlock > agg.TargetBlock {
			agg.TargetBlock = w.TargetBlock
		}
		for k, v := range w.EventsFound {
			agg.Counters[k] += v
		}
		pctSum += w.PercentComplete()

		if w.CompletedAt.IsZero() {
			allCompleted = false
		} else if w.CompletedAt.After(maxCompleted) {
			maxCompleted = w.CompletedAt
		}
	}

	agg.PercentComplete = pctSum / float64(len(fleet))
	if allCompleted {
		agg.CompletedAt = &maxCompleted
	}
	return agg
}

// get must be called with o.mu held (read or write).
func (o *Observatory) get(fleetKey, workerID string) *Worker {
	fleet, ok := o.workers[fleetKey]
	if !ok {
		return nil
	}
	return fleet[workerID]
}

func pruneOlderThan(samples []throughputSample, window time.Duration) []throughputSample {
	cutoff := time.Now().Add(-window)
	i := 0
	for i < len(samples) && samples[i].at.Before(cutoff) {
		i++
	}
	return samples[i:]
}
