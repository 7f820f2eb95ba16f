// Package scheduler implements the per-indexer periodic trigger (C11,
// §4.11): a ticker that invokes a worker-controller tick function on a
// fixed interval, suppressing overlapping runs and tracking lastRunAt/
// runsCompleted. Grounded on internal/ingester/network_poller.go's
// Start-then-ticker-loop shape, generalized from one hardcoded poller to a
// registry of named, independently start/stoppable triggers (§4.11 "stop"
// / "stop all").
package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultInterval is the scheduler's default tick period (§4.11).
const DefaultInterval = 60 * time.Second

// Tick is the worker-controller invocation a trigger runs each period.
type Tick func(ctx context.Context) error

// trigger is one registered indexer's recurring invocation.
type trigger struct {
	name     string
	interval time.Duration
	tick     Tick
	cancel   context.CancelFunc
	done     chan struct{}

	inFlight atomic.Bool // compare-and-swap overlap suppression (§9)

	mu             sync.Mutex
	lastRunAt      time.Time
	runsCompleted  uint64
	lastErr        error
}

// Scheduler owns a registry of named recurring triggers, one per indexer.
type Scheduler struct {
	mu       sync.Mutex
	triggers map[string]*trigger
}

// New constructs an empty scheduler.
func New() *Scheduler {
	return &Scheduler{triggers: make(map[string]*trigger)}
}

// Start registers and begins a named trigger at the given interval
// (0 means DefaultInterval). Starting a name that's already running is a
// no-op returning an error, mirroring the lease-style "already running"
// guard used elsewhere in this fleet (C2's checkpoint lease).
func (s *Scheduler) Start(parent context.Context, name string, interval time.Duration, tick Tick) error {
	if interval <= 0 {
		interval = DefaultInterval
	}
	s.mu.Lock()
	if _, exists := s.triggers[name]; exists {
		s.mu.Unlock()
		return fmt.Errorf("scheduler: %s is already running", name)
	}
	ctx, cancel := context.WithCancel(parent)
	t := &trigger{
		name:     name,
		interval: interval,
		tick:     tick,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	s.triggers[name] = t
	s.mu.Unlock()

	go t.run(ctx)
	return nil
}

// Stop clears one indexer's recurring trigger and any in-memory lease it
// holds (§4.11 "Stop clears the interval and any in-memory leases" — the
// lease itself lives in the checkpoint/steal packages; stopping here just
// halts this indexer's ticks, mirroring cancellation propagation per §9).
func (s *Scheduler) Stop(name string) {
	s.mu.Lock()
	t, ok := s.triggers[name]
	if ok {
		delete(s.triggers, name)
	}
	s.mu.Unlock()
	if !ok {
		return
	}
	t.cancel()
	<-t.done
}

// StopAll clears every registered trigger and live progress (§4.11 "Stop
// all clears all registered intervals and live progress").
func (s *Scheduler) StopAll() {
	s.mu.Lock()
	all := make([]*trigger, 0, len(s.triggers))
	for _, t := range s.triggers {
		all = append(all, t)
	}
	s.triggers = make(map[string]*trigger)
	s.mu.Unlock()

	for _, t := range all {
		t.cancel()
		<-t.done
	}
}

// Status is a point-in-time snapshot of one trigger's run history.
type Status struct {
	Name          string
	Interval      time.Duration
	LastRunAt     time.Time
	RunsCompleted uint64
	LastError     error
	Running       bool
}

// Status reports one named trigger's current run history, or ok=false if
// no trigger with that name is registered.
func (s *Scheduler) Status(name string) (Status, bool) {
	s.mu.Lock()
	t, ok := s.triggers[name]
	s.mu.Unlock()
	if !ok {
		return Status{}, false
	}
	return t.status(), true
}

func (t *trigger) status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Status{
		Name:          t.name,
		Interval:      t.interval,
		LastRunAt:     t.lastRunAt,
		RunsCompleted: t.runsCompleted,
		LastError:     t.lastErr,
		Running:       true,
	}
}

func (t *trigger) run(ctx context.Context) {
	defer close(t.done)

	t.fire(ctx)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.fire(ctx)
		}
	}
}

// fire invokes the tick function unless a previous invocation is still in
// flight, in which case it returns immediately (§4.11 "with overlap
// suppression (already-running ticks return immediately)").
func (t *trigger) fire(ctx context.Context) {
	if !t.inFlight.CompareAndSwap(false, true) {
		return
	}
	defer t.inFlight.Store(false)

	err := t.tick(ctx)

	t.mu.Lock()
	t.lastRunAt = time.Now()
	t.runsCompleted++
	t.lastErr = err
	t.mu.Unlock()

	if err != nil {
		log.Printf("[scheduler:%s] tick error: %v", t.name, err)
	}
}
