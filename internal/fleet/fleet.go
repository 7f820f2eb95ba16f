// Package fleet is the Fleet Supervisor (C7): for one pool/chain, launches
// N workers with staggered offsets and implements the RPC-failsafe that
// down-steps the worker count on repeated launch failure (§4.7). The
// teacher has no direct analogue for fleet-of-fleets failsafe down-stepping
// (Flow's single global ingester never managed this); built in the
// teacher's goroutine+ticker idiom (internal/ingester/service.go's Start
// loop, log.Printf progress lines) with the stagger/failsafe/N_min
// algorithm itself original to this spec.
package fleet

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"indexerfleet/internal/config"
)

// ErrRPCFailed is returned when even the chain-head probe cannot succeed,
// per §4.7: "persistent failure returns rpc_failed without launching".
var ErrRPCFailed = errors.New("fleet: rpc_failed")

// ErrBelowMinWorkers is returned when repeated launch failures persist at
// N == N_min; per §4.7 this propagates as a fleet error without a further
// down-step.
var ErrBelowMinWorkers = errors.New("fleet: launch failures at N_min, refusing to start")

// teardownWait is how long the supervisor pauses between tearing a pool
// down and retrying with N-1 workers (§4.7).
const teardownWait = 3 * time.Second

// headProbeBackoff is the single retry delay for the initial chain-head
// probe (§4.7: "one retry with 2s backoff").
const headProbeBackoff = 2 * time.Second

// HeadReader resolves a chain's current head block.
type HeadReader interface {
	HeadBlock(ctx context.Context, chain config.ChainID) (uint64, error)
}

// Assignment is one worker's computed block range within an N-way split of
// [0, H] (§4.7 step 2); the last worker's RangeEnd is nil (tails the head).
type Assignment struct {
	Index      int
	RangeStart uint64
	RangeEnd   *uint64
}

// LaunchFn starts (or attempts to start) one worker and reports whether the
// launch itself succeeded; a non-nil error counts toward the consecutive-
// failure tally that triggers the RPC failsafe. On success it returns a
// cancel func the supervisor calls to tear that worker down again if the
// rest of the attempt fails and the pool must retry at N-1 (§4.7: "tear
// down all workers for this pool" before relaunching at a smaller N). A
// failed launch's cancel is nil and never called.
type LaunchFn func(ctx context.Context, poolKey string, a Assignment) (cancel func(), err error)

// Supervisor owns per-pool live worker counts, exposed via
// LiveWorkerCounts (the §4.7 "getPoolWorkerCountSummary" equivalent).
type Supervisor struct {
	heads HeadReader

	mu    sync.Mutex
	live  map[string]int
}

// New constructs a Supervisor bound to a chain-head reader.
func New(heads HeadReader) *Supervisor {
	return &Supervisor{heads: heads, live: make(map[string]int)}
}

// StartPool launches poolKey's fleet targeting nTarget workers on chain,
// applying the RPC failsafe (§4.7) down to nMin. stagger is the per-worker
// launch spacing within one interval (⌊(i/N)·interval⌋, §4.7 step 3).
func (s *Supervisor) StartPool(ctx context.Context, poolKey string, chain config.ChainID, nTarget, nMin int, interval time.Duration, launch LaunchFn) error {
	head, err := s.probeHead(ctx, chain)
	if err != nil {
		log.Printf("[fleet:%s] chain-head probe failed: %v", poolKey, err)
		return fmt.Errorf("%w: %s: %v", ErrRPCFailed, poolKey, err)
	}

	n := nTarget
	for {
		failures, launched := s.attemptLaunch(ctx, poolKey, chain, head, n, interval, launch)
		if failures < 2 {
			s.setLive(poolKey, launched)
			return nil
		}

		if n <= nMin {
			return fmt.Errorf("%w: pool %s", ErrBelowMinWorkers, poolKey)
		}

		log.Printf("[fleet:%s] %d consecutive launch failures at N=%d, tearing down and retrying at N=%d", poolKey, failures, n, n-1)
		time.Sleep(teardownWait)
		n--
	}
}

// attemptLaunch tries to launch n workers, returning the number of
// consecutive failures observed at the end of the attempt and the number
// successfully launched. When the failsafe triggers (failures >= 2) every
// worker launched earlier in this same attempt is torn down via its cancel
// func before returning, so a retry at N-1 never overlaps with stale
// N-worker ranges (§4.7, §8.1).
func (s *Supervisor) attemptLaunch(ctx context.Context, poolKey string, chain config.ChainID, head uint64, n int, interval time.Duration, launch LaunchFn) (consecutiveFailures int, launched int) {
	assignments := splitRange(head, n)
	var cancels []func()
	for i := 0; i < n; i++ {
		delay := time.Duration(float64(i)/float64(n)*float64(interval))
		if delay > 0 {
			time.Sleep(delay)
		}

		cancel, err := launch(ctx, poolKey, assignments[i])
		if err != nil {
			consecutiveFailures++
			log.Printf("[fleet:%s] worker %d launch failed: %v", poolKey, i, err)
			if consecutiveFailures >= 2 {
				teardown(poolKey, cancels)
				return consecutiveFailures, 0
			}
			continue
		}
		consecutiveFailures = 0
		launched++
		if cancel != nil {
			cancels = append(cancels, cancel)
		}
	}
	return consecutiveFailures, launched
}

// teardown cancels every already-launched worker from a failed attempt
// before the supervisor retries at a smaller N (§4.7).
func teardown(poolKey string, cancels []func()) {
	if len(cancels) == 0 {
		return
	}
	log.Printf("[fleet:%s] tearing down %d already-launched worker(s) before retry", poolKey, len(cancels))
	for _, cancel := range cancels {
		cancel()
	}
}

// splitRange divides [0, head] into n equal-ish ranges (§4.7 step 2); the
// last range's end is nil (tails the chain head).
func splitRange(head uint64, n int) []Assignment {
	out := make([]Assignment, n)
	step := head / uint64(n)
	for i := 0; i < n; i++ {
		start := uint64(i) * step
		if i == n-1 {
			out[i] = Assignment{Index: i, RangeStart: start, RangeEnd: nil}
			continue
		}
		end := start + step - 1
		out[i] = Assignment{Index: i, RangeStart: start, RangeEnd: &end}
	}
	return out
}

// probeHead implements §4.7's "chain-head probe at launch uses one retry
// with 2s backoff; persistent failure returns rpc_failed".
func (s *Supervisor) probeHead(ctx context.Context, chain config.ChainID) (uint64, error) {
	head, err := s.heads.HeadBlock(ctx, chain)
	if err == nil {
		return head, nil
	}
	select {
	case <-time.After(headProbeBackoff):
	case <-ctx.Done():
		return 0, ctx.Err()
	}
	return s.heads.HeadBlock(ctx, chain)
}

func (s *Supervisor) setLive(poolKey string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.live[poolKey] = n
}

// LiveWorkerCounts returns the effective worker count per pool after any
// failsafe down-stepping (§4.7's getPoolWorkerCountSummary equivalent,
// added per SPEC_FULL's Supplemented Features since it reads in-memory
// runtime state rather than the database).
func (s *Supervisor) LiveWorkerCounts() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int, len(s.live))
	for k, v := range s.live {
		out[k] = v
	}
	return out
}
