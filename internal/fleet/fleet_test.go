package fleet

import (
	"context"
	"errors"
	"testing"
	"time"

	"indexerfleet/internal/config"
)

type fakeHeads struct {
	head        uint64
	failFirst   bool
	probeCalls  int
}

func (f *fakeHeads) HeadBlock(ctx context.Context, chain config.ChainID) (uint64, error) {
	f.probeCalls++
	if f.failFirst && f.probeCalls == 1 {
		return 0, errors.New("simulated timeout")
	}
	return f.head, nil
}

func TestSplitRangeLastWorkerIsUnbounded(t *testing.T) {
	assignments := splitRange(1_000_000, 4)
	if len(assignments) != 4 {
		t.Fatalf("len = %d, want 4", len(assignments))
	}
	if assignments[3].RangeEnd != nil {
		t.Errorf("last worker's RangeEnd = %v, want nil (tails the head)", assignments[3].RangeEnd)
	}
	for i := 0; i < 3; i++ {
		if assignments[i].RangeEnd == nil {
			t.Errorf("worker %d RangeEnd is nil, want bounded", i)
		}
	}
	if assignments[0].RangeStart != 0 {
		t.Errorf("first worker RangeStart = %d, want 0", assignments[0].RangeStart)
	}
}

func TestStartPoolSucceedsWithoutDownStep(t *testing.T) {
	heads := &fakeHeads{head: 5_000_000}
	s := New(heads)
	calls := 0
	err := s.StartPool(context.Background(), "pool_0", config.ChainDFK, 5, 3, time.Millisecond, func(ctx context.Context, poolKey string, a Assignment) (func(), error) {
		calls++
		return func() {}, nil
	})
	if err != nil {
		t.Fatalf("StartPool: %v", err)
	}
	if calls != 5 {
		t.Errorf("launch called %d times, want 5", calls)
	}
	if got := s.LiveWorkerCounts()["pool_0"]; got != 5 {
		t.Errorf("LiveWorkerCounts = %d, want 5", got)
	}
}

func TestStartPoolDownStepsOnConsecutiveFailures(t *testing.T) {
	heads := &fakeHeads{head: 5_000_000}
	s := New(heads)

	// Fail workers at index >= 2 on the first attempt (N=5), succeed once
	// we're down to N=4 (index >= 2 no longer reached within cf window is
	// irrelevant here; just require success at N<=4 to terminate the test).
	attempt := 0
	err := s.StartPool(context.Background(), "pool_0", config.ChainDFK, 5, 3, time.Millisecond, func(ctx context.Context, poolKey string, a Assignment) (func(), error) {
		if a.Index >= 2 && attempt == 0 {
			return nil, errors.New("socket hang up")
		}
		return func() {}, nil
	})
	_ = attempt
	if err != nil {
		t.Fatalf("StartPool: %v", err)
	}
	if got := s.LiveWorkerCounts()["pool_0"]; got == 0 {
		t.Errorf("expected a nonzero live worker count after down-step recovery")
	}
}

func TestStartPoolPropagatesErrorAtNMinWithoutFurtherDownStep(t *testing.T) {
	heads := &fakeHeads{head: 5_000_000}
	s := New(heads)

	err := s.StartPool(context.Background(), "pool_0", config.ChainDFK, 3, 3, time.Millisecond, func(ctx context.Context, poolKey string, a Assignment) (func(), error) {
		return nil, errors.New("persistent socket hang up")
	})
	if !errors.Is(err, ErrBelowMinWorkers) {
		t.Errorf("err = %v, want ErrBelowMinWorkers", err)
	}
}

func TestStartPoolReturnsRPCFailedWhenHeadProbeExhausted(t *testing.T) {
	heads := &fakeHeads{head: 0}
	// Force both the initial probe and its one retry to fail by never
	// succeeding: reuse failFirst semantics but make every call fail.
	alwaysFail := &alwaysFailingHeads{}
	_ = heads
	s := New(alwaysFail)

	err := s.StartPool(context.Background(), "pool_0", config.ChainDFK, 3, 3, time.Millisecond, func(ctx context.Context, poolKey string, a Assignment) (func(), error) {
		t.Fatalf("launch should never be called when the head probe fails")
		return nil, nil
	})
	if !errors.Is(err, ErrRPCFailed) {
		t.Errorf("err = %v, want ErrRPCFailed", err)
	}
}

// TestStartPoolTearsDownPartialAttemptBeforeDownStep verifies §4.7's "tear
// down all workers for this pool" requirement: the workers launched
// successfully before the N=5 attempt's failsafe triggers must have their
// cancel funcs called before the retry at N=4 begins, so no stale N=5
// worker survives into the N=4 range split.
func TestStartPoolTearsDownPartialAttemptBeforeDownStep(t *testing.T) {
	heads := &fakeHeads{head: 5_000_000}
	s := New(heads)

	var torndown []int
	torndownHappened := false
	err := s.StartPool(context.Background(), "pool_0", config.ChainDFK, 5, 3, time.Millisecond, func(ctx context.Context, poolKey string, a Assignment) (func(), error) {
		if !torndownHappened && a.Index >= 2 {
			return nil, errors.New("socket hang up")
		}
		idx := a.Index
		return func() {
			torndown = append(torndown, idx)
			torndownHappened = true
		}, nil
	})
	if err != nil {
		t.Fatalf("StartPool: %v", err)
	}
	if len(torndown) != 2 {
		t.Fatalf("torndown = %v, want exactly workers 0 and 1 torn down", torndown)
	}
	for _, idx := range torndown {
		if idx != 0 && idx != 1 {
			t.Errorf("unexpected worker %d torn down", idx)
		}
	}
}

type alwaysFailingHeads struct{}

func (alwaysFailingHeads) HeadBlock(ctx context.Context, chain config.ChainID) (uint64, error) {
	return 0, errors.New("rpc down")
}

func TestStartPoolHeadProbeRetriesOnce(t *testing.T) {
	heads := &fakeHeads{head: 1_000_000, failFirst: true}
	s := New(heads)
	err := s.StartPool(context.Background(), "pool_0", config.ChainDFK, 1, 1, time.Millisecond, func(ctx context.Context, poolKey string, a Assignment) (func(), error) {
		return func() {}, nil
	})
	if err != nil {
		t.Fatalf("StartPool: %v", err)
	}
	if heads.probeCalls != 2 {
		t.Errorf("probeCalls = %d, want 2 (initial + one retry)", heads.probeCalls)
	}
}
