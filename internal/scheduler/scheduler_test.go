package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestStartInvokesTickImmediatelyAndOnInterval(t *testing.T) {
	s := New()
	var calls atomic.Int32
	tick := func(ctx context.Context) error {
		calls.Add(1)
		return nil
	}

	if err := s.Start(context.Background(), "test", 10*time.Millisecond, tick); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop("test")

	time.Sleep(35 * time.Millisecond)
	if got := calls.Load(); got < 2 {
		t.Errorf("calls = %d, want at least 2 (immediate fire + at least one interval tick)", got)
	}
}

func TestStartRejectsDuplicateName(t *testing.T) {
	s := New()
	noop := func(ctx context.Context) error { return nil }
	if err := s.Start(context.Background(), "dup", time.Hour, noop); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	defer s.Stop("dup")

	if err := s.Start(context.Background(), "dup", time.Hour, noop); err == nil {
		t.Error("expected error starting an already-running trigger, got nil")
	}
}

func TestOverlapSuppressionSkipsTickWhileInFlight(t *testing.T) {
	s := New()
	started := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32

	tick := func(ctx context.Context) error {
		calls.Add(1)
		close(started)
		<-release
		return nil
	}

	if err := s.Start(context.Background(), "slow", 5*time.Millisecond, tick); err != nil {
		t.Fatalf("Start: %v", err)
	}
	<-started
	// Let several ticker periods elapse while the first tick is still
	// blocked in <-release; overlap suppression must keep calls at 1.
	time.Sleep(30 * time.Millisecond)
	if got := calls.Load(); got != 1 {
		t.Errorf("calls while in-flight = %d, want 1 (overlap suppressed)", got)
	}
	close(release)
	s.Stop("slow")
}

func TestStatusTracksLastRunAndRunsCompleted(t *testing.T) {
	s := New()
	tick := func(ctx context.Context) error { return nil }
	if err := s.Start(context.Background(), "status-test", 5*time.Millisecond, tick); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop("status-test")

	time.Sleep(20 * time.Millisecond)
	st, ok := s.Status("status-test")
	if !ok {
		t.Fatal("Status: not found")
	}
	if st.RunsCompleted == 0 {
		t.Error("RunsCompleted = 0, want > 0")
	}
	if st.LastRunAt.IsZero() {
		t.Error("LastRunAt is zero, want set")
	}
}

func TestStatusRecordsLastError(t *testing.T) {
	s := New()
	boom := errors.New("boom")
	tick := func(ctx context.Context) error { return boom }
	if err := s.Start(context.Background(), "err-test", 5*time.Millisecond, tick); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop("err-test")

	time.Sleep(10 * time.Millisecond)
	st, _ := s.Status("err-test")
	if st.LastError == nil {
		t.Error("LastError = nil, want boom")
	}
}

func TestStopHaltsFurtherTicks(t *testing.T) {
	s := New()
	var calls atomic.Int32
	tick := func(ctx context.Context) error {
		calls.Add(1)
		return nil
	}
	if err := s.Start(context.Background(), "stoppable", 5*time.Millisecond, tick); err != nil {
		t.Fatalf("Start: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	s.Stop("stoppable")
	after := calls.Load()
	time.Sleep(20 * time.Millisecond)
	if calls.Load() != after {
		t.Errorf("calls kept increasing after Stop: %d -> %d", after, calls.Load())
	}
	if _, ok := s.Status("stoppable"); ok {
		t.Error("Status found a trigger after Stop, want not found")
	}
}

func TestStopAllClearsEveryTrigger(t *testing.T) {
	s := New()
	noop := func(ctx context.Context) error { return nil }
	if err := s.Start(context.Background(), "a", time.Hour, noop); err != nil {
		t.Fatalf("Start a: %v", err)
	}
	if err := s.Start(context.Background(), "b", time.Hour, noop); err != nil {
		t.Fatalf("Start b: %v", err)
	}

	s.StopAll()

	if _, ok := s.Status("a"); ok {
		t.Error("trigger a still registered after StopAll")
	}
	if _, ok := s.Status("b"); ok {
		t.Error("trigger b still registered after StopAll")
	}
}
