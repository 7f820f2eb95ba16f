package adapters

import (
	"testing"

	"indexerfleet/internal/progress"
	"indexerfleet/internal/steal"
)

func TestSiblingRegistrySiblingsExcludesCaller(t *testing.T) {
	obs := progress.New()
	obs.Register("pool-1", "worker-a", 0, 1000)
	obs.Register("pool-1", "worker-b", 1000, 2000)
	obs.StartBatch("pool-1", "worker-b", 1000, 1500)

	registry := NewSiblingRegistry(obs)
	siblings := registry.Siblings("pool-1", "worker-a")

	if len(siblings) != 1 {
		t.Fatalf("len(siblings) = %d, want 1", len(siblings))
	}
	if siblings[0].WorkerID != "worker-b" {
		t.Errorf("WorkerID = %q, want worker-b", siblings[0].WorkerID)
	}
	if siblings[0].Status != steal.StatusRunning {
		t.Errorf("Status = %v, want StatusRunning", siblings[0].Status)
	}
	if siblings[0].TargetBlock != 1500 {
		t.Errorf("TargetBlock = %d, want 1500", siblings[0].TargetBlock)
	}
}

func TestSiblingRegistrySiblingsStatusTransitions(t *testing.T) {
	obs := progress.New()
	obs.Register("pool-2", "idle-worker", 0, 100)
	obs.Register("pool-2", "done-worker", 0, 100)
	obs.Complete("pool-2", "done-worker")

	registry := NewSiblingRegistry(obs)
	siblings := registry.Siblings("pool-2", "someone-else")

	statuses := map[string]steal.Status{}
	for _, s := range siblings {
		statuses[s.WorkerID] = s.Status
	}
	if statuses["idle-worker"] != steal.StatusIdle {
		t.Errorf("idle-worker status = %v, want StatusIdle", statuses["idle-worker"])
	}
	if statuses["done-worker"] != steal.StatusCompleted {
		t.Errorf("done-worker status = %v, want StatusCompleted", statuses["done-worker"])
	}
}

func TestSiblingRegistrySiblingsEmptyFleet(t *testing.T) {
	obs := progress.New()
	registry := NewSiblingRegistry(obs)
	siblings := registry.Siblings("unknown-pool", "worker-a")
	if len(siblings) != 0 {
		t.Errorf("len(siblings) = %d, want 0", len(siblings))
	}
}
