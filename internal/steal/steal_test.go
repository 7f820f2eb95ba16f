package steal

import "testing"

func TestFindWorkToStealLiteralScenario(t *testing.T) {
	// §8.4.3 scenario 2.
	a := New()
	siblings := []Sibling{
		{WorkerID: "w0", Status: StatusCompleted, CurrentBlock: 10_000_000, TargetBlock: 10_000_000},
		{WorkerID: "w1", Status: StatusRunning, CurrentBlock: 15_000_000, TargetBlock: 50_000_000},
	}

	d := a.FindWorkToSteal("w0", siblings)
	if d == nil {
		t.Fatalf("expected a steal descriptor")
	}
	if d.DonorID != "w1" {
		t.Errorf("DonorID = %s, want w1", d.DonorID)
	}
	if d.NewDonorEnd != 32_500_000 {
		t.Errorf("NewDonorEnd = %d, want 32500000", d.NewDonorEnd)
	}
	if d.ThiefNewStart != 32_500_001 || d.ThiefNewEnd != 50_000_000 {
		t.Errorf("thief range = [%d,%d], want [32500001,50000000]", d.ThiefNewStart, d.ThiefNewEnd)
	}
	if d.BlocksStolen != 17_499_999 {
		t.Errorf("BlocksStolen = %d, want 17499999", d.BlocksStolen)
	}
}

func TestFindWorkToStealSkipsCompletedSiblings(t *testing.T) {
	a := New()
	siblings := []Sibling{
		{WorkerID: "w1", Status: StatusCompleted, CurrentBlock: 0, TargetBlock: 10_000_000},
	}
	if d := a.FindWorkToSteal("w0", siblings); d != nil {
		t.Errorf("expected no steal from a completed sibling, got %+v", d)
	}
}

func TestFindWorkToStealRequiresDoubleMinSteal(t *testing.T) {
	a := New()
	siblings := []Sibling{
		{WorkerID: "w1", Status: StatusRunning, CurrentBlock: 0, TargetBlock: MinSteal + 1},
	}
	if d := a.FindWorkToSteal("w0", siblings); d != nil {
		t.Errorf("expected no steal when remaining < 2*MinSteal, got %+v", d)
	}
}

func TestFindWorkToStealSkipsReservedDonor(t *testing.T) {
	a := New()
	siblings := []Sibling{
		{WorkerID: "w1", Status: StatusRunning, CurrentBlock: 0, TargetBlock: 10_000_000},
	}
	d1 := a.FindWorkToSteal("w0", siblings)
	if d1 == nil {
		t.Fatalf("expected first steal to succeed")
	}
	// Second thief attempts concurrently; donor is still reserved.
	d2 := a.FindWorkToSteal("w2", siblings)
	if d2 != nil {
		t.Errorf("expected no steal while donor w1 is reserved, got %+v", d2)
	}

	a.Release(d1.DonorID)
	d3 := a.FindWorkToSteal("w2", siblings)
	if d3 == nil {
		t.Errorf("expected steal to succeed after reservation released")
	}
}

func TestFindWorkToStealPicksLargestRemaining(t *testing.T) {
	a := New()
	siblings := []Sibling{
		{WorkerID: "small", Status: StatusRunning, CurrentBlock: 0, TargetBlock: 1_500_000},
		{WorkerID: "large", Status: StatusRunning, CurrentBlock: 0, TargetBlock: 9_000_000},
	}
	d := a.FindWorkToSteal("thief", siblings)
	if d == nil {
		t.Fatalf("expected a steal descriptor")
	}
	if d.DonorID != "large" {
		t.Errorf("DonorID = %s, want large (most remaining)", d.DonorID)
	}
}
