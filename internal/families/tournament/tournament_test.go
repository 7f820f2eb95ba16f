package tournament

import (
	"context"
	"testing"
	"time"

	"indexerfleet/internal/models"
)

func TestBuildTypeSignatureOmitsDefaultComponents(t *testing.T) {
	r := models.TournamentRestrictions{}
	if got := BuildTypeSignature(r); got != "" {
		t.Errorf("BuildTypeSignature(zero value) = %q, want empty", got)
	}
}

func TestBuildTypeSignatureOrdersComponentsAndJoins(t *testing.T) {
	class1 := 2
	r := models.TournamentRestrictions{
		LevelMin: 1, LevelMax: 10,
		RarityMin: 0, RarityMax: 3,
		PartySize:         4,
		Unique:            true,
		No3x:              true,
		MustIncludeClass1: true,
		IncludedClass1:    &class1,
	}
	got := BuildTypeSignature(r)
	want := "lv1-10_r0-3_p4_unique_no3x_inc2"
	if got != want {
		t.Errorf("BuildTypeSignature = %q, want %q", got, want)
	}
}

func TestCombatPowerScoreSumsStats(t *testing.T) {
	if got := CombatPowerScore([8]int{1, 2, 3, 4, 5, 6, 7, 8}); got != 36 {
		t.Errorf("CombatPowerScore = %d, want 36", got)
	}
}

func TestQueuePopFIFOAndPushRequeues(t *testing.T) {
	q := NewQueue(100, BatchSize)
	if q.Len() != 2 {
		t.Fatalf("Len = %d, want 2 (100/50)", q.Len())
	}
	item, ok := q.Pop()
	if !ok || item.Skip != 0 {
		t.Fatalf("Pop = %+v, %v, want skip=0", item, ok)
	}
	q.Push(WorkItem{Skip: 200, BatchSize: BatchSize})
	if q.Len() != 2 {
		t.Errorf("Len after push = %d, want 2", q.Len())
	}
}

type fakeFetcher struct {
	pages map[int][]RawBattle
}

func (f *fakeFetcher) FetchBattles(ctx context.Context, item WorkItem) ([]RawBattle, error) {
	return f.pages[item.Skip], nil
}

type fakeRepo struct {
	tournaments []models.Tournament
	snapshots   []models.HeroSnapshot
}

func (f *fakeRepo) UpsertTournament(ctx context.Context, t models.Tournament) error {
	f.tournaments = append(f.tournaments, t)
	return nil
}
func (f *fakeRepo) UpsertHeroSnapshot(ctx context.Context, s models.HeroSnapshot) error {
	f.snapshots = append(f.snapshots, s)
	return nil
}

func TestWorkerRunDenormalizesWinnerPlacement(t *testing.T) {
	q := NewQueue(BatchSize, BatchSize) // exactly one item
	fetcher := &fakeFetcher{pages: map[int][]RawBattle{
		0: {{
			TournamentID:   "t1",
			HostPlayer:     "0xHost",
			OpponentPlayer: "0xOpp",
			WinnerPlayer:   "0xHost",
			HostHeroes:     []HeroBattleState{{HeroID: "h1", Stats: [8]int{1, 1, 1, 1, 1, 1, 1, 1}}},
			OpponentHeroes: []HeroBattleState{{HeroID: "h2", Stats: [8]int{2, 2, 2, 2, 2, 2, 2, 2}}},
		}},
	}}
	repo := &fakeRepo{}
	w := &Worker{Queue: q, Fetch: fetcher, Repo: repo}

	written, err := w.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if written != 1 {
		t.Errorf("written = %d, want 1", written)
	}
	if len(repo.snapshots) != 2 {
		t.Fatalf("snapshots = %d, want 2", len(repo.snapshots))
	}
	byID := map[string]models.HeroSnapshot{}
	for _, s := range repo.snapshots {
		byID[s.HeroID] = s
	}
	if byID["h1"].Placement != "winner" {
		t.Errorf("h1 placement = %q, want winner (host won)", byID["h1"].Placement)
	}
	if byID["h2"].Placement != "opponent" {
		t.Errorf("h2 placement = %q, want opponent (opponent lost)", byID["h2"].Placement)
	}
}

func TestWorkerRunRequeuesOnFullPage(t *testing.T) {
	full := make([]RawBattle, BatchSize)
	for i := range full {
		full[i] = RawBattle{TournamentID: "t", HostPlayer: "a", OpponentPlayer: "b"}
	}
	q := NewQueue(BatchSize, BatchSize)
	fetcher := &fakeFetcher{pages: map[int][]RawBattle{0: full, BatchSize: nil}}
	repo := &fakeRepo{}
	w := &Worker{Queue: q, Fetch: fetcher, Repo: repo}

	written, err := w.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if written != BatchSize {
		t.Errorf("written = %d, want %d (full page requeues for more)", written, BatchSize)
	}
}

func TestThroughputTrackerPrunesOldSamples(t *testing.T) {
	tr := &ThroughputTracker{}
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tr.Record(base, 10)
	tr.Record(base.Add(1*time.Minute), 10)
	tr.Record(base.Add(10*time.Minute), 10) // more than 5 minutes later, prunes earlier samples

	perMin := tr.PerMinute(base.Add(10 * time.Minute))
	if perMin != 10 {
		t.Errorf("PerMinute = %v, want 10 (only the most recent sample survives pruning)", perMin)
	}
}

func TestETAZeroThroughputReturnsZero(t *testing.T) {
	if got := ETA(100, 0); got != 0 {
		t.Errorf("ETA with zero throughput = %v, want 0", got)
	}
}

func TestETAComputesRemainingOverThroughput(t *testing.T) {
	got := ETA(120, 60) // 120 remaining at 60/min = 2 minutes
	if got != 2*time.Minute {
		t.Errorf("ETA = %v, want 2m0s", got)
	}
}
