package marketplace

import (
	"context"
	"errors"
	"sync"
	"testing"

	"indexerfleet/internal/models"
)

func TestInferRealmPrefersNetworkField(t *testing.T) {
	cases := []struct {
		network string
		heroID  int64
		want    string
	}{
		{"met", 1, "sd"},
		{"dfk", 1, "cv"},
		{"avax", 1, "cv"},
		{"", 1_500_000_000_000, "cv"},
		{"", 2_000_000_000_000, "sd"},
		{"", 500, ""},
	}
	for _, c := range cases {
		got := InferRealm(c.network, c.heroID)
		if got != c.want {
			t.Errorf("InferRealm(%q, %d) = %q, want %q", c.network, c.heroID, got, c.want)
		}
	}
}

func TestTraitScoreTierBoundaries(t *testing.T) {
	cases := []struct {
		ability [4]int
		want    int
	}{
		{[4]int{0, 0, 0, 0}, 0},
		{[4]int{8, 12, 14, 16}, 1 + 2 + 3 + 0},
		{[4]int{24, 28, 30, 7}, 1 + 2 + 3 + 0},
		{[4]int{999, 999, 999, 999}, 0},
	}
	for _, c := range cases {
		got := TraitScore(c.ability)
		if got != c.want {
			t.Errorf("TraitScore(%v) = %d, want %d", c.ability, got, c.want)
		}
	}
}

func TestCombatPowerSumsStats(t *testing.T) {
	stats := [8]int{10, 10, 10, 10, 10, 10, 10, 10}
	if got := CombatPower(stats); got != 80 {
		t.Errorf("CombatPower = %d, want 80", got)
	}
}

func TestPriceNativeDividesByOneE18(t *testing.T) {
	got := PriceNative("1500000000000000000")
	if got != 1.5 {
		t.Errorf("PriceNative = %v, want 1.5", got)
	}
	if got := PriceNative("not-a-number"); got != 0 {
		t.Errorf("PriceNative(malformed) = %v, want 0", got)
	}
}

type fakeFetcher struct {
	mu    sync.Mutex
	pages [][]RawHero
	calls int
}

func (f *fakeFetcher) FetchPage(ctx context.Context, w Window) ([]RawHero, error) {
	idx := w.Offset / w.Limit
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if idx >= len(f.pages) {
		return nil, nil
	}
	return f.pages[idx], nil
}

type fakeRepo struct {
	mu          sync.Mutex
	heroes      []models.MarketplaceHero
	sweepCalls  int
	lastSweepID string
}

func (f *fakeRepo) UpsertMarketplaceHero(ctx context.Context, h models.MarketplaceHero) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.heroes = append(f.heroes, h)
	return nil
}

func (f *fakeRepo) SweepStaleMarketplaceHeroes(ctx context.Context, currentBatchID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sweepCalls++
	f.lastSweepID = currentBatchID
	return 0, nil
}

func TestRunWindowStopsOnEmptyPage(t *testing.T) {
	fetcher := &fakeFetcher{pages: [][]RawHero{
		{{HeroID: "1", Network: "dfk"}, {HeroID: "2", Network: "met"}},
		{{HeroID: "3", Network: "dfk"}},
	}}
	repo := &fakeRepo{}
	s := &Snapshot{Fetch: fetcher, Repo: repo}

	count, err := s.RunWindow(context.Background(), 0, 2, "batch-1")
	if err != nil {
		t.Fatalf("RunWindow: %v", err)
	}
	if count != 3 {
		t.Errorf("count = %d, want 3", count)
	}
	if fetcher.calls != 3 {
		t.Errorf("fetch calls = %d, want 3 (two pages + one empty terminator)", fetcher.calls)
	}
}

func TestRunWindowDropsHeroesWithUnresolvableRealm(t *testing.T) {
	fetcher := &fakeFetcher{pages: [][]RawHero{
		{{HeroID: "1", Network: "", HeroIDNumeric: 1}},
	}}
	repo := &fakeRepo{}
	s := &Snapshot{Fetch: fetcher, Repo: repo}

	count, err := s.RunWindow(context.Background(), 0, 2, "batch-1")
	if err != nil {
		t.Fatalf("RunWindow: %v", err)
	}
	if count != 0 || len(repo.heroes) != 0 {
		t.Errorf("expected the unresolvable-realm hero to be dropped, got count=%d heroes=%d", count, len(repo.heroes))
	}
}

func TestRunFleetStopsAfterTwoEmptyPassesAndSweeps(t *testing.T) {
	// pageSize=1 means FetchPage's offset/limit index maps 1:1 onto
	// f.pages; the first pass's 10 workers read pages[0..9], of which
	// only the first three carry a hero, and every offset from pass 2
	// onward overruns len(pages) and returns empty.
	fetcher := &fakeFetcher{pages: [][]RawHero{
		{{HeroID: "1", Network: "dfk"}},
		{{HeroID: "2", Network: "met"}},
		{{HeroID: "3", Network: "dfk"}},
	}}
	repo := &fakeRepo{}
	s := &Snapshot{Fetch: fetcher, Repo: repo}

	total, err := s.RunFleet(context.Background(), 1, "batch-fleet-1")
	if err != nil {
		t.Fatalf("RunFleet: %v", err)
	}
	if total != 3 {
		t.Errorf("total = %d, want 3", total)
	}
	if fetcher.calls != marketplaceWorkerCount*3 {
		t.Errorf("fetch calls = %d, want %d (three passes of %d workers)", fetcher.calls, marketplaceWorkerCount*3, marketplaceWorkerCount)
	}
	if repo.sweepCalls != 1 {
		t.Errorf("sweepCalls = %d, want 1", repo.sweepCalls)
	}
	if repo.lastSweepID != "batch-fleet-1" {
		t.Errorf("lastSweepID = %q, want batch-fleet-1", repo.lastSweepID)
	}
}

type fakeGeneFetcher struct {
	failCount int
	statGenes string
	attempts  int
}

func (f *fakeGeneFetcher) FetchStatGenes(ctx context.Context, heroID string) (string, error) {
	f.attempts++
	if f.attempts <= f.failCount {
		return "", errors.New("429 too many requests")
	}
	return f.statGenes, nil
}

type fakeGeneRepo struct {
	pending []string
	saved   map[string]models.GenesStatus
}

func (f *fakeGeneRepo) ListPendingGeneBackfill(ctx context.Context, limit int) ([]string, error) {
	return f.pending, nil
}
func (f *fakeGeneRepo) SaveGeneExpansion(ctx context.Context, heroID string, expansion models.GeneExpansion, status models.GenesStatus) error {
	if f.saved == nil {
		f.saved = make(map[string]models.GenesStatus)
	}
	f.saved[heroID] = status
	return nil
}

func TestGeneBackfillerRetriesThenSucceeds(t *testing.T) {
	fetcher := &fakeGeneFetcher{failCount: 2, statGenes: "123456789012345678901234567890123456789012345678"}
	repo := &fakeGeneRepo{pending: []string{"hero-1"}}
	b := &GeneBackfiller{Fetch: fetcher, Repo: repo}

	resolved, err := b.RunOnce(context.Background(), 10)
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if resolved != 1 {
		t.Errorf("resolved = %d, want 1", resolved)
	}
	if repo.saved["hero-1"] != models.GenesComplete {
		t.Errorf("status = %v, want complete", repo.saved["hero-1"])
	}
	if b.RateLimitHits != 2 {
		t.Errorf("RateLimitHits = %d, want 2", b.RateLimitHits)
	}
}

func TestGeneBackfillerMarksFailedAfterExhaustingRetries(t *testing.T) {
	fetcher := &fakeGeneFetcher{failCount: 99}
	repo := &fakeGeneRepo{pending: []string{"hero-2"}}
	b := &GeneBackfiller{Fetch: fetcher, Repo: repo}

	resolved, err := b.RunOnce(context.Background(), 10)
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if resolved != 0 {
		t.Errorf("resolved = %d, want 0", resolved)
	}
	if repo.saved["hero-2"] != models.GenesFailed {
		t.Errorf("status = %v, want failed", repo.saved["hero-2"])
	}
}
