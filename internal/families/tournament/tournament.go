// Package tournament implements the PvP tournament indexer family (C8.2): a
// GraphQL battles feed paginated by {first, skip}, fanned out over a shared
// in-memory work queue that supports work-stealing when a worker's slot
// empties, denormalizing each battle into a tournament row plus per-hero
// placement snapshots. Grounded on internal/ingester/async_worker.go's
// lease-queue idiom, repurposed here from "claim a DB row" to "pop an
// in-memory {skip,batchSize} item", and internal/market/price.go's bare
// net/http GraphQL-POST idiom for the fetch side.
package tournament

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"indexerfleet/internal/models"
)

// BatchSize is the fixed GraphQL page size (§4.8.2).
const BatchSize = 50

// WorkItem is one {skip, batchSize} unit of pagination work.
type WorkItem struct {
	Skip      int
	BatchSize int
}

// Queue is the shared in-memory work queue (§4.8.2): workers pop from the
// front; when empty, a worker may steal from another worker's still-pending
// item by pulling from the same shared queue (in this design the queue is a
// single shared FIFO, so "stealing" is simply popping — separate per-worker
// queues would need an explicit steal step, but §4.8.2 specifies one shared
// queue all five workers pop from).
type Queue struct {
	mu    sync.Mutex
	items []WorkItem
}

// NewQueue seeds a queue with total/batchSize items starting at skip 0.
func NewQueue(total, batchSize int) *Queue {
	q := &Queue{}
	for skip := 0; skip < total; skip += batchSize {
		q.items = append(q.items, WorkItem{Skip: skip, BatchSize: batchSize})
	}
	return q
}

// Pop removes and returns the front item, or ok=false if the queue is empty.
func (q *Queue) Pop() (WorkItem, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return WorkItem{}, false
	}
	item := q.items[0]
	q.items = q.items[1:]
	return item, true
}

// Push appends an item (used to requeue a page that returned a full page,
// signalling more data may follow at a higher skip).
func (q *Queue) Push(item WorkItem) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, item)
}

// Len reports the number of pending items.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// RawBattle is the GraphQL API's battle payload shape, pre-denormalization.
type RawBattle struct {
	TournamentID   string
	Format         string
	Restrictions   models.TournamentRestrictions
	Rewards        string
	HostPlayer     string
	OpponentPlayer string
	WinnerPlayer   string
	HostHeroes     []HeroBattleState
	OpponentHeroes []HeroBattleState
}

// HeroBattleState is one hero's frozen battle-moment state.
type HeroBattleState struct {
	HeroID           string
	Class1, Class2   int
	Level            int
	Rarity           int
	Generation       int
	Stats            [8]int
	AbilityIDs       [4]int
	StatGenesRaw     string
	SummonsRemaining int
}

// Fetcher pages through the battles GraphQL query.
type Fetcher interface {
	FetchBattles(ctx context.Context, item WorkItem) ([]RawBattle, error)
}

// Repository is the narrow persistence surface this family needs.
type Repository interface {
	UpsertTournament(ctx context.Context, t models.Tournament) error
	UpsertHeroSnapshot(ctx context.Context, s models.HeroSnapshot) error
}

// BuildTypeSignature canonicalizes a restriction bundle to a short grouping
// string, components in fixed order, joined by "_", each present only when
// non-default (§4.8.2).
func BuildTypeSignature(r models.TournamentRestrictions) string {
	var parts []string
	if r.LevelMin != 0 || r.LevelMax != 0 {
		parts = append(parts, fmt.Sprintf("lv%d-%d", r.LevelMin, r.LevelMax))
	}
	if r.RarityMin != 0 || r.RarityMax != 0 {
		parts = append(parts, fmt.Sprintf("r%d-%d", r.RarityMin, r.RarityMax))
	}
	if r.PartySize != 0 {
		parts = append(parts, fmt.Sprintf("p%d", r.PartySize))
	}
	if r.Unique {
		parts = append(parts, "unique")
	}
	if r.No3x {
		parts = append(parts, "no3x")
	}
	if r.ExcludedBitmasks != nil && anyNonzero(r.ExcludedBitmasks) {
		parts = append(parts, fmt.Sprintf("excl%d", orMask(r.ExcludedBitmasks)))
	}
	if r.ConservedBitmask != 0 {
		parts = append(parts, fmt.Sprintf("cons%d", r.ConservedBitmask))
	}
	if r.OriginalBitmask != 0 {
		parts = append(parts, fmt.Sprintf("orig%d", r.OriginalBitmask))
	}
	if r.MustIncludeClass1 && r.IncludedClass1 != nil {
		parts = append(parts, fmt.Sprintf("inc%d", *r.IncludedClass1))
	}
	if r.StatScoreMin != 0 || r.StatScoreMax != 0 {
		parts = append(parts, fmt.Sprintf("stat%d-%d", r.StatScoreMin, r.StatScoreMax))
	}
	if r.TeamScoreMin != 0 || r.TeamScoreMax != 0 {
		parts = append(parts, fmt.Sprintf("team%d-%d", r.TeamScoreMin, r.TeamScoreMax))
	}
	return strings.Join(parts, "_")
}

func anyNonzero(xs []uint64) bool {
	for _, x := range xs {
		if x != 0 {
			return true
		}
	}
	return false
}

func orMask(xs []uint64) uint64 {
	var m uint64
	for _, x := range xs {
		m |= x
	}
	return m
}

// CombatPowerScore sums a hero's 8 primary stats, matching
// families/marketplace.CombatPower's definition (§4.8.2 denormalizes the
// same combat-power notion onto battle snapshots).
func CombatPowerScore(stats [8]int) int {
	total := 0
	for _, s := range stats {
		total += s
	}
	return total
}

// Worker pulls work items from a shared Queue, fetches battles, and persists
// denormalized tournament/placement/snapshot rows until the queue drains.
type Worker struct {
	Queue *Queue
	Fetch Fetcher
	Repo  Repository
}

// Run drains the shared queue, returning the number of tournaments written.
func (w *Worker) Run(ctx context.Context) (int, error) {
	written := 0
	for {
		item, ok := w.Queue.Pop()
		if !ok {
			return written, nil
		}
		battles, err := w.Fetch.FetchBattles(ctx, item)
		if err != nil {
			return written, fmt.Errorf("fetch battles at skip %d: %w", item.Skip, err)
		}
		for _, b := range battles {
			if err := w.persist(ctx, b); err != nil {
				return written, fmt.Errorf("tournament %s: %w", b.TournamentID, err)
			}
			written++
		}
		if len(battles) == item.BatchSize {
			w.Queue.Push(WorkItem{Skip: item.Skip + item.BatchSize, BatchSize: item.BatchSize})
		}
	}
}

func (w *Worker) persist(ctx context.Context, b RawBattle) error {
	sig := BuildTypeSignature(b.Restrictions)
	if err := w.Repo.UpsertTournament(ctx, models.Tournament{
		TournamentID:   b.TournamentID,
		Format:         b.Format,
		PartySize:      b.Restrictions.PartySize,
		Restrictions:   b.Restrictions,
		TypeSignature:  sig,
		Rewards:        b.Rewards,
		HostPlayer:     b.HostPlayer,
		OpponentPlayer: b.OpponentPlayer,
		WinnerPlayer:   b.WinnerPlayer,
	}); err != nil {
		return err
	}

	for _, h := range b.HostHeroes {
		if err := w.persistSnapshot(ctx, b, h, placementFor(b, h, "host")); err != nil {
			return err
		}
	}
	for _, h := range b.OpponentHeroes {
		if err := w.persistSnapshot(ctx, b, h, placementFor(b, h, "opponent")); err != nil {
			return err
		}
	}
	return nil
}

// placementFor denormalizes winner-vs-finalist: a hero's placement is
// "winner" if its side's player matches the battle's winner, else its raw
// side label (§3.1, §4.8 "denormalize winner vs finalist heroes").
func placementFor(b RawBattle, h HeroBattleState, side string) string {
	if side == "host" && b.HostPlayer == b.WinnerPlayer {
		return "winner"
	}
	if side == "opponent" && b.OpponentPlayer == b.WinnerPlayer {
		return "winner"
	}
	return side
}

func (w *Worker) persistSnapshot(ctx context.Context, b RawBattle, h HeroBattleState, placement string) error {
	return w.Repo.UpsertHeroSnapshot(ctx, models.HeroSnapshot{
		HeroID:           h.HeroID,
		TournamentID:     b.TournamentID,
		Placement:        placement,
		Class1:           h.Class1,
		Class2:           h.Class2,
		Level:            h.Level,
		Rarity:           h.Rarity,
		Generation:       h.Generation,
		Stats:            h.Stats,
		AbilityIDs:       h.AbilityIDs,
		StatGenesRaw:     h.StatGenesRaw,
		SummonsRemaining: h.SummonsRemaining,
		CombatPowerScore: CombatPowerScore(h.Stats),
	})
}

// ThroughputTracker implements §4.8.2's rolling 5-minute throughput/ETA
// calculation, grounded on internal/progress's sample-pruning idiom (C3).
type ThroughputTracker struct {
	mu      sync.Mutex
	samples []sample
}

type sample struct {
	at    time.Time
	count int
}

// Record logs n items completed at "now" (passed in since workflow scripts
// and this codebase avoid wall-clock calls inside pure logic; callers use
// time.Now() at the call site).
func (t *ThroughputTracker) Record(now time.Time, n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.samples = append(t.samples, sample{at: now, count: n})
	cutoff := now.Add(-5 * time.Minute)
	i := sort.Search(len(t.samples), func(i int) bool { return !t.samples[i].at.Before(cutoff) })
	t.samples = t.samples[i:]
}

// PerMinute returns the rolling throughput, items per minute, over the
// retained 5-minute window.
func (t *ThroughputTracker) PerMinute(now time.Time) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.samples) == 0 {
		return 0
	}
	total := 0
	oldest := t.samples[0].at
	for _, s := range t.samples {
		total += s.count
		if s.at.Before(oldest) {
			oldest = s.at
		}
	}
	elapsed := now.Sub(oldest).Minutes()
	if elapsed <= 0 {
		return float64(total)
	}
	return float64(total) / elapsed
}

// ETA computes remaining/throughputPerMin*60s (§4.8.2); returns 0 when
// throughput is 0 (nothing to divide by, caller should treat 0 as
// "unknown").
func ETA(remaining int, throughputPerMin float64) time.Duration {
	if throughputPerMin <= 0 {
		return 0
	}
	minutes := float64(remaining) / throughputPerMin
	return time.Duration(minutes * float64(time.Minute))
}
