// Package marketplace implements the marketplace-snapshot indexer family
// (C8.1): a pool of cooperative workers paginating the DFK tavern REST API
// into tavern_heroes rows, plus a separate gene-backfill worker pool that
// resolves statGenes via GraphQL and the Kai-alphabet codec. Grounded on
// internal/ingester/nft_item_metadata_worker.go's paginated-fetch-until-empty
// shape (teacher precedent for "call until the page comes back empty") and
// internal/market/price.go's bare net/http.Client + JSON-decode idiom for
// both the REST and GraphQL calls.
package marketplace

import (
	"context"
	"fmt"
	"log"
	"math/big"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"indexerfleet/internal/genecodec"
	"indexerfleet/internal/models"
)

// Window is one page request's offset/limit (§4.8.1).
type Window struct {
	Offset int
	Limit  int
}

// RawHero is the REST API's hero payload shape, pre-normalization.
type RawHero struct {
	HeroID          string
	Network         string
	HeroIDNumeric   int64
	Class1, Class2  int
	Profession      int
	Rarity          int
	Level           int
	Generation      int
	Stats           [8]int
	HP, MP, Stamina int
	AbilityIDs      [4]int
	StoneAddress    string
	SalePriceWei    string
	NativeToken     string
	MaxSummons      int
	Summons         int
}

// Fetcher pages through the marketplace REST API.
type Fetcher interface {
	FetchPage(ctx context.Context, w Window) ([]RawHero, error)
}

// Repository is the narrow persistence surface the snapshot worker needs.
type Repository interface {
	UpsertMarketplaceHero(ctx context.Context, h models.MarketplaceHero) error
	SweepStaleMarketplaceHeroes(ctx context.Context, currentBatchID string) (int64, error)
}

// marketplaceWorkerCount is the W=10 cooperative fan-out (§4.8.1).
const marketplaceWorkerCount = 10

// marketplaceSafetyCap bounds the fleet-wide sweep so a misbehaving API that
// never returns an empty page can't run forever (§4.8.1: "safety cap: 50k
// heroes").
const marketplaceSafetyCap = 50_000

// realmCrystalvaleMin/Max and realmSunderedMin bound the hero-id fallback
// inference (§4.8.1 realm inference rule b).
const (
	realmCrystalvaleMin = 1_000_000_000_000  // 10^12
	realmCrystalvaleMax = 2_000_000_000_000  // 2*10^12 (exclusive upper bound)
)

// InferRealm implements §4.8.1's ordered realm-inference rule: prefer the
// network field, fall back to the hero-id range, else unknown (empty string
// signals "drop this hero").
func InferRealm(network string, heroIDNumeric int64) string {
	switch network {
	case "met":
		return "sd"
	case "dfk", "avax":
		return "cv"
	}
	if heroIDNumeric >= realmCrystalvaleMin && heroIDNumeric < realmCrystalvaleMax {
		return "cv"
	}
	if heroIDNumeric >= realmCrystalvaleMax {
		return "sd"
	}
	return ""
}

// TraitScore sums ability-tier points over 4 ability slots (§4.8.1): active
// ids score by one tier table, passive ids by another; ids outside either
// table's range score 0.
func TraitScore(abilityIDs [4]int) int {
	total := 0
	for _, id := range abilityIDs {
		total += abilityTierScore(id)
	}
	return total
}

func abilityTierScore(id int) int {
	switch {
	case id >= 0 && id <= 7:
		return 0
	case id >= 8 && id <= 11:
		return 1
	case id >= 12 && id <= 13:
		return 2
	case id == 14:
		return 3
	case id >= 16 && id <= 23:
		return 0
	case id >= 24 && id <= 27:
		return 1
	case id >= 28 && id <= 29:
		return 2
	case id == 30:
		return 3
	default:
		return 0
	}
}

// CombatPower sums the 8 primary stats (§4.8.1).
func CombatPower(stats [8]int) int {
	total := 0
	for _, s := range stats {
		total += s
	}
	return total
}

// PriceNative converts a wei-denominated sale price string to a native-token
// float per §4.8.1 ("priceNative = salePriceWei / 10^18"). Malformed input
// yields 0, matching the teacher's best-effort enrichment posture
// (internal/ingester/token_metadata_worker.go never fails a whole range over
// one bad optional field).
func PriceNative(salePriceWei string) float64 {
	wei, ok := new(big.Int).SetString(salePriceWei, 10)
	if !ok {
		return 0
	}
	f := new(big.Float).SetInt(wei)
	f.Quo(f, big.NewFloat(1e18))
	v, _ := f.Float64()
	return v
}

// Snapshot drives the paginated REST fetch for one worker's disjoint window
// range, normalizing and upserting each page until it returns empty.
type Snapshot struct {
	Fetch Fetcher
	Repo  Repository
}

// RunWindow fetches successive pages starting at start with the given page
// size until a page comes back empty, normalizing and upserting each hero.
// Returns the count of heroes upserted (heroes with an unresolvable realm
// are dropped and do not count).
func (s *Snapshot) RunWindow(ctx context.Context, start, pageSize int, batchID string) (int, error) {
	offset := start
	upserted := 0
	for {
		raws, err := s.Fetch.FetchPage(ctx, Window{Offset: offset, Limit: pageSize})
		if err != nil {
			return upserted, fmt.Errorf("fetch page at offset %d: %w", offset, err)
		}
		if len(raws) == 0 {
			return upserted, nil
		}
		for _, raw := range raws {
			hero, ok := normalize(raw, batchID)
			if !ok {
				continue
			}
			if err := s.Repo.UpsertMarketplaceHero(ctx, hero); err != nil {
				return upserted, fmt.Errorf("upsert hero %s: %w", raw.HeroID, err)
			}
			upserted++
		}
		offset += pageSize
	}
}

// RunFleet drives the full W=10 cooperative sweep (§4.8.1): each of the
// marketplaceWorkerCount workers owns a disjoint offset (worker i starts at
// i*pageSize and strides by pageSize*marketplaceWorkerCount each pass), all
// workers fetch one page concurrently per pass, and the supervisor stops
// after two consecutive fleet-wide passes return nothing or the safety cap
// is hit. Stale heroes left over from a previous batch are swept once the
// fleet settles (§8.4 scenario 6).
func (s *Snapshot) RunFleet(ctx context.Context, pageSize int, batchID string) (int, error) {
	offsets := make([]int, marketplaceWorkerCount)
	for i := range offsets {
		offsets[i] = i * pageSize
	}

	total := 0
	consecutiveEmptyPasses := 0
	for total < marketplaceSafetyCap {
		n, err := s.runPass(ctx, offsets, pageSize, batchID)
		if err != nil {
			return total, err
		}
		total += n
		for i := range offsets {
			offsets[i] += pageSize * marketplaceWorkerCount
		}

		if n == 0 {
			consecutiveEmptyPasses++
			if consecutiveEmptyPasses >= 2 {
				break
			}
			continue
		}
		consecutiveEmptyPasses = 0
	}

	deleted, err := s.Repo.SweepStaleMarketplaceHeroes(ctx, batchID)
	if err != nil {
		return total, fmt.Errorf("sweep stale marketplace heroes: %w", err)
	}
	log.Printf("[marketplace] fleet pass complete: upserted=%d swept=%d", total, deleted)
	return total, nil
}

// runPass fetches one page per worker concurrently and returns the number of
// heroes upserted across the whole pass.
func (s *Snapshot) runPass(ctx context.Context, offsets []int, pageSize int, batchID string) (int, error) {
	var mu sync.Mutex
	total := 0

	g, gctx := errgroup.WithContext(ctx)
	for i, offset := range offsets {
		i, offset := i, offset
		g.Go(func() error {
			raws, err := s.Fetch.FetchPage(gctx, Window{Offset: offset, Limit: pageSize})
			if err != nil {
				return fmt.Errorf("worker %d: fetch page at offset %d: %w", i, offset, err)
			}
			n := 0
			for _, raw := range raws {
				hero, ok := normalize(raw, batchID)
				if !ok {
					continue
				}
				if err := s.Repo.UpsertMarketplaceHero(gctx, hero); err != nil {
					return fmt.Errorf("worker %d: upsert hero %s: %w", i, raw.HeroID, err)
				}
				n++
			}
			mu.Lock()
			total += n
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return total, err
	}
	return total, nil
}

func normalize(raw RawHero, batchID string) (models.MarketplaceHero, bool) {
	realm := InferRealm(raw.Network, raw.HeroIDNumeric)
	if realm == "" {
		return models.MarketplaceHero{}, false
	}
	genesStatus := models.GenesPending
	return models.MarketplaceHero{
		HeroID:       raw.HeroID,
		Realm:        realm,
		Class1:       raw.Class1,
		Class2:       raw.Class2,
		Profession:   raw.Profession,
		Rarity:       raw.Rarity,
		Level:        raw.Level,
		Generation:   raw.Generation,
		Stats:        raw.Stats,
		HP:           raw.HP,
		MP:           raw.MP,
		Stamina:      raw.Stamina,
		AbilityIDs:   raw.AbilityIDs,
		TraitScore:   TraitScore(raw.AbilityIDs),
		CombatPower:  CombatPower(raw.Stats),
		SalePriceWei: raw.SalePriceWei,
		PriceNative:  PriceNative(raw.SalePriceWei),
		NativeToken:  raw.NativeToken,
		GenesStatus:  genesStatus,
		BatchID:      batchID,
		MaxSummons:   raw.MaxSummons,
		Summons:      raw.Summons,
	}, true
}

// GeneFetcher resolves a hero's raw statGenes decimal string via GraphQL.
type GeneFetcher interface {
	FetchStatGenes(ctx context.Context, heroID string) (string, error)
}

// GeneRepository is the narrow persistence surface the gene-backfill worker
// needs.
type GeneRepository interface {
	ListPendingGeneBackfill(ctx context.Context, limit int) ([]string, error)
	SaveGeneExpansion(ctx context.Context, heroID string, expansion models.GeneExpansion, status models.GenesStatus) error
}

// maxBackfillRetries and backoff bounds implement §4.8.1's rate-limit
// handling: "exponential backoff min(1000*2^retry + jitter, 10000)ms, up to
// 3 retries".
const (
	maxBackfillRetries = 3
	backoffCapMs       = 10000
)

// GeneBackfiller runs one iteration of the gene-backfill pass: pulls pending
// heroes, resolves statGenes via GraphQL, decodes via the Kai alphabet, and
// writes R1/R2/R3 columns (§4.8.1).
type GeneBackfiller struct {
	Fetch         GeneFetcher
	Repo          GeneRepository
	RateLimitHits int // telemetry counter, matching §4.8.1's "track rateLimitHits"
}

// RunOnce backfills up to limit pending heroes, returning the count
// successfully resolved.
func (g *GeneBackfiller) RunOnce(ctx context.Context, limit int) (int, error) {
	heroIDs, err := g.Repo.ListPendingGeneBackfill(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("list pending gene backfill: %w", err)
	}

	resolved := 0
	for _, heroID := range heroIDs {
		statGenes, err := g.fetchWithRetry(ctx, heroID)
		if err != nil {
			_ = g.Repo.SaveGeneExpansion(ctx, heroID, models.GeneExpansion{}, models.GenesFailed)
			continue
		}
		kaiStr, err := genecodec.StatGenesToKaiString(statGenes)
		if err != nil {
			_ = g.Repo.SaveGeneExpansion(ctx, heroID, models.GeneExpansion{}, models.GenesFailed)
			continue
		}
		slots, err := genecodec.DecodeKaiString(kaiStr)
		if err != nil {
			_ = g.Repo.SaveGeneExpansion(ctx, heroID, models.GeneExpansion{}, models.GenesFailed)
			continue
		}

		var expansion models.GeneExpansion
		expansion.HeroID = heroID
		for i, slot := range slots {
			expansion.Slots[i] = models.GeneSlot{Dominant: slot[0], R1: slot[1], R2: slot[2], R3: slot[3]}
		}
		if err := g.Repo.SaveGeneExpansion(ctx, heroID, expansion, models.GenesComplete); err != nil {
			return resolved, fmt.Errorf("save gene expansion for %s: %w", heroID, err)
		}
		resolved++
	}
	return resolved, nil
}

func (g *GeneBackfiller) fetchWithRetry(ctx context.Context, heroID string) (string, error) {
	var lastErr error
	for retry := 0; retry <= maxBackfillRetries; retry++ {
		if retry > 0 {
			g.RateLimitHits++
			delay := backoffDelay(retry)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
		statGenes, err := g.Fetch.FetchStatGenes(ctx, heroID)
		if err == nil {
			return statGenes, nil
		}
		lastErr = err
	}
	return "", fmt.Errorf("exhausted %d retries: %w", maxBackfillRetries, lastErr)
}

func backoffDelay(retry int) time.Duration {
	base := 1000 * (1 << uint(retry))
	jitter := rand.Intn(250)
	ms := base + jitter
	if ms > backoffCapMs {
		ms = backoffCapMs
	}
	return time.Duration(ms) * time.Millisecond
}
