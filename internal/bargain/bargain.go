// Package bargain implements the Bargain-Pair Engine (C10, §4.10): a
// single-shot job (not a streaming indexer) that enumerates eligible hero
// pairs, scores them by summoning efficiency, and publishes a bucketed
// top-K cache. Grounded on internal/market/price.go's plain http.Client
// JSON-quote fetch for the token-price step and
// internal/ingester/async_worker.go's bucket-then-cap shape for the
// per-rarity/per-realm enumeration.
package bargain

import (
	"context"
	"fmt"
	"sort"

	"indexerfleet/internal/models"
	"indexerfleet/internal/summonengine"
)

// SummonType selects the pricing/cost formula branch (§4.10).
type SummonType string

const (
	SummonRegular SummonType = "regular"
	SummonDark    SummonType = "dark"
)

// heroesPerRarityBucket and heroesPerEfficiencyBucket cap the candidate pool
// at each stage so the O(n^2) pair enumeration stays bounded (§4.10 steps
// 3 and 7: "150 cheapest per rarity" / "top 200 per bucket by efficiency").
const (
	heroesPerRarityBucket    = 150
	pairsPerEfficiencyBucket = 200
	tearCostPerTear          = 0.05
)

// EligibleHero is the subset of a marketplace hero row the scoring pass
// needs, pre-fetched from the marketplace snapshot (§4.10 step 2).
type EligibleHero struct {
	HeroID        string
	Realm         string
	Rarity        int
	Generation    int
	PriceNative   float64
	Genes         models.GeneExpansion
	MaxSummons    int
	Summons       int
}

// PriceSource fetches the current native-token USD price (§4.10 step 1).
type PriceSource interface {
	FetchPrice(ctx context.Context, token string) (float64, error)
}

// HeroSource loads the marketplace-eligible hero pool (§4.10 step 2).
type HeroSource interface {
	ListEligibleHeroes(ctx context.Context, summonType SummonType) ([]EligibleHero, error)
}

// Repository is the narrow persistence surface this engine needs.
type Repository interface {
	UpsertBargainCache(ctx context.Context, entry models.BargainCacheEntry) error
}

// Engine runs one bargain-pair scoring pass per summon type.
type Engine struct {
	Prices PriceSource
	Heroes HeroSource
	Repo   Repository
	Summon summonengine.Engine

	// SkipReasons tallies why a candidate pair never produced a scored
	// descriptor (§4.10: "counts of skip reasons are logged").
	SkipReasons map[string]int
}

// Run scores one summon type's pairs and upserts the resulting cache entry.
func (e *Engine) Run(ctx context.Context, summonType SummonType) error {
	if e.SkipReasons == nil {
		e.SkipReasons = make(map[string]int)
	}

	crystalPrice, err := e.Prices.FetchPrice(ctx, "CRYSTAL")
	if err != nil {
		return fmt.Errorf("fetch CRYSTAL price: %w", err)
	}
	jewelPrice, err := e.Prices.FetchPrice(ctx, "JEWEL")
	if err != nil {
		return fmt.Errorf("fetch JEWEL price: %w", err)
	}
	tokenPrice := jewelPrice
	if summonType == SummonDark {
		tokenPrice = crystalPrice
	}

	heroes, err := e.Heroes.ListEligibleHeroes(ctx, summonType)
	if err != nil {
		return fmt.Errorf("list eligible heroes: %w", err)
	}

	capped := capByRarity(heroes)
	byRealm := bucketByRealm(capped)
	var scored []models.BargainPairDescriptor
	for realm, bucket := range byRealm {
		scored = append(scored, e.scoreBucket(ctx, bucket, realm, summonType, tokenPrice)...)
	}

	top := topKByEfficiency(scored)

	entry := models.BargainCacheEntry{
		SummonType:       string(summonType),
		TotalHeroes:      len(heroes),
		TotalPairsScored: len(scored),
		TokenPrices:      map[string]float64{"CRYSTAL": crystalPrice, "JEWEL": jewelPrice},
		TopPairs:         top,
	}
	if err := e.Repo.UpsertBargainCache(ctx, entry); err != nil {
		return fmt.Errorf("upsert bargain cache for %s: %w", summonType, err)
	}
	return nil
}

// capByRarity buckets the full eligible pool by rarity tier, globally across
// realms, and keeps only the heroesPerRarityBucket cheapest per tier (§4.10
// step 3: "bucket by rarity, take the 150 cheapest per rarity (up to 750
// heroes)" — this cap applies before the realm grouping in step 4, not
// within it).
func capByRarity(heroes []EligibleHero) []EligibleHero {
	byRarity := make(map[int][]EligibleHero)
	for _, h := range heroes {
		byRarity[h.Rarity] = append(byRarity[h.Rarity], h)
	}

	var capped []EligibleHero
	for _, hs := range byRarity {
		sort.Slice(hs, func(i, j int) bool { return hs[i].PriceNative < hs[j].PriceNative })
		if len(hs) > heroesPerRarityBucket {
			hs = hs[:heroesPerRarityBucket]
		}
		capped = append(capped, hs...)
	}
	return capped
}

// bucketByRealm groups the rarity-capped pool by realm (§4.10 step 4: "pairs
// are same-realm only"); rarity no longer restricts grouping once the step-3
// cap has been applied, so one realm's bucket mixes every rarity tier.
func bucketByRealm(heroes []EligibleHero) map[string][]EligibleHero {
	byRealm := make(map[string][]EligibleHero)
	for _, h := range heroes {
		byRealm[h.Realm] = append(byRealm[h.Realm], h)
	}
	return byRealm
}

// scoreBucket enumerates all unordered pairs within one realm's bucket
// (spanning every rarity tier that survived capByRarity) and scores each
// (§4.10 steps 5-6).
func (e *Engine) scoreBucket(ctx context.Context, heroes []EligibleHero, realm string, summonType SummonType, tokenPrice float64) []models.BargainPairDescriptor {
	var out []models.BargainPairDescriptor
	for i := 0; i < len(heroes); i++ {
		for j := i + 1; j < len(heroes); j++ {
			desc, ok := e.scorePair(ctx, heroes[i], heroes[j], realm, summonType, tokenPrice)
			if !ok {
				continue
			}
			out = append(out, desc)
		}
	}
	return out
}

// PairCost bundles §4.10 step 6's cost-formula outputs, independent of the
// external summoning-probability engine so the arithmetic is unit-testable
// on its own (the worked example in §8.4 #4 checks exactly these fields).
type PairCost struct {
	PurchaseCost   float64
	BaseSummonCost float64
	TearCount      int
	TearCost       float64
	TotalCost      float64
	TotalCostUSD   float64
}

// ComputePairCost implements §4.10 step 6's purchase/summon/tear cost
// formula. dark halves... actually divides baseSummonCost by 4 for dark
// summons (regular summons use the full 6+2*maxGen value).
func ComputePairCost(h1, h2 EligibleHero, dark bool, tokenPrice float64) PairCost {
	maxGen := h1.Generation
	if h2.Generation > maxGen {
		maxGen = h2.Generation
	}
	baseSummonCost := float64(6 + 2*maxGen)
	if dark {
		baseSummonCost /= 4
	}
	tearCount := (h1.Generation + h2.Generation + 2) / 4
	if tearCount < 1 {
		tearCount = 1
	}
	tearCost := tearCostPerTear * float64(tearCount)
	purchaseCost := h1.PriceNative + h2.PriceNative
	totalCost := purchaseCost + baseSummonCost + tearCost
	return PairCost{
		PurchaseCost:   purchaseCost,
		BaseSummonCost: baseSummonCost,
		TearCount:      tearCount,
		TearCost:       tearCost,
		TotalCost:      totalCost,
		TotalCostUSD:   totalCost * tokenPrice,
	}
}

func (e *Engine) scorePair(ctx context.Context, h1, h2 EligibleHero, realm string, summonType SummonType, tokenPrice float64) (models.BargainPairDescriptor, bool) {
	cost := ComputePairCost(h1, h2, summonType == SummonDark, tokenPrice)

	g1 := toEngineGenetics(h1.Genes)
	g2 := toEngineGenetics(h2.Genes)

	probs, err := e.Summon.CalculateSummoningProbabilities(g1, g2, h1.Rarity, h2.Rarity)
	if err != nil {
		e.SkipReasons["probability_calc_failed"]++
		return models.BargainPairDescriptor{}, false
	}
	tts, err := e.Summon.CalculateTTSProbabilities(probs)
	if err != nil {
		e.SkipReasons["tts_calc_failed"]++
		return models.BargainPairDescriptor{}, false
	}
	// EliteExaltedChances is computed for downstream consumers of the
	// probability pipeline but isn't part of BargainPairDescriptor's
	// persisted shape (§3.1); calling it here still exercises the full
	// three-stage engine contract and surfaces a skip reason if it errors.
	if _, err := e.Summon.CalculateEliteExaltedChances(tts.SlotTierProbs); err != nil {
		e.SkipReasons["elite_exalted_calc_failed"]++
		return models.BargainPairDescriptor{}, false
	}

	if cost.TotalCost <= 0 {
		e.SkipReasons["zero_total_cost"]++
		return models.BargainPairDescriptor{}, false
	}

	return models.BargainPairDescriptor{
		HeroID1:        h1.HeroID,
		HeroID2:        h2.HeroID,
		Rarity1:        h1.Rarity,
		Rarity2:        h2.Rarity,
		Realm:          realm,
		PurchaseCost:   cost.PurchaseCost,
		BaseSummonCost: cost.BaseSummonCost,
		TearCount:      cost.TearCount,
		TearCost:       cost.TearCost,
		TotalCost:      cost.TotalCost,
		TotalCostUSD:   cost.TotalCostUSD,
		ExpectedTTS:    tts.ExpectedTTS,
		Efficiency:     tts.ExpectedTTS / cost.TotalCost,
	}, true
}

func toEngineGenetics(g models.GeneExpansion) summonengine.Genetics {
	var out summonengine.Genetics
	for i, slot := range g.Slots {
		out.Slots[i] = summonengine.GeneSlot{Dominant: slot.Dominant, R1: slot.R1, R2: slot.R2, R3: slot.R3}
	}
	return out
}

// minRarity is the bucket key for the top-K cap (§4.10 step 7: "bucket
// scored pairs by min(rarity_i, rarity_j)").
func minRarity(p models.BargainPairDescriptor) int {
	if p.Rarity1 < p.Rarity2 {
		return p.Rarity1
	}
	return p.Rarity2
}

// topKByEfficiency buckets by min(rarity_i, rarity_j), keeps the top
// pairsPerEfficiencyBucket per bucket by efficiency, then does a final
// descending sort across all retained pairs (§4.10 step 7).
func topKByEfficiency(scored []models.BargainPairDescriptor) []models.BargainPairDescriptor {
	byRarity := make(map[int][]models.BargainPairDescriptor)
	for _, p := range scored {
		r := minRarity(p)
		byRarity[r] = append(byRarity[r], p)
	}

	var kept []models.BargainPairDescriptor
	for _, bucket := range byRarity {
		sort.Slice(bucket, func(i, j int) bool { return bucket[i].Efficiency > bucket[j].Efficiency })
		if len(bucket) > pairsPerEfficiencyBucket {
			bucket = bucket[:pairsPerEfficiencyBucket]
		}
		kept = append(kept, bucket...)
	}

	sort.Slice(kept, func(i, j int) bool { return kept[i].Efficiency > kept[j].Efficiency })
	return kept
}
