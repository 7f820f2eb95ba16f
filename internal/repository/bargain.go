package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"indexerfleet/internal/bargain"
	"indexerfleet/internal/models"
)

// UpsertBargainCache implements bargain.Repository. One row per summonType
// per §4.10 (the engine is a single-shot job, not a stream, so there is no
// append-only history here — each run replaces the prior publish).
func (r *Repository) UpsertBargainCache(ctx context.Context, entry models.BargainCacheEntry) error {
	tokenPrices, err := json.Marshal(entry.TokenPrices)
	if err != nil {
		return fmt.Errorf("repository: marshal bargain token prices %s: %w", entry.SummonType, err)
	}
	topPairs, err := json.Marshal(entry.TopPairs)
	if err != nil {
		return fmt.Errorf("repository: marshal bargain top pairs %s: %w", entry.SummonType, err)
	}
	_, err = r.db.Exec(ctx, `
		INSERT INTO bargain_hunter_cache (summon_type, total_heroes, total_pairs_scored,
		                                    token_prices, top_pairs, computed_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (summon_type) DO UPDATE SET
			total_heroes       = EXCLUDED.total_heroes,
			total_pairs_scored = EXCLUDED.total_pairs_scored,
			token_prices       = EXCLUDED.token_prices,
			top_pairs          = EXCLUDED.top_pairs,
			computed_at        = NOW()`,
		entry.SummonType, entry.TotalHeroes, entry.TotalPairsScored, tokenPrices, topPairs,
	)
	if err != nil {
		return fmt.Errorf("repository: upsert bargain cache %s: %w", entry.SummonType, err)
	}
	return nil
}

// ListEligibleHeroes implements bargain.HeroSource, loading the marketplace
// snapshot rows the scoring pass is allowed to pair (§4.10 step 2): genes
// must already be resolved, and a "regular" summon additionally requires at
// least one summon remaining (dark summon has no such floor).
func (r *Repository) ListEligibleHeroes(ctx context.Context, summonType bargain.SummonType) ([]bargain.EligibleHero, error) {
	query := `
		SELECT hero_id, realm, rarity, generation, price_native,
		       genes_dominant, genes_r1, genes_r2, genes_r3, max_summons, summons
		FROM marketplace_heroes
		WHERE genes_status = 'complete'`
	if summonType == bargain.SummonRegular {
		query += ` AND (max_summons - summons) >= 1`
	}

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("repository: list eligible heroes %s: %w", summonType, err)
	}
	defer rows.Close()

	var heroes []bargain.EligibleHero
	for rows.Next() {
		var h bargain.EligibleHero
		var dominant, r1, r2, r3 []int
		if err := rows.Scan(&h.HeroID, &h.Realm, &h.Rarity, &h.Generation, &h.PriceNative,
			&dominant, &r1, &r2, &r3, &h.MaxSummons, &h.Summons); err != nil {
			return nil, fmt.Errorf("repository: scan eligible hero: %w", err)
		}
		h.Genes = models.GeneExpansion{HeroID: h.HeroID}
		for i := range h.Genes.Slots {
			if i < len(dominant) {
				h.Genes.Slots[i] = models.GeneSlot{Dominant: dominant[i], R1: r1[i], R2: r2[i], R3: r3[i]}
			}
		}
		heroes = append(heroes, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: iterate eligible heroes %s: %w", summonType, err)
	}
	return heroes, nil
}
