package repository

import (
	"context"
	"fmt"

	"indexerfleet/internal/models"
)

// UpsertMarketplaceHero implements families/marketplace.Repository.
func (r *Repository) UpsertMarketplaceHero(ctx context.Context, h models.MarketplaceHero) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO marketplace_heroes (
			hero_id, realm, class1, class2, profession, rarity, level, generation,
			stats, hp, mp, stamina, ability_ids, trait_score, combat_power,
			sale_price_wei, price_native, native_token, genes_status, batch_id,
			max_summons, summons, indexed_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,NOW())
		ON CONFLICT (hero_id) DO UPDATE SET
			realm          = EXCLUDED.realm,
			class1         = EXCLUDED.class1,
			class2         = EXCLUDED.class2,
			profession     = EXCLUDED.profession,
			rarity         = EXCLUDED.rarity,
			level          = EXCLUDED.level,
			generation     = EXCLUDED.generation,
			stats          = EXCLUDED.stats,
			hp             = EXCLUDED.hp,
			mp             = EXCLUDED.mp,
			stamina        = EXCLUDED.stamina,
			ability_ids    = EXCLUDED.ability_ids,
			trait_score    = EXCLUDED.trait_score,
			combat_power   = EXCLUDED.combat_power,
			sale_price_wei = EXCLUDED.sale_price_wei,
			price_native   = EXCLUDED.price_native,
			native_token   = EXCLUDED.native_token,
			-- genes_status is only downgraded to pending by a fresh snapshot
			-- when it wasn't already complete; the gene-backfill pass owns
			-- the complete/failed transition and must not be clobbered by
			-- the next snapshot sweep re-seeing the same hero.
			genes_status = CASE WHEN marketplace_heroes.genes_status = 'complete' THEN marketplace_heroes.genes_status ELSE EXCLUDED.genes_status END,
			batch_id     = EXCLUDED.batch_id,
			max_summons  = EXCLUDED.max_summons,
			summons      = EXCLUDED.summons,
			indexed_at   = NOW()`,
		h.HeroID, h.Realm, h.Class1, h.Class2, h.Profession, h.Rarity, h.Level, h.Generation,
		h.Stats[:], h.HP, h.MP, h.Stamina, h.AbilityIDs[:], h.TraitScore, h.CombatPower,
		h.SalePriceWei, h.PriceNative, h.NativeToken, h.GenesStatus, h.BatchID,
		h.MaxSummons, h.Summons,
	)
	if err != nil {
		return fmt.Errorf("repository: upsert marketplace hero %s: %w", h.HeroID, err)
	}
	return nil
}

// SweepStaleMarketplaceHeroes deletes heroes not seen in the given batch,
// implementing §8.4 scenario 6 ("after sweep, table contains exactly the
// heroes from the latest batch"). Grounded on
// internal/ingester/token_metadata_worker.go's full-pass-then-sweep-stale
// refresh-generation idiom.
func (r *Repository) SweepStaleMarketplaceHeroes(ctx context.Context, currentBatchID string) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM marketplace_heroes WHERE batch_id <> $1`, currentBatchID)
	if err != nil {
		return 0, fmt.Errorf("repository: sweep stale marketplace heroes: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ListPendingGeneBackfill implements families/marketplace.GeneRepository.
func (r *Repository) ListPendingGeneBackfill(ctx context.Context, limit int) ([]string, error) {
	rows, err := r.db.Query(ctx, `
		SELECT hero_id FROM marketplace_heroes
		WHERE genes_status = $1
		ORDER BY indexed_at ASC
		LIMIT $2`, models.GenesPending, limit)
	if err != nil {
		return nil, fmt.Errorf("repository: list pending gene backfill: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("repository: scan pending gene backfill row: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// SaveGeneExpansion implements families/marketplace.GeneRepository, writing
// the decoded 12-slot gene tree and flipping genes_status to its terminal
// state (§3.1, §4.8.1).
func (r *Repository) SaveGeneExpansion(ctx context.Context, heroID string, expansion models.GeneExpansion, status models.GenesStatus) error {
	dominant, r1, r2, r3 := geneColumns(expansion)
	_, err := r.db.Exec(ctx, `
		UPDATE marketplace_heroes SET
			genes_dominant = $2,
			genes_r1       = $3,
			genes_r2       = $4,
			genes_r3       = $5,
			genes_status   = $6
		WHERE hero_id = $1`,
		heroID, dominant, r1, r2, r3, status,
	)
	if err != nil {
		return fmt.Errorf("repository: save gene expansion for %s: %w", heroID, err)
	}
	return nil
}

// geneColumns flattens the 12-slot gene tree into the four parallel int
// arrays the schema stores one Postgres array column per level in. Split out
// as a pure function so the flattening order is testable without a DB.
func geneColumns(expansion models.GeneExpansion) (dominant, r1, r2, r3 []int) {
	dominant = make([]int, len(expansion.Slots))
	r1 = make([]int, len(expansion.Slots))
	r2 = make([]int, len(expansion.Slots))
	r3 = make([]int, len(expansion.Slots))
	for i, slot := range expansion.Slots {
		dominant[i], r1[i], r2[i], r3[i] = slot.Dominant, slot.R1, slot.R2, slot.R3
	}
	return dominant, r1, r2, r3
}
