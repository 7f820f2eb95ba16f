package repository

import (
	"context"
	"fmt"

	"indexerfleet/internal/models"
)

// InsertCompletion implements families/pve.Repository, keyed by tx_hash per
// §3.1 (one hunt/patrol produces exactly one completion row).
// InsertRewardEvent (the reward half of this interface) lives in staking.go,
// shared with families/lpstaking's Harvest rows.
func (r *Repository) InsertCompletion(ctx context.Context, c models.PVECompletion) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO pve_completions (chain_id, activity_id, player, hero_ids, pet_ids,
		                              party_luck, scavenger_bonus_pct, tx_hash, block_number, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (tx_hash) DO NOTHING`,
		c.ChainID, c.ActivityID, c.Player, c.HeroIDs, c.PetIDs,
		c.PartyLuck, c.ScavengerBonusPct, c.TxHash, c.BlockNumber, c.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("repository: insert pve completion %s: %w", c.TxHash, err)
	}
	return nil
}

// PVEAggregates is the §4.9 input: per-(activityId, itemId) completion and
// drop counts the inference engine reduces into a base rate.
type PVEAggregates struct {
	TotalCompletions     int64
	TotalDrops           int64
	AvgPartyLuck         float64
	AvgScavengerBonusPct float64
}

// LoadPVEAggregates computes §4.9's inputs directly in SQL: total
// completions for the activity, and drop count + average luck/scavenger
// bonus among those completions' reward rows for one item.
func (r *Repository) LoadPVEAggregates(ctx context.Context, chainID uint64, activityID, itemID int) (PVEAggregates, error) {
	var agg PVEAggregates
	err := r.db.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM pve_completions WHERE chain_id = $1 AND activity_id = $2),
			COUNT(*),
			COALESCE(AVG(party_luck), 0),
			COALESCE(AVG(scavenger_bonus_pct), 0)
		FROM reward_events
		WHERE chain_id = $1 AND activity_id = $2 AND item_id = $3`,
		chainID, activityID, itemID,
	).Scan(&agg.TotalCompletions, &agg.TotalDrops, &agg.AvgPartyLuck, &agg.AvgScavengerBonusPct)
	if err != nil {
		return PVEAggregates{}, fmt.Errorf("repository: load pve aggregates activity=%d item=%d: %w", activityID, itemID, err)
	}
	return agg, nil
}
