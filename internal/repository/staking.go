package repository

import (
	"context"
	"fmt"

	"indexerfleet/internal/models"
)

// UpsertStaker implements families/lpstaking.Repository and
// families/harmonylp.Repository: the same (pool, wallet) row shape serves
// both families, keyed by pool_id + wallet per §3.1. Grounded on
// postgres_leasing.go's ON CONFLICT ... DO UPDATE idiom, generalized from
// the teacher's Flow staking_events to this fleet's live-re-read staker row.
func (r *Repository) UpsertStaker(ctx context.Context, s models.Staker) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO stakers (pool_id, wallet, staked_lp, summoner_name,
		                      last_activity_type, last_activity_amount,
		                      last_activity_block, last_activity_tx_hash, last_updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		ON CONFLICT (pool_id, wallet) DO UPDATE SET
			staked_lp             = EXCLUDED.staked_lp,
			summoner_name         = CASE WHEN EXCLUDED.summoner_name <> '' THEN EXCLUDED.summoner_name ELSE stakers.summoner_name END,
			last_activity_type    = EXCLUDED.last_activity_type,
			last_activity_amount  = EXCLUDED.last_activity_amount,
			last_activity_block   = EXCLUDED.last_activity_block,
			last_activity_tx_hash = EXCLUDED.last_activity_tx_hash,
			last_updated_at       = NOW()`,
		s.PoolID, s.Wallet, s.StakedLP, s.SummonerName,
		s.LastActivity.Type, s.LastActivity.Amount, s.LastActivity.BlockNumber, s.LastActivity.TxHash,
	)
	if err != nil {
		return fmt.Errorf("repository: upsert staker pool=%d wallet=%s: %w", s.PoolID, s.Wallet, err)
	}
	return nil
}

// InsertSwapEvent implements families/lpstaking.Repository: append-only,
// de-duplicated by (tx_hash, log_index) per §3.1.
func (r *Repository) InsertSwapEvent(ctx context.Context, e models.SwapEvent) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO swap_events (pool_id, chain_id, tx_hash, log_index, block_number,
		                          sender, amount_in, amount_out, token_in, token_out, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (tx_hash, log_index) DO NOTHING`,
		e.PoolID, e.ChainID, e.TxHash, e.LogIndex, e.BlockNumber,
		e.Sender, e.AmountIn, e.AmountOut, e.TokenIn, e.TokenOut, e.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("repository: insert swap event %s:%d: %w", e.TxHash, e.LogIndex, err)
	}
	return nil
}

// InsertRewardEvent implements families/lpstaking.Repository and
// families/pve.Repository: the same append-only row shape serves LP-staking
// Harvest events and PvE RewardMinted/EquipmentMinted events, de-duplicated
// by (tx_hash, log_index) per §3.1's note that the two families share this
// table.
func (r *Repository) InsertRewardEvent(ctx context.Context, e models.RewardEvent) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO reward_events (chain_id, activity_id, item_id, wallet, amount,
		                             tx_hash, log_index, block_number,
		                             party_luck, scavenger_bonus_pct, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (tx_hash, log_index) DO NOTHING`,
		e.ChainID, e.ActivityID, e.ItemID, e.Wallet, e.Amount,
		e.TxHash, e.LogIndex, e.BlockNumber,
		e.PartyLuck, e.ScavengerBonusPct, e.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("repository: insert reward event %s:%d: %w", e.TxHash, e.LogIndex, err)
	}
	return nil
}
