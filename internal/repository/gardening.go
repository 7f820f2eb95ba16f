package repository

import (
	"context"
	"fmt"

	"indexerfleet/internal/models"
)

// InsertGardeningReward implements families/gardening.Repository,
// append-only and de-duplicated by (tx_hash, log_index) per §3.1.
func (r *Repository) InsertGardeningReward(ctx context.Context, g models.GardeningQuestReward) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO gardening_rewards (chain_id, quest_type, player, source, amount,
		                                tx_hash, log_index, block_number, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (tx_hash, log_index) DO NOTHING`,
		g.ChainID, g.QuestType, g.Player, g.Source, g.Amount,
		g.TxHash, g.LogIndex, g.BlockNumber, g.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("repository: insert gardening reward %s:%d: %w", g.TxHash, g.LogIndex, err)
	}
	return nil
}
