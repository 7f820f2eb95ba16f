package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"indexerfleet/internal/models"
)

// UpsertTournament implements families/tournament.Repository, keyed by
// tournament_id per §3.1. Restrictions is a wide, rarely-queried struct so it
// is stored as JSON rather than one column per field, the same shape the
// teacher uses for opaque metadata blobs it doesn't need to filter on.
func (r *Repository) UpsertTournament(ctx context.Context, t models.Tournament) error {
	restrictions, err := json.Marshal(t.Restrictions)
	if err != nil {
		return fmt.Errorf("repository: marshal tournament restrictions %s: %w", t.TournamentID, err)
	}
	_, err = r.db.Exec(ctx, `
		INSERT INTO pvp_tournaments (tournament_id, format, party_size, restrictions,
		                              type_signature, rewards, host_player, opponent_player, winner_player)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (tournament_id) DO UPDATE SET
			format          = EXCLUDED.format,
			party_size      = EXCLUDED.party_size,
			restrictions    = EXCLUDED.restrictions,
			type_signature  = EXCLUDED.type_signature,
			rewards         = EXCLUDED.rewards,
			host_player     = EXCLUDED.host_player,
			opponent_player = EXCLUDED.opponent_player,
			winner_player   = EXCLUDED.winner_player`,
		t.TournamentID, t.Format, t.PartySize, restrictions,
		t.TypeSignature, t.Rewards, t.HostPlayer, t.OpponentPlayer, t.WinnerPlayer,
	)
	if err != nil {
		return fmt.Errorf("repository: upsert tournament %s: %w", t.TournamentID, err)
	}
	return nil
}

// UpsertHeroSnapshot implements families/tournament.Repository. Keyed by
// (hero_id, tournament_id, placement) — a hero can appear as host AND
// opponent across two different tournaments, and the same hero can be both
// host and winner within one tournament.
func (r *Repository) UpsertHeroSnapshot(ctx context.Context, s models.HeroSnapshot) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO hero_snapshots (hero_id, tournament_id, placement, class1, class2,
		                             level, rarity, generation, stats, ability_ids,
		                             stat_genes_raw, summons_remaining, combat_power_score)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (hero_id, tournament_id, placement) DO UPDATE SET
			class1             = EXCLUDED.class1,
			class2             = EXCLUDED.class2,
			level              = EXCLUDED.level,
			rarity             = EXCLUDED.rarity,
			generation         = EXCLUDED.generation,
			stats              = EXCLUDED.stats,
			ability_ids        = EXCLUDED.ability_ids,
			stat_genes_raw     = EXCLUDED.stat_genes_raw,
			summons_remaining  = EXCLUDED.summons_remaining,
			combat_power_score = EXCLUDED.combat_power_score`,
		s.HeroID, s.TournamentID, s.Placement, s.Class1, s.Class2,
		s.Level, s.Rarity, s.Generation, s.Stats[:], s.AbilityIDs[:],
		s.StatGenesRaw, s.SummonsRemaining, s.CombatPowerScore,
	)
	if err != nil {
		return fmt.Errorf("repository: upsert hero snapshot %s/%s/%s: %w", s.HeroID, s.TournamentID, s.Placement, err)
	}
	return nil
}
