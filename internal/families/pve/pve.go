// Package pve implements the PvE indexer family (C8): DFK hunts and Metis
// patrols. Groups logs by transaction, finds the completion event, and for
// victories enriches with archive-RPC hero luck and pet scavenger-bonus
// lookups before writing one completion row and one reward row per
// RewardMinted/EquipmentMinted log in the tx (§4.4.2). Grounded on
// internal/ingester/meta_worker.go's per-range-then-per-event enrichment
// cascade, generalized from Flow account/contract backfill to an
// archive-RPC hero-stats read pinned to the completion log's block.
package pve

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"indexerfleet/internal/models"
	"indexerfleet/internal/progress"
)

const (
	topicHuntCompleted          = "HuntCompleted"
	topicHuntRewardMinted       = "HuntRewardMinted"
	topicHuntEquipmentMinted    = "HuntEquipmentMinted"
	topicHuntPetBonusReceived   = "HuntPetBonusReceived"
	topicPatrolCompleted        = "PatrolCompleted"
	topicPatrolRewardMinted     = "PatrolRewardMinted"
	topicPatrolEquipmentMinted  = "PatrolEquipmentMinted"
)

// completionEventNames distinguishes the two chains' naming (DFK "Hunt..."
// vs Metis "Patrol...") while sharing the rest of the pipeline.
var completionEventNames = map[string]bool{
	topicHuntCompleted:   true,
	topicPatrolCompleted: true,
}

var rewardEventNames = map[string]bool{
	topicHuntRewardMinted:     true,
	topicHuntEquipmentMinted:  true,
	topicPatrolRewardMinted:   true,
	topicPatrolEquipmentMinted: true,
}

// CompletionFields is the positionally-decoded HuntCompleted/PatrolCompleted
// tuple (§9's "ABI field-name instability": nominal field names are swapped
// from the declared ABI on DFK hunts, so EventCodec implementations must use
// positional indexing verified against fixture transactions, not names).
type CompletionFields struct {
	ActivityID int
	Player     common.Address
	HeroIDs    []*big.Int
	PetIDs     []*big.Int
	Victory    bool
}

// RewardFields is one RewardMinted/EquipmentMinted log's payload.
type RewardFields struct {
	ItemID string
	Amount string
}

// EventCodec decodes this family's ABI-level payloads.
type EventCodec interface {
	EventName(log types.Log) string
	DecodeCompletion(log types.Log) (CompletionFields, bool)
	DecodeReward(log types.Log) (RewardFields, bool)
}

// HeroStatsReader resolves a hero's stats at a specific block height (§4.4.2
// step 1), implemented by internal/chainrpc.Views.HeroStatsAt.
type HeroStatsReader interface {
	HeroLuckAt(ctx context.Context, heroID *big.Int, blockNumber uint64) (int64, error)
}

// PetBonusReader resolves the max Scavenger combat bonus across a party's
// pets at a specific block height (§4.4.2 step 2).
type PetBonusReader interface {
	MaxScavengerBonusAt(ctx context.Context, petIDs []*big.Int, blockNumber uint64) (int, error)
}

// Repository is the narrow persistence surface this family needs.
type Repository interface {
	InsertCompletion(ctx context.Context, c models.PVECompletion) error
	InsertRewardEvent(ctx context.Context, e models.RewardEvent) error
}

// Decoder implements scanner.Decoder for one PvE activity contract.
type Decoder struct {
	ChainID  uint64
	Contract common.Address
	Codec    EventCodec
	Heroes   HeroStatsReader
	Pets     PetBonusReader
	Repo     Repository
}

func (d *Decoder) Addresses() []common.Address { return []common.Address{d.Contract} }
func (d *Decoder) Topics() []common.Hash        { return nil }

// DecodeAndPersist groups logs by transaction hash, processes each tx's
// completion event (skipping non-victories), and writes one completion plus
// one reward row per reward/equipment log in that tx (§4.4.2).
func (d *Decoder) DecodeAndPersist(ctx context.Context, logs []types.Log) (progress.EventCounts, error) {
	counts := make(progress.EventCounts)

	byTx := make(map[common.Hash][]types.Log)
	order := make([]common.Hash, 0)
	for _, lg := range logs {
		if _, seen := byTx[lg.TxHash]; !seen {
			order = append(order, lg.TxHash)
		}
		byTx[lg.TxHash] = append(byTx[lg.TxHash], lg)
	}

	for _, txHash := range order {
		txLogs := byTx[txHash]
		var completion *CompletionFields
		var completionLog types.Log
		var rewardLogs []types.Log

		for _, lg := range txLogs {
			name := d.Codec.EventName(lg)
			switch {
			case completionEventNames[name]:
				if c, ok := d.Codec.DecodeCompletion(lg); ok {
					completion = &c
					completionLog = lg
					counts[name]++
				}
			case rewardEventNames[name]:
				rewardLogs = append(rewardLogs, lg)
			}
		}

		if completion == nil || !completion.Victory {
			continue
		}

		partyLuck, err := d.sumPartyLuck(ctx, completion.HeroIDs, completionLog.BlockNumber)
		if err != nil {
			return counts, fmt.Errorf("tx %s: party luck: %w", txHash.Hex(), err)
		}
		scavengerBonus, err := d.Pets.MaxScavengerBonusAt(ctx, completion.PetIDs, completionLog.BlockNumber)
		if err != nil {
			return counts, fmt.Errorf("tx %s: scavenger bonus: %w", txHash.Hex(), err)
		}

		heroIDs := make([]string, len(completion.HeroIDs))
		for i, h := range completion.HeroIDs {
			heroIDs[i] = h.String()
		}
		petIDs := make([]string, len(completion.PetIDs))
		for i, p := range completion.PetIDs {
			petIDs[i] = p.String()
		}

		if err := d.Repo.InsertCompletion(ctx, models.PVECompletion{
			ChainID:           d.ChainID,
			ActivityID:        completion.ActivityID,
			Player:            completion.Player.Hex(),
			HeroIDs:           heroIDs,
			PetIDs:            petIDs,
			PartyLuck:         partyLuck,
			ScavengerBonusPct: scavengerBonus,
			TxHash:            txHash.Hex(),
			BlockNumber:       completionLog.BlockNumber,
		}); err != nil {
			return counts, fmt.Errorf("tx %s: insert completion: %w", txHash.Hex(), err)
		}

		for _, lg := range rewardLogs {
			name := d.Codec.EventName(lg)
			fields, ok := d.Codec.DecodeReward(lg)
			if !ok {
				continue
			}
			if err := d.Repo.InsertRewardEvent(ctx, models.RewardEvent{
				ChainID:           d.ChainID,
				ActivityID:        completion.ActivityID,
				ItemID:            fields.ItemID,
				Wallet:            completion.Player.Hex(),
				Amount:            fields.Amount,
				TxHash:            txHash.Hex(),
				LogIndex:          uint32(lg.Index),
				BlockNumber:       lg.BlockNumber,
				PartyLuck:         partyLuck,
				ScavengerBonusPct: scavengerBonus,
			}); err != nil {
				return counts, fmt.Errorf("tx %s: insert reward: %w", txHash.Hex(), err)
			}
			counts[name]++
		}
	}

	return counts, nil
}

func (d *Decoder) sumPartyLuck(ctx context.Context, heroIDs []*big.Int, blockNumber uint64) (int64, error) {
	var total int64
	for _, h := range heroIDs {
		luck, err := d.Heroes.HeroLuckAt(ctx, h, blockNumber)
		if err != nil {
			return 0, err
		}
		total += luck
	}
	return total, nil
}
