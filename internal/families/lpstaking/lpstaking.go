// Package lpstaking implements the LP-staking indexer family (C8): Deposit/
// Withdraw/EmergencyWithdraw/Harvest plus raw LP.Swap events. Grounded on
// internal/ingester/staking_worker.go's shape (group-by-key map keyed on the
// entity id, "last write wins" per batch, one upsert call per entity map at
// the end of ProcessRange) generalized from Flow staking-node events to
// EVM wallet/pool `userInfo` re-reads.
package lpstaking

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"indexerfleet/internal/models"
	"indexerfleet/internal/progress"
)

// topic names this family decodes, matching §4.8's table row.
const (
	topicDeposit           = "Deposit"
	topicWithdraw          = "Withdraw"
	topicEmergencyWithdraw = "EmergencyWithdraw"
	topicHarvest           = "Harvest"
	topicSwap              = "Swap"
)

// ViewCaller resolves a wallet's live staked balance at the current head,
// matching "re-reads userInfo.amount on chain (live balance, not
// reconstructed)" (§4.4.2). Implemented by internal/chainrpc.Views.
type ViewCaller interface {
	UserInfo(ctx context.Context, stakingContract common.Address, poolID int, wallet common.Address, blockNumber *big.Int) (string, error)
}

// Repository is the narrow persistence surface this family needs, kept
// separate from internal/repository.Repository so tests can fake it without
// a live database (teacher precedent: repository.Repository is always
// injected as an interface-shaped dependency in *_worker.go constructors).
type Repository interface {
	UpsertStaker(ctx context.Context, s models.Staker) error
	InsertSwapEvent(ctx context.Context, e models.SwapEvent) error
	InsertRewardEvent(ctx context.Context, e models.RewardEvent) error
}

// Decoder implements scanner.Decoder for one pool.
type Decoder struct {
	PoolID          int
	ChainID         uint64
	StakingContract common.Address
	LPToken         common.Address
	Views           ViewCaller
	Repo            Repository
	Codec           EventCodec

	// LegacyMode mirrors the "3-worker, no work-stealing" unified indexer
	// variant (SPEC_FULL §4 Open Question 1). The decode/persist logic is
	// identical either way — LegacyMode only changes how many workers the
	// composition root launches and whether it wires a steal.Arbiter, so it
	// carries no branching here.
	LegacyMode bool
}

// EventCodec decodes one family's event payloads; narrowed from
// internal/eventcodec.Decoder to exactly what lpstaking needs.
type EventCodec interface {
	DecodeWalletActivity(log types.Log) (wallet common.Address, activityType models.ActivityType, amount string, ok bool)
	DecodeSwap(log types.Log) (sender common.Address, amountIn, amountOut string, tokenIn, tokenOut common.Address, ok bool)
	DecodeHarvest(log types.Log) (wallet common.Address, amount string, ok bool)
	EventName(log types.Log) string
}

// Addresses returns the contracts this family watches.
func (d *Decoder) Addresses() []common.Address {
	return []common.Address{d.StakingContract, d.LPToken}
}

// Topics is informational; the real topic-hash filtering happens inside the
// RPC pool's FilterLogs query built from the contract ABI (C1), matched by
// event name here.
func (d *Decoder) Topics() []common.Hash { return nil }

// DecodeAndPersist groups Deposit/Withdraw/EmergencyWithdraw logs by wallet,
// keeping only the last activity per wallet in this batch, then re-reads the
// live userInfo balance for each touched wallet. Swap and Harvest logs are
// written append-only as they're seen (§4.4.2).
func (d *Decoder) DecodeAndPersist(ctx context.Context, logs []types.Log) (progress.EventCounts, error) {
	counts := make(progress.EventCounts)
	touched := make(map[common.Address]models.LastActivity)

	for _, lg := range logs {
		name := d.Codec.EventName(lg)
		switch name {
		case topicDeposit, topicWithdraw, topicEmergencyWithdraw:
			wallet, activityType, amount, ok := d.Codec.DecodeWalletActivity(lg)
			if !ok {
				continue
			}
			touched[wallet] = models.LastActivity{
				Type:        activityType,
				Amount:      amount,
				BlockNumber: lg.BlockNumber,
				TxHash:      lg.TxHash.Hex(),
			}
			counts[name]++

		case topicSwap:
			sender, amountIn, amountOut, tokenIn, tokenOut, ok := d.Codec.DecodeSwap(lg)
			if !ok {
				continue
			}
			if err := d.Repo.InsertSwapEvent(ctx, models.SwapEvent{
				PoolID:      d.PoolID,
				ChainID:     d.ChainID,
				TxHash:      lg.TxHash.Hex(),
				LogIndex:    uint32(lg.Index),
				BlockNumber: lg.BlockNumber,
				Sender:      sender.Hex(),
				AmountIn:    amountIn,
				AmountOut:   amountOut,
				TokenIn:     tokenIn.Hex(),
				TokenOut:    tokenOut.Hex(),
			}); err != nil {
				return counts, fmt.Errorf("insert swap event %s:%d: %w", lg.TxHash.Hex(), lg.Index, err)
			}
			counts[name]++

		case topicHarvest:
			wallet, amount, ok := d.Codec.DecodeHarvest(lg)
			if !ok {
				continue
			}
			if err := d.Repo.InsertRewardEvent(ctx, models.RewardEvent{
				ChainID:     d.ChainID,
				Wallet:      wallet.Hex(),
				Amount:      amount,
				TxHash:      lg.TxHash.Hex(),
				LogIndex:    uint32(lg.Index),
				BlockNumber: lg.BlockNumber,
			}); err != nil {
				return counts, fmt.Errorf("insert reward event %s:%d: %w", lg.TxHash.Hex(), lg.Index, err)
			}
			counts[name]++
		}
	}

	for wallet, activity := range touched {
		balance, err := d.Views.UserInfo(ctx, d.StakingContract, d.PoolID, wallet, nil)
		if err != nil {
			return counts, fmt.Errorf("userInfo(%d,%s): %w", d.PoolID, wallet.Hex(), err)
		}
		if err := d.Repo.UpsertStaker(ctx, models.Staker{
			PoolID:       d.PoolID,
			Wallet:       wallet.Hex(),
			StakedLP:     balance,
			LastActivity: activity,
		}); err != nil {
			return counts, fmt.Errorf("upsert staker %s: %w", wallet.Hex(), err)
		}
	}

	return counts, nil
}
