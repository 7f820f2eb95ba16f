// Package harmonylp is the Harmony LP-staking family (C8): identical wallet-
// activity/live-userInfo shape to internal/families/lpstaking, but against a
// different RPC/contract/profiles address, with genesis block 16_350_000 and
// no Harvest/Swap tables (§4.8's "Harmony LP" row). Kept as a separate,
// smaller package rather than parameterizing lpstaking.Decoder further,
// since "no Harvest/Swap" is a structural difference (no Swap/Harvest cases
// at all) rather than a config toggle — grounded the same way as
// internal/ingester/staking_worker.go's single-purpose worker shape.
package harmonylp

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"indexerfleet/internal/models"
	"indexerfleet/internal/progress"
)

// GenesisBlock is Harmony LP-staking's indexing floor (§4.8).
const GenesisBlock uint64 = 16_350_000

const (
	topicDeposit           = "Deposit"
	topicWithdraw          = "Withdraw"
	topicEmergencyWithdraw = "EmergencyWithdraw"
)

// ViewCaller resolves a wallet's live staked balance, and optionally an
// associated summoner-profile name via the Harmony profiles contract.
type ViewCaller interface {
	UserInfo(ctx context.Context, stakingContract common.Address, poolID int, wallet common.Address, blockNumber *big.Int) (string, error)
	AddressToProfile(ctx context.Context, profilesContract common.Address, wallet common.Address) (string, error)
}

// Repository is the narrow persistence surface this family needs.
type Repository interface {
	UpsertStaker(ctx context.Context, s models.Staker) error
}

// EventCodec decodes this family's wallet-activity logs.
type EventCodec interface {
	DecodeWalletActivity(log types.Log) (wallet common.Address, activityType models.ActivityType, amount string, ok bool)
	EventName(log types.Log) string
}

// Decoder implements scanner.Decoder for one Harmony LP pool.
type Decoder struct {
	PoolID            int
	ChainID           uint64
	StakingContract   common.Address
	ProfilesContract  common.Address
	Views             ViewCaller
	Repo              Repository
	Codec             EventCodec
}

func (d *Decoder) Addresses() []common.Address { return []common.Address{d.StakingContract} }
func (d *Decoder) Topics() []common.Hash        { return nil }

// DecodeAndPersist mirrors lpstaking's group-by-wallet/last-activity-wins
// shape but omits Swap/Harvest handling entirely (§4.8: "no Harvest/Swap
// tables") and additionally resolves a summoner profile name per wallet.
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
		}
	}

	for wallet, activity := range touched {
		balance, err := d.Views.UserInfo(ctx, d.StakingContract, d.PoolID, wallet, nil)
		if err != nil {
			return counts, fmt.Errorf("userInfo(%d,%s): %w", d.PoolID, wallet.Hex(), err)
		}
		summoner, _ := d.Views.AddressToProfile(ctx, d.ProfilesContract, wallet)
		if err := d.Repo.UpsertStaker(ctx, models.Staker{
			PoolID:       d.PoolID,
			Wallet:       wallet.Hex(),
			StakedLP:     balance,
			SummonerName: summoner,
			LastActivity: activity,
		}); err != nil {
			return counts, fmt.Errorf("upsert staker %s: %w", wallet.Hex(), err)
		}
	}

	return counts, nil
}
