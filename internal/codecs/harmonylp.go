package codecs

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"indexerfleet/internal/models"
)

// HarmonyLPCodec implements families/harmonylp.EventCodec by delegating to
// the shared wallet-activity decode in LPStakingCodec — Harmony's LP-staking
// contract emits the identical Deposit/Withdraw/EmergencyWithdraw shape
// (§4.8's "Harmony LP" row), just without Harvest/Swap.
type HarmonyLPCodec struct {
	inner *LPStakingCodec
}

// NewHarmonyLPCodec parses the same ABI fragment LPStakingCodec uses; the
// Token0/Token1 pair is irrelevant here since harmonylp never calls
// DecodeSwap, so the zero address is passed.
func NewHarmonyLPCodec() (*HarmonyLPCodec, error) {
	inner, err := NewLPStakingCodec(common.Address{}, common.Address{})
	if err != nil {
		return nil, err
	}
	return &HarmonyLPCodec{inner: inner}, nil
}

func (c *HarmonyLPCodec) EventName(log types.Log) string { return c.inner.EventName(log) }

func (c *HarmonyLPCodec) DecodeWalletActivity(log types.Log) (common.Address, models.ActivityType, string, bool) {
	return c.inner.DecodeWalletActivity(log)
}
