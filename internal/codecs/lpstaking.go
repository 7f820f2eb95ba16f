// Package codecs holds the concrete, per-family EventCodec adapters that
// translate internal/eventcodec.Decoder's generic ABI unpacking into each
// family's narrow EventCodec interface (§9: ABI decoding primitives are a
// named collaborator, out of scope for hand-design; these adapters are the
// "production implementation wraps go-ethereum/accounts/abi" the collaborator
// promises). Event signatures are reconstructed from spec §4.8's field
// tables (MasterChef-style Deposit/Withdraw/Harvest, Uniswap-V2-style Swap)
// since no on-chain ABI JSON ships with the source material.
package codecs

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"indexerfleet/internal/eventcodec"
	"indexerfleet/internal/models"
)

// lpStakingABI covers Deposit/Withdraw/EmergencyWithdraw/Harvest (pid
// indexed, matching §3.2's "Event filter by indexed arg: Deposit(null,
// pid)") and a Uniswap-V2-style Swap.
const lpStakingABI = `[
  {"anonymous":false,"name":"Deposit","type":"event","inputs":[
    {"name":"user","type":"address","indexed":false},
    {"name":"pid","type":"uint256","indexed":true},
    {"name":"amount","type":"uint256","indexed":false}]},
  {"anonymous":false,"name":"Withdraw","type":"event","inputs":[
    {"name":"user","type":"address","indexed":false},
    {"name":"pid","type":"uint256","indexed":true},
    {"name":"amount","type":"uint256","indexed":false}]},
  {"anonymous":false,"name":"EmergencyWithdraw","type":"event","inputs":[
    {"name":"user","type":"address","indexed":false},
    {"name":"pid","type":"uint256","indexed":true},
    {"name":"amount","type":"uint256","indexed":false}]},
  {"anonymous":false,"name":"Harvest","type":"event","inputs":[
    {"name":"user","type":"address","indexed":false},
    {"name":"pid","type":"uint256","indexed":true},
    {"name":"amount","type":"uint256","indexed":false}]},
  {"anonymous":false,"name":"Swap","type":"event","inputs":[
    {"name":"sender","type":"address","indexed":true},
    {"name":"amount0In","type":"uint256","indexed":false},
    {"name":"amount1In","type":"uint256","indexed":false},
    {"name":"amount0Out","type":"uint256","indexed":false},
    {"name":"amount1Out","type":"uint256","indexed":false},
    {"name":"to","type":"address","indexed":true}]}
]`

// LPStakingCodec implements families/lpstaking.EventCodec and
// families/harmonylp.EventCodec (the two families share an identical
// wallet-activity event shape; Harmony's family just never calls
// DecodeSwap/DecodeHarvest).
type LPStakingCodec struct {
	abi *eventcodec.ABIDecoder

	// Token0/Token1 label which side of the pair a Swap's amountIn/amountOut
	// refer to; Uniswap-V2 Swap logs carry amounts per token slot, not token
	// addresses, so the pair's two token addresses must be supplied by the
	// caller (known statically per pool from config).
	Token0, Token1 common.Address
}

// NewLPStakingCodec parses the shared LP-staking ABI fragment once; safe to
// share a single *LPStakingCodec across every pool's Decoder since decoding
// carries no pool-specific state beyond the Token0/Token1 pair labels.
func NewLPStakingCodec(token0, token1 common.Address) (*LPStakingCodec, error) {
	abiDecoder, err := eventcodec.NewABIDecoder(lpStakingABI)
	if err != nil {
		return nil, err
	}
	return &LPStakingCodec{abi: abiDecoder, Token0: token0, Token1: token1}, nil
}

func (c *LPStakingCodec) EventName(log types.Log) string { return c.abi.EventName(log) }

func (c *LPStakingCodec) DecodeWalletActivity(log types.Log) (common.Address, models.ActivityType, string, bool) {
	name := c.abi.EventName(log)
	var out struct {
		User   common.Address
		Pid    *big.Int
		Amount *big.Int
	}
	if err := c.abi.DecodeEvent(name, log, &out); err != nil {
		return common.Address{}, "", "", false
	}
	var activityType models.ActivityType
	switch name {
	case "Deposit":
		activityType = models.ActivityDeposit
	case "Withdraw":
		activityType = models.ActivityWithdraw
	case "EmergencyWithdraw":
		activityType = models.ActivityEmergencyWithdraw
	default:
		return common.Address{}, "", "", false
	}
	return out.User, activityType, out.Amount.String(), true
}

func (c *LPStakingCodec) DecodeSwap(log types.Log) (common.Address, string, string, common.Address, common.Address, bool) {
	var out struct {
		Sender                                              common.Address
		Amount0In, Amount1In, Amount0Out, Amount1Out        *big.Int
		To                                                   common.Address
	}
	if err := c.abi.DecodeEvent("Swap", log, &out); err != nil {
		return common.Address{}, "", "", common.Address{}, common.Address{}, false
	}
	// exactly one of the two "In" amounts is nonzero on a real Swap log.
	if out.Amount0In.Sign() > 0 {
		return out.Sender, out.Amount0In.String(), out.Amount1Out.String(), c.Token0, c.Token1, true
	}
	return out.Sender, out.Amount1In.String(), out.Amount0Out.String(), c.Token1, c.Token0, true
}

func (c *LPStakingCodec) DecodeHarvest(log types.Log) (common.Address, string, bool) {
	var out struct {
		User   common.Address
		Pid    *big.Int
		Amount *big.Int
	}
	if err := c.abi.DecodeEvent("Harvest", log, &out); err != nil {
		return common.Address{}, "", false
	}
	return out.User, out.Amount.String(), true
}
