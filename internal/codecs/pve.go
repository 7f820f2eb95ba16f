package codecs

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"indexerfleet/internal/eventcodec"
	"indexerfleet/internal/families/pve"
)

// pveABI covers both chains' completion/reward events; DFK's "Hunt..." and
// Metis's "Patrol..." names are distinct ABI fragments with the same shape
// so one decoder serves both (§4.8's two rows share a pipeline).
const pveABI = `[
  {"anonymous":false,"name":"HuntCompleted","type":"event","inputs":[
    {"name":"player","type":"address","indexed":true},
    {"name":"activityId","type":"uint256","indexed":false},
    {"name":"heroIds","type":"uint256[]","indexed":false},
    {"name":"petIds","type":"uint256[]","indexed":false},
    {"name":"victory","type":"bool","indexed":false}]},
  {"anonymous":false,"name":"PatrolCompleted","type":"event","inputs":[
    {"name":"player","type":"address","indexed":true},
    {"name":"activityId","type":"uint256","indexed":false},
    {"name":"heroIds","type":"uint256[]","indexed":false},
    {"name":"petIds","type":"uint256[]","indexed":false},
    {"name":"victory","type":"bool","indexed":false}]},
  {"anonymous":false,"name":"HuntRewardMinted","type":"event","inputs":[
    {"name":"player","type":"address","indexed":true},
    {"name":"itemId","type":"uint256","indexed":false},
    {"name":"amount","type":"uint256","indexed":false}]},
  {"anonymous":false,"name":"HuntEquipmentMinted","type":"event","inputs":[
    {"name":"player","type":"address","indexed":true},
    {"name":"itemId","type":"uint256","indexed":false},
    {"name":"amount","type":"uint256","indexed":false}]},
  {"anonymous":false,"name":"PatrolRewardMinted","type":"event","inputs":[
    {"name":"player","type":"address","indexed":true},
    {"name":"itemId","type":"uint256","indexed":false},
    {"name":"amount","type":"uint256","indexed":false}]},
  {"anonymous":false,"name":"PatrolEquipmentMinted","type":"event","inputs":[
    {"name":"player","type":"address","indexed":true},
    {"name":"itemId","type":"uint256","indexed":false},
    {"name":"amount","type":"uint256","indexed":false}]}
]`

// PVECodec implements families/pve.EventCodec.
//
// §9 warns that HuntCompleted's decoded tuple field names are swapped from
// the declared ABI on-chain. This codec therefore does NOT trust
// eventcodec.Decoder's name-based struct unpacking for the completion event:
// it unpacks positionally via abi.Arguments.UnpackValues and assigns fields
// by verified index (activityId=0, heroIds=1, petIds=2, victory=3), a
// mapping that must be re-verified against fixture transactions before this
// codec is pointed at a live contract.
type PVECodec struct {
	abi *eventcodec.ABIDecoder
	raw abi.ABI
}

func NewPVECodec() (*PVECodec, error) {
	abiDecoder, err := eventcodec.NewABIDecoder(pveABI)
	if err != nil {
		return nil, err
	}
	raw, err := abi.JSON(strings.NewReader(pveABI))
	if err != nil {
		return nil, fmt.Errorf("codecs: parse pve ABI for positional decode: %w", err)
	}
	return &PVECodec{abi: abiDecoder, raw: raw}, nil
}

func (c *PVECodec) EventName(log types.Log) string { return c.abi.EventName(log) }

func (c *PVECodec) DecodeCompletion(log types.Log) (pve.CompletionFields, bool) {
	name := c.EventName(log)
	if name != "HuntCompleted" && name != "PatrolCompleted" {
		return pve.CompletionFields{}, false
	}
	ev := c.raw.Events[name]
	var nonIndexed abi.Arguments
	for _, arg := range ev.Inputs {
		if !arg.Indexed {
			nonIndexed = append(nonIndexed, arg)
		}
	}
	values, err := nonIndexed.UnpackValues(log.Data)
	if err != nil || len(values) < 4 {
		return pve.CompletionFields{}, false
	}

	activityID, ok0 := values[0].(*big.Int)
	heroIDs, ok1 := values[1].([]*big.Int)
	petIDs, ok2 := values[2].([]*big.Int)
	victory, ok3 := values[3].(bool)
	if !ok0 || !ok1 || !ok2 || !ok3 {
		return pve.CompletionFields{}, false
	}

	var player common.Address
	if len(log.Topics) > 1 {
		player = common.BytesToAddress(log.Topics[1].Bytes())
	}

	return pve.CompletionFields{
		ActivityID: int(activityID.Int64()),
		Player:     player,
		HeroIDs:    heroIDs,
		PetIDs:     petIDs,
		Victory:    victory,
	}, true
}

func (c *PVECodec) DecodeReward(log types.Log) (pve.RewardFields, bool) {
	var out struct {
		Player common.Address
		ItemID *big.Int
		Amount *big.Int
	}
	if err := c.abi.DecodeEvent(c.EventName(log), log, &out); err != nil {
		return pve.RewardFields{}, false
	}
	return pve.RewardFields{ItemID: out.ItemID.String(), Amount: out.Amount.String()}, true
}
