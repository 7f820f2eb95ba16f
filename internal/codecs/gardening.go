package codecs

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"indexerfleet/internal/eventcodec"
	"indexerfleet/internal/families/gardening"
)

// gardeningABI covers the reward contract's RewardMinted and the quest
// contract's QuestCompleted/ExpeditionIterationProcessed — two distinct
// contracts, merged into one decode table via MergeABI (§4.4.2's same-tx
// cascade needs to decode logs from both within a single transaction).
const gardeningRewardABI = `[
  {"anonymous":false,"name":"RewardMinted","type":"event","inputs":[
    {"name":"player","type":"address","indexed":true},
    {"name":"amount","type":"uint256","indexed":false}]}
]`

const gardeningQuestABI = `[
  {"anonymous":false,"name":"QuestCompleted","type":"event","inputs":[
    {"name":"player","type":"address","indexed":true},
    {"name":"questType","type":"uint256","indexed":false}]},
  {"anonymous":false,"name":"ExpeditionIterationProcessed","type":"event","inputs":[
    {"name":"player","type":"address","indexed":true},
    {"name":"questType","type":"uint256","indexed":false}]}
]`

// GardeningCodec implements families/gardening.EventCodec.
type GardeningCodec struct {
	abi *eventcodec.ABIDecoder
}

func NewGardeningCodec() (*GardeningCodec, error) {
	abiDecoder, err := eventcodec.NewABIDecoder(gardeningRewardABI)
	if err != nil {
		return nil, err
	}
	if err := abiDecoder.MergeABI(gardeningQuestABI); err != nil {
		return nil, err
	}
	return &GardeningCodec{abi: abiDecoder}, nil
}

func (c *GardeningCodec) EventName(log types.Log) string { return c.abi.EventName(log) }

func (c *GardeningCodec) DecodeReward(log types.Log) (gardening.RewardFields, bool) {
	var out struct {
		Player common.Address
		Amount *big.Int
	}
	if err := c.abi.DecodeEvent("RewardMinted", log, &out); err != nil {
		return gardening.RewardFields{}, false
	}
	return gardening.RewardFields{Player: out.Player.Hex(), Amount: out.Amount.String()}, true
}

func (c *GardeningCodec) DecodeQuestCompletedQuestType(log types.Log) (int, bool) {
	return c.decodeQuestType("QuestCompleted", log)
}

func (c *GardeningCodec) DecodeExpeditionQuestType(log types.Log) (int, bool) {
	return c.decodeQuestType("ExpeditionIterationProcessed", log)
}

func (c *GardeningCodec) decodeQuestType(eventName string, log types.Log) (int, bool) {
	var out struct {
		Player    common.Address
		QuestType *big.Int
	}
	if err := c.abi.DecodeEvent(eventName, log, &out); err != nil {
		return 0, false
	}
	return int(out.QuestType.Int64()), true
}
