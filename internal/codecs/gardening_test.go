package codecs

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestGardeningCodecDecodeReward(t *testing.T) {
	player := common.HexToAddress("0x9999999999999999999999999999999999999a")
	amount := big.NewInt(777)

	log := buildLog(t, gardeningRewardABI, "RewardMinted",
		[]interface{}{player},
		[]interface{}{amount},
	)

	codec, err := NewGardeningCodec()
	if err != nil {
		t.Fatalf("NewGardeningCodec: %v", err)
	}

	fields, ok := codec.DecodeReward(log)
	if !ok {
		t.Fatal("DecodeReward returned ok=false")
	}
	if fields.Player != player.Hex() || fields.Amount != amount.String() {
		t.Errorf("got (%s, %s), want (%s, %s)", fields.Player, fields.Amount, player.Hex(), amount.String())
	}
}

func TestGardeningCodecDecodeQuestCompletedQuestType(t *testing.T) {
	player := common.HexToAddress("0xaaaa000000000000000000000000000000000b")
	questType := big.NewInt(4)

	log := buildLog(t, gardeningQuestABI, "QuestCompleted",
		[]interface{}{player},
		[]interface{}{questType},
	)

	codec, err := NewGardeningCodec()
	if err != nil {
		t.Fatalf("NewGardeningCodec: %v", err)
	}

	got, ok := codec.DecodeQuestCompletedQuestType(log)
	if !ok {
		t.Fatal("DecodeQuestCompletedQuestType returned ok=false")
	}
	if got != 4 {
		t.Errorf("questType = %d, want 4", got)
	}
}

func TestGardeningCodecDecodeExpeditionQuestType(t *testing.T) {
	player := common.HexToAddress("0xbbbb000000000000000000000000000000000c")
	questType := big.NewInt(2)

	log := buildLog(t, gardeningQuestABI, "ExpeditionIterationProcessed",
		[]interface{}{player},
		[]interface{}{questType},
	)

	codec, err := NewGardeningCodec()
	if err != nil {
		t.Fatalf("NewGardeningCodec: %v", err)
	}

	got, ok := codec.DecodeExpeditionQuestType(log)
	if !ok {
		t.Fatal("DecodeExpeditionQuestType returned ok=false")
	}
	if got != 2 {
		t.Errorf("questType = %d, want 2", got)
	}
}
