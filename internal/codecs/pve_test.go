package codecs

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestPVECodecDecodeCompletion(t *testing.T) {
	player := common.HexToAddress("0x6666666666666666666666666666666666666d")
	activityID := big.NewInt(9)
	heroIDs := []*big.Int{big.NewInt(101), big.NewInt(102)}
	petIDs := []*big.Int{big.NewInt(7)}

	log := buildLog(t, pveABI, "HuntCompleted",
		[]interface{}{player},
		[]interface{}{activityID, heroIDs, petIDs, true},
	)

	codec, err := NewPVECodec()
	if err != nil {
		t.Fatalf("NewPVECodec: %v", err)
	}

	fields, ok := codec.DecodeCompletion(log)
	if !ok {
		t.Fatal("DecodeCompletion returned ok=false")
	}
	if fields.Player != player {
		t.Errorf("player = %s, want %s", fields.Player, player)
	}
	if fields.ActivityID != 9 {
		t.Errorf("activityID = %d, want 9", fields.ActivityID)
	}
	if len(fields.HeroIDs) != 2 || fields.HeroIDs[0].Int64() != 101 || fields.HeroIDs[1].Int64() != 102 {
		t.Errorf("heroIDs = %v, want [101 102]", fields.HeroIDs)
	}
	if len(fields.PetIDs) != 1 || fields.PetIDs[0].Int64() != 7 {
		t.Errorf("petIDs = %v, want [7]", fields.PetIDs)
	}
	if !fields.Victory {
		t.Error("victory = false, want true")
	}
}

func TestPVECodecDecodeCompletionWrongEvent(t *testing.T) {
	player := common.HexToAddress("0x7777777777777777777777777777777777777e")
	log := buildLog(t, pveABI, "HuntRewardMinted",
		[]interface{}{player},
		[]interface{}{big.NewInt(1), big.NewInt(2)},
	)

	codec, err := NewPVECodec()
	if err != nil {
		t.Fatalf("NewPVECodec: %v", err)
	}
	if _, ok := codec.DecodeCompletion(log); ok {
		t.Error("DecodeCompletion on a reward log returned ok=true, want false")
	}
}

func TestPVECodecDecodeReward(t *testing.T) {
	player := common.HexToAddress("0x8888888888888888888888888888888888888f")
	itemID := big.NewInt(55)
	amount := big.NewInt(3)

	log := buildLog(t, pveABI, "HuntRewardMinted",
		[]interface{}{player},
		[]interface{}{itemID, amount},
	)

	codec, err := NewPVECodec()
	if err != nil {
		t.Fatalf("NewPVECodec: %v", err)
	}

	fields, ok := codec.DecodeReward(log)
	if !ok {
		t.Fatal("DecodeReward returned ok=false")
	}
	if fields.ItemID != itemID.String() || fields.Amount != amount.String() {
		t.Errorf("got (%s, %s), want (%s, %s)", fields.ItemID, fields.Amount, itemID.String(), amount.String())
	}
}
