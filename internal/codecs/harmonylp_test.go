package codecs

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"indexerfleet/internal/models"
)

func TestHarmonyLPCodecDecodeWalletActivity(t *testing.T) {
	user := common.HexToAddress("0x5555555555555555555555555555555555555c")
	pid := big.NewInt(0)
	amount := big.NewInt(42)

	log := buildLog(t, lpStakingABI, "Withdraw",
		[]interface{}{pid},
		[]interface{}{user, amount},
	)

	codec, err := NewHarmonyLPCodec()
	if err != nil {
		t.Fatalf("NewHarmonyLPCodec: %v", err)
	}

	gotUser, gotType, gotAmount, ok := codec.DecodeWalletActivity(log)
	if !ok {
		t.Fatal("DecodeWalletActivity returned ok=false")
	}
	if gotUser != user {
		t.Errorf("user = %s, want %s", gotUser, user)
	}
	if gotType != models.ActivityWithdraw {
		t.Errorf("activity type = %s, want %s", gotType, models.ActivityWithdraw)
	}
	if gotAmount != amount.String() {
		t.Errorf("amount = %s, want %s", gotAmount, amount.String())
	}
}

func TestHarmonyLPCodecEventName(t *testing.T) {
	codec, err := NewHarmonyLPCodec()
	if err != nil {
		t.Fatalf("NewHarmonyLPCodec: %v", err)
	}
	log := buildLog(t, lpStakingABI, "EmergencyWithdraw",
		[]interface{}{big.NewInt(1)},
		[]interface{}{common.Address{}, big.NewInt(1)},
	)
	if name := codec.EventName(log); name != "EmergencyWithdraw" {
		t.Errorf("EventName = %q, want EmergencyWithdraw", name)
	}
}
