package harmonylp

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"indexerfleet/internal/models"
)

type fakeViews struct {
	balance  string
	summoner string
}

func (f *fakeViews) UserInfo(ctx context.Context, stakingContract common.Address, poolID int, wallet common.Address, blockNumber *big.Int) (string, error) {
	return f.balance, nil
}

func (f *fakeViews) AddressToProfile(ctx context.Context, profilesContract common.Address, wallet common.Address) (string, error) {
	return f.summoner, nil
}

type fakeRepo struct {
	stakers []models.Staker
}

func (f *fakeRepo) UpsertStaker(ctx context.Context, s models.Staker) error {
	f.stakers = append(f.stakers, s)
	return nil
}

type fakeCodec struct{}

func (fakeCodec) EventName(lg types.Log) string { return "Deposit" }
func (fakeCodec) DecodeWalletActivity(lg types.Log) (common.Address, models.ActivityType, string, bool) {
	return common.HexToAddress("0xA"), models.ActivityDeposit, "1000", true
}

func TestDecodeAndPersistResolvesSummonerProfile(t *testing.T) {
	views := &fakeViews{balance: "1000", summoner: "Pixel"}
	repo := &fakeRepo{}
	d := &Decoder{PoolID: 0, Views: views, Repo: repo, Codec: fakeCodec{}}

	_, err := d.DecodeAndPersist(context.Background(), []types.Log{{Index: 0}})
	if err != nil {
		t.Fatalf("DecodeAndPersist: %v", err)
	}
	if len(repo.stakers) != 1 {
		t.Fatalf("stakers = %d, want 1", len(repo.stakers))
	}
	if repo.stakers[0].SummonerName != "Pixel" {
		t.Errorf("SummonerName = %q, want Pixel", repo.stakers[0].SummonerName)
	}
}

func TestGenesisBlockConstant(t *testing.T) {
	if GenesisBlock != 16_350_000 {
		t.Errorf("GenesisBlock = %d, want 16350000", GenesisBlock)
	}
}
