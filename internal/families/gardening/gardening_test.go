package gardening

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"indexerfleet/internal/models"
)

type fakeViews struct {
	calls    int
	questType int
}

func (f *fakeViews) QuestTypeAt(ctx context.Context, questContract common.Address, txHash common.Hash, blockNumber uint64) (int, error) {
	f.calls++
	return f.questType, nil
}

type fakeRepo struct {
	rewards []models.GardeningQuestReward
}

func (f *fakeRepo) InsertGardeningReward(ctx context.Context, r models.GardeningQuestReward) error {
	f.rewards = append(f.rewards, r)
	return nil
}

type fakeCodec struct {
	names              map[int]string
	questCompletedType int
	expeditionType     int
}

func (c fakeCodec) EventName(lg types.Log) string { return c.names[int(lg.Index)] }
func (c fakeCodec) DecodeReward(lg types.Log) (RewardFields, bool) {
	return RewardFields{Player: "0xP", Amount: "100"}, true
}
func (c fakeCodec) DecodeQuestCompletedQuestType(lg types.Log) (int, bool) {
	return c.questCompletedType, true
}
func (c fakeCodec) DecodeExpeditionQuestType(lg types.Log) (int, bool) {
	return c.expeditionType, true
}

func TestDecodeAndPersistPrefersQuestCompletedEvent(t *testing.T) {
	tx := common.HexToHash("0x1")
	codec := fakeCodec{
		names:              map[int]string{0: topicRewardMinted, 1: topicQuestCompleted},
		questCompletedType: 3,
	}
	views := &fakeViews{questType: 99}
	repo := &fakeRepo{}
	d := &Decoder{Codec: codec, Views: views, Repo: repo}

	logs := []types.Log{{Index: 0, TxHash: tx, BlockNumber: 10}, {Index: 1, TxHash: tx, BlockNumber: 10}}
	_, err := d.DecodeAndPersist(context.Background(), logs)
	if err != nil {
		t.Fatalf("DecodeAndPersist: %v", err)
	}
	if len(repo.rewards) != 1 {
		t.Fatalf("rewards = %d, want 1", len(repo.rewards))
	}
	if repo.rewards[0].QuestType != 3 || repo.rewards[0].Source != "manual_quest" {
		t.Errorf("got QuestType=%d Source=%s, want 3/manual_quest", repo.rewards[0].QuestType, repo.rewards[0].Source)
	}
	if views.calls != 0 {
		t.Errorf("view call made = %d, want 0 (event already resolved questType)", views.calls)
	}
}

func TestDecodeAndPersistFallsBackToViewCall(t *testing.T) {
	tx := common.HexToHash("0x2")
	codec := fakeCodec{names: map[int]string{0: topicRewardMinted}}
	views := &fakeViews{questType: 5}
	repo := &fakeRepo{}
	d := &Decoder{Codec: codec, Views: views, Repo: repo}

	logs := []types.Log{{Index: 0, TxHash: tx, BlockNumber: 10}}
	_, err := d.DecodeAndPersist(context.Background(), logs)
	if err != nil {
		t.Fatalf("DecodeAndPersist: %v", err)
	}
	if views.calls != 1 {
		t.Errorf("view calls = %d, want 1", views.calls)
	}
	if len(repo.rewards) != 1 || repo.rewards[0].QuestType != 5 {
		t.Fatalf("rewards = %+v, want one row with QuestType=5", repo.rewards)
	}
}

func TestDecodeAndPersistDropsQuestTypeOutsideGardeningRange(t *testing.T) {
	tx := common.HexToHash("0x3")
	codec := fakeCodec{
		names:              map[int]string{0: topicRewardMinted, 1: topicQuestCompleted},
		questCompletedType: 20,
	}
	repo := &fakeRepo{}
	d := &Decoder{Codec: codec, Views: &fakeViews{}, Repo: repo}

	logs := []types.Log{{Index: 0, TxHash: tx}, {Index: 1, TxHash: tx}}
	_, err := d.DecodeAndPersist(context.Background(), logs)
	if err != nil {
		t.Fatalf("DecodeAndPersist: %v", err)
	}
	if len(repo.rewards) != 0 {
		t.Errorf("rewards = %d, want 0 (questType 20 is outside [0,14])", len(repo.rewards))
	}
}
