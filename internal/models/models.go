// Package models holds the row structs persisted by internal/repository.
// Field names mirror the entities enumerated in the specification's data
// model section; JSON tags exist for the few places that round-trip through
// derived caches (bargain_hunter_cache's topPairs JSON array, event payloads).
package models

import "time"

// IndexerStatus is the checkpoint lifecycle state (§4.2).
type IndexerStatus string

const (
	StatusIdle     IndexerStatus = "idle"
	StatusRunning  IndexerStatus = "running"
	StatusComplete IndexerStatus = "complete"
	StatusError    IndexerStatus = "error"
)

// Checkpoint is the persistent per-indexer progress row (§3.1).
// RangeEnd == nil means "track to chain head".
type Checkpoint struct {
	IndexerName        string
	IndexerType        string
	Scope              string
	LPToken            string
	RangeStart         uint64
	RangeEnd           *uint64
	LastIndexedBlock   uint64
	TotalEventsIndexed uint64
	Status             IndexerStatus
	LastError          string
	UpdatedAt          time.Time
}

// ActivityType enumerates the LP-staking wallet activity kinds (§3.1).
type ActivityType string

const (
	ActivityDeposit           ActivityType = "Deposit"
	ActivityWithdraw          ActivityType = "Withdraw"
	ActivityEmergencyWithdraw ActivityType = "EmergencyWithdraw"
)

// LastActivity is the denormalized most-recent wallet action on a Staker row.
type LastActivity struct {
	Type        ActivityType
	Amount      string // base-10 wei string; NUMERIC(38,18) in storage
	BlockNumber uint64
	TxHash      string
}

// Staker is the per-(pool,wallet) LP-staking row (§3.1). StakedLP is always a
// live re-read of userInfo.amount, never reconstructed from events.
type Staker struct {
	PoolID        int
	Wallet        string
	StakedLP      string
	SummonerName  string
	LastActivity  LastActivity
	LastUpdatedAt time.Time
}

// SwapEvent is an append-only LP swap row, de-duplicated by (TxHash, LogIndex).
type SwapEvent struct {
	PoolID      int
	ChainID     uint64
	TxHash      string
	LogIndex    uint32
	BlockNumber uint64
	Sender      string
	AmountIn    string
	AmountOut   string
	TokenIn     string
	TokenOut    string
	Timestamp   time.Time
}

// RewardEvent is an append-only reward-harvest/mint row, de-duplicated by
// (TxHash, LogIndex). Shared by LP-staking Harvest events and PvE
// RewardMinted/EquipmentMinted events — ActivityID/ItemID are PvE-only.
type RewardEvent struct {
	ChainID           uint64
	ActivityID        int
	ItemID            string
	Wallet            string
	Amount            string
	TxHash            string
	LogIndex          uint32
	BlockNumber       uint64
	PartyLuck         int64
	ScavengerBonusPct int
	Timestamp         time.Time
}

// PVECompletion is a single hunt/patrol completion row, keyed by TxHash.
type PVECompletion struct {
	ChainID           uint64
	ActivityID        int
	Player            string
	HeroIDs           []string
	PetIDs            []string
	PartyLuck         int64
	ScavengerBonusPct int
	TxHash            string
	BlockNumber       uint64
	Timestamp         time.Time
}

// PVEActivity and PVELootItem back the §3.1 PvE reference tables.
type PVEActivity struct {
	ChainID      uint64
	ActivityType int
	ActivityID   int
	Name         string
}

type PVELootItem struct {
	ChainID     uint64
	ItemAddress string
	Name        string
	ItemType    string
	Rarity      int
}

// GardeningQuestReward is a gardening-quest RewardMinted row (§4.4.2).
type GardeningQuestReward struct {
	ChainID     uint64
	QuestType   int
	Player      string
	Source      string // "manual_quest" or "expedition"
	Amount      string
	TxHash      string
	LogIndex    uint32
	BlockNumber uint64
	Timestamp   time.Time
}

// TournamentRestrictions is the canonicalized restriction bundle (§3.1).
type TournamentRestrictions struct {
	LevelMin, LevelMax         int
	RarityMin, RarityMax       int
	PartySize                  int
	ExcludedBitmasks           []uint64
	ClassFlags                 []int
	BattleInventory            bool
	BattleBudget               int
	StatScoreMin, StatScoreMax int
	MapID                      int
	Unique                     bool
	No3x                       bool
	MustIncludeClass1          bool
	IncludedClass1             *int
	ConservedBitmask           uint64
	OriginalBitmask            uint64
	TeamScoreMin, TeamScoreMax int
}

// Tournament is a pvp_tournaments row (§3.1).
type Tournament struct {
	TournamentID   string
	Format         string
	PartySize      int
	Restrictions   TournamentRestrictions
	TypeSignature  string
	Rewards        string // raw JSON
	HostPlayer     string
	OpponentPlayer string
	WinnerPlayer   string
}

// HeroSnapshot is a hero's full battle-moment state, frozen at a placement (§3.1).
type HeroSnapshot struct {
	HeroID           string
	TournamentID     string
	Placement        string // "host" | "opponent" | "winner"
	Class1, Class2   int
	Level            int
	Rarity           int
	Generation       int
	Stats            [8]int // str,agi,int,wis,luk,vit,end,dex order fixed by the EventCodec collaborator
	AbilityIDs       [4]int
	StatGenesRaw     string
	SummonsRemaining int
	CombatPowerScore int
}

// GeneExpansion is the decoded 12-slot x 4-level (dominant + R1..R3) breakdown
// of a hero's raw statGenes string (§3.1).
type GeneExpansion struct {
	HeroID string
	Slots  [12]GeneSlot
}

// GeneSlot holds one gene slot's dominant and three recessive raw kai indices.
type GeneSlot struct {
	Dominant   int
	R1, R2, R3 int
}

// GenesStatus enumerates the marketplace hero gene-backfill lifecycle (§3.1).
type GenesStatus string

const (
	GenesPending  GenesStatus = "pending"
	GenesComplete GenesStatus = "complete"
	GenesFailed   GenesStatus = "failed"
)

// MarketplaceHero is a tavern_heroes row (§3.1).
type MarketplaceHero struct {
	HeroID          string
	Realm           string
	Class1, Class2  int
	Profession      int
	Rarity          int
	Level           int
	Generation      int
	Stats           [8]int
	HP, MP, Stamina int
	AbilityIDs      [4]int
	Genes           GeneExpansion
	TraitScore      int
	CombatPower     int
	StonesUsed      *int
	SalePriceWei    string
	PriceNative     float64
	NativeToken     string
	GenesStatus     GenesStatus
	BatchID         string
	IndexedAt       time.Time
	MaxSummons      int
	Summons         int
}

// BargainPairDescriptor is one scored pair entry inside a cache bucket (§4.10).
type BargainPairDescriptor struct {
	HeroID1, HeroID2 string
	Rarity1, Rarity2 int
	Realm            string
	PurchaseCost     float64
	BaseSummonCost   float64
	TearCount        int
	TearCost         float64
	TotalCost        float64
	TotalCostUSD     float64
	ExpectedTTS      float64
	Efficiency       float64
}

// BargainCacheEntry is a bargain_hunter_cache row (§3.1).
type BargainCacheEntry struct {
	SummonType       string // "regular" | "dark"
	TotalHeroes      int
	TotalPairsScored int
	TokenPrices      map[string]float64
	TopPairs         []BargainPairDescriptor
	ComputedAt       time.Time
}

// IndexingError is an operability record of a skipped log / decode failure (§7).
type IndexingError struct {
	IndexerName  string
	BlockNumber  uint64
	TxHash       string
	ErrorHash    string
	ErrorMessage string
	CreatedAt    time.Time
}
