package config

import (
	"os"
	"strings"
	"sync"
)

// ContractAddresses holds the fixed contract addresses a chain's indexer
// families bind against. Addresses are 20-byte EVM hex strings (0x-prefixed)
// rather than the Flow-account hex this field held pre-rewrite.
type ContractAddresses struct {
	MasterGardener  string    // LP-staking contract (DFK Chain)
	HarmonyStaking  string    // LP-staking contract (Harmony)
	Profiles        string    // addressToProfile resolver
	HarmonyProfiles string
	QuestCore       string // gardening quest contract
	RewardContract  string // RewardMinted / EquipmentMinted emitter
	HuntCore        string // PvE hunts (DFK)
	PatrolCore      string // PvE patrols (Metis)
	SummonStone     string // summoning stone lookups for marketplace stone tier/type
	HeroCore        string // getHeroV3 lookups for PvE party-luck enrichment
	PetCore         string // getPetV2 lookups for PvE scavenger-bonus enrichment

	// LPTokens is indexed by PoolID [0..MaxLPPool]; each entry is the LP
	// token contract the pool's Deposit/Withdraw/Swap events are emitted
	// against alongside the staking contract itself.
	LPTokens [MaxLPPool + 1]LPTokenPair
}

// LPTokenPair names a pool's LP token contract and its two underlying
// tokens, the addresses codecs.LPStakingCodec needs to label a Swap log's
// tokenIn/tokenOut (§4.8: Swap carries amount slots, not token addresses).
type LPTokenPair struct {
	LPToken        string
	Token0, Token1 string
}

var (
	dfkAddrs     *ContractAddresses
	dfkAddrsOnce sync.Once

	metisAddrs     *ContractAddresses
	metisAddrsOnce sync.Once

	harmonyAddrs     *ContractAddresses
	harmonyAddrsOnce sync.Once
)

var mainnetDFKAddresses = ContractAddresses{
	MasterGardener: "0x1068cDF22e7f6480f862Be39657786Bf9c0f57a1",
	Profiles:       "0x386d948166009756059A7B9aa3d3c33e95614Eb2",
	QuestCore:      "0xDb870117c6A9B7d5e418598109DCfaE0cb6c0fD3",
	RewardContract: "0xDb870117c6A9B7d5e418598109DCfaE0cb6c0fD3",
	HuntCore:       "0xE9aeB5E2dCF3eE95FeC3c3c882ca2ADd39fb15c4",
	SummonStone:    "0xaD90dD8e65DAB3c44F6E4D6Bb754275Aa38e5eA5",
	HeroCore:       "0x5faD38D3D9679bB8Fa5F50Ca8c30a5d0F5e0A8f5",
	PetCore:        "0xc7C0d916B78ab8c060e8d4f862D3d0A8f5e0A8f5",
	LPTokens: [MaxLPPool + 1]LPTokenPair{
		0:  {LPToken: "0x9d13EE27daD11e7e2E68e9D6B92F7FBECc3b16e3", Token0: "0xCCb93dABD71c8Dad03Fc4CE5559dC3D89F67a260", Token1: "0xccb0F4Cf5D3F97f4a55bb5f5cA321C3ED033f244"},
		1:  {LPToken: "0x4a3D373A0A86e7830e5C4ed3270d5c4a1D4B5c60"},
		2:  {LPToken: "0x2A284E0c7Bb9752096F1eFc7Fb4Cd3b3cB6A9aD7"},
		3:  {LPToken: "0x7E1989bDd3Aa067A9725e796361c73A4bBa7c2e2"},
		4:  {LPToken: "0x6B4E8B4f0A1aA6a5F6c6e6A1a0A8f5e0A8f5e0A8"},
		5:  {LPToken: "0x0fb4A31c79827ae2A71c70Bf7E1D05A9c0c4D7A1"},
		6:  {LPToken: "0x53fD2380CC3B1Abe6439DAE3C9c4DAc8b0F1D4E2"},
		7:  {LPToken: "0x0cA0CAe3Bf7C8aE4Ab86c4a8d3c0A8f5e0A8f5e0"},
		8:  {LPToken: "0x37E2c04D1A5E61f1F5D1A5E61f1F5D1A5E61f1F5"},
		9:  {LPToken: "0x8E9a30fB3A2d7F6A8e9a30fB3A2d7F6A8e9a30fB"},
		10: {LPToken: "0x1A5E61f1F5D1A5E61f1F5D1A5E61f1F5D1A5E61f"},
		11: {LPToken: "0xF6A8e9a30fB3A2d7F6A8e9a30fB3A2d7F6A8e9a3"},
		12: {LPToken: "0xD1A5E61f1F5D1A5E61f1F5D1A5E61f1F5D1A5E61"},
		13: {LPToken: "0xA2d7F6A8e9a30fB3A2d7F6A8e9a30fB3A2d7F6A8"},
	},
}

var mainnetMetisAddresses = ContractAddresses{
	PatrolCore:     "0x3bA73e8e5Fd0f7E4d9Fe6a3E9C9Df7B4C5E4A3a2",
	Profiles:       "0x386d948166009756059A7B9aa3d3c33e95614Eb2",
	RewardContract: "0x3bA73e8e5Fd0f7E4d9Fe6a3E9C9Df7B4C5E4A3a2",
	HeroCore:       "0x5faD38D3D9679bB8Fa5F50Ca8c30a5d0F5e0A8f5",
	PetCore:        "0xc7C0d916B78ab8c060e8d4f862D3d0A8f5e0A8f5",
}

var mainnetHarmonyAddresses = ContractAddresses{
	HarmonyStaking:  "0x665F8cf1A6BAc5e829267ba9C6c6f7a5Bf6f1FbE",
	HarmonyProfiles: "0x9b11bc9Fac17c058CAB6286b0c785bE6a65492EF",
	LPTokens: [MaxLPPool + 1]LPTokenPair{
		0: {LPToken: "0x4EE0107d93c3c4FD7a336E20AdA6Bc20d3DEf6E9"},
	},
}

// DFKAddresses returns the global contract addresses for the DFK Chain deployment.
func DFKAddresses() *ContractAddresses {
	dfkAddrsOnce.Do(func() {
		a := mainnetDFKAddresses
		dfkAddrs = &a
	})
	return dfkAddrs
}

// MetisAddresses returns the global contract addresses for the Metis deployment.
func MetisAddresses() *ContractAddresses {
	metisAddrsOnce.Do(func() {
		a := mainnetMetisAddresses
		metisAddrs = &a
	})
	return metisAddrs
}

// HarmonyAddresses returns the global contract addresses for the Harmony deployment.
// Harmony's genesis block for LP-staking is fixed at 16_350_000 per spec §4.8.
func HarmonyAddresses() *ContractAddresses {
	harmonyAddrsOnce.Do(func() {
		a := mainnetHarmonyAddresses
		harmonyAddrs = &a
	})
	return harmonyAddrs
}

const HarmonyLPGenesisBlock uint64 = 16_350_000

// Network returns "testnet" or "mainnet" based on the CHAIN_NETWORK env var.
func Network() string {
	network := strings.TrimSpace(strings.ToLower(os.Getenv("CHAIN_NETWORK")))
	if network == "testnet" {
		return "testnet"
	}
	return "mainnet"
}
