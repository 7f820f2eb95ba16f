package adapters

import (
	"context"
	"fmt"
	"net/http"

	"indexerfleet/internal/families/tournament"
	"indexerfleet/internal/models"
)

// TournamentFetcher implements tournament.Fetcher against the battles
// GraphQL feed's {first, skip} pagination (§4.8.2).
type TournamentFetcher struct {
	URL    string
	client *http.Client
}

func NewTournamentFetcher(url string) *TournamentFetcher {
	return &TournamentFetcher{URL: url, client: newClient()}
}

const battlesQuery = `query Battles($first: Int!, $skip: Int!) {
  battles(first: $first, skip: $skip) {
    tournamentId
    format
    restrictions {
      levelMin levelMax rarityMin rarityMax partySize
      excludedBitmasks classFlags battleInventory battleBudget
      statScoreMin statScoreMax mapId unique no3x mustIncludeClass1
      includedClass1 conservedBitmask originalBitmask teamScoreMin teamScoreMax
    }
    rewards
    hostPlayer
    opponentPlayer
    winnerPlayer
    hostHeroes { heroId class1 class2 level rarity generation stats abilityIds statGenesRaw summonsRemaining }
    opponentHeroes { heroId class1 class2 level rarity generation stats abilityIds statGenesRaw summonsRemaining }
  }
}`

type battlePayload struct {
	TournamentID string `json:"tournamentId"`
	Format       string `json:"format"`
	Restrictions struct {
		LevelMin, LevelMax         int
		RarityMin, RarityMax       int
		PartySize                  int
		ExcludedBitmasks           []uint64
		ClassFlags                 []int
		BattleInventory            bool
		BattleBudget               int
		StatScoreMin, StatScoreMax int
		MapID                      int `json:"mapId"`
		Unique                     bool
		No3x                       bool
		MustIncludeClass1          bool    `json:"mustIncludeClass1"`
		IncludedClass1             *int    `json:"includedClass1"`
		ConservedBitmask           uint64  `json:"conservedBitmask"`
		OriginalBitmask            uint64  `json:"originalBitmask"`
		TeamScoreMin, TeamScoreMax int
	} `json:"restrictions"`
	Rewards        string          `json:"rewards"`
	HostPlayer     string          `json:"hostPlayer"`
	OpponentPlayer string          `json:"opponentPlayer"`
	WinnerPlayer   string          `json:"winnerPlayer"`
	HostHeroes     []heroStatePayload `json:"hostHeroes"`
	OpponentHeroes []heroStatePayload `json:"opponentHeroes"`
}

type heroStatePayload struct {
	HeroID           string `json:"heroId"`
	Class1, Class2   int
	Level            int
	Rarity           int
	Generation       int
	Stats            [8]int
	AbilityIDs       [4]int `json:"abilityIds"`
	StatGenesRaw     string `json:"statGenesRaw"`
	SummonsRemaining int    `json:"summonsRemaining"`
}

func toHeroStates(in []heroStatePayload) []tournament.HeroBattleState {
	out := make([]tournament.HeroBattleState, len(in))
	for i, h := range in {
		out[i] = tournament.HeroBattleState{
			HeroID:           h.HeroID,
			Class1:           h.Class1,
			Class2:           h.Class2,
			Level:            h.Level,
			Rarity:           h.Rarity,
			Generation:       h.Generation,
			Stats:            h.Stats,
			AbilityIDs:       h.AbilityIDs,
			StatGenesRaw:     h.StatGenesRaw,
			SummonsRemaining: h.SummonsRemaining,
		}
	}
	return out
}

func (f *TournamentFetcher) FetchBattles(ctx context.Context, item tournament.WorkItem) ([]tournament.RawBattle, error) {
	req, err := graphQLRequest(ctx, f.URL, battlesQuery, map[string]interface{}{
		"first": item.BatchSize,
		"skip":  item.Skip,
	})
	if err != nil {
		return nil, err
	}

	var out struct {
		Data struct {
			Battles []battlePayload `json:"battles"`
		} `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := doJSON(f.client, req, &out); err != nil {
		return nil, err
	}
	if len(out.Errors) > 0 {
		return nil, fmt.Errorf("adapters: battles query at skip %d: %s", item.Skip, out.Errors[0].Message)
	}

	battles := make([]tournament.RawBattle, len(out.Data.Battles))
	for i, b := range out.Data.Battles {
		battles[i] = tournament.RawBattle{
			TournamentID: b.TournamentID,
			Format:       b.Format,
			Restrictions: models.TournamentRestrictions{
				LevelMin:          b.Restrictions.LevelMin,
				LevelMax:          b.Restrictions.LevelMax,
				RarityMin:         b.Restrictions.RarityMin,
				RarityMax:         b.Restrictions.RarityMax,
				PartySize:         b.Restrictions.PartySize,
				ExcludedBitmasks:  b.Restrictions.ExcludedBitmasks,
				ClassFlags:        b.Restrictions.ClassFlags,
				BattleInventory:   b.Restrictions.BattleInventory,
				BattleBudget:      b.Restrictions.BattleBudget,
				StatScoreMin:      b.Restrictions.StatScoreMin,
				StatScoreMax:      b.Restrictions.StatScoreMax,
				MapID:             b.Restrictions.MapID,
				Unique:            b.Restrictions.Unique,
				No3x:              b.Restrictions.No3x,
				MustIncludeClass1: b.Restrictions.MustIncludeClass1,
				IncludedClass1:    b.Restrictions.IncludedClass1,
				ConservedBitmask:  b.Restrictions.ConservedBitmask,
				OriginalBitmask:   b.Restrictions.OriginalBitmask,
				TeamScoreMin:      b.Restrictions.TeamScoreMin,
				TeamScoreMax:      b.Restrictions.TeamScoreMax,
			},
			Rewards:        b.Rewards,
			HostPlayer:     b.HostPlayer,
			OpponentPlayer: b.OpponentPlayer,
			WinnerPlayer:   b.WinnerPlayer,
			HostHeroes:     toHeroStates(b.HostHeroes),
			OpponentHeroes: toHeroStates(b.OpponentHeroes),
		}
	}
	return battles, nil
}
