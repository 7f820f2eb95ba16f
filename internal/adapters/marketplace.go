package adapters

import (
	"context"
	"fmt"
	"net/http"

	"indexerfleet/internal/families/marketplace"
)

// MarketplaceFetcher implements marketplace.Fetcher against the tavern REST
// API's offset/limit pagination (§4.8.1).
type MarketplaceFetcher struct {
	BaseURL string
	client  *http.Client
}

func NewMarketplaceFetcher(baseURL string) *MarketplaceFetcher {
	return &MarketplaceFetcher{BaseURL: baseURL, client: newClient()}
}

type marketplaceHeroPayload struct {
	ID              string `json:"id"`
	Network         string `json:"network"`
	NumericID       int64  `json:"numericId"`
	MainClass       int    `json:"class"`
	SubClass        int    `json:"subClass"`
	Profession      int    `json:"profession"`
	Rarity          int    `json:"rarity"`
	Level           int    `json:"level"`
	Generation      int    `json:"generation"`
	Stats           [8]int `json:"stats"`
	HP              int    `json:"hp"`
	MP              int    `json:"mp"`
	Stamina         int    `json:"stamina"`
	Abilities       [4]int `json:"activeAbilities"`
	StoneAddress    string `json:"statGenes"`
	SalePriceWei    string `json:"salePrice"`
	NativeToken     string `json:"currency"`
	MaxSummons      int    `json:"maxSummons"`
	SummonsUsed     int    `json:"summonsUsed"`
}

func (f *MarketplaceFetcher) FetchPage(ctx context.Context, w marketplace.Window) ([]marketplace.RawHero, error) {
	url := fmt.Sprintf("%s/heroes?offset=%d&limit=%d", f.BaseURL, w.Offset, w.Limit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "indexerfleet/1.0")

	var page []marketplaceHeroPayload
	if err := doJSON(f.client, req, &page); err != nil {
		return nil, err
	}

	raws := make([]marketplace.RawHero, len(page))
	for i, h := range page {
		raws[i] = marketplace.RawHero{
			HeroID:        h.ID,
			Network:       h.Network,
			HeroIDNumeric: h.NumericID,
			Class1:        h.MainClass,
			Class2:        h.SubClass,
			Profession:    h.Profession,
			Rarity:        h.Rarity,
			Level:         h.Level,
			Generation:    h.Generation,
			Stats:         h.Stats,
			HP:            h.HP,
			MP:            h.MP,
			Stamina:       h.Stamina,
			AbilityIDs:    h.Abilities,
			StoneAddress:  h.StoneAddress,
			SalePriceWei:  h.SalePriceWei,
			NativeToken:   h.NativeToken,
			MaxSummons:    h.MaxSummons,
			Summons:       h.SummonsUsed,
		}
	}
	return raws, nil
}

// GeneFetcher implements marketplace.GeneFetcher against the genes GraphQL
// endpoint's per-hero statGenes resolver (§4.8.1's gene-backfill pass).
type GeneFetcher struct {
	URL    string
	client *http.Client
}

func NewGeneFetcher(url string) *GeneFetcher {
	return &GeneFetcher{URL: url, client: newClient()}
}

const statGenesQuery = `query StatGenes($heroId: ID!) { hero(id: $heroId) { statGenes } }`

func (f *GeneFetcher) FetchStatGenes(ctx context.Context, heroID string) (string, error) {
	req, err := graphQLRequest(ctx, f.URL, statGenesQuery, map[string]interface{}{"heroId": heroID})
	if err != nil {
		return "", err
	}

	var out struct {
		Data struct {
			Hero struct {
				StatGenes string `json:"statGenes"`
			} `json:"hero"`
		} `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := doJSON(f.client, req, &out); err != nil {
		return "", err
	}
	if len(out.Errors) > 0 {
		return "", fmt.Errorf("adapters: statGenes query for hero %s: %s", heroID, out.Errors[0].Message)
	}
	if out.Data.Hero.StatGenes == "" {
		return "", fmt.Errorf("adapters: statGenes query for hero %s: empty result", heroID)
	}
	return out.Data.Hero.StatGenes, nil
}
