package adapters

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"indexerfleet/internal/summonengine"
)

// coinGeckoIDs maps the token symbols bargain.Engine asks for to the price
// feed's own identifiers, since CoinGecko-shaped feeds key quotes by slug
// rather than ticker.
var coinGeckoIDs = map[string]string{
	"CRYSTAL": "defi-kingdoms-crystal",
	"JEWEL":   "defi-kingdoms",
}

// PriceSource implements bargain.PriceSource against a CoinGecko-shaped
// simple-price endpoint, the same API family internal/market/price.go
// fetches Flow's quote from (§4.10 step 1).
type PriceSource struct {
	BaseURL string
	client  *http.Client
}

func NewPriceSource(baseURL string) *PriceSource {
	return &PriceSource{BaseURL: baseURL, client: newClient()}
}

func (p *PriceSource) FetchPrice(ctx context.Context, token string) (float64, error) {
	id, ok := coinGeckoIDs[strings.ToUpper(token)]
	if !ok {
		id = strings.ToLower(token)
	}
	url := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=usd", p.BaseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("User-Agent", "indexerfleet/1.0")

	var result map[string]struct {
		USD float64 `json:"usd"`
	}
	if err := doJSON(p.client, req, &result); err != nil {
		return 0, err
	}
	quote, ok := result[id]
	if !ok {
		return 0, fmt.Errorf("adapters: price feed missing token %q", token)
	}
	return quote.USD, nil
}

// SummonEngine implements summonengine.Engine as a thin client against an
// external heir-trait probability service (§1, §4.10: the math itself is
// out of scope here — this type only carries genetics/rarity to wherever
// that math actually lives and returns its answer).
type SummonEngine struct {
	URL    string
	client *http.Client
}

func NewSummonEngine(url string) *SummonEngine {
	return &SummonEngine{URL: url, client: newClient()}
}

func (s *SummonEngine) CalculateSummoningProbabilities(g1, g2 summonengine.Genetics, rarity1, rarity2 int) (summonengine.SummonProbabilities, error) {
	var out summonengine.SummonProbabilities
	err := s.call(nil, "/summoning-probabilities", map[string]interface{}{
		"genetics1": g1, "genetics2": g2, "rarity1": rarity1, "rarity2": rarity2,
	}, &out)
	return out, err
}

func (s *SummonEngine) CalculateTTSProbabilities(probs summonengine.SummonProbabilities) (summonengine.TTSData, error) {
	var out summonengine.TTSData
	err := s.call(nil, "/tts-probabilities", map[string]interface{}{"probabilities": probs}, &out)
	return out, err
}

func (s *SummonEngine) CalculateEliteExaltedChances(slotTierProbs [12]summonengine.SlotTierProbabilities) (summonengine.EliteExaltedChances, error) {
	var out summonengine.EliteExaltedChances
	err := s.call(nil, "/elite-exalted-chances", map[string]interface{}{"slotTierProbs": slotTierProbs}, &out)
	return out, err
}

func (s *SummonEngine) call(ctx context.Context, path string, body map[string]interface{}, out interface{}) error {
	if ctx == nil {
		ctx = context.Background()
	}
	req, err := postJSON(ctx, s.URL+path, body)
	if err != nil {
		return err
	}
	return doJSON(s.client, req, out)
}
