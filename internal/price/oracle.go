package price

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"nearnio/internal/config"
	"nearnio/internal/domain"
	"nearnio/internal/models"

	"github.com/rs/zerolog"
)

// coinIDs maps token symbols to CoinGecko identifiers. Symbols outside this
// table skip the feed entirely and resolve from the fallback table.
var coinIDs = map[string]string{
	"NEAR":  "near",
	"SOL":   "solana",
	"ETH":   "ethereum",
	"MATIC": "matic-network",
	"USDC":  "usd-coin",
	"USDT":  "tether",
	"USD":   "usd-coin",
	"BTC":   "bitcoin",
	"AVAX":  "avalanche-2",
	"FTM":   "fantom",
	"ARB":   "arbitrum",
	"OP":    "optimism",
	"LINK":  "chainlink",
	"UNI":   "uniswap",
	"AAVE":  "aave",
}

// fallbackRates is the static safety net used whenever the feed fails.
// Deliberately approximate; it only has to keep matching reasonable.
var fallbackRates = map[string]float64{
	"USDC":  1,
	"USDT":  1,
	"USD":   1,
	"NEAR":  2.85,
	"SOL":   100,
	"ETH":   3000,
	"MATIC": 0.8,
	"BTC":   45000,
	"AVAX":  30,
	"FTM":   0.3,
	"ARB":   1.5,
	"OP":    2.5,
	"LINK":  15,
	"UNI":   7,
	"AAVE":  250,
}

// unknownTokenRate is the last resort for symbols absent from every table.
const unknownTokenRate = 1.0

// Oracle converts token amounts to USD. Lookups go cache, feed, static table,
// in that order, and therefore never fail.
type Oracle struct {
	baseURL    string
	httpClient *http.Client
	cache      domain.PriceCache
	logger     zerolog.Logger
}

func NewOracle(cfg config.PriceConfig, cache domain.PriceCache, logger *zerolog.Logger) *Oracle {
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "price-oracle").Logger()
	}

	return &Oracle{
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cache:      cache,
		logger:     l,
	}
}

// Rate returns the USD spot rate for a token symbol. It never errors.
func (o *Oracle) Rate(ctx context.Context, token string) float64 {
	token = strings.ToUpper(strings.TrimSpace(token))
	if token == "" {
		return unknownTokenRate
	}

	if rate, ok, err := o.cache.GetRate(ctx, token); err == nil && ok {
		return rate
	}

	rate, err := o.fetchRate(ctx, token)
	if err != nil {
		o.logger.Debug().Err(err).Str("token", token).Msg("price feed failed, using fallback")
		return fallbackRate(token)
	}

	if err := o.cache.SetRate(ctx, token, rate); err != nil {
		o.logger.Debug().Err(err).Str("token", token).Msg("price cache write failed")
	}

	return rate
}

// ConvertToUSD annotates every listing with its USD amount, resolving each
// distinct token once. A nil reward amount converts as 0.
func (o *Oracle) ConvertToUSD(ctx context.Context, listings []*models.Listing) {
	rates := make(map[string]float64)
	for _, listing := range listings {
		token := strings.ToUpper(listing.Token)
		if _, ok := rates[token]; !ok {
			rates[token] = o.Rate(ctx, token)
		}
	}

	for _, listing := range listings {
		if listing.RewardAmount == nil {
			listing.USDAmount = 0
			continue
		}
		listing.USDAmount = *listing.RewardAmount * rates[strings.ToUpper(listing.Token)]
	}
}

func (o *Oracle) fetchRate(ctx context.Context, token string) (float64, error) {
	coinID, ok := coinIDs[token]
	if !ok {
		return 0, fmt.Errorf("no feed id for token %s", token)
	}

	endpoint := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=usd", o.baseURL, url.QueryEscape(coinID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, err
	}

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("price feed returned status %d", resp.StatusCode)
	}

	// Response shape: {"near":{"usd":2.85}}
	var payload map[string]map[string]float64
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, fmt.Errorf("decode price response: %w", err)
	}

	rate, ok := payload[coinID]["usd"]
	if !ok || rate <= 0 {
		return 0, fmt.Errorf("price feed returned no usd rate for %s", coinID)
	}

	return rate, nil
}

func fallbackRate(token string) float64 {
	if rate, ok := fallbackRates[token]; ok {
		return rate
	}
	return unknownTokenRate
}
