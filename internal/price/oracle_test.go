package price

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"nearnio/internal/config"
	"nearnio/internal/models"
	"nearnio/internal/repository"

	"github.com/stretchr/testify/assert"
)

func newTestOracle(t *testing.T, feedURL string) *Oracle {
	t.Helper()

	cfg := config.PriceConfig{BaseURL: feedURL, Timeout: 5 * time.Second}
	return NewOracle(cfg, repository.NewMemoryPriceCache(time.Hour), nil)
}

func TestRateFromFeed(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"near":{"usd":3.10}}`))
	}))
	defer srv.Close()

	oracle := newTestOracle(t, srv.URL)
	ctx := context.Background()

	assert.Equal(t, 3.10, oracle.Rate(ctx, "NEAR"))

	// Second lookup is served from cache.
	assert.Equal(t, 3.10, oracle.Rate(ctx, "near"))
	assert.Equal(t, int32(1), calls.Load())
}

func TestRateFallbackOnFeedError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	oracle := newTestOracle(t, srv.URL)

	assert.Equal(t, 2.85, oracle.Rate(context.Background(), "NEAR"))
}

func TestRateFallbackOnMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	oracle := newTestOracle(t, srv.URL)

	assert.Equal(t, 100.0, oracle.Rate(context.Background(), "SOL"))
}

func TestRateUnknownToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("unknown tokens must not hit the feed")
	}))
	defer srv.Close()

	oracle := newTestOracle(t, srv.URL)

	assert.Equal(t, 1.0, oracle.Rate(context.Background(), "WEIRDCOIN"))
}

func TestConvertToUSD(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	oracle := newTestOracle(t, srv.URL)

	reward := 100.0
	listings := []*models.Listing{
		{Slug: "a", Token: "NEAR", RewardAmount: &reward},
		{Slug: "b", Token: "USDC", RewardAmount: &reward},
		{Slug: "c", Token: "NEAR", RewardAmount: nil},
	}

	oracle.ConvertToUSD(context.Background(), listings)

	assert.Equal(t, 285.0, listings[0].USDAmount)
	assert.Equal(t, 100.0, listings[1].USDAmount)
	assert.Equal(t, 0.0, listings[2].USDAmount, "nil reward converts as zero")
}
