package repository

import (
	"context"
	"sync"
	"time"

	"nearnio/internal/models"
)

// MemoryStateRepository is the in-process fallback for setup sessions, used
// in tests and when redis is unavailable.
type MemoryStateRepository struct {
	states sync.Map
	ttl    time.Duration
}

type stateEntry struct {
	state     *models.SetupState
	expiresAt time.Time
}

func NewMemoryStateRepository(ttl time.Duration) *MemoryStateRepository {
	if ttl == 0 {
		ttl = models.DefaultSetupTTL
	}
	return &MemoryStateRepository{ttl: ttl}
}

func (r *MemoryStateRepository) GetState(ctx context.Context, userID int64) (*models.SetupState, error) {
	val, ok := r.states.Load(userID)
	if !ok {
		return nil, nil
	}
	entry := val.(*stateEntry)
	if time.Now().After(entry.expiresAt) {
		r.states.Delete(userID)
		return nil, nil
	}
	return entry.state, nil
}

func (r *MemoryStateRepository) SetState(ctx context.Context, state *models.SetupState) error {
	r.states.Store(state.UserID, &stateEntry{state: state, expiresAt: time.Now().Add(r.ttl)})
	return nil
}

func (r *MemoryStateRepository) ClearState(ctx context.Context, userID int64) error {
	r.states.Delete(userID)
	return nil
}

// MemoryPriceCache is the per-process fallback cache for token rates.
type MemoryPriceCache struct {
	rates sync.Map
	ttl   time.Duration
}

type rateEntry struct {
	rate      float64
	expiresAt time.Time
}

func NewMemoryPriceCache(ttl time.Duration) *MemoryPriceCache {
	if ttl == 0 {
		ttl = models.DefaultPriceCacheTTL
	}
	return &MemoryPriceCache{ttl: ttl}
}

func (c *MemoryPriceCache) GetRate(ctx context.Context, token string) (float64, bool, error) {
	val, ok := c.rates.Load(token)
	if !ok {
		return 0, false, nil
	}
	entry := val.(*rateEntry)
	if time.Now().After(entry.expiresAt) {
		c.rates.Delete(token)
		return 0, false, nil
	}
	return entry.rate, true, nil
}

func (c *MemoryPriceCache) SetRate(ctx context.Context, token string, rate float64) error {
	c.rates.Store(token, &rateEntry{rate: rate, expiresAt: time.Now().Add(c.ttl)})
	return nil
}
