package repository

import (
	"context"
	"sync/atomic"
	"time"

	"nearnio/internal/domain"
	"nearnio/internal/models"

	"github.com/rs/zerolog"
)

const recoveryInterval = time.Minute

// FailoverStateRepository serves from the primary (redis) until it errors,
// then degrades to the in-memory fallback and probes the primary once a
// minute until it recovers.
type FailoverStateRepository struct {
	primary   domain.StateRepository
	fallback  domain.StateRepository
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck atomic.Int64
}

func NewFailoverStateRepository(primary, fallback domain.StateRepository, logger *zerolog.Logger) *FailoverStateRepository {
	return &FailoverStateRepository{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (r *FailoverStateRepository) markDown(err error) {
	r.logger.Error().Err(err).Msg("Primary state repository failed, falling back to memory")
	r.isDown.Store(true)
	r.lastCheck.Store(time.Now().UnixNano())
}

func (r *FailoverStateRepository) shouldProbe() bool {
	return time.Since(time.Unix(0, r.lastCheck.Load())) > recoveryInterval
}

func (r *FailoverStateRepository) GetState(ctx context.Context, userID int64) (*models.SetupState, error) {
	if !r.isDown.Load() {
		state, err := r.primary.GetState(ctx, userID)
		if err == nil {
			return state, nil
		}
		r.markDown(err)
	} else if r.shouldProbe() {
		state, err := r.primary.GetState(ctx, userID)
		if err == nil {
			r.isDown.Store(false)
			return state, nil
		}
		r.lastCheck.Store(time.Now().UnixNano())
	}

	return r.fallback.GetState(ctx, userID)
}

func (r *FailoverStateRepository) SetState(ctx context.Context, state *models.SetupState) error {
	if !r.isDown.Load() {
		err := r.primary.SetState(ctx, state)
		if err == nil {
			return nil
		}
		r.markDown(err)
	}

	return r.fallback.SetState(ctx, state)
}

func (r *FailoverStateRepository) ClearState(ctx context.Context, userID int64) error {
	if !r.isDown.Load() {
		err := r.primary.ClearState(ctx, userID)
		if err == nil {
			return nil
		}
		r.markDown(err)
	}

	return r.fallback.ClearState(ctx, userID)
}

// FailoverPriceCache mirrors the same degradation pattern for the price
// oracle's TTL cache. Cache errors must never surface to callers; the oracle
// treats a failed lookup as a miss.
type FailoverPriceCache struct {
	primary   domain.PriceCache
	fallback  domain.PriceCache
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck atomic.Int64
}

func NewFailoverPriceCache(primary, fallback domain.PriceCache, logger *zerolog.Logger) *FailoverPriceCache {
	return &FailoverPriceCache{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (c *FailoverPriceCache) markDown(err error) {
	c.logger.Warn().Err(err).Msg("Primary price cache failed, falling back to memory")
	c.isDown.Store(true)
	c.lastCheck.Store(time.Now().UnixNano())
}

func (c *FailoverPriceCache) GetRate(ctx context.Context, token string) (float64, bool, error) {
	if !c.isDown.Load() {
		rate, ok, err := c.primary.GetRate(ctx, token)
		if err == nil {
			return rate, ok, nil
		}
		c.markDown(err)
	} else if time.Since(time.Unix(0, c.lastCheck.Load())) > recoveryInterval {
		rate, ok, err := c.primary.GetRate(ctx, token)
		if err == nil {
			c.isDown.Store(false)
			return rate, ok, nil
		}
		c.lastCheck.Store(time.Now().UnixNano())
	}

	return c.fallback.GetRate(ctx, token)
}

func (c *FailoverPriceCache) SetRate(ctx context.Context, token string, rate float64) error {
	if !c.isDown.Load() {
		err := c.primary.SetRate(ctx, token, rate)
		if err == nil {
			return nil
		}
		c.markDown(err)
	}

	return c.fallback.SetRate(ctx, token, rate)
}
