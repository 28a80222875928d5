package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"nearnio/internal/domain"
	"nearnio/internal/events"
	"nearnio/internal/models"
	"nearnio/internal/upstream"

	"github.com/rs/zerolog"
)

// SyncService refreshes the local catalog from the upstream listing feed.
// Every listing present in the feed gets its synced_at cursor stamped with
// the run's start instant, whether or not any field changed, so the notify
// window can pick it up by cursor alone.
type SyncService struct {
	source      domain.ListingSource
	catalog     domain.CatalogStore
	checkpoints domain.CheckpointStore
	bus         domain.EventPublisher
	logger      *zerolog.Logger
}

func NewSyncService(
	source domain.ListingSource,
	catalog domain.CatalogStore,
	checkpoints domain.CheckpointStore,
	bus domain.EventPublisher,
	logger *zerolog.Logger,
) *SyncService {
	return &SyncService{
		source:      source,
		catalog:     catalog,
		checkpoints: checkpoints,
		bus:         bus,
		logger:      logger,
	}
}

// Sync implements domain.SyncRunner. It returns the number of listings
// written. A rate-limited upstream aborts the run without touching the
// checkpoint; per-listing write failures are logged and skipped so one bad
// row cannot starve the rest of the feed.
func (s *SyncService) Sync(ctx context.Context) (int, error) {
	start := time.Now().UTC()

	listings, err := s.source.FetchListings(ctx)
	if err != nil {
		if errors.Is(err, upstream.ErrRateLimited) {
			s.logger.Warn().Msg("upstream rate limited, skipping sync run")
			return 0, err
		}
		return 0, fmt.Errorf("fetch listings: %w", err)
	}

	synced := 0
	for _, listing := range listings {
		if err := ctx.Err(); err != nil {
			return synced, err
		}

		listing.SyncedAt = start
		if err := s.catalog.UpsertListing(ctx, listing); err != nil {
			s.logger.Error().Err(err).
				Str("slug", listing.Slug).
				Msg("failed to upsert listing")
			continue
		}
		synced++
	}

	if err := s.checkpoints.AdvanceCheckpoint(ctx, models.CheckpointSync, start); err != nil {
		return synced, fmt.Errorf("advance sync checkpoint: %w", err)
	}

	if s.bus != nil {
		_ = s.bus.PublishJSON(events.EventCatalogSynced, events.CatalogSyncedPayload{
			Fetched: len(listings),
			Synced:  synced,
			RanAt:   start,
		})
	}

	s.logger.Info().
		Int("fetched", len(listings)).
		Int("synced", synced).
		Msg("catalog sync complete")

	return synced, nil
}
