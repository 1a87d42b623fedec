package places

import (
	"context"
	"log/slog"

	"github.com/wondermap/wondermap-api/internal/itinerary"
	"github.com/wondermap/wondermap-api/internal/metrics"
)

// HoursSource fetches opening hours from the upstream API.
type HoursSource interface {
	Hours(ctx context.Context, placeID string) (*itinerary.WeeklyHours, error)
}

// HoursCache stores opening hours between lookups.
type HoursCache interface {
	GetHours(ctx context.Context, placeID string) (*itinerary.WeeklyHours, error)
	SetHours(ctx context.Context, placeID string, hours *itinerary.WeeklyHours) error
}

// CachedLookup serves opening hours from the cache and falls back to the
// source on a miss. Cache failures are logged and never fail the lookup.
type CachedLookup struct {
	source HoursSource
	cache  HoursCache
	log    *slog.Logger
}

// NewCachedLookup constructs a CachedLookup.
func NewCachedLookup(source HoursSource, cache HoursCache, log *slog.Logger) *CachedLookup {
	return &CachedLookup{source: source, cache: cache, log: log}
}

// Hours returns the opening hours for placeID.
func (l *CachedLookup) Hours(ctx context.Context, placeID string) (*itinerary.WeeklyHours, error) {
	cached, err := l.cache.GetHours(ctx, placeID)
	if err != nil {
		l.log.Warn("place hours cache get failed", "place_id", placeID, "err", err)
	}
	if cached != nil {
		metrics.PlaceHoursLookups.WithLabelValues("hit").Inc()
		return cached, nil
	}

	hours, err := l.source.Hours(ctx, placeID)
	if err != nil {
		metrics.PlaceHoursLookups.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.PlaceHoursLookups.WithLabelValues("miss").Inc()

	if err := l.cache.SetHours(ctx, placeID, hours); err != nil {
		l.log.Warn("place hours cache set failed", "place_id", placeID, "err", err)
	}
	return hours, nil
}
