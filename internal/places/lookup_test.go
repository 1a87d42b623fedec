package places_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wondermap/wondermap-api/internal/itinerary"
	"github.com/wondermap/wondermap-api/internal/places"
)

type mockSource struct {
	calls   int
	hoursFn func(ctx context.Context, placeID string) (*itinerary.WeeklyHours, error)
}

func (m *mockSource) Hours(ctx context.Context, placeID string) (*itinerary.WeeklyHours, error) {
	m.calls++
	return m.hoursFn(ctx, placeID)
}

type mockCache struct {
	store  map[string]*itinerary.WeeklyHours
	getErr error
	setErr error
}

func (m *mockCache) GetHours(_ context.Context, placeID string) (*itinerary.WeeklyHours, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.store[placeID], nil
}

func (m *mockCache) SetHours(_ context.Context, placeID string, h *itinerary.WeeklyHours) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.store[placeID] = h
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var openDaily = &itinerary.WeeklyHours{WeekdayText: []string{"週一: 24 小時營業"}}

func TestCachedLookup_MissThenHit(t *testing.T) {
	src := &mockSource{hoursFn: func(context.Context, string) (*itinerary.WeeklyHours, error) { return openDaily, nil }}
	c := &mockCache{store: map[string]*itinerary.WeeklyHours{}}
	l := places.NewCachedLookup(src, c, discardLogger())

	first, err := l.Hours(context.Background(), "ChIJ101")
	require.NoError(t, err)
	second, err := l.Hours(context.Background(), "ChIJ101")
	require.NoError(t, err)

	assert.Equal(t, openDaily, first)
	assert.Equal(t, openDaily, second)
	assert.Equal(t, 1, src.calls, "second lookup should be served from cache")
}

func TestCachedLookup_SourceError(t *testing.T) {
	src := &mockSource{hoursFn: func(context.Context, string) (*itinerary.WeeklyHours, error) {
		return nil, fmt.Errorf("wrapped: %w", places.ErrNoHours)
	}}
	c := &mockCache{store: map[string]*itinerary.WeeklyHours{}}

	_, err := places.NewCachedLookup(src, c, discardLogger()).Hours(context.Background(), "ChIJ101")

	assert.ErrorIs(t, err, places.ErrNoHours)
	assert.Empty(t, c.store)
}

func TestCachedLookup_CacheFailuresAreSoft(t *testing.T) {
	src := &mockSource{hoursFn: func(context.Context, string) (*itinerary.WeeklyHours, error) { return openDaily, nil }}
	c := &mockCache{getErr: fmt.Errorf("redis down"), setErr: fmt.Errorf("redis down")}

	got, err := places.NewCachedLookup(src, c, discardLogger()).Hours(context.Background(), "ChIJ101")

	require.NoError(t, err)
	assert.Equal(t, openDaily, got)
}
