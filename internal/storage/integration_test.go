package storage_test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wondermap/wondermap-api/internal/itinerary"
	"github.com/wondermap/wondermap-api/internal/storage"
	"github.com/wondermap/wondermap-api/internal/travel"
)

// newIntegrationRepo connects to TEST_DATABASE_URL and applies migrations.
// The test is skipped when the variable is not set.
func newIntegrationRepo(t *testing.T) *storage.Repository {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping integration test")
	}

	ctx := context.Background()
	pool, err := storage.Connect(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, storage.Migrate(ctx, pool, slog.New(slog.NewTextHandler(io.Discard, nil))))
	return storage.NewRepository(pool)
}

func TestIntegration_TripStopsRoundTrip(t *testing.T) {
	repo := newIntegrationRepo(t)
	ctx := context.Background()

	owner := "owner-" + time.Now().Format("150405.000000") + "@example.com"
	start, end, days := travel.TripSpan(
		time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC).UnixMilli(),
		time.Date(2026, 10, 30, 0, 0, 0, 0, time.UTC).UnixMilli(),
	)
	id, err := repo.CreateTrip(ctx, travel.Trip{OwnerEmail: owner, Title: "整合測試", Days: days, StartDate: &start, EndDate: &end})
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.DeleteTrip(context.Background(), id) })

	require.NoError(t, repo.AddCollaborator(ctx, id, "friend@example.com"))
	require.NoError(t, repo.AddCollaborator(ctx, id, "friend@example.com"))

	trip, err := repo.GetTrip(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 7, trip.Days)
	assert.Equal(t, []string{"friend@example.com"}, trip.Collaborators)

	nine, _ := itinerary.ParseTime("09:00")
	sid, err := repo.CreateStop(ctx, travel.TripStop{
		TripID: id, Day: 1, Name: "台北101", Category: travel.DefaultCategory,
		Location: itinerary.NewGeoPoint(25.0330, 121.5654), StartTime: &nine,
	})
	require.NoError(t, err)

	hours := itinerary.WeeklyHours{WeekdayText: []string{"週六: 11:00–21:30"}}
	require.NoError(t, repo.SetStopHours(ctx, id, 1, sid, hours))
	require.NoError(t, repo.SetStopSuggestion(ctx, id, 1, sid, "早點到避開人潮。"))

	stops, err := repo.ListStops(ctx, id, 1)
	require.NoError(t, err)
	require.Len(t, stops, 1)
	assert.Equal(t, "09:00", stops[0].StartTime.String())
	assert.Nil(t, stops[0].EndTime)
	assert.Equal(t, hours.WeekdayText, stops[0].OpeningHours.WeekdayText)
	assert.Equal(t, "早點到避開人潮。", stops[0].AISuggestion)
	assert.NotNil(t, stops[0].AIUpdatedAt)

	require.NoError(t, repo.DeleteStop(ctx, id, 1, sid))
	_, err = repo.GetStop(ctx, id, 1, sid)
	assert.ErrorIs(t, err, travel.ErrNotFound)
}

func TestIntegration_ProfilesAndFavorites(t *testing.T) {
	repo := newIntegrationRepo(t)
	ctx := context.Background()

	email := "fan-" + time.Now().Format("150405.000000") + "@example.com"
	pid, err := repo.CreatePost(ctx, travel.Post{OwnerEmail: "author@example.com", MapName: "夜市地圖", MapType: "美食"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.DeletePost(context.Background(), pid) })

	require.NoError(t, repo.AddFavorite(ctx, email, pid))
	require.NoError(t, repo.AddFavorite(ctx, email, pid))

	favs, err := repo.ListFavoritePosts(ctx, email)
	require.NoError(t, err)
	require.Len(t, favs, 1)
	assert.Equal(t, "夜市地圖", favs[0].MapName)

	p, err := repo.GetProfile(ctx, email)
	require.NoError(t, err)
	assert.True(t, p.FirstLogin)

	require.NoError(t, repo.UpsertProfile(ctx, travel.Profile{Email: email, UserName: "Fan"}))
	p, err = repo.GetProfile(ctx, email)
	require.NoError(t, err)
	assert.Equal(t, "Fan", p.UserName)
	assert.Equal(t, []string{pid}, p.Favorites)

	found, err := repo.SearchPosts(ctx, "夜市", 10)
	require.NoError(t, err)
	assert.NotEmpty(t, found)
}
