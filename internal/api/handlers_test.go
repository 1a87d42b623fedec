package api_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wondermap/wondermap-api/internal/api"
	"github.com/wondermap/wondermap-api/internal/itinerary"
	"github.com/wondermap/wondermap-api/internal/suggest"
	"github.com/wondermap/wondermap-api/internal/travel"
)

// ---- mock implementations ----
//
// Each mock embeds its interface so tests only stub the methods they use;
// an unexpected call panics on the nil embedded value.

type mockUsers struct {
	api.UserStore
	getProfileFn    func(ctx context.Context, email string) (travel.Profile, error)
	upsertProfileFn func(ctx context.Context, p travel.Profile) error
	setPhotoFn      func(ctx context.Context, email, url string) error
	addFavoriteFn   func(ctx context.Context, email, postID string) error
	addFollowingFn  func(ctx context.Context, email, target string) error
	listFavoritesFn func(ctx context.Context, email string) ([]travel.Post, error)
}

func (m *mockUsers) GetProfile(ctx context.Context, email string) (travel.Profile, error) {
	return m.getProfileFn(ctx, email)
}
func (m *mockUsers) UpsertProfile(ctx context.Context, p travel.Profile) error {
	return m.upsertProfileFn(ctx, p)
}
func (m *mockUsers) SetProfilePhoto(ctx context.Context, email, url string) error {
	return m.setPhotoFn(ctx, email, url)
}
func (m *mockUsers) AddFavorite(ctx context.Context, email, postID string) error {
	return m.addFavoriteFn(ctx, email, postID)
}
func (m *mockUsers) AddFollowing(ctx context.Context, email, target string) error {
	return m.addFollowingFn(ctx, email, target)
}
func (m *mockUsers) ListFavoritePosts(ctx context.Context, email string) ([]travel.Post, error) {
	return m.listFavoritesFn(ctx, email)
}

type mockPosts struct {
	api.PostStore
	createPostFn   func(ctx context.Context, p travel.Post) (string, error)
	getPostFn      func(ctx context.Context, id string) (travel.Post, error)
	deletePostFn   func(ctx context.Context, id string) error
	listPublicFn   func(ctx context.Context, limit int) ([]travel.Post, error)
	searchFn       func(ctx context.Context, term string, limit int) ([]travel.Post, error)
	createSpotFn   func(ctx context.Context, sp travel.Spot) (string, error)
	getSpotFn      func(ctx context.Context, postID, spotID string) (travel.Spot, error)
	setSpotPhotoFn func(ctx context.Context, postID, spotID, url string) error
}

func (m *mockPosts) CreatePost(ctx context.Context, p travel.Post) (string, error) {
	return m.createPostFn(ctx, p)
}
func (m *mockPosts) GetPost(ctx context.Context, id string) (travel.Post, error) {
	return m.getPostFn(ctx, id)
}
func (m *mockPosts) DeletePost(ctx context.Context, id string) error { return m.deletePostFn(ctx, id) }
func (m *mockPosts) ListPublicPosts(ctx context.Context, limit int) ([]travel.Post, error) {
	return m.listPublicFn(ctx, limit)
}
func (m *mockPosts) SearchPosts(ctx context.Context, term string, limit int) ([]travel.Post, error) {
	return m.searchFn(ctx, term, limit)
}
func (m *mockPosts) CreateSpot(ctx context.Context, sp travel.Spot) (string, error) {
	return m.createSpotFn(ctx, sp)
}
func (m *mockPosts) GetSpot(ctx context.Context, postID, spotID string) (travel.Spot, error) {
	return m.getSpotFn(ctx, postID, spotID)
}
func (m *mockPosts) SetSpotPhoto(ctx context.Context, postID, spotID, url string) error {
	return m.setSpotPhotoFn(ctx, postID, spotID, url)
}

type mockTrips struct {
	api.TripStore
	createTripFn func(ctx context.Context, t travel.Trip) (string, error)
	getTripFn    func(ctx context.Context, id string) (travel.Trip, error)
	renameTripFn func(ctx context.Context, id, title string) error
	addCollabFn  func(ctx context.Context, id, email string) error
	listStopsFn  func(ctx context.Context, tripID string, day int) ([]travel.TripStop, error)
	getStopFn    func(ctx context.Context, tripID string, day int, stopID string) (travel.TripStop, error)
	createStopFn func(ctx context.Context, s travel.TripStop) (string, error)
	updateStopFn func(ctx context.Context, s travel.TripStop) error
	deleteStopFn func(ctx context.Context, tripID string, day int, stopID string) error
}

func (m *mockTrips) CreateTrip(ctx context.Context, t travel.Trip) (string, error) {
	return m.createTripFn(ctx, t)
}
func (m *mockTrips) GetTrip(ctx context.Context, id string) (travel.Trip, error) {
	return m.getTripFn(ctx, id)
}
func (m *mockTrips) RenameTrip(ctx context.Context, id, title string) error {
	return m.renameTripFn(ctx, id, title)
}
func (m *mockTrips) AddCollaborator(ctx context.Context, id, email string) error {
	return m.addCollabFn(ctx, id, email)
}
func (m *mockTrips) ListStops(ctx context.Context, tripID string, day int) ([]travel.TripStop, error) {
	return m.listStopsFn(ctx, tripID, day)
}
func (m *mockTrips) GetStop(ctx context.Context, tripID string, day int, stopID string) (travel.TripStop, error) {
	return m.getStopFn(ctx, tripID, day, stopID)
}
func (m *mockTrips) CreateStop(ctx context.Context, s travel.TripStop) (string, error) {
	return m.createStopFn(ctx, s)
}
func (m *mockTrips) UpdateStop(ctx context.Context, s travel.TripStop) error {
	return m.updateStopFn(ctx, s)
}
func (m *mockTrips) DeleteStop(ctx context.Context, tripID string, day int, stopID string) error {
	return m.deleteStopFn(ctx, tripID, day, stopID)
}

type mockFeed struct {
	getFn        func(ctx context.Context, limit int) ([]byte, error)
	setFn        func(ctx context.Context, limit int, body []byte) error
	invalidateFn func(ctx context.Context) error
}

func (m *mockFeed) GetPublicFeed(ctx context.Context, limit int) ([]byte, error) {
	return m.getFn(ctx, limit)
}
func (m *mockFeed) SetPublicFeed(ctx context.Context, limit int, body []byte) error {
	return m.setFn(ctx, limit, body)
}
func (m *mockFeed) InvalidatePublicFeed(ctx context.Context) error { return m.invalidateFn(ctx) }

func noopFeed() *mockFeed {
	return &mockFeed{
		getFn:        func(context.Context, int) ([]byte, error) { return nil, nil },
		setFn:        func(context.Context, int, []byte) error { return nil },
		invalidateFn: func(context.Context) error { return nil },
	}
}

type mockHours struct {
	hoursFn func(ctx context.Context, placeID string) (*itinerary.WeeklyHours, error)
}

func (m *mockHours) Hours(ctx context.Context, placeID string) (*itinerary.WeeklyHours, error) {
	return m.hoursFn(ctx, placeID)
}

type mockAdvisor struct {
	assessFn   func(ctx context.Context, email, tripID string, day int, stopID string, mode itinerary.Mode) (*suggest.Assessment, error)
	generateFn func(ctx context.Context, email, tripID string, day int, stopID string) (string, error)
}

func (m *mockAdvisor) Assess(ctx context.Context, email, tripID string, day int, stopID string, mode itinerary.Mode) (*suggest.Assessment, error) {
	return m.assessFn(ctx, email, tripID, day, stopID, mode)
}
func (m *mockAdvisor) Generate(ctx context.Context, email, tripID string, day int, stopID string) (string, error) {
	return m.generateFn(ctx, email, tripID, day, stopID)
}

type mockText struct {
	configured bool
	generateFn func(ctx context.Context, prompt string) (string, error)
}

func (m *mockText) Configured() bool { return m.configured }
func (m *mockText) Generate(ctx context.Context, prompt string) (string, error) {
	return m.generateFn(ctx, prompt)
}

type mockFiles struct {
	api.FileStore
	uploadProfileFn func(ctx context.Context, email string, r io.Reader) (string, error)
	openFn          func(ctx context.Context, key, expires, sig string) (string, io.ReadSeeker, error)
}

func (m *mockFiles) UploadProfilePhoto(ctx context.Context, email string, r io.Reader) (string, error) {
	return m.uploadProfileFn(ctx, email, r)
}
func (m *mockFiles) Open(ctx context.Context, key, expires, sig string) (string, io.ReadSeeker, error) {
	return m.openFn(ctx, key, expires, sig)
}

type mockPinger struct{ err error }

func (m *mockPinger) Ping(_ context.Context) error { return m.err }

// ---- helpers ----

const (
	testToken = "secret-token"
	owner     = "owner@example.com"
	friend    = "friend@example.com"
	stranger  = "stranger@example.com"
)

func buildRouter(d api.Deps, db, redis *mockPinger) http.Handler {
	if db == nil {
		db = &mockPinger{}
	}
	if redis == nil {
		redis = &mockPinger{}
	}
	if d.Feed == nil {
		d.Feed = noopFeed()
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	handlers := api.NewHandlers(d, log)
	return api.NewRouter(handlers, api.RouterConfig{
		Token:        testToken,
		CORSOrigins:  []string{"http://localhost:5173"},
		MaxBodyBytes: 1 << 20,
	}, db, redis, log)
}

func do(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Authorization", "Bearer "+testToken)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(w.Body).Decode(&v), w.Body.String())
	return v
}

func sharedTrip() travel.Trip {
	start := time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC)
	return travel.Trip{ID: "trip-1", OwnerEmail: owner, Title: "台北三日", Collaborators: []string{friend}, Days: 3, StartDate: &start}
}

func tripsWith(trip travel.Trip) *mockTrips {
	return &mockTrips{getTripFn: func(context.Context, string) (travel.Trip, error) { return trip, nil }}
}

// ---- GET /api/v1/health ----

func TestHealth_OK(t *testing.T) {
	router := buildRouter(api.Deps{}, &mockPinger{}, &mockPinger{})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var body map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "ok", body["db"])
	assert.Equal(t, "ok", body["redis"])
}

func TestHealth_DBDown(t *testing.T) {
	router := buildRouter(api.Deps{},
		&mockPinger{err: fmt.Errorf("db unreachable")},
		&mockPinger{},
	)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	var body map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "error", body["db"])
	assert.Equal(t, "degraded", body["status"])
}

func TestHealth_RedisDown(t *testing.T) {
	router := buildRouter(api.Deps{},
		&mockPinger{},
		&mockPinger{err: fmt.Errorf("redis unreachable")},
	)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

// ---- Auth middleware ----

func TestBearerAuth_NoHeader(t *testing.T) {
	router := buildRouter(api.Deps{}, nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/me/trips?email="+owner, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestBearerAuth_WrongToken(t *testing.T) {
	router := buildRouter(api.Deps{}, nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/me/trips?email="+owner, nil)
	req.Header.Set("Authorization", "Bearer wrong-token")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestBearerAuth_HealthNoAuth(t *testing.T) {
	// Health endpoint must not require auth.
	router := buildRouter(api.Deps{}, &mockPinger{}, &mockPinger{})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestBearerAuth_MissingBearerPrefix(t *testing.T) {
	router := buildRouter(api.Deps{}, nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/me/trips?email="+owner, nil)
	req.Header.Set("Authorization", testToken) // no "Bearer " prefix
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

// ---- router-level middleware ----

func TestMetricsEndpoint_NoAuth(t *testing.T) {
	router := buildRouter(api.Deps{}, nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCORS_Preflight(t *testing.T) {
	router := buildRouter(api.Deps{}, nil, nil)
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/me/trips", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "authorization")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.True(t, w.Code == http.StatusNoContent || w.Code == http.StatusOK, "got %d", w.Code)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_DisallowedOrigin(t *testing.T) {
	router := buildRouter(api.Deps{}, &mockPinger{}, &mockPinger{})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("Origin", "http://evil.example.com")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_EmptyOriginListDeniesAll(t *testing.T) {
	h := api.NewCORSHandler(nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for _, method := range []string{http.MethodOptions, http.MethodGet} {
		req := httptest.NewRequest(method, "/api/v1/me/trips", nil)
		req.Header.Set("Origin", "http://localhost:5173")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"), method)
	}
}

func TestMaxBodySize_DeclaredLengthTooLarge(t *testing.T) {
	router := buildRouter(api.Deps{}, nil, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/ai/ask", strings.NewReader("{}"))
	req.Header.Set("Authorization", "Bearer "+testToken)
	req.ContentLength = 4 << 20
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestMalformedJSONIsBadRequest(t *testing.T) {
	router := buildRouter(api.Deps{}, nil, nil)

	w := do(router, http.MethodPost, "/api/v1/me/trips", "{not json")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode[map[string]string](t, w)["error"], "invalid request body")
}

func TestSlogLogger_LogsRequestFields(t *testing.T) {
	var buf strings.Builder
	log := slog.New(slog.NewJSONHandler(&buf, nil))
	h := api.SlogLogger(log)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(buf.String()), &entry))
	assert.Equal(t, "GET", entry["method"])
	assert.Equal(t, "/x", entry["path"])
	assert.EqualValues(t, http.StatusTeapot, entry["status"])
	assert.NotNil(t, entry["duration_ms"])
}
