// Package places looks up opening hours from the Google Places details API.
package places

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/wondermap/wondermap-api/internal/itinerary"
	"github.com/wondermap/wondermap-api/internal/remote"
)

const (
	httpTimeout = 10 * time.Second
	defaultURL  = "https://maps.googleapis.com/maps/api/place/details/json"
)

// ErrNotConfigured is returned when no API key was supplied.
var ErrNotConfigured = errors.New("places lookup is not configured")

// ErrNoHours is returned when the place exists but publishes no opening hours.
var ErrNoHours = errors.New("place has no opening hours")

// ErrUnknownPlace is returned when the API does not recognise the place id.
var ErrUnknownPlace = errors.New("unknown place")

// Client fetches weekly opening hours for a place id.
type Client struct {
	apiKey   string
	language string
	baseURL  string
	client   *http.Client
	retry    remote.Retry
}

// NewClient constructs a Client. An empty apiKey yields a client whose
// lookups fail with ErrNotConfigured.
func NewClient(apiKey, language string) *Client {
	return NewClientWithURL(defaultURL, apiKey, language)
}

// NewClientWithURL constructs a Client pointing at a custom base URL (for tests).
func NewClientWithURL(baseURL, apiKey, language string) *Client {
	return &Client{
		apiKey:   apiKey,
		language: language,
		baseURL:  baseURL,
		client:   remote.NewHTTPClient(httpTimeout),
		retry:    remote.DefaultRetry,
	}
}

type detailsResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Result       struct {
		OpeningHours *struct {
			WeekdayText []string `json:"weekday_text"`
		} `json:"opening_hours"`
	} `json:"result"`
}

// Hours returns the weekly opening hours text for placeID.
func (c *Client) Hours(ctx context.Context, placeID string) (*itinerary.WeeklyHours, error) {
	if c.apiKey == "" {
		return nil, ErrNotConfigured
	}
	placeID = strings.TrimSpace(placeID)
	if placeID == "" {
		return nil, fmt.Errorf("empty place id: %w", ErrUnknownPlace)
	}

	q := url.Values{}
	q.Set("place_id", placeID)
	q.Set("fields", "opening_hours")
	q.Set("key", c.apiKey)
	if c.language != "" {
		q.Set("language", c.language)
	}
	endpoint := c.baseURL + "?" + q.Encode()

	var raw detailsResponse
	err := remote.DoJSON(ctx, c.client, c.retry, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	}, &raw)
	if err != nil {
		return nil, fmt.Errorf("places details for %s: %w", placeID, err)
	}

	switch raw.Status {
	case "OK":
	case "NOT_FOUND", "INVALID_REQUEST", "ZERO_RESULTS":
		return nil, fmt.Errorf("places details for %s: %w", placeID, ErrUnknownPlace)
	default:
		return nil, fmt.Errorf("places details for %s: status %s: %s", placeID, raw.Status, raw.ErrorMessage)
	}

	if raw.Result.OpeningHours == nil || len(raw.Result.OpeningHours.WeekdayText) == 0 {
		return nil, fmt.Errorf("places details for %s: %w", placeID, ErrNoHours)
	}
	return &itinerary.WeeklyHours{WeekdayText: raw.Result.OpeningHours.WeekdayText}, nil
}
