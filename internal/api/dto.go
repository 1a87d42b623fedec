package api

import (
	"time"

	"github.com/wondermap/wondermap-api/internal/itinerary"
	"github.com/wondermap/wondermap-api/internal/travel"
)

// Timestamps leave the API as Unix milliseconds; coordinates as flat lat/lng.

type postJSON struct {
	travel.Post
	CreatedAt int64 `json:"createdAt"`
}

func toPost(p travel.Post) postJSON {
	return postJSON{Post: p, CreatedAt: p.CreatedAtMillis()}
}

func toPosts(ps []travel.Post) []postJSON {
	out := make([]postJSON, len(ps))
	for i, p := range ps {
		out[i] = toPost(p)
	}
	return out
}

type tripJSON struct {
	travel.Trip
	StartDate *int64 `json:"startDate"`
	EndDate   *int64 `json:"endDate"`
	CreatedAt int64  `json:"createdAt"`
}

func millisPtr(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	ms := t.UnixMilli()
	return &ms
}

func toTrip(t travel.Trip) tripJSON {
	return tripJSON{
		Trip:      t,
		StartDate: millisPtr(t.StartDate),
		EndDate:   millisPtr(t.EndDate),
		CreatedAt: t.CreatedAt.UnixMilli(),
	}
}

type stopJSON struct {
	travel.TripStop
	Lat         *float64 `json:"lat"`
	Lng         *float64 `json:"lng"`
	AIUpdatedAt *int64   `json:"aiUpdatedAt"`
}

func toStop(s travel.TripStop) stopJSON {
	out := stopJSON{TripStop: s, AIUpdatedAt: millisPtr(s.AIUpdatedAt)}
	if s.Location != nil {
		out.Lat, out.Lng = &s.Location.Lat, &s.Location.Lng
	}
	return out
}

// sortedStops returns stops in the engine's chronological order.
func sortedStops(stops []travel.TripStop) []stopJSON {
	byID := make(map[string]travel.TripStop, len(stops))
	for _, s := range stops {
		byID[s.ID] = s
	}
	ordered := itinerary.SortStops(travel.ItineraryStops(stops))
	out := make([]stopJSON, len(ordered))
	for i, s := range ordered {
		out[i] = toStop(byID[s.ID])
	}
	return out
}
