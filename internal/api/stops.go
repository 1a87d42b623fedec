package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wondermap/wondermap-api/internal/itinerary"
	"github.com/wondermap/wondermap-api/internal/travel"
)

// stopRequest is the body of stop create and update calls. On update, nil
// fields are left unchanged; an empty time string clears the time.
type stopRequest struct {
	Email        string                 `json:"email"`
	Name         *string                `json:"name"`
	Description  *string                `json:"description"`
	Category     *string                `json:"category"`
	Lat          *float64               `json:"lat"`
	Lng          *float64               `json:"lng"`
	StartTime    *string                `json:"startTime"`
	EndTime      *string                `json:"endTime"`
	PlaceID      string                 `json:"placeId"`
	OpeningHours *itinerary.WeeklyHours `json:"openingHours"`
}

type stopUpdateResponse struct {
	Stop         stopJSON `json:"stop"`
	Refreshed    bool     `json:"refreshed"`
	AISuggestion string   `json:"aiSuggestion,omitempty"`
	AIError      string   `json:"aiError,omitempty"`
}

type feasibilityResponse struct {
	StopID  string              `json:"stopId"`
	Day     int                 `json:"day"`
	Weekday string              `json:"weekday"`
	Open    itinerary.OpenState `json:"open"`
	Verdict itinerary.Verdict   `json:"verdict"`
}

// stopPath reads tripId and the clamped day from the URL.
func stopPath(r *http.Request) (string, int, error) {
	day, err := strconv.Atoi(chi.URLParam(r, "day"))
	if err != nil {
		return "", 0, fmt.Errorf("day must be a number: %w", travel.ErrValidation)
	}
	return chi.URLParam(r, "tripId"), travel.ClampDay(day), nil
}

// editableTrip loads a trip and checks that email may edit its stops.
func (h *Handlers) editableTrip(ctx context.Context, tripID, email string) (travel.Trip, error) {
	t, err := h.trips.GetTrip(ctx, tripID)
	if err != nil {
		return travel.Trip{}, err
	}
	if !t.CanEdit(email) {
		return travel.Trip{}, travel.ErrForbidden
	}
	return t, nil
}

func parseClock(field string, raw *string) (*itinerary.TimeOfDay, error) {
	if raw == nil {
		return nil, nil
	}
	t, err := itinerary.ParseOptionalTime(*raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %v: %w", field, err, travel.ErrValidation)
	}
	return t, nil
}

func parseLocation(lat, lng *float64) (*itinerary.GeoPoint, error) {
	if lat == nil || lng == nil {
		return nil, fmt.Errorf("lat and lng are required: %w", travel.ErrValidation)
	}
	if *lat < -90 || *lat > 90 || *lng < -180 || *lng > 180 {
		return nil, fmt.Errorf("lat/lng out of range: %w", travel.ErrValidation)
	}
	return itinerary.NewGeoPoint(*lat, *lng), nil
}

func checkOrder(s travel.TripStop) error {
	if s.StartTime != nil && s.EndTime != nil && *s.EndTime < *s.StartTime {
		return fmt.Errorf("endTime must not be before startTime: %w", travel.ErrValidation)
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

// ListStops handles GET /api/v1/me/trips/{tripId}/days/{day}/stops?email=.
// Stops come back in chronological order.
func (h *Handlers) ListStops(w http.ResponseWriter, r *http.Request) {
	tripID, day, err := stopPath(r)
	if err != nil {
		h.writeError(w, r, err, "list stops")
		return
	}
	email, err := queryEmail(r)
	if err != nil {
		h.writeError(w, r, err, "list stops")
		return
	}
	if _, err := h.editableTrip(r.Context(), tripID, email); err != nil {
		h.writeError(w, r, err, "list stops")
		return
	}

	stops, err := h.trips.ListStops(r.Context(), tripID, day)
	if err != nil {
		h.writeError(w, r, err, "list stops")
		return
	}
	writeJSON(w, http.StatusOK, sortedStops(stops))
}

// CreateStop handles POST /api/v1/me/trips/{tripId}/days/{day}/stops.
// When a placeId is given without hours, the hours are looked up.
func (h *Handlers) CreateStop(w http.ResponseWriter, r *http.Request) {
	tripID, day, err := stopPath(r)
	if err != nil {
		h.writeError(w, r, err, "create stop")
		return
	}
	var req stopRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err, "create stop")
		return
	}

	stop, err := newStop(tripID, day, req)
	if err != nil {
		h.writeError(w, r, err, "create stop")
		return
	}
	if _, err := h.editableTrip(r.Context(), tripID, req.Email); err != nil {
		h.writeError(w, r, err, "create stop")
		return
	}

	if stop.PlaceID != "" && stop.OpeningHours == nil && h.hours != nil {
		hours, err := h.hours.Hours(r.Context(), stop.PlaceID)
		if err != nil {
			h.log.Warn("opening hours lookup failed", "place_id", stop.PlaceID, "err", err)
		} else {
			stop.OpeningHours = hours
		}
	}

	id, err := h.trips.CreateStop(r.Context(), stop)
	if err != nil {
		h.writeError(w, r, err, "create stop")
		return
	}
	stop.ID = id
	writeJSON(w, http.StatusCreated, toStop(stop))
}

func newStop(tripID string, day int, req stopRequest) (travel.TripStop, error) {
	loc, err := parseLocation(req.Lat, req.Lng)
	if err != nil {
		return travel.TripStop{}, err
	}
	start, err := parseClock("startTime", req.StartTime)
	if err != nil {
		return travel.TripStop{}, err
	}
	end, err := parseClock("endTime", req.EndTime)
	if err != nil {
		return travel.TripStop{}, err
	}

	category := deref(req.Category)
	if category == "" {
		category = travel.DefaultCategory
	}
	s := travel.TripStop{
		TripID:       tripID,
		Day:          day,
		Name:         deref(req.Name),
		Description:  deref(req.Description),
		Location:     loc,
		StartTime:    start,
		EndTime:      end,
		Category:     category,
		OpeningHours: req.OpeningHours,
		PlaceID:      strings.TrimSpace(req.PlaceID),
	}
	return s, checkOrder(s)
}

func (req stopRequest) patch() (travel.StopPatch, error) {
	p := travel.StopPatch{
		Name:         req.Name,
		Description:  req.Description,
		Category:     req.Category,
		OpeningHours: req.OpeningHours,
	}
	if req.StartTime != nil {
		t, err := parseClock("startTime", req.StartTime)
		if err != nil {
			return p, err
		}
		p.StartTime = &t
	}
	if req.EndTime != nil {
		t, err := parseClock("endTime", req.EndTime)
		if err != nil {
			return p, err
		}
		p.EndTime = &t
	}
	if req.Lat != nil || req.Lng != nil {
		loc, err := parseLocation(req.Lat, req.Lng)
		if err != nil {
			return p, err
		}
		p.Location = &loc
	}
	return p, nil
}

// UpdateStop handles PUT /api/v1/me/trips/{tripId}/days/{day}/stops/{stopId}.
// Changes that make the stored suggestion stale trigger a new one; a failed
// regeneration is reported in the body and does not fail the update.
func (h *Handlers) UpdateStop(w http.ResponseWriter, r *http.Request) {
	tripID, day, err := stopPath(r)
	if err != nil {
		h.writeError(w, r, err, "update stop")
		return
	}
	stopID := chi.URLParam(r, "stopId")

	var req stopRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err, "update stop")
		return
	}
	patch, err := req.patch()
	if err != nil {
		h.writeError(w, r, err, "update stop")
		return
	}
	if _, err := h.editableTrip(r.Context(), tripID, req.Email); err != nil {
		h.writeError(w, r, err, "update stop")
		return
	}

	cur, err := h.trips.GetStop(r.Context(), tripID, day, stopID)
	if err != nil {
		h.writeError(w, r, err, "update stop")
		return
	}
	updated := patch.Apply(cur)
	if err := checkOrder(updated); err != nil {
		h.writeError(w, r, err, "update stop")
		return
	}
	if err := h.trips.UpdateStop(r.Context(), updated); err != nil {
		h.writeError(w, r, err, "update stop")
		return
	}

	resp := stopUpdateResponse{Stop: toStop(updated)}
	if patch.AffectsSuggestion() {
		text, err := h.advisor.Generate(r.Context(), req.Email, tripID, day, stopID)
		if err != nil {
			h.log.Warn("suggestion refresh failed", "trip_id", tripID, "stop_id", stopID, "err", err)
			resp.AIError = err.Error()
		} else {
			resp.Refreshed = true
			resp.AISuggestion = text
			resp.Stop.AISuggestion = text
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// DeleteStop handles DELETE /api/v1/me/trips/{tripId}/days/{day}/stops/{stopId}?email=.
func (h *Handlers) DeleteStop(w http.ResponseWriter, r *http.Request) {
	tripID, day, err := stopPath(r)
	if err != nil {
		h.writeError(w, r, err, "delete stop")
		return
	}
	email, err := queryEmail(r)
	if err != nil {
		h.writeError(w, r, err, "delete stop")
		return
	}
	if _, err := h.editableTrip(r.Context(), tripID, email); err != nil {
		h.writeError(w, r, err, "delete stop")
		return
	}
	if err := h.trips.DeleteStop(r.Context(), tripID, day, chi.URLParam(r, "stopId")); err != nil {
		h.writeError(w, r, err, "delete stop")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GenerateSuggestion handles POST /api/v1/me/trips/{tripId}/days/{day}/stops/{stopId}/ai?email=.
func (h *Handlers) GenerateSuggestion(w http.ResponseWriter, r *http.Request) {
	tripID, day, err := stopPath(r)
	if err != nil {
		h.writeError(w, r, err, "generate suggestion")
		return
	}
	email, err := queryEmail(r)
	if err != nil {
		h.writeError(w, r, err, "generate suggestion")
		return
	}

	text, err := h.advisor.Generate(r.Context(), email, tripID, day, chi.URLParam(r, "stopId"))
	if err != nil {
		h.writeError(w, r, err, "generate suggestion")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"aiSuggestion": text})
}

// Feasibility handles GET /api/v1/me/trips/{tripId}/days/{day}/stops/{stopId}/feasibility?email=&mode=.
func (h *Handlers) Feasibility(w http.ResponseWriter, r *http.Request) {
	tripID, day, err := stopPath(r)
	if err != nil {
		h.writeError(w, r, err, "feasibility")
		return
	}
	email, err := queryEmail(r)
	if err != nil {
		h.writeError(w, r, err, "feasibility")
		return
	}
	stopID := chi.URLParam(r, "stopId")
	mode := itinerary.ParseMode(r.URL.Query().Get("mode"))

	a, err := h.advisor.Assess(r.Context(), email, tripID, day, stopID, mode)
	if err != nil {
		h.writeError(w, r, err, "feasibility")
		return
	}
	writeJSON(w, http.StatusOK, feasibilityResponse{
		StopID:  stopID,
		Day:     day,
		Weekday: a.Weekday.String(),
		Open:    a.Open,
		Verdict: a.Verdict,
	})
}
