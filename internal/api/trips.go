package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wondermap/wondermap-api/internal/travel"
)

const defaultTripTitle = "我的行程"

type tripRequest struct {
	Email       string `json:"email"`
	Title       string `json:"title"`
	StartMillis int64  `json:"startMillis"`
	EndMillis   int64  `json:"endMillis"`
}

func validSpan(req tripRequest) error {
	if req.StartMillis <= 0 || req.EndMillis <= 0 {
		return fmt.Errorf("startMillis and endMillis are required: %w", travel.ErrValidation)
	}
	if req.EndMillis < req.StartMillis {
		return fmt.Errorf("endMillis must not be before startMillis: %w", travel.ErrValidation)
	}
	return nil
}

// ownTrip loads a trip and checks that email owns it.
func (h *Handlers) ownTrip(ctx context.Context, tripID, email string) (travel.Trip, error) {
	t, err := h.trips.GetTrip(ctx, tripID)
	if err != nil {
		return travel.Trip{}, err
	}
	if !t.IsOwner(email) {
		return travel.Trip{}, travel.ErrForbidden
	}
	return t, nil
}

// ListTrips handles GET /api/v1/me/trips?email=.
func (h *Handlers) ListTrips(w http.ResponseWriter, r *http.Request) {
	email, err := queryEmail(r)
	if err != nil {
		h.writeError(w, r, err, "list trips")
		return
	}
	trips, err := h.trips.ListTrips(r.Context(), email)
	if err != nil {
		h.writeError(w, r, err, "list trips")
		return
	}
	out := make([]tripJSON, len(trips))
	for i, t := range trips {
		out[i] = toTrip(t)
	}
	writeJSON(w, http.StatusOK, out)
}

// CreateTrip handles POST /api/v1/me/trips.
// The end is pulled in so a trip never spans more than seven days.
func (h *Handlers) CreateTrip(w http.ResponseWriter, r *http.Request) {
	var req tripRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err, "create trip")
		return
	}
	email, err := requireEmail(req.Email)
	if err != nil {
		h.writeError(w, r, err, "create trip")
		return
	}
	if err := validSpan(req); err != nil {
		h.writeError(w, r, err, "create trip")
		return
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = defaultTripTitle
	}
	start, end, days := travel.TripSpan(req.StartMillis, req.EndMillis)
	trip := travel.Trip{OwnerEmail: email, Title: title, Collaborators: []string{}, Days: days, StartDate: &start, EndDate: &end}

	id, err := h.trips.CreateTrip(r.Context(), trip)
	if err != nil {
		h.writeError(w, r, err, "create trip")
		return
	}
	trip.ID = id
	writeJSON(w, http.StatusCreated, toTrip(trip))
}

// RenameTrip handles PUT /api/v1/me/trips/{tripId}/title. Owner only.
func (h *Handlers) RenameTrip(w http.ResponseWriter, r *http.Request) {
	tripID := chi.URLParam(r, "tripId")
	var req tripRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err, "rename trip")
		return
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		h.writeError(w, r, fmt.Errorf("title is required: %w", travel.ErrValidation), "rename trip")
		return
	}
	if _, err := h.ownTrip(r.Context(), tripID, req.Email); err != nil {
		h.writeError(w, r, err, "rename trip")
		return
	}
	if err := h.trips.RenameTrip(r.Context(), tripID, title); err != nil {
		h.writeError(w, r, err, "rename trip")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetTripDates handles PUT /api/v1/me/trips/{tripId}/dates. Owner only.
func (h *Handlers) SetTripDates(w http.ResponseWriter, r *http.Request) {
	tripID := chi.URLParam(r, "tripId")
	var req tripRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err, "set trip dates")
		return
	}
	if err := validSpan(req); err != nil {
		h.writeError(w, r, err, "set trip dates")
		return
	}
	trip, err := h.ownTrip(r.Context(), tripID, req.Email)
	if err != nil {
		h.writeError(w, r, err, "set trip dates")
		return
	}

	start, end, days := travel.TripSpan(req.StartMillis, req.EndMillis)
	if err := h.trips.SetTripDates(r.Context(), tripID, start, end, days); err != nil {
		h.writeError(w, r, err, "set trip dates")
		return
	}
	trip.StartDate, trip.EndDate, trip.Days = &start, &end, days
	writeJSON(w, http.StatusOK, toTrip(trip))
}

// DeleteTrip handles DELETE /api/v1/me/trips/{tripId}?email=. Owner only.
func (h *Handlers) DeleteTrip(w http.ResponseWriter, r *http.Request) {
	h.ownerAction(w, r, "delete trip", func(ctx context.Context, tripID string) error {
		return h.trips.DeleteTrip(ctx, tripID)
	})
}

// AddCollaborator handles PUT /api/v1/me/trips/{tripId}/collaborators/{collaborator}?email=.
func (h *Handlers) AddCollaborator(w http.ResponseWriter, r *http.Request) {
	collaborator := strings.TrimSpace(chi.URLParam(r, "collaborator"))
	h.ownerAction(w, r, "add collaborator", func(ctx context.Context, tripID string) error {
		if collaborator == "" || collaborator == r.URL.Query().Get("email") {
			return fmt.Errorf("collaborator must be another user: %w", travel.ErrValidation)
		}
		return h.trips.AddCollaborator(ctx, tripID, collaborator)
	})
}

// RemoveCollaborator handles DELETE /api/v1/me/trips/{tripId}/collaborators/{collaborator}?email=.
func (h *Handlers) RemoveCollaborator(w http.ResponseWriter, r *http.Request) {
	collaborator := chi.URLParam(r, "collaborator")
	h.ownerAction(w, r, "remove collaborator", func(ctx context.Context, tripID string) error {
		return h.trips.RemoveCollaborator(ctx, tripID, collaborator)
	})
}

// ownerAction runs fn for a trip owned by the ?email= caller and answers 204.
func (h *Handlers) ownerAction(w http.ResponseWriter, r *http.Request, msg string, fn func(ctx context.Context, tripID string) error) {
	tripID := chi.URLParam(r, "tripId")
	email, err := queryEmail(r)
	if err != nil {
		h.writeError(w, r, err, msg)
		return
	}
	if _, err := h.ownTrip(r.Context(), tripID, email); err != nil {
		h.writeError(w, r, err, msg)
		return
	}
	if err := fn(r.Context(), tripID); err != nil {
		h.writeError(w, r, err, msg)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
