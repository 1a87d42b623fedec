package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/wondermap/wondermap-api/internal/itinerary"
	"github.com/wondermap/wondermap-api/internal/travel"
)

const stopColumns = `
	id, trip_id, day, name, description, lat, lng, photo_url, start_minute, end_minute,
	category, opening_hours, place_id, ai_suggestion, ai_updated_at, created_at, updated_at`

func scanStop(s scanner) (travel.TripStop, error) {
	var (
		st         travel.TripStop
		day        int16
		lat, lng   *float64
		start, end *int16
		hoursJSON  []byte
	)
	err := s.Scan(
		&st.ID,
		&st.TripID,
		&day,
		&st.Name,
		&st.Description,
		&lat,
		&lng,
		&st.PhotoURL,
		&start,
		&end,
		&st.Category,
		&hoursJSON,
		&st.PlaceID,
		&st.AISuggestion,
		&st.AIUpdatedAt,
		&st.CreatedAt,
		&st.UpdatedAt,
	)
	if err != nil {
		return travel.TripStop{}, err
	}

	st.Day = int(day)
	if lat != nil && lng != nil {
		st.Location = itinerary.NewGeoPoint(*lat, *lng)
	}
	st.StartTime = minutesToTime(start)
	st.EndTime = minutesToTime(end)

	if len(hoursJSON) > 0 {
		var h itinerary.WeeklyHours
		if err := json.Unmarshal(hoursJSON, &h); err != nil {
			return travel.TripStop{}, fmt.Errorf("unmarshaling opening hours of stop %s: %w", st.ID, err)
		}
		st.OpeningHours = &h
	}
	return st, nil
}

func minutesToTime(m *int16) *itinerary.TimeOfDay {
	if m == nil {
		return nil
	}
	t := itinerary.TimeOfDay(*m)
	return &t
}

func timeToMinutes(t *itinerary.TimeOfDay) *int16 {
	if t == nil {
		return nil
	}
	m := int16(t.Minutes())
	return &m
}

func coords(p *itinerary.GeoPoint) (lat, lng *float64) {
	if p == nil {
		return nil, nil
	}
	return &p.Lat, &p.Lng
}

func marshalHours(h *itinerary.WeeklyHours) ([]byte, error) {
	if h == nil {
		return nil, nil
	}
	return json.Marshal(h)
}

func stopKey(tripID, stopID string) (uuid.UUID, uuid.UUID, error) {
	tid, err := parseID("trip", tripID)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	sid, err := parseID("stop", stopID)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return tid, sid, nil
}

// ListStops returns the stops of one trip day in creation order.
func (r *Repository) ListStops(ctx context.Context, tripID string, day int) ([]travel.TripStop, error) {
	tid, err := parseID("trip", tripID)
	if err != nil {
		return nil, err
	}

	const q = `SELECT ` + stopColumns + `
		FROM trip_stops
		WHERE trip_id = $1 AND day = $2
		ORDER BY created_at`

	rows, err := r.q.Query(ctx, q, tid, int16(day))
	if err != nil {
		return nil, fmt.Errorf("querying stops of trip %s day %d: %w", tripID, day, err)
	}
	return collect(rows, "stop", scanStop)
}

// GetStop returns one stop of a trip day, or travel.ErrNotFound.
func (r *Repository) GetStop(ctx context.Context, tripID string, day int, stopID string) (travel.TripStop, error) {
	tid, sid, err := stopKey(tripID, stopID)
	if err != nil {
		return travel.TripStop{}, err
	}

	const q = `SELECT ` + stopColumns + `
		FROM trip_stops
		WHERE trip_id = $1 AND day = $2 AND id = $3`

	st, err := scanStop(r.q.QueryRow(ctx, q, tid, int16(day), sid))
	if err != nil {
		return travel.TripStop{}, notFound(err, "querying stop %s", stopID)
	}
	return st, nil
}

// CreateStop inserts a stop on s.TripID / s.Day and returns its id.
func (r *Repository) CreateStop(ctx context.Context, s travel.TripStop) (string, error) {
	tid, err := parseID("trip", s.TripID)
	if err != nil {
		return "", err
	}
	hours, err := marshalHours(s.OpeningHours)
	if err != nil {
		return "", fmt.Errorf("marshaling opening hours: %w", err)
	}
	lat, lng := coords(s.Location)

	const q = `
		INSERT INTO trip_stops (
			id, trip_id, day, name, description, lat, lng,
			start_minute, end_minute, category, opening_hours, place_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	id := r.newID()
	_, err = r.q.Exec(ctx, q,
		id, tid, int16(s.Day), s.Name, s.Description, lat, lng,
		timeToMinutes(s.StartTime), timeToMinutes(s.EndTime), s.Category, hours, s.PlaceID,
	)
	if err != nil {
		return "", fmt.Errorf("inserting stop on trip %s day %d: %w", s.TripID, s.Day, err)
	}
	return id.String(), nil
}

// UpdateStop writes back the editable fields of s.
func (r *Repository) UpdateStop(ctx context.Context, s travel.TripStop) error {
	tid, sid, err := stopKey(s.TripID, s.ID)
	if err != nil {
		return err
	}
	hours, err := marshalHours(s.OpeningHours)
	if err != nil {
		return fmt.Errorf("marshaling opening hours: %w", err)
	}
	lat, lng := coords(s.Location)

	const q = `
		UPDATE trip_stops
		SET name          = $4,
		    description   = $5,
		    category      = $6,
		    lat           = $7,
		    lng           = $8,
		    start_minute  = $9,
		    end_minute    = $10,
		    opening_hours = $11,
		    updated_at    = NOW()
		WHERE trip_id = $1 AND day = $2 AND id = $3
	`
	return r.execOne(ctx, "updating stop "+s.ID, q,
		tid, int16(s.Day), sid, s.Name, s.Description, s.Category, lat, lng,
		timeToMinutes(s.StartTime), timeToMinutes(s.EndTime), hours,
	)
}

// SetStopHours caches fetched opening hours on a stop.
func (r *Repository) SetStopHours(ctx context.Context, tripID string, day int, stopID string, hours itinerary.WeeklyHours) error {
	tid, sid, err := stopKey(tripID, stopID)
	if err != nil {
		return err
	}
	b, err := json.Marshal(hours)
	if err != nil {
		return fmt.Errorf("marshaling opening hours: %w", err)
	}

	const q = `
		UPDATE trip_stops
		SET opening_hours = $4, updated_at = NOW()
		WHERE trip_id = $1 AND day = $2 AND id = $3
	`
	return r.execOne(ctx, "setting hours of stop "+stopID, q, tid, int16(day), sid, b)
}

// SetStopSuggestion stores a generated suggestion and stamps ai_updated_at.
func (r *Repository) SetStopSuggestion(ctx context.Context, tripID string, day int, stopID, text string) error {
	tid, sid, err := stopKey(tripID, stopID)
	if err != nil {
		return err
	}

	const q = `
		UPDATE trip_stops
		SET ai_suggestion = $4, ai_updated_at = NOW()
		WHERE trip_id = $1 AND day = $2 AND id = $3
	`
	return r.execOne(ctx, "saving suggestion of stop "+stopID, q, tid, int16(day), sid, text)
}

// DeleteStop removes a stop from a trip day.
func (r *Repository) DeleteStop(ctx context.Context, tripID string, day int, stopID string) error {
	tid, sid, err := stopKey(tripID, stopID)
	if err != nil {
		return err
	}
	return r.execOne(ctx, "deleting stop "+stopID,
		`DELETE FROM trip_stops WHERE trip_id = $1 AND day = $2 AND id = $3`, tid, int16(day), sid)
}
