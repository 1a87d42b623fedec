package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/wondermap/wondermap-api/internal/travel"
)

const tripColumns = `id, owner_email, title, collaborators, days, start_date, end_date, created_at`

func scanTrip(s scanner) (travel.Trip, error) {
	var (
		t    travel.Trip
		days int16
	)
	err := s.Scan(
		&t.ID,
		&t.OwnerEmail,
		&t.Title,
		&t.Collaborators,
		&days,
		&t.StartDate,
		&t.EndDate,
		&t.CreatedAt,
	)
	t.Days = int(days)
	return t, err
}

// CreateTrip inserts a trip and returns its id.
func (r *Repository) CreateTrip(ctx context.Context, t travel.Trip) (string, error) {
	const q = `
		INSERT INTO trips (id, owner_email, title, days, start_date, end_date)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	id := r.newID()
	if _, err := r.q.Exec(ctx, q, id, t.OwnerEmail, t.Title, int16(t.Days), t.StartDate, t.EndDate); err != nil {
		return "", fmt.Errorf("inserting trip for %s: %w", t.OwnerEmail, err)
	}
	return id.String(), nil
}

// GetTrip returns a trip by id, or travel.ErrNotFound.
func (r *Repository) GetTrip(ctx context.Context, id string) (travel.Trip, error) {
	tid, err := parseID("trip", id)
	if err != nil {
		return travel.Trip{}, err
	}

	const q = `SELECT ` + tripColumns + ` FROM trips WHERE id = $1`

	t, err := scanTrip(r.q.QueryRow(ctx, q, tid))
	if err != nil {
		return travel.Trip{}, notFound(err, "querying trip %s", id)
	}
	return t, nil
}

// ListTrips returns the trips email owns or collaborates on, newest first.
func (r *Repository) ListTrips(ctx context.Context, email string) ([]travel.Trip, error) {
	const q = `
		SELECT ` + tripColumns + `
		FROM trips
		WHERE owner_email = $1 OR $1 = ANY(collaborators)
		ORDER BY created_at DESC
	`

	rows, err := r.q.Query(ctx, q, email)
	if err != nil {
		return nil, fmt.Errorf("querying trips of %s: %w", email, err)
	}
	return collect(rows, "trip", scanTrip)
}

// RenameTrip changes a trip's title.
func (r *Repository) RenameTrip(ctx context.Context, id, title string) error {
	tid, err := parseID("trip", id)
	if err != nil {
		return err
	}
	return r.execOne(ctx, "renaming trip "+id, `UPDATE trips SET title = $2 WHERE id = $1`, tid, title)
}

// SetTripDates changes a trip's date range and day count.
func (r *Repository) SetTripDates(ctx context.Context, id string, start, end time.Time, days int) error {
	tid, err := parseID("trip", id)
	if err != nil {
		return err
	}

	const q = `
		UPDATE trips
		SET start_date = $2, end_date = $3, days = $4
		WHERE id = $1
	`
	return r.execOne(ctx, "changing dates of trip "+id, q, tid, start, end, int16(days))
}

// DeleteTrip removes a trip together with its stops.
func (r *Repository) DeleteTrip(ctx context.Context, id string) error {
	tid, err := parseID("trip", id)
	if err != nil {
		return err
	}
	return r.execOne(ctx, "deleting trip "+id, `DELETE FROM trips WHERE id = $1`, tid)
}

// AddCollaborator shares a trip with email. Repeated calls are no-ops.
func (r *Repository) AddCollaborator(ctx context.Context, id, email string) error {
	tid, err := parseID("trip", id)
	if err != nil {
		return err
	}

	const q = `
		UPDATE trips
		SET collaborators = CASE
		        WHEN $2 = ANY(collaborators) THEN collaborators
		        ELSE array_append(collaborators, $2::text)
		    END
		WHERE id = $1
	`
	return r.execOne(ctx, "adding collaborator to trip "+id, q, tid, email)
}

// RemoveCollaborator stops sharing a trip with email.
func (r *Repository) RemoveCollaborator(ctx context.Context, id, email string) error {
	tid, err := parseID("trip", id)
	if err != nil {
		return err
	}

	const q = `UPDATE trips SET collaborators = array_remove(collaborators, $2) WHERE id = $1`
	return r.execOne(ctx, "removing collaborator from trip "+id, q, tid, email)
}
