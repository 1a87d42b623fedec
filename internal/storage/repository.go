// Package storage persists profiles, posts, trips, stops and uploaded blobs
// in PostgreSQL.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wondermap/wondermap-api/internal/travel"
)

// Querier abstracts the subset of pgxpool.Pool used by Repository.
// This allows injection of a mock in tests.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Repository provides database access for every record the API serves.
type Repository struct {
	q     Querier
	newID func() uuid.UUID
}

// NewRepository constructs a Repository backed by the given pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return NewRepositoryWithQuerier(pool)
}

// NewRepositoryWithQuerier constructs a Repository with a custom Querier (for tests).
func NewRepositoryWithQuerier(q Querier) *Repository {
	return &Repository{q: q, newID: uuid.New}
}

// scanner is satisfied by both pgx.Row and pgx.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// parseID validates a caller-supplied record id. Anything that is not a UUID
// cannot exist, so it reports ErrNotFound rather than a database error.
func parseID(kind, id string) (uuid.UUID, error) {
	u, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s %q: %w", kind, id, travel.ErrNotFound)
	}
	return u, nil
}

// notFound maps pgx.ErrNoRows to travel.ErrNotFound and wraps anything else.
func notFound(err error, format string, args ...any) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf(format+": %w", append(args, travel.ErrNotFound)...)
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// execOne runs a statement that must touch exactly one row.
func (r *Repository) execOne(ctx context.Context, what, sql string, args ...any) error {
	tag, err := r.q.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", what, travel.ErrNotFound)
	}
	return nil
}

func collect[T any](rows pgx.Rows, what string, scan func(scanner) (T, error)) ([]T, error) {
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning %s row: %w", what, err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s rows: %w", what, err)
	}
	return out, nil
}
