package storage_test

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wondermap/wondermap-api/internal/storage"
	"github.com/wondermap/wondermap-api/internal/travel"
)

// ---- mock Querier ----

type mockQuerier struct {
	queryRowFn func(ctx context.Context, sql string, args ...any) pgx.Row
	queryFn    func(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	execFn     func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func (m *mockQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return m.queryRowFn(ctx, sql, args...)
}
func (m *mockQuerier) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return m.queryFn(ctx, sql, args...)
}
func (m *mockQuerier) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return m.execFn(ctx, sql, args...)
}

// ---- mock pgx.Row ----

type fakeRow struct {
	values []any
	err    error
}

func (f *fakeRow) Scan(dest ...any) error {
	if f.err != nil {
		return f.err
	}
	return assign(dest, f.values)
}

// ---- mock pgx.Rows ----

type fakeRows struct {
	rows    [][]any
	idx     int
	rowErr  error
	scanErr error
}

func (f *fakeRows) Next() bool                                   { f.idx++; return f.idx <= len(f.rows) }
func (f *fakeRows) Err() error                                   { return f.rowErr }
func (f *fakeRows) Close()                                       {}
func (f *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (f *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (f *fakeRows) Values() ([]any, error)                       { return nil, nil }
func (f *fakeRows) RawValues() [][]byte                          { return nil }
func (f *fakeRows) Conn() *pgx.Conn                              { return nil }

func (f *fakeRows) Scan(dest ...any) error {
	if f.scanErr != nil {
		return f.scanErr
	}
	return assign(dest, f.rows[f.idx-1])
}

// assign copies values into scan destinations; a nil value zeroes the target.
func assign(dest []any, values []any) error {
	if len(dest) != len(values) {
		return fmt.Errorf("scan: %d destinations for %d values", len(dest), len(values))
	}
	for i, d := range dest {
		target := reflect.ValueOf(d).Elem()
		if values[i] == nil {
			target.Set(reflect.Zero(target.Type()))
			continue
		}
		v := reflect.ValueOf(values[i])
		if !v.Type().AssignableTo(target.Type()) {
			return fmt.Errorf("scan column %d: cannot assign %s to %s", i, v.Type(), target.Type())
		}
		target.Set(v)
	}
	return nil
}

// ---- helpers ----

const (
	postID = "7f1c2a4e-5b6d-4e8f-9a0b-1c2d3e4f5a6b"
	tripID = "0e9d8c7b-6a5f-4e3d-2c1b-0a9f8e7d6c5b"
	stopID = "3a4b5c6d-7e8f-4091-a2b3-c4d5e6f7a8b9"
)

func ptr[T any](v T) *T { return &v }

func rowOf(values ...any) func(context.Context, string, ...any) pgx.Row {
	return func(context.Context, string, ...any) pgx.Row { return &fakeRow{values: values} }
}

func noRows(context.Context, string, ...any) pgx.Row { return &fakeRow{err: pgx.ErrNoRows} }

func captureExec(tag string, sql *string, args *[]any) func(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return func(_ context.Context, s string, a ...any) (pgconn.CommandTag, error) {
		if sql != nil {
			*sql = s
		}
		if args != nil {
			*args = a
		}
		return pgconn.NewCommandTag(tag), nil
	}
}

func postRow(id, owner, name string, created time.Time) []any {
	return []any{id, owner, name, "美食", false, 3, created, created}
}

// ---- Repository basics ----

func TestNewRepository_NotNil(t *testing.T) {
	assert.NotNil(t, storage.NewRepository(nil))
}

func TestExecOne_ZeroRowsIsNotFound(t *testing.T) {
	repo := storage.NewRepositoryWithQuerier(&mockQuerier{execFn: captureExec("UPDATE 0", nil, nil)})

	err := repo.RenameTrip(context.Background(), tripID, "新名字")

	require.Error(t, err)
	assert.True(t, errors.Is(err, travel.ErrNotFound))
}

func TestExecOne_DBError(t *testing.T) {
	repo := storage.NewRepositoryWithQuerier(&mockQuerier{
		execFn: func(context.Context, string, ...any) (pgconn.CommandTag, error) {
			return pgconn.CommandTag{}, fmt.Errorf("connection reset")
		},
	})

	err := repo.DeletePost(context.Background(), postID)

	require.Error(t, err)
	assert.False(t, errors.Is(err, travel.ErrNotFound))
	assert.Contains(t, err.Error(), "deleting post")
}

func TestMalformedIDIsNotFound(t *testing.T) {
	// Any call into the querier would panic on the nil function fields.
	repo := storage.NewRepositoryWithQuerier(&mockQuerier{})
	ctx := context.Background()

	_, err := repo.GetPost(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, travel.ErrNotFound)

	_, err = repo.GetTrip(ctx, "123")
	assert.ErrorIs(t, err, travel.ErrNotFound)

	_, err = repo.GetStop(ctx, tripID, 1, "nope")
	assert.ErrorIs(t, err, travel.ErrNotFound)

	err = repo.DeleteSpot(ctx, postID, "nope")
	assert.ErrorIs(t, err, travel.ErrNotFound)

	spots, err := repo.ListSpots(ctx, "nope")
	require.NoError(t, err)
	assert.Empty(t, spots)
}

// ---- Blobs ----

func TestGetBlob_Found(t *testing.T) {
	repo := storage.NewRepositoryWithQuerier(&mockQuerier{queryRowFn: rowOf("image/jpeg", []byte{0xff, 0xd8})})

	ct, data, err := repo.GetBlob(context.Background(), "users/a@b.c/profile_1.jpg")

	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", ct)
	assert.Equal(t, []byte{0xff, 0xd8}, data)
}

func TestGetBlob_NotFound(t *testing.T) {
	repo := storage.NewRepositoryWithQuerier(&mockQuerier{queryRowFn: noRows})

	_, _, err := repo.GetBlob(context.Background(), "missing")

	assert.ErrorIs(t, err, travel.ErrNotFound)
}

func TestPutBlob_Args(t *testing.T) {
	var args []any
	repo := storage.NewRepositoryWithQuerier(&mockQuerier{execFn: captureExec("INSERT 0 1", nil, &args)})

	err := repo.PutBlob(context.Background(), "k", "image/jpeg", []byte("x"))

	require.NoError(t, err)
	assert.Equal(t, []any{"k", "image/jpeg", []byte("x")}, args)
}
