package store

import (
	"context"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/planora/planora/internal/retry"
)

// Test doubles for the DB surface. fakeTx and fakeRows embed the pgx
// interfaces so only the methods the store actually calls need bodies.

type execCall struct {
	sql  string
	args []any
}

type fakeDB struct {
	mu    sync.Mutex
	calls []execCall

	// queryRow routes QueryRow by SQL content; nil falls through to a
	// no-rows result.
	queryRow  func(sql string, args []any) pgx.Row
	execErr   func(sql string) error
	beginErr  error
	commitErr error
}

func (f *fakeDB) record(sql string, args []any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, execCall{sql: sql, args: args})
}

func (f *fakeDB) callsMatching(substr string) []execCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []execCall
	for _, c := range f.calls {
		if strings.Contains(c.sql, substr) {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.record(sql, args)
	if f.execErr != nil {
		if err := f.execErr(sql); err != nil {
			return pgconn.CommandTag{}, err
		}
	}
	return pgconn.NewCommandTag("UPDATE 1"), nil
}

func (f *fakeDB) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	f.record(sql, args)
	return &fakeRows{}, nil
}

func (f *fakeDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	f.record(sql, args)
	if f.queryRow != nil {
		if row := f.queryRow(sql, args); row != nil {
			return row
		}
	}
	return fakeRow{err: pgx.ErrNoRows}
}

func (f *fakeDB) Begin(context.Context) (pgx.Tx, error) {
	if f.beginErr != nil {
		return nil, f.beginErr
	}
	return &fakeTx{db: f}, nil
}

type fakeTx struct {
	pgx.Tx
	db         *fakeDB
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return t.db.Exec(ctx, sql, args...)
}

func (t *fakeTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return t.db.Query(ctx, sql, args...)
}

func (t *fakeTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return t.db.QueryRow(ctx, sql, args...)
}

func (t *fakeTx) Commit(context.Context) error {
	t.committed = true
	return t.db.commitErr
}

func (t *fakeTx) Rollback(context.Context) error {
	t.rolledBack = true
	return nil
}

// fakeRow scans canned values into the caller's destinations.
type fakeRow struct {
	vals []any
	err  error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i := range dest {
		if i >= len(r.vals) {
			break
		}
		assign(dest[i], r.vals[i])
	}
	return nil
}

type fakeRows struct {
	pgx.Rows
}

func (r *fakeRows) Next() bool { return false }
func (r *fakeRows) Err() error { return nil }
func (r *fakeRows) Close()     {}

// assign copies val into the pointer dest, wrapping values for pointer-typed
// columns (e.g. nullable assignee_id).
func assign(dest, val any) {
	dv := reflect.ValueOf(dest).Elem()
	if val == nil {
		dv.Set(reflect.Zero(dv.Type()))
		return
	}
	v := reflect.ValueOf(val)
	switch {
	case v.Type().AssignableTo(dv.Type()):
		dv.Set(v)
	case dv.Kind() == reflect.Pointer && v.Type().AssignableTo(dv.Type().Elem()):
		p := reflect.New(dv.Type().Elem())
		p.Elem().Set(v)
		dv.Set(p)
	case v.Type().ConvertibleTo(dv.Type()):
		dv.Set(v.Convert(dv.Type()))
	default:
		panic("fakeRow: cannot assign " + v.Type().String() + " to " + dv.Type().String())
	}
}

func userRowVals(u *User) []any {
	return []any{u.ID, u.Email, u.Name, u.Phone, u.AvatarURL, u.PasswordHash, u.CreatedAt, u.UpdatedAt}
}

func newTestStore(db *fakeDB) *Store {
	// Millisecond backoff keeps any accidental retry from stalling a test.
	return New(db, retry.New(1, time.Millisecond), NewCaches(CacheTTLs{}), nil)
}
