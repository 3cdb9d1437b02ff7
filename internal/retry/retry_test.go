package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// newTestExecutor returns an executor whose backoff is recorded instead of
// slept.
func newTestExecutor(maxRetries int, delay time.Duration) (*Executor, *[]time.Duration) {
	e := New(maxRetries, delay)
	var waits []time.Duration
	e.sleep = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}
	return e, &waits
}

func TestTransientErrorRetriedToBound(t *testing.T) {
	e, waits := newTestExecutor(3, 100*time.Millisecond)

	transient := errors.New("FATAL: too many connections for role")
	calls := 0
	err := e.Do(context.Background(), func(context.Context) error {
		calls++
		return transient
	})

	if calls != 4 {
		t.Errorf("expected maxRetries+1 = 4 invocations, got %d", calls)
	}
	if !errors.Is(err, transient) {
		t.Errorf("expected the last error to surface, got %v", err)
	}

	want := []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
	}
	if len(*waits) != len(want) {
		t.Fatalf("expected %d backoff waits, got %d", len(want), len(*waits))
	}
	for i, d := range want {
		if (*waits)[i] != d {
			t.Errorf("backoff %d: expected %v, got %v", i, d, (*waits)[i])
		}
	}
}

func TestPermanentErrorNotRetried(t *testing.T) {
	e, waits := newTestExecutor(3, time.Millisecond)

	permanent := &pgconn.PgError{Code: "23505", Message: "duplicate key value"}
	calls := 0
	err := e.Do(context.Background(), func(context.Context) error {
		calls++
		return fmt.Errorf("creating user: %w", permanent)
	})

	if calls != 1 {
		t.Errorf("expected exactly 1 invocation for a permanent error, got %d", calls)
	}
	if !errors.As(err, new(*pgconn.PgError)) {
		t.Errorf("expected pg error to surface, got %v", err)
	}
	if len(*waits) != 0 {
		t.Errorf("expected no backoff waits, got %d", len(*waits))
	}
}

func TestSuccessAfterTransientFailures(t *testing.T) {
	e, _ := newTestExecutor(3, time.Millisecond)

	calls := 0
	err := e.Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return &pgconn.PgError{Code: "40001", Message: "serialization failure"}
		}
		return nil
	})

	if err != nil {
		t.Fatalf("expected eventual success, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 invocations, got %d", calls)
	}
}

func TestCancelledContextStopsRetrying(t *testing.T) {
	e := New(5, time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())

	transient := errors.New("connection refused")
	calls := 0
	err := e.Do(ctx, func(context.Context) error {
		calls++
		cancel()
		return transient
	})

	if calls != 1 {
		t.Errorf("expected 1 invocation before cancellation stopped retries, got %d", calls)
	}
	if !errors.Is(err, transient) {
		t.Errorf("expected the operation's last error, got %v", err)
	}
}

func TestOnRetryHook(t *testing.T) {
	var attempts []int
	e := New(2, time.Millisecond, WithOnRetry(func(n int) { attempts = append(attempts, n) }))
	e.sleep = func(context.Context, time.Duration) error { return nil }

	_ = e.Do(context.Background(), func(context.Context) error {
		return errors.New("connection reset by peer")
	})

	if len(attempts) != 2 || attempts[0] != 1 || attempts[1] != 2 {
		t.Errorf("expected retry hook calls [1 2], got %v", attempts)
	}
}

func TestTransientClassification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"no rows", pgx.ErrNoRows, false},
		{"wrapped no rows", fmt.Errorf("getting user: %w", pgx.ErrNoRows), false},
		{"context canceled", context.Canceled, false},
		{"unique violation", &pgconn.PgError{Code: "23505"}, false},
		{"syntax error", &pgconn.PgError{Code: "42601"}, false},
		{"connection exception", &pgconn.PgError{Code: "08006"}, true},
		{"insufficient resources", &pgconn.PgError{Code: "53300"}, true},
		{"cannot connect now", &pgconn.PgError{Code: "57P03"}, true},
		{"serialization failure", &pgconn.PgError{Code: "40001"}, true},
		{"deadlock", &pgconn.PgError{Code: "40P01"}, true},
		{"rate limit message", errors.New("upstream rate limit exceeded"), true},
		{"connection refused message", errors.New("dial tcp: connection refused"), true},
		{"plain domain error", errors.New("event name is required"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Transient(tt.err); got != tt.want {
				t.Errorf("Transient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
