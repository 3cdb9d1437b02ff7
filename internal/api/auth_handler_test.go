package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	dto "github.com/prometheus/client_model/go"

	"github.com/planora/planora/internal/auth"
	"github.com/planora/planora/internal/metrics"
	"github.com/planora/planora/internal/retry"
	"github.com/planora/planora/internal/store"
)

// emptyDB satisfies store.DB with a database that holds no rows.
type emptyDB struct{}

func (emptyDB) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (emptyDB) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, pgx.ErrNoRows
}

func (emptyDB) QueryRow(context.Context, string, ...any) pgx.Row { return noRow{} }

func (emptyDB) Begin(context.Context) (pgx.Tx, error) { return nil, pgx.ErrTxClosed }

type noRow struct{}

func (noRow) Scan(...any) error { return pgx.ErrNoRows }

func newTestAuthHandler(t *testing.T) (*authHandler, *metrics.Metrics) {
	t.Helper()
	m := metrics.New()
	st := store.New(emptyDB{}, retry.New(1, time.Millisecond), nil, nil)
	svc := auth.NewService(st, "test-secret", time.Hour)
	return newAuthHandler(svc, m), m
}

func TestLoginFailureCountsAuthMetric(t *testing.T) {
	h, m := newTestAuthHandler(t)

	body := strings.NewReader(`{"email":"ghost@example.com","password":"nope"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", body)
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unknown user, got %d", rec.Code)
	}

	var pb dto.Metric
	if err := m.AuthFailuresTotal.WithLabelValues("login").Write(&pb); err != nil {
		t.Fatalf("reading counter: %v", err)
	}
	if got := pb.GetCounter().GetValue(); got != 1 {
		t.Errorf("login failure counter = %v, want 1", got)
	}
}

func TestLoginBadBodyDoesNotCountAuthMetric(t *testing.T) {
	h, m := newTestAuthHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{broken`))
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed body, got %d", rec.Code)
	}

	var pb dto.Metric
	if err := m.AuthFailuresTotal.WithLabelValues("login").Write(&pb); err != nil {
		t.Fatalf("reading counter: %v", err)
	}
	if got := pb.GetCounter().GetValue(); got != 0 {
		t.Errorf("login failure counter = %v, want 0 for a parse error", got)
	}
}

func TestAuthHandlerNilMetricsIsSafe(t *testing.T) {
	st := store.New(emptyDB{}, retry.New(1, time.Millisecond), nil, nil)
	svc := auth.NewService(st, "test-secret", time.Hour)
	h := newAuthHandler(svc, nil)

	body := strings.NewReader(`{"email":"ghost@example.com","password":"nope"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", body)
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 with nil metrics, got %d", rec.Code)
	}
}
