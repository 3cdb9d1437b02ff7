package store

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
)

func TestGetUserReadThrough(t *testing.T) {
	now := time.Now()
	stored := &User{ID: "u-1", Email: "a@b.com", Name: "Ada", CreatedAt: now, UpdatedAt: now}
	db := &fakeDB{
		queryRow: func(sql string, args []any) pgx.Row {
			if strings.Contains(sql, "FROM users WHERE id") && args[0] == "u-1" {
				return fakeRow{vals: userRowVals(stored)}
			}
			return nil
		},
	}
	s := newTestStore(db)

	u, err := s.GetUser(context.Background(), "u-1")
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if u == nil || u.Email != "a@b.com" {
		t.Fatalf("unexpected user: %+v", u)
	}

	// Second read must come from the cache.
	if _, err := s.GetUser(context.Background(), "u-1"); err != nil {
		t.Fatalf("cached GetUser failed: %v", err)
	}
	if got := len(db.callsMatching("FROM users WHERE id")); got != 1 {
		t.Errorf("expected 1 store query across both reads, got %d", got)
	}
}

func TestGetUserNotFoundIsNilNotError(t *testing.T) {
	db := &fakeDB{}
	s := newTestStore(db)

	u, err := s.GetUser(context.Background(), "nope")
	if err != nil {
		t.Fatalf("expected not-found to be a normal outcome, got %v", err)
	}
	if u != nil {
		t.Errorf("expected nil user, got %+v", u)
	}
}

func TestUpsertUserInvalidatesCachedViews(t *testing.T) {
	now := time.Now()
	fresh := &User{ID: "u-1", Email: "a@b.com", Name: "Ada Lovelace", CreatedAt: now, UpdatedAt: now}
	db := &fakeDB{
		queryRow: func(sql string, _ []any) pgx.Row {
			if strings.Contains(sql, "INSERT INTO users") {
				return fakeRow{vals: userRowVals(fresh)}
			}
			return nil
		},
	}
	s := newTestStore(db)
	s.caches.Users.Set(idKey("u-1"), &User{ID: "u-1", Name: "Ada"})
	s.caches.Users.Set(emailKey("a@b.com"), &User{ID: "u-1", Name: "Ada"})

	if _, err := s.UpsertUser(context.Background(), UpsertUserInput{ID: "u-1", Email: "a@b.com", Name: "Ada Lovelace"}); err != nil {
		t.Fatalf("UpsertUser failed: %v", err)
	}

	if _, ok := s.caches.Users.Get(idKey("u-1")); ok {
		t.Error("expected user-by-id entry to be invalidated after write")
	}
	if _, ok := s.caches.Users.Get(emailKey("a@b.com")); ok {
		t.Error("expected user-by-email entry to be invalidated after write")
	}
}

func TestUpsertUserRequiresEmail(t *testing.T) {
	s := newTestStore(&fakeDB{})
	if _, err := s.UpsertUser(context.Background(), UpsertUserInput{ID: "u-1"}); err == nil {
		t.Error("expected error for missing email")
	}
}

func TestFindOrCreateUserReturnsExisting(t *testing.T) {
	db := &fakeDB{}
	s := newTestStore(db)
	existing := &User{ID: "u-1", Email: "a@b.com"}
	s.caches.Users.Set(emailKey("a@b.com"), existing)

	u, err := s.FindOrCreateUserByEmail(context.Background(), "a@b.com", "", "")
	if err != nil {
		t.Fatalf("FindOrCreateUserByEmail failed: %v", err)
	}
	if u != existing {
		t.Errorf("expected the existing user, got %+v", u)
	}
	if inserts := db.callsMatching("INSERT INTO users"); len(inserts) != 0 {
		t.Errorf("expected no insert for an existing email, got %d", len(inserts))
	}
}

func TestFailedWriteLeavesCacheUntouched(t *testing.T) {
	db := &fakeDB{
		queryRow: func(sql string, _ []any) pgx.Row {
			if strings.Contains(sql, "INSERT INTO users") {
				return fakeRow{err: pgx.ErrTxClosed}
			}
			return nil
		},
	}
	s := newTestStore(db)
	cached := &User{ID: "u-1", Email: "a@b.com"}
	s.caches.Users.Set(idKey("u-1"), cached)

	if _, err := s.UpsertUser(context.Background(), UpsertUserInput{ID: "u-1", Email: "a@b.com"}); err == nil {
		t.Fatal("expected the write failure to surface")
	}

	// Invalidation happens only after a confirmed successful write; the
	// failed write did not take effect, so the cached view is still right.
	if v, ok := s.caches.Users.Get(idKey("u-1")); !ok || v != any(cached) {
		t.Error("expected cache entry to survive a failed write")
	}
}
