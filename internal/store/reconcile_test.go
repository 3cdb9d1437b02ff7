package store

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
)

// survivorCheck routes the EXISTS probe MigrateUser issues first.
func survivorCheck(exists bool) func(sql string, args []any) pgx.Row {
	return func(sql string, _ []any) pgx.Row {
		if strings.Contains(sql, "SELECT EXISTS") {
			return fakeRow{vals: []any{exists}}
		}
		return nil
	}
}

func TestMigrateUserTargetExists(t *testing.T) {
	db := &fakeDB{queryRow: survivorCheck(true)}
	s := newTestStore(db)

	if err := s.MigrateUser(context.Background(), "local-1", "uuid-9"); err != nil {
		t.Fatalf("MigrateUser failed: %v", err)
	}

	// Every dependent table must get exactly one rewrite, old -> new.
	for _, fk := range userFKColumns {
		updates := db.callsMatching("UPDATE " + fk.table + " SET " + fk.column)
		if len(updates) != 1 {
			t.Fatalf("expected 1 rewrite of %s.%s, got %d", fk.table, fk.column, len(updates))
		}
		args := updates[0].args
		if len(args) != 2 || args[0] != "uuid-9" || args[1] != "local-1" {
			t.Errorf("rewrite of %s.%s got args %v, want [uuid-9 local-1]", fk.table, fk.column, args)
		}
	}

	// Pair-unique tables are deduplicated before the rewrite.
	for _, fk := range userFKColumns {
		if fk.pairUnique == "" {
			continue
		}
		if dels := db.callsMatching("DELETE FROM " + fk.table + " old"); len(dels) != 1 {
			t.Errorf("expected dedup delete for %s, got %d", fk.table, len(dels))
		}
	}

	// Branch A removes the displaced row after the rewrites commit.
	dels := db.callsMatching("DELETE FROM users")
	if len(dels) != 1 {
		t.Fatalf("expected displaced user delete, got %d", len(dels))
	}
	if dels[0].args[0] != "local-1" {
		t.Errorf("displaced delete got args %v, want [local-1]", dels[0].args)
	}

	// Branch A never re-keys the user row.
	if rekeys := db.callsMatching("UPDATE users SET id ="); len(rekeys) != 0 {
		t.Errorf("expected no re-key in branch A, got %d", len(rekeys))
	}
}

func TestMigrateUserTargetMissingRekeysInPlace(t *testing.T) {
	db := &fakeDB{queryRow: survivorCheck(false)}
	s := newTestStore(db)

	if err := s.MigrateUser(context.Background(), "local-1", "uuid-9"); err != nil {
		t.Fatalf("MigrateUser failed: %v", err)
	}

	rekeys := db.callsMatching("UPDATE users SET id =")
	if len(rekeys) != 1 {
		t.Fatalf("expected exactly one re-key, got %d", len(rekeys))
	}
	args := rekeys[0].args
	if len(args) != 2 || args[0] != "uuid-9" || args[1] != "local-1" {
		t.Errorf("re-key got args %v, want [uuid-9 local-1]", args)
	}

	// Branch B keeps the surviving row; nothing is deleted from users.
	if dels := db.callsMatching("DELETE FROM users"); len(dels) != 0 {
		t.Errorf("expected no user delete in branch B, got %d", len(dels))
	}
}

func TestMigrateUserRewriteFailureRollsBack(t *testing.T) {
	rewriteErr := errors.New("column widget_id does not exist")
	db := &fakeDB{
		queryRow: survivorCheck(true),
		execErr: func(sql string) error {
			if strings.Contains(sql, "UPDATE documents") {
				return rewriteErr
			}
			return nil
		},
	}
	s := newTestStore(db)

	err := s.MigrateUser(context.Background(), "local-1", "uuid-9")
	if !errors.Is(err, rewriteErr) {
		t.Fatalf("expected rewrite error to surface, got %v", err)
	}

	// A mid-rewrite failure must not reach the displaced-row delete.
	if dels := db.callsMatching("DELETE FROM users"); len(dels) != 0 {
		t.Errorf("expected no displaced delete after failed rewrite, got %d", len(dels))
	}
}

func TestMigrateUserFailedDeleteIsNonFatal(t *testing.T) {
	db := &fakeDB{
		queryRow: survivorCheck(true),
		execErr: func(sql string) error {
			if strings.Contains(sql, "DELETE FROM users") {
				return errors.New("update or delete on table \"users\" violates foreign key constraint")
			}
			return nil
		},
	}
	s := newTestStore(db)

	// The person's data is consistent once the rewrites commit; a leftover
	// orphan row is logged, not surfaced.
	if err := s.MigrateUser(context.Background(), "local-1", "uuid-9"); err != nil {
		t.Fatalf("expected failed displaced delete to be non-fatal, got %v", err)
	}
}

func TestMigrateUserInvalidatesCaches(t *testing.T) {
	db := &fakeDB{queryRow: survivorCheck(true)}
	s := newTestStore(db)

	old := &User{ID: "local-1", Email: "x@y.com"}
	s.caches.Users.Set(idKey("local-1"), old)
	s.caches.Users.Set(emailKey("x@y.com"), old)
	s.caches.Events.Set(byUserKey("local-1"), []*Event{{ID: "ev-1", OwnerID: "local-1"}})
	s.caches.Tasks.Set(byEventKey("ev-1"), []*Task{{ID: "t-1"}})
	s.caches.Participants.Set(memberKey("ev-1", "local-1"), &TeamMember{})

	if err := s.MigrateUser(context.Background(), "local-1", "uuid-9"); err != nil {
		t.Fatalf("MigrateUser failed: %v", err)
	}

	for name, c := range map[string]interface{ Len() int }{
		"events":       s.caches.Events,
		"tasks":        s.caches.Tasks,
		"participants": s.caches.Participants,
	} {
		if c.Len() != 0 {
			t.Errorf("expected %s cache to be dropped, %d entries remain", name, c.Len())
		}
	}
	if _, ok := s.caches.Users.Get(idKey("local-1")); ok {
		t.Error("expected user-by-id entry for the displaced id to be gone")
	}
	if _, ok := s.caches.Users.Get(emailKey("x@y.com")); ok {
		t.Error("expected user-by-email entries to be gone")
	}
}

func TestMigrateUserSameIDIsNoOp(t *testing.T) {
	db := &fakeDB{}
	s := newTestStore(db)

	if err := s.MigrateUser(context.Background(), "uuid-9", "uuid-9"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(db.calls) != 0 {
		t.Errorf("expected no store access for identical ids, got %d calls", len(db.calls))
	}
}

func TestMigrateUserRejectsEmptyIDs(t *testing.T) {
	s := newTestStore(&fakeDB{})

	if err := s.MigrateUser(context.Background(), "", "uuid-9"); err == nil {
		t.Error("expected error for empty old id")
	}
	if err := s.MigrateUser(context.Background(), "local-1", ""); err == nil {
		t.Error("expected error for empty new id")
	}
}

func TestMigrateUserSecondRunIsIdempotent(t *testing.T) {
	db := &fakeDB{queryRow: survivorCheck(true)}
	s := newTestStore(db)

	if err := s.MigrateUser(context.Background(), "local-1", "uuid-9"); err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	if err := s.MigrateUser(context.Background(), "local-1", "uuid-9"); err != nil {
		t.Fatalf("second run failed: %v", err)
	}

	// The statements are keyed on the displaced id, so the second run
	// matches zero rows; it must still issue the same bounded set rather
	// than inventing new work.
	for _, fk := range userFKColumns {
		updates := db.callsMatching("UPDATE " + fk.table + " SET " + fk.column)
		if len(updates) != 2 {
			t.Errorf("expected 2 rewrites of %s.%s across both runs, got %d", fk.table, fk.column, len(updates))
		}
	}
}

func TestLookupDisplacedUser(t *testing.T) {
	db := &fakeDB{}
	s := newTestStore(db)
	s.caches.Users.Set(emailKey("x@y.com"), &User{ID: "local-1", Email: "x@y.com"})

	u, err := s.LookupDisplacedUser(context.Background(), "x@y.com", "uuid-9")
	if err != nil {
		t.Fatalf("LookupDisplacedUser failed: %v", err)
	}
	if u == nil || u.ID != "local-1" {
		t.Fatalf("expected displaced user local-1, got %+v", u)
	}

	// Same id means nothing to reconcile.
	u, err = s.LookupDisplacedUser(context.Background(), "x@y.com", "local-1")
	if err != nil {
		t.Fatalf("LookupDisplacedUser failed: %v", err)
	}
	if u != nil {
		t.Errorf("expected nil for matching ids, got %+v", u)
	}
}
