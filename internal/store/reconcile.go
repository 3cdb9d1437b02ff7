package store

import (
	"context"
	"fmt"
	"log/slog"
)

// userFKColumns lists every table/column pair that stores a user identifier.
// These are exactly the columns the identity reconciler rewrites; a new table
// referencing users must be added here.
var userFKColumns = []struct {
	table  string
	column string
	// pairUnique marks tables with a unique (parent, user) pair where a
	// blind rewrite could collide with a row the survivor already has.
	pairUnique string // the companion column of the unique pair, if any
}{
	{table: "events", column: "owner_id"},
	{table: "team_members", column: "user_id", pairUnique: "event_id"},
	{table: "tasks", column: "assignee_id"},
	{table: "task_assignees", column: "user_id", pairUnique: "task_id"},
	{table: "documents", column: "uploaded_by_id"},
	{table: "activity_log", column: "user_id"},
}

// MigrateUser collapses two user rows that refer to the same physical person
// into the single surviving identifier newID, rewriting every dependent
// foreign key that pointed at oldID. The same person accumulates two rows
// when a legacy local-auth account and a newer identity-provider account
// share an email.
//
// The dependent-table rewrites run in one transaction: a mid-flight failure
// leaves the pre-migration state intact, never a half-migrated one. Runs are
// serialized per (oldID, newID) pair, and the routine is idempotent — a
// second call finds no rows still referencing oldID and changes nothing.
func (s *Store) MigrateUser(ctx context.Context, oldID, newID string) error {
	if oldID == "" || newID == "" {
		return fmt.Errorf("migrating user: both identifiers are required")
	}
	if oldID == newID {
		return nil
	}

	_, err, _ := s.reconciling.Do(oldID+"\x00"+newID, func() (any, error) {
		return nil, s.migrateUser(ctx, oldID, newID)
	})
	if err != nil {
		if s.observer != nil {
			s.observer.Reconciliation("error")
		}
		return err
	}
	if s.observer != nil {
		s.observer.Reconciliation("ok")
	}
	return nil
}

func (s *Store) migrateUser(ctx context.Context, oldID, newID string) error {
	var survivorExists bool
	err := s.retry.Do(ctx, func(ctx context.Context) error {
		if opErr := s.db.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, newID,
		).Scan(&survivorExists); opErr != nil {
			return fmt.Errorf("checking survivor row: %w", opErr)
		}
		return nil
	})
	if err != nil {
		return err
	}

	err = s.retry.Do(ctx, func(ctx context.Context) error {
		return s.execTx(ctx, func(q Querier) error {
			if err := rewriteUserForeignKeys(ctx, q, oldID, newID); err != nil {
				return err
			}
			if survivorExists {
				return nil
			}
			// No row under newID: re-key the surviving row in place. The
			// user FKs are deferred, so ordering within the transaction
			// does not matter.
			if _, opErr := q.Exec(ctx,
				`UPDATE users SET id = $1, updated_at = now() WHERE id = $2`,
				newID, oldID); opErr != nil {
				return fmt.Errorf("re-keying user row: %w", opErr)
			}
			return nil
		})
	})
	if err != nil {
		return err
	}

	if survivorExists {
		// The displaced row carries no references any more. A failed delete
		// leaves an orphan row — a cleanup nuisance, not an inconsistency —
		// so it is logged and the migration still counts as done.
		delErr := s.retry.Do(ctx, func(ctx context.Context) error {
			if _, opErr := s.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, oldID); opErr != nil {
				return fmt.Errorf("deleting displaced user row: %w", opErr)
			}
			return nil
		})
		if delErr != nil {
			slog.Warn("identity merge complete but displaced user row remains",
				"old_id", oldID,
				"new_id", newID,
				"error", delErr,
			)
		}
	}

	s.invalidateReconciled(oldID, newID)
	slog.Info("user identity reconciled",
		"old_id", oldID,
		"survivor_id", newID,
		"target_existed", survivorExists,
	)
	return nil
}

// rewriteUserForeignKeys updates every dependent table so rows that
// referenced oldID reference newID. Table and column names come from the
// fixed userFKColumns list, never from input; all values are parameterized.
func rewriteUserForeignKeys(ctx context.Context, q Querier, oldID, newID string) error {
	for _, fk := range userFKColumns {
		if fk.pairUnique != "" {
			// Drop the old-id row wherever the survivor already holds the
			// same membership, or the rewrite would collide with the
			// unique (parent, user) constraint.
			del := fmt.Sprintf(
				`DELETE FROM %[1]s old WHERE old.%[2]s = $2 AND EXISTS (
					SELECT 1 FROM %[1]s cur
					WHERE cur.%[3]s = old.%[3]s AND cur.%[2]s = $1)`,
				fk.table, fk.column, fk.pairUnique)
			if _, err := q.Exec(ctx, del, newID, oldID); err != nil {
				return fmt.Errorf("deduplicating %s.%s: %w", fk.table, fk.column, err)
			}
		}

		update := fmt.Sprintf(`UPDATE %s SET %s = $1 WHERE %s = $2`,
			fk.table, fk.column, fk.column)
		if _, err := q.Exec(ctx, update, newID, oldID); err != nil {
			return fmt.Errorf("rewriting %s.%s: %w", fk.table, fk.column, err)
		}
	}
	return nil
}

// invalidateReconciled drops every cached view computed under the old
// identity mapping. User entries are dropped by key; the scoped families are
// cleared wholesale because entries like a task-by-id view can embed either
// identifier under keys that name neither. Reconciliation is rare enough
// that a full drop costs nothing.
func (s *Store) invalidateReconciled(oldID, newID string) {
	s.caches.Users.Invalidate(idKey(oldID))
	s.caches.Users.Invalidate(idKey(newID))
	s.caches.Users.Invalidate("email:")
	s.caches.Events.Invalidate("")
	s.caches.Tasks.Invalidate("")
	s.caches.Documents.Invalidate("")
	s.caches.Participants.Invalidate("")
}

// LookupDisplacedUser returns the user row still stored under the legacy id
// for the given email when it differs from claimedID, or nil when there is
// nothing to reconcile. The auth boundary calls this before MigrateUser.
func (s *Store) LookupDisplacedUser(ctx context.Context, email, claimedID string) (*User, error) {
	if email == "" || claimedID == "" {
		return nil, nil
	}
	u, err := s.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if u == nil || u.ID == claimedID {
		return nil, nil
	}
	return u, nil
}
