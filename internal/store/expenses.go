package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const expenseColumns = `id, event_id, vendor_id, name, category, amount, incurred_at, created_at, updated_at`

func scanExpense(row pgx.Row) (*Expense, error) {
	e := &Expense{}
	err := row.Scan(
		&e.ID,
		&e.EventID,
		&e.VendorID,
		&e.Name,
		&e.Category,
		&e.Amount,
		&e.IncurredAt,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// recomputeExpenseTotal refreshes the parent event's denormalized expense
// total by summing the dependent table. Always a full recompute — never an
// incremental adjustment — so a partially-failed earlier write cannot leave
// drift behind.
func recomputeExpenseTotal(ctx context.Context, q Querier, eventID string) error {
	_, err := q.Exec(ctx,
		`UPDATE events
		 SET expense_total = (SELECT COALESCE(SUM(amount), 0) FROM expenses WHERE event_id = $1),
		     updated_at = now()
		 WHERE id = $1`, eventID)
	if err != nil {
		return fmt.Errorf("recomputing expense total: %w", err)
	}
	return nil
}

// CreateExpense inserts an expense and recomputes the event's expense total
// in the same transaction.
func (s *Store) CreateExpense(ctx context.Context, in CreateExpenseInput) (*Expense, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("creating expense: name is required")
	}
	if in.EventID == "" {
		return nil, fmt.Errorf("creating expense: event id is required")
	}

	var e *Expense
	err := s.retry.Do(ctx, func(ctx context.Context) error {
		return s.execTx(ctx, func(q Querier) error {
			var opErr error
			e, opErr = scanExpense(q.QueryRow(ctx,
				`INSERT INTO expenses (id, event_id, vendor_id, name, category, amount, incurred_at)
				 VALUES ($1, $2, $3, $4, $5, $6, $7)
				 RETURNING `+expenseColumns,
				uuid.NewString(), in.EventID, in.VendorID, in.Name, in.Category, in.Amount, in.IncurredAt,
			))
			if opErr != nil {
				return fmt.Errorf("creating expense: %w", opErr)
			}
			return recomputeExpenseTotal(ctx, q, in.EventID)
		})
	})
	if err != nil {
		return nil, err
	}

	// The event embeds the aggregate, so its cached views are stale now.
	s.invalidateEventViews(e.EventID)
	return e, nil
}

// GetExpense retrieves an expense by id. Returns nil without error when no
// such expense exists.
func (s *Store) GetExpense(ctx context.Context, id string) (*Expense, error) {
	var e *Expense
	err := s.retry.Do(ctx, func(ctx context.Context) error {
		got, opErr := scanExpense(s.db.QueryRow(ctx,
			`SELECT `+expenseColumns+` FROM expenses WHERE id = $1`, id))
		if errors.Is(opErr, pgx.ErrNoRows) {
			return nil
		}
		if opErr != nil {
			return fmt.Errorf("getting expense: %w", opErr)
		}
		e = got
		return nil
	})
	return e, err
}

// GetExpensesByEvent returns every expense under the event, newest first.
func (s *Store) GetExpensesByEvent(ctx context.Context, eventID string) ([]*Expense, error) {
	var expenses []*Expense
	err := s.retry.Do(ctx, func(ctx context.Context) error {
		rows, opErr := s.db.Query(ctx,
			`SELECT `+expenseColumns+` FROM expenses WHERE event_id = $1 ORDER BY created_at DESC`, eventID)
		if opErr != nil {
			return fmt.Errorf("listing expenses by event: %w", opErr)
		}
		defer rows.Close()

		expenses = nil
		for rows.Next() {
			e, opErr := scanExpense(rows)
			if opErr != nil {
				return fmt.Errorf("scanning expense row: %w", opErr)
			}
			expenses = append(expenses, e)
		}
		if opErr := rows.Err(); opErr != nil {
			return fmt.Errorf("iterating expense rows: %w", opErr)
		}
		return nil
	})
	return expenses, err
}

// UpdateExpense performs a partial update and recomputes the event's expense
// total in the same transaction. Returns nil without error when no such
// expense exists.
func (s *Store) UpdateExpense(ctx context.Context, id string, in UpdateExpenseInput) (*Expense, error) {
	var setClauses []string
	var args []any
	argIdx := 1

	if in.VendorID != nil {
		setClauses = append(setClauses, fmt.Sprintf("vendor_id = NULLIF($%d, '')", argIdx))
		args = append(args, *in.VendorID)
		argIdx++
	}
	if in.Name != nil {
		setClauses = append(setClauses, fmt.Sprintf("name = $%d", argIdx))
		args = append(args, *in.Name)
		argIdx++
	}
	if in.Category != nil {
		setClauses = append(setClauses, fmt.Sprintf("category = $%d", argIdx))
		args = append(args, *in.Category)
		argIdx++
	}
	if in.Amount != nil {
		setClauses = append(setClauses, fmt.Sprintf("amount = $%d", argIdx))
		args = append(args, *in.Amount)
		argIdx++
	}
	if in.IncurredAt != nil {
		setClauses = append(setClauses, fmt.Sprintf("incurred_at = $%d", argIdx))
		args = append(args, *in.IncurredAt)
		argIdx++
	}

	if len(setClauses) == 0 {
		return s.GetExpense(ctx, id)
	}

	setClauses = append(setClauses, "updated_at = now()")
	args = append(args, id)
	query := fmt.Sprintf(
		`UPDATE expenses SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(setClauses, ", "), argIdx, expenseColumns,
	)

	var e *Expense
	err := s.retry.Do(ctx, func(ctx context.Context) error {
		return s.execTx(ctx, func(q Querier) error {
			got, opErr := scanExpense(q.QueryRow(ctx, query, args...))
			if errors.Is(opErr, pgx.ErrNoRows) {
				e = nil
				return nil
			}
			if opErr != nil {
				return fmt.Errorf("updating expense: %w", opErr)
			}
			e = got
			return recomputeExpenseTotal(ctx, q, e.EventID)
		})
	})
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, nil
	}

	s.invalidateEventViews(e.EventID)
	return e, nil
}

// DeleteExpense removes an expense and recomputes the event's expense total
// in the same transaction. Deleting a missing expense is a no-op.
func (s *Store) DeleteExpense(ctx context.Context, id string) error {
	var eventID string
	err := s.retry.Do(ctx, func(ctx context.Context) error {
		return s.execTx(ctx, func(q Querier) error {
			eventID = ""
			opErr := q.QueryRow(ctx,
				`DELETE FROM expenses WHERE id = $1 RETURNING event_id`, id,
			).Scan(&eventID)
			if errors.Is(opErr, pgx.ErrNoRows) {
				return nil
			}
			if opErr != nil {
				return fmt.Errorf("deleting expense: %w", opErr)
			}
			return recomputeExpenseTotal(ctx, q, eventID)
		})
	})
	if err != nil {
		return err
	}

	if eventID != "" {
		s.invalidateEventViews(eventID)
	}
	return nil
}
