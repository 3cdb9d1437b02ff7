package store

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
)

func expenseRowVals(e *Expense) []any {
	var vendorID any
	if e.VendorID != nil {
		vendorID = *e.VendorID
	}
	return []any{e.ID, e.EventID, vendorID, e.Name, e.Category, e.Amount, nil, e.CreatedAt, e.UpdatedAt}
}

func TestCreateExpenseRecomputesEventTotal(t *testing.T) {
	now := time.Now()
	inserted := &Expense{ID: "ex-1", EventID: "ev-1", Name: "Catering deposit", Amount: 1200, CreatedAt: now, UpdatedAt: now}
	db := &fakeDB{
		queryRow: func(sql string, _ []any) pgx.Row {
			if strings.Contains(sql, "INSERT INTO expenses") {
				return fakeRow{vals: expenseRowVals(inserted)}
			}
			return nil
		},
	}
	s := newTestStore(db)
	s.caches.Events.Set(idKey("ev-1"), &Event{ID: "ev-1", ExpenseTotal: 0})

	e, err := s.CreateExpense(context.Background(), CreateExpenseInput{
		EventID: "ev-1",
		Name:    "Catering deposit",
		Amount:  1200,
	})
	if err != nil {
		t.Fatalf("CreateExpense failed: %v", err)
	}
	if e.ID != "ex-1" {
		t.Errorf("unexpected expense: %+v", e)
	}

	// The aggregate is recomputed by summing the dependent table, not
	// incrementally adjusted.
	recomputes := db.callsMatching("SET expense_total = (SELECT COALESCE(SUM(amount)")
	if len(recomputes) != 1 {
		t.Fatalf("expected 1 expense total recompute, got %d", len(recomputes))
	}
	if recomputes[0].args[0] != "ev-1" {
		t.Errorf("recompute got args %v, want [ev-1]", recomputes[0].args)
	}

	// The event embeds the total, so its cached view must be dropped.
	if _, ok := s.caches.Events.Get(idKey("ev-1")); ok {
		t.Error("expected cached event to be invalidated after expense write")
	}
}

func TestCreateExpenseDropsUserEventLists(t *testing.T) {
	now := time.Now()
	inserted := &Expense{ID: "ex-1", EventID: "ev-1", Name: "Venue deposit", Amount: 800, CreatedAt: now, UpdatedAt: now}
	db := &fakeDB{
		queryRow: func(sql string, _ []any) pgx.Row {
			if strings.Contains(sql, "INSERT INTO expenses") {
				return fakeRow{vals: expenseRowVals(inserted)}
			}
			return nil
		},
	}
	s := newTestStore(db)

	// Cached per-user lists embed the event with its pre-write total, for
	// the owner and for a team member alike.
	s.caches.Events.Set(byUserKey("owner-1"), []*Event{{ID: "ev-1", ExpenseTotal: 0}})
	s.caches.Events.Set(byUserKey("member-2"), []*Event{{ID: "ev-1", ExpenseTotal: 0}})

	if _, err := s.CreateExpense(context.Background(), CreateExpenseInput{
		EventID: "ev-1",
		Name:    "Venue deposit",
		Amount:  800,
	}); err != nil {
		t.Fatalf("CreateExpense failed: %v", err)
	}

	if _, ok := s.caches.Events.Get(byUserKey("owner-1")); ok {
		t.Error("expected owner's cached event list to be dropped after expense write")
	}
	if _, ok := s.caches.Events.Get(byUserKey("member-2")); ok {
		t.Error("expected team member's cached event list to be dropped after expense write")
	}

	// A list read right after the write must go back to the store rather
	// than serve the stale total.
	listsBefore := len(db.callsMatching("FROM events"))
	if _, err := s.GetEventsByUser(context.Background(), "owner-1"); err != nil {
		t.Fatalf("GetEventsByUser failed: %v", err)
	}
	if got := len(db.callsMatching("FROM events")); got != listsBefore+1 {
		t.Errorf("expected a store query for the event list after the expense write, got %d new queries", got-listsBefore)
	}
}

func TestCreateExpenseValidation(t *testing.T) {
	s := newTestStore(&fakeDB{})

	if _, err := s.CreateExpense(context.Background(), CreateExpenseInput{EventID: "ev-1"}); err == nil {
		t.Error("expected error for missing name")
	}
	if _, err := s.CreateExpense(context.Background(), CreateExpenseInput{Name: "Flowers"}); err == nil {
		t.Error("expected error for missing event id")
	}
}

func TestDeleteExpenseMissingIsNoOp(t *testing.T) {
	db := &fakeDB{} // delete-returning falls through to no rows
	s := newTestStore(db)
	s.caches.Events.Set(idKey("ev-1"), &Event{ID: "ev-1"})

	if err := s.DeleteExpense(context.Background(), "gone"); err != nil {
		t.Fatalf("expected missing expense delete to be a no-op, got %v", err)
	}
	if recomputes := db.callsMatching("SET expense_total"); len(recomputes) != 0 {
		t.Errorf("expected no recompute for a missing expense, got %d", len(recomputes))
	}
	if _, ok := s.caches.Events.Get(idKey("ev-1")); !ok {
		t.Error("expected unrelated cached event to survive")
	}
}
