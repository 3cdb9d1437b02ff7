package store

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
)

func eventRowVals(e *Event) []any {
	return []any{
		e.ID, e.OwnerID, e.Name, e.Description, e.Location, e.Status,
		nil, nil, e.Budget, e.ExpenseTotal, e.CreatedAt, e.UpdatedAt,
	}
}

func TestUpdateEventDropsAllUserEventLists(t *testing.T) {
	now := time.Now()
	updated := &Event{ID: "ev-1", OwnerID: "owner-1", Name: "Renamed", Status: "planning", CreatedAt: now, UpdatedAt: now}
	db := &fakeDB{
		queryRow: func(sql string, _ []any) pgx.Row {
			if strings.Contains(sql, "UPDATE events SET") {
				return fakeRow{vals: eventRowVals(updated)}
			}
			return nil
		},
	}
	s := newTestStore(db)

	// Team members carry the event in their cached lists too, not just the
	// owner.
	s.caches.Events.Set(idKey("ev-1"), &Event{ID: "ev-1", Name: "Old name"})
	s.caches.Events.Set(byUserKey("owner-1"), []*Event{{ID: "ev-1", Name: "Old name"}})
	s.caches.Events.Set(byUserKey("member-2"), []*Event{{ID: "ev-1", Name: "Old name"}})

	name := "Renamed"
	if _, err := s.UpdateEvent(context.Background(), "ev-1", UpdateEventInput{Name: &name}); err != nil {
		t.Fatalf("UpdateEvent failed: %v", err)
	}

	if _, ok := s.caches.Events.Get(idKey("ev-1")); ok {
		t.Error("expected cached event to be dropped after update")
	}
	if _, ok := s.caches.Events.Get(byUserKey("owner-1")); ok {
		t.Error("expected owner's cached event list to be dropped after update")
	}
	if _, ok := s.caches.Events.Get(byUserKey("member-2")); ok {
		t.Error("expected team member's cached event list to be dropped after update")
	}
}

func TestDeleteEventDropsAllUserEventLists(t *testing.T) {
	db := &fakeDB{}
	s := newTestStore(db)

	s.caches.Events.Set(idKey("ev-1"), &Event{ID: "ev-1"})
	s.caches.Events.Set(byUserKey("owner-1"), []*Event{{ID: "ev-1"}})
	s.caches.Events.Set(byUserKey("member-2"), []*Event{{ID: "ev-1"}})

	if err := s.DeleteEvent(context.Background(), "ev-1"); err != nil {
		t.Fatalf("DeleteEvent failed: %v", err)
	}

	if _, ok := s.caches.Events.Get(idKey("ev-1")); ok {
		t.Error("expected cached event to be dropped after delete")
	}
	if _, ok := s.caches.Events.Get(byUserKey("owner-1")); ok {
		t.Error("expected owner's cached event list to be dropped after delete")
	}
	if _, ok := s.caches.Events.Get(byUserKey("member-2")); ok {
		t.Error("expected team member's cached event list to be dropped after delete")
	}

	deletes := db.callsMatching("DELETE FROM events")
	if len(deletes) != 1 {
		t.Fatalf("expected 1 delete statement, got %d", len(deletes))
	}
}
