package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const eventColumns = `id, owner_id, name, description, location, status,
	starts_at, ends_at, budget, expense_total, created_at, updated_at`

func scanEvent(row pgx.Row) (*Event, error) {
	e := &Event{}
	err := row.Scan(
		&e.ID,
		&e.OwnerID,
		&e.Name,
		&e.Description,
		&e.Location,
		&e.Status,
		&e.StartsAt,
		&e.EndsAt,
		&e.Budget,
		&e.ExpenseTotal,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// CreateEvent inserts a new event owned by in.OwnerID.
func (s *Store) CreateEvent(ctx context.Context, in CreateEventInput) (*Event, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("creating event: name is required")
	}
	if in.OwnerID == "" {
		return nil, fmt.Errorf("creating event: owner id is required")
	}
	status := in.Status
	if status == "" {
		status = "planning"
	}

	var e *Event
	err := s.retry.Do(ctx, func(ctx context.Context) error {
		var opErr error
		e, opErr = scanEvent(s.db.QueryRow(ctx,
			`INSERT INTO events (id, owner_id, name, description, location, status, starts_at, ends_at, budget)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			 RETURNING `+eventColumns,
			uuid.NewString(), in.OwnerID, in.Name, in.Description, in.Location,
			status, in.StartsAt, in.EndsAt, in.Budget,
		))
		if opErr != nil {
			return fmt.Errorf("creating event: %w", opErr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.caches.Events.Invalidate(idKey(e.ID))
	s.caches.Events.Invalidate(byUserKey(e.OwnerID))
	return e, nil
}

// GetEvent retrieves an event by id. Returns nil without error when no such
// event exists.
func (s *Store) GetEvent(ctx context.Context, id string) (*Event, error) {
	return cachedRead(ctx, s, s.caches.Events, "events", idKey(id), func(ctx context.Context) (*Event, error) {
		e, err := scanEvent(s.db.QueryRow(ctx,
			`SELECT `+eventColumns+` FROM events WHERE id = $1`, id))
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("getting event: %w", err)
		}
		return e, nil
	})
}

// GetEventsByUser returns every event the user owns or belongs to as a team
// member, newest first.
func (s *Store) GetEventsByUser(ctx context.Context, userID string) ([]*Event, error) {
	return cachedRead(ctx, s, s.caches.Events, "events", byUserKey(userID), func(ctx context.Context) ([]*Event, error) {
		rows, err := s.db.Query(ctx,
			`SELECT `+eventColumns+` FROM events
			 WHERE owner_id = $1
			    OR id IN (SELECT event_id FROM team_members WHERE user_id = $1)
			 ORDER BY created_at DESC`, userID)
		if err != nil {
			return nil, fmt.Errorf("listing events by user: %w", err)
		}
		defer rows.Close()

		var events []*Event
		for rows.Next() {
			e, err := scanEvent(rows)
			if err != nil {
				return nil, fmt.Errorf("scanning event row: %w", err)
			}
			events = append(events, e)
		}
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("iterating event rows: %w", err)
		}
		return events, nil
	})
}

// UpdateEvent performs a partial update on the event with the given id.
// Returns nil without error when no such event exists.
func (s *Store) UpdateEvent(ctx context.Context, id string, in UpdateEventInput) (*Event, error) {
	var setClauses []string
	var args []any
	argIdx := 1

	if in.Name != nil {
		setClauses = append(setClauses, fmt.Sprintf("name = $%d", argIdx))
		args = append(args, *in.Name)
		argIdx++
	}
	if in.Description != nil {
		setClauses = append(setClauses, fmt.Sprintf("description = $%d", argIdx))
		args = append(args, *in.Description)
		argIdx++
	}
	if in.Location != nil {
		setClauses = append(setClauses, fmt.Sprintf("location = $%d", argIdx))
		args = append(args, *in.Location)
		argIdx++
	}
	if in.Status != nil {
		setClauses = append(setClauses, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, *in.Status)
		argIdx++
	}
	if in.StartsAt != nil {
		setClauses = append(setClauses, fmt.Sprintf("starts_at = $%d", argIdx))
		args = append(args, *in.StartsAt)
		argIdx++
	}
	if in.EndsAt != nil {
		setClauses = append(setClauses, fmt.Sprintf("ends_at = $%d", argIdx))
		args = append(args, *in.EndsAt)
		argIdx++
	}
	if in.Budget != nil {
		setClauses = append(setClauses, fmt.Sprintf("budget = $%d", argIdx))
		args = append(args, *in.Budget)
		argIdx++
	}

	if len(setClauses) == 0 {
		return s.GetEvent(ctx, id)
	}

	setClauses = append(setClauses, "updated_at = now()")
	args = append(args, id)
	query := fmt.Sprintf(
		`UPDATE events SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(setClauses, ", "), argIdx, eventColumns,
	)

	var e *Event
	err := s.retry.Do(ctx, func(ctx context.Context) error {
		var opErr error
		e, opErr = scanEvent(s.db.QueryRow(ctx, query, args...))
		if errors.Is(opErr, pgx.ErrNoRows) {
			e = nil
			return nil
		}
		if opErr != nil {
			return fmt.Errorf("updating event: %w", opErr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, nil
	}

	s.invalidateEventViews(e.ID)
	return e, nil
}

// DeleteEvent removes an event; dependent rows go with it via cascading
// foreign keys.
func (s *Store) DeleteEvent(ctx context.Context, id string) error {
	err := s.retry.Do(ctx, func(ctx context.Context) error {
		if _, opErr := s.db.Exec(ctx, `DELETE FROM events WHERE id = $1`, id); opErr != nil {
			return fmt.Errorf("deleting event: %w", opErr)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.invalidateEventViews(id)
	s.invalidateEventScoped(id)
	return nil
}

// invalidateEventViews drops the event's cached record and every cached
// user-scoped event list. Team membership means any user's list may embed
// the event, so the lists are dropped wholesale rather than enumerated.
func (s *Store) invalidateEventViews(eventID string) {
	s.caches.Events.Invalidate(idKey(eventID))
	s.caches.Events.Invalidate("user:")
}

// invalidateEventScoped drops every per-event derived view across the
// scoped cache families.
func (s *Store) invalidateEventScoped(eventID string) {
	s.caches.Tasks.Invalidate(byEventKey(eventID))
	s.caches.Documents.Invalidate(byEventKey(eventID))
	s.caches.Participants.Invalidate(byEventKey(eventID))
	s.caches.Participants.Invalidate("member:" + eventID + ":")
}
