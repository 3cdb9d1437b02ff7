package store

import (
	"context"
	"fmt"
)

// RecordActivity appends an entry to the event's activity log.
func (s *Store) RecordActivity(ctx context.Context, eventID, userID, action, detail string) error {
	if eventID == "" || action == "" {
		return fmt.Errorf("recording activity: event id and action are required")
	}
	return s.retry.Do(ctx, func(ctx context.Context) error {
		if _, opErr := s.db.Exec(ctx,
			`INSERT INTO activity_log (event_id, user_id, action, detail)
			 VALUES ($1, $2, $3, $4)`,
			eventID, userID, action, detail); opErr != nil {
			return fmt.Errorf("recording activity: %w", opErr)
		}
		return nil
	})
}

// GetActivityByEvent returns up to limit recent entries for the event,
// newest first. Non-positive limits default to 50.
func (s *Store) GetActivityByEvent(ctx context.Context, eventID string, limit int) ([]*ActivityEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	var entries []*ActivityEntry
	err := s.retry.Do(ctx, func(ctx context.Context) error {
		rows, opErr := s.db.Query(ctx,
			`SELECT id, event_id, user_id, action, detail, created_at
			 FROM activity_log WHERE event_id = $1
			 ORDER BY created_at DESC, id DESC
			 LIMIT $2`, eventID, limit)
		if opErr != nil {
			return fmt.Errorf("listing activity: %w", opErr)
		}
		defer rows.Close()

		entries = nil
		for rows.Next() {
			e := &ActivityEntry{}
			if opErr := rows.Scan(&e.ID, &e.EventID, &e.UserID, &e.Action, &e.Detail, &e.CreatedAt); opErr != nil {
				return fmt.Errorf("scanning activity row: %w", opErr)
			}
			entries = append(entries, e)
		}
		if opErr := rows.Err(); opErr != nil {
			return fmt.Errorf("iterating activity rows: %w", opErr)
		}
		return nil
	})
	return entries, err
}
