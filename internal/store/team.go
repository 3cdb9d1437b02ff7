package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

const memberColumns = `event_id, user_id, role, permissions, created_at`

func scanTeamMember(row pgx.Row) (*TeamMember, error) {
	m := &TeamMember{}
	var permissionsJSON []byte
	err := row.Scan(&m.EventID, &m.UserID, &m.Role, &permissionsJSON, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	if len(permissionsJSON) > 0 {
		if err := json.Unmarshal(permissionsJSON, &m.Permissions); err != nil {
			return nil, fmt.Errorf("unmarshaling permissions: %w", err)
		}
	}
	return m, nil
}

// AddTeamMember adds a user to an event's team, or updates the role and
// permissions when a membership row already exists. At most one row per
// (event, user) pair, always.
func (s *Store) AddTeamMember(ctx context.Context, in AddTeamMemberInput) (*TeamMember, error) {
	if in.EventID == "" || in.UserID == "" {
		return nil, fmt.Errorf("adding team member: event id and user id are required")
	}
	role := in.Role
	if role == "" {
		role = "member"
	}
	permissionsJSON, err := json.Marshal(in.Permissions)
	if err != nil {
		return nil, fmt.Errorf("marshaling permissions: %w", err)
	}

	var m *TeamMember
	err = s.retry.Do(ctx, func(ctx context.Context) error {
		var opErr error
		m, opErr = scanTeamMember(s.db.QueryRow(ctx,
			`INSERT INTO team_members (event_id, user_id, role, permissions)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (event_id, user_id)
			 DO UPDATE SET role = EXCLUDED.role, permissions = EXCLUDED.permissions
			 RETURNING `+memberColumns,
			in.EventID, in.UserID, role, permissionsJSON,
		))
		if opErr != nil {
			return fmt.Errorf("adding team member: %w", opErr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateMembership(in.EventID, in.UserID)
	return m, nil
}

// GetTeamMember retrieves the membership row for the given (event, user)
// pair. Returns nil without error when the user is not on the team.
func (s *Store) GetTeamMember(ctx context.Context, eventID, userID string) (*TeamMember, error) {
	key := memberKey(eventID, userID)
	return cachedRead(ctx, s, s.caches.Participants, "participants", key, func(ctx context.Context) (*TeamMember, error) {
		m, err := scanTeamMember(s.db.QueryRow(ctx,
			`SELECT `+memberColumns+` FROM team_members WHERE event_id = $1 AND user_id = $2`,
			eventID, userID))
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("getting team member: %w", err)
		}
		return m, nil
	})
}

// GetTeamMembers returns every membership row for the event.
func (s *Store) GetTeamMembers(ctx context.Context, eventID string) ([]*TeamMember, error) {
	return cachedRead(ctx, s, s.caches.Participants, "participants", byEventKey(eventID), func(ctx context.Context) ([]*TeamMember, error) {
		rows, err := s.db.Query(ctx,
			`SELECT `+memberColumns+` FROM team_members WHERE event_id = $1 ORDER BY created_at`,
			eventID)
		if err != nil {
			return nil, fmt.Errorf("listing team members: %w", err)
		}
		defer rows.Close()

		var members []*TeamMember
		for rows.Next() {
			m, err := scanTeamMember(rows)
			if err != nil {
				return nil, fmt.Errorf("scanning team member row: %w", err)
			}
			members = append(members, m)
		}
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("iterating team member rows: %w", err)
		}
		return members, nil
	})
}

// RemoveTeamMember deletes the membership row for the given (event, user)
// pair. Removing a non-member is a no-op.
func (s *Store) RemoveTeamMember(ctx context.Context, eventID, userID string) error {
	err := s.retry.Do(ctx, func(ctx context.Context) error {
		if _, opErr := s.db.Exec(ctx,
			`DELETE FROM team_members WHERE event_id = $1 AND user_id = $2`,
			eventID, userID); opErr != nil {
			return fmt.Errorf("removing team member: %w", opErr)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.invalidateMembership(eventID, userID)
	return nil
}

func (s *Store) invalidateMembership(eventID, userID string) {
	s.caches.Participants.Invalidate(memberKey(eventID, userID))
	s.caches.Participants.Invalidate(byEventKey(eventID))
	// Membership feeds the user's event list.
	s.caches.Events.Invalidate(byUserKey(userID))
}
