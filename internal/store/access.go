package store

import "context"

// HasUserAccessToEvent decides whether userID may act on eventID: owners are
// granted immediately without further lookups, everyone else needs a team
// membership row. An empty userID is denied without touching the store, and
// a missing event denies rather than erroring — "not found" is a normal
// authorization outcome here, not a failure.
//
// This is the plain-access contract only. Mutation privilege is the separate,
// stricter CanManageEvent check; callers needing it must ask for it
// explicitly.
func (s *Store) HasUserAccessToEvent(ctx context.Context, userID, eventID string) (bool, error) {
	if userID == "" {
		return false, nil
	}

	event, err := s.GetEvent(ctx, eventID)
	if err != nil {
		return false, err
	}
	if event == nil {
		return false, nil
	}
	if event.OwnerID == userID {
		return true, nil
	}

	member, err := s.GetTeamMember(ctx, eventID, userID)
	if err != nil {
		return false, err
	}
	return member != nil, nil
}

// CanManageEvent reports whether userID may perform destructive operations
// on the event (delete it, remove team members): the owner always can, and
// so can members holding the organizer role.
func (s *Store) CanManageEvent(ctx context.Context, userID, eventID string) (bool, error) {
	if userID == "" {
		return false, nil
	}

	event, err := s.GetEvent(ctx, eventID)
	if err != nil {
		return false, err
	}
	if event == nil {
		return false, nil
	}
	if event.OwnerID == userID {
		return true, nil
	}

	member, err := s.GetTeamMember(ctx, eventID, userID)
	if err != nil {
		return false, err
	}
	return member != nil && member.Role == "organizer", nil
}
