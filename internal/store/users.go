package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const userColumns = `id, email, name, phone, avatar_url, password_hash, created_at, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	u := &User{}
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.Name,
		&u.Phone,
		&u.AvatarURL,
		&u.PasswordHash,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// GetUser retrieves a user by id. Returns nil without error when no such
// user exists.
func (s *Store) GetUser(ctx context.Context, id string) (*User, error) {
	return cachedRead(ctx, s, s.caches.Users, "users", idKey(id), func(ctx context.Context) (*User, error) {
		u, err := scanUser(s.db.QueryRow(ctx,
			`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("getting user by id: %w", err)
		}
		return u, nil
	})
}

// GetUserByEmail retrieves a user by email (case-sensitive, as stored).
// Returns nil without error when no such user exists.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return cachedRead(ctx, s, s.caches.Users, "users", emailKey(email), func(ctx context.Context) (*User, error) {
		u, err := scanUser(s.db.QueryRow(ctx,
			`SELECT `+userColumns+` FROM users WHERE email = $1`, email))
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("getting user by email: %w", err)
		}
		return u, nil
	})
}

// UpsertUser inserts a user or, when a row with the same id exists,
// refreshes its profile fields. Used on every authenticated sign-in so
// provider profile changes flow through.
func (s *Store) UpsertUser(ctx context.Context, in UpsertUserInput) (*User, error) {
	if in.ID == "" {
		in.ID = uuid.NewString()
	}
	if strings.TrimSpace(in.Email) == "" {
		return nil, fmt.Errorf("upserting user: email is required")
	}

	var u *User
	err := s.retry.Do(ctx, func(ctx context.Context) error {
		var opErr error
		u, opErr = scanUser(s.db.QueryRow(ctx,
			`INSERT INTO users (id, email, name, phone, avatar_url, password_hash)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 ON CONFLICT (id) DO UPDATE SET
				email = EXCLUDED.email,
				name = EXCLUDED.name,
				phone = CASE WHEN EXCLUDED.phone <> '' THEN EXCLUDED.phone ELSE users.phone END,
				avatar_url = CASE WHEN EXCLUDED.avatar_url <> '' THEN EXCLUDED.avatar_url ELSE users.avatar_url END,
				updated_at = now()
			 RETURNING `+userColumns,
			in.ID, in.Email, in.Name, in.Phone, in.AvatarURL, in.PasswordHash,
		))
		if opErr != nil {
			return fmt.Errorf("upserting user: %w", opErr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateUser(u.ID, u.Email)
	return u, nil
}

// UpdateUser performs a partial update on the user with the given id.
// Returns nil without error when no such user exists.
func (s *Store) UpdateUser(ctx context.Context, id string, in UpdateUserInput) (*User, error) {
	var setClauses []string
	var args []any
	argIdx := 1

	if in.Email != nil {
		setClauses = append(setClauses, fmt.Sprintf("email = $%d", argIdx))
		args = append(args, *in.Email)
		argIdx++
	}
	if in.Name != nil {
		setClauses = append(setClauses, fmt.Sprintf("name = $%d", argIdx))
		args = append(args, *in.Name)
		argIdx++
	}
	if in.Phone != nil {
		setClauses = append(setClauses, fmt.Sprintf("phone = $%d", argIdx))
		args = append(args, *in.Phone)
		argIdx++
	}
	if in.AvatarURL != nil {
		setClauses = append(setClauses, fmt.Sprintf("avatar_url = $%d", argIdx))
		args = append(args, *in.AvatarURL)
		argIdx++
	}

	if len(setClauses) == 0 {
		return s.GetUser(ctx, id)
	}

	setClauses = append(setClauses, "updated_at = now()")
	args = append(args, id)
	query := fmt.Sprintf(
		`UPDATE users SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(setClauses, ", "), argIdx, userColumns,
	)

	var u *User
	err := s.retry.Do(ctx, func(ctx context.Context) error {
		var opErr error
		u, opErr = scanUser(s.db.QueryRow(ctx, query, args...))
		if errors.Is(opErr, pgx.ErrNoRows) {
			u = nil
			return nil
		}
		if opErr != nil {
			return fmt.Errorf("updating user: %w", opErr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, nil
	}

	s.invalidateUser(u.ID, u.Email)
	if in.Email != nil {
		// The row may have been reachable under its previous address.
		s.caches.Users.Invalidate("email:")
	}
	return u, nil
}

// FindOrCreateUserByEmail returns the user with the given email, creating a
// placeholder account first when none exists. This is the team-invite path:
// inviting someone who has never signed in still needs a user row to hang
// the membership on. Safe under concurrent calls for the same email.
func (s *Store) FindOrCreateUserByEmail(ctx context.Context, email, name, phone string) (*User, error) {
	if strings.TrimSpace(email) == "" {
		return nil, fmt.Errorf("finding or creating user: email is required")
	}

	if u, err := s.GetUserByEmail(ctx, email); err != nil || u != nil {
		return u, err
	}

	if name == "" {
		name = email[:strings.IndexByte(email+"@", '@')]
	}

	var u *User
	err := s.retry.Do(ctx, func(ctx context.Context) error {
		// The no-op update makes RETURNING yield the existing row when a
		// concurrent create won the race.
		var opErr error
		u, opErr = scanUser(s.db.QueryRow(ctx,
			`INSERT INTO users (id, email, name, phone)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (email) DO UPDATE SET email = EXCLUDED.email
			 RETURNING `+userColumns,
			uuid.NewString(), email, name, phone,
		))
		if opErr != nil {
			return fmt.Errorf("creating user by email: %w", opErr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateUser(u.ID, u.Email)
	return u, nil
}

func (s *Store) invalidateUser(id, email string) {
	s.caches.Users.Invalidate(idKey(id))
	if email != "" {
		s.caches.Users.Invalidate(emailKey(email))
	}
}
