package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const vendorColumns = `id, event_id, name, category, contact_email, phone, website, notes, status, created_at, updated_at`

func scanVendor(row pgx.Row) (*Vendor, error) {
	v := &Vendor{}
	err := row.Scan(
		&v.ID,
		&v.EventID,
		&v.Name,
		&v.Category,
		&v.ContactEmail,
		&v.Phone,
		&v.Website,
		&v.Notes,
		&v.Status,
		&v.CreatedAt,
		&v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// CreateVendor inserts a new vendor under an event.
func (s *Store) CreateVendor(ctx context.Context, in CreateVendorInput) (*Vendor, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("creating vendor: name is required")
	}
	if in.EventID == "" {
		return nil, fmt.Errorf("creating vendor: event id is required")
	}
	status := in.Status
	if status == "" {
		status = "contacted"
	}

	var v *Vendor
	err := s.retry.Do(ctx, func(ctx context.Context) error {
		var opErr error
		v, opErr = scanVendor(s.db.QueryRow(ctx,
			`INSERT INTO vendors (id, event_id, name, category, contact_email, phone, website, notes, status)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			 RETURNING `+vendorColumns,
			uuid.NewString(), in.EventID, in.Name, in.Category, in.ContactEmail,
			in.Phone, in.Website, in.Notes, status,
		))
		if opErr != nil {
			return fmt.Errorf("creating vendor: %w", opErr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

// GetVendor retrieves a vendor by id. Returns nil without error when no such
// vendor exists.
func (s *Store) GetVendor(ctx context.Context, id string) (*Vendor, error) {
	var v *Vendor
	err := s.retry.Do(ctx, func(ctx context.Context) error {
		got, opErr := scanVendor(s.db.QueryRow(ctx,
			`SELECT `+vendorColumns+` FROM vendors WHERE id = $1`, id))
		if errors.Is(opErr, pgx.ErrNoRows) {
			return nil
		}
		if opErr != nil {
			return fmt.Errorf("getting vendor: %w", opErr)
		}
		v = got
		return nil
	})
	return v, err
}

// GetVendorsByEvent returns every vendor under the event.
func (s *Store) GetVendorsByEvent(ctx context.Context, eventID string) ([]*Vendor, error) {
	var vendors []*Vendor
	err := s.retry.Do(ctx, func(ctx context.Context) error {
		rows, opErr := s.db.Query(ctx,
			`SELECT `+vendorColumns+` FROM vendors WHERE event_id = $1 ORDER BY name`, eventID)
		if opErr != nil {
			return fmt.Errorf("listing vendors by event: %w", opErr)
		}
		defer rows.Close()

		vendors = nil
		for rows.Next() {
			v, opErr := scanVendor(rows)
			if opErr != nil {
				return fmt.Errorf("scanning vendor row: %w", opErr)
			}
			vendors = append(vendors, v)
		}
		if opErr := rows.Err(); opErr != nil {
			return fmt.Errorf("iterating vendor rows: %w", opErr)
		}
		return nil
	})
	return vendors, err
}

// UpdateVendor performs a partial update on the vendor with the given id.
// Returns nil without error when no such vendor exists.
func (s *Store) UpdateVendor(ctx context.Context, id string, in UpdateVendorInput) (*Vendor, error) {
	var setClauses []string
	var args []any
	argIdx := 1

	set := func(column string, value any) {
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, argIdx))
		args = append(args, value)
		argIdx++
	}
	if in.Name != nil {
		set("name", *in.Name)
	}
	if in.Category != nil {
		set("category", *in.Category)
	}
	if in.ContactEmail != nil {
		set("contact_email", *in.ContactEmail)
	}
	if in.Phone != nil {
		set("phone", *in.Phone)
	}
	if in.Website != nil {
		set("website", *in.Website)
	}
	if in.Notes != nil {
		set("notes", *in.Notes)
	}
	if in.Status != nil {
		set("status", *in.Status)
	}

	if len(setClauses) == 0 {
		return s.GetVendor(ctx, id)
	}

	setClauses = append(setClauses, "updated_at = now()")
	args = append(args, id)
	query := fmt.Sprintf(
		`UPDATE vendors SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(setClauses, ", "), argIdx, vendorColumns,
	)

	var v *Vendor
	err := s.retry.Do(ctx, func(ctx context.Context) error {
		got, opErr := scanVendor(s.db.QueryRow(ctx, query, args...))
		if errors.Is(opErr, pgx.ErrNoRows) {
			v = nil
			return nil
		}
		if opErr != nil {
			return fmt.Errorf("updating vendor: %w", opErr)
		}
		v = got
		return nil
	})
	return v, err
}

// DeleteVendor removes a vendor. Expenses referencing it keep their rows
// with the vendor reference cleared.
func (s *Store) DeleteVendor(ctx context.Context, id string) error {
	return s.retry.Do(ctx, func(ctx context.Context) error {
		if _, opErr := s.db.Exec(ctx, `DELETE FROM vendors WHERE id = $1`, id); opErr != nil {
			return fmt.Errorf("deleting vendor: %w", opErr)
		}
		return nil
	})
}
