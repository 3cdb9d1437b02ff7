package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const documentColumns = `id, event_id, uploaded_by_id, name, content_type, size_bytes, storage_key, created_at`

func scanDocument(row pgx.Row) (*Document, error) {
	d := &Document{}
	err := row.Scan(
		&d.ID,
		&d.EventID,
		&d.UploadedByID,
		&d.Name,
		&d.ContentType,
		&d.SizeBytes,
		&d.StorageKey,
		&d.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// CreateDocument records metadata for an uploaded file. The file bytes
// themselves live in external storage under in.StorageKey.
func (s *Store) CreateDocument(ctx context.Context, in CreateDocumentInput) (*Document, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("creating document: name is required")
	}
	if in.EventID == "" || in.UploadedByID == "" {
		return nil, fmt.Errorf("creating document: event id and uploader id are required")
	}

	var d *Document
	err := s.retry.Do(ctx, func(ctx context.Context) error {
		var opErr error
		d, opErr = scanDocument(s.db.QueryRow(ctx,
			`INSERT INTO documents (id, event_id, uploaded_by_id, name, content_type, size_bytes, storage_key)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 RETURNING `+documentColumns,
			uuid.NewString(), in.EventID, in.UploadedByID, in.Name, in.ContentType, in.SizeBytes, in.StorageKey,
		))
		if opErr != nil {
			return fmt.Errorf("creating document: %w", opErr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateDocument(d.ID, d.EventID)
	return d, nil
}

// GetDocument retrieves a document by id. Returns nil without error when no
// such document exists.
func (s *Store) GetDocument(ctx context.Context, id string) (*Document, error) {
	return cachedRead(ctx, s, s.caches.Documents, "documents", idKey(id), func(ctx context.Context) (*Document, error) {
		d, err := scanDocument(s.db.QueryRow(ctx,
			`SELECT `+documentColumns+` FROM documents WHERE id = $1`, id))
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("getting document: %w", err)
		}
		return d, nil
	})
}

// GetDocumentsByEvent returns every document under the event, newest first.
func (s *Store) GetDocumentsByEvent(ctx context.Context, eventID string) ([]*Document, error) {
	return cachedRead(ctx, s, s.caches.Documents, "documents", byEventKey(eventID), func(ctx context.Context) ([]*Document, error) {
		rows, err := s.db.Query(ctx,
			`SELECT `+documentColumns+` FROM documents WHERE event_id = $1 ORDER BY created_at DESC`, eventID)
		if err != nil {
			return nil, fmt.Errorf("listing documents by event: %w", err)
		}
		defer rows.Close()

		var docs []*Document
		for rows.Next() {
			d, err := scanDocument(rows)
			if err != nil {
				return nil, fmt.Errorf("scanning document row: %w", err)
			}
			docs = append(docs, d)
		}
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("iterating document rows: %w", err)
		}
		return docs, nil
	})
}

// DeleteDocument removes a document's metadata row. Cleaning up the stored
// bytes is the caller's concern.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	var eventID string
	if d, err := s.GetDocument(ctx, id); err != nil {
		return err
	} else if d != nil {
		eventID = d.EventID
	}

	err := s.retry.Do(ctx, func(ctx context.Context) error {
		if _, opErr := s.db.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id); opErr != nil {
			return fmt.Errorf("deleting document: %w", opErr)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.invalidateDocument(id, eventID)
	return nil
}

func (s *Store) invalidateDocument(id, eventID string) {
	s.caches.Documents.Invalidate(idKey(id))
	if eventID != "" {
		s.caches.Documents.Invalidate(byEventKey(eventID))
	}
}
