package store

import (
	"context"

	"github.com/roach88/entries/internal/record"
)

// List returns all records of a category ordered by created_at ASC, id ASC.
//
// Returns an empty slice (not nil) if no records exist for the category.
func (s *Store) List(ctx context.Context, category record.Category) ([]record.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, type, data, created_at
		FROM entries
		WHERE type = ?
		ORDER BY created_at ASC, id COLLATE BINARY ASC
	`, string(category))
	if err != nil {
		return nil, record.WrapStoreError("list entries", err)
	}
	defer rows.Close()

	records := []record.Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, record.WrapStoreError("list entries", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, record.WrapStoreError("list entries", err)
	}

	return records, nil
}

// Get retrieves the record matching both category and id.
//
// Returns record.ErrNotFound if the id is unknown or belongs to another category.
func (s *Store) Get(ctx context.Context, category record.Category, id string) (record.Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, type, data, created_at
		FROM entries
		WHERE id = ? AND type = ?
	`, id, string(category))

	rec, err := scanRecord(row)
	if err != nil {
		return record.Record{}, classify("get entry", err)
	}
	return rec, nil
}
