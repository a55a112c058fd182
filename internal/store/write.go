package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/entries/internal/doc"
	"github.com/roach88/entries/internal/record"
)

// Create inserts a new record with a generated id and the current time.
//
// Returns a ValidationError if the category is not declared or the payload
// is missing or a scalar. Any database failure is returned as a StoreError.
func (s *Store) Create(ctx context.Context, category record.Category, payload doc.Value) (record.Record, error) {
	if err := record.ValidateWrite(category, payload); err != nil {
		return record.Record{}, err
	}

	dataJSON, err := marshalPayload(payload)
	if err != nil {
		return record.Record{}, &record.ValidationError{Field: "data", Message: err.Error(), Err: err}
	}

	rec := record.Record{
		ID:        s.ids.Generate(),
		Category:  category,
		Payload:   payload,
		CreatedAt: record.Timestamp(s.clock.Now()),
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO entries (id, type, data, created_at)
		VALUES (?, ?, ?, ?)
	`,
		rec.ID,
		string(rec.Category),
		dataJSON,
		toMillis(rec.CreatedAt),
	)
	if err != nil {
		return record.Record{}, record.WrapStoreError("create entry", err)
	}

	return rec, nil
}

// Update replaces the payload of the record matching category and id and
// returns the updated record. The match and the write are one statement.
//
// Returns record.ErrNotFound if no record matches both fields.
func (s *Store) Update(ctx context.Context, category record.Category, id string, payload doc.Value) (record.Record, error) {
	if err := record.ValidatePayload(payload); err != nil {
		return record.Record{}, err
	}

	dataJSON, err := marshalPayload(payload)
	if err != nil {
		return record.Record{}, &record.ValidationError{Field: "data", Message: err.Error(), Err: err}
	}

	row := s.db.QueryRowContext(ctx, `
		UPDATE entries SET data = ?
		WHERE id = ? AND type = ?
		RETURNING id, type, data, created_at
	`, dataJSON, id, string(category))

	rec, err := scanRecord(row)
	if err != nil {
		return record.Record{}, classify("update entry", err)
	}
	return rec, nil
}

// Delete removes the record matching category and id and returns its
// final state.
//
// Returns record.ErrNotFound if no record matches both fields.
func (s *Store) Delete(ctx context.Context, category record.Category, id string) (record.Record, error) {
	row := s.db.QueryRowContext(ctx, `
		DELETE FROM entries
		WHERE id = ? AND type = ?
		RETURNING id, type, data, created_at
	`, id, string(category))

	rec, err := scanRecord(row)
	if err != nil {
		return record.Record{}, classify("delete entry", err)
	}
	return rec, nil
}

// classify maps sql.ErrNoRows to record.ErrNotFound and wraps everything
// else as a StoreError.
func classify(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, record.ErrNotFound)
	}
	return record.WrapStoreError(op, err)
}
