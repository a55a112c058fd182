package store

import (
	"fmt"
	"time"

	"github.com/roach88/entries/internal/doc"
	"github.com/roach88/entries/internal/record"
)

// marshalPayload converts a payload to JSON TEXT for storage.
// Object keys are sorted so identical payloads produce identical rows.
func marshalPayload(payload doc.Value) (string, error) {
	data, err := doc.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	return string(data), nil
}

// unmarshalPayload parses stored JSON TEXT back into a payload.
// Numbers keep their literal text, so large integers survive unchanged.
func unmarshalPayload(data string) (doc.Value, error) {
	v, err := doc.Parse([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	return v, nil
}

// toMillis converts a timestamp to the stored Unix-millisecond form.
func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

// fromMillis converts a stored Unix-millisecond value to a UTC timestamp.
func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanRecord scans the columns id, type, data, created_at into a Record.
// Scan errors (including sql.ErrNoRows) are returned unwrapped.
func scanRecord(row scanner) (record.Record, error) {
	var (
		rec       record.Record
		category  string
		data      string
		createdAt int64
	)

	if err := row.Scan(&rec.ID, &category, &data, &createdAt); err != nil {
		return record.Record{}, err
	}

	payload, err := unmarshalPayload(data)
	if err != nil {
		return record.Record{}, fmt.Errorf("entry %s: %w", rec.ID, err)
	}

	rec.Category = record.Category(category)
	rec.Payload = payload
	rec.CreatedAt = fromMillis(createdAt)
	return rec, nil
}
