package record

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/entries/internal/doc"
)

// Store is the category-scoped record store.
//
// Get, Update and Delete must match on category and id in a single
// lookup, never by id first and category second.
type Store interface {
	// Create persists a new record with a fresh id and the current time.
	Create(ctx context.Context, category Category, payload doc.Value) (Record, error)

	// List returns every record of the category. The slice is empty, not
	// nil, when there are none.
	List(ctx context.Context, category Category) ([]Record, error)

	// Get returns the record with the given category and id, or ErrNotFound.
	Get(ctx context.Context, category Category, id string) (Record, error)

	// Update replaces the payload wholesale and returns the updated record,
	// or ErrNotFound.
	Update(ctx context.Context, category Category, id string, payload doc.Value) (Record, error)

	// Delete removes the record and returns its last state, or ErrNotFound.
	Delete(ctx context.Context, category Category, id string) (Record, error)

	// Close releases the backend connection.
	Close() error
}

// ValidateWrite checks the arguments common to Create and Update.
func ValidateWrite(category Category, payload doc.Value) error {
	if !category.Valid() {
		_, err := ParseCategory(string(category))
		return err
	}
	return ValidatePayload(payload)
}

// ValidatePayload rejects a missing payload or a top-level JSON scalar.
func ValidatePayload(payload doc.Value) error {
	switch payload.(type) {
	case doc.Object, doc.Array:
		return nil
	case nil, doc.Null:
		return &ValidationError{Field: "data", Message: "Path `data` is required."}
	default:
		return &ValidationError{
			Field:   "data",
			Message: "payload must be a JSON object or array, got " + doc.Kind(payload),
		}
	}
}

// ParsePayload decodes a request body into a payload, reporting any
// failure as a ValidationError carrying the parser's message.
func ParsePayload(body []byte) (doc.Value, error) {
	if len(body) == 0 {
		return nil, &ValidationError{Field: "data", Message: "Path `data` is required."}
	}
	v, err := doc.ParseDocument(body)
	if err != nil {
		return nil, &ValidationError{Field: "data", Message: err.Error(), Err: err}
	}
	return v, nil
}

// IDGenerator produces record ids for backends that do not assign their own.
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 ids.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate returns a new hyphenated UUIDv7.
// Panics if the random source fails.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Clock supplies creation timestamps.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns the current time.
func (SystemClock) Now() time.Time {
	return time.Now()
}
