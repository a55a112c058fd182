// Package record defines the stored entry model shared by every backend.
//
// A Record belongs to exactly one Category, carries an arbitrary JSON
// payload (doc.Value) and is identified by a store-assigned opaque id.
// All access after creation is scoped by (category, id): a record is
// invisible to lookups under any other category.
//
// Backends implement Store. The HTTP layer and the CLI receive a Store
// explicitly; nothing in this package holds a process-wide connection.
package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/roach88/entries/internal/doc"
)

// Category is the fixed classification of a record.
type Category string

const (
	CategoryInput  Category = "input"
	CategoryOutput Category = "output"
	// CategoryMapping is accepted by every store but has no HTTP routes.
	CategoryMapping Category = "mapping"
)

// Categories lists every valid category in declaration order.
var Categories = []Category{CategoryInput, CategoryOutput, CategoryMapping}

// Valid reports whether c is one of the declared categories.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Title returns the category with an upper-case first letter ("Input").
func (c Category) Title() string {
	if c == "" {
		return ""
	}
	return strings.ToUpper(string(c[:1])) + string(c[1:])
}

func (c Category) String() string {
	return string(c)
}

// ParseCategory validates s as a category name.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if !c.Valid() {
		return "", &ValidationError{
			Field:   "type",
			Message: fmt.Sprintf("`%s` is not a valid enum value for path `type`", s),
		}
	}
	return c, nil
}

// Record is a single stored entry.
//
// JSON field names match the persisted document layout (_id, type, data,
// createdAt) so documents written by either backend look the same on the wire.
type Record struct {
	ID        string    `json:"_id"`
	Category  Category  `json:"type"`
	Payload   doc.Value `json:"data"`
	CreatedAt time.Time `json:"createdAt"`
}

// TimeLayout is the wire format of createdAt: UTC with exactly three
// fractional digits.
const TimeLayout = "2006-01-02T15:04:05.000Z"

// MarshalJSON encodes a record with createdAt in TimeLayout. HTML
// characters in the payload are written literally.
func (r Record) MarshalJSON() ([]byte, error) {
	payload := r.Payload
	if payload == nil {
		payload = doc.Null{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	err := enc.Encode(struct {
		ID        string    `json:"_id"`
		Category  Category  `json:"type"`
		Payload   doc.Value `json:"data"`
		CreatedAt string    `json:"createdAt"`
	}{
		ID:        r.ID,
		Category:  r.Category,
		Payload:   payload,
		CreatedAt: r.CreatedAt.UTC().Format(TimeLayout),
	})
	if err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// UnmarshalJSON decodes a record, parsing data into a doc.Value tree.
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID        string          `json:"_id"`
		Category  Category        `json:"type"`
		Payload   json.RawMessage `json:"data"`
		CreatedAt time.Time       `json:"createdAt"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var payload doc.Value
	if len(raw.Payload) > 0 {
		v, err := doc.Parse(raw.Payload)
		if err != nil {
			return fmt.Errorf("record data: %w", err)
		}
		payload = v
	}

	*r = Record{
		ID:        raw.ID,
		Category:  raw.Category,
		Payload:   payload,
		CreatedAt: raw.CreatedAt,
	}
	return nil
}

// Timestamp truncates t to the millisecond precision records are stored
// with and converts it to UTC.
func Timestamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}
