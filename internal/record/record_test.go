package record

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/entries/internal/doc"
)

func TestParseCategory(t *testing.T) {
	for _, name := range []string{"input", "output", "mapping"} {
		t.Run(name, func(t *testing.T) {
			c, err := ParseCategory(name)
			require.NoError(t, err)
			assert.Equal(t, Category(name), c)
		})
	}

	_, err := ParseCategory("other")
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
	assert.Equal(t, "Entry validation failed: type: `other` is not a valid enum value for path `type`", err.Error())
}

func TestCategoryTitle(t *testing.T) {
	assert.Equal(t, "Input", CategoryInput.Title())
	assert.Equal(t, "Output", CategoryOutput.Title())
	assert.Equal(t, "Mapping", CategoryMapping.Title())
	assert.Equal(t, "", Category("").Title())
}

func TestRecordJSON(t *testing.T) {
	rec := Record{
		ID:        "abc",
		Category:  CategoryInput,
		Payload:   doc.Object{"x": doc.Number("5")},
		CreatedAt: time.Date(2024, 1, 2, 3, 4, 5, 6_000_000, time.UTC),
	}

	data, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.JSONEq(t, `{"_id":"abc","type":"input","data":{"x":5},"createdAt":"2024-01-02T03:04:05.006Z"}`, string(data))

	var back Record
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, rec.ID, back.ID)
	assert.Equal(t, rec.Category, back.Category)
	assert.True(t, rec.CreatedAt.Equal(back.CreatedAt))
	assert.True(t, doc.Equal(rec.Payload, back.Payload))
}

func TestRecordUnmarshal_BadData(t *testing.T) {
	var rec Record
	err := json.Unmarshal([]byte(`{"_id":"a","data":"x","createdAt":"2024-01-02T03:04:05Z"}`), &rec)
	require.NoError(t, err)
	assert.Equal(t, doc.String("x"), rec.Payload)

	err = json.Unmarshal([]byte(`{"_id":1}`), &rec)
	assert.Error(t, err)
}

func TestTimestamp(t *testing.T) {
	loc := time.FixedZone("X", 3600)
	ts := Timestamp(time.Date(2024, 1, 1, 1, 0, 0, 123_456_789, loc))
	assert.Equal(t, time.UTC, ts.Location())
	assert.Equal(t, 123_000_000, ts.Nanosecond())
	assert.Equal(t, 0, ts.Hour())
}

func TestValidateWrite(t *testing.T) {
	tests := []struct {
		name     string
		category Category
		payload  doc.Value
		field    string
	}{
		{"ok object", CategoryInput, doc.Object{}, ""},
		{"ok array", CategoryMapping, doc.Array{}, ""},
		{"bad category", Category("nope"), doc.Object{}, "type"},
		{"missing payload", CategoryOutput, nil, "data"},
		{"null payload", CategoryOutput, doc.Null{}, "data"},
		{"scalar payload", CategoryOutput, doc.Number("1"), "data"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateWrite(tt.category, tt.payload)
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestParsePayload(t *testing.T) {
	v, err := ParsePayload([]byte(`{"x":5}`))
	require.NoError(t, err)
	assert.True(t, doc.Equal(doc.Object{"x": doc.Number("5")}, v))

	_, err = ParsePayload(nil)
	require.Error(t, err)
	assert.Equal(t, "Entry validation failed: data: Path `data` is required.", err.Error())

	_, err = ParsePayload([]byte(`{"x":`))
	require.Error(t, err)
	assert.True(t, IsValidationError(err))

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.NotNil(t, ve.Unwrap())
}

func TestWrapStoreError(t *testing.T) {
	assert.NoError(t, WrapStoreError("op", nil))
	assert.Same(t, ErrNotFound, WrapStoreError("op", ErrNotFound))

	ve := &ValidationError{Field: "data", Message: "bad"}
	assert.Same(t, ve, WrapStoreError("op", ve))

	base := errors.New("disk I/O error")
	wrapped := WrapStoreError("list entries", base)
	assert.True(t, IsStoreError(wrapped))
	assert.ErrorIs(t, wrapped, base)
	assert.Equal(t, "list entries: disk I/O error", wrapped.Error())

	assert.Same(t, wrapped, WrapStoreError("again", wrapped))
}

func TestIsNotFound_Wrapped(t *testing.T) {
	err := fmt.Errorf("get entry: %w", ErrNotFound)
	assert.True(t, IsNotFound(err))
	assert.False(t, IsStoreError(err))
}

func TestUUIDv7Generator(t *testing.T) {
	gen := UUIDv7Generator{}
	a := gen.Generate()
	b := gen.Generate()

	assert.NotEqual(t, a, b)
	parsed, err := uuid.Parse(a)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
}

func TestSystemClock(t *testing.T) {
	before := time.Now()
	now := SystemClock{}.Now()
	assert.False(t, now.Before(before))
}
