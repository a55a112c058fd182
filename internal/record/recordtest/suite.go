// Package recordtest holds the behavioral test suite every record.Store
// backend must pass.
package recordtest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/entries/internal/doc"
	"github.com/roach88/entries/internal/record"
)

// Factory returns an empty store. The suite does not close it; register
// cleanup with t.Cleanup inside the factory.
type Factory func(t *testing.T) record.Store

// MissingID returns an id that is guaranteed not to exist in a fresh store
// but is syntactically valid for the backend.
type MissingID func() string

// Run executes the full suite against stores produced by newStore.
func Run(t *testing.T, newStore Factory, missingID MissingID) {
	t.Helper()

	t.Run("CreateThenGet", func(t *testing.T) { testCreateThenGet(t, newStore(t)) })
	t.Run("CreateRejectsInvalid", func(t *testing.T) { testCreateRejectsInvalid(t, newStore(t)) })
	t.Run("UnknownIDNotFound", func(t *testing.T) { testUnknownIDNotFound(t, newStore(t), missingID()) })
	t.Run("MalformedIDNotFound", func(t *testing.T) { testUnknownIDNotFound(t, newStore(t), "not-an-id-$$") })
	t.Run("CrossCategoryIsolation", func(t *testing.T) { testCrossCategoryIsolation(t, newStore(t)) })
	t.Run("ListByCategory", func(t *testing.T) { testListByCategory(t, newStore(t)) })
	t.Run("ListEmpty", func(t *testing.T) { testListEmpty(t, newStore(t)) })
	t.Run("UpdateReplacesWholesale", func(t *testing.T) { testUpdateReplacesWholesale(t, newStore(t)) })
	t.Run("UpdateRejectsInvalid", func(t *testing.T) { testUpdateRejectsInvalid(t, newStore(t)) })
	t.Run("DeleteReturnsSnapshot", func(t *testing.T) { testDeleteReturnsSnapshot(t, newStore(t)) })
	t.Run("MappingCategory", func(t *testing.T) { testMappingCategory(t, newStore(t)) })
	t.Run("PayloadFidelity", func(t *testing.T) { testPayloadFidelity(t, newStore(t)) })
}

func mustParse(t *testing.T, s string) doc.Value {
	t.Helper()
	v, err := doc.ParseDocument([]byte(s))
	require.NoError(t, err)
	return v
}

func assertPayload(t *testing.T, want, got doc.Value) {
	t.Helper()
	wantJSON, err := doc.Marshal(want)
	require.NoError(t, err)
	gotJSON, err := doc.Marshal(got)
	require.NoError(t, err)
	assert.Equal(t, string(wantJSON), string(gotJSON))
}

func testCreateThenGet(t *testing.T, s record.Store) {
	ctx := context.Background()
	payload := mustParse(t, `{"x":5,"tags":["a","b"],"nested":{"ok":true}}`)

	created, err := s.Create(ctx, record.CategoryInput, payload)
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, record.CategoryInput, created.Category)
	assert.False(t, created.CreatedAt.IsZero())
	assertPayload(t, payload, created.Payload)

	got, err := s.Get(ctx, record.CategoryInput, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, record.CategoryInput, got.Category)
	assert.True(t, created.CreatedAt.Equal(got.CreatedAt), "createdAt %v != %v", created.CreatedAt, got.CreatedAt)
	assertPayload(t, payload, got.Payload)

	other, err := s.Create(ctx, record.CategoryInput, payload)
	require.NoError(t, err)
	assert.NotEqual(t, created.ID, other.ID, "ids must be unique")
}

func testCreateRejectsInvalid(t *testing.T, s record.Store) {
	ctx := context.Background()

	_, err := s.Create(ctx, record.Category("bogus"), doc.Object{})
	require.Error(t, err)
	assert.True(t, record.IsValidationError(err), "got %T: %v", err, err)

	_, err = s.Create(ctx, record.CategoryInput, nil)
	require.Error(t, err)
	assert.True(t, record.IsValidationError(err), "got %T: %v", err, err)

	_, err = s.Create(ctx, record.CategoryInput, doc.String("scalar"))
	require.Error(t, err)
	assert.True(t, record.IsValidationError(err), "got %T: %v", err, err)

	list, err := s.List(ctx, record.CategoryInput)
	require.NoError(t, err)
	assert.Empty(t, list, "rejected writes must not persist")
}

func testUnknownIDNotFound(t *testing.T, s record.Store, id string) {
	ctx := context.Background()
	payload := doc.Object{"a": doc.Number("1")}

	for _, c := range record.Categories {
		t.Run(string(c), func(t *testing.T) {
			_, err := s.Get(ctx, c, id)
			assert.True(t, record.IsNotFound(err), "get: %v", err)

			_, err = s.Update(ctx, c, id, payload)
			assert.True(t, record.IsNotFound(err), "update: %v", err)

			_, err = s.Delete(ctx, c, id)
			assert.True(t, record.IsNotFound(err), "delete: %v", err)
		})
	}
}

func testCrossCategoryIsolation(t *testing.T, s record.Store) {
	ctx := context.Background()
	original := doc.Object{"v": doc.Number("1")}

	in, err := s.Create(ctx, record.CategoryInput, original)
	require.NoError(t, err)

	_, err = s.Get(ctx, record.CategoryOutput, in.ID)
	assert.True(t, record.IsNotFound(err), "get: %v", err)

	_, err = s.Update(ctx, record.CategoryOutput, in.ID, doc.Object{"v": doc.Number("2")})
	assert.True(t, record.IsNotFound(err), "update: %v", err)

	_, err = s.Delete(ctx, record.CategoryOutput, in.ID)
	assert.True(t, record.IsNotFound(err), "delete: %v", err)

	// The input record is untouched.
	got, err := s.Get(ctx, record.CategoryInput, in.ID)
	require.NoError(t, err)
	assertPayload(t, original, got.Payload)
}

func testListByCategory(t *testing.T, s record.Store) {
	ctx := context.Background()

	var inputIDs []string
	for i := 0; i < 3; i++ {
		rec, err := s.Create(ctx, record.CategoryInput, doc.Object{"i": doc.Number(string(rune('0' + i)))})
		require.NoError(t, err)
		inputIDs = append(inputIDs, rec.ID)
	}
	out, err := s.Create(ctx, record.CategoryOutput, doc.Array{doc.String("o")})
	require.NoError(t, err)

	first, err := s.List(ctx, record.CategoryInput)
	require.NoError(t, err)
	require.Len(t, first, 3)

	var gotIDs []string
	for _, rec := range first {
		assert.Equal(t, record.CategoryInput, rec.Category)
		gotIDs = append(gotIDs, rec.ID)
	}
	assert.ElementsMatch(t, inputIDs, gotIDs)

	second, err := s.List(ctx, record.CategoryInput)
	require.NoError(t, err)
	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID, "listing must be stable without writes")
	}

	outputs, err := s.List(ctx, record.CategoryOutput)
	require.NoError(t, err)
	require.Len(t, outputs, 1)
	assert.Equal(t, out.ID, outputs[0].ID)
}

func testListEmpty(t *testing.T, s record.Store) {
	list, err := s.List(context.Background(), record.CategoryOutput)
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func testUpdateReplacesWholesale(t *testing.T, s record.Store) {
	ctx := context.Background()

	created, err := s.Create(ctx, record.CategoryOutput, mustParse(t, `{"a":1,"b":2}`))
	require.NoError(t, err)

	updated, err := s.Update(ctx, record.CategoryOutput, created.ID, mustParse(t, `{"a":1}`))
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, record.CategoryOutput, updated.Category)
	assert.True(t, created.CreatedAt.Equal(updated.CreatedAt), "createdAt is immutable")
	assertPayload(t, mustParse(t, `{"a":1}`), updated.Payload)

	got, err := s.Get(ctx, record.CategoryOutput, created.ID)
	require.NoError(t, err)
	assertPayload(t, mustParse(t, `{"a":1}`), got.Payload)
}

func testUpdateRejectsInvalid(t *testing.T, s record.Store) {
	ctx := context.Background()

	created, err := s.Create(ctx, record.CategoryInput, doc.Object{"keep": doc.Bool(true)})
	require.NoError(t, err)

	_, err = s.Update(ctx, record.CategoryInput, created.ID, nil)
	assert.True(t, record.IsValidationError(err), "got %v", err)

	_, err = s.Update(ctx, record.CategoryInput, created.ID, doc.Number("3"))
	assert.True(t, record.IsValidationError(err), "got %v", err)

	got, err := s.Get(ctx, record.CategoryInput, created.ID)
	require.NoError(t, err)
	assertPayload(t, doc.Object{"keep": doc.Bool(true)}, got.Payload)
}

func testDeleteReturnsSnapshot(t *testing.T, s record.Store) {
	ctx := context.Background()
	payload := doc.Object{"bye": doc.String("now")}

	created, err := s.Create(ctx, record.CategoryInput, payload)
	require.NoError(t, err)

	deleted, err := s.Delete(ctx, record.CategoryInput, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, deleted.ID)
	assert.Equal(t, record.CategoryInput, deleted.Category)
	assertPayload(t, payload, deleted.Payload)

	_, err = s.Get(ctx, record.CategoryInput, created.ID)
	assert.True(t, record.IsNotFound(err), "get after delete: %v", err)

	_, err = s.Delete(ctx, record.CategoryInput, created.ID)
	assert.True(t, record.IsNotFound(err), "second delete: %v", err)
}

func testMappingCategory(t *testing.T, s record.Store) {
	ctx := context.Background()

	rec, err := s.Create(ctx, record.CategoryMapping, doc.Object{"from": doc.String("a"), "to": doc.String("b")})
	require.NoError(t, err)
	assert.Equal(t, record.CategoryMapping, rec.Category)

	list, err := s.List(ctx, record.CategoryMapping)
	require.NoError(t, err)
	require.Len(t, list, 1)

	inputs, err := s.List(ctx, record.CategoryInput)
	require.NoError(t, err)
	assert.Empty(t, inputs)
}

func testPayloadFidelity(t *testing.T, s record.Store) {
	ctx := context.Background()
	payload := mustParse(t, `{"big":9007199254740993,"neg":-42,"float":1.5,"s":"<tag>&\"q\"","u":"héllo","null":null,"empty":{},"list":[]}`)

	created, err := s.Create(ctx, record.CategoryInput, payload)
	require.NoError(t, err)

	got, err := s.Get(ctx, record.CategoryInput, created.ID)
	require.NoError(t, err)
	assertPayload(t, payload, got.Payload)

	arr := mustParse(t, `[1,[2,[3]],{"k":"v"}]`)
	created, err = s.Create(ctx, record.CategoryOutput, arr)
	require.NoError(t, err)

	got, err = s.Get(ctx, record.CategoryOutput, created.ID)
	require.NoError(t, err)
	assertPayload(t, arr, got.Payload)
}
