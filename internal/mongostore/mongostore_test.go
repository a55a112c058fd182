package mongostore

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/roach88/entries/internal/doc"
	"github.com/roach88/entries/internal/record"
	"github.com/roach88/entries/internal/record/recordtest"
	"github.com/roach88/entries/internal/testutil"
)

// testURIEnv names the variable that enables tests against a live server.
const testURIEnv = "ENTRIES_TEST_MONGODB_URI"

func createTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()

	uri := os.Getenv(testURIEnv)
	if uri == "" {
		t.Skipf("%s not set; skipping MongoDB integration test", testURIEnv)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db := fmt.Sprintf("entries_test_%d", time.Now().UnixNano())
	opts = append([]Option{WithDatabase(db)}, opts...)
	s, err := Open(ctx, uri, opts...)
	require.NoError(t, err, "Open() failed")

	t.Cleanup(func() {
		_ = s.coll.Database().Drop(context.Background())
		s.Close()
	})
	return s
}

func TestStoreSuite(t *testing.T) {
	recordtest.Run(t,
		func(t *testing.T) record.Store {
			return createTestStore(t, WithClock(testutil.NewDeterministicClock()))
		},
		func() string { return primitive.NewObjectID().Hex() },
	)
}

func TestCreate_WritesDocumentLayout(t *testing.T) {
	s := createTestStore(t, WithClock(testutil.NewDeterministicClock()))
	ctx := context.Background()

	created, err := s.Create(ctx, record.CategoryInput, doc.Object{"x": doc.Number("5")})
	require.NoError(t, err)

	oid, err := primitive.ObjectIDFromHex(created.ID)
	require.NoError(t, err)

	raw, err := s.Collection().FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Raw()
	require.NoError(t, err)
	assert.Equal(t, "input", raw.Lookup("type").StringValue())
	assert.Equal(t, int32(0), raw.Lookup("__v").Int32())
	assert.Equal(t, testutil.DefaultEpoch.UnixMilli(), raw.Lookup("createdAt").DateTime())
	assert.Equal(t, int32(5), raw.Lookup("data", "x").Int32())
}

func TestOpen_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	_, err := Open(ctx, "mongodb://127.0.0.1:1/?serverSelectionTimeoutMS=100&connectTimeoutMS=100")
	assert.Error(t, err)
}

func TestClose_NilClient(t *testing.T) {
	s := &Store{}
	assert.NoError(t, s.Close())
}

func TestScopeFilter_MalformedIDIsNotFound(t *testing.T) {
	for _, id := range []string{"", "abc", "not-an-id-$$", "zzzzzzzzzzzzzzzzzzzzzzzz"} {
		_, err := scopeFilter(record.CategoryInput, id)
		assert.True(t, record.IsNotFound(err), "id %q: %v", id, err)
	}

	oid := primitive.NewObjectID()
	filter, err := scopeFilter(record.CategoryOutput, oid.Hex())
	require.NoError(t, err)
	assert.Equal(t, bson.D{
		{Key: "_id", Value: oid},
		{Key: "type", Value: "output"},
	}, filter)
}

func TestDatabaseFromURI(t *testing.T) {
	tests := []struct {
		uri  string
		want string
	}{
		{"mongodb://localhost:27017", "test"},
		{"mongodb://localhost:27017/", "test"},
		{"mongodb://localhost:27017/app", "app"},
		{"mongodb://localhost/app?retryWrites=true", "app"},
		{"mongodb://user:p%2Fw@h1:27017,h2:27017/prod?replicaSet=rs0", "prod"},
		{"mongodb+srv://user:pw@cluster0.example.net/entries?w=majority", "entries"},
		{"mongodb://localhost/?authSource=admin", "test"},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			assert.Equal(t, tt.want, DatabaseFromURI(tt.uri))
		})
	}
}
