package mongostore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/roach88/entries/internal/doc"
)

// roundTrip converts a payload to BSON, encodes it inside a document the way
// the driver would, and decodes it back.
func roundTrip(t *testing.T, v doc.Value) doc.Value {
	t.Helper()

	data, err := toBSON(v)
	require.NoError(t, err)

	raw, err := bson.Marshal(bson.D{{Key: "data", Value: data}})
	require.NoError(t, err)

	out, err := fromBSON(bson.Raw(raw).Lookup("data"))
	require.NoError(t, err)
	return out
}

func TestConvert_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{"object", `{"a":1,"b":"two","c":true,"d":null}`},
		{"nested", `{"outer":{"inner":[1,{"deep":false}]}}`},
		{"array", `[1,"x",[],{}]`},
		{"empty object", `{}`},
		{"large int", `{"n":9007199254740993}`},
		{"negative", `{"n":-2147483649}`},
		{"float", `{"f":1.5}`},
		{"unicode", `{"s":"héllo <&>"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, err := doc.ParseDocument([]byte(tt.json))
			require.NoError(t, err)

			out := roundTrip(t, in)

			want, err := doc.Marshal(in)
			require.NoError(t, err)
			got, err := doc.Marshal(out)
			require.NoError(t, err)
			assert.Equal(t, string(want), string(got))
		})
	}
}

func TestToBSON_NumberWidths(t *testing.T) {
	tests := []struct {
		in   doc.Number
		want any
	}{
		{"0", int32(0)},
		{"2147483647", int32(2147483647)},
		{"2147483648", int64(2147483648)},
		{"-9223372036854775808", int64(-9223372036854775808)},
		{"2.5", float64(2.5)},
		{"1e2", float64(100)},
	}

	for _, tt := range tests {
		t.Run(string(tt.in), func(t *testing.T) {
			got, err := toBSON(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestToBSON_HugeNumberIsDecimal(t *testing.T) {
	got, err := toBSON(doc.Number("1e400"))
	require.NoError(t, err)
	_, ok := got.(primitive.Decimal128)
	assert.True(t, ok, "got %T", got)
}

func TestToBSON_ObjectKeysSorted(t *testing.T) {
	got, err := toBSON(doc.Object{"b": doc.Null{}, "a": doc.Null{}, "c": doc.Null{}})
	require.NoError(t, err)

	d, ok := got.(bson.D)
	require.True(t, ok)
	require.Len(t, d, 3)
	assert.Equal(t, "a", d[0].Key)
	assert.Equal(t, "b", d[1].Key)
	assert.Equal(t, "c", d[2].Key)
}

func TestFromBSON_ForeignTypes(t *testing.T) {
	oid := primitive.NewObjectID()
	raw, err := bson.Marshal(bson.D{
		{Key: "oid", Value: oid},
		{Key: "when", Value: primitive.DateTime(1704067200000)},
		{Key: "whole", Value: float64(5)},
	})
	require.NoError(t, err)

	v, err := fromBSON(bson.Raw(raw).Lookup("oid"))
	require.NoError(t, err)
	assert.Equal(t, doc.String(oid.Hex()), v)

	v, err = fromBSON(bson.Raw(raw).Lookup("when"))
	require.NoError(t, err)
	assert.Equal(t, doc.String("2024-01-01T00:00:00.000Z"), v)

	v, err = fromBSON(bson.Raw(raw).Lookup("whole"))
	require.NoError(t, err)
	assert.Equal(t, doc.Number("5"), v)
}

func TestFromBSON_Unsupported(t *testing.T) {
	raw, err := bson.Marshal(bson.D{{Key: "re", Value: primitive.Regex{Pattern: "a+", Options: "i"}}})
	require.NoError(t, err)

	_, err = fromBSON(bson.Raw(raw).Lookup("re"))
	assert.Error(t, err)
}
