package mongostore

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/roach88/entries/internal/doc"
)

// toBSON converts a payload into driver values. Objects become bson.D with
// sorted keys. Integer literals become int32 or int64, other numbers
// float64, and anything float64 cannot hold becomes Decimal128.
func toBSON(v doc.Value) (any, error) {
	switch val := v.(type) {
	case doc.Null:
		return nil, nil
	case doc.String:
		return string(val), nil
	case doc.Bool:
		return bool(val), nil
	case doc.Number:
		return numberToBSON(val)
	case doc.Array:
		arr := make(bson.A, len(val))
		for i, elem := range val {
			e, err := toBSON(elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			arr[i] = e
		}
		return arr, nil
	case doc.Object:
		d := make(bson.D, 0, len(val))
		for _, k := range val.SortedKeys() {
			e, err := toBSON(val[k])
			if err != nil {
				return nil, fmt.Errorf("object[%q]: %w", k, err)
			}
			d = append(d, bson.E{Key: k, Value: e})
		}
		return d, nil
	default:
		return nil, fmt.Errorf("unsupported payload type %T", v)
	}
}

func numberToBSON(n doc.Number) (any, error) {
	if i, ok := n.Int64(); ok {
		if i >= math.MinInt32 && i <= math.MaxInt32 {
			return int32(i), nil
		}
		return i, nil
	}
	if f, err := n.Float64(); err == nil && !math.IsInf(f, 0) {
		return f, nil
	}
	d, err := primitive.ParseDecimal128(string(n))
	if err != nil {
		return nil, fmt.Errorf("number %s: %w", string(n), err)
	}
	return d, nil
}

// fromBSON converts a stored BSON value back into a payload.
func fromBSON(rv bson.RawValue) (doc.Value, error) {
	switch rv.Type {
	case bson.TypeNull, bson.TypeUndefined:
		return doc.Null{}, nil
	case bson.TypeString:
		return doc.String(rv.StringValue()), nil
	case bson.TypeBoolean:
		return doc.Bool(rv.Boolean()), nil
	case bson.TypeInt32:
		return doc.Number(strconv.FormatInt(int64(rv.Int32()), 10)), nil
	case bson.TypeInt64:
		return doc.Number(strconv.FormatInt(rv.Int64(), 10)), nil
	case bson.TypeDouble:
		return doubleToNumber(rv.Double())
	case bson.TypeDecimal128:
		s := rv.Decimal128().String()
		if json.Valid([]byte(s)) {
			return doc.Number(s), nil
		}
		return doc.String(s), nil
	case bson.TypeDateTime:
		return doc.String(rv.Time().UTC().Format("2006-01-02T15:04:05.000Z07:00")), nil
	case bson.TypeObjectID:
		return doc.String(rv.ObjectID().Hex()), nil
	case bson.TypeEmbeddedDocument:
		elems, err := rv.Document().Elements()
		if err != nil {
			return nil, err
		}
		obj := make(doc.Object, len(elems))
		for _, elem := range elems {
			v, err := fromBSON(elem.Value())
			if err != nil {
				return nil, fmt.Errorf("object[%q]: %w", elem.Key(), err)
			}
			obj[elem.Key()] = v
		}
		return obj, nil
	case bson.TypeArray:
		vals, err := rv.Array().Values()
		if err != nil {
			return nil, err
		}
		arr := make(doc.Array, len(vals))
		for i, elem := range vals {
			v, err := fromBSON(elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			arr[i] = v
		}
		return arr, nil
	default:
		return nil, fmt.Errorf("unsupported BSON type %s", rv.Type)
	}
}

// doubleToNumber formats a double the way JSON encoders do, so 5.0 reads
// back as 5.
func doubleToNumber(f float64) (doc.Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return doc.Null{}, nil
	}
	b, err := json.Marshal(f)
	if err != nil {
		return nil, err
	}
	return doc.Number(b), nil
}
