// Package mongostore provides the MongoDB-backed record store.
//
// Records are documents in a single collection:
//
//	{_id: ObjectId, type: "input"|"output"|"mapping", data: <payload>, createdAt: Date, __v: 0}
//
// Collections written by earlier Mongoose-based deployments use the same
// layout and can be served as-is. Lookups by id always filter on {_id, type}
// together.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/roach88/entries/internal/doc"
	"github.com/roach88/entries/internal/record"
)

const (
	// DefaultDatabase is used when the connection string names no database.
	DefaultDatabase = "test"

	// DefaultCollection holds all records.
	DefaultCollection = "entries"
)

// Store is a record.Store on a MongoDB collection.
type Store struct {
	client *mongo.Client
	coll   *mongo.Collection
	clock  record.Clock
}

var _ record.Store = (*Store)(nil)

type config struct {
	database   string
	collection string
	clock      record.Clock
}

// Option configures a Store.
type Option func(*config)

// WithDatabase overrides the database taken from the connection string.
func WithDatabase(name string) Option {
	return func(c *config) {
		c.database = name
	}
}

// WithCollection overrides the collection name.
func WithCollection(name string) Option {
	return func(c *config) {
		c.collection = name
	}
}

// WithClock overrides the creation timestamp source.
func WithClock(clock record.Clock) Option {
	return func(c *config) {
		c.clock = clock
	}
}

// Open connects to MongoDB and verifies the connection with a ping.
func Open(ctx context.Context, uri string, opts ...Option) (*Store, error) {
	cfg := config{
		database:   DatabaseFromURI(uri),
		collection: DefaultCollection,
		clock:      record.SystemClock{},
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &Store{
		client: client,
		coll:   client.Database(cfg.database).Collection(cfg.collection),
		clock:  cfg.clock,
	}, nil
}

// Close disconnects the client.
func (s *Store) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(context.Background())
}

// Collection returns the underlying collection.
func (s *Store) Collection() *mongo.Collection {
	return s.coll
}

// entryDocument is the stored shape of a record.
type entryDocument struct {
	ID        primitive.ObjectID `bson:"_id"`
	Type      string             `bson:"type"`
	Data      bson.RawValue      `bson:"data"`
	CreatedAt time.Time          `bson:"createdAt"`
}

func (d entryDocument) toRecord() (record.Record, error) {
	payload, err := fromBSON(d.Data)
	if err != nil {
		return record.Record{}, fmt.Errorf("entry %s: %w", d.ID.Hex(), err)
	}
	return record.Record{
		ID:        d.ID.Hex(),
		Category:  record.Category(d.Type),
		Payload:   payload,
		CreatedAt: record.Timestamp(d.CreatedAt),
	}, nil
}

// Create inserts a new document; MongoDB assigns the ObjectID.
func (s *Store) Create(ctx context.Context, category record.Category, payload doc.Value) (record.Record, error) {
	if err := record.ValidateWrite(category, payload); err != nil {
		return record.Record{}, err
	}

	data, err := toBSON(payload)
	if err != nil {
		return record.Record{}, &record.ValidationError{Field: "data", Message: err.Error(), Err: err}
	}

	createdAt := record.Timestamp(s.clock.Now())
	res, err := s.coll.InsertOne(ctx, bson.D{
		{Key: "type", Value: string(category)},
		{Key: "data", Value: data},
		{Key: "createdAt", Value: createdAt},
		{Key: "__v", Value: int32(0)},
	})
	if err != nil {
		return record.Record{}, record.WrapStoreError("create entry", err)
	}

	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return record.Record{}, record.WrapStoreError("create entry",
			fmt.Errorf("unexpected inserted id type %T", res.InsertedID))
	}

	return record.Record{
		ID:        oid.Hex(),
		Category:  category,
		Payload:   payload,
		CreatedAt: createdAt,
	}, nil
}

// List returns all documents of a category in _id order, which for
// driver-generated ObjectIDs is insertion order.
func (s *Store) List(ctx context.Context, category record.Category) ([]record.Record, error) {
	cur, err := s.coll.Find(ctx,
		bson.D{{Key: "type", Value: string(category)}},
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}),
	)
	if err != nil {
		return nil, record.WrapStoreError("list entries", err)
	}
	defer cur.Close(ctx)

	records := []record.Record{}
	for cur.Next(ctx) {
		var d entryDocument
		if err := cur.Decode(&d); err != nil {
			return nil, record.WrapStoreError("list entries", err)
		}
		rec, err := d.toRecord()
		if err != nil {
			return nil, record.WrapStoreError("list entries", err)
		}
		records = append(records, rec)
	}
	if err := cur.Err(); err != nil {
		return nil, record.WrapStoreError("list entries", err)
	}

	return records, nil
}

// Get finds the document matching {_id, type}.
func (s *Store) Get(ctx context.Context, category record.Category, id string) (record.Record, error) {
	filter, err := scopeFilter(category, id)
	if err != nil {
		return record.Record{}, fmt.Errorf("get entry: %w", err)
	}
	return decodeSingle("get entry", s.coll.FindOne(ctx, filter))
}

// Update replaces data on the document matching {_id, type} and returns the
// post-update document.
func (s *Store) Update(ctx context.Context, category record.Category, id string, payload doc.Value) (record.Record, error) {
	if err := record.ValidatePayload(payload); err != nil {
		return record.Record{}, err
	}

	data, err := toBSON(payload)
	if err != nil {
		return record.Record{}, &record.ValidationError{Field: "data", Message: err.Error(), Err: err}
	}

	filter, err := scopeFilter(category, id)
	if err != nil {
		return record.Record{}, fmt.Errorf("update entry: %w", err)
	}

	res := s.coll.FindOneAndUpdate(ctx, filter,
		bson.D{{Key: "$set", Value: bson.D{{Key: "data", Value: data}}}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)
	return decodeSingle("update entry", res)
}

// Delete removes the document matching {_id, type} and returns it.
func (s *Store) Delete(ctx context.Context, category record.Category, id string) (record.Record, error) {
	filter, err := scopeFilter(category, id)
	if err != nil {
		return record.Record{}, fmt.Errorf("delete entry: %w", err)
	}
	return decodeSingle("delete entry", s.coll.FindOneAndDelete(ctx, filter))
}

// scopeFilter builds the {_id, type} filter. An id that is not a valid
// ObjectID cannot match any document and is reported as not found.
func scopeFilter(category record.Category, id string) (bson.D, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, record.ErrNotFound
	}
	return bson.D{
		{Key: "_id", Value: oid},
		{Key: "type", Value: string(category)},
	}, nil
}

func decodeSingle(op string, res *mongo.SingleResult) (record.Record, error) {
	var d entryDocument
	if err := res.Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return record.Record{}, fmt.Errorf("%s: %w", op, record.ErrNotFound)
		}
		return record.Record{}, record.WrapStoreError(op, err)
	}

	rec, err := d.toRecord()
	if err != nil {
		return record.Record{}, record.WrapStoreError(op, err)
	}
	return rec, nil
}

// DatabaseFromURI extracts the database name from a mongodb:// or
// mongodb+srv:// connection string, or returns DefaultDatabase.
//
//	mongodb://user:pw@h1:27017,h2:27017/app?replicaSet=rs0  -> "app"
func DatabaseFromURI(uri string) string {
	rest := uri
	if i := strings.Index(rest, "://"); i >= 0 {
		rest = rest[i+3:]
	}
	if i := strings.IndexAny(rest, "?#"); i >= 0 {
		rest = rest[:i]
	}
	// Credentials may contain '/', hosts may not.
	if i := strings.LastIndex(rest, "@"); i >= 0 {
		rest = rest[i+1:]
	}
	i := strings.Index(rest, "/")
	if i < 0 || i == len(rest)-1 {
		return DefaultDatabase
	}
	return rest[i+1:]
}
