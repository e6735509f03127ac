// Package mongo stores expense records as documents of a MongoDB collection.
// Every document carries a version counter used for conditional updates.
package mongo

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"spesebot/internal/core"
	ports "spesebot/internal/records"
)

// DataStore is the subset of *mongo.Collection the store needs.
type DataStore interface {
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error)
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
	CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error)
}

// Config selects the deployment, database and collection.
type Config struct {
	URI        string
	Database   string
	Collection string
}

type expenseDocument struct {
	ID        string               `bson:"_id"`
	Category  string               `bson:"category"`
	Amount    primitive.Decimal128 `bson:"amount"`
	Date      string               `bson:"date"`
	Version   int64                `bson:"version"`
	CreatedAt time.Time            `bson:"created_at"`
}

// storedDocument is the read shape. Pointer fields tell a missing key from a
// zero value.
type storedDocument struct {
	ID       string                `bson:"_id"`
	Category string                `bson:"category"`
	Amount   *primitive.Decimal128 `bson:"amount"`
	Date     string                `bson:"date"`
	Version  *int64                `bson:"version"`
}

type Store struct {
	coll DataStore
	now  func() time.Time
}

var _ ports.Store = (*Store)(nil)

func New(coll DataStore) *Store {
	return &Store{coll: coll, now: time.Now}
}

// Open connects to MongoDB, ensures the query indexes exist and returns the
// store together with the client, which the caller pings and disconnects.
func Open(ctx context.Context, cfg Config) (*Store, *mongo.Client, error) {
	if cfg.URI == "" {
		return nil, nil, fmt.Errorf("missing MONGO_URI")
	}
	client, err := ConnectToMongoDB(ctx, cfg.URI)
	if err != nil {
		return nil, nil, err
	}
	coll := client.Database(cfg.Database).Collection(cfg.Collection)
	if err := ensureIndexes(ctx, coll); err != nil {
		_ = client.Disconnect(ctx)
		return nil, nil, err
	}
	return New(coll), client, nil
}

// ConnectToMongoDB establishes a connection and pings the primary.
func ConnectToMongoDB(ctx context.Context, uri string) (*mongo.Client, error) {
	slog.DebugContext(ctx, "Attempting to connect to MongoDB")

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	slog.InfoContext(ctx, "Successfully established connection to MongoDB")
	return client, nil
}

func ensureIndexes(ctx context.Context, coll *mongo.Collection) error {
	_, err := coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "date", Value: 1}, {Key: "created_at", Value: 1}}},
		{Keys: bson.D{{Key: "category", Value: 1}, {Key: "date", Value: -1}, {Key: "created_at", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func (s *Store) Create(ctx context.Context, category string, amount decimal.Decimal, date core.Date) (string, error) {
	rec := core.ExpenseRecord{Category: category, Amount: amount, Date: date}
	if err := rec.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	amt, err := primitive.ParseDecimal128(amount.String())
	if err != nil {
		return "", fmt.Errorf("encode amount: %w", err)
	}
	doc := expenseDocument{
		ID:        uuid.NewString(),
		Category:  category,
		Amount:    amt,
		Date:      date.String(),
		Version:   1,
		CreatedAt: s.now().UTC(),
	}
	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		return "", fmt.Errorf("failed to perform InsertOne: %w", err)
	}
	return doc.ID, nil
}

// QueryRange relies on the ISO date layout sorting lexicographically.
func (s *Store) QueryRange(ctx context.Context, r core.DateRange) ([]core.ExpenseRecord, error) {
	filter := bson.M{"date": bson.M{"$gte": r.Start.String(), "$lte": r.End.String()}}
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}, {Key: "created_at", Value: 1}})
	return s.find(ctx, filter, opts)
}

func (s *Store) QueryLatestByCategory(ctx context.Context, category string) (core.ExpenseRecord, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "date", Value: -1}, {Key: "created_at", Value: -1}}).
		SetLimit(1)
	recs, err := s.find(ctx, bson.M{"category": category}, opts)
	if err != nil {
		return core.ExpenseRecord{}, err
	}
	if len(recs) == 0 {
		return core.ExpenseRecord{}, core.ErrRecordNotFound
	}
	return recs[0], nil
}

// Update matches on id and version, so a concurrent writer that bumped the
// version makes this call fail with ErrVersionConflict.
func (s *Store) Update(ctx context.Context, u core.RecordUpdate) error {
	if err := core.ValidateAmount(u.Amount); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	amt, err := primitive.ParseDecimal128(u.Amount.String())
	if err != nil {
		return fmt.Errorf("encode amount: %w", err)
	}
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": u.ID, "version": u.Version},
		bson.M{
			"$set": bson.M{"amount": amt, "date": u.Date.String()},
			"$inc": bson.M{"version": 1},
		})
	if err != nil {
		return fmt.Errorf("failed to perform UpdateOne: %w", err)
	}
	if res.MatchedCount > 0 {
		return nil
	}
	n, err := s.coll.CountDocuments(ctx, bson.M{"_id": u.ID})
	if err != nil {
		return fmt.Errorf("failed to perform CountDocuments: %w", err)
	}
	if n == 0 {
		return core.ErrRecordNotFound
	}
	return core.ErrVersionConflict
}

func (s *Store) find(ctx context.Context, filter interface{}, opts *options.FindOptions) ([]core.ExpenseRecord, error) {
	cur, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to perform Find: %w", err)
	}
	defer cur.Close(ctx)

	out := make([]core.ExpenseRecord, 0)
	for cur.Next(ctx) {
		var d storedDocument
		if err := cur.Decode(&d); err != nil {
			return nil, fmt.Errorf("%w: decode document: %v", core.ErrMalformedRecord, err)
		}
		rec, err := d.record()
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cursor: %w", err)
	}
	return out, nil
}

func (d storedDocument) record() (core.ExpenseRecord, error) {
	if d.Amount == nil {
		return core.ExpenseRecord{}, fmt.Errorf("%w: document %s: missing amount", core.ErrMalformedRecord, d.ID)
	}
	if d.Version == nil {
		return core.ExpenseRecord{}, fmt.Errorf("%w: document %s: missing version", core.ErrMalformedRecord, d.ID)
	}
	amount, err := decimal.NewFromString(d.Amount.String())
	if err != nil {
		return core.ExpenseRecord{}, fmt.Errorf("%w: document %s: amount %q", core.ErrMalformedRecord, d.ID, d.Amount.String())
	}
	date, err := core.ParseDate(d.Date)
	if err != nil {
		return core.ExpenseRecord{}, fmt.Errorf("%w: document %s: date %q", core.ErrMalformedRecord, d.ID, d.Date)
	}
	rec := core.ExpenseRecord{ID: d.ID, Category: d.Category, Amount: amount, Date: date, Version: *d.Version}
	if err := rec.Validate(); err != nil {
		return core.ExpenseRecord{}, fmt.Errorf("%w: document %s: %v", core.ErrMalformedRecord, d.ID, err)
	}
	return rec, nil
}
