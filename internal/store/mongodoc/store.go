// Package mongodoc runs the books queries against a MongoDB collection.
package mongodoc

import (
	"context"
	"strconv"
	"time"

	"bookquery/internal/book"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

type Store struct {
	coll *mongo.Collection
}

func New(coll *mongo.Collection) *Store {
	return &Store{coll: coll}
}

// Connect opens a client for uri and verifies it answers a ping within
// timeout.
func Connect(ctx context.Context, uri string, timeout time.Duration) (*mongo.Client, error) {
	opts := options.Client().ApplyURI(uri)
	if timeout > 0 {
		opts.SetTimeout(timeout)
	}
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return client, nil
}

func (s *Store) Find(ctx context.Context, f book.Filter, opts book.FindOptions) (book.Cursor, error) {
	fo := options.Find()
	if p := projectionDoc(opts.Projection); p != nil {
		fo.SetProjection(p)
	}
	if sd := sortDoc(opts.Sort); sd != nil {
		fo.SetSort(sd)
	}
	if opts.Skip > 0 {
		fo.SetSkip(opts.Skip)
	}
	if opts.Limit > 0 {
		fo.SetLimit(opts.Limit)
	}
	cur, err := s.coll.Find(ctx, filterDoc(f), fo)
	if err != nil {
		return nil, err
	}
	return &cursor{cur: cur}, nil
}

func (s *Store) UpdateOne(ctx context.Context, f book.Filter, set book.Document) (book.UpdateResult, error) {
	fields := make(bson.D, 0, len(set))
	for k, v := range set {
		if k != book.FieldID {
			fields = append(fields, bson.E{Key: k, Value: v})
		}
	}
	res, err := s.coll.UpdateOne(ctx, filterDoc(f), bson.D{{Key: "$set", Value: fields}})
	if err != nil {
		return book.UpdateResult{}, err
	}
	return book.UpdateResult{Matched: res.MatchedCount, Modified: res.ModifiedCount}, nil
}

func (s *Store) DeleteOne(ctx context.Context, f book.Filter) (book.DeleteResult, error) {
	res, err := s.coll.DeleteOne(ctx, filterDoc(f))
	if err != nil {
		return book.DeleteResult{}, err
	}
	return book.DeleteResult{Deleted: res.DeletedCount}, nil
}

func (s *Store) Aggregate(ctx context.Context, p book.Pipeline) (book.Cursor, error) {
	pipeline, err := pipelineDoc(p)
	if err != nil {
		return nil, err
	}
	cur, err := s.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	return &cursor{cur: cur}, nil
}

// CreateIndex relies on createIndexes being a no-op for an identical index.
func (s *Store) CreateIndex(ctx context.Context, spec book.IndexSpec) (string, error) {
	return s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: keysDoc(spec)})
}

func (s *Store) Explain(ctx context.Context, f book.Filter) (book.Plan, error) {
	var raw bson.M
	if err := s.coll.Database().RunCommand(ctx, explainCmd(s.coll.Name(), f)).Decode(&raw); err != nil {
		return book.Plan{}, err
	}
	return parsePlan(raw), nil
}

func (s *Store) InsertMany(ctx context.Context, books []book.Book) (int, error) {
	if len(books) == 0 {
		return 0, nil
	}
	docs := make([]any, len(books))
	for i, b := range books {
		d := bson.D{
			{Key: book.FieldTitle, Value: b.Title},
			{Key: book.FieldAuthor, Value: b.Author},
			{Key: book.FieldGenre, Value: b.Genre},
			{Key: book.FieldPublishedYear, Value: b.PublishedYear},
			{Key: book.FieldPrice, Value: b.Price},
			{Key: book.FieldInStock, Value: b.InStock},
		}
		if b.ID != "" {
			d = append(bson.D{{Key: book.FieldID, Value: idValue(b.ID)}}, d...)
		}
		docs[i] = d
	}
	res, err := s.coll.InsertMany(ctx, docs)
	if err != nil {
		return 0, err
	}
	return len(res.InsertedIDs), nil
}

type cursor struct {
	cur *mongo.Cursor
	doc book.Document
	err error
}

func (c *cursor) Next(ctx context.Context) bool {
	if c.err != nil || !c.cur.Next(ctx) {
		return false
	}
	var m bson.M
	if err := c.cur.Decode(&m); err != nil {
		c.err = err
		return false
	}
	c.doc = toDocument(m)
	return true
}

func (c *cursor) Document() book.Document { return c.doc }

func (c *cursor) Err() error {
	if c.err != nil {
		return c.err
	}
	return c.cur.Err()
}

func (c *cursor) Close(ctx context.Context) error { return c.cur.Close(ctx) }

func toDocument(m bson.M) book.Document {
	doc := make(book.Document, len(m))
	for k, v := range m {
		doc[k] = normalize(v)
	}
	return doc
}

// normalize maps driver types onto the plain values the query layer uses.
func normalize(v any) any {
	switch x := v.(type) {
	case primitive.ObjectID:
		return x.Hex()
	case int32:
		return int64(x)
	case primitive.Decimal128:
		if f, err := strconv.ParseFloat(x.String(), 64); err == nil {
			return f
		}
		return x.String()
	case primitive.DateTime:
		return x.Time()
	case bson.M:
		return toDocument(x)
	case bson.A:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = normalize(e)
		}
		return out
	}
	return v
}
