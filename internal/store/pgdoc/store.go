// Package pgdoc keeps the books collection in PostgreSQL as one jsonb document
// per row (table books(id uuid, doc jsonb)).
package pgdoc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"bookquery/internal/book"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of *pgxpool.Pool the store needs.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type Store struct {
	db      DB
	timeout time.Duration
}

func New(db DB, timeout time.Duration) *Store {
	return &Store{db: db, timeout: timeout}
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *Store) Find(ctx context.Context, f book.Filter, opts book.FindOptions) (book.Cursor, error) {
	sql, args, err := findSQL(f, opts)
	if err != nil {
		return nil, err
	}
	timeoutCtx, cancel := s.withTimeout(ctx)
	rows, err := s.db.Query(timeoutCtx, sql, args...)
	if err != nil {
		cancel()
		return nil, err
	}
	return &cursor{rows: rows, cancel: cancel, scan: func(rows pgx.Rows) (book.Document, error) {
		var id string
		var raw []byte
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, err
		}
		doc, err := decodeDoc(raw)
		if err != nil {
			return nil, err
		}
		doc[book.FieldID] = id
		if opts.Projection != nil {
			doc = opts.Projection.Apply(doc)
		}
		return doc, nil
	}}, nil
}

func (s *Store) UpdateOne(ctx context.Context, f book.Filter, set book.Document) (book.UpdateResult, error) {
	patch := make(book.Document, len(set))
	for k, v := range set {
		if k != book.FieldID {
			patch[k] = v
		}
	}
	setJSON, err := json.Marshal(patch)
	if err != nil {
		return book.UpdateResult{}, fmt.Errorf("%w: encode update: %v", book.ErrBadRequest, err)
	}
	sql, args, err := updateSQL(f, setJSON)
	if err != nil {
		return book.UpdateResult{}, err
	}
	timeoutCtx, cancel := s.withTimeout(ctx)
	defer cancel()
	var res book.UpdateResult
	if err := s.db.QueryRow(timeoutCtx, sql, args...).Scan(&res.Matched, &res.Modified); err != nil {
		return book.UpdateResult{}, err
	}
	return res, nil
}

func (s *Store) DeleteOne(ctx context.Context, f book.Filter) (book.DeleteResult, error) {
	sql, args, err := deleteSQL(f)
	if err != nil {
		return book.DeleteResult{}, err
	}
	timeoutCtx, cancel := s.withTimeout(ctx)
	defer cancel()
	tag, err := s.db.Exec(timeoutCtx, sql, args...)
	if err != nil {
		return book.DeleteResult{}, err
	}
	return book.DeleteResult{Deleted: tag.RowsAffected()}, nil
}

func (s *Store) Aggregate(ctx context.Context, p book.Pipeline) (book.Cursor, error) {
	sql, args, err := aggregateSQL(p)
	if err != nil {
		return nil, err
	}
	timeoutCtx, cancel := s.withTimeout(ctx)
	rows, err := s.db.Query(timeoutCtx, sql, args...)
	if err != nil {
		cancel()
		return nil, err
	}
	return &cursor{rows: rows, cancel: cancel, scan: scanValues}, nil
}

// scanValues maps each output column to its name.
func scanValues(rows pgx.Rows) (book.Document, error) {
	vals, err := rows.Values()
	if err != nil {
		return nil, err
	}
	doc := make(book.Document, len(vals))
	for i, fd := range rows.FieldDescriptions() {
		switch v := vals[i].(type) {
		case int32:
			doc[fd.Name] = int64(v)
		default:
			doc[fd.Name] = v
		}
	}
	return doc, nil
}

func (s *Store) CreateIndex(ctx context.Context, spec book.IndexSpec) (string, error) {
	sql, err := indexSQL(spec)
	if err != nil {
		return "", err
	}
	timeoutCtx, cancel := s.withTimeout(ctx)
	defer cancel()
	if _, err := s.db.Exec(timeoutCtx, sql); err != nil {
		return "", err
	}
	return spec.Name(), nil
}

func (s *Store) Explain(ctx context.Context, f book.Filter) (book.Plan, error) {
	sql, args, err := explainSQL(f)
	if err != nil {
		return book.Plan{}, err
	}
	timeoutCtx, cancel := s.withTimeout(ctx)
	defer cancel()
	var raw []byte
	if err := s.db.QueryRow(timeoutCtx, sql, args...).Scan(&raw); err != nil {
		return book.Plan{}, err
	}
	return parsePlan(raw)
}

// InsertMany stores books as new rows in one statement. Identifiers are
// always assigned by the database.
func (s *Store) InsertMany(ctx context.Context, books []book.Book) (int, error) {
	if len(books) == 0 {
		return 0, nil
	}
	docs := make([]book.Document, len(books))
	for i, b := range books {
		b.ID = ""
		docs[i] = b.Document()
	}
	payload, err := json.Marshal(docs)
	if err != nil {
		return 0, err
	}
	timeoutCtx, cancel := s.withTimeout(ctx)
	defer cancel()
	tag, err := s.db.Exec(timeoutCtx,
		fmt.Sprintf("INSERT INTO %s (doc) SELECT value FROM jsonb_array_elements($1::jsonb)", book.Collection),
		string(payload))
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// decodeDoc unmarshals a jsonb document keeping integers as int64. Fields
// declared as floats stay float64 even when stored without a fraction.
func decodeDoc(raw []byte) (book.Document, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc book.Document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	for k, v := range doc {
		if n, ok := v.(json.Number); ok {
			if i, err := n.Int64(); err == nil && book.KindOf(k) != book.KindFloat {
				doc[k] = i
			} else if f, err := n.Float64(); err == nil {
				doc[k] = f
			}
		}
	}
	return doc, nil
}

type cursor struct {
	rows   pgx.Rows
	cancel context.CancelFunc
	scan   func(pgx.Rows) (book.Document, error)
	cur    book.Document
	err    error
}

func (c *cursor) Next(ctx context.Context) bool {
	if c.err != nil || !c.rows.Next() {
		return false
	}
	doc, err := c.scan(c.rows)
	if err != nil {
		c.err = err
		return false
	}
	c.cur = doc
	return true
}

func (c *cursor) Document() book.Document { return c.cur }

func (c *cursor) Err() error {
	if c.err != nil {
		return c.err
	}
	return c.rows.Err()
}

func (c *cursor) Close(context.Context) error {
	c.rows.Close()
	c.cancel()
	return nil
}
