package book

import (
	"context"
)

//go:generate mockgen -source=ports.go -destination=mock_ports_test.go -package=book

// Cursor is a lazy, sequential handle over a result set.
type Cursor interface {
	Next(ctx context.Context) bool
	Document() Document
	Err() error
	Close(ctx context.Context) error
}

// UpdateResult reports the outcome of a single-record update.
type UpdateResult struct {
	Matched  int64 `json:"matched_count"`
	Modified int64 `json:"modified_count"`
}

// DeleteResult reports the outcome of a single-record delete.
type DeleteResult struct {
	Deleted int64 `json:"deleted_count"`
}

// Store defines the contract of the document store holding the books
// collection. Filters and pipelines reaching a Store are already validated.
type Store interface {
	Find(ctx context.Context, f Filter, opts FindOptions) (Cursor, error)
	UpdateOne(ctx context.Context, f Filter, set Document) (UpdateResult, error)
	DeleteOne(ctx context.Context, f Filter) (DeleteResult, error)
	Aggregate(ctx context.Context, p Pipeline) (Cursor, error)
	CreateIndex(ctx context.Context, spec IndexSpec) (string, error)
	Explain(ctx context.Context, f Filter) (Plan, error)
}

// Seeder loads records into a store.
type Seeder interface {
	InsertMany(ctx context.Context, books []Book) (int, error)
}
