package memdoc

import (
	"context"

	"bookquery/internal/book"
)

// Cursor iterates over documents already held in memory.
type Cursor struct {
	docs []book.Document
	pos  int
	cur  book.Document
	err  error
}

// NewCursor returns a cursor over docs.
func NewCursor(docs []book.Document) *Cursor {
	return &Cursor{docs: docs}
}

func (c *Cursor) Next(ctx context.Context) bool {
	if c.err != nil {
		return false
	}
	if err := ctx.Err(); err != nil {
		c.err = err
		return false
	}
	if c.pos >= len(c.docs) {
		return false
	}
	c.cur = c.docs[c.pos]
	c.pos++
	return true
}

func (c *Cursor) Document() book.Document { return c.cur }

func (c *Cursor) Err() error { return c.err }

func (c *Cursor) Close(context.Context) error {
	c.docs = nil
	return nil
}
