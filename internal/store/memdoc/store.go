// Package memdoc is an in-process document store for the books collection. It
// evaluates filters, pipelines and index-aware plans itself, so the query layer
// can run without a database server.
package memdoc

import (
	"context"
	"maps"
	"sort"
	"sync"
	"time"

	"bookquery/internal/book"

	"github.com/google/uuid"
)

// Store holds documents in insertion order.
type Store struct {
	mu      sync.RWMutex
	docs    []book.Document
	indexes map[string]book.IndexSpec
}

func New() *Store {
	return &Store{indexes: make(map[string]book.IndexSpec)}
}

func (s *Store) InsertMany(ctx context.Context, books []book.Book) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range books {
		doc := b.Document()
		if _, ok := doc[book.FieldID]; !ok {
			doc[book.FieldID] = uuid.NewString()
		}
		s.docs = append(s.docs, doc)
	}
	return len(books), nil
}

// Len returns the number of stored documents.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

func (s *Store) Find(ctx context.Context, f book.Filter, opts book.FindOptions) (book.Cursor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	var out []book.Document
	for _, d := range s.docs {
		if matches(d, f) {
			out = append(out, maps.Clone(d))
		}
	}
	s.mu.RUnlock()

	if opts.Sort != nil {
		field, dir := opts.Sort.Field, int(opts.Sort.Dir)
		// Ties fall back to ascending _id, as in the database backends.
		sort.SliceStable(out, func(i, j int) bool {
			if c := compareValues(out[i][field], out[j][field]) * dir; c != 0 {
				return c < 0
			}
			return compareValues(out[i][book.FieldID], out[j][book.FieldID]) < 0
		})
	}
	out = window(out, opts.Skip, opts.Limit)
	if opts.Projection != nil {
		for i, d := range out {
			out[i] = opts.Projection.Apply(d)
		}
	}
	return NewCursor(out), nil
}

func window(docs []book.Document, skip, limit int64) []book.Document {
	if skip >= int64(len(docs)) {
		return nil
	}
	docs = docs[skip:]
	if limit > 0 && limit < int64(len(docs)) {
		docs = docs[:limit]
	}
	return docs
}

func (s *Store) UpdateOne(ctx context.Context, f book.Filter, set book.Document) (book.UpdateResult, error) {
	if err := ctx.Err(); err != nil {
		return book.UpdateResult{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.docs {
		if !matches(d, f) {
			continue
		}
		res := book.UpdateResult{Matched: 1}
		for k, v := range set {
			if old, ok := d[k]; !ok || typeRank(old) != typeRank(v) || compareValues(old, v) != 0 {
				res.Modified = 1
			}
			d[k] = v
		}
		return res, nil
	}
	return book.UpdateResult{}, nil
}

func (s *Store) DeleteOne(ctx context.Context, f book.Filter) (book.DeleteResult, error) {
	if err := ctx.Err(); err != nil {
		return book.DeleteResult{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, d := range s.docs {
		if matches(d, f) {
			s.docs = append(s.docs[:i], s.docs[i+1:]...)
			return book.DeleteResult{Deleted: 1}, nil
		}
	}
	return book.DeleteResult{}, nil
}

func (s *Store) CreateIndex(ctx context.Context, spec book.IndexSpec) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name := spec.Name()
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.indexes[name]; !ok {
		s.indexes[name] = append(book.IndexSpec(nil), spec...)
	}
	return name, nil
}

// Indexes returns the names of the indexes created so far.
func (s *Store) Indexes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.indexes))
	for name := range s.indexes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Explain picks the index whose leading keys cover the most filtered fields.
// Without one the plan is a collection scan over every document.
func (s *Store) Explain(ctx context.Context, f book.Filter) (book.Plan, error) {
	if err := ctx.Err(); err != nil {
		return book.Plan{}, err
	}
	start := time.Now()
	s.mu.RLock()
	defer s.mu.RUnlock()

	filtered := make(map[string]bool, len(f))
	for _, c := range f {
		filtered[c.Field] = true
	}

	var bestName string
	var bestPrefix []string
	for name, spec := range s.indexes {
		var prefix []string
		for _, k := range spec {
			if !filtered[k.Field] {
				break
			}
			prefix = append(prefix, k.Field)
		}
		if len(prefix) > len(bestPrefix) || (len(prefix) == len(bestPrefix) && len(prefix) > 0 && name < bestName) {
			bestName, bestPrefix = name, prefix
		}
	}

	var returned int64
	for _, d := range s.docs {
		if matches(d, f) {
			returned++
		}
	}

	plan := book.Plan{Returned: returned}
	if len(bestPrefix) == 0 {
		plan.Stage = "COLLSCAN"
		plan.DocsExamined = int64(len(s.docs))
	} else {
		var keyFilter book.Filter
		for _, c := range f {
			for _, field := range bestPrefix {
				if c.Field == field {
					keyFilter = append(keyFilter, c)
				}
			}
		}
		var keys int64
		for _, d := range s.docs {
			if matches(d, keyFilter) {
				keys++
			}
		}
		plan.Stage = "IXSCAN"
		plan.IndexName = bestName
		plan.KeysExamined = keys
		plan.DocsExamined = keys
	}
	plan.ExecutionTime = time.Since(start)
	plan.Raw = book.Document{
		"queryPlanner": book.Document{
			"namespace":   book.Collection,
			"winningPlan": book.Document{"stage": plan.Stage, "indexName": plan.IndexName},
		},
		"executionStats": book.Document{
			"nReturned":         plan.Returned,
			"totalKeysExamined": plan.KeysExamined,
			"totalDocsExamined": plan.DocsExamined,
		},
	}
	return plan, nil
}
