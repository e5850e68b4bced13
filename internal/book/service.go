package book

import (
	"context"
	"log/slog"
	"math"
)

// Output field names of the aggregation pipelines.
const (
	avgPriceField = "avgPrice"
	countField    = "count"
)

// AuthorCount is an author and the number of records attributed to them.
type AuthorCount struct {
	Author string `json:"author"`
	Count  int64  `json:"count"`
}

// DecadeCount is the number of records published in one decade.
type DecadeCount struct {
	Decade int64  `json:"decade"`
	Label  string `json:"label"`
	Count  int64  `json:"count"`
}

// Service builds queries and pipelines against the books collection and
// shapes what the store returns. It keeps no state between calls.
type Service struct {
	store  Store
	logger *slog.Logger
}

// NewService creates a new book service over store.
func NewService(store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger}
}

// FindByField returns the books whose field equals value.
func (s *Service) FindByField(ctx context.Context, field string, value any) ([]Book, error) {
	return s.findBooks(ctx, "find_by_field", Filter{Eq(field, value)})
}

// FindByRange returns the books whose field compares to value with one of
// ">", ">=", "<" or "<=".
func (s *Service) FindByRange(ctx context.Context, field, comparator string, value any) ([]Book, error) {
	op, err := ParseOp(comparator)
	if err != nil {
		return nil, err
	}
	if !op.Range() {
		return nil, badRequestf("comparator %q is not a range comparator", comparator)
	}
	return s.findBooks(ctx, "find_by_range", Filter{{Field: field, Op: op, Value: value}})
}

// UpdateOnePrice sets the price of one book with the given title. When titles
// repeat, which record is updated is up to the store.
func (s *Service) UpdateOnePrice(ctx context.Context, title string, price float64) (UpdateResult, error) {
	if title == "" {
		return UpdateResult{}, badRequestf("title is required")
	}
	return s.updatePrice(ctx, "update_price_by_title", Filter{Eq(FieldTitle, title)}, price)
}

// UpdatePriceByID sets the price of the book with the given identifier.
func (s *Service) UpdatePriceByID(ctx context.Context, id string, price float64) (UpdateResult, error) {
	if id == "" {
		return UpdateResult{}, badRequestf("id is required")
	}
	return s.updatePrice(ctx, "update_price_by_id", Filter{Eq(FieldID, id)}, price)
}

func (s *Service) updatePrice(ctx context.Context, op string, f Filter, price float64) (UpdateResult, error) {
	if math.IsNaN(price) || math.IsInf(price, 0) || price < 0 {
		return UpdateResult{}, badRequestf("price must be a finite, non-negative number")
	}
	res, err := s.store.UpdateOne(ctx, f, Document{FieldPrice: price})
	if err != nil {
		return UpdateResult{}, s.fail(ctx, op, err)
	}
	s.logger.DebugContext(ctx, "book updated", "op", op, "matched", res.Matched, "modified", res.Modified)
	return res, nil
}

// DeleteOneByTitle deletes one book with the given title.
func (s *Service) DeleteOneByTitle(ctx context.Context, title string) (DeleteResult, error) {
	if title == "" {
		return DeleteResult{}, badRequestf("title is required")
	}
	return s.deleteOne(ctx, "delete_by_title", Filter{Eq(FieldTitle, title)})
}

// DeleteByID deletes the book with the given identifier.
func (s *Service) DeleteByID(ctx context.Context, id string) (DeleteResult, error) {
	if id == "" {
		return DeleteResult{}, badRequestf("id is required")
	}
	return s.deleteOne(ctx, "delete_by_id", Filter{Eq(FieldID, id)})
}

func (s *Service) deleteOne(ctx context.Context, op string, f Filter) (DeleteResult, error) {
	res, err := s.store.DeleteOne(ctx, f)
	if err != nil {
		return DeleteResult{}, s.fail(ctx, op, err)
	}
	s.logger.DebugContext(ctx, "book deleted", "op", op, "deleted", res.Deleted)
	return res, nil
}

// FindProjected returns the records matching every condition of f, reduced to
// the fields of p. With a sort key the full result is ordered before skip and
// limit apply.
func (s *Service) FindProjected(ctx context.Context, f Filter, p Projection, pg Page) ([]Document, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	if err := pg.validate(); err != nil {
		return nil, err
	}
	f, ok, err := f.normalize()
	if err != nil {
		return nil, err
	}
	if !ok {
		s.logger.DebugContext(ctx, "filter cannot match", "op", "find_projected")
		return []Document{}, nil
	}
	return s.find(ctx, "find_projected", f, FindOptions{
		Projection: &p,
		Sort:       pg.Sort,
		Skip:       pg.Skip,
		Limit:      pg.Limit,
	})
}

// AveragePriceByGenre returns the mean price per genre.
func (s *Service) AveragePriceByGenre(ctx context.Context) (map[string]float64, error) {
	docs, err := s.aggregate(ctx, "avg_price_by_genre", Pipeline{
		Group{
			Key:          FieldRef(FieldGenre),
			Accumulators: []Accumulator{{As: avgPriceField, Op: AccAvg, Field: FieldPrice}},
		},
	})
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(docs))
	for _, d := range docs {
		genre, ok := d[GroupKey].(string)
		if !ok {
			continue
		}
		avg, ok := toFloat64(d[avgPriceField])
		if !ok {
			continue
		}
		out[genre] = avg
	}
	return out, nil
}

// AuthorWithMostBooks returns the author with the highest record count. Ties
// go to the alphabetically first author. found is false for an empty
// collection.
func (s *Service) AuthorWithMostBooks(ctx context.Context) (top AuthorCount, found bool, err error) {
	docs, err := s.aggregate(ctx, "author_with_most_books", Pipeline{
		Group{
			Key:          FieldRef(FieldAuthor),
			Accumulators: []Accumulator{{As: countField, Op: AccCount}},
		},
		SortStage{{Field: countField, Dir: Desc}, {Field: GroupKey, Dir: Asc}},
		Limit(1),
	})
	if err != nil {
		return AuthorCount{}, false, err
	}
	if len(docs) == 0 {
		return AuthorCount{}, false, nil
	}
	author, _ := docs[0][GroupKey].(string)
	count, _ := toInt64(docs[0][countField])
	return AuthorCount{Author: author, Count: count}, true, nil
}

// CountByDecade returns record counts per publication decade in ascending
// decade order. Records without a year are not counted.
func (s *Service) CountByDecade(ctx context.Context) ([]DecadeCount, error) {
	docs, err := s.aggregate(ctx, "count_by_decade", Pipeline{
		Group{
			Key:          DecadeOf(FieldPublishedYear),
			Accumulators: []Accumulator{{As: countField, Op: AccCount}},
		},
		SortStage{{Field: GroupKey, Dir: Asc}},
	})
	if err != nil {
		return nil, err
	}
	out := make([]DecadeCount, 0, len(docs))
	for _, d := range docs {
		decade, ok := toInt64(d[GroupKey])
		if !ok {
			continue
		}
		count, _ := toInt64(d[countField])
		out = append(out, DecadeCount{Decade: decade, Label: DecadeLabel(decade), Count: count})
	}
	return out, nil
}

// EnsureIndex creates the index when no equivalent one exists and returns its
// name. Issuing it again is not an error.
func (s *Service) EnsureIndex(ctx context.Context, spec IndexSpec) (string, error) {
	if err := spec.validate(); err != nil {
		return "", err
	}
	name, err := s.store.CreateIndex(ctx, spec)
	if err != nil {
		return "", s.fail(ctx, "ensure_index", err)
	}
	s.logger.InfoContext(ctx, "index ensured", "index", name)
	return name, nil
}

// ExplainPlan returns the store's execution statistics for f without
// returning any records.
func (s *Service) ExplainPlan(ctx context.Context, f Filter) (Plan, error) {
	f, ok, err := f.normalize()
	if err != nil {
		return Plan{}, err
	}
	if !ok {
		return Plan{}, badRequestf("filter values do not match the field types")
	}
	plan, err := s.store.Explain(ctx, f)
	if err != nil {
		return Plan{}, s.fail(ctx, "explain", err)
	}
	return plan, nil
}

func (s *Service) findBooks(ctx context.Context, op string, f Filter) ([]Book, error) {
	f, ok, err := f.normalize()
	if err != nil {
		return nil, err
	}
	if !ok {
		s.logger.DebugContext(ctx, "filter cannot match", "op", op)
		return []Book{}, nil
	}
	docs, err := s.find(ctx, op, f, FindOptions{})
	if err != nil {
		return nil, err
	}
	books := make([]Book, 0, len(docs))
	for _, d := range docs {
		b, err := Decode(d)
		if err != nil {
			return nil, err
		}
		books = append(books, b)
	}
	return books, nil
}

func (s *Service) find(ctx context.Context, op string, f Filter, opts FindOptions) ([]Document, error) {
	cur, err := s.store.Find(ctx, f, opts)
	if err != nil {
		return nil, s.fail(ctx, op, err)
	}
	docs, err := drain(ctx, cur)
	if err != nil {
		return nil, s.fail(ctx, op, err)
	}
	s.logger.DebugContext(ctx, "query", "op", op, "conditions", len(f), "results", len(docs))
	return docs, nil
}

func (s *Service) aggregate(ctx context.Context, op string, p Pipeline) ([]Document, error) {
	cur, err := s.store.Aggregate(ctx, p)
	if err != nil {
		return nil, s.fail(ctx, op, err)
	}
	docs, err := drain(ctx, cur)
	if err != nil {
		return nil, s.fail(ctx, op, err)
	}
	s.logger.DebugContext(ctx, "aggregate", "op", op, "stages", len(p), "results", len(docs))
	return docs, nil
}

func (s *Service) fail(ctx context.Context, op string, err error) error {
	err = storeErr(op, err)
	s.logger.WarnContext(ctx, "store request failed", "op", op, "error", err)
	return err
}

func drain(ctx context.Context, cur Cursor) ([]Document, error) {
	defer cur.Close(ctx)
	out := []Document{}
	for cur.Next(ctx) {
		out = append(out, cur.Document())
	}
	return out, cur.Err()
}
