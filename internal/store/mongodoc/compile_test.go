package mongodoc

import (
	"testing"

	"bookquery/internal/book"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestFilterDoc(t *testing.T) {
	t.Run("equality stays bare", func(t *testing.T) {
		got := filterDoc(book.Filter{book.Eq(book.FieldAuthor, "George Orwell"), book.Eq(book.FieldPublishedYear, int64(1949))})
		assert.Equal(t, bson.D{
			{Key: "author", Value: "George Orwell"},
			{Key: "published_year", Value: int64(1949)},
		}, got)
	})

	t.Run("range uses operator", func(t *testing.T) {
		got := filterDoc(book.Filter{book.Eq(book.FieldInStock, true), book.Gt(book.FieldPublishedYear, int64(2010))})
		assert.Equal(t, bson.D{
			{Key: "in_stock", Value: true},
			{Key: "published_year", Value: bson.D{{Key: "$gt", Value: int64(2010)}}},
		}, got)
	})

	t.Run("conditions on one field merge", func(t *testing.T) {
		got := filterDoc(book.Filter{
			book.Gte(book.FieldPrice, 10.0),
			book.Lt(book.FieldPrice, 20.0),
			book.Eq(book.FieldTitle, "Dune"),
			book.Lte(book.FieldTitle, "E"),
		})
		assert.Equal(t, bson.D{
			{Key: "price", Value: bson.D{{Key: "$gte", Value: 10.0}, {Key: "$lt", Value: 20.0}}},
			{Key: "title", Value: bson.D{{Key: "$eq", Value: "Dune"}, {Key: "$lte", Value: "E"}}},
		}, got)
	})

	t.Run("hex identifiers become object ids", func(t *testing.T) {
		oid := primitive.NewObjectID()
		got := filterDoc(book.Filter{book.Eq(book.FieldID, oid.Hex())})
		assert.Equal(t, bson.D{{Key: "_id", Value: oid}}, got)

		got = filterDoc(book.Filter{book.Eq(book.FieldID, "custom-id")})
		assert.Equal(t, bson.D{{Key: "_id", Value: "custom-id"}}, got)
	})

	t.Run("empty filter", func(t *testing.T) {
		assert.Equal(t, bson.D{}, filterDoc(nil))
	})
}

func TestProjectionAndSortDocs(t *testing.T) {
	assert.Nil(t, projectionDoc(nil))
	assert.Equal(t, bson.D{
		{Key: "title", Value: 1},
		{Key: "author", Value: 1},
		{Key: "price", Value: 1},
		{Key: "_id", Value: 0},
	}, projectionDoc(&book.Projection{Fields: []string{"title", "author", "price"}, ExcludeID: true}))

	assert.Nil(t, sortDoc(nil))
	assert.Equal(t, bson.D{{Key: "price", Value: -1}, {Key: "_id", Value: 1}},
		sortDoc(&book.SortKey{Field: book.FieldPrice, Dir: book.Desc}))
	assert.Equal(t, bson.D{{Key: "_id", Value: -1}},
		sortDoc(&book.SortKey{Field: book.FieldID, Dir: book.Desc}))

	assert.Equal(t, bson.D{{Key: "author", Value: 1}, {Key: "published_year", Value: 1}},
		keysDoc(book.IndexSpec{{Field: "author", Dir: book.Asc}, {Field: "published_year", Dir: book.Asc}}))
}

func TestPipelineDoc(t *testing.T) {
	t.Run("top author", func(t *testing.T) {
		got, err := pipelineDoc(book.Pipeline{
			book.Group{Key: book.FieldRef(book.FieldAuthor), Accumulators: []book.Accumulator{{As: "count", Op: book.AccCount}}},
			book.SortStage{{Field: "count", Dir: book.Desc}, {Field: book.GroupKey, Dir: book.Asc}},
			book.Limit(1),
		})
		require.NoError(t, err)
		assert.Equal(t, mongo.Pipeline{
			{{Key: "$group", Value: bson.D{
				{Key: "_id", Value: "$author"},
				{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
			}}},
			{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}}},
			{{Key: "$limit", Value: int64(1)}},
		}, got)
	})

	t.Run("average and decade", func(t *testing.T) {
		got, err := pipelineDoc(book.Pipeline{
			book.Group{Key: book.FieldRef(book.FieldGenre), Accumulators: []book.Accumulator{
				{As: "avgPrice", Op: book.AccAvg, Field: book.FieldPrice},
			}},
		})
		require.NoError(t, err)
		assert.Equal(t, bson.D{
			{Key: "_id", Value: "$genre"},
			{Key: "avgPrice", Value: bson.D{{Key: "$avg", Value: "$price"}}},
		}, got[0][0].Value)

		key, err := keyExpr(book.DecadeOf(book.FieldPublishedYear))
		require.NoError(t, err)
		assert.Equal(t, bson.D{{Key: "$subtract", Value: bson.A{
			"$published_year",
			bson.D{{Key: "$mod", Value: bson.A{"$published_year", 10}}},
		}}}, key)
	})

	t.Run("unsupported", func(t *testing.T) {
		_, err := pipelineDoc(book.Pipeline{book.Group{
			Key:          book.FieldRef(book.FieldGenre),
			Accumulators: []book.Accumulator{{As: "x", Op: "$max", Field: "price"}},
		}})
		assert.ErrorIs(t, err, book.ErrBadRequest)
	})
}

func TestExplainCmd(t *testing.T) {
	got := explainCmd("books", book.Filter{book.Eq(book.FieldTitle, "1984")})
	assert.Equal(t, bson.D{
		{Key: "explain", Value: bson.D{
			{Key: "find", Value: "books"},
			{Key: "filter", Value: bson.D{{Key: "title", Value: "1984"}}},
		}},
		{Key: "verbosity", Value: "executionStats"},
	}, got)
}

func TestNormalize(t *testing.T) {
	oid := primitive.NewObjectID()
	dec, err := primitive.ParseDecimal128("15.99")
	require.NoError(t, err)

	doc := toDocument(bson.M{
		"_id":            oid,
		"published_year": int32(1949),
		"price":          dec,
		"tags":           bson.A{int32(1), "x"},
		"meta":           bson.M{"pages": int32(328)},
	})
	assert.Equal(t, book.Document{
		"_id":            oid.Hex(),
		"published_year": int64(1949),
		"price":          15.99,
		"tags":           []any{int64(1), "x"},
		"meta":           book.Document{"pages": int64(328)},
	}, doc)
}
