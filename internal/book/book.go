package book

import "regexp"

// Field names of a book record as stored in the collection.
const (
	FieldID            = "_id"
	FieldTitle         = "title"
	FieldAuthor        = "author"
	FieldGenre         = "genre"
	FieldPublishedYear = "published_year"
	FieldPrice         = "price"
	FieldInStock       = "in_stock"
)

// Collection is the name of the document collection every query targets.
const Collection = "books"

// Book represents a book record.
type Book struct {
	ID            string  `json:"id,omitempty" mapstructure:"_id"`
	Title         string  `json:"title" mapstructure:"title"`
	Author        string  `json:"author" mapstructure:"author"`
	Genre         string  `json:"genre" mapstructure:"genre"`
	PublishedYear int     `json:"published_year" mapstructure:"published_year"`
	Price         float64 `json:"price" mapstructure:"price"`
	InStock       bool    `json:"in_stock" mapstructure:"in_stock"`
}

// Document is a raw record or a projected part of one.
type Document map[string]any

// Document returns the stored form of b. The identifier is omitted when empty.
func (b Book) Document() Document {
	doc := Document{
		FieldTitle:         b.Title,
		FieldAuthor:        b.Author,
		FieldGenre:         b.Genre,
		FieldPublishedYear: int64(b.PublishedYear),
		FieldPrice:         b.Price,
		FieldInStock:       b.InStock,
	}
	if b.ID != "" {
		doc[FieldID] = b.ID
	}
	return doc
}

// Kind is the value type a field holds.
type Kind int

const (
	KindUnknown Kind = iota
	KindString
	KindInt
	KindFloat
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	default:
		return "unknown"
	}
}

// Numeric reports whether values of kind k order as numbers.
func (k Kind) Numeric() bool {
	return k == KindInt || k == KindFloat
}

var schema = map[string]Kind{
	FieldID:            KindString,
	FieldTitle:         KindString,
	FieldAuthor:        KindString,
	FieldGenre:         KindString,
	FieldPublishedYear: KindInt,
	FieldPrice:         KindFloat,
	FieldInStock:       KindBool,
}

// KindOf returns the declared kind of a book field, or KindUnknown for fields
// outside the book schema.
func KindOf(field string) Kind {
	return schema[field]
}

var fieldNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidateField rejects names that cannot be used as a document field.
func ValidateField(field string) error {
	if !fieldNamePattern.MatchString(field) {
		return badRequestf("invalid field name %q", field)
	}
	return nil
}
