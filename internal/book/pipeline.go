package book

// Pipeline is an ordered list of aggregation stages executed by the store as
// one request.
type Pipeline []Stage

// Stage is one step of a Pipeline: Group, SortStage or Limit.
type Stage interface {
	stage()
}

// Expr computes a group key from a record.
type Expr interface {
	expr()
}

// FieldRef groups by the raw value of a field.
type FieldRef string

// DecadeOf groups by the decade of an integer year field:
// year - year%10.
type DecadeOf string

func (FieldRef) expr() {}
func (DecadeOf) expr() {}

// AccOp is an accumulator applied per group.
type AccOp string

const (
	AccAvg   AccOp = "$avg"
	AccCount AccOp = "$count"
)

// Accumulator produces the output field As from Field. Field is ignored by
// AccCount.
type Accumulator struct {
	As    string
	Op    AccOp
	Field string
}

// Group buckets records by Key. Output documents carry the key under "_id"
// and one field per accumulator.
type Group struct {
	Key          Expr
	Accumulators []Accumulator
}

// SortStage orders group output. Keys name "_id" or accumulator outputs.
type SortStage []SortKey

// Limit keeps the first n documents.
type Limit int64

func (Group) stage()     {}
func (SortStage) stage() {}
func (Limit) stage()     {}

// GroupKey is the "_id" field of group output.
const GroupKey = FieldID
