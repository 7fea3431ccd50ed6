package queryir

import "github.com/roach88/qdbconnect/internal/sampleby"

// Source is a FROM item.
//
// This is a sealed interface - only types in this package implement it.
type Source interface {
	sourceNode() // Marker method - seals interface to this package
}

// Expr is a scalar expression in a projection, GROUP BY, ORDER BY or
// comparison.
//
// This is a sealed interface - only types in this package implement it.
type Expr interface {
	exprNode() // Marker method - seals interface to this package
}

// Predicate is a WHERE or ON condition.
//
// This is a sealed interface - only types in this package implement it.
type Predicate interface {
	predicateNode() // Marker method - seals interface to this package
}

// Table is a table reference. A public schema prefix is stripped when
// compiled; the name is always quoted.
type Table struct {
	Name  string
	Alias string // optional
}

func (Table) sourceNode() {}

// Subquery is a nested SELECT used as a FROM item.
//
//	(SELECT ts, avg(price) FROM trades SAMPLE BY 30m ALIGN TO CALENDAR) s
type Subquery struct {
	Query *Select
	Alias string // required
}

func (Subquery) sourceNode() {}

// JoinKind selects the join operator.
type JoinKind int

const (
	// JoinInner renders JOIN.
	JoinInner JoinKind = iota
	// JoinLeft renders LEFT JOIN.
	JoinLeft
	// JoinAsof renders ASOF JOIN, which matches each left row to the most
	// recent right row by designated timestamp. On is optional.
	JoinAsof
)

// String returns the join keyword.
func (k JoinKind) String() string {
	switch k {
	case JoinInner:
		return "JOIN"
	case JoinLeft:
		return "LEFT JOIN"
	case JoinAsof:
		return "ASOF JOIN"
	default:
		return "UNKNOWN JOIN"
	}
}

// Join combines two sources.
type Join struct {
	Left  Source
	Right Source
	Kind  JoinKind
	On    Predicate // required except for JoinAsof
}

func (Join) sourceNode() {}

// Column references a column, optionally qualified by a table or alias.
type Column struct {
	Table string
	Name  string
}

func (Column) exprNode() {}

// Func is a function call such as avg(price) or now().
type Func struct {
	Name string
	Args []Expr
}

func (Func) exprNode() {}

// Literal is a value bound as a $n parameter, never interpolated.
// Value may be nil, bool, an integer, float64, string, time.Time or
// decimal.Decimal.
type Literal struct {
	Value any
}

func (Literal) exprNode() {}

// IsNullLiteral reports whether e is a NULL literal, by value or pointer.
func IsNullLiteral(e Expr) bool {
	switch lit := e.(type) {
	case Literal:
		return lit.Value == nil
	case *Literal:
		return lit == nil || lit.Value == nil
	}
	return false
}

// Raw is SQL text emitted as-is, apart from public schema stripping.
type Raw struct {
	SQL string
}

func (Raw) exprNode() {}

// Star is * or table.*.
type Star struct {
	Table string
}

func (Star) exprNode() {}

// Projection is a SELECT list item.
type Projection struct {
	Expr  Expr
	Alias string // optional
}

// Compare is a binary comparison. A nil Literal on the right of = or !=
// compiles to IS NULL / IS NOT NULL.
type Compare struct {
	Left  Expr
	Op    string
	Right Expr
}

func (Compare) predicateNode() {}

// Operators lists the comparison operators Compare accepts.
var Operators = []string{"=", "!=", "<>", "<", "<=", ">", ">=", "LIKE", "ILIKE", "~", "!~"}

// And is a conjunction. Empty And is always true.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// Or is a disjunction. Empty Or is always false.
type Or struct {
	Predicates []Predicate
}

func (Or) predicateNode() {}

// RawPredicate is condition text emitted as-is, apart from public schema
// stripping.
type RawPredicate struct {
	SQL string
}

func (RawPredicate) predicateNode() {}

// Order is an ORDER BY item.
type Order struct {
	Expr Expr
	Desc bool
}

// Select is a SELECT statement.
//
// Semantics:
//
//	SELECT <columns> FROM <from> [WHERE <filter>]
//	  [SAMPLE BY ...] [GROUP BY ...] [ORDER BY ...] [LIMIT ...]
//
// An empty Columns list selects *. The With* helpers return modified copies
// and leave the receiver unchanged.
type Select struct {
	Columns  []Projection
	From     Source
	Filter   Predicate // nil = no filter
	GroupBy  []Expr
	OrderBy  []Order
	Limit    *int64
	Offset   *int64
	SampleBy *sampleby.Spec
}

// WithSampleBy returns a copy of s with the SAMPLE BY clause set.
func (s Select) WithSampleBy(spec sampleby.Spec) Select {
	s.SampleBy = &spec
	return s
}

// WithLimit returns a copy of s with LIMIT n.
func (s Select) WithLimit(n int64) Select {
	s.Limit = &n
	return s
}

// WithOffset returns a copy of s with OFFSET n.
func (s Select) WithOffset(n int64) Select {
	s.Offset = &n
	return s
}

// AsSubquery wraps a copy of s as a FROM item named alias.
func (s Select) AsSubquery(alias string) Subquery {
	inner := s
	return Subquery{Query: &inner, Alias: alias}
}
