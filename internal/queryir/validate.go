package queryir

import (
	"fmt"
	"strings"

	"github.com/roach88/qdbconnect/internal/dialect"
)

// ValidationResult is the outcome of Validate.
type ValidationResult struct {
	// Valid is true when Errors is empty. Warnings do not affect it.
	Valid bool

	// Errors lists problems that prevent compilation.
	Errors []string

	// Warnings lists constructs that compile but are likely mistakes.
	Warnings []string
}

// Validate checks a Select, including nested subqueries.
//
// Errors:
//   - missing or empty source, empty subquery alias, join without ON
//   - negative LIMIT or OFFSET
//   - unknown comparison operator, comparison with a missing side
//   - invalid SAMPLE BY spec
//
// Warnings:
//   - function names the server does not know
//   - SAMPLE BY without an aggregate in the projection
//
// Validate is a pure function with no side effects.
func Validate(q Select) ValidationResult {
	v := &validator{
		errors:   []string{},
		warnings: []string{},
	}
	v.validateSelect(q, "")

	return ValidationResult{
		Valid:    len(v.errors) == 0,
		Errors:   v.errors,
		Warnings: v.warnings,
	}
}

// validator accumulates findings during traversal.
type validator struct {
	errors   []string
	warnings []string
}

func (v *validator) addError(path, format string, args ...any) {
	v.errors = append(v.errors, prefix(path)+fmt.Sprintf(format, args...))
}

func (v *validator) addWarning(path, format string, args ...any) {
	v.warnings = append(v.warnings, prefix(path)+fmt.Sprintf(format, args...))
}

func prefix(path string) string {
	if path == "" {
		return ""
	}
	return path + ": "
}

func (v *validator) validateSelect(q Select, path string) {
	if q.From == nil {
		v.addError(path, "select has no source")
	} else {
		v.validateSource(q.From, path)
	}

	for _, p := range q.Columns {
		if p.Expr == nil {
			v.addError(path, "projection %q has no expression", p.Alias)
			continue
		}
		v.validateExpr(p.Expr, path)
	}
	if q.Filter != nil {
		v.validatePredicate(q.Filter, path)
	}
	for _, e := range q.GroupBy {
		v.validateExpr(e, path)
	}
	for _, o := range q.OrderBy {
		v.validateExpr(o.Expr, path)
	}

	if q.Limit != nil && *q.Limit < 0 {
		v.addError(path, "negative limit %d", *q.Limit)
	}
	if q.Offset != nil && *q.Offset < 0 {
		v.addError(path, "negative offset %d", *q.Offset)
	}

	if q.SampleBy != nil {
		if err := q.SampleBy.Validate(); err != nil {
			v.addError(path, "%v", err)
		}
		if !hasAggregate(q.Columns) {
			v.addWarning(path, "SAMPLE BY without an aggregate projection")
		}
	}
}

func (v *validator) validateSource(s Source, path string) {
	switch src := s.(type) {
	case Table:
		v.validateTable(src, path)
	case *Table:
		v.validateTable(*src, path)
	case Subquery:
		v.validateSubquery(src, path)
	case *Subquery:
		v.validateSubquery(*src, path)
	case Join:
		v.validateJoin(src, path)
	case *Join:
		v.validateJoin(*src, path)
	default:
		v.addError(path, "unknown source type %T", s)
	}
}

func (v *validator) validateTable(t Table, path string) {
	if strings.TrimSpace(t.Name) == "" {
		v.addError(path, "table has no name")
	}
}

func (v *validator) validateSubquery(s Subquery, path string) {
	if strings.TrimSpace(s.Alias) == "" {
		v.addError(path, "subquery requires an alias")
	}
	if s.Query == nil {
		v.addError(path, "subquery %q has no query", s.Alias)
		return
	}
	v.validateSelect(*s.Query, joinPath(path, s.Alias))
}

func (v *validator) validateJoin(j Join, path string) {
	if j.Left == nil || j.Right == nil {
		v.addError(path, "join requires both sides")
	} else {
		v.validateSource(j.Left, path)
		v.validateSource(j.Right, path)
	}
	switch j.Kind {
	case JoinInner, JoinLeft:
		if j.On == nil {
			v.addError(path, "%s requires an ON condition", j.Kind)
		}
	case JoinAsof:
	default:
		v.addError(path, "unknown join kind %d", int(j.Kind))
	}
	if j.On != nil {
		v.validatePredicate(j.On, path)
	}
}

func (v *validator) validateExpr(e Expr, path string) {
	switch expr := e.(type) {
	case nil:
		v.addError(path, "missing expression")
	case Func:
		v.validateFunc(expr, path)
	case *Func:
		v.validateFunc(*expr, path)
	case Column:
		if expr.Name == "" {
			v.addError(path, "column has no name")
		}
	case *Column:
		if expr.Name == "" {
			v.addError(path, "column has no name")
		}
	case Literal, *Literal, Raw, *Raw, Star, *Star:
	default:
		v.addError(path, "unknown expression type %T", e)
	}
}

func (v *validator) validateFunc(f Func, path string) {
	if f.Name == "" {
		v.addError(path, "function has no name")
		return
	}
	if !dialect.IsFunction(f.Name) {
		v.addWarning(path, "unknown function %q", f.Name)
	}
	for _, a := range f.Args {
		v.validateExpr(a, path)
	}
}

func (v *validator) validatePredicate(p Predicate, path string) {
	switch pred := p.(type) {
	case Compare:
		v.validateCompare(pred, path)
	case *Compare:
		v.validateCompare(*pred, path)
	case And:
		for _, sub := range pred.Predicates {
			v.validatePredicate(sub, path)
		}
	case *And:
		for _, sub := range pred.Predicates {
			v.validatePredicate(sub, path)
		}
	case Or:
		for _, sub := range pred.Predicates {
			v.validatePredicate(sub, path)
		}
	case *Or:
		for _, sub := range pred.Predicates {
			v.validatePredicate(sub, path)
		}
	case RawPredicate, *RawPredicate:
	case nil:
		v.addError(path, "missing predicate")
	default:
		v.addError(path, "unknown predicate type %T", p)
	}
}

func (v *validator) validateCompare(c Compare, path string) {
	if c.Left == nil || c.Right == nil {
		v.addError(path, "comparison %q requires both sides", c.Op)
		return
	}
	if !IsOperator(c.Op) {
		v.addError(path, "unknown operator %q", c.Op)
	}
	if IsNullLiteral(c.Right) {
		if op := NormalizeOperator(c.Op); op != "=" && op != "!=" && op != "<>" {
			v.addError(path, "NULL can only be compared with = or !=")
		}
	}
	v.validateExpr(c.Left, path)
	v.validateExpr(c.Right, path)
}

// IsOperator reports whether op is a comparison operator Compare accepts.
func IsOperator(op string) bool {
	op = NormalizeOperator(op)
	for _, known := range Operators {
		if op == known {
			return true
		}
	}
	return false
}

// NormalizeOperator upper-cases word operators and trims spaces.
func NormalizeOperator(op string) string {
	return strings.ToUpper(strings.TrimSpace(op))
}

func hasAggregate(cols []Projection) bool {
	for _, p := range cols {
		if exprHasAggregate(p.Expr) {
			return true
		}
	}
	return false
}

func exprHasAggregate(e Expr) bool {
	var f Func
	switch expr := e.(type) {
	case Func:
		f = expr
	case *Func:
		f = *expr
	case Raw:
		return rawHasAggregate(expr.SQL)
	case *Raw:
		return rawHasAggregate(expr.SQL)
	default:
		return false
	}
	if dialect.IsAggregate(f.Name) {
		return true
	}
	for _, a := range f.Args {
		if exprHasAggregate(a) {
			return true
		}
	}
	return false
}

// rawHasAggregate looks for name( at the start of raw text.
func rawHasAggregate(sql string) bool {
	open := strings.IndexByte(sql, '(')
	if open <= 0 {
		return false
	}
	return dialect.IsAggregate(strings.TrimSpace(sql[:open]))
}

func joinPath(path, alias string) string {
	if path == "" {
		return "subquery " + alias
	}
	return path + " > subquery " + alias
}
