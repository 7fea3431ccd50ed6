// Package querysql compiles queryir selects to QuestDB SQL text.
package querysql

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/roach88/qdbconnect/internal/dialect"
	"github.com/roach88/qdbconnect/internal/queryir"
	"github.com/roach88/qdbconnect/internal/sampleby"
)

// SQLCompiler compiles QueryIR to parameterized SQL for the Postgres wire
// endpoint.
//
// CRITICAL: Literal values are never interpolated; each becomes a $n
// placeholder. Numbering continues across nested subqueries.
type SQLCompiler struct {
	// AllowWarnings compiles queries that validate with warnings. When false,
	// any warning is a compile error.
	AllowWarnings bool
}

// NewSQLCompiler creates a compiler that tolerates validation warnings.
func NewSQLCompiler() *SQLCompiler {
	return &SQLCompiler{AllowWarnings: true}
}

// compileState carries the parameter list through one Compile call.
type compileState struct {
	params []any
}

func (st *compileState) bind(v any) string {
	st.params = append(st.params, v)
	return "$" + strconv.Itoa(len(st.params))
}

// Compile converts a Select to SQL.
// Returns (sql, params, error) tuple.
//
// Clause order is SELECT, FROM, WHERE, SAMPLE BY, GROUP BY, ORDER BY, LIMIT.
// The SAMPLE BY clause is spliced in after the rest is rendered, searching
// only past the outer WHERE so a subquery's clauses are never matched.
func (c *SQLCompiler) Compile(q queryir.Select) (string, []any, error) {
	result := queryir.Validate(q)
	if !result.Valid {
		return "", nil, fmt.Errorf("invalid query: %s", strings.Join(result.Errors, "; "))
	}
	if !c.AllowWarnings && len(result.Warnings) > 0 {
		return "", nil, fmt.Errorf("query has warnings: %s", strings.Join(result.Warnings, "; "))
	}

	st := &compileState{}
	sql, err := c.compileSelect(st, q)
	if err != nil {
		return "", nil, err
	}
	return sql, st.params, nil
}

func (c *SQLCompiler) compileSelect(st *compileState, q queryir.Select) (string, error) {
	cols, err := c.compileProjections(st, q.Columns)
	if err != nil {
		return "", fmt.Errorf("compile columns: %w", err)
	}
	from, err := c.compileSource(st, q.From)
	if err != nil {
		return "", fmt.Errorf("compile from: %w", err)
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(cols)
	b.WriteString(" FROM ")
	b.WriteString(from)

	if q.Filter != nil {
		where, err := c.compilePredicate(st, q.Filter)
		if err != nil {
			return "", fmt.Errorf("compile filter: %w", err)
		}
		b.WriteString(" WHERE ")
		b.WriteString(where)
	}
	head := b.Len()

	if len(q.GroupBy) > 0 {
		exprs, err := c.compileExprList(st, q.GroupBy)
		if err != nil {
			return "", fmt.Errorf("compile group by: %w", err)
		}
		b.WriteString(" GROUP BY ")
		b.WriteString(exprs)
	}

	if len(q.OrderBy) > 0 {
		parts := make([]string, len(q.OrderBy))
		for i, o := range q.OrderBy {
			expr, err := c.compileExpr(st, o.Expr)
			if err != nil {
				return "", fmt.Errorf("compile order by: %w", err)
			}
			if o.Desc {
				expr += " DESC"
			}
			parts[i] = expr
		}
		b.WriteString(" ORDER BY ")
		b.WriteString(strings.Join(parts, ", "))
	}

	if limit := dialect.LimitClause(q.Limit, q.Offset); limit != "" {
		b.WriteString(" ")
		b.WriteString(limit)
	}

	sql := b.String()
	if q.SampleBy != nil {
		sql = sampleby.InsertAt(sql, head, q.SampleBy.Render())
	}
	return sql, nil
}

func (c *SQLCompiler) compileProjections(st *compileState, cols []queryir.Projection) (string, error) {
	if len(cols) == 0 {
		return "*", nil
	}
	parts := make([]string, len(cols))
	for i, p := range cols {
		expr, err := c.compileExpr(st, p.Expr)
		if err != nil {
			return "", err
		}
		if p.Alias != "" {
			expr += " AS " + dialect.FormatColumn(p.Alias)
		}
		parts[i] = expr
	}
	return strings.Join(parts, ", "), nil
}

func (c *SQLCompiler) compileSource(st *compileState, s queryir.Source) (string, error) {
	switch src := s.(type) {
	case queryir.Table:
		return compileTable(src), nil
	case *queryir.Table:
		return compileTable(*src), nil
	case queryir.Subquery:
		return c.compileSubquery(st, src)
	case *queryir.Subquery:
		return c.compileSubquery(st, *src)
	case queryir.Join:
		return c.compileJoin(st, src)
	case *queryir.Join:
		return c.compileJoin(st, *src)
	default:
		return "", fmt.Errorf("unsupported source type: %T", s)
	}
}

// compileTable quotes the table name after stripping any public prefix.
func compileTable(t queryir.Table) string {
	name := dialect.QuoteIdentifier(dialect.RemovePublicSchema(t.Name))
	if t.Alias != "" {
		name += " " + dialect.FormatColumn(t.Alias)
	}
	return name
}

func (c *SQLCompiler) compileSubquery(st *compileState, s queryir.Subquery) (string, error) {
	inner, err := c.compileSelect(st, *s.Query)
	if err != nil {
		return "", fmt.Errorf("subquery %s: %w", s.Alias, err)
	}
	return "(" + inner + ") " + dialect.FormatColumn(s.Alias), nil
}

func (c *SQLCompiler) compileJoin(st *compileState, j queryir.Join) (string, error) {
	left, err := c.compileSource(st, j.Left)
	if err != nil {
		return "", err
	}
	right, err := c.compileSource(st, j.Right)
	if err != nil {
		return "", err
	}
	sql := left + " " + j.Kind.String() + " " + right
	if j.On != nil {
		on, err := c.compilePredicate(st, j.On)
		if err != nil {
			return "", fmt.Errorf("compile join condition: %w", err)
		}
		sql += " ON " + on
	}
	return sql, nil
}

func (c *SQLCompiler) compileExprList(st *compileState, exprs []queryir.Expr) (string, error) {
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		sql, err := c.compileExpr(st, e)
		if err != nil {
			return "", err
		}
		parts[i] = sql
	}
	return strings.Join(parts, ", "), nil
}

func (c *SQLCompiler) compileExpr(st *compileState, e queryir.Expr) (string, error) {
	switch expr := e.(type) {
	case queryir.Column:
		return compileColumn(expr), nil
	case *queryir.Column:
		return compileColumn(*expr), nil
	case queryir.Func:
		return c.compileFunc(st, expr)
	case *queryir.Func:
		return c.compileFunc(st, *expr)
	case queryir.Literal:
		return compileLiteral(st, expr)
	case *queryir.Literal:
		return compileLiteral(st, *expr)
	case queryir.Raw:
		return dialect.RemovePublicSchema(expr.SQL), nil
	case *queryir.Raw:
		return dialect.RemovePublicSchema(expr.SQL), nil
	case queryir.Star:
		return compileStar(expr), nil
	case *queryir.Star:
		return compileStar(*expr), nil
	default:
		return "", fmt.Errorf("unsupported expression type: %T", e)
	}
}

func compileColumn(col queryir.Column) string {
	if col.Table != "" {
		return dialect.FormatColumn(col.Table) + "." + dialect.FormatColumn(col.Name)
	}
	return dialect.FormatColumn(col.Name)
}

func compileStar(s queryir.Star) string {
	if s.Table != "" {
		return dialect.FormatColumn(s.Table) + ".*"
	}
	return "*"
}

func (c *SQLCompiler) compileFunc(st *compileState, f queryir.Func) (string, error) {
	args, err := c.compileExprList(st, f.Args)
	if err != nil {
		return "", fmt.Errorf("function %s: %w", f.Name, err)
	}
	return f.Name + "(" + args + ")", nil
}

// compileLiteral binds the literal as a parameter. Decimals are sent as
// float64 and times in UTC.
func compileLiteral(st *compileState, lit queryir.Literal) (string, error) {
	param, err := literalToParam(lit.Value)
	if err != nil {
		return "", err
	}
	return st.bind(param), nil
}

func literalToParam(v any) (any, error) {
	switch val := v.(type) {
	case nil:
		return nil, fmt.Errorf("NULL literal outside of = or != comparison")
	case bool, string, int, int8, int16, int32, int64, uint8, uint16, uint32, float32, float64:
		return val, nil
	case time.Time:
		return val.UTC(), nil
	case decimal.Decimal:
		f, _ := val.Float64()
		return f, nil
	case *decimal.Decimal:
		if val == nil {
			return nil, fmt.Errorf("nil decimal literal")
		}
		f, _ := val.Float64()
		return f, nil
	default:
		return nil, fmt.Errorf("unsupported literal type: %T", v)
	}
}

func (c *SQLCompiler) compilePredicate(st *compileState, p queryir.Predicate) (string, error) {
	switch pred := p.(type) {
	case queryir.Compare:
		return c.compileCompare(st, pred)
	case *queryir.Compare:
		return c.compileCompare(st, *pred)
	case queryir.And:
		return c.compileAnd(st, pred.Predicates)
	case *queryir.And:
		return c.compileAnd(st, pred.Predicates)
	case queryir.Or:
		return c.compileOr(st, pred.Predicates)
	case *queryir.Or:
		return c.compileOr(st, pred.Predicates)
	case queryir.RawPredicate:
		return dialect.RemovePublicSchema(pred.SQL), nil
	case *queryir.RawPredicate:
		return dialect.RemovePublicSchema(pred.SQL), nil
	default:
		return "", fmt.Errorf("unsupported predicate type: %T", p)
	}
}

func (c *SQLCompiler) compileCompare(st *compileState, cmp queryir.Compare) (string, error) {
	left, err := c.compileExpr(st, cmp.Left)
	if err != nil {
		return "", err
	}
	op := queryir.NormalizeOperator(cmp.Op)

	if queryir.IsNullLiteral(cmp.Right) {
		switch op {
		case "=":
			return left + " IS NULL", nil
		case "!=", "<>":
			return left + " IS NOT NULL", nil
		}
	}

	right, err := c.compileExpr(st, cmp.Right)
	if err != nil {
		return "", err
	}
	return left + " " + op + " " + right, nil
}

// compileAnd joins with AND; an empty conjunction is always true.
func (c *SQLCompiler) compileAnd(st *compileState, preds []queryir.Predicate) (string, error) {
	if len(preds) == 0 {
		return "1 = 1", nil
	}
	parts := make([]string, len(preds))
	for i, p := range preds {
		sql, err := c.compilePredicate(st, p)
		if err != nil {
			return "", err
		}
		parts[i] = sql
	}
	return strings.Join(parts, " AND "), nil
}

// compileOr joins with OR inside parentheses; an empty disjunction is
// always false.
func (c *SQLCompiler) compileOr(st *compileState, preds []queryir.Predicate) (string, error) {
	if len(preds) == 0 {
		return "1 = 0", nil
	}
	parts := make([]string, len(preds))
	for i, p := range preds {
		sql, err := c.compilePredicate(st, p)
		if err != nil {
			return "", err
		}
		parts[i] = sql
	}
	return "(" + strings.Join(parts, " OR ") + ")", nil
}
