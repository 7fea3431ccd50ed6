// Package querydoc loads YAML query documents and converts them to
// queryir selects.
//
// A document names a table (or a nested subquery document) and the parts of
// the SELECT:
//
//	name: hourly_vwap
//	table: trades
//	columns:
//	  - expr: ts
//	  - expr: sum(price * amount) / sum(amount)
//	    as: vwap
//	where:
//	  - column: sym
//	    value: BTC-USD
//	sample_by:
//	  value: 1
//	  unit: h
//	  fill: NULL
//	order_by:
//	  - column: ts
//	limit: 24
//
// Unknown fields are rejected so typos fail loudly.
package querydoc

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/qdbconnect/internal/dialect"
	"github.com/roach88/qdbconnect/internal/queryir"
	"github.com/roach88/qdbconnect/internal/sampleby"
)

// Document is a query document.
type Document struct {
	// Name identifies the query; required at the top level.
	Name string `yaml:"name"`

	// Description is free text.
	Description string `yaml:"description,omitempty"`

	// Table is the source table. Exactly one of Table and Subquery is set.
	Table string `yaml:"table,omitempty"`

	// Alias names the table or subquery in the outer query. Required with
	// Subquery.
	Alias string `yaml:"alias,omitempty"`

	// Subquery is a nested document used as the FROM item.
	Subquery *Document `yaml:"subquery,omitempty"`

	Columns  []ColumnDoc    `yaml:"columns,omitempty"`
	Where    []ConditionDoc `yaml:"where,omitempty"`
	GroupBy  []string       `yaml:"group_by,omitempty"`
	OrderBy  []OrderDoc     `yaml:"order_by,omitempty"`
	Limit    *int64         `yaml:"limit,omitempty"`
	Offset   *int64         `yaml:"offset,omitempty"`
	SampleBy *SampleByDoc   `yaml:"sample_by,omitempty"`
}

// ColumnDoc is a projection.
type ColumnDoc struct {
	Expr string `yaml:"expr"`
	As   string `yaml:"as,omitempty"`

	// Grain buckets the expression by an ISO-8601 duration such as PT1H
	// or P1D, using date_trunc.
	Grain string `yaml:"grain,omitempty"`

	// EpochSeconds converts an epoch-seconds column to a timestamp before
	// any grain is applied.
	EpochSeconds bool `yaml:"epoch_seconds,omitempty"`
}

// ConditionDoc is one WHERE condition; conditions are ANDed.
type ConditionDoc struct {
	Column string `yaml:"column"`
	Op     string `yaml:"op,omitempty"` // defaults to =
	Value  any    `yaml:"value"`        // null compiles to IS NULL

	// Cast renders Value as an inline DATE or TIMESTAMP literal instead of
	// a bound parameter. Value must then be an RFC 3339 time.
	Cast string `yaml:"cast,omitempty"`
}

// OrderDoc is an ORDER BY item.
type OrderDoc struct {
	Column string `yaml:"column"`
	Desc   bool   `yaml:"desc,omitempty"`
}

// SampleByDoc is the sample_by block.
type SampleByDoc struct {
	Value int64  `yaml:"value"`
	Unit  string `yaml:"unit,omitempty"`

	// Fill is kept as written: an unquoted NULL names the policy and is not
	// treated as a YAML null.
	Fill string `yaml:"fill,omitempty"`

	Align    string     `yaml:"align,omitempty"`
	TimeZone string     `yaml:"timezone,omitempty"`
	Offset   string     `yaml:"offset,omitempty"`
	From     *time.Time `yaml:"from,omitempty"`
	To       *time.Time `yaml:"to,omitempty"`
}

var sampleByKeys = map[string]bool{
	"value": true, "unit": true, "fill": true, "align": true,
	"timezone": true, "offset": true, "from": true, "to": true,
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *SampleByDoc) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: sample_by must be a mapping", node.Line)
	}

	// Node.Decode does not inherit KnownFields, so check keys here.
	var fill *yaml.Node
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i]
		if !sampleByKeys[key.Value] {
			return fmt.Errorf("line %d: field %s not found in sample_by", key.Line, key.Value)
		}
		if key.Value == "fill" {
			fill = node.Content[i+1]
		}
	}

	if fill != nil && fill.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: fill must be a scalar", fill.Line)
	}

	type plain SampleByDoc
	var raw plain
	if err := node.Decode(&raw); err != nil {
		return err
	}
	if fill != nil {
		raw.Fill = fill.Value
	}
	*s = SampleByDoc(raw)
	return nil
}

// Load reads and parses a query document.
// Returns an error if the file doesn't exist, is malformed, contains
// unknown fields, or is missing required fields.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read query document: %w", err)
	}
	return Parse(data)
}

// Parse decodes a query document from YAML.
func Parse(data []byte) (*Document, error) {
	var doc Document
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if doc.Name == "" {
		return nil, fmt.Errorf("invalid query document: name is required")
	}
	if err := doc.validate("query"); err != nil {
		return nil, fmt.Errorf("invalid query document: %w", err)
	}
	return &doc, nil
}

// validate checks structure only; semantic checks happen in queryir.Validate.
func (d *Document) validate(path string) error {
	switch {
	case d.Table == "" && d.Subquery == nil:
		return fmt.Errorf("%s: table or subquery is required", path)
	case d.Table != "" && d.Subquery != nil:
		return fmt.Errorf("%s: table and subquery are mutually exclusive", path)
	case d.Subquery != nil && d.Alias == "":
		return fmt.Errorf("%s: alias is required with subquery", path)
	}

	for i, c := range d.Columns {
		if strings.TrimSpace(c.Expr) == "" {
			return fmt.Errorf("%s.columns[%d]: expr is required", path, i)
		}
	}
	for i, w := range d.Where {
		if strings.TrimSpace(w.Column) == "" {
			return fmt.Errorf("%s.where[%d]: column is required", path, i)
		}
	}
	for i, o := range d.OrderBy {
		if strings.TrimSpace(o.Column) == "" {
			return fmt.Errorf("%s.order_by[%d]: column is required", path, i)
		}
	}

	if d.Subquery != nil {
		return d.Subquery.validate(path + ".subquery")
	}
	return nil
}

// Query converts the document to a queryir.Select.
func (d *Document) Query() (queryir.Select, error) {
	var q queryir.Select

	if d.Subquery != nil {
		inner, err := d.Subquery.Query()
		if err != nil {
			return q, fmt.Errorf("subquery %s: %w", d.Alias, err)
		}
		q.From = inner.AsSubquery(d.Alias)
	} else {
		q.From = queryir.Table{Name: d.Table, Alias: d.Alias}
	}

	for _, c := range d.Columns {
		expr, err := c.expr()
		if err != nil {
			return q, fmt.Errorf("column %q: %w", c.Expr, err)
		}
		q.Columns = append(q.Columns, queryir.Projection{Expr: expr, Alias: c.As})
	}

	if len(d.Where) > 0 {
		preds := make([]queryir.Predicate, 0, len(d.Where))
		for _, w := range d.Where {
			left, err := ParseExpr(w.Column)
			if err != nil {
				return q, fmt.Errorf("where %q: %w", w.Column, err)
			}
			op := w.Op
			if op == "" {
				op = "="
			}
			right, err := w.right()
			if err != nil {
				return q, fmt.Errorf("where %q: %w", w.Column, err)
			}
			preds = append(preds, queryir.Compare{Left: left, Op: op, Right: right})
		}
		if len(preds) == 1 {
			q.Filter = preds[0]
		} else {
			q.Filter = queryir.And{Predicates: preds}
		}
	}

	for _, g := range d.GroupBy {
		expr, err := ParseExpr(g)
		if err != nil {
			return q, fmt.Errorf("group_by %q: %w", g, err)
		}
		q.GroupBy = append(q.GroupBy, expr)
	}
	for _, o := range d.OrderBy {
		expr, err := ParseExpr(o.Column)
		if err != nil {
			return q, fmt.Errorf("order_by %q: %w", o.Column, err)
		}
		q.OrderBy = append(q.OrderBy, queryir.Order{Expr: expr, Desc: o.Desc})
	}

	q.Limit = d.Limit
	q.Offset = d.Offset

	if d.SampleBy != nil {
		spec, err := d.SampleBy.Spec()
		if err != nil {
			return q, err
		}
		q.SampleBy = &spec
	}
	return q, nil
}

func (c ColumnDoc) expr() (queryir.Expr, error) {
	if c.Grain == "" && !c.EpochSeconds {
		return ParseExpr(c.Expr)
	}
	col := strings.TrimSpace(c.Expr)
	if c.EpochSeconds {
		col = dialect.EpochSecondsExpression(col)
	}
	if c.Grain != "" {
		grained, ok := dialect.TimeGrainExpression(c.Grain, col)
		if !ok {
			return nil, fmt.Errorf("unknown grain %q: expected one of %s", c.Grain, strings.Join(dialect.TimeGrains(), ", "))
		}
		col = grained
	}
	return queryir.Raw{SQL: col}, nil
}

func (w ConditionDoc) right() (queryir.Expr, error) {
	if w.Cast == "" {
		return queryir.Literal{Value: w.Value}, nil
	}
	var t time.Time
	switch v := w.Value.(type) {
	case time.Time:
		t = v
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return nil, fmt.Errorf("cast %s: %w", w.Cast, err)
		}
		t = parsed
	default:
		return nil, fmt.Errorf("cast %s: value must be a time, got %T", w.Cast, w.Value)
	}
	lit, ok := dialect.TemporalLiteral(w.Cast, t)
	if !ok {
		return nil, fmt.Errorf("cast %s: expected DATE or TIMESTAMP", w.Cast)
	}
	return queryir.Raw{SQL: lit}, nil
}

// Spec builds the validated sampleby.Spec.
func (s *SampleByDoc) Spec() (sampleby.Spec, error) {
	unit, err := sampleby.ParseUnit(s.Unit)
	if err != nil {
		return sampleby.Spec{}, err
	}
	fill, fillValue, err := sampleby.ParseFill(s.Fill)
	if err != nil {
		return sampleby.Spec{}, err
	}
	align, err := sampleby.ParseAlignment(s.Align)
	if err != nil {
		return sampleby.Spec{}, err
	}

	opts := []sampleby.Option{
		sampleby.WithFill(fill),
		sampleby.AlignTo(align),
		sampleby.InTimeZone(s.TimeZone),
		sampleby.WithOffset(s.Offset),
	}
	if fillValue != nil {
		opts = append(opts, sampleby.WithFillValue(*fillValue))
	}
	if s.From != nil {
		opts = append(opts, sampleby.From(*s.From))
	}
	if s.To != nil {
		opts = append(opts, sampleby.To(*s.To))
	}
	return sampleby.New(s.Value, unit, opts...)
}
