package querydoc

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/qdbconnect/internal/queryir"
	"github.com/roach88/qdbconnect/internal/querysql"
	"github.com/roach88/qdbconnect/internal/sampleby"
)

// TestGoldenQueries compiles every document under testdata/queries and
// compares the SQL and parameters with testdata/golden.
// Run with -update to regenerate after an intended change.
func TestGoldenQueries(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "queries", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	compiler := querysql.NewSQLCompiler()

	for _, path := range paths {
		name := strings.TrimSuffix(filepath.Base(path), ".yaml")
		t.Run(name, func(t *testing.T) {
			doc, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, name, doc.Name)

			q, err := doc.Query()
			require.NoError(t, err)

			sql, params, err := compiler.Compile(q)
			require.NoError(t, err)

			g.Assert(t, name, renderCompiled(t, sql, params))
		})
	}
}

func renderCompiled(t *testing.T, sql string, params []any) []byte {
	t.Helper()
	if params == nil {
		params = []any{}
	}
	encoded, err := json.Marshal(params)
	require.NoError(t, err)
	return []byte(sql + "\n-- params: " + string(encoded) + "\n")
}

func TestParseSampleBy(t *testing.T) {
	doc, err := Parse([]byte(`
name: q
table: trades
sample_by:
  value: 30
  unit: minutes
  fill: 999.99
  from: 2024-01-01T00:00:00Z
  to: 2024-01-02T00:00:00Z
`))
	require.NoError(t, err)
	require.NotNil(t, doc.SampleBy)
	assert.Equal(t, "999.99", doc.SampleBy.Fill)

	spec, err := doc.SampleBy.Spec()
	require.NoError(t, err)
	assert.Equal(t, sampleby.Minute, spec.Unit)
	assert.Equal(t, sampleby.FillConstant, spec.Fill)
	assert.Equal(t,
		"SAMPLE BY 30m FROM '2024-01-01T00:00:00.000000Z' TO '2024-01-02T00:00:00.000000Z' FILL(999.99) ALIGN TO CALENDAR",
		spec.Render())
}

func TestParseFillKeywords(t *testing.T) {
	testCases := []struct {
		yaml string
		want sampleby.FillPolicy
	}{
		{"NULL", sampleby.FillNull},
		{"null", sampleby.FillNull},
		{`"NULL"`, sampleby.FillNull},
		{"PREV", sampleby.FillPrev},
		{"linear", sampleby.FillLinear},
		{"NONE", sampleby.FillNone},
		{`""`, sampleby.FillUnset},
	}

	for _, tc := range testCases {
		t.Run(tc.yaml, func(t *testing.T) {
			doc, err := Parse([]byte("name: q\ntable: t\nsample_by:\n  value: 1\n  unit: h\n  fill: " + tc.yaml + "\n"))
			require.NoError(t, err)
			spec, err := doc.SampleBy.Spec()
			require.NoError(t, err)
			assert.Equal(t, tc.want, spec.Fill)
		})
	}
}

func TestParseErrors(t *testing.T) {
	testCases := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "missing name",
			yaml: "table: trades\n",
			want: "name is required",
		},
		{
			name: "no source",
			yaml: "name: q\n",
			want: "table or subquery is required",
		},
		{
			name: "both sources",
			yaml: "name: q\ntable: t\nalias: s\nsubquery:\n  table: u\n",
			want: "mutually exclusive",
		},
		{
			name: "subquery without alias",
			yaml: "name: q\nsubquery:\n  table: u\n",
			want: "alias is required",
		},
		{
			name: "nested error path",
			yaml: "name: q\nalias: s\nsubquery:\n  columns:\n    - expr: a\n",
			want: "query.subquery: table or subquery is required",
		},
		{
			name: "empty column expr",
			yaml: "name: q\ntable: t\ncolumns:\n  - expr: \" \"\n",
			want: "query.columns[0]: expr is required",
		},
		{
			name: "unknown field",
			yaml: "name: q\ntable: t\nlimt: 5\n",
			want: "field limt not found",
		},
		{
			name: "unknown sample_by field",
			yaml: "name: q\ntable: t\nsample_by:\n  value: 1\n  units: h\n",
			want: "field units not found in sample_by",
		},
		{
			name: "fill not scalar",
			yaml: "name: q\ntable: t\nsample_by:\n  value: 1\n  unit: h\n  fill: [1]\n",
			want: "fill must be a scalar",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestQueryInvalidSampleBy(t *testing.T) {
	doc, err := Parse([]byte("name: q\ntable: t\nsample_by:\n  value: 0\n  unit: h\n"))
	require.NoError(t, err)

	_, err = doc.Query()
	require.Error(t, err)
	assert.True(t, sampleby.IsInvalidSpec(err))
}

func TestQueryWhereConditions(t *testing.T) {
	doc, err := Parse([]byte(`
name: q
table: trades
where:
  - column: sym
    value: BTC-USD
  - column: price
    op: ">="
    value: 10.5
`))
	require.NoError(t, err)

	q, err := doc.Query()
	require.NoError(t, err)

	and, ok := q.Filter.(queryir.And)
	require.True(t, ok, "got %T", q.Filter)
	require.Len(t, and.Predicates, 2)
	assert.Equal(t, queryir.Compare{Left: queryir.Column{Name: "sym"}, Op: "=", Right: queryir.Literal{Value: "BTC-USD"}}, and.Predicates[0])
	assert.Equal(t, queryir.Compare{Left: queryir.Column{Name: "price"}, Op: ">=", Right: queryir.Literal{Value: 10.5}}, and.Predicates[1])
}

func TestQueryColumnGrains(t *testing.T) {
	tests := []struct {
		name    string
		column  string
		want    queryir.Expr
		wantErr string
	}{
		{
			name:   "hourly",
			column: "{expr: ts, grain: PT1H}",
			want:   queryir.Raw{SQL: "date_trunc('hour', ts)"},
		},
		{
			name:   "five minute offset",
			column: "{expr: ts, grain: pt5m}",
			want:   queryir.Raw{SQL: "date_trunc('minute', ts) + 300000000"},
		},
		{
			name:   "epoch seconds then day",
			column: "{expr: created, epoch_seconds: true, grain: P1D}",
			want:   queryir.Raw{SQL: "date_trunc('day', created * 1000000)"},
		},
		{
			name:   "epoch seconds only",
			column: "{expr: created, epoch_seconds: true}",
			want:   queryir.Raw{SQL: "created * 1000000"},
		},
		{
			name:    "unknown grain",
			column:  "{expr: ts, grain: PT2H}",
			wantErr: `unknown grain "PT2H"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := Parse([]byte("name: q\ntable: trades\ncolumns:\n  - " + tt.column + "\n"))
			require.NoError(t, err)

			q, err := doc.Query()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Len(t, q.Columns, 1)
			assert.Equal(t, tt.want, q.Columns[0].Expr)
		})
	}
}

func TestQueryWhereCast(t *testing.T) {
	tests := []struct {
		name    string
		cond    string
		want    queryir.Expr
		wantErr string
	}{
		{
			name: "timestamp",
			cond: "{column: ts, op: '>=', value: '2023-04-12T23:55:59.342380Z', cast: TIMESTAMP}",
			want: queryir.Raw{SQL: "TO_TIMESTAMP('2023-04-12T23:55:59.342380Z', 'yyyy-MM-ddTHH:mm:ss.SSSUUUZ')"},
		},
		{
			name: "date from offset time",
			cond: "{column: day, value: '2023-04-12T23:00:00-02:00', cast: date}",
			want: queryir.Raw{SQL: "TO_DATE('2023-04-13', 'YYYY-MM-DD')"},
		},
		{
			name:    "not a time",
			cond:    "{column: ts, value: yesterday, cast: TIMESTAMP}",
			wantErr: "cast TIMESTAMP",
		},
		{
			name:    "number value",
			cond:    "{column: ts, value: 42, cast: DATE}",
			wantErr: "value must be a time",
		},
		{
			name:    "unsupported type",
			cond:    "{column: ts, value: '2023-04-12T00:00:00Z', cast: LONG}",
			wantErr: "expected DATE or TIMESTAMP",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := Parse([]byte("name: q\ntable: trades\nwhere:\n  - column: sym\n    value: BTC-USD\n  - " + tt.cond + "\n"))
			require.NoError(t, err)

			q, err := doc.Query()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			and, ok := q.Filter.(queryir.And)
			require.True(t, ok, "got %T", q.Filter)
			require.Len(t, and.Predicates, 2)
			cmp, ok := and.Predicates[1].(queryir.Compare)
			require.True(t, ok)
			assert.Equal(t, tt.want, cmp.Right)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
