package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/qdbconnect/internal/sampleby"
)

func TestSelect_Construction(t *testing.T) {
	sel := Select{
		Columns: []Projection{
			{Expr: Column{Name: "ts"}},
			{Expr: Func{Name: "avg", Args: []Expr{Column{Name: "price"}}}, Alias: "avg_price"},
		},
		From:   Table{Name: "trades"},
		Filter: Compare{Left: Column{Name: "sym"}, Op: "=", Right: Literal{Value: "BTC-USD"}},
	}

	assert.Len(t, sel.Columns, 2)
	assert.NotNil(t, sel.Filter)
	assert.Nil(t, sel.SampleBy)
	assert.Nil(t, sel.Limit)
}

func TestSources_AreSealed(t *testing.T) {
	sources := []Source{Table{Name: "t"}, Subquery{Alias: "s"}, Join{Kind: JoinAsof}, &Table{Name: "p"}}

	for _, s := range sources {
		switch s.(type) {
		case Table, *Table, Subquery, Join:
		default:
			t.Fatalf("unexpected source %T", s)
		}
	}
}

func TestSelect_GenerativeHelpers(t *testing.T) {
	base := Select{From: Table{Name: "trades"}}
	spec, err := sampleby.New(30, sampleby.Minute)
	require.NoError(t, err)

	sampled := base.WithSampleBy(spec).WithLimit(10).WithOffset(5)

	// Receiver untouched.
	assert.Nil(t, base.SampleBy)
	assert.Nil(t, base.Limit)
	assert.Nil(t, base.Offset)

	require.NotNil(t, sampled.SampleBy)
	assert.Equal(t, "SAMPLE BY 30m ALIGN TO CALENDAR", sampled.SampleBy.Render())
	assert.Equal(t, int64(10), *sampled.Limit)
	assert.Equal(t, int64(5), *sampled.Offset)
}

func TestSelect_AsSubquery(t *testing.T) {
	inner := Select{From: Table{Name: "trades"}}.WithLimit(3)
	sub := inner.AsSubquery("s")

	assert.Equal(t, "s", sub.Alias)
	require.NotNil(t, sub.Query)
	assert.Equal(t, int64(3), *sub.Query.Limit)

	// The subquery holds a copy.
	inner.Limit = nil
	assert.NotNil(t, sub.Query.Limit)
}

func TestJoinKind_String(t *testing.T) {
	assert.Equal(t, "JOIN", JoinInner.String())
	assert.Equal(t, "LEFT JOIN", JoinLeft.String())
	assert.Equal(t, "ASOF JOIN", JoinAsof.String())
	assert.Equal(t, "UNKNOWN JOIN", JoinKind(9).String())
}

func TestIsOperator(t *testing.T) {
	for _, op := range Operators {
		assert.True(t, IsOperator(op), op)
	}
	assert.True(t, IsOperator(" like "))
	assert.False(t, IsOperator("=="))
	assert.False(t, IsOperator("IN"))
}

func TestIsNullLiteral(t *testing.T) {
	var nilLit *Literal
	assert.True(t, IsNullLiteral(Literal{}))
	assert.True(t, IsNullLiteral(&Literal{}))
	assert.True(t, IsNullLiteral(nilLit))
	assert.False(t, IsNullLiteral(Literal{Value: 0}))
	assert.False(t, IsNullLiteral(&Literal{Value: "x"}))
	assert.False(t, IsNullLiteral(Column{Name: "a"}))
	assert.False(t, IsNullLiteral(nil))
}
