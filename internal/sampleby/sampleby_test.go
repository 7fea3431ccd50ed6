package sampleby

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	from := time.Date(2023, 4, 11, 0, 0, 0, 0, time.UTC)
	to := time.Date(2023, 4, 13, 0, 0, 0, 0, time.UTC)

	testCases := []struct {
		name  string
		value int64
		unit  Unit
		opts  []Option
		want  string
	}{
		{
			name:  "minutes",
			value: 30,
			unit:  Minute,
			want:  "SAMPLE BY 30m ALIGN TO CALENDAR",
		},
		{
			name:  "fill null with time zone",
			value: 1,
			unit:  Day,
			opts:  []Option{WithFill(FillNull), InTimeZone("Europe/Prague")},
			want:  "SAMPLE BY 1d FILL(NULL) ALIGN TO CALENDAR TIME ZONE 'Europe/Prague'",
		},
		{
			name:  "count based",
			value: 100,
			unit:  UnitNone,
			want:  "SAMPLE BY 100 ALIGN TO CALENDAR",
		},
		{
			name:  "fill prev first observation",
			value: 15,
			unit:  Minute,
			opts:  []Option{WithFill(FillPrev), AlignTo(AlignFirstObservation)},
			want:  "SAMPLE BY 15m FILL(PREV) ALIGN TO FIRST OBSERVATION",
		},
		{
			name:  "constant fill",
			value: 15,
			unit:  Minute,
			opts:  []Option{WithFillConstant(999.99)},
			want:  "SAMPLE BY 15m FILL(999.99) ALIGN TO CALENDAR",
		},
		{
			name:  "constant fill is compact",
			value: 1,
			unit:  Hour,
			opts:  []Option{WithFill(FillConstant), WithFillValue(decimal.RequireFromString("1.500"))},
			want:  "SAMPLE BY 1h FILL(1.5) ALIGN TO CALENDAR",
		},
		{
			name:  "offset",
			value: 1,
			unit:  Day,
			opts:  []Option{WithOffset("02:00")},
			want:  "SAMPLE BY 1d ALIGN TO CALENDAR WITH OFFSET '02:00'",
		},
		{
			name:  "time zone then offset",
			value: 1,
			unit:  Day,
			opts:  []Option{InTimeZone("Europe/Prague"), WithOffset("-01:30")},
			want:  "SAMPLE BY 1d ALIGN TO CALENDAR TIME ZONE 'Europe/Prague' WITH OFFSET '-01:30'",
		},
		{
			name:  "from to",
			value: 1,
			unit:  Hour,
			opts:  []Option{From(from), To(to), WithFill(FillNull)},
			want:  "SAMPLE BY 1h FROM '2023-04-11T00:00:00.000000Z' TO '2023-04-13T00:00:00.000000Z' FILL(NULL) ALIGN TO CALENDAR",
		},
		{
			name:  "month is capital M",
			value: 1,
			unit:  Month,
			opts:  []Option{WithFill(FillLinear)},
			want:  "SAMPLE BY 1M FILL(LINEAR) ALIGN TO CALENDAR",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			spec, err := New(tc.value, tc.unit, tc.opts...)
			require.NoError(t, err)
			assert.Equal(t, tc.want, spec.Render())
			assert.Equal(t, tc.want, spec.String())
		})
	}
}

func TestNew_Invalid(t *testing.T) {
	testCases := []struct {
		name  string
		value int64
		unit  Unit
		opts  []Option
		field string
	}{
		{"zero value", 0, Minute, nil, "value"},
		{"negative value", -5, Minute, nil, "value"},
		{"unknown unit", 1, Unit(42), nil, "unit"},
		{"constant without value", 1, Minute, []Option{WithFill(FillConstant)}, "fill"},
		{"value without constant", 1, Minute, []Option{WithFillValue(decimal.NewFromInt(3)), WithFill(FillPrev)}, "fill"},
		{"unknown fill", 1, Minute, []Option{WithFill(FillPolicy(99))}, "fill"},
		{"unknown time zone", 1, Day, []Option{InTimeZone("Mars/Olympus")}, "timezone"},
		{"bad offset", 1, Day, []Option{WithOffset("2h")}, "offset"},
		{"offset hour out of range", 1, Day, []Option{WithOffset("24:00")}, "offset"},
		{"time zone under first observation", 1, Day, []Option{AlignTo(AlignFirstObservation), InTimeZone("UTC")}, "align"},
		{"from under first observation", 1, Day, []Option{AlignTo(AlignFirstObservation), From(time.Unix(0, 0))}, "align"},
		{"unknown alignment", 1, Day, []Option{AlignTo(Alignment(7))}, "align"},
		{"from after to", 1, Hour, []Option{From(time.Unix(200, 0)), To(time.Unix(100, 0))}, "range"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.value, tc.unit, tc.opts...)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidSampleSpec))
			assert.True(t, IsInvalidSpec(err))

			var se *SpecError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tc.field, se.Field)
			assert.Contains(t, se.Error(), "INVALID_SAMPLE_SPEC")
		})
	}
}

func TestParseUnit(t *testing.T) {
	testCases := []struct {
		in   string
		want Unit
	}{
		{"", UnitNone},
		{"U", Microsecond},
		{"T", Millisecond},
		{"s", Second},
		{"m", Minute},
		{"h", Hour},
		{"d", Day},
		{"w", Week},
		{"M", Month},
		{"y", Year},
		{"minute", Minute},
		{"Minutes", Minute},
		{"HOURS", Hour},
		{" d ", Day},
	}

	for _, tc := range testCases {
		got, err := ParseUnit(tc.in)
		require.NoError(t, err, "input %q", tc.in)
		assert.Equal(t, tc.want, got, "input %q", tc.in)
	}

	_, err := ParseUnit("x")
	assert.True(t, IsInvalidSpec(err))
	_, err = ParseUnit("D")
	assert.True(t, IsInvalidSpec(err))
}

func TestParseFill(t *testing.T) {
	p, v, err := ParseFill("null")
	require.NoError(t, err)
	assert.Equal(t, FillNull, p)
	assert.Nil(t, v)

	p, _, err = ParseFill("LINEAR")
	require.NoError(t, err)
	assert.Equal(t, FillLinear, p)

	p, v, err = ParseFill("")
	require.NoError(t, err)
	assert.Equal(t, FillUnset, p)
	assert.Nil(t, v)

	p, v, err = ParseFill("-12.50")
	require.NoError(t, err)
	assert.Equal(t, FillConstant, p)
	require.NotNil(t, v)
	assert.Equal(t, "-12.5", v.String())

	_, _, err = ParseFill("previous")
	assert.True(t, errors.Is(err, ErrInvalidSampleSpec))
}

func TestParseAlignment(t *testing.T) {
	a, err := ParseAlignment("")
	require.NoError(t, err)
	assert.Equal(t, AlignCalendar, a)

	a, err = ParseAlignment("calendar")
	require.NoError(t, err)
	assert.Equal(t, AlignCalendar, a)

	a, err = ParseAlignment("first  observation")
	require.NoError(t, err)
	assert.Equal(t, AlignFirstObservation, a)

	a, err = ParseAlignment("FIRST_OBSERVATION")
	require.NoError(t, err)
	assert.Equal(t, AlignFirstObservation, a)

	_, err = ParseAlignment("first")
	assert.True(t, IsInvalidSpec(err))
}

func TestEnumStrings(t *testing.T) {
	assert.Equal(t, "none", UnitNone.String())
	assert.Equal(t, "M", Month.String())
	assert.Equal(t, "unknown", Unit(99).String())
	assert.Equal(t, "UNSET", FillUnset.String())
	assert.Equal(t, "CONSTANT", FillConstant.String())
	assert.Equal(t, "PREV", FillPrev.String())
	assert.Equal(t, "FIRST OBSERVATION", AlignFirstObservation.String())
}

func TestInsert(t *testing.T) {
	const frag = "SAMPLE BY 1h ALIGN TO CALENDAR"

	testCases := []struct {
		name string
		stmt string
		want string
	}{
		{
			name: "before order by not limit",
			stmt: "SELECT ts, avg(price) FROM trades ORDER BY ts LIMIT 10",
			want: "SELECT ts, avg(price) FROM trades SAMPLE BY 1h ALIGN TO CALENDAR ORDER BY ts LIMIT 10",
		},
		{
			name: "appended when no anchor",
			stmt: "SELECT ts, avg(price) FROM trades",
			want: "SELECT ts, avg(price) FROM trades SAMPLE BY 1h ALIGN TO CALENDAR",
		},
		{
			name: "before group by",
			stmt: "SELECT sym, avg(price) FROM trades GROUP BY sym ORDER BY sym",
			want: "SELECT sym, avg(price) FROM trades SAMPLE BY 1h ALIGN TO CALENDAR GROUP BY sym ORDER BY sym",
		},
		{
			name: "before limit",
			stmt: "SELECT ts, avg(price) FROM trades WHERE price > 1 LIMIT 3",
			want: "SELECT ts, avg(price) FROM trades WHERE price > 1 SAMPLE BY 1h ALIGN TO CALENDAR LIMIT 3",
		},
		{
			name: "case insensitive with newlines",
			stmt: "SELECT ts FROM trades\n order  by ts",
			want: "SELECT ts FROM trades\n SAMPLE BY 1h ALIGN TO CALENDAR order  by ts",
		},
		{
			name: "word boundary",
			stmt: "SELECT limited, border_by FROM trades",
			want: "SELECT limited, border_by FROM trades SAMPLE BY 1h ALIGN TO CALENDAR",
		},
		{
			name: "trailing semicolon kept",
			stmt: "SELECT ts FROM trades;  ",
			want: "SELECT ts FROM trades SAMPLE BY 1h ALIGN TO CALENDAR;",
		},
		{
			name: "empty statement",
			stmt: "",
			want: frag,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Insert(tc.stmt, frag))
		})
	}
}

func TestInsert_EmptyFragment(t *testing.T) {
	assert.Equal(t, "SELECT 1", Insert("SELECT 1", "  "))
}

func TestInsertAt_SkipsSubquery(t *testing.T) {
	const frag = "SAMPLE BY 30m ALIGN TO CALENDAR"
	stmt := "SELECT * FROM (SELECT ts, price FROM trades ORDER BY ts) t LIMIT 5"
	from := strings.Index(stmt, ") t") + len(") t")

	got := InsertAt(stmt, from, frag)
	assert.Equal(t, "SELECT * FROM (SELECT ts, price FROM trades ORDER BY ts) t SAMPLE BY 30m ALIGN TO CALENDAR LIMIT 5", got)

	// Without the offset the inner ORDER BY is the first match.
	naive := Insert(stmt, frag)
	assert.Equal(t, "SELECT * FROM (SELECT ts, price FROM trades SAMPLE BY 30m ALIGN TO CALENDAR ORDER BY ts) t LIMIT 5", naive)
}

func TestInsertAt_OffsetClamped(t *testing.T) {
	assert.Equal(t, "SELECT 1 SAMPLE BY 1d ALIGN TO CALENDAR", InsertAt("SELECT 1", 500, "SAMPLE BY 1d ALIGN TO CALENDAR"))
	assert.Equal(t, "SELECT 1 SAMPLE BY 1d ALIGN TO CALENDAR LIMIT 1", InsertAt("SELECT 1 LIMIT 1", -3, "SAMPLE BY 1d ALIGN TO CALENDAR"))
}

func TestSpec_ValidateLiteral(t *testing.T) {
	s := Spec{Value: 5, Unit: Second}
	require.NoError(t, s.Validate())
	assert.Equal(t, "SAMPLE BY 5s ALIGN TO CALENDAR", s.Render())

	assert.Error(t, Spec{}.Validate())
}
