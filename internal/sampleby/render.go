package sampleby

import (
	"strconv"
	"strings"

	"github.com/roach88/qdbconnect/internal/dialect"
)

// Render returns the SAMPLE BY clause text without surrounding whitespace.
//
//	{Value: 30, Unit: Minute}                         → "SAMPLE BY 30m ALIGN TO CALENDAR"
//	{Value: 1, Unit: Day, Fill: FillNull,
//	 TimeZone: "Europe/Prague"}                       → "SAMPLE BY 1d FILL(NULL) ALIGN TO CALENDAR TIME ZONE 'Europe/Prague'"
func (s Spec) Render() string {
	var b strings.Builder
	b.WriteString("SAMPLE BY ")
	b.WriteString(strconv.FormatInt(s.Value, 10))
	b.WriteString(s.Unit.Letter())

	if !s.From.IsZero() {
		b.WriteString(" FROM '")
		b.WriteString(s.From.UTC().Format(dialect.TimestampLayout))
		b.WriteString("'")
	}
	if !s.To.IsZero() {
		b.WriteString(" TO '")
		b.WriteString(s.To.UTC().Format(dialect.TimestampLayout))
		b.WriteString("'")
	}

	if fill := s.fillText(); fill != "" {
		b.WriteString(" FILL(")
		b.WriteString(fill)
		b.WriteString(")")
	}

	b.WriteString(" ALIGN TO ")
	b.WriteString(s.Align.String())

	if s.TimeZone != "" {
		b.WriteString(" TIME ZONE '")
		b.WriteString(s.TimeZone)
		b.WriteString("'")
	}
	if s.Offset != "" {
		b.WriteString(" WITH OFFSET '")
		b.WriteString(s.Offset)
		b.WriteString("'")
	}
	return b.String()
}

// String returns Render().
func (s Spec) String() string {
	return s.Render()
}

func (s Spec) fillText() string {
	if s.Fill == FillConstant {
		if s.FillValue == nil {
			return ""
		}
		return s.FillValue.String()
	}
	return fillKeywords[s.Fill]
}
