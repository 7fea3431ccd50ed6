package sampleby

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Unit is a SAMPLE BY bucket unit.
type Unit int

const (
	// UnitNone samples by row count rather than time.
	UnitNone Unit = iota
	Microsecond
	Millisecond
	Second
	Minute
	Hour
	Day
	Week
	Month
	Year
)

// unitLetters are the suffixes the server accepts. Case matters: m is
// minutes and M is months.
var unitLetters = map[Unit]string{
	UnitNone:    "",
	Microsecond: "U",
	Millisecond: "T",
	Second:      "s",
	Minute:      "m",
	Hour:        "h",
	Day:         "d",
	Week:        "w",
	Month:       "M",
	Year:        "y",
}

var unitNames = map[string]Unit{
	"microsecond": Microsecond,
	"millisecond": Millisecond,
	"second":      Second,
	"minute":      Minute,
	"hour":        Hour,
	"day":         Day,
	"week":        Week,
	"month":       Month,
	"year":        Year,
}

// Letter returns the unit suffix written after the bucket value.
func (u Unit) Letter() string {
	return unitLetters[u]
}

func (u Unit) valid() bool {
	_, ok := unitLetters[u]
	return ok
}

// String returns the unit letter, or "none" for UnitNone.
func (u Unit) String() string {
	if u == UnitNone {
		return "none"
	}
	if l, ok := unitLetters[u]; ok {
		return l
	}
	return "unknown"
}

// ParseUnit accepts a unit letter (case-sensitive) or an English unit name
// such as "minute" or "hours" (case-insensitive). The empty string is UnitNone.
func ParseUnit(s string) (Unit, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return UnitNone, nil
	}
	for u, l := range unitLetters {
		if l != "" && l == s {
			return u, nil
		}
	}
	name := strings.TrimSuffix(strings.ToLower(s), "s")
	if u, ok := unitNames[name]; ok {
		return u, nil
	}
	return UnitNone, specErrorf("unit", "unknown unit %q", s)
}

// FillPolicy controls how empty buckets are synthesized.
type FillPolicy int

const (
	// FillUnset omits the FILL clause.
	FillUnset FillPolicy = iota
	FillNone
	FillNull
	FillPrev
	FillLinear
	// FillConstant fills with Spec.FillValue.
	FillConstant
)

var fillKeywords = map[FillPolicy]string{
	FillNone:   "NONE",
	FillNull:   "NULL",
	FillPrev:   "PREV",
	FillLinear: "LINEAR",
}

// String returns the FILL keyword, "CONSTANT" or "UNSET".
func (f FillPolicy) String() string {
	switch f {
	case FillUnset:
		return "UNSET"
	case FillConstant:
		return "CONSTANT"
	}
	if kw, ok := fillKeywords[f]; ok {
		return kw
	}
	return "UNKNOWN"
}

// ParseFill accepts NONE, NULL, PREV or LINEAR (case-insensitive) or a
// numeric literal. A literal yields FillConstant and its value.
func ParseFill(s string) (FillPolicy, *decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return FillUnset, nil, nil
	}
	upper := strings.ToUpper(s)
	for p, kw := range fillKeywords {
		if kw == upper {
			return p, nil, nil
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return FillUnset, nil, specErrorf("fill", "expected NONE, NULL, PREV, LINEAR or a number, got %q", s)
	}
	return FillConstant, &d, nil
}

// Alignment selects how bucket boundaries are anchored.
type Alignment int

const (
	// AlignCalendar anchors buckets to calendar boundaries. It is the default.
	AlignCalendar Alignment = iota
	AlignFirstObservation
)

// String returns the text written after ALIGN TO.
func (a Alignment) String() string {
	switch a {
	case AlignCalendar:
		return "CALENDAR"
	case AlignFirstObservation:
		return "FIRST OBSERVATION"
	default:
		return "UNKNOWN"
	}
}

// ParseAlignment accepts CALENDAR or FIRST OBSERVATION, case-insensitive and
// with any run of whitespace (or an underscore) between the two words.
// The empty string is AlignCalendar.
func ParseAlignment(s string) (Alignment, error) {
	norm := strings.Join(strings.Fields(strings.ReplaceAll(strings.ToUpper(s), "_", " ")), " ")
	switch norm {
	case "", "CALENDAR":
		return AlignCalendar, nil
	case "FIRST OBSERVATION":
		return AlignFirstObservation, nil
	default:
		return AlignCalendar, specErrorf("align", "expected CALENDAR or FIRST OBSERVATION, got %q", s)
	}
}
