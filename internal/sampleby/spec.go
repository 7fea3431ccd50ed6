package sampleby

import (
	"regexp"
	"time"
	_ "time/tzdata" // IANA zones for time zone validation on hosts without zoneinfo

	"github.com/shopspring/decimal"
)

// offsetPattern matches the [+-]HH:mm form accepted by WITH OFFSET.
var offsetPattern = regexp.MustCompile(`^[+-]?([01]\d|2[0-3]):[0-5]\d$`)

// Spec is a validated SAMPLE BY request. Build it with New; the zero value is
// not valid.
type Spec struct {
	Value     int64
	Unit      Unit
	Fill      FillPolicy
	FillValue *decimal.Decimal // set only with FillConstant
	Align     Alignment
	TimeZone  string    // IANA name, CALENDAR only
	Offset    string    // [+-]HH:mm, CALENDAR only
	From      time.Time // zero = unbounded
	To        time.Time // zero = unbounded
}

// Option configures a Spec in New.
type Option func(*Spec)

// WithFill sets the fill policy.
func WithFill(p FillPolicy) Option {
	return func(s *Spec) { s.Fill = p }
}

// WithFillValue sets the constant used with FillConstant.
func WithFillValue(v decimal.Decimal) Option {
	return func(s *Spec) { s.FillValue = &v }
}

// WithFillConstant is shorthand for FillConstant with value v.
func WithFillConstant(v float64) Option {
	return func(s *Spec) {
		d := decimal.NewFromFloat(v)
		s.Fill = FillConstant
		s.FillValue = &d
	}
}

// AlignTo sets the bucket alignment.
func AlignTo(a Alignment) Option {
	return func(s *Spec) { s.Align = a }
}

// InTimeZone sets the calendar time zone.
func InTimeZone(tz string) Option {
	return func(s *Spec) { s.TimeZone = tz }
}

// WithOffset sets the calendar offset, e.g. "02:00" or "-05:30".
func WithOffset(off string) Option {
	return func(s *Spec) { s.Offset = off }
}

// From sets the inclusive lower bound of the sampled range.
func From(t time.Time) Option {
	return func(s *Spec) { s.From = t }
}

// To sets the upper bound of the sampled range.
func To(t time.Time) Option {
	return func(s *Spec) { s.To = t }
}

// New builds and validates a Spec. All failures are *SpecError.
func New(value int64, unit Unit, opts ...Option) (Spec, error) {
	s := Spec{Value: value, Unit: unit}
	for _, opt := range opts {
		opt(&s)
	}
	if err := s.Validate(); err != nil {
		return Spec{}, err
	}
	return s, nil
}

// Validate checks the spec's invariants. New calls it; callers that build a
// Spec literal should call it before rendering.
func (s Spec) Validate() error {
	if s.Value <= 0 {
		return specErrorf("value", "bucket value must be positive, got %d", s.Value)
	}
	if !s.Unit.valid() {
		return specErrorf("unit", "unknown unit %d", int(s.Unit))
	}

	switch s.Fill {
	case FillConstant:
		if s.FillValue == nil {
			return specErrorf("fill", "constant fill requires a value")
		}
	case FillUnset, FillNone, FillNull, FillPrev, FillLinear:
		if s.FillValue != nil {
			return specErrorf("fill", "fill value %s given with fill policy %s", s.FillValue.String(), s.Fill)
		}
	default:
		return specErrorf("fill", "unknown fill policy %d", int(s.Fill))
	}

	switch s.Align {
	case AlignCalendar:
	case AlignFirstObservation:
		if s.TimeZone != "" || s.Offset != "" {
			return specErrorf("align", "TIME ZONE and WITH OFFSET require ALIGN TO CALENDAR")
		}
		if !s.From.IsZero() || !s.To.IsZero() {
			return specErrorf("align", "FROM/TO require ALIGN TO CALENDAR")
		}
	default:
		return specErrorf("align", "unknown alignment %d", int(s.Align))
	}

	if s.TimeZone != "" {
		if _, err := time.LoadLocation(s.TimeZone); err != nil {
			return specErrorf("timezone", "unknown time zone %q", s.TimeZone)
		}
	}
	if s.Offset != "" && !offsetPattern.MatchString(s.Offset) {
		return specErrorf("offset", "offset must be [+-]HH:mm, got %q", s.Offset)
	}
	if !s.From.IsZero() && !s.To.IsZero() && s.From.After(s.To) {
		return specErrorf("range", "FROM %s is after TO %s", s.From.UTC().Format(time.RFC3339), s.To.UTC().Format(time.RFC3339))
	}
	return nil
}
