package sampleby

import (
	"errors"
	"fmt"
)

// ErrInvalidSampleSpec matches every *SpecError under errors.Is.
var ErrInvalidSampleSpec = errors.New("invalid sample spec")

// SpecError reports a SAMPLE BY spec rejected at construction.
type SpecError struct {
	// Field names the offending option ("value", "unit", "fill", ...).
	Field string

	// Message is a human-readable description.
	Message string
}

// Error implements the error interface.
func (e *SpecError) Error() string {
	return fmt.Sprintf("INVALID_SAMPLE_SPEC: %s: %s", e.Field, e.Message)
}

// Is makes errors.Is(err, ErrInvalidSampleSpec) true.
func (e *SpecError) Is(target error) bool {
	return target == ErrInvalidSampleSpec
}

// IsInvalidSpec reports whether err is (or wraps) a *SpecError.
func IsInvalidSpec(err error) bool {
	var se *SpecError
	return errors.As(err, &se)
}

func specErrorf(field, format string, args ...any) *SpecError {
	return &SpecError{Field: field, Message: fmt.Sprintf(format, args...)}
}
