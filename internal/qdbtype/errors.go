package qdbtype

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes type resolution errors.
type ErrorCode string

const (
	// ErrCodeUnsupportedType indicates the tag names no known type.
	ErrCodeUnsupportedType ErrorCode = "UNSUPPORTED_TYPE"

	// ErrCodeInvalidPrecision indicates a geohash precision outside [1, 60] bits.
	ErrCodeInvalidPrecision ErrorCode = "INVALID_PRECISION"

	// ErrCodeMalformedTag indicates a geohash tag that does not parse.
	ErrCodeMalformedTag ErrorCode = "MALFORMED_TAG"
)

// TypeError is returned by Resolve, ParseGeohash and CanonicalTag.
type TypeError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Tag is the offending tag text, empty for CanonicalTag errors.
	Tag string

	// Bits is the offending precision for ErrCodeInvalidPrecision.
	Bits int

	// Message is a human-readable description.
	Message string
}

// Error implements the error interface.
func (e *TypeError) Error() string {
	if e.Tag != "" {
		return fmt.Sprintf("%s: %s (tag=%q)", e.Code, e.Message, e.Tag)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsUnsupportedType reports whether err is an unknown-tag error.
func IsUnsupportedType(err error) bool {
	return hasCode(err, ErrCodeUnsupportedType)
}

// IsInvalidPrecision reports whether err is a geohash precision error.
func IsInvalidPrecision(err error) bool {
	return hasCode(err, ErrCodeInvalidPrecision)
}

// IsMalformedTag reports whether err is a geohash parse error.
func IsMalformedTag(err error) bool {
	return hasCode(err, ErrCodeMalformedTag)
}

func hasCode(err error, code ErrorCode) bool {
	var te *TypeError
	if errors.As(err, &te) {
		return te.Code == code
	}
	return false
}

func unsupportedType(tag string) *TypeError {
	return &TypeError{
		Code:    ErrCodeUnsupportedType,
		Tag:     tag,
		Message: "unsupported column type",
	}
}

func invalidPrecision(tag string, bits int) *TypeError {
	return &TypeError{
		Code:    ErrCodeInvalidPrecision,
		Tag:     tag,
		Bits:    bits,
		Message: fmt.Sprintf("geohash precision must be within [%d, %d] bits, got %d", minGeohashBits, maxGeohashBits, bits),
	}
}

func malformedTag(tag, reason string) *TypeError {
	return &TypeError{
		Code:    ErrCodeMalformedTag,
		Tag:     tag,
		Message: reason,
	}
}
