package qdbtype

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
)

const (
	minGeohashBits = 1
	maxGeohashBits = 60

	bitsPerChar = 5

	geohashByteMax  = 8
	geohashShortMax = 16
	geohashIntMax   = 32
)

// GeohashClass is the storage width a geohash precision maps to.
type GeohashClass int

const (
	// GeohashNone is the class of non-geohash descriptors.
	GeohashNone GeohashClass = iota
	GeohashByte
	GeohashShort
	GeohashInt
	GeohashLong
)

// String returns the class name.
func (c GeohashClass) String() string {
	switch c {
	case GeohashByte:
		return "byte"
	case GeohashShort:
		return "short"
	case GeohashInt:
		return "int"
	case GeohashLong:
		return "long"
	default:
		return "none"
	}
}

// geohashClassInfo is the fixed per-class data.
type geohashClassInfo struct {
	tag   string
	code  int
	width int
}

var geohashClasses = map[GeohashClass]geohashClassInfo{
	GeohashByte:  {tag: "GEOHASH(8b)", code: 14, width: 8},
	GeohashShort: {tag: "GEOHASH(3c)", code: 15, width: 16},
	GeohashInt:   {tag: "GEOHASH(6c)", code: 16, width: 32},
	GeohashLong:  {tag: "GEOHASH(12c)", code: 17, width: 64},
}

// geohashPattern matches GEOHASH(<digits><b|c>), case-insensitive.
var geohashPattern = regexp.MustCompile(`(?i)^GEOHASH\((\d+)([bc])\)$`)

// GeohashClassOf returns the storage class for a bit precision.
// Fails with ErrCodeInvalidPrecision outside [1, 60].
func GeohashClassOf(bits int) (GeohashClass, error) {
	if bits < minGeohashBits || bits > maxGeohashBits {
		return GeohashNone, invalidPrecision("", bits)
	}
	switch {
	case bits <= geohashByteMax:
		return GeohashByte, nil
	case bits <= geohashShortMax:
		return GeohashShort, nil
	case bits <= geohashIntMax:
		return GeohashInt, nil
	default:
		return GeohashLong, nil
	}
}

// CanonicalTag returns the canonical tag of the storage class holding bits.
//
//	CanonicalTag(5)  → "GEOHASH(8b)"
//	CanonicalTag(15) → "GEOHASH(3c)"
//	CanonicalTag(60) → "GEOHASH(12c)"
func CanonicalTag(bits int) (string, error) {
	class, err := GeohashClassOf(bits)
	if err != nil {
		return "", err
	}
	return geohashClasses[class].tag, nil
}

// ParseGeohash extracts the bit precision from a geohash tag.
// Char precision is normalized to bits (chars * 5).
func ParseGeohash(tag string) (int, error) {
	m := geohashPattern.FindStringSubmatch(strings.TrimSpace(tag))
	if m == nil {
		return 0, malformedTag(tag, "expected GEOHASH(<digits>b) or GEOHASH(<digits>c)")
	}

	n, err := strconv.Atoi(m[1])
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return 0, invalidPrecision(tag, maxGeohashBits+1)
		}
		return 0, malformedTag(tag, err.Error())
	}

	bits := n
	if strings.EqualFold(m[2], "c") {
		// Bound before multiplying so huge char counts cannot overflow.
		if n > maxGeohashBits {
			return 0, invalidPrecision(tag, maxGeohashBits+1)
		}
		bits = n * bitsPerChar
	}

	if bits < minGeohashBits || bits > maxGeohashBits {
		return 0, invalidPrecision(tag, bits)
	}
	return bits, nil
}

// geohashDescriptor builds the descriptor for a validated precision.
func geohashDescriptor(bits int) Descriptor {
	class, _ := GeohashClassOf(bits)
	info := geohashClasses[class]
	return Descriptor{
		Tag:       info.tag,
		Code:      info.code,
		Category:  CategoryString,
		Width:     info.width,
		Geohash:   true,
		Precision: bits,
	}
}
