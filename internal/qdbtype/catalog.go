package qdbtype

import (
	"sort"
	"strings"
	"sync"

	"github.com/roach88/qdbconnect/internal/dialect"
)

// Category is the storage category of a column type.
type Category int

const (
	CategoryBoolean Category = iota
	CategoryInteger
	CategoryFloat
	CategoryString
	CategoryTemporal
)

// String returns the lower-case category name.
func (c Category) String() string {
	switch c {
	case CategoryBoolean:
		return "boolean"
	case CategoryInteger:
		return "integer"
	case CategoryFloat:
		return "float"
	case CategoryString:
		return "string"
	case CategoryTemporal:
		return "temporal"
	default:
		return "unknown"
	}
}

// Descriptor describes one concrete column type.
//
// Descriptors are values: comparable with ==, never mutated after
// construction.
type Descriptor struct {
	// Tag is the canonical type name (e.g. "LONG256", "GEOHASH(3c)").
	Tag string `json:"tag"`

	// Code is the type code the database reports on the wire.
	Code int `json:"code"`

	// Category is the storage category.
	Category Category `json:"category"`

	// Width is the storage width in bits; 0 for variable-width types.
	Width int `json:"width"`

	// Geohash is true for the geohash family.
	Geohash bool `json:"geohash,omitempty"`

	// Precision is the geohash precision in bits; 0 otherwise.
	Precision int `json:"precision,omitempty"`
}

// GeohashClass returns the storage class, GeohashNone for other types.
func (d Descriptor) GeohashClass() GeohashClass {
	if !d.Geohash {
		return GeohashNone
	}
	class, err := GeohashClassOf(d.Precision)
	if err != nil {
		return GeohashNone
	}
	return class
}

// IsTemporal reports whether values of this type are timestamps or dates.
func (d Descriptor) IsTemporal() bool {
	return d.Category == CategoryTemporal
}

// ColumnSpec renders the column definition used in CREATE TABLE.
//
//	Descriptor{Tag: "SYMBOL"}.ColumnSpec("ticker") → `"ticker" SYMBOL`
func (d Descriptor) ColumnSpec(name string) string {
	return dialect.QuoteIdentifier(name) + " " + d.Tag
}

// fixedTypes lists the non-parametric types in type-code order.
var fixedTypes = []Descriptor{
	{Tag: "BOOLEAN", Code: 1, Category: CategoryBoolean, Width: 1},
	{Tag: "BYTE", Code: 2, Category: CategoryInteger, Width: 8},
	{Tag: "SHORT", Code: 3, Category: CategoryInteger, Width: 16},
	{Tag: "CHAR", Code: 4, Category: CategoryString, Width: 16},
	{Tag: "INT", Code: 5, Category: CategoryInteger, Width: 32},
	{Tag: "LONG", Code: 6, Category: CategoryInteger, Width: 64},
	{Tag: "DATE", Code: 7, Category: CategoryTemporal, Width: 64},
	{Tag: "TIMESTAMP", Code: 8, Category: CategoryTemporal, Width: 64},
	{Tag: "FLOAT", Code: 9, Category: CategoryFloat, Width: 32},
	{Tag: "DOUBLE", Code: 10, Category: CategoryFloat, Width: 64},
	{Tag: "STRING", Code: 11, Category: CategoryString},
	{Tag: "SYMBOL", Code: 12, Category: CategoryString, Width: 32},
	{Tag: "LONG256", Code: 13, Category: CategoryString, Width: 256},
	{Tag: "UUID", Code: 19, Category: CategoryString, Width: 128},
	{Tag: "LONG128", Code: 24, Category: CategoryString, Width: 128},
	{Tag: "IPV4", Code: 26, Category: CategoryString, Width: 32},
	{Tag: "VARCHAR", Code: 27, Category: CategoryString},
}

// Catalog resolves type tags to descriptors.
//
// The zero value is not usable; construct with NewCatalog.
type Catalog struct {
	fixed map[string]Descriptor // immutable after NewCatalog
	memo  sync.Map              // tag as given → Descriptor
}

// NewCatalog creates a catalog with its own memo table.
func NewCatalog() *Catalog {
	fixed := make(map[string]Descriptor, len(fixedTypes))
	for _, d := range fixedTypes {
		fixed[d.Tag] = d
	}
	return &Catalog{fixed: fixed}
}

// Resolve maps a tag to its descriptor.
//
// Resolution order:
//  1. Exact match on a fixed tag
//  2. Memoized result for this exact tag text
//  3. Case-insensitive match on a fixed tag
//  4. Geohash pattern GEOHASH(<digits><b|c>)
//
// Errors: ErrCodeUnsupportedType for unknown tags, ErrCodeMalformedTag for
// tags mentioning GEOHASH that do not parse, ErrCodeInvalidPrecision for
// geohash precision outside [1, 60] bits. Errors are never memoized.
func (c *Catalog) Resolve(tag string) (Descriptor, error) {
	if d, ok := c.fixed[tag]; ok {
		return d, nil
	}
	if v, ok := c.memo.Load(tag); ok {
		return v.(Descriptor), nil
	}

	d, err := c.resolveSlow(tag)
	if err != nil {
		return Descriptor{}, err
	}

	// Concurrent first-population stores equal values; keep whichever won.
	actual, _ := c.memo.LoadOrStore(tag, d)
	return actual.(Descriptor), nil
}

// MustResolve is like Resolve but panics on error.
// Intended for static tags in tests and package-level tables.
func (c *Catalog) MustResolve(tag string) Descriptor {
	d, err := c.Resolve(tag)
	if err != nil {
		panic(err)
	}
	return d
}

func (c *Catalog) resolveSlow(tag string) (Descriptor, error) {
	normalized := strings.ToUpper(strings.TrimSpace(tag))
	if normalized == "" {
		return Descriptor{}, unsupportedType(tag)
	}
	if d, ok := c.fixed[normalized]; ok {
		return d, nil
	}
	if strings.Contains(normalized, "GEOHASH") {
		bits, err := ParseGeohash(tag)
		if err != nil {
			return Descriptor{}, err
		}
		return geohashDescriptor(bits), nil
	}
	return Descriptor{}, unsupportedType(tag)
}

// Types returns every concrete type ordered by type code: the fixed types
// plus one descriptor per geohash storage class at its canonical precision.
func (c *Catalog) Types() []Descriptor {
	types := make([]Descriptor, 0, len(c.fixed)+len(geohashClasses))
	for _, d := range c.fixed {
		types = append(types, d)
	}
	for _, bits := range []int{8, 15, 30, 60} {
		types = append(types, geohashDescriptor(bits))
	}
	sort.Slice(types, func(i, j int) bool {
		return types[i].Code < types[j].Code
	})
	return types
}
