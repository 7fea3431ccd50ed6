// Package qdbtype provides the catalog of QuestDB column types.
//
// A type is named by a tag, the string the database reports from
// table_columns() and accepts in CREATE TABLE (e.g. "BOOLEAN", "LONG256",
// "GEOHASH(8b)"). Resolving a tag yields an immutable Descriptor.
//
// FIXED TYPES:
//
// Non-parametric tags live in a table built once by NewCatalog and never
// mutated afterwards:
//
//	BOOLEAN BYTE SHORT CHAR INT LONG DATE TIMESTAMP FLOAT DOUBLE
//	STRING SYMBOL LONG256 UUID LONG128 IPV4 VARCHAR
//
// GEOHASH FAMILY:
//
// Geohash tags carry a precision, either in bits (GEOHASH(Nb)) or in
// characters (GEOHASH(Nc), one char = 5 bits). Precision must be within
// [1, 60] bits. The database stores geohashes in one of four widths, so
// every precision falls into a storage class:
//
//	bits   class  width  canonical tag
//	<=8    byte   8      GEOHASH(8b)
//	<=16   short  16     GEOHASH(3c)
//	<=32   int    32     GEOHASH(6c)
//	<=60   long   64     GEOHASH(12c)
//
// CACHING:
//
// Geohash descriptors (and case variants of fixed tags) are memoized per
// Catalog, keyed by the tag exactly as the caller passed it. A Catalog is
// safe for concurrent use; there is no package-level cache.
package qdbtype
