// Package sampleby compiles QuestDB SAMPLE BY clauses.
//
// A Spec describes a time-bucketing request: bucket size and unit, fill
// policy, alignment, time zone, offset and optional FROM/TO bounds. Specs are
// validated when built by New, so Render never fails.
//
// RENDERING:
//
// Render emits the clause parts in the order the server parses them:
//
//	SAMPLE BY <value><unit>
//	[FROM '<ts>'] [TO '<ts>']
//	[FILL(<policy>)]
//	ALIGN TO CALENDAR | ALIGN TO FIRST OBSERVATION
//	[TIME ZONE '<tz>']
//	[WITH OFFSET '<offset>']
//
// ALIGN TO is always written, so the result does not depend on the server's
// default alignment.
//
// INSERTION:
//
// Insert and InsertAt splice a rendered clause into SELECT text that was
// produced without it. The clause goes immediately before the first GROUP BY,
// otherwise before the first ORDER BY, otherwise before the first LIMIT,
// otherwise at the end of the statement. Matching is textual: keywords inside
// string literals are not recognised as such.
package sampleby
