package dialect

import (
	"math"
	"strconv"
)

// BigintMax is the open upper bound used when only an offset is given.
const BigintMax int64 = math.MaxInt64

// LimitClause renders LIMIT/OFFSET in the server's LIMIT lo,hi form.
//
//	limit only      → "LIMIT n"
//	limit + offset  → "LIMIT lo,lo+n"
//	offset only     → "LIMIT lo,9223372036854775807"
//
// Returns "" when both are nil. The upper bound saturates at BigintMax.
func LimitClause(limit, offset *int64) string {
	switch {
	case limit == nil && offset == nil:
		return ""
	case offset == nil:
		return "LIMIT " + strconv.FormatInt(*limit, 10)
	case limit == nil:
		return "LIMIT " + strconv.FormatInt(*offset, 10) + "," + strconv.FormatInt(BigintMax, 10)
	default:
		lo := *offset
		hi := BigintMax
		if *limit <= BigintMax-lo {
			hi = lo + *limit
		}
		return "LIMIT " + strconv.FormatInt(lo, 10) + "," + strconv.FormatInt(hi, 10)
	}
}
