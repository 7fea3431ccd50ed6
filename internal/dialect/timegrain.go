package dialect

import (
	"fmt"
	"strings"
	"time"
)

// timeGrainTemplates maps ISO-8601 durations to bucketing expressions.
// Timestamps are microseconds since epoch, so sub-unit grains add a
// microsecond offset to the truncated value.
var timeGrainTemplates = map[string]string{
	"":      "{col}",
	"PT1S":  "date_trunc('second', {col})",
	"PT5S":  "date_trunc('second', {col}) + 5000000",
	"PT30S": "date_trunc('second', {col}) + 30000000",
	"PT1M":  "date_trunc('minute', {col})",
	"PT5M":  "date_trunc('minute', {col}) + 300000000",
	"PT10M": "date_trunc('minute', {col}) + 600000000",
	"PT15M": "date_trunc('minute', {col}) + 900000000",
	"PT30M": "date_trunc('minute', {col}) + 1800000000",
	"PT1H":  "date_trunc('hour', {col})",
	"PT6H":  "date_trunc('hour', {col})",
	"P1D":   "date_trunc('day', {col})",
	"P1W":   "date_trunc('week', {col})",
	"P1M":   "date_trunc('month', {col})",
	"P3M":   "date_trunc('quarter', {col})",
	"P1Y":   "date_trunc('year', {col})",
}

// TimeGrainExpression returns the bucketing expression for an ISO-8601
// grain applied to col. An empty grain returns col unchanged.
func TimeGrainExpression(grain, col string) (string, bool) {
	tpl, ok := timeGrainTemplates[strings.ToUpper(grain)]
	if !ok {
		return "", false
	}
	return strings.ReplaceAll(tpl, "{col}", col), true
}

// TimeGrains returns the supported grain keys, excluding the empty grain.
func TimeGrains() []string {
	return []string{"PT1S", "PT5S", "PT30S", "PT1M", "PT5M", "PT10M", "PT15M",
		"PT30M", "PT1H", "PT6H", "P1D", "P1W", "P1M", "P3M", "P1Y"}
}

// TemporalLiteral renders t as a literal of the given column type.
// Only DATE, DATETIME and TIMESTAMP are supported; t is converted to UTC.
//
//	TemporalLiteral("DATE", t)      → "TO_DATE('2023-04-12', 'YYYY-MM-DD')"
//	TemporalLiteral("TIMESTAMP", t) → "TO_TIMESTAMP('2023-04-12T23:55:59.342380Z', 'yyyy-MM-ddTHH:mm:ss.SSSUUUZ')"
func TemporalLiteral(targetType string, t time.Time) (string, bool) {
	t = t.UTC()
	switch strings.ToUpper(targetType) {
	case "DATE":
		return fmt.Sprintf("TO_DATE('%s', 'YYYY-MM-DD')", t.Format("2006-01-02")), true
	case "DATETIME", "TIMESTAMP":
		return fmt.Sprintf("TO_TIMESTAMP('%s', 'yyyy-MM-ddTHH:mm:ss.SSSUUUZ')", t.Format(TimestampLayout)), true
	default:
		return "", false
	}
}

// TimestampLayout is the microsecond-precision UTC layout the server parses.
const TimestampLayout = "2006-01-02T15:04:05.000000Z"

// EpochSecondsExpression converts an epoch-seconds column to a timestamp.
func EpochSecondsExpression(col string) string {
	return col + " * 1000000"
}
