package dialect

import (
	"fmt"
	"strings"
)

// FunctionNames lists the server's SQL functions, as reported by its
// function factory cache.
var FunctionNames = []string{
	"abs", "acos", "all_tables", "and", "asin", "atan", "atan2", "avg",
	"base64", "between", "build", "case", "cast", "ceil", "ceiling",
	"coalesce", "concat", "cos", "cot", "count", "count_distinct",
	"current_database", "current_schema", "current_schemas", "current_user",
	"date_trunc", "dateadd", "datediff", "day", "day_of_week",
	"day_of_week_sunday_first", "days_in_month", "degrees",
	"dump_memory_usage", "dump_thread_stacks", "extract", "first", "floor",
	"flush_query_cache", "format_type", "haversine_dist_deg", "hour", "ilike",
	"isordered", "is_leap_year", "ksum", "last", "left", "length", "like",
	"list", "log", "long_sequence", "lower", "lpad", "ltrim", "make_geohash",
	"max", "memory_metrics", "micros", "millis", "min", "minute", "month",
	"not", "now", "nsum", "nullif", "position", "power", "radians",
	"reader_pool", "regexp_replace", "replace", "right", "rnd_bin",
	"rnd_boolean", "rnd_byte", "rnd_char", "rnd_date", "rnd_double",
	"rnd_float", "rnd_geohash", "rnd_int", "rnd_log", "rnd_long",
	"rnd_long256", "rnd_short", "rnd_str", "rnd_symbol", "rnd_timestamp",
	"rnd_uuid4", "round", "round_down", "round_half_even", "round_up",
	"row_number", "rpad", "rtrim", "second", "session_user", "sin",
	"size_pretty", "split_part", "sqrt", "starts_with", "stddev_samp",
	"string_agg", "strpos", "substring", "sum", "switch", "sysdate",
	"systimestamp", "table_columns", "table_partitions",
	"table_writer_metrics", "tables", "tan", "timestamp_ceil",
	"timestamp_floor", "timestamp_sequence", "timestamp_shuffle", "to_char",
	"to_date", "to_long128", "to_lowercase", "to_pg_date", "to_str",
	"to_timestamp", "to_timezone", "to_uppercase", "to_utc", "touch", "trim",
	"txid_current", "typeof", "upper", "version", "wal_tables",
	"week_of_year", "year",
}

// aggregateNames are the functions that collapse rows within a group or
// SAMPLE BY bucket.
var aggregateNames = []string{
	"avg", "count", "count_distinct", "first", "haversine_dist_deg", "ksum",
	"last", "max", "min", "nsum", "stddev_samp", "string_agg", "sum",
}

var (
	functionSet  = toSet(FunctionNames)
	aggregateSet = toSet(aggregateNames)
)

// IsFunction reports whether name is a known function (case-insensitive).
func IsFunction(name string) bool {
	return functionSet[strings.ToLower(name)]
}

// IsAggregate reports whether name is a known aggregate function.
func IsAggregate(name string) bool {
	return aggregateSet[strings.ToLower(name)]
}

// IsFunctionCall reports whether token names a known function, either bare
// ("now") or as a call ("avg(price)"). A token with only one of the two
// parentheses is a syntax error.
func IsFunctionCall(token string) (bool, error) {
	if token == "" {
		return false, nil
	}
	open := strings.IndexByte(token, '(')
	closing := strings.IndexByte(token, ')')

	var name string
	switch {
	case open > 0 && closing > open:
		name = token[:open]
	case open < 0 && closing < 0:
		name = token
	default:
		return false, fmt.Errorf("bad syntax: %s", token)
	}
	return IsFunction(name), nil
}

func toSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}
