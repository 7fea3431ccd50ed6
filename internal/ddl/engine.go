// Package ddl renders QuestDB CREATE TABLE and DROP TABLE statements.
//
// The table suffix carries what has no ANSI counterpart:
//
//	TIMESTAMP("ts") PARTITION BY DAY WAL DEDUP UPSERT KEYS("ts","sym")
//	TIMESTAMP("ts") PARTITION BY HOUR BYPASS WAL
package ddl

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/qdbconnect/internal/dialect"
)

// ErrInvalidEngine is wrapped by every TableEngine.Suffix failure.
var ErrInvalidEngine = errors.New("invalid table engine")

// PartitionBy is the table partitioning interval.
type PartitionBy int

// Values match the server's own enumeration order.
const (
	PartitionDay PartitionBy = iota
	PartitionMonth
	PartitionYear
	PartitionNone
	PartitionHour
	PartitionWeek
)

var partitionNames = []string{"DAY", "MONTH", "YEAR", "NONE", "HOUR", "WEEK"}

// String returns the keyword written after PARTITION BY.
func (p PartitionBy) String() string {
	if p < 0 || int(p) >= len(partitionNames) {
		return fmt.Sprintf("PartitionBy(%d)", int(p))
	}
	return partitionNames[p]
}

// ParsePartitionBy parses a partitioning keyword, case-insensitive.
// The empty string is PartitionNone.
func ParsePartitionBy(s string) (PartitionBy, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return PartitionNone, nil
	}
	for i, name := range partitionNames {
		if name == s {
			return PartitionBy(i), nil
		}
	}
	return PartitionNone, fmt.Errorf("unknown partition interval %q", s)
}

// TableEngine holds the storage options rendered after the column list.
type TableEngine struct {
	TimestampColumn string
	PartitionBy     PartitionBy
	WAL             bool
	DedupUpsertKeys []string
}

// DefaultEngine is a day-partitioned WAL table on ts.
func DefaultEngine(ts string) TableEngine {
	return TableEngine{TimestampColumn: ts, PartitionBy: PartitionDay, WAL: true}
}

// Partitioned reports whether the engine partitions by a time interval.
func (e TableEngine) Partitioned() bool {
	return e.PartitionBy != PartitionNone
}

// Suffix renders the engine clause. It returns "" for an unpartitioned,
// non-WAL table without a designated timestamp.
func (e TableEngine) Suffix() (string, error) {
	if e.PartitionBy < PartitionDay || e.PartitionBy > PartitionWeek {
		return "", fmt.Errorf("%w: unknown partition interval %d", ErrInvalidEngine, int(e.PartitionBy))
	}
	hasTS := e.TimestampColumn != ""

	var b strings.Builder
	if hasTS {
		b.WriteString("TIMESTAMP(")
		b.WriteString(dialect.QuoteIdentifier(e.TimestampColumn))
		b.WriteString(")")
	}

	if e.Partitioned() {
		if !hasTS {
			return "", fmt.Errorf("%w: designated timestamp must be specified for partitioned table", ErrInvalidEngine)
		}
		b.WriteString(" PARTITION BY ")
		b.WriteString(e.PartitionBy.String())
	}

	switch {
	case e.WAL:
		if !e.Partitioned() {
			return "", fmt.Errorf("%w: WAL table requires designated timestamp and partition by", ErrInvalidEngine)
		}
		b.WriteString(" WAL")
		if len(e.DedupUpsertKeys) > 0 {
			if err := e.checkDedupKeys(); err != nil {
				return "", err
			}
			quoted := make([]string, len(e.DedupUpsertKeys))
			for i, k := range e.DedupUpsertKeys {
				quoted[i] = dialect.QuoteIdentifier(k)
			}
			b.WriteString(" DEDUP UPSERT KEYS(")
			b.WriteString(strings.Join(quoted, ","))
			b.WriteString(")")
		}
	case len(e.DedupUpsertKeys) > 0:
		return "", fmt.Errorf("%w: DEDUP only applies to WAL tables", ErrInvalidEngine)
	case e.Partitioned():
		b.WriteString(" BYPASS WAL")
	}

	return b.String(), nil
}

// checkDedupKeys requires the designated timestamp among the upsert keys.
func (e TableEngine) checkDedupKeys() error {
	for _, k := range e.DedupUpsertKeys {
		if strings.EqualFold(unquote(k), unquote(e.TimestampColumn)) {
			return nil
		}
	}
	return fmt.Errorf("%w: DEDUP UPSERT KEYS must include designated timestamp %q", ErrInvalidEngine, e.TimestampColumn)
}

func unquote(id string) string {
	return strings.Trim(id, `"'`)
}
