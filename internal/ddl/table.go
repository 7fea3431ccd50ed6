package ddl

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/qdbconnect/internal/dialect"
	"github.com/roach88/qdbconnect/internal/qdbtype"
)

// ErrInvalidTable is wrapped by CreateTable validation failures.
var ErrInvalidTable = errors.New("invalid table")

// Column is a named, typed table column.
type Column struct {
	Name string
	Type qdbtype.Descriptor
}

// Table is a table definition.
type Table struct {
	Name        string
	Columns     []Column
	Engine      TableEngine
	IfNotExists bool
}

// Column returns the column named name (case-insensitive).
func (t Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if strings.EqualFold(c.Name, unquote(name)) {
			return c, true
		}
	}
	return Column{}, false
}

// CreateTable renders a CREATE TABLE statement.
//
//	CREATE TABLE "trades" ("ts" TIMESTAMP, "sym" SYMBOL, "price" DOUBLE) TIMESTAMP("ts") PARTITION BY DAY WAL
func CreateTable(t Table) (string, error) {
	if strings.TrimSpace(t.Name) == "" {
		return "", fmt.Errorf("%w: table name is required", ErrInvalidTable)
	}
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("%w: table %q has no columns", ErrInvalidTable, t.Name)
	}

	seen := make(map[string]bool, len(t.Columns))
	specs := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		if strings.TrimSpace(c.Name) == "" {
			return "", fmt.Errorf("%w: column %d of %q has no name", ErrInvalidTable, i, t.Name)
		}
		if c.Type.Tag == "" {
			return "", fmt.Errorf("%w: column %q has no type", ErrInvalidTable, c.Name)
		}
		key := strings.ToLower(unquote(c.Name))
		if seen[key] {
			return "", fmt.Errorf("%w: duplicate column %q", ErrInvalidTable, c.Name)
		}
		seen[key] = true
		specs[i] = c.Type.ColumnSpec(c.Name)
	}

	if ts := t.Engine.TimestampColumn; ts != "" {
		col, ok := t.Column(ts)
		if !ok {
			return "", fmt.Errorf("%w: designated timestamp %q is not a column of %q", ErrInvalidTable, ts, t.Name)
		}
		if col.Type.Tag != "TIMESTAMP" {
			return "", fmt.Errorf("%w: designated timestamp %q must be TIMESTAMP, got %s", ErrInvalidTable, ts, col.Type.Tag)
		}
	}
	for _, k := range t.Engine.DedupUpsertKeys {
		if _, ok := t.Column(k); !ok {
			return "", fmt.Errorf("%w: dedup key %q is not a column of %q", ErrInvalidTable, k, t.Name)
		}
	}

	suffix, err := t.Engine.Suffix()
	if err != nil {
		return "", fmt.Errorf("table %q: %w", t.Name, err)
	}

	var b strings.Builder
	b.WriteString("CREATE TABLE ")
	if t.IfNotExists {
		b.WriteString("IF NOT EXISTS ")
	}
	b.WriteString(dialect.QuoteIdentifier(t.Name))
	b.WriteString(" (")
	b.WriteString(strings.Join(specs, ", "))
	b.WriteString(")")
	if suffix != "" {
		b.WriteString(" ")
		b.WriteString(suffix)
	}
	return b.String(), nil
}

// DropTable renders a DROP TABLE statement.
func DropTable(name string, ifExists bool) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("%w: table name is required", ErrInvalidTable)
	}
	if ifExists {
		return "DROP TABLE IF EXISTS " + dialect.QuoteIdentifier(name), nil
	}
	return "DROP TABLE " + dialect.QuoteIdentifier(name), nil
}

// CreateSchema always fails: the server has only the public schema.
func CreateSchema(string) (string, error) {
	return "", dialect.ErrSchemasUnsupported
}

// DropSchema always fails: the server has only the public schema.
func DropSchema(string) (string, error) {
	return "", dialect.ErrSchemasUnsupported
}
