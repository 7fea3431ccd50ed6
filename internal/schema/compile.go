// Package schema compiles CUE table definitions into ddl.Table values.
//
// A definition lives under the top-level "table" struct:
//
//	table: trades: {
//		timestamp:    "ts"
//		partition_by: "DAY"
//		wal:          true
//		dedup_keys: ["ts", "sym"]
//		columns: {
//			ts:    "TIMESTAMP"
//			sym:   "SYMBOL"
//			price: "DOUBLE"
//			geo:   "GEOHASH(6c)"
//		}
//	}
//
// Columns keep their declaration order. When partition_by is omitted a
// table with a timestamp is partitioned by DAY; when wal is omitted it
// follows partitioning.
package schema

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/qdbconnect/internal/ddl"
	"github.com/roach88/qdbconnect/internal/qdbtype"
)

// CompileError is a table definition error with its CUE position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// CompileTable parses a CUE value into a ddl.Table, resolving column tags
// through cat.
//
// The CUE value should be the table struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`table: trades: { ... }`)
//	t, err := CompileTable(v.LookupPath(cue.ParsePath("table.trades")), cat)
func CompileTable(v cue.Value, cat *qdbtype.Catalog) (*ddl.Table, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	t := &ddl.Table{}
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		t.Name = labels[len(labels)-1].Unquoted()
	}
	if t.Name == "" {
		return nil, &CompileError{Field: "name", Message: "table name is required", Pos: v.Pos()}
	}

	columns, err := parseColumns(v, cat)
	if err != nil {
		return nil, err
	}
	t.Columns = columns

	t.Engine, err = parseEngine(v)
	if err != nil {
		return nil, err
	}

	t.IfNotExists, err = lookupBool(v, "if_not_exists", false)
	if err != nil {
		return nil, err
	}

	// Render once so timestamp and engine errors surface with a position.
	if _, err := ddl.CreateTable(*t); err != nil {
		return nil, &CompileError{Field: "engine", Message: err.Error(), Pos: v.Pos()}
	}
	return t, nil
}

// parseColumns reads the columns struct in declaration order.
func parseColumns(v cue.Value, cat *qdbtype.Catalog) ([]ddl.Column, error) {
	colsVal := v.LookupPath(cue.ParsePath("columns"))
	if !colsVal.Exists() {
		return nil, &CompileError{Field: "columns", Message: "at least one column is required", Pos: v.Pos()}
	}

	iter, err := colsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var columns []ddl.Column
	for iter.Next() {
		name := iter.Selector().Unquoted()
		tag, err := iter.Value().String()
		if err != nil {
			return nil, &CompileError{
				Field:   "type",
				Message: fmt.Sprintf("column %q: type must be a string tag", name),
				Pos:     iter.Value().Pos(),
			}
		}
		desc, err := cat.Resolve(tag)
		if err != nil {
			return nil, &CompileError{
				Field:   "type",
				Message: fmt.Sprintf("column %q: %v", name, err),
				Pos:     iter.Value().Pos(),
			}
		}
		columns = append(columns, ddl.Column{Name: name, Type: desc})
	}

	if len(columns) == 0 {
		return nil, &CompileError{Field: "columns", Message: "at least one column is required", Pos: colsVal.Pos()}
	}
	return columns, nil
}

// parseEngine reads timestamp, partition_by, wal and dedup_keys.
func parseEngine(v cue.Value) (ddl.TableEngine, error) {
	var e ddl.TableEngine

	ts, err := lookupString(v, "timestamp")
	if err != nil {
		return e, err
	}
	e.TimestampColumn = ts

	e.PartitionBy = ddl.PartitionNone
	if ts != "" {
		e.PartitionBy = ddl.PartitionDay
	}
	pbVal := v.LookupPath(cue.ParsePath("partition_by"))
	if pbVal.Exists() {
		s, err := pbVal.String()
		if err != nil {
			return e, formatCUEError(err)
		}
		pb, err := ddl.ParsePartitionBy(s)
		if err != nil {
			return e, &CompileError{Field: "partition_by", Message: err.Error(), Pos: pbVal.Pos()}
		}
		e.PartitionBy = pb
	}

	e.WAL, err = lookupBool(v, "wal", e.Partitioned())
	if err != nil {
		return e, err
	}

	keysVal := v.LookupPath(cue.ParsePath("dedup_keys"))
	if keysVal.Exists() {
		iter, err := keysVal.List()
		if err != nil {
			return e, formatCUEError(err)
		}
		for iter.Next() {
			k, err := iter.Value().String()
			if err != nil {
				return e, &CompileError{Field: "dedup_keys", Message: "keys must be column names", Pos: iter.Value().Pos()}
			}
			e.DedupUpsertKeys = append(e.DedupUpsertKeys, k)
		}
	}
	return e, nil
}

func lookupString(v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", nil
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func lookupBool(v cue.Value, field string, def bool) (bool, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return def, nil
	}
	b, err := fv.Bool()
	if err != nil {
		return false, formatCUEError(err)
	}
	return b, nil
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
