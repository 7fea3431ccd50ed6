package client

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/roach88/qdbconnect/internal/ddl"
)

// ErrTableNotFound is returned when a table has no columns on the server.
var ErrTableNotFound = errors.New("table not found")

const (
	showTablesSQL = `SHOW TABLES`
	tableAttrsSQL = `SELECT designatedTimestamp, partitionBy, walEnabled FROM tables() WHERE table_name = $1`
)

// TableNames lists the tables on the server in sorted order.
func (c *Client) TableNames(ctx context.Context) ([]string, error) {
	rows, err := c.Query(ctx, showTablesSQL)
	if err != nil {
		return nil, err
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("read table names: %w", err)
	}
	sort.Strings(names)
	return names, nil
}

// HasTable reports whether name is one of TableNames, ignoring case.
func (c *Client) HasTable(ctx context.Context, name string) (bool, error) {
	names, err := c.TableNames(ctx)
	if err != nil {
		return false, err
	}
	for _, n := range names {
		if strings.EqualFold(n, name) {
			return true, nil
		}
	}
	return false, nil
}

// Columns returns the table's columns in server order with their types
// resolved through the catalog.
func (c *Client) Columns(ctx context.Context, table string) ([]ddl.Column, error) {
	rows, err := c.Query(ctx, tableColumnsSQL(table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []ddl.Column
	for rows.Next() {
		var name, tag string
		if err := rows.Scan(&name, &tag); err != nil {
			return nil, fmt.Errorf("scan column of %s: %w", table, err)
		}
		desc, err := c.catalog.Resolve(tag)
		if err != nil {
			return nil, fmt.Errorf("column %s.%s: %w", table, name, err)
		}
		cols = append(cols, ddl.Column{Name: name, Type: desc})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read columns of %s: %w", table, err)
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, table)
	}
	return cols, nil
}

// ReflectTable rebuilds a table definition from tables() and
// table_columns(). A table missing from tables() is reported as
// unpartitioned without WAL.
func (c *Client) ReflectTable(ctx context.Context, table string) (*ddl.Table, error) {
	cols, err := c.Columns(ctx, table)
	if err != nil {
		return nil, err
	}

	engine := ddl.TableEngine{PartitionBy: ddl.PartitionNone}
	var (
		ts        *string
		partition string
		wal       bool
	)
	err = c.q.QueryRow(ctx, tableAttrsSQL, table).Scan(&ts, &partition, &wal)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
	case err != nil:
		return nil, fmt.Errorf("read attributes of %s: %w", table, err)
	default:
		pb, err := ddl.ParsePartitionBy(partition)
		if err != nil {
			return nil, fmt.Errorf("table %s: %w", table, err)
		}
		engine.PartitionBy = pb
		engine.WAL = wal
		if ts != nil {
			engine.TimestampColumn = *ts
		}
	}

	return &ddl.Table{Name: table, Columns: cols, Engine: engine}, nil
}

// CreateTable renders t and executes it.
func (c *Client) CreateTable(ctx context.Context, t ddl.Table) error {
	sql, err := ddl.CreateTable(t)
	if err != nil {
		return err
	}
	return c.Exec(ctx, sql)
}

// table_columns takes its argument as a string literal.
func tableColumnsSQL(table string) string {
	return `SELECT "column", "type" FROM table_columns('` + strings.ReplaceAll(table, "'", "''") + `')`
}
