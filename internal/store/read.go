package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/qdbconnect/internal/ddl"
	"github.com/roach88/qdbconnect/internal/qdbtype"
)

// ErrTableNotFound is returned when no snapshot exists for a table.
var ErrTableNotFound = errors.New("table snapshot not found")

// TableInfo summarizes a stored snapshot.
type TableInfo struct {
	Name       string
	Columns    int
	CapturedAt time.Time
}

// LoadTable reads a snapshot and resolves its column types through cat.
func (s *Store) LoadTable(ctx context.Context, name string, cat *qdbtype.Catalog) (*ddl.Table, error) {
	var (
		t        = &ddl.Table{Name: name}
		pb       string
		keysJSON string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT timestamp_column, partition_by, wal, if_not_exists, dedup_keys
		FROM snapshot_tables
		WHERE name = ?
	`, name).Scan(&t.Engine.TimestampColumn, &pb, &t.Engine.WAL, &t.IfNotExists, &keysJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("load table %s: %w", name, ErrTableNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load table %s: %w", name, err)
	}

	if t.Engine.PartitionBy, err = ddl.ParsePartitionBy(pb); err != nil {
		return nil, fmt.Errorf("load table %s: %w", name, err)
	}
	if err := json.Unmarshal([]byte(keysJSON), &t.Engine.DedupUpsertKeys); err != nil {
		return nil, fmt.Errorf("load table %s: dedup keys: %w", name, err)
	}
	if len(t.Engine.DedupUpsertKeys) == 0 {
		t.Engine.DedupUpsertKeys = nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT name, type_tag
		FROM snapshot_columns
		WHERE table_name = ?
		ORDER BY ordinal ASC
	`, name)
	if err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var colName, tag string
		if err := rows.Scan(&colName, &tag); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		desc, err := cat.Resolve(tag)
		if err != nil {
			return nil, fmt.Errorf("load table %s: column %s: %w", name, colName, err)
		}
		t.Columns = append(t.Columns, ddl.Column{Name: colName, Type: desc})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate columns: %w", err)
	}
	return t, nil
}

// ListTables returns every snapshot ordered by name.
// Returns an empty slice (not nil) when the store is empty.
func (s *Store) ListTables(ctx context.Context) ([]TableInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.name, t.captured_at, COUNT(c.ordinal)
		FROM snapshot_tables t
		LEFT JOIN snapshot_columns c ON c.table_name = t.name
		GROUP BY t.name, t.captured_at
		ORDER BY t.name COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query tables: %w", err)
	}
	defer rows.Close()

	infos := []TableInfo{}
	for rows.Next() {
		var (
			info     TableInfo
			captured int64
		)
		if err := rows.Scan(&info.Name, &captured, &info.Columns); err != nil {
			return nil, fmt.Errorf("scan table: %w", err)
		}
		info.CapturedAt = time.UnixMilli(captured).UTC()
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tables: %w", err)
	}
	return infos, nil
}
