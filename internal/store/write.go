package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/roach88/qdbconnect/internal/ddl"
	"github.com/roach88/qdbconnect/internal/qdbtype"
)

// SaveTable stores t, replacing any earlier snapshot of the same name.
// The table row and its columns are written in one transaction.
func (s *Store) SaveTable(ctx context.Context, t ddl.Table) error {
	if t.Name == "" {
		return fmt.Errorf("save table: %w: name is required", ddl.ErrInvalidTable)
	}

	keys := t.Engine.DedupUpsertKeys
	if keys == nil {
		keys = []string{}
	}
	keysJSON, err := json.Marshal(keys)
	if err != nil {
		return fmt.Errorf("save table %s: %w", t.Name, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save table %s: begin: %w", t.Name, err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	_, err = tx.ExecContext(ctx, `
		INSERT INTO snapshot_tables
		(name, timestamp_column, partition_by, wal, if_not_exists, dedup_keys, captured_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			timestamp_column = excluded.timestamp_column,
			partition_by     = excluded.partition_by,
			wal              = excluded.wal,
			if_not_exists    = excluded.if_not_exists,
			dedup_keys       = excluded.dedup_keys,
			captured_at      = excluded.captured_at
	`,
		t.Name,
		t.Engine.TimestampColumn,
		t.Engine.PartitionBy.String(),
		t.Engine.WAL,
		t.IfNotExists,
		string(keysJSON),
		time.Now().UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("save table %s: %w", t.Name, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM snapshot_columns WHERE table_name = ?`, t.Name); err != nil {
		return fmt.Errorf("save table %s: clear columns: %w", t.Name, err)
	}

	for i, col := range t.Columns {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO snapshot_columns (table_name, ordinal, name, type_tag)
			VALUES (?, ?, ?, ?)
		`, t.Name, i, col.Name, storedTag(col.Type))
		if err != nil {
			return fmt.Errorf("save table %s: column %s: %w", t.Name, col.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save table %s: commit: %w", t.Name, err)
	}
	return nil
}

// DeleteTable removes a snapshot. Deleting a missing table returns
// ErrTableNotFound.
func (s *Store) DeleteTable(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM snapshot_tables WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("delete table %s: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete table %s: %w", name, err)
	}
	if n == 0 {
		return fmt.Errorf("delete table %s: %w", name, ErrTableNotFound)
	}
	return nil
}

// storedTag keeps the exact geohash precision, which the canonical tag drops.
func storedTag(d qdbtype.Descriptor) string {
	if d.Geohash {
		return fmt.Sprintf("GEOHASH(%db)", d.Precision)
	}
	return d.Tag
}
