// Package store keeps snapshots of reflected table definitions in SQLite.
//
// A snapshot is one row in snapshot_tables plus its ordered rows in
// snapshot_columns. Saving a table replaces its previous snapshot, so
// SaveTable is idempotent.
//
// # Deterministic Reads
//
//   - Tables are listed ORDER BY name COLLATE BINARY
//   - Columns are read ORDER BY ordinal
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Columns cascade with their table
//
// Geohash columns are stored by exact bit precision (GEOHASH(<n>b)) so that
// a loaded column resolves to the same descriptor it was saved with.
package store
