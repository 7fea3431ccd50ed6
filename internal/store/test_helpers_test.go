package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/qdbconnect/internal/ddl"
	"github.com/roach88/qdbconnect/internal/qdbtype"
)

// createTestStore creates a new store in a temp directory for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestTable creates a WAL trades table with a geohash column.
func createTestTable(cat *qdbtype.Catalog) ddl.Table {
	engine := ddl.DefaultEngine("ts")
	engine.DedupUpsertKeys = []string{"ts", "sym"}
	return ddl.Table{
		Name: "trades",
		Columns: []ddl.Column{
			{Name: "ts", Type: cat.MustResolve("TIMESTAMP")},
			{Name: "sym", Type: cat.MustResolve("SYMBOL")},
			{Name: "price", Type: cat.MustResolve("DOUBLE")},
			{Name: "geo", Type: cat.MustResolve("GEOHASH(7b)")},
		},
		Engine: engine,
	}
}
