package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/qdbconnect/internal/client"
	"github.com/roach88/qdbconnect/internal/ddl"
	"github.com/roach88/qdbconnect/internal/qdbtype"
	"github.com/roach88/qdbconnect/internal/store"
	"github.com/roach88/qdbconnect/internal/testutil"
)

const (
	showTables = `SHOW TABLES`
	tableAttrs = `SELECT designatedTimestamp, partitionBy, walEnabled FROM tables() WHERE table_name = $1`
)

func tableColumns(table string) string {
	return `SELECT "column", "type" FROM table_columns('` + table + `')`
}

// fakeServer answers reflection queries for a trades and a lookup table.
func fakeServer() *testutil.FakeQuerier {
	fq := testutil.NewFakeQuerier()
	fq.SetRows(showTables, []any{"trades"}, []any{"lookup"})
	fq.SetRows(tableColumns("trades"),
		[]any{"ts", "TIMESTAMP"},
		[]any{"sym", "SYMBOL"},
		[]any{"geo", "GEOHASH(5b)"},
	)
	// tables() answers by exact SQL text, so every table shares this row.
	fq.SetRows(tableAttrs, []any{"ts", "HOUR", true})
	fq.SetRows(tableColumns("lookup"), []any{"ts", "TIMESTAMP"}, []any{"id", "INT"})
	return fq
}

func executeReflect(t *testing.T, opts *RootOptions, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewReflectCommand(opts)
	cmd.SetOut(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestReflectAllTables(t *testing.T) {
	fq := fakeServer()
	out, err := executeReflect(t, &RootOptions{Format: "text", Connect: recordingConnect(fq, nil)})
	require.NoError(t, err)

	assert.Equal(t,
		`CREATE TABLE "lookup" ("ts" TIMESTAMP, "id" INT) TIMESTAMP("ts") PARTITION BY HOUR WAL;`+"\n\n"+
			`CREATE TABLE "trades" ("ts" TIMESTAMP, "sym" SYMBOL, "geo" GEOHASH(8b)) TIMESTAMP("ts") PARTITION BY HOUR WAL;`+"\n",
		out)
	assert.Equal(t, showTables, fq.Calls()[0].SQL)
}

func TestReflectNamedTablesJSON(t *testing.T) {
	fq := fakeServer()
	out, err := executeReflect(t, &RootOptions{Format: "json", Connect: recordingConnect(fq, nil)}, "trades")
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   []TableDDL `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "trades", resp.Data[0].Table)

	for _, c := range fq.Calls() {
		assert.NotEqual(t, showTables, c.SQL)
	}
}

func TestReflectMissingTable(t *testing.T) {
	fq := fakeServer()
	out, err := executeReflect(t, &RootOptions{Format: "text", Connect: recordingConnect(fq, nil)}, "trades", "ghost")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "1 table(s)")
	assert.Contains(t, out, "Error [E202]")
	assert.Contains(t, out, "table not found")
	assert.NotContains(t, out, "CREATE TABLE")
}

func TestReflectConnectFailure(t *testing.T) {
	refused := errors.New("connection refused")
	connect := func(context.Context, client.Config, ...client.Option) (*client.Client, error) {
		return nil, refused
	}

	out, err := executeReflect(t, &RootOptions{Format: "text", Connect: connect})
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E202]: connection refused")
}

func TestReflectShowTablesFailure(t *testing.T) {
	fq := testutil.NewFakeQuerier()
	fq.SetError(showTables, errors.New("permission denied"))

	out, err := executeReflect(t, &RootOptions{Format: "text", Connect: recordingConnect(fq, nil)})
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "permission denied")
}

func TestReflectSnapshot(t *testing.T) {
	fq := fakeServer()
	path := filepath.Join(t.TempDir(), "snap.db")

	_, err := executeReflect(t, &RootOptions{Format: "text", Connect: recordingConnect(fq, nil)}, "--snapshot", path)
	require.NoError(t, err)

	s, err := store.Open(path)
	require.NoError(t, err)
	defer s.Close()

	infos, err := s.ListTables(context.Background())
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "lookup", infos[0].Name)
	assert.Equal(t, "trades", infos[1].Name)
	assert.Equal(t, 3, infos[1].Columns)

	tbl, err := s.LoadTable(context.Background(), "trades", qdbtype.NewCatalog())
	require.NoError(t, err)
	assert.Equal(t, ddl.TableEngine{TimestampColumn: "ts", PartitionBy: ddl.PartitionHour, WAL: true}, tbl.Engine)
	assert.Equal(t, 5, tbl.Columns[2].Type.Precision)

	// Re-rendering the snapshot gives the same statements as the server.
	buf := &bytes.Buffer{}
	cmd := NewDDLCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--snapshot", path})
	require.NoError(t, cmd.Execute())

	live, err := executeReflect(t, &RootOptions{Format: "text", Connect: recordingConnect(fakeServer(), nil)})
	require.NoError(t, err)
	assert.Equal(t, live, buf.String())
}
