// Package testutil provides an in-memory stand-in for a QuestDB connection.
package testutil

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Call is one statement received by a FakeQuerier.
type Call struct {
	SQL  string
	Args []any
}

// FakeQuerier answers statements from canned rows keyed by exact SQL text.
// Unknown statements return no rows. It satisfies client.Querier.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type FakeQuerier struct {
	mu      sync.Mutex
	results map[string][][]any
	errs    map[string]error
	calls   []Call
}

// NewFakeQuerier creates an empty FakeQuerier.
func NewFakeQuerier() *FakeQuerier {
	return &FakeQuerier{
		results: make(map[string][][]any),
		errs:    make(map[string]error),
	}
}

// SetRows registers the rows returned for sql.
func (f *FakeQuerier) SetRows(sql string, rows ...[]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results[sql] = rows
}

// SetError makes sql fail with err.
func (f *FakeQuerier) SetError(sql string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[sql] = err
}

// Calls returns a copy of the statements received so far.
func (f *FakeQuerier) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Call, len(f.calls))
	copy(out, f.calls)
	return out
}

func (f *FakeQuerier) record(sql string, args []any) ([][]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Call{SQL: sql, Args: args})
	return f.results[sql], f.errs[sql]
}

// Query implements client.Querier.
func (f *FakeQuerier) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	rows, err := f.record(sql, args)
	if err != nil {
		return nil, err
	}
	return &fakeRows{rows: rows, pos: -1}, nil
}

// QueryRow implements client.Querier. No registered rows yields
// pgx.ErrNoRows on Scan.
func (f *FakeQuerier) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	rows, err := f.record(sql, args)
	switch {
	case err != nil:
		return fakeRow{err: err}
	case len(rows) == 0:
		return fakeRow{err: pgx.ErrNoRows}
	default:
		return fakeRow{values: rows[0]}
	}
}

// Exec implements client.Querier.
func (f *FakeQuerier) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	_, err := f.record(sql, args)
	return pgconn.CommandTag{}, err
}

type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	return scanInto(r.values, dest)
}

type fakeRows struct {
	rows [][]any
	pos  int
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return nil }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	r.pos++
	return r.pos < len(r.rows)
}

func (r *fakeRows) Scan(dest ...any) error {
	return scanInto(r.rows[r.pos], dest)
}

func (r *fakeRows) Values() ([]any, error) {
	return r.rows[r.pos], nil
}

// scanInto copies values into pointer targets. A nil value zeroes the
// target; a pointer-to-pointer target is allocated for non-nil values.
func scanInto(values []any, dest []any) error {
	if len(values) != len(dest) {
		return fmt.Errorf("scan: %d values into %d targets", len(values), len(dest))
	}
	for i, d := range dest {
		dv := reflect.ValueOf(d)
		if dv.Kind() != reflect.Pointer || dv.IsNil() {
			return fmt.Errorf("scan: target %d is not a non-nil pointer", i)
		}
		target := dv.Elem()
		if values[i] == nil {
			target.Set(reflect.Zero(target.Type()))
			continue
		}
		v := reflect.ValueOf(values[i])
		if target.Kind() == reflect.Pointer {
			if !v.Type().AssignableTo(target.Type().Elem()) {
				return fmt.Errorf("scan: cannot assign %T to %s", values[i], target.Type())
			}
			p := reflect.New(target.Type().Elem())
			p.Elem().Set(v)
			target.Set(p)
			continue
		}
		if !v.Type().AssignableTo(target.Type()) {
			return fmt.Errorf("scan: cannot assign %T to %s", values[i], target.Type())
		}
		target.Set(v)
	}
	return nil
}
