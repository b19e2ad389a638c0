// Package dbtest provides an in-memory database.DB that records statements.
package dbtest

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"duapune-scraper/internal/database"
)

var ErrNoRows = errors.New("no rows in result set")

// Call is one statement sent to the fake.
type Call struct {
	Query string
	Args  []any
	InTx  bool
}

// FakeDB matches statements by normalized, lower-case prefix. Rows and Errs
// are keyed by such prefixes.
type FakeDB struct {
	mu sync.Mutex

	Rows     map[string][][]any
	Errs     map[string]error
	BeginErr error

	Calls     []Call
	Commits   int
	Rollbacks int
}

func New() *FakeDB {
	return &FakeDB{Rows: map[string][][]any{}, Errs: map[string]error{}}
}

// Normalize collapses whitespace and lower-cases q.
func Normalize(q string) string {
	return strings.ToLower(strings.Join(strings.Fields(q), " "))
}

// Matching returns the recorded calls whose normalized query starts with prefix.
func (db *FakeDB) Matching(prefix string) []Call {
	db.mu.Lock()
	defer db.mu.Unlock()
	var out []Call
	for _, c := range db.Calls {
		if strings.HasPrefix(Normalize(c.Query), prefix) {
			out = append(out, c)
		}
	}
	return out
}

func (db *FakeDB) record(q string, args []any, inTx bool) (string, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.Calls = append(db.Calls, Call{Query: q, Args: args, InTx: inTx})
	n := Normalize(q)
	for prefix, err := range db.Errs {
		if strings.HasPrefix(n, prefix) {
			return n, err
		}
	}
	return n, nil
}

func (db *FakeDB) rowsFor(n string) [][]any {
	db.mu.Lock()
	defer db.mu.Unlock()
	for prefix, rows := range db.Rows {
		if strings.HasPrefix(n, prefix) {
			return rows
		}
	}
	return nil
}

func (db *FakeDB) exec(q string, args []any, inTx bool) (int64, error) {
	if _, err := db.record(q, args, inTx); err != nil {
		return 0, err
	}
	return 1, nil
}

func (db *FakeDB) query(q string, args []any, inTx bool) (database.Rows, error) {
	n, err := db.record(q, args, inTx)
	if err != nil {
		return nil, err
	}
	return &fakeRows{rows: db.rowsFor(n), idx: -1}, nil
}

func (db *FakeDB) queryRow(q string, args []any, inTx bool) database.Row {
	n, err := db.record(q, args, inTx)
	if err != nil {
		return fakeRow{err: err}
	}
	rows := db.rowsFor(n)
	if len(rows) == 0 {
		return fakeRow{err: ErrNoRows}
	}
	return fakeRow{vals: rows[0]}
}

func (db *FakeDB) Ping(context.Context) error { return nil }
func (db *FakeDB) Close() error               { return nil }

func (db *FakeDB) Exec(_ context.Context, q string, args ...any) (int64, error) {
	return db.exec(q, args, false)
}

func (db *FakeDB) Query(_ context.Context, q string, args ...any) (database.Rows, error) {
	return db.query(q, args, false)
}

func (db *FakeDB) QueryRow(_ context.Context, q string, args ...any) database.Row {
	return db.queryRow(q, args, false)
}

func (db *FakeDB) Begin(context.Context) (database.Tx, error) {
	if db.BeginErr != nil {
		return nil, db.BeginErr
	}
	return &fakeTx{db: db}, nil
}

type fakeTx struct {
	db   *FakeDB
	done bool
}

func (t *fakeTx) Exec(_ context.Context, q string, args ...any) (int64, error) {
	return t.db.exec(q, args, true)
}

func (t *fakeTx) Query(_ context.Context, q string, args ...any) (database.Rows, error) {
	return t.db.query(q, args, true)
}

func (t *fakeTx) QueryRow(_ context.Context, q string, args ...any) database.Row {
	return t.db.queryRow(q, args, true)
}

func (t *fakeTx) Commit(context.Context) error {
	if t.done {
		return errors.New("tx closed")
	}
	t.done = true
	t.db.mu.Lock()
	t.db.Commits++
	t.db.mu.Unlock()
	return nil
}

func (t *fakeTx) Rollback(context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	t.db.mu.Lock()
	t.db.Rollbacks++
	t.db.mu.Unlock()
	return nil
}

type fakeRows struct {
	rows [][]any
	idx  int
}

func (r *fakeRows) Close()     {}
func (r *fakeRows) Err() error { return nil }

func (r *fakeRows) Next() bool {
	r.idx++
	return r.idx < len(r.rows)
}

func (r *fakeRows) Scan(dest ...any) error {
	return scan(r.rows[r.idx], dest)
}

type fakeRow struct {
	vals []any
	err  error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	return scan(r.vals, dest)
}

func scan(vals []any, dest []any) error {
	if len(dest) != len(vals) {
		return fmt.Errorf("scan dest mismatch: %d values, %d destinations", len(vals), len(dest))
	}
	for i := range dest {
		dv := reflect.ValueOf(dest[i])
		if dv.Kind() != reflect.Pointer || dv.IsNil() {
			return fmt.Errorf("scan destination %d is not a pointer", i)
		}
		sv := reflect.ValueOf(vals[i])
		if !sv.IsValid() || !sv.Type().AssignableTo(dv.Elem().Type()) {
			return fmt.Errorf("scan type mismatch at %d: %T into %T", i, vals[i], dest[i])
		}
		dv.Elem().Set(sv)
	}
	return nil
}

var _ database.DB = (*FakeDB)(nil)
