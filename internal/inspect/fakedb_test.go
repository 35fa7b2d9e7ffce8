package inspect

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/koustreak/dbinspect/internal/database"
)

// fakeDB answers catalog queries from canned rows. A query is matched by a
// substring of its SQL and, when given, its exact arguments.
type fakeDB struct {
	mu      sync.Mutex
	answers []fakeAnswer
	queries []fakeCall
	closed  bool
}

type fakeAnswer struct {
	match string
	args  []any
	rows  [][]any
	err   error
}

type fakeCall struct {
	sql  string
	args []any
}

func newFakeDB() *fakeDB { return &fakeDB{} }

func (f *fakeDB) on(match string, args []any, rows ...[]any) *fakeDB {
	f.answers = append(f.answers, fakeAnswer{match: match, args: args, rows: rows})
	return f
}

func (f *fakeDB) fail(match string, args []any, err error) *fakeDB {
	f.answers = append(f.answers, fakeAnswer{match: match, args: args, err: err})
	return f
}

func (f *fakeDB) lookup(sql string, args []any) ([][]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, fakeCall{sql: sql, args: args})

	for _, a := range f.answers {
		if !strings.Contains(sql, a.match) {
			continue
		}
		if a.args != nil && !reflect.DeepEqual(a.args, args) {
			continue
		}
		return a.rows, a.err
	}
	return nil, fmt.Errorf("fakeDB: unexpected query %q %v", strings.TrimSpace(sql), args)
}

func (f *fakeDB) calls() []fakeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]fakeCall(nil), f.queries...)
}

func (f *fakeDB) Driver() database.Driver        { return "fake" }
func (f *fakeDB) Ping(ctx context.Context) error { return nil }

func (f *fakeDB) Close() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
}

func (f *fakeDB) Query(ctx context.Context, sql string, args ...any) (database.Rows, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, err := f.lookup(sql, args)
	if err != nil {
		return nil, err
	}
	return &fakeRows{rows: rows, pos: -1}, nil
}

func (f *fakeDB) QueryRow(ctx context.Context, sql string, args ...any) (database.Row, error) {
	rows, err := f.lookup(sql, args)
	if err != nil {
		return nil, err
	}
	return &fakeRows{rows: rows, pos: 0}, nil
}

type fakeRows struct {
	rows [][]any
	pos  int
}

func (r *fakeRows) Next() bool {
	r.pos++
	return r.pos < len(r.rows)
}

func (r *fakeRows) Scan(dest ...any) error {
	if r.pos < 0 || r.pos >= len(r.rows) {
		return fmt.Errorf("fakeRows: no current row")
	}
	row := r.rows[r.pos]
	if len(row) != len(dest) {
		return fmt.Errorf("fakeRows: row has %d values, scanning into %d", len(row), len(dest))
	}
	for i, v := range row {
		dv := reflect.ValueOf(dest[i]).Elem()
		dv.Set(reflect.ValueOf(v).Convert(dv.Type()))
	}
	return nil
}

func (r *fakeRows) Columns() ([]string, error) { return nil, nil }
func (r *fakeRows) Close()                     {}
func (r *fakeRows) Err() error                 { return nil }

func vals(a ...any) []any { return a }
