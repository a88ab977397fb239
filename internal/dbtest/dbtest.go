// Package dbtest gives repository tests a postgres-dialect gorm handle that
// never reaches a server. DryRun records the SQL gorm builds; Scripted
// answers each statement from a fixed script so transactional code paths
// can be driven through their branches.
package dbtest

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"io"
	"reflect"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var spaces = regexp.MustCompile(`\s+`)

func normalize(sql string) string {
	return strings.TrimSpace(spaces.ReplaceAllString(sql, " "))
}

// Recorder is a gorm logger that keeps every statement with its variables
// inlined.
type Recorder struct {
	mu         sync.Mutex
	statements []string
}

func (r *Recorder) LogMode(logger.LogLevel) logger.Interface { return r }

func (r *Recorder) Info(context.Context, string, ...interface{}) {}

func (r *Recorder) Warn(context.Context, string, ...interface{}) {}

func (r *Recorder) Error(context.Context, string, ...interface{}) {}

func (r *Recorder) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	sql, _ := fc()
	if sql == "" {
		return
	}
	r.mu.Lock()
	r.statements = append(r.statements, normalize(sql))
	r.mu.Unlock()
}

func (r *Recorder) Statements() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.statements...)
}

// Find returns the first statement matching pattern and fails the test when
// there is none.
func (r *Recorder) Find(t *testing.T, pattern string) string {
	t.Helper()
	re := regexp.MustCompile(pattern)
	for _, stmt := range r.Statements() {
		if re.MatchString(stmt) {
			return stmt
		}
	}
	require.Failf(t, "statement not found", "pattern %q in %q", pattern, r.Statements())
	return ""
}

// DryRun builds statements without executing them.
func DryRun(t *testing.T) (*gorm.DB, *Recorder) {
	t.Helper()

	rec := &Recorder{}
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN: "host=localhost user=caseflow dbname=caseflow sslmode=disable",
	}), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
		Logger:               rec,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	return db, rec
}

type anyValue struct{}

// Any matches whatever argument the statement was given.
var Any driver.Value = anyValue{}

type stepKind int

const (
	kindQuery stepKind = iota
	kindExec
)

// Step is one expected statement and the answer to give it.
type Step struct {
	kind         stepKind
	pattern      *regexp.Regexp
	args         []driver.Value
	columns      []string
	rows         [][]driver.Value
	rowsAffected int64
	err          error
}

// Query expects a statement returning rows. The pattern is matched against
// the SQL as sent to the driver, with $n placeholders.
func Query(pattern string, columns []string, rows ...[]driver.Value) *Step {
	return &Step{kind: kindQuery, pattern: regexp.MustCompile(pattern), columns: columns, rows: rows}
}

// Exec expects a statement that reports rowsAffected.
func Exec(pattern string, rowsAffected int64) *Step {
	return &Step{kind: kindExec, pattern: regexp.MustCompile(pattern), rowsAffected: rowsAffected}
}

// WithArgs pins the statement arguments. Any skips a position.
func (s *Step) WithArgs(args ...driver.Value) *Step {
	s.args = args
	return s
}

// Fails makes the statement return err.
func (s *Step) Fails(err error) *Step {
	s.err = err
	return s
}

// Script holds the remaining steps and the transaction events seen so far.
type Script struct {
	mu     sync.Mutex
	steps  []*Step
	events []string
}

func (s *Script) record(event string) {
	s.mu.Lock()
	s.events = append(s.events, event)
	s.mu.Unlock()
}

func (s *Script) next(kind stepKind, query string, args []driver.NamedValue) (*Step, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.steps) == 0 {
		return nil, fmt.Errorf("unexpected statement: %s", query)
	}
	step := s.steps[0]
	if step.kind != kind {
		return nil, fmt.Errorf("unexpected statement kind for %s", query)
	}
	if !step.pattern.MatchString(normalize(query)) {
		return nil, fmt.Errorf("statement %q does not match %q", normalize(query), step.pattern)
	}
	if step.args != nil {
		if len(step.args) != len(args) {
			return nil, fmt.Errorf("statement %q: got %d args, want %d", query, len(args), len(step.args))
		}
		for i, want := range step.args {
			if want == Any {
				continue
			}
			if !reflect.DeepEqual(args[i].Value, want) {
				return nil, fmt.Errorf("statement %q: arg %d is %v, want %v", query, i+1, args[i].Value, want)
			}
		}
	}

	s.steps = s.steps[1:]
	s.events = append(s.events, strings.Fields(normalize(query))[0])
	return step, nil
}

// Events lists BEGIN, COMMIT, ROLLBACK and the leading keyword of each
// statement in the order they happened.
func (s *Script) Events() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.events...)
}

// AssertDone fails the test when steps were left unused.
func (s *Script) AssertDone(t *testing.T) {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	require.Empty(t, s.steps, "unused steps")
}

// Scripted answers statements from steps, in order.
func Scripted(t *testing.T, steps ...*Step) (*gorm.DB, *Script) {
	t.Helper()

	script := &Script{steps: steps}
	sqlDB := sql.OpenDB(&connector{script: script})
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		DisableAutomaticPing: true,
		Logger:               logger.Discard,
	})
	require.NoError(t, err)

	return db, script
}

type connector struct {
	script *Script
}

func (c *connector) Connect(context.Context) (driver.Conn, error) {
	return &conn{script: c.script}, nil
}

func (c *connector) Driver() driver.Driver {
	return scriptDriver{}
}

type scriptDriver struct{}

func (scriptDriver) Open(string) (driver.Conn, error) {
	return nil, fmt.Errorf("dbtest: open through the connector")
}

type conn struct {
	script *Script
}

func (c *conn) Prepare(query string) (driver.Stmt, error) {
	return nil, fmt.Errorf("dbtest: prepared statements are not scripted: %s", query)
}

func (c *conn) Close() error { return nil }

func (c *conn) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background(), driver.TxOptions{})
}

func (c *conn) BeginTx(ctx context.Context, opts driver.TxOptions) (driver.Tx, error) {
	c.script.record("BEGIN")
	return &tx{script: c.script}, nil
}

func (c *conn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	step, err := c.script.next(kindQuery, query, args)
	if err != nil {
		return nil, err
	}
	if step.err != nil {
		return nil, step.err
	}
	return &rows{columns: step.columns, values: step.rows}, nil
}

func (c *conn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	step, err := c.script.next(kindExec, query, args)
	if err != nil {
		return nil, err
	}
	if step.err != nil {
		return nil, step.err
	}
	return result(step.rowsAffected), nil
}

type tx struct {
	script *Script
}

func (t *tx) Commit() error {
	t.script.record("COMMIT")
	return nil
}

func (t *tx) Rollback() error {
	t.script.record("ROLLBACK")
	return nil
}

type result int64

func (r result) LastInsertId() (int64, error) { return 0, nil }

func (r result) RowsAffected() (int64, error) { return int64(r), nil }

type rows struct {
	columns []string
	values  [][]driver.Value
	idx     int
}

func (r *rows) Columns() []string { return r.columns }

func (r *rows) Close() error { return nil }

func (r *rows) Next(dest []driver.Value) error {
	if r.idx >= len(r.values) {
		return io.EOF
	}
	row := r.values[r.idx]
	for i := range dest {
		dest[i] = nil
		if i < len(row) {
			dest[i] = row[i]
		}
	}
	r.idx++
	return nil
}
