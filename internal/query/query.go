package query

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/warpkit/warpdb/internal/db"
	"github.com/warpkit/warpdb/internal/platform/logger"
)

// Row is a single result row keyed by column name.
type Row map[string]any

// ErrMultipleColumns is returned by SelectInt when the statement yields more
// than one column.
var ErrMultipleColumns = errors.New("expected a single column")

// slowStatement is the duration above which a statement is logged at Warn
// instead of Debug.
const slowStatement = 100 * time.Millisecond

// Queries executes SQL through the connection runtime. Statements are
// written with ? placeholders and rebound to the $n form before execution.
type Queries struct {
	engine *db.Engine
}

// New creates a query helper bound to the given engine.
func New(engine *db.Engine) *Queries {
	return &Queries{engine: engine}
}

// Select runs a query and returns all result rows. It returns an empty slice
// when the query matches nothing.
func (q *Queries) Select(ctx context.Context, query string, args ...any) ([]Row, error) {
	var out []Row
	err := q.engine.WithConnection(ctx, func(ctx context.Context) error {
		rows, err := q.runQuery(ctx, query, args...)
		if err != nil {
			return err
		}
		out = rows
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SelectOne runs a query and returns the first result row, or nil when the
// query matches nothing.
func (q *Queries) SelectOne(ctx context.Context, query string, args ...any) (Row, error) {
	rows, err := q.Select(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// SelectInt runs a query expected to yield a single row with a single
// numeric column, such as a count. It returns sql.ErrNoRows when the query
// matches nothing and ErrMultipleColumns when the row has more than one
// column.
func (q *Queries) SelectInt(ctx context.Context, query string, args ...any) (int64, error) {
	row, err := q.SelectOne(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	if row == nil {
		return 0, sql.ErrNoRows
	}
	if len(row) != 1 {
		return 0, fmt.Errorf("%w: got %d", ErrMultipleColumns, len(row))
	}
	for _, value := range row {
		return toInt64(value)
	}
	return 0, sql.ErrNoRows
}

// Insert builds and executes an insert statement for the given table from
// the column/value pairs in row. Columns are emitted in sorted order so the
// statement text is deterministic.
func (q *Queries) Insert(ctx context.Context, table string, row Row) (int64, error) {
	if len(row) == 0 {
		return 0, errors.New("insert requires at least one column")
	}
	cols := make([]string, 0, len(row))
	for col := range row {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	quoted := make([]string, len(cols))
	placeholders := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, col := range cols {
		quoted[i] = strconv.Quote(col)
		placeholders[i] = "?"
		args[i] = row[col]
	}
	stmt := fmt.Sprintf("insert into %s (%s) values (%s)",
		strconv.Quote(table),
		strings.Join(quoted, ", "),
		strings.Join(placeholders, ", "))
	return q.Update(ctx, stmt, args...)
}

// Update executes a data-modifying statement and returns the number of rows
// affected. Outside a transaction scope the statement is committed
// immediately; inside one, the outermost scope decides.
func (q *Queries) Update(ctx context.Context, query string, args ...any) (int64, error) {
	var affected int64
	err := q.engine.WithConnection(ctx, func(ctx context.Context) error {
		state, ok := db.StateFromContext(ctx)
		if !ok {
			return fmt.Errorf("%w: no active connection scope", db.ErrNotInitialized)
		}
		cursor, err := state.Cursor(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = cursor.Close() }()

		bound := rebind(query)
		defer q.profile(ctx, time.Now(), bound)
		n, err := cursor.Exec(ctx, bound, args...)
		if err != nil {
			return err
		}
		affected = n

		if !state.InTransaction() {
			logger.FromContext(ctx).Debug("auto-committing statement")
			return state.Commit()
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return affected, nil
}

// runQuery executes a query on the context's cursor and decodes all rows.
func (q *Queries) runQuery(ctx context.Context, query string, args ...any) ([]Row, error) {
	state, ok := db.StateFromContext(ctx)
	if !ok {
		return nil, fmt.Errorf("%w: no active connection scope", db.ErrNotInitialized)
	}
	cursor, err := state.Cursor(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = cursor.Close() }()

	bound := rebind(query)
	defer q.profile(ctx, time.Now(), bound)
	rows, err := cursor.Query(ctx, bound, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return scanRows(rows)
}

// scanRows decodes every row of the result set into column-keyed maps.
func scanRows(rows db.Rows) ([]Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	out := []Row{}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(Row, len(cols))
		for i, col := range cols {
			row[col] = values[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// profile records statement timing. Statements slower than slowStatement are
// promoted to Warn.
func (q *Queries) profile(ctx context.Context, start time.Time, query string) {
	elapsed := time.Since(start)
	q.engine.Metrics().ObserveStatement(elapsed)
	log := logger.FromContext(ctx)
	if elapsed > slowStatement {
		log.Warn("slow SQL statement",
			slog.Duration("elapsed", elapsed),
			slog.String("query", query))
		return
	}
	log.Debug("SQL statement executed",
		slog.Duration("elapsed", elapsed),
		slog.String("query", query))
}

// rebind rewrites ? placeholders to the $n form. Like the statements it is
// fed, it does not try to understand quoted literals; helpers pass parameters
// as args, never inline.
func rebind(query string) string {
	if !strings.ContainsRune(query, '?') {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// toInt64 coerces the numeric column types drivers commonly return.
func toInt64(value any) (int64, error) {
	switch v := value.(type) {
	case int64:
		return v, nil
	case int32:
		return int64(v), nil
	case int:
		return int64(v), nil
	case []byte:
		return strconv.ParseInt(string(v), 10, 64)
	case string:
		return strconv.ParseInt(v, 10, 64)
	default:
		return 0, fmt.Errorf("cannot interpret %T as integer", value)
	}
}
