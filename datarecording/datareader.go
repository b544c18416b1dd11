package datarecording

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"reflect"
	"regexp"
	"sort"
	"strings"
)

// Match selects rows whose columns hold the given values. An empty Match
// selects every row.
type Match map[string]any

// Reader reads back a database written by a DataRecorder.
type Reader struct {
	db *sql.DB
}

// Open opens an existing database file for reading.
func Open(filename string) (*Reader, error) {
	if _, err := os.Stat(filename); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		return nil, err
	}

	return OpenDB(db), nil
}

// OpenDB reads from an open database.
func OpenDB(db *sql.DB) *Reader {
	return &Reader{db: db}
}

// Close closes the database.
func (r *Reader) Close() error {
	return r.db.Close()
}

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func mustBeIdentifier(names ...string) error {
	for _, n := range names {
		if !identifier.MatchString(n) {
			return fmt.Errorf("%q is not a table or column name", n)
		}
	}

	return nil
}

// Tables lists the tables in the database, sorted.
func (r *Reader) Tables(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT name FROM sqlite_master WHERE type = 'table'")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string

	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}

		names = append(names, n)
	}

	sort.Strings(names)

	return names, rows.Err()
}

// where renders the conditions of m with their arguments. Columns are
// ordered by name so the statement is stable.
func (m Match) where() (string, []any, error) {
	if len(m) == 0 {
		return "", nil, nil
	}

	cols := make([]string, 0, len(m))
	for c := range m {
		cols = append(cols, c)
	}

	sort.Strings(cols)

	if err := mustBeIdentifier(cols...); err != nil {
		return "", nil, err
	}

	conds := make([]string, len(cols))
	args := make([]any, len(cols))

	for i, c := range cols {
		conds[i] = c + " = ?"
		args[i] = m[c]
	}

	return " WHERE " + strings.Join(conds, " AND "), args, nil
}

// Count returns how many rows of a table satisfy m.
func (r *Reader) Count(ctx context.Context, table string, m Match) (int, error) {
	if err := mustBeIdentifier(table); err != nil {
		return 0, err
	}

	where, args, err := m.where()
	if err != nil {
		return 0, err
	}

	var n int
	err = r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM "+table+where, args...).Scan(&n)

	return n, err
}

// Tally counts the rows of a table for each distinct value of a column.
func (r *Reader) Tally(
	ctx context.Context,
	table, column string,
) (map[string]int, error) {
	if err := mustBeIdentifier(table, column); err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(
		"SELECT CAST(%[1]s AS TEXT), COUNT(*) FROM %[2]s GROUP BY %[1]s",
		column, table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tally := make(map[string]int)

	for rows.Next() {
		var (
			value sql.NullString
			n     int
		)

		if err := rows.Scan(&value, &n); err != nil {
			return nil, err
		}

		tally[value.String] += n
	}

	return tally, rows.Err()
}

// Select decodes the rows of a table that satisfy m into values of T, in
// the order they were recorded. T is the struct the table was created from.
// A limit of 0 returns every row.
func Select[T any](
	ctx context.Context,
	r *Reader,
	table string,
	m Match,
	limit int,
) ([]T, error) {
	var sample T
	if err := checkStructFields(sample); err != nil {
		return nil, err
	}

	t := reflect.TypeOf(sample)

	cols := make([]string, t.NumField())
	for i := range cols {
		cols[i] = t.Field(i).Name
	}

	if err := mustBeIdentifier(append(cols, table)...); err != nil {
		return nil, err
	}

	where, args, err := m.where()
	if err != nil {
		return nil, err
	}

	query := "SELECT " + strings.Join(cols, ", ") + " FROM " + table + where +
		" ORDER BY rowid"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []T

	for rows.Next() {
		var row T

		v := reflect.ValueOf(&row).Elem()
		dst := make([]any, len(cols))

		for i := range dst {
			dst[i] = v.Field(i).Addr().Interface()
		}

		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}

		out = append(out, row)
	}

	return out, rows.Err()
}
