package schema

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// SQLiteInspector computes classification statistics for one SQLite table.
type SQLiteInspector struct {
	db    *sql.DB
	table string
}

// NewSQLiteInspector creates an inspector bound to a table.
func NewSQLiteInspector(db *sql.DB, table string) *SQLiteInspector {
	return &SQLiteInspector{db: db, table: table}
}

// Columns enumerates the table's columns via PRAGMA table_info.
func (si *SQLiteInspector) Columns(ctx context.Context) ([]Column, error) {
	rows, err := si.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", quoteIdent(si.table)))
	if err != nil {
		return nil, fmt.Errorf("table_info %s: %w", si.table, err)
	}
	defer rows.Close()

	var cols []Column
	for rows.Next() {
		var (
			cid        int
			name, typ  string
			notnull    int
			defaultVal sql.NullString
			pk         int
		)
		if err := rows.Scan(&cid, &name, &typ, &notnull, &defaultVal, &pk); err != nil {
			return nil, fmt.Errorf("scan table_info row: %w", err)
		}
		cols = append(cols, Column{Name: name, Type: sqliteColumnType(typ)})
	}
	return cols, rows.Err()
}

// sqliteColumnType maps a declared SQLite type to the coarse buckets the
// classifier understands. SQLite's affinity rules make this heuristic:
// anything INT/REAL/NUM-ish is numeric, DATE/TIME declarations are date,
// TEXT and CHAR variants are text.
func sqliteColumnType(declared string) ColumnType {
	d := strings.ToUpper(declared)
	switch {
	case strings.Contains(d, "INT"), strings.Contains(d, "REAL"),
		strings.Contains(d, "FLOA"), strings.Contains(d, "DOUB"),
		strings.Contains(d, "NUMERIC"), strings.Contains(d, "DECIMAL"):
		return TypeNumeric
	case strings.Contains(d, "DATE"), strings.Contains(d, "TIME"):
		return TypeDate
	case strings.Contains(d, "CHAR"), strings.Contains(d, "TEXT"),
		strings.Contains(d, "CLOB"), d == "":
		return TypeText
	default:
		return TypeOther
	}
}

// RowCount returns the table's row count.
func (si *SQLiteInspector) RowCount(ctx context.Context) (int64, error) {
	var n int64
	err := si.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteIdent(si.table))).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", si.table, err)
	}
	return n, nil
}

// DistinctCount returns the number of distinct values in a column.
func (si *SQLiteInspector) DistinctCount(ctx context.Context, field string) (int64, error) {
	var n int64
	err := si.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT COUNT(DISTINCT %s) FROM %s", quoteIdent(field), quoteIdent(si.table))).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("distinct count %s.%s: %w", si.table, field, err)
	}
	return n, nil
}

// DistinctValues returns up to limit distinct values, original casing.
func (si *SQLiteInspector) DistinctValues(ctx context.Context, field string, limit int) ([]string, error) {
	rows, err := si.db.QueryContext(ctx,
		fmt.Sprintf("SELECT DISTINCT %s FROM %s WHERE %s IS NOT NULL LIMIT %d",
			quoteIdent(field), quoteIdent(si.table), quoteIdent(field), limit))
	if err != nil {
		return nil, fmt.Errorf("distinct values %s.%s: %w", si.table, field, err)
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan distinct value: %w", err)
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

// NumericBounds returns MIN and MAX of a numeric column.
func (si *SQLiteInspector) NumericBounds(ctx context.Context, field string) (float64, float64, error) {
	var min, max sql.NullFloat64
	err := si.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT MIN(%s), MAX(%s) FROM %s",
			quoteIdent(field), quoteIdent(field), quoteIdent(si.table))).Scan(&min, &max)
	if err != nil {
		return 0, 0, fmt.Errorf("bounds %s.%s: %w", si.table, field, err)
	}
	return min.Float64, max.Float64, nil
}

// StringBounds returns MIN and MAX of a column as strings.
func (si *SQLiteInspector) StringBounds(ctx context.Context, field string) (string, string, error) {
	var lo, hi sql.NullString
	err := si.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT MIN(%s), MAX(%s) FROM %s",
			quoteIdent(field), quoteIdent(field), quoteIdent(si.table))).Scan(&lo, &hi)
	if err != nil {
		return "", "", fmt.Errorf("string bounds %s.%s: %w", si.table, field, err)
	}
	return lo.String, hi.String, nil
}

// Sample returns one non-null value of the column as a string.
func (si *SQLiteInspector) Sample(ctx context.Context, field string) (string, error) {
	var v sql.NullString
	err := si.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM %s WHERE %s IS NOT NULL LIMIT 1",
			quoteIdent(field), quoteIdent(si.table), quoteIdent(field))).Scan(&v)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("sample %s.%s: %w", si.table, field, err)
	}
	return v.String, nil
}

// quoteIdent quotes an identifier for SQLite, doubling embedded quotes.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
