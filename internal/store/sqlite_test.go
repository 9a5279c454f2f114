package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/chatdb/internal/queryplan"
	"github.com/roach88/chatdb/internal/querysql"
)

func salesDataset() *Dataset {
	return &Dataset{
		Name: "sales_data",
		Columns: []DatasetColumn{
			{Name: "product", Kind: KindText},
			{Name: "quantity", Kind: KindInteger},
			{Name: "unit_price", Kind: KindFloat},
		},
		Rows: [][]any{
			{"iPhone 14", int64(2), 999.0},
			{"Pixel 7", int64(1), 599.0},
			{"iPhone 14", int64(1), 999.0},
		},
	}
}

func openTestDB(t *testing.T) *SQLite {
	t.Helper()
	db, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSQLite_ImportAndExec(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.ImportDataset(ctx, salesDataset()))

	sql, err := querysql.Render(&queryplan.Plan{
		Table: "sales_data",
		Columns: []queryplan.ColumnExpr{
			queryplan.Field{Name: "product"},
			queryplan.SumProduct{A: "quantity", B: "unit_price", Alias: "total_sales"},
		},
		GroupBy: []string{"product"},
		OrderBy: []queryplan.Ordering{{Expr: "total_sales", Desc: true}},
	})
	require.NoError(t, err)

	res, err := db.Exec(ctx, sql)
	require.NoError(t, err)

	assert.Equal(t, []string{"product", "total_sales"}, res.Columns)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, []any{"iPhone 14", 2997.0}, res.Rows[0])
	assert.Equal(t, []any{"Pixel 7", 599.0}, res.Rows[1])
}

func TestSQLite_ExecParameterized(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	require.NoError(t, db.ImportDataset(ctx, salesDataset()))

	res, err := db.Exec(ctx, &queryplan.SQL{
		Text: `SELECT COUNT(*) AS "n" FROM "sales_data" WHERE "product" = ?`,
		Args: []any{"iPhone 14"},
	})
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, []any{int64(2)}, res.Rows[0])
}

func TestSQLite_ReimportReplacesTable(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	require.NoError(t, db.ImportDataset(ctx, salesDataset()))

	smaller := salesDataset()
	smaller.Rows = smaller.Rows[:1]
	require.NoError(t, db.ImportDataset(ctx, smaller))

	res, err := db.Exec(ctx, &queryplan.SQL{Text: `SELECT COUNT(*) FROM "sales_data"`})
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1)}, res.Rows[0])
}

func TestSQLite_Tables(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	require.NoError(t, db.ImportDataset(ctx, salesDataset()))

	other := salesDataset()
	other.Name = "archive"
	require.NoError(t, db.ImportDataset(ctx, other))

	tables, err := db.Tables(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"archive", "sales_data"}, tables)
}

func TestSQLite_ImportEmptyDatasetFails(t *testing.T) {
	db := openTestDB(t)

	err := db.ImportDataset(context.Background(), &Dataset{Name: "nothing"})
	assert.ErrorContains(t, err, "no columns")
}

func TestResult_Empty(t *testing.T) {
	var r *Result
	assert.True(t, r.Empty())
	assert.True(t, (&Result{Columns: []string{"a"}}).Empty())
	assert.False(t, (&Result{Rows: [][]any{{1}}}).Empty())
}
