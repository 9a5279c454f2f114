package querysql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/chatdb/internal/queryplan"
)

func TestRender_GroupedAggregate(t *testing.T) {
	plan := &queryplan.Plan{
		Table: "sales_data",
		Columns: []queryplan.ColumnExpr{
			queryplan.Field{Name: "category"},
			queryplan.SumProduct{A: "quantity", B: "unit_price", Alias: "total_sales"},
		},
		GroupBy: []string{"category"},
	}

	sql, err := Render(plan)
	require.NoError(t, err)
	assert.Equal(t,
		`SELECT "category", SUM("quantity" * "unit_price") AS "total_sales" FROM "sales_data" GROUP BY "category"`,
		sql.Text)
	assert.Empty(t, sql.Args)
}

func TestRender_ValuesAreParameterized(t *testing.T) {
	plan := &queryplan.Plan{
		Table: "sales_data",
		Columns: []queryplan.ColumnExpr{
			queryplan.Literal{Value: "Manhattan", Alias: "store"},
			queryplan.Sum{Name: "unit_price", Alias: "total_sales"},
		},
		Where: []queryplan.Condition{
			queryplan.Equals{Field: "store_location", Value: "Manhattan"},
		},
	}

	sql, err := Render(plan)
	require.NoError(t, err)

	// Values travel through args, never through SQL text.
	assert.NotContains(t, sql.Text, "Manhattan")
	assert.Equal(t, []any{"Manhattan", "Manhattan"}, sql.Args)
	assert.Contains(t, sql.Text, `? AS "store"`)
	assert.Contains(t, sql.Text, `"store_location" = ?`)
}

func TestRender_ConditionsJoinWithAnd(t *testing.T) {
	plan := &queryplan.Plan{
		Table:   "sales_data",
		Columns: []queryplan.ColumnExpr{queryplan.Count{Alias: "n"}},
		Where: []queryplan.Condition{
			queryplan.MonthEquals{Field: "date", Month: 3},
			queryplan.YearEquals{Field: "date", Year: 2023},
		},
	}

	sql, err := Render(plan)
	require.NoError(t, err)
	assert.Equal(t,
		`SELECT COUNT(*) AS "n" FROM "sales_data" WHERE CAST(strftime('%m', "date") AS INTEGER) = ? AND CAST(strftime('%Y', "date") AS INTEGER) = ?`,
		sql.Text)
	assert.Equal(t, []any{3, 2023}, sql.Args)
}

func TestRender_Between(t *testing.T) {
	plan := &queryplan.Plan{
		Table:   "sales_data",
		Columns: []queryplan.ColumnExpr{queryplan.Sum{Name: "unit_price", Alias: "total"}},
		Where: []queryplan.Condition{
			queryplan.Between{Field: "date", Lo: "2023-01-01", Hi: "2023-03-31"},
		},
	}

	sql, err := Render(plan)
	require.NoError(t, err)
	assert.Contains(t, sql.Text, `"date" BETWEEN ? AND ?`)
	assert.Equal(t, []any{"2023-01-01", "2023-03-31"}, sql.Args)
}

func TestRender_ExtremeSubquery(t *testing.T) {
	plan := &queryplan.Plan{
		Table: "sales_data",
		Columns: []queryplan.ColumnExpr{
			queryplan.Field{Name: "product"},
			queryplan.Field{Name: "unit_price"},
		},
		Where: []queryplan.Condition{
			queryplan.Extreme{Field: "unit_price", Table: "sales_data", Min: true},
		},
	}

	sql, err := Render(plan)
	require.NoError(t, err)
	assert.Contains(t, sql.Text, `"unit_price" = (SELECT MIN("unit_price") FROM "sales_data")`)
}

func TestRender_OrGroupsParenthesized(t *testing.T) {
	plan := &queryplan.Plan{
		Table:   "sales_data",
		Columns: []queryplan.ColumnExpr{queryplan.Count{Alias: "n"}},
		Where: []queryplan.Condition{
			queryplan.Or{Conditions: []queryplan.Condition{
				queryplan.Equals{Field: "category", Value: "Tablets"},
				queryplan.Contains{Field: "category", Value: "Phone"},
			}},
			queryplan.Equals{Field: "store_location", Value: "Queens"},
		},
	}

	sql, err := Render(plan)
	require.NoError(t, err)
	assert.Contains(t, sql.Text, `("category" = ? OR "category" LIKE ?) AND "store_location" = ?`)
	assert.Equal(t, []any{"Tablets", "%Phone%", "Queens"}, sql.Args)
}

func TestRender_OrderAndLimit(t *testing.T) {
	plan := &queryplan.Plan{
		Table: "sales_data",
		Columns: []queryplan.ColumnExpr{
			queryplan.Field{Name: "product"},
			queryplan.Count{Name: "product", Distinct: true, Alias: "c"},
			queryplan.GroupConcat{Name: "product", Alias: "list"},
			queryplan.Avg{Name: "unit_price", Alias: "avg_price"},
		},
		GroupBy: []string{"product"},
		OrderBy: []queryplan.Ordering{{Expr: "c", Desc: true}, {Expr: "product"}},
		Limit:   5,
	}

	sql, err := Render(plan)
	require.NoError(t, err)
	assert.Contains(t, sql.Text, `COUNT(DISTINCT "product") AS "c"`)
	assert.Contains(t, sql.Text, `GROUP_CONCAT(DISTINCT "product") AS "list"`)
	assert.Contains(t, sql.Text, `AVG("unit_price") AS "avg_price"`)
	assert.Contains(t, sql.Text, `ORDER BY "c" DESC, "product" ASC`)
	assert.Contains(t, sql.Text, "LIMIT 5")
}

func TestRender_QuotesAwkwardIdentifiers(t *testing.T) {
	plan := &queryplan.Plan{
		Table:   `weird"table`,
		Columns: []queryplan.ColumnExpr{queryplan.Field{Name: "a b"}},
	}

	sql, err := Render(plan)
	require.NoError(t, err)
	assert.Equal(t, `SELECT "a b" FROM "weird""table"`, sql.Text)
}

func TestRender_InvalidPlans(t *testing.T) {
	_, err := Render(nil)
	assert.Error(t, err)

	_, err = Render(&queryplan.Plan{Columns: []queryplan.ColumnExpr{queryplan.Count{}}})
	assert.Error(t, err)

	_, err = Render(&queryplan.Plan{Table: "t"})
	assert.Error(t, err)
}
