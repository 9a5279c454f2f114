// Package querysql renders typed query plans to parameterized SQLite SQL.
//
// All values are parameterized, never interpolated: user-supplied phrases
// only ever travel through the args slice. Identifiers come from the
// classified schema, not from raw input.
package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/chatdb/internal/queryplan"
)

// Render converts a plan to SQL text plus its parameter list.
func Render(p *queryplan.Plan) (*queryplan.SQL, error) {
	if p == nil {
		return nil, fmt.Errorf("cannot render nil plan")
	}
	if p.Table == "" {
		return nil, fmt.Errorf("plan has no table")
	}
	if len(p.Columns) == 0 {
		return nil, fmt.Errorf("plan has no columns")
	}

	var args []any

	selectClause, selectArgs, err := renderColumns(p.Columns)
	if err != nil {
		return nil, err
	}
	args = append(args, selectArgs...)

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s", selectClause, quoteIdent(p.Table))

	if len(p.Where) > 0 {
		whereSQL, whereArgs, err := renderConditions(p.Where)
		if err != nil {
			return nil, err
		}
		b.WriteString(" WHERE ")
		b.WriteString(whereSQL)
		args = append(args, whereArgs...)
	}

	if len(p.GroupBy) > 0 {
		quoted := make([]string, len(p.GroupBy))
		for i, g := range p.GroupBy {
			quoted[i] = quoteIdent(g)
		}
		b.WriteString(" GROUP BY ")
		b.WriteString(strings.Join(quoted, ", "))
	}

	if len(p.OrderBy) > 0 {
		terms := make([]string, len(p.OrderBy))
		for i, o := range p.OrderBy {
			dir := "ASC"
			if o.Desc {
				dir = "DESC"
			}
			terms[i] = quoteIdent(o.Expr) + " " + dir
		}
		b.WriteString(" ORDER BY ")
		b.WriteString(strings.Join(terms, ", "))
	}

	if p.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", p.Limit)
	}

	return &queryplan.SQL{Text: b.String(), Args: args}, nil
}

func renderColumns(cols []queryplan.ColumnExpr) (string, []any, error) {
	var parts []string
	var args []any
	for _, col := range cols {
		sql, colArgs, err := renderColumn(col)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, sql)
		args = append(args, colArgs...)
	}
	return strings.Join(parts, ", "), args, nil
}

func renderColumn(col queryplan.ColumnExpr) (string, []any, error) {
	switch c := col.(type) {
	case queryplan.Field:
		return alias(quoteIdent(c.Name), c.Alias), nil, nil
	case queryplan.Literal:
		return alias("?", c.Alias), []any{c.Value}, nil
	case queryplan.Sum:
		return alias(fmt.Sprintf("SUM(%s)", quoteIdent(c.Name)), c.Alias), nil, nil
	case queryplan.SumProduct:
		return alias(fmt.Sprintf("SUM(%s * %s)", quoteIdent(c.A), quoteIdent(c.B)), c.Alias), nil, nil
	case queryplan.Avg:
		return alias(fmt.Sprintf("AVG(%s)", quoteIdent(c.Name)), c.Alias), nil, nil
	case queryplan.Count:
		switch {
		case c.Name == "":
			return alias("COUNT(*)", c.Alias), nil, nil
		case c.Distinct:
			return alias(fmt.Sprintf("COUNT(DISTINCT %s)", quoteIdent(c.Name)), c.Alias), nil, nil
		default:
			return alias(fmt.Sprintf("COUNT(%s)", quoteIdent(c.Name)), c.Alias), nil, nil
		}
	case queryplan.GroupConcat:
		return alias(fmt.Sprintf("GROUP_CONCAT(DISTINCT %s)", quoteIdent(c.Name)), c.Alias), nil, nil
	default:
		return "", nil, fmt.Errorf("unsupported column expression: %T", col)
	}
}

func alias(expr, as string) string {
	if as == "" {
		return expr
	}
	return expr + " AS " + quoteIdent(as)
}

func renderConditions(conds []queryplan.Condition) (string, []any, error) {
	var parts []string
	var args []any
	for _, cond := range conds {
		sql, condArgs, err := renderCondition(cond)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, sql)
		args = append(args, condArgs...)
	}
	return strings.Join(parts, " AND "), args, nil
}

func renderCondition(cond queryplan.Condition) (string, []any, error) {
	switch c := cond.(type) {
	case queryplan.Equals:
		return fmt.Sprintf("%s = ?", quoteIdent(c.Field)), []any{c.Value}, nil
	case queryplan.Contains:
		return fmt.Sprintf("%s LIKE ?", quoteIdent(c.Field)), []any{"%" + c.Value + "%"}, nil
	case queryplan.Between:
		return fmt.Sprintf("%s BETWEEN ? AND ?", quoteIdent(c.Field)), []any{c.Lo, c.Hi}, nil
	case queryplan.MonthEquals:
		// Dates are stored as ISO-8601 strings; strftime gives the
		// zero-padded month.
		return fmt.Sprintf("CAST(strftime('%%m', %s) AS INTEGER) = ?", quoteIdent(c.Field)),
			[]any{c.Month}, nil
	case queryplan.YearEquals:
		return fmt.Sprintf("CAST(strftime('%%Y', %s) AS INTEGER) = ?", quoteIdent(c.Field)),
			[]any{c.Year}, nil
	case queryplan.Extreme:
		fn := "MAX"
		if c.Min {
			fn = "MIN"
		}
		return fmt.Sprintf("%s = (SELECT %s(%s) FROM %s)",
			quoteIdent(c.Field), fn, quoteIdent(c.Field), quoteIdent(c.Table)), nil, nil
	case queryplan.Or:
		var parts []string
		var args []any
		for _, nested := range c.Conditions {
			sql, nestedArgs, err := renderCondition(nested)
			if err != nil {
				return "", nil, err
			}
			parts = append(parts, sql)
			args = append(args, nestedArgs...)
		}
		return "(" + strings.Join(parts, " OR ") + ")", args, nil
	default:
		return "", nil, fmt.Errorf("unsupported condition: %T", cond)
	}
}

// quoteIdent quotes an identifier, doubling embedded quotes.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
