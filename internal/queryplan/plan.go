// Package queryplan defines typed query plans for both backends.
//
// Plans are tagged-variant ASTs populated by structured field substitution.
// Rendering to executable form (parameterized SQL, bson.D pipelines) happens
// in one place per backend, so no query text is ever assembled by string
// replacement against user input.
package queryplan

// Plan represents one relational query: projection, filtering, grouping,
// ordering, and an optional row limit over a single table.
//
// The supported fragment is intentionally small: the pattern catalogue
// only ever emits single-table aggregations. No joins, no subqueries
// besides the scalar bound used by Extreme conditions.
type Plan struct {
	Table   string
	Columns []ColumnExpr
	Where   []Condition // implicit AND
	GroupBy []string
	OrderBy []Ordering
	Limit   int // 0 = no limit
}

// ColumnExpr is a projected column. Sealed: only types in this package
// implement it, which keeps the SQL renderer's type switch exhaustive.
type ColumnExpr interface {
	columnExpr()
}

// Field projects a bare column, optionally aliased.
type Field struct {
	Name  string
	Alias string
}

func (Field) columnExpr() {}

// Literal projects a constant value, parameterized at render time.
// Used for echoing resolved dates or locations back in the result set.
type Literal struct {
	Value any
	Alias string
}

func (Literal) columnExpr() {}

// Sum projects SUM(name).
type Sum struct {
	Name  string
	Alias string
}

func (Sum) columnExpr() {}

// SumProduct projects SUM(a * b), the quantity-times-price aggregate.
type SumProduct struct {
	A     string
	B     string
	Alias string
}

func (SumProduct) columnExpr() {}

// Avg projects AVG(name).
type Avg struct {
	Name  string
	Alias string
}

func (Avg) columnExpr() {}

// Count projects COUNT(*) or COUNT(DISTINCT name) when Distinct is set.
type Count struct {
	Name     string // "" means COUNT(*)
	Distinct bool
	Alias    string
}

func (Count) columnExpr() {}

// GroupConcat projects GROUP_CONCAT(DISTINCT name), the relational
// rendering of a collapsed value list.
type GroupConcat struct {
	Name  string
	Alias string
}

func (GroupConcat) columnExpr() {}

// Condition is a WHERE predicate. Sealed like ColumnExpr.
type Condition interface {
	conditionNode()
}

// Equals matches field = value, parameterized.
type Equals struct {
	Field string
	Value any
}

func (Equals) conditionNode() {}

// Contains matches field LIKE %value%, parameterized.
type Contains struct {
	Field string
	Value string
}

func (Contains) conditionNode() {}

// Between matches field BETWEEN lo AND hi, parameterized.
type Between struct {
	Field string
	Lo    any
	Hi    any
}

func (Between) conditionNode() {}

// MonthEquals matches rows whose date field falls in a calendar month,
// independent of year.
type MonthEquals struct {
	Field string
	Month int // 1-12
}

func (MonthEquals) conditionNode() {}

// YearEquals matches rows whose date field falls in a calendar year.
type YearEquals struct {
	Field string
	Year  int
}

func (YearEquals) conditionNode() {}

// Extreme matches field = (SELECT MAX(field) FROM table), or MIN when
// Min is set. The subquery bound is the only nested query the fragment
// allows.
type Extreme struct {
	Field string
	Table string
	Min   bool
}

func (Extreme) conditionNode() {}

// Or matches when any nested condition matches.
type Or struct {
	Conditions []Condition
}

func (Or) conditionNode() {}

// Ordering is one ORDER BY term. Expr is a column name or alias.
type Ordering struct {
	Expr string
	Desc bool
}

// SQL is a rendered, executable relational query.
type SQL struct {
	Text string
	Args []any
}
