package pattern

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/chatdb/internal/queryplan"
	"github.com/roach88/chatdb/internal/querysql"
)

// sqlEntries materializes the relational pattern catalogue. Registry-default
// fields (quantity, price, product, ...) are resolved here, once per
// session; capture-group fields are resolved inside handlers at match time.
//
// Ordering is significant: the first regexp hit wins at compile time, so
// more specific shapes ("quantity of products sold by category in X") sit
// before their generic counterparts.
func (s *Session) sqlEntries() []Entry {
	table := s.Class.Source

	qty := s.Synonyms.Get("quantity", "")
	price := s.Synonyms.Get("price", "unit_price")
	product := s.Synonyms.Get("product", "product")
	song := s.Synonyms.Get("song", "track")
	stream := s.Synonyms.Get("streams", "streams")
	name := s.Synonyms.Get("name", "artist")
	score := s.Synonyms.Get("gpa", "gpa")
	gender := s.Synonyms.Get("gender", "gender")
	dept := s.Synonyms.Get("department", "department")
	dateField := s.Synonyms.Get("date", "date")
	category := s.Synonyms.Get("category", "category")
	location := s.Synonyms.Get("location", "store_location")

	// salesExpr is SUM(qty * price), degrading to SUM(price) when the
	// schema has no quantity axis.
	salesExpr := func(as string) queryplan.ColumnExpr {
		if qty == "" {
			return queryplan.Sum{Name: price, Alias: as}
		}
		return queryplan.SumProduct{A: qty, B: price, Alias: as}
	}
	quantityExpr := func(as string) queryplan.ColumnExpr {
		if qty == "" {
			return queryplan.Count{Alias: as}
		}
		return queryplan.Sum{Name: qty, Alias: as}
	}

	return []Entry{
		entry("total_sales_by_field",
			`.*total (sales|revenue) (by|for each|for every) (\w+)`,
			func(m []string, in *Input) (*Compiled, string) {
				raw := strings.ToLower(m[3])
				field := s.Synonyms.ResolveField(raw)
				if field == "" {
					return nil, s.unknownField(raw)
				}
				plan := &queryplan.Plan{
					Table:   table,
					Columns: []queryplan.ColumnExpr{queryplan.Field{Name: field}, salesExpr("total_sales")},
					GroupBy: []string{field},
				}
				return s.renderSQL(plan,
					fmt.Sprintf("This query retrieves the total sales amount for each %s.", field))
			}),

		entry("total_sales_by_location",
			`(.*total (sales|revenue) (by|for each|for every|of each) (store location|location|store))|(how much (revenue|sales) does each (store location|location|store) earn)`,
			func(m []string, in *Input) (*Compiled, string) {
				plan := &queryplan.Plan{
					Table:   table,
					Columns: []queryplan.ColumnExpr{queryplan.Field{Name: location}, salesExpr("total_sales")},
					GroupBy: []string{location},
				}
				return s.renderSQL(plan,
					"This query retrieves the total sales amount for each store location.")
			}),

		entry("total_sales_by_date",
			`.*(total sales|songs released|tracks released) (in|on|for|during) ([\w\s,]+)`,
			func(m []string, in *Input) (*Compiled, string) {
				return s.sqlSalesByDate(m[1], m[3], dateField, salesExpr)
			}),

		entry("total_sales_by_date_range",
			`.*total sales (from|between) ([\w\s,]+?) (?:to|and) ([\w\s,]+)`,
			func(m []string, in *Input) (*Compiled, string) {
				start, okStart := normalizeDate(m[2], s.now())
				end, okEnd := normalizeDate(m[3], s.now())
				if !okStart || !okEnd {
					return nil, "Could not determine the date range. Please use valid start and end dates."
				}
				plan := &queryplan.Plan{
					Table:   table,
					Columns: []queryplan.ColumnExpr{salesExpr("total_sales")},
					Where:   []queryplan.Condition{queryplan.Between{Field: dateField, Lo: start, Hi: end}},
				}
				return s.renderSQL(plan,
					fmt.Sprintf("This query retrieves the total sales between %s and %s.", start, end))
			}),

		entry("top_best_selling_products",
			`.*top (\d+)\s+(?:best[-\s]?selling)\s+(products|models|items|phones)`,
			s.sqlTopSelling(table, product, quantityExpr, true)),

		entry("top_least_selling_products",
			`.*top (\d+)\s+(?:(?:least|worst)[-\s]?selling)\s+(products|models|items|phones)`,
			s.sqlTopSelling(table, product, quantityExpr, false)),

		entry("top_most_streamed_songs",
			`(top (\d+)\s+(?:(?:most|highest)[-\s]?streamed)\s+(tracks|songs|artists))|((song|track|artist)\s+with\s+highest\s+streams)`,
			s.sqlTopStreamed(table, song, name, stream, true)),

		entry("top_least_streamed_songs",
			`(top (\d+)\s+(?:(?:least|lowest|worst)[-\s]?streamed)\s+(tracks|songs|artists))|((song|track|artist)\s+with\s+lowest\s+streams)`,
			s.sqlTopStreamed(table, song, name, stream, false)),

		entry("specific_product_sales",
			`.*sales of (.+)`,
			func(m []string, in *Input) (*Compiled, string) {
				phrase := strings.TrimSpace(m[1])
				field, value, ok := s.findCategoricalValue(phrase)
				if !ok {
					return nil, fmt.Sprintf(
						"Product '%s' not found in the dataset. Please try another value.", phrase)
				}
				plan := &queryplan.Plan{
					Table: table,
					Columns: []queryplan.ColumnExpr{
						quantityExpr("total_quantity"),
						salesExpr("total_sales"),
					},
					Where: []queryplan.Condition{queryplan.Equals{Field: field, Value: value}},
				}
				return s.renderSQL(plan,
					"This query retrieves the total quantity and sales of a specific product.")
			}),

		entry("total_revenue_by_store",
			`.*total (revenue|sales) (for the store in|in) (\w+)`,
			func(m []string, in *Input) (*Compiled, string) {
				loc := s.Locations.Match(in.Keywords)
				if loc == "" {
					return nil, "Could not determine the store location. Please specify a valid store."
				}
				plan := &queryplan.Plan{
					Table: table,
					Columns: []queryplan.ColumnExpr{
						queryplan.Literal{Value: loc, Alias: "store"},
						salesExpr("total_sales"),
					},
					Where: []queryplan.Condition{queryplan.Equals{Field: location, Value: loc}},
				}
				return s.renderSQL(plan,
					fmt.Sprintf("This query retrieves the total revenue for the store in %s.", loc))
			}),

		entry("quantity_by_category_in_location",
			`.*quantity of products sold by category in (\w+(?:'?\w+)?)`,
			func(m []string, in *Input) (*Compiled, string) {
				loc := s.Locations.Match(in.Keywords)
				if loc == "" {
					return nil, unknownLocationMsg
				}
				plan := &queryplan.Plan{
					Table:   table,
					Columns: []queryplan.ColumnExpr{queryplan.Field{Name: category}, quantityExpr("total_quantity")},
					Where:   []queryplan.Condition{queryplan.Equals{Field: location, Value: loc}},
					GroupBy: []string{category},
				}
				return s.renderSQL(plan,
					fmt.Sprintf("This query retrieves the quantity of products sold by category in %s.", loc))
			}),

		entry("quantity_by_location",
			`.*quantity of products sold in (\w+(?:'?\w+)?)`,
			func(m []string, in *Input) (*Compiled, string) {
				loc := s.Locations.Match(in.Keywords)
				if loc == "" {
					return nil, unknownLocationMsg
				}
				plan := &queryplan.Plan{
					Table:   table,
					Columns: []queryplan.ColumnExpr{queryplan.Field{Name: location}, quantityExpr("total_quantity")},
					Where:   []queryplan.Condition{queryplan.Equals{Field: location, Value: loc}},
					GroupBy: []string{location},
				}
				return s.renderSQL(plan,
					fmt.Sprintf("This query retrieves the total quantity of products sold in %s.", loc))
			}),

		entry("average_price_by_field",
			`.*average price (of|for|for each|by) (\w+)`,
			func(m []string, in *Input) (*Compiled, string) {
				raw := strings.ToLower(m[2])
				field := s.Synonyms.ResolveField(raw)
				if field == "" {
					return nil, s.unknownField(raw)
				}
				plan := &queryplan.Plan{
					Table:   table,
					Columns: []queryplan.ColumnExpr{queryplan.Field{Name: field}, queryplan.Avg{Name: price, Alias: "avg_price"}},
					GroupBy: []string{field},
				}
				return s.renderSQL(plan,
					fmt.Sprintf("This query calculates the average price for each %s.", field))
			}),

		entry("most_expensive",
			`.*most expensive (phone|product|item|model)`,
			s.sqlExpensive(table, product, price, false)),

		entry("least_expensive",
			`.*least expensive (phone|product|item|model)`,
			s.sqlExpensive(table, product, price, true)),

		entry("most_streamed_artist",
			`.*(most streamed|highest streamed) artist`,
			func(m []string, in *Input) (*Compiled, string) {
				plan := &queryplan.Plan{
					Table:   table,
					Columns: []queryplan.ColumnExpr{queryplan.Field{Name: name}, queryplan.Sum{Name: stream, Alias: "total_streams"}},
					GroupBy: []string{name},
					OrderBy: []queryplan.Ordering{{Expr: "total_streams", Desc: true}},
					Limit:   1,
				}
				return s.renderSQL(plan,
					"This query retrieves the artist with the highest total streams.")
			}),

		entry("average_streams_by_artist",
			`.*(average streams by artists?|streams average for each artist|average streams for artists)`,
			func(m []string, in *Input) (*Compiled, string) {
				plan := &queryplan.Plan{
					Table:   table,
					Columns: []queryplan.ColumnExpr{queryplan.Field{Name: name}, queryplan.Avg{Name: stream, Alias: "avg_streams"}},
					GroupBy: []string{name},
				}
				return s.renderSQL(plan,
					"This query calculates the average number of streams for each artist.")
			}),

		entry("top_students_with_highest_gpa",
			`.*\btop(?: (\d+))?\s+(?:students? with highest gpa|students? by gpa|students? with the best gpa)\b`,
			func(m []string, in *Input) (*Compiled, string) {
				limit := 1
				if m[1] != "" {
					n, err := strconv.Atoi(m[1])
					if err != nil {
						return nil, invalidLimitMsg
					}
					limit = n
				}
				plan := &queryplan.Plan{
					Table:   table,
					Columns: []queryplan.ColumnExpr{queryplan.Field{Name: name}, queryplan.Field{Name: score}},
					OrderBy: []queryplan.Ordering{{Expr: score, Desc: true}},
					Limit:   limit,
				}
				desc := fmt.Sprintf("This query retrieves the top %d students with the highest GPA.", limit)
				if limit == 1 {
					desc = "This query retrieves the student with the highest GPA."
				}
				return s.renderSQL(plan, desc)
			}),

		entry("average_gpa_by_category",
			`.*(average gpa by (department|year)|gpa average for each (department|year)|average gpa for (departments|years))`,
			func(m []string, in *Input) (*Compiled, string) {
				raw := firstNonEmpty(m[2], m[3], strings.TrimSuffix(m[4], "s"))
				field := s.Synonyms.Get(raw, raw)
				plan := &queryplan.Plan{
					Table:   table,
					Columns: []queryplan.ColumnExpr{queryplan.Field{Name: field}, queryplan.Avg{Name: score, Alias: "avg_gpa"}},
					GroupBy: []string{field},
				}
				return s.renderSQL(plan,
					"This query calculates the average GPA grouped by the specified category (department or year).")
			}),

		entry("students_count_by_gender_and_category",
			`.*(how many|count of)\s+(male|female)\s+students(?: in department ([\w\s.]+))?(?: in year (\d+))?(?: in ([\w\s.]+))?`,
			func(m []string, in *Input) (*Compiled, string) {
				return s.sqlStudentsByGender(table, gender, dept, location, m)
			}),

		entry("simple_count",
			`.*count of (\w+(?:'?\w+)?)`,
			func(m []string, in *Input) (*Compiled, string) {
				field := s.Synonyms.Resolve(strings.ToLower(m[1]))
				plan := &queryplan.Plan{
					Table:   table,
					Columns: []queryplan.ColumnExpr{queryplan.Field{Name: field}, queryplan.Count{Alias: "count"}},
					GroupBy: []string{field},
					OrderBy: []queryplan.Ordering{{Expr: "count", Desc: true}},
				}
				return s.renderSQL(plan,
					fmt.Sprintf("This query retrieves the count of each unique value in the field '%s'.", field))
			}),

		entry("simple_list",
			`.*list of (\w+(?:'?\w+)?)`,
			func(m []string, in *Input) (*Compiled, string) {
				field := s.Synonyms.Resolve(strings.ToLower(m[1]))
				plan := &queryplan.Plan{
					Table: table,
					Columns: []queryplan.ColumnExpr{
						queryplan.Count{Name: field, Distinct: true, Alias: "total_count"},
						queryplan.GroupConcat{Name: field, Alias: "list"},
					},
				}
				return s.renderSQL(plan,
					fmt.Sprintf("This query lists the distinct values of the field '%s' with their total count.", field))
			}),

		entry("simple_find",
			`.*find (\w+(?:'?\w+)?) where (\w+(?:'?\w+)?) is (\w+(?:'?\w+)?)`,
			func(m []string, in *Input) (*Compiled, string) {
				target := s.Synonyms.Resolve(strings.ToLower(m[1]))
				filterField := s.Synonyms.Resolve(strings.ToLower(m[2]))
				value, ok := s.matchCategoricalValue(filterField, m[3])
				if !ok {
					return nil, fmt.Sprintf(
						"Value '%s' not found for %s. Please try another value.", m[3], filterField)
				}
				plan := &queryplan.Plan{
					Table:   table,
					Columns: []queryplan.ColumnExpr{queryplan.Field{Name: target}},
					Where:   []queryplan.Condition{queryplan.Equals{Field: filterField, Value: value}},
				}
				return s.renderSQL(plan,
					fmt.Sprintf("This query retrieves the %s where %s is '%s'.", target, filterField, value))
			}),

		entry("maximum_value",
			`.*maximum value of (\w+)`,
			s.sqlExtremeValue(table, product, false)),

		entry("minimum_value",
			`.*minimum value of (\w+)`,
			s.sqlExtremeValue(table, product, true)),

		entry("average_value",
			`.*average value of (\w+)`,
			func(m []string, in *Input) (*Compiled, string) {
				field := s.Synonyms.Resolve(strings.ToLower(m[1]))
				plan := &queryplan.Plan{
					Table:   table,
					Columns: []queryplan.ColumnExpr{queryplan.Avg{Name: field, Alias: "average_value"}},
				}
				return s.renderSQL(plan,
					fmt.Sprintf("This query calculates the average value of %s.", field))
			}),

		entry("distinct_values",
			`.*distinct values of (\w+(?:'?\w+)?)`,
			func(m []string, in *Input) (*Compiled, string) {
				field := s.Synonyms.Resolve(strings.ToLower(m[1]))
				plan := &queryplan.Plan{
					Table:   table,
					Columns: []queryplan.ColumnExpr{queryplan.Field{Name: field}},
					GroupBy: []string{field},
				}
				return s.renderSQL(plan,
					fmt.Sprintf("This query lists the distinct values of %s.", field))
			}),
	}
}

// sqlSalesByDate handles the three-way date branch: explicit date, month
// (optionally with year), or bare year. The "songs/tracks released"
// variant counts rows instead of summing sales.
func (s *Session) sqlSalesByDate(queryType, phrase, dateField string, salesExpr func(string) queryplan.ColumnExpr) (*Compiled, string) {
	queryType = strings.ToLower(queryType)
	tracks := queryType != "total sales"

	measure := salesExpr("total_sales")
	if tracks {
		measure = queryplan.Count{Alias: "total_tracks"}
	}

	dp, ok := parseDatePhrase(phrase, s.now())
	if !ok {
		return nil, fmt.Sprintf("Date '%s' not recognized. %s", strings.TrimSpace(phrase), dateFormatHint)
	}

	plan := &queryplan.Plan{Table: s.Class.Source}

	switch {
	case dp.Specific != "":
		plan.Columns = []queryplan.ColumnExpr{
			queryplan.Literal{Value: dp.Specific, Alias: "date"}, measure,
		}
		plan.Where = []queryplan.Condition{queryplan.Equals{Field: dateField, Value: dp.Specific}}
		return s.renderSQL(plan,
			fmt.Sprintf("This query retrieves the %s on %s.", queryType, dp.Specific))

	case dp.HasMonth && dp.HasYear:
		label := fmt.Sprintf("%s %d", dp.Month, dp.Year)
		plan.Columns = []queryplan.ColumnExpr{queryplan.Literal{Value: label, Alias: "period"}, measure}
		plan.Where = []queryplan.Condition{
			queryplan.MonthEquals{Field: dateField, Month: int(dp.Month)},
			queryplan.YearEquals{Field: dateField, Year: dp.Year},
		}
		return s.renderSQL(plan,
			fmt.Sprintf("This query retrieves the %s for %s.", queryType, label))

	case dp.HasYear:
		plan.Columns = []queryplan.ColumnExpr{queryplan.Literal{Value: dp.Year, Alias: "year"}, measure}
		plan.Where = []queryplan.Condition{queryplan.YearEquals{Field: dateField, Year: dp.Year}}
		return s.renderSQL(plan,
			fmt.Sprintf("This query retrieves the %s for the year %d.", queryType, dp.Year))

	default:
		plan.Columns = []queryplan.ColumnExpr{
			queryplan.Literal{Value: dp.Month.String(), Alias: "month"}, measure,
		}
		plan.Where = []queryplan.Condition{queryplan.MonthEquals{Field: dateField, Month: int(dp.Month)}}
		return s.renderSQL(plan,
			fmt.Sprintf("This query retrieves the %s for %s.", queryType, dp.Month))
	}
}

// sqlTopSelling builds the best/worst-selling handler. The subject noun
// resolves through the synonym map, falling back to the registry-default
// product field.
func (s *Session) sqlTopSelling(table, product string, quantityExpr func(string) queryplan.ColumnExpr, desc bool) Handler {
	return func(m []string, in *Input) (*Compiled, string) {
		limit, err := strconv.Atoi(m[1])
		if err != nil {
			return nil, invalidLimitMsg
		}
		field := s.Synonyms.Get(strings.ToLower(m[2]), product)
		plan := &queryplan.Plan{
			Table:   table,
			Columns: []queryplan.ColumnExpr{queryplan.Field{Name: field}, quantityExpr("total_quantity")},
			GroupBy: []string{field},
			OrderBy: []queryplan.Ordering{{Expr: "total_quantity", Desc: desc}},
			Limit:   limit,
		}
		kind := "best-selling"
		if !desc {
			kind = "least-selling"
		}
		return s.renderSQL(plan,
			fmt.Sprintf("This query retrieves the top %d %s products or models by quantity.", limit, kind))
	}
}

// sqlTopStreamed builds the streamed-songs handler. Both regexp branches
// land here: "top N ... streamed <noun>" and "<noun> with highest/lowest
// streams" (which implies a limit of 1).
func (s *Session) sqlTopStreamed(table, song, name, stream string, desc bool) Handler {
	return func(m []string, in *Input) (*Compiled, string) {
		limit := 1
		noun := m[5]
		if m[2] != "" {
			n, err := strconv.Atoi(m[2])
			if err != nil {
				return nil, invalidLimitMsg
			}
			limit = n
			noun = m[3]
		}
		field := s.resolveStreamSubject(noun, song, name)
		plan := &queryplan.Plan{
			Table:   table,
			Columns: []queryplan.ColumnExpr{queryplan.Field{Name: field}, queryplan.Sum{Name: stream, Alias: "total_streams"}},
			GroupBy: []string{field},
			OrderBy: []queryplan.Ordering{{Expr: "total_streams", Desc: desc}},
			Limit:   limit,
		}
		kind := "most-streamed"
		if !desc {
			kind = "least-streamed"
		}
		return s.renderSQL(plan,
			fmt.Sprintf("This query retrieves the top %d %s tracks or songs.", limit, kind))
	}
}

// resolveStreamSubject maps the captured noun to a group-by field,
// degrading from the subject itself to the song default, then to the
// name default, so collections without a track field still group by
// artist.
func (s *Session) resolveStreamSubject(noun, song, name string) string {
	if field := s.Synonyms.ResolveField(noun); field != "" {
		return field
	}
	if s.Class.Bucket(song) != "" {
		return song
	}
	return name
}

// sqlExpensive builds most/least-expensive handlers: project product and
// price where price matches the table's extreme.
func (s *Session) sqlExpensive(table, product, price string, min bool) Handler {
	return func(m []string, in *Input) (*Compiled, string) {
		plan := &queryplan.Plan{
			Table:   table,
			Columns: []queryplan.ColumnExpr{queryplan.Field{Name: product}, queryplan.Field{Name: price}},
			Where:   []queryplan.Condition{queryplan.Extreme{Field: price, Table: table, Min: min}},
		}
		which := "most"
		if min {
			which = "least"
		}
		return s.renderSQL(plan,
			fmt.Sprintf("This query retrieves the %s expensive product.", which))
	}
}

// sqlExtremeValue builds maximum_value / minimum_value handlers: sort by
// the resolved field and keep the top row alongside the product field.
func (s *Session) sqlExtremeValue(table, product string, min bool) Handler {
	return func(m []string, in *Input) (*Compiled, string) {
		field := s.Synonyms.Resolve(strings.ToLower(m[1]))
		cols := []queryplan.ColumnExpr{queryplan.Field{Name: field}}
		if product != field && s.Class.Bucket(product) != "" {
			cols = append([]queryplan.ColumnExpr{queryplan.Field{Name: product}}, cols...)
		}
		plan := &queryplan.Plan{
			Table:   table,
			Columns: cols,
			OrderBy: []queryplan.Ordering{{Expr: field, Desc: !min}},
			Limit:   1,
		}
		which := "maximum"
		if min {
			which = "minimum"
		}
		return s.renderSQL(plan,
			fmt.Sprintf("This query retrieves the %s value of %s.", which, field))
	}
}

// sqlStudentsByGender handles the gender-count pattern with its optional
// department, year, and location filters. The group-by axis follows the
// most specific filter present, defaulting to the gender field.
func (s *Session) sqlStudentsByGender(table, gender, dept, location string, m []string) (*Compiled, string) {
	genderValue := titleCaser.String(strings.ToLower(m[2]))
	groupField := gender
	conds := []queryplan.Condition{queryplan.Equals{Field: gender, Value: genderValue}}
	var filters []string

	if m[3] != "" {
		department := strings.TrimSpace(m[3])
		groupField = dept
		conds = append(conds, queryplan.Equals{Field: dept, Value: department})
		filters = append(filters, "department: "+department)
	}
	if m[4] != "" {
		year, err := strconv.Atoi(m[4])
		if err != nil {
			return nil, invalidLimitMsg
		}
		yearField := s.Synonyms.Get("year", "year")
		groupField = yearField
		conds = append(conds, queryplan.Equals{Field: yearField, Value: year})
		filters = append(filters, "year: "+m[4])
	}
	if m[5] != "" {
		loc, ok := s.Locations[strings.ToLower(strings.TrimSpace(m[5]))]
		if !ok {
			return nil, fmt.Sprintf("Invalid location: %s. Please provide a valid location.", strings.TrimSpace(m[5]))
		}
		groupField = location
		conds = append(conds, queryplan.Equals{Field: location, Value: loc})
		filters = append(filters, "location: "+loc)
	}

	plan := &queryplan.Plan{
		Table:   table,
		Columns: []queryplan.ColumnExpr{queryplan.Field{Name: groupField}, queryplan.Count{Alias: "student_count"}},
		Where:   conds,
		GroupBy: []string{groupField},
	}

	filtersText := "no specific filters"
	if len(filters) > 0 {
		filtersText = strings.Join(filters, ", ")
	}
	return s.renderSQL(plan, fmt.Sprintf(
		"This query counts the number of %s students grouped by %s, filtered by %s.",
		genderValue, groupField, filtersText))
}

// renderSQL renders a plan, converting internal render failures into user
// guidance rather than errors.
func (s *Session) renderSQL(plan *queryplan.Plan, desc string) (*Compiled, string) {
	sql, err := querysql.Render(plan)
	if err != nil {
		s.log.Error("plan render failed", "err", err)
		return nil, "Could not build a query for that phrasing. Please try rewording it."
	}
	return &Compiled{SQL: sql}, desc
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
