package pattern

import (
	"fmt"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/roach88/chatdb/internal/queryplan"
)

// documentEntries materializes the document-store pattern catalogue.
// Dates are stored as ISO-8601 strings, so month and year filters render
// as anchored prefix regexes and ranges as lexicographic $gte/$lte.
//
// The catalogue deliberately differs from the relational one in order and
// membership: the generic count/list/find shapes sit before the price
// patterns here, and the student patterns have no document equivalent.
func (s *Session) documentEntries() []Entry {
	qty := s.Synonyms.Get("quantity", "")
	price := s.Synonyms.Get("price", "unit_price")
	product := s.Synonyms.Get("product", "product")
	song := s.Synonyms.Get("song", "track")
	stream := s.Synonyms.Get("streams", "streams")
	name := s.Synonyms.Get("name", "artist")
	dateField := s.Synonyms.Get("date", "date")
	category := s.Synonyms.Get("category", "category")
	location := s.Synonyms.Get("location", "store_location")

	salesAccum := func(as string) queryplan.Accumulator {
		if qty == "" {
			return queryplan.SumField{As: as, Field: price}
		}
		return queryplan.SumProductAcc{As: as, A: qty, B: price}
	}
	quantityAccum := func(as string) queryplan.Accumulator {
		if qty == "" {
			return queryplan.SumField{As: as}
		}
		return queryplan.SumField{As: as, Field: qty}
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
				op := queryplan.Aggregate(
					queryplan.Group{Key: field, Accums: []queryplan.Accumulator{salesAccum("total_sales")}},
					queryplan.Sort{Keys: []queryplan.SortKey{{Name: "total_sales", Desc: true}}},
				)
				return &Compiled{Doc: op},
					fmt.Sprintf("This query retrieves the total sales amount for each %s.", field)
			}),

		entry("total_sales_by_location",
			`(.*total (sales|revenue) (by|for each|for every|of each) (store location|location|store))|(how much (revenue|sales) does each (store location|location|store) earn)`,
			func(m []string, in *Input) (*Compiled, string) {
				op := queryplan.Aggregate(
					queryplan.Group{Key: location, Accums: []queryplan.Accumulator{salesAccum("total_sales")}},
					queryplan.Sort{Keys: []queryplan.SortKey{{Name: "total_sales", Desc: true}}},
				)
				return &Compiled{Doc: op},
					"This query retrieves the total sales amount for each store location."
			}),

		entry("total_sales_by_date",
			`.*(total sales|songs released|tracks released) (in|on|for|during) ([\w\s,]+)`,
			func(m []string, in *Input) (*Compiled, string) {
				return s.docSalesByDate(m[1], m[3], dateField, salesAccum)
			}),

		entry("total_sales_by_date_range",
			`.*total sales (from|between) ([\w\s,]+?) (?:to|and) ([\w\s,]+)`,
			func(m []string, in *Input) (*Compiled, string) {
				start, okStart := normalizeDate(m[2], s.now())
				end, okEnd := normalizeDate(m[3], s.now())
				if !okStart || !okEnd {
					return nil, "Could not determine the date range. Please use valid start and end dates."
				}
				op := queryplan.Aggregate(
					queryplan.Match{Filter: bson.D{{Key: dateField, Value: bson.D{
						{Key: "$gte", Value: start},
						{Key: "$lte", Value: end},
					}}}},
					queryplan.Group{Key: "", Accums: []queryplan.Accumulator{salesAccum("total_sales")}},
				)
				return &Compiled{Doc: op},
					fmt.Sprintf("This query retrieves the total sales between %s and %s.", start, end)
			}),

		entry("top_best_selling_products",
			`.*top (\d+)\s+(?:best[-\s]?selling)\s+(products|models|items|phones)`,
			s.docTopSelling(product, quantityAccum, true)),

		entry("top_least_selling_products",
			`.*top (\d+)\s+(?:(?:least|worst)[-\s]?selling)\s+(products|models|items|phones)`,
			s.docTopSelling(product, quantityAccum, false)),

		entry("top_least_streamed_songs",
			`(top (\d+)\s+(?:(?:least|lowest|worst)[-\s]?streamed)\s+(tracks|songs|artists))|((song|track|artist)\s+with\s+lowest\s+streams)`,
			s.docTopStreamed(song, name, stream, false)),

		entry("top_most_streamed_songs",
			`(top (\d+)\s+(?:(?:most|highest)[-\s]?streamed)\s+(tracks|songs|artists))|((song|track|artist)\s+with\s+highest\s+streams)`,
			s.docTopStreamed(song, name, stream, true)),

		entry("specific_product_sales",
			`.*sales of (.+)`,
			func(m []string, in *Input) (*Compiled, string) {
				phrase := strings.TrimSpace(m[1])
				field, value, ok := s.findCategoricalValue(phrase)
				if !ok {
					return nil, fmt.Sprintf(
						"Product '%s' not found in the dataset. Please try another value.", phrase)
				}
				op := queryplan.Aggregate(
					queryplan.Match{Filter: bson.D{{Key: field, Value: value}}},
					queryplan.Group{Key: "", Accums: []queryplan.Accumulator{
						quantityAccum("total_quantity"),
						salesAccum("total_sales"),
					}},
				)
				return &Compiled{Doc: op},
					"This query retrieves the total quantity and sales of a specific product."
			}),

		entry("total_revenue_by_store",
			`.*total (revenue|sales) (for the store in|in) (\w+)`,
			func(m []string, in *Input) (*Compiled, string) {
				loc := s.Locations.Match(in.Keywords)
				if loc == "" {
					return nil, "Could not determine the store location. Please specify a valid store."
				}
				op := queryplan.Aggregate(
					queryplan.Match{Filter: bson.D{{Key: location, Value: loc}}},
					queryplan.Group{Key: "", Accums: []queryplan.Accumulator{salesAccum("total_sales")}},
				)
				return &Compiled{Doc: op},
					fmt.Sprintf("This query retrieves the total revenue for the store in %s.", loc)
			}),

		entry("quantity_by_category",
			`.*quantity of products sold by (\w+)`,
			func(m []string, in *Input) (*Compiled, string) {
				raw := strings.ToLower(m[1])
				field := s.Synonyms.Get(raw, category)
				op := queryplan.Aggregate(
					queryplan.Group{Key: field, Accums: []queryplan.Accumulator{quantityAccum("total_quantity")}},
					queryplan.Sort{Keys: []queryplan.SortKey{{Name: "total_quantity", Desc: true}}},
				)
				return &Compiled{Doc: op},
					fmt.Sprintf("This query retrieves the quantity of products sold by %s.", field)
			}),

		entry("simple_count",
			`.*count of (\w+(?:'?\w+)?)`,
			func(m []string, in *Input) (*Compiled, string) {
				field := s.Synonyms.Resolve(strings.ToLower(m[1]))
				op := queryplan.Aggregate(
					queryplan.Group{Key: field, Accums: []queryplan.Accumulator{queryplan.SumField{As: "count"}}},
					queryplan.Sort{Keys: []queryplan.SortKey{{Name: "count", Desc: true}}},
				)
				return &Compiled{Doc: op},
					fmt.Sprintf("This query retrieves the count of each unique value in the field '%s'.", field)
			}),

		entry("simple_list",
			`.*list of (\w+(?:'?\w+)?)`,
			func(m []string, in *Input) (*Compiled, string) {
				field := s.Synonyms.Resolve(strings.ToLower(m[1]))
				op := queryplan.Aggregate(
					queryplan.Group{Key: field},
					queryplan.Group{Key: "", Accums: []queryplan.Accumulator{
						queryplan.SumField{As: "total_count"},
						queryplan.PushField{As: "list", Field: "_id"},
					}},
				)
				return &Compiled{Doc: op},
					fmt.Sprintf("This query lists the distinct values of the field '%s' with their total count.", field)
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
				op := queryplan.Find(
					bson.D{{Key: filterField, Value: value}},
					bson.D{{Key: "_id", Value: 0}, {Key: target, Value: 1}},
				)
				return &Compiled{Doc: op},
					fmt.Sprintf("This query retrieves the %s where %s is '%s'.", target, filterField, value)
			}),

		entry("average_price_by_field",
			`.*average price (of|for|for each|by) (\w+)`,
			func(m []string, in *Input) (*Compiled, string) {
				raw := strings.ToLower(m[2])
				field := s.Synonyms.ResolveField(raw)
				if field == "" {
					return nil, s.unknownField(raw)
				}
				op := queryplan.Aggregate(
					queryplan.Group{Key: field, Accums: []queryplan.Accumulator{queryplan.AvgField{As: "avg_price", Field: price}}},
					queryplan.Sort{Keys: []queryplan.SortKey{{Name: "avg_price", Desc: true}}},
				)
				return &Compiled{Doc: op},
					fmt.Sprintf("This query calculates the average price for each %s.", field)
			}),

		entry("most_expensive",
			`.*most expensive (phone|product|item|model)`,
			s.docExtremeProduct(product, price, false, "This query retrieves the most expensive product.")),

		entry("maximum_value",
			`.*maximum value of (\w+)`,
			s.docExtremeValue(false)),

		entry("minimum_value",
			`.*minimum value of (\w+)`,
			s.docExtremeValue(true)),

		entry("average_value",
			`.*average value of (\w+)`,
			func(m []string, in *Input) (*Compiled, string) {
				field := s.Synonyms.Resolve(strings.ToLower(m[1]))
				op := queryplan.Aggregate(
					queryplan.Group{Key: "", Accums: []queryplan.Accumulator{queryplan.AvgField{As: "average_value", Field: field}}},
				)
				return &Compiled{Doc: op},
					fmt.Sprintf("This query calculates the average value of %s.", field)
			}),

		entry("least_expensive",
			`.*least expensive (phone|product|item|model)`,
			s.docExtremeProduct(product, price, true, "This query retrieves the least expensive product.")),

		entry("most_streamed_artist",
			`.*(most streamed|highest streamed) artist`,
			func(m []string, in *Input) (*Compiled, string) {
				op := queryplan.Aggregate(
					queryplan.Group{Key: name, Accums: []queryplan.Accumulator{queryplan.SumField{As: "total_streams", Field: stream}}},
					queryplan.Sort{Keys: []queryplan.SortKey{{Name: "total_streams", Desc: true}}},
					queryplan.Limit{N: 1},
				)
				return &Compiled{Doc: op},
					"This query retrieves the artist with the highest total streams."
			}),

		entry("average_streams_by_artist",
			`.*(average streams by artists?|streams average for each artist|average streams for artists)`,
			func(m []string, in *Input) (*Compiled, string) {
				op := queryplan.Aggregate(
					queryplan.Group{Key: name, Accums: []queryplan.Accumulator{queryplan.AvgField{As: "avg_streams", Field: stream}}},
					queryplan.Sort{Keys: []queryplan.SortKey{{Name: "avg_streams", Desc: true}}},
				)
				return &Compiled{Doc: op},
					"This query calculates the average number of streams for each artist."
			}),

		entry("distinct_values",
			`.*distinct values of (\w+(?:'?\w+)?)`,
			func(m []string, in *Input) (*Compiled, string) {
				field := s.Synonyms.Resolve(strings.ToLower(m[1]))
				op := queryplan.Distinct(field, nil)
				return &Compiled{Doc: op},
					fmt.Sprintf("This query lists the distinct values of %s.", field)
			}),
	}
}

// docSalesByDate mirrors the relational date branch over ISO string
// dates: equality for a specific day, anchored prefix regexes for month
// and year windows.
func (s *Session) docSalesByDate(queryType, phrase, dateField string, salesAccum func(string) queryplan.Accumulator) (*Compiled, string) {
	queryType = strings.ToLower(queryType)

	measure := salesAccum("total_sales")
	if queryType != "total sales" {
		measure = queryplan.SumField{As: "total_tracks"}
	}

	dp, ok := parseDatePhrase(phrase, s.now())
	if !ok {
		return nil, fmt.Sprintf("Date '%s' not recognized. %s", strings.TrimSpace(phrase), dateFormatHint)
	}

	var filter bson.D
	var desc string
	switch {
	case dp.Specific != "":
		filter = bson.D{{Key: dateField, Value: dp.Specific}}
		desc = fmt.Sprintf("This query retrieves the %s on %s.", queryType, dp.Specific)
	case dp.HasMonth && dp.HasYear:
		prefix := fmt.Sprintf("^%04d-%02d", dp.Year, int(dp.Month))
		filter = bson.D{{Key: dateField, Value: bson.D{{Key: "$regex", Value: prefix}}}}
		desc = fmt.Sprintf("This query retrieves the %s for %s %d.", queryType, dp.Month, dp.Year)
	case dp.HasYear:
		prefix := fmt.Sprintf("^%04d", dp.Year)
		filter = bson.D{{Key: dateField, Value: bson.D{{Key: "$regex", Value: prefix}}}}
		desc = fmt.Sprintf("This query retrieves the %s for the year %d.", queryType, dp.Year)
	default:
		pat := fmt.Sprintf(`^\d{4}-%02d`, int(dp.Month))
		filter = bson.D{{Key: dateField, Value: bson.D{{Key: "$regex", Value: pat}}}}
		desc = fmt.Sprintf("This query retrieves the %s for %s.", queryType, dp.Month)
	}

	op := queryplan.Aggregate(
		queryplan.Match{Filter: filter},
		queryplan.Group{Key: "", Accums: []queryplan.Accumulator{measure}},
	)
	return &Compiled{Doc: op}, desc
}

// docTopSelling is the document counterpart of the best/worst-selling
// handler.
func (s *Session) docTopSelling(product string, quantityAccum func(string) queryplan.Accumulator, desc bool) Handler {
	return func(m []string, in *Input) (*Compiled, string) {
		limit, err := strconv.Atoi(m[1])
		if err != nil {
			return nil, invalidLimitMsg
		}
		field := s.Synonyms.Get(strings.ToLower(m[2]), product)
		op := queryplan.Aggregate(
			queryplan.Group{Key: field, Accums: []queryplan.Accumulator{quantityAccum("total_quantity")}},
			queryplan.Sort{Keys: []queryplan.SortKey{{Name: "total_quantity", Desc: desc}}},
			queryplan.Limit{N: limit},
		)
		kind := "best-selling"
		if !desc {
			kind = "least-selling"
		}
		return &Compiled{Doc: op},
			fmt.Sprintf("This query retrieves the top %d %s products or models by quantity.", limit, kind)
	}
}

// docTopStreamed is the document counterpart of the streamed-songs
// handler, with the same artist fallback when no track field exists.
func (s *Session) docTopStreamed(song, name, stream string, desc bool) Handler {
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
		op := queryplan.Aggregate(
			queryplan.Group{Key: field, Accums: []queryplan.Accumulator{queryplan.SumField{As: "total_streams", Field: stream}}},
			queryplan.Sort{Keys: []queryplan.SortKey{{Name: "total_streams", Desc: desc}}},
			queryplan.Limit{N: limit},
		)
		kind := "most-streamed"
		if !desc {
			kind = "least-streamed"
		}
		return &Compiled{Doc: op},
			fmt.Sprintf("This query retrieves the top %d %s tracks or songs.", limit, kind)
	}
}

// docExtremeProduct sorts by price and keeps one document.
func (s *Session) docExtremeProduct(product, price string, min bool, desc string) Handler {
	return func(m []string, in *Input) (*Compiled, string) {
		op := queryplan.Aggregate(
			queryplan.Sort{Keys: []queryplan.SortKey{{Name: price, Desc: !min}}},
			queryplan.Limit{N: 1},
			queryplan.Project{Include: []string{product, price}},
		)
		return &Compiled{Doc: op}, desc
	}
}

// docExtremeValue sorts by the resolved field and keeps one document.
func (s *Session) docExtremeValue(min bool) Handler {
	return func(m []string, in *Input) (*Compiled, string) {
		field := s.Synonyms.Resolve(strings.ToLower(m[1]))
		op := queryplan.Aggregate(
			queryplan.Sort{Keys: []queryplan.SortKey{{Name: field, Desc: !min}}},
			queryplan.Limit{N: 1},
			queryplan.Project{Include: []string{field}},
		)
		which := "maximum"
		if min {
			which = "minimum"
		}
		return &Compiled{Doc: op},
			fmt.Sprintf("This query retrieves the %s value of %s.", which, field)
	}
}
