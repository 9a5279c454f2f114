package pattern

import (
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/roach88/chatdb/internal/testutil"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newSalesSession(t *testing.T) *Session {
	t.Helper()
	return NewSession(BackendSQL, testutil.SalesClassification(), discardLogger(),
		WithClock(testutil.FrozenClock()))
}

func newSpotifySQLSession(t *testing.T) *Session {
	t.Helper()
	return NewSession(BackendSQL, testutil.SpotifyClassification(), discardLogger(),
		WithClock(testutil.FrozenClock()))
}

func newSpotifyDocSession(t *testing.T) *Session {
	t.Helper()
	return NewSession(BackendDocument, testutil.SpotifyClassification(), discardLogger(),
		WithClock(testutil.FrozenClock()))
}

func newStudentsSession(t *testing.T) *Session {
	t.Helper()
	return NewSession(BackendSQL, testutil.StudentsClassification(), discardLogger())
}

func TestCompile_TotalSalesByField(t *testing.T) {
	sess := newSalesSession(t)

	compiled, desc := sess.Compile("total sales by category")
	require.NotNil(t, compiled)
	assert.Equal(t, "total_sales_by_field", compiled.Pattern)
	assert.Equal(t, "This query retrieves the total sales amount for each category.", desc)

	require.NotNil(t, compiled.SQL)
	assert.Contains(t, compiled.SQL.Text, `SUM("quantity" * "unit_price")`)
	assert.Contains(t, compiled.SQL.Text, `GROUP BY "category"`)
	assert.Empty(t, compiled.SQL.Args)
}

func TestCompile_FieldSynonymResolution(t *testing.T) {
	sess := newSalesSession(t)

	// "store" is not a column; the synonym map resolves it.
	compiled, _ := sess.Compile("total sales by store")
	require.NotNil(t, compiled)
	assert.Contains(t, compiled.SQL.Text, `GROUP BY "store_location"`)
}

func TestCompile_UnknownFieldFailsGracefully(t *testing.T) {
	sess := newSalesSession(t)

	compiled, msg := sess.Compile("total sales by zzznotfield")
	assert.Nil(t, compiled)
	assert.Contains(t, msg, "Field 'zzznotfield' not recognized")
	assert.Contains(t, msg, "Try one of:")
}

func TestCompile_NoMatchReturnsHelp(t *testing.T) {
	sess := newSalesSession(t)

	compiled, msg := sess.Compile("asdkjhasd")
	assert.Nil(t, compiled)
	assert.Contains(t, msg, "I couldn't understand your query")
	assert.Contains(t, msg, "Total sales by category")
}

func TestCompile_TopBestSellingLimit(t *testing.T) {
	sess := newSalesSession(t)

	compiled, desc := sess.Compile("top 7 best-selling products")
	require.NotNil(t, compiled)
	assert.Equal(t, "top_best_selling_products", compiled.Pattern)
	assert.Equal(t, "This query retrieves the top 7 best-selling products or models by quantity.", desc)
	assert.Contains(t, compiled.SQL.Text, "LIMIT 7")
	assert.Contains(t, compiled.SQL.Text, `ORDER BY "total_quantity" DESC`)
}

func TestCompile_TopLeastSellingSortsAscending(t *testing.T) {
	sess := newSalesSession(t)

	compiled, _ := sess.Compile("top 3 least-selling products")
	require.NotNil(t, compiled)
	assert.Equal(t, "top_least_selling_products", compiled.Pattern)
	assert.Contains(t, compiled.SQL.Text, `ORDER BY "total_quantity" ASC`)
	assert.Contains(t, compiled.SQL.Text, "LIMIT 3")
}

func TestCompile_RevenueByLocation(t *testing.T) {
	sess := newSalesSession(t)

	compiled, desc := sess.Compile("total revenue for the store in Manhattan")
	require.NotNil(t, compiled)
	assert.Equal(t, "total_revenue_by_store", compiled.Pattern)
	assert.Equal(t, "This query retrieves the total revenue for the store in Manhattan.", desc)

	// Location value travels through args, never through SQL text.
	assert.NotContains(t, compiled.SQL.Text, "Manhattan")
	assert.Contains(t, compiled.SQL.Args, "Manhattan")
}

func TestCompile_UnknownLocation(t *testing.T) {
	sess := newSalesSession(t)

	compiled, msg := sess.Compile("total revenue for the store in Paris")
	assert.Nil(t, compiled)
	assert.Equal(t, "Could not determine the store location. Please specify a valid store.", msg)
}

func TestCompile_LocationCanonicalCasing(t *testing.T) {
	sess := newSalesSession(t)

	compiled, _ := sess.Compile("quantity of products sold in chicago")
	require.NotNil(t, compiled)
	assert.Equal(t, "quantity_by_location", compiled.Pattern)
	assert.Contains(t, compiled.SQL.Args, "Chicago")
}

func TestCompile_SpecificProductSales(t *testing.T) {
	sess := newSalesSession(t)

	compiled, desc := sess.Compile("sales of iphone 14")
	require.NotNil(t, compiled)
	assert.Equal(t, "specific_product_sales", compiled.Pattern)
	assert.Equal(t, "This query retrieves the total quantity and sales of a specific product.", desc)
	assert.Contains(t, compiled.SQL.Text, `"product" = ?`)
	assert.Contains(t, compiled.SQL.Args, "iPhone 14")
}

func TestCompile_SpecificProductNotFound(t *testing.T) {
	sess := newSalesSession(t)

	compiled, msg := sess.Compile("sales of Nokia 3310")
	assert.Nil(t, compiled)
	assert.Contains(t, msg, "Product 'Nokia 3310' not found")
}

func TestCompile_DatePhrases(t *testing.T) {
	sess := newSalesSession(t)

	tests := []struct {
		name     string
		input    string
		wantSQL  string
		wantArgs []any
	}{
		{
			name:     "specific date",
			input:    "total sales on January 5, 2023",
			wantSQL:  `"date" = ?`,
			wantArgs: []any{"2023-01-05", "2023-01-05"},
		},
		{
			name:     "ordinal suffix stripped",
			input:    "total sales on January 5th, 2023",
			wantSQL:  `"date" = ?`,
			wantArgs: []any{"2023-01-05", "2023-01-05"},
		},
		{
			name:     "month and year",
			input:    "total sales in March 2023",
			wantSQL:  `CAST(strftime('%m', "date") AS INTEGER) = ? AND CAST(strftime('%Y', "date") AS INTEGER) = ?`,
			wantArgs: []any{"March 2023", 3, 2023},
		},
		{
			name:     "bare year",
			input:    "total sales in 2023",
			wantSQL:  `CAST(strftime('%Y', "date") AS INTEGER) = ?`,
			wantArgs: []any{2023, 2023},
		},
		{
			name:     "bare month",
			input:    "total sales in March",
			wantSQL:  `CAST(strftime('%m', "date") AS INTEGER) = ?`,
			wantArgs: []any{"March", 3},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			compiled, _ := sess.Compile(tc.input)
			require.NotNil(t, compiled, "input %q should compile", tc.input)
			assert.Equal(t, "total_sales_by_date", compiled.Pattern)
			assert.Contains(t, compiled.SQL.Text, tc.wantSQL)
			assert.Equal(t, tc.wantArgs, compiled.SQL.Args)
		})
	}
}

func TestCompile_UnrecognizedDate(t *testing.T) {
	sess := newSalesSession(t)

	compiled, msg := sess.Compile("total sales in Foobruary")
	assert.Nil(t, compiled)
	assert.Contains(t, msg, "Date 'Foobruary' not recognized")
	assert.Contains(t, msg, "Try formats like 'January 1, 2023'")
}

func TestCompile_DateRange(t *testing.T) {
	sess := newSalesSession(t)

	compiled, desc := sess.Compile("total sales from January 1, 2023 to March 31, 2023")
	require.NotNil(t, compiled)
	assert.Equal(t, "total_sales_by_date_range", compiled.Pattern)
	assert.Equal(t, "This query retrieves the total sales between 2023-01-01 and 2023-03-31.", desc)
	assert.Contains(t, compiled.SQL.Text, `"date" BETWEEN ? AND ?`)
	assert.Equal(t, []any{"2023-01-01", "2023-03-31"}, compiled.SQL.Args)
}

func TestCompile_MostExpensiveUsesScalarSubquery(t *testing.T) {
	sess := newSalesSession(t)

	compiled, desc := sess.Compile("most expensive product")
	require.NotNil(t, compiled)
	assert.Equal(t, "This query retrieves the most expensive product.", desc)
	assert.Contains(t, compiled.SQL.Text,
		`"unit_price" = (SELECT MAX("unit_price") FROM "sales_data")`)
}

func TestCompile_FirstMatchWins(t *testing.T) {
	sess := newSalesSession(t)

	// Matches both the generic field pattern and the location pattern;
	// the generic one is registered first and wins.
	compiled, _ := sess.Compile("total sales by location")
	require.NotNil(t, compiled)
	assert.Equal(t, "total_sales_by_field", compiled.Pattern)
}

func TestCompile_FirstMatchWinsEvenOnHandlerFailure(t *testing.T) {
	sess := newSalesSession(t)

	// The field pattern matches and its handler fails; later patterns
	// must not be consulted.
	compiled, msg := sess.Compile("total sales by xyzzy")
	assert.Nil(t, compiled)
	assert.Contains(t, msg, "Field 'xyzzy' not recognized")
}

func TestCompile_StreamedSongsGroupByArtistFallback(t *testing.T) {
	sess := newSpotifyDocSession(t)

	compiled, desc := sess.Compile("top 5 most streamed songs")
	require.NotNil(t, compiled)
	assert.Equal(t, "top_most_streamed_songs", compiled.Pattern)
	assert.Equal(t, "This query retrieves the top 5 most-streamed tracks or songs.", desc)

	require.NotNil(t, compiled.Doc)
	require.Len(t, compiled.Doc.Pipeline, 3)
	assert.Equal(t, bson.D{{Key: "$group", Value: bson.D{
		{Key: "_id", Value: "$artist"},
		{Key: "total_streams", Value: bson.D{{Key: "$sum", Value: "$streams"}}},
	}}}, compiled.Doc.Pipeline[0])
	assert.Equal(t, bson.D{{Key: "$sort", Value: bson.D{
		{Key: "total_streams", Value: -1},
	}}}, compiled.Doc.Pipeline[1])
	assert.Equal(t, bson.D{{Key: "$limit", Value: 5}}, compiled.Doc.Pipeline[2])
}

func TestCompile_LeastStreamedSortsAscending(t *testing.T) {
	sess := newSpotifyDocSession(t)

	compiled, _ := sess.Compile("top 3 least streamed songs")
	require.NotNil(t, compiled)
	assert.Equal(t, "top_least_streamed_songs", compiled.Pattern)
	assert.Equal(t, bson.D{{Key: "$sort", Value: bson.D{
		{Key: "total_streams", Value: 1},
	}}}, compiled.Doc.Pipeline[1])
}

func TestCompile_SongWithLowestStreamsAltPhrasing(t *testing.T) {
	sess := newSpotifyDocSession(t)

	compiled, _ := sess.Compile("song with lowest streams")
	require.NotNil(t, compiled)
	assert.Equal(t, "top_least_streamed_songs", compiled.Pattern)
	assert.Equal(t, bson.D{{Key: "$limit", Value: 1}}, compiled.Doc.Pipeline[2])
}

func TestCompile_MostStreamedArtistSQL(t *testing.T) {
	sess := newSpotifySQLSession(t)

	compiled, desc := sess.Compile("most streamed artist")
	require.NotNil(t, compiled)
	assert.Equal(t, "most_streamed_artist", compiled.Pattern)
	assert.Equal(t, "This query retrieves the artist with the highest total streams.", desc)
	assert.Contains(t, compiled.SQL.Text, `GROUP BY "artist"`)
	assert.Contains(t, compiled.SQL.Text, "LIMIT 1")
}

func TestCompile_TopStudentsByGPA(t *testing.T) {
	sess := newStudentsSession(t)

	compiled, desc := sess.Compile("top 3 students with highest gpa")
	require.NotNil(t, compiled)
	assert.Equal(t, "top_students_with_highest_gpa", compiled.Pattern)
	assert.Equal(t, "This query retrieves the top 3 students with the highest GPA.", desc)
	assert.Contains(t, compiled.SQL.Text, `ORDER BY "gpa" DESC`)
	assert.Contains(t, compiled.SQL.Text, "LIMIT 3")
}

func TestCompile_TopStudentWithoutLimit(t *testing.T) {
	sess := newStudentsSession(t)

	compiled, desc := sess.Compile("top students with highest gpa")
	require.NotNil(t, compiled)
	assert.Equal(t, "This query retrieves the student with the highest GPA.", desc)
	assert.Contains(t, compiled.SQL.Text, "LIMIT 1")
}

func TestCompile_StudentCountByGenderAndDepartment(t *testing.T) {
	sess := newStudentsSession(t)

	compiled, desc := sess.Compile("how many female students in department Engineering")
	require.NotNil(t, compiled)
	assert.Equal(t, "students_count_by_gender_and_category", compiled.Pattern)
	assert.Equal(t,
		"This query counts the number of Female students grouped by department, filtered by department: Engineering.",
		desc)
	assert.Contains(t, compiled.SQL.Text, `COUNT(*) AS "student_count"`)
	assert.Contains(t, compiled.SQL.Args, "Female")
	assert.Contains(t, compiled.SQL.Args, "Engineering")
}

func TestCompile_SimpleShapes(t *testing.T) {
	sess := newSalesSession(t)

	tests := []struct {
		input   string
		pattern string
		want    string
	}{
		{"count of category", "simple_count", `COUNT(*) AS "count"`},
		{"list of category", "simple_list", `GROUP_CONCAT(DISTINCT "category")`},
		{"distinct values of category", "distinct_values", `GROUP BY "category"`},
		{"maximum value of unit_price", "maximum_value", `ORDER BY "unit_price" DESC`},
		{"minimum value of unit_price", "minimum_value", `ORDER BY "unit_price" ASC`},
		{"average value of unit_price", "average_value", `AVG("unit_price")`},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			compiled, _ := sess.Compile(tc.input)
			require.NotNil(t, compiled, "input %q should compile", tc.input)
			assert.Equal(t, tc.pattern, compiled.Pattern)
			assert.Contains(t, compiled.SQL.Text, tc.want)
		})
	}
}

func TestCompile_SimpleFind(t *testing.T) {
	sess := newSalesSession(t)

	compiled, desc := sess.Compile("find product where category is Smartphones")
	require.NotNil(t, compiled)
	assert.Equal(t, "simple_find", compiled.Pattern)
	assert.Equal(t, "This query retrieves the product where category is 'Smartphones'.", desc)
	assert.Equal(t, []any{"Smartphones"}, compiled.SQL.Args)
}

func TestCompile_SimpleFindUnknownValue(t *testing.T) {
	sess := newSalesSession(t)

	compiled, msg := sess.Compile("find product where category is Spaceships")
	assert.Nil(t, compiled)
	assert.Contains(t, msg, "Value 'Spaceships' not found for category")
}

func TestCompile_CaseInsensitive(t *testing.T) {
	sess := newSalesSession(t)

	upper, _ := sess.Compile("TOTAL SALES BY CATEGORY")
	lower, _ := sess.Compile("total sales by category")
	require.NotNil(t, upper)
	require.NotNil(t, lower)
	assert.Equal(t, lower.SQL.Text, upper.SQL.Text)
}

func TestCompile_NeverInterpolatesUserInput(t *testing.T) {
	sess := newSalesSession(t)

	questions := []string{
		"sales of iphone 14",
		"total revenue for the store in Manhattan",
		"find product where category is Smartphones",
		"total sales on January 5, 2023",
	}
	for _, q := range questions {
		compiled, _ := sess.Compile(q)
		require.NotNil(t, compiled, "input %q should compile", q)
		for _, arg := range compiled.SQL.Args {
			if s, ok := arg.(string); ok && len(s) > 3 {
				assert.NotContains(t, compiled.SQL.Text, s,
					"value %q must travel through args, input %q", s, q)
			}
		}
	}
}

func TestEntries_OrderIsStable(t *testing.T) {
	a := newSalesSession(t)
	b := newSalesSession(t)

	require.Equal(t, len(a.Entries()), len(b.Entries()))
	for i := range a.Entries() {
		assert.Equal(t, a.Entries()[i].ID, b.Entries()[i].ID)
	}
	// The generic grouped-sales shape precedes the location shape.
	var fieldIdx, locIdx int
	for i, e := range a.Entries() {
		switch e.ID {
		case "total_sales_by_field":
			fieldIdx = i
		case "total_sales_by_location":
			locIdx = i
		}
	}
	assert.Less(t, fieldIdx, locIdx)
}

func TestSessions_IndependentState(t *testing.T) {
	sales := newSalesSession(t)
	spotify := newSpotifySQLSession(t)

	assert.NotEqual(t, sales.ID, spotify.ID)

	// The same question compiles against each session's own schema.
	c1, _ := sales.Compile("count of category")
	c2, msg := spotify.Compile("count of category")
	require.NotNil(t, c1)
	assert.Contains(t, c1.SQL.Text, `FROM "sales_data"`)
	if c2 != nil {
		assert.Contains(t, c2.SQL.Text, `FROM "spotify"`)
	} else {
		assert.NotEmpty(t, msg)
	}
}

func TestAnalyze_StopWordsAndSynonyms(t *testing.T) {
	sess := newSalesSession(t)

	in := sess.analyze("What is the total revenue for the store in Manhattan")
	assert.NotContains(t, in.Keywords, "the")
	assert.NotContains(t, in.Keywords, "is")
	assert.Contains(t, in.Keywords, "store_location") // "store" resolves
	assert.Contains(t, in.Keywords, "manhattan")
	assert.Equal(t, strings.ToLower(in.Raw), in.Lower)
}
