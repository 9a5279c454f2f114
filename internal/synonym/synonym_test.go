package synonym

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/chatdb/internal/schema"
)

func salesClassification() *schema.Classification {
	return &schema.Classification{
		Source: "sales_data",
		Numeric: map[string]schema.NumericStats{
			"quantity":   {Min: 1, Max: 12},
			"unit_price": {Min: 99, Max: 1399},
		},
		Categorical: map[string]schema.CategoricalStats{
			"product":        {Values: []string{"Galaxy S23", "iPhone 14"}},
			"category":       {Values: []string{"Accessories", "Smartphones"}},
			"store_location": {Values: []string{"Hell's Kitchen", "Manhattan"}},
		},
		Date: map[string]schema.DateStats{
			"date": {Earliest: "2023-01-02", Latest: "2023-12-28"},
		},
		LocationFields: []string{"store_location"},
		Defaults: map[string]string{
			"quantity": "quantity",
			"price":    "unit_price",
			"product":  "product",
			"location": "store_location",
			"date":     "date",
		},
	}
}

func TestBuild_IdentityAndFamilies(t *testing.T) {
	m, _ := Build(salesClassification())

	// Every field resolves to itself.
	assert.Equal(t, "product", m["product"])
	assert.Equal(t, "category", m["category"])
	assert.Equal(t, "unit_price", m["unit_price"])

	// Family synonyms attach to matching fields.
	assert.Equal(t, "product", m["item"])
	assert.Equal(t, "product", m["model"])
	assert.Equal(t, "store_location", m["store"])
	assert.Equal(t, "store_location", m["branch"])
	assert.Equal(t, "unit_price", m["cost"])
	assert.Equal(t, "quantity", m["qty"])
}

func TestBuild_DefaultsWinOverFamilies(t *testing.T) {
	c := salesClassification()
	// A second price-like field would normally shadow unit_price for
	// the "price" key depending on iteration order; the flagged default
	// must win regardless.
	c.Numeric["price_usd"] = schema.NumericStats{Min: 1, Max: 2}

	m, _ := Build(c)
	assert.Equal(t, "unit_price", m["price"])
}

func TestResolve_FallsBackToToken(t *testing.T) {
	m, _ := Build(salesClassification())

	assert.Equal(t, "product", m.Resolve("item"))
	assert.Equal(t, "manhattan", m.Resolve("manhattan"))
}

func TestResolveField_PhraseFallback(t *testing.T) {
	m, _ := Build(salesClassification())

	assert.Equal(t, "store_location", m.ResolveField("store location"))
	assert.Equal(t, "product", m.ResolveField("product line"))
	assert.Equal(t, "category", m.ResolveField("best category ever"))
	assert.Empty(t, m.ResolveField("zzznotfield"))
	assert.Empty(t, m.ResolveField(""))
}

func TestGet_Fallback(t *testing.T) {
	m, _ := Build(salesClassification())

	assert.Equal(t, "unit_price", m.Get("price", "price"))
	assert.Equal(t, "track", m.Get("song", "track"))
}

func TestKnown_Sorted(t *testing.T) {
	m, _ := Build(salesClassification())

	known := m.Known()
	require.NotEmpty(t, known)
	for i := 1; i < len(known); i++ {
		assert.LessOrEqual(t, known[i-1], known[i])
	}
}

func TestLocations_Match(t *testing.T) {
	_, locs := Build(salesClassification())

	assert.Equal(t, "Manhattan", locs.Match([]string{"revenue", "manhattan"}))
	assert.Equal(t, "Hell's Kitchen", locs.Match([]string{"store", "hell's", "kitchen"}))
	assert.Empty(t, locs.Match([]string{"paris"}))
	assert.Empty(t, locs.Match(nil))
}

func TestBuild_NoLocationFields(t *testing.T) {
	c := salesClassification()
	c.LocationFields = nil

	_, locs := Build(c)
	assert.Empty(t, locs)
}
