// Package testutil provides shared fixtures for compilation tests:
// pre-built classifications for the three reference datasets and a
// frozen clock for date-sensitive patterns.
package testutil

import (
	"time"

	"github.com/roach88/chatdb/internal/schema"
)

// ReferenceTime is the frozen "now" used by date-sensitive tests, so
// year-less phrases like "March 15" resolve deterministically.
var ReferenceTime = time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)

// FrozenClock returns a clock function pinned to ReferenceTime.
func FrozenClock() func() time.Time {
	return func() time.Time { return ReferenceTime }
}

// SalesClassification models a retail sales table: quantities, prices,
// products, categories, store locations, and an order date.
func SalesClassification() *schema.Classification {
	return &schema.Classification{
		Source: "sales_data",
		Numeric: map[string]schema.NumericStats{
			"quantity":   {Min: 1, Max: 12},
			"unit_price": {Min: 99, Max: 1399},
		},
		Categorical: map[string]schema.CategoricalStats{
			"product": {Values: []string{
				"Galaxy S23", "Pixel 7", "iPhone 14", "iPhone 14 Pro Max",
			}},
			"category": {Values: []string{
				"Accessories", "Smartphones", "Tablets",
			}},
			"store_location": {Values: []string{
				"Brooklyn", "Chicago", "Manhattan", "Queens",
			}},
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

// SpotifyClassification models a streaming dataset with no track-level
// field: questions about songs fall back to grouping by artist.
func SpotifyClassification() *schema.Classification {
	return &schema.Classification{
		Source: "spotify",
		Numeric: map[string]schema.NumericStats{
			"streams": {Min: 1_200_000, Max: 3_562_543_890},
		},
		Categorical: map[string]schema.CategoricalStats{
			"artist": {Values: []string{
				"Bad Bunny", "Drake", "Taylor Swift", "The Weeknd",
			}},
			"genre": {Values: []string{"Hip-Hop", "Pop", "Reggaeton"}},
		},
		Date: map[string]schema.DateStats{
			"release_date": {Earliest: "2016-11-25", Latest: "2023-07-14"},
		},
		Defaults: map[string]string{
			"streams": "streams",
			"name":    "artist",
			"date":    "release_date",
		},
	}
}

// StudentsClassification models a student roster: GPA, gender, and
// department, with the student name too sparse to be categorical.
func StudentsClassification() *schema.Classification {
	return &schema.Classification{
		Source: "students",
		Numeric: map[string]schema.NumericStats{
			"gpa": {Min: 2.1, Max: 4.0},
		},
		Categorical: map[string]schema.CategoricalStats{
			"gender":     {Values: []string{"Female", "Male"}},
			"department": {Values: []string{"Business", "Engineering", "Physics"}},
		},
		Other: []string{"name"},
		Defaults: map[string]string{
			"name": "name",
		},
	}
}
