// Package schema inspects a live table or collection and buckets every
// field into one of four classes: numeric, categorical, date, or other.
//
// The classification is computed once at session start and treated as an
// immutable snapshot afterward. Downstream packages (synonym resolution,
// pattern materialization) consume it read-only.
package schema

import (
	"context"
	"regexp"
)

// Bucket identifies the class a field was assigned to.
type Bucket string

// Field buckets. Every classified field lands in exactly one of these.
const (
	BucketNumeric     Bucket = "numeric"
	BucketCategorical Bucket = "categorical"
	BucketDate        Bucket = "date"
	BucketOther       Bucket = "other"
)

// ColumnType is the coarse storage type reported by an Inspector.
type ColumnType int

// Coarse storage types.
const (
	TypeText ColumnType = iota
	TypeNumeric
	TypeDate
	TypeOther
)

// Column describes one field of the inspected table or collection.
type Column struct {
	Name string
	Type ColumnType
}

// NumericStats holds the observed bounds of a numeric field.
type NumericStats struct {
	Min float64
	Max float64
}

// DateStats holds the observed bounds of a date field, in the store's
// native comparable string form.
type DateStats struct {
	Earliest string
	Latest   string
}

// CategoricalStats holds the distinct values of a categorical field.
// Values preserve the casing stored in the backend.
type CategoricalStats struct {
	Values []string
}

// Thresholds are the uniqueness-proportion cutoffs used during
// classification. Zero values are replaced by the defaults.
type Thresholds struct {
	// NumericUnique is the minimum distinct/total proportion for a
	// numeric-typed or digit-leading field to count as a numeric axis.
	NumericUnique float64 `yaml:"numeric_unique"`
	// OthersUnique is the proportion above which a field is too sparse
	// to be a meaningful categorical axis.
	OthersUnique float64 `yaml:"others_unique"`
}

// DefaultThresholds returns the stock cutoffs.
func DefaultThresholds() Thresholds {
	return Thresholds{NumericUnique: 0.10, OthersUnique: 0.46}
}

func (t Thresholds) withDefaults() Thresholds {
	d := DefaultThresholds()
	if t.NumericUnique <= 0 {
		t.NumericUnique = d.NumericUnique
	}
	if t.OthersUnique <= 0 {
		t.OthersUnique = d.OthersUnique
	}
	return t
}

// Classification is the complete bucketed view of one table or collection.
//
// Invariant: a field name appears in exactly one of Numeric, Categorical,
// Date, or Other. Fields whose statistics could not be computed are listed
// in Skipped and belong to no bucket.
type Classification struct {
	Source string // table or collection name

	Numeric     map[string]NumericStats
	Categorical map[string]CategoricalStats
	Date        map[string]DateStats
	Other       []string

	// LocationFields names the categorical fields whose name looks
	// location-like. The synonym resolver derives its location lookup
	// from their distinct values.
	LocationFields []string

	// Defaults maps semantic keys (quantity, price, product, name) to
	// the column flagged for priority inclusion during classification.
	Defaults map[string]string

	// Skipped lists fields dropped because a backend statistics call
	// failed. Classification proceeds without them.
	Skipped []string
}

// Fields returns every classified field name across all four buckets.
func (c *Classification) Fields() []string {
	out := make([]string, 0,
		len(c.Numeric)+len(c.Categorical)+len(c.Date)+len(c.Other))
	for name := range c.Numeric {
		out = append(out, name)
	}
	for name := range c.Categorical {
		out = append(out, name)
	}
	for name := range c.Date {
		out = append(out, name)
	}
	out = append(out, c.Other...)
	return out
}

// Bucket reports which bucket a field landed in, or "" if the field is
// unknown or was skipped.
func (c *Classification) Bucket(field string) Bucket {
	if _, ok := c.Numeric[field]; ok {
		return BucketNumeric
	}
	if _, ok := c.Categorical[field]; ok {
		return BucketCategorical
	}
	if _, ok := c.Date[field]; ok {
		return BucketDate
	}
	for _, name := range c.Other {
		if name == field {
			return BucketOther
		}
	}
	return ""
}

// Inspector abstracts the per-backend statistics queries classification
// needs. Implementations exist for SQLite tables and Mongo collections.
//
// All methods take a context; a hung backend blocks the caller, which is
// acceptable for the CLI-scoped design.
type Inspector interface {
	// Columns enumerates the fields of the source with coarse types.
	Columns(ctx context.Context) ([]Column, error)
	// RowCount returns the total row or document count.
	RowCount(ctx context.Context) (int64, error)
	// DistinctCount returns the number of distinct values in a field.
	DistinctCount(ctx context.Context, field string) (int64, error)
	// DistinctValues returns up to limit distinct values of a field,
	// rendered as strings with original casing.
	DistinctValues(ctx context.Context, field string, limit int) ([]string, error)
	// NumericBounds returns the min and max of a numeric field.
	NumericBounds(ctx context.Context, field string) (min, max float64, err error)
	// StringBounds returns the earliest and latest values of a field
	// under the store's native string ordering.
	StringBounds(ctx context.Context, field string) (earliest, latest string, err error)
	// Sample returns one non-null value of the field as a string, or
	// "" when the source is empty.
	Sample(ctx context.Context, field string) (string, error)
}

// Name patterns driving the classification heuristics. These mirror the
// field-name conventions of the datasets the tool targets.
var (
	idPattern       = regexp.MustCompile(`(?i)(^|_)id($|_)|identifier`)
	datePattern     = regexp.MustCompile(`(?i)(date|time|year|month|day)`)
	locationPattern = regexp.MustCompile(`(?i)(location|store|branch|city|area)`)

	quantityPattern = regexp.MustCompile(`(?i)(qty|quantity|count)`)
	pricePattern    = regexp.MustCompile(`(?i)(price|cost|amount)`)
	productPattern  = regexp.MustCompile(`(?i)(product|model)`)
	namePattern     = regexp.MustCompile(`(?i)(name|artist)`)
)
