package schema

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// distinctValueCap bounds the distinct-value sets stored for categorical
// fields. Fields denser than the OthersUnique threshold never get here,
// so the cap only guards pathological inputs.
const distinctValueCap = 100

// Classify inspects source and buckets every field.
//
// Classification order per field:
//  1. id-like name, or a single distinct value on a non-numeric field,
//     goes to other.
//  2. numeric-typed fields (or text fields whose sample value leads with
//     a digit and has no embedded hyphen) with uniqueness above
//     NumericUnique go to numeric, with min/max bounds.
//  3. date-like names go to date, with earliest/latest bounds.
//  4. uniqueness above OthersUnique goes to other (too sparse to group by).
//  5. everything else is categorical, with its distinct-value set.
//
// A field whose statistics query fails is skipped and recorded in
// Skipped; the remaining classification is still returned. An empty
// source classifies every field as categorical with an empty value set.
func Classify(ctx context.Context, source string, insp Inspector, t Thresholds) (*Classification, error) {
	t = t.withDefaults()

	cols, err := insp.Columns(ctx)
	if err != nil {
		return nil, fmt.Errorf("enumerate fields of %s: %w", source, err)
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("source %s has no fields", source)
	}

	total, err := insp.RowCount(ctx)
	if err != nil {
		return nil, fmt.Errorf("count rows of %s: %w", source, err)
	}

	c := &Classification{
		Source:      source,
		Numeric:     make(map[string]NumericStats),
		Categorical: make(map[string]CategoricalStats),
		Date:        make(map[string]DateStats),
		Defaults:    make(map[string]string),
	}

	for _, col := range cols {
		flagDefaults(c, col)

		if total == 0 {
			// No rows to sample: everything is an empty categorical axis.
			c.Categorical[col.Name] = CategoricalStats{}
			if locationPattern.MatchString(col.Name) {
				c.LocationFields = append(c.LocationFields, col.Name)
			}
			continue
		}

		if err := classifyColumn(ctx, c, insp, col, total, t); err != nil {
			slog.Debug("field skipped", "source", source, "field", col.Name, "err", err)
			c.Skipped = append(c.Skipped, col.Name)
		}
	}

	return c, nil
}

func classifyColumn(ctx context.Context, c *Classification, insp Inspector, col Column, total int64, t Thresholds) error {
	distinct, err := insp.DistinctCount(ctx, col.Name)
	if err != nil {
		return fmt.Errorf("distinct count: %w", err)
	}
	uniqueness := float64(distinct) / float64(total)

	// Rule 1: id-like or single-valued non-numeric fields carry no
	// analytical signal.
	if (idPattern.MatchString(col.Name) || distinct == 1) && col.Type != TypeNumeric {
		c.Other = append(c.Other, col.Name)
		return nil
	}

	// Rule 2: numeric axis.
	if isNumericCandidate(ctx, insp, col) && uniqueness >= t.NumericUnique {
		min, max, err := insp.NumericBounds(ctx, col.Name)
		if err != nil {
			return fmt.Errorf("numeric bounds: %w", err)
		}
		c.Numeric[col.Name] = NumericStats{Min: min, Max: max}
		return nil
	}

	// Rule 3: date axis, bounded under string ordering.
	if col.Type == TypeDate || datePattern.MatchString(col.Name) {
		earliest, latest, err := insp.StringBounds(ctx, col.Name)
		if err != nil {
			return fmt.Errorf("date bounds: %w", err)
		}
		c.Date[col.Name] = DateStats{Earliest: earliest, Latest: latest}
		return nil
	}

	// Rule 4: too many distinct values to group by.
	if uniqueness >= t.OthersUnique {
		c.Other = append(c.Other, col.Name)
		return nil
	}

	// Rule 5: categorical, with the full distinct-value set retained.
	values, err := insp.DistinctValues(ctx, col.Name, distinctValueCap)
	if err != nil {
		return fmt.Errorf("distinct values: %w", err)
	}
	c.Categorical[col.Name] = CategoricalStats{Values: values}
	if locationPattern.MatchString(col.Name) {
		c.LocationFields = append(c.LocationFields, col.Name)
	}
	return nil
}

// isNumericCandidate reports whether a column can serve as a numeric axis.
// Text columns qualify when a sampled value leads with a digit and carries
// no embedded hyphen (which would indicate a date-like string).
func isNumericCandidate(ctx context.Context, insp Inspector, col Column) bool {
	if col.Type == TypeNumeric {
		return true
	}
	if col.Type != TypeText {
		return false
	}
	sample, err := insp.Sample(ctx, col.Name)
	if err != nil || sample == "" {
		return false
	}
	first := sample[0]
	if first < '0' || first > '9' {
		return false
	}
	for i := 1; i < len(sample); i++ {
		if sample[i] == '-' {
			return false
		}
	}
	return true
}

// flagDefaults records priority fields (quantity, price, product, name)
// regardless of the bucket they end up in. The synonym resolver uses these
// as registry-default fields; first match per key wins.
func flagDefaults(c *Classification, col Column) {
	lower := col.Name
	switch {
	case quantityPattern.MatchString(lower):
		setDefault(c, "quantity", col.Name)
	case pricePattern.MatchString(lower) && col.Type == TypeNumeric:
		setDefault(c, "price", col.Name)
	case productPattern.MatchString(lower):
		setDefault(c, "product", col.Name)
	case namePattern.MatchString(lower):
		setDefault(c, "name", col.Name)
	}
	if datePattern.MatchString(lower) {
		setDefault(c, "date", col.Name)
	}
	if locationPattern.MatchString(lower) {
		setDefault(c, "location", col.Name)
	}
	if strings.Contains(strings.ToLower(lower), "stream") {
		setDefault(c, "streams", col.Name)
	}
}

func setDefault(c *Classification, key, field string) {
	if _, ok := c.Defaults[key]; !ok {
		c.Defaults[key] = field
	}
}
