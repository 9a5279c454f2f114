package pattern

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/chatdb/internal/testutil"
)

func TestNormalizeDate(t *testing.T) {
	now := testutil.ReferenceTime

	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"January 1, 2023", "2023-01-01", true},
		{"january 1, 2023", "2023-01-01", true},
		{"January 1 2023", "2023-01-01", true},
		{"2023-07-14", "2023-07-14", true},
		{"March 3rd, 2023", "2023-03-03", true},
		{"December 21st 2022", "2022-12-21", true},
		// Year-less dates default to the current year.
		{"March 15", "2024-03-15", true},
		{"Foobruary 1, 2023", "", false},
		{"2023", "", false},
		{"", "", false},
	}

	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, ok := normalizeDate(tc.in, now)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseMonth(t *testing.T) {
	m, ok := parseMonth("march")
	require.True(t, ok)
	assert.Equal(t, time.March, m)

	_, ok = parseMonth("smarch")
	assert.False(t, ok)
}

func TestParseDatePhrase(t *testing.T) {
	now := testutil.ReferenceTime

	t.Run("specific date", func(t *testing.T) {
		dp, ok := parseDatePhrase("January 5, 2023", now)
		require.True(t, ok)
		assert.Equal(t, "2023-01-05", dp.Specific)
	})

	t.Run("month with year", func(t *testing.T) {
		dp, ok := parseDatePhrase("March 2023", now)
		require.True(t, ok)
		assert.Empty(t, dp.Specific)
		assert.True(t, dp.HasMonth)
		assert.Equal(t, time.March, dp.Month)
		assert.True(t, dp.HasYear)
		assert.Equal(t, 2023, dp.Year)
	})

	t.Run("comma separated month and year", func(t *testing.T) {
		dp, ok := parseDatePhrase("March, 2023", now)
		require.True(t, ok)
		assert.True(t, dp.HasMonth)
		assert.True(t, dp.HasYear)
	})

	t.Run("bare year", func(t *testing.T) {
		dp, ok := parseDatePhrase("2023", now)
		require.True(t, ok)
		assert.False(t, dp.HasMonth)
		assert.True(t, dp.HasYear)
		assert.Equal(t, 2023, dp.Year)
	})

	t.Run("bare month", func(t *testing.T) {
		dp, ok := parseDatePhrase("December", now)
		require.True(t, ok)
		assert.True(t, dp.HasMonth)
		assert.Equal(t, time.December, dp.Month)
		assert.False(t, dp.HasYear)
	})

	t.Run("garbage", func(t *testing.T) {
		_, ok := parseDatePhrase("sometime soon", now)
		assert.False(t, ok)
	})
}
