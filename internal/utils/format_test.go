// internal/utils/format_test.go
package utils

import (
	"regexp"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func TestFormatCurrency(t *testing.T) {
	amount := func(v float64) *float64 { return &v }

	tests := []struct {
		name     string
		amount   *float64
		currency string
		want     string
	}{
		{"nil", nil, "USD", "-"},
		{"zero", amount(0), "USD", "-"},
		{"dollars", amount(1234.5), "USD", "$1,234.50"},
		{"lowercase code", amount(30000), " eur ", "€30,000.00"},
		{"default currency", amount(12), "", "$12.00"},
		{"negative", amount(-99.999), "GBP", "-£100.00"},
		{"unknown code", amount(2500), "CHF", "CHF 2,500.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatCurrency(tt.amount, tt.currency))
		})
	}
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "USD 50,000", FormatAmount(50000, ""))
	assert.Equal(t, "EUR 1,235", FormatAmount(1234.6, "EUR"))
}

func TestFormatDate(t *testing.T) {
	assert.Equal(t, "-", FormatDate(nil))
	assert.Equal(t, "-", FormatDate(&time.Time{}))

	at := time.Date(2026, 11, 15, 17, 30, 0, 0, time.UTC)
	assert.Equal(t, "2026-11-15", FormatDate(&at))
	assert.Equal(t, "November 15, 2026", FormatLongDate(&at))
	assert.Equal(t, "-", FormatLongDate(nil))
}

func TestTruncateText(t *testing.T) {
	assert.Equal(t, "", TruncateText("", 5))
	assert.Equal(t, "short", TruncateText("short", 5))
	assert.Equal(t, "short", TruncateText("short", 0))
	assert.Equal(t, "ab", TruncateText("abcdef", 2))
	assert.Equal(t, "ab...", TruncateText("abcdefgh", 5))
	assert.Equal(t, "日本...", TruncateText("日本語のテキスト", 5))
}

func TestFormatProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)
	grouped := regexp.MustCompile(`^\$\d{1,3}(,\d{3})*\.\d{2}$`)

	properties.Property("positive dollar amounts are grouped with two decimals", prop.ForAll(
		func(v float64) bool {
			return grouped.MatchString(FormatCurrency(&v, "USD"))
		},
		gen.Float64Range(0.01, 1e9),
	))

	properties.Property("non-zero amounts never render the placeholder", prop.ForAll(
		func(v float64, code string) bool {
			if v == 0 {
				return true
			}
			return FormatCurrency(&v, code) != Placeholder
		},
		gen.Float64Range(-1e9, 1e9),
		gen.OneConstOf("USD", "EUR", "GBP", "INR", "JPY", "CHF", ""),
	))

	properties.Property("missing amounts render the placeholder", prop.ForAll(
		func(code string) bool {
			zero := 0.0
			return FormatCurrency(nil, code) == Placeholder && FormatCurrency(&zero, code) == Placeholder
		},
		gen.AlphaString(),
	))

	properties.Property("non-zero dates round-trip", prop.ForAll(
		func(days int) bool {
			at := time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC).AddDate(0, 0, days)
			parsed, err := time.Parse("2006-01-02", FormatDate(&at))
			return err == nil && parsed.Equal(time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, time.UTC))
		},
		gen.IntRange(0, 20000),
	))

	properties.Property("truncated text fits and keeps its prefix", prop.ForAll(
		func(text string, max int) bool {
			out := TruncateText(text, max)
			if utf8.RuneCountInString(text) <= max {
				return out == text
			}
			if utf8.RuneCountInString(out) != max {
				return false
			}
			return strings.HasPrefix(text, strings.TrimSuffix(out, "..."))
		},
		gen.AnyString(),
		gen.IntRange(1, 40),
	))

	properties.TestingRun(t)
}
