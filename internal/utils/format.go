// internal/utils/format.go
package utils

import (
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Placeholder is rendered for values that are missing.
const Placeholder = "-"

var (
	printer         = message.NewPrinter(language.English)
	currencySymbols = map[string]string{
		"USD": "$",
		"EUR": "€",
		"GBP": "£",
		"INR": "₹",
		"JPY": "¥",
	}
)

// FormatCurrency renders an amount with grouping and two decimals, e.g.
// "$1,234.50". Nil and zero amounts render as the placeholder.
func FormatCurrency(amount *float64, currency string) string {
	if amount == nil || *amount == 0 {
		return Placeholder
	}

	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		currency = "USD"
	}

	number := printer.Sprintf("%.2f", *amount)
	if symbol, ok := currencySymbols[currency]; ok {
		if strings.HasPrefix(number, "-") {
			return "-" + symbol + number[1:]
		}
		return symbol + number
	}
	return currency + " " + number
}

// FormatAmount renders a grouped amount without decimals ("USD 50,000"),
// the style used in outgoing RFP emails.
func FormatAmount(amount float64, currency string) string {
	if currency == "" {
		currency = "USD"
	}
	return currency + " " + printer.Sprintf("%.0f", amount)
}

// FormatDate renders YYYY-MM-DD, or the placeholder for nil or zero times.
func FormatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return Placeholder
	}
	return t.Format("2006-01-02")
}

// FormatLongDate renders "January 2, 2006", or the placeholder.
func FormatLongDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return Placeholder
	}
	return t.Format("January 2, 2006")
}

// TruncateText shortens text to at most maxLength runes, appending "...".
func TruncateText(text string, maxLength int) string {
	if text == "" {
		return ""
	}
	runes := []rune(text)
	if maxLength <= 0 || len(runes) <= maxLength {
		return text
	}
	if maxLength <= 3 {
		return string(runes[:maxLength])
	}
	return string(runes[:maxLength-3]) + "..."
}
