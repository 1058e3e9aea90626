package transform

import (
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/fleximart/fleximart-etl/internal/model"
)

// DefaultCountryCode is prefixed to ten-digit local phone numbers.
const DefaultCountryCode = "91"

// StandardizePhone rewrites a phone number to +<cc>-<10 digits>. All
// non-digits are ignored. A number carrying the country code or a trunk
// zero has it removed; longer numbers keep their last ten digits. It
// returns false when fewer than ten digits remain.
func StandardizePhone(s, cc string) (string, bool) {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	switch {
	case len(digits) == 10:
	case len(digits) == len(cc)+10 && strings.HasPrefix(digits, cc):
		digits = digits[len(cc):]
	case len(digits) == 11 && digits[0] == '0':
		digits = digits[1:]
	case len(digits) > 10:
		digits = digits[len(digits)-10:]
	default:
		return "", false
	}
	return "+" + cc + "-" + digits, true
}

// dateLayouts are tried in order; the first that parses wins. Day-first
// forms precede month-first ones, so 03/04/2024 is the 3rd of April.
var dateLayouts = []string{
	"2006-1-2",
	"2/1/2006",
	"1-2-2006",
	"2-1-2006",
	"1/2/2006",
	"2006/1/2",
	"2 Jan 2006",
	"2 January 2006",
}

// ParseDate parses any of the recognized date representations.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// CleanText normalizes to NFC, trims, and collapses inner whitespace.
func CleanText(s string) string {
	s = norm.NFC.String(s)
	return strings.Join(strings.FieldsFunc(s, unicode.IsSpace), " ")
}

// TitleCase capitalizes the first letter of each word and lower-cases the
// rest, after CleanText.
func TitleCase(s string) string {
	return cases.Title(language.English).String(CleanText(s))
}

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// identity returns the dedup identity of a raw row, or "" when the row
// has none.
func identity(kind model.Kind, row model.Row) string {
	switch kind {
	case model.KindCustomers:
		return NormalizeEmail(row["email"])
	case model.KindProducts:
		return row.Get("product_id")
	case model.KindOrders:
		return row.Get("order_id")
	case model.KindOrderItems:
		if id := row.Get("order_item_id"); id != "" {
			return id
		}
		if !row.Has("order_id") || !row.Has("product_id") {
			return ""
		}
		return row.Get("order_id") + "/" + row.Get("product_id")
	case model.KindSales:
		return row.Get("transaction_id")
	}
	return ""
}
