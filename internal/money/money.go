// Package money handles NGN amounts. Prices are stored and transacted
// as integer kobo; naira values exist only at the API boundary and for
// display. All arithmetic on totals is integer addition on kobo.
package money

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

const (
	KoboPerNaira   = 100
	CurrencyCode   = "NGN"
	CurrencySymbol = "₦"
)

var ErrInvalidPrice = errors.New("invalid price format")

var printer = message.NewPrinter(language.English)

// NairaToKobo converts a naira amount to kobo, rounding halves away
// from zero.
func NairaToKobo(naira decimal.Decimal) int64 {
	return naira.Mul(decimal.NewFromInt(KoboPerNaira)).Round(0).IntPart()
}

// FloatToKobo converts a naira amount given as a float (as decoded from
// JSON request bodies) to kobo.
func FloatToKobo(naira float64) int64 {
	return NairaToKobo(decimal.NewFromFloat(naira))
}

// KoboToNaira converts kobo back to a naira amount. The result is for
// display only and is never fed back into arithmetic.
func KoboToNaira(kobo int64) float64 {
	f, _ := decimal.NewFromInt(kobo).Div(decimal.NewFromInt(KoboPerNaira)).Float64()
	return f
}

// FormatOptions controls Format output.
type FormatOptions struct {
	ShowSymbol   bool
	ShowCurrency bool
	Decimals     int
}

// Format renders a kobo amount as a grouped naira string, e.g.
// "₦1,299.99". A nil opts formats with the symbol and two decimals.
func Format(kobo int64, opts *FormatOptions) string {
	if opts == nil {
		opts = &FormatOptions{ShowSymbol: true, Decimals: 2}
	}

	naira := KoboToNaira(kobo)
	formatted := printer.Sprintf("%v", number.Decimal(naira,
		number.MinFractionDigits(opts.Decimals),
		number.MaxFractionDigits(opts.Decimals),
	))

	if opts.ShowSymbol {
		formatted = CurrencySymbol + formatted
	}
	if opts.ShowCurrency {
		formatted = formatted + " " + CurrencyCode
	}
	return formatted
}

// ParsePrice parses user input such as "₦1,299.99" or "1299.99 NGN"
// into kobo. Negative and non-numeric input is rejected.
func ParsePrice(input string) (int64, error) {
	cleaned := strings.NewReplacer(
		CurrencySymbol, "",
		",", "",
		" ", "",
		"\t", "",
	).Replace(input)
	cleaned = strings.ReplaceAll(cleaned, CurrencyCode, "")
	cleaned = strings.ReplaceAll(cleaned, strings.ToLower(CurrencyCode), "")
	cleaned = strings.TrimSpace(cleaned)

	naira, err := decimal.NewFromString(cleaned)
	if err != nil {
		return 0, ErrInvalidPrice
	}
	if naira.IsNegative() {
		return 0, ErrInvalidPrice
	}
	return NairaToKobo(naira), nil
}
