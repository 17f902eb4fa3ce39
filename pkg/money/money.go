package money

import "github.com/shopspring/decimal"

// Format renders an amount as dollars with exactly two decimals: 8.5 -> "$8.50", -3 -> "-$3.00".
func Format(d decimal.Decimal) string {
	d = d.Round(2)
	if d.IsNegative() {
		return "-$" + d.Neg().StringFixed(2)
	}
	return "$" + d.StringFixed(2)
}

// FormatFloat is Format for plain floats.
func FormatFloat(v float64) string {
	return Format(decimal.NewFromFloat(v))
}

// FormatPtr formats a nullable amount, treating null as zero.
func FormatPtr(v *float64) string {
	if v == nil {
		return Format(decimal.Zero)
	}
	return FormatFloat(*v)
}

// Cents rounds to two decimals.
func Cents(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
