package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFormat(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{8.5, "$8.50"},
		{0, "$0.00"},
		{12, "$12.00"},
		{1234.567, "$1234.57"},
		{-3, "-$3.00"},
		{0.1 + 0.2, "$0.30"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, FormatFloat(c.in), "input %v", c.in)
	}
}

func TestFormatPtrTreatsNullAsZero(t *testing.T) {
	assert.Equal(t, "$0.00", FormatPtr(nil))
	v := 2.8
	assert.Equal(t, "$2.80", FormatPtr(&v))
}

func TestCents(t *testing.T) {
	assert.Equal(t, "2.00", Cents(decimal.RequireFromString("25").Mul(decimal.RequireFromString("0.08"))).StringFixed(2))
	assert.Equal(t, "2.80", Cents(decimal.RequireFromString("35").Mul(decimal.RequireFromString("0.08"))).StringFixed(2))
}
