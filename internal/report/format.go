package report

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	thousand = decimal.New(1, 3)
	million  = decimal.New(1, 6)
	billion  = decimal.New(1, 9)
	trillion = decimal.New(1, 12)
)

// Price formats a quote with precision scaled to its magnitude
func Price(p float64) string {
	d := decimal.NewFromFloat(p)
	switch {
	case p < 0.00001:
		return "$" + d.StringFixed(8)
	case p < 0.001:
		return "$" + d.StringFixed(6)
	case p < 1:
		return "$" + d.StringFixed(4)
	case p < 100:
		return "$" + d.StringFixed(2)
	default:
		return "$" + d.StringFixed(0)
	}
}

// USD formats a dollar amount compactly, e.g. $1.50B
func USD(v float64) string {
	d := decimal.NewFromFloat(v)
	abs := d.Abs()
	switch {
	case abs.GreaterThanOrEqual(trillion):
		return "$" + d.Div(trillion).StringFixed(2) + "T"
	case abs.GreaterThanOrEqual(billion):
		return "$" + d.Div(billion).StringFixed(2) + "B"
	case abs.GreaterThanOrEqual(million):
		return "$" + d.Div(million).StringFixed(2) + "M"
	case abs.GreaterThanOrEqual(thousand):
		return "$" + d.Div(thousand).StringFixed(2) + "K"
	default:
		return "$" + d.StringFixed(2)
	}
}

// Percent formats a signed percentage
func Percent(v float64) string {
	return fmt.Sprintf("%+.2f%%", v)
}

// Notional returns the dollar amount of a position on a portfolio
func Notional(portfolio, sizePct float64) string {
	amount := decimal.NewFromFloat(portfolio).
		Mul(decimal.NewFromFloat(sizePct)).
		Div(decimal.NewFromInt(100))
	return "$" + amount.StringFixed(2)
}
