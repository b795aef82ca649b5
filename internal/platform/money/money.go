// Package money formats rupee amounts for display.
package money

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const rupeeSymbol = "₹"

// Currency is the ISO code attached to every amount the storefront handles.
var Currency = currency.INR

var printer = message.NewPrinter(language.MustParse("en-IN"))

// Format renders the amount with the rupee sign, locale grouping and two decimals.
func Format(amount decimal.Decimal) string {
	value, _ := amount.Round(2).Float64()
	return rupeeSymbol + printer.Sprintf("%.2f", value)
}

// Code returns the ISO 4217 code of the storefront currency.
func Code() string {
	return Currency.String()
}
