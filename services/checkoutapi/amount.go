package checkoutapi

import (
	"strings"

	"github.com/shopspring/decimal"
)

var zeroDecimalCurrencies = map[string]bool{
	"JPY": true,
	"KRW": true,
	"VND": true,
}

func minorUnitExponent(currency string) int32 {
	if zeroDecimalCurrencies[strings.ToUpper(currency)] {
		return 0
	}
	return 2
}

// FormatAmount renders minor units as "INR 499.00".
func FormatAmount(minorUnits int64, currency string) string {
	exp := minorUnitExponent(currency)
	major := decimal.New(minorUnits, -exp)
	return strings.TrimSpace(strings.ToUpper(currency) + " " + major.StringFixed(exp))
}
