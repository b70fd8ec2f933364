package catalog

import (
	"strings"

	"github.com/shopspring/decimal"
)

// zeroDecimalCurrencies are charged in whole units by the payment provider.
var zeroDecimalCurrencies = map[string]bool{
	"bif": true, "clp": true, "djf": true, "gnf": true, "jpy": true, "kmf": true, "krw": true,
	"mga": true, "pyg": true, "rwf": true, "ugx": true, "vnd": true, "vuv": true, "xaf": true,
	"xof": true, "xpf": true,
}

func currencyExponent(currency string) int32 {
	if zeroDecimalCurrencies[strings.ToLower(currency)] {
		return 0
	}
	return 2
}

// MajorUnits converts a minor-unit amount (cents) to a decimal in major units.
func MajorUnits(unitAmount int64, currency string) decimal.Decimal {
	return decimal.New(unitAmount, -currencyExponent(currency))
}

// FormatAmount renders an amount as "12.50 USD". A nil amount (custom pricing) renders as "-".
func FormatAmount(unitAmount *int64, currency string) string {
	if unitAmount == nil {
		return "-"
	}
	exp := currencyExponent(currency)
	return MajorUnits(*unitAmount, currency).StringFixed(exp) + " " + strings.ToUpper(currency)
}

func (p Price) Display() string {
	return FormatAmount(p.UnitAmount, p.Currency)
}

// MinorUnits is the inverse of MajorUnits, rounding to the currency's precision.
func MinorUnits(major decimal.Decimal, currency string) int64 {
	return major.Shift(currencyExponent(currency)).Round(0).IntPart()
}
