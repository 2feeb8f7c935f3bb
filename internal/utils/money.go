package utils

import (
	"time" // Date formatting

	"github.com/shopspring/decimal" // Fixed-precision amounts
)

// CurrencySymbol prefixes every amount shown to users
const CurrencySymbol = "₹"

// FormatAmount renders an amount with the currency symbol and two decimals, e.g. ₹5000.00
func FormatAmount(amount decimal.Decimal) string {
	return CurrencySymbol + amount.StringFixed(2)
}

// FormatDate renders a date as "15 January 2024"
func FormatDate(t time.Time) string {
	return t.Format("02 January 2006")
}
