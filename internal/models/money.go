package models

import "github.com/shopspring/decimal"

// Fractional precision for ledger arithmetic. USD amounts carry two
// decimal places, asset quantities eight. Banker's rounding keeps
// repeated partial sells from drifting in one direction.
const (
	USDPlaces = 2
	QtyPlaces = 8
)

// RoundUSD rounds a USD amount to cents, half to even.
func RoundUSD(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(USDPlaces)
}

// RoundQty rounds an asset quantity to eight decimal places, half to even.
func RoundQty(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(QtyPlaces)
}
