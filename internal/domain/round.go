package domain

import "github.com/shopspring/decimal"

// Round rounds v half away from zero to the given number of decimal places
// using decimal arithmetic, so 2.675 rounds to 2.68 rather than 2.67.
func Round(v float64, places int32) float64 {
	f, _ := decimal.NewFromFloat(v).Round(places).Float64()
	return f
}
