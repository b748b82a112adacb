package service

import "github.com/shopspring/decimal"

// ToPaise converts a rupee listing price to paise. Listing prices arrive
// as floats from the listing service; going through decimal avoids binary
// rounding drift on amounts like 99.35.
func ToPaise(price float64) int64 {
	return decimal.NewFromFloat(price).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
