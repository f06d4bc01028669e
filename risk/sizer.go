// Package risk sizes orders and checks them against portfolio limits.
package risk

import (
	"errors"
	"math"

	"github.com/rustyeddy/quant/signal"
)

// ErrInvalidPrice is returned by SizeChecked for a non-positive price.
var ErrInvalidPrice = errors.New("price must be positive")

// Size returns the whole-share quantity for action.
//
// BUY buys floor(capital × riskFraction × confidence / price) shares so the
// cost never exceeds riskFraction of capital. SELL closes out the full
// holding. Anything else, or a non-positive price or capital, sizes to 0.
func Size(action signal.Action, capital, price, confidence, riskFraction float64, holding int64) int64 {
	switch action {
	case signal.Sell:
		if holding < 0 {
			return 0
		}
		return holding
	case signal.Buy:
	default:
		return 0
	}

	if !(price > 0) || !(capital > 0) || math.IsInf(price, 0) || math.IsInf(capital, 0) {
		return 0
	}

	budget := capital * clamp01(riskFraction) * clamp01(confidence)
	qty := math.Floor(budget / price)
	if qty < 0 || math.IsNaN(qty) {
		return 0
	}
	if qty > math.MaxInt64/2 {
		return 0
	}
	return int64(qty)
}

// SizeChecked is Size with an explicit error for a bad price.
func SizeChecked(action signal.Action, capital, price, confidence, riskFraction float64, holding int64) (int64, error) {
	if action == signal.Buy && !(price > 0) {
		return 0, ErrInvalidPrice
	}
	return Size(action, capital, price, confidence, riskFraction, holding), nil
}

// Allocate splits capital across symbols: capital × allocationFraction / symbols.
func Allocate(capital, allocationFraction float64, symbols int) float64 {
	if symbols <= 0 || !(capital > 0) {
		return 0
	}
	return capital * clamp01(allocationFraction) / float64(symbols)
}

func clamp01(x float64) float64 {
	switch {
	case math.IsNaN(x):
		return 0
	case x < 0:
		return 0
	case x > 1:
		return 1
	}
	return x
}
