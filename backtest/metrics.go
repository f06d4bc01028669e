package backtest

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/rustyeddy/quant/indicators"
)

// TradingDays annualizes daily statistics.
const TradingDays = 252

// MaxDrawdown is the worst peak-to-trough fall of curve as a negative
// fraction. It is 0 for curves shorter than two points.
func MaxDrawdown(curve []float64) float64 {
	if len(curve) < 2 {
		return 0
	}
	peak := math.Inf(-1)
	worst := 0.0
	for _, v := range curve {
		if indicators.Undefined(v) {
			continue
		}
		if v > peak {
			peak = v
		}
		if peak <= 0 {
			continue
		}
		if dd := (v - peak) / peak; dd < worst {
			worst = dd
		}
	}
	return worst
}

// SharpeRatio annualizes mean over population std of daily excess returns.
// Empty or constant series return 0.
func SharpeRatio(returns []float64, riskFreeAnnual float64) float64 {
	daily := riskFreeAnnual / TradingDays
	excess := make([]float64, 0, len(returns))
	for _, r := range returns {
		if indicators.Undefined(r) {
			continue
		}
		excess = append(excess, r-daily)
	}
	if len(excess) == 0 {
		return 0
	}

	mean, std := stat.PopMeanStdDev(excess, nil)
	if !(std > 1e-12*math.Max(1, math.Abs(mean))) {
		return 0
	}
	return math.Sqrt(TradingDays) * mean / std
}

// WinRate is the fraction of defined returns above zero.
func WinRate(returns []float64) float64 {
	n, wins := 0, 0
	for _, r := range returns {
		if indicators.Undefined(r) {
			continue
		}
		n++
		if r > 0 {
			wins++
		}
	}
	if n == 0 {
		return 0
	}
	return float64(wins) / float64(n)
}

// TradeCount counts position changes and halves them, so an entry and its
// exit count as one trade.
func TradeCount(positions []float64) int {
	changes := 0
	for i := 1; i < len(positions); i++ {
		if positions[i] != positions[i-1] {
			changes++
		}
	}
	return changes / 2
}

// TotalReturn is last/first - 1 over an equity curve seeded at initial.
func TotalReturn(initial float64, curve []float64) float64 {
	if len(curve) == 0 || initial <= 0 {
		return 0
	}
	return curve[len(curve)-1]/initial - 1
}

// Compound grows initial by each return in turn.
func Compound(initial float64, returns []float64) []float64 {
	out := make([]float64, len(returns))
	e := initial
	for i, r := range returns {
		e *= 1 + r
		out[i] = e
	}
	return out
}
