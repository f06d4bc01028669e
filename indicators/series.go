package indicators

import (
	"math"

	"github.com/rustyeddy/quant/market"
)

// Series functions return a slice aligned 1:1 with their input. Positions
// without enough history hold NaN. Each output value depends only on inputs
// at or before its own index, and window sums are recomputed per position
// rather than carried, so truncating the input never changes earlier values.

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// Undefined reports whether v is a missing value.
func Undefined(v float64) bool {
	return math.IsNaN(v) || math.IsInf(v, 0)
}

// SMA is the simple moving average over window values.
func SMA(values []float64, window int) []float64 {
	out := nanSlice(len(values))
	if window <= 0 {
		return out
	}
	for i := window - 1; i < len(values); i++ {
		sum := 0.0
		for _, v := range values[i-window+1 : i+1] {
			sum += v
		}
		out[i] = sum / float64(window)
	}
	return out
}

// EMA is the exponentially weighted mean with alpha = 2/(span+1), seeded
// with the first value. NaN inputs before the first defined value are skipped.
func EMA(values []float64, span int) []float64 {
	out := nanSlice(len(values))
	if span <= 0 {
		return out
	}
	alpha := 2.0 / float64(span+1)

	seeded := false
	prev := 0.0
	for i, x := range values {
		if math.IsNaN(x) {
			if seeded {
				out[i] = prev
			}
			continue
		}
		if !seeded {
			prev = x
			seeded = true
		} else {
			prev = alpha*x + (1-alpha)*prev
		}
		out[i] = prev
	}
	return out
}

// RollingStd is the sample standard deviation (n-1 denominator) over window
// values. A window containing NaN yields NaN.
func RollingStd(values []float64, window int) []float64 {
	out := nanSlice(len(values))
	if window < 2 {
		return out
	}
	for i := window - 1; i < len(values); i++ {
		w := values[i-window+1 : i+1]
		if anyNaN(w) {
			continue
		}
		out[i] = sampleStd(w)
	}
	return out
}

func sampleStd(w []float64) float64 {
	mean := 0.0
	for _, v := range w {
		mean += v
	}
	mean /= float64(len(w))

	ss := 0.0
	for _, v := range w {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(w)-1))
}

// RollingMean is SMA that tolerates leading NaN: a window containing NaN yields NaN.
func RollingMean(values []float64, window int) []float64 {
	out := nanSlice(len(values))
	if window <= 0 {
		return out
	}
	for i := window - 1; i < len(values); i++ {
		w := values[i-window+1 : i+1]
		if anyNaN(w) {
			continue
		}
		sum := 0.0
		for _, v := range w {
			sum += v
		}
		out[i] = sum / float64(window)
	}
	return out
}

// PctChange is (x_t - x_{t-n}) / x_{t-n}. A zero base yields NaN.
func PctChange(values []float64, n int) []float64 {
	out := nanSlice(len(values))
	if n <= 0 {
		return out
	}
	for i := n; i < len(values); i++ {
		base := values[i-n]
		if base == 0 || math.IsNaN(base) || math.IsNaN(values[i]) {
			continue
		}
		out[i] = (values[i] - base) / base
	}
	return out
}

// Shift lags values by n positions.
func Shift(values []float64, n int) []float64 {
	out := nanSlice(len(values))
	for i := n; i < len(values); i++ {
		if i-n >= 0 {
			out[i] = values[i-n]
		}
	}
	return out
}

// RSI uses simple rolling means of gains and losses over period closes.
// The first bar contributes a zero change. A zero loss mean yields 100.
func RSI(closes []float64, period int) []float64 {
	n := len(closes)
	gains := make([]float64, n)
	losses := make([]float64, n)
	for i := 1; i < n; i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			gains[i] = d
		} else if d < 0 {
			losses[i] = -d
		}
	}

	avgGain := SMA(gains, period)
	avgLoss := SMA(losses, period)

	out := nanSlice(n)
	for i := range out {
		if math.IsNaN(avgGain[i]) || math.IsNaN(avgLoss[i]) {
			continue
		}
		out[i] = rsiFromAvg(avgGain[i], avgLoss[i])
	}
	return out
}

func rsiFromAvg(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}

// MACDResult holds the three MACD lines.
type MACDResult struct {
	Line   []float64
	Signal []float64
	Hist   []float64
}

// MACD is EMA(fast) - EMA(slow) with an EMA(signal) of that line.
func MACD(closes []float64, fast, slow, signal int) MACDResult {
	fastEMA := EMA(closes, fast)
	slowEMA := EMA(closes, slow)

	line := make([]float64, len(closes))
	for i := range closes {
		line[i] = fastEMA[i] - slowEMA[i]
	}
	sig := EMA(line, signal)

	hist := make([]float64, len(closes))
	for i := range closes {
		hist[i] = line[i] - sig[i]
	}
	return MACDResult{Line: line, Signal: sig, Hist: hist}
}

// BandsResult holds Bollinger middle/upper/lower bands.
type BandsResult struct {
	Middle []float64
	Upper  []float64
	Lower  []float64
	Std    []float64
}

// Bollinger is SMA(window) +/- k sample standard deviations.
func Bollinger(closes []float64, window int, k float64) BandsResult {
	mid := SMA(closes, window)
	std := RollingStd(closes, window)

	upper := nanSlice(len(closes))
	lower := nanSlice(len(closes))
	for i := range closes {
		if math.IsNaN(mid[i]) || math.IsNaN(std[i]) {
			continue
		}
		upper[i] = mid[i] + k*std[i]
		lower[i] = mid[i] - k*std[i]
	}
	return BandsResult{Middle: mid, Upper: upper, Lower: lower, Std: std}
}

// TrueRange is max(high-low, |high-prevClose|, |low-prevClose|). The first
// bar has no previous close and uses high-low alone.
func TrueRange(bars []market.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		if i == 0 {
			out[i] = b.High - b.Low
			continue
		}
		out[i] = trueRange(b, bars[i-1])
	}
	return out
}

func trueRange(current, previous market.Bar) float64 {
	highLow := current.High - current.Low
	highClose := math.Abs(current.High - previous.Close)
	lowClose := math.Abs(current.Low - previous.Close)

	return math.Max(highLow, math.Max(highClose, lowClose))
}

// ATR is the simple rolling mean of the true range.
func ATR(bars []market.Bar, period int) []float64 {
	return SMA(TrueRange(bars), period)
}

// Momentum is close_t - close_{t-period}.
func Momentum(closes []float64, period int) []float64 {
	out := nanSlice(len(closes))
	if period <= 0 {
		return out
	}
	for i := period; i < len(closes); i++ {
		out[i] = closes[i] - closes[i-period]
	}
	return out
}

// ROC is the fractional change over period closes.
func ROC(closes []float64, period int) []float64 {
	return PctChange(closes, period)
}

// OBV accumulates sign(close change) * volume, starting from zero.
func OBV(bars []market.Bar) []float64 {
	out := make([]float64, len(bars))
	acc := 0.0
	for i := 1; i < len(bars); i++ {
		d := bars[i].Close - bars[i-1].Close
		switch {
		case d > 0:
			acc += bars[i].Volume
		case d < 0:
			acc -= bars[i].Volume
		}
		out[i] = acc
	}
	return out
}

func anyNaN(vals []float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}
