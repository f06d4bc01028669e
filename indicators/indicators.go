// Package indicators computes technical indicators over bar series.
//
// Two styles are offered. Batch functions (SMA, RSI, MACD, ...) take a whole
// series and return NaN-padded slices aligned with it; Frame collects them
// into named feature columns. Streaming indicators implement Indicator and
// fold one closed bar at a time, for callers that see bars as they arrive.
package indicators

import "github.com/rustyeddy/quant/market"

// Indicator computes a single streaming value from bars.
// It is deterministic and safe to use in live, replay, and backtests.
type Indicator interface {
	// Name returns a stable identifier like "SMA(20)".
	Name() string

	// Warmup returns how many updates are needed before Ready() can be true.
	Warmup() int

	// Reset clears all internal state.
	Reset()

	// Update consumes the next *closed* bar and updates internal state.
	Update(b market.Bar)

	// Ready reports whether Value() is meaningful (warmup completed).
	Ready() bool

	// Value returns the current value, or NaN before warmup completes.
	Value() float64
}
