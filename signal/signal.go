// Package signal turns moving-average trend and model probability into a
// trading action. Evaluation is stateless: a signal at bar i depends only
// on bars 0..i.
package signal

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is wrapped by Config.Validate failures.
var ErrInvalidConfig = errors.New("invalid signal config")

// Action is a trend or fused decision.
type Action string

const (
	Buy      Action = "BUY"
	Sell     Action = "SELL"
	Hold     Action = "HOLD"
	NoSignal Action = "NO_SIGNAL"
)

func (a Action) String() string { return string(a) }

// Config holds the crossover windows and model thresholds.
type Config struct {
	ShortWindow   int     `json:"short_window" yaml:"short_window"`
	LongWindow    int     `json:"long_window" yaml:"long_window"`
	BuyThreshold  float64 `json:"buy_threshold" yaml:"buy_threshold"`
	SellThreshold float64 `json:"sell_threshold" yaml:"sell_threshold"`
}

// DefaultConfig is SMA 20/50 with 0.55/0.45 thresholds.
func DefaultConfig() Config {
	return Config{
		ShortWindow:   20,
		LongWindow:    50,
		BuyThreshold:  0.55,
		SellThreshold: 0.45,
	}
}

func (c Config) Validate() error {
	if c.ShortWindow < 1 {
		return fmt.Errorf("%w: short_window must be >= 1", ErrInvalidConfig)
	}
	if c.LongWindow <= c.ShortWindow {
		return fmt.Errorf("%w: long_window (%d) must exceed short_window (%d)",
			ErrInvalidConfig, c.LongWindow, c.ShortWindow)
	}
	if c.BuyThreshold < 0 || c.BuyThreshold > 1 {
		return fmt.Errorf("%w: buy_threshold must be in [0,1]", ErrInvalidConfig)
	}
	if c.SellThreshold < 0 || c.SellThreshold > 1 {
		return fmt.Errorf("%w: sell_threshold must be in [0,1]", ErrInvalidConfig)
	}
	if c.SellThreshold > c.BuyThreshold {
		return fmt.Errorf("%w: sell_threshold above buy_threshold", ErrInvalidConfig)
	}
	return nil
}

// Compare maps a short/long average pair to a trend. Either value
// undefined yields NoSignal.
func Compare(short, long float64) Action {
	if undefined(short) || undefined(long) {
		return NoSignal
	}
	switch {
	case short > long:
		return Buy
	case short < long:
		return Sell
	default:
		return Hold
	}
}

// TrendAt is the crossover trend at bar i using closes[0..i] only.
func TrendAt(closes []float64, i int, cfg Config) Action {
	short, long := averagesAt(closes, i, cfg)
	return Compare(short, long)
}

// Fuse requires trend and model to agree. A NoSignal trend or a missing
// probability always yields Hold.
func Fuse(trend Action, probUp float64, hasProb bool, cfg Config) Action {
	if !hasProb || undefined(probUp) {
		return Hold
	}
	switch {
	case trend == Buy && probUp > cfg.BuyThreshold:
		return Buy
	case trend == Sell && probUp < cfg.SellThreshold:
		return Sell
	default:
		return Hold
	}
}

func averagesAt(closes []float64, i int, cfg Config) (float64, float64) {
	return meanAt(closes, i, cfg.ShortWindow), meanAt(closes, i, cfg.LongWindow)
}

// meanAt sums in window order so results match indicators.SMA exactly.
func meanAt(values []float64, i, window int) float64 {
	if window <= 0 || i < window-1 || i >= len(values) {
		return nan
	}
	sum := 0.0
	for _, v := range values[i-window+1 : i+1] {
		sum += v
	}
	return sum / float64(window)
}
