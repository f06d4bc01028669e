package market

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	// ErrUnordered is returned when bar timestamps are not strictly increasing.
	ErrUnordered = errors.New("bars are not in strictly increasing time order")

	// ErrNonFinite is returned for a NaN or infinite price or volume.
	ErrNonFinite = errors.New("bar has a non-finite value")
)

// Bar is one OHLCV sample for a fixed interval.
type Bar struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Series is an ordered bar sequence for a single symbol.
// Gaps between bars are allowed.
type Series struct {
	Symbol   string
	Interval string
	Bars     []Bar
}

func NewSeries(symbol string, bars []Bar) Series {
	return Series{Symbol: symbol, Bars: bars}
}

func (s Series) Len() int { return len(s.Bars) }

func (s Series) Empty() bool { return len(s.Bars) == 0 }

// Finite reports whether every price and the volume are finite numbers.
func (b Bar) Finite() bool {
	for _, v := range [...]float64{b.Open, b.High, b.Low, b.Close, b.Volume} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Validate checks that timestamps strictly increase and that every bar is
// finite.
func (s Series) Validate() error {
	for i, b := range s.Bars {
		if !b.Finite() {
			return fmt.Errorf("%s: bar %d at %s: %w",
				s.Symbol, i, b.Time.Format(time.RFC3339), ErrNonFinite)
		}
		if i == 0 {
			continue
		}
		if !b.Time.After(s.Bars[i-1].Time) {
			return fmt.Errorf("%s: bar %d at %s: %w",
				s.Symbol, i, s.Bars[i].Time.Format(time.RFC3339), ErrUnordered)
		}
	}
	return nil
}

// Closes returns the close prices in bar order.
func (s Series) Closes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Close
	}
	return out
}

// Opens returns the open prices in bar order.
func (s Series) Opens() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Open
	}
	return out
}

// Truncate returns a series holding only the first n bars. The bar slice is
// copied so callers can't observe later bars through the backing array.
func (s Series) Truncate(n int) Series {
	if n < 0 {
		n = 0
	}
	if n > len(s.Bars) {
		n = len(s.Bars)
	}
	bars := make([]Bar, n)
	copy(bars, s.Bars[:n])
	return Series{Symbol: s.Symbol, Interval: s.Interval, Bars: bars}
}

// Last returns the final bar and false when the series is empty.
func (s Series) Last() (Bar, bool) {
	if len(s.Bars) == 0 {
		return Bar{}, false
	}
	return s.Bars[len(s.Bars)-1], true
}

// Since keeps bars with Time >= from.
func (s Series) Since(from time.Time) Series {
	i := 0
	for i < len(s.Bars) && s.Bars[i].Time.Before(from) {
		i++
	}
	bars := make([]Bar, len(s.Bars)-i)
	copy(bars, s.Bars[i:])
	return Series{Symbol: s.Symbol, Interval: s.Interval, Bars: bars}
}
