package signal

import (
	"github.com/rustyeddy/quant/indicators"
	"github.com/rustyeddy/quant/market"
)

// Tracker follows the crossover trend one bar at a time.
type Tracker struct {
	short indicators.Indicator
	long  indicators.Indicator
}

func NewTracker(cfg Config) *Tracker {
	return &Tracker{
		short: indicators.NewSMA(cfg.ShortWindow),
		long:  indicators.NewSMA(cfg.LongWindow),
	}
}

// Update feeds b and returns the trend as of b.
func (t *Tracker) Update(b market.Bar) Action {
	t.short.Update(b)
	t.long.Update(b)
	return t.Trend()
}

func (t *Tracker) Trend() Action {
	return Compare(t.short.Value(), t.long.Value())
}

func (t *Tracker) Averages() (short, long float64) {
	return t.short.Value(), t.long.Value()
}

func (t *Tracker) Reset() {
	t.short.Reset()
	t.long.Reset()
}
