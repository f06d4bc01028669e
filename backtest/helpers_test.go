package backtest

import (
	"math"
	"time"

	"github.com/rustyeddy/quant/market"
	"github.com/rustyeddy/quant/signal"
)

var baseTime = time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)

func series(symbol string, closes ...float64) market.Series {
	bars := make([]market.Bar, len(closes))
	for i, c := range closes {
		bars[i] = market.Bar{
			Time:   baseTime.AddDate(0, 0, i),
			Open:   c,
			High:   c + 1,
			Low:    math.Max(c-1, 0.01),
			Close:  c,
			Volume: 1000 + float64(i),
		}
	}
	return market.NewSeries(symbol, bars)
}

func wave(n int, phase float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		x := float64(i)
		out[i] = 100 + 15*math.Sin(x/9+phase) + 4*math.Sin(x/2.3) + x*0.05
	}
	return out
}

func crossover() []float64 {
	closes := make([]float64, 12)
	for i := range closes {
		closes[i] = 10
	}
	closes[11] = 12
	return closes
}

func smallConfig() Config {
	cfg := DefaultConfig()
	cfg.Period = "max"
	cfg.InitialCapital = 1000
	cfg.Signal = signal.Config{ShortWindow: 3, LongWindow: 5, BuyThreshold: 0.55, SellThreshold: 0.45}
	return cfg
}
