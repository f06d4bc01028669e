package backtest

import (
	"context"
	"sort"

	"github.com/rustyeddy/quant/market"
)

var (
	DefaultShortWindows = []int{5, 10, 20}
	DefaultLongWindows  = []int{30, 50, 100, 200}
)

// Candidate is one window pair tried by Optimize.
type Candidate struct {
	ShortWindow int    `json:"short_window"`
	LongWindow  int    `json:"long_window"`
	Report      Report `json:"report"`
}

// Optimize runs every short/long pair with short < long and ranks the
// non-empty results by total return, best first.
func (r *Runner) Optimize(ctx context.Context, s market.Series, shorts, longs []int) ([]Candidate, error) {
	if len(shorts) == 0 {
		shorts = DefaultShortWindows
	}
	if len(longs) == 0 {
		longs = DefaultLongWindows
	}

	var out []Candidate
	for _, sw := range shorts {
		for _, lw := range longs {
			if sw >= lw {
				continue
			}
			cfg := r.Config
			cfg.Signal.ShortWindow = sw
			cfg.Signal.LongWindow = lw

			sub, err := NewRunner(cfg, r.Predictor, r.Log)
			if err != nil {
				return nil, err
			}
			res, err := sub.Run(ctx, s)
			if err != nil {
				return nil, err
			}
			if res.Empty {
				continue
			}
			out = append(out, Candidate{ShortWindow: sw, LongWindow: lw, Report: res.Report})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Report.TotalReturnPct > out[j].Report.TotalReturnPct
	})
	return out, nil
}
