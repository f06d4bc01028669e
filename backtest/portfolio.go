package backtest

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rustyeddy/quant/market"
)

// PortfolioResult is an equal-weight multi-symbol backtest.
type PortfolioResult struct {
	Symbols    []string
	Allocation float64 // capital given to each symbol
	Times      []time.Time
	Equity     []float64
	Batch      *BatchResult
	Report     Report
}

// Portfolio splits InitialCapital equally across symbols, backtests each
// and sums the per-symbol equity curves on the union of their bar times.
// A symbol's last equity carries forward over gaps; before its first bar,
// and for symbols with no result, its allocation is held as cash.
func (r *Runner) Portfolio(ctx context.Context, src market.Source, symbols []string) (*PortfolioResult, error) {
	if len(symbols) == 0 {
		return nil, errors.New("portfolio: no symbols")
	}

	cfg := r.Config
	cfg.InitialCapital = r.Config.InitialCapital / float64(len(symbols))
	sub, err := NewRunner(cfg, r.Predictor, r.Log)
	if err != nil {
		return nil, err
	}

	batch, err := sub.Batch(ctx, src, symbols)
	if err != nil {
		return nil, err
	}

	out := &PortfolioResult{
		Symbols:    batch.Symbols,
		Allocation: cfg.InitialCapital,
		Batch:      batch,
	}

	var live []*Result
	seen := map[time.Time]struct{}{}
	for _, sym := range batch.Symbols {
		res, ok := batch.Results[sym]
		if !ok || res.Empty {
			continue
		}
		live = append(live, res)
		for _, sig := range res.Signals {
			seen[sig.Time] = struct{}{}
		}
	}
	for t := range seen {
		out.Times = append(out.Times, t)
	}
	sort.Slice(out.Times, func(i, j int) bool { return out.Times[i].Before(out.Times[j]) })

	idle := float64(len(symbols)-len(live)) * cfg.InitialCapital
	cursor := make([]int, len(live))
	out.Equity = make([]float64, len(out.Times))
	for k, t := range out.Times {
		total := idle
		for j, res := range live {
			for cursor[j] < len(res.Signals) && !res.Signals[cursor[j]].Time.After(t) {
				cursor[j]++
			}
			if cursor[j] == 0 {
				total += cfg.InitialCapital
			} else {
				total += res.Equity[cursor[j]-1]
			}
		}
		out.Equity[k] = total
	}

	out.Report = r.portfolioReport(out, live)
	r.log().Info("portfolio done",
		zap.Int("symbols", len(symbols)),
		zap.Int("with_results", len(live)),
		zap.Float64("final_equity", out.Report.FinalEquity))
	return out, nil
}

func (r *Runner) portfolioReport(p *PortfolioResult, live []*Result) Report {
	initial := r.Config.InitialCapital
	rep := Report{
		Symbol:         strings.Join(p.Symbols, ","),
		Period:         r.Config.Period,
		Interval:       r.Config.Interval,
		InitialCapital: initial,
	}
	if len(p.Equity) == 0 {
		rep.Empty = true
		return rep
	}

	returns := make([]float64, len(p.Equity))
	prev := initial
	for i, e := range p.Equity {
		returns[i] = e/prev - 1
		prev = e
	}

	bh := 0.0
	for _, res := range live {
		bh += res.Report.BuyHoldReturnPct
		rep.TradeCount += res.Report.TradeCount
	}

	rep.Start = p.Times[0]
	rep.End = p.Times[len(p.Times)-1]
	rep.FinalEquity = p.Equity[len(p.Equity)-1]
	rep.TotalReturnPct = 100 * TotalReturn(initial, p.Equity)
	rep.BuyHoldReturnPct = bh / float64(len(p.Symbols))
	rep.WinRatePct = 100 * WinRate(returns)
	rep.SharpeRatio = SharpeRatio(returns, r.Config.RiskFreeAnnual)
	rep.MaxDrawdownPct = 100 * MaxDrawdown(append([]float64{initial}, p.Equity...))
	return rep
}
