package backtest

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rustyeddy/quant/indicators"
	"github.com/rustyeddy/quant/market"
	"github.com/rustyeddy/quant/risk"
	"github.com/rustyeddy/quant/signal"
	"github.com/rustyeddy/quant/sim"
)

// Fill is one executed ledger order.
type Fill struct {
	Time     time.Time
	Side     string
	Quantity int64
	Price    float64
}

// SimResult is a ledger-driven replay.
type SimResult struct {
	Symbol string
	Empty  bool
	Reason error

	Fills     []Fill
	Times     []time.Time
	Positions []float64 // 1 while holding after each bar's fills
	Equity    []float64 // marked at each bar's close
	Final     sim.Snapshot

	Report Report
}

// Simulate replays s against l. The signal from bar t is executed at bar
// t+1's open: BUY opens a position sized by risk.Size when flat, SELL
// closes it. Equity is marked at each close and written to the ledger's
// journal.
func (r *Runner) Simulate(ctx context.Context, s market.Series, l *sim.Ledger) (*SimResult, error) {
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("simulate %s: %w", s.Symbol, err)
	}
	if s.Len() < r.MinBars() {
		return &SimResult{
			Symbol: s.Symbol,
			Empty:  true,
			Reason: fmt.Errorf("%s: %d bars, need %d: %w", s.Symbol, s.Len(), r.MinBars(), ErrInsufficientData),
			Final:  l.Snapshot(nil),
			Report: Report{Symbol: s.Symbol, Period: r.Config.Period, Interval: r.Config.Interval, Empty: true},
		}, nil
	}

	fuser, err := signal.NewFuser(r.Config.Signal, r.Predictor)
	if err != nil {
		return nil, err
	}
	frame := indicators.Features(s)
	if err := fuser.Check(frame); err != nil {
		return nil, fmt.Errorf("simulate %s: %w", s.Symbol, err)
	}

	sym := s.Symbol
	tracker := signal.NewTracker(r.Config.Signal)
	initial := l.MarkToMarket(map[string]float64{sym: s.Bars[0].Close})
	res := &SimResult{Symbol: sym}

	var (
		pending    = signal.Hold
		confidence = 1.0
		started    bool
		startIdx   int
	)
	for i, bar := range s.Bars {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		r.execute(res, l, bar, pending, confidence)

		trend := tracker.Update(bar)
		action, conf, defined, err := r.decide(fuser, frame, i, trend)
		if err != nil {
			return nil, fmt.Errorf("simulate %s bar %d: %w", sym, i, err)
		}
		pending, confidence = action, conf

		if !started && defined && i > 0 {
			started, startIdx = true, i
		}
		if !started {
			continue
		}

		snap := l.RecordEquity(bar.Time, map[string]float64{sym: bar.Close})
		res.Times = append(res.Times, bar.Time)
		res.Equity = append(res.Equity, snap.TotalValue)
		held := 0.0
		if l.Quantity(sym) > 0 {
			held = 1
		}
		res.Positions = append(res.Positions, held)
	}

	res.Final = l.Snapshot(map[string]float64{sym: s.Bars[s.Len()-1].Close})
	if !started {
		res.Empty = true
		res.Reason = fmt.Errorf("%s: no bar with a defined signal: %w", sym, ErrInsufficientData)
		res.Report = Report{Symbol: sym, Period: r.Config.Period, Interval: r.Config.Interval, Empty: true}
		return res, nil
	}

	res.Report = r.simReport(res, s, startIdx, initial)
	return res, nil
}

// decide returns the action for bar i and the confidence used to size it.
func (r *Runner) decide(f *signal.Fuser, frame *indicators.Frame, i int, trend signal.Action) (signal.Action, float64, bool, error) {
	if r.Predictor == nil {
		if trend == signal.NoSignal {
			return signal.Hold, 1, false, nil
		}
		return trend, 1, true, nil
	}

	sig, err := f.Evaluate(frame, i)
	if err != nil {
		return signal.Hold, 0, false, err
	}
	defined := trend != signal.NoSignal && sig.HasProb
	return signal.Fuse(trend, sig.ProbUp, sig.HasProb, f.Config), sig.ProbUp, defined, nil
}

func (r *Runner) execute(res *SimResult, l *sim.Ledger, bar market.Bar, action signal.Action, confidence float64) {
	price := bar.Open
	if !(price > 0) {
		price = bar.Close
	}
	sym := res.Symbol
	held := l.Quantity(sym)

	switch {
	case action == signal.Buy && held == 0:
		qty := risk.Size(signal.Buy, l.Cash(), price, confidence, r.Config.RiskFraction, 0)
		if qty == 0 {
			return
		}
		if err := l.BuyAt(bar.Time, sym, qty, price); err != nil {
			r.log().Info("buy refused", zap.String("symbol", sym), zap.Error(err))
			return
		}
		res.Fills = append(res.Fills, Fill{Time: bar.Time, Side: sim.SideBuy, Quantity: qty, Price: price})

	case action == signal.Sell && held > 0:
		filled, err := l.SellAt(bar.Time, sym, held, price)
		if err != nil {
			r.log().Info("sell refused", zap.String("symbol", sym), zap.Error(err))
			return
		}
		res.Fills = append(res.Fills, Fill{Time: bar.Time, Side: sim.SideSell, Quantity: filled, Price: price})
	}
}

func (r *Runner) simReport(res *SimResult, s market.Series, startIdx int, initial float64) Report {
	returns := make([]float64, len(res.Equity))
	prev := initial
	for i, e := range res.Equity {
		if prev > 0 {
			returns[i] = e/prev - 1
		}
		prev = e
	}

	bh := 0.0
	if base := s.Bars[startIdx-1].Close; base > 0 {
		bh = s.Bars[s.Len()-1].Close/base - 1
	}

	return Report{
		Symbol:           res.Symbol,
		Period:           r.Config.Period,
		Interval:         r.Config.Interval,
		Start:            res.Times[0],
		End:              res.Times[len(res.Times)-1],
		InitialCapital:   initial,
		FinalEquity:      res.Equity[len(res.Equity)-1],
		TotalReturnPct:   100 * TotalReturn(initial, res.Equity),
		BuyHoldReturnPct: 100 * bh,
		WinRatePct:       100 * WinRate(returns),
		SharpeRatio:      SharpeRatio(returns, r.Config.RiskFreeAnnual),
		MaxDrawdownPct:   100 * MaxDrawdown(append([]float64{initial}, res.Equity...)),
		TradeCount:       TradeCount(append([]float64{0}, res.Positions...)),
	}
}
