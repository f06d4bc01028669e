package session

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/rustyeddy/quant/risk"
	"github.com/rustyeddy/quant/signal"
	"github.com/rustyeddy/quant/sim"
)

// Decision is what one symbol did in a cycle.
type Decision struct {
	Symbol   string
	Signal   signal.Signal
	Action   signal.Action
	Price    float64
	Budget   float64
	Quantity int64 // shares filled; 0 when nothing traded

	// Set for a BUY that reached the policy check.
	Check *risk.Decision
}

// Traded reports whether the decision moved the ledger.
func (d Decision) Traded() bool { return d.Quantity > 0 }

// Cycle is the outcome of one Tick.
type Cycle struct {
	Time      time.Time
	Decisions []Decision // symbol order, evaluated symbols only
	Errors    map[string]error
	Snapshot  sim.Snapshot
}

// Print writes the per-symbol actions and the portfolio status.
func (c Cycle) Print(w io.Writer) {
	fmt.Fprintf(w, "=== %s ===\n", c.Time.Format(time.RFC3339))
	for _, d := range c.Decisions {
		prob := "   n/a"
		if d.Signal.HasProb {
			prob = fmt.Sprintf("%6.3f", d.Signal.ProbUp)
		}
		fmt.Fprintf(w, "%-8s close %10.4f trend %-9s p_up %s -> %-4s qty %d\n",
			d.Symbol, d.Price, d.Signal.Trend, prob, d.Action, d.Quantity)
	}
	for sym, err := range c.Errors {
		fmt.Fprintf(w, "%-8s error: %v\n", sym, err)
	}
	c.Snapshot.Print(w)
}

// Tick runs one polling cycle. Signals are computed concurrently; orders
// are then applied to the ledger one symbol at a time in symbol order, each
// BUY sized from the cash left at that point. A failing symbol is recorded
// in Cycle.Errors and the rest of the cycle carries on.
func (s *Session) Tick(ctx context.Context) (Cycle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	evals, errs, err := s.evaluateAll(ctx)
	if err != nil {
		return Cycle{}, err
	}

	now := s.Now()
	cyc := Cycle{Time: now, Errors: errs}
	prices := make(map[string]float64, len(evals))
	for sym, ev := range evals {
		prices[sym] = ev.signal.Close
	}
	for _, sym := range s.symbols {
		ev, ok := evals[sym]
		if !ok {
			continue
		}
		if err := ctx.Err(); err != nil {
			return cyc, err
		}

		d, err := s.apply(now, ev, prices)
		if err != nil {
			s.Log.Warn("order failed", zap.String("symbol", sym), zap.Error(err))
			cyc.Errors[sym] = err
		}
		cyc.Decisions = append(cyc.Decisions, d)
	}

	cyc.Snapshot = s.Ledger.RecordEquity(now, prices)
	s.Log.Info("cycle done",
		zap.Int("symbols", len(s.symbols)),
		zap.Int("errors", len(cyc.Errors)),
		zap.Float64("cash", cyc.Snapshot.Cash),
		zap.Float64("equity", cyc.Snapshot.TotalValue))
	return cyc, nil
}

// apply turns one evaluated signal into a ledger order. prices marks
// equity for the policy check.
func (s *Session) apply(now time.Time, ev evaluation, prices map[string]float64) (Decision, error) {
	sig := ev.signal
	d := Decision{Symbol: ev.symbol, Signal: sig, Action: sig.Action, Price: sig.Close}

	switch sig.Action {
	case signal.Buy:
		return s.buy(now, d, prices)
	case signal.Sell:
		held := s.Ledger.Quantity(d.Symbol)
		if held <= 0 {
			d.Action = signal.Hold
			return d, nil
		}
		filled, err := s.Ledger.SellAt(now, d.Symbol, risk.Size(signal.Sell, 0, d.Price, 0, 0, held), d.Price)
		d.Quantity = filled
		if err == nil {
			s.Log.Info("sell", zap.String("symbol", d.Symbol), zap.Int64("qty", filled), zap.Float64("price", d.Price))
		}
		return d, err
	default:
		return d, nil
	}
}

func (s *Session) buy(now time.Time, d Decision, prices map[string]float64) (Decision, error) {
	pol := s.Config.Policy
	cash := s.Ledger.Cash()
	d.Budget = risk.Allocate(cash, pol.AllocationFraction, len(s.symbols))

	qty := risk.Size(signal.Buy, d.Budget, d.Price, s.confidence(d.Signal), pol.RiskFraction, 0)
	if qty == 0 {
		s.Log.Debug("budget below one share",
			zap.String("symbol", d.Symbol), zap.Float64("budget", d.Budget), zap.Float64("price", d.Price))
		return d, nil
	}

	_, holding := s.Ledger.Position(d.Symbol)
	check := risk.Evaluate(pol,
		risk.Intent{Symbol: d.Symbol, Quantity: qty, Price: d.Price, Confidence: s.confidence(d.Signal)},
		risk.Account{
			Cash:          cash,
			Equity:        s.Ledger.MarkToMarket(prices),
			OpenPositions: len(s.Ledger.Positions()),
			Holding:       holding,
		})
	d.Check = &check
	if !check.Allowed {
		s.Log.Info("buy refused by policy",
			zap.String("symbol", d.Symbol), zap.Int64("qty", qty), zap.Strings("codes", check.Codes()))
		return d, nil
	}

	if err := s.Ledger.BuyAt(now, d.Symbol, qty, d.Price); err != nil {
		return d, err
	}
	d.Quantity = qty
	s.Log.Info("buy", zap.String("symbol", d.Symbol), zap.Int64("qty", qty), zap.Float64("price", d.Price))
	return d, nil
}
