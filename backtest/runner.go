// Package backtest replays bar series through the signal fuser and
// measures the resulting long/flat strategy.
package backtest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rustyeddy/quant/indicators"
	"github.com/rustyeddy/quant/internal/logging"
	"github.com/rustyeddy/quant/market"
	"github.com/rustyeddy/quant/predictor"
	"github.com/rustyeddy/quant/signal"
)

// ErrInsufficientData is the reason carried by an empty Result.
var ErrInsufficientData = indicators.ErrInsufficientData

type Config struct {
	Symbol         string        `json:"symbol" yaml:"symbol"`
	Period         string        `json:"period" yaml:"period"`
	Interval       string        `json:"interval" yaml:"interval"`
	InitialCapital float64       `json:"initial_capital" yaml:"initial_capital"`
	RiskFreeAnnual float64       `json:"risk_free_annual" yaml:"risk_free_annual"`
	Signal         signal.Config `json:"signal" yaml:"signal"`

	// Used by Simulate when sizing entries.
	RiskFraction float64 `json:"risk_fraction" yaml:"risk_fraction"`
}

func DefaultConfig() Config {
	return Config{
		Symbol:         "AAPL",
		Period:         "5y",
		Interval:       "1d",
		InitialCapital: 10000,
		RiskFreeAnnual: 0.01,
		Signal:         signal.DefaultConfig(),
		RiskFraction:   1,
	}
}

func (c Config) Validate() error {
	if c.InitialCapital <= 0 {
		return errors.New("initial_capital must be positive")
	}
	if c.RiskFraction < 0 || c.RiskFraction > 1 {
		return errors.New("risk_fraction must be in [0,1]")
	}
	return c.Signal.Validate()
}

// Result is one backtest. Slices cover the evaluation window: from the
// first bar with a defined signal to the end of the series.
type Result struct {
	Symbol string
	Empty  bool
	Reason error

	Start time.Time
	End   time.Time

	Signals       []signal.Signal
	Positions     []float64 // position held entering each bar
	MarketReturns []float64
	Returns       []float64 // strategy returns
	Equity        []float64
	BuyHold       []float64

	Report Report
}

// Runner is stateless between runs and safe to share.
type Runner struct {
	Config    Config
	Predictor predictor.Predictor // nil runs trend-only
	Log       *zap.Logger
}

func NewRunner(cfg Config, p predictor.Predictor, log *zap.Logger) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("backtest config: %w", err)
	}
	if p != nil {
		if err := predictor.Validate(p, indicators.FeatureNames()); err != nil {
			return nil, fmt.Errorf("backtest model: %w", err)
		}
	}
	return &Runner{Config: cfg, Predictor: p, Log: logging.OrNop(log)}, nil
}

// MinBars is the shortest series that can yield a defined signal.
func (r *Runner) MinBars() int {
	n := r.Config.Signal.LongWindow
	if r.Predictor != nil {
		n = max(n, indicators.WarmupBars()+1)
	}
	return max(n, 2)
}

func (r *Runner) empty(s market.Series, reason error) *Result {
	r.log().Debug("empty backtest", zap.String("symbol", s.Symbol), zap.Error(reason))
	return &Result{
		Symbol: s.Symbol,
		Empty:  true,
		Reason: reason,
		Report: Report{Symbol: s.Symbol, Period: r.Config.Period, Interval: r.Config.Interval, Empty: true},
	}
}

func (r *Runner) log() *zap.Logger { return logging.OrNop(r.Log) }

// Run replays s. A signal at bar t sets the position held from bar t+1:
// BUY goes long, SELL goes flat, HOLD keeps the prior position. Too little
// data gives an empty Result rather than an error; errors are reserved for
// bad input and configuration.
func (r *Runner) Run(ctx context.Context, s market.Series) (*Result, error) {
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("backtest %s: %w", s.Symbol, err)
	}
	if s.Len() < r.MinBars() {
		return r.empty(s, fmt.Errorf("%s: %d bars, need %d: %w",
			s.Symbol, s.Len(), r.MinBars(), ErrInsufficientData)), nil
	}

	fuser, err := signal.NewFuser(r.Config.Signal, r.Predictor)
	if err != nil {
		return nil, err
	}
	frame := indicators.Features(s)
	sigs, err := fuser.EvaluateSeries(frame)
	if err != nil {
		return nil, fmt.Errorf("backtest %s: %w", s.Symbol, err)
	}

	start := -1
	for i := 1; i < len(sigs); i++ {
		if sigs[i].Trend != signal.NoSignal && (r.Predictor == nil || sigs[i].HasProb) {
			start = i
			break
		}
	}
	if start < 0 {
		return r.empty(s, fmt.Errorf("%s: no bar with a defined signal: %w", s.Symbol, ErrInsufficientData)), nil
	}

	n := len(sigs) - start
	res := &Result{
		Symbol:        s.Symbol,
		Start:         s.Bars[start].Time,
		End:           s.Bars[len(s.Bars)-1].Time,
		Signals:       sigs[start:],
		Positions:     make([]float64, n),
		MarketReturns: make([]float64, n),
		Returns:       make([]float64, n),
	}

	closes := s.Closes()
	target := 0.0
	for k := 0; k < n; k++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		i := start + k

		mr := 0.0
		if prev := closes[i-1]; prev > 0 {
			mr = closes[i]/prev - 1
		}
		res.MarketReturns[k] = mr
		res.Positions[k] = target
		res.Returns[k] = mr * target

		switch sigs[i].Action {
		case signal.Buy:
			target = 1
		case signal.Sell:
			target = 0
		}
	}

	res.Equity = Compound(r.Config.InitialCapital, res.Returns)
	res.BuyHold = Compound(r.Config.InitialCapital, res.MarketReturns)
	res.Report = r.report(res)

	r.log().Debug("backtest done",
		zap.String("symbol", s.Symbol),
		zap.Int("bars", n),
		zap.Float64("final_equity", res.Report.FinalEquity),
		zap.Int("trades", res.Report.TradeCount))
	return res, nil
}

func (r *Runner) report(res *Result) Report {
	c := r.Config
	return Report{
		Symbol:           res.Symbol,
		Period:           c.Period,
		Interval:         c.Interval,
		Start:            res.Start,
		End:              res.End,
		InitialCapital:   c.InitialCapital,
		FinalEquity:      res.Equity[len(res.Equity)-1],
		TotalReturnPct:   100 * TotalReturn(c.InitialCapital, res.Equity),
		BuyHoldReturnPct: 100 * TotalReturn(c.InitialCapital, res.BuyHold),
		WinRatePct:       100 * WinRate(res.Returns),
		SharpeRatio:      SharpeRatio(res.Returns, c.RiskFreeAnnual),
		MaxDrawdownPct:   100 * MaxDrawdown(res.Equity),
		TradeCount:       TradeCount(res.Positions),
	}
}
