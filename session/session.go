// Package session runs the hybrid strategy live against a simulated ledger:
// one polling cycle at a time, with the caller owning the clock.
package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rustyeddy/quant/indicators"
	"github.com/rustyeddy/quant/internal/logging"
	"github.com/rustyeddy/quant/market"
	"github.com/rustyeddy/quant/predictor"
	"github.com/rustyeddy/quant/risk"
	"github.com/rustyeddy/quant/signal"
	"github.com/rustyeddy/quant/sim"
)

var ErrNoSymbols = errors.New("session: no symbols configured")

type Config struct {
	Symbols  []string      `json:"symbols" yaml:"symbols"`
	Period   string        `json:"period" yaml:"period"`
	Interval string        `json:"interval" yaml:"interval"`
	Signal   signal.Config `json:"signal" yaml:"signal"`
	Policy   risk.Policy   `json:"policy" yaml:"policy"`

	// Fraction of capital Recommend sizes against.
	RecommendRisk float64 `json:"recommend_risk" yaml:"recommend_risk"`
}

// DefaultConfig spends the whole per-symbol budget on an entry.
func DefaultConfig() Config {
	return Config{
		Symbols:       []string{"AAPL", "MSFT", "AMZN"},
		Period:        "6mo",
		Interval:      "1d",
		Signal:        signal.DefaultConfig(),
		Policy:        risk.Policy{RiskFraction: 1, AllocationFraction: 0.2},
		RecommendRisk: 0.02,
	}
}

func (c Config) Validate() error {
	if len(c.Symbols) == 0 {
		return ErrNoSymbols
	}
	if c.RecommendRisk < 0 || c.RecommendRisk > 1 {
		return errors.New("recommend_risk must be in [0,1]")
	}
	if err := c.Policy.Validate(); err != nil {
		return err
	}
	return c.Signal.Validate()
}

// Session holds no timers; call Tick from a loop.
type Session struct {
	Source    market.Source
	Predictor predictor.Predictor // nil runs trend-only
	Ledger    *sim.Ledger
	Config    Config
	Log       *zap.Logger
	Now       func() time.Time

	fuser   *signal.Fuser
	symbols []string
	mu      sync.Mutex // one Tick at a time
}

func New(src market.Source, p predictor.Predictor, l *sim.Ledger, cfg Config, log *zap.Logger) (*Session, error) {
	if src == nil {
		return nil, errors.New("session: nil source")
	}
	if l == nil {
		return nil, errors.New("session: nil ledger")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("session config: %w", err)
	}
	fuser, err := signal.NewFuser(cfg.Signal, p)
	if err != nil {
		return nil, err
	}
	if err := fuser.CheckColumns(indicators.FeatureNames()); err != nil {
		return nil, fmt.Errorf("session model: %w", err)
	}

	symbols := append([]string(nil), cfg.Symbols...)
	sort.Strings(symbols)

	return &Session{
		Source:    src,
		Predictor: p,
		Ledger:    l,
		Config:    cfg,
		Log:       logging.OrNop(log),
		Now:       time.Now,
		fuser:     fuser,
		symbols:   symbols,
	}, nil
}

// Symbols returns the configured symbols in processing order.
func (s *Session) Symbols() []string { return append([]string(nil), s.symbols...) }

// evaluation is the pure per-symbol half of a cycle.
type evaluation struct {
	symbol string
	signal signal.Signal
}

// evaluate fetches the latest bars and fuses the signal on the last one.
func (s *Session) evaluate(ctx context.Context, sym string) (evaluation, error) {
	series, err := s.Source.FetchBars(ctx, sym, s.Config.Period, s.Config.Interval)
	if err != nil {
		return evaluation{}, fmt.Errorf("fetch %s: %w", sym, err)
	}
	if series.Empty() {
		return evaluation{}, fmt.Errorf("%s: no bars: %w", sym, indicators.ErrInsufficientData)
	}
	if series.Symbol == "" {
		series.Symbol = sym
	}
	if err := series.Validate(); err != nil {
		return evaluation{}, err
	}

	frame := indicators.Features(series)
	if err := s.fuser.Check(frame); err != nil {
		return evaluation{}, fmt.Errorf("%s: %w", sym, err)
	}
	sig, err := s.fuser.Evaluate(frame, frame.Len()-1)
	if err != nil {
		return evaluation{}, fmt.Errorf("%s: %w", sym, err)
	}
	return evaluation{symbol: sym, signal: sig}, nil
}

// evaluateAll runs evaluate for every symbol concurrently. Per-symbol
// failures land in errs; only cancellation is returned.
func (s *Session) evaluateAll(ctx context.Context) (map[string]evaluation, map[string]error, error) {
	evals := make(map[string]evaluation, len(s.symbols))
	errs := make(map[string]error)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, sym := range s.symbols {
		sym := sym
		g.Go(func() error {
			ev, err := s.evaluate(gctx, sym)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				s.Log.Warn("evaluate failed", zap.String("symbol", sym), zap.Error(err))
				errs[sym] = err
				return nil
			}
			evals[sym] = ev
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return evals, errs, nil
}

// confidence is the model probability, or full confidence when trend-only.
func (s *Session) confidence(sig signal.Signal) float64 {
	if s.Predictor == nil || !sig.HasProb {
		return 1
	}
	return sig.ProbUp
}
