package backtest

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rustyeddy/quant/market"
)

// DefaultWorkers bounds concurrent symbols in Batch.
const DefaultWorkers = 4

// BatchResult holds per-symbol outcomes. A symbol appears in exactly one
// of Results or Errors.
type BatchResult struct {
	Symbols []string
	Results map[string]*Result
	Errors  map[string]error
}

// Reports returns the non-empty reports in symbol order.
func (b *BatchResult) Reports() []Report {
	var out []Report
	for _, sym := range b.Symbols {
		if res, ok := b.Results[sym]; ok && !res.Empty {
			out = append(out, res.Report)
		}
	}
	return out
}

// Batch fetches and backtests each symbol. A failing symbol is recorded in
// Errors and does not stop the others; only cancellation is returned.
func (r *Runner) Batch(ctx context.Context, src market.Source, symbols []string) (*BatchResult, error) {
	out := &BatchResult{
		Symbols: append([]string(nil), symbols...),
		Results: make(map[string]*Result, len(symbols)),
		Errors:  make(map[string]error),
	}
	sort.Strings(out.Symbols)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(DefaultWorkers)

	for _, sym := range out.Symbols {
		sym := sym
		g.Go(func() error {
			res, err := r.runSymbol(gctx, src, sym)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				r.log().Warn("backtest failed", zap.String("symbol", sym), zap.Error(err))
				out.Errors[sym] = err
				return nil
			}
			if res.Empty {
				r.log().Info("backtest skipped", zap.String("symbol", sym), zap.Error(res.Reason))
			}
			out.Results[sym] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return out, err
	}
	return out, nil
}

func (r *Runner) runSymbol(ctx context.Context, src market.Source, sym string) (*Result, error) {
	s, err := src.FetchBars(ctx, sym, r.Config.Period, r.Config.Interval)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", sym, err)
	}
	if s.Symbol == "" {
		s.Symbol = sym
	}
	return r.Run(ctx, s)
}
