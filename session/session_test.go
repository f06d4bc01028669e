package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/quant/indicators"
	"github.com/rustyeddy/quant/journal"
	"github.com/rustyeddy/quant/market"
	"github.com/rustyeddy/quant/predictor"
	"github.com/rustyeddy/quant/signal"
	"github.com/rustyeddy/quant/sim"
)

var (
	baseTime = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	tickTime = time.Date(2024, 2, 1, 21, 0, 0, 0, time.UTC)
)

func series(symbol string, closes ...float64) market.Series {
	bars := make([]market.Bar, len(closes))
	for i, c := range closes {
		bars[i] = market.Bar{
			Time:   baseTime.AddDate(0, 0, i),
			Open:   c,
			High:   c + 1,
			Low:    math.Max(c-1, 0.01),
			Close:  c,
			Volume: 1000,
		}
	}
	return market.NewSeries(symbol, bars)
}

// flat returns eleven bars at 10 followed by last.
func flat(last float64) []float64 {
	out := make([]float64, 12)
	for i := range out {
		out[i] = 10
	}
	out[11] = last
	return out
}

type failingSource struct {
	*market.MemorySource
	bad map[string]bool
}

func (f failingSource) FetchBars(ctx context.Context, symbol, period, interval string) (market.Series, error) {
	if f.bad[symbol] {
		return market.Series{}, errors.New("feed down")
	}
	return f.MemorySource.FetchBars(ctx, symbol, period, interval)
}

func newSource() failingSource {
	m := market.NewMemorySource()
	m.Put(series("AAA", flat(12)...)) // trend BUY
	m.Put(series("BBB", flat(8)...))  // trend SELL
	m.Put(series("SHORT", 10, 11, 12))
	return failingSource{MemorySource: m, bad: map[string]bool{"BAD": true}}
}

// closeModel is bullish above 11.
var closeModel = predictor.Func{
	Names: []string{indicators.ColClose},
	Fn: func(f []float64) float64 {
		if f[0] >= 11 {
			return 0.9
		}
		return 0.1
	},
}

func testConfig(symbols ...string) Config {
	cfg := DefaultConfig()
	cfg.Symbols = symbols
	cfg.Period = "max"
	cfg.Signal = signal.Config{ShortWindow: 3, LongWindow: 5, BuyThreshold: 0.55, SellThreshold: 0.45}
	return cfg
}

func newSession(t *testing.T, cfg Config, p predictor.Predictor, l *sim.Ledger) *Session {
	t.Helper()
	s, err := New(newSource(), p, l, cfg, nil)
	require.NoError(t, err)
	s.Now = func() time.Time { return tickTime }
	return s
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		mod  func(*Config)
		ok   bool
	}{
		{"default", func(*Config) {}, true},
		{"no symbols", func(c *Config) { c.Symbols = nil }, false},
		{"recommend risk", func(c *Config) { c.RecommendRisk = 1.5 }, false},
		{"policy", func(c *Config) { c.Policy.AllocationFraction = 0 }, false},
		{"signal", func(c *Config) { c.Signal.LongWindow = 1 }, false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := DefaultConfig()
			tt.mod(&cfg)
			if tt.ok {
				assert.NoError(t, cfg.Validate())
			} else {
				assert.Error(t, cfg.Validate())
			}
		})
	}
}

func TestNewRejectsMissingCollaborators(t *testing.T) {
	t.Parallel()

	_, err := New(nil, nil, sim.NewLedger(100), DefaultConfig(), nil)
	assert.Error(t, err)
	_, err = New(newSource(), nil, nil, DefaultConfig(), nil)
	assert.Error(t, err)
	_, err = New(newSource(), nil, sim.NewLedger(100), Config{}, nil)
	assert.ErrorIs(t, err, ErrNoSymbols)
}

func TestNewRejectsModelWithUnknownFeatures(t *testing.T) {
	t.Parallel()

	p := predictor.Constant{P: 0.9, Names: []string{indicators.ColClose, "sentiment"}}
	s, err := New(newSource(), p, sim.NewLedger(100), testConfig("AAA"), nil)
	assert.Nil(t, s)
	var fm *predictor.FeatureMismatchError
	require.ErrorAs(t, err, &fm)
	assert.Equal(t, []string{"sentiment"}, fm.Missing)
}

func TestTickBuysAndSells(t *testing.T) {
	t.Parallel()

	j := journal.NewMemory()
	l := sim.NewLedger(1000, sim.WithJournal(j))
	require.NoError(t, l.Buy("BBB", 5, 10))

	s := newSession(t, testConfig("BBB", "AAA", "CCC", "BAD"), closeModel, l)
	cyc, err := s.Tick(context.Background())
	require.NoError(t, err)

	assert.Equal(t, tickTime, cyc.Time)
	require.Len(t, cyc.Decisions, 2)

	buy := cyc.Decisions[0]
	assert.Equal(t, "AAA", buy.Symbol)
	assert.Equal(t, signal.Buy, buy.Action)
	assert.InDelta(t, 950*0.2/4, buy.Budget, 1e-9)
	// floor(47.5 × 0.9 / 12) = 3
	assert.Equal(t, int64(3), buy.Quantity)
	require.NotNil(t, buy.Check)
	assert.True(t, buy.Check.Allowed)

	sell := cyc.Decisions[1]
	assert.Equal(t, "BBB", sell.Symbol)
	assert.Equal(t, signal.Sell, sell.Action)
	assert.Equal(t, int64(5), sell.Quantity)

	assert.Equal(t, int64(3), l.Quantity("AAA"))
	assert.Equal(t, int64(0), l.Quantity("BBB"))
	assert.InDelta(t, 1000-50-36+40, l.Cash(), 1e-9)

	require.Contains(t, cyc.Errors, "CCC")
	assert.ErrorIs(t, cyc.Errors["CCC"], indicators.ErrInsufficientData)
	require.Contains(t, cyc.Errors, "BAD")

	assert.InDelta(t, l.Cash()+3*12, cyc.Snapshot.TotalValue, 1e-9)
	require.Len(t, j.Equity(), 1)
	assert.Len(t, j.Trades(), 3)
}

func TestTickSellWithoutPositionHolds(t *testing.T) {
	t.Parallel()

	l := sim.NewLedger(1000)
	s := newSession(t, testConfig("BBB"), closeModel, l)
	cyc, err := s.Tick(context.Background())
	require.NoError(t, err)

	require.Len(t, cyc.Decisions, 1)
	assert.Equal(t, signal.Sell, cyc.Decisions[0].Signal.Action)
	assert.Equal(t, signal.Hold, cyc.Decisions[0].Action)
	assert.False(t, cyc.Decisions[0].Traded())
	assert.Empty(t, cyc.Errors)
	assert.Equal(t, 1000.0, l.Cash())
}

func TestTickTrendOnly(t *testing.T) {
	t.Parallel()

	l := sim.NewLedger(1000)
	s := newSession(t, testConfig("AAA"), nil, l)
	cyc, err := s.Tick(context.Background())
	require.NoError(t, err)

	require.Len(t, cyc.Decisions, 1)
	// Full confidence: floor(1000 × 0.2 / 12) = 16
	assert.Equal(t, int64(16), cyc.Decisions[0].Quantity)
	assert.Equal(t, int64(16), l.Quantity("AAA"))
}

func TestTickShortHistoryHolds(t *testing.T) {
	t.Parallel()

	l := sim.NewLedger(1000)
	s := newSession(t, testConfig("SHORT"), closeModel, l)
	cyc, err := s.Tick(context.Background())
	require.NoError(t, err)

	require.Len(t, cyc.Decisions, 1)
	assert.Equal(t, signal.NoSignal, cyc.Decisions[0].Signal.Trend)
	assert.Equal(t, signal.Hold, cyc.Decisions[0].Action)
	assert.Empty(t, l.Positions())
}

func TestTickPolicyRefusal(t *testing.T) {
	t.Parallel()

	l := sim.NewLedger(1000)
	require.NoError(t, l.Buy("ZZZ", 1, 10))

	cfg := testConfig("AAA")
	cfg.Policy.MaxPositions = 1
	s := newSession(t, cfg, closeModel, l)
	cyc, err := s.Tick(context.Background())
	require.NoError(t, err)

	require.Len(t, cyc.Decisions, 1)
	d := cyc.Decisions[0]
	require.NotNil(t, d.Check)
	assert.False(t, d.Check.Allowed)
	assert.Equal(t, []string{"TOO_MANY_POSITIONS"}, d.Check.Codes())
	assert.False(t, d.Traded())
	assert.Equal(t, int64(0), l.Quantity("AAA"))
}

func TestTickBudgetBelowOneShare(t *testing.T) {
	t.Parallel()

	l := sim.NewLedger(20)
	s := newSession(t, testConfig("AAA"), closeModel, l)
	cyc, err := s.Tick(context.Background())
	require.NoError(t, err)

	require.Len(t, cyc.Decisions, 1)
	assert.Nil(t, cyc.Decisions[0].Check)
	assert.Equal(t, int64(0), cyc.Decisions[0].Quantity)
	assert.Equal(t, 20.0, l.Cash())
}

func TestTickCanceled(t *testing.T) {
	t.Parallel()

	s := newSession(t, testConfig("AAA"), closeModel, sim.NewLedger(1000))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Tick(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCyclePrint(t *testing.T) {
	t.Parallel()

	l := sim.NewLedger(1000)
	s := newSession(t, testConfig("AAA", "BAD"), closeModel, l)
	cyc, err := s.Tick(context.Background())
	require.NoError(t, err)

	var buf bytes.Buffer
	cyc.Print(&buf)
	out := buf.String()
	assert.Contains(t, out, "AAA")
	assert.Contains(t, out, "BAD")
	assert.Contains(t, out, "feed down")
	assert.Contains(t, out, "Cash:")
}

func TestRecommend(t *testing.T) {
	t.Parallel()

	l := sim.NewLedger(1000)
	s := newSession(t, testConfig("BBB", "AAA", "SHORT"), closeModel, l)
	recs, err := s.Recommend(context.Background(), 10000)
	require.NoError(t, err)

	require.Len(t, recs.Signals, 3)
	assert.Empty(t, recs.Errors)

	aaa := recs.Signals[0]
	assert.Equal(t, "AAA", aaa.Symbol)
	assert.Equal(t, 12.0, aaa.Price)
	require.NotNil(t, aaa.ProbUp)
	assert.Equal(t, 0.9, *aaa.ProbUp)
	assert.Equal(t, ModelBuy, aaa.ModelSignal)
	assert.Equal(t, signal.Buy, aaa.Trend)
	assert.Equal(t, signal.Buy, aaa.Action)
	// floor(10000 × 0.02 × 0.9 / 12) = 15
	assert.Equal(t, int64(15), aaa.SuggestedQty)

	bbb := recs.Signals[1]
	assert.Equal(t, ModelFlat, bbb.ModelSignal)
	assert.Equal(t, signal.Sell, bbb.Action)
	assert.Zero(t, bbb.SuggestedQty)

	short := recs.Signals[2]
	assert.Equal(t, signal.NoSignal, short.Trend)
	assert.Equal(t, signal.Hold, short.Action)

	// The ledger is untouched.
	assert.Equal(t, 1000.0, l.Cash())
	assert.Empty(t, l.Positions())
}

func TestRecommendTrendOnly(t *testing.T) {
	t.Parallel()

	s := newSession(t, testConfig("AAA"), nil, sim.NewLedger(1000))
	recs, err := s.Recommend(context.Background(), 10000)
	require.NoError(t, err)

	require.Len(t, recs.Signals, 1)
	assert.Nil(t, recs.Signals[0].ProbUp)
	assert.Equal(t, ModelNone, recs.Signals[0].ModelSignal)
	// floor(10000 × 0.02 / 12) = 16
	assert.Equal(t, int64(16), recs.Signals[0].SuggestedQty)
}


func TestRecommendationsJSONIncludesErrors(t *testing.T) {
	t.Parallel()

	s := newSession(t, testConfig("AAA", "BAD"), closeModel, sim.NewLedger(1000))
	recs, err := s.Recommend(context.Background(), 10000)
	require.NoError(t, err)
	require.Contains(t, recs.Errors, "BAD")

	raw, err := json.Marshal(recs)
	require.NoError(t, err)

	var got struct {
		Capital float64           `json:"capital"`
		Signals []json.RawMessage `json:"signals"`
		Errors  map[string]string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, 10000.0, got.Capital)
	assert.Len(t, got.Signals, 1)
	assert.Contains(t, got.Errors["BAD"], "feed down")

	raw, err = json.Marshal(Recommendations{Capital: 1})
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "errors")
}
