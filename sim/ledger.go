// Package sim is a simulated broker: a cash and position ledger that fills
// whole-share long orders at caller-supplied prices.
package sim

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rustyeddy/quant/internal/id"
	"github.com/rustyeddy/quant/journal"
	"github.com/rustyeddy/quant/risk"
)

var (
	ErrInvalidPrice      = risk.ErrInvalidPrice
	ErrInvalidQuantity   = errors.New("quantity must be positive")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNoPosition        = errors.New("no position")
)

const (
	SideBuy  = "BUY"
	SideSell = "SELL"
)

// Position is a long holding.
type Position struct {
	Symbol       string
	Quantity     int64
	AveragePrice float64
}

type lot struct {
	qty int64
	avg decimal.Decimal
}

// Ledger tracks cash and positions. Every method is safe for concurrent
// use; mutations are serialized.
type Ledger struct {
	mu        sync.Mutex
	cash      decimal.Decimal
	positions map[string]*lot

	journal journal.Journal
	runID   string
	log     *zap.Logger
	now     func() time.Time
}

type Option func(*Ledger)

// WithJournal records every fill to j.
func WithJournal(j journal.Journal) Option {
	return func(l *Ledger) { l.journal = j }
}

// WithRunID tags journal records.
func WithRunID(runID string) Option {
	return func(l *Ledger) { l.runID = runID }
}

func WithLogger(log *zap.Logger) Option {
	return func(l *Ledger) {
		if log != nil {
			l.log = log
		}
	}
}

// WithClock sets the time source for Buy and Sell.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

func NewLedger(cash float64, opts ...Option) *Ledger {
	l := &Ledger{
		cash:      decimal.NewFromFloat(cash),
		positions: make(map[string]*lot),
		log:       zap.NewNop(),
		now:       time.Now,
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

func (l *Ledger) RunID() string { return l.runID }

func (l *Ledger) Cash() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cash.InexactFloat64()
}

// Position returns the holding for symbol.
func (l *Ledger) Position(symbol string) (Position, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.positions[symbol]
	if !ok {
		return Position{}, false
	}
	return Position{Symbol: symbol, Quantity: p.qty, AveragePrice: p.avg.InexactFloat64()}, true
}

// Quantity is the number of shares held, 0 when flat.
func (l *Ledger) Quantity(symbol string) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	if p, ok := l.positions[symbol]; ok {
		return p.qty
	}
	return 0
}

// Positions returns all holdings sorted by symbol.
func (l *Ledger) Positions() []Position {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.positionsLocked()
}

func (l *Ledger) positionsLocked() []Position {
	out := make([]Position, 0, len(l.positions))
	for sym, p := range l.positions {
		out = append(out, Position{Symbol: sym, Quantity: p.qty, AveragePrice: p.avg.InexactFloat64()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// validPrice rejects zero, negative, NaN and infinite prices.
func validPrice(price float64) bool {
	return price > 0 && !math.IsInf(price, 1)
}

// Buy at the ledger clock's current time.
func (l *Ledger) Buy(symbol string, qty int64, price float64) error {
	return l.BuyAt(l.now(), symbol, qty, price)
}

// BuyAt debits qty × price and adds to the position, recomputing the
// cost-weighted average price. A refused buy changes nothing.
func (l *Ledger) BuyAt(at time.Time, symbol string, qty int64, price float64) error {
	if !validPrice(price) {
		return fmt.Errorf("buy %s: %w", symbol, ErrInvalidPrice)
	}
	if qty <= 0 {
		return fmt.Errorf("buy %s: %w", symbol, ErrInvalidQuantity)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	px := decimal.NewFromFloat(price)
	q := decimal.NewFromInt(qty)
	cost := px.Mul(q)
	if cost.GreaterThan(l.cash) {
		return fmt.Errorf("buy %d %s @ %.4f: cost %s exceeds cash %s: %w",
			qty, symbol, price, cost.StringFixed(2), l.cash.StringFixed(2), ErrInsufficientFunds)
	}

	l.cash = l.cash.Sub(cost)
	p, ok := l.positions[symbol]
	if !ok {
		p = &lot{avg: decimal.Zero}
		l.positions[symbol] = p
	}
	newQty := p.qty + qty
	p.avg = p.avg.Mul(decimal.NewFromInt(p.qty)).Add(cost).Div(decimal.NewFromInt(newQty))
	p.qty = newQty

	l.recordLocked(journal.TradeRecord{
		TradeID:  id.NewAt(at),
		Symbol:   symbol,
		Side:     SideBuy,
		Quantity: qty,
		Price:    price,
		AvgCost:  p.avg.InexactFloat64(),
		Time:     at,
		Reason:   "signal",
	})
	return nil
}

// Sell at the ledger clock's current time.
func (l *Ledger) Sell(symbol string, qty int64, price float64) (int64, error) {
	return l.SellAt(l.now(), symbol, qty, price)
}

// SellAt credits the proceeds of selling up to qty shares. The quantity is
// clamped to the holding; a position that reaches zero is removed. It
// returns the quantity actually sold.
func (l *Ledger) SellAt(at time.Time, symbol string, qty int64, price float64) (int64, error) {
	if !validPrice(price) {
		return 0, fmt.Errorf("sell %s: %w", symbol, ErrInvalidPrice)
	}
	if qty <= 0 {
		return 0, fmt.Errorf("sell %s: %w", symbol, ErrInvalidQuantity)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	p, ok := l.positions[symbol]
	if !ok {
		return 0, fmt.Errorf("sell %s: %w", symbol, ErrNoPosition)
	}

	filled := min(qty, p.qty)
	px := decimal.NewFromFloat(price)
	q := decimal.NewFromInt(filled)
	l.cash = l.cash.Add(px.Mul(q))

	avg := p.avg
	p.qty -= filled
	if p.qty == 0 {
		delete(l.positions, symbol)
	}

	l.recordLocked(journal.TradeRecord{
		TradeID:    id.NewAt(at),
		Symbol:     symbol,
		Side:       SideSell,
		Quantity:   filled,
		Price:      price,
		AvgCost:    avg.InexactFloat64(),
		Time:       at,
		RealizedPL: px.Sub(avg).Mul(q).InexactFloat64(),
		Reason:     "signal",
	})
	return filled, nil
}

// recordLocked writes to the journal. Journal failures are logged, never
// returned: the fill has already happened.
func (l *Ledger) recordLocked(rec journal.TradeRecord) {
	if l.journal == nil {
		return
	}
	rec.RunID = l.runID
	if err := l.journal.RecordTrade(rec); err != nil {
		l.log.Warn("journal trade",
			zap.String("trade_id", rec.TradeID),
			zap.String("symbol", rec.Symbol),
			zap.Error(err))
	}
}

// MarkToMarket values the ledger at prices. A symbol missing from prices,
// or priced at or below zero, is valued at its average cost.
func (l *Ledger) MarkToMarket(prices map[string]float64) float64 {
	return l.Snapshot(prices).TotalValue
}

// RecordEquity marks the ledger and writes an equity snapshot at t.
func (l *Ledger) RecordEquity(t time.Time, prices map[string]float64) Snapshot {
	s := l.Snapshot(prices)
	if l.journal == nil {
		return s
	}
	err := l.journal.RecordEquity(journal.EquitySnapshot{
		RunID:    l.runID,
		Time:     t,
		Cash:     s.Cash,
		Holdings: s.TotalValue - s.Cash,
		Equity:   s.TotalValue,
	})
	if err != nil {
		l.log.Warn("journal equity", zap.Time("time", t), zap.Error(err))
	}
	return s
}
