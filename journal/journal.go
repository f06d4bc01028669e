// Package journal records ledger fills, equity snapshots and backtest runs.
package journal

import (
	"sync"
	"time"
)

// TradeRecord is one ledger fill.
type TradeRecord struct {
	TradeID    string
	RunID      string
	Symbol     string
	Side       string // BUY or SELL
	Quantity   int64
	Price      float64
	AvgCost    float64 // position average cost after a buy, before a sell
	Time       time.Time
	RealizedPL float64 // sells only
	Reason     string
}

// EquitySnapshot is the marked value of a ledger at one point in time.
type EquitySnapshot struct {
	RunID    string
	Time     time.Time
	Cash     float64
	Holdings float64
	Equity   float64
}

type Journal interface {
	RecordTrade(TradeRecord) error
	RecordEquity(EquitySnapshot) error
	Close() error
}

// Memory keeps records in memory. Safe for concurrent use.
type Memory struct {
	mu     sync.Mutex
	trades []TradeRecord
	equity []EquitySnapshot
	closed bool
}

func NewMemory() *Memory { return &Memory{} }

func (m *Memory) RecordTrade(t TradeRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trades = append(m.trades, t)
	return nil
}

func (m *Memory) RecordEquity(e EquitySnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.equity = append(m.equity, e)
	return nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *Memory) Trades() []TradeRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]TradeRecord, len(m.trades))
	copy(out, m.trades)
	return out
}

func (m *Memory) Equity() []EquitySnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]EquitySnapshot, len(m.equity))
	copy(out, m.equity)
	return out
}

func (m *Memory) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Multi fans records out to several journals. The first error wins but
// every journal is still written.
type Multi []Journal

func (m Multi) RecordTrade(t TradeRecord) error {
	var first error
	for _, j := range m {
		if err := j.RecordTrade(t); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m Multi) RecordEquity(e EquitySnapshot) error {
	var first error
	for _, j := range m {
		if err := j.RecordEquity(e); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m Multi) Close() error {
	var first error
	for _, j := range m {
		if err := j.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
