package sim

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"
)

// PositionValue is one marked holding.
type PositionValue struct {
	Symbol       string  `json:"symbol"`
	Quantity     int64   `json:"quantity"`
	AveragePrice float64 `json:"average_price"`
	MarkPrice    float64 `json:"mark_price"`
	Value        float64 `json:"value"`
}

// Snapshot is the portfolio status at a set of prices.
type Snapshot struct {
	Cash       float64         `json:"cash"`
	Positions  []PositionValue `json:"positions"`
	TotalValue float64         `json:"total_value"`
}

// Snapshot marks every position at prices, falling back to average cost
// when a price is missing or not a positive finite number.
func (l *Ledger) Snapshot(prices map[string]float64) Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	total := l.cash
	s := Snapshot{Positions: make([]PositionValue, 0, len(l.positions))}
	for _, p := range l.positionsLocked() {
		lt := l.positions[p.Symbol]
		mark := lt.avg
		if px, ok := prices[p.Symbol]; ok && validPrice(px) {
			mark = decimal.NewFromFloat(px)
		}
		value := mark.Mul(decimal.NewFromInt(lt.qty))
		total = total.Add(value)
		s.Positions = append(s.Positions, PositionValue{
			Symbol:       p.Symbol,
			Quantity:     p.Quantity,
			AveragePrice: p.AveragePrice,
			MarkPrice:    mark.InexactFloat64(),
			Value:        value.InexactFloat64(),
		})
	}
	s.Cash = l.cash.InexactFloat64()
	s.TotalValue = total.InexactFloat64()
	return s
}

// Print writes a short status table.
func (s Snapshot) Print(w io.Writer) {
	fmt.Fprintf(w, "Cash:        %12.2f\n", s.Cash)
	for _, p := range s.Positions {
		fmt.Fprintf(w, "%-8s %8d @ %10.4f  mark %10.4f  value %12.2f\n",
			p.Symbol, p.Quantity, p.AveragePrice, p.MarkPrice, p.Value)
	}
	fmt.Fprintf(w, "Total value: %12.2f\n", s.TotalValue)
}
