package indicators

import (
	"fmt"
	"math"

	"github.com/rustyeddy/quant/market"
)

// SimpleMA is a streaming simple moving average of closes.
type SimpleMA struct {
	period int
	closes []float64
}

// NewSMA creates a streaming simple moving average with the given period.
func NewSMA(period int) *SimpleMA {
	return &SimpleMA{
		period: period,
		closes: make([]float64, 0, period),
	}
}

func (m *SimpleMA) Name() string { return fmt.Sprintf("SMA(%d)", m.period) }

func (m *SimpleMA) Warmup() int { return m.period }

func (m *SimpleMA) Reset() { m.closes = m.closes[:0] }

func (m *SimpleMA) Update(b market.Bar) {
	m.closes = append(m.closes, b.Close)
	// Keep only the last 'period' closes
	if len(m.closes) > m.period {
		m.closes = m.closes[1:]
	}
}

func (m *SimpleMA) Ready() bool { return m.period > 0 && len(m.closes) >= m.period }

// Value sums the window in order, matching SMA bit for bit.
func (m *SimpleMA) Value() float64 {
	if !m.Ready() {
		return math.NaN()
	}
	sum := 0.0
	for _, c := range m.closes {
		sum += c
	}
	return sum / float64(m.period)
}
