package market

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Source is the market data collaborator. Implementations return bars in
// ascending time order; an empty series is a valid answer.
type Source interface {
	FetchBars(ctx context.Context, symbol, period, interval string) (Series, error)
}

// ParsePeriod converts a lookback such as "5d", "6mo", "1y" or "max" into a
// duration. "max" and "" return 0, meaning no lookback limit.
func ParsePeriod(period string) (time.Duration, error) {
	p := strings.ToLower(strings.TrimSpace(period))
	if p == "" || p == "max" {
		return 0, nil
	}

	unit := ""
	for _, suffix := range []string{"mo", "wk", "d", "y"} {
		if strings.HasSuffix(p, suffix) {
			unit = suffix
			p = strings.TrimSuffix(p, suffix)
			break
		}
	}
	if unit == "" {
		return 0, fmt.Errorf("bad period %q: missing unit (d, wk, mo, y)", period)
	}

	n, err := strconv.Atoi(p)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("bad period %q", period)
	}

	day := 24 * time.Hour
	switch unit {
	case "d":
		return time.Duration(n) * day, nil
	case "wk":
		return time.Duration(n) * 7 * day, nil
	case "mo":
		return time.Duration(n) * 30 * day, nil
	default:
		return time.Duration(n) * 365 * day, nil
	}
}

// ApplyPeriod trims s to the lookback window ending at its last bar.
func ApplyPeriod(s Series, period string) (Series, error) {
	d, err := ParsePeriod(period)
	if err != nil {
		return Series{}, err
	}
	last, ok := s.Last()
	if d == 0 || !ok {
		return s, nil
	}
	return s.Since(last.Time.Add(-d)), nil
}

// MemorySource serves pre-loaded series. It is safe for concurrent use.
type MemorySource struct {
	mu     sync.RWMutex
	series map[string]Series
}

func NewMemorySource() *MemorySource {
	return &MemorySource{series: make(map[string]Series)}
}

func (m *MemorySource) Put(s Series) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.series[s.Symbol] = s
}

func (m *MemorySource) FetchBars(ctx context.Context, symbol, period, interval string) (Series, error) {
	if err := ctx.Err(); err != nil {
		return Series{}, err
	}

	m.mu.RLock()
	s, ok := m.series[symbol]
	m.mu.RUnlock()
	if !ok {
		return Series{Symbol: symbol, Interval: interval}, nil
	}

	out, err := ApplyPeriod(s.Truncate(s.Len()), period)
	if err != nil {
		return Series{}, err
	}
	out.Interval = interval
	return out, nil
}
