package indicators

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rustyeddy/quant/market"
)

// ErrInsufficientData means the bar series is too short for the requested
// indicators, or every row was dropped for missing values.
var ErrInsufficientData = errors.New("insufficient data")

// Column names produced by the Add* builders.
const (
	ColClose      = "close"
	ColReturn1d   = "return_1d"
	ColVol5       = "volatility_5"
	ColLagReturn1 = "lag_return_1"
	ColRSI        = "rsi"
	ColEMA12      = "ema12"
	ColEMA26      = "ema26"
	ColMACD       = "macd"
	ColMACDSignal = "macd_signal"
	ColMACDHist   = "macd_hist"
	ColEMA20      = "ema20"
	ColEMA50      = "ema50"
	ColBBMiddle   = "bb_middle"
	ColBBStd      = "bb_std"
	ColBBUpper    = "bb_upper"
	ColBBLower    = "bb_lower"
	ColTR         = "tr"
	ColATR        = "atr"
	ColMomentum   = "momentum"
	ColROC        = "roc"
	ColOBV        = "obv"
)

// Default windows used by BasicFeatures.
const (
	RSIPeriod       = 14
	MACDFast        = 12
	MACDSlow        = 26
	MACDSignal      = 9
	BollingerWindow = 20
	BollingerK      = 2.0
	ATRPeriod       = 14
	MomentumPeriod  = 10
	ROCPeriod       = 10
	VolatilityWin   = 5
)

// FeatureVector is one frame row keyed by column name.
type FeatureVector map[string]float64

// Frame is a fixed-schema table of feature columns aligned with a bar
// series. Undefined cells hold NaN and are never read as zero.
type Frame struct {
	Symbol string

	bars    []market.Bar
	index   []int // original bar index of each row
	order   []string
	columns map[string][]float64
}

// NewFrame starts a frame over s with a close column. The bars are copied.
func NewFrame(s market.Series) *Frame {
	bars := make([]market.Bar, len(s.Bars))
	copy(bars, s.Bars)

	index := make([]int, len(bars))
	for i := range index {
		index[i] = i
	}

	f := &Frame{
		Symbol:  s.Symbol,
		bars:    bars,
		index:   index,
		columns: make(map[string][]float64),
	}
	f.set(ColClose, s.Closes())
	return f
}

func (f *Frame) Len() int { return len(f.bars) }

// Names returns the column names in insertion order.
func (f *Frame) Names() []string {
	out := make([]string, len(f.order))
	copy(out, f.order)
	return out
}

// Has reports whether every name is a column of f.
func (f *Frame) Has(names ...string) bool {
	for _, n := range names {
		if _, ok := f.columns[n]; !ok {
			return false
		}
	}
	return true
}

// Column returns a copy of the named column.
func (f *Frame) Column(name string) ([]float64, bool) {
	c, ok := f.columns[name]
	if !ok {
		return nil, false
	}
	out := make([]float64, len(c))
	copy(out, c)
	return out, true
}

// Window returns a copy of column name over rows [i-n+1, i], clipped at
// row 0. It is nil when the column is absent or i is out of range.
func (f *Frame) Window(name string, i, n int) []float64 {
	c, ok := f.columns[name]
	if !ok || i < 0 || i >= len(c) || n <= 0 {
		return nil
	}
	from := max(i-n+1, 0)
	out := make([]float64, i+1-from)
	copy(out, c[from:i+1])
	return out
}

// Value returns column name at row i, NaN when absent or out of range.
func (f *Frame) Value(name string, i int) float64 {
	c, ok := f.columns[name]
	if !ok || i < 0 || i >= len(c) {
		return math.NaN()
	}
	return c[i]
}

// Time returns the bar time of row i.
func (f *Frame) Time(i int) time.Time { return f.bars[i].Time }

// Bar returns the bar behind row i.
func (f *Frame) Bar(i int) market.Bar { return f.bars[i] }

// BarIndex maps row i back to its position in the source series.
func (f *Frame) BarIndex(i int) int { return f.index[i] }

// Row returns row i as a FeatureVector. ok is false when any cell is undefined.
func (f *Frame) Row(i int) (FeatureVector, bool) {
	if i < 0 || i >= f.Len() {
		return nil, false
	}
	fv := make(FeatureVector, len(f.order))
	for _, name := range f.order {
		v := f.columns[name][i]
		if Undefined(v) {
			return nil, false
		}
		fv[name] = v
	}
	return fv, true
}

// Set adds or replaces a column. Its length must match the frame.
func (f *Frame) Set(name string, values []float64) error {
	if len(values) != f.Len() {
		return fmt.Errorf("column %q has %d values, frame has %d rows", name, len(values), f.Len())
	}
	cp := make([]float64, len(values))
	copy(cp, values)
	f.set(name, cp)
	return nil
}

func (f *Frame) set(name string, values []float64) {
	if _, ok := f.columns[name]; !ok {
		f.order = append(f.order, name)
	}
	f.columns[name] = values
}

func (f *Frame) closes() []float64 { return f.columns[ColClose] }

// AddSMA adds a simple moving average of closes under name.
func (f *Frame) AddSMA(name string, window int) *Frame {
	f.set(name, SMA(f.closes(), window))
	return f
}

func (f *Frame) AddRSI(period int) *Frame {
	f.set(ColRSI, RSI(f.closes(), period))
	return f
}

func (f *Frame) AddMACD() *Frame {
	closes := f.closes()
	m := MACD(closes, MACDFast, MACDSlow, MACDSignal)
	f.set(ColEMA12, EMA(closes, MACDFast))
	f.set(ColEMA26, EMA(closes, MACDSlow))
	f.set(ColMACD, m.Line)
	f.set(ColMACDSignal, m.Signal)
	f.set(ColMACDHist, m.Hist)
	return f
}

func (f *Frame) AddEMA() *Frame {
	f.set(ColEMA20, EMA(f.closes(), 20))
	f.set(ColEMA50, EMA(f.closes(), 50))
	return f
}

func (f *Frame) AddBollinger(window int) *Frame {
	b := Bollinger(f.closes(), window, BollingerK)
	f.set(ColBBMiddle, b.Middle)
	f.set(ColBBStd, b.Std)
	f.set(ColBBUpper, b.Upper)
	f.set(ColBBLower, b.Lower)
	return f
}

func (f *Frame) AddATR(period int) *Frame {
	f.set(ColTR, TrueRange(f.bars))
	f.set(ColATR, ATR(f.bars, period))
	return f
}

func (f *Frame) AddMomentum(period int) *Frame {
	f.set(ColMomentum, Momentum(f.closes(), period))
	return f
}

func (f *Frame) AddROC(period int) *Frame {
	f.set(ColROC, ROC(f.closes(), period))
	return f
}

func (f *Frame) AddOBV() *Frame {
	f.set(ColOBV, OBV(f.bars))
	return f
}

// AddReturns adds return_1d, volatility_5 and lag_return_1.
func (f *Frame) AddReturns() *Frame {
	ret := PctChange(f.closes(), 1)
	f.set(ColReturn1d, ret)
	f.set(ColVol5, RollingStd(ret, VolatilityWin))
	f.set(ColLagReturn1, Shift(ret, 1))
	return f
}

// DropUndefined returns a new frame holding only rows where every column
// is defined. BarIndex keeps pointing at the source series.
func (f *Frame) DropUndefined() *Frame {
	out := &Frame{
		Symbol:  f.Symbol,
		columns: make(map[string][]float64, len(f.columns)),
		order:   f.Names(),
	}
	for _, name := range f.order {
		out.columns[name] = make([]float64, 0, f.Len())
	}

	for i := 0; i < f.Len(); i++ {
		if _, ok := f.Row(i); !ok {
			continue
		}
		out.bars = append(out.bars, f.bars[i])
		out.index = append(out.index, f.index[i])
		for _, name := range f.order {
			out.columns[name] = append(out.columns[name], f.columns[name][i])
		}
	}
	return out
}

// Features builds the full indicator frame aligned 1:1 with s.
// Warmup rows keep their NaN cells.
func Features(s market.Series) *Frame {
	return NewFrame(s).
		AddReturns().
		AddRSI(RSIPeriod).
		AddMACD().
		AddEMA().
		AddBollinger(BollingerWindow).
		AddATR(ATRPeriod).
		AddMomentum(MomentumPeriod).
		AddROC(ROCPeriod).
		AddOBV()
}

// FeatureNames lists the columns Features produces, in order.
func FeatureNames() []string {
	return []string{
		ColClose,
		ColReturn1d, ColVol5, ColLagReturn1,
		ColRSI,
		ColEMA12, ColEMA26, ColMACD, ColMACDSignal, ColMACDHist,
		ColEMA20, ColEMA50,
		ColBBMiddle, ColBBStd, ColBBUpper, ColBBLower,
		ColTR, ColATR,
		ColMomentum,
		ColROC,
		ColOBV,
	}
}

// WarmupBars is the number of leading bars Features leaves undefined.
func WarmupBars() int {
	return max(BollingerWindow, RSIPeriod, ATRPeriod, MomentumPeriod+1, ROCPeriod+1, VolatilityWin+1, 3) - 1
}

// BasicFeatures computes Features and drops rows with any undefined value.
func BasicFeatures(s market.Series) (*Frame, error) {
	if s.Len() <= WarmupBars() {
		return nil, fmt.Errorf("%s: %d bars, need more than %d: %w",
			s.Symbol, s.Len(), WarmupBars(), ErrInsufficientData)
	}
	f := Features(s).DropUndefined()
	if f.Len() == 0 {
		return nil, fmt.Errorf("%s: no complete feature rows: %w", s.Symbol, ErrInsufficientData)
	}
	return f, nil
}
