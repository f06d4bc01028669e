package signal

import (
	"fmt"
	"math"
	"time"

	"github.com/rustyeddy/quant/indicators"
	"github.com/rustyeddy/quant/predictor"
)

var nan = math.NaN()

func undefined(v float64) bool { return indicators.Undefined(v) }

// Signal is the evaluation of one bar.
type Signal struct {
	Index    int
	Time     time.Time
	Close    float64
	ShortSMA float64
	LongSMA  float64
	Trend    Action
	ProbUp   float64
	HasProb  bool
	Action   Action
}

// Fuser combines the crossover trend with a predictor. With a nil
// Predictor it runs trend-only: the trend itself is the action and
// NoSignal becomes Hold.
type Fuser struct {
	Config    Config
	Predictor predictor.Predictor
}

func NewFuser(cfg Config, p predictor.Predictor) (*Fuser, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Fuser{Config: cfg, Predictor: p}, nil
}

// Check verifies that frame carries every feature the predictor expects.
func (f *Fuser) Check(frame *indicators.Frame) error {
	if f.Predictor == nil {
		return nil
	}
	return f.CheckColumns(frame.Names())
}

// CheckColumns verifies that names cover every feature the predictor expects.
func (f *Fuser) CheckColumns(names []string) error {
	if f.Predictor == nil {
		return nil
	}
	return predictor.Validate(f.Predictor, names)
}

// Evaluate computes the signal for row i of a frame aligned with its bars.
func (f *Fuser) Evaluate(frame *indicators.Frame, i int) (Signal, error) {
	if i < 0 || i >= frame.Len() {
		return Signal{}, fmt.Errorf("signal: row %d out of range [0,%d)", i, frame.Len())
	}

	n := max(f.Config.ShortWindow, f.Config.LongWindow)
	closes := frame.Window(indicators.ColClose, i, n)
	return f.evaluate(frame, i, closes, len(closes)-1)
}

// EvaluateSeries evaluates every row in order.
func (f *Fuser) EvaluateSeries(frame *indicators.Frame) ([]Signal, error) {
	if err := f.Check(frame); err != nil {
		return nil, err
	}
	closes, _ := frame.Column(indicators.ColClose)
	out := make([]Signal, frame.Len())
	for i := range out {
		s, err := f.evaluate(frame, i, closes, i)
		if err != nil {
			return nil, fmt.Errorf("bar %d: %w", i, err)
		}
		out[i] = s
	}
	return out, nil
}

// evaluate computes row i; closes[j] is the close of that row.
func (f *Fuser) evaluate(frame *indicators.Frame, i int, closes []float64, j int) (Signal, error) {
	short, long := averagesAt(closes, j, f.Config)
	s := Signal{
		Index:    frame.BarIndex(i),
		Time:     frame.Time(i),
		Close:    closes[j],
		ShortSMA: short,
		LongSMA:  long,
		Trend:    Compare(short, long),
		ProbUp:   nan,
	}

	if f.Predictor == nil {
		s.Action = s.Trend
		if s.Action == NoSignal {
			s.Action = Hold
		}
		return s, nil
	}

	prob, ok, err := f.probability(frame, i)
	if err != nil {
		return Signal{}, err
	}
	if ok {
		s.ProbUp = prob
		s.HasProb = true
	}
	s.Action = Fuse(s.Trend, s.ProbUp, s.HasProb, f.Config)
	return s, nil
}

// probability returns ok=false when any input feature is undefined at i.
func (f *Fuser) probability(frame *indicators.Frame, i int) (float64, bool, error) {
	names := f.Predictor.FeatureNames()
	row := make(map[string]float64, len(names))
	var missing []string
	for _, n := range names {
		if !frame.Has(n) {
			missing = append(missing, n)
			continue
		}
		v := frame.Value(n, i)
		if undefined(v) {
			return 0, false, nil
		}
		row[n] = v
	}
	if len(missing) > 0 {
		return 0, false, &predictor.FeatureMismatchError{Missing: missing, Expected: len(names), Got: len(frame.Names())}
	}

	p, err := predictor.ProbabilityUp(f.Predictor, row)
	if err != nil {
		return 0, false, err
	}
	return p, true, nil
}
