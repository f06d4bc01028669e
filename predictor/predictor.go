// Package predictor defines the contract between the strategy engine and a
// trained directional model, plus two ready-made implementations.
package predictor

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrBadOutput is returned when a model produces NaN or infinite output.
var ErrBadOutput = errors.New("predictor returned a non-finite probability")

// Predictor estimates the probability that price rises over the next bar.
// FeatureNames declares the ordered inputs PredictProbabilityUp expects.
// Implementations must be safe for concurrent use.
type Predictor interface {
	FeatureNames() []string
	PredictProbabilityUp(features []float64) (float64, error)
}

// FeatureMismatchError reports a disagreement between the features a model
// expects and what the indicator engine produced. It is a configuration
// error; missing features are never zero-filled.
type FeatureMismatchError struct {
	Missing  []string
	Expected int
	Got      int
}

func (e *FeatureMismatchError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("feature mismatch: missing %s", strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("feature mismatch: expected %d features, got %d", e.Expected, e.Got)
}

// Validate checks that every feature p expects is in available.
func Validate(p Predictor, available []string) error {
	have := make(map[string]struct{}, len(available))
	for _, n := range available {
		have[n] = struct{}{}
	}

	names := p.FeatureNames()
	var missing []string
	for _, n := range names {
		if _, ok := have[n]; !ok {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return &FeatureMismatchError{Missing: missing, Expected: len(names), Got: len(available)}
	}
	return nil
}

// Vectorize orders row according to p.FeatureNames.
func Vectorize(p Predictor, row map[string]float64) ([]float64, error) {
	names := p.FeatureNames()
	out := make([]float64, len(names))
	var missing []string
	for i, n := range names {
		v, ok := row[n]
		if !ok {
			missing = append(missing, n)
			continue
		}
		out[i] = v
	}
	if len(missing) > 0 {
		return nil, &FeatureMismatchError{Missing: missing, Expected: len(names), Got: len(row)}
	}
	return out, nil
}

// ProbabilityUp vectorizes row, calls p, and clamps the result to [0,1].
func ProbabilityUp(p Predictor, row map[string]float64) (float64, error) {
	x, err := Vectorize(p, row)
	if err != nil {
		return 0, err
	}
	prob, err := p.PredictProbabilityUp(x)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(prob) || math.IsInf(prob, 0) {
		return 0, ErrBadOutput
	}
	return clamp01(prob), nil
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// Constant always answers P. Useful for trend-only runs and tests.
type Constant struct {
	P     float64
	Names []string
}

func (c Constant) FeatureNames() []string {
	out := make([]string, len(c.Names))
	copy(out, c.Names)
	return out
}

func (c Constant) PredictProbabilityUp(features []float64) (float64, error) {
	if len(features) != len(c.Names) {
		return 0, &FeatureMismatchError{Expected: len(c.Names), Got: len(features)}
	}
	return c.P, nil
}

// Func adapts a plain function to Predictor.
type Func struct {
	Names []string
	Fn    func(features []float64) float64
}

func (f Func) FeatureNames() []string {
	out := make([]string, len(f.Names))
	copy(out, f.Names)
	return out
}

func (f Func) PredictProbabilityUp(features []float64) (float64, error) {
	if len(features) != len(f.Names) {
		return 0, &FeatureMismatchError{Expected: len(f.Names), Got: len(features)}
	}
	return f.Fn(features), nil
}
