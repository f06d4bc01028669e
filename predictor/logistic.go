package predictor

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Artifact is the serialized form of a logistic model: standardized inputs,
// one weight per feature and a bias.
type Artifact struct {
	FeatureNames []string  `json:"feature_names" yaml:"feature_names"`
	Weights      []float64 `json:"weights" yaml:"weights"`
	Bias         float64   `json:"bias" yaml:"bias"`
	Means        []float64 `json:"means,omitempty" yaml:"means,omitempty"`
	Stds         []float64 `json:"stds,omitempty" yaml:"stds,omitempty"`
}

// Logistic is a standardized logistic regression predictor.
type Logistic struct {
	artifact Artifact
}

// NewLogistic validates a and returns a predictor. Missing means/stds
// default to 0/1 (no standardization).
func NewLogistic(a Artifact) (*Logistic, error) {
	n := len(a.Weights)
	if n == 0 {
		return nil, errors.New("logistic: no weights")
	}
	if len(a.FeatureNames) != n {
		return nil, fmt.Errorf("logistic: %d feature names for %d weights", len(a.FeatureNames), n)
	}
	if a.Means == nil {
		a.Means = make([]float64, n)
	}
	if a.Stds == nil {
		a.Stds = make([]float64, n)
		for i := range a.Stds {
			a.Stds[i] = 1
		}
	}
	if len(a.Means) != n || len(a.Stds) != n {
		return nil, errors.New("logistic: means/stds length must match weights")
	}
	for i, s := range a.Stds {
		if s == 0 {
			a.Stds[i] = 1
		}
	}
	return &Logistic{artifact: a}, nil
}

// Load decodes a JSON artifact.
func Load(data []byte) (*Logistic, error) {
	if len(data) == 0 {
		return nil, errors.New("logistic: empty artifact")
	}
	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("logistic: decode artifact: %w", err)
	}
	return NewLogistic(a)
}

// LoadFile reads a JSON or YAML artifact, chosen by extension.
func LoadFile(path string) (*Logistic, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model artifact: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var a Artifact
		if err := yaml.Unmarshal(data, &a); err != nil {
			return nil, fmt.Errorf("logistic: decode artifact: %w", err)
		}
		return NewLogistic(a)
	default:
		return Load(data)
	}
}

// MarshalJSON writes the artifact form.
func (m *Logistic) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.artifact)
}

func (m *Logistic) FeatureNames() []string {
	out := make([]string, len(m.artifact.FeatureNames))
	copy(out, m.artifact.FeatureNames)
	return out
}

func (m *Logistic) PredictProbabilityUp(features []float64) (float64, error) {
	if len(features) != len(m.artifact.Weights) {
		return 0, &FeatureMismatchError{Expected: len(m.artifact.Weights), Got: len(features)}
	}
	z := m.artifact.Bias
	for i, x := range features {
		z += m.artifact.Weights[i] * (x - m.artifact.Means[i]) / m.artifact.Stds[i]
	}
	return sigmoid(z), nil
}

func sigmoid(x float64) float64 {
	if x > 35 {
		return 1
	}
	if x < -35 {
		return 0
	}
	return 1 / (1 + math.Exp(-x))
}
