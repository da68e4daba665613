// Package predictor wraps the trained pharmacokinetic model.
//
// The model itself is opaque behind Scorer. The Adapter scales a feature
// vector with the fitted standard scaler, scores it and decodes the raw
// outputs: four regression values in fixed order and a softmax over the
// formulation labels.
package predictor

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/absorpgen/absorpgen-api/catalogparser/entities"
	"github.com/absorpgen/absorpgen-api/features"
	"github.com/absorpgen/absorpgen-api/metrics"
)

// RegressionOutputs is the fixed order of the regression head
var RegressionOutputs = []string{"bioavailability", "tmax", "cmax", "dose"}

// ErrBadModelOutput is returned when the scorer's output has the wrong shape
var ErrBadModelOutput = errors.New("model output has unexpected shape")

// Scorer is the trained model: raw scaled features in, raw outputs out
type Scorer interface {
	Score(x []float64) (regression []float64, logits []float64, err error)
}

// Prediction is the decoded model output for one feature vector
type Prediction struct {
	Regression         entities.RegressionOutputs
	ClassProbabilities map[string]float64
	// PredictedClass is kept for observability; callers use the catalog formulation
	PredictedClass string
}

// Scaler is a fitted standard scaler: (x - mean) / scale per feature
type Scaler struct {
	FeatureNames []string  `yaml:"features"`
	Mean         []float64 `yaml:"mean"`
	Scale        []float64 `yaml:"scale"`
}

// Validate checks the scaler's dimensions
func (s *Scaler) Validate() error {
	n := len(s.FeatureNames)
	if n == 0 {
		return fmt.Errorf("scaler has no features")
	}
	if len(s.Mean) != n || len(s.Scale) != n {
		return fmt.Errorf("scaler dimensions differ: %d features, %d means, %d scales", n, len(s.Mean), len(s.Scale))
	}
	return nil
}

// Transform scales a vector whose names must match the scaler's schema exactly
func (s *Scaler) Transform(v entities.FeatureVector) ([]float64, error) {
	if len(v.Names) != len(s.FeatureNames) || len(v.Values) != len(v.Names) {
		return nil, fmt.Errorf("%w: got %d features, scaler expects %d", features.ErrSchemaMismatch, len(v.Names), len(s.FeatureNames))
	}

	out := make([]float64, len(v.Values))
	for i, name := range s.FeatureNames {
		if v.Names[i] != name {
			return nil, fmt.Errorf("%w: feature %d is %q, scaler expects %q", features.ErrSchemaMismatch, i, v.Names[i], name)
		}
		scale := s.Scale[i]
		// Constant features were fitted with zero variance
		if scale == 0 {
			scale = 1
		}
		out[i] = (v.Values[i] - s.Mean[i]) / scale
	}
	return out, nil
}

// Adapter runs scaling, scoring and decoding
type Adapter struct {
	scaler *Scaler
	scorer Scorer
	labels []string
}

// NewAdapter checks that the parts agree on dimensions
func NewAdapter(scaler *Scaler, scorer Scorer, labels []string) (*Adapter, error) {
	if scaler == nil || scorer == nil {
		return nil, fmt.Errorf("scaler and scorer are required")
	}
	if err := scaler.Validate(); err != nil {
		return nil, err
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("at least one class label is required")
	}
	return &Adapter{scaler: scaler, scorer: scorer, labels: labels}, nil
}

// Schema returns the ordered feature names the model expects
func (a *Adapter) Schema() []string {
	return append([]string(nil), a.scaler.FeatureNames...)
}

// Labels returns the formulation labels of the classification head
func (a *Adapter) Labels() []string {
	return append([]string(nil), a.labels...)
}

// Predict scales, scores and decodes one feature vector
func (a *Adapter) Predict(vector entities.FeatureVector) (Prediction, error) {
	start := time.Now()
	defer func() {
		metrics.PredictionDuration.Observe(time.Since(start).Seconds())
	}()

	scaled, err := a.scaler.Transform(vector)
	if err != nil {
		return Prediction{}, err
	}

	regression, logits, err := a.scorer.Score(scaled)
	if err != nil {
		return Prediction{}, fmt.Errorf("scoring failed: %w", err)
	}
	if len(regression) != len(RegressionOutputs) {
		return Prediction{}, fmt.Errorf("%w: %d regression outputs, expected %d", ErrBadModelOutput, len(regression), len(RegressionOutputs))
	}
	if len(logits) != len(a.labels) {
		return Prediction{}, fmt.Errorf("%w: %d logits for %d labels", ErrBadModelOutput, len(logits), len(a.labels))
	}

	probs := Softmax(logits)
	prediction := Prediction{
		Regression: entities.RegressionOutputs{
			Bioavailability: regression[0],
			TmaxHours:       regression[1],
			CmaxNgPerML:     regression[2],
			DoseMg:          regression[3],
		},
		ClassProbabilities: make(map[string]float64, len(a.labels)),
	}

	best := 0
	for i, label := range a.labels {
		prediction.ClassProbabilities[label] = probs[i]
		if probs[i] > probs[best] {
			best = i
		}
	}
	prediction.PredictedClass = a.labels[best]

	return prediction, nil
}

// Softmax converts logits to probabilities; it is stable for large inputs
func Softmax(logits []float64) []float64 {
	if len(logits) == 0 {
		return nil
	}
	maxLogit := logits[0]
	for _, l := range logits[1:] {
		if l > maxLogit {
			maxLogit = l
		}
	}

	out := make([]float64, len(logits))
	sum := 0.0
	for i, l := range logits {
		out[i] = math.Exp(l - maxLogit)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
