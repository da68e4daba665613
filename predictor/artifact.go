package predictor

import (
	"fmt"
	"os"

	"github.com/absorpgen/absorpgen-api/features"
	"github.com/absorpgen/absorpgen-api/logging"
	"gopkg.in/yaml.v3"
)

// Artifact is the on-disk form of a trained model
type Artifact struct {
	Version    int    `yaml:"version"`
	Scaler     Scaler `yaml:"scaler"`
	Regression struct {
		Weights [][]float64 `yaml:"weights"`
		Bias    []float64   `yaml:"bias"`
	} `yaml:"regression"`
	Classification struct {
		Labels  []string    `yaml:"labels"`
		Weights [][]float64 `yaml:"weights"`
		Bias    []float64   `yaml:"bias"`
	} `yaml:"classification"`
}

// ParseArtifact decodes and validates a YAML model artifact
func ParseArtifact(raw []byte) (*Adapter, error) {
	var art Artifact
	if err := yaml.Unmarshal(raw, &art); err != nil {
		return nil, fmt.Errorf("failed to decode model artifact: %w", err)
	}
	if art.Version != 1 {
		return nil, fmt.Errorf("unsupported model artifact version %d", art.Version)
	}
	if err := art.Scaler.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scaler: %w", err)
	}
	if err := features.ValidateSchema(art.Scaler.FeatureNames); err != nil {
		return nil, err
	}

	model := &LinearModel{
		RegressionWeights: art.Regression.Weights,
		RegressionBias:    art.Regression.Bias,
		ClassWeights:      art.Classification.Weights,
		ClassBias:         art.Classification.Bias,
	}
	if err := model.Validate(len(art.Scaler.FeatureNames)); err != nil {
		return nil, fmt.Errorf("invalid model: %w", err)
	}
	if len(art.Classification.Labels) != len(art.Classification.Weights) {
		return nil, fmt.Errorf("invalid model: %d labels for %d classification rows",
			len(art.Classification.Labels), len(art.Classification.Weights))
	}

	scaler := art.Scaler
	return NewAdapter(&scaler, model, art.Classification.Labels)
}

// LoadArtifact reads a model artifact from disk
func LoadArtifact(path string) (*Adapter, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model artifact: %w", err)
	}
	adapter, err := ParseArtifact(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	logging.Info("Model artifact loaded", "path", path, "features", len(adapter.Schema()), "labels", adapter.Labels())
	return adapter, nil
}
