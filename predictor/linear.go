package predictor

import "fmt"

// LinearModel is a scorer with two dense heads over the scaled features
type LinearModel struct {
	RegressionWeights [][]float64
	RegressionBias    []float64
	ClassWeights      [][]float64
	ClassBias         []float64
}

// Validate checks the heads against the feature count
func (m *LinearModel) Validate(numFeatures int) error {
	if len(m.RegressionWeights) != len(RegressionOutputs) {
		return fmt.Errorf("regression head has %d rows, expected %d", len(m.RegressionWeights), len(RegressionOutputs))
	}
	if err := checkHead("regression", m.RegressionWeights, m.RegressionBias, numFeatures); err != nil {
		return err
	}
	if len(m.ClassWeights) == 0 {
		return fmt.Errorf("classification head is empty")
	}
	return checkHead("classification", m.ClassWeights, m.ClassBias, numFeatures)
}

func checkHead(name string, weights [][]float64, bias []float64, numFeatures int) error {
	if len(bias) != len(weights) {
		return fmt.Errorf("%s head has %d rows and %d biases", name, len(weights), len(bias))
	}
	for i, row := range weights {
		if len(row) != numFeatures {
			return fmt.Errorf("%s row %d has %d weights, expected %d", name, i, len(row), numFeatures)
		}
	}
	return nil
}

// Score implements Scorer
func (m *LinearModel) Score(x []float64) ([]float64, []float64, error) {
	regression, err := dense(m.RegressionWeights, m.RegressionBias, x)
	if err != nil {
		return nil, nil, err
	}
	logits, err := dense(m.ClassWeights, m.ClassBias, x)
	if err != nil {
		return nil, nil, err
	}
	return regression, logits, nil
}

func dense(weights [][]float64, bias []float64, x []float64) ([]float64, error) {
	out := make([]float64, len(weights))
	for i, row := range weights {
		if len(row) != len(x) {
			return nil, fmt.Errorf("input has %d features, weights expect %d", len(x), len(row))
		}
		sum := bias[i]
		for j, w := range row {
			sum += w * x[j]
		}
		out[i] = sum
	}
	return out, nil
}
