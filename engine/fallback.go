package engine

import (
	"fmt"

	"github.com/absorpgen/absorpgen-api/catalog"
	"github.com/absorpgen/absorpgen-api/catalogparser/entities"
	"github.com/absorpgen/absorpgen-api/logging"
	"github.com/absorpgen/absorpgen-api/metrics"
	"github.com/absorpgen/absorpgen-api/predictor"
)

// BioavailabilityThreshold is the lowest predicted bioavailability accepted
// without substitution
const BioavailabilityThreshold = 0.70

type fallbackState int

const (
	stateInitial fallbackState = iota
	statePredicted
	stateSubstituted
	stateFinal
)

func (s fallbackState) String() string {
	switch s {
	case stateInitial:
		return "initial"
	case statePredicted:
		return "predicted"
	case stateSubstituted:
		return "substituted"
	default:
		return "final"
	}
}

type fallbackResult struct {
	drug        entities.DrugRecord
	prediction  predictor.Prediction
	substituted bool
	state       fallbackState
}

// runFallback predicts for drug and, when bioavailability is below the
// threshold, substitutes once. The substitute's prediction is accepted
// whatever its bioavailability.
func (e *Engine) runFallback(resolver *catalog.Resolver, patient entities.PatientProfile, drug entities.DrugRecord) (fallbackResult, error) {
	res := fallbackResult{drug: drug, state: stateInitial}

	prediction, err := e.predict(patient, drug)
	if err != nil {
		return res, err
	}
	res.prediction = prediction
	res.state = statePredicted

	if prediction.Regression.Bioavailability >= BioavailabilityThreshold {
		res.state = stateFinal
		return res, nil
	}

	alternative, err := resolver.SuggestAlternative(BioavailabilityThreshold, drug.Name)
	if err != nil {
		return res, fmt.Errorf("no substitute for %s with predicted bioavailability %.2f: %w",
			drug.Name, prediction.Regression.Bioavailability, err)
	}
	res.state = stateSubstituted

	logging.Info("Substituting drug for low predicted bioavailability",
		"drug", drug.Name,
		"bioavailability", prediction.Regression.Bioavailability,
		"substitute", alternative.Name)
	metrics.FallbackSubstitutionsTotal.Inc()

	prediction, err = e.predict(patient, alternative)
	if err != nil {
		return res, err
	}

	res.drug = alternative
	res.prediction = prediction
	res.substituted = true
	res.state = stateFinal
	return res, nil
}
