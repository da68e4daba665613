// Package engine is the personalized dosing decision pipeline.
//
// One request flows through: resolve the drug (or find one for a symptom),
// build and score the feature vector, substitute at most once when the
// predicted bioavailability is too low, format the dose, check safety rules
// and look up a brand name. Each request reads a single catalog snapshot.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/absorpgen/absorpgen-api/alias"
	"github.com/absorpgen/absorpgen-api/catalog"
	"github.com/absorpgen/absorpgen-api/catalogparser/entities"
	"github.com/absorpgen/absorpgen-api/dose"
	"github.com/absorpgen/absorpgen-api/features"
	"github.com/absorpgen/absorpgen-api/interfaces"
	"github.com/absorpgen/absorpgen-api/logging"
	"github.com/absorpgen/absorpgen-api/metrics"
	"github.com/absorpgen/absorpgen-api/predictor"
	"github.com/google/uuid"
)

var _ interfaces.Recommender = (*Engine)(nil)

// ErrEmptyQuery is returned when a request names neither a drug nor a symptom
var ErrEmptyQuery = errors.New("drug or symptom is required")

// SeverePainLevel is the lowest pain level answered with IBUPROFEN
// instead of ACETAMINOPHEN when nothing else matches
const SeverePainLevel = 7

// Predictor scores feature vectors built against its schema
type Predictor interface {
	Schema() []string
	Predict(vector entities.FeatureVector) (predictor.Prediction, error)
}

// SnapshotSource supplies the current catalog snapshot
type SnapshotSource interface {
	GetSnapshot() *catalog.Snapshot
}

// SafetyChecker evaluates the safety rule tables
type SafetyChecker interface {
	Check(drug string, medications, allergies, conditions []string) []entities.Warning
}

// Engine runs recommendations. It holds no per-request state.
type Engine struct {
	catalog   SnapshotSource
	predictor Predictor
	safety    SafetyChecker
	brands    interfaces.BrandResolver
}

// New wires the engine. brands may be nil, in which case the capitalized
// generic name is used as the brand.
func New(source SnapshotSource, p Predictor, checker SafetyChecker, brands interfaces.BrandResolver) *Engine {
	return &Engine{
		catalog:   source,
		predictor: p,
		safety:    checker,
		brands:    brands,
	}
}

func (e *Engine) resolver() *catalog.Resolver {
	return catalog.NewResolver(e.catalog.GetSnapshot(), e.brands)
}

// Recommend runs the full pipeline for one request
func (e *Engine) Recommend(ctx context.Context, req entities.RecommendationRequest) (*entities.PredictionResult, error) {
	result, err := e.recommend(ctx, req)
	metrics.RecommendationsTotal.WithLabelValues(outcomeLabel(result, err)).Inc()
	return result, err
}

func (e *Engine) recommend(ctx context.Context, req entities.RecommendationRequest) (*entities.PredictionResult, error) {
	if err := req.Patient.Validate(); err != nil {
		return nil, err
	}
	query := catalog.NormalizeName(req.DrugOrSymptom)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if req.PainLevel < 0 || req.PainLevel > 10 {
		return nil, fmt.Errorf("%w: pain_level must be between 1 and 10, got %d", entities.ErrInvalidPatient, req.PainLevel)
	}

	resolver := e.resolver()
	initial, err := e.resolveQuery(ctx, resolver, query, req.PainLevel)
	if err != nil {
		return nil, err
	}

	final, err := e.runFallback(resolver, req.Patient, initial)
	if err != nil {
		return nil, err
	}

	drug := final.drug
	quantity := dose.Units(final.prediction.Regression.DoseMg, drug.Formulation, drug.StrengthMgPerUnit, drug.ConcentrationMgPerML)

	result := &entities.PredictionResult{
		ID:                   uuid.NewString(),
		Regression:           final.prediction.Regression,
		ClassProbabilities:   final.prediction.ClassProbabilities,
		Formulation:          drug.Formulation,
		RequestedDrug:        initial.Name,
		FinalDrugUsed:        drug.Name,
		BrandName:            e.brandFor(ctx, drug.Name),
		Substituted:          final.substituted,
		StrengthMgPerUnit:    drug.StrengthMgPerUnit,
		ConcentrationMgPerML: drug.ConcentrationMgPerML,
		FormattedDose:        dose.Format(final.prediction.Regression.DoseMg, drug.Formulation, drug.StrengthMgPerUnit, drug.ConcentrationMgPerML),
		DoseAmount:           quantity.Amount,
		DoseUnit:             string(quantity.Unit),
		Warnings:             e.CheckSafety(drug.Name, req.CurrentMedications, req.Allergies, req.Conditions),
	}

	logging.Info("Recommendation ready",
		"id", result.ID,
		"requested", result.RequestedDrug,
		"final", result.FinalDrugUsed,
		"substituted", result.Substituted,
		"predicted_class", final.prediction.PredictedClass,
		"warnings", len(result.Warnings))

	return result, nil
}

// resolveQuery treats the query as a drug or brand name first, then as a
// symptom, then falls back to a default analgesic when a pain level is given.
func (e *Engine) resolveQuery(ctx context.Context, resolver *catalog.Resolver, query string, painLevel int) (entities.DrugRecord, error) {
	drug, err := resolver.Resolve(ctx, query)
	if err == nil {
		return drug, nil
	}
	if !errors.Is(err, catalog.ErrDrugNotFound) {
		return entities.DrugRecord{}, err
	}

	if found, ok := resolver.SearchBySymptom(query); ok {
		logging.Debug("Query matched by symptom", "query", query, "drug", found.Name)
		return found, nil
	}

	if painLevel > 0 {
		name := "ACETAMINOPHEN"
		if painLevel >= SeverePainLevel {
			name = "IBUPROFEN"
		}
		if found, lookupErr := resolver.Resolve(ctx, name); lookupErr == nil {
			logging.Debug("Query defaulted by pain level", "query", query, "pain_level", painLevel, "drug", found.Name)
			return found, nil
		}
	}
	return entities.DrugRecord{}, err
}

func (e *Engine) predict(patient entities.PatientProfile, drug entities.DrugRecord) (predictor.Prediction, error) {
	vector, err := features.Vectorize(features.Build(patient, drug), e.predictor.Schema())
	if err != nil {
		return predictor.Prediction{}, err
	}
	prediction, err := e.predictor.Predict(vector)
	if err != nil {
		return predictor.Prediction{}, fmt.Errorf("prediction failed for %s: %w", drug.Name, err)
	}
	return prediction, nil
}

func (e *Engine) brandFor(ctx context.Context, generic string) string {
	if e.brands == nil {
		return alias.Capitalize(generic)
	}
	if brand := e.brands.MostCommonBrand(ctx, generic); brand != "" {
		return brand
	}
	return alias.Capitalize(generic)
}

// ResolveDrug resolves a drug or brand name against the current catalog
func (e *Engine) ResolveDrug(ctx context.Context, name string) (entities.DrugRecord, error) {
	return e.resolver().Resolve(ctx, name)
}

// CheckSafety runs the safety rules for a drug
func (e *Engine) CheckSafety(drug string, medications, allergies, conditions []string) []entities.Warning {
	if e.safety == nil {
		return []entities.Warning{}
	}
	return e.safety.Check(entities.CanonicalName(drug), medications, allergies, conditions)
}

func outcomeLabel(result *entities.PredictionResult, err error) string {
	switch {
	case err == nil && result.Substituted:
		return "substituted"
	case err == nil:
		return "ok"
	case errors.Is(err, catalog.ErrDrugNotFound):
		return "not_found"
	case errors.Is(err, catalog.ErrNoAlternativeFound):
		return "no_alternative"
	case errors.Is(err, entities.ErrInvalidPatient), errors.Is(err, ErrEmptyQuery):
		return "invalid"
	default:
		return "error"
	}
}

// RenderText formats a result for a terminal. Advanced mode adds the raw
// pharmacokinetic outputs.
func RenderText(result *entities.PredictionResult, advanced bool) string {
	var b strings.Builder

	fmt.Fprintln(&b, "=== Recommendation ===")
	fmt.Fprintf(&b, "Drug: %s\n", result.FinalDrugUsed)
	if result.BrandName != "" {
		fmt.Fprintf(&b, "Brand: %s\n", result.BrandName)
	}
	if result.Substituted {
		fmt.Fprintf(&b, "Substituted for: %s (low predicted bioavailability)\n", result.RequestedDrug)
	}
	fmt.Fprintf(&b, "Formulation: %s\n", result.Formulation)
	fmt.Fprintf(&b, "Recommended Dose: %s\n", result.FormattedDose)

	if advanced {
		fmt.Fprintf(&b, "Bioavailability: %.2f\n", result.Regression.Bioavailability)
		fmt.Fprintf(&b, "Tmax: %.2f hours\n", result.Regression.TmaxHours)
		fmt.Fprintf(&b, "Cmax: %.2f ng/mL\n", result.Regression.CmaxNgPerML)
	}

	if len(result.Warnings) > 0 {
		fmt.Fprintln(&b, "\nWarnings:")
		for _, w := range result.Warnings {
			fmt.Fprintf(&b, "- %s\n", w.Message)
		}
	}

	return b.String()
}
