package entities

import "time"

// FeatureVector is ordered by the fitted scaler's feature schema
type FeatureVector struct {
	Names  []string  `json:"names"`
	Values []float64 `json:"values"`
}

// Get returns the value of a named feature
func (v FeatureVector) Get(name string) (float64, bool) {
	for i, n := range v.Names {
		if n == name {
			return v.Values[i], true
		}
	}
	return 0, false
}

// RegressionOutputs holds the model's pharmacokinetic outputs in their fixed order
type RegressionOutputs struct {
	Bioavailability float64 `json:"bioavailability"`
	TmaxHours       float64 `json:"tmax"`
	CmaxNgPerML     float64 `json:"cmax"`
	DoseMg          float64 `json:"dose"`
}

// WarningKind tags the rule table a warning came from
type WarningKind string

const (
	WarningInteraction      WarningKind = "interaction"
	WarningContraindication WarningKind = "contraindication"
	WarningAllergy          WarningKind = "allergy"
)

// Warning is a single safety finding against the chosen drug
type Warning struct {
	Kind        WarningKind `json:"kind"`
	Counterpart string      `json:"counterpart"`
	Message     string      `json:"message"`
}

// PredictionResult is assembled once per request and not mutated afterwards
type PredictionResult struct {
	ID                   string             `json:"id"`
	Regression           RegressionOutputs  `json:"regression"`
	ClassProbabilities   map[string]float64 `json:"classProbabilities,omitempty"`
	Formulation          Formulation        `json:"recommendedFormulation"`
	RequestedDrug        string             `json:"requestedDrug"`
	FinalDrugUsed        string             `json:"finalDrugUsed"`
	BrandName            string             `json:"brandName,omitempty"`
	Substituted          bool               `json:"substituted"`
	StrengthMgPerUnit    float64            `json:"strengthMgPerUnit"`
	ConcentrationMgPerML float64            `json:"concentrationMgPerML,omitempty"`
	FormattedDose        string             `json:"recommendedDose"`
	DoseAmount           float64            `json:"doseAmount"`
	DoseUnit             string             `json:"doseUnit"`
	Warnings             []Warning          `json:"warnings"`
}

// RecommendationRequest is the inbound query for one recommendation
type RecommendationRequest struct {
	Patient            PatientProfile `json:"patient"`
	DrugOrSymptom      string         `json:"drug_or_symptom"`
	AdvancedMode       bool           `json:"advanced_mode,omitempty"`
	CurrentMedications []string       `json:"current_medications,omitempty"`
	Allergies          []string       `json:"allergies,omitempty"`
	Conditions         []string       `json:"conditions,omitempty"`
	// PainLevel (1-10, 0 when absent) picks a default analgesic when the
	// query matches neither a drug nor a symptom
	PainLevel          int            `json:"pain_level,omitempty"`
}

// CatalogStats summarizes one loaded catalog snapshot
type CatalogStats struct {
	CuratedCount    int       `json:"curated"`
	ReferenceCount  int       `json:"reference"`
	IndicationCount int       `json:"indications"`
	LoadedAt        time.Time `json:"loadedAt"`
}
