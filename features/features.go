// Package features turns a patient and a drug into the model's input.
// The scaling constants and encodings must match the ones used when the
// model was trained.
package features

import (
	"errors"
	"fmt"
	"strings"

	"github.com/absorpgen/absorpgen-api/catalogparser/entities"
)

// Feature names as written in the fitted scaler's schema
const (
	Age                      = "age"
	Weight                   = "weight"
	Sex                      = "sex"
	Height                   = "height"
	MolecularWeight          = "molecular_weight"
	LogP                     = "logP"
	PKa                      = "pKa"
	RouteAdmin               = "route_admin"
	StrengthMgPerUnit        = "strength_mg_per_unit"
	FormulationConcentration = "formulation_concentration"
)

// ErrSchemaMismatch is returned when the scaler expects a feature that is not built
var ErrSchemaMismatch = errors.New("feature schema mismatch")

// SchemaMismatchError lists the schema features missing from the mapping
type SchemaMismatchError struct {
	Missing []string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("feature schema mismatch: missing %s", strings.Join(e.Missing, ", "))
}

func (e *SchemaMismatchError) Unwrap() error {
	return ErrSchemaMismatch
}

// Names returns every feature Build produces
func Names() []string {
	return []string{
		Age, Weight, Sex, Height,
		MolecularWeight, LogP, PKa, RouteAdmin,
		StrengthMgPerUnit, FormulationConcentration,
	}
}

// Build computes the raw feature mapping. It is a pure function.
func Build(patient entities.PatientProfile, drug entities.DrugRecord) map[string]float64 {
	concentration := 0.0
	if drug.HasConcentration() {
		concentration = drug.ConcentrationMgPerML / 1000
	}

	return map[string]float64{
		Age:                      patient.Age / 100,
		Weight:                   patient.WeightKg / 200,
		Sex:                      boolToFloat(patient.IsMale()),
		Height:                   patient.HeightCm / 200,
		MolecularWeight:          drug.MolecularWeight / 1000,
		LogP:                     drug.LogP,
		PKa:                      drug.PKa,
		RouteAdmin:               boolToFloat(patient.IsOral()),
		StrengthMgPerUnit:        drug.StrengthMgPerUnit / 1000,
		FormulationConcentration: concentration,
	}
}

// Vectorize orders a raw mapping by schema. Extra mapping entries are ignored.
func Vectorize(raw map[string]float64, schema []string) (entities.FeatureVector, error) {
	vector := entities.FeatureVector{
		Names:  make([]string, 0, len(schema)),
		Values: make([]float64, 0, len(schema)),
	}

	var missing []string
	for _, name := range schema {
		v, ok := raw[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		vector.Names = append(vector.Names, name)
		vector.Values = append(vector.Values, v)
	}

	if len(missing) > 0 {
		return entities.FeatureVector{}, &SchemaMismatchError{Missing: missing}
	}
	return vector, nil
}

// ValidateSchema reports whether Build can produce every feature in schema.
// It is meant to run once at startup.
func ValidateSchema(schema []string) error {
	if len(schema) == 0 {
		return fmt.Errorf("%w: empty schema", ErrSchemaMismatch)
	}
	_, err := Vectorize(Build(entities.PatientProfile{}, entities.DrugRecord{}), schema)
	return err
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
