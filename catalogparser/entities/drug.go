// Package entities holds the value types shared by the catalog, the
// prediction pipeline and the HTTP layer.
package entities

import (
	"fmt"
	"strings"
)

// Formulation is the physical delivery form of a drug
type Formulation string

const (
	FormulationTablet         Formulation = "tablet"
	FormulationLiquid         Formulation = "liquid"
	FormulationDelayedRelease Formulation = "delayed-release"
)

// ParseFormulation maps a free-text formulation label to a Formulation.
// Unknown or empty labels default to tablet, the catalog's placeholder form.
func ParseFormulation(s string) Formulation {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "liquid", "solution", "syrup", "suspension":
		return FormulationLiquid
	case "delayed-release", "delayed release", "delayed_release", "enteric-coated":
		return FormulationDelayedRelease
	default:
		return FormulationTablet
	}
}

// Source tells which catalog table a record came from
type Source string

const (
	SourceCurated   Source = "curated"
	SourceReference Source = "reference"
)

// DrugRecord is the canonical identity and pharmacologic data of a drug.
// Records are built once per catalog load and never mutated afterwards.
type DrugRecord struct {
	Name                 string      `json:"name"`
	MolecularWeight      float64     `json:"molecularWeight"`
	LogP                 float64     `json:"logP"`
	PKa                  float64     `json:"pKa"`
	Bioavailability      float64     `json:"bioavailability"`
	StrengthMgPerUnit    float64     `json:"strengthMgPerUnit"`
	ConcentrationMgPerML float64     `json:"concentrationMgPerML,omitempty"` // 0 means none
	Formulation          Formulation `json:"formulation"`
	Indications          []string    `json:"indications,omitempty"`
	Source               Source      `json:"source"`
}

// HasConcentration reports whether the record carries a usable liquid concentration
func (d DrugRecord) HasConcentration() bool {
	return d.ConcentrationMgPerML > 0
}

// WithIndications returns a copy of the record carrying the given indications
func (d DrugRecord) WithIndications(indications []string) DrugRecord {
	if len(indications) == 0 {
		return d
	}
	d.Indications = append([]string(nil), indications...)
	return d
}

// Validate checks the record invariants enforced at load time
func (d *DrugRecord) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("missing drug name")
	}
	if d.Name != strings.ToUpper(d.Name) {
		return fmt.Errorf("drug name %q is not canonical uppercase", d.Name)
	}
	if d.StrengthMgPerUnit <= 0 {
		return fmt.Errorf("invalid strength for %s: %v", d.Name, d.StrengthMgPerUnit)
	}
	if d.ConcentrationMgPerML < 0 {
		return fmt.Errorf("invalid concentration for %s: %v", d.Name, d.ConcentrationMgPerML)
	}
	if d.Bioavailability < 0 || d.Bioavailability > 1 {
		return fmt.Errorf("bioavailability out of range for %s: %v", d.Name, d.Bioavailability)
	}
	return nil
}

// CanonicalName returns the catalog key for a drug name
func CanonicalName(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}
