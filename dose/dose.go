// Package dose turns a continuous milligram dose into a count of tablets or
// a liquid volume a patient can actually take.
package dose

import (
	"fmt"
	"math"
	"strconv"

	"github.com/absorpgen/absorpgen-api/catalogparser/entities"
)

// MinLiquidML is the smallest volume ever recommended
const MinLiquidML = 0.5

// Unit is the kind of quantity a dose is expressed in
type Unit string

const (
	UnitTablet Unit = "tablet"
	UnitML     Unit = "mL"
)

// Quantity is the structured form of a formatted dose
type Quantity struct {
	Amount float64 `json:"amount"`
	Unit   Unit    `json:"unit"`
}

func isLiquid(formulation entities.Formulation, concentration float64) bool {
	return formulation == entities.FormulationLiquid || concentration > 0
}

// Units computes the quantity for a dose. A liquid without a concentration
// reads the strength as mg/mL.
func Units(doseMg float64, formulation entities.Formulation, strength, concentration float64) Quantity {
	if isLiquid(formulation, concentration) {
		if concentration <= 0 {
			concentration = strength
		}
		ml := 0.0
		if concentration > 0 {
			ml = math.Round(doseMg/concentration*2) / 2
		}
		return Quantity{Amount: math.Max(MinLiquidML, ml), Unit: UnitML}
	}

	if strength <= 0 {
		return Quantity{Amount: 1, Unit: UnitTablet}
	}
	units := doseMg / strength
	if units < 1 {
		return Quantity{Amount: 1, Unit: UnitTablet}
	}
	return Quantity{Amount: math.Max(1, math.Round(units)), Unit: UnitTablet}
}

// Format renders the dose as "1.5 mL" or "2 tablet(s) of 500 mg"
func Format(doseMg float64, formulation entities.Formulation, strength, concentration float64) string {
	q := Units(doseMg, formulation, strength, concentration)
	if q.Unit == UnitML {
		return fmt.Sprintf("%.1f mL", q.Amount)
	}
	return fmt.Sprintf("%d tablet(s) of %s mg", int(q.Amount), formatMg(strength))
}

// FormatSplit is a presentation variant of Format that writes a multi-tablet
// dose as two same-strength parts. The total is unchanged.
func FormatSplit(doseMg float64, formulation entities.Formulation, strength, concentration float64) string {
	q := Units(doseMg, formulation, strength, concentration)
	if q.Unit == UnitML || q.Amount <= 1 {
		return Format(doseMg, formulation, strength, concentration)
	}
	mg := formatMg(strength)
	return fmt.Sprintf("1 tablet(s) of %s mg and %d tablet(s) of %s mg", mg, int(q.Amount)-1, mg)
}

func formatMg(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
