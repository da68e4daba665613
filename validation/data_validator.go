// Package validation checks catalog records at load time and sanitizes
// free-text input from the HTTP layer.
package validation

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/absorpgen/absorpgen-api/catalogparser/entities"
	"github.com/absorpgen/absorpgen-api/interfaces"
)

// Input limits for drug names, symptoms, medications, allergies and conditions
const (
	MinInputLength = 2
	MaxInputLength = 100
	MaxInputWords  = 8
	MaxListItems   = 50
)

var (
	// Letters in any script, digits, spaces and the punctuation found in drug names
	inputRegex = regexp.MustCompile(`^[\p{L}\p{M}0-9\s\-\.\+',()/%]+$`)

	// Substring checks are cheaper than regex for these
	dangerousPatterns = []string{
		"<script", "</script>", "javascript:", "vbscript:", "onload=", "onerror=",
		"onclick=", "onmouseover=", "eval(", "expression(", "url(", "@import",
		// SQL injection patterns
		"' or ", "\" or ", "union select", "drop table", "delete from", "insert into",
		"update set", "--", "/*", "*/", "exec(", "execute(",
		// Command injection patterns
		"; ", "| ", "& ", "`", "$(", "${",
		// Path traversal patterns
		"../", "..\\", "%2e%2e", "file://",
		// NoSQL injection patterns
		"{$ne:", "{$gt:", "{$where:", "{$or:", "{$regex:",
	}
)

// DataValidatorImpl implements the interfaces.DataValidator interface
type DataValidatorImpl struct{}

// NewDataValidator creates a new data validator
func NewDataValidator() interfaces.DataValidator {
	return &DataValidatorImpl{}
}

// ValidateDrug checks a catalog record, including limits the parser does not enforce
func (v *DataValidatorImpl) ValidateDrug(d *entities.DrugRecord) error {
	if d == nil {
		return fmt.Errorf("drug record is nil")
	}
	if err := d.Validate(); err != nil {
		return err
	}
	if utf8.RuneCountInString(d.Name) > 200 {
		return fmt.Errorf("drug name too long: %d characters", utf8.RuneCountInString(d.Name))
	}
	if d.MolecularWeight < 0 {
		return fmt.Errorf("invalid molecular weight for %s: %v", d.Name, d.MolecularWeight)
	}
	switch d.Formulation {
	case entities.FormulationTablet, entities.FormulationLiquid, entities.FormulationDelayedRelease:
	default:
		return fmt.Errorf("unknown formulation for %s: %q", d.Name, d.Formulation)
	}
	return nil
}

// ReportDataQuality lists catalog issues that do not block a load
func (v *DataValidatorImpl) ReportDataQuality(tables *entities.CatalogTables) *interfaces.DataQualityReport {
	report := &interfaces.DataQualityReport{
		DuplicateCuratedNames:  []string{},
		ShadowedReferenceNames: []string{},
	}
	if tables == nil {
		return report
	}

	// Check 1: duplicate curated names (first row wins at lookup)
	curated := make(map[string]bool)
	duplicates := make(map[string]bool)
	for _, d := range tables.Curated {
		key := entities.CanonicalName(d.Name)
		if curated[key] {
			duplicates[key] = true
		}
		curated[key] = true
	}
	report.DuplicateCuratedNames = sortedKeys(duplicates)

	// Check 2: reference names hidden by a curated record
	catalogNames := make(map[string]bool, len(curated))
	for name := range curated {
		catalogNames[name] = true
	}
	shadowed := make(map[string]bool)
	for _, d := range tables.Reference {
		key := entities.CanonicalName(d.Name)
		if curated[key] {
			shadowed[key] = true
		}
		catalogNames[key] = true
	}
	report.ShadowedReferenceNames = sortedKeys(shadowed)

	// Check 3: indication coverage
	indicated := make(map[string]bool)
	for _, row := range tables.Indications {
		key := entities.CanonicalName(row.DrugName)
		if !catalogNames[key] {
			report.OrphanIndications++
			continue
		}
		indicated[key] = true
	}
	for name := range catalogNames {
		if !indicated[name] {
			report.DrugsWithoutIndications++
		}
	}

	// Check 4: liquids that will be dosed using their strength as mg/mL
	for _, list := range [][]entities.DrugRecord{tables.Curated, tables.Reference} {
		for _, d := range list {
			if d.Formulation == entities.FormulationLiquid && !d.HasConcentration() {
				report.LiquidsWithoutConcentration++
			}
		}
	}

	return report
}

// ValidateInput validates a single free-text value
func (v *DataValidatorImpl) ValidateInput(input string) error {
	if strings.TrimSpace(input) == "" {
		return fmt.Errorf("input cannot be empty")
	}

	length := utf8.RuneCountInString(input)
	if length < MinInputLength {
		return fmt.Errorf("input too short: minimum %d characters", MinInputLength)
	}
	if length > MaxInputLength {
		return fmt.Errorf("input too long: maximum %d characters", MaxInputLength)
	}

	if len(strings.Fields(input)) > MaxInputWords {
		return fmt.Errorf("input too complex: maximum %d words allowed", MaxInputWords)
	}

	lowerInput := strings.ToLower(input)
	for _, pattern := range dangerousPatterns {
		if strings.Contains(lowerInput, pattern) {
			return fmt.Errorf("input contains potentially dangerous content")
		}
	}

	if !inputRegex.MatchString(input) {
		return fmt.Errorf("input contains invalid characters. Only letters, numbers, spaces and - . + ' , ( ) / %% are allowed")
	}

	if v.hasExcessiveRepetition(input) {
		return fmt.Errorf("input contains excessive character repetition")
	}

	return nil
}

// ValidateList validates every entry of a free-text list
func (v *DataValidatorImpl) ValidateList(inputs []string) error {
	if len(inputs) > MaxListItems {
		return fmt.Errorf("too many entries: maximum %d allowed", MaxListItems)
	}
	for i, in := range inputs {
		if err := v.ValidateInput(in); err != nil {
			return fmt.Errorf("entry %d: %w", i+1, err)
		}
	}
	return nil
}

// hasExcessiveRepetition checks for the same byte repeated more than 10 times
func (v *DataValidatorImpl) hasExcessiveRepetition(input string) bool {
	for i := 0; i < len(input)-10; i++ {
		allSame := true
		for j := 1; j <= 10; j++ {
			if input[i] != input[i+j] {
				allSame = false
				break
			}
		}
		if allSame {
			return true
		}
	}
	return false
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
