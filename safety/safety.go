// Package safety layers rule-based warnings on top of a chosen drug.
//
// Three JSON tables map a drug name to counterpart names: current
// medications it interacts with, conditions it is contraindicated in and
// allergies it cross-reacts with. Matching is exact.
package safety

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/absorpgen/absorpgen-api/catalogparser/entities"
	"github.com/absorpgen/absorpgen-api/logging"
)

// Table file names inside the safety directory
const (
	InteractionsFile      = "drug_interactions.json"
	ContraindicationsFile = "contraindications.json"
	AllergiesFile         = "allergy_cross_reactivity.json"
)

// Table maps a drug name to its counterpart names
type Table map[string][]string

// Tables is one loaded set of rule tables
type Tables struct {
	Interactions      Table
	Contraindications Table
	Allergies         Table
}

// Size returns the number of drugs with at least one rule
func (t *Tables) Size() int {
	return len(t.Interactions) + len(t.Contraindications) + len(t.Allergies)
}

// Checker evaluates the rule tables. It is safe for concurrent use.
type Checker struct {
	dir    string
	tables atomic.Pointer[Tables]
}

// NewChecker loads the tables from dir. Missing files give empty tables.
func NewChecker(dir string) (*Checker, error) {
	c := &Checker{dir: dir}
	if err := c.Reload(); err != nil {
		return nil, err
	}
	return c, nil
}

// NewCheckerFromTables builds a checker over in-memory tables
func NewCheckerFromTables(tables Tables) *Checker {
	c := &Checker{}
	c.tables.Store(&tables)
	return c
}

// Reload re-reads the tables from disk and swaps them in
func (c *Checker) Reload() error {
	if c.dir == "" {
		c.tables.Store(&Tables{})
		return nil
	}

	var tables Tables
	var err error
	if tables.Interactions, err = loadTable(filepath.Join(c.dir, InteractionsFile)); err != nil {
		return err
	}
	if tables.Contraindications, err = loadTable(filepath.Join(c.dir, ContraindicationsFile)); err != nil {
		return err
	}
	if tables.Allergies, err = loadTable(filepath.Join(c.dir, AllergiesFile)); err != nil {
		return err
	}

	c.tables.Store(&tables)
	logging.Info("Safety tables loaded",
		"dir", c.dir,
		"interactions", len(tables.Interactions),
		"contraindications", len(tables.Contraindications),
		"allergies", len(tables.Allergies))
	return nil
}

func loadTable(path string) (Table, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		logging.Warn("Safety table not found, using empty table", "path", path)
		return Table{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read safety table: %w", err)
	}

	var table Table
	if err := json.Unmarshal(raw, &table); err != nil {
		return nil, fmt.Errorf("failed to decode safety table %s: %w", path, err)
	}
	if table == nil {
		table = Table{}
	}
	return table, nil
}

// Tables returns the current rule tables
func (c *Checker) Tables() *Tables {
	return c.tables.Load()
}

// Check returns interaction, then contraindication, then allergy warnings.
// Input order is preserved within each group and duplicates are kept.
func (c *Checker) Check(drug string, medications, allergies, conditions []string) []entities.Warning {
	tables := c.tables.Load()
	warnings := make([]entities.Warning, 0)

	for _, med := range matches(tables.Interactions, drug, medications) {
		warnings = append(warnings, entities.Warning{
			Kind:        entities.WarningInteraction,
			Counterpart: med,
			Message:     fmt.Sprintf("Warning: %s may interact with %s", drug, med),
		})
	}
	for _, condition := range matches(tables.Contraindications, drug, conditions) {
		warnings = append(warnings, entities.Warning{
			Kind:        entities.WarningContraindication,
			Counterpart: condition,
			Message:     fmt.Sprintf("Warning: %s is contraindicated in %s", drug, condition),
		})
	}
	for _, allergy := range matches(tables.Allergies, drug, allergies) {
		warnings = append(warnings, entities.Warning{
			Kind:        entities.WarningAllergy,
			Counterpart: allergy,
			Message:     fmt.Sprintf("Warning: %s may cause cross-reactivity with %s allergy", drug, allergy),
		})
	}

	return warnings
}

func matches(table Table, drug string, inputs []string) []string {
	rules := table[drug]
	if len(rules) == 0 {
		return nil
	}
	var found []string
	for _, in := range inputs {
		for _, rule := range rules {
			if in == rule {
				found = append(found, in)
				break
			}
		}
	}
	return found
}
