package catalogparser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/absorpgen/absorpgen-api/catalogparser/entities"
	"github.com/absorpgen/absorpgen-api/logging"
)

// Columns shared by the curated TSV and the reference CSV export
var drugColumns = []string{
	"drug_name",
	"molecular_weight",
	"logp",
	"pka",
	"bioavailability",
	"strength_mg_per_unit",
	"formulation_concentration",
}

// ParseCuratedTable reads the hand-vetted OTC table.
// The file is tab separated with a header row; the optional "formulation"
// column defaults to tablet. Rows failing validation are skipped and
// counted; the first row for a name wins.
func ParseCuratedTable(path string) ([]entities.DrugRecord, error) {
	lines, err := readTextFile(path)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("curated table %s is empty", path)
	}

	header := headerIndex(strings.Split(lines[0], "\t"))
	if err := requireColumns(header, drugColumns); err != nil {
		return nil, fmt.Errorf("curated table %s: %w", path, err)
	}

	var records []entities.DrugRecord
	seen := make(map[string]bool)
	stats := skipStats{totalLines: len(lines) - 1}

	for _, line := range lines[1:] {
		if strings.TrimSpace(line) == "" {
			stats.emptyLines++
			continue
		}

		fields := strings.Split(line, "\t")
		if len(fields) < len(drugColumns) {
			stats.missingColumns++
			continue
		}

		record, err := drugFromFields(fields, header, entities.SourceCurated)
		if err != nil {
			stats.formatErrors++
			logging.Debug("Skipping curated row", "error", err)
			continue
		}

		if err := record.Validate(); err != nil {
			stats.invalidRecords++
			logging.Debug("Skipping invalid curated row", "error", err)
			continue
		}

		if seen[record.Name] {
			stats.duplicates++
			continue
		}
		seen[record.Name] = true
		records = append(records, record)
	}

	stats.log("Curated table", len(records))
	return records, nil
}

func requireColumns(header map[string]int, columns []string) error {
	var missing []string
	for _, c := range columns {
		if _, ok := header[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing columns %v", missing)
	}
	return nil
}

// drugFromFields builds a record from one split row, looked up by header name
func drugFromFields(fields []string, header map[string]int, source entities.Source) (entities.DrugRecord, error) {
	get := func(column string) string {
		if i, ok := header[column]; ok && i < len(fields) {
			return strings.TrimSpace(fields[i])
		}
		return ""
	}

	record := entities.DrugRecord{
		Name:        entities.CanonicalName(get("drug_name")),
		Formulation: entities.ParseFormulation(get("formulation")),
		Source:      source,
	}

	numeric := []struct {
		column   string
		target   *float64
		optional bool
	}{
		{"molecular_weight", &record.MolecularWeight, false},
		{"logp", &record.LogP, false},
		{"pka", &record.PKa, false},
		{"bioavailability", &record.Bioavailability, false},
		{"strength_mg_per_unit", &record.StrengthMgPerUnit, false},
		{"formulation_concentration", &record.ConcentrationMgPerML, true},
	}

	for _, n := range numeric {
		raw := get(n.column)
		if raw == "" && n.optional {
			continue
		}
		v, err := parseDecimal(raw)
		if err != nil {
			return record, fmt.Errorf("%s: invalid %s %q: %w", record.Name, n.column, raw, err)
		}
		*n.target = v
	}

	// Unlabelled rows carrying a concentration are liquids
	if record.Formulation == entities.FormulationTablet && record.HasConcentration() && get("formulation") == "" {
		record.Formulation = entities.FormulationLiquid
	}

	return record, nil
}

// parseDecimal accepts both "7.5" and the comma decimal form "7,5"
func parseDecimal(raw string) (float64, error) {
	if strings.Count(raw, ",") == 1 && !strings.Contains(raw, ".") {
		raw = strings.ReplaceAll(raw, ",", ".")
	}
	return strconv.ParseFloat(raw, 64)
}
