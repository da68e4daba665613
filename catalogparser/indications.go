package catalogparser

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/absorpgen/absorpgen-api/catalogparser/entities"
	"github.com/absorpgen/absorpgen-api/logging"
)

// ParseIndications reads the drug_name/condition TSV.
// Indications are enrichment: a missing file yields no rows and no error.
func ParseIndications(path string) ([]entities.IndicationRow, error) {
	if path == "" {
		return nil, nil
	}

	lines, err := readTextFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logging.Warn("Indications table not found, continuing without it", "path", path)
			return nil, nil
		}
		return nil, err
	}
	if len(lines) == 0 {
		return nil, nil
	}

	header := headerIndex(strings.Split(lines[0], "\t"))
	if err := requireColumns(header, []string{"drug_name", "condition"}); err != nil {
		return nil, fmt.Errorf("indications table %s: %w", path, err)
	}
	nameCol, condCol := header["drug_name"], header["condition"]

	var rows []entities.IndicationRow
	stats := skipStats{totalLines: len(lines) - 1}

	for _, line := range lines[1:] {
		if strings.TrimSpace(line) == "" {
			stats.emptyLines++
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) <= nameCol || len(fields) <= condCol {
			stats.missingColumns++
			continue
		}

		name := entities.CanonicalName(fields[nameCol])
		condition := strings.TrimSpace(fields[condCol])
		if name == "" || condition == "" {
			stats.invalidRecords++
			continue
		}

		rows = append(rows, entities.IndicationRow{DrugName: name, Condition: condition})
	}

	stats.log("Indications table", len(rows))
	return rows, nil
}
