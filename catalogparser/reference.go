package catalogparser

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/absorpgen/absorpgen-api/catalogparser/entities"
	"github.com/absorpgen/absorpgen-api/logging"
	"github.com/uptrace/bun"
)

// ReferenceRow is the bulk reference table as stored in SQLite
type ReferenceRow struct {
	bun.BaseModel `bun:"table:reference_drugs,alias:rd"`

	ID                       int64    `bun:"id,pk,autoincrement"`
	DrugName                 string   `bun:"drug_name,notnull"`
	MolecularWeight          float64  `bun:"molecular_weight"`
	LogP                     float64  `bun:"logp"`
	PKa                      float64  `bun:"pka"`
	Bioavailability          float64  `bun:"bioavailability"`
	StrengthMgPerUnit        float64  `bun:"strength_mg_per_unit"`
	FormulationConcentration *float64 `bun:"formulation_concentration"`
	Formulation              string   `bun:"formulation"`
}

// ToRecord converts the stored row into a catalog record
func (r *ReferenceRow) ToRecord() entities.DrugRecord {
	record := entities.DrugRecord{
		Name:              entities.CanonicalName(r.DrugName),
		MolecularWeight:   r.MolecularWeight,
		LogP:              r.LogP,
		PKa:               r.PKa,
		Bioavailability:   r.Bioavailability,
		StrengthMgPerUnit: r.StrengthMgPerUnit,
		Formulation:       entities.ParseFormulation(r.Formulation),
		Source:            entities.SourceReference,
	}
	if r.FormulationConcentration != nil {
		record.ConcentrationMgPerML = *r.FormulationConcentration
	}
	if r.Formulation == "" && record.HasConcentration() {
		record.Formulation = entities.FormulationLiquid
	}
	return record
}

// IsDatabasePath reports whether the reference table should be read with bun
func IsDatabasePath(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return true
	}
	return false
}

// ParseReferenceTable loads the bulk reference table from SQLite or CSV,
// depending on the file extension. debug turns on bun query logging.
func ParseReferenceTable(ctx context.Context, path string, debug bool) ([]entities.DrugRecord, error) {
	if IsDatabasePath(path) {
		return ParseReferenceDB(ctx, path, debug)
	}
	return ParseReferenceCSV(path)
}

// ParseReferenceDB reads every row of reference_drugs ordered by id
func ParseReferenceDB(ctx context.Context, path string, debug bool) ([]entities.DrugRecord, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to open reference database: %w", err)
	}

	db, err := NewDB("file:"+path+"?mode=ro", debug)
	if err != nil {
		return nil, fmt.Errorf("failed to open reference database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Warn("Failed to close reference database", "error", err)
		}
	}()

	var rows []ReferenceRow
	if err := db.NewSelect().Model(&rows).OrderExpr("id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to query reference_drugs: %w", err)
	}

	stats := skipStats{totalLines: len(rows)}
	records := make([]entities.DrugRecord, 0, len(rows))
	for i := range rows {
		record := rows[i].ToRecord()
		if err := record.Validate(); err != nil {
			stats.invalidRecords++
			continue
		}
		records = append(records, record)
	}

	stats.log("Reference database", len(records))
	return records, nil
}

// ParseReferenceCSV reads the ChEMBL-style CSV export.
// Duplicate names are kept in file order; the resolver picks the first.
func ParseReferenceCSV(path string) ([]entities.DrugRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open reference table: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			logging.Warn("Failed to close reference table", "error", err)
		}
	}()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	headerFields, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("reference table %s is empty", path)
		}
		return nil, fmt.Errorf("failed to read reference header: %w", err)
	}
	if len(headerFields) > 0 {
		headerFields[0] = strings.TrimPrefix(headerFields[0], "\ufeff")
	}
	header := headerIndex(headerFields)
	if err := requireColumns(header, drugColumns); err != nil {
		return nil, fmt.Errorf("reference table %s: %w", path, err)
	}

	var records []entities.DrugRecord
	var stats skipStats

	for {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		stats.totalLines++
		if err != nil {
			stats.formatErrors++
			continue
		}
		if len(fields) < len(drugColumns) {
			stats.missingColumns++
			continue
		}

		record, err := drugFromFields(fields, header, entities.SourceReference)
		if err != nil {
			stats.formatErrors++
			continue
		}
		if err := record.Validate(); err != nil {
			stats.invalidRecords++
			continue
		}
		records = append(records, record)
	}

	stats.log("Reference table", len(records))
	return records, nil
}
