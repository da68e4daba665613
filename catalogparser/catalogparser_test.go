package catalogparser

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/absorpgen/absorpgen-api/catalogparser/entities"
)

const curatedHeader = "drug_name\tmolecular_weight\tlogP\tpKa\tbioavailability\tstrength_mg_per_unit\tformulation_concentration\tformulation\n"

func writeFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	return path
}

func TestParseCuratedTable(t *testing.T) {
	dir := t.TempDir()
	content := curatedHeader +
		"acetaminophen\t151.16\t0.46\t9.5\t0.88\t500\t\ttablet\n" +
		"\n" +
		"IBUPROFEN\t206.28\t3.97\t4.91\t0.8\t200\t20\t\n" +
		"DEXTROMETHORPHAN\t271.4\t3.6\t9.2\t0.11\t15\t3\tsyrup\n" +
		"BADROW\tnot-a-number\t1\t1\t0.5\t10\t\ttablet\n" +
		"ZEROSTRENGTH\t100\t1\t1\t0.5\t0\t\ttablet\n" +
		"ACETAMINOPHEN\t151.16\t0.46\t9.5\t0.10\t325\t\ttablet\n" +
		"SHORT\t1\n"
	path := writeFile(t, dir, "otc.tsv", []byte(content))

	records, err := ParseCuratedTable(path)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("Expected 3 records, got %d: %+v", len(records), records)
	}

	first := records[0]
	if first.Name != "ACETAMINOPHEN" {
		t.Errorf("Expected uppercase name ACETAMINOPHEN, got %s", first.Name)
	}
	if first.Bioavailability != 0.88 {
		t.Errorf("Expected first duplicate row to win, got bioavailability %v", first.Bioavailability)
	}
	if first.Source != entities.SourceCurated {
		t.Errorf("Expected curated source, got %s", first.Source)
	}

	if records[1].Formulation != entities.FormulationLiquid {
		t.Errorf("Expected unlabelled row with concentration to be liquid, got %s", records[1].Formulation)
	}
	if records[2].Formulation != entities.FormulationLiquid || records[2].ConcentrationMgPerML != 3 {
		t.Errorf("Expected syrup with 3 mg/mL, got %s %v", records[2].Formulation, records[2].ConcentrationMgPerML)
	}
}

func TestParseCuratedTableRowWithoutFormulation(t *testing.T) {
	content := curatedHeader +
		"NAPROXEN\t230.26\t3.18\t4.15\t0.95\t220\t\n" +
		"ASPIRIN\t180.16\t1.19\t3.5\t0.7\n"
	path := writeFile(t, t.TempDir(), "otc.tsv", []byte(content))

	records, err := ParseCuratedTable(path)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("Expected 1 record, got %d: %+v", len(records), records)
	}
	if records[0].Name != "NAPROXEN" || records[0].Formulation != entities.FormulationTablet {
		t.Errorf("Expected NAPROXEN defaulting to tablet, got %s %s", records[0].Name, records[0].Formulation)
	}
}

func TestParseCuratedTableMissingColumns(t *testing.T) {
	path := writeFile(t, t.TempDir(), "otc.tsv", []byte("drug_name\tbioavailability\nASPIRIN\t0.7\n"))

	_, err := ParseCuratedTable(path)
	if err == nil || !strings.Contains(err.Error(), "missing columns") {
		t.Errorf("Expected missing columns error, got %v", err)
	}
}

func TestParseCuratedTableLatin1(t *testing.T) {
	content := []byte(curatedHeader + "caf\xe9ine\t194.19\t-0.07\t14\t0.99\t100\t\ttablet\n")
	path := writeFile(t, t.TempDir(), "otc.tsv", content)

	records, err := ParseCuratedTable(path)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(records) != 1 || records[0].Name != "CAFÉINE" {
		t.Errorf("Expected CAFÉINE decoded from ISO-8859-1, got %+v", records)
	}
}

func TestParseIndications(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "indications.tsv", []byte(
		"drug_name\tcondition\nacetaminophen\tHeadache\nIBUPROFEN\t\n\nIBUPROFEN\tFever\n"))

	rows, err := ParseIndications(path)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(rows))
	}
	if rows[0].DrugName != "ACETAMINOPHEN" || rows[0].Condition != "Headache" {
		t.Errorf("Unexpected first row: %+v", rows[0])
	}

	rows, err = ParseIndications(filepath.Join(dir, "missing.tsv"))
	if err != nil {
		t.Errorf("Expected missing indications file to be ignored, got %v", err)
	}
	if rows != nil {
		t.Errorf("Expected no rows, got %v", rows)
	}
}

func TestParseReferenceCSV(t *testing.T) {
	content := "drug_name,molecular_weight,logP,pKa,bioavailability,strength_mg_per_unit,formulation_concentration\n" +
		"Warfarin,308.33,2.7,5.1,0.99,5,0\n" +
		"Prazosin,383.4,1.3,6.5,0.6,1,\n" +
		"Prazosin,383.4,1.3,6.5,0.9,2,\n" +
		"Broken,abc,1,1,1,1,1\n"
	path := writeFile(t, t.TempDir(), "reference.csv", []byte(content))

	records, err := ParseReferenceCSV(path)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("Expected 3 records (duplicates kept), got %d", len(records))
	}
	if records[0].Name != "WARFARIN" || records[0].Source != entities.SourceReference {
		t.Errorf("Unexpected first record: %+v", records[0])
	}
	if records[0].HasConcentration() {
		t.Error("Expected zero concentration to mean no concentration")
	}
}

func writeReferenceDB(t *testing.T, path string) {
	t.Helper()
	ctx := context.Background()

	db, err := NewDB("file:"+path, false)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	if _, err := db.NewCreateTable().Model((*ReferenceRow)(nil)).Exec(ctx); err != nil {
		t.Fatalf("Failed to create table: %v", err)
	}
	conc := 7.5
	rows := []ReferenceRow{
		{DrugName: "Diphenhydramine", MolecularWeight: 255.35, LogP: 3.27, PKa: 8.98, Bioavailability: 0.72, StrengthMgPerUnit: 25, FormulationConcentration: &conc},
		{DrugName: "Loratadine", MolecularWeight: 382.9, LogP: 5.2, PKa: 5.0, Bioavailability: 0.4, StrengthMgPerUnit: 10},
		{DrugName: "Invalid", StrengthMgPerUnit: 0},
	}
	if _, err := db.NewInsert().Model(&rows).Exec(ctx); err != nil {
		t.Fatalf("Failed to insert rows: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("Failed to close database: %v", err)
	}
}

func TestParseReferenceDB(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "reference.db")
	writeReferenceDB(t, path)

	records, err := ParseReferenceTable(ctx, path, false)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Expected 2 valid records, got %d", len(records))
	}
	if records[0].Name != "DIPHENHYDRAMINE" || records[0].Formulation != entities.FormulationLiquid {
		t.Errorf("Expected liquid DIPHENHYDRAMINE, got %+v", records[0])
	}
	if records[1].HasConcentration() {
		t.Error("Expected NULL concentration to mean none")
	}
}

func TestIsDatabasePath(t *testing.T) {
	testCases := map[string]bool{
		"files/reference.db":     true,
		"files/reference.SQLITE": true,
		"files/reference.csv":    false,
		"reference":              false,
	}
	for path, expected := range testCases {
		if got := IsDatabasePath(path); got != expected {
			t.Errorf("IsDatabasePath(%q): expected %v, got %v", path, expected, got)
		}
	}
}

func TestLoadAll(t *testing.T) {
	dir := t.TempDir()
	sources := Sources{
		CuratedPath:     writeFile(t, dir, "otc.tsv", []byte(curatedHeader+"ASPIRIN\t180.16\t1.19\t3.5\t0.7\t325\t\ttablet\n")),
		ReferencePath:   writeFile(t, dir, "reference.csv", []byte("drug_name,molecular_weight,logP,pKa,bioavailability,strength_mg_per_unit,formulation_concentration\nWARFARIN,308.33,2.7,5.1,0.99,5,\n")),
		IndicationsPath: filepath.Join(dir, "absent.tsv"),
	}

	tables, err := NewCatalogParser(sources).LoadCatalog(context.Background())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(tables.Curated) != 1 || len(tables.Reference) != 1 {
		t.Errorf("Expected 1 curated and 1 reference record, got %d and %d", len(tables.Curated), len(tables.Reference))
	}
	if len(tables.Indications) != 0 {
		t.Errorf("Expected no indications, got %d", len(tables.Indications))
	}

	sources.CuratedPath = filepath.Join(dir, "nope.tsv")
	if _, err := LoadAll(context.Background(), sources); err == nil {
		t.Error("Expected error for missing curated table")
	}
}

func TestLoadAllDebugLogsReferenceQueries(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "reference.db")
	writeReferenceDB(t, dbPath)

	var queries bytes.Buffer
	original := queryLogWriter
	queryLogWriter = &queries
	t.Cleanup(func() { queryLogWriter = original })

	sources := Sources{
		CuratedPath:     writeFile(t, dir, "otc.tsv", []byte(curatedHeader+"ASPIRIN\t180.16\t1.19\t3.5\t0.7\t325\t\ttablet\n")),
		ReferencePath:   dbPath,
		IndicationsPath: filepath.Join(dir, "absent.tsv"),
	}

	if _, err := LoadAll(context.Background(), sources); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if queries.Len() != 0 {
		t.Errorf("Expected no query log without Debug, got %q", queries.String())
	}

	sources.Debug = true
	tables, err := LoadAll(context.Background(), sources)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(tables.Reference) != 2 {
		t.Errorf("Expected 2 reference records, got %d", len(tables.Reference))
	}
	if !strings.Contains(queries.String(), "reference_drugs") {
		t.Errorf("Expected the reference query to be logged, got %q", queries.String())
	}
}
