package entities

// IndicationRow links a drug to one condition it treats.
// The table keeps one row per (drug, condition) pair; repeated rows are
// meaningful for symptom search, which ranks drugs by match count.
type IndicationRow struct {
	DrugName  string `json:"drugName"`
	Condition string `json:"condition"`
}

// CatalogTables is the raw output of one catalog load, before indexing
type CatalogTables struct {
	Curated     []DrugRecord
	Reference   []DrugRecord
	Indications []IndicationRow
}
