// Package interfaces defines core abstractions for the dosing API
// to improve testability, maintainability, and separation of concerns.
package interfaces

import (
	"context"
	"net/http"
	"time"

	"github.com/absorpgen/absorpgen-api/catalog"
	"github.com/absorpgen/absorpgen-api/catalogparser/entities"
)

// DataQualityReport provides a summary of catalog data quality issues
type DataQualityReport struct {
	DuplicateCuratedNames       []string
	ShadowedReferenceNames      []string // reference names hidden by a curated record
	DrugsWithoutIndications     int
	LiquidsWithoutConcentration int
	OrphanIndications           int // indication rows naming a drug absent from both tables
}

// DataStore defines the contract for catalog storage.
// It provides thread-safe access to the current catalog snapshot
// with atomic swaps for zero-downtime reloads.
type DataStore interface {
	// Data retrieval methods
	GetSnapshot() *catalog.Snapshot
	GetLastUpdated() time.Time
	IsUpdating() bool
	GetServerStartTime() time.Time

	// Data update methods
	UpdateData(snapshot *catalog.Snapshot)
	BeginUpdate() bool
	EndUpdate()
}

// CatalogLoader defines the contract for reading the catalog tables from their sources
type CatalogLoader interface {
	LoadCatalog(ctx context.Context) (*entities.CatalogTables, error)
}

// Recommender defines the contract of the dosing decision engine
type Recommender interface {
	// Recommend runs the full pipeline for one request
	Recommend(ctx context.Context, req entities.RecommendationRequest) (*entities.PredictionResult, error)

	// ResolveDrug resolves a drug or brand name against the current catalog
	ResolveDrug(ctx context.Context, name string) (entities.DrugRecord, error)

	// CheckSafety runs the safety rules for a drug without a prediction
	CheckSafety(drug string, medications, allergies, conditions []string) []entities.Warning
}

// BrandResolver defines the contract for brand/generic alias resolution.
// Both calls are advisory and never fail.
type BrandResolver interface {
	MostCommonBrand(ctx context.Context, generic string) string
	GenericFromBrand(ctx context.Context, brand string) string
}

// Scheduler defines the contract for job scheduling.
// It manages automated catalog reloads.
type Scheduler interface {
	// Lifecycle management
	Start() error
	Stop()
}

// HTTPHandler defines the contract for HTTP request handlers.
// It provides a consistent interface for all API endpoints.
type HTTPHandler interface {
	// V1 handlers
	ServeRecommendationV1(w http.ResponseWriter, r *http.Request)
	ServeDrugV1(w http.ResponseWriter, r *http.Request)
	ServeSafetyV1(w http.ResponseWriter, r *http.Request)

	// This will stay in all versions
	HealthCheck(w http.ResponseWriter, r *http.Request)
}

// HealthChecker defines the contract for health check functionality.
// It provides system health monitoring and reporting.
type HealthChecker interface {
	// HealthCheck returns the health status, its details and the HTTP status to report
	HealthCheck() (status string, details map[string]any, httpStatus int)

	// CalculateNextUpdate returns the next scheduled reload time
	CalculateNextUpdate() time.Time
}

// DataValidator defines the contract for data validation operations.
// It ensures catalog integrity and sanitizes user input.
type DataValidator interface {
	// ValidateDrug checks if a catalog record is valid
	ValidateDrug(d *entities.DrugRecord) error

	// ReportDataQuality generates a data quality report with all issues found
	ReportDataQuality(tables *entities.CatalogTables) *DataQualityReport

	// ValidateInput validates user input strings
	ValidateInput(input string) error

	// ValidateList validates a list of free-text input strings
	ValidateList(inputs []string) error
}
