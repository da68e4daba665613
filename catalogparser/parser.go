// Package catalogparser loads the drug catalog tables from disk: the curated
// OTC table (TSV), the bulk reference table (SQLite or CSV export) and the
// indications table (TSV).
package catalogparser

import (
	"context"
	"fmt"
	"time"

	"github.com/absorpgen/absorpgen-api/catalogparser/entities"
	"github.com/absorpgen/absorpgen-api/interfaces"
	"github.com/absorpgen/absorpgen-api/logging"
	"golang.org/x/sync/errgroup"
)

// Compile-time check to ensure CatalogParser implements CatalogLoader interface
var _ interfaces.CatalogLoader = (*CatalogParser)(nil)

// Sources lists the files making up one catalog
type Sources struct {
	CuratedPath     string
	ReferencePath   string
	IndicationsPath string
	// Debug logs every query against the reference database
	Debug           bool
}

// CatalogParser implements the CatalogLoader interface
type CatalogParser struct {
	sources Sources
}

// NewCatalogParser creates a parser reading the given sources
func NewCatalogParser(sources Sources) *CatalogParser {
	return &CatalogParser{sources: sources}
}

// LoadCatalog implements the CatalogLoader interface
func (p *CatalogParser) LoadCatalog(ctx context.Context) (*entities.CatalogTables, error) {
	return LoadAll(ctx, p.sources)
}

// LoadAll parses the three tables concurrently.
// The curated and reference tables are required; indications are optional.
func LoadAll(ctx context.Context, sources Sources) (*entities.CatalogTables, error) {
	start := time.Now()
	tables := &entities.CatalogTables{}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		curated, err := ParseCuratedTable(sources.CuratedPath)
		if err != nil {
			return fmt.Errorf("curated table: %w", err)
		}
		tables.Curated = curated
		return nil
	})

	g.Go(func() error {
		if sources.ReferencePath == "" {
			return nil
		}
		reference, err := ParseReferenceTable(gctx, sources.ReferencePath, sources.Debug)
		if err != nil {
			return fmt.Errorf("reference table: %w", err)
		}
		tables.Reference = reference
		return nil
	})

	g.Go(func() error {
		indications, err := ParseIndications(sources.IndicationsPath)
		if err != nil {
			return fmt.Errorf("indications table: %w", err)
		}
		tables.Indications = indications
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	logging.Info("Catalog tables loaded",
		"curated", len(tables.Curated),
		"reference", len(tables.Reference),
		"indications", len(tables.Indications),
		"duration_ms", time.Since(start).Milliseconds())

	return tables, nil
}
