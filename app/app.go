// Package app wires the dosing components from a Config. The HTTP server
// and the recommend CLI share it so both run the same pipeline.
package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/absorpgen/absorpgen-api/alias"
	"github.com/absorpgen/absorpgen-api/brandcache"
	"github.com/absorpgen/absorpgen-api/catalog"
	"github.com/absorpgen/absorpgen-api/catalogparser"
	"github.com/absorpgen/absorpgen-api/config"
	"github.com/absorpgen/absorpgen-api/data"
	"github.com/absorpgen/absorpgen-api/engine"
	"github.com/absorpgen/absorpgen-api/features"
	"github.com/absorpgen/absorpgen-api/logging"
	"github.com/absorpgen/absorpgen-api/predictor"
	"github.com/absorpgen/absorpgen-api/rxnorm"
	"github.com/absorpgen/absorpgen-api/safety"
)

// App holds the long-lived components of one process
type App struct {
	Config     *config.Config
	Store      *data.DataContainer
	Loader     *catalogparser.CatalogParser
	Model      *predictor.Adapter
	Safety     *safety.Checker
	RxNorm     *rxnorm.Client
	BrandCache *brandcache.Cache
	Brands     *alias.Resolver
	Engine     *engine.Engine
}

// New builds every component. It fails when the model artifact cannot be
// loaded, when its feature schema cannot be produced, or when a safety
// table is corrupt. The catalog itself is not loaded here.
func New(cfg *config.Config) (*App, error) {
	model, err := predictor.LoadArtifact(cfg.ModelArtifactPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load model: %w", err)
	}
	if err := features.ValidateSchema(model.Schema()); err != nil {
		return nil, fmt.Errorf("model schema not supported: %w", err)
	}

	checker, err := safety.NewChecker(cfg.SafetyDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load safety tables: %w", err)
	}

	cache := brandcache.New(cfg.BrandCachePath)
	cache.Load()

	client := rxnorm.NewClient(rxnorm.Options{
		BaseURL: cfg.RxNormBaseURL,
		Timeout: cfg.RxNormTimeout,
		Rate:    cfg.RxNormRate,
	})
	brands := alias.NewResolver(client, cache)

	store := data.NewDataContainer()
	store.SetServerStartTime(time.Now())

	loader := catalogparser.NewCatalogParser(catalogparser.Sources{
		CuratedPath:     cfg.CuratedCatalogPath,
		ReferencePath:   cfg.ReferenceCatalogPath,
		IndicationsPath: cfg.IndicationsPath,
		Debug:           strings.EqualFold(cfg.LogLevel, "debug"),
	})

	return &App{
		Config:     cfg,
		Store:      store,
		Loader:     loader,
		Model:      model,
		Safety:     checker,
		RxNorm:     client,
		BrandCache: cache,
		Brands:     brands,
		Engine:     engine.New(store, model, checker, brands),
	}, nil
}

// LoadCatalogOnce reads the catalog tables and installs a snapshot.
// The server uses the scheduler instead; this is the one-shot path.
func (a *App) LoadCatalogOnce(ctx context.Context) error {
	tables, err := a.Loader.LoadCatalog(ctx)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}
	snapshot := catalog.NewSnapshot(tables)
	stats := snapshot.Stats()
	if stats.CuratedCount+stats.ReferenceCount == 0 {
		return fmt.Errorf("catalog is empty")
	}
	a.Store.UpdateData(snapshot)

	logging.Info("Catalog loaded",
		"curated", stats.CuratedCount,
		"reference", stats.ReferenceCount,
		"indications", stats.IndicationCount)
	return nil
}
