// Package scheduler reloads the drug catalog on a daily schedule and swaps
// the new snapshot into the data store. Other file-backed tables can hook
// into the same reload cycle.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/absorpgen/absorpgen-api/catalog"
	"github.com/absorpgen/absorpgen-api/interfaces"
	"github.com/absorpgen/absorpgen-api/logging"
	"github.com/absorpgen/absorpgen-api/metrics"
	"github.com/absorpgen/absorpgen-api/validation"
	"github.com/go-co-op/gocron"
)

// Compile-time check to ensure Scheduler implements Scheduler interface
var _ interfaces.Scheduler = (*Scheduler)(nil)

// DefaultReloadAt is the daily reload time when none is configured
const DefaultReloadAt = "06:00"

const loadTimeout = 5 * time.Minute

// ReloadHook refreshes a dependent table after a catalog reload
type ReloadHook struct {
	Name   string
	Reload func() error
}

// Scheduler handles catalog reloads and staleness monitoring
type Scheduler struct {
	dataStore interfaces.DataStore
	loader    interfaces.CatalogLoader
	validator interfaces.DataValidator
	reloadAt  string
	hooks     []ReloadHook
	scheduler *gocron.Scheduler
	stop      chan struct{}
}

// NewScheduler creates a scheduler. reloadAt is a ";" separated list of HH:MM times.
func NewScheduler(dataStore interfaces.DataStore, loader interfaces.CatalogLoader, reloadAt string) *Scheduler {
	if reloadAt == "" {
		reloadAt = DefaultReloadAt
	}
	return &Scheduler{
		dataStore: dataStore,
		loader:    loader,
		validator: validation.NewDataValidator(),
		reloadAt:  reloadAt,
		scheduler: gocron.NewScheduler(time.Local),
		stop:      make(chan struct{}),
	}
}

// AddReloadHook registers a table to refresh after each successful catalog reload
func (s *Scheduler) AddReloadHook(hook ReloadHook) {
	s.hooks = append(s.hooks, hook)
}

// Start performs the initial load, then schedules the daily reloads
func (s *Scheduler) Start() error {
	if err := s.updateData(); err != nil {
		logging.Error("Failed to perform initial catalog load", "error", err)
		return fmt.Errorf("initial catalog load failed: %w", err)
	}

	_, err := s.scheduler.Every(1).Days().At(s.reloadAt).Do(func() {
		if err := s.updateData(); err != nil {
			logging.Error("Failed to reload catalog", "error", err)
		}
	})
	if err != nil {
		logging.Error("Failed to schedule catalog reloads", "error", err)
		return fmt.Errorf("failed to schedule catalog reloads: %w", err)
	}

	s.scheduler.StartAsync()
	s.startHealthMonitoring()

	logging.Info("Catalog reloads scheduled", "at", s.reloadAt)
	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
	select {
	case <-s.stop:
	default:
		close(s.stop)
	}
}

// updateData loads all catalog tables and swaps in a new snapshot.
// The previous snapshot stays live if loading fails.
func (s *Scheduler) updateData() error {
	if !s.dataStore.BeginUpdate() {
		logging.Info("Catalog reload already in progress, skipping...")
		metrics.CatalogReloadsTotal.WithLabelValues("skipped").Inc()
		return nil
	}
	defer s.dataStore.EndUpdate()

	logging.Info("Starting catalog reload", "at", time.Now().Format(time.RFC3339))
	start := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
	defer cancel()

	tables, err := s.loader.LoadCatalog(ctx)
	if err != nil {
		metrics.CatalogReloadsTotal.WithLabelValues("failure").Inc()
		return fmt.Errorf("failed to load catalog: %w", err)
	}
	if len(tables.Curated) == 0 && len(tables.Reference) == 0 {
		metrics.CatalogReloadsTotal.WithLabelValues("failure").Inc()
		return fmt.Errorf("catalog is empty")
	}

	s.logDataQuality(s.validator.ReportDataQuality(tables))

	snapshot := catalog.NewSnapshot(tables)
	s.dataStore.UpdateData(snapshot)

	stats := snapshot.Stats()
	metrics.CatalogRecords.WithLabelValues("curated").Set(float64(stats.CuratedCount))
	metrics.CatalogRecords.WithLabelValues("reference").Set(float64(stats.ReferenceCount))
	metrics.CatalogRecords.WithLabelValues("indications").Set(float64(stats.IndicationCount))
	metrics.CatalogReloadsTotal.WithLabelValues("success").Inc()

	for _, hook := range s.hooks {
		if err := hook.Reload(); err != nil {
			logging.Warn("Reload hook failed, keeping previous table", "hook", hook.Name, "error", err)
		}
	}

	logging.Info("Catalog reload completed",
		"duration", time.Since(start).String(),
		"curated", stats.CuratedCount,
		"reference", stats.ReferenceCount,
		"indications", stats.IndicationCount)

	return nil
}

func (s *Scheduler) logDataQuality(report *interfaces.DataQualityReport) {
	if len(report.DuplicateCuratedNames) > 0 {
		logging.Warn("Duplicate curated drug names detected",
			"total", len(report.DuplicateCuratedNames),
			"names", report.DuplicateCuratedNames,
		)
	}
	if len(report.ShadowedReferenceNames) > 0 {
		logging.Debug("Reference records shadowed by curated records",
			"total", len(report.ShadowedReferenceNames),
		)
	}
	if report.LiquidsWithoutConcentration > 0 {
		logging.Warn("Liquid drugs without concentration", "count", report.LiquidsWithoutConcentration)
	}
	if report.OrphanIndications > 0 {
		logging.Warn("Indications for drugs not in the catalog", "count", report.OrphanIndications)
	}
	if report.DrugsWithoutIndications > 0 {
		logging.Info("Drugs without indications", "count", report.DrugsWithoutIndications)
	}
}

// startHealthMonitoring warns when the catalog has gone stale
func (s *Scheduler) startHealthMonitoring() {
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()

		for {
			select {
			case <-s.stop:
				return
			case <-ticker.C:
				lastUpdate := s.dataStore.GetLastUpdated()
				if time.Since(lastUpdate) > 25*time.Hour {
					logging.Warn("Catalog hasn't been reloaded in over 25 hours")
				}
			}
		}
	}()
}
