// Package health reports catalog freshness and the state of outbound dependencies.
package health

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/absorpgen/absorpgen-api/interfaces"
	"github.com/absorpgen/absorpgen-api/rxnorm"
)

// BreakerReporter exposes the RxNorm circuit breaker state
type BreakerReporter interface {
	State() rxnorm.State
}

// SizeReporter exposes the number of cached entries
type SizeReporter interface {
	Len() int
}

// Dependencies are optional components included in the health report
type Dependencies struct {
	Breaker    BreakerReporter
	BrandCache SizeReporter
	// ReloadAt is the scheduler's ";" separated list of HH:MM reload times
	ReloadAt string
}

// HealthCheckerImpl implements the interfaces.HealthChecker interface
type HealthCheckerImpl struct {
	dataStore interfaces.DataStore
	deps      Dependencies
}

// NewHealthChecker creates a new health checker with injected dependencies
func NewHealthChecker(dataStore interfaces.DataStore, deps Dependencies) interfaces.HealthChecker {
	return &HealthCheckerImpl{
		dataStore: dataStore,
		deps:      deps,
	}
}

// HealthCheck returns the health status used by the /health endpoint
func (h *HealthCheckerImpl) HealthCheck() (status string, data map[string]any, httpStatus int) {
	stats := h.dataStore.GetSnapshot().Stats()
	lastUpdate := h.dataStore.GetLastUpdated()
	isUpdating := h.dataStore.IsUpdating()

	dataAge := time.Since(lastUpdate)

	breaker := rxnorm.StateClosed
	if h.deps.Breaker != nil {
		breaker = h.deps.Breaker.State()
	}

	switch {
	case stats.CuratedCount+stats.ReferenceCount == 0:
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable

	case dataAge > 48*time.Hour:
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable

	case dataAge > 26*time.Hour:
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable

	case isUpdating && dataAge > 6*time.Hour:
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable

	// Brand lookups fall back to generic names, so recommendations still work
	case breaker == rxnorm.StateOpen:
		status = "degraded"
		httpStatus = http.StatusOK

	default:
		status = "healthy"
		httpStatus = http.StatusOK
	}

	data = map[string]any{
		"last_update":    lastUpdate.Format(time.RFC3339),
		"data_age_hours": math.Round(dataAge.Hours()*10) / 10,
		"curated":        stats.CuratedCount,
		"reference":      stats.ReferenceCount,
		"indications":    stats.IndicationCount,
		"is_updating":    isUpdating,
		"rxnorm_breaker": string(breaker),
		"next_update":    h.CalculateNextUpdate().Format(time.RFC3339),
	}
	if h.deps.BrandCache != nil {
		data["brand_cache_entries"] = h.deps.BrandCache.Len()
	}

	return status, data, httpStatus
}

// CalculateNextUpdate returns the next scheduled catalog reload
func (h *HealthCheckerImpl) CalculateNextUpdate() time.Time {
	return nextReload(time.Now(), h.deps.ReloadAt)
}

// nextReload returns the first reload time strictly after now.
// Unparseable entries are ignored; with none left it falls back to 06:00.
func nextReload(now time.Time, reloadAt string) time.Time {
	var next time.Time
	for _, entry := range strings.Split(reloadAt, ";") {
		hour, minute, ok := parseClock(entry)
		if !ok {
			continue
		}
		candidate := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
		if !candidate.After(now) {
			candidate = candidate.AddDate(0, 0, 1)
		}
		if next.IsZero() || candidate.Before(next) {
			next = candidate
		}
	}

	if next.IsZero() {
		return nextReload(now, "06:00")
	}
	return next
}

func parseClock(s string) (hour, minute int, ok bool) {
	h, m, found := strings.Cut(strings.TrimSpace(s), ":")
	if !found {
		return 0, 0, false
	}
	hour, err := strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, false
	}
	minute, err = strconv.Atoi(m)
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, false
	}
	return hour, minute, true
}
