// Package data provides thread-safe storage of the drug catalog.
// The DataContainer swaps whole catalog snapshots atomically, so readers
// never observe a half-loaded catalog.
package data

import (
	"sync/atomic"
	"time"

	"github.com/absorpgen/absorpgen-api/catalog"
	"github.com/absorpgen/absorpgen-api/interfaces"
	"github.com/absorpgen/absorpgen-api/logging"
)

// Compile-time check to ensure DataContainer implements DataStore
var _ interfaces.DataStore = (*DataContainer)(nil)

// DataContainer holds the current catalog snapshot for zero-downtime reloads
type DataContainer struct {
	snapshot        atomic.Pointer[catalog.Snapshot]
	lastUpdated     atomic.Value // time.Time
	updating        atomic.Bool
	serverStartTime atomic.Value // time.Time
}

// NewDataContainer creates a new DataContainer holding an empty catalog
func NewDataContainer() *DataContainer {
	dc := &DataContainer{}
	dc.snapshot.Store(catalog.EmptySnapshot())
	dc.lastUpdated.Store(time.Time{})
	dc.serverStartTime.Store(time.Time{}) // Initialize with zero value
	return dc
}

// GetSnapshot returns the current catalog snapshot.
// Callers should fetch it once per request and keep using that value.
func (dc *DataContainer) GetSnapshot() *catalog.Snapshot {
	if s := dc.snapshot.Load(); s != nil {
		return s
	}

	logging.Warn("Catalog snapshot is empty or invalid")
	return catalog.EmptySnapshot()
}

// GetLastUpdated returns the timestamp of the last catalog swap
func (dc *DataContainer) GetLastUpdated() time.Time {
	if v := dc.lastUpdated.Load(); v != nil {
		if lastUpdated, ok := v.(time.Time); ok {
			return lastUpdated
		}
	}

	logging.Warn("Could not get the last updated value")
	return time.Time{}
}

// IsUpdating returns true if a catalog reload is currently in progress
func (dc *DataContainer) IsUpdating() bool {
	return dc.updating.Load()
}

// SetServerStartTime sets the server start time
func (dc *DataContainer) SetServerStartTime(startTime time.Time) {
	dc.serverStartTime.Store(startTime)
}

// GetServerStartTime returns the server start time
func (dc *DataContainer) GetServerStartTime() time.Time {
	if v := dc.serverStartTime.Load(); v != nil {
		if startTime, ok := v.(time.Time); ok {
			return startTime
		}
	}

	logging.Warn("Could not get the server start time value")
	return time.Time{}
}

// UpdateData atomically replaces the catalog snapshot.
// A nil snapshot is ignored and the previous catalog stays in place.
func (dc *DataContainer) UpdateData(snapshot *catalog.Snapshot) {
	if snapshot == nil {
		logging.Warn("Ignoring nil catalog snapshot")
		return
	}

	// Atomic swap (zero downtime replacement)
	dc.snapshot.Store(snapshot)
	dc.lastUpdated.Store(time.Now())
}

// BeginUpdate marks the start of a catalog reload
// Returns true if update can proceed, false if another update is in progress
func (dc *DataContainer) BeginUpdate() bool {
	return dc.updating.CompareAndSwap(false, true)
}

// EndUpdate marks the end of a catalog reload
func (dc *DataContainer) EndUpdate() {
	dc.updating.Store(false)
}
