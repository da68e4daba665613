package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/absorpgen/absorpgen-api/catalog"
	"github.com/absorpgen/absorpgen-api/catalogparser/entities"
	"github.com/absorpgen/absorpgen-api/interfaces"
	"github.com/absorpgen/absorpgen-api/logging"
)

func init() {
	logging.InitLogger(logging.Options{})
}

// mockSchedulerDataStore for testing scheduler
type mockSchedulerDataStore struct {
	mu          sync.Mutex
	snapshot    *catalog.Snapshot
	lastUpdated time.Time
	updating    bool
	updateCount int
}

func (m *mockSchedulerDataStore) GetSnapshot() *catalog.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.snapshot == nil {
		return catalog.EmptySnapshot()
	}
	return m.snapshot
}

func (m *mockSchedulerDataStore) GetLastUpdated() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastUpdated
}

func (m *mockSchedulerDataStore) IsUpdating() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updating
}

func (m *mockSchedulerDataStore) GetServerStartTime() time.Time {
	return time.Time{}
}

func (m *mockSchedulerDataStore) UpdateData(snapshot *catalog.Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshot = snapshot
	m.lastUpdated = time.Now()
	m.updateCount++
}

func (m *mockSchedulerDataStore) BeginUpdate() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updating {
		return false
	}
	m.updating = true
	return true
}

func (m *mockSchedulerDataStore) EndUpdate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updating = false
}

// mockCatalogLoader for testing scheduler
type mockCatalogLoader struct {
	loadCount  int
	shouldFail bool
	tables     *entities.CatalogTables
}

func (m *mockCatalogLoader) LoadCatalog(ctx context.Context) (*entities.CatalogTables, error) {
	m.loadCount++
	if m.shouldFail {
		return nil, errors.New("load failed")
	}
	if m.tables != nil {
		return m.tables, nil
	}
	return &entities.CatalogTables{
		Curated: []entities.DrugRecord{
			{Name: "ACETAMINOPHEN", StrengthMgPerUnit: 500, Bioavailability: 0.88, Formulation: entities.FormulationTablet},
			{Name: "IBUPROFEN", StrengthMgPerUnit: 200, Bioavailability: 0.8, Formulation: entities.FormulationTablet},
		},
		Indications: []entities.IndicationRow{{DrugName: "IBUPROFEN", Condition: "Headache"}},
	}, nil
}

var (
	_ interfaces.DataStore     = (*mockSchedulerDataStore)(nil)
	_ interfaces.CatalogLoader = (*mockCatalogLoader)(nil)
)

func TestScheduler_SuccessfulUpdate(t *testing.T) {
	mockDataStore := &mockSchedulerDataStore{}
	mockLoader := &mockCatalogLoader{}

	scheduler := NewScheduler(mockDataStore, mockLoader, "")
	defer scheduler.Stop()

	if err := scheduler.Start(); err != nil {
		t.Fatalf("Unexpected error during start: %v", err)
	}

	if mockDataStore.updateCount != 1 {
		t.Errorf("Expected 1 update, got %d", mockDataStore.updateCount)
	}
	if mockLoader.loadCount != 1 {
		t.Errorf("Expected 1 load call, got %d", mockLoader.loadCount)
	}

	stats := mockDataStore.GetSnapshot().Stats()
	if stats.CuratedCount != 2 {
		t.Errorf("Expected 2 curated drugs, got %d", stats.CuratedCount)
	}
	if !mockDataStore.GetSnapshot().Contains("IBUPROFEN") {
		t.Error("Expected IBUPROFEN in the snapshot")
	}
}

func TestScheduler_LoadFailure(t *testing.T) {
	mockDataStore := &mockSchedulerDataStore{}
	mockLoader := &mockCatalogLoader{shouldFail: true}

	scheduler := NewScheduler(mockDataStore, mockLoader, DefaultReloadAt)

	if err := scheduler.Start(); err == nil {
		t.Error("Expected error during start but got none")
	}
	if mockDataStore.updateCount != 0 {
		t.Errorf("Expected 0 updates due to failure, got %d", mockDataStore.updateCount)
	}
	if mockDataStore.IsUpdating() {
		t.Error("Expected update flag released after failure")
	}
}

func TestScheduler_EmptyCatalogRejected(t *testing.T) {
	mockDataStore := &mockSchedulerDataStore{}
	mockLoader := &mockCatalogLoader{tables: &entities.CatalogTables{}}

	scheduler := NewScheduler(mockDataStore, mockLoader, DefaultReloadAt)

	if err := scheduler.updateData(); err == nil {
		t.Error("Expected error for an empty catalog")
	}
	if mockDataStore.updateCount != 0 {
		t.Errorf("Expected previous snapshot kept, got %d updates", mockDataStore.updateCount)
	}
}

func TestScheduler_ConcurrentUpdatePrevention(t *testing.T) {
	mockDataStore := &mockSchedulerDataStore{}
	mockLoader := &mockCatalogLoader{}

	scheduler := NewScheduler(mockDataStore, mockLoader, DefaultReloadAt)
	defer scheduler.Stop()

	// Simulate an update in progress
	mockDataStore.BeginUpdate()

	if err := scheduler.Start(); err != nil {
		t.Errorf("Unexpected error during start with concurrent update: %v", err)
	}
	if mockDataStore.updateCount != 0 {
		t.Errorf("Expected 0 updates due to concurrent update, got %d", mockDataStore.updateCount)
	}
	if mockLoader.loadCount != 0 {
		t.Errorf("Expected loader not called, got %d calls", mockLoader.loadCount)
	}
}

func TestScheduler_UpdateReplacesSnapshot(t *testing.T) {
	mockDataStore := &mockSchedulerDataStore{}
	mockLoader := &mockCatalogLoader{}

	scheduler := NewScheduler(mockDataStore, mockLoader, DefaultReloadAt)
	if err := scheduler.updateData(); err != nil {
		t.Fatalf("First update failed: %v", err)
	}
	first := mockDataStore.GetSnapshot()

	mockLoader.tables = &entities.CatalogTables{
		Curated: []entities.DrugRecord{
			{Name: "NAPROXEN", StrengthMgPerUnit: 220, Bioavailability: 0.95, Formulation: entities.FormulationTablet},
		},
	}
	if err := scheduler.updateData(); err != nil {
		t.Fatalf("Second update failed: %v", err)
	}

	second := mockDataStore.GetSnapshot()
	if second.Contains("IBUPROFEN") {
		t.Error("Old drugs should be replaced")
	}
	if !second.Contains("NAPROXEN") {
		t.Error("New drug should exist")
	}
	// readers holding the first snapshot are unaffected
	if !first.Contains("IBUPROFEN") {
		t.Error("Previous snapshot should be unchanged")
	}
}

func TestScheduler_ReloadHooks(t *testing.T) {
	mockDataStore := &mockSchedulerDataStore{}
	scheduler := NewScheduler(mockDataStore, &mockCatalogLoader{}, DefaultReloadAt)

	var calls []string
	scheduler.AddReloadHook(ReloadHook{Name: "failing", Reload: func() error {
		calls = append(calls, "failing")
		return errors.New("bad file")
	}})
	scheduler.AddReloadHook(ReloadHook{Name: "safety", Reload: func() error {
		calls = append(calls, "safety")
		return nil
	}})

	if err := scheduler.updateData(); err != nil {
		t.Fatalf("Hook failures should not fail the reload, got %v", err)
	}
	if len(calls) != 2 || calls[0] != "failing" || calls[1] != "safety" {
		t.Errorf("Expected both hooks in order, got %v", calls)
	}

	calls = nil
	failing := NewScheduler(mockDataStore, &mockCatalogLoader{shouldFail: true}, DefaultReloadAt)
	failing.AddReloadHook(ReloadHook{Name: "safety", Reload: func() error {
		calls = append(calls, "safety")
		return nil
	}})
	_ = failing.updateData()
	if len(calls) != 0 {
		t.Errorf("Expected no hooks after a failed reload, got %v", calls)
	}
}

func TestScheduler_InvalidReloadTime(t *testing.T) {
	scheduler := NewScheduler(&mockSchedulerDataStore{}, &mockCatalogLoader{}, "25:99")
	defer scheduler.Stop()

	if err := scheduler.Start(); err == nil {
		t.Error("Expected error for an invalid reload time")
	}
}

func TestScheduler_StopIsIdempotent(t *testing.T) {
	scheduler := NewScheduler(&mockSchedulerDataStore{}, &mockCatalogLoader{}, DefaultReloadAt)
	if err := scheduler.Start(); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	scheduler.Stop()
	scheduler.Stop()
}
