package health

import (
	"net/http"
	"testing"
	"time"

	"github.com/absorpgen/absorpgen-api/catalog"
	"github.com/absorpgen/absorpgen-api/catalogparser/entities"
	"github.com/absorpgen/absorpgen-api/rxnorm"
)

// MockHealthDataStore for testing
type MockHealthDataStore struct {
	snapshot    *catalog.Snapshot
	lastUpdated time.Time
	isUpdating  bool
}

func (m *MockHealthDataStore) GetSnapshot() *catalog.Snapshot {
	if m.snapshot == nil {
		return catalog.EmptySnapshot()
	}
	return m.snapshot
}

func (m *MockHealthDataStore) GetLastUpdated() time.Time {
	return m.lastUpdated
}

func (m *MockHealthDataStore) IsUpdating() bool {
	return m.isUpdating
}

func (m *MockHealthDataStore) GetServerStartTime() time.Time {
	return time.Time{}
}

func (m *MockHealthDataStore) UpdateData(snapshot *catalog.Snapshot) {
	m.snapshot = snapshot
}

func (m *MockHealthDataStore) BeginUpdate() bool {
	return true
}

func (m *MockHealthDataStore) EndUpdate() {}

type fixedBreaker rxnorm.State

func (b fixedBreaker) State() rxnorm.State {
	return rxnorm.State(b)
}

type fixedSize int

func (s fixedSize) Len() int {
	return int(s)
}

func loadedSnapshot() *catalog.Snapshot {
	return catalog.NewSnapshot(&entities.CatalogTables{
		Curated: []entities.DrugRecord{
			{Name: "ACETAMINOPHEN", StrengthMgPerUnit: 500, Bioavailability: 0.88, Formulation: entities.FormulationTablet},
			{Name: "IBUPROFEN", StrengthMgPerUnit: 200, Bioavailability: 0.8, Formulation: entities.FormulationTablet},
		},
		Reference: []entities.DrugRecord{
			{Name: "WARFARIN", StrengthMgPerUnit: 5, Bioavailability: 0.99, Formulation: entities.FormulationTablet},
		},
		Indications: []entities.IndicationRow{{DrugName: "IBUPROFEN", Condition: "Headache"}},
	})
}

func TestNewHealthChecker(t *testing.T) {
	healthChecker := NewHealthChecker(&MockHealthDataStore{}, Dependencies{})

	if healthChecker == nil {
		t.Fatal("NewHealthChecker returned nil")
	}
	if _, ok := healthChecker.(*HealthCheckerImpl); !ok {
		t.Error("NewHealthChecker should return *HealthCheckerImpl")
	}
}

func TestHealthCheck_Healthy(t *testing.T) {
	mockDataStore := &MockHealthDataStore{
		snapshot:    loadedSnapshot(),
		lastUpdated: time.Now().Add(-1 * time.Hour),
	}

	healthChecker := NewHealthChecker(mockDataStore, Dependencies{
		Breaker:    fixedBreaker(rxnorm.StateClosed),
		BrandCache: fixedSize(4),
	})
	status, details, httpStatus := healthChecker.HealthCheck()

	if status != "healthy" {
		t.Errorf("Expected status 'healthy', got '%s'", status)
	}
	if httpStatus != http.StatusOK {
		t.Errorf("Expected HTTP status 200, got %d", httpStatus)
	}

	for _, key := range []string{"last_update", "data_age_hours", "next_update"} {
		if _, ok := details[key]; !ok {
			t.Errorf("Details should contain '%s'", key)
		}
	}
	if details["curated"] != 2 {
		t.Errorf("Expected 2 curated drugs, got %v", details["curated"])
	}
	if details["reference"] != 1 {
		t.Errorf("Expected 1 reference drug, got %v", details["reference"])
	}
	if details["indications"] != 1 {
		t.Errorf("Expected 1 indication, got %v", details["indications"])
	}
	if details["brand_cache_entries"] != 4 {
		t.Errorf("Expected 4 cache entries, got %v", details["brand_cache_entries"])
	}
	if details["rxnorm_breaker"] != "closed" {
		t.Errorf("Expected breaker closed, got %v", details["rxnorm_breaker"])
	}
}

func TestHealthCheck_Statuses(t *testing.T) {
	testCases := []struct {
		name           string
		store          *MockHealthDataStore
		breaker        rxnorm.State
		expectedStatus string
		expectedHTTP   int
	}{
		{
			name:           "no data",
			store:          &MockHealthDataStore{lastUpdated: time.Now()},
			breaker:        rxnorm.StateClosed,
			expectedStatus: "unhealthy",
			expectedHTTP:   http.StatusServiceUnavailable,
		},
		{
			name:           "very old data",
			store:          &MockHealthDataStore{snapshot: loadedSnapshot(), lastUpdated: time.Now().Add(-50 * time.Hour)},
			breaker:        rxnorm.StateClosed,
			expectedStatus: "unhealthy",
			expectedHTTP:   http.StatusServiceUnavailable,
		},
		{
			name:           "stale data",
			store:          &MockHealthDataStore{snapshot: loadedSnapshot(), lastUpdated: time.Now().Add(-30 * time.Hour)},
			breaker:        rxnorm.StateClosed,
			expectedStatus: "degraded",
			expectedHTTP:   http.StatusServiceUnavailable,
		},
		{
			name:           "long running update",
			store:          &MockHealthDataStore{snapshot: loadedSnapshot(), lastUpdated: time.Now().Add(-7 * time.Hour), isUpdating: true},
			breaker:        rxnorm.StateClosed,
			expectedStatus: "degraded",
			expectedHTTP:   http.StatusServiceUnavailable,
		},
		{
			name:           "recent update in progress",
			store:          &MockHealthDataStore{snapshot: loadedSnapshot(), lastUpdated: time.Now().Add(-1 * time.Hour), isUpdating: true},
			breaker:        rxnorm.StateClosed,
			expectedStatus: "healthy",
			expectedHTTP:   http.StatusOK,
		},
		{
			name:           "breaker open",
			store:          &MockHealthDataStore{snapshot: loadedSnapshot(), lastUpdated: time.Now()},
			breaker:        rxnorm.StateOpen,
			expectedStatus: "degraded",
			expectedHTTP:   http.StatusOK,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			healthChecker := NewHealthChecker(tc.store, Dependencies{Breaker: fixedBreaker(tc.breaker)})
			status, _, httpStatus := healthChecker.HealthCheck()

			if status != tc.expectedStatus {
				t.Errorf("Expected status '%s', got '%s'", tc.expectedStatus, status)
			}
			if httpStatus != tc.expectedHTTP {
				t.Errorf("Expected HTTP status %d, got %d", tc.expectedHTTP, httpStatus)
			}
		})
	}
}

func TestHealthCheck_NoOptionalDependencies(t *testing.T) {
	healthChecker := NewHealthChecker(&MockHealthDataStore{snapshot: loadedSnapshot(), lastUpdated: time.Now()}, Dependencies{})
	_, details, _ := healthChecker.HealthCheck()

	if _, ok := details["brand_cache_entries"]; ok {
		t.Error("Expected no brand cache entry without a cache")
	}
	if details["rxnorm_breaker"] != "closed" {
		t.Errorf("Expected breaker closed by default, got %v", details["rxnorm_breaker"])
	}
}

func TestNextReload(t *testing.T) {
	loc := time.Local
	day := func(d, h, m int) time.Time {
		return time.Date(2026, time.March, d, h, m, 0, 0, loc)
	}

	testCases := []struct {
		name     string
		now      time.Time
		reloadAt string
		expected time.Time
	}{
		{"before first", day(10, 5, 0), "06:00;18:00", day(10, 6, 0)},
		{"between", day(10, 12, 0), "06:00;18:00", day(10, 18, 0)},
		{"after last", day(10, 19, 0), "06:00;18:00", day(11, 6, 0)},
		{"exactly at reload", day(10, 6, 0), "06:00", day(11, 6, 0)},
		{"unordered list", day(10, 7, 0), "18:30;06:15", day(10, 18, 30)},
		{"invalid falls back", day(10, 7, 0), "noon", day(11, 6, 0)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := nextReload(tc.now, tc.reloadAt)
			if !got.Equal(tc.expected) {
				t.Errorf("Expected %v, got %v", tc.expected, got)
			}
		})
	}
}

func TestCalculateNextUpdate(t *testing.T) {
	healthChecker := NewHealthChecker(&MockHealthDataStore{}, Dependencies{ReloadAt: "06:00"})

	next := healthChecker.CalculateNextUpdate()
	if !next.After(time.Now()) {
		t.Errorf("Expected next update in the future, got %v", next)
	}
	if next.Sub(time.Now()) > 24*time.Hour {
		t.Errorf("Expected next update within 24 hours, got %v", next)
	}
	if next.Hour() != 6 || next.Minute() != 0 {
		t.Errorf("Expected 06:00, got %02d:%02d", next.Hour(), next.Minute())
	}
}
