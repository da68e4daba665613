package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/absorpgen/absorpgen-api/catalog"
	"github.com/absorpgen/absorpgen-api/catalogparser/entities"
	"github.com/absorpgen/absorpgen-api/interfaces"
	"github.com/absorpgen/absorpgen-api/logging"
	"github.com/go-chi/chi/v5"
)

func init() {
	logging.InitLogger(logging.Options{})
}

// ============================================================================
// TEST DATA FACTORY
// ============================================================================

// TestDataFactory creates consistent test data across all tests
type TestDataFactory struct{}

func NewTestDataFactory() *TestDataFactory {
	return &TestDataFactory{}
}

// CreateDrug creates a curated tablet record
func (f *TestDataFactory) CreateDrug(name string, strength float64) entities.DrugRecord {
	return entities.DrugRecord{
		Name:              name,
		MolecularWeight:   331.3,
		LogP:              0.28,
		PKa:               6.09,
		Bioavailability:   0.7,
		StrengthMgPerUnit: strength,
		Formulation:       entities.FormulationTablet,
		Source:            entities.SourceCurated,
	}
}

// CreateResult creates a finished recommendation
func (f *TestDataFactory) CreateResult() *entities.PredictionResult {
	return &entities.PredictionResult{
		ID: "3f1c2d9e-0000-4000-8000-000000000001",
		Regression: entities.RegressionOutputs{
			Bioavailability: 0.8,
			TmaxHours:       1.5,
			CmaxNgPerML:     2.3,
			DoseMg:          600,
		},
		Formulation:       entities.FormulationTablet,
		RequestedDrug:     "CIPROFLOXACIN",
		FinalDrugUsed:     "CIPROFLOXACIN",
		BrandName:         "Cipro",
		StrengthMgPerUnit: 500,
		FormattedDose:     "1 tablet(s) of 500 mg",
		DoseAmount:        1,
		DoseUnit:          "tablet",
		Warnings: []entities.Warning{
			{Kind: entities.WarningInteraction, Counterpart: "WARFARIN", Message: "Interaction with WARFARIN"},
		},
	}
}

// CreateRequestBody creates a JSON recommendation request body
func (f *TestDataFactory) CreateRequestBody(query string) string {
	req := entities.RecommendationRequest{
		Patient: entities.PatientProfile{
			Age:      45,
			WeightKg: 70,
			Sex:      "male",
			HeightCm: 175,
		},
		DrugOrSymptom:      query,
		CurrentMedications: []string{"warfarin"},
	}
	body, _ := json.Marshal(req)
	return string(body)
}

// ============================================================================
// MOCK BUILDERS
// ============================================================================

// MockDataValidatorBuilder provides fluent interface for building mock validators
type MockDataValidatorBuilder struct {
	mock *MockDataValidator
}

func NewMockDataValidatorBuilder() *MockDataValidatorBuilder {
	return &MockDataValidatorBuilder{mock: &MockDataValidator{}}
}

func (b *MockDataValidatorBuilder) WithInputError(err error) *MockDataValidatorBuilder {
	b.mock.validateInputError = err
	return b
}

func (b *MockDataValidatorBuilder) WithListError(err error) *MockDataValidatorBuilder {
	b.mock.validateListError = err
	return b
}

func (b *MockDataValidatorBuilder) Build() *MockDataValidator {
	return b.mock
}

// MockHealthCheckerBuilder provides fluent interface for building mock health checkers
type MockHealthCheckerBuilder struct {
	mock *MockHealthChecker
}

func NewMockHealthCheckerBuilder() *MockHealthCheckerBuilder {
	return &MockHealthCheckerBuilder{
		mock: &MockHealthChecker{
			status:     "healthy",
			details:    map[string]any{"curated": 3, "reference": 10},
			httpStatus: http.StatusOK,
		},
	}
}

func (b *MockHealthCheckerBuilder) WithStatus(status string, httpStatus int) *MockHealthCheckerBuilder {
	b.mock.status = status
	b.mock.httpStatus = httpStatus
	return b
}

func (b *MockHealthCheckerBuilder) Build() *MockHealthChecker {
	return b.mock
}

// ============================================================================
// HTTP TEST UTILITIES
// ============================================================================

// HTTPTestHelper provides utilities for HTTP handler testing
type HTTPTestHelper struct {
	t *testing.T
}

func NewHTTPTestHelper(t *testing.T) *HTTPTestHelper {
	return &HTTPTestHelper{t: t}
}

// ExecuteRequest executes an HTTP handler with given parameters
func (h *HTTPTestHelper) ExecuteRequest(handler http.HandlerFunc, method, path, body string, urlParams map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	if len(urlParams) > 0 {
		rctx := chi.NewRouteContext()
		for key, value := range urlParams {
			rctx.URLParams.Add(key, value)
		}
		req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	}

	rr := httptest.NewRecorder()
	handler(rr, req)
	return rr
}

// AssertJSONResponse asserts that response contains valid JSON with expected status
func (h *HTTPTestHelper) AssertJSONResponse(resp *httptest.ResponseRecorder, expectedStatus int, target any) {
	h.t.Helper()
	if resp.Code != expectedStatus {
		h.t.Errorf("Expected status %d, got %d", expectedStatus, resp.Code)
	}

	bodyStr := resp.Body.String()
	if bodyStr == "" {
		h.t.Error("Response body should not be empty")
	}

	if err := json.Unmarshal([]byte(bodyStr), target); err != nil {
		h.t.Errorf("Response should be valid JSON, got error: %v", err)
	}
}

// AssertErrorResponse asserts that response contains an error with expected status
func (h *HTTPTestHelper) AssertErrorResponse(resp *httptest.ResponseRecorder, expectedStatus int) {
	h.t.Helper()
	if resp.Code != expectedStatus {
		h.t.Errorf("Expected status %d, got %d", expectedStatus, resp.Code)
	}

	var errorResp map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &errorResp); err != nil {
		h.t.Errorf("Error response should be valid JSON, got error: %v", err)
	}

	if _, ok := errorResp["message"]; !ok {
		h.t.Error("Error response should have message field")
	}
	if code, ok := errorResp["code"]; !ok || code != float64(expectedStatus) {
		h.t.Errorf("Expected code %d in body, got %v", expectedStatus, code)
	}
}

// AssertHealthResponse asserts health check response structure
func (h *HTTPTestHelper) AssertHealthResponse(resp *httptest.ResponseRecorder, expectedCode int, expectedStatus string) {
	h.t.Helper()
	var response map[string]any
	h.AssertJSONResponse(resp, expectedCode, &response)

	if response["status"] != expectedStatus {
		h.t.Errorf("Status mismatch: expected %s, got %v", expectedStatus, response["status"])
	}
	if _, ok := response["data"]; !ok {
		h.t.Error("Response should have data field")
	}
	if _, ok := response["system"]; !ok {
		h.t.Error("Response should have system field")
	}
}

// ============================================================================
// MOCK IMPLEMENTATIONS
// ============================================================================

// MockRecommender implements interfaces.Recommender for testing
type MockRecommender struct {
	mu       sync.Mutex
	result   *entities.PredictionResult
	err      error
	drug     entities.DrugRecord
	drugErr  error
	warnings []entities.Warning

	lastRequest    entities.RecommendationRequest
	lastSafety     []string // drug followed by medications
	lastAllergies  []string
	lastConditions []string
}

func (m *MockRecommender) Recommend(ctx context.Context, req entities.RecommendationRequest) (*entities.PredictionResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastRequest = req
	return m.result, m.err
}

func (m *MockRecommender) ResolveDrug(ctx context.Context, name string) (entities.DrugRecord, error) {
	if m.drugErr != nil {
		return entities.DrugRecord{}, m.drugErr
	}
	if m.drug.Name == "" {
		return entities.DrugRecord{Name: entities.CanonicalName(name)}, nil
	}
	return m.drug, nil
}

func (m *MockRecommender) CheckSafety(drug string, medications, allergies, conditions []string) []entities.Warning {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastSafety = append([]string{drug}, medications...)
	m.lastAllergies = allergies
	m.lastConditions = conditions
	if m.warnings == nil {
		return []entities.Warning{}
	}
	return m.warnings
}

// MockDataStore implements interfaces.DataStore for testing
type MockDataStore struct {
	snapshot  *catalog.Snapshot
	startTime time.Time
	updated   time.Time
	updating  bool
}

func NewMockDataStore() *MockDataStore {
	return &MockDataStore{
		snapshot:  catalog.EmptySnapshot(),
		startTime: time.Now().Add(-90 * time.Minute),
		updated:   time.Now(),
	}
}

func (m *MockDataStore) GetSnapshot() *catalog.Snapshot { return m.snapshot }
func (m *MockDataStore) GetLastUpdated() time.Time { return m.updated }
func (m *MockDataStore) IsUpdating() bool { return m.updating }
func (m *MockDataStore) GetServerStartTime() time.Time { return m.startTime }
func (m *MockDataStore) UpdateData(snapshot *catalog.Snapshot) { m.snapshot = snapshot }
func (m *MockDataStore) BeginUpdate() bool {
	m.updating = true
	return true
}

func (m *MockDataStore) EndUpdate() { m.updating = false }

// MockDataValidator implements interfaces.DataValidator for testing
type MockDataValidator struct {
	validateInputError error
	validateListError  error

	validateInputCalled bool
	lastValidatedInput  string
}

func (m *MockDataValidator) ValidateDrug(d *entities.DrugRecord) error {
	return nil
}

func (m *MockDataValidator) ReportDataQuality(tables *entities.CatalogTables) *interfaces.DataQualityReport {
	return &interfaces.DataQualityReport{}
}

func (m *MockDataValidator) ValidateInput(input string) error {
	m.validateInputCalled = true
	m.lastValidatedInput = input
	return m.validateInputError
}

func (m *MockDataValidator) ValidateList(inputs []string) error {
	return m.validateListError
}

// MockHealthChecker implements interfaces.HealthChecker for testing
type MockHealthChecker struct {
	status     string
	details    map[string]any
	httpStatus int
}

func (m *MockHealthChecker) HealthCheck() (string, map[string]any, int) {
	return m.status, m.details, m.httpStatus
}

func (m *MockHealthChecker) CalculateNextUpdate() time.Time {
	return time.Now().Add(time.Hour)
}
