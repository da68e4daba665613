// Package handlers provides the HTTP endpoints of the dosing API: recommendations,
// drug lookup, safety checks and health.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/absorpgen/absorpgen-api/catalog"
	"github.com/absorpgen/absorpgen-api/catalogparser/entities"
	"github.com/absorpgen/absorpgen-api/engine"
	"github.com/absorpgen/absorpgen-api/features"
	"github.com/absorpgen/absorpgen-api/interfaces"
	"github.com/absorpgen/absorpgen-api/logging"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// DefaultRoute is assumed when a request does not name a route of administration
const DefaultRoute = "oral"

// HTTPHandlerImpl implements the interfaces.HTTPHandler interface
type HTTPHandlerImpl struct {
	recommender interfaces.Recommender
	validator   interfaces.DataValidator
	health      interfaces.HealthChecker
	dataStore   interfaces.DataStore
}

// NewHTTPHandler creates a new HTTP handler with injected dependencies
func NewHTTPHandler(
	recommender interfaces.Recommender,
	validator interfaces.DataValidator,
	health interfaces.HealthChecker,
	dataStore interfaces.DataStore,
) interfaces.HTTPHandler {
	return &HTTPHandlerImpl{
		recommender: recommender,
		validator:   validator,
		health:      health,
		dataStore:   dataStore,
	}
}

// HealthResponse defines the structure for consistent JSON ordering
type HealthResponse struct {
	Status        string         `json:"status"`
	UptimeSeconds float64        `json:"uptime_seconds"`
	Uptime        string         `json:"uptime"`
	Data          map[string]any `json:"data"`
	System        map[string]any `json:"system"`
}

// SafetyResponse is the body of GET /v1/safety/{drug}
type SafetyResponse struct {
	Drug     string             `json:"drug"`
	Warnings []entities.Warning `json:"warnings"`
}

// RespondWithJSON writes a JSON response
func (h *HTTPHandlerImpl) RespondWithJSON(w http.ResponseWriter, code int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logging.Error("Failed to marshal JSON response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	w.Write(data)
}

// RespondWithError writes a JSON error response
func (h *HTTPHandlerImpl) RespondWithError(w http.ResponseWriter, code int, message string) {
	errorResponse := map[string]any{
		"error":   http.StatusText(code),
		"message": message,
		"code":    code,
	}
	h.RespondWithJSON(w, code, errorResponse)
}

// respondWithEngineError maps pipeline errors to HTTP status codes
func (h *HTTPHandlerImpl) respondWithEngineError(w http.ResponseWriter, r *http.Request, err error) {
	var notFound *catalog.DrugNotFoundError

	switch {
	case errors.As(err, &notFound):
		h.RespondWithError(w, http.StatusNotFound, fmt.Sprintf("No drug found for %q", notFound.Name))
	case errors.Is(err, catalog.ErrDrugNotFound):
		h.RespondWithError(w, http.StatusNotFound, "Drug not found")
	case errors.Is(err, catalog.ErrNoAlternativeFound):
		h.RespondWithError(w, http.StatusUnprocessableEntity, "Predicted bioavailability is too low and no alternative drug is available")
	case errors.Is(err, entities.ErrInvalidPatient), errors.Is(err, engine.ErrEmptyQuery):
		h.RespondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, features.ErrSchemaMismatch):
		logging.Error("Model feature schema mismatch", "error", err, "request_id", middleware.GetReqID(r.Context()))
		h.RespondWithError(w, http.StatusInternalServerError, "Model configuration error")
	default:
		logging.Error("Recommendation failed", "error", err, "request_id", middleware.GetReqID(r.Context()))
		h.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// formatUptimeHuman formats duration into a human-readable string
func (h *HTTPHandlerImpl) formatUptimeHuman(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	var parts []string

	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 || days > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 || hours > 0 || days > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	parts = append(parts, fmt.Sprintf("%ds", seconds))

	return strings.Join(parts, " ")
}

// ServeRecommendationV1 handles POST /v1/recommendations.
// ?format=text returns the plain text rendering instead of JSON.
func (h *HTTPHandlerImpl) ServeRecommendationV1(w http.ResponseWriter, r *http.Request) {
	var req entities.RecommendationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.RespondWithError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		logging.Warn("Invalid recommendation body", "error", err)
		h.RespondWithError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	if err := h.validator.ValidateInput(req.DrugOrSymptom); err != nil {
		logging.Warn("Unusual user input", "drug_or_symptom", req.DrugOrSymptom, "error", err)
		h.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	for name, list := range map[string][]string{
		"current_medications": req.CurrentMedications,
		"allergies":           req.Allergies,
		"conditions":          req.Conditions,
	} {
		if err := h.validator.ValidateList(list); err != nil {
			h.RespondWithError(w, http.StatusBadRequest, fmt.Sprintf("%s: %v", name, err))
			return
		}
	}

	if strings.TrimSpace(req.Patient.Route) == "" {
		req.Patient.Route = DefaultRoute
	}

	result, err := h.recommender.Recommend(r.Context(), req)
	if err != nil {
		h.respondWithEngineError(w, r, err)
		return
	}

	if strings.EqualFold(r.URL.Query().Get("format"), "text") {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(engine.RenderText(result, req.AdvancedMode)))
		return
	}

	h.RespondWithJSON(w, http.StatusOK, result)
}

// ServeDrugV1 handles GET /v1/drugs/{name}
func (h *HTTPHandlerImpl) ServeDrugV1(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := h.validator.ValidateInput(name); err != nil {
		logging.Warn("Unusual user input", "name", name, "error", err)
		h.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	drug, err := h.recommender.ResolveDrug(r.Context(), name)
	if err != nil {
		h.respondWithEngineError(w, r, err)
		return
	}

	h.RespondWithJSON(w, http.StatusOK, drug)
}

// ServeSafetyV1 handles GET /v1/safety/{drug}?medications=..&allergies=..&conditions=..
// Each list accepts repeated parameters or comma separated values. Brand
// names are resolved to their generic first; a name outside the catalog is
// checked as given.
func (h *HTTPHandlerImpl) ServeSafetyV1(w http.ResponseWriter, r *http.Request) {
	drug := chi.URLParam(r, "drug")
	if err := h.validator.ValidateInput(drug); err != nil {
		logging.Warn("Unusual user input", "drug", drug, "error", err)
		h.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	query := r.URL.Query()
	medications := splitList(query["medications"])
	allergies := splitList(query["allergies"])
	conditions := splitList(query["conditions"])

	for name, list := range map[string][]string{
		"medications": medications,
		"allergies":   allergies,
		"conditions":  conditions,
	} {
		if err := h.validator.ValidateList(list); err != nil {
			h.RespondWithError(w, http.StatusBadRequest, fmt.Sprintf("%s: %v", name, err))
			return
		}
	}

	name := entities.CanonicalName(drug)
	resolved, err := h.recommender.ResolveDrug(r.Context(), drug)
	switch {
	case err == nil:
		name = resolved.Name
	case errors.Is(err, catalog.ErrDrugNotFound):
		logging.Debug("Safety check for drug outside the catalog", "drug", name)
	default:
		h.respondWithEngineError(w, r, err)
		return
	}

	h.RespondWithJSON(w, http.StatusOK, SafetyResponse{
		Drug:     name,
		Warnings: h.recommender.CheckSafety(name, medications, allergies, conditions),
	})
}

func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// HealthCheck returns server health information
func (h *HTTPHandlerImpl) HealthCheck(w http.ResponseWriter, r *http.Request) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	status, data, httpStatus := h.health.HealthCheck()

	uptime := time.Since(h.dataStore.GetServerStartTime())

	response := HealthResponse{
		Status:        status,
		UptimeSeconds: uptime.Seconds(),
		Uptime:        h.formatUptimeHuman(uptime),
		Data:          data,
		System: map[string]any{
			"goroutines": runtime.NumGoroutine(),
			"memory": map[string]any{
				"alloc_mb": int(m.Alloc / 1024 / 1024),
				"sys_mb":   int(m.Sys / 1024 / 1024),
				"num_gc":   m.NumGC,
			},
		},
	}

	h.RespondWithJSON(w, httpStatus, response)
}
