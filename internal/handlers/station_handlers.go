package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"station-platform/internal/models"
	"station-platform/internal/services"
	"station-platform/pkg/logging"
	"station-platform/pkg/metrics"
)

// SyncRunner triggers an on-demand sync run. Implemented by
// services.SyncService.
type SyncRunner interface {
	RunSync(ctx context.Context, date time.Time) *services.SyncResult
}

// StationHandler handles station dashboard API endpoints
type StationHandler struct {
	stationService *services.StationService
	syncRunner     SyncRunner
	logger         *logging.StructuredLogger
	metrics        *metrics.Collector
	now            func() time.Time
}

// NewStationHandler creates a new station handler
func NewStationHandler(
	stationService *services.StationService,
	syncRunner SyncRunner,
	logger *logging.StructuredLogger,
	metricsCollector *metrics.Collector,
) *StationHandler {
	return &StationHandler{
		stationService: stationService,
		syncRunner:     syncRunner,
		logger:         logger,
		metrics:        metricsCollector,
		now:            time.Now,
	}
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// SummaryResponse is the working/not-working tally for one station type
// on one day.
type SummaryResponse struct {
	StationType models.StationType `json:"station_type"`
	Date        string             `json:"date"`
	Working     int                `json:"working"`
	NotWorking  int                `json:"not_working"`
}

// SyncAcceptedResponse acknowledges a manual sync trigger.
type SyncAcceptedResponse struct {
	Status string `json:"status"`
	Date   string `json:"date"`
}

// GetSummary handles GET /api/summary
func (h *StationHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	defer func() {
		duration := time.Since(startTime)
		h.metrics.APIRequestDuration.WithLabelValues("/api/summary").Observe(duration.Seconds())
	}()

	stationType, date, ok := h.parseTypeAndDate(w, r)
	if !ok {
		return
	}

	summary, err := h.stationService.GetStatusSummary(ctx, stationType, date)
	if err != nil {
		h.logger.Error(ctx, "[API_SUMMARY_ERROR] Failed to get status summary", logging.Fields{
			"station_type": stationType,
			"date":         date.Format("2006-01-02"),
		}, err)
		h.metrics.RecordAPIError("internal_error", "/api/summary")
		h.sendError(w, r, "failed to retrieve status summary", http.StatusInternalServerError)
		return
	}

	response := SummaryResponse{
		StationType: stationType,
		Date:        date.Format("2006-01-02"),
		Working:     summary.Working,
		NotWorking:  summary.NotWorking,
	}

	h.metrics.RecordAPIRequest("/api/summary", "GET", "200")
	h.sendJSON(w, response, http.StatusOK)
}

// GetMapData handles GET /api/map
func (h *StationHandler) GetMapData(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	defer func() {
		duration := time.Since(startTime)
		h.metrics.APIRequestDuration.WithLabelValues("/api/map").Observe(duration.Seconds())
	}()

	stationType, date, ok := h.parseTypeAndDate(w, r)
	if !ok {
		return
	}

	status, ok := h.parseStatus(w, r)
	if !ok {
		return
	}

	points, err := h.stationService.GetMapData(ctx, stationType, date, status)
	if err != nil {
		h.logger.Error(ctx, "[API_MAP_ERROR] Failed to get map data", logging.Fields{
			"station_type": stationType,
			"date":         date.Format("2006-01-02"),
		}, err)
		h.metrics.RecordAPIError("internal_error", "/api/map")
		h.sendError(w, r, "failed to retrieve map data", http.StatusInternalServerError)
		return
	}

	h.metrics.RecordAPIRequest("/api/map", "GET", "200")
	h.sendJSON(w, points, http.StatusOK)
}

// GetVendorSummary handles GET /api/vendor-summary
func (h *StationHandler) GetVendorSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	defer func() {
		duration := time.Since(startTime)
		h.metrics.APIRequestDuration.WithLabelValues("/api/vendor-summary").Observe(duration.Seconds())
	}()

	stationType, date, ok := h.parseTypeAndDate(w, r)
	if !ok {
		return
	}

	rows, err := h.stationService.GetVendorSummary(ctx, stationType, date)
	if err != nil {
		h.logger.Error(ctx, "[API_VENDOR_SUMMARY_ERROR] Failed to get vendor summary", logging.Fields{
			"station_type": stationType,
			"date":         date.Format("2006-01-02"),
		}, err)
		h.metrics.RecordAPIError("internal_error", "/api/vendor-summary")
		h.sendError(w, r, "failed to retrieve vendor summary", http.StatusInternalServerError)
		return
	}

	h.metrics.RecordAPIRequest("/api/vendor-summary", "GET", "200")
	h.sendJSON(w, rows, http.StatusOK)
}

// GetVendorDistrictSummary handles GET /api/vendor-district-summary
func (h *StationHandler) GetVendorDistrictSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	defer func() {
		duration := time.Since(startTime)
		h.metrics.APIRequestDuration.WithLabelValues("/api/vendor-district-summary").Observe(duration.Seconds())
	}()

	vendor := r.URL.Query().Get("vendor")
	if vendor == "" {
		h.sendError(w, r, "vendor parameter is required", http.StatusBadRequest)
		return
	}

	stationType, date, ok := h.parseTypeAndDate(w, r)
	if !ok {
		return
	}

	status, ok := h.parseStatus(w, r)
	if !ok {
		return
	}

	rows, err := h.stationService.GetVendorDistrictSummary(ctx, vendor, stationType, date, status)
	if err != nil {
		h.logger.Error(ctx, "[API_VENDOR_DISTRICT_ERROR] Failed to get vendor district summary", logging.Fields{
			"vendor":       vendor,
			"station_type": stationType,
		}, err)
		h.metrics.RecordAPIError("internal_error", "/api/vendor-district-summary")
		h.sendError(w, r, "failed to retrieve vendor district summary", http.StatusInternalServerError)
		return
	}

	h.metrics.RecordAPIRequest("/api/vendor-district-summary", "GET", "200")
	h.sendJSON(w, rows, http.StatusOK)
}

// GetBlockFaults handles GET /api/block-fault
func (h *StationHandler) GetBlockFaults(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	defer func() {
		duration := time.Since(startTime)
		h.metrics.APIRequestDuration.WithLabelValues("/api/block-fault").Observe(duration.Seconds())
	}()

	vendor := r.URL.Query().Get("vendor")
	district := r.URL.Query().Get("district")
	if vendor == "" || district == "" {
		h.sendError(w, r, "vendor and district parameters are required", http.StatusBadRequest)
		return
	}

	stationType, date, ok := h.parseTypeAndDate(w, r)
	if !ok {
		return
	}

	rows, err := h.stationService.GetBlockFaults(ctx, vendor, district, stationType, date)
	if err != nil {
		h.logger.Error(ctx, "[API_BLOCK_FAULT_ERROR] Failed to get block faults", logging.Fields{
			"vendor":   vendor,
			"district": district,
		}, err)
		h.metrics.RecordAPIError("internal_error", "/api/block-fault")
		h.sendError(w, r, "failed to retrieve block faults", http.StatusInternalServerError)
		return
	}

	h.metrics.RecordAPIRequest("/api/block-fault", "GET", "200")
	h.sendJSON(w, rows, http.StatusOK)
}

// GetStationHistory handles GET /api/station-history
func (h *StationHandler) GetStationHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	defer func() {
		duration := time.Since(startTime)
		h.metrics.APIRequestDuration.WithLabelValues("/api/station-history").Observe(duration.Seconds())
	}()

	stationID := r.URL.Query().Get("station_id")
	vendor := r.URL.Query().Get("vendor")
	if stationID == "" || vendor == "" {
		h.sendError(w, r, "station_id and vendor parameters are required", http.StatusBadRequest)
		return
	}

	stationType, ok := h.parseType(w, r)
	if !ok {
		return
	}

	entries, err := h.stationService.GetStationHistory(ctx, stationID, vendor, stationType)
	if err != nil {
		h.logger.Error(ctx, "[API_HISTORY_ERROR] Failed to get station history", logging.Fields{
			"station_id": stationID,
			"vendor":     vendor,
		}, err)
		h.metrics.RecordAPIError("internal_error", "/api/station-history")
		h.sendError(w, r, "failed to retrieve station history", http.StatusInternalServerError)
		return
	}

	h.metrics.RecordAPIRequest("/api/station-history", "GET", "200")
	h.sendJSON(w, entries, http.StatusOK)
}

// TriggerSync handles POST /api/sync. The run executes in the background
// and the request returns immediately.
func (h *StationHandler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	date := h.now().UTC().Truncate(24 * time.Hour)
	if dateStr := r.URL.Query().Get("date"); dateStr != "" {
		parsed, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			h.sendError(w, r, "invalid date format, expected YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		date = parsed
	}

	h.logger.Info(ctx, "[API_SYNC_TRIGGER] Manual sync requested", logging.Fields{
		"date": date.Format("2006-01-02"),
	})

	// The run outlives the request, so it gets its own context.
	go h.syncRunner.RunSync(context.Background(), date)

	response := SyncAcceptedResponse{
		Status: "accepted",
		Date:   date.Format("2006-01-02"),
	}

	h.metrics.RecordAPIRequest("/api/sync", "POST", "202")
	h.sendJSON(w, response, http.StatusAccepted)
}

// HealthCheck handles GET /health
func (h *StationHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.stationService.HealthCheck(ctx); err != nil {
		h.logger.Error(ctx, "[HEALTH_CHECK_ERROR] Dependency check failed", logging.Fields{}, err)
		h.sendError(w, r, "database unavailable", http.StatusServiceUnavailable)
		return
	}

	status := map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	h.logger.Debug(ctx, "[HEALTH_CHECK] Health check requested", logging.Fields{})
	h.sendJSON(w, status, http.StatusOK)
}

// parseTypeAndDate reads the shared type and date query parameters. On a
// bad value it writes the error response and reports false.
func (h *StationHandler) parseTypeAndDate(w http.ResponseWriter, r *http.Request) (models.StationType, time.Time, bool) {
	stationType, ok := h.parseType(w, r)
	if !ok {
		return "", time.Time{}, false
	}

	date := h.now().UTC().Truncate(24 * time.Hour)
	if dateStr := r.URL.Query().Get("date"); dateStr != "" {
		parsed, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			h.sendError(w, r, "invalid date format, expected YYYY-MM-DD", http.StatusBadRequest)
			return "", time.Time{}, false
		}
		date = parsed
	}

	return stationType, date, true
}

func (h *StationHandler) parseType(w http.ResponseWriter, r *http.Request) (models.StationType, bool) {
	typeStr := r.URL.Query().Get("type")
	if typeStr == "" {
		return models.StationTypeAWS, true
	}

	stationType, err := models.ParseStationType(typeStr)
	if err != nil {
		h.sendError(w, r, "invalid type, expected AWS or ARG", http.StatusBadRequest)
		return "", false
	}

	return stationType, true
}

func (h *StationHandler) parseStatus(w http.ResponseWriter, r *http.Request) (*models.Status, bool) {
	statusStr := r.URL.Query().Get("status")
	if statusStr == "" {
		return nil, true
	}

	// NormalizeStatus treats anything unrecognized as working, which is
	// right for ingest but too forgiving for a filter parameter.
	switch status := models.NormalizeStatus(statusStr); {
	case status == models.StatusNonWorking:
		return &status, true
	case strings.EqualFold(strings.TrimSpace(statusStr), string(models.StatusWorking)):
		return &status, true
	default:
		h.sendError(w, r, "invalid status, expected WORKING or NON-WORKING", http.StatusBadRequest)
		return nil, false
	}
}

// sendJSON sends a JSON response
func (h *StationHandler) sendJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// sendError sends an error response
func (h *StationHandler) sendError(w http.ResponseWriter, r *http.Request, message string, statusCode int) {
	h.metrics.RecordAPIRequest(r.URL.Path, r.Method, strconv.Itoa(statusCode))

	response := ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	}

	h.sendJSON(w, response, statusCode)
}

// RegisterRoutes registers all station API routes
func (h *StationHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/summary", h.GetSummary).Methods("GET")
	router.HandleFunc("/api/map", h.GetMapData).Methods("GET")
	router.HandleFunc("/api/vendor-summary", h.GetVendorSummary).Methods("GET")
	router.HandleFunc("/api/vendor-district-summary", h.GetVendorDistrictSummary).Methods("GET")
	router.HandleFunc("/api/block-fault", h.GetBlockFaults).Methods("GET")
	router.HandleFunc("/api/station-history", h.GetStationHistory).Methods("GET")
	router.HandleFunc("/api/sync", h.TriggerSync).Methods("POST")
	router.HandleFunc("/health", h.HealthCheck).Methods("GET")
}
