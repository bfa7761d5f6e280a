package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"rowtracker-platform/internal/models"
	"rowtracker-platform/internal/repository"
	"rowtracker-platform/internal/services"
	"rowtracker-platform/internal/timewindow"
	"rowtracker-platform/pkg/logging"
	"rowtracker-platform/pkg/metrics"
)

// TrackHandler handles the analytics and playback API endpoints
type TrackHandler struct {
	analytics *services.AnalyticsService
	playback  *services.PlaybackService
	repo      repository.SampleRepository
	logger    *logging.StructuredLogger
	metrics   *metrics.Collector
}

// NewTrackHandler creates a new track handler
func NewTrackHandler(
	analytics *services.AnalyticsService,
	playback *services.PlaybackService,
	repo repository.SampleRepository,
	logger *logging.StructuredLogger,
	metricsCollector *metrics.Collector,
) *TrackHandler {
	return &TrackHandler{
		analytics: analytics,
		playback:  playback,
		repo:      repo,
		logger:    logger,
		metrics:   metricsCollector,
	}
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

type teamAnalyticsResponse struct {
	Success  bool                 `json:"success"`
	TeamName string               `json:"team_name"`
	Days     []*models.DailyStats `json:"days"`
}

type tableAnalyticsResponse struct {
	Success bool `json:"success"`
	*services.TableAnalytics
}

type datesResponse struct {
	Success   bool     `json:"success"`
	SourceURL string   `json:"source_url"`
	Dates     []string `json:"dates"`
}

type mapDataResponse struct {
	Success bool `json:"success"`
	*services.MapData
}

// TeamAnalytics handles GET /api/team/analytics
func (h *TrackHandler) TeamAnalytics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()
	defer func() {
		h.metrics.APIRequestDuration.WithLabelValues("/api/team/analytics").Observe(time.Since(startTime).Seconds())
	}()

	name := r.URL.Query().Get("name")
	if name == "" {
		h.sendError(w, r, "missing required parameter: name (example: ?name=Atlantic%20Dash)", "", http.StatusBadRequest)
		return
	}

	timezone, err := parseTimezone(r)
	if err != nil {
		h.sendError(w, r, err.Error(), "", http.StatusBadRequest)
		return
	}

	query := services.TeamAnalyticsQuery{TeamName: name, Timezone: timezone}

	if sourceURL := r.URL.Query().Get("sourceUrl"); sourceURL != "" {
		query.SourceURL = &sourceURL
	}

	if startDate := r.URL.Query().Get("startDate"); startDate != "" {
		if _, err := time.Parse(timewindow.DateLayout, startDate); err != nil {
			h.sendError(w, r, "invalid startDate format, expected YYYY-MM-DD (example: ?startDate=2024-03-01)", "", http.StatusBadRequest)
			return
		}
		query.StartDate = &startDate
	}

	if endDate := r.URL.Query().Get("endDate"); endDate != "" {
		if _, err := time.Parse(timewindow.DateLayout, endDate); err != nil {
			h.sendError(w, r, "invalid endDate format, expected YYYY-MM-DD (example: ?endDate=2024-03-08)", "", http.StatusBadRequest)
			return
		}
		query.EndDate = &endDate
	}

	days, err := h.analytics.TeamAnalytics(ctx, query)
	if err != nil {
		h.handleServiceError(w, r, "/api/team/analytics", "failed to compute team analytics", err)
		return
	}

	h.metrics.RecordAPIRequest("/api/team/analytics", "GET", "200")
	h.sendJSON(w, teamAnalyticsResponse{Success: true, TeamName: name, Days: days}, http.StatusOK)
}

// TableAnalytics handles GET /api/table/analytics
func (h *TrackHandler) TableAnalytics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()
	defer func() {
		h.metrics.APIRequestDuration.WithLabelValues("/api/table/analytics").Observe(time.Since(startTime).Seconds())
	}()

	sourceURL := r.URL.Query().Get("sourceUrl")
	if sourceURL == "" {
		h.sendError(w, r, "missing required parameter: sourceUrl (example: ?sourceUrl=https://example.com/race1)", "", http.StatusBadRequest)
		return
	}

	timezone, err := parseTimezone(r)
	if err != nil {
		h.sendError(w, r, err.Error(), "", http.StatusBadRequest)
		return
	}

	date := r.URL.Query().Get("date")
	if date == "" {
		date = timewindow.Today(time.Now(), timezone)
	} else if _, err := time.Parse(timewindow.DateLayout, date); err != nil {
		h.sendError(w, r, "invalid date format, expected YYYY-MM-DD (example: ?date=2024-03-08)", "", http.StatusBadRequest)
		return
	}

	table, err := h.analytics.TableAnalytics(ctx, services.TableAnalyticsQuery{
		SourceURL: sourceURL,
		Date:      date,
		Timezone:  timezone,
	})
	if err != nil {
		h.handleServiceError(w, r, "/api/table/analytics", "failed to compute table analytics", err)
		return
	}

	h.metrics.RecordAPIRequest("/api/table/analytics", "GET", "200")
	h.sendJSON(w, tableAnalyticsResponse{Success: true, TableAnalytics: table}, http.StatusOK)
}

// AvailableDates handles GET /api/dates
func (h *TrackHandler) AvailableDates(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()
	defer func() {
		h.metrics.APIRequestDuration.WithLabelValues("/api/dates").Observe(time.Since(startTime).Seconds())
	}()

	sourceURL := r.URL.Query().Get("sourceUrl")
	if sourceURL == "" {
		h.sendError(w, r, "missing required parameter: sourceUrl (example: ?sourceUrl=https://example.com/race1)", "", http.StatusBadRequest)
		return
	}

	timezone, err := parseTimezone(r)
	if err != nil {
		h.sendError(w, r, err.Error(), "", http.StatusBadRequest)
		return
	}

	dates, err := h.analytics.AvailableDates(ctx, sourceURL, timezone)
	if err != nil {
		h.handleServiceError(w, r, "/api/dates", "failed to list available dates", err)
		return
	}

	h.metrics.RecordAPIRequest("/api/dates", "GET", "200")
	h.sendJSON(w, datesResponse{Success: true, SourceURL: sourceURL, Dates: dates}, http.StatusOK)
}

// MapData handles GET /api/map
func (h *TrackHandler) MapData(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()
	defer func() {
		h.metrics.APIRequestDuration.WithLabelValues("/api/map").Observe(time.Since(startTime).Seconds())
	}()

	sourceURL := r.URL.Query().Get("sourceUrl")
	if sourceURL == "" {
		h.sendError(w, r, "missing required parameter: sourceUrl (example: ?sourceUrl=https://example.com/race1)", "", http.StatusBadRequest)
		return
	}

	data, err := h.playback.MapData(ctx, sourceURL)
	if err != nil {
		h.handleServiceError(w, r, "/api/map", "failed to build map data", err)
		return
	}

	h.metrics.RecordAPIRequest("/api/map", "GET", "200")
	h.sendJSON(w, mapDataResponse{Success: true, MapData: data}, http.StatusOK)
}

// HealthCheck handles GET /health
func (h *TrackHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status := map[string]interface{}{
		"success":   true,
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	if err := h.repo.HealthCheck(ctx); err != nil {
		h.logger.Error(ctx, "[HEALTH_CHECK_ERROR] Store unreachable", logging.Fields{}, err)
		status["success"] = false
		status["status"] = "degraded"
		h.sendJSON(w, status, http.StatusServiceUnavailable)
		return
	}

	h.sendJSON(w, status, http.StatusOK)
}

// handleServiceError maps service errors onto the response contract:
// "no data" is a 404, everything else is a 500 with the underlying error.
func (h *TrackHandler) handleServiceError(w http.ResponseWriter, r *http.Request, endpoint, message string, err error) {
	var notFound *repository.NotFoundError
	if errors.As(err, &notFound) {
		h.metrics.RecordAPIError("not_found", endpoint)
		h.sendError(w, r, "no data found for the requested parameters", err.Error(), http.StatusNotFound)
		return
	}

	h.logger.Error(r.Context(), "[API_ERROR] Request failed", logging.Fields{
		"endpoint": endpoint,
	}, err)
	h.metrics.RecordAPIError("internal_error", endpoint)
	h.sendError(w, r, message, err.Error(), http.StatusInternalServerError)
}

// parseTimezone reads the optional timezone parameter as a whole-hour UTC
// offset, defaulting to 0.
func parseTimezone(r *http.Request) (int, error) {
	value := r.URL.Query().Get("timezone")
	if value == "" {
		return 0, nil
	}

	offset, err := strconv.Atoi(value)
	if err != nil || offset < -12 || offset > 14 {
		return 0, errors.New("invalid timezone, expected integer UTC offset between -12 and 14 (example: ?timezone=-3)")
	}

	return offset, nil
}

// sendJSON sends a JSON response
func (h *TrackHandler) sendJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// sendError sends an error response
func (h *TrackHandler) sendError(w http.ResponseWriter, r *http.Request, message, underlying string, statusCode int) {
	h.metrics.RecordAPIRequest(r.URL.Path, r.Method, strconv.Itoa(statusCode))

	h.sendJSON(w, ErrorResponse{
		Success: false,
		Message: message,
		Error:   underlying,
	}, statusCode)
}

// RegisterRoutes registers all track API routes
func (h *TrackHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/team/analytics", h.TeamAnalytics).Methods("GET")
	router.HandleFunc("/api/table/analytics", h.TableAnalytics).Methods("GET")
	router.HandleFunc("/api/dates", h.AvailableDates).Methods("GET")
	router.HandleFunc("/api/map", h.MapData).Methods("GET")
	router.HandleFunc("/health", h.HealthCheck).Methods("GET")
	router.HandleFunc("/api/docs", SwaggerUI).Methods("GET")
	router.HandleFunc("/api/openapi.json", OpenAPISpec).Methods("GET")
}
