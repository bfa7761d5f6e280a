package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rowtracker-platform/internal/models"
	"rowtracker-platform/internal/repository"
	"rowtracker-platform/internal/services"
	"rowtracker-platform/pkg/logging"
	"rowtracker-platform/pkg/metrics"
)

var (
	testMetrics = metrics.NewCollector("handlers_test")
	testLogger  = logging.NewStructuredLogger("handlers-test", "test", logging.FatalLevel)
)

const testSource = "https://example.com/race1"

// stubRepo serves canned samples for handler tests.
type stubRepo struct {
	samples   []*models.Sample
	healthErr error
}

func (s *stubRepo) UpsertSamplesBatch(context.Context, []*models.Sample) (*repository.UpsertResult, error) {
	return &repository.UpsertResult{}, nil
}

func (s *stubRepo) GetSamplesByRange(_ context.Context, sourceURL string, start, end time.Time) ([]*models.Sample, error) {
	var out []*models.Sample
	for _, sample := range s.samples {
		if sample.SourceURL == sourceURL && !sample.ScrapedAt.Before(start) && !sample.ScrapedAt.After(end) {
			out = append(out, sample)
		}
	}
	return out, nil
}

func (s *stubRepo) GetSamplesBySource(_ context.Context, sourceURL string) ([]*models.Sample, error) {
	var out []*models.Sample
	for _, sample := range s.samples {
		if sample.SourceURL == sourceURL {
			out = append(out, sample)
		}
	}
	return out, nil
}

func (s *stubRepo) GetSamplesByTeam(_ context.Context, filter repository.TeamSampleFilter) ([]*models.Sample, error) {
	var out []*models.Sample
	for _, sample := range s.samples {
		if sample.TeamName == filter.TeamName {
			out = append(out, sample)
		}
	}
	return out, nil
}

func (s *stubRepo) ListScrapeInstants(_ context.Context, sourceURL string) ([]time.Time, error) {
	var out []time.Time
	for _, sample := range s.samples {
		if sample.SourceURL == sourceURL {
			out = append(out, sample.ScrapedAt)
		}
	}
	return out, nil
}

func (s *stubRepo) HealthCheck(context.Context) error { return s.healthErr }

func newTestRouter(repo repository.SampleRepository) *mux.Router {
	analytics := services.NewAnalyticsService(repo, testLogger, testMetrics)
	playback := services.NewPlaybackService(repo, testLogger, testMetrics)
	handler := NewTrackHandler(analytics, playback, repo, testLogger, testMetrics)

	router := mux.NewRouter()
	handler.RegisterRoutes(router)
	return router
}

func seededRepo() *stubRepo {
	lat, lon := 28.1, -15.4
	mk := func(team, label string, speed float64, at time.Time) *models.Sample {
		return &models.Sample{
			TeamName:         team,
			SourceURL:        testSource,
			LastUpdateLabel:  label,
			LatitudeDecimal:  &lat,
			LongitudeDecimal: &lon,
			SpeedKnots:       speed,
			ScrapedAt:        at,
		}
	}

	return &stubRepo{samples: []*models.Sample{
		mk("Atlantic Dash", "u1", 3.21, time.Date(2024, 3, 5, 2, 0, 0, 0, time.UTC)),
		mk("Atlantic Dash", "u2", 3.45, time.Date(2024, 3, 8, 2, 0, 0, 0, time.UTC)),
	}}
}

func doRequest(t *testing.T, router *mux.Router, url string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, url, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func TestTeamAnalyticsMissingName(t *testing.T) {
	router := newTestRouter(&stubRepo{})

	rec, body := doRequest(t, router, "/api/team/analytics")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, false, body["success"])
	assert.Contains(t, body["message"], "example")
}

func TestTeamAnalyticsNoData(t *testing.T) {
	router := newTestRouter(&stubRepo{})

	rec, body := doRequest(t, router, "/api/team/analytics?name=Ghost%20Crew")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, false, body["success"])
}

func TestTeamAnalyticsSuccess(t *testing.T) {
	router := newTestRouter(seededRepo())

	rec, body := doRequest(t, router, "/api/team/analytics?name=Atlantic%20Dash")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Atlantic Dash", body["team_name"])

	days, ok := body["days"].([]interface{})
	require.True(t, ok)
	assert.Len(t, days, 2)
}

func TestTableAnalyticsInvalidTimezone(t *testing.T) {
	router := newTestRouter(seededRepo())

	rec, body := doRequest(t, router, "/api/table/analytics?sourceUrl="+testSource+"&timezone=99")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, body["message"], "timezone")
}

func TestTableAnalyticsSuccess(t *testing.T) {
	router := newTestRouter(seededRepo())

	rec, body := doRequest(t, router, "/api/table/analytics?sourceUrl="+testSource+"&date=2024-03-08")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "2024-03-08", body["date"])
	assert.Equal(t, float64(1), body["team_count"])

	teams, ok := body["teams"].([]interface{})
	require.True(t, ok)
	require.Len(t, teams, 1)

	windows := teams[0].(map[string]interface{})["windows"].([]interface{})
	require.Len(t, windows, 6)

	first := windows[0].(map[string]interface{})
	assert.Equal(t, 3.45, first["current"])
	assert.Equal(t, 3.21, first["seven_day_avg"])
	assert.Equal(t, 0.24, first["diff"])
	assert.Equal(t, 7.5, first["percent_change"])

	// Empty windows keep explicit nulls.
	last := windows[5].(map[string]interface{})
	assert.Nil(t, last["current"])
	assert.Nil(t, last["seven_day_avg"])
}

func TestTableAnalyticsMissingSource(t *testing.T) {
	router := newTestRouter(seededRepo())

	rec, _ := doRequest(t, router, "/api/table/analytics")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAvailableDatesSuccess(t *testing.T) {
	router := newTestRouter(seededRepo())

	rec, body := doRequest(t, router, "/api/dates?sourceUrl="+testSource)
	assert.Equal(t, http.StatusOK, rec.Code)

	dates, ok := body["dates"].([]interface{})
	require.True(t, ok)
	assert.Equal(t, []interface{}{"2024-03-08", "2024-03-05"}, dates)
}

func TestMapDataSuccess(t *testing.T) {
	router := newTestRouter(seededRepo())

	rec, body := doRequest(t, router, "/api/map?sourceUrl="+testSource)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(2), body["total_timestamps"])
	assert.Equal(t, float64(1), body["total_boats"])
}

func TestMapDataNoData(t *testing.T) {
	router := newTestRouter(&stubRepo{})

	rec, _ := doRequest(t, router, "/api/map?sourceUrl="+testSource)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthCheck(t *testing.T) {
	router := newTestRouter(&stubRepo{})

	rec, body := doRequest(t, router, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", body["status"])
}
