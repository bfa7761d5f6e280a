package handlers

import (
	"encoding/json"
	"net/http"
)

// OpenAPISpec returns the OpenAPI 3.0 specification for the Row Tracker API
func OpenAPISpec(w http.ResponseWriter, r *http.Request) {
	spec := map[string]interface{}{
		"openapi": "3.0.0",
		"info": map[string]interface{}{
			"title":       "Row Tracker API",
			"description": "Ocean-rowing position tracking platform with PostgreSQL-backed ingestion, timezone-aware speed analytics, and map playback",
			"version":     "1.0.0",
			"contact": map[string]string{
				"name": "Row Tracker Team",
			},
		},
		"servers": []map[string]string{
			{"url": "http://localhost:8080", "description": "Local development server"},
		},
		"paths": map[string]interface{}{
			"/api/team/analytics": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Get per-day window statistics for one team",
					"description": "Average speed per 4-hour time-of-day window, grouped by viewer-local calendar day",
					"parameters": []map[string]interface{}{
						{
							"name":        "name",
							"in":          "query",
							"description": "Team name",
							"required":    true,
							"schema":      map[string]string{"type": "string"},
						},
						{
							"name":        "sourceUrl",
							"in":          "query",
							"description": "Restrict to one race feed",
							"required":    false,
							"schema":      map[string]string{"type": "string"},
						},
						{
							"name":        "startDate",
							"in":          "query",
							"description": "Inclusive start date (YYYY-MM-DD, viewer-local)",
							"required":    false,
							"schema":      map[string]string{"type": "string", "format": "date"},
						},
						{
							"name":        "endDate",
							"in":          "query",
							"description": "Inclusive end date (YYYY-MM-DD, viewer-local)",
							"required":    false,
							"schema":      map[string]string{"type": "string", "format": "date"},
						},
						{
							"name":        "timezone",
							"in":          "query",
							"description": "UTC offset in whole hours (default 0)",
							"required":    false,
							"schema":      map[string]interface{}{"type": "integer", "minimum": -12, "maximum": 14},
						},
					},
					"responses": map[string]interface{}{
						"200": map[string]string{"description": "Per-day window statistics"},
						"400": map[string]string{"description": "Missing or invalid parameter"},
						"404": map[string]string{"description": "No samples for this team"},
					},
				},
			},
			"/api/table/analytics": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Compare every team's day against its trailing 7-day baseline",
					"description": "Per-team, per-window current averages, trailing averages, diffs, and percent changes",
					"parameters": []map[string]interface{}{
						{
							"name":        "sourceUrl",
							"in":          "query",
							"description": "Race feed URL",
							"required":    true,
							"schema":      map[string]string{"type": "string"},
						},
						{
							"name":        "date",
							"in":          "query",
							"description": "Target local date (YYYY-MM-DD, default today under timezone)",
							"required":    false,
							"schema":      map[string]string{"type": "string", "format": "date"},
						},
						{
							"name":        "timezone",
							"in":          "query",
							"description": "UTC offset in whole hours (default 0)",
							"required":    false,
							"schema":      map[string]interface{}{"type": "integer", "minimum": -12, "maximum": 14},
						},
					},
					"responses": map[string]interface{}{
						"200": map[string]string{"description": "Comparison table"},
						"400": map[string]string{"description": "Missing or invalid parameter"},
						"404": map[string]string{"description": "No samples in either range"},
					},
				},
			},
			"/api/dates": map[string]interface{}{
				"get": map[string]interface{}{
					"summary": "List local calendar dates with data for one source",
					"parameters": []map[string]interface{}{
						{
							"name":     "sourceUrl",
							"in":       "query",
							"required": true,
							"schema":   map[string]string{"type": "string"},
						},
						{
							"name":     "timezone",
							"in":       "query",
							"required": false,
							"schema":   map[string]interface{}{"type": "integer", "minimum": -12, "maximum": 14},
						},
					},
					"responses": map[string]interface{}{
						"200": map[string]string{"description": "Dates, most recent first"},
						"404": map[string]string{"description": "No samples for this source"},
					},
				},
			},
			"/api/map": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Get map playback frames for one source",
					"description": "Scrape instants filtered down to broad data refreshes, with per-boat positions and speed deltas",
					"parameters": []map[string]interface{}{
						{
							"name":     "sourceUrl",
							"in":       "query",
							"required": true,
							"schema":   map[string]string{"type": "string"},
						},
					},
					"responses": map[string]interface{}{
						"200": map[string]string{"description": "Playback frames"},
						"404": map[string]string{"description": "No samples for this source"},
					},
				},
			},
			"/health": map[string]interface{}{
				"get": map[string]interface{}{
					"summary": "Service and store health",
					"responses": map[string]interface{}{
						"200": map[string]string{"description": "Healthy"},
						"503": map[string]string{"description": "Store unreachable"},
					},
				},
			},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(spec)
}
