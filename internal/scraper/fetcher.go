package scraper

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"rowtracker-platform/internal/models"
	"rowtracker-platform/pkg/logging"
	"rowtracker-platform/pkg/metrics"
)

const defaultUserAgent = "rowtracker-platform/1.0"

// Client fetches tracking pages and extracts position rows from them.
type Client struct {
	httpClient *http.Client
	userAgent  string
	logger     *logging.StructuredLogger
	metrics    *metrics.Collector
}

// NewClient creates a scraper client with the given request timeout.
func NewClient(timeout time.Duration, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  defaultUserAgent,
		logger:     logger,
		metrics:    metricsCollector,
	}
}

// FetchPositions downloads one source page and parses its positions table.
// A page that parses to zero rows is not an error; the caller decides how to
// treat an empty batch.
func (c *Client) FetchPositions(ctx context.Context, sourceURL string) ([]models.RawPositionRow, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", sourceURL, err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	timer := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.RecordScrapeError("fetch_error")
		return nil, fmt.Errorf("failed to fetch %s: %w", sourceURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.metrics.RecordScrapeError("http_status")
		return nil, fmt.Errorf("unexpected status %d fetching %s", resp.StatusCode, sourceURL)
	}

	rows, err := ParsePositionTable(resp.Body)
	if err != nil {
		c.metrics.RecordScrapeError("parse_error")
		return nil, fmt.Errorf("failed to parse positions table from %s: %w", sourceURL, err)
	}

	c.metrics.ScrapeRowsParsed.Observe(float64(len(rows)))
	c.logger.Debug(ctx, "[SCRAPE_FETCH] Source page fetched", logging.Fields{
		"source_url":  sourceURL,
		"rows":        len(rows),
		"duration_ms": time.Since(timer).Milliseconds(),
	})

	return rows, nil
}
