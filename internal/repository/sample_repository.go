package repository

import (
	"context"
	"fmt"
	"time"

	"rowtracker-platform/internal/models"
	"rowtracker-platform/pkg/database"
	"rowtracker-platform/pkg/logging"
	"rowtracker-platform/pkg/metrics"
)

// SampleRepository provides data access for boat position samples
type SampleRepository interface {
	// Ingestion operations
	UpsertSamplesBatch(ctx context.Context, samples []*models.Sample) (*UpsertResult, error)

	// Range-read operations
	GetSamplesByRange(ctx context.Context, sourceURL string, start, end time.Time) ([]*models.Sample, error)
	GetSamplesBySource(ctx context.Context, sourceURL string) ([]*models.Sample, error)
	GetSamplesByTeam(ctx context.Context, filter TeamSampleFilter) ([]*models.Sample, error)
	ListScrapeInstants(ctx context.Context, sourceURL string) ([]time.Time, error)

	// Utility operations
	HealthCheck(ctx context.Context) error
}

// TeamSampleFilter selects one team's samples, optionally narrowed by source
// and UTC scrape-time range.
type TeamSampleFilter struct {
	TeamName  string
	SourceURL *string
	Start     *time.Time
	End       *time.Time
}

// UpsertResult summarizes one batch of conditional writes. Inserted counts
// new position reports; Refreshed counts re-scrapes of unchanged reports
// that only touched non-key fields.
type UpsertResult struct {
	Total     int
	Inserted  int
	Refreshed int
	Failed    int
}

// sampleRepository implements SampleRepository
type sampleRepository struct {
	db      *database.PostgresDB
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewSampleRepository creates a new sample repository
func NewSampleRepository(db *database.PostgresDB, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) SampleRepository {
	return &sampleRepository{
		db:      db,
		logger:  logger,
		metrics: metricsCollector,
	}
}

const sampleColumns = `
	id, team_name, source_url, last_update_label,
	latitude, longitude, latitude_decimal, longitude_decimal,
	speed_knots, course_degrees, scraped_at, created_at, updated_at
`

// UpsertSamplesBatch applies one conditional write per sample, keyed by the
// (team_name, source_url, last_update_label) identity triple. An existing
// row is refreshed in place (all non-key fields, created_at excluded); a new
// label inserts a new row. A failing row is logged and skipped so the rest
// of the batch still lands. Only a connection-level failure aborts.
func (r *sampleRepository) UpsertSamplesBatch(ctx context.Context, samples []*models.Sample) (*UpsertResult, error) {
	result := &UpsertResult{Total: len(samples)}
	if len(samples) == 0 {
		return result, nil
	}

	if err := r.db.EnsureConnected(ctx); err != nil {
		result.Failed = len(samples)
		return result, err
	}

	timer := time.Now()
	defer func() {
		r.metrics.IngestionDuration.Observe(time.Since(timer).Seconds())
	}()

	query := `
		INSERT INTO samples (
			team_name, source_url, last_update_label,
			latitude, longitude, latitude_decimal, longitude_decimal,
			speed_knots, course_degrees, scraped_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (team_name, source_url, last_update_label) DO UPDATE SET
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			latitude_decimal = EXCLUDED.latitude_decimal,
			longitude_decimal = EXCLUDED.longitude_decimal,
			speed_knots = EXCLUDED.speed_knots,
			course_degrees = EXCLUDED.course_degrees,
			scraped_at = EXCLUDED.scraped_at,
			updated_at = NOW()
		RETURNING id, (xmax = 0) AS inserted
	`

	for _, sample := range samples {
		// xmax = 0 distinguishes a fresh insert from a conflict update.
		var inserted bool
		err := r.db.DB().QueryRowContext(ctx, query,
			sample.TeamName,
			sample.SourceURL,
			sample.LastUpdateLabel,
			sample.Latitude,
			sample.Longitude,
			sample.LatitudeDecimal,
			sample.LongitudeDecimal,
			sample.SpeedKnots,
			sample.CourseDegrees,
			sample.ScrapedAt,
		).Scan(&sample.ID, &inserted)

		if err != nil {
			result.Failed++
			r.metrics.RecordDBError("upsert_error")
			r.logger.Error(ctx, "[REPO_UPSERT_ERROR] Sample upsert failed", logging.Fields{
				"team_name":   sample.TeamName,
				"source_url":  sample.SourceURL,
				"last_update": sample.LastUpdateLabel,
			}, err)
			continue
		}

		if inserted {
			result.Inserted++
			r.metrics.SamplesInsertedTotal.Inc()
		} else {
			result.Refreshed++
			r.metrics.SamplesRefreshedTotal.Inc()
		}
	}

	r.logger.Debug(ctx, "[REPO_UPSERT_BATCH] Batch upsert completed", logging.Fields{
		"total":     result.Total,
		"inserted":  result.Inserted,
		"refreshed": result.Refreshed,
		"failed":    result.Failed,
	})

	return result, nil
}

// GetSamplesByRange retrieves one source's samples whose scrape instant
// falls inside the inclusive UTC range, ordered by scrape time.
func (r *sampleRepository) GetSamplesByRange(ctx context.Context, sourceURL string, start, end time.Time) ([]*models.Sample, error) {
	query := `
		SELECT ` + sampleColumns + `
		FROM samples
		WHERE source_url = $1 AND scraped_at >= $2 AND scraped_at <= $3
		ORDER BY scraped_at, team_name
	`

	var samples []*models.Sample
	err := r.db.SelectContext(ctx, "get_samples_by_range", &samples, query, sourceURL, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to get samples by range: %w", err)
	}

	return samples, nil
}

// GetSamplesBySource retrieves the full time series for one source,
// ordered by scrape time ascending.
func (r *sampleRepository) GetSamplesBySource(ctx context.Context, sourceURL string) ([]*models.Sample, error) {
	query := `
		SELECT ` + sampleColumns + `
		FROM samples
		WHERE source_url = $1
		ORDER BY scraped_at, team_name
	`

	var samples []*models.Sample
	err := r.db.SelectContext(ctx, "get_samples_by_source", &samples, query, sourceURL)
	if err != nil {
		return nil, fmt.Errorf("failed to get samples by source: %w", err)
	}

	return samples, nil
}

// GetSamplesByTeam retrieves one team's samples with optional source and
// scrape-time narrowing.
func (r *sampleRepository) GetSamplesByTeam(ctx context.Context, filter TeamSampleFilter) ([]*models.Sample, error) {
	query := `
		SELECT ` + sampleColumns + `
		FROM samples
		WHERE team_name = $1
	`
	args := []interface{}{filter.TeamName}
	argNum := 2

	if filter.SourceURL != nil {
		query += fmt.Sprintf(" AND source_url = $%d", argNum)
		args = append(args, *filter.SourceURL)
		argNum++
	}

	if filter.Start != nil {
		query += fmt.Sprintf(" AND scraped_at >= $%d", argNum)
		args = append(args, *filter.Start)
		argNum++
	}

	if filter.End != nil {
		query += fmt.Sprintf(" AND scraped_at <= $%d", argNum)
		args = append(args, *filter.End)
		argNum++
	}

	query += " ORDER BY scraped_at"

	var samples []*models.Sample
	err := r.db.SelectContext(ctx, "get_samples_by_team", &samples, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get samples by team: %w", err)
	}

	return samples, nil
}

// ListScrapeInstants retrieves the distinct scrape instants recorded for one
// source, most recent first.
func (r *sampleRepository) ListScrapeInstants(ctx context.Context, sourceURL string) ([]time.Time, error) {
	query := `
		SELECT DISTINCT scraped_at
		FROM samples
		WHERE source_url = $1
		ORDER BY scraped_at DESC
	`

	var instants []time.Time
	err := r.db.SelectContext(ctx, "list_scrape_instants", &instants, query, sourceURL)
	if err != nil {
		return nil, fmt.Errorf("failed to list scrape instants: %w", err)
	}

	return instants, nil
}

// HealthCheck performs a repository health check
func (r *sampleRepository) HealthCheck(ctx context.Context) error {
	return r.db.HealthCheck(ctx)
}

// NotFoundError represents a resource not found error
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

func (e *NotFoundError) IsTransient() bool {
	return false
}
