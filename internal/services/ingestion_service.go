package services

import (
	"context"
	"time"

	"rowtracker-platform/internal/models"
	"rowtracker-platform/internal/repository"
	"rowtracker-platform/pkg/logging"
	"rowtracker-platform/pkg/metrics"
)

// IngestionService turns freshly parsed position rows into idempotent writes.
// Re-scraping an unchanged page refreshes existing rows without growing the
// time series; a changed last-update label appends a new logical sample.
type IngestionService struct {
	repo     repository.SampleRepository
	archiver *CSVArchiver
	logger   *logging.StructuredLogger
	metrics  *metrics.Collector
}

// IngestResult contains per-source ingestion statistics for one batch.
type IngestResult struct {
	SourceURL string
	Parsed    int
	Skipped   int
	Inserted  int
	Refreshed int
	Failed    int
}

// NewIngestionService creates a new ingestion service. The archiver is
// optional; pass nil to disable CSV archiving.
func NewIngestionService(repo repository.SampleRepository, archiver *CSVArchiver, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *IngestionService {
	return &IngestionService{
		repo:     repo,
		archiver: archiver,
		logger:   logger,
		metrics:  metricsCollector,
	}
}

// IngestBatch converts one source's raw rows into samples and upserts them,
// stamping every sample with the batch's scrape instant. Store failures are
// logged and absorbed here: CSV archiving and the rest of the cycle never
// depend on database success. A zero-row batch is a warning, not an error.
func (s *IngestionService) IngestBatch(ctx context.Context, sourceURL string, rows []models.RawPositionRow, scrapedAt time.Time) *IngestResult {
	result := &IngestResult{SourceURL: sourceURL, Parsed: len(rows)}

	if len(rows) == 0 {
		s.logger.Warn(ctx, "[INGEST_EMPTY] Source page yielded no position rows", logging.Fields{
			"source_url": sourceURL,
		})
		return result
	}

	samples := make([]*models.Sample, 0, len(rows))
	for _, row := range rows {
		sample, err := row.ToSample(sourceURL, scrapedAt)
		if err != nil {
			result.Skipped++
			s.metrics.RecordIngestionError("validation_error")
			s.logger.Warn(ctx, "[INGEST_ROW_SKIPPED] Row failed validation", logging.Fields{
				"source_url": sourceURL,
				"team_name":  row.TeamName,
				"reason":     err.Error(),
			})
			continue
		}
		samples = append(samples, sample)
	}

	// Archive before the store write so a database outage never costs the
	// raw scrape data.
	if s.archiver != nil {
		if err := s.archiver.Append(ctx, sourceURL, samples); err != nil {
			s.metrics.RecordIngestionError("archive_error")
			s.logger.Error(ctx, "[INGEST_ARCHIVE_ERROR] CSV archive write failed", logging.Fields{
				"source_url": sourceURL,
			}, err)
		}
	}

	upsert, err := s.repo.UpsertSamplesBatch(ctx, samples)
	if err != nil {
		s.metrics.RecordIngestionError("store_error")
		s.logger.Error(ctx, "[INGEST_STORE_ERROR] Batch upsert failed", logging.Fields{
			"source_url": sourceURL,
			"samples":    len(samples),
		}, err)
	}
	if upsert != nil {
		result.Inserted = upsert.Inserted
		result.Refreshed = upsert.Refreshed
		result.Failed = upsert.Failed
	}

	s.logger.Info(ctx, "[INGEST_BATCH] Batch ingested", logging.Fields{
		"source_url": sourceURL,
		"parsed":     result.Parsed,
		"skipped":    result.Skipped,
		"inserted":   result.Inserted,
		"refreshed":  result.Refreshed,
		"failed":     result.Failed,
	})

	return result
}
