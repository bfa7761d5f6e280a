package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"sync"
	"time"

	"rowtracker-platform/internal/models"
	"rowtracker-platform/pkg/logging"
)

// unsafeFilenameRe strips everything that is not filename-safe when deriving
// an archive name from a source URL.
var unsafeFilenameRe = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// CSVArchiver appends scraped batches to one CSV file per source. The
// archive is a parallel persistence path: it is written whether or not the
// database write succeeds.
type CSVArchiver struct {
	dir    string
	mu     sync.Mutex
	logger *logging.StructuredLogger
}

// NewCSVArchiver creates an archiver rooted at dir, creating it if needed.
func NewCSVArchiver(dir string, logger *logging.StructuredLogger) (*CSVArchiver, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}
	return &CSVArchiver{dir: dir, logger: logger}, nil
}

// Append writes one batch of samples to the source's archive file, adding
// the header when the file is new.
func (a *CSVArchiver) Append(ctx context.Context, sourceURL string, samples []*models.Sample) error {
	if len(samples) == 0 {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	path := filepath.Join(a.dir, archiveFilename(sourceURL))

	info, statErr := os.Stat(path)
	newFile := statErr != nil || info.Size() == 0

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open archive %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)

	if newFile {
		header := []string{
			"scraped_at", "team_name", "last_update",
			"latitude", "longitude", "latitude_decimal", "longitude_decimal",
			"speed_knots", "course_degrees",
		}
		if err := w.Write(header); err != nil {
			return fmt.Errorf("failed to write archive header: %w", err)
		}
	}

	for _, s := range samples {
		record := []string{
			s.ScrapedAt.UTC().Format(time.RFC3339),
			s.TeamName,
			s.LastUpdateLabel,
			s.Latitude,
			s.Longitude,
			formatOptionalFloat(s.LatitudeDecimal),
			formatOptionalFloat(s.LongitudeDecimal),
			strconv.FormatFloat(s.SpeedKnots, 'f', -1, 64),
			strconv.Itoa(s.CourseDegrees),
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("failed to write archive record: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush archive: %w", err)
	}

	a.logger.Debug(ctx, "[ARCHIVE_APPEND] Batch archived", logging.Fields{
		"source_url": sourceURL,
		"path":       path,
		"records":    len(samples),
	})

	return nil
}

func archiveFilename(sourceURL string) string {
	name := unsafeFilenameRe.ReplaceAllString(sourceURL, "_")
	return name + ".csv"
}

func formatOptionalFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
