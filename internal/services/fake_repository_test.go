package services

import (
	"context"
	"errors"
	"sort"
	"time"

	"rowtracker-platform/internal/models"
	"rowtracker-platform/internal/repository"
	"rowtracker-platform/pkg/logging"
	"rowtracker-platform/pkg/metrics"
)

// Shared across the package's tests; promauto registers globally, so the
// collector must only be constructed once per process.
var (
	testMetrics = metrics.NewCollector("services_test")
	testLogger  = logging.NewStructuredLogger("services-test", "test", logging.FatalLevel)
)

// fakeSampleRepo is an in-memory SampleRepository implementing the same
// upsert identity semantics as the Postgres schema.
type fakeSampleRepo struct {
	samples []*models.Sample
	nextID  int64

	// failTeams simulates per-row write failures.
	failTeams map[string]bool
	// connErr simulates a connection-level failure aborting a whole batch.
	connErr bool

	rangeReads int
}

func newFakeSampleRepo() *fakeSampleRepo {
	return &fakeSampleRepo{failTeams: make(map[string]bool)}
}

func (f *fakeSampleRepo) UpsertSamplesBatch(_ context.Context, samples []*models.Sample) (*repository.UpsertResult, error) {
	result := &repository.UpsertResult{Total: len(samples)}
	if f.connErr {
		result.Failed = len(samples)
		return result, errors.New("connection refused")
	}

	for _, sample := range samples {
		if f.failTeams[sample.TeamName] {
			result.Failed++
			continue
		}

		existing := f.find(sample.TeamName, sample.SourceURL, sample.LastUpdateLabel)
		if existing != nil {
			created := existing.CreatedAt
			id := existing.ID
			*existing = *sample
			existing.ID = id
			existing.CreatedAt = created
			existing.UpdatedAt = time.Now().UTC()
			result.Refreshed++
			continue
		}

		f.nextID++
		stored := *sample
		stored.ID = f.nextID
		stored.CreatedAt = time.Now().UTC()
		stored.UpdatedAt = stored.CreatedAt
		f.samples = append(f.samples, &stored)
		result.Inserted++
	}

	return result, nil
}

func (f *fakeSampleRepo) find(team, source, label string) *models.Sample {
	for _, s := range f.samples {
		if s.TeamName == team && s.SourceURL == source && s.LastUpdateLabel == label {
			return s
		}
	}
	return nil
}

func (f *fakeSampleRepo) GetSamplesByRange(_ context.Context, sourceURL string, start, end time.Time) ([]*models.Sample, error) {
	f.rangeReads++
	var out []*models.Sample
	for _, s := range f.samples {
		if s.SourceURL != sourceURL {
			continue
		}
		if s.ScrapedAt.Before(start) || s.ScrapedAt.After(end) {
			continue
		}
		out = append(out, s)
	}
	sortByScrapeTime(out)
	return out, nil
}

func (f *fakeSampleRepo) GetSamplesBySource(_ context.Context, sourceURL string) ([]*models.Sample, error) {
	var out []*models.Sample
	for _, s := range f.samples {
		if s.SourceURL == sourceURL {
			out = append(out, s)
		}
	}
	sortByScrapeTime(out)
	return out, nil
}

func (f *fakeSampleRepo) GetSamplesByTeam(_ context.Context, filter repository.TeamSampleFilter) ([]*models.Sample, error) {
	var out []*models.Sample
	for _, s := range f.samples {
		if s.TeamName != filter.TeamName {
			continue
		}
		if filter.SourceURL != nil && s.SourceURL != *filter.SourceURL {
			continue
		}
		if filter.Start != nil && s.ScrapedAt.Before(*filter.Start) {
			continue
		}
		if filter.End != nil && s.ScrapedAt.After(*filter.End) {
			continue
		}
		out = append(out, s)
	}
	sortByScrapeTime(out)
	return out, nil
}

func (f *fakeSampleRepo) ListScrapeInstants(_ context.Context, sourceURL string) ([]time.Time, error) {
	seen := make(map[time.Time]struct{})
	var out []time.Time
	for _, s := range f.samples {
		if s.SourceURL != sourceURL {
			continue
		}
		if _, ok := seen[s.ScrapedAt]; ok {
			continue
		}
		seen[s.ScrapedAt] = struct{}{}
		out = append(out, s.ScrapedAt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].After(out[j]) })
	return out, nil
}

func (f *fakeSampleRepo) HealthCheck(context.Context) error { return nil }

func sortByScrapeTime(samples []*models.Sample) {
	sort.Slice(samples, func(i, j int) bool {
		if samples[i].ScrapedAt.Equal(samples[j].ScrapedAt) {
			return samples[i].TeamName < samples[j].TeamName
		}
		return samples[i].ScrapedAt.Before(samples[j].ScrapedAt)
	})
}

// addSample seeds the fake store directly, bypassing upsert bookkeeping.
func (f *fakeSampleRepo) addSample(team, source, label string, speed float64, scrapedAt time.Time) *models.Sample {
	f.nextID++
	lat, lon := 28.1, -15.4
	s := &models.Sample{
		ID:               f.nextID,
		TeamName:         team,
		SourceURL:        source,
		LastUpdateLabel:  label,
		LatitudeDecimal:  &lat,
		LongitudeDecimal: &lon,
		SpeedKnots:       speed,
		ScrapedAt:        scrapedAt.UTC(),
		CreatedAt:        scrapedAt.UTC(),
		UpdatedAt:        scrapedAt.UTC(),
	}
	f.samples = append(f.samples, s)
	return s
}
