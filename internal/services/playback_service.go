package services

import (
	"context"
	"math"
	"sort"
	"time"

	"rowtracker-platform/internal/models"
	"rowtracker-platform/internal/repository"
	"rowtracker-platform/pkg/logging"
	"rowtracker-platform/pkg/metrics"
)

// meaningfulFraction is the share of known boats that must report data at an
// instant for it to survive the playback filter.
const meaningfulFraction = 0.5

// PlaybackService prepares map playback data. The upstream source refreshes
// boats irregularly, so raw scrape instants are dominated by near-duplicate
// frames; the filter keeps only instants where a broad share of the fleet
// reported data.
type PlaybackService struct {
	repo    repository.SampleRepository
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewPlaybackService creates a new playback service
func NewPlaybackService(repo repository.SampleRepository, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *PlaybackService {
	return &PlaybackService{
		repo:    repo,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// MapData is the map playback response payload.
type MapData struct {
	Timestamps      []time.Time       `json:"timestamps"`
	Frames          []models.MapFrame `json:"frames"`
	TotalInstants   int               `json:"total_timestamps"`
	RetainedCount   int               `json:"retained_timestamps"`
	DiscardedCount  int               `json:"discarded_timestamps"`
	TotalBoatsSeen  int               `json:"total_boats"`
	RetainThreshold int               `json:"retain_threshold"`
}

// MapData builds playback frames for one source from its full time series.
func (s *PlaybackService) MapData(ctx context.Context, sourceURL string) (*MapData, error) {
	samples, err := s.repo.GetSamplesBySource(ctx, sourceURL)
	if err != nil {
		return nil, err
	}
	if len(samples) == 0 {
		return nil, &repository.NotFoundError{Resource: "source_samples", ID: sourceURL}
	}

	timer := time.Now()
	defer func() {
		s.metrics.AnalyticsComputeDuration.WithLabelValues("map_data").Observe(time.Since(timer).Seconds())
	}()

	return buildMapData(samples), nil
}

// buildMapData runs the meaningful-timestamp filter and assembles frames.
// Samples must be ordered by scrape time ascending.
func buildMapData(samples []*models.Sample) *MapData {
	// Group per boat, preserving chronological order within each boat.
	byTeam := make(map[string][]*models.Sample)
	for _, sample := range samples {
		byTeam[sample.TeamName] = append(byTeam[sample.TeamName], sample)
	}

	// Count distinct boats reporting at each instant. The threshold is
	// computed over raw sample presence: boats with unparsable coordinates
	// still count here even though they are hidden from frames.
	boatsAtInstant := make(map[time.Time]map[string]struct{})
	for _, sample := range samples {
		t := sample.ScrapedAt
		if boatsAtInstant[t] == nil {
			boatsAtInstant[t] = make(map[string]struct{})
		}
		boatsAtInstant[t][sample.TeamName] = struct{}{}
	}

	totalBoats := len(byTeam)
	threshold := int(math.Ceil(float64(totalBoats) * meaningfulFraction))
	if threshold < 1 {
		threshold = 1
	}

	retained := make([]time.Time, 0, len(boatsAtInstant))
	for instant, boats := range boatsAtInstant {
		if len(boats) >= threshold {
			retained = append(retained, instant)
		}
	}
	// Most recent first for playback.
	sort.Slice(retained, func(i, j int) bool { return retained[i].After(retained[j]) })

	teams := make([]string, 0, len(byTeam))
	for team := range byTeam {
		teams = append(teams, team)
	}
	sort.Strings(teams)

	frames := make([]models.MapFrame, 0, len(retained))
	for _, instant := range retained {
		frame := models.MapFrame{Timestamp: instant}

		for _, team := range teams {
			history := byTeam[team]

			// The boat's state at this instant is its latest observation
			// at or before it; the comparison baseline is the observation
			// immediately preceding that one, retained or not.
			idx := latestAtOrBefore(history, instant)
			if idx < 0 {
				continue
			}
			current := history[idx]

			// Boats without usable decimal coordinates stay off the map
			// but were already counted toward the retain threshold.
			if !current.HasPosition() {
				continue
			}

			boat := models.BoatFrame{
				TeamName:         team,
				LatitudeDecimal:  *current.LatitudeDecimal,
				LongitudeDecimal: *current.LongitudeDecimal,
				SpeedKnots:       current.SpeedKnots,
				CourseDegrees:    current.CourseDegrees,
				LastUpdateLabel:  current.LastUpdateLabel,
			}

			if idx > 0 {
				prev := history[idx-1]
				diff := round2(current.SpeedKnots - prev.SpeedKnots)
				boat.SpeedDiff = &diff
				if prev.SpeedKnots != 0 {
					pct := round1(100 * diff / prev.SpeedKnots)
					boat.PercentChange = &pct
				}
			}

			frame.Boats = append(frame.Boats, boat)
		}

		frames = append(frames, frame)
	}

	return &MapData{
		Timestamps:      retained,
		Frames:          frames,
		TotalInstants:   len(boatsAtInstant),
		RetainedCount:   len(retained),
		DiscardedCount:  len(boatsAtInstant) - len(retained),
		TotalBoatsSeen:  totalBoats,
		RetainThreshold: threshold,
	}
}

// latestAtOrBefore returns the index of the last sample scraped at or before
// the instant, or -1 when the boat has no observation yet. History must be
// in ascending scrape order.
func latestAtOrBefore(history []*models.Sample, instant time.Time) int {
	idx := sort.Search(len(history), func(i int) bool {
		return history[i].ScrapedAt.After(instant)
	})
	return idx - 1
}
