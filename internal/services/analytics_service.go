package services

import (
	"context"
	"math"
	"sort"
	"time"

	"rowtracker-platform/internal/models"
	"rowtracker-platform/internal/repository"
	"rowtracker-platform/internal/timewindow"
	"rowtracker-platform/pkg/logging"
	"rowtracker-platform/pkg/metrics"
)

// TrailingDays is the length of the historical baseline window.
const TrailingDays = 7

// AnalyticsService computes speed statistics over stored samples. All
// aggregation happens in memory from bounded range reads; nothing here
// caches across requests.
type AnalyticsService struct {
	repo    repository.SampleRepository
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewAnalyticsService creates a new analytics service
func NewAnalyticsService(repo repository.SampleRepository, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *AnalyticsService {
	return &AnalyticsService{
		repo:    repo,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// TeamAnalyticsQuery selects one team's samples for per-day window stats.
type TeamAnalyticsQuery struct {
	TeamName  string
	SourceURL *string
	StartDate *string // inclusive, YYYY-MM-DD in viewer-local time
	EndDate   *string // inclusive
	Timezone  int     // UTC offset in whole hours
}

// TableAnalyticsQuery selects one source and target local date for the
// current-vs-trailing comparison.
type TableAnalyticsQuery struct {
	SourceURL string
	Date      string // YYYY-MM-DD in viewer-local time
	Timezone  int
}

// TableAnalytics is the table analytics response payload.
type TableAnalytics struct {
	Date      string                  `json:"date"`
	TeamCount int                     `json:"team_count"`
	Teams     []models.TeamComparison `json:"teams"`
}

// TeamAnalytics computes per-local-day window statistics for one team.
// Returns NotFoundError when no samples match, so "no data" surfaces as 404
// rather than an empty list.
func (s *AnalyticsService) TeamAnalytics(ctx context.Context, q TeamAnalyticsQuery) ([]*models.DailyStats, error) {
	filter := repository.TeamSampleFilter{
		TeamName:  q.TeamName,
		SourceURL: q.SourceURL,
	}

	if q.StartDate != nil {
		start, _, err := timewindow.DayRangeUTC(*q.StartDate, q.Timezone)
		if err != nil {
			return nil, err
		}
		filter.Start = &start
	}

	if q.EndDate != nil {
		_, end, err := timewindow.DayRangeUTC(*q.EndDate, q.Timezone)
		if err != nil {
			return nil, err
		}
		filter.End = &end
	}

	samples, err := s.repo.GetSamplesByTeam(ctx, filter)
	if err != nil {
		return nil, err
	}
	if len(samples) == 0 {
		return nil, &repository.NotFoundError{Resource: "team_samples", ID: q.TeamName}
	}

	timer := time.Now()
	defer func() {
		s.metrics.AnalyticsComputeDuration.WithLabelValues("team_analytics").Observe(time.Since(timer).Seconds())
	}()

	byDate := make(map[string][]*models.Sample)
	for _, sample := range samples {
		date, _ := timewindow.Localize(sample.ScrapedAt, q.Timezone)
		byDate[date] = append(byDate[date], sample)
	}

	dates := make([]string, 0, len(byDate))
	for date := range byDate {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	stats := make([]*models.DailyStats, 0, len(dates))
	for _, date := range dates {
		if day := aggregateDay(date, byDate[date], q.Timezone); day != nil {
			stats = append(stats, day)
		}
	}

	return stats, nil
}

// aggregateDay computes per-window mean speeds for one local calendar day.
// Windows without samples are omitted rather than reported as zero; an empty
// sample set yields no stats row at all.
func aggregateDay(date string, samples []*models.Sample, offsetHours int) *models.DailyStats {
	if len(samples) == 0 {
		return nil
	}

	var sums [timewindow.WindowCount]float64
	var counts [timewindow.WindowCount]int
	var totalSum float64

	for _, sample := range samples {
		_, localHour := timewindow.Localize(sample.ScrapedAt, offsetHours)
		w := timewindow.WindowOf(localHour)
		sums[w.Index] += sample.SpeedKnots
		counts[w.Index]++
		totalSum += sample.SpeedKnots
	}

	day := &models.DailyStats{
		Date:       date,
		OverallAvg: round2(totalSum / float64(len(samples))),
		DataPoints: len(samples),
	}

	for _, w := range timewindow.Windows() {
		if counts[w.Index] == 0 {
			continue
		}
		avg := round2(sums[w.Index] / float64(counts[w.Index]))
		day.Windows = append(day.Windows, models.WindowStats{
			Window:     w.Label(),
			AvgSpeed:   &avg,
			DataPoints: counts[w.Index],
		})
	}

	return day
}

// TableAnalytics compares every team's target-day window averages against
// the trailing seven local days. The whole table is built from exactly two
// range reads regardless of team count: one covering the target day and one
// covering the trailing window, both in UTC.
func (s *AnalyticsService) TableAnalytics(ctx context.Context, q TableAnalyticsQuery) (*TableAnalytics, error) {
	dayStart, dayEnd, err := timewindow.DayRangeUTC(q.Date, q.Timezone)
	if err != nil {
		return nil, err
	}
	trailStart, trailEnd, err := timewindow.TrailingRangeUTC(q.Date, q.Timezone, TrailingDays)
	if err != nil {
		return nil, err
	}

	current, err := s.repo.GetSamplesByRange(ctx, q.SourceURL, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}
	trailing, err := s.repo.GetSamplesByRange(ctx, q.SourceURL, trailStart, trailEnd)
	if err != nil {
		return nil, err
	}

	if len(current) == 0 && len(trailing) == 0 {
		return nil, &repository.NotFoundError{Resource: "source_samples", ID: q.SourceURL}
	}

	timer := time.Now()
	defer func() {
		s.metrics.AnalyticsComputeDuration.WithLabelValues("table_analytics").Observe(time.Since(timer).Seconds())
	}()

	currentAvgs := windowAveragesByTeam(current, q.Timezone)
	trailingAvgs := windowAveragesByTeam(trailing, q.Timezone)

	// Teams from either range appear in the table; a side without data
	// keeps nil values instead of being dropped.
	teamSet := make(map[string]struct{})
	for team := range currentAvgs {
		teamSet[team] = struct{}{}
	}
	for team := range trailingAvgs {
		teamSet[team] = struct{}{}
	}
	teams := make([]string, 0, len(teamSet))
	for team := range teamSet {
		teams = append(teams, team)
	}
	sort.Strings(teams)

	windows := timewindow.Windows()
	result := &TableAnalytics{
		Date:      q.Date,
		TeamCount: len(teams),
		Teams:     make([]models.TeamComparison, 0, len(teams)),
	}

	for _, team := range teams {
		comparison := models.TeamComparison{
			TeamName: team,
			Windows:  make([]models.WindowComparison, 0, len(windows)),
		}

		for _, w := range windows {
			wc := models.WindowComparison{
				Window:      w.Label(),
				Current:     currentAvgs[team][w.Index],
				SevenDayAvg: trailingAvgs[team][w.Index],
			}

			if wc.Current != nil && wc.SevenDayAvg != nil {
				diff := round2(*wc.Current - *wc.SevenDayAvg)
				wc.Diff = &diff

				// Division by a missing or zero baseline yields null,
				// never Infinity.
				if *wc.SevenDayAvg != 0 {
					pct := round1(100 * diff / *wc.SevenDayAvg)
					wc.PercentChange = &pct
				}
			}

			comparison.Windows = append(comparison.Windows, wc)
		}

		result.Teams = append(result.Teams, comparison)
	}

	return result, nil
}

// windowAveragesByTeam buckets samples into per-team per-window mean speeds,
// rounded to two decimals. Missing windows stay nil.
func windowAveragesByTeam(samples []*models.Sample, offsetHours int) map[string][timewindow.WindowCount]*float64 {
	type acc struct {
		sums   [timewindow.WindowCount]float64
		counts [timewindow.WindowCount]int
	}

	accs := make(map[string]*acc)
	for _, sample := range samples {
		a := accs[sample.TeamName]
		if a == nil {
			a = &acc{}
			accs[sample.TeamName] = a
		}
		_, localHour := timewindow.Localize(sample.ScrapedAt, offsetHours)
		w := timewindow.WindowOf(localHour)
		a.sums[w.Index] += sample.SpeedKnots
		a.counts[w.Index]++
	}

	averages := make(map[string][timewindow.WindowCount]*float64, len(accs))
	for team, a := range accs {
		var avgs [timewindow.WindowCount]*float64
		for i := 0; i < timewindow.WindowCount; i++ {
			if a.counts[i] == 0 {
				continue
			}
			avg := round2(a.sums[i] / float64(a.counts[i]))
			avgs[i] = &avg
		}
		averages[team] = avgs
	}

	return averages
}

// AvailableDates lists the distinct local calendar dates covered by a
// source's stored scrape instants, most recent first.
func (s *AnalyticsService) AvailableDates(ctx context.Context, sourceURL string, offsetHours int) ([]string, error) {
	instants, err := s.repo.ListScrapeInstants(ctx, sourceURL)
	if err != nil {
		return nil, err
	}
	if len(instants) == 0 {
		return nil, &repository.NotFoundError{Resource: "source_samples", ID: sourceURL}
	}

	seen := make(map[string]struct{})
	dates := make([]string, 0)
	for _, instant := range instants {
		date, _ := timewindow.Localize(instant, offsetHours)
		if _, ok := seen[date]; ok {
			continue
		}
		seen[date] = struct{}{}
		dates = append(dates, date)
	}

	// Instants arrive newest first, but local dates can interleave around
	// midnight; sort to guarantee descending order.
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))

	return dates, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
