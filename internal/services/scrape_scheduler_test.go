package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rowtracker-platform/internal/models"
)

type fakeFetcher struct {
	mu      sync.Mutex
	rows    map[string][]models.RawPositionRow
	errs    map[string]error
	fetches []string
	notify  chan string
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		rows:   make(map[string][]models.RawPositionRow),
		errs:   make(map[string]error),
		notify: make(chan string, 16),
	}
}

func (f *fakeFetcher) FetchPositions(_ context.Context, sourceURL string) ([]models.RawPositionRow, error) {
	f.mu.Lock()
	f.fetches = append(f.fetches, sourceURL)
	f.mu.Unlock()
	f.notify <- sourceURL

	if err := f.errs[sourceURL]; err != nil {
		return nil, err
	}
	return f.rows[sourceURL], nil
}

func (f *fakeFetcher) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.fetches)
}

func TestRunCycleContinuesPastFailingSource(t *testing.T) {
	sourceA := "https://example.com/race-a"
	sourceB := "https://example.com/race-b"

	fetcher := newFakeFetcher()
	fetcher.errs[sourceA] = errors.New("connection reset")
	fetcher.rows[sourceB] = testRows()

	repo := newFakeSampleRepo()
	ingestion := NewIngestionService(repo, nil, testLogger, testMetrics)
	sched := NewScrapeScheduler(fetcher, ingestion, []string{sourceA, sourceB},
		time.Hour, clockwork.NewFakeClock(), testLogger, testMetrics)

	sched.RunCycle(context.Background())

	// Source A failed, source B still ingested.
	assert.Equal(t, 2, fetcher.fetchCount())
	assert.Len(t, repo.samples, 2)
	for _, s := range repo.samples {
		assert.Equal(t, sourceB, s.SourceURL)
	}
}

func TestRunCycleStampsScrapeInstantFromClock(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC))

	fetcher := newFakeFetcher()
	fetcher.rows[testSource] = testRows()

	repo := newFakeSampleRepo()
	ingestion := NewIngestionService(repo, nil, testLogger, testMetrics)
	sched := NewScrapeScheduler(fetcher, ingestion, []string{testSource},
		time.Hour, clock, testLogger, testMetrics)

	sched.RunCycle(context.Background())

	require.NotEmpty(t, repo.samples)
	for _, s := range repo.samples {
		assert.Equal(t, clock.Now().UTC(), s.ScrapedAt)
	}
}

func TestRunExecutesCyclesOnTicks(t *testing.T) {
	clock := clockwork.NewFakeClock()

	fetcher := newFakeFetcher()
	fetcher.rows[testSource] = testRows()

	repo := newFakeSampleRepo()
	ingestion := NewIngestionService(repo, nil, testLogger, testMetrics)
	sched := NewScrapeScheduler(fetcher, ingestion, []string{testSource},
		15*time.Minute, clock, testLogger, testMetrics)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		sched.Run(ctx)
		close(done)
	}()

	// First cycle runs immediately.
	waitForFetch(t, fetcher)

	// Each tick runs one more cycle.
	clock.BlockUntil(1)
	clock.Advance(15 * time.Minute)
	waitForFetch(t, fetcher)

	clock.BlockUntil(1)
	clock.Advance(15 * time.Minute)
	waitForFetch(t, fetcher)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop after context cancellation")
	}

	assert.Equal(t, 3, fetcher.fetchCount())
}

func waitForFetch(t *testing.T, fetcher *fakeFetcher) {
	t.Helper()
	select {
	case <-fetcher.notify:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a fetch")
	}
}
