package pipeline

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"aircal/internal/config"
	"aircal/internal/logger"
	"aircal/internal/models"
	"aircal/internal/rules"
	"aircal/internal/schedule"
)

func TestMain(m *testing.M) {
	logger.Init("error")
	os.Exit(m.Run())
}

type stubFetcher struct {
	obs []models.Observation
	err error
}

func (s *stubFetcher) Fetch(ctx context.Context) ([]models.Observation, error) {
	return s.obs, s.err
}

type memorySink struct {
	published map[string][]models.Interval
	closed    bool
	failWith  error
}

func newMemorySink() *memorySink {
	return &memorySink{published: map[string][]models.Interval{}}
}

func (m *memorySink) Name() string { return "memory" }

func (m *memorySink) Publish(ctx context.Context, calendar string, intervals []models.Interval) error {
	if m.failWith != nil {
		return m.failWith
	}
	m.published[calendar] = intervals
	return nil
}

func (m *memorySink) Close() error {
	m.closed = true
	return nil
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Timezone = "UTC"
	cfg.QuietStart = 0
	cfg.QuietEnd = 6
	cfg.MinDurationHours = 2
	return cfg
}

func testPartitioner(cfg *config.Config) *schedule.Partitioner {
	return schedule.NewPartitioner(
		rules.DefaultActive(),
		rules.DefaultOverlay(),
		rules.DefaultWarning(),
		schedule.QuietWindow{Start: cfg.QuietStart, End: cfg.QuietEnd},
	)
}

func hourly(start time.Time, pm25 ...float64) []models.Observation {
	obs := make([]models.Observation, len(pm25))
	for i, v := range pm25 {
		obs[i] = models.Observation{
			Timestamp: start.Add(time.Duration(i) * time.Hour),
			Values: map[string]float64{
				models.MetricPM25:       v,
				models.MetricPM10:       10,
				models.MetricNO2:        10,
				models.MetricOzone:      30,
				models.MetricTemp:       10,
				models.MetricCloudCover: 50,
				models.MetricVisibility: 5000,
			},
		}
	}
	return obs
}

func TestRunDeliversBothCalendars(t *testing.T) {
	cfg := testConfig()
	day := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	// Hours 09-12 clean, 13-15 warning-zone.
	obs := hourly(day, 10, 10, 10, 10, 100, 100, 100)
	ms := newMemorySink()
	r := NewWithDeps(cfg, &stubFetcher{obs: obs}, testPartitioner(cfg), ms)

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	active := ms.published[models.CalendarActive]
	warning := ms.published[models.CalendarWarning]
	if len(active) != 1 || active[0].Label.Title != "Pristine Air" {
		t.Fatalf("unexpected active stream %+v", active)
	}
	if active[0].Hours() != 4 {
		t.Fatalf("active interval should span 4 hours, got %d", active[0].Hours())
	}
	if len(warning) != 1 || warning[0].Label.Title != "Air Warning" {
		t.Fatalf("unexpected warning stream %+v", warning)
	}
	if !ms.closed {
		t.Fatal("sinks must be closed after the run")
	}
}

func TestRunAppliesMinimumDuration(t *testing.T) {
	cfg := testConfig()
	day := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	// One clean hour surrounded by excluded hours: segmented but pruned.
	obs := hourly(day, 200, 10, 200)
	ms := newMemorySink()
	r := NewWithDeps(cfg, &stubFetcher{obs: obs}, testPartitioner(cfg), ms)

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := ms.published[models.CalendarActive]; len(got) != 0 {
		t.Fatalf("one-hour interval must be pruned at min 2h, got %+v", got)
	}
}

func TestRunEmptyInput(t *testing.T) {
	cfg := testConfig()
	ms := newMemorySink()
	r := NewWithDeps(cfg, &stubFetcher{}, testPartitioner(cfg), ms)

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("empty input must not fail: %v", err)
	}
	if len(ms.published[models.CalendarActive]) != 0 || len(ms.published[models.CalendarWarning]) != 0 {
		t.Fatal("empty input must publish empty streams")
	}
	if _, ok := ms.published[models.CalendarActive]; !ok {
		t.Fatal("empty streams must still be delivered to the sink")
	}
}

func TestRunFetchFailureSkipsSinks(t *testing.T) {
	cfg := testConfig()
	ms := newMemorySink()
	fetchErr := errors.New("upstream down")
	r := NewWithDeps(cfg, &stubFetcher{err: fetchErr}, testPartitioner(cfg), ms)

	err := r.Run(context.Background())
	if !errors.Is(err, fetchErr) {
		t.Fatalf("expected wrapped fetch error, got %v", err)
	}
	if len(ms.published) != 0 {
		t.Fatal("a failed fetch must never reach a sink")
	}
	if !ms.closed {
		t.Fatal("sinks must still be closed on failure")
	}
}

func TestRunSinkFailurePropagates(t *testing.T) {
	cfg := testConfig()
	day := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	ms := newMemorySink()
	ms.failWith = errors.New("disk full")
	r := NewWithDeps(cfg, &stubFetcher{obs: hourly(day, 10, 10)}, testPartitioner(cfg), ms)

	if err := r.Run(context.Background()); err == nil {
		t.Fatal("sink failure must fail the run")
	}
}

func TestNewBuildsICSSink(t *testing.T) {
	cfg := testConfig()
	cfg.OutputDir = t.TempDir()
	r, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if len(r.sinks) != 1 {
		t.Fatalf("expected only the ics sink by default, got %d sinks", len(r.sinks))
	}

	cfg.KafkaBrokers = []string{"localhost:9092"}
	r, err = New(cfg)
	if err != nil {
		t.Fatalf("New with kafka: %v", err)
	}
	if len(r.sinks) != 2 {
		t.Fatalf("expected ics and kafka sinks, got %d", len(r.sinks))
	}
	r.closeSinks()
}
