package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

var (
	// Fetch metrics
	FetchRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aircal_fetch_requests_total",
			Help: "Total number of upstream HTTP requests",
		},
		[]string{"endpoint", "status"},
	)

	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "aircal_fetch_duration_seconds",
			Help:    "Upstream request latency in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"endpoint"},
	)

	// Observation metrics
	ObservationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "aircal_observations_total",
			Help: "Total number of hourly observations after cleaning",
		},
	)

	ObservationsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aircal_observations_dropped_total",
			Help: "Hourly rows dropped during response decoding",
		},
		[]string{"reason"}, // reason: missing_metric, bad_timestamp
	)

	// Classification metrics
	HoursLabeled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aircal_hours_labeled_total",
			Help: "Hours that received a label, by calendar and title",
		},
		[]string{"calendar", "title"},
	)

	HoursSuppressed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "aircal_hours_suppressed_total",
			Help: "Hours excluded by the night suppression window",
		},
	)

	// Interval metrics
	IntervalsEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aircal_intervals_emitted_total",
			Help: "Intervals produced by segmentation, by calendar",
		},
		[]string{"calendar"},
	)

	IntervalsPruned = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aircal_intervals_pruned_total",
			Help: "Intervals dropped for being shorter than the minimum duration",
		},
		[]string{"calendar"},
	)

	// Sink metrics
	SinkPublishTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aircal_sink_publish_total",
			Help: "Sink deliveries by sink name and status",
		},
		[]string{"sink", "status"}, // status: success, failed
	)

	// Run outcome
	RunSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "aircal_run_success",
			Help: "1 if the last run completed and wrote its calendars, else 0",
		},
	)
)

// Push delivers the default registry to a Pushgateway. aircal is a batch
// job, so metrics are pushed once at the end of a run instead of being
// scraped.
func Push(url string) error {
	return push.New(url, "aircal").
		Gatherer(prometheus.DefaultGatherer).
		Push()
}
