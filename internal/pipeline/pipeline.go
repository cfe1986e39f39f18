// Package pipeline is the one-shot coordinator: fetch the forecast, build
// both calendar streams, prune short intervals, and hand the result to
// every configured sink.
package pipeline

import (
	"context"
	"fmt"

	"aircal/internal/config"
	"aircal/internal/logger"
	"aircal/internal/metrics"
	"aircal/internal/models"
	"aircal/internal/openmeteo"
	"aircal/internal/rules"
	"aircal/internal/schedule"
	"aircal/internal/sink"
)

// Fetcher retrieves the cleaned observation sequence for one run.
type Fetcher interface {
	Fetch(ctx context.Context) ([]models.Observation, error)
}

// Runner wires fetcher, partitioner, and sinks for one run.
type Runner struct {
	cfg         *config.Config
	fetcher     Fetcher
	partitioner *schedule.Partitioner
	sinks       []sink.Sink
}

// New constructs a Runner with the default rule configuration and the sinks
// the config enables. The ICS file sink is always present; the Kafka sink
// only when brokers are configured.
func New(cfg *config.Config) (*Runner, error) {
	log := logger.WithComponent("pipeline")

	fileSink, err := sink.NewICSFileSink(cfg.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("init ics sink: %w", err)
	}
	sinks := []sink.Sink{fileSink}

	if len(cfg.KafkaBrokers) > 0 {
		kafkaSink, err := sink.NewKafkaSink(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			return nil, fmt.Errorf("init kafka sink: %w", err)
		}
		sinks = append(sinks, kafkaSink)
		log.Info().
			Strs("brokers", cfg.KafkaBrokers).
			Str("topic", cfg.KafkaTopic).
			Msg("kafka sink enabled")
	}

	return &Runner{
		cfg:     cfg,
		fetcher: openmeteo.New(cfg),
		partitioner: schedule.NewPartitioner(
			rules.DefaultActive(),
			rules.DefaultOverlay(),
			rules.DefaultWarning(),
			schedule.QuietWindow{Start: cfg.QuietStart, End: cfg.QuietEnd},
		),
		sinks: sinks,
	}, nil
}

// NewWithDeps constructs a Runner over explicit collaborators, for tests.
func NewWithDeps(cfg *config.Config, fetcher Fetcher, p *schedule.Partitioner, sinks ...sink.Sink) *Runner {
	return &Runner{cfg: cfg, fetcher: fetcher, partitioner: p, sinks: sinks}
}

// Run executes one complete pass. A fetch failure returns before any sink
// is touched, so a broken run never publishes a partial calendar.
func (r *Runner) Run(ctx context.Context) error {
	log := logger.WithComponent("pipeline")
	defer r.closeSinks()

	obs, err := r.fetcher.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("fetch observations: %w", err)
	}
	log.Info().Int("observations", len(obs)).Msg("classifying forecast")

	quiet := r.partitioner.Quiet
	for _, o := range obs {
		if quiet.Suppressed(o.Timestamp) {
			metrics.HoursSuppressed.Inc()
		}
	}

	active, warning := r.partitioner.Run(obs)

	streams := map[string][]models.Interval{
		models.CalendarActive:  active,
		models.CalendarWarning: warning,
	}
	for name, ivs := range streams {
		kept := schedule.FilterMinDuration(ivs, r.cfg.MinDurationHours)
		metrics.IntervalsPruned.WithLabelValues(name).Add(float64(len(ivs) - len(kept)))
		log.Info().
			Str("calendar", name).
			Int("segmented", len(ivs)).
			Int("kept", len(kept)).
			Msg("intervals built")
		streams[name] = kept
	}

	for _, s := range r.sinks {
		for _, name := range []string{models.CalendarActive, models.CalendarWarning} {
			if err := s.Publish(ctx, name, streams[name]); err != nil {
				return fmt.Errorf("sink %s: %w", s.Name(), err)
			}
		}
	}

	metrics.RunSuccess.Set(1)
	if r.cfg.PushgatewayURL != "" {
		if err := metrics.Push(r.cfg.PushgatewayURL); err != nil {
			// Metrics delivery is best-effort; the calendars are
			// already on disk.
			log.Warn().Err(err).Msg("pushgateway delivery failed")
		}
	}

	log.Info().Msg("run completed")
	return nil
}

func (r *Runner) closeSinks() {
	log := logger.WithComponent("pipeline")
	for _, s := range r.sinks {
		if err := s.Close(); err != nil {
			log.Error().Err(err).Str("sink", s.Name()).Msg("sink close error")
		}
	}
}
