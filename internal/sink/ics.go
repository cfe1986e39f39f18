package sink

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	ics "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"aircal/internal/logger"
	"aircal/internal/metrics"
	"aircal/internal/models"
)

const calendarCreator = "-//aircal//air quality calendar//EN"

// ICSFileSink serializes one .ics file per calendar into a directory. Files
// are written to a temp path and renamed, so an aborted run never leaves a
// partial calendar behind.
type ICSFileSink struct {
	dir string

	// PrefixTimeRange prepends the rendered HH:MM–HH:MM range to each
	// event summary.
	PrefixTimeRange bool
}

// NewICSFileSink creates the output directory if needed.
func NewICSFileSink(dir string) (*ICSFileSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir %q: %w", dir, err)
	}
	return &ICSFileSink{dir: dir, PrefixTimeRange: true}, nil
}

// Name implements Sink.
func (s *ICSFileSink) Name() string { return "ics" }

// Publish renders the interval stream as one timed VEVENT per interval and
// writes <dir>/<calendar>.ics.
func (s *ICSFileSink) Publish(ctx context.Context, calendar string, intervals []models.Interval) error {
	log := logger.WithComponent("ics_sink")

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(calendarCreator)
	cal.SetXWRCalName(fmt.Sprintf("aircal %s", calendar))

	for _, iv := range intervals {
		ev := cal.AddEvent(uuid.New().String() + "@aircal")
		ev.SetDtStampTime(iv.Start)
		ev.SetStartAt(iv.Start)
		ev.SetEndAt(iv.End)
		ev.SetSummary(s.summary(iv))
		ev.SetDescription(iv.Label.Description)
	}

	path := filepath.Join(s.dir, calendar+".ics")
	if err := writeAtomic(path, []byte(cal.Serialize())); err != nil {
		metrics.SinkPublishTotal.WithLabelValues(s.Name(), "failed").Inc()
		return fmt.Errorf("write calendar %q: %w", calendar, err)
	}

	metrics.SinkPublishTotal.WithLabelValues(s.Name(), "success").Inc()
	log.Info().
		Str("calendar", calendar).
		Str("path", path).
		Int("events", len(intervals)).
		Msg("calendar written")
	return nil
}

// Close implements Sink.
func (s *ICSFileSink) Close() error { return nil }

func (s *ICSFileSink) summary(iv models.Interval) string {
	if !s.PrefixTimeRange {
		return iv.Label.Title
	}
	return fmt.Sprintf("%s–%s %s",
		iv.Start.Format("15:04"),
		iv.End.Format("15:04"),
		iv.Label.Title,
	)
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
