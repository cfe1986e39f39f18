// Package sink delivers finished interval streams to their destinations:
// an iCalendar file per calendar, and optionally a Kafka topic for
// downstream consumers.
package sink

import (
	"context"

	"aircal/internal/models"
)

// Sink accepts one finished calendar stream per call.
type Sink interface {
	// Name identifies the sink in logs and metrics.
	Name() string
	// Publish delivers the ordered interval stream for one calendar.
	Publish(ctx context.Context, calendar string, intervals []models.Interval) error
	Close() error
}
