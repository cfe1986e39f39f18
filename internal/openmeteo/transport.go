package openmeteo

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"aircal/internal/logger"
	"aircal/internal/metrics"
)

// loggingTransport wraps an http.RoundTripper with structured request
// logging and fetch metrics.
type loggingTransport struct {
	next http.RoundTripper
}

func newLoggingTransport(next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return &loggingTransport{next: next}
}

func (t *loggingTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	start := time.Now()

	requestID := uuid.New().String()
	r.Header.Set("X-Request-ID", requestID)

	log := logger.WithRequestID(requestID).With().
		Str("method", r.Method).
		Str("host", r.URL.Host).
		Str("path", r.URL.Path).
		Logger()

	log.Debug().Msg("request sent")

	resp, err := t.next.RoundTrip(r)
	duration := time.Since(start)
	metrics.FetchDuration.WithLabelValues(r.URL.Host).Observe(duration.Seconds())

	if err != nil {
		log.Error().Err(err).Dur("duration_ms", duration).Msg("request failed")
		metrics.FetchRequestsTotal.WithLabelValues(r.URL.Host, "error").Inc()
		return nil, err
	}

	log.Info().
		Int("status", resp.StatusCode).
		Dur("duration_ms", duration).
		Msg("request completed")

	metrics.FetchRequestsTotal.WithLabelValues(
		r.URL.Host,
		fmt.Sprintf("%d", resp.StatusCode),
	).Inc()

	return resp, nil
}
