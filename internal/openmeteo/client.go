// Package openmeteo fetches the hourly air-quality and weather forecast for
// one location from the Open-Meteo APIs and decodes it into a clean,
// chronological observation sequence. One attempt per run: any transport,
// status, or shape error aborts the run before anything is written.
package openmeteo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"aircal/internal/config"
	"aircal/internal/logger"
	"aircal/internal/metrics"
	"aircal/internal/models"
)

// Client errors
var (
	ErrUpstreamStatus = errors.New("upstream returned non-200 status")
	ErrBadShape       = errors.New("upstream response shape mismatch")
)

// hourlyTime is the local-time format Open-Meteo uses when a timezone
// parameter is supplied.
const hourlyTime = "2006-01-02T15:04"

// Metrics requested per endpoint.
var (
	airMetrics     = []string{models.MetricPM25, models.MetricPM10, models.MetricNO2, models.MetricOzone}
	weatherMetrics = []string{models.MetricTemp, models.MetricCloudCover, models.MetricVisibility}
)

// Client fetches and joins the two hourly endpoints.
type Client struct {
	cfg  *config.Config
	http *http.Client
	loc  *time.Location
}

// New builds a client for the configured location and horizon.
func New(cfg *config.Config) *Client {
	return &Client{
		cfg: cfg,
		http: &http.Client{
			Timeout:   cfg.FetchTimeout,
			Transport: newLoggingTransport(nil),
		},
		loc: cfg.Location(),
	}
}

// hourlyResponse is the columnar Open-Meteo hourly payload: a "time" array
// plus one parallel value array per requested metric. Values may be null.
type hourlyResponse struct {
	Hourly map[string]json.RawMessage `json:"hourly"`
}

// Fetch retrieves both endpoints and returns the cleaned, chronologically
// sorted observation sequence. Hours missing any required metric (null,
// absent, or present on only one endpoint) are dropped, matching the
// original's coerce-and-dropna cleanup.
func (c *Client) Fetch(ctx context.Context) ([]models.Observation, error) {
	log := logger.WithComponent("openmeteo")

	air, err := c.fetchHourly(ctx, c.cfg.AirQualityURL, airMetrics)
	if err != nil {
		return nil, fmt.Errorf("air quality fetch: %w", err)
	}
	weather, err := c.fetchHourly(ctx, c.cfg.WeatherURL, weatherMetrics)
	if err != nil {
		return nil, fmt.Errorf("weather fetch: %w", err)
	}

	required := append(append([]string{}, airMetrics...), weatherMetrics...)
	obs := join(air, weather, required)
	sort.Slice(obs, func(i, j int) bool { return obs[i].Timestamp.Before(obs[j].Timestamp) })

	metrics.ObservationsTotal.Add(float64(len(obs)))
	log.Info().
		Int("air_hours", len(air)).
		Int("weather_hours", len(weather)).
		Int("observations", len(obs)).
		Msg("forecast fetched")

	return obs, nil
}

// fetchHourly retrieves one endpoint and decodes its hourly columns into a
// per-timestamp metric map. Null and unparsable cells are dropped here.
func (c *Client) fetchHourly(ctx context.Context, endpoint string, names []string) (map[time.Time]map[string]float64, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint %q: %w", endpoint, err)
	}

	q := u.Query()
	q.Set("latitude", strconv.FormatFloat(c.cfg.Latitude, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(c.cfg.Longitude, 'f', -1, 64))
	q.Set("hourly", strings.Join(names, ","))
	q.Set("timezone", c.cfg.Timezone)
	q.Set("forecast_days", strconv.Itoa(c.cfg.ForecastDays))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: %d from %s: %s", ErrUpstreamStatus, resp.StatusCode, u.Host, body)
	}

	var payload hourlyResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if payload.Hourly == nil {
		return nil, fmt.Errorf("%w: missing hourly block", ErrBadShape)
	}

	return c.decodeColumns(payload.Hourly, names)
}

func (c *Client) decodeColumns(hourly map[string]json.RawMessage, names []string) (map[time.Time]map[string]float64, error) {
	rawTimes, ok := hourly["time"]
	if !ok {
		return nil, fmt.Errorf("%w: missing time column", ErrBadShape)
	}
	var times []string
	if err := json.Unmarshal(rawTimes, &times); err != nil {
		return nil, fmt.Errorf("%w: time column: %v", ErrBadShape, err)
	}

	columns := make(map[string][]*float64, len(names))
	for _, name := range names {
		raw, ok := hourly[name]
		if !ok {
			return nil, fmt.Errorf("%w: missing column %q", ErrBadShape, name)
		}
		var col []*float64
		if err := json.Unmarshal(raw, &col); err != nil {
			return nil, fmt.Errorf("%w: column %q: %v", ErrBadShape, name, err)
		}
		if len(col) != len(times) {
			return nil, fmt.Errorf("%w: column %q has %d cells for %d timestamps", ErrBadShape, name, len(col), len(times))
		}
		columns[name] = col
	}

	out := make(map[time.Time]map[string]float64, len(times))
	for i, ts := range times {
		t, err := time.ParseInLocation(hourlyTime, ts, c.loc)
		if err != nil {
			metrics.ObservationsDropped.WithLabelValues("bad_timestamp").Inc()
			continue
		}
		row := make(map[string]float64, len(names))
		complete := true
		for _, name := range names {
			cell := columns[name][i]
			if cell == nil {
				complete = false
				break
			}
			row[name] = *cell
		}
		if !complete {
			metrics.ObservationsDropped.WithLabelValues("missing_metric").Inc()
			continue
		}
		out[t] = row
	}
	return out, nil
}

// join merges the two per-timestamp maps, keeping only hours that carry
// every required metric.
func join(air, weather map[time.Time]map[string]float64, required []string) []models.Observation {
	obs := make([]models.Observation, 0, len(air))
	for ts, airRow := range air {
		weatherRow, ok := weather[ts]
		if !ok {
			metrics.ObservationsDropped.WithLabelValues("missing_metric").Inc()
			continue
		}
		values := make(map[string]float64, len(airRow)+len(weatherRow))
		for k, v := range airRow {
			values[k] = v
		}
		for k, v := range weatherRow {
			values[k] = v
		}
		o := models.Observation{Timestamp: ts, Values: values}
		if err := o.Validate(required); err != nil {
			metrics.ObservationsDropped.WithLabelValues("missing_metric").Inc()
			continue
		}
		obs = append(obs, o)
	}
	return obs
}
