package openmeteo

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"aircal/internal/config"
	"aircal/internal/logger"
	"aircal/internal/models"
)

func TestMain(m *testing.M) {
	logger.Init("error")
	os.Exit(m.Run())
}

const airBody = `{
	"hourly": {
		"time": ["2025-06-01T00:00", "2025-06-01T01:00", "2025-06-01T02:00"],
		"pm2_5": [12.5, null, 40.0],
		"pm10": [20.0, 25.0, 60.0],
		"nitrogen_dioxide": [10.0, 11.0, 12.0],
		"ozone": [30.0, 31.0, 32.0]
	}
}`

const weatherBody = `{
	"hourly": {
		"time": ["2025-06-01T00:00", "2025-06-01T01:00", "2025-06-01T02:00"],
		"temperature_2m": [18.0, 19.0, 20.0],
		"cloud_cover": [10.0, 20.0, 30.0],
		"visibility": [24000.0, 24000.0, 24000.0]
	}
}`

func testClient(t *testing.T, airHandler, weatherHandler http.HandlerFunc) (*Client, func()) {
	t.Helper()
	air := httptest.NewServer(airHandler)
	weather := httptest.NewServer(weatherHandler)

	cfg := config.Default()
	cfg.Timezone = "UTC"
	cfg.AirQualityURL = air.URL
	cfg.WeatherURL = weather.URL

	return New(cfg), func() {
		air.Close()
		weather.Close()
	}
}

func serve(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}
}

func TestFetchJoinsAndCleans(t *testing.T) {
	c, done := testClient(t, serve(airBody), serve(weatherBody))
	defer done()

	obs, err := c.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	// Hour 01 has a null pm2_5 cell and must be dropped.
	if len(obs) != 2 {
		t.Fatalf("expected 2 clean observations, got %d: %+v", len(obs), obs)
	}
	if !obs[0].Timestamp.Before(obs[1].Timestamp) {
		t.Fatal("observations must be chronologically sorted")
	}

	first := obs[0]
	if first.Timestamp != time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC) {
		t.Fatalf("unexpected first timestamp %v", first.Timestamp)
	}
	if v := first.Values[models.MetricPM25]; v != 12.5 {
		t.Fatalf("pm2_5 = %v, want 12.5", v)
	}
	if v := first.Values[models.MetricTemp]; v != 18.0 {
		t.Fatalf("temperature = %v, want 18.0 (weather join failed)", v)
	}
}

func TestFetchSendsExpectedQuery(t *testing.T) {
	var gotQuery map[string]string
	air := func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{
			"hourly":        r.URL.Query().Get("hourly"),
			"timezone":      r.URL.Query().Get("timezone"),
			"forecast_days": r.URL.Query().Get("forecast_days"),
			"latitude":      r.URL.Query().Get("latitude"),
		}
		serve(airBody)(w, r)
	}
	c, done := testClient(t, air, serve(weatherBody))
	defer done()

	if _, err := c.Fetch(context.Background()); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if gotQuery["hourly"] != "pm2_5,pm10,nitrogen_dioxide,ozone" {
		t.Errorf("hourly param = %q", gotQuery["hourly"])
	}
	if gotQuery["timezone"] != "UTC" || gotQuery["forecast_days"] != "7" {
		t.Errorf("unexpected query params %v", gotQuery)
	}
	if gotQuery["latitude"] != "30.27" {
		t.Errorf("latitude param = %q", gotQuery["latitude"])
	}
}

func TestFetchUpstreamStatusAborts(t *testing.T) {
	c, done := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}, serve(weatherBody))
	defer done()

	_, err := c.Fetch(context.Background())
	if !errors.Is(err, ErrUpstreamStatus) {
		t.Fatalf("expected ErrUpstreamStatus, got %v", err)
	}
}

func TestFetchShapeMismatchAborts(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"missing hourly block", `{}`},
		{"missing time column", `{"hourly": {"pm2_5": [1]}}`},
		{"missing metric column", `{"hourly": {"time": ["2025-06-01T00:00"], "pm2_5": [1], "pm10": [1], "nitrogen_dioxide": [1]}}`},
		{"ragged columns", `{"hourly": {"time": ["2025-06-01T00:00"], "pm2_5": [1, 2], "pm10": [1], "nitrogen_dioxide": [1], "ozone": [1]}}`},
		{"not json", `<html>`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, done := testClient(t, serve(tc.body), serve(weatherBody))
			defer done()
			if _, err := c.Fetch(context.Background()); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}

func TestFetchHourMissingFromWeatherDropped(t *testing.T) {
	shortWeather := `{
		"hourly": {
			"time": ["2025-06-01T00:00"],
			"temperature_2m": [18.0],
			"cloud_cover": [10.0],
			"visibility": [24000.0]
		}
	}`
	c, done := testClient(t, serve(airBody), serve(shortWeather))
	defer done()

	obs, err := c.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(obs) != 1 {
		t.Fatalf("hours without weather data must be dropped, got %d", len(obs))
	}
}

func TestFetchParsesConfiguredTimezone(t *testing.T) {
	air := httptest.NewServer(serve(airBody))
	weather := httptest.NewServer(serve(weatherBody))
	defer air.Close()
	defer weather.Close()

	cfg := config.Default()
	cfg.Timezone = "Asia/Shanghai"
	cfg.AirQualityURL = air.URL
	cfg.WeatherURL = weather.URL

	obs, err := New(cfg).Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(obs) == 0 {
		t.Fatal("expected observations")
	}
	if zone, _ := obs[0].Timestamp.Zone(); zone != "CST" {
		t.Fatalf("timestamp zone = %q, want CST", zone)
	}
	if obs[0].Timestamp.Hour() != 0 {
		t.Fatalf("local hour = %d, want 0", obs[0].Timestamp.Hour())
	}
}
