package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Default Open-Meteo endpoints, overridable for tests.
const (
	DefaultAirQualityURL = "https://air-quality-api.open-meteo.com/v1/air-quality"
	DefaultWeatherURL    = "https://api.open-meteo.com/v1/forecast"
)

// Config holds runtime configuration for one aircal run.
type Config struct {
	// Location and horizon of the forecast request
	Latitude     float64
	Longitude    float64
	Timezone     string
	ForecastDays int

	// Open-Meteo endpoints
	AirQualityURL string
	WeatherURL    string

	// Night suppression window: hour-of-day in [QuietStart, QuietEnd) is
	// never part of any interval
	QuietStart int
	QuietEnd   int

	// Minimum interval duration kept after segmentation
	MinDurationHours int

	// Directory the .ics files are written to
	OutputDir string

	// Optional Kafka sink; disabled when no brokers are configured
	KafkaBrokers []string
	KafkaTopic   string

	// Optional Prometheus Pushgateway; disabled when empty
	PushgatewayURL string

	// HTTP timeout for the single fetch attempt
	FetchTimeout time.Duration
}

// Default returns a sensible default config for local dev.
func Default() *Config {
	return &Config{
		Latitude:         30.27,
		Longitude:        120.15,
		Timezone:         "Asia/Shanghai",
		ForecastDays:     7,
		AirQualityURL:    DefaultAirQualityURL,
		WeatherURL:       DefaultWeatherURL,
		QuietStart:       0,
		QuietEnd:         6,
		MinDurationHours: 2,
		OutputDir:        "public",
		KafkaTopic:       "aircal.intervals",
		FetchTimeout:     30 * time.Second,
	}
}

// FromEnv builds a Config from environment variables on top of Default.
func FromEnv() (*Config, error) {
	cfg := Default()

	if err := floatVar(&cfg.Latitude, "AIRCAL_LAT"); err != nil {
		return nil, err
	}
	if err := floatVar(&cfg.Longitude, "AIRCAL_LON"); err != nil {
		return nil, err
	}
	if v := os.Getenv("AIRCAL_TIMEZONE"); v != "" {
		cfg.Timezone = v
	}
	if err := intVar(&cfg.ForecastDays, "AIRCAL_FORECAST_DAYS"); err != nil {
		return nil, err
	}
	if v := os.Getenv("AIRCAL_AIR_URL"); v != "" {
		cfg.AirQualityURL = v
	}
	if v := os.Getenv("AIRCAL_WEATHER_URL"); v != "" {
		cfg.WeatherURL = v
	}
	if err := intVar(&cfg.QuietStart, "AIRCAL_QUIET_START"); err != nil {
		return nil, err
	}
	if err := intVar(&cfg.QuietEnd, "AIRCAL_QUIET_END"); err != nil {
		return nil, err
	}
	if err := intVar(&cfg.MinDurationHours, "AIRCAL_MIN_HOURS"); err != nil {
		return nil, err
	}
	if v := os.Getenv("AIRCAL_OUTPUT_DIR"); v != "" {
		cfg.OutputDir = v
	}
	if v := os.Getenv("AIRCAL_KAFKA_BROKERS"); v != "" {
		cfg.KafkaBrokers = splitCSV(v)
	}
	if v := os.Getenv("AIRCAL_KAFKA_TOPIC"); v != "" {
		cfg.KafkaTopic = v
	}
	cfg.PushgatewayURL = os.Getenv("AIRCAL_PUSHGATEWAY_URL")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the option set is internally consistent.
func (c *Config) Validate() error {
	if c.Latitude < -90 || c.Latitude > 90 {
		return fmt.Errorf("latitude %v out of range [-90, 90]", c.Latitude)
	}
	if c.Longitude < -180 || c.Longitude > 180 {
		return fmt.Errorf("longitude %v out of range [-180, 180]", c.Longitude)
	}
	if c.ForecastDays < 1 || c.ForecastDays > 7 {
		return fmt.Errorf("forecast days %d out of range [1, 7]", c.ForecastDays)
	}
	if c.QuietStart < 0 || c.QuietStart > 23 {
		return fmt.Errorf("quiet start hour %d out of range [0, 23]", c.QuietStart)
	}
	if c.QuietEnd < 0 || c.QuietEnd > 23 {
		return fmt.Errorf("quiet end hour %d out of range [0, 23]", c.QuietEnd)
	}
	if c.MinDurationHours < 1 {
		return fmt.Errorf("minimum duration %d must be at least 1 hour", c.MinDurationHours)
	}
	if c.Timezone == "" {
		return fmt.Errorf("timezone must not be empty")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return nil
}

// Location resolves the configured timezone; falls back to UTC if the zone
// cannot be loaded (Validate catches that earlier in normal operation).
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func floatVar(dst *float64, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	*dst = f
	return nil
}

func intVar(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	*dst = n
	return nil
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
