package models

import (
	"errors"
	"time"
)

// Metric names as they appear in the Open-Meteo hourly response.
const (
	MetricPM25       = "pm2_5"
	MetricPM10       = "pm10"
	MetricNO2        = "nitrogen_dioxide"
	MetricOzone      = "ozone"
	MetricTemp       = "temperature_2m"
	MetricCloudCover = "cloud_cover"
	MetricVisibility = "visibility"
)

// Validation errors
var (
	ErrZeroTimestamp = errors.New("observation timestamp cannot be zero")
	ErrMissingMetric = errors.New("observation is missing a required metric")
)

// Observation is one sampled hour: a timezone-aware timestamp plus a mapping
// from metric name to numeric value. Rows with missing or non-numeric
// required metrics are dropped while decoding the upstream response and
// never reach the classification core.
type Observation struct {
	Timestamp time.Time          `json:"timestamp"`
	Values    map[string]float64 `json:"values"`
}

// Validate checks the observation carries all required metrics.
func (o *Observation) Validate(required []string) error {
	if o.Timestamp.IsZero() {
		return ErrZeroTimestamp
	}
	for _, m := range required {
		if _, ok := o.Values[m]; !ok {
			return ErrMissingMetric
		}
	}
	return nil
}

// Value returns the named metric and whether it is present.
func (o *Observation) Value(metric string) (float64, bool) {
	v, ok := o.Values[metric]
	return v, ok
}
