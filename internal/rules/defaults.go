package rules

import "aircal/internal/models"

func ptr(v float64) *float64 { return &v }

// DefaultActive is the ordered active rule table. The pm2_5 thresholds 35
// and 75 are the original calendar's level constants; the pm10, NO2 and
// ozone limits follow the same good/fair split.
func DefaultActive() Table {
	return Table{
		{
			Title:       "Pristine Air",
			Description: "Excellent air quality, great time to be outdoors",
			Bounds: []Bound{
				{Metric: models.MetricPM25, Max: 35},
				{Metric: models.MetricPM10, Max: 50},
				{Metric: models.MetricNO2, Max: 40},
				{Metric: models.MetricOzone, Max: 100},
			},
		},
		{
			Title:       "Fair Air",
			Description: "Acceptable air quality, normal plans are fine",
			Bounds: []Bound{
				{Metric: models.MetricPM25, Max: 75},
				{Metric: models.MetricPM10, Max: 150},
				{Metric: models.MetricNO2, Max: 200},
				{Metric: models.MetricOzone, Max: 180},
			},
		},
	}
}

// DefaultWarning is the single warning rule. Hours above even these bounds
// are excluded from both calendars rather than surfaced as a third level.
func DefaultWarning() Rule {
	return Rule{
		Title:       "Air Warning",
		Description: "Elevated pollution, consider staying indoors",
		Bounds: []Bound{
			{Metric: models.MetricPM25, Max: 150},
			{Metric: models.MetricPM10, Max: 250},
			{Metric: models.MetricNO2, Max: 400},
			{Metric: models.MetricOzone, Max: 240},
		},
	}
}

// DefaultOverlay upgrades a pristine hour to "Perfect Outdoors" when the
// weather is also excellent: mild temperature, mostly clear sky, good
// visibility. Eligible only for the first (pristine) rule.
func DefaultOverlay() *Overlay {
	return &Overlay{
		EligibleIndex: 0,
		Title:         "Perfect Outdoors",
		Description:   "Clean air and excellent weather",
		Conditions: []AuxCondition{
			{Metric: models.MetricTemp, Min: ptr(15), Max: ptr(28)},
			{Metric: models.MetricCloudCover, Max: ptr(30)},
			{Metric: models.MetricVisibility, Min: ptr(10000)},
		},
	}
}
