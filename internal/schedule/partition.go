package schedule

import (
	"aircal/internal/metrics"
	"aircal/internal/models"
	"aircal/internal/rules"
)

// Partitioner derives the two label functions from one observation stream
// and runs the segmenter once per calendar. The runs share no state; an
// hour is labeled on at most one of the two calendars.
type Partitioner struct {
	Active  rules.Table
	Overlay *rules.Overlay
	Warning rules.Rule
	Quiet   QuietWindow

	// activeZone is the union of the active table's bounds, derived from
	// the table itself so threshold tuning cannot diverge from the guard.
	activeZone rules.Rule
}

// NewPartitioner builds a partitioner over the given rule configuration.
func NewPartitioner(active rules.Table, overlay *rules.Overlay, warning rules.Rule, quiet QuietWindow) *Partitioner {
	return &Partitioner{
		Active:     active,
		Overlay:    overlay,
		Warning:    warning,
		Quiet:      quiet,
		activeZone: active.UnionBounds(),
	}
}

// ActiveLabel classifies one hour for the active calendar: the ordered rule
// table, then the overlay upgrade when the matched rule is eligible.
func (p *Partitioner) ActiveLabel(o models.Observation) *models.Label {
	l, idx := p.Active.Classify(o)
	if idx < 0 {
		return nil
	}
	if p.Overlay != nil {
		l = p.Overlay.Apply(o, l, idx)
	}
	return &l
}

// WarningLabel classifies one hour for the warning calendar. Hours inside
// the active zone get no warning label; hours beyond even the warning
// bounds get none either and are silently excluded from both calendars.
func (p *Partitioner) WarningLabel(o models.Observation) *models.Label {
	if p.activeZone.Matches(o) {
		return nil
	}
	if !p.Warning.Matches(o) {
		return nil
	}
	l := p.Warning.Label(o)
	return &l
}

// Run segments the observation sequence once per calendar and returns the
// two independent interval streams.
func (p *Partitioner) Run(obs []models.Observation) (active, warning []models.Interval) {
	active = Segment(obs, p.counted(models.CalendarActive, p.ActiveLabel), p.Quiet)
	warning = Segment(obs, p.counted(models.CalendarWarning, p.WarningLabel), p.Quiet)
	metrics.IntervalsEmitted.WithLabelValues(models.CalendarActive).Add(float64(len(active)))
	metrics.IntervalsEmitted.WithLabelValues(models.CalendarWarning).Add(float64(len(warning)))
	return active, warning
}

// counted wraps a label function with per-title counters.
func (p *Partitioner) counted(calendar string, fn LabelFunc) LabelFunc {
	return func(o models.Observation) *models.Label {
		l := fn(o)
		if l != nil {
			metrics.HoursLabeled.WithLabelValues(calendar, l.Title).Inc()
		}
		return l
	}
}
