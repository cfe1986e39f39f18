package models

import "time"

// Label is the classification result for one hour. Title is the merge
// identity: two adjacent hours join the same interval iff their titles are
// identical, upgraded variants included. Description is rendered from the
// matched rule's template with the triggering metric values and is carried
// from the hour that opened the interval; it does not participate in the
// merge test.
type Label struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Interval is a maximal run of identically labeled hours. End is exclusive:
// the start of the last merged hour plus one hour.
type Interval struct {
	Label Label     `json:"label"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Hours returns the interval duration in whole sampling units.
func (iv Interval) Hours() int {
	return int(iv.End.Sub(iv.Start) / time.Hour)
}

// Calendar names for the two output partitions.
const (
	CalendarActive  = "active"
	CalendarWarning = "warning"
)

// IntervalEvent is the JSON payload published to Kafka for one emitted
// interval.
type IntervalEvent struct {
	Calendar    string    `json:"calendar"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	EmittedAt   time.Time `json:"emitted_at"`
}

// NewIntervalEvent wraps an interval for publishing.
func NewIntervalEvent(calendar string, iv Interval) *IntervalEvent {
	return &IntervalEvent{
		Calendar:    calendar,
		Title:       iv.Label.Title,
		Description: iv.Label.Description,
		Start:       iv.Start,
		End:         iv.End,
		EmittedAt:   time.Now().UTC(),
	}
}
