// Package schedule turns a chronological sequence of labeled hours into
// minimal-count contiguous intervals and applies the post-filters that make
// the result publishable: night suppression, minimum duration, and the
// active/warning partition.
package schedule

import (
	"time"

	"aircal/internal/models"
)

// LabelFunc classifies one observation. A nil result means the hour carries
// no label and closes any open interval.
type LabelFunc func(models.Observation) *models.Label

// QuietWindow is the night suppression window. An hour-of-day in
// [Start, End) is suppressed: it never carries a label and additionally
// forces an interval boundary, so identical labels on either side of the
// window never merge across it. Start == End disables suppression.
type QuietWindow struct {
	Start int
	End   int
}

// Suppressed reports whether the timestamp falls inside the window. The
// window may wrap midnight (Start > End).
func (q QuietWindow) Suppressed(ts time.Time) bool {
	h := ts.Hour()
	if q.Start == q.End {
		return false
	}
	if q.Start < q.End {
		return h >= q.Start && h < q.End
	}
	return h >= q.Start || h < q.End
}

// Segment folds the observation sequence into maximal runs of identically
// titled hours. The fold state is an explicit optional: nil means idle, a
// non-nil interval is the currently open run. Observations must be in
// chronological order, one per hour.
func Segment(obs []models.Observation, label LabelFunc, quiet QuietWindow) []models.Interval {
	var out []models.Interval
	var open *models.Interval

	flush := func() {
		if open != nil {
			out = append(out, *open)
			open = nil
		}
	}

	for _, o := range obs {
		if quiet.Suppressed(o.Timestamp) {
			// Hard break: a suppressed hour never merges with
			// either neighbor.
			flush()
			continue
		}

		l := label(o)
		if l == nil {
			flush()
			continue
		}

		if open != nil && open.Label.Title == l.Title {
			open.End = o.Timestamp.Add(time.Hour)
			continue
		}

		flush()
		open = &models.Interval{
			Label: *l,
			Start: o.Timestamp,
			End:   o.Timestamp.Add(time.Hour),
		}
	}

	flush()
	return out
}

// FilterMinDuration drops intervals shorter than minHours. It preserves
// order and never re-merges intervals left adjacent by a drop; merging
// happens only during segmentation.
func FilterMinDuration(ivs []models.Interval, minHours int) []models.Interval {
	kept := make([]models.Interval, 0, len(ivs))
	for _, iv := range ivs {
		if iv.Hours() >= minHours {
			kept = append(kept, iv)
		}
	}
	return kept
}
