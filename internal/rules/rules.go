// Package rules implements the threshold classification of hourly
// observations: an ordered table of per-metric upper bounds plus an optional
// overlay that upgrades the best base level when auxiliary weather
// conditions also hold.
package rules

import (
	"fmt"
	"math"
	"strings"

	"aircal/internal/models"
)

// Bound is one inclusive upper limit within a rule.
type Bound struct {
	Metric string
	Max    float64
}

// Rule maps an observation to a label when every bound is satisfied
// (value <= Max for each bound).
type Rule struct {
	Title       string
	Description string
	Bounds      []Bound
}

// Matches reports whether every bound of the rule holds for the
// observation. A metric absent from the observation fails the rule; the
// upstream decoder guarantees required metrics are present, so this only
// matters for misconfigured rule sets.
func (r Rule) Matches(o models.Observation) bool {
	for _, b := range r.Bounds {
		v, ok := o.Value(b.Metric)
		if !ok || v > b.Max {
			return false
		}
	}
	return true
}

// Label renders the rule's label for the given observation, with the
// triggering metric values embedded as integers.
func (r Rule) Label(o models.Observation) models.Label {
	return models.Label{
		Title:       r.Title,
		Description: r.Description + " (" + renderValues(o, r.Bounds) + ")",
	}
}

// Table is an ordered rule list, most restrictive first. Order is the
// tie-break: the first matching rule wins, so an hour that satisfies the
// pristine bounds never also counts as acceptable.
type Table []Rule

// Classify returns the label and index of the first matching rule, or
// (zero, -1) when no rule matches.
func (t Table) Classify(o models.Observation) (models.Label, int) {
	for i, r := range t {
		if r.Matches(o) {
			return r.Label(o), i
		}
	}
	return models.Label{}, -1
}

// UnionBounds derives the loosest per-metric bound across the table. The
// warning partition uses this as its "already in the active zone" guard, so
// tuning the active thresholds can never silently diverge from the guard.
func (t Table) UnionBounds() Rule {
	byMetric := map[string]float64{}
	var order []string
	for _, r := range t {
		for _, b := range r.Bounds {
			cur, seen := byMetric[b.Metric]
			if !seen {
				order = append(order, b.Metric)
				byMetric[b.Metric] = b.Max
			} else if b.Max > cur {
				byMetric[b.Metric] = b.Max
			}
		}
	}
	bounds := make([]Bound, len(order))
	for i, m := range order {
		bounds[i] = Bound{Metric: m, Max: byMetric[m]}
	}
	return Rule{Title: "active-zone", Bounds: bounds}
}

// AuxCondition is one overlay condition over an auxiliary metric. Nil ends
// leave that side unconstrained, so a condition can be a two-sided range or
// a one-sided minimum/maximum.
type AuxCondition struct {
	Metric string
	Min    *float64
	Max    *float64
}

func (c AuxCondition) holds(o models.Observation) bool {
	v, ok := o.Value(c.Metric)
	if !ok {
		return false
	}
	if c.Min != nil && v < *c.Min {
		return false
	}
	if c.Max != nil && v > *c.Max {
		return false
	}
	return true
}

// Overlay upgrades the label of one specific base level when every
// auxiliary condition holds. Keeping it a pure label substitution means the
// segmenter's title-equality merge needs no special case, and a long clean
// stretch naturally splits at each overlay flip.
type Overlay struct {
	EligibleIndex int
	Title         string
	Description   string
	Conditions    []AuxCondition
}

// Apply returns the upgraded label when the base rule index is eligible and
// all auxiliary conditions hold, otherwise the base label unchanged.
func (ov Overlay) Apply(o models.Observation, base models.Label, baseIndex int) models.Label {
	if baseIndex != ov.EligibleIndex {
		return base
	}
	for _, c := range ov.Conditions {
		if !c.holds(o) {
			return base
		}
	}
	return models.Label{
		Title:       ov.Title,
		Description: ov.Description + " (" + renderValues(o, conditionBounds(ov.Conditions)) + ")",
	}
}

func conditionBounds(conds []AuxCondition) []Bound {
	out := make([]Bound, len(conds))
	for i, c := range conds {
		out[i] = Bound{Metric: c.Metric}
	}
	return out
}

func renderValues(o models.Observation, bounds []Bound) string {
	parts := make([]string, 0, len(bounds))
	for _, b := range bounds {
		if v, ok := o.Value(b.Metric); ok {
			parts = append(parts, fmt.Sprintf("%s %d", b.Metric, int(math.Round(v))))
		}
	}
	return strings.Join(parts, ", ")
}
