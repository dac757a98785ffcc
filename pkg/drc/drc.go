// Package drc parses design-rule-check reports produced by an external
// checker into a typed record. The core never runs DRC itself
// against a whole board; it only consumes reports so the reasoning and
// repair helpers built on top of this module can act on them.
package drc

import "github.com/rjwalters/kicad-tools-sub002/pkg/geometry"

// Severity classifies how serious a violation is.
type Severity string

// Known severities. Any value not in this set still round-trips as a
// free-form string; the checker is not assumed to emit a closed set.
const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityIgnore  Severity = "ignore"
)

// Violation is one reported rule violation, normalized from either the
// text .rpt or JSON report format.
type Violation struct {
	Type        string
	Severity    Severity
	Description string
	Pos         geometry.Point
	Items       []string
	Nets        []string
	Rule        string
}

// Report is a full parsed DRC run.
type Report struct {
	Violations []Violation
}

// CountBySeverity tallies violations per severity, useful for a pass/fail
// gate without inspecting every record.
func (r Report) CountBySeverity() map[Severity]int {
	counts := make(map[Severity]int)
	for _, v := range r.Violations {
		counts[v.Severity]++
	}

	return counts
}

// ByRule groups violations by their rule name.
func (r Report) ByRule() map[string][]Violation {
	out := make(map[string][]Violation)
	for _, v := range r.Violations {
		out[v.Rule] = append(out[v.Rule], v)
	}

	return out
}
