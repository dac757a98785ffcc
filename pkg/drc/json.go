package drc

import (
	"encoding/json"
	"fmt"

	"github.com/rjwalters/kicad-tools-sub002/pkg/geometry"
)

type jsonPos struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type jsonViolation struct {
	Type        string   `json:"type"`
	Severity    string   `json:"severity"`
	Description string   `json:"description"`
	Pos         jsonPos  `json:"pos"`
	Items       []string `json:"items"`
	Nets        []string `json:"nets"`
	Rule        string   `json:"rule"`
}

type jsonReport struct {
	Violations []jsonViolation `json:"violations"`
}

// ParseJSON decodes a DRC report in the JSON shape consumed by the core:
// a top-level "violations" array of flat records.
func ParseJSON(data []byte) (Report, error) {
	var raw jsonReport
	if err := json.Unmarshal(data, &raw); err != nil {
		return Report{}, fmt.Errorf("drc: parse json report: %w", err)
	}

	report := Report{Violations: make([]Violation, len(raw.Violations))}

	for i, v := range raw.Violations {
		report.Violations[i] = Violation{
			Type:        v.Type,
			Severity:    Severity(v.Severity),
			Description: v.Description,
			Pos:         geometry.Point{X: v.Pos.X, Y: v.Pos.Y},
			Items:       v.Items,
			Nets:        v.Nets,
			Rule:        v.Rule,
		}
	}

	return report, nil
}
