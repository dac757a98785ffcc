package drc

import "testing"

// Two pads of net N1 at (0,0) and (5,5), one pad of net N2 at
// (2.5,2.5), clearance 0.5mm -> exactly 2 pad-pair violations, 0
// courtyard violations. This exercises the JSON report shape the checker
// would emit for that scenario.
func TestParseJSONReportPadPairClearance(t *testing.T) {
	data := []byte(`{
		"violations": [
			{"type": "clearance", "severity": "error", "description": "clearance violation", "pos": {"x": 1.25, "y": 1.25}, "items": ["Pad 1 of U1", "Pad 1 of U2"], "nets": ["N1", "N2"], "rule": "clearance"},
			{"type": "clearance", "severity": "error", "description": "clearance violation", "pos": {"x": 3.75, "y": 3.75}, "items": ["Pad 2 of U1", "Pad 1 of U2"], "nets": ["N1", "N2"], "rule": "clearance"}
		]
	}`)

	report, err := ParseJSON(data)
	if err != nil {
		t.Fatalf("ParseJSON returned error: %v", err)
	}

	if len(report.Violations) != 2 {
		t.Fatalf("expected 2 violations, got %d", len(report.Violations))
	}

	courtyard := 0

	for _, v := range report.Violations {
		if v.Rule == "courtyard" {
			courtyard++
		}
	}

	if courtyard != 0 {
		t.Fatalf("expected 0 courtyard violations, got %d", courtyard)
	}

	if report.Violations[0].Pos.X != 1.25 || report.Violations[0].Pos.Y != 1.25 {
		t.Fatalf("unexpected pos: %+v", report.Violations[0].Pos)
	}
}

func TestParseTextReport(t *testing.T) {
	text := `** Drc report for board.kicad_pcb **
** Found 1 DRC violations **
[clearance]: Clearance violation (netclass clearance 0.5mm; actual 0.2mm)
    @(1.250000, 1.250000): Pad 1 of U1 [N1]
    @(3.750000, 3.750000): Pad 1 of U2 [N2]

** Found 0 unconnected pads **
`

	report, err := ParseText(text)
	if err != nil {
		t.Fatalf("ParseText returned error: %v", err)
	}

	if len(report.Violations) != 1 {
		t.Fatalf("expected 1 violation, got %d", len(report.Violations))
	}

	v := report.Violations[0]
	if v.Rule != "clearance" {
		t.Fatalf("expected rule 'clearance', got %q", v.Rule)
	}

	if len(v.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(v.Items))
	}

	if len(v.Nets) != 2 || v.Nets[0] != "N1" || v.Nets[1] != "N2" {
		t.Fatalf("unexpected nets: %+v", v.Nets)
	}

	if v.Pos.X != 1.25 || v.Pos.Y != 1.25 {
		t.Fatalf("unexpected pos: %+v", v.Pos)
	}
}

func TestReportCountBySeverity(t *testing.T) {
	report := Report{Violations: []Violation{
		{Severity: SeverityError},
		{Severity: SeverityError},
		{Severity: SeverityWarning},
	}}

	counts := report.CountBySeverity()
	if counts[SeverityError] != 2 || counts[SeverityWarning] != 1 {
		t.Fatalf("unexpected counts: %+v", counts)
	}
}

func TestReportByRule(t *testing.T) {
	report := Report{Violations: []Violation{
		{Rule: "clearance"},
		{Rule: "clearance"},
		{Rule: "courtyard"},
	}}

	byRule := report.ByRule()
	if len(byRule["clearance"]) != 2 || len(byRule["courtyard"]) != 1 {
		t.Fatalf("unexpected grouping: %+v", byRule)
	}
}
