package drc

import (
	"bufio"
	"regexp"
	"strconv"
	"strings"

	"github.com/rjwalters/kicad-tools-sub002/pkg/geometry"
)

// ruleLine matches a violation header: "[clearance]: Clearance violation
// between items (netclass ...)".
var ruleLine = regexp.MustCompile(`^\[([a-zA-Z0-9_.]+)\]:\s*(.*)$`)

// itemLine matches an indented item reference carrying a position:
// "    @(10.000000, 20.000000): Pad 1 of U1".
var itemLine = regexp.MustCompile(`^\s*@\(([-0-9.]+),\s*([-0-9.]+)\):\s*(.*)$`)

// netLine extracts a net name from an item description when present, e.g.
// "Pad 1 of U1 [GND]".
var netLine = regexp.MustCompile(`\[([^\]]+)\]\s*$`)

// ParseText decodes a DRC report in the plain-text .rpt shape emitted by
// the external checker. Each violation is a "[rule]:
// description" header line followed by zero or more "@(x, y): item"
// lines; the first item line's position becomes the violation's Pos.
func ParseText(text string) (Report, error) {
	var report Report

	var current *Violation

	scanner := bufio.NewScanner(strings.NewReader(text))

	for scanner.Scan() {
		line := scanner.Text()

		if m := ruleLine.FindStringSubmatch(line); m != nil {
			if current != nil {
				report.Violations = append(report.Violations, *current)
			}

			current = &Violation{Rule: m[1], Description: m[2], Severity: SeverityError}

			continue
		}

		if m := itemLine.FindStringSubmatch(line); m != nil && current != nil {
			x, _ := strconv.ParseFloat(m[1], 64)
			y, _ := strconv.ParseFloat(m[2], 64)
			item := m[3]

			if len(current.Items) == 0 {
				current.Pos = geometry.Point{X: x, Y: y}
			}

			current.Items = append(current.Items, item)

			if nm := netLine.FindStringSubmatch(item); nm != nil {
				current.Nets = append(current.Nets, nm[1])
			}

			continue
		}
	}

	if current != nil {
		report.Violations = append(report.Violations, *current)
	}

	return report, scanner.Err()
}
