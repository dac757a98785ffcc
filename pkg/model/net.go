package model

import "strings"

// ClassifyNet derives power/ground/clock flags and a routing priority from
// a net name by string-pattern matching. Priority assigns
// routing precedence: 1=ground, 2=power, 3=clock, 4=analog, >=5=signal.
func ClassifyNet(id uint32, name string) Net {
	lower := strings.ToLower(name)

	n := Net{ID: id, Name: name}

	switch {
	case matchesAny(lower, "gnd", "ground", "vss", "agnd", "dgnd"):
		n.IsGround = true
		n.Priority = PriorityGround
	case matchesAny(lower, "vcc", "vdd", "pwr", "power", "+3v3", "+5v", "+12v", "vbat"):
		n.IsPower = true
		n.Priority = PriorityPower
	case matchesAny(lower, "clk", "clock", "xtal", "osc"):
		n.IsClock = true
		n.Priority = PriorityClock
	case matchesAny(lower, "analog", "adc", "dac", "vref", "avcc", "aref"):
		n.Priority = PriorityAnalog
	default:
		n.Priority = PrioritySignal
	}

	return n
}

func matchesAny(name string, patterns ...string) bool {
	for _, p := range patterns {
		if strings.Contains(name, p) {
			return true
		}
	}

	return false
}

// PinSpan returns the total Manhattan span of a net's pads: the sum of the
// bounding box's width and height. Used to order same-priority nets by
// size, shortest first.
func PinSpan(pads []TransformedPad) float64 {
	if len(pads) == 0 {
		return 0
	}

	minX, minY := pads[0].X, pads[0].Y
	maxX, maxY := pads[0].X, pads[0].Y

	for _, p := range pads[1:] {
		if p.X < minX {
			minX = p.X
		}
		if p.X > maxX {
			maxX = p.X
		}
		if p.Y < minY {
			minY = p.Y
		}
		if p.Y > maxY {
			maxY = p.Y
		}
	}

	return (maxX - minX) + (maxY - minY)
}
