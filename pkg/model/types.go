// Package model provides typed, read-only views over a sexp.Document for
// PCB and schematic documents: components, pads, nets, traces, vias,
// zones, board outline, and design rules. Views borrow from
// the underlying tree; mutation happens only through the Writeback
// helpers, which funnel edits through sexp.Document.Edit.
package model

import (
	"github.com/rjwalters/kicad-tools-sub002/pkg/geometry"
)

// Net priority bands: lower numbers route first.
const (
	PriorityGround  uint8 = 1
	PriorityPower   uint8 = 2
	PriorityClock   uint8 = 3
	PriorityAnalog  uint8 = 4
	PrioritySignal  uint8 = 5
)

// PadRef identifies one pad of one component.
type PadRef struct {
	ComponentRef string
	PadName      string
}

// Net is a named, electrically-equivalent set of pads.
type Net struct {
	ID       uint32
	Name     string
	IsPower  bool
	IsGround bool
	IsClock  bool
	Priority uint8
	PadRefs  []PadRef
}

// Pad is a metal landing on a component footprint, in the component's
// local frame.
type Pad struct {
	Name   string
	LocalX float64
	LocalY float64
	SizeX  float64
	SizeY  float64
	Drill  float64 // 0 for SMD
	Layer  string
	Net    uint32
}

// Component is a placed footprint (PCB) or symbol instance (schematic).
type Component struct {
	Reference string
	Footprint string
	X, Y      float64
	Rotation  geometry.Rotation
	Side      geometry.Side
	Pads      []Pad
}

// TransformedPad is a Pad resolved to absolute board coordinates via the
// owning component's placement.
type TransformedPad struct {
	ComponentRef string
	Name         string
	X, Y         float64
	SizeX, SizeY float64
	Drill        float64
	Layer        string
	Net          uint32
}

// AbsolutePads returns every pad of c transformed to absolute board
// coordinates.
func (c *Component) AbsolutePads() []TransformedPad {
	out := make([]TransformedPad, len(c.Pads))

	for i, p := range c.Pads {
		x, y, sx, sy := geometry.TransformPad(p.LocalX, p.LocalY, p.SizeX, p.SizeY, c.X, c.Y, c.Rotation, c.Side)
		out[i] = TransformedPad{
			ComponentRef: c.Reference,
			Name:         p.Name,
			X:            x,
			Y:            y,
			SizeX:        sx,
			SizeY:        sy,
			Drill:        p.Drill,
			Layer:        p.Layer,
			Net:          p.Net,
		}
	}

	return out
}

// AABB returns the component's placed axis-aligned bounding box.
func (c *Component) AABB(width, height float64) geometry.Rect {
	return geometry.ComponentAABB(c.X, c.Y, width, height, c.Rotation)
}

// Trace is a single straight copper segment.
type Trace struct {
	Start, End geometry.Point
	Width      float64
	Layer      string
	Net        uint32
}

// Via is a plated hole spanning two copper layers.
type Via struct {
	Center           geometry.Point
	Diameter, Drill  float64
	LayerA, LayerB   string
	Net              uint32
}

// Zone is a copper pour region.
type Zone struct {
	Net     uint32
	Layer   string
	Polygon []geometry.Point
	Bounds  geometry.Rect
}

// BoardOutline is the board's physical boundary, derived from Edge.Cuts
// graphic lines.
type BoardOutline struct {
	Bounds geometry.Rect
}

// Width returns the outline's extent in X.
func (o BoardOutline) Width() float64 { return o.Bounds.Width() }

// Height returns the outline's extent in Y.
func (o BoardOutline) Height() float64 { return o.Bounds.Height() }

// NetClassOverride tightens design rules for a specific net or net class.
type NetClassOverride struct {
	Clearance   float64
	TraceWidth  float64
	ViaDrill    float64
	ViaDiameter float64
}

// DesignRules holds the board-wide default rules plus optional per-net
// overrides.
type DesignRules struct {
	TraceWidth      float64
	TraceClearance  float64
	ViaDrill        float64
	ViaDiameter     float64
	GridResolution  float64
	MinCopperToEdge float64
	MinHoleToHole   float64
	MinAnnularRing  float64
	PerNetClass     map[string]NetClassOverride
}

// DefaultDesignRules returns sane 0.1mm-grid defaults.
func DefaultDesignRules() DesignRules {
	return DesignRules{
		TraceWidth:      0.25,
		TraceClearance:  0.2,
		ViaDrill:        0.3,
		ViaDiameter:     0.6,
		GridResolution:  0.1,
		MinCopperToEdge: 0.25,
		MinHoleToHole:   0.25,
		MinAnnularRing:  0.15,
		PerNetClass:     map[string]NetClassOverride{},
	}
}

// EffectiveClearance returns the stricter (larger) of the default
// clearance and any override that applies to netA or netB.
func (r DesignRules) EffectiveClearance(netA, netB string) float64 {
	c := r.TraceClearance

	if o, ok := r.PerNetClass[netA]; ok && o.Clearance > c {
		c = o.Clearance
	}

	if o, ok := r.PerNetClass[netB]; ok && o.Clearance > c {
		c = o.Clearance
	}

	return c
}

// EffectiveTraceWidth returns the stricter (thicker) of the default trace
// width and any override for net.
func (r DesignRules) EffectiveTraceWidth(net string) float64 {
	w := r.TraceWidth

	if o, ok := r.PerNetClass[net]; ok && o.TraceWidth > w {
		w = o.TraceWidth
	}

	return w
}
