// Package placement searches for component positions that minimize a
// composite cost dominated by wirelength and routability, subject to hard
// constraints on overlap, board boundary, and DRC clearance.
// A placement is encoded as a flat continuous/discrete vector; CMA-ES
// (with margin for the discrete dimensions) drives the search, seeded by
// a force-directed layout.
package placement

import (
	"fmt"

	"github.com/rjwalters/kicad-tools-sub002/pkg/geometry"
	"github.com/rjwalters/kicad-tools-sub002/pkg/model"
)

// FieldsPerComponent is the vector stride: x, y, rot, side.
const FieldsPerComponent = 4

// RotationSteps are the discrete rotation values in degrees, indexed 0-3.
var RotationSteps = [4]float64{0, 90, 180, 270}

// PadDef is a pad's definition in local component coordinates.
type PadDef struct {
	Name         string
	LocalX       float64
	LocalY       float64
	SizeX, SizeY float64
}

// ComponentDef is a component's static identity and geometry, independent
// of its current placement.
type ComponentDef struct {
	Reference     string
	Pads          []PadDef
	Width, Height float64
}

// Vector is a flat placement encoding of length 4*N.
type Vector struct {
	Data []float64
}

// NumComponents returns len(Data) / 4.
func (v Vector) NumComponents() int { return len(v.Data) / FieldsPerComponent }

// Component returns the ith component's raw 4-field slice.
func (v Vector) Component(i int) []float64 {
	base := i * FieldsPerComponent
	return v.Data[base : base+FieldsPerComponent]
}

// PlacedComponent is a component with a resolved position and its
// transformed pads.
type PlacedComponent struct {
	Reference string
	X, Y      float64
	Rotation  geometry.Rotation
	Side      geometry.Side
	Pads      []model.TransformedPad
}

// Encode writes four floats per placed component: x, y, rotation index,
// side.
func Encode(placements []PlacedComponent) Vector {
	data := make([]float64, len(placements)*FieldsPerComponent)

	for i, p := range placements {
		base := i * FieldsPerComponent
		data[base] = p.X
		data[base+1] = p.Y
		data[base+2] = float64(p.Rotation)
		data[base+3] = float64(p.Side)
	}

	return Vector{Data: data}
}

// Decode converts a flat vector back into placed components, transforming
// each component's pads by its resolved position, rotation, and side.
func Decode(v Vector, defs []ComponentDef) ([]PlacedComponent, error) {
	n := v.NumComponents()
	if n != len(defs) {
		return nil, fmt.Errorf("placement: vector encodes %d components but %d definitions given", n, len(defs))
	}

	out := make([]PlacedComponent, n)

	for i, def := range defs {
		c := v.Component(i)
		rot := geometry.Rotation(snapDiscrete(c[2], 0, 3))
		side := geometry.Side(snapDiscrete(c[3], 0, 1))

		pc := PlacedComponent{Reference: def.Reference, X: c[0], Y: c[1], Rotation: rot, Side: side}

		for _, pad := range def.Pads {
			x, y, sx, sy := geometry.TransformPad(pad.LocalX, pad.LocalY, pad.SizeX, pad.SizeY, pc.X, pc.Y, rot, side)
			pc.Pads = append(pc.Pads, model.TransformedPad{
				ComponentRef: def.Reference, Name: pad.Name, X: x, Y: y, SizeX: sx, SizeY: sy,
			})
		}

		out[i] = pc
	}

	return out, nil
}

func snapDiscrete(v float64, lo, hi int) int {
	r := int(v + 0.5)
	if r < lo {
		r = lo
	}

	if r > hi {
		r = hi
	}

	return r
}

// Bounds is the per-dimension optimizer bound set for a placement vector.
type Bounds struct {
	Lower, Upper  []float64
	DiscreteMask  []bool
}

// ComputeBounds derives per-component x/y bounds from the board outline
// (inset by half the component's width/height so the whole AABB stays on
// the board) plus fixed discrete bounds for rotation and side.
func ComputeBounds(board model.BoardOutline, defs []ComponentDef) Bounds {
	n := len(defs)
	total := n * FieldsPerComponent

	b := Bounds{
		Lower:        make([]float64, total),
		Upper:        make([]float64, total),
		DiscreteMask: make([]bool, total),
	}

	for i, def := range defs {
		base := i * FieldsPerComponent

		b.Lower[base] = board.Bounds.MinX + def.Width/2
		b.Upper[base] = board.Bounds.MaxX - def.Width/2
		b.Lower[base+1] = board.Bounds.MinY + def.Height/2
		b.Upper[base+1] = board.Bounds.MaxY - def.Height/2

		b.Lower[base+2], b.Upper[base+2] = 0, 3
		b.DiscreteMask[base+2] = true

		b.Lower[base+3], b.Upper[base+3] = 0, 1
		b.DiscreteMask[base+3] = true
	}

	return b
}

// Clamp snaps a vector into bounds in place: continuous dims clamp to
// [lower, upper], discrete dims additionally round to the nearest integer.
func (b Bounds) Clamp(v Vector) {
	for i := range v.Data {
		if v.Data[i] < b.Lower[i] {
			v.Data[i] = b.Lower[i]
		}

		if v.Data[i] > b.Upper[i] {
			v.Data[i] = b.Upper[i]
		}

		if b.DiscreteMask[i] {
			v.Data[i] = float64(int(v.Data[i] + 0.5))
		}
	}
}
