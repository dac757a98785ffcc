// Package router implements the grid-based autorouter: a uniform
// multi-layer grid built from a design snapshot, A* pathfinding per
// two-pad pair with lazy obstacle expansion, MST-based decomposition of
// multi-pin nets, and an optional negotiated-congestion outer loop.
package router

import (
	"math"

	"github.com/rjwalters/kicad-tools-sub002/pkg/geometry"
	"github.com/rjwalters/kicad-tools-sub002/pkg/model"
)

// Cell is one grid cell at a given (layer, row, col). A cell blocked with
// Net == 0 is a hard obstacle; blocked with Net != 0 is an existing route
// of that net.
type Cell struct {
	Blocked     bool
	Net         uint32
	Cost        uint16
	Congestion  uint8
}

// BaseCost is the default traversal cost of a free cell before directional
// and via penalties are applied.
const BaseCost uint16 = 10

// ViaPenalty is the extra cost charged for a layer-change move.
const ViaPenalty uint16 = 100

// WrongWayFactor multiplies the cost of moving orthogonal to a layer's
// preferred routing direction.
const WrongWayFactor = 1.5

// Grid is a 3-D uniform grid over the board's copper layers, origin
// aligned to the outline's top-left corner, pitch equal to the design
// rule grid resolution. It is built from a Board snapshot and
// owns its cells; it holds no reference back to the document.
type Grid struct {
	Layers []string
	Rows   int
	Cols   int
	Origin geometry.Point
	Pitch  float64
	cells  []Cell
}

// NewGrid allocates an empty grid sized to cover outline with the given
// pitch, over the given ordered list of copper layers.
func NewGrid(outline model.BoardOutline, pitch float64, layers []string) *Grid {
	cols := int(math.Ceil(outline.Width()/pitch)) + 1
	rows := int(math.Ceil(outline.Height()/pitch)) + 1

	if cols < 1 {
		cols = 1
	}

	if rows < 1 {
		rows = 1
	}

	return &Grid{
		Layers: layers,
		Rows:   rows,
		Cols:   cols,
		Origin: geometry.Point{X: outline.Bounds.MinX, Y: outline.Bounds.MinY},
		Pitch:  pitch,
		cells:  make([]Cell, len(layers)*rows*cols),
	}
}

// LayerIndex returns the index of a layer name within Layers, or -1.
func (g *Grid) LayerIndex(name string) int {
	for i, l := range g.Layers {
		if l == name {
			return i
		}
	}

	return -1
}

func (g *Grid) index(layer, row, col int) int {
	return layer*g.Rows*g.Cols + row*g.Cols + col
}

// InBounds reports whether (layer, row, col) addresses a real cell.
func (g *Grid) InBounds(layer, row, col int) bool {
	return layer >= 0 && layer < len(g.Layers) && row >= 0 && row < g.Rows && col >= 0 && col < g.Cols
}

// At returns the cell at (layer, row, col).
func (g *Grid) At(layer, row, col int) Cell {
	return g.cells[g.index(layer, row, col)]
}

// Set overwrites the cell at (layer, row, col).
func (g *Grid) Set(layer, row, col int, c Cell) {
	g.cells[g.index(layer, row, col)] = c
}

// PointToCell converts an absolute board point to the nearest grid cell
// coordinate.
func (g *Grid) PointToCell(p geometry.Point) (row, col int) {
	col = int(math.Round((p.X - g.Origin.X) / g.Pitch))
	row = int(math.Round((p.Y - g.Origin.Y) / g.Pitch))

	return row, col
}

// CellCenter converts a grid cell coordinate back to its absolute board
// center point.
func (g *Grid) CellCenter(row, col int) geometry.Point {
	return geometry.Point{
		X: g.Origin.X + float64(col)*g.Pitch,
		Y: g.Origin.Y + float64(row)*g.Pitch,
	}
}

// MarkRect blocks every cell whose center falls within rect on the named
// layer, tagging it with net (0 for a hard obstacle).
func (g *Grid) MarkRect(layerName string, rect geometry.Rect, net uint32) {
	layer := g.LayerIndex(layerName)
	if layer < 0 {
		return
	}

	minRow, minCol := g.PointToCell(geometry.Point{X: rect.MinX, Y: rect.MinY})
	maxRow, maxCol := g.PointToCell(geometry.Point{X: rect.MaxX, Y: rect.MaxY})

	for row := minRow; row <= maxRow; row++ {
		for col := minCol; col <= maxCol; col++ {
			if !g.InBounds(layer, row, col) {
				continue
			}

			g.Set(layer, row, col, Cell{Blocked: true, Net: net, Cost: BaseCost})
		}
	}
}

// MarkRectAllLayers blocks rect on every copper layer (used for
// through-hole pads and declared keepouts).
func (g *Grid) MarkRectAllLayers(rect geometry.Rect, net uint32) {
	for _, l := range g.Layers {
		g.MarkRect(l, rect, net)
	}
}

// MarkLine blocks a dilated line segment (representing an existing trace)
// on the named layer.
func (g *Grid) MarkLine(layerName string, a, b geometry.Point, halfWidth float64, net uint32) {
	layer := g.LayerIndex(layerName)
	if layer < 0 {
		return
	}

	steps := int(a.EuclideanDistance(b)/g.Pitch) + 1

	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		p := geometry.Point{X: a.X + t*(b.X-a.X), Y: a.Y + t*(b.Y-a.Y)}
		rect := geometry.NewRectCentered(p.X, p.Y, halfWidth*2, halfWidth*2)
		g.MarkRect(g.Layers[layer], rect, net)
	}
}

// PreferredDirection is 0 for horizontal-preferred layers and 1 for
// vertical-preferred; layers alternate starting with the outer top layer
// horizontal.
func (g *Grid) PreferredDirection(layer int) int {
	return layer % 2
}
