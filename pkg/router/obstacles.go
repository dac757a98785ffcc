package router

import (
	"github.com/rjwalters/kicad-tools-sub002/pkg/geometry"
	"github.com/rjwalters/kicad-tools-sub002/pkg/model"
)

// Keepout is a declared rectangle, on a set of layers, that no net may
// route through.
type Keepout struct {
	Rect   geometry.Rect
	Layers []string
}

// PopulateObstacles rasterizes pads, existing traces, zones, and keepouts
// onto grid as blocked cells. Called once when the grid is
// built; the grid is otherwise invalidated and rebuilt rather than
// incrementally updated.
func PopulateObstacles(g *Grid, board *model.Board, rules model.DesignRules, keepouts []Keepout) {
	for _, comp := range board.Components {
		for i, pad := range comp.Pads {
			abs := comp.AbsolutePads()[i]
			clearance := rules.EffectiveClearance(netName(board, pad.Net), "")
			rect := geometry.NewRectCentered(abs.X, abs.Y, abs.SizeX, abs.SizeY).Expand(clearance)

			if pad.Drill > 0 {
				// Through-hole: blocks both outer layers.
				g.MarkRect(firstLayerOr(g, "F.Cu"), rect, pad.Net)
				g.MarkRect(firstLayerOr(g, "B.Cu"), rect, pad.Net)
			} else {
				g.MarkRect(pad.Layer, rect, pad.Net)
			}
		}
	}

	for _, t := range board.Traces {
		clearance := rules.EffectiveClearance(netName(board, t.Net), "")
		g.MarkLine(t.Layer, t.Start, t.End, t.Width/2+clearance, t.Net)
	}

	for _, z := range board.Zones {
		g.MarkRect(z.Layer, z.Bounds, z.Net)
	}

	for _, k := range keepouts {
		for _, l := range k.Layers {
			g.MarkRect(l, k.Rect, 0)
		}
	}
}

func netName(board *model.Board, id uint32) string {
	if n, ok := board.Nets[id]; ok {
		return n.Name
	}

	return ""
}

func firstLayerOr(g *Grid, name string) string {
	if g.LayerIndex(name) >= 0 {
		return name
	}

	if len(g.Layers) > 0 {
		return g.Layers[0]
	}

	return name
}
