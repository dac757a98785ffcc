package router

import (
	"sort"

	log "github.com/sirupsen/logrus"

	"github.com/rjwalters/kicad-tools-sub002/pkg/geometry"
	"github.com/rjwalters/kicad-tools-sub002/pkg/model"
	"github.com/rjwalters/kicad-tools-sub002/pkg/sexp"
)

// NetResult is the outcome of routing one net: how many of its MST edges
// succeeded, the emitted segments/vias, and any per-edge diagnostics
// for a partially routed net.
type NetResult struct {
	NetID       uint32
	EdgesTotal  int
	EdgesRouted int
	Segments    []Segment
	Vias        []ViaEvent
	Failures    []*Diagnostic
}

// RunResult aggregates every net processed in one routing pass.
type RunResult struct {
	Nets []NetResult
}

// RouterConfig bundles A* tuning plus the negotiated-congestion outer
// loop's parameters.
type RouterConfig struct {
	AStar                Config
	NegotiatedCongestion bool
	CongestionPenalty    float64
	MaxPasses            int
}

// DefaultRouterConfig returns single-pass (no negotiated congestion)
// defaults.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		AStar:             DefaultConfig(),
		CongestionPenalty: 1.5,
		MaxPasses:         10,
	}
}

// RouteBoard routes every net in board, in ascending priority and then
// ascending pin span within a priority band,
// optionally wrapped in the negotiated-congestion outer loop.
func RouteBoard(board *model.Board, layers []string, cfg RouterConfig) RunResult {
	order := orderedNets(board)

	if cfg.NegotiatedCongestion {
		return negotiatedCongestionLoop(board, layers, order, cfg)
	}

	grid := NewGrid(board.Outline, board.Rules.GridResolution, layers)
	PopulateObstacles(grid, board, board.Rules, nil)

	var run RunResult
	for _, net := range order {
		run.Nets = append(run.Nets, routeNet(grid, board, net, cfg.AStar))
	}

	return run
}

// orderedNets returns nets sorted by ascending priority, then ascending
// total pin Manhattan span.
func orderedNets(board *model.Board) []*model.Net {
	nets := make([]*model.Net, 0, len(board.Nets))
	for _, n := range board.Nets {
		if len(n.PadRefs) >= 2 {
			nets = append(nets, n)
		}
	}

	span := func(n *model.Net) float64 {
		return model.PinSpan(resolvePads(board, n))
	}

	sort.SliceStable(nets, func(i, j int) bool {
		if nets[i].Priority != nets[j].Priority {
			return nets[i].Priority < nets[j].Priority
		}

		return span(nets[i]) < span(nets[j])
	})

	return nets
}

func resolvePads(board *model.Board, n *model.Net) []model.TransformedPad {
	var pads []model.TransformedPad

	for _, ref := range n.PadRefs {
		comp := board.ComponentByReference(ref.ComponentRef)
		if comp == nil {
			continue
		}

		for _, p := range comp.AbsolutePads() {
			if p.Name == ref.PadName {
				pads = append(pads, p)
				break
			}
		}
	}

	return pads
}

// routeNet decomposes a multi-pin net into MST edges and
// routes each edge in order; successful segments/vias are marked on the
// grid immediately so later edges of the same net may overlap them, and
// later nets must avoid them.
func routeNet(grid *Grid, board *model.Board, net *model.Net, cfg Config) NetResult {
	pads := resolvePads(board, net)

	points := make([]geometry.Point, len(pads))
	for i, p := range pads {
		points[i] = geometry.Point{X: p.X, Y: p.Y}
	}

	edges := geometry.MST(points)

	result := NetResult{NetID: net.ID, EdgesTotal: len(edges)}

	traceWidth := board.Rules.EffectiveTraceWidth(net.Name)

	for _, e := range edges {
		src := padTerminal(pads[e.A], traceWidth, board.Rules, grid)
		dst := padTerminal(pads[e.B], traceWidth, board.Rules, grid)

		path, diag := Route(grid, net.ID, src, dst, cfg)
		if diag != nil {
			log.Debug("route failed for net ", net.Name, ": ", diag.Reason.String())
			result.Failures = append(result.Failures, diag)

			continue
		}

		result.EdgesRouted++
		result.Segments = append(result.Segments, path.Segments...)
		result.Vias = append(result.Vias, path.Vias...)

		markRouted(grid, path, net.ID, traceWidth)
	}

	return result
}

func padTerminal(pad model.TransformedPad, traceWidth float64, rules model.DesignRules, grid *Grid) Terminal {
	layers := []string{pad.Layer}
	if pad.Drill > 0 {
		layers = grid.Layers
	}

	return Terminal{
		Center:     geometry.Point{X: pad.X, Y: pad.Y},
		HalfWidth:  pad.SizeX/2 + rules.TraceClearance,
		HalfHeight: pad.SizeY/2 + rules.TraceClearance,
		Layers:     layers,
	}
}

// markRouted writes a completed path's footprint back onto the grid so
// that later MST edges of the same net, and later nets, see it.
func markRouted(grid *Grid, path *PathResult, net uint32, width float64) {
	for _, seg := range path.Segments {
		grid.MarkLine(seg.Layer, seg.Start, seg.End, width/2, net)
	}

	for _, v := range path.Vias {
		rect := geometry.NewRectCentered(v.Center.X, v.Center.Y, width, width)
		grid.MarkRect(v.LayerA, rect, net)
		grid.MarkRect(v.LayerB, rect, net)
	}
}

// Commit writes every routed net's segments and vias back through the
// document.
func Commit(doc *sexp.Document, run RunResult, board *model.Board) {
	for _, nr := range run.Nets {
		width := board.Rules.EffectiveTraceWidth(board.Nets[nr.NetID].Name)

		for _, seg := range nr.Segments {
			model.AddSegment(doc, model.Trace{Start: seg.Start, End: seg.End, Width: width, Layer: seg.Layer, Net: nr.NetID})
		}

		for _, v := range nr.Vias {
			model.AddVia(doc, model.Via{Center: v.Center, Diameter: board.Rules.ViaDiameter, Drill: board.Rules.ViaDrill, LayerA: v.LayerA, LayerB: v.LayerB, Net: nr.NetID})
		}
	}
}
