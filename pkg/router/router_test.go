package router

import (
	"testing"

	"github.com/rjwalters/kicad-tools-sub002/pkg/geometry"
	"github.com/rjwalters/kicad-tools-sub002/pkg/model"
)

func emptyBoard(width, height float64) *model.Board {
	return &model.Board{
		Nets:  map[uint32]*model.Net{},
		Rules: model.DefaultDesignRules(),
		Outline: model.BoardOutline{
			Bounds: geometry.Rect{MinX: 0, MinY: 0, MaxX: width, MaxY: height},
		},
	}
}

// Two pads 30mm apart on an empty 50x50 board route within 5% of the
// octile lower bound with zero vias.
func TestRouteSameLayerStraightPath(t *testing.T) {
	board := emptyBoard(50, 50)
	grid := NewGrid(board.Outline, board.Rules.GridResolution, []string{"F.Cu", "B.Cu"})
	PopulateObstacles(grid, board, board.Rules, nil)

	src := Terminal{Center: geometry.Point{X: 10, Y: 25}, HalfWidth: 0.3, HalfHeight: 0.3, Layers: []string{"F.Cu"}}
	dst := Terminal{Center: geometry.Point{X: 40, Y: 25}, HalfWidth: 0.3, HalfHeight: 0.3, Layers: []string{"F.Cu"}}

	path, diag := Route(grid, 1, src, dst, DefaultConfig())
	if diag != nil {
		t.Fatalf("expected success, got diagnostic: %+v", diag)
	}

	if len(path.Vias) != 0 {
		t.Fatalf("expected 0 vias for same-layer route, got %d", len(path.Vias))
	}

	total := 0.0
	for _, s := range path.Segments {
		total += s.Start.EuclideanDistance(s.End)
	}

	octileLowerBound := 30.0
	if total > octileLowerBound*1.05 {
		t.Fatalf("path length %v exceeds 5%% of octile lower bound %v", total, octileLowerBound)
	}
}

// Overlapping source/target pads yield a zero-segment success.
func TestRouteCoincidentPadsZeroSegments(t *testing.T) {
	board := emptyBoard(50, 50)
	grid := NewGrid(board.Outline, board.Rules.GridResolution, []string{"F.Cu", "B.Cu"})
	PopulateObstacles(grid, board, board.Rules, nil)

	term := Terminal{Center: geometry.Point{X: 25, Y: 25}, HalfWidth: 0.5, HalfHeight: 0.5, Layers: []string{"F.Cu"}}

	path, diag := Route(grid, 1, term, term, DefaultConfig())
	if diag != nil {
		t.Fatalf("expected success, got diagnostic: %+v", diag)
	}

	if len(path.Segments) != 0 {
		t.Fatalf("expected 0 segments for coincident pads, got %d", len(path.Segments))
	}
}

func TestRouteFailsWhenTargetFullySurrounded(t *testing.T) {
	board := emptyBoard(20, 20)
	grid := NewGrid(board.Outline, board.Rules.GridResolution, []string{"F.Cu"})

	grid.MarkRect("F.Cu", geometry.Rect{MinX: 9, MinY: 9, MaxX: 11, MaxY: 11}, 0)

	src := Terminal{Center: geometry.Point{X: 2, Y: 2}, HalfWidth: 0.3, HalfHeight: 0.3, Layers: []string{"F.Cu"}}
	dst := Terminal{Center: geometry.Point{X: 10, Y: 10}, HalfWidth: 0.3, HalfHeight: 0.3, Layers: []string{"F.Cu"}}

	_, diag := Route(grid, 5, src, dst, DefaultConfig())
	if diag == nil {
		t.Fatal("expected routing failure when target is surrounded by a foreign-net obstacle")
	}
}

// No emitted segment crosses a cell blocked by a different net.
func TestRouteRespectsOtherNetObstacles(t *testing.T) {
	board := emptyBoard(50, 50)
	grid := NewGrid(board.Outline, board.Rules.GridResolution, []string{"F.Cu"})
	PopulateObstacles(grid, board, board.Rules, nil)
	// Wall of net 99 blocking the direct path.
	grid.MarkRect("F.Cu", geometry.Rect{MinX: 24, MinY: 0, MaxX: 26, MaxY: 30}, 99)

	src := Terminal{Center: geometry.Point{X: 10, Y: 25}, HalfWidth: 0.3, HalfHeight: 0.3, Layers: []string{"F.Cu"}}
	dst := Terminal{Center: geometry.Point{X: 40, Y: 25}, HalfWidth: 0.3, HalfHeight: 0.3, Layers: []string{"F.Cu"}}

	path, diag := Route(grid, 1, src, dst, DefaultConfig())
	if diag != nil {
		t.Fatalf("expected a route around the obstacle, got diagnostic: %+v", diag)
	}

	for _, seg := range path.Segments {
		layer := grid.LayerIndex(seg.Layer)
		r0, c0 := grid.PointToCell(seg.Start)
		r1, c1 := grid.PointToCell(seg.End)
		steps := maxInt(absInt(r1-r0), absInt(c1-c0))

		for i := 0; i <= steps; i++ {
			row, col := r0, c0
			if steps > 0 {
				row, col = r0+(r1-r0)*i/steps, c0+(c1-c0)*i/steps
			}

			cell := grid.At(layer, row, col)
			if cell.Blocked && cell.Net != 1 && cell.Net != 0 {
				t.Fatalf("segment crosses cell owned by foreign net %d", cell.Net)
			}
		}
	}
}

func TestOrderedNetsPriorityThenSpan(t *testing.T) {
	board := emptyBoard(50, 50)

	board.Components = []*model.Component{
		{Reference: "R1", Pads: []model.Pad{
			{Name: "1", LocalX: 0, LocalY: 0, Net: 1},
			{Name: "2", LocalX: 20, LocalY: 0, Net: 1},
		}},
		{Reference: "R2", Pads: []model.Pad{
			{Name: "1", LocalX: 0, LocalY: 0, Net: 2},
			{Name: "2", LocalX: 5, LocalY: 0, Net: 2},
		}},
	}

	gnd := model.ClassifyNet(1, "GND")
	gnd.PadRefs = []model.PadRef{{ComponentRef: "R1", PadName: "1"}, {ComponentRef: "R1", PadName: "2"}}
	sig := model.ClassifyNet(2, "SIG_A")
	sig.PadRefs = []model.PadRef{{ComponentRef: "R2", PadName: "1"}, {ComponentRef: "R2", PadName: "2"}}

	board.Nets[1] = &gnd
	board.Nets[2] = &sig

	order := orderedNets(board)
	if len(order) != 2 || order[0].ID != 1 {
		t.Fatalf("expected ground net routed before signal net, got order %+v", order)
	}
}
