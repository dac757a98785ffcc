package geometry

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

// Two 10mm squares 10mm apart center-to-center don't overlap; shifted
// to 5mm apart they overlap by half their width.
func TestComputeOverlapScenario(t *testing.T) {
	a := NewRectCentered(20, 20, 10, 10)
	b := NewRectCentered(30, 20, 10, 10)

	if area := a.IntersectionArea(b); area != 0 {
		t.Fatalf("expected 0 overlap, got %v", area)
	}

	b = NewRectCentered(25, 20, 10, 10)
	if area := a.IntersectionArea(b); area != 50 {
		t.Fatalf("expected 50 mm^2 overlap, got %v", area)
	}
}

func TestTransformPadIdentity(t *testing.T) {
	x, y, sx, sy := TransformPad(1.5, -2.0, 0.6, 0.6, 0, 0, 0, Front)
	if !almostEqual(x, 1.5) || !almostEqual(y, -2.0) || sx != 0.6 || sy != 0.6 {
		t.Fatalf("identity transform changed coordinates: %v %v %v %v", x, y, sx, sy)
	}
}

func TestTransformPadRoundTrip(t *testing.T) {
	cases := []struct {
		rot  Rotation
		side Side
	}{
		{0, Front}, {1, Front}, {2, Front}, {3, Front},
		{0, Back}, {1, Back}, {2, Back}, {3, Back},
	}

	for _, c := range cases {
		x, y, _, _ := TransformPad(1.2, -0.7, 0.5, 0.3, 10, 20, c.rot, c.side)
		lx, ly := InverseTransformPad(x, y, 10, 20, c.rot, c.side)

		if !almostEqual(lx, 1.2) || !almostEqual(ly, -0.7) {
			t.Fatalf("rot=%d side=%d: round trip mismatch, got (%v, %v)", c.rot, c.side, lx, ly)
		}
	}
}

func TestTransformPadSwapsSizeAtQuarterTurns(t *testing.T) {
	_, _, sx, sy := TransformPad(0, 0, 2.0, 1.0, 0, 0, 1, Front)
	if sx != 1.0 || sy != 2.0 {
		t.Fatalf("expected swapped size at rot=1, got (%v, %v)", sx, sy)
	}
}

func TestMSTSinglePad(t *testing.T) {
	edges := MST([]Point{{0, 0}})
	if len(edges) != 0 {
		t.Fatalf("expected 0 edges for single pad, got %d", len(edges))
	}
}

// MST spans all N pads with exactly N-1 edges and no cycles.
func TestMSTCoverage(t *testing.T) {
	points := []Point{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {5, 5}}
	edges := MST(points)

	if len(edges) != len(points)-1 {
		t.Fatalf("expected %d edges, got %d", len(points)-1, len(edges))
	}

	parent := make([]int, len(points))
	for i := range parent {
		parent[i] = i
	}

	var find func(int) int
	find = func(x int) int {
		if parent[x] != x {
			parent[x] = find(parent[x])
		}
		return parent[x]
	}

	for _, e := range edges {
		ra, rb := find(e.A), find(e.B)
		if ra == rb {
			t.Fatalf("cycle detected at edge %v", e)
		}

		parent[ra] = rb
	}

	root := find(0)
	for i := 1; i < len(points); i++ {
		if find(i) != root {
			t.Fatalf("pad %d not connected to spanning tree", i)
		}
	}
}

func TestRectGapOverlapping(t *testing.T) {
	a := Rect{MinX: 0, MinY: 0, MaxX: 10, MaxY: 10}
	b := Rect{MinX: 5, MinY: 5, MaxX: 15, MaxY: 15}

	if gap := a.Gap(b); gap >= 0 {
		t.Fatalf("expected negative gap for overlapping boxes, got %v", gap)
	}
}

func TestRectGapSeparatedOneAxis(t *testing.T) {
	a := Rect{MinX: 0, MinY: 0, MaxX: 10, MaxY: 10}
	b := Rect{MinX: 20, MinY: 0, MaxX: 30, MaxY: 10}

	if gap := a.Gap(b); !almostEqual(gap, 10) {
		t.Fatalf("expected edge-to-edge gap of 10, got %v", gap)
	}
}

func TestRectGapSeparatedBothAxes(t *testing.T) {
	a := Rect{MinX: 0, MinY: 0, MaxX: 10, MaxY: 10}
	b := Rect{MinX: 20, MinY: 20, MaxX: 30, MaxY: 30}

	want := math.Sqrt(10*10 + 10*10)
	if gap := a.Gap(b); !almostEqual(gap, want) {
		t.Fatalf("expected corner-to-corner gap %v, got %v", want, gap)
	}
}
