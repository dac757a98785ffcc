package placement

import (
	"testing"

	"github.com/rjwalters/kicad-tools-sub002/pkg/geometry"
	"github.com/rjwalters/kicad-tools-sub002/pkg/model"
)

func fiveComponentDefs() []ComponentDef {
	defs := make([]ComponentDef, 5)

	for i := 0; i < 5; i++ {
		defs[i] = ComponentDef{
			Reference: "U" + string(rune('1'+i)),
			Width:     3, Height: 2,
			Pads: []PadDef{
				{Name: "1", LocalX: -1, LocalY: 0, SizeX: 0.8, SizeY: 0.8},
				{Name: "2", LocalX: 1, LocalY: 0, SizeX: 0.8, SizeY: 0.8},
			},
		}
	}

	return defs
}

func chainNets(defs []ComponentDef) []NetMembership {
	var nets []NetMembership

	for i := 0; i+1 < len(defs); i++ {
		nets = append(nets, NetMembership{Name: "NET", Members: []model.PadRef{
			{ComponentRef: defs[i].Reference, PadName: "1"},
			{ComponentRef: defs[i+1].Reference, PadName: "1"},
		}})
	}

	return nets
}

func testEvaluator() *Evaluator {
	defs := fiveComponentDefs()

	return &Evaluator{
		Defs:    defs,
		Nets:    chainNets(defs),
		Outline: model.BoardOutline{Bounds: geometry.Rect{MinX: 0, MinY: 0, MaxX: 60, MaxY: 60}},
		Rules:   model.DefaultDesignRules(),
		Weights: DefaultWeights(),
	}
}

// Five components, force-directed seed, CMA-ES for 200 generations with
// a fixed seed, non-increasing best-score history, and a feasible
// (zero-overlap) final placement.
func TestSearchConvergesToFeasiblePlacement(t *testing.T) {
	eval := testEvaluator()
	edges := NetEdges(eval.Defs, netMemberLists(eval.Nets))

	cfg := DefaultSearchConfig()
	cfg.CMAES.Seed = 42
	cfg.CMAES.Generations = 200

	result, err := Search(eval, edges, 30, 30, cfg)
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}

	for i := 1; i < len(result.History); i++ {
		if result.History[i] > result.History[i-1]+1e-9 {
			t.Fatalf("history not non-increasing at index %d: %v -> %v", i, result.History[i-1], result.History[i])
		}
	}

	if result.Score.Overlap > 1e-6 {
		t.Fatalf("expected zero overlap at convergence, got %v", result.Score.Overlap)
	}
}

// Every optimizer-produced vector respects its bounds, including after
// discrete snapping.
func TestCMAESRespectsBounds(t *testing.T) {
	eval := testEvaluator()
	bounds := ComputeBounds(eval.Outline, eval.Defs)

	seed := ForceDirectedSeed(eval.Defs, nil, bounds, geometry.Point{X: 30, Y: 30})

	cfg := DefaultCMAESConfig()
	cfg.Seed = 7
	cfg.Generations = 20

	cma := NewCMAES(seed, bounds, cfg)

	objective := func(v Vector) float64 {
		for i, x := range v.Data {
			if x < bounds.Lower[i]-1e-9 || x > bounds.Upper[i]+1e-9 || (bounds.DiscreteMask[i] && x != float64(int(x))) {
				t.Fatalf("candidate dimension %d violates bounds or snapping: %v not in [%v, %v]", i, x, bounds.Lower[i], bounds.Upper[i])
			}
		}

		s, _ := eval.Evaluate(v, FidelityAnalytic)
		return s.Total
	}

	best, _, _, _ := cma.Run(objective, cfg.Generations)

	for i, x := range best.Data {
		if x < bounds.Lower[i]-1e-9 || x > bounds.Upper[i]+1e-9 {
			t.Fatalf("dimension %d out of bounds: %v not in [%v, %v]", i, x, bounds.Lower[i], bounds.Upper[i])
		}
	}
}

// The lexicographic composite never ranks an infeasible placement ahead
// of a feasible one, regardless of the infeasible placement's
// wirelength advantage.
func TestLexicographicScorePrefersFeasibility(t *testing.T) {
	eval := testEvaluator()
	eval.Weights.Lexicographic = true

	feasible := Score{Wirelength: 100, Overlap: 0, Boundary: 0, DRC: 0}
	infeasible := Score{Wirelength: 1, Overlap: 0.01, Boundary: 0, DRC: 0}

	feasible.Total = eval.compose(feasible)
	infeasible.Total = eval.compose(infeasible)

	if infeasible.Total <= feasible.Total {
		t.Fatalf("infeasible placement scored better (%v) than feasible (%v)", infeasible.Total, feasible.Total)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	defs := fiveComponentDefs()

	placed := make([]PlacedComponent, len(defs))
	for i, d := range defs {
		placed[i] = PlacedComponent{Reference: d.Reference, X: float64(i) * 5, Y: 10, Rotation: geometry.Rotation(i % 4), Side: geometry.Front}
	}

	v := Encode(placed)

	decoded, err := Decode(v, defs)
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}

	for i, pc := range decoded {
		if pc.X != placed[i].X || pc.Y != placed[i].Y || pc.Rotation != placed[i].Rotation {
			t.Fatalf("round trip mismatch at %d: got %+v, want %+v", i, pc, placed[i])
		}
	}
}

func TestDecodeMismatchedLengthErrors(t *testing.T) {
	v := Vector{Data: make([]float64, FieldsPerComponent*3)}

	if _, err := Decode(v, fiveComponentDefs()); err == nil {
		t.Fatal("expected error decoding a vector with a component-count mismatch")
	}
}

func netMemberLists(nets []NetMembership) [][]string {
	out := make([][]string, len(nets))
	for i, n := range nets {
		out[i] = n.ComponentRefs()
	}

	return out
}
