package placement

import (
	"math"

	"github.com/rjwalters/kicad-tools-sub002/pkg/geometry"
	"github.com/rjwalters/kicad-tools-sub002/pkg/model"
	"github.com/rjwalters/kicad-tools-sub002/pkg/router"
)

// Fidelity selects how expensive an evaluation is allowed to be. The
// search loop scores every candidate at one fixed fidelity
// (SearchConfig.EvalFidelity); the fidelity is not switched as the search
// progresses. The final reported score is always taken at
// FidelityFullRoute.
type Fidelity int

const (
	// FidelityAnalytic scores HPWL, overlap, and boundary violation only.
	FidelityAnalytic Fidelity = iota
	// FidelityDRC additionally checks DRC-style clearance between pads.
	FidelityDRC
	// FidelityGlobalRoute additionally runs a single-pass grid route to
	// estimate routability without full negotiation. It routes at the
	// board's configured grid pitch; no coarser grid is used.
	FidelityGlobalRoute
	// FidelityFullRoute runs the full negotiated-congestion router.
	FidelityFullRoute
)

// NetMembership maps a net to the specific pads it connects, for HPWL and
// routability evaluation. Unlike a bare component reference, a PadRef
// disambiguates which pad of a multi-pin component belongs to this net.
type NetMembership struct {
	Name    string
	Members []model.PadRef
}

// ComponentRefs returns the distinct component references touched by this
// net's pads, in first-seen order. Used where only net-to-component
// adjacency matters, such as force-directed seeding.
func (n NetMembership) ComponentRefs() []string {
	seen := make(map[string]bool, len(n.Members))

	var out []string
	for _, ref := range n.Members {
		if !seen[ref.ComponentRef] {
			seen[ref.ComponentRef] = true
			out = append(out, ref.ComponentRef)
		}
	}

	return out
}

// Evaluator scores placement vectors at a configurable fidelity. It holds
// the static problem definition (component geometry, nets, board outline,
// design rules) so repeated Evaluate calls only pay for decode + the chosen
// fidelity's analysis.
type Evaluator struct {
	Defs    []ComponentDef
	Nets    []NetMembership
	Outline model.BoardOutline
	Rules   model.DesignRules
	Weights Weights
}

// Weights are the composite score's term coefficients. All
// terms are non-negative costs; Score is their weighted sum unless
// Lexicographic is set, in which case a feasibility violation always
// outweighs any wirelength/routability difference.
type Weights struct {
	Wirelength     float64
	Overlap        float64
	Boundary       float64
	DRC            float64
	Routability    float64
	Lexicographic  bool
}

// DefaultWeights favors feasibility over tie-breaking quality: overlap
// and boundary dominate until feasible, then wirelength and routability
// differentiate between feasible placements.
func DefaultWeights() Weights {
	return Weights{Wirelength: 1.0, Overlap: 1000.0, Boundary: 1000.0, DRC: 500.0, Routability: 50.0}
}

// Score is a decomposed cost report; Total is what the optimizer consumes
// but every term is kept for diagnostics and checkpointing.
type Score struct {
	Wirelength  float64
	Overlap     float64
	Boundary    float64
	DRC         float64
	Routability float64
	Feasible    bool
	Total       float64
}

// Evaluate decodes v and scores it at the given fidelity.
func (e *Evaluator) Evaluate(v Vector, fidelity Fidelity) (Score, error) {
	placed, err := Decode(v, e.Defs)
	if err != nil {
		return Score{}, err
	}

	var s Score
	s.Wirelength = e.hpwl(placed)
	s.Overlap = e.overlapArea(placed)
	s.Boundary = e.boundaryViolation(placed)

	if fidelity >= FidelityDRC {
		s.DRC = e.drcViolation(placed)
	}

	if fidelity >= FidelityGlobalRoute {
		s.Routability = e.routability(placed, fidelity == FidelityFullRoute)
	}

	s.Feasible = s.Overlap == 0 && s.Boundary == 0 && s.DRC == 0
	s.Total = e.compose(s)

	return s, nil
}

func (e *Evaluator) compose(s Score) float64 {
	w := e.Weights

	if w.Lexicographic {
		violation := w.Overlap*s.Overlap + w.Boundary*s.Boundary + w.DRC*s.DRC
		if violation > 0 {
			// Any infeasibility dominates: scaled far above the largest
			// plausible feasible-term contribution so feasible placements
			// always rank ahead of infeasible ones.
			return 1e9 + violation
		}

		return w.Wirelength*s.Wirelength + w.Routability*s.Routability
	}

	return w.Wirelength*s.Wirelength + w.Overlap*s.Overlap + w.Boundary*s.Boundary +
		w.DRC*s.DRC + w.Routability*s.Routability
}

// hpwl is the half-perimeter wirelength: for each net, the bounding box of
// its member pads' transformed board coordinates, summed over all nets.
func (e *Evaluator) hpwl(placed []PlacedComponent) float64 {
	byRef := indexPlaced(placed)
	total := 0.0

	for _, net := range e.Nets {
		minX, minY := math.Inf(1), math.Inf(1)
		maxX, maxY := math.Inf(-1), math.Inf(-1)
		found := false

		for _, ref := range net.Members {
			pc, ok := byRef[ref.ComponentRef]
			if !ok {
				continue
			}

			pad, ok := findPad(pc.Pads, ref.PadName)
			if !ok {
				continue
			}

			found = true
			minX, maxX = math.Min(minX, pad.X), math.Max(maxX, pad.X)
			minY, maxY = math.Min(minY, pad.Y), math.Max(maxY, pad.Y)
		}

		if found {
			total += (maxX - minX) + (maxY - minY)
		}
	}

	return total
}

func findPad(pads []model.TransformedPad, name string) (model.TransformedPad, bool) {
	for _, p := range pads {
		if p.Name == name {
			return p, true
		}
	}

	return model.TransformedPad{}, false
}

// overlapArea sums pairwise AABB overlap area across all component pairs;
// it is zero at a feasible placement.
func (e *Evaluator) overlapArea(placed []PlacedComponent) float64 {
	boxes := make([]geometry.Rect, len(placed))
	for i, pc := range placed {
		w, h := e.Defs[i].Width, e.Defs[i].Height
		if pc.Rotation == 1 || pc.Rotation == 3 {
			w, h = h, w
		}

		boxes[i] = geometry.NewRectCentered(pc.X, pc.Y, w, h)
	}

	total := 0.0
	for i := 0; i < len(boxes); i++ {
		for j := i + 1; j < len(boxes); j++ {
			total += boxes[i].IntersectionArea(boxes[j])
		}
	}

	return total
}

// boundaryViolation sums the area of each component's AABB lying outside
// the board outline.
func (e *Evaluator) boundaryViolation(placed []PlacedComponent) float64 {
	total := 0.0

	for i, pc := range placed {
		w, h := e.Defs[i].Width, e.Defs[i].Height
		if pc.Rotation == 1 || pc.Rotation == 3 {
			w, h = h, w
		}

		box := geometry.NewRectCentered(pc.X, pc.Y, w, h)
		total += box.OutsideArea(e.Outline.Bounds)
	}

	return total
}

// drcViolation penalizes pad-to-pad clearance shortfalls between pads of
// different components, approximating the router's own clearance check at
// a fraction of its cost. Pads of the same component are exempt: their
// spacing is fixed by the footprint and cannot be fixed by placement.
func (e *Evaluator) drcViolation(placed []PlacedComponent) float64 {
	type padRef struct {
		comp int
		x, y float64
		sx   float64
		sy   float64
	}

	var pads []padRef

	for i, pc := range placed {
		for _, p := range pc.Pads {
			pads = append(pads, padRef{comp: i, x: p.X, y: p.Y, sx: p.SizeX, sy: p.SizeY})
		}
	}

	total := 0.0
	clearance := e.Rules.TraceClearance

	for i := 0; i < len(pads); i++ {
		for j := i + 1; j < len(pads); j++ {
			a, b := pads[i], pads[j]
			if a.comp == b.comp {
				continue
			}

			ra := geometry.NewRectCentered(a.x, a.y, a.sx, a.sy)
			rb := geometry.NewRectCentered(b.x, b.y, b.sx, b.sy)

			gap := ra.Gap(rb)
			if gap < clearance {
				total += clearance - gap
			}
		}
	}

	return total
}

// routability estimates how much of the design would fail to route under
// the current placement. At FidelityGlobalRoute this runs a single router
// pass at the configured grid pitch; at FidelityFullRoute it additionally
// enables the negotiated-congestion outer loop. The cost is the fraction
// of MST edges left unrouted.
func (e *Evaluator) routability(placed []PlacedComponent, full bool) float64 {
	board := e.syntheticBoard(placed)

	cfg := router.DefaultRouterConfig()
	cfg.NegotiatedCongestion = full

	layers := []string{"F.Cu", "B.Cu"}
	result := router.RouteBoard(board, layers, cfg)

	totalEdges, routedEdges := 0, 0

	for _, nr := range result.Nets {
		totalEdges += nr.EdgesTotal
		routedEdges += nr.EdgesRouted
	}

	if totalEdges == 0 {
		return 0
	}

	return float64(totalEdges-routedEdges) / float64(totalEdges)
}

// syntheticBoard builds a minimal *model.Board from the current placement
// so the router can be invoked without a live sexp.Document.
func (e *Evaluator) syntheticBoard(placed []PlacedComponent) *model.Board {
	board := &model.Board{
		Nets:    map[uint32]*model.Net{},
		Rules:   e.Rules,
		Outline: e.Outline,
	}

	for i, pc := range placed {
		comp := &model.Component{
			Reference: pc.Reference,
			X:         pc.X,
			Y:         pc.Y,
			Rotation:  pc.Rotation,
			Side:      pc.Side,
		}

		for _, pad := range e.Defs[i].Pads {
			comp.Pads = append(comp.Pads, model.Pad{
				Name: pad.Name, LocalX: pad.LocalX, LocalY: pad.LocalY,
				SizeX: pad.SizeX, SizeY: pad.SizeY, Layer: "F.Cu",
			})
		}

		board.Components = append(board.Components, comp)
	}

	for id, net := range e.Nets {
		n := model.ClassifyNet(uint32(id+1), net.Name)

		for _, ref := range net.Members {
			comp := board.ComponentByReference(ref.ComponentRef)
			if comp == nil {
				continue
			}

			for i := range comp.Pads {
				if comp.Pads[i].Name == ref.PadName {
					comp.Pads[i].Net = n.ID
					n.PadRefs = append(n.PadRefs, ref)

					break
				}
			}
		}

		board.Nets[n.ID] = &n
	}

	return board
}

func indexPlaced(placed []PlacedComponent) map[string]PlacedComponent {
	m := make(map[string]PlacedComponent, len(placed))
	for _, pc := range placed {
		m[pc.Reference] = pc
	}

	return m
}
