package router

import (
	"container/heap"
	"math"

	"github.com/rjwalters/kicad-tools-sub002/pkg/geometry"
)

// state identifies one A* search node: a layer and an in-plane cell.
type state struct {
	layer, row, col int
}

// Terminal describes the acceptance region for a route's source or target:
// any cell within the dilated pad footprint, on any of the listed layers:
// the router picks whichever terminating layer reaches the goal first.
type Terminal struct {
	Center           geometry.Point
	HalfWidth        float64
	HalfHeight       float64
	Layers           []string
}

// Config tunes the A* search.
type Config struct {
	// HeuristicWeight w: 1.0 is admissible/optimal; >1 trades optimality
	// for speed.
	HeuristicWeight float64
	// MaxExpansions caps the number of states popped from the open set
	// before giving up.
	MaxExpansions int
}

// DefaultConfig returns an admissible search configuration capped at
// 200,000 expansions.
func DefaultConfig() Config {
	return Config{HeuristicWeight: 1.0, MaxExpansions: 200_000}
}

// Segment is one straight copper run emitted by path recovery.
type Segment struct {
	Layer      string
	Start, End geometry.Point
}

// ViaEvent is one layer-change event emitted by path recovery.
type ViaEvent struct {
	Center         geometry.Point
	LayerA, LayerB string
}

// PathResult is a recovered route: zero or more collinear-collapsed
// segments, and the vias connecting them.
type PathResult struct {
	Segments []Segment
	Vias     []ViaEvent
}

// FailureReason classifies why a per-pair route could not be completed.
type FailureReason int

// Failure reasons.
const (
	ReasonSourceSurrounded FailureReason = iota
	ReasonTargetSurrounded
	ReasonCongestionTooHigh
	ReasonNoLayerAvailable
	ReasonExpansionCapReached
)

func (r FailureReason) String() string {
	switch r {
	case ReasonSourceSurrounded:
		return "source-surrounded"
	case ReasonTargetSurrounded:
		return "target-surrounded"
	case ReasonCongestionTooHigh:
		return "congestion-too-high"
	case ReasonNoLayerAvailable:
		return "no-layer-available"
	default:
		return "expansion-cap-reached"
	}
}

// Diagnostic is the non-fatal failure record for a route that could not
// be completed.
type Diagnostic struct {
	Source, Target geometry.Point
	Reason         FailureReason
	DominantNet    uint32
	Suggestions    []string
}

// Route runs A* from source to target on grid for the given net, treating
// cells already blocked by net as traversable so the path can meet its
// own target pad and overlap the net's own prior routing. Returns the
// recovered path, or a diagnostic if no
// path was found.
func Route(g *Grid, net uint32, source, target Terminal, cfg Config) (*PathResult, *Diagnostic) {
	startStates := terminalCells(g, source)
	if len(startStates) == 0 {
		return nil, &Diagnostic{Source: source.Center, Target: target.Center, Reason: ReasonSourceSurrounded,
			Suggestions: []string{"retry with layer-count increase", "remove blocking net and re-route"}}
	}

	isGoal := func(s state) bool { return terminalContains(g, target, s) }

	targetCells := terminalCells(g, target)
	if len(targetCells) == 0 {
		return nil, &Diagnostic{Source: source.Center, Target: target.Center, Reason: ReasonTargetSurrounded,
			Suggestions: []string{"retry with layer-count increase", "remove blocking net and re-route"}}
	}

	gScore := map[state]float64{}
	prev := map[state]state{}
	hasPrev := map[state]bool{}

	open := &priorityQueue{}
	heap.Init(open)

	for _, s := range startStates {
		gScore[s] = 0
		heap.Push(open, &pqItem{state: s, priority: heuristic(g, s, targetCells, cfg.HeuristicWeight)})
	}

	expansions := 0
	var goalState state
	found := false

	for open.Len() > 0 {
		item := heap.Pop(open).(*pqItem)
		cur := item.state

		if closed(gScore, cur, item.gAtPush) {
			continue
		}

		expansions++
		if expansions > cfg.MaxExpansions {
			break
		}

		if isGoal(cur) {
			goalState = cur
			found = true

			break
		}

		for _, nb := range neighbors(g, cur) {
			moveCost := transitionCost(g, cur, nb, net)
			if math.IsInf(moveCost, 1) {
				continue
			}

			tentative := gScore[cur] + moveCost

			if existing, ok := gScore[nb]; !ok || tentative < existing {
				gScore[nb] = tentative
				prev[nb] = cur
				hasPrev[nb] = true
				heap.Push(open, &pqItem{state: nb, priority: tentative + heuristic(g, nb, targetCells, cfg.HeuristicWeight), gAtPush: tentative})
			}
		}
	}

	if !found {
		return nil, diagnoseFailure(g, net, source, target, expansions, cfg)
	}

	return recoverPath(g, goalState, prev, hasPrev), nil
}

func closed(gScore map[state]float64, s state, gAtPush float64) bool {
	best, ok := gScore[s]
	return ok && gAtPush > best
}

func terminalCells(g *Grid, t Terminal) []state {
	rect := geometry.NewRectCentered(t.Center.X, t.Center.Y, t.HalfWidth*2, t.HalfHeight*2)

	var out []state

	minRow, minCol := g.PointToCell(geometry.Point{X: rect.MinX, Y: rect.MinY})
	maxRow, maxCol := g.PointToCell(geometry.Point{X: rect.MaxX, Y: rect.MaxY})

	for _, layerName := range t.Layers {
		layer := g.LayerIndex(layerName)
		if layer < 0 {
			continue
		}

		for row := minRow; row <= maxRow; row++ {
			for col := minCol; col <= maxCol; col++ {
				if g.InBounds(layer, row, col) {
					out = append(out, state{layer, row, col})
				}
			}
		}
	}

	return out
}

func terminalContains(g *Grid, t Terminal, s state) bool {
	if g.Layers[s.layer] != layerNameOf(t, g) && !containsLayer(t.Layers, g.Layers[s.layer]) {
		return false
	}

	center := g.CellCenter(s.row, s.col)
	rect := geometry.NewRectCentered(t.Center.X, t.Center.Y, t.HalfWidth*2, t.HalfHeight*2)

	return center.X >= rect.MinX && center.X <= rect.MaxX && center.Y >= rect.MinY && center.Y <= rect.MaxY
}

func containsLayer(layers []string, name string) bool {
	for _, l := range layers {
		if l == name {
			return true
		}
	}

	return false
}

func layerNameOf(t Terminal, g *Grid) string {
	if len(t.Layers) > 0 {
		return t.Layers[0]
	}

	if len(g.Layers) > 0 {
		return g.Layers[0]
	}

	return ""
}

// neighbors returns the eight planar directions plus up/down layer-change
// moves.
func neighbors(g *Grid, s state) []state {
	var out []state

	for dr := -1; dr <= 1; dr++ {
		for dc := -1; dc <= 1; dc++ {
			if dr == 0 && dc == 0 {
				continue
			}

			n := state{s.layer, s.row + dr, s.col + dc}
			if g.InBounds(n.layer, n.row, n.col) {
				out = append(out, n)
			}
		}
	}

	if s.layer+1 < len(g.Layers) {
		out = append(out, state{s.layer + 1, s.row, s.col})
	}

	if s.layer-1 >= 0 {
		out = append(out, state{s.layer - 1, s.row, s.col})
	}

	return out
}

// transitionCost returns the cost of moving from a to b, or +Inf if the
// move is illegal (blocked by a different net, or a via site without
// clearance). Cells blocked by `net` itself are traversable.
func transitionCost(g *Grid, a, b state, net uint32) float64 {
	cell := g.At(b.layer, b.row, b.col)
	if cell.Blocked && cell.Net != net {
		return math.Inf(1)
	}

	base := float64(cell.Cost)
	if base == 0 {
		base = float64(BaseCost)
	}

	base += float64(cell.Congestion) * float64(BaseCost) / 2

	if a.layer != b.layer {
		// Layer change: require the via site free on both layers.
		if !viaSiteClear(g, a, net) || !viaSiteClear(g, b, net) {
			return math.Inf(1)
		}

		return base + float64(ViaPenalty)
	}

	dr, dc := b.row-a.row, b.col-a.col
	diagonal := dr != 0 && dc != 0

	dist := 1.0
	if diagonal {
		dist = math.Sqrt2
	}

	pref := g.PreferredDirection(a.layer)
	movingHoriz := dc != 0 && dr == 0
	movingVert := dr != 0 && dc == 0

	wrongWay := (pref == 0 && movingVert) || (pref == 1 && movingHoriz)
	if wrongWay {
		base *= WrongWayFactor
	}

	return base * dist
}

func viaSiteClear(g *Grid, s state, net uint32) bool {
	for dr := -1; dr <= 1; dr++ {
		for dc := -1; dc <= 1; dc++ {
			r, c := s.row+dr, s.col+dc
			if !g.InBounds(s.layer, r, c) {
				continue
			}

			cell := g.At(s.layer, r, c)
			if cell.Blocked && cell.Net != net {
				return false
			}
		}
	}

	return true
}

// heuristic returns the octile distance (scaled by weight) from s to the
// nearest cell in goals.
func heuristic(g *Grid, s state, goals []state, weight float64) float64 {
	best := math.Inf(1)

	for _, t := range goals {
		dr := math.Abs(float64(s.row - t.row))
		dc := math.Abs(float64(s.col - t.col))
		d := math.Max(dr, dc) + (math.Sqrt2-1)*math.Min(dr, dc)

		if d < best {
			best = d
		}
	}

	if math.IsInf(best, 1) {
		return 0
	}

	return best * float64(BaseCost) * weight
}

func recoverPath(g *Grid, goal state, prev map[state]state, hasPrev map[state]bool) *PathResult {
	var chain []state

	cur := goal
	chain = append(chain, cur)

	for hasPrev[cur] {
		cur = prev[cur]
		chain = append(chain, cur)
	}

	// chain is goal -> ... -> start; reverse it.
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}

	return collapsePath(g, chain)
}

// collapsePath turns a cell-by-cell walk into collinear-collapsed
// segments and via events.
func collapsePath(g *Grid, chain []state) *PathResult {
	var result PathResult

	if len(chain) == 0 {
		return &result
	}

	segStart := chain[0]
	prevDir := [2]int{0, 0}

	flush := func(end state) {
		if segStart == end {
			return
		}

		result.Segments = append(result.Segments, Segment{
			Layer: g.Layers[segStart.layer],
			Start: g.CellCenter(segStart.row, segStart.col),
			End:   g.CellCenter(end.row, end.col),
		})
	}

	for i := 1; i < len(chain); i++ {
		cur := chain[i]
		last := chain[i-1]

		if cur.layer != last.layer {
			flush(last)

			result.Vias = append(result.Vias, ViaEvent{
				Center: g.CellCenter(last.row, last.col),
				LayerA: g.Layers[last.layer],
				LayerB: g.Layers[cur.layer],
			})

			segStart = cur
			prevDir = [2]int{0, 0}

			continue
		}

		dir := [2]int{cur.row - last.row, cur.col - last.col}
		if prevDir != [2]int{0, 0} && dir != prevDir {
			flush(last)
			segStart = last
		}

		prevDir = dir
	}

	flush(chain[len(chain)-1])

	return &result
}

func diagnoseFailure(g *Grid, net uint32, source, target Terminal, expansions int, cfg Config) *Diagnostic {
	reason := ReasonExpansionCapReached
	if expansions <= cfg.MaxExpansions {
		reason = ReasonNoLayerAvailable
	}

	dominant := dominantBlockingNet(g, target)

	return &Diagnostic{
		Source:      source.Center,
		Target:      target.Center,
		Reason:      reason,
		DominantNet: dominant,
		Suggestions: []string{"retry with layer-count increase", "remove blocking net and re-route"},
	}
}

// dominantBlockingNet inspects the cells nearest target's footprint and
// returns the net id most responsible for blocking it.
func dominantBlockingNet(g *Grid, t Terminal) uint32 {
	counts := map[uint32]int{}

	cells := terminalCells(g, Terminal{Center: t.Center, HalfWidth: t.HalfWidth + g.Pitch*3, HalfHeight: t.HalfHeight + g.Pitch*3, Layers: g.Layers})
	for _, s := range cells {
		c := g.At(s.layer, s.row, s.col)
		if c.Blocked && c.Net != 0 {
			counts[c.Net]++
		}
	}

	var best uint32
	bestCount := 0

	for net, n := range counts {
		if n > bestCount {
			best = net
			bestCount = n
		}
	}

	return best
}

// ---------------------------------------------------------------------
// Priority queue (container/heap).
// ---------------------------------------------------------------------

type pqItem struct {
	state    state
	priority float64
	gAtPush  float64
	index    int
}

type priorityQueue []*pqItem

func (pq priorityQueue) Len() int { return len(pq) }

func (pq priorityQueue) Less(i, j int) bool { return pq[i].priority < pq[j].priority }

func (pq priorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *priorityQueue) Push(x any) {
	item := x.(*pqItem)
	item.index = len(*pq)
	*pq = append(*pq, item)
}

func (pq *priorityQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*pq = old[:n-1]

	return item
}
