package placement

import (
	"math"
	"math/rand"

	"github.com/rjwalters/kicad-tools-sub002/pkg/geometry"
)

// fdJitterSeed keeps the seeder's initial scatter deterministic: the
// downstream optimizer is reproducible given a fixed seed, and a seeder
// that reshuffled on every call would defeat that for no benefit.
const fdJitterSeed = 0x5eed

// Force-directed seeder constants: a damped spring simulation gives
// CMA-ES a starting point that already separates connected components
// and spreads unconnected ones, instead of starting from a random or
// grid layout.
const (
	fdMaxIterations     = 500
	fdTimestep          = 0.05
	fdDamping           = 0.95
	fdEquilibriumDelta  = 1e-4
	fdSpringStiffness   = 2.0
	fdRepulsionStrength = 400.0
	fdRepulsionFloor    = 0.5
	// fdJitterFraction scales the uniform initial-position jitter to
	// +/- this fraction of the board's half-dimension.
	fdJitterFraction = 0.3
	// fdBoundaryStiffness is the restoring force's linear coefficient
	// once a component crosses its inset bound; zero inside bounds.
	fdBoundaryStiffness = 4.0
)

// Edge is an attractive force between two components, weighted by the
// number of nets connecting them.
type Edge struct {
	A, B   int
	Weight float64
}

// ForceDirectedSeed runs a damped spring simulation over the component
// centers and returns an initial Vector (rotation 0, side front) inside
// bounds. Edges pull connected components together; all pairs repel,
// preventing collapse onto a single point.
func ForceDirectedSeed(defs []ComponentDef, edges []Edge, bounds Bounds, boardCenter geometry.Point) Vector {
	n := len(defs)
	x := make([]float64, n)
	y := make([]float64, n)
	vx := make([]float64, n)
	vy := make([]float64, n)

	halfWidth, halfHeight := boardHalfDimensions(bounds, n)
	rng := rand.New(rand.NewSource(fdJitterSeed))

	for i := range defs {
		x[i] = boardCenter.X + (2*rng.Float64()-1)*fdJitterFraction*halfWidth
		y[i] = boardCenter.Y + (2*rng.Float64()-1)*fdJitterFraction*halfHeight
	}

	for iter := 0; iter < fdMaxIterations; iter++ {
		fx := make([]float64, n)
		fy := make([]float64, n)

		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				dx, dy := x[i]-x[j], y[i]-y[j]
				dist := math.Hypot(dx, dy)

				if dist < fdRepulsionFloor {
					dist = fdRepulsionFloor
				}

				rep := fdRepulsionStrength / (dist * dist)
				ux, uy := dx/dist, dy/dist

				fx[i] += rep * ux
				fy[i] += rep * uy
				fx[j] -= rep * ux
				fy[j] -= rep * uy
			}

			fx[i] += boundaryForce(x[i], bounds.Lower[i*FieldsPerComponent], bounds.Upper[i*FieldsPerComponent])
			fy[i] += boundaryForce(y[i], bounds.Lower[i*FieldsPerComponent+1], bounds.Upper[i*FieldsPerComponent+1])
		}

		for _, e := range edges {
			dx, dy := x[e.B]-x[e.A], y[e.B]-y[e.A]
			dist := math.Hypot(dx, dy)

			if dist < 1e-9 {
				continue
			}

			spring := fdSpringStiffness * e.Weight * dist
			ux, uy := dx/dist, dy/dist

			fx[e.A] += spring * ux
			fy[e.A] += spring * uy
			fx[e.B] -= spring * ux
			fy[e.B] -= spring * uy
		}

		maxDelta := 0.0

		for i := 0; i < n; i++ {
			vx[i] = (vx[i] + fx[i]*fdTimestep) * fdDamping
			vy[i] = (vy[i] + fy[i]*fdTimestep) * fdDamping

			dx, dy := vx[i]*fdTimestep, vy[i]*fdTimestep
			x[i] += dx
			y[i] += dy

			if d := math.Hypot(dx, dy); d > maxDelta {
				maxDelta = d
			}
		}

		if maxDelta < fdEquilibriumDelta {
			break
		}
	}

	placed := make([]PlacedComponent, n)
	for i := range defs {
		placed[i] = PlacedComponent{Reference: defs[i].Reference, X: x[i], Y: y[i]}
	}

	v := Encode(placed)
	bounds.Clamp(v)

	return v
}

// NetEdges converts a net's pad references into a weighted component graph:
// each pair of components sharing a net gets an edge whose weight is the
// number of distinct nets connecting them.
func NetEdges(defs []ComponentDef, nets [][]string) []Edge {
	index := make(map[string]int, len(defs))
	for i, d := range defs {
		index[d.Reference] = i
	}

	weight := make(map[[2]int]float64)

	for _, members := range nets {
		seen := make(map[int]bool)

		var comps []int
		for _, ref := range members {
			i, ok := index[ref]
			if !ok || seen[i] {
				continue
			}

			seen[i] = true
			comps = append(comps, i)
		}

		for i := 0; i < len(comps); i++ {
			for j := i + 1; j < len(comps); j++ {
				a, b := comps[i], comps[j]
				if a > b {
					a, b = b, a
				}

				weight[[2]int{a, b}]++
			}
		}
	}

	edges := make([]Edge, 0, len(weight))
	for pair, w := range weight {
		edges = append(edges, Edge{A: pair[0], B: pair[1], Weight: w})
	}

	return edges
}

// boundaryForce is zero while v is within [lower, upper] and grows
// linearly with the overshoot once v crosses either inset bound, pushing
// the component back inside.
func boundaryForce(v, lower, upper float64) float64 {
	switch {
	case v < lower:
		return fdBoundaryStiffness * (lower - v)
	case v > upper:
		return -fdBoundaryStiffness * (v - upper)
	default:
		return 0
	}
}

// boardHalfDimensions derives the board's half-width and half-height from
// the widest per-component inset bound span seen across all n components,
// since each component's x/y bounds are individually inset by half its
// own size.
func boardHalfDimensions(bounds Bounds, n int) (halfWidth, halfHeight float64) {
	if n == 0 {
		return 0, 0
	}

	minX, maxX := bounds.Lower[0], bounds.Upper[0]
	minY, maxY := bounds.Lower[1], bounds.Upper[1]

	for i := 1; i < n; i++ {
		base := i * FieldsPerComponent
		minX = math.Min(minX, bounds.Lower[base])
		maxX = math.Max(maxX, bounds.Upper[base])
		minY = math.Min(minY, bounds.Lower[base+1])
		maxY = math.Max(maxY, bounds.Upper[base+1])
	}

	return (maxX - minX) / 2, (maxY - minY) / 2
}
