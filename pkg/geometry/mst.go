package geometry

import "math"

// MSTEdge is an undirected edge between two pad indices in the order they
// were passed to MST.
type MSTEdge struct {
	A, B int
}

// MST computes a minimum spanning tree over the given pad positions using
// greedy Prim's algorithm in the Manhattan metric. It returns
// exactly len(points)-1 edges for len(points) >= 1, spanning every point
// with no cycles. Ties are broken deterministically by preferring the
// lower pad index first, both when choosing the next point to add and
// when choosing which already-spanned point it connects to.
func MST(points []Point) []MSTEdge {
	n := len(points)
	if n < 2 {
		return nil
	}

	inTree := make([]bool, n)
	// best[j] is the cheapest known distance from point j to the tree, and
	// via[j] the tree point realizing that distance.
	best := make([]float64, n)
	via := make([]int, n)

	for j := 1; j < n; j++ {
		best[j] = points[0].ManhattanDistance(points[j])
		via[j] = 0
	}

	inTree[0] = true

	var edges []MSTEdge

	for added := 1; added < n; added++ {
		next := -1
		nextCost := math.Inf(1)

		for j := 0; j < n; j++ {
			if inTree[j] {
				continue
			}

			if best[j] < nextCost {
				nextCost = best[j]
				next = j
			}
		}

		edges = append(edges, MSTEdge{A: via[next], B: next})
		inTree[next] = true

		for j := 0; j < n; j++ {
			if inTree[j] {
				continue
			}

			d := points[next].ManhattanDistance(points[j])
			if d < best[j] || (d == best[j] && next < via[j]) {
				best[j] = d
				via[j] = next
			}
		}
	}

	return edges
}
