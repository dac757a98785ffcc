package geometry

import "math"

// Rect is an immutable axis-aligned rectangle, MinX <= MaxX, MinY <= MaxY.
type Rect struct {
	MinX, MinY, MaxX, MaxY float64
}

// NewRectCentered builds a rectangle of the given width/height centered at
// (cx, cy).
func NewRectCentered(cx, cy, width, height float64) Rect {
	hw, hh := width/2, height/2
	return Rect{MinX: cx - hw, MinY: cy - hh, MaxX: cx + hw, MaxY: cy + hh}
}

// Width returns MaxX - MinX.
func (r Rect) Width() float64 { return r.MaxX - r.MinX }

// Height returns MaxY - MinY.
func (r Rect) Height() float64 { return r.MaxY - r.MinY }

// Center returns the rectangle's centroid.
func (r Rect) Center() Point {
	return Point{(r.MinX + r.MaxX) / 2, (r.MinY + r.MaxY) / 2}
}

// Intersects reports whether r and o share any area.
func (r Rect) Intersects(o Rect) bool {
	return r.MinX < o.MaxX && o.MinX < r.MaxX && r.MinY < o.MaxY && o.MinY < r.MaxY
}

// IntersectionArea returns the overlap area of r and o, or 0 if disjoint.
func (r Rect) IntersectionArea(o Rect) float64 {
	xOverlap := math.Max(0, math.Min(r.MaxX, o.MaxX)-math.Max(r.MinX, o.MinX))
	yOverlap := math.Max(0, math.Min(r.MaxY, o.MaxY)-math.Max(r.MinY, o.MinY))

	return xOverlap * yOverlap
}

// OutsideArea returns the area of r that lies outside bound.
func (r Rect) OutsideArea(bound Rect) float64 {
	insideMinX := math.Max(r.MinX, bound.MinX)
	insideMinY := math.Max(r.MinY, bound.MinY)
	insideMaxX := math.Min(r.MaxX, bound.MaxX)
	insideMaxY := math.Min(r.MaxY, bound.MaxY)

	insideW := math.Max(0, insideMaxX-insideMinX)
	insideH := math.Max(0, insideMaxY-insideMinY)

	insideArea := insideW * insideH
	totalArea := r.Width() * r.Height()

	violation := totalArea - insideArea
	if violation < 0 {
		violation = 0
	}

	return violation
}

// MTV computes the minimum-translation-vector needed to separate two
// overlapping rectangles: the shortest (dx, dy) that, added to o, removes
// the overlap. Returns the zero vector if r and o do not overlap.
func (r Rect) MTV(o Rect) (dx, dy float64) {
	if !r.Intersects(o) {
		return 0, 0
	}

	rightPush := r.MaxX - o.MinX
	leftPush := o.MaxX - r.MinX
	downPush := r.MaxY - o.MinY
	upPush := o.MaxY - r.MinY

	minX := math.Min(rightPush, leftPush)
	minY := math.Min(downPush, upPush)

	if minX < minY {
		if rightPush < leftPush {
			return minX, 0
		}
		return -minX, 0
	}

	if downPush < upPush {
		return 0, minY
	}

	return 0, -minY
}

// Expand grows r uniformly on all sides by delta (delta may be negative to
// shrink, but callers are expected to keep the result non-degenerate).
func (r Rect) Expand(delta float64) Rect {
	return Rect{MinX: r.MinX - delta, MinY: r.MinY - delta, MaxX: r.MaxX + delta, MaxY: r.MaxY + delta}
}

// Gap computes the separating-axis gap between two boxes:
//
//   - if they overlap on both axes, returns the (negative) depth of the
//     smaller-magnitude overlap, i.e. how far they'd need to move apart
//     along the cheaper axis;
//   - if they are separated on exactly one axis, returns the edge-to-edge
//     distance on that axis;
//   - if they are separated on both axes, returns the Euclidean
//     corner-to-corner distance.
func (r Rect) Gap(o Rect) float64 {
	xGap := math.Max(r.MinX, o.MinX) - math.Min(r.MaxX, o.MaxX)
	yGap := math.Max(r.MinY, o.MinY) - math.Min(r.MaxY, o.MaxY)

	switch {
	case xGap < 0 && yGap < 0:
		// Overlapping on both axes: report the less-negative (shallower)
		// axis as the overlap depth.
		return math.Max(xGap, yGap)
	case xGap >= 0 && yGap >= 0:
		return math.Sqrt(xGap*xGap + yGap*yGap)
	case xGap >= 0:
		return xGap
	default:
		return yGap
	}
}
