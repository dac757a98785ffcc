package geometry

// Rotation is a discrete quarter-turn count, 0..3 mapping to 0/90/180/270
// degrees.
type Rotation int

// Side identifies which face of the board a component sits on.
type Side int

// Board sides.
const (
	Front Side = 0
	Back  Side = 1
)

// TransformPad computes a pad's absolute position and effective size given
// its local offset/size and the owning component's placement:
// mirror across X if the component is on the back of the board, then
// rotate by rot*90 degrees, then translate to the component's absolute
// position. At 90/270 degrees the effective width and height swap.
func TransformPad(localX, localY, sizeX, sizeY float64, compX, compY float64, rot Rotation, side Side) (x, y, effSizeX, effSizeY float64) {
	lx, ly := localX, localY
	if side == Back {
		lx = -lx
	}

	rx, ry := rotatePoint(lx, ly, rot)

	effSizeX, effSizeY = sizeX, sizeY
	if rot == 1 || rot == 3 {
		effSizeX, effSizeY = sizeY, sizeX
	}

	return compX + rx, compY + ry, effSizeX, effSizeY
}

// InverseTransformPad undoes TransformPad, recovering the pad's local
// offset from its absolute position and the component's placement.
// Transform followed by InverseTransformPad returns the original local
// coordinates within 1e-9.
func InverseTransformPad(x, y float64, compX, compY float64, rot Rotation, side Side) (localX, localY float64) {
	rx, ry := x-compX, y-compY

	lx, ly := rotatePoint(rx, ry, invertRotation(rot))

	if side == Back {
		lx = -lx
	}

	return lx, ly
}

func invertRotation(rot Rotation) Rotation {
	return Rotation((4 - int(rot)%4) % 4)
}

// rotatePoint rotates (x, y) about the origin by rot*90 degrees
// counter-clockwise, exactly (no trigonometric rounding error) since every
// rotation is an axis swap and/or sign flip.
func rotatePoint(x, y float64, rot Rotation) (float64, float64) {
	switch ((rot % 4) + 4) % 4 {
	case 0:
		return x, y
	case 1:
		return -y, x
	case 2:
		return -x, -y
	default: // 3
		return y, -x
	}
}

// ComponentAABB computes the axis-aligned bounding box of a placed
// component given its unrotated width/height and center position; width
// and height swap at rot=1 or rot=3.
func ComponentAABB(centerX, centerY, width, height float64, rot Rotation) Rect {
	w, h := width, height
	if rot == 1 || rot == 3 {
		w, h = height, width
	}

	return NewRectCentered(centerX, centerY, w, h)
}
