package kitti

import "gonum.org/v1/gonum/spatial/r3"

// Box2D is an axis-aligned image-plane box stored as top, left, height, width.
// Inputs are not validated, so a malformed label can yield negative sizes.
type Box2D struct {
	Top    float64 `json:"top"`
	Left   float64 `json:"left"`
	Height float64 `json:"height"`
	Width  float64 `json:"width"`
}

// Box2DFromTLBR builds a box from its top, left, bottom and right edges.
func Box2DFromTLBR(tlbr [4]float64) Box2D {
	t, l, b, r := tlbr[0], tlbr[1], tlbr[2], tlbr[3]
	return Box2D{Top: t, Left: l, Height: b - t, Width: r - l}
}

// Box2DFromTLHW builds a box from its top, left, height and width.
func Box2DFromTLHW(tlhw [4]float64) Box2D {
	return Box2D{Top: tlhw[0], Left: tlhw[1], Height: tlhw[2], Width: tlhw[3]}
}

// TLHW returns the canonical (top, left, height, width) form.
func (b Box2D) TLHW() [4]float64 {
	return [4]float64{b.Top, b.Left, b.Height, b.Width}
}

// TLBR returns the (top, left, bottom, right) form.
func (b Box2D) TLBR() [4]float64 {
	return [4]float64{b.Top, b.Left, b.Top + b.Height, b.Left + b.Width}
}

// Box3D is an oriented box: full side lengths along its local X/Y/Z axes and
// the pose placing the box centre in the parent frame.
type Box3D struct {
	Extents r3.Vec
	Pose    Pose
}

// BoxEdges lists vertex index pairs for a wireframe: the 12 box edges plus
// the 1–7 and 3–5 diagonals marking the heading.
var BoxEdges = [14][2]int{
	{0, 1}, {0, 2}, {1, 3}, {2, 3},
	{4, 5}, {4, 6}, {5, 7}, {6, 7},
	{0, 4}, {1, 5}, {2, 6}, {3, 7},
	{1, 7}, {3, 5},
}

// Vertex returns the corner on the positive or negative side of each local axis.
func (b Box3D) Vertex(xPos, yPos, zPos bool) r3.Vec {
	local := r3.Vec{
		X: b.Extents.X / 2 * sign(xPos),
		Y: b.Extents.Y / 2 * sign(yPos),
		Z: b.Extents.Z / 2 * sign(zPos),
	}
	return b.Pose.Apply(local)
}

// Vertices enumerates the 8 corners by a 3-bit mask 0..7: bit 0 selects the
// X sign, bit 1 the Y sign and bit 2 the Z sign, with a set bit meaning +.
func (b Box3D) Vertices() [8]r3.Vec {
	var out [8]r3.Vec
	for mask := 0; mask < 8; mask++ {
		out[mask] = b.Vertex(mask&0b001 != 0, mask&0b010 != 0, mask&0b100 != 0)
	}
	return out
}

// Edges returns the endpoints of every entry in BoxEdges.
func (b Box3D) Edges() [len(BoxEdges)][2]r3.Vec {
	v := b.Vertices()
	var out [len(BoxEdges)][2]r3.Vec
	for i, e := range BoxEdges {
		out[i] = [2]r3.Vec{v[e[0]], v[e[1]]}
	}
	return out
}

// Center returns the box centre in the parent frame.
func (b Box3D) Center() r3.Vec {
	return b.Pose.Translation
}

func sign(positive bool) float64 {
	if positive {
		return 1
	}
	return -1
}
