package kernel

import (
	"fmt"
	"math"

	"github.com/chazu/stemmount/pkg/geom"
)

// BlendKind selects rounding or bevelling.
type BlendKind int

const (
	Fillet BlendKind = iota
	Chamfer
)

func (k BlendKind) String() string {
	if k == Chamfer {
		return "chamfer"
	}
	return "fillet"
}

// BlendMargin is how far a blend region reaches past the faces it trims,
// so that coincident surfaces do not leave slivers.
const BlendMargin = 0.05

// Corner is the cross-section of an edge: two faces meet at the origin of a
// 2D frame perpendicular to the edge. N1 and N2 are the faces' outward
// normals; U1 and U2 run along each face away from the edge.
type Corner struct {
	N1, N2 geom.Vec2
	U1, U2 geom.Vec2
}

// Convex reports whether the material wedge is narrower than 180 degrees.
func (c Corner) Convex() bool { return geom.Dot2(c.U1, c.N2) < 0 }

// normals returns the normals of the wedge the blend works in: the
// material wedge for convex corners, the empty wedge for concave ones.
func (c Corner) normals() (geom.Vec2, geom.Vec2) {
	if c.Convex() {
		return c.N1, c.N2
	}
	return geom.Scale2(c.N1, -1), geom.Scale2(c.N2, -1)
}

// Validate rejects flat and folded corners.
func (c Corner) Validate() error {
	d := geom.Dot2(c.N1, c.N2)
	switch {
	case math.Abs(geom.Len2(c.N1)-1) > 1e-6 || math.Abs(geom.Len2(c.N2)-1) > 1e-6:
		return fmt.Errorf("corner normals are not unit length")
	case d > 1-1e-6:
		return fmt.Errorf("faces are tangent at the edge")
	case d < -1+1e-6:
		return fmt.Errorf("faces fold back onto each other")
	}
	return nil
}

// FilletCenter returns the centre of the rolling-ball circle of radius r.
func (c Corner) FilletCenter(r float64) geom.Vec2 {
	n1, n2 := c.normals()
	return geom.Scale2(geom.Add2(n1, n2), -r/(1+geom.Dot2(n1, n2)))
}

// FilletRegion is the signed distance bound of the region between the
// corner and the fillet arc.
func (c Corner) FilletRegion(q geom.Vec2, r float64) float64 {
	n1, n2 := c.normals()
	c12 := geom.Dot2(n1, n2)
	ctr := c.FilletCenter(r)
	p1 := geom.Unit2(geom.Sub2(n2, geom.Scale2(n1, c12)))
	p2 := geom.Unit2(geom.Sub2(n1, geom.Scale2(n2, c12)))
	w := geom.Sub2(q, ctr)
	d := -geom.Dot2(w, p1)
	d = math.Max(d, -geom.Dot2(w, p2))
	d = math.Max(d, geom.Dot2(q, n1)-BlendMargin)
	d = math.Max(d, geom.Dot2(q, n2)-BlendMargin)
	return math.Max(d, r-geom.Len2(w))
}

// FilletNormal is the outward normal of the fillet surface at angle t in
// [0,1] across the arc, running from face 1 to face 2.
func (c Corner) FilletNormal(t float64) geom.Vec2 {
	n1, n2 := c.normals()
	a := math.Acos(math.Max(-1, math.Min(1, geom.Dot2(n1, n2))))
	// slerp between the two face normals
	var n geom.Vec2
	if s := math.Sin(a); s < 1e-9 {
		n = n1
	} else {
		n = geom.Add2(geom.Scale2(n1, math.Sin((1-t)*a)/s), geom.Scale2(n2, math.Sin(t*a)/s))
	}
	if !c.Convex() {
		n = geom.Scale2(n, -1)
	}
	return geom.Unit2(n)
}

// ChamferPoints returns where the bevel meets face 1 and face 2.
func (c Corner) ChamferPoints(d1, d2 float64) (geom.Vec2, geom.Vec2) {
	return geom.Scale2(c.U1, d1), geom.Scale2(c.U2, d2)
}

// chamferAxis is the unit normal of the bevel line pointing at the corner.
func (c Corner) chamferAxis(d1, d2 float64) geom.Vec2 {
	p1, p2 := c.ChamferPoints(d1, d2)
	w := geom.Sub2(p2, p1)
	k := geom.Unit2(geom.P(-w.Y, w.X))
	if geom.Dot2(geom.Scale2(p1, -1), k) < 0 {
		k = geom.Scale2(k, -1)
	}
	return k
}

// ChamferRegion is the signed distance bound of the triangle cut off (or
// filled in) by the bevel.
func (c Corner) ChamferRegion(q geom.Vec2, d1, d2 float64) float64 {
	n1, n2 := c.normals()
	p1, _ := c.ChamferPoints(d1, d2)
	k := c.chamferAxis(d1, d2)
	d := geom.Dot2(q, n1) - BlendMargin
	d = math.Max(d, geom.Dot2(q, n2)-BlendMargin)
	return math.Max(d, -geom.Dot2(geom.Sub2(q, p1), k))
}

// ChamferNormal is the outward normal of the bevel face.
func (c Corner) ChamferNormal(d1, d2 float64) geom.Vec2 {
	k := c.chamferAxis(d1, d2)
	if c.Convex() {
		return k
	}
	return geom.Scale2(k, -1)
}

// Reach bounds how far the blend region extends from the edge.
func (c Corner) Reach(kind BlendKind, r, d1, d2 float64) float64 {
	if kind == Chamfer {
		return math.Max(d1, d2) + 2*BlendMargin
	}
	return geom.Len2(c.FilletCenter(r)) + r + 2*BlendMargin
}

func checkBlendSize(kind BlendKind, r, d1, d2 float64) error {
	if kind == Chamfer {
		if d1 <= 0 || d2 <= 0 {
			return fmt.Errorf("chamfer distances must be positive (%g, %g)", d1, d2)
		}
		return nil
	}
	if r <= 0 {
		return fmt.Errorf("fillet radius must be positive (%g)", r)
	}
	return nil
}

// LineBlend describes a blend along the straight edge A-B. The normals and
// in-face directions are perpendicular to the edge.
type LineBlend struct {
	Kind   BlendKind
	A, B   geom.Vec
	N1, N2 geom.Vec
	U1, U2 geom.Vec
	Radius float64
	D1, D2 float64
}

// Section returns the edge direction, the cross-section basis and the corner
// expressed in that basis.
func (b LineBlend) Section() (dir, e1, e2 geom.Vec, c Corner) {
	dir = geom.Unit(b.B.Sub(b.A))
	e1 = geom.Unit(geom.Reject(b.N1, dir))
	e2 = dir.Cross(e1)
	to2 := func(v geom.Vec) geom.Vec2 { return geom.Unit2(geom.P(v.Dot(e1), v.Dot(e2))) }
	c = Corner{N1: to2(b.N1), N2: to2(b.N2), U1: to2(b.U1), U2: to2(b.U2)}
	return dir, e1, e2, c
}

// Validate checks the blend is well formed.
func (b LineBlend) Validate() error {
	if b.B.Sub(b.A).Length() < 1e-9 {
		return fmt.Errorf("edge has zero length")
	}
	if err := checkBlendSize(b.Kind, b.Radius, b.D1, b.D2); err != nil {
		return err
	}
	_, _, _, c := b.Section()
	return c.Validate()
}

// ArcBlend describes a blend along a circular edge of radius EdgeRadius about
// Center and Axis, starting at Center + EdgeRadius*Start and sweeping Sweep
// degrees counter-clockwise about Axis. Normals and in-face directions are
// given at the start point.
type ArcBlend struct {
	Kind         BlendKind
	Center, Axis geom.Vec
	Start        geom.Vec
	EdgeRadius   float64
	Sweep        float64
	N1, N2       geom.Vec
	U1, U2       geom.Vec
	Radius       float64
	D1, D2       float64
}

// Corner expresses the blend cross-section in (radial, axial) coordinates.
func (b ArcBlend) Corner() Corner {
	to2 := func(v geom.Vec) geom.Vec2 { return geom.Unit2(geom.P(v.Dot(b.Start), v.Dot(b.Axis))) }
	return Corner{N1: to2(b.N1), N2: to2(b.N2), U1: to2(b.U1), U2: to2(b.U2)}
}

// Validate checks the blend is well formed.
func (b ArcBlend) Validate() error {
	if b.EdgeRadius <= 0 || b.Sweep <= 0 {
		return fmt.Errorf("arc has no extent")
	}
	if err := checkBlendSize(b.Kind, b.Radius, b.D1, b.D2); err != nil {
		return err
	}
	return b.Corner().Validate()
}

// FilletPoint is the point of the fillet arc at t in [0,1], running from
// face 1 to face 2.
func (c Corner) FilletPoint(r, t float64) geom.Vec2 {
	n := c.FilletNormal(t)
	if !c.Convex() {
		n = geom.Scale2(n, -1)
	}
	return geom.Add2(c.FilletCenter(r), geom.Scale2(n, r))
}
