// Package geom holds the small amount of linear algebra the feature builder
// needs: vectors (shared with sdfx), rigid and mirror transforms, boxes,
// planar sketches and path curves.
package geom

import (
	"math"

	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Vec is a 3D point or direction in millimetres.
type Vec = v3.Vec

// Vec2 is a 2D point in a sketch plane.
type Vec2 = v2.Vec

// Unit axes.
var (
	Origin = Vec{}
	XAxis  = Vec{X: 1}
	YAxis  = Vec{Y: 1}
	ZAxis  = Vec{Z: 1}
)

// V is shorthand for a 3D vector literal.
func V(x, y, z float64) Vec { return Vec{X: x, Y: y, Z: z} }

// P is shorthand for a 2D vector literal.
func P(x, y float64) Vec2 { return Vec2{X: x, Y: y} }

// Deg2Rad converts degrees to radians.
func Deg2Rad(d float64) float64 { return d * math.Pi / 180 }

// Rad2Deg converts radians to degrees.
func Rad2Deg(r float64) float64 { return r * 180 / math.Pi }

// Near reports whether a and b differ by at most tol.
func Near(a, b, tol float64) bool { return math.Abs(a-b) <= tol }

// NearVec reports whether two points are within tol of each other.
func NearVec(a, b Vec, tol float64) bool { return a.Sub(b).Length() <= tol }

// Lerp interpolates between a and b.
func Lerp(a, b Vec, t float64) Vec { return a.Add(b.Sub(a).MulScalar(t)) }

// Neg returns -v.
func Neg(v Vec) Vec { return v.MulScalar(-1) }

// Unit returns v normalised, or the zero vector when v is degenerate.
func Unit(v Vec) Vec {
	l := v.Length()
	if l < 1e-12 {
		return Vec{}
	}
	return v.MulScalar(1 / l)
}

// Perpendicular returns a unit vector orthogonal to n.
func Perpendicular(n Vec) Vec {
	n = Unit(n)
	ref := XAxis
	if math.Abs(n.X) > 0.9 {
		ref = YAxis
	}
	return Unit(ref.Sub(n.MulScalar(ref.Dot(n))))
}

// Reject removes the component of v along unit direction d.
func Reject(v, d Vec) Vec { return v.Sub(d.MulScalar(v.Dot(d))) }

// RotateAbout rotates v about the unit axis by angle radians (Rodrigues).
func RotateAbout(v, axis Vec, angle float64) Vec {
	c, s := math.Cos(angle), math.Sin(angle)
	return v.MulScalar(c).
		Add(axis.Cross(v).MulScalar(s)).
		Add(axis.MulScalar(axis.Dot(v) * (1 - c)))
}

// Cross2 is the z component of the 2D cross product.
func Cross2(a, b Vec2) float64 { return a.X*b.Y - a.Y*b.X }

// Sub2 returns a-b.
func Sub2(a, b Vec2) Vec2 { return Vec2{X: a.X - b.X, Y: a.Y - b.Y} }

// Add2 returns a+b.
func Add2(a, b Vec2) Vec2 { return Vec2{X: a.X + b.X, Y: a.Y + b.Y} }

// Scale2 returns a*k.
func Scale2(a Vec2, k float64) Vec2 { return Vec2{X: a.X * k, Y: a.Y * k} }

// Len2 returns |a|.
func Len2(a Vec2) float64 { return math.Hypot(a.X, a.Y) }

// Unit2 normalises a 2D vector.
func Unit2(a Vec2) Vec2 {
	l := Len2(a)
	if l < 1e-12 {
		return Vec2{}
	}
	return Scale2(a, 1/l)
}

// Dot2 returns a·b.
func Dot2(a, b Vec2) float64 { return a.X*b.X + a.Y*b.Y }
