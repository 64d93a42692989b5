package geom

import (
	"fmt"
	"math"
)

// Transform is an orthogonal affine map: a rotation (or reflection) M
// followed by a translation T. Joint frames are transforms whose columns
// are the frame axes and whose translation is the frame origin.
type Transform struct {
	M [3][3]float64
	T Vec
}

// Identity returns the identity transform.
func Identity() Transform {
	return Transform{M: [3][3]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}}
}

// Translate returns a pure translation.
func Translate(v Vec) Transform {
	t := Identity()
	t.T = v
	return t
}

// RotateX rotates about the X axis by deg degrees.
func RotateX(deg float64) Transform {
	c, s := math.Cos(Deg2Rad(deg)), math.Sin(Deg2Rad(deg))
	return Transform{M: [3][3]float64{{1, 0, 0}, {0, c, -s}, {0, s, c}}}
}

// RotateY rotates about the Y axis by deg degrees.
func RotateY(deg float64) Transform {
	c, s := math.Cos(Deg2Rad(deg)), math.Sin(Deg2Rad(deg))
	return Transform{M: [3][3]float64{{c, 0, s}, {0, 1, 0}, {-s, 0, c}}}
}

// RotateZ rotates about the Z axis by deg degrees.
func RotateZ(deg float64) Transform {
	c, s := math.Cos(Deg2Rad(deg)), math.Sin(Deg2Rad(deg))
	return Transform{M: [3][3]float64{{c, -s, 0}, {s, c, 0}, {0, 0, 1}}}
}

// RotateEuler applies X, then Y, then Z rotations (degrees).
func RotateEuler(x, y, z float64) Transform {
	return RotateX(x).Then(RotateY(y)).Then(RotateZ(z))
}

// RotateAxis rotates by deg degrees about the line through origin along axis.
func RotateAxis(origin, axis Vec, deg float64) Transform {
	a := Unit(axis)
	var r Transform
	for i, e := range []Vec{XAxis, YAxis, ZAxis} {
		c := RotateAbout(e, a, Deg2Rad(deg))
		r.M[0][i], r.M[1][i], r.M[2][i] = c.X, c.Y, c.Z
	}
	return Translate(Neg(origin)).Then(r).Then(Translate(origin))
}

// Mirror reflects across the plane through origin with the given normal.
func Mirror(origin, normal Vec) Transform {
	n := Unit(normal)
	var r Transform
	for i, e := range []Vec{XAxis, YAxis, ZAxis} {
		c := e.Sub(n.MulScalar(2 * e.Dot(n)))
		r.M[0][i], r.M[1][i], r.M[2][i] = c.X, c.Y, c.Z
	}
	return Translate(Neg(origin)).Then(r).Then(Translate(origin))
}

// Frame builds the transform whose columns are the given axes and whose
// origin is o. Axes are expected to be orthonormal.
func Frame(o, x, y, z Vec) Transform {
	return Transform{
		M: [3][3]float64{{x.X, y.X, z.X}, {x.Y, y.Y, z.Y}, {x.Z, y.Z, z.Z}},
		T: o,
	}
}

// FrameZX builds a right-handed frame from a Z axis and an X hint.
func FrameZX(o, z, xHint Vec) Transform {
	z = Unit(z)
	x := Unit(Reject(xHint, z))
	if x.Length() == 0 {
		x = Perpendicular(z)
	}
	return Frame(o, x, z.Cross(x), z)
}

// Then returns the transform that applies t first and u second.
func (t Transform) Then(u Transform) Transform {
	var out Transform
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out.M[i][j] = u.M[i][0]*t.M[0][j] + u.M[i][1]*t.M[1][j] + u.M[i][2]*t.M[2][j]
		}
	}
	out.T = u.Point(t.T)
	return out
}

// Point maps a point.
func (t Transform) Point(p Vec) Vec {
	return t.Dir(p).Add(t.T)
}

// Dir maps a direction (translation ignored).
func (t Transform) Dir(v Vec) Vec {
	return Vec{
		X: t.M[0][0]*v.X + t.M[0][1]*v.Y + t.M[0][2]*v.Z,
		Y: t.M[1][0]*v.X + t.M[1][1]*v.Y + t.M[1][2]*v.Z,
		Z: t.M[2][0]*v.X + t.M[2][1]*v.Y + t.M[2][2]*v.Z,
	}
}

// Inverse returns the inverse; M is orthogonal so its inverse is its transpose.
func (t Transform) Inverse() Transform {
	var out Transform
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out.M[i][j] = t.M[j][i]
		}
	}
	out.T = Neg(out.Dir(t.T))
	return out
}

// Det returns the determinant of M: +1 for rotations, -1 for reflections.
func (t Transform) Det() float64 {
	m := t.M
	return m[0][0]*(m[1][1]*m[2][2]-m[1][2]*m[2][1]) -
		m[0][1]*(m[1][0]*m[2][2]-m[1][2]*m[2][0]) +
		m[0][2]*(m[1][0]*m[2][1]-m[1][1]*m[2][0])
}

// Mirrors reports whether t flips handedness.
func (t Transform) Mirrors() bool { return t.Det() < 0 }

// Origin returns the frame origin.
func (t Transform) Origin() Vec { return t.T }

// AxisX returns the first column.
func (t Transform) AxisX() Vec { return t.Dir(XAxis) }

// AxisY returns the second column.
func (t Transform) AxisY() Vec { return t.Dir(YAxis) }

// AxisZ returns the third column.
func (t Transform) AxisZ() Vec { return t.Dir(ZAxis) }

// ApproxEqual compares two transforms entry by entry.
func (t Transform) ApproxEqual(u Transform, tol float64) bool {
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if math.Abs(t.M[i][j]-u.M[i][j]) > tol {
				return false
			}
		}
	}
	return NearVec(t.T, u.T, tol)
}

func (t Transform) String() string {
	return fmt.Sprintf("origin(%.3f %.3f %.3f) x(%.3f %.3f %.3f) z(%.3f %.3f %.3f)",
		t.T.X, t.T.Y, t.T.Z,
		t.M[0][0], t.M[1][0], t.M[2][0],
		t.M[0][2], t.M[1][2], t.M[2][2])
}
