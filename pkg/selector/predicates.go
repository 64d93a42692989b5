package selector

import (
	"math"
	"slices"

	"github.com/chazu/stemmount/pkg/feature"
	"github.com/chazu/stemmount/pkg/geom"
	"github.com/samber/lo"
)

// aligned reports whether unit vectors a and b are within tolDeg degrees.
func aligned(a, b geom.Vec, tolDeg float64) bool {
	return a.Dot(b) >= math.Cos(geom.Deg2Rad(tolDeg))
}

// FaceKinds matches faces of any of the given kinds.
func FaceKinds(kinds ...feature.FaceKind) func(feature.Face) bool {
	return func(f feature.Face) bool { return slices.Contains(kinds, f.Kind) }
}

// Planar matches faces that carry a profile.
func Planar(f feature.Face) bool { return f.Planar() }

// NormalAlong matches planar faces whose outward normal points along dir.
func NormalAlong(dir geom.Vec, tolDeg float64) func(feature.Face) bool {
	dir = geom.Unit(dir)
	return func(f feature.Face) bool {
		return f.Kind == feature.Plane && aligned(f.Normal, dir, tolDeg)
	}
}

// AxisAlong matches cylinders and cones whose axis is parallel to dir,
// either way round.
func AxisAlong(dir geom.Vec, tolDeg float64) func(feature.Face) bool {
	dir = geom.Unit(dir)
	return func(f feature.Face) bool {
		if f.Kind != feature.Cylinder && f.Kind != feature.Cone {
			return false
		}
		return aligned(f.Axis, dir, tolDeg) || aligned(f.Axis, geom.Neg(dir), tolDeg)
	}
}

// EdgeKinds matches edges of any of the given kinds.
func EdgeKinds(kinds ...feature.EdgeKind) func(feature.Edge) bool {
	return func(e feature.Edge) bool { return slices.Contains(kinds, e.Kind) }
}

// Parallel matches line edges running along dir, either way round.
func Parallel(dir geom.Vec, tolDeg float64) func(feature.Edge) bool {
	dir = geom.Unit(dir)
	return func(e feature.Edge) bool {
		if e.Kind != feature.Line {
			return false
		}
		d := e.Direction()
		return aligned(d, dir, tolDeg) || aligned(d, geom.Neg(dir), tolDeg)
	}
}

// Perpendicular matches line edges square to dir and circular edges whose
// axis is parallel to dir.
func Perpendicular(dir geom.Vec, tolDeg float64) func(feature.Edge) bool {
	dir = geom.Unit(dir)
	limit := math.Sin(geom.Deg2Rad(tolDeg))
	return func(e feature.Edge) bool {
		switch e.Kind {
		case feature.Line:
			return math.Abs(e.Direction().Dot(dir)) <= limit
		case feature.Circle, feature.Arc:
			return aligned(e.Axis, dir, tolDeg) || aligned(e.Axis, geom.Neg(dir), tolDeg)
		}
		return false
	}
}

// Convex matches edges where the material angle is below 180 degrees.
func Convex(e feature.Edge) bool { return e.Convex() }

// Concave matches edges where the material angle exceeds 180 degrees.
func Concave(e feature.Edge) bool { return !e.Convex() }

// Sharp matches edges whose faces are not tangent.
func Sharp(e feature.Edge) bool { return !e.Smooth }

// Bounding matches edges on the boundary of planar face f: the edge lies in
// the face plane, inside its outline, and one of its sides is f.
func Bounding(f feature.Face, tol float64) func(feature.Edge) bool {
	return func(e feature.Edge) bool {
		if !f.Planar() {
			return false
		}
		if !lo.SomeBy(e.Sides[:], func(s feature.Side) bool { return aligned(s.Normal, f.Normal, 0.5) }) {
			return false
		}
		inv := f.Frame.Inverse()
		for _, p := range []geom.Vec{e.Start, e.Midpoint(), e.End} {
			q := inv.Point(p)
			if math.Abs(q.Z) > tol || f.Profile.SignedDistance(geom.P(q.X, q.Y)) > tol {
				return false
			}
		}
		return true
	}
}

// Vertices returns the distinct end points of the edges, in first-seen
// order. Points closer than tol count as one.
func Vertices(l List[feature.Edge], tol float64) []geom.Vec {
	var out []geom.Vec
	add := func(p geom.Vec) {
		if !lo.ContainsBy(out, func(q geom.Vec) bool { return geom.NearVec(p, q, tol) }) {
			out = append(out, p)
		}
	}
	for _, e := range l {
		add(e.Start)
		add(e.End)
	}
	return out
}
