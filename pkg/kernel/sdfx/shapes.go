package sdfx

import (
	"errors"
	"math"

	"github.com/chazu/stemmount/pkg/geom"
	"github.com/chazu/stemmount/pkg/kernel"
	"github.com/deadsy/sdfx/sdf"
	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// farBound stands in for an unbounded extent.
const farBound = 1e6

// ----------------------------------------------------------------------------
// Adapters
// ----------------------------------------------------------------------------

// foreign adapts a Volume from another kernel.
type foreign struct {
	v kernel.Volume
}

func (f foreign) Evaluate(p v3.Vec) float64 { return f.v.Distance(p) }
func (f foreign) BoundingBox() sdf.Box3     { return box3(f.v.Bounds()) }

// bounded overrides the bounding box of an SDF3.
type bounded struct {
	sdf.SDF3
	bb sdf.Box3
}

func (b bounded) BoundingBox() sdf.Box3 { return b.bb }

// placed evaluates a child SDF through a rigid or mirror transform.
type placed struct {
	s   sdf.SDF3
	inv geom.Transform
	bb  sdf.Box3
}

func newPlaced(s sdf.SDF3, t geom.Transform) placed {
	bb := s.BoundingBox()
	return placed{
		s:   s,
		inv: t.Inverse(),
		bb:  box3(geom.Box{Min: bb.Min, Max: bb.Max}.Transform(t)),
	}
}

func (p placed) Evaluate(q v3.Vec) float64 { return p.s.Evaluate(p.inv.Point(q)) }
func (p placed) BoundingBox() sdf.Box3     { return p.bb }

// ----------------------------------------------------------------------------
// Profiles
// ----------------------------------------------------------------------------

// profile2 is the exact signed distance to a closed sketch of lines and arcs.
type profile2 struct {
	sk   geom.Sketch
	poly []geom.Vec2
	bb   sdf.Box2
}

func newProfile2(sk geom.Sketch) *profile2 {
	lo, hi := sk.Bounds()
	return &profile2{sk: sk, poly: sk.Polygon(), bb: sdf.Box2{Min: lo, Max: hi}}
}

func (p *profile2) Evaluate(q v2.Vec) float64 {
	d := math.Inf(1)
	for _, s := range p.sk.Segments {
		d = math.Min(d, s.Distance(q))
	}
	if geom.PointInPolygon(p.poly, q) {
		return -d
	}
	return d
}

func (p *profile2) BoundingBox() sdf.Box2 { return p.bb }

// revolve turns a (radius, axial) profile about +Z through sweep radians.
type revolve struct {
	p     sdf.SDF2
	sweep float64
	end   geom.Vec2 // outward normal of the closing half plane
	bb    sdf.Box3
}

func newRevolve(p sdf.SDF2, sweep float64) *revolve {
	pb := p.BoundingBox()
	r := math.Max(math.Abs(pb.Min.X), math.Abs(pb.Max.X))
	return &revolve{
		p:     p,
		sweep: sweep,
		end:   geom.P(-math.Sin(sweep), math.Cos(sweep)),
		bb: sdf.Box3{
			Min: v3.Vec{X: -r, Y: -r, Z: pb.Min.Y},
			Max: v3.Vec{X: r, Y: r, Z: pb.Max.Y},
		},
	}
}

func (r *revolve) Evaluate(q v3.Vec) float64 {
	d := r.p.Evaluate(v2.Vec{X: math.Hypot(q.X, q.Y), Y: q.Z})
	if r.sweep >= 2*math.Pi-1e-9 {
		return d
	}
	xy := geom.P(q.X, q.Y)
	a, b := -q.Y, geom.Dot2(xy, r.end)
	w := math.Max(a, b)
	if r.sweep > math.Pi {
		w = math.Min(a, b)
	}
	return math.Max(d, w)
}

func (r *revolve) BoundingBox() sdf.Box3 { return r.bb }

// ----------------------------------------------------------------------------
// Hull
// ----------------------------------------------------------------------------

type plane struct {
	n geom.Vec
	d float64
}

// hull is a convex polytope stored as the planes of its facets.
type hull struct {
	planes []plane
	bb     sdf.Box3
}

// maxHullPoints bounds the brute-force facet search.
const maxHullPoints = 400

func newHull(pts []geom.Vec) (*hull, error) {
	pts = dedupe(pts, 1e-7)
	if len(pts) < 4 {
		return nil, errors.New("hull needs at least four distinct points")
	}
	if len(pts) > maxHullPoints {
		return nil, errors.New("too many hull points")
	}
	const tol = 1e-7
	h := &hull{}
	for i := 0; i < len(pts); i++ {
		for j := i + 1; j < len(pts); j++ {
			for k := j + 1; k < len(pts); k++ {
				n := pts[j].Sub(pts[i]).Cross(pts[k].Sub(pts[i]))
				if n.Length() < 1e-9 {
					continue
				}
				n = n.Normalize()
				d := n.Dot(pts[i])
				above, below := false, false
				for _, p := range pts {
					s := n.Dot(p) - d
					if s > tol {
						above = true
					} else if s < -tol {
						below = true
					}
					if above && below {
						break
					}
				}
				switch {
				case above && below:
					continue
				case above:
					h.add(plane{n: geom.Neg(n), d: -d})
				case below:
					h.add(plane{n: n, d: d})
				}
			}
		}
	}
	if len(h.planes) < 4 {
		return nil, errors.New("points are coplanar")
	}
	b := geom.BoxOf(pts...)
	h.bb = box3(b)
	return h, nil
}

func (h *hull) add(p plane) {
	for _, q := range h.planes {
		if q.n.Dot(p.n) > 1-1e-9 && math.Abs(q.d-p.d) < 1e-7 {
			return
		}
	}
	h.planes = append(h.planes, p)
}

func (h *hull) Evaluate(q v3.Vec) float64 {
	d := math.Inf(-1)
	for _, p := range h.planes {
		d = math.Max(d, p.n.Dot(q)-p.d)
	}
	return d
}

func (h *hull) BoundingBox() sdf.Box3 { return h.bb }

func dedupe(pts []geom.Vec, tol float64) []geom.Vec {
	out := make([]geom.Vec, 0, len(pts))
	for _, p := range pts {
		dup := false
		for _, q := range out {
			if geom.NearVec(p, q, tol) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, p)
		}
	}
	return out
}

// ----------------------------------------------------------------------------
// Combinators
// ----------------------------------------------------------------------------

// halfSpace is the material behind a plane.
type halfSpace struct {
	o, n geom.Vec
}

func (h halfSpace) Evaluate(q v3.Vec) float64 { return q.Sub(h.o).Dot(h.n) }

func (h halfSpace) BoundingBox() sdf.Box3 {
	return sdf.Box3{
		Min: v3.Vec{X: -farBound, Y: -farBound, Z: -farBound},
		Max: v3.Vec{X: farBound, Y: farBound, Z: farBound},
	}
}

// smoothUnion blends two SDFs with a polynomial minimum.
type smoothUnion struct {
	a, b sdf.SDF3
	k    float64
}

func (s smoothUnion) Evaluate(q v3.Vec) float64 {
	da, db := s.a.Evaluate(q), s.b.Evaluate(q)
	h := math.Max(0, math.Min(1, 0.5+0.5*(db-da)/s.k))
	return db + (da-db)*h - s.k*h*(1-h)
}

func (s smoothUnion) BoundingBox() sdf.Box3 {
	a, b := s.a.BoundingBox(), s.b.BoundingBox()
	u := geom.Box{Min: a.Min, Max: a.Max}.Union(geom.Box{Min: b.Min, Max: b.Max})
	return box3(u.Expand(s.k))
}

// culledUnion skips operands whose bounds lie farther away than the best
// distance found so far.
type culledUnion struct {
	parts []sdf.SDF3
	boxes []geom.Box
	bb    sdf.Box3
}

func newCulledUnion(parts []sdf.SDF3) *culledUnion {
	u := &culledUnion{parts: parts, boxes: make([]geom.Box, len(parts))}
	all := geom.EmptyBox()
	for i, p := range parts {
		bb := p.BoundingBox()
		u.boxes[i] = geom.Box{Min: bb.Min, Max: bb.Max}
		all = all.Union(u.boxes[i])
	}
	u.bb = box3(all)
	return u
}

func (u *culledUnion) Evaluate(q v3.Vec) float64 {
	best := math.Inf(1)
	for i, p := range u.parts {
		if u.boxes[i].Distance(q) > best {
			continue
		}
		best = math.Min(best, p.Evaluate(q))
	}
	return best
}

func (u *culledUnion) BoundingBox() sdf.Box3 { return u.bb }
