package geom

import (
	"fmt"
	"math"
)

// SegmentKind distinguishes straight and circular sketch segments.
type SegmentKind int

const (
	SegLine SegmentKind = iota
	SegArc
)

func (k SegmentKind) String() string {
	if k == SegArc {
		return "arc"
	}
	return "line"
}

// Segment is one piece of a closed sketch loop, running from A to B.
// Arcs turn about C with radius R, counter-clockwise unless CW is set.
// An arc whose endpoints coincide is a full circle.
type Segment struct {
	Kind SegmentKind
	A, B Vec2
	C    Vec2
	R    float64
	CW   bool
}

// Line returns a straight segment.
func Line(a, b Vec2) Segment { return Segment{Kind: SegLine, A: a, B: b} }

// Arc returns a circular segment about c from a to b.
func Arc(c, a, b Vec2, cw bool) Segment {
	return Segment{Kind: SegArc, A: a, B: b, C: c, R: Len2(Sub2(a, c)), CW: cw}
}

// Sweep returns the swept angle of an arc in radians (always positive).
func (s Segment) Sweep() float64 {
	if s.Kind != SegArc {
		return 0
	}
	a0 := math.Atan2(s.A.Y-s.C.Y, s.A.X-s.C.X)
	a1 := math.Atan2(s.B.Y-s.C.Y, s.B.X-s.C.X)
	d := a1 - a0
	if s.CW {
		d = -d
	}
	for d <= 1e-9 {
		d += 2 * math.Pi
	}
	return d
}

// Length returns the segment length.
func (s Segment) Length() float64 {
	if s.Kind == SegArc {
		return s.R * s.Sweep()
	}
	return Len2(Sub2(s.B, s.A))
}

func (s Segment) startAngle() float64 {
	return math.Atan2(s.A.Y-s.C.Y, s.A.X-s.C.X)
}

// At returns the point at parameter t in [0,1].
func (s Segment) At(t float64) Vec2 {
	if s.Kind == SegLine {
		return Add2(s.A, Scale2(Sub2(s.B, s.A), t))
	}
	a := s.startAngle()
	if s.CW {
		a -= t * s.Sweep()
	} else {
		a += t * s.Sweep()
	}
	return P(s.C.X+s.R*math.Cos(a), s.C.Y+s.R*math.Sin(a))
}

// Tangent returns the unit direction of travel at t.
func (s Segment) Tangent(t float64) Vec2 {
	if s.Kind == SegLine {
		return Unit2(Sub2(s.B, s.A))
	}
	r := Unit2(Sub2(s.At(t), s.C))
	if s.CW {
		return P(r.Y, -r.X)
	}
	return P(-r.Y, r.X)
}

// Normal returns the outward unit normal at t for a counter-clockwise loop.
func (s Segment) Normal(t float64) Vec2 {
	d := s.Tangent(t)
	return P(d.Y, -d.X)
}

// Distance returns the unsigned distance from p to the segment.
func (s Segment) Distance(p Vec2) float64 {
	if s.Kind == SegLine {
		return segmentDistance(p, s.A, s.B)
	}
	v := Sub2(p, s.C)
	ang := math.Atan2(v.Y, v.X) - s.startAngle()
	if s.CW {
		ang = -ang
	}
	for ang < 0 {
		ang += 2 * math.Pi
	}
	for ang >= 2*math.Pi {
		ang -= 2 * math.Pi
	}
	if ang <= s.Sweep() {
		return math.Abs(Len2(v) - s.R)
	}
	return math.Min(Len2(Sub2(p, s.A)), Len2(Sub2(p, s.B)))
}

func segmentDistance(p, a, b Vec2) float64 {
	ab := Sub2(b, a)
	l2 := Dot2(ab, ab)
	if l2 == 0 {
		return Len2(Sub2(p, a))
	}
	t := math.Max(0, math.Min(1, Dot2(Sub2(p, a), ab)/l2))
	return Len2(Sub2(p, Add2(a, Scale2(ab, t))))
}

// arcStep is the angular resolution used when a loop is flattened.
const arcStep = 3 * math.Pi / 180

// Polyline flattens the segment, excluding its end point.
func (s Segment) Polyline() []Vec2 {
	if s.Kind == SegLine {
		return []Vec2{s.A}
	}
	n := int(math.Ceil(s.Sweep() / arcStep))
	if n < 2 {
		n = 2
	}
	pts := make([]Vec2, 0, n)
	for i := 0; i < n; i++ {
		pts = append(pts, s.At(float64(i)/float64(n)))
	}
	return pts
}

// Sketch is a closed, counter-clockwise loop of segments in a plane.
type Sketch struct {
	Segments []Segment
}

// Validate checks that the loop is closed and non-degenerate.
func (sk Sketch) Validate() error {
	n := len(sk.Segments)
	if n == 0 {
		return fmt.Errorf("geom: sketch has no segments")
	}
	for i, s := range sk.Segments {
		next := sk.Segments[(i+1)%n]
		if Len2(Sub2(s.B, next.A)) > 1e-6 {
			return fmt.Errorf("geom: sketch segment %d does not meet segment %d", i, (i+1)%n)
		}
		if s.Length() < 1e-9 {
			return fmt.Errorf("geom: sketch segment %d is degenerate", i)
		}
	}
	if sk.Area() <= 0 {
		return fmt.Errorf("geom: sketch loop is not counter-clockwise")
	}
	return nil
}

// Polygon flattens the loop.
func (sk Sketch) Polygon() []Vec2 {
	var pts []Vec2
	for _, s := range sk.Segments {
		pts = append(pts, s.Polyline()...)
	}
	return pts
}

// Vertices returns the start point of every segment.
func (sk Sketch) Vertices() []Vec2 {
	pts := make([]Vec2, len(sk.Segments))
	for i, s := range sk.Segments {
		pts[i] = s.A
	}
	return pts
}

// Area returns the signed area (positive for counter-clockwise loops).
func (sk Sketch) Area() float64 {
	return polygonArea(sk.Polygon())
}

// Centroid returns the area centroid of the loop.
func (sk Sketch) Centroid() Vec2 {
	pts := sk.Polygon()
	var cx, cy, a float64
	for i := range pts {
		p, q := pts[i], pts[(i+1)%len(pts)]
		c := Cross2(p, q)
		a += c
		cx += (p.X + q.X) * c
		cy += (p.Y + q.Y) * c
	}
	if math.Abs(a) < 1e-12 {
		return pts[0]
	}
	return P(cx/(3*a), cy/(3*a))
}

// Bounds returns the 2D bounds of the loop.
func (sk Sketch) Bounds() (lo, hi Vec2) {
	lo = P(math.Inf(1), math.Inf(1))
	hi = P(math.Inf(-1), math.Inf(-1))
	for _, p := range sk.Polygon() {
		lo = P(math.Min(lo.X, p.X), math.Min(lo.Y, p.Y))
		hi = P(math.Max(hi.X, p.X), math.Max(hi.Y, p.Y))
	}
	return lo, hi
}

// Offset translates the loop.
func (sk Sketch) Offset(d Vec2) Sketch {
	out := Sketch{Segments: make([]Segment, len(sk.Segments))}
	for i, s := range sk.Segments {
		s.A, s.B, s.C = Add2(s.A, d), Add2(s.B, d), Add2(s.C, d)
		out.Segments[i] = s
	}
	return out
}

// SignedDistance returns the distance from p to the loop, negative inside.
func (sk Sketch) SignedDistance(p Vec2) float64 {
	d := math.Inf(1)
	for _, s := range sk.Segments {
		d = math.Min(d, s.Distance(p))
	}
	if PointInPolygon(sk.Polygon(), p) {
		return -d
	}
	return d
}

func polygonArea(pts []Vec2) float64 {
	var a float64
	for i := range pts {
		a += Cross2(pts[i], pts[(i+1)%len(pts)])
	}
	return a / 2
}

// PointInPolygon is an even-odd crossing test.
func PointInPolygon(poly []Vec2, p Vec2) bool {
	in := false
	n := len(poly)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := poly[i], poly[j]
		if (a.Y > p.Y) != (b.Y > p.Y) &&
			p.X < (b.X-a.X)*(p.Y-a.Y)/(b.Y-a.Y)+a.X {
			in = !in
		}
	}
	return in
}

// IsConvex reports whether a polygon turns the same way at every vertex.
func IsConvex(poly []Vec2) bool {
	n := len(poly)
	if n < 3 {
		return false
	}
	sign := 0.0
	for i := range poly {
		a, b, c := poly[i], poly[(i+1)%n], poly[(i+2)%n]
		cr := Cross2(Sub2(b, a), Sub2(c, b))
		if math.Abs(cr) < 1e-12 {
			continue
		}
		if sign == 0 {
			sign = cr
		} else if sign*cr < 0 {
			return false
		}
	}
	return sign != 0
}

// ----------------------------------------------------------------------------
// Profiles
// ----------------------------------------------------------------------------

// Polygon builds a loop of straight segments, reordering it counter-clockwise.
func Polygon(pts ...Vec2) Sketch {
	if polygonArea(pts) < 0 {
		rev := make([]Vec2, len(pts))
		for i, p := range pts {
			rev[len(pts)-1-i] = p
		}
		pts = rev
	}
	sk := Sketch{}
	for i := range pts {
		sk.Segments = append(sk.Segments, Line(pts[i], pts[(i+1)%len(pts)]))
	}
	return sk
}

// Rect is a w x h rectangle centred on the origin.
func Rect(w, h float64) Sketch {
	return RectMinMax(P(-w/2, -h/2), P(w/2, h/2))
}

// RectMinMax is an axis-aligned rectangle between two corners.
func RectMinMax(lo, hi Vec2) Sketch {
	return Polygon(lo, P(hi.X, lo.Y), hi, P(lo.X, hi.Y))
}

// Circle is a full circle of radius r whose seam sits on +X.
func Circle(r float64) Sketch {
	a := P(r, 0)
	return Sketch{Segments: []Segment{Arc(P(0, 0), a, a, false)}}
}

// Hexagon is a regular hexagon with the given apothem (half the distance
// across flats); two flats are parallel to the X axis.
func Hexagon(apothem float64) Sketch {
	r := apothem / math.Cos(math.Pi/6)
	pts := make([]Vec2, 6)
	for i := range pts {
		a := float64(i) * math.Pi / 3
		pts[i] = P(r*math.Cos(a), r*math.Sin(a))
	}
	return Polygon(pts...)
}

// DProfile is a half disc of radius r toward -X closed by a square toward +X.
func DProfile(r float64) Sketch {
	return Sketch{Segments: []Segment{
		Line(P(0, -r), P(r, -r)),
		Line(P(r, -r), P(r, r)),
		Line(P(r, r), P(0, r)),
		Arc(P(0, 0), P(0, r), P(0, -r), false),
	}}
}

// RoundedRect is a w x h rectangle centred on the origin with corner radius rc.
func RoundedRect(w, h, rc float64) Sketch {
	if rc <= 0 {
		return Rect(w, h)
	}
	x, y := w/2, h/2
	return Sketch{Segments: []Segment{
		Line(P(-x+rc, -y), P(x-rc, -y)),
		Arc(P(x-rc, -y+rc), P(x-rc, -y), P(x, -y+rc), false),
		Line(P(x, -y+rc), P(x, y-rc)),
		Arc(P(x-rc, y-rc), P(x, y-rc), P(x-rc, y), false),
		Line(P(x-rc, y), P(-x+rc, y)),
		Arc(P(-x+rc, y-rc), P(-x+rc, y), P(-x, y-rc), false),
		Line(P(-x, y-rc), P(-x, -y+rc)),
		Arc(P(-x+rc, -y+rc), P(-x, -y+rc), P(-x+rc, -y), false),
	}}
}

// MirrorY reflects the loop across the X axis and restores its
// counter-clockwise order.
func (sk Sketch) MirrorY() Sketch {
	n := len(sk.Segments)
	out := Sketch{Segments: make([]Segment, n)}
	flip := func(p Vec2) Vec2 { return P(p.X, -p.Y) }
	for i, s := range sk.Segments {
		s.A, s.B, s.C = flip(s.B), flip(s.A), flip(s.C)
		out.Segments[n-1-i] = s
	}
	return out
}

// Transform2 maps the loop through a 2D rotation by angle (radians) and a
// translation. Orientation is preserved.
func (sk Sketch) Transform2(angle float64, d Vec2) Sketch {
	c, s := math.Cos(angle), math.Sin(angle)
	m := func(p Vec2) Vec2 { return P(c*p.X-s*p.Y+d.X, s*p.X+c*p.Y+d.Y) }
	out := Sketch{Segments: make([]Segment, len(sk.Segments))}
	for i, seg := range sk.Segments {
		seg.A, seg.B, seg.C = m(seg.A), m(seg.B), m(seg.C)
		out.Segments[i] = seg
	}
	return out
}
