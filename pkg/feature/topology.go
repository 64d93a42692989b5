package feature

import (
	"math"

	"github.com/chazu/stemmount/pkg/geom"
)

// Face and edge role tags assigned by the primitive constructors.
const (
	TagStart        = "start"        // first cap of an extrusion, loft or revolve
	TagEnd          = "end"          // last cap
	TagSide         = "side"         // swept side surfaces
	TagLateral      = "lateral"      // extrusion edges between side faces
	TagLongitudinal = "longitudinal" // loft edges between side faces
	TagRim          = "rim"          // circles and arcs traced by a revolve
	TagSeam         = "seam"         // tangent joins of a closed curve
	TagCut          = "cut"          // faces made by a split
	TagFillet       = "fillet"
	TagChamfer      = "chamfer"
)

// samplesInside keeps sketch points that lie strictly inside the loop.
func samplesInside(sk geom.Sketch, pts []geom.Vec2) []geom.Vec2 {
	out := pts[:0]
	for _, p := range pts {
		if sk.SignedDistance(p) < -1e-6 {
			out = append(out, p)
		}
	}
	return out
}

func fullCircle(s geom.Segment) bool {
	return s.Kind == geom.SegArc && geom.Len2(geom.Sub2(s.A, s.B)) < 1e-9
}

// capPoints spreads sample points over a sketch region: the centroid and
// points just inside each segment and vertex.
func capPoints(sk geom.Sketch) []geom.Vec2 {
	c := sk.Centroid()
	pts := []geom.Vec2{c}
	inset := func(l float64) float64 { return math.Min(0.3, 0.25*l) }
	for _, s := range sk.Segments {
		if fullCircle(s) {
			for k := 0; k < 8; k++ {
				a := float64(k) * math.Pi / 4
				r := s.R - inset(s.R)
				pts = append(pts, geom.P(s.C.X+r*math.Cos(a), s.C.Y+r*math.Sin(a)))
			}
			continue
		}
		m := s.At(0.5)
		pts = append(pts, geom.Add2(m, geom.Scale2(s.Normal(0.5), -inset(s.Length()))))
		d := geom.Sub2(c, s.A)
		pts = append(pts, geom.Add2(s.A, geom.Scale2(geom.Unit2(d), inset(geom.Len2(d)))))
	}
	return samplesInside(sk, pts)
}

// planeFace builds a planar face from a profile placed by frame; the
// frame's Z axis is the outward normal.
func planeFace(sk geom.Sketch, frame geom.Transform, tags []string) Face {
	c := sk.Centroid()
	n := frame.AxisZ()
	f := Face{
		Kind:    Plane,
		Center:  frame.Point(geom.V(c.X, c.Y, 0)),
		Normal:  n,
		Area:    math.Abs(sk.Area()),
		Frame:   frame,
		Profile: &sk,
		Tags:    tags,
	}
	for _, p := range capPoints(sk) {
		f.Samples = append(f.Samples, Sample{P: frame.Point(geom.V(p.X, p.Y, 0)), N: n})
	}
	return f
}

// segmentTs returns interior parameters spread along a segment.
func segmentTs(s geom.Segment) []float64 {
	if s.Kind == geom.SegLine {
		return []float64{0.1, 0.5, 0.9}
	}
	m := max(3, int(math.Ceil(s.Sweep()/(math.Pi/8))))
	ts := make([]float64, m)
	for i := range ts {
		ts[i] = (float64(i) + 0.5) / float64(m)
	}
	return ts
}

func v3(p geom.Vec2, z float64) geom.Vec { return geom.V(p.X, p.Y, z) }

// arcAxis returns the axis about which a sketch arc turns counter-clockwise
// in the sketch's own frame.
func arcAxis(s geom.Segment) geom.Vec {
	if s.CW {
		return geom.Neg(geom.ZAxis)
	}
	return geom.ZAxis
}

// curveEdge builds the edge traced by segment s at height z.
func curveEdge(s geom.Segment, z float64, sides [2]Side, tags []string) Edge {
	e := Edge{
		Start:  v3(s.A, z),
		End:    v3(s.B, z),
		Length: s.Length(),
		Sides:  sides,
		Tags:   tags,
	}
	switch {
	case fullCircle(s):
		e.Kind = Circle
	case s.Kind == geom.SegArc:
		e.Kind = Arc
	default:
		e.Kind = Line
		return e
	}
	e.Center = v3(s.C, z)
	e.Axis = arcAxis(s)
	e.Radius = s.R
	e.Sweep = geom.Rad2Deg(s.Sweep())
	return e
}

// extrudeTopology describes a sketch in the XY plane extruded along Z by
// dist (which may be negative).
func extrudeTopology(name string, sk geom.Sketch, dist float64) ([]Face, []Edge) {
	up := geom.ZAxis
	if dist < 0 {
		up = geom.Neg(up)
	}
	lo, hi := math.Min(0, dist), math.Max(0, dist)
	h := hi - lo

	// caps: the one at z=0 is the start cap
	top := planeFace(sk, geom.Translate(geom.V(0, 0, hi)), nil)
	bottom := planeFace(sk.MirrorY(), geom.Frame(geom.V(0, 0, lo), geom.XAxis, geom.Neg(geom.YAxis), geom.Neg(geom.ZAxis)), nil)
	startCap, endCap := bottom, top
	if dist < 0 {
		startCap, endCap = top, bottom
	}
	startCap.Tags = []string{name, TagStart}
	endCap.Tags = []string{name, TagEnd}
	faces := []Face{startCap, endCap}

	var edges []Edge
	n := len(sk.Segments)
	for i, s := range sk.Segments {
		tags := []string{name, TagSide}
		var f Face
		if s.Kind == geom.SegLine {
			t := geom.Unit(v3(geom.Sub2(s.B, s.A), 0))
			nrm := v3(s.Normal(0), 0)
			frame := geom.Frame(v3(s.A, 0), t, geom.ZAxis, nrm)
			f = planeFace(geom.RectMinMax(geom.P(0, lo), geom.P(s.Length(), hi)), frame, tags)
		} else {
			f = Face{
				Kind:   Cylinder,
				Center: v3(s.C, dist/2),
				Axis:   geom.ZAxis,
				Radius: s.R,
				Area:   s.Length() * h,
				Tags:   tags,
			}
			for _, t := range segmentTs(s) {
				p, nrm := s.At(t), v3(s.Normal(t), 0)
				for _, z := range []float64{0.1, 0.5, 0.9} {
					f.Samples = append(f.Samples, Sample{P: v3(p, lo+z*h), N: nrm})
				}
			}
		}
		faces = append(faces, f)

		// cap edges: side 0 is the cap, side 1 the swept face
		nrm := v3(s.Normal(0), 0)
		inward := geom.Neg(nrm)
		edges = append(edges,
			curveEdge(s, 0, [2]Side{{Normal: geom.Neg(up), Dir: inward}, {Normal: nrm, Dir: up}}, []string{name, TagStart}),
			curveEdge(s, dist, [2]Side{{Normal: up, Dir: inward}, {Normal: nrm, Dir: geom.Neg(up)}}, []string{name, TagEnd}),
		)

		// lateral edge at the segment's start vertex
		prev := sk.Segments[(i+n-1)%n]
		n0, n1 := v3(prev.Normal(1), 0), nrm
		d0 := geom.Neg(v3(prev.Tangent(1), 0))
		d1 := v3(s.Tangent(0), 0)
		lat := Edge{
			Kind:   Line,
			Start:  v3(s.A, 0),
			End:    v3(s.A, dist),
			Length: h,
			Sides:  [2]Side{{Normal: n0, Dir: d0}, {Normal: n1, Dir: d1}},
			Smooth: n0.Dot(n1) > 1-1e-6,
			Tags:   []string{name, TagLateral},
		}
		if lat.Smooth {
			lat.Tags = append(lat.Tags, TagSeam)
		}
		edges = append(edges, lat)
	}
	return faces, edges
}

// revolveTopology describes a profile (X = radius, Y = axial) turned about
// +Z, starting from +X, through deg degrees.
func revolveTopology(name string, sk geom.Sketch, deg float64) ([]Face, []Edge) {
	sweep := geom.Deg2Rad(deg)
	full := deg >= 360-1e-9
	radial := func(phi float64) geom.Vec { return geom.V(math.Cos(phi), math.Sin(phi), 0) }
	lift := func(q geom.Vec2, phi float64) geom.Vec { return radial(phi).MulScalar(q.X).Add(geom.ZAxis.MulScalar(q.Y)) }

	m := max(4, int(math.Ceil(deg/22.5)))
	var faces []Face
	for _, s := range sk.Segments {
		f := Face{Axis: geom.ZAxis, Tags: []string{name, TagSide}}
		d := geom.Sub2(s.B, s.A)
		mid := s.At(0.5)
		switch {
		case s.Kind == geom.SegArc:
			f.Kind = Freeform
		case math.Abs(d.X) < 1e-9:
			f.Kind = Cylinder
		case math.Abs(d.Y) < 1e-9:
			f.Kind = Plane
			f.Normal = geom.ZAxis.MulScalar(math.Copysign(1, s.Normal(0.5).Y))
		default:
			f.Kind = Cone
		}
		f.Center = geom.V(0, 0, mid.Y)
		f.Radius = mid.X
		f.Area = sweep * mid.X * s.Length()
		for _, t := range segmentTs(s) {
			q, n := s.At(t), s.Normal(t)
			if q.X < 1e-9 {
				continue
			}
			for k := 0; k < m; k++ {
				phi := sweep * (float64(k) + 0.5) / float64(m)
				f.Samples = append(f.Samples, Sample{P: lift(q, phi), N: lift(n, phi)})
			}
		}
		if len(f.Samples) > 0 {
			faces = append(faces, f)
		}
	}

	var edges []Edge
	n := len(sk.Segments)
	for i, s := range sk.Segments {
		if s.A.X < 1e-9 {
			continue
		}
		prev := sk.Segments[(i+n-1)%n]
		n0, n1 := lift(prev.Normal(1), 0), lift(s.Normal(0), 0)
		e := Edge{
			Kind:   Circle,
			Start:  lift(s.A, 0),
			End:    lift(s.A, sweep),
			Center: geom.V(0, 0, s.A.Y),
			Axis:   geom.ZAxis,
			Radius: s.A.X,
			Sweep:  deg,
			Length: sweep * s.A.X,
			Sides: [2]Side{
				{Normal: n0, Dir: geom.Neg(lift(prev.Tangent(1), 0))},
				{Normal: n1, Dir: lift(s.Tangent(0), 0)},
			},
			Smooth: n0.Dot(n1) > 1-1e-6,
			Tags:   []string{name, TagRim},
		}
		if !full {
			e.Kind = Arc
		}
		edges = append(edges, e)
	}
	if full {
		return faces, edges
	}

	// end faces lie in the meridian planes at 0 and sweep
	t0 := geom.YAxis
	t1 := geom.V(-math.Sin(sweep), math.Cos(sweep), 0)
	start := planeFace(sk, geom.Frame(geom.Origin, geom.XAxis, geom.ZAxis, geom.Neg(t0)), []string{name, TagStart})
	end := planeFace(sk.MirrorY(), geom.Frame(geom.Origin, radial(sweep), geom.Neg(geom.ZAxis), t1), []string{name, TagEnd})
	faces = append(faces, start, end)
	for _, s := range sk.Segments {
		for _, c := range []struct {
			phi  float64
			face Face
			into geom.Vec
			tag  string
		}{{0, start, t0, TagStart}, {sweep, end, geom.Neg(t1), TagEnd}} {
			nrm := lift(s.Normal(0), c.phi)
			e := Edge{
				Kind:   Line,
				Start:  lift(s.A, c.phi),
				End:    lift(s.B, c.phi),
				Length: s.Length(),
				Sides:  [2]Side{{Normal: c.face.Normal, Dir: geom.Neg(nrm)}, {Normal: nrm, Dir: c.into}},
				Tags:   []string{name, c.tag},
			}
			if s.Kind == geom.SegArc {
				e.Kind = Arc
				e.Center = lift(s.C, c.phi)
				e.Radius = s.R
				e.Sweep = geom.Rad2Deg(s.Sweep())
				e.Axis = geom.Unit(e.Start.Sub(e.Center).Cross(lift(s.Tangent(0), c.phi)))
			}
			edges = append(edges, e)
		}
	}
	return faces, edges
}

// ----------------------------------------------------------------------------
// Lofts
// ----------------------------------------------------------------------------

func centroid(pts []geom.Vec) geom.Vec {
	var c geom.Vec
	for _, p := range pts {
		c = c.Add(p)
	}
	return c.MulScalar(1 / float64(len(pts)))
}

// newell returns the unit normal of a polygon, following its winding.
func newell(pts []geom.Vec) geom.Vec {
	var n geom.Vec
	for i := range pts {
		a, b := pts[i], pts[(i+1)%len(pts)]
		n = n.Add(geom.V((a.Y-b.Y)*(a.Z+b.Z), (a.Z-b.Z)*(a.X+b.X), (a.X-b.X)*(a.Y+b.Y)))
	}
	return geom.Unit(n)
}

// polygonFace builds a planar face through 3D points, oriented along n.
func polygonFace(pts []geom.Vec, n geom.Vec, tags []string) Face {
	c := centroid(pts)
	frame := geom.FrameZX(c, n, pts[0].Sub(c))
	inv := frame.Inverse()
	loop := make([]geom.Vec2, len(pts))
	for i, p := range pts {
		q := inv.Point(p)
		loop[i] = geom.P(q.X, q.Y)
	}
	return planeFace(geom.Polygon(loop...), frame, tags)
}

// planar reports whether points lie within tol of one plane.
func planar(pts []geom.Vec, tol float64) bool {
	n := newell(pts)
	c := centroid(pts)
	for _, p := range pts {
		if math.Abs(p.Sub(c).Dot(n)) > tol {
			return false
		}
	}
	return true
}

// quadFace is one side panel of a loft segment.
func quadFace(a, b, c, d, away geom.Vec, tags []string) Face {
	quad := []geom.Vec{a, b, c, d}
	n := geom.Unit(c.Sub(a).Cross(d.Sub(b)))
	if n.Dot(centroid(quad).Sub(away)) < 0 {
		n = geom.Neg(n)
	}
	if planar(quad, 1e-6) {
		return polygonFace(quad, n, tags)
	}
	f := Face{
		Kind:   Freeform,
		Center: centroid(quad),
		Normal: n,
		Area:   0.5 * c.Sub(a).Cross(d.Sub(b)).Length(),
		Tags:   tags,
	}
	for _, u := range []float64{0.25, 0.5, 0.75} {
		for _, v := range []float64{0.25, 0.5, 0.75} {
			p := geom.Lerp(geom.Lerp(a, b, u), geom.Lerp(d, c, u), v)
			f.Samples = append(f.Samples, Sample{P: p, N: n})
		}
	}
	return f
}

// loftTopology describes the lofted body through sections that share a
// vertex count. Section polygons must be planar and convex.
func loftTopology(name string, sections [][]geom.Vec) ([]Face, []Edge) {
	last := len(sections) - 1
	n := len(sections[0])
	ctr := make([]geom.Vec, len(sections))
	for j, s := range sections {
		ctr[j] = centroid(s)
	}

	capNormal := func(j, other int) geom.Vec {
		nrm := newell(sections[j])
		if nrm.Dot(ctr[j].Sub(ctr[other])) < 0 {
			nrm = geom.Neg(nrm)
		}
		return nrm
	}
	startN, endN := capNormal(0, 1), capNormal(last, last-1)
	faces := []Face{
		polygonFace(sections[0], startN, []string{name, TagStart}),
		polygonFace(sections[last], endN, []string{name, TagEnd}),
	}

	// side[j][k] is the panel between vertices k and k+1 of segment j
	side := make([][]Face, last)
	for j := 0; j < last; j++ {
		away := geom.Lerp(ctr[j], ctr[j+1], 0.5)
		side[j] = make([]Face, n)
		for k := 0; k < n; k++ {
			a, b := sections[j][k], sections[j][(k+1)%n]
			c, d := sections[j+1][(k+1)%n], sections[j+1][k]
			side[j][k] = quadFace(a, b, c, d, away, []string{name, TagSide})
			faces = append(faces, side[j][k])
		}
	}

	var edges []Edge
	capEdges := func(j, seg int, capN geom.Vec, tag string) {
		other := ctr[1]
		if j == last {
			other = ctr[last-1]
		}
		for k := 0; k < n; k++ {
			a, b := sections[j][k], sections[j][(k+1)%n]
			dir := geom.Unit(b.Sub(a))
			mid := geom.Lerp(a, b, 0.5)
			edges = append(edges, Edge{
				Kind:   Line,
				Start:  a,
				End:    b,
				Length: b.Sub(a).Length(),
				Sides: [2]Side{
					{Normal: capN, Dir: geom.Unit(geom.Reject(ctr[j].Sub(mid), dir))},
					{Normal: side[seg][k].Normal, Dir: geom.Unit(geom.Reject(other.Sub(mid), dir))},
				},
				Tags: []string{name, tag},
			})
		}
	}
	capEdges(0, 0, startN, TagStart)
	capEdges(last, last-1, endN, TagEnd)

	for k := 0; k < n; k++ {
		path := make([]PathPoint, len(sections))
		pts := make([]geom.Vec, len(sections))
		var length float64
		for j := range sections {
			p := sections[j][k]
			pts[j] = p
			seg := min(j, last-1)
			var tan geom.Vec
			if j < last {
				tan = sections[j+1][k].Sub(p)
			} else {
				tan = p.Sub(sections[j-1][k])
			}
			tan = geom.Unit(tan)
			if j > 0 {
				length += p.Sub(sections[j-1][k]).Length()
			}
			prevV, nextV := sections[j][(k+n-1)%n], sections[j][(k+1)%n]
			path[j] = PathPoint{P: p, Sides: [2]Side{
				{Normal: side[seg][(k+n-1)%n].Normal, Dir: geom.Unit(geom.Reject(prevV.Sub(p), tan))},
				{Normal: side[seg][k].Normal, Dir: geom.Unit(geom.Reject(nextV.Sub(p), tan))},
			}}
		}
		e := Edge{
			Kind:   Spline,
			Start:  pts[0],
			End:    pts[last],
			Length: length,
			Sides:  path[0].Sides,
			Path:   path,
			Tags:   []string{name, TagLongitudinal},
		}
		e.Smooth = e.Sides[0].Normal.Dot(e.Sides[1].Normal) > 1-1e-6
		if straight(pts) {
			e.Kind = Line
			e.Path = nil
		}
		edges = append(edges, e)
	}
	return faces, edges
}

// straight reports whether points lie on their chord.
func straight(pts []geom.Vec) bool {
	a, b := pts[0], pts[len(pts)-1]
	dir := geom.Unit(b.Sub(a))
	for _, p := range pts {
		if geom.Reject(p.Sub(a), dir).Length() > 1e-6 {
			return false
		}
	}
	return true
}

// cutFace is the face a split leaves on the plane through o with outward
// normal n. Only the parts of the plane where the body continues on both
// sides count.
func cutFace(name string, bb geom.Box, o, n geom.Vec, body interface{ Distance(geom.Vec) float64 }) (Face, bool) {
	poly := bb.Section(o, n)
	if len(poly) < 3 {
		return Face{}, false
	}
	f := polygonFace(poly, n, []string{name, TagCut})
	f.Samples = nil
	frame := f.Frame
	lo, hi := f.Profile.Bounds()
	const grid = 24
	for i := 0; i < grid; i++ {
		for j := 0; j < grid; j++ {
			q := geom.P(lo.X+(hi.X-lo.X)*(float64(i)+0.5)/grid, lo.Y+(hi.Y-lo.Y)*(float64(j)+0.5)/grid)
			p := frame.Point(geom.V(q.X, q.Y, 0))
			if body.Distance(p.Sub(n.MulScalar(sampleStep))) < 0 && body.Distance(p.Add(n.MulScalar(sampleStep))) < 0 {
				f.Samples = append(f.Samples, Sample{P: p, N: n})
			}
		}
	}
	return f, len(f.Samples) > 0
}
