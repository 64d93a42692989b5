package feature

import (
	"math"

	"github.com/chazu/stemmount/pkg/geom"
	"github.com/chazu/stemmount/pkg/kernel"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// blendSpec carries the size of one fillet or chamfer request.
type blendSpec struct {
	kind   kernel.BlendKind
	r      float64
	d1, d2 float64
}

func (b blendSpec) tag() string {
	if b.kind == kernel.Chamfer {
		return TagChamfer
	}
	return TagFillet
}

// Fillet rounds the given edges of s with radius r. The radius must stay
// below half the length of the shortest edge.
func (b *Builder) Fillet(s *Solid, edges []Edge, r float64) (*Solid, error) {
	args := []kernel.Arg{kernel.A("radius", r)}
	if len(edges) == 0 {
		return nil, kernel.Empty("fillet", "no edges selected", args...)
	}
	if r <= 0 {
		return nil, kernel.Failed("fillet", "radius must be positive", args...)
	}
	shortest := math.Inf(1)
	for _, e := range edges {
		shortest = math.Min(shortest, e.Length)
	}
	if r >= shortest/2 {
		return nil, kernel.Failed("fillet", "radius reaches half the shortest edge",
			append(args, kernel.A("shortest", shortest))...)
	}
	return b.blend("fillet", s, edges, blendSpec{kind: kernel.Fillet, r: r})
}

// Chamfer bevels the given edges of s, d1 along each edge's first face and
// d2 along its second. A zero d2 gives a symmetric bevel.
func (b *Builder) Chamfer(s *Solid, edges []Edge, d1, d2 float64) (*Solid, error) {
	if d2 == 0 {
		d2 = d1
	}
	args := []kernel.Arg{kernel.A("d1", d1), kernel.A("d2", d2)}
	if len(edges) == 0 {
		return nil, kernel.Empty("chamfer", "no edges selected", args...)
	}
	if d1 <= 0 || d2 <= 0 {
		return nil, kernel.Failed("chamfer", "distances must be positive", args...)
	}
	for _, e := range edges {
		if e.Kind == Spline {
			return nil, kernel.Failed("chamfer", "spline edges cannot be chamfered", args...)
		}
	}
	return b.blend("chamfer", s, edges, blendSpec{kind: kernel.Chamfer, d1: d1, d2: d2})
}

func (b *Builder) blend(op string, s *Solid, edges []Edge, spec blendSpec) (*Solid, error) {
	owners := make([]uuid.UUID, 0, len(edges))
	for _, e := range edges {
		owners = append(owners, e.Owner)
	}
	if err := s.owns(op, owners...); err != nil {
		return nil, err
	}
	selected := make(map[int]bool, len(edges))
	var cut, fill []kernel.Volume
	var made []Face
	for _, e := range edges {
		if e.Smooth {
			return nil, kernel.Failed(op, "faces meet tangentially at the edge", kernel.A("edge", float64(e.Index)))
		}
		regions, face, err := b.edgeBlend(e, spec)
		if err != nil {
			return nil, fail(op, err, kernel.A("edge", float64(e.Index)), kernel.A("radius", spec.r), kernel.A("d1", spec.d1))
		}
		if e.Convex() {
			cut = append(cut, regions...)
		} else {
			fill = append(fill, regions...)
		}
		face.Tags = addTags(e.Tags, spec.tag())
		made = append(made, face)
		selected[e.Index] = true
	}

	var kept []Edge
	for _, e := range s.edges {
		if !selected[e.Index] {
			kept = append(kept, e)
		}
	}
	faces, vol := s.faces, s.vol
	if len(cut) > 0 {
		tool := b.k.Union(cut...)
		faces, kept = cutKeep(faces, kept, tool)
		vol = b.k.Difference(vol, tool)
	}
	if len(fill) > 0 {
		tool := b.k.Union(fill...)
		faces, kept = unionKeep(faces, kept, tool)
		vol = b.k.Union(vol, tool)
	}
	out := newSolid(s.name, vol, append(faces, made...), kept, s.joints)
	return b.done(op, out, zap.Int("edges", len(edges)), zap.Float64("radius", spec.r), zap.Float64("d1", spec.d1)), nil
}

// edgeBlend returns the kernel regions for one edge and the face the blend
// leaves behind.
func (b *Builder) edgeBlend(e Edge, spec blendSpec) ([]kernel.Volume, Face, error) {
	switch e.Kind {
	case Circle, Arc:
		ab := kernel.ArcBlend{
			Kind:       spec.kind,
			Center:     e.Center,
			Axis:       e.Axis,
			Start:      geom.Unit(e.Start.Sub(e.Center)),
			EdgeRadius: e.Radius,
			Sweep:      e.Sweep,
			N1:         e.Sides[0].Normal,
			N2:         e.Sides[1].Normal,
			U1:         e.Sides[0].Dir,
			U2:         e.Sides[1].Dir,
			Radius:     spec.r,
			D1:         spec.d1,
			D2:         spec.d2,
		}
		v, err := b.k.ArcBlend(ab)
		if err != nil {
			return nil, Face{}, err
		}
		return []kernel.Volume{v}, arcBlendFace(ab, spec), nil
	case Spline:
		var regions []kernel.Volume
		face := Face{Kind: Freeform}
		for i := 0; i+1 < len(e.Path); i++ {
			lb := lineBlend(e.Path[i].P, e.Path[i+1].P, e.Path[i].Sides, spec)
			v, err := b.k.LineBlend(lb)
			if err != nil {
				return nil, Face{}, err
			}
			regions = append(regions, v)
			part := lineBlendFace(lb, spec)
			face.Samples = append(face.Samples, part.Samples...)
			face.Area += part.Area
		}
		face.Center = e.Midpoint()
		return regions, face, nil
	}
	lb := lineBlend(e.Start, e.End, e.Sides, spec)
	v, err := b.k.LineBlend(lb)
	if err != nil {
		return nil, Face{}, err
	}
	return []kernel.Volume{v}, lineBlendFace(lb, spec), nil
}

func lineBlend(a, c geom.Vec, sides [2]Side, spec blendSpec) kernel.LineBlend {
	return kernel.LineBlend{
		Kind:   spec.kind,
		A:      a,
		B:      c,
		N1:     sides[0].Normal,
		N2:     sides[1].Normal,
		U1:     sides[0].Dir,
		U2:     sides[1].Dir,
		Radius: spec.r,
		D1:     spec.d1,
		D2:     spec.d2,
	}
}

var blendTs = []float64{0.2, 0.5, 0.8}

// lineBlendFace is the cylinder or plane left by a straight blend.
func lineBlendFace(lb kernel.LineBlend, spec blendSpec) Face {
	dir, e1, e2, c := lb.Section()
	length := lb.B.Sub(lb.A).Length()
	at := func(q geom.Vec2, t float64) geom.Vec {
		return lb.A.Add(e1.MulScalar(q.X)).Add(e2.MulScalar(q.Y)).Add(dir.MulScalar(t * length))
	}
	along := func(n geom.Vec2) geom.Vec { return e1.MulScalar(n.X).Add(e2.MulScalar(n.Y)) }

	if spec.kind == kernel.Chamfer {
		p1, p2 := c.ChamferPoints(spec.d1, spec.d2)
		n := along(c.ChamferNormal(spec.d1, spec.d2))
		return polygonFace([]geom.Vec{at(p1, 0), at(p2, 0), at(p2, 1), at(p1, 1)}, n, nil)
	}
	f := Face{
		Kind:   Cylinder,
		Axis:   dir,
		Radius: spec.r,
		Center: at(c.FilletCenter(spec.r), 0.5),
		Area:   length * spec.r * filletAngle(c),
	}
	for _, t := range blendTs {
		for _, u := range blendTs {
			f.Samples = append(f.Samples, Sample{P: at(c.FilletPoint(spec.r, u), t), N: along(c.FilletNormal(u))})
		}
	}
	return f
}

// arcBlendFace is the torus or cone left by a blend around a circular edge.
func arcBlendFace(ab kernel.ArcBlend, spec blendSpec) Face {
	c := ab.Corner()
	at := func(q geom.Vec2, phi float64) geom.Vec {
		radial := geom.RotateAbout(ab.Start, ab.Axis, phi)
		return ab.Center.Add(radial.MulScalar(ab.EdgeRadius + q.X)).Add(ab.Axis.MulScalar(q.Y))
	}
	along := func(n geom.Vec2, phi float64) geom.Vec {
		radial := geom.RotateAbout(ab.Start, ab.Axis, phi)
		return radial.MulScalar(n.X).Add(ab.Axis.MulScalar(n.Y))
	}
	sweep := geom.Deg2Rad(ab.Sweep)
	m := max(4, int(math.Ceil(ab.Sweep/22.5)))
	phis := make([]float64, m)
	for k := range phis {
		phis[k] = sweep * (float64(k) + 0.5) / float64(m)
	}

	f := Face{Center: ab.Center, Axis: ab.Axis, Radius: ab.EdgeRadius}
	if spec.kind == kernel.Chamfer {
		p1, p2 := c.ChamferPoints(spec.d1, spec.d2)
		n := c.ChamferNormal(spec.d1, spec.d2)
		f.Kind = Cone
		f.Area = sweep * (ab.EdgeRadius + (p1.X+p2.X)/2) * geom.Len2(geom.Sub2(p2, p1))
		for _, phi := range phis {
			for _, u := range blendTs {
				q := geom.Add2(p1, geom.Scale2(geom.Sub2(p2, p1), u))
				f.Samples = append(f.Samples, Sample{P: at(q, phi), N: along(n, phi)})
			}
		}
		return f
	}
	f.Kind = Freeform
	f.Area = sweep * ab.EdgeRadius * spec.r * filletAngle(c)
	for _, phi := range phis {
		for _, u := range blendTs {
			f.Samples = append(f.Samples, Sample{P: at(c.FilletPoint(spec.r, u), phi), N: along(c.FilletNormal(u), phi)})
		}
	}
	return f
}

// filletAngle is the angle the fillet arc turns through.
func filletAngle(c kernel.Corner) float64 {
	return math.Acos(math.Max(-1, math.Min(1, geom.Dot2(c.N1, c.N2))))
}
