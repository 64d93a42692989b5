package feature

import (
	"errors"
	"math"

	"github.com/chazu/stemmount/pkg/geom"
	"github.com/chazu/stemmount/pkg/kernel"
	"go.uber.org/zap"
)

// Builder runs feature operations against a kernel.
type Builder struct {
	k   kernel.Kernel
	log *zap.Logger
}

// NewBuilder returns a Builder. A nil logger discards output.
func NewBuilder(k kernel.Kernel, log *zap.Logger) *Builder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Builder{k: k, log: log}
}

// Kernel returns the kernel the builder calls into.
func (b *Builder) Kernel() kernel.Kernel { return b.k }

func (b *Builder) done(op string, s *Solid, fields ...zap.Field) *Solid {
	fields = append(fields,
		zap.String("solid", s.name),
		zap.Int("faces", len(s.faces)),
		zap.Int("edges", len(s.edges)))
	b.log.Debug(op, fields...)
	return s
}

// fail reports a kernel error as a failed operation, keeping errors that
// already carry the taxonomy.
func fail(op string, err error, args ...kernel.Arg) error {
	var oe *kernel.OpError
	if errors.As(err, &oe) {
		return err
	}
	return kernel.Failed(op, err.Error(), args...)
}

// ----------------------------------------------------------------------------
// Primitives
// ----------------------------------------------------------------------------

// Extrude pulls a sketch drawn in frame's XY plane along the frame's Z axis
// by dist; a negative dist extrudes the other way. The cap on the sketch
// plane is tagged "start", the far cap "end".
func (b *Builder) Extrude(name string, sk geom.Sketch, frame geom.Transform, dist float64) (*Solid, error) {
	args := []kernel.Arg{kernel.A("dist", dist)}
	if err := sk.Validate(); err != nil {
		return nil, kernel.Failed("extrude", err.Error(), args...)
	}
	if math.Abs(dist) < 1e-9 {
		return nil, kernel.Failed("extrude", "zero distance", args...)
	}
	if frame.Mirrors() {
		return nil, kernel.Failed("extrude", "frame is not right-handed", args...)
	}
	vol, err := b.k.Prism(sk, math.Abs(dist))
	if err != nil {
		return nil, fail("extrude", err, args...)
	}
	if dist < 0 {
		vol = b.k.Transform(vol, geom.Translate(geom.V(0, 0, dist)))
	}
	faces, edges := extrudeTopology(name, sk, dist)
	faces, edges = mapAll(faces, edges, frame)
	s := newSolid(name, b.k.Transform(vol, frame), faces, edges, nil)
	return b.done("extrude", s, zap.Float64("dist", dist)), nil
}

// Box is a box of the given size centred on frame's origin.
func (b *Builder) Box(name string, size geom.Vec, frame geom.Transform) (*Solid, error) {
	if size.X <= 0 || size.Y <= 0 || size.Z <= 0 {
		return nil, kernel.Failed("box", "non-positive size", kernel.A("x", size.X), kernel.A("y", size.Y), kernel.A("z", size.Z))
	}
	return b.Extrude(name, geom.Rect(size.X, size.Y), geom.Translate(geom.V(0, 0, -size.Z/2)).Then(frame), size.Z)
}

// Cylinder stands a cylinder of radius r on frame's XY plane.
func (b *Builder) Cylinder(name string, r, h float64, frame geom.Transform) (*Solid, error) {
	if r <= 0 {
		return nil, kernel.Failed("cylinder", "non-positive radius", kernel.A("radius", r), kernel.A("height", h))
	}
	return b.Extrude(name, geom.Circle(r), frame, h)
}

// ExtrudeFace pulls a planar face of s outward by dist into a new solid.
func (b *Builder) ExtrudeFace(name string, s *Solid, f Face, dist float64) (*Solid, error) {
	if err := s.owns("extrude face", f.Owner); err != nil {
		return nil, err
	}
	if !f.Planar() {
		return nil, kernel.Failed("extrude face", "face is not planar", kernel.A("dist", dist))
	}
	return b.Extrude(name, *f.Profile, f.Frame, dist)
}

// Until selects which way ExtrudeUntil searches for its target.
type Until int

const (
	// Next grows along the face normal.
	Next Until = iota
	// Previous grows against the face normal.
	Previous
)

// ExtrudeUntil pulls a planar face of s until it first touches target and
// returns the new extrusion.
func (b *Builder) ExtrudeUntil(name string, s *Solid, f Face, target *Solid, until Until) (*Solid, error) {
	if err := s.owns("extrude until", f.Owner); err != nil {
		return nil, err
	}
	if !f.Planar() {
		return nil, kernel.Failed("extrude until", "face is not planar")
	}
	dir := f.Normal
	if until == Previous {
		dir = geom.Neg(dir)
	}
	reach := math.Inf(1)
	for _, smp := range f.Samples {
		if d, ok := trace(target.vol, smp.P, dir); ok {
			reach = math.Min(reach, d)
		}
	}
	if math.IsInf(reach, 1) || reach < 1e-6 {
		return nil, kernel.Failed("extrude until", "target not reached", kernel.A("reach", reach))
	}
	if until == Previous {
		reach = -reach
	}
	out, err := b.Extrude(name, *f.Profile, f.Frame, reach)
	if err != nil {
		return nil, err
	}
	b.log.Debug("extrude until", zap.String("target", target.name), zap.Float64("reach", reach))
	return out, nil
}

// trace marches from p along dir until v is reached.
func trace(v kernel.Volume, p, dir geom.Vec) (float64, bool) {
	bb := v.Bounds()
	limit := bb.Distance(p) + bb.Size().Length() + 1
	for t := 0.0; t < limit; {
		d := v.Distance(p.Add(dir.MulScalar(t)))
		if d <= 1e-4 {
			return t, true
		}
		t += math.Max(d, 1e-3)
	}
	return 0, false
}

// Revolve turns a profile (X = radius, Y = axial) about frame's Z axis,
// starting from frame's X axis, through deg degrees.
func (b *Builder) Revolve(name string, sk geom.Sketch, frame geom.Transform, deg float64) (*Solid, error) {
	args := []kernel.Arg{kernel.A("degrees", deg)}
	if err := sk.Validate(); err != nil {
		return nil, kernel.Failed("revolve", err.Error(), args...)
	}
	if frame.Mirrors() {
		return nil, kernel.Failed("revolve", "frame is not right-handed", args...)
	}
	vol, err := b.k.Revolve(sk, deg)
	if err != nil {
		return nil, fail("revolve", err, args...)
	}
	faces, edges := revolveTopology(name, sk, deg)
	faces, edges = mapAll(faces, edges, frame)
	s := newSolid(name, b.k.Transform(vol, frame), faces, edges, nil)
	return b.done("revolve", s, zap.Float64("degrees", deg)), nil
}

// Loft joins planar convex sections with straight ruled segments. Every
// section must have the same number of vertices, listed in corresponding
// order.
func (b *Builder) Loft(name string, sections [][]geom.Vec) (*Solid, error) {
	args := []kernel.Arg{kernel.A("sections", float64(len(sections)))}
	if len(sections) < 2 {
		return nil, kernel.Failed("loft", "need at least two sections", args...)
	}
	n := len(sections[0])
	for i, s := range sections {
		switch {
		case len(s) != n || n < 3:
			return nil, kernel.Failed("loft", "sections differ in vertex count", append(args, kernel.A("section", float64(i)))...)
		case !planar(s, 1e-6):
			return nil, kernel.Failed("loft", "section is not planar", append(args, kernel.A("section", float64(i)))...)
		case !convexSection(s):
			return nil, kernel.Failed("loft", "section is not convex", append(args, kernel.A("section", float64(i)))...)
		}
	}
	hulls := make([]kernel.Volume, 0, len(sections)-1)
	for j := 0; j+1 < len(sections); j++ {
		pts := append(append([]geom.Vec{}, sections[j]...), sections[j+1]...)
		h, err := b.k.Hull(pts)
		if err != nil {
			return nil, fail("loft", err, append(args, kernel.A("segment", float64(j)))...)
		}
		hulls = append(hulls, h)
	}
	faces, edges := loftTopology(name, sections)
	s := newSolid(name, b.k.Union(hulls...), faces, edges, nil)
	return b.done("loft", s, zap.Int("sections", len(sections))), nil
}

func convexSection(pts []geom.Vec) bool {
	n := newell(pts)
	frame := geom.FrameZX(centroid(pts), n, pts[0].Sub(centroid(pts)))
	inv := frame.Inverse()
	loop := make([]geom.Vec2, len(pts))
	for i, p := range pts {
		q := inv.Point(p)
		loop[i] = geom.P(q.X, q.Y)
	}
	return geom.IsConvex(loop)
}

// Sweep places a straight-sided profile at each frame and lofts through
// the copies.
func (b *Builder) Sweep(name string, sk geom.Sketch, frames []geom.Transform) (*Solid, error) {
	for _, s := range sk.Segments {
		if s.Kind != geom.SegLine {
			return nil, kernel.Failed("sweep", "profile must be straight-sided")
		}
	}
	sections := make([][]geom.Vec, len(frames))
	for j, f := range frames {
		for _, v := range sk.Vertices() {
			sections[j] = append(sections[j], f.Point(geom.V(v.X, v.Y, 0)))
		}
	}
	return b.Loft(name, sections)
}

// ----------------------------------------------------------------------------
// Booleans
// ----------------------------------------------------------------------------

// Union joins solids. The result is named after and keeps the joints of
// the first; joints of later operands are added when their names are free.
func (b *Builder) Union(first *Solid, rest ...*Solid) *Solid {
	out := first
	for _, s := range rest {
		fa, ea := unionKeep(out.faces, out.edges, s.vol)
		fb, eb := unionKeep(s.faces, s.edges, out.vol)
		out = newSolid(out.name, b.k.Union(out.vol, s.vol), append(fa, fb...), append(ea, eb...), mergeJoints(out.joints, s.joints))
	}
	if len(rest) > 0 {
		b.done("union", out, zap.Int("operands", len(rest)+1))
	}
	return out
}

// Fuse joins two solids with a smooth blend that bridges gaps up to tol.
func (b *Builder) Fuse(a, c *Solid, tol float64) (*Solid, error) {
	if tol < 0 {
		return nil, kernel.Failed("fuse", "negative tolerance", kernel.A("tol", tol))
	}
	fa, ea := unionKeep(a.faces, a.edges, c.vol)
	fc, ec := unionKeep(c.faces, c.edges, a.vol)
	s := newSolid(a.name, b.k.SmoothUnion(a.vol, c.vol, tol), append(fa, fc...), append(ea, ec...), mergeJoints(a.joints, c.joints))
	return b.done("fuse", s, zap.Float64("tol", tol)), nil
}

// Difference removes tool from a. Tool faces inside a become cavity
// walls; tool faces lying on a's surface leave rim edges.
func (b *Builder) Difference(a, tool *Solid) *Solid {
	fa, ea := cutKeep(a.faces, a.edges, tool.vol)
	ft, et := toolKeep(tool.faces, tool.edges, a.vol)
	s := newSolid(a.name, b.k.Difference(a.vol, tool.vol), append(fa, ft...), append(ea, et...), a.joints)
	return b.done("difference", s, zap.String("tool", tool.name))
}

// Intersect keeps the material common to both solids.
func (b *Builder) Intersect(a, c *Solid) *Solid {
	fa, ea := commonKeep(a.faces, a.edges, c.vol)
	fc, ec := commonKeep(c.faces, c.edges, a.vol)
	s := newSolid(a.name, b.k.Intersection(a.vol, c.vol), append(fa, fc...), append(ea, ec...), mergeJoints(a.joints, c.joints))
	return b.done("intersect", s, zap.String("with", c.name))
}

// Keep selects which side of a split plane survives.
type Keep int

const (
	// Below keeps the material behind the plane normal.
	Below Keep = iota
	// Above keeps the material in front of the plane normal.
	Above
)

// Split cuts s with the plane through o with normal n and keeps one side.
func (b *Builder) Split(s *Solid, o, n geom.Vec, keep Keep) (*Solid, error) {
	n = geom.Unit(n)
	if n.Length() == 0 {
		return nil, kernel.Failed("split", "zero plane normal")
	}
	if keep == Above {
		n = geom.Neg(n)
	}
	half := b.k.HalfSpace(o, n)
	faces, edges := commonKeep(s.faces, s.edges, half)
	if f, ok := cutFace(s.name, s.Bounds(), o, n, s.vol); ok {
		faces = append(faces, f)
	}
	if len(faces) == 0 {
		return nil, kernel.Failed("split", "nothing left on the kept side")
	}
	out := newSolid(s.name, b.k.Intersection(s.vol, half), faces, edges, s.joints)
	return b.done("split", out), nil
}

// SplitCut removes a thin box of the given size centred on frame, leaving
// the two sides of the gap as separate solids.
func (b *Builder) SplitCut(s *Solid, frame geom.Transform, size geom.Vec) (*Solid, error) {
	gap, err := b.Box("split-gap", size, frame)
	if err != nil {
		return nil, err
	}
	return b.Difference(s, gap), nil
}

// ----------------------------------------------------------------------------
// Placement
// ----------------------------------------------------------------------------

// Transform moves s, its boundary and its joints through t.
func (b *Builder) Transform(s *Solid, t geom.Transform) *Solid {
	faces, edges := mapAll(s.faces, s.edges, t)
	joints := make(map[string]Joint, len(s.joints))
	for k, j := range s.joints {
		joints[k] = mapJoint(j, t)
	}
	out := newSolid(s.name, b.k.Transform(s.vol, t), faces, edges, joints)
	return b.done("transform", out)
}

// Mirror reflects s across the plane through o with normal n. Joint names
// gain suffix so the mirrored joints can live beside the originals.
func (b *Builder) Mirror(s *Solid, o, n geom.Vec, suffix string) *Solid {
	m := b.Transform(s, geom.Mirror(o, n))
	if suffix == "" {
		return m
	}
	joints := make(map[string]Joint, len(m.joints))
	for _, j := range m.joints {
		j.Name += suffix
		joints[j.Name] = j
	}
	return newSolid(m.name, m.vol, m.faces, m.edges, joints)
}

// Copy returns an independent copy of s for a second branch of work.
func (b *Builder) Copy(s *Solid) *Solid {
	return b.done("copy", s.Copy())
}
