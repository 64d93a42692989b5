// Package handlebar builds the handlebar clamp: an arm leaves each side
// wall of the stem and curves forward into a grip ring that closes around
// the bar. Each ring carries a screwable insert on both seams and is split
// between them.
//
// One side is built on +Y and mirrored. The grip frame of a side has its Y
// axis on the ring axis and its Z axis towards the arm; the split gap lies
// on its XY plane.
package handlebar

import (
	"math"

	"github.com/chazu/stemmount/pkg/feature"
	"github.com/chazu/stemmount/pkg/geom"
	"github.com/chazu/stemmount/pkg/kernel"
	"github.com/chazu/stemmount/pkg/params"
	"github.com/chazu/stemmount/pkg/parts/insert"
	"github.com/chazu/stemmount/pkg/parts/stem"
	"github.com/chazu/stemmount/pkg/selector"
	"github.com/chazu/stemmount/pkg/validate"
	"go.uber.org/zap"
)

// Tags carried by the handlebar's features.
const (
	TagArm  = "handlebar-arm"
	TagRing = "handlebar-ring"
	TagWeb  = "handlebar-web"
)

// JointSplit is the centre of the +Y split gap. The -Y side carries the
// same joint with MirrorSuffix appended.
const (
	JointSplit   = "split_joint"
	MirrorSuffix = "_mirror"
)

const jointSeat = "adapter"

// Result is a built handlebar.
type Result struct {
	Solid *feature.Solid
	Path  geom.Hermite   // centre line of the +Y arm
	Grip  geom.Transform // +Y grip frame
	// Column is the distance from the ring axis to each insert axis.
	Column float64
}

// Builder makes handlebars.
type Builder struct {
	fb  *feature.Builder
	ins *insert.Builder
	p   params.Set
	v   *validate.Validator
	log *zap.Logger
}

// New returns a handlebar Builder. A nil logger discards output.
func New(k kernel.Kernel, p params.Set, v *validate.Validator, log *zap.Logger) *Builder {
	if log == nil {
		log = zap.NewNop()
	}
	// the rims are rounded after the web is fused on
	ip := p
	ip.Insert.Round = false
	return &Builder{
		fb:  feature.NewBuilder(k, log),
		ins: insert.New(k, ip, v, log),
		p:   p,
		v:   v,
		log: log,
	}
}

// Build grows both arms from the stem's side faces.
func (b *Builder) Build(st *stem.Result) (*Result, error) {
	res, err := b.build(st)
	if err != nil {
		return nil, kernel.WithStage(err, "handlebar")
	}
	b.log.Info("handlebar built",
		zap.Float64("arm", res.Path.Length(b.p.Handlebar.Segments)),
		zap.Float64("rotation", b.p.Handlebar.Rotation),
		zap.Float64("column", res.Column))
	return res, nil
}

// station is a point on the arm's centre line with its section axes: t
// along the path, w across the arm and v through its thickness.
type station struct {
	p, t, w, v geom.Vec
}

func (s station) rect(width, height float64) []geom.Vec {
	w, v := s.w.MulScalar(width/2), s.v.MulScalar(height/2)
	return []geom.Vec{
		s.p.Sub(w).Sub(v),
		s.p.Add(w).Sub(v),
		s.p.Add(w).Add(v),
		s.p.Sub(w).Add(v),
	}
}

func (b *Builder) build(st *stem.Result) (*Result, error) {
	p := b.p
	hb := p.Handlebar
	h := p.HandlebarHeight()

	arm, path, first, last, err := b.arm(st.Sides[1], st.Frame.AxisZ())
	if err != nil {
		return nil, err
	}
	if arm, err = b.roundArm(arm, first); err != nil {
		return nil, err
	}

	axis := last.p.Sub(last.v.MulScalar(hb.Radius + h/2))
	r := geom.RotateAxis(axis, last.w, hb.Rotation)
	grip := geom.Frame(axis, r.Dir(last.t), last.w, r.Dir(last.v))

	ring, err := b.fb.Revolve(TagRing,
		geom.RoundedRect(h, hb.Width, hb.GripRounding).Transform2(0, geom.P(hb.Radius+h/2, 0)),
		geom.Frame(axis, grip.AxisX(), geom.Neg(grip.AxisZ()), grip.AxisY()), 360)
	if err != nil {
		return nil, err
	}
	adapter, column, err := b.adapter(ring, grip)
	if err != nil {
		return nil, err
	}

	// fuse the adapter, its twin on the far seam, then the arm. The
	// adapters are blended on so the crease at the seam carries material.
	side, err := b.fb.Fuse(ring, adapter, hb.FuseTolerance)
	if err != nil {
		return nil, err
	}
	if err := b.expect(side, 1); err != nil {
		return nil, err
	}
	if side, err = b.fb.Fuse(side, b.fb.Mirror(adapter, axis, grip.AxisX(), ""), hb.FuseTolerance); err != nil {
		return nil, err
	}
	if err := b.expect(side, 1); err != nil {
		return nil, err
	}
	if side, err = b.fb.Fuse(arm, side, 0); err != nil {
		return nil, err
	}
	if err := b.expect(side, 1); err != nil {
		return nil, err
	}

	gap := p.Global.ScrewFloatingCut
	split := geom.Frame(grip.Point(geom.V(0, 0, gap/2)), grip.AxisX(), grip.AxisY(), grip.AxisZ())
	if side, err = b.fb.WithJoint(side, JointSplit, split, geom.Identity()); err != nil {
		return nil, err
	}
	rc := p.InsertOuterRadius()
	size := geom.V(2*(hb.Radius+h+2*rc)+p.Global.Tol, hb.Width+2*rc+p.Global.Tol, gap)
	if side, err = b.fb.SplitCut(side, split, size); err != nil {
		return nil, err
	}
	if err := b.expect(side, 2); err != nil {
		return nil, err
	}

	both, err := b.fb.Fuse(side, b.fb.Mirror(side, geom.Origin, geom.YAxis, MirrorSuffix), 0)
	if err != nil {
		return nil, err
	}
	if err := b.valid(both); err != nil {
		return nil, err
	}
	return &Result{Solid: both, Path: path, Grip: grip, Column: column}, nil
}

// arm lofts rectangular sections along a Hermite curve from the centre of
// the stem's +Y side face to the top of the ring. The first section is the
// side face itself; the sections then narrow to the bar width, reached
// thin_offset before the end. up is the stem's deck normal.
func (b *Builder) arm(side feature.Face, up geom.Vec) (*feature.Solid, geom.Hermite, station, station, error) {
	p := b.p
	hb := p.Handlebar
	var path geom.Hermite
	if hb.Segments < 2 {
		return nil, path, station{}, station{}, kernel.Failed("arm", "too few segments", kernel.A("segments", float64(hb.Segments)))
	}
	corners := side.Corners()
	if len(corners) != 4 {
		return nil, path, station{}, station{}, kernel.Failed("arm", "stem side face is not a rectangle", kernel.A("corners", float64(len(corners))))
	}

	p0 := side.Center
	p1 := geom.V(hb.OffsetXCenter, hb.OffsetYStart+hb.Width/2, p0.Z)
	path = geom.HermiteTangents(p0, p1, side.Normal, geom.XAxis, hb.TangentStart, hb.TangentEnd)
	pts, arc := path.Sample(hb.Segments)
	thin := arc[len(arc)-1] - hb.ThinOffset
	if thin <= 0 {
		return nil, path, station{}, station{}, kernel.Failed("arm", "thin section lies behind the stem side",
			kernel.A("length", arc[len(arc)-1]), kernel.A("thin_offset", hb.ThinOffset))
	}

	at := func(i int) station {
		u := float64(i) / float64(hb.Segments)
		t := path.Tangent(u)
		w := geom.Unit(geom.Unit(geom.Lerp(up, geom.ZAxis, u)).Cross(t))
		return station{p: pts[i], t: t, w: w, v: t.Cross(w)}
	}
	first := at(0)
	var w0, h0 float64
	for _, q := range corners {
		d := q.Sub(p0)
		w0 = math.Max(w0, 2*math.Abs(d.Dot(first.w)))
		h0 = math.Max(h0, 2*math.Abs(d.Dot(first.v)))
	}

	sections := make([][]geom.Vec, len(pts))
	var last station
	for i := range pts {
		last = at(i)
		k := math.Min(1, arc[i]/thin)
		sections[i] = last.rect(w0+(hb.Width-w0)*k, h0+(p.HandlebarHeight()-h0)*k)
	}
	arm, err := b.fb.Loft(TagArm, sections)
	if err != nil {
		return nil, path, station{}, station{}, err
	}
	if err := b.valid(arm); err != nil {
		return nil, path, station{}, station{}, err
	}
	b.log.Debug("arm lofted", zap.Int("sections", len(sections)),
		zap.Float64("length", arc[len(arc)-1]), zap.Float64("start_width", w0))
	return arm, path, first, last, nil
}

// roundArm fillets the outer long edge of the arm top and bottom: the
// longitudinal edges are grouped by face and the shortest of each group,
// on the inside of the curve, is left sharp.
func (b *Builder) roundArm(arm *feature.Solid, first station) (*feature.Solid, error) {
	long := selector.Edges(arm).Tagged(TagArm, feature.TagLongitudinal)
	top := long.Filter(func(e feature.Edge) bool { return e.Start.Sub(first.p).Dot(first.v) > 0 })
	var outer selector.List[feature.Edge]
	for _, g := range []selector.List[feature.Edge]{top, long.Minus(top)} {
		keep, err := g.SortBySize().Tail(len(g) - 1)
		if err != nil {
			return nil, err
		}
		outer = outer.Union(keep)
	}
	return b.fb.Fillet(arm, outer, b.p.HandlebarHeight()/2.05)
}

// adapter builds the insert column beside the ring's outer seam and the
// web that joins it to the ring. The insert hangs head down with its shaft
// level with the split gap. It returns the adapter and the distance from
// the ring axis to the column axis.
func (b *Builder) adapter(ring *feature.Solid, grip geom.Transform) (*feature.Solid, float64, error) {
	p := b.p
	hb := p.Handlebar
	h, rc, ht := p.HandlebarHeight(), p.InsertOuterRadius(), p.InsertHeight()
	lift := p.Global.ScrewFloatingCut / 2
	// shaft middle, measured from the nut end
	zm := (p.Insert.NutHeight + ht - p.Insert.HeadHeight) / 2
	x := hb.Radius + h + rc - p.Global.Wall

	ins, err := b.ins.Build(geom.RotateY(180))
	if err != nil {
		return nil, 0, err
	}
	seat := geom.Frame(grip.Point(geom.V(x+rc, 0, lift+zm-ht/2)), grip.AxisX(), geom.Neg(grip.AxisY()), geom.Neg(grip.AxisZ()))
	seated, err := b.fb.WithJoint(ring, jointSeat, seat, geom.Identity())
	if err != nil {
		return nil, 0, err
	}
	column, err := b.fb.Connect(seated, jointSeat, ins.Solid, insert.JointEdgeCenter)
	if err != nil {
		return nil, 0, err
	}
	from, _ := ins.Solid.Joint(insert.JointEdgeCenter)
	to, _ := column.Joint(insert.JointEdgeCenter)
	cavity := b.fb.Transform(ins.Cavity, from.Frame.Inverse().Then(to.Frame))

	// the web starts on a plane through the middle of the ring wall, so
	// it overlaps the ring by half a wall, and runs out to the column's
	// axial plane
	at := func(x, y, z float64) geom.Vec { return grip.Point(geom.V(x, y, z)) }
	xm := hb.Radius + h/2
	lo, hi := lift+zm-ht, lift+zm
	web, err := b.fb.Loft(TagWeb, [][]geom.Vec{
		{at(xm, -hb.Width/2, -h/2), at(xm, -hb.Width/2, h/2), at(xm, hb.Width/2, h/2), at(xm, hb.Width/2, -h/2)},
		{at(x, -rc, lo), at(x, -rc, hi), at(x, rc, hi), at(x, rc, lo)},
	})
	if err != nil {
		return nil, 0, err
	}
	if err := b.valid(web); err != nil {
		return nil, 0, err
	}
	// the web keeps to the ring's width even where the column is wider
	band, err := b.fb.Box("web-band", geom.V(2*(x+rc), hb.Width, 2*(lift+ht+h)), grip)
	if err != nil {
		return nil, 0, err
	}
	web = b.fb.Intersect(web, band)
	s, err := b.fb.Fuse(web, column, hb.FuseTolerance)
	if err != nil {
		return nil, 0, err
	}
	if err := b.valid(s); err != nil {
		return nil, 0, err
	}
	s = b.fb.Difference(s, cavity)
	if s, err = b.ins.RelieveOverhang(s, hb.Rotation); err != nil {
		return nil, 0, err
	}
	if b.v != nil {
		if _, err := b.v.Overhang("handlebar", s, insert.TagHead); err != nil {
			return nil, 0, err
		}
	}
	rims, err := selector.Edges(s).Tagged(insert.TagOuter).
		Filter(selector.EdgeKinds(feature.Circle)).Filter(selector.Convex).Exactly("adapter rims", 2)
	if err != nil {
		return nil, 0, err
	}
	if s, err = b.fb.Fillet(s, rims, p.Global.Wall-p.Global.Tol); err != nil {
		return nil, 0, err
	}
	return s, x, nil
}

func (b *Builder) expect(s *feature.Solid, n int) error {
	if b.v == nil {
		return nil
	}
	return b.v.ExpectSolids("handlebar", s, n)
}

func (b *Builder) valid(s *feature.Solid) error {
	if b.v == nil {
		return nil
	}
	return b.v.ExpectValid("handlebar", s)
}
