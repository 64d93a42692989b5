// Package stem builds the stem: a bent box beam that grows from the
// collar's attachment face, carries two screwable inserts, and is split
// through them into an upper and a lower half.
//
// The straight segment is described in the deck frame: X runs along the
// stem, Y across it, and Z is the deck normal. Its origin is the centre of
// the deck's proximal section.
package stem

import (
	"math"

	"github.com/chazu/stemmount/pkg/feature"
	"github.com/chazu/stemmount/pkg/geom"
	"github.com/chazu/stemmount/pkg/kernel"
	"github.com/chazu/stemmount/pkg/params"
	"github.com/chazu/stemmount/pkg/parts/collar"
	"github.com/chazu/stemmount/pkg/parts/insert"
	"github.com/chazu/stemmount/pkg/selector"
	"github.com/chazu/stemmount/pkg/validate"
	"go.uber.org/zap"
)

// Tags carried by the stem's features.
const (
	TagTransition = "stem-transition"
	TagBend       = "stem-bend"
	TagDeck       = "stem-deck"
	TagBox        = "stem-box"
	TagHollow     = "stem-hollow"
	TagColumn     = "stem-column"
	TagBore       = "stem-bore"
	TagNutWindow  = "stem-nut-window"
)

// Joints the stem exposes. front and back hold the inserts; center is
// where the stem is split.
const (
	JointFront  = "front"
	JointBack   = "back"
	JointCenter = "center"
)

// Result is a built stem.
type Result struct {
	Solid  *feature.Solid
	Frame  geom.Transform  // deck frame
	Sides  [2]feature.Face // deck side faces, -Y then +Y
	Length float64         // length of the straight segment
	Rise   float64         // height gained or lost along it
}

// Builder makes stems.
type Builder struct {
	fb  *feature.Builder
	ins *insert.Builder
	p   params.Set
	v   *validate.Validator
	log *zap.Logger
}

// New returns a stem Builder. A nil logger discards output.
func New(k kernel.Kernel, p params.Set, v *validate.Validator, log *zap.Logger) *Builder {
	if log == nil {
		log = zap.NewNop()
	}
	// the columns continue into their extensions, so the insert rims
	// stay sharp
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

// Build grows the stem from the collar's attachment face.
func (b *Builder) Build(c *collar.Result) (*Result, error) {
	res, err := b.build(c)
	if err != nil {
		return nil, kernel.WithStage(err, "stem")
	}
	b.log.Info("stem built",
		zap.String("variant", b.p.Assembly.Variant),
		zap.Float64("angle", b.p.Stem.Angle),
		zap.Float64("length", res.Length),
		zap.Float64("rise", res.Rise))
	return res, nil
}

// bend describes the kink between the transition and the straight
// segment.
type bend struct {
	pivot, axis geom.Vec // rotation axis through the deck's lower (nose down) or upper edge
	side        float64  // +1 when the deck lies above the pivot
	degrees     float64
	start       geom.Vec // centre of the proximal deck section
	frame       geom.Transform
}

func (b *Builder) bend(top float64) bend {
	p := b.p
	t, eps := p.Global.Wall, p.Global.Eps
	a := geom.Deg2Rad(p.Stem.Angle)
	dir := geom.V(math.Cos(a), 0, math.Sin(a))
	up := geom.V(-math.Sin(a), 0, math.Cos(a))

	bd := bend{
		pivot:   geom.V(p.Stem.RangeStart, 0, top-t-eps),
		axis:    geom.YAxis,
		side:    1,
		degrees: math.Abs(p.Stem.Angle),
		start:   geom.V(p.Stem.RangeStart, 0, top-t/2),
	}
	if p.Stem.Angle > 0 {
		bd.pivot = geom.V(p.Stem.RangeStart, 0, top+eps)
		bd.axis = geom.Neg(geom.YAxis)
		bd.side = -1
	}
	origin := bd.pivot.Add(up.MulScalar(bd.side * (eps + t/2)))
	bd.frame = geom.Frame(origin, dir, geom.YAxis, up)
	return bd
}

func (b *Builder) build(c *collar.Result) (*Result, error) {
	p := b.p
	t := p.Global.Wall
	ld := p.StemLength()

	root, top, err := b.transition(c)
	if err != nil {
		return nil, err
	}
	bd := b.bend(top)
	frame := bd.frame
	dir, up := frame.AxisX(), frame.AxisZ()

	var deck *feature.Solid
	switch p.Assembly.Variant {
	case params.VariantSweep:
		deck, err = b.sweptDeck(bd, ld)
	default:
		deck, err = b.revolvedDeck(root, bd, ld)
	}
	if err != nil {
		return nil, err
	}
	end, err := selector.Faces(deck).Tagged(TagDeck, feature.TagEnd).First()
	if err != nil {
		return nil, err
	}
	rise := math.Abs(end.Center.Sub(frame.Origin()).Dot(geom.ZAxis))

	body := b.fb.Union(root, deck)
	if body, err = b.fb.Split(body, end.Center, dir, feature.Below); err != nil {
		return nil, err
	}
	var sides [2]feature.Face
	for i, sgn := range []float64{-1, 1} {
		f, err := selector.Faces(body).Tagged(TagDeck, feature.TagSide).Filter(selector.Planar).
			Filter(selector.NormalAlong(geom.YAxis.MulScalar(sgn), 1)).SortBySize().Last()
		if err != nil {
			return nil, err
		}
		sides[i] = f
	}

	// walls hang from the top edges of the side faces
	half, deckTop := math.Inf(-1), math.Inf(-1)
	inv := frame.Inverse()
	for _, f := range sides {
		for _, q := range f.Corners() {
			l := inv.Point(q)
			half = math.Max(half, math.Abs(l.Y))
			deckTop = math.Max(deckTop, l.Z)
		}
	}
	hs := p.StemDepth()
	section := geom.Frame(frame.Origin(), geom.YAxis, up, dir)
	outer, err := b.fb.Extrude(TagBox, geom.RectMinMax(geom.P(-half, deckTop-hs), geom.P(half, deckTop)), section, ld)
	if err != nil {
		return nil, err
	}
	hollow, err := b.fb.Extrude(TagHollow, geom.RectMinMax(geom.P(-half+t, deckTop-hs+t), geom.P(half-t, deckTop-t)), section, ld)
	if err != nil {
		return nil, err
	}
	walls := b.fb.Union(body, b.fb.Difference(outer, hollow))
	if err := b.expect(walls, 1); err != nil {
		return nil, err
	}

	body, err = b.mountInserts(walls, frame, deckTop-t, ld)
	if err != nil {
		return nil, err
	}
	if body, err = b.ins.RelieveOverhang(body, p.Stem.Angle); err != nil {
		return nil, err
	}
	if b.v != nil {
		if _, err := b.v.Overhang("stem", body, insert.TagHead); err != nil {
			return nil, err
		}
	}

	corners, err := selector.Edges(body).Tagged(TagHollow, feature.TagLateral).Filter(selector.Concave).Exactly("hollow corners", 4)
	if err != nil {
		return nil, err
	}
	if body, err = b.fb.Fillet(body, corners, p.Stem.Fillet); err != nil {
		return nil, err
	}
	keel, err := selector.Edges(body).Tagged(TagBox, feature.TagLateral).Filter(selector.Convex).GroupBy(up, 0.1).First()
	if err != nil {
		return nil, err
	}
	if keel, err = keel.Exactly("bottom edges", 2); err != nil {
		return nil, err
	}
	if body, err = b.fb.Fillet(body, keel, p.Stem.Fillet/2); err != nil {
		return nil, err
	}
	rim, err := selector.Edges(body).Tagged(TagBox, feature.TagEnd).Filter(selector.Convex).Exactly("distal rim", 4)
	if err != nil {
		return nil, err
	}
	if body, err = b.fb.Fillet(body, rim, t/2.01); err != nil {
		return nil, err
	}

	// the gap runs through the shaft between nut pocket and head pocket
	shaft := p.InsertHeight() - p.Insert.HeadHeight - p.Insert.NutHeight
	zc := deckTop - t - p.Insert.NutHeight - shaft/2
	center := geom.Frame(frame.Point(geom.V(ld/2, 0, zc)), dir, geom.YAxis, up)
	if body, err = b.fb.WithJoint(body, JointCenter, center, geom.Identity()); err != nil {
		return nil, err
	}
	gap := geom.V(ld+2*t+p.Global.Tol, 2*half+p.Global.Tol, p.Global.ScrewFloatingCut)
	if body, err = b.fb.SplitCut(body, center, gap); err != nil {
		return nil, err
	}
	if err := b.expect(body, 2); err != nil {
		return nil, err
	}
	return &Result{Solid: body, Frame: frame, Sides: sides, Length: ld, Rise: rise}, nil
}

// transition lofts from the collar's attachment face to the proximal deck
// section. It returns the loft and the height of the deck top.
func (b *Builder) transition(c *collar.Result) (*feature.Solid, float64, error) {
	p := b.p
	corners := c.Attach.Corners()
	if len(corners) != 4 {
		return nil, 0, kernel.Failed("transition", "attachment face is not a rectangle", kernel.A("corners", float64(len(corners))))
	}
	box := geom.BoxOf(corners...)
	x, top := box.Max.X, box.Max.Z
	if p.Stem.RangeStart <= x+p.Stem.SmoothingOffset {
		return nil, 0, kernel.Failed("transition", "stem starts inside the collar",
			kernel.A("range_start", p.Stem.RangeStart), kernel.A("face", x))
	}
	w, t := p.StemDeckWidth()/2, p.Global.Wall
	rect := func(x, y0, y1, z0, z1 float64) []geom.Vec {
		return []geom.Vec{geom.V(x, y0, z0), geom.V(x, y1, z0), geom.V(x, y1, z1), geom.V(x, y0, z1)}
	}
	loft, err := b.fb.Loft(TagTransition, [][]geom.Vec{
		rect(x, box.Min.Y, box.Max.Y, box.Min.Z, box.Max.Z),
		rect(x+p.Stem.SmoothingOffset, box.Min.Y, box.Max.Y, box.Min.Z, box.Max.Z),
		rect(p.Stem.RangeStart, -w, w, top-t, top),
	})
	if err != nil {
		return nil, 0, err
	}
	if b.v != nil {
		if err := b.v.ExpectValid("stem", loft); err != nil {
			return nil, 0, err
		}
	}
	return loft, top, nil
}

// revolvedDeck turns the proximal deck section about the bend axis and
// extrudes the turned face along the stem.
func (b *Builder) revolvedDeck(root *feature.Solid, bd bend, ld float64) (*feature.Solid, error) {
	p := b.p
	t, eps := p.Global.Wall, p.Global.Eps
	if bd.degrees < 1e-9 {
		face, err := selector.Faces(root).Tagged(TagTransition, feature.TagEnd).First()
		if err != nil {
			return nil, err
		}
		return b.fb.ExtrudeFace(TagDeck, root, face, ld)
	}
	w := p.StemDeckWidth() / 2
	profile := geom.RectMinMax(geom.P(eps, -w), geom.P(eps+t, w))
	frame := geom.Frame(bd.pivot, geom.ZAxis.MulScalar(bd.side), geom.XAxis, bd.axis)
	turned, err := b.fb.Revolve(TagBend, profile, frame, bd.degrees)
	if err != nil {
		return nil, err
	}
	face, err := selector.Faces(turned).Tagged(TagBend, feature.TagEnd).Filter(selector.Planar).First()
	if err != nil {
		return nil, err
	}
	straight, err := b.fb.ExtrudeFace(TagDeck, turned, face, ld)
	if err != nil {
		return nil, err
	}
	return b.fb.Union(turned, straight), nil
}

// sweptDeck lofts the deck section along the bend arc and then the
// straight segment.
func (b *Builder) sweptDeck(bd bend, ld float64) (*feature.Solid, error) {
	p := b.p
	w, t := p.StemDeckWidth()/2, p.Global.Wall
	steps := int(math.Ceil(bd.degrees / 3))
	var frames []geom.Transform
	for i := 0; i <= steps; i++ {
		r := geom.Identity()
		if steps > 0 {
			r = geom.RotateAxis(bd.pivot, bd.axis, bd.degrees*float64(i)/float64(steps))
		}
		frames = append(frames, geom.Frame(r.Point(bd.start), r.Dir(geom.YAxis), r.Dir(geom.ZAxis), r.Dir(geom.XAxis)))
	}
	last := frames[len(frames)-1]
	frames = append(frames, last.Then(geom.Translate(last.AxisZ().MulScalar(ld))))
	return b.fb.Sweep(TagDeck, geom.RectMinMax(geom.P(-w, -t/2), geom.P(w, t/2)), frames)
}

// mountInserts hangs an insert under the deck at each end of the straight
// segment, extends its column down to the bottom wall, and opens the head
// bore and the nut window.
func (b *Builder) mountInserts(walls *feature.Solid, frame geom.Transform, deckBottom, ld float64) (*feature.Solid, error) {
	p := b.p
	t := p.Global.Wall
	dir, up := frame.AxisX(), frame.AxisZ()

	ins, err := b.ins.Build(geom.RotateY(180))
	if err != nil {
		return nil, err
	}
	z := deckBottom - ins.Height/2
	at := func(x float64) geom.Transform {
		return geom.Frame(frame.Point(geom.V(x, 0, z)), dir, geom.Neg(geom.YAxis), geom.Neg(up))
	}
	body, err := b.fb.WithJoint(walls, JointFront, at(ld-t), geom.Identity())
	if err != nil {
		return nil, err
	}
	if body, err = b.fb.WithJoint(body, JointBack, at(t), geom.RotateZ(180)); err != nil {
		return nil, err
	}

	for _, name := range []string{JointFront, JointBack} {
		placed, err := b.fb.Connect(body, name, b.fb.Copy(ins.Solid), insert.JointEdgeCenter)
		if err != nil {
			return nil, err
		}
		head, err := selector.Faces(placed).Tagged(insert.TagOuter, feature.TagEnd).Filter(selector.Planar).First()
		if err != nil {
			return nil, err
		}
		column, err := b.fb.ExtrudeUntil(TagColumn, placed, head, walls, feature.Next)
		if err != nil {
			return nil, err
		}
		bore, err := b.fb.Cylinder(TagBore, p.InsertHeadRadius(), p.StemDepth(), geom.FrameZX(head.Center, head.Normal, dir))
		if err != nil {
			return nil, err
		}
		nut := head.Center.Sub(head.Normal.MulScalar(ins.Height))
		window, err := b.fb.Extrude(TagNutWindow, geom.Hexagon(p.InsertNutApothem()), geom.Frame(nut, dir, geom.YAxis, up), t+1)
		if err != nil {
			return nil, err
		}
		body = b.fb.Union(body, placed, column)
		body = b.fb.Difference(body, bore)
		body = b.fb.Difference(body, window)
		b.log.Debug("insert mounted", zap.String("joint", name),
			zap.Float64("x", nut.X), zap.Float64("y", nut.Y), zap.Float64("z", nut.Z))
	}
	return body, nil
}

func (b *Builder) expect(s *feature.Solid, n int) error {
	if b.v == nil {
		return nil
	}
	return b.v.ExpectSolids("stem", s, n)
}
