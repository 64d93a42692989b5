// Package insert builds the screwable insert: a column that holds a screw
// head at one end and a hex nut at the other, so two printed halves can be
// clamped together through it.
package insert

import (
	"math"

	"github.com/chazu/stemmount/pkg/feature"
	"github.com/chazu/stemmount/pkg/geom"
	"github.com/chazu/stemmount/pkg/kernel"
	"github.com/chazu/stemmount/pkg/params"
	"github.com/chazu/stemmount/pkg/selector"
	"github.com/chazu/stemmount/pkg/validate"
	"go.uber.org/zap"
)

// Tags carried by the insert's features.
const (
	TagOuter = "insert"
	TagHead  = "insert-head"
	TagShaft = "insert-shaft"
	TagNut   = "insert-nut"
)

// JointEdgeCenter sits halfway along the column seam.
const JointEdgeCenter = "edge_center"

// Result is a built insert.
type Result struct {
	Solid  *feature.Solid // column with its cavities cut, carries edge_center
	Cavity *feature.Solid // head, shaft and nut tools in the same pose
	Radius float64
	Height float64
}

// Bounds returns the bounding box of the column.
func (r *Result) Bounds() geom.Box { return r.Solid.Bounds() }

// Copy returns an independent insert for another placement.
func (r *Result) Copy() *Result {
	return &Result{Solid: r.Solid.Copy(), Cavity: r.Cavity.Copy(), Radius: r.Radius, Height: r.Height}
}

// Builder makes inserts sized by the Parameter Set.
type Builder struct {
	fb  *feature.Builder
	p   params.Set
	v   *validate.Validator
	log *zap.Logger
}

// New returns an insert Builder. A nil logger discards output.
func New(k kernel.Kernel, p params.Set, v *validate.Validator, log *zap.Logger) *Builder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Builder{fb: feature.NewBuilder(k, log), p: p, v: v, log: log}
}

// Build makes the insert standing on the XY plane with its nut end at
// z=0, turns it by rotation, and then anchors edge_center on the longest
// vertical edge.
func (b *Builder) Build(rotation geom.Transform) (*Result, error) {
	p := b.p
	rc, ht := p.InsertOuterRadius(), p.InsertHeight()
	if p.Insert.NutHeight >= ht || p.Insert.HeadHeight >= ht {
		return nil, kernel.Failed("insert", "pockets deeper than the column",
			kernel.A("height", ht), kernel.A("nut", p.Insert.NutHeight), kernel.A("head", p.Insert.HeadHeight))
	}
	if rotation == (geom.Transform{}) {
		rotation = geom.Identity()
	}

	outer, err := b.fb.Cylinder(TagOuter, rc, ht, geom.Identity())
	if err != nil {
		return nil, err
	}
	floor := ht - p.Insert.HeadHeight
	head, err := b.fb.Cylinder(TagHead, p.InsertHeadRadius(), p.Insert.HeadHeight, geom.Translate(geom.V(0, 0, floor)))
	if err != nil {
		return nil, err
	}
	shaft, err := b.fb.Cylinder(TagShaft, p.InsertShaftRadius(), floor, geom.Identity())
	if err != nil {
		return nil, err
	}
	nut, err := b.fb.Extrude(TagNut, geom.Hexagon(p.InsertNutApothem()), geom.Identity(), p.Insert.NutHeight)
	if err != nil {
		return nil, err
	}

	s := b.fb.Difference(outer, head)
	s = b.fb.Difference(s, shaft)
	s = b.fb.Difference(s, nut)
	cavity := b.fb.Union(head, shaft, nut)

	if p.Insert.Round {
		rims := selector.Edges(s).Tagged(TagOuter).Filter(selector.EdgeKinds(feature.Circle)).Filter(selector.Convex)
		if s, err = b.fb.Fillet(s, rims, p.Global.Wall-p.Global.Tol); err != nil {
			return nil, kernel.WithStage(err, "insert")
		}
	}

	s = b.fb.Transform(s, rotation)
	cavity = b.fb.Transform(cavity, rotation)

	seam, err := selector.Edges(s).Filter(selector.Parallel(geom.ZAxis, 1)).SortBySize().Last()
	if err != nil {
		return nil, kernel.WithStage(err, "insert")
	}
	mid := seam.Midpoint()
	s, err = b.fb.WithJoint(s, JointEdgeCenter,
		geom.Frame(mid, rotation.AxisX(), rotation.AxisY(), rotation.AxisZ()), geom.Identity())
	if err != nil {
		return nil, err
	}
	if b.v != nil {
		if err := b.v.ExpectSolids("insert", s, 1); err != nil {
			return nil, err
		}
	}
	b.log.Info("insert built",
		zap.Float64("radius", rc), zap.Float64("height", ht), zap.Bool("round", p.Insert.Round))
	return &Result{Solid: s, Cavity: cavity, Radius: rc, Height: ht}, nil
}

// RelieveOverhang bevels the ceiling of every head counterbore in s, adding
// material in the corner between ceiling and bore wall. tilt is how far
// the insert axis leans from vertical in the printed part, in degrees; the
// bevel is made steep enough that, tilted, it leans at most
// stem.cut_angle past vertical.
func (b *Builder) RelieveOverhang(s *feature.Solid, tilt float64) (*feature.Solid, error) {
	p := b.p
	cone := p.Stem.CutAngle - math.Abs(tilt)
	if cone <= 0 {
		return nil, kernel.WithStage(kernel.Overhang("relieve", "tilt leaves no room for a printable bevel",
			kernel.A("cut_angle", p.Stem.CutAngle), kernel.A("tilt", tilt)), "insert")
	}
	d1 := p.InsertHeadRadius() - p.InsertShaftRadius()
	d2 := d1 / math.Tan(geom.Deg2Rad(cone))
	if d2 >= p.Insert.HeadHeight {
		return nil, kernel.WithStage(kernel.Failed("relieve", "bevel is deeper than the head pocket",
			kernel.A("depth", d2), kernel.A("head_height", p.Insert.HeadHeight)), "insert")
	}
	ceilings, err := selector.Edges(s).Tagged(TagHead, feature.TagStart).
		Filter(selector.EdgeKinds(feature.Circle)).Filter(selector.Concave).NonEmpty("head pocket ceiling")
	if err != nil {
		return nil, kernel.WithStage(err, "insert")
	}
	out, err := b.fb.Chamfer(s, ceilings, d1, d2)
	if err != nil {
		return nil, kernel.WithStage(err, "insert")
	}
	b.log.Debug("relieve overhang",
		zap.Int("pockets", len(ceilings)), zap.Float64("tilt", tilt), zap.Float64("cone", cone), zap.Float64("depth", d2))
	return out, nil
}
