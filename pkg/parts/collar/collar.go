// Package collar builds the headset collar: a D-shaped plate clamped under
// the steering-column screw. Its +X side is the face the stem grows from.
package collar

import (
	"github.com/chazu/stemmount/pkg/feature"
	"github.com/chazu/stemmount/pkg/geom"
	"github.com/chazu/stemmount/pkg/kernel"
	"github.com/chazu/stemmount/pkg/params"
	"github.com/chazu/stemmount/pkg/selector"
	"github.com/chazu/stemmount/pkg/validate"
	"go.uber.org/zap"
)

// Tags carried by the collar's features.
const (
	TagPlate      = "collar"
	TagScrewHole  = "screw-hole"
	TagScrewHead  = "screw-head"
	TagRelief     = "rim-relief"
	tagReliefCore = "rim-relief-core"
)

// Result is a built collar.
type Result struct {
	Solid *feature.Solid
	// Attach is the +X planar face the stem is lofted from.
	Attach feature.Face

	ScrewRadius float64
	Radius      float64
	MaxHeight   float64 // height of the headset cap the collar sits on
	Height      float64
}

// Builder makes collars.
type Builder struct {
	fb  *feature.Builder
	p   params.Set
	v   *validate.Validator
	log *zap.Logger
}

// New returns a collar Builder. A nil logger discards output.
func New(k kernel.Kernel, p params.Set, v *validate.Validator, log *zap.Logger) *Builder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Builder{fb: feature.NewBuilder(k, log), p: p, v: v, log: log}
}

// Build makes the collar with its screw axis on Z and its underside on the
// XY plane.
func (b *Builder) Build() (*Result, error) {
	s, err := b.build()
	if err != nil {
		return nil, kernel.WithStage(err, "collar")
	}
	attach, err := selector.Faces(s).Filter(selector.Planar).Filter(selector.NormalAlong(geom.XAxis, 1)).SortBy(geom.XAxis).Last()
	if err != nil {
		return nil, kernel.WithStage(err, "collar")
	}
	if err := b.expectOne(s); err != nil {
		return nil, err
	}
	h := b.p.Headset
	res := &Result{
		Solid:       s,
		Attach:      attach,
		ScrewRadius: h.ScrewRadius,
		Radius:      h.CircleRadius,
		MaxHeight:   h.CircleMaxHeight,
		Height:      b.p.CollarHeight(),
	}
	b.log.Info("collar built", zap.Float64("radius", res.Radius), zap.Float64("height", res.Height))
	return res, nil
}

func (b *Builder) build() (*feature.Solid, error) {
	h, g := b.p.Headset, b.p.Global
	hc := b.p.CollarHeight()

	plate, err := b.fb.Extrude(TagPlate, geom.DProfile(h.CircleRadius), geom.Identity(), hc)
	if err != nil {
		return nil, err
	}
	hole, err := b.fb.Cylinder(TagScrewHole, h.ScrewRadius, hc, geom.Identity())
	if err != nil {
		return nil, err
	}
	head, err := b.fb.Cylinder(TagScrewHead, h.ScrewFlatRadius, hc-g.Wall, geom.Translate(geom.V(0, 0, g.Wall)))
	if err != nil {
		return nil, err
	}
	// the groove under the rim takes the headset cap's outer wall
	ring, err := b.fb.Cylinder(TagRelief, h.CircleFlatRadius+g.Wall, h.CircleMaxHeight, geom.Identity())
	if err != nil {
		return nil, err
	}
	core, err := b.fb.Cylinder(tagReliefCore, h.CircleFlatRadius, h.CircleMaxHeight, geom.Identity())
	if err != nil {
		return nil, err
	}
	s := b.fb.Difference(plate, hole)
	s = b.fb.Difference(s, head)
	s = b.fb.Difference(s, b.fb.Difference(ring, core))
	if err := b.expectOne(s); err != nil {
		return nil, err
	}

	// chamfers: counterbore mouth, then the outer groove rim
	mouth, err := selector.Edges(s).Tagged(TagScrewHead, feature.TagEnd).Filter(selector.EdgeKinds(feature.Circle)).Exactly("counterbore mouth", 1)
	if err != nil {
		return nil, err
	}
	if s, err = b.fb.Chamfer(s, mouth, h.CircleMaxHeight-g.Eps, 0); err != nil {
		return nil, err
	}
	groove, err := selector.Edges(s).Tagged(TagRelief, feature.TagStart).Filter(selector.EdgeKinds(feature.Circle)).Filter(selector.Convex).Exactly("groove rim", 1)
	if err != nil {
		return nil, err
	}
	if s, err = b.fb.Chamfer(s, groove, g.Wall/2, 0); err != nil {
		return nil, err
	}

	// fillets: the top outline except the attachment side, then the
	// bottom arc
	top := selector.Edges(s).Tagged(TagPlate, feature.TagEnd)
	byX := top.GroupBy(geom.XAxis, 0.1)
	front, err := byX.Last()
	if err != nil {
		return nil, err
	}
	if s, err = b.fb.Fillet(s, top.Minus(front), h.CircleMaxHeight-g.Wall); err != nil {
		return nil, err
	}
	arc, err := selector.Edges(s).Tagged(TagPlate, feature.TagStart).Filter(selector.EdgeKinds(feature.Arc)).Exactly("bottom arc", 1)
	if err != nil {
		return nil, err
	}
	return b.fb.Fillet(s, arc, g.Wall)
}

func (b *Builder) expectOne(s *feature.Solid) error {
	if b.v == nil {
		return nil
	}
	return b.v.ExpectSolids("collar", s, 1)
}
