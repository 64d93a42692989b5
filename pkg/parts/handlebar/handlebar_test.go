package handlebar

import (
	"math"
	"testing"

	"github.com/chazu/stemmount/pkg/feature"
	"github.com/chazu/stemmount/pkg/geom"
	"github.com/chazu/stemmount/pkg/kernel"
	"github.com/chazu/stemmount/pkg/kernel/sdfx"
	"github.com/chazu/stemmount/pkg/params"
	"github.com/chazu/stemmount/pkg/parts/insert"
	"github.com/chazu/stemmount/pkg/parts/stem"
	"github.com/chazu/stemmount/pkg/selector"
	"github.com/chazu/stemmount/pkg/validate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStem places a bare deck frame and its +Y side face the way the stem
// builder reports them.
func fakeStem(p params.Set) *stem.Result {
	a := geom.Deg2Rad(p.Stem.Angle)
	dir := geom.V(math.Cos(a), 0, math.Sin(a))
	up := geom.V(-math.Sin(a), 0, math.Cos(a))
	frame := geom.Frame(geom.V(p.Stem.RangeStart, 0, 3.6), dir, geom.YAxis, up)
	ld, w := p.StemLength(), p.StemDeckWidth()/2

	side := func(sgn float64) feature.Face {
		n := geom.YAxis.MulScalar(sgn)
		c := frame.Point(geom.V(ld/2, sgn*w, 0))
		profile := geom.Rect(ld, p.Global.Wall)
		return feature.Face{
			Kind:    feature.Plane,
			Center:  c,
			Normal:  n,
			Frame:   geom.Frame(c, dir, n.Cross(dir), n),
			Profile: &profile,
			Tags:    []string{stem.TagDeck, feature.TagSide},
		}
	}
	return &stem.Result{Frame: frame, Sides: [2]feature.Face{side(-1), side(1)}, Length: ld}
}

func build(t *testing.T, p params.Set, v *validate.Validator) (*Result, error) {
	t.Helper()
	return New(sdfx.New(), p, v, nil).Build(fakeStem(p))
}

func mustBuild(t *testing.T) (*Result, params.Set) {
	t.Helper()
	p := params.Default()
	res, err := build(t, p, nil)
	require.NoError(t, err)
	return res, p
}

func TestArmPath(t *testing.T) {
	res, p := mustBuild(t)
	side := fakeStem(p).Sides[1]

	assert.True(t, geom.NearVec(side.Center, res.Path.Point(0), 1e-9))
	end := geom.V(p.Handlebar.OffsetXCenter, p.Handlebar.OffsetYStart+p.Handlebar.Width/2, side.Center.Z)
	assert.True(t, geom.NearVec(end, res.Path.Point(1), 1e-9))
	assert.True(t, geom.NearVec(geom.YAxis, res.Path.Tangent(0), 1e-9), "leaves the side wall square")
	assert.True(t, geom.NearVec(geom.XAxis, res.Path.Tangent(1), 1e-9), "meets the ring along X")
}

func TestGripFrame(t *testing.T) {
	res, p := mustBuild(t)
	hb := p.Handlebar
	top := res.Path.Point(1)

	assert.True(t, geom.NearVec(geom.YAxis, res.Grip.AxisY(), 1e-9))
	below := top.Sub(geom.ZAxis.MulScalar(hb.Radius + p.HandlebarHeight()/2))
	assert.True(t, geom.NearVec(below, res.Grip.Origin(), 1e-9))
	tilt := geom.Rad2Deg(math.Acos(res.Grip.AxisZ().Dot(geom.ZAxis)))
	assert.InDelta(t, hb.Rotation, tilt, 1e-9)
}

func TestSplitJoints(t *testing.T) {
	res, p := mustBuild(t)

	j, ok := res.Solid.Joint(JointSplit)
	require.True(t, ok)
	want := res.Grip.Point(geom.V(0, 0, p.Global.ScrewFloatingCut/2))
	assert.True(t, geom.NearVec(want, j.Frame.Origin(), 1e-9))

	m, ok := res.Solid.Joint(JointSplit + MirrorSuffix)
	require.True(t, ok)
	assert.True(t, geom.NearVec(geom.V(want.X, -want.Y, want.Z), m.Frame.Origin(), 1e-9))
	assert.False(t, m.Frame.Mirrors())
}

func TestRingHoldsBar(t *testing.T) {
	res, p := mustBuild(t)
	hb := p.Handlebar
	g := res.Grip
	vol := res.Solid.Volume()
	mid := hb.Radius + p.HandlebarHeight()/2

	assert.Greater(t, vol.Distance(g.Origin()), 0.0, "bar passes through")
	assert.Less(t, vol.Distance(g.Point(geom.V(0, 0, -mid))), 0.0, "lower half")
	assert.Less(t, vol.Distance(g.Point(geom.V(0, 0, mid))), 0.0, "upper half")
	assert.Greater(t, vol.Distance(g.Point(geom.V(0, hb.Width/2+0.5, -mid))), 0.0, "ring width")
}

func TestGapThroughBothSeams(t *testing.T) {
	res, p := mustBuild(t)
	g := res.Grip
	vol := res.Solid.Volume()
	mid := p.Handlebar.Radius + p.HandlebarHeight()/2
	gap := p.Global.ScrewFloatingCut

	for _, x := range []float64{mid, -mid} {
		assert.Greater(t, vol.Distance(g.Point(geom.V(x, 0, gap/2))), 0.0, "gap at x=%g", x)
		assert.Less(t, vol.Distance(g.Point(geom.V(x, 0, 1.5*gap))), 0.0, "above the gap at x=%g", x)
		assert.Less(t, vol.Distance(g.Point(geom.V(x, 0, -gap/2))), 0.0, "below the gap at x=%g", x)
	}
}

func TestAdapterBores(t *testing.T) {
	res, p := mustBuild(t)
	g := res.Grip
	vol := res.Solid.Volume()
	rc := p.InsertOuterRadius()
	gap := p.Global.ScrewFloatingCut
	zm := (p.Insert.NutHeight + p.InsertHeight() - p.Insert.HeadHeight) / 2
	head := gap/2 + zm - p.InsertHeight() + 1

	for _, x := range []float64{res.Column, -res.Column} {
		assert.Greater(t, vol.Distance(g.Point(geom.V(x, 0, gap+0.5))), 0.0, "shaft at x=%g", x)
		assert.Greater(t, vol.Distance(g.Point(geom.V(x*(1+3.5/res.Column), 0, head))), 0.0, "head pocket at x=%g", x)
		out := x + math.Copysign(rc-0.5, x)
		assert.Less(t, vol.Distance(g.Point(geom.V(out, 0, gap+0.5))), 0.0, "column wall at x=%g", x)
	}
}

func TestWebBridgesRingAndColumn(t *testing.T) {
	res, p := mustBuild(t)
	hb := p.Handlebar
	g := res.Grip
	vol := res.Solid.Volume()
	x := hb.Radius + p.HandlebarHeight() + 0.3

	for _, sgn := range []float64{1, -1} {
		in := g.Point(geom.V(sgn*x, 0.45*hb.Width, -0.5))
		assert.Less(t, vol.Distance(in), 0.0, "web beside the column at x=%g", sgn*x)
		out := g.Point(geom.V(sgn*x, hb.Width/2+0.6, -0.5))
		assert.Greater(t, vol.Distance(out), 0.0, "web kept to the ring width at x=%g", sgn*x)
	}
}

func TestAdapterJoinsRingOnAnyGrid(t *testing.T) {
	if testing.Short() {
		t.Skip("counts the handlebar solids")
	}
	for _, cell := range []float64{0.5, 0.45, 0.37} {
		p := params.Default()
		p.Validation.Cell = cell
		v, err := validate.New(sdfx.New(), p.Validation, nil)
		require.NoError(t, err)
		_, err = build(t, p, v)
		assert.NoError(t, err, "cell %g", cell)
	}
}

func TestMirrorSymmetric(t *testing.T) {
	res, _ := mustBuild(t)
	vol := res.Solid.Volume()
	for _, q := range []geom.Vec{
		res.Grip.Origin(),
		res.Path.Point(0.3),
		res.Grip.Point(geom.V(res.Column, 0, 0)),
		geom.V(60, 22, -10),
	} {
		assert.InDelta(t, vol.Distance(q), vol.Distance(geom.V(q.X, -q.Y, q.Z)), 1e-9)
	}
}

func TestBlends(t *testing.T) {
	res, _ := mustBuild(t)
	faces := selector.Faces(res.Solid)

	assert.Len(t, faces.Tagged(TagArm, feature.TagFillet), 4, "outer arm edges, both sides")
	assert.Len(t, faces.Tagged(insert.TagOuter, feature.TagFillet), 8, "two rims per adapter")
	assert.NotEmpty(t, faces.Tagged(insert.TagHead, feature.TagChamfer))
}

func TestThinSectionBehindStem(t *testing.T) {
	p := params.Default()
	p.Handlebar.ThinOffset = 500
	_, err := build(t, p, nil)
	assert.ErrorIs(t, err, kernel.ErrGeometryOperationFailed)
}

func TestSideFaceMustBeRectangular(t *testing.T) {
	p := params.Default()
	st := fakeStem(p)
	st.Sides[1].Profile = nil
	_, err := New(sdfx.New(), p, nil, nil).Build(st)
	assert.ErrorIs(t, err, kernel.ErrGeometryOperationFailed)
}

func TestEachSideSplitsInTwo(t *testing.T) {
	if testing.Short() {
		t.Skip("counts the handlebar solids")
	}
	p := params.Default()
	v, err := validate.New(sdfx.New(), p.Validation, nil)
	require.NoError(t, err)
	res, err := build(t, p, v)
	require.NoError(t, err)

	n, err := v.Count(res.Solid)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}
