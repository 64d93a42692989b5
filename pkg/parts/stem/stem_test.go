package stem

import (
	"math"
	"sync"
	"testing"

	"github.com/chazu/stemmount/pkg/feature"
	"github.com/chazu/stemmount/pkg/geom"
	"github.com/chazu/stemmount/pkg/kernel"
	"github.com/chazu/stemmount/pkg/kernel/sdfx"
	"github.com/chazu/stemmount/pkg/params"
	"github.com/chazu/stemmount/pkg/parts/collar"
	"github.com/chazu/stemmount/pkg/validate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func build(t *testing.T, p params.Set) (*Result, *validate.Validator, error) {
	t.Helper()
	k := sdfx.New()
	v, err := validate.New(k, p.Validation, nil)
	require.NoError(t, err)
	c, err := collar.New(k, p, v, nil).Build()
	require.NoError(t, err)
	res, err := New(k, p, v, nil).Build(c)
	return res, v, err
}

// the default stem is shared; it takes a while to build
var defaultStem = sync.OnceValues(func() (*Result, error) {
	p := params.Default()
	k := sdfx.New()
	v, err := validate.New(k, p.Validation, nil)
	if err != nil {
		return nil, err
	}
	c, err := collar.New(k, p, v, nil).Build()
	if err != nil {
		return nil, err
	}
	return New(k, p, v, nil).Build(c)
})

func heavy(t *testing.T) *Result {
	t.Helper()
	if testing.Short() {
		t.Skip("builds the full stem")
	}
	res, err := defaultStem()
	require.NoError(t, err)
	return res
}

func TestRise(t *testing.T) {
	res := heavy(t)
	want := 25 * math.Tan(geom.Deg2Rad(9))
	assert.InDelta(t, want, res.Rise, 1e-3)
	assert.InDelta(t, params.Default().StemRise(), res.Rise, 1e-9)
	assert.InDelta(t, 25/math.Cos(geom.Deg2Rad(9)), res.Length, 1e-9)
}

func TestDeckFrame(t *testing.T) {
	res := heavy(t)
	p := params.Default()
	a := geom.Deg2Rad(p.Stem.Angle)

	assert.True(t, geom.NearVec(geom.V(math.Cos(a), 0, math.Sin(a)), res.Frame.AxisX(), 1e-9))
	assert.True(t, geom.NearVec(geom.V(-math.Sin(a), 0, math.Cos(a)), res.Frame.AxisZ(), 1e-9))
	assert.Less(t, res.Frame.AxisX().Z, 0.0, "nose points down")
}

func TestSideFaces(t *testing.T) {
	res := heavy(t)
	p := params.Default()
	for i, sgn := range []float64{-1, 1} {
		f := res.Sides[i]
		assert.True(t, geom.NearVec(geom.V(0, sgn, 0), f.Normal, 1e-9))
		assert.InDelta(t, sgn*p.StemDeckWidth()/2, f.Center.Y, 1e-9)
		local := res.Frame.Inverse().Point(f.Center)
		assert.InDelta(t, res.Length/2, local.X, 1e-6)
		assert.InDelta(t, 0, local.Z, 1e-6)
	}
}

func TestSplitYieldsTwoSolids(t *testing.T) {
	res := heavy(t)
	p := params.Default()
	v, err := validate.New(sdfx.New(), p.Validation, nil)
	require.NoError(t, err)

	n, err := v.Count(res.Solid)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	j, ok := res.Solid.Joint(JointCenter)
	require.True(t, ok)
	// the gap is empty, the material either side of it is not
	side := res.Frame.Inverse().Point(j.Frame.Origin())
	wall := res.Frame.Point(geom.V(side.X, p.StemDeckWidth()/2-p.Global.Wall/2, side.Z))
	vol := res.Solid.Volume()
	assert.Greater(t, vol.Distance(wall), 0.0)
	gap := p.Global.ScrewFloatingCut
	assert.Less(t, vol.Distance(wall.Add(res.Frame.AxisZ().MulScalar(gap))), 0.0)
	assert.Less(t, vol.Distance(wall.Sub(res.Frame.AxisZ().MulScalar(gap))), 0.0)
}

func TestInsertJoints(t *testing.T) {
	res := heavy(t)
	p := params.Default()
	wall := p.Global.Wall

	front, ok := res.Solid.Joint(JointFront)
	require.True(t, ok)
	back, ok := res.Solid.Joint(JointBack)
	require.True(t, ok)

	inv := res.Frame.Inverse()
	assert.InDelta(t, res.Length-wall, inv.Point(front.Frame.Origin()).X, 1e-9)
	assert.InDelta(t, wall, inv.Point(back.Frame.Origin()).X, 1e-9)
	assert.True(t, front.Offset.ApproxEqual(geom.Identity(), 1e-12))
	assert.True(t, back.Offset.ApproxEqual(geom.RotateZ(180), 1e-12))
	assert.True(t, geom.NearVec(geom.Neg(res.Frame.AxisZ()), front.Frame.AxisZ(), 1e-9), "heads hang down")
}

func TestInsertsOpenThroughWalls(t *testing.T) {
	res := heavy(t)
	p := params.Default()
	vol := res.Solid.Volume()
	inv := res.Frame.Inverse()
	rc := p.InsertOuterRadius()

	for _, name := range []string{JointFront, JointBack} {
		j, ok := res.Solid.Joint(name)
		require.True(t, ok)
		axis := inv.Point(j.Frame.Point(geom.V(-rc, 0, 0)))
		if name == JointBack {
			axis = inv.Point(j.Frame.Point(geom.V(rc, 0, 0)))
		}
		// the nut window cuts the deck, the bore cuts the bottom wall
		deck := res.Frame.Point(geom.V(axis.X, 0, 0))
		assert.Greater(t, vol.Distance(deck), 0.0, name)
		bottom := res.Frame.Point(geom.V(axis.X, 0, p.Global.Wall/2-p.StemDepth()+p.Global.Wall/2))
		assert.Greater(t, vol.Distance(bottom), 0.0, name)
		// beside the window the deck is whole
		assert.Less(t, vol.Distance(res.Frame.Point(geom.V(axis.X, 12, 0))), 0.0, name)
	}
}

func TestHeadPocketsRelieved(t *testing.T) {
	res := heavy(t)
	bevels := 0
	for _, f := range res.Solid.Faces() {
		if f.HasTag("insert-head", feature.TagChamfer) {
			bevels++
			assert.Equal(t, feature.Cone, f.Kind)
		}
	}
	assert.Equal(t, 2, bevels)
}

func TestSweepVariant(t *testing.T) {
	if testing.Short() {
		t.Skip("builds the full stem")
	}
	p := params.Default()
	p.Assembly.Variant = params.VariantSweep
	res, v, err := build(t, p)
	require.NoError(t, err)

	assert.InDelta(t, 25*math.Tan(geom.Deg2Rad(9)), res.Rise, 1e-3)
	n, err := v.Count(res.Solid)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestNoseUp(t *testing.T) {
	if testing.Short() {
		t.Skip("builds the full stem")
	}
	p := params.Default()
	p.Stem.Angle = 9
	res, _, err := build(t, p)
	require.NoError(t, err)

	assert.Greater(t, res.Frame.AxisX().Z, 0.0)
	assert.InDelta(t, p.StemRise(), res.Rise, 1e-9)
}

func TestStartInsideCollar(t *testing.T) {
	p := params.Default()
	p.Stem.RangeStart = p.Headset.CircleRadius
	_, _, err := build(t, p)
	assert.ErrorIs(t, err, kernel.ErrGeometryOperationFailed)
}

func TestTiltBeyondCutAngle(t *testing.T) {
	if testing.Short() {
		t.Skip("builds the full stem")
	}
	p := params.Default()
	p.Stem.CutAngle = 8
	_, _, err := build(t, p)
	assert.ErrorIs(t, err, kernel.ErrInvalidOverhang)
}
