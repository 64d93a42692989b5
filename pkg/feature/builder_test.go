package feature

import (
	"math"
	"testing"

	"github.com/chazu/stemmount/pkg/geom"
	"github.com/chazu/stemmount/pkg/kernel"
	"github.com/chazu/stemmount/pkg/kernel/sdfx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBuilder() *Builder { return NewBuilder(sdfx.New(), nil) }

func facesTagged(s *Solid, tags ...string) []Face {
	var out []Face
	for _, f := range s.Faces() {
		if f.HasTag(tags...) {
			out = append(out, f)
		}
	}
	return out
}

func edgesTagged(s *Solid, tags ...string) []Edge {
	var out []Edge
	for _, e := range s.Edges() {
		if e.HasTag(tags...) {
			out = append(out, e)
		}
	}
	return out
}

func edgesOfKind(s *Solid, k EdgeKind) []Edge {
	var out []Edge
	for _, e := range s.Edges() {
		if e.Kind == k {
			out = append(out, e)
		}
	}
	return out
}

// onSurface checks that every sample of f lies on the boundary of s.
func onSurface(t *testing.T, s *Solid, f Face, tol float64) {
	t.Helper()
	for _, smp := range f.Samples {
		assert.InDelta(t, 0, s.Volume().Distance(smp.P), tol, "sample %v of %v face", smp.P, f.Kind)
	}
}

func TestExtrudeBoxTopology(t *testing.T) {
	b := newTestBuilder()
	s, err := b.Box("block", geom.V(10, 20, 30), geom.Identity())
	require.NoError(t, err)

	assert.Len(t, s.Faces(), 6)
	assert.Len(t, s.Edges(), 12)
	assert.Len(t, facesTagged(s, TagStart), 1)
	assert.Len(t, facesTagged(s, TagEnd), 1)
	assert.Len(t, edgesTagged(s, TagLateral), 4)

	for _, e := range s.Edges() {
		assert.True(t, e.Convex(), "edge %d", e.Index)
		assert.False(t, e.Smooth)
	}
	for _, f := range s.Faces() {
		require.True(t, f.Planar())
		assert.False(t, f.Frame.Mirrors())
		assert.InDelta(t, 1, f.Frame.AxisZ().Dot(f.Normal), 1e-9)
		onSurface(t, s, f, 1e-6)
	}

	bb := s.Bounds()
	assert.InDelta(t, -15, bb.Min.Z, 1e-6)
	assert.InDelta(t, 15, bb.Max.Z, 1e-6)
}

func TestExtrudeNegativeDistance(t *testing.T) {
	b := newTestBuilder()
	s, err := b.Extrude("down", geom.Rect(4, 4), geom.Identity(), -3)
	require.NoError(t, err)

	start := facesTagged(s, TagStart)
	require.Len(t, start, 1)
	assert.InDelta(t, 0, start[0].Center.Z, 1e-9)
	assert.InDelta(t, 1, start[0].Normal.Z, 1e-9)
	end := facesTagged(s, TagEnd)
	require.Len(t, end, 1)
	assert.InDelta(t, -3, end[0].Center.Z, 1e-9)
	assert.InDelta(t, -1, end[0].Normal.Z, 1e-9)
}

func TestExtrudeRejectsBadInput(t *testing.T) {
	b := newTestBuilder()
	_, err := b.Extrude("flat", geom.Rect(4, 4), geom.Identity(), 0)
	assert.ErrorIs(t, err, kernel.ErrGeometryOperationFailed)

	_, err = b.Extrude("mirrored", geom.Rect(4, 4), geom.Mirror(geom.Origin, geom.XAxis), 1)
	assert.ErrorIs(t, err, kernel.ErrGeometryOperationFailed)
}

func TestCylinderTopology(t *testing.T) {
	b := newTestBuilder()
	s, err := b.Cylinder("pin", 3, 10, geom.Identity())
	require.NoError(t, err)

	assert.Len(t, s.Faces(), 3)
	assert.Len(t, edgesOfKind(s, Circle), 2)
	seams := edgesTagged(s, TagSeam)
	require.Len(t, seams, 1)
	assert.True(t, seams[0].Smooth)
	for _, f := range s.Faces() {
		onSurface(t, s, f, 1e-6)
	}
}

func TestHoleRimIsConvex(t *testing.T) {
	b := newTestBuilder()
	plate, err := b.Box("plate", geom.V(20, 20, 10), geom.Identity())
	require.NoError(t, err)
	drill, err := b.Extrude("hole", geom.Circle(3), geom.Translate(geom.V(0, 0, 5)), -20)
	require.NoError(t, err)

	s := b.Difference(plate, drill)
	rims := edgesOfKind(s, Circle)
	require.Len(t, rims, 1, "only the top rim is flush with the plate")
	assert.True(t, rims[0].Convex())
	assert.InDelta(t, 5, rims[0].Center.Z, 1e-9)

	walls := facesTagged(s, "hole", TagSide)
	require.Len(t, walls, 1)
	for _, smp := range walls[0].Samples {
		radial := geom.Unit(geom.V(smp.P.X, smp.P.Y, 0))
		assert.InDelta(t, -1, smp.N.Dot(radial), 1e-9, "cavity wall faces the axis")
	}

	rounded, err := b.Fillet(s, rims, 1)
	require.NoError(t, err)
	fillets := facesTagged(rounded, TagFillet)
	require.Len(t, fillets, 1)
	onSurface(t, rounded, fillets[0], 0.02)
	assert.Empty(t, edgesOfKind(rounded, Circle))
}

func TestFilletRadiusLimit(t *testing.T) {
	b := newTestBuilder()
	s, err := b.Box("cube", geom.V(10, 10, 10), geom.Identity())
	require.NoError(t, err)
	lateral := edgesTagged(s, TagLateral)
	require.Len(t, lateral, 4)

	_, err = b.Fillet(s, lateral, 5)
	require.ErrorIs(t, err, kernel.ErrGeometryOperationFailed)
	assert.Contains(t, err.Error(), "half the shortest edge")

	_, err = b.Fillet(s, lateral, 0)
	assert.ErrorIs(t, err, kernel.ErrGeometryOperationFailed)

	_, err = b.Fillet(s, nil, 1)
	assert.ErrorIs(t, err, kernel.ErrSelectionEmpty)

	rounded, err := b.Fillet(s, lateral, 2)
	require.NoError(t, err)
	assert.Len(t, rounded.Faces(), 10)
	assert.Len(t, rounded.Edges(), 8)
	for _, f := range facesTagged(rounded, TagFillet) {
		assert.Equal(t, Cylinder, f.Kind)
		assert.InDelta(t, 2, f.Radius, 1e-9)
		onSurface(t, rounded, f, 0.02)
	}
	// the corner itself is gone
	assert.Greater(t, rounded.Volume().Distance(geom.V(4.9, 4.9, 0)), 0.0)
}

func TestChamferBoxEdge(t *testing.T) {
	b := newTestBuilder()
	s, err := b.Box("cube", geom.V(10, 10, 10), geom.Identity())
	require.NoError(t, err)
	top := edgesTagged(s, TagEnd)
	require.Len(t, top, 4)

	bevelled, err := b.Chamfer(s, top[:1], 1, 0)
	require.NoError(t, err)
	faces := facesTagged(bevelled, TagChamfer)
	require.Len(t, faces, 1)
	assert.True(t, faces[0].Planar())
	onSurface(t, bevelled, faces[0], 0.02)

	_, err = b.Chamfer(s, top, -1, 0)
	assert.ErrorIs(t, err, kernel.ErrGeometryOperationFailed)
}

func TestConcaveChamferAddsMaterial(t *testing.T) {
	b := newTestBuilder()
	base, err := b.Box("base", geom.V(20, 20, 10), geom.Identity())
	require.NoError(t, err)
	pocket, err := b.Extrude("pocket", geom.Rect(10, 10), geom.Translate(geom.V(0, 0, 5)), -4)
	require.NoError(t, err)
	s := b.Difference(base, pocket)

	rims := edgesTagged(s, "pocket", TagStart)
	require.Len(t, rims, 4)
	for _, e := range rims {
		assert.True(t, e.Convex())
	}
	floor := edgesTagged(s, "pocket", TagEnd)
	require.Len(t, floor, 4)
	for _, e := range floor {
		assert.False(t, e.Convex())
	}

	filled, err := b.Chamfer(s, floor[:1], 1, 0)
	require.NoError(t, err)
	c := floor[0].Midpoint()
	toward := geom.Unit(geom.V(-c.X, -c.Y, 0))
	pt := c.Add(toward.MulScalar(0.3)).Add(geom.V(0, 0, 0.3))
	assert.Greater(t, s.Volume().Distance(pt), 0.0)
	assert.Less(t, filled.Volume().Distance(pt), 0.0)
	require.Len(t, facesTagged(filled, TagChamfer), 1)
}

func TestStaleSelectionFails(t *testing.T) {
	b := newTestBuilder()
	s, err := b.Box("cube", geom.V(10, 10, 10), geom.Identity())
	require.NoError(t, err)
	moved := b.Transform(s, geom.Translate(geom.V(1, 0, 0)))

	_, err = b.Fillet(moved, edgesTagged(s, TagLateral), 1)
	require.ErrorIs(t, err, kernel.ErrGeometryOperationFailed)
	assert.Contains(t, err.Error(), "stale selection")
}

func TestUnionDropsBuriedFaces(t *testing.T) {
	b := newTestBuilder()
	left, err := b.Box("left", geom.V(10, 10, 10), geom.Identity())
	require.NoError(t, err)
	right, err := b.Box("right", geom.V(10, 10, 10), geom.Translate(geom.V(5, 0, 0)))
	require.NoError(t, err)

	s := b.Union(left, right)
	assert.Equal(t, "left", s.Name())
	assert.Len(t, s.Faces(), 10)
	assert.Len(t, facesTagged(s, "left"), 5)
	assert.Len(t, facesTagged(s, "right"), 5)
}

func TestSplitKeepsOneSide(t *testing.T) {
	b := newTestBuilder()
	s, err := b.Box("cube", geom.V(10, 10, 10), geom.Identity())
	require.NoError(t, err)

	below, err := b.Split(s, geom.Origin, geom.ZAxis, Below)
	require.NoError(t, err)
	assert.Greater(t, below.Volume().Distance(geom.V(0, 0, 3)), 0.0)
	assert.Less(t, below.Volume().Distance(geom.V(0, 0, -3)), 0.0)
	cut := facesTagged(below, TagCut)
	require.Len(t, cut, 1)
	assert.InDelta(t, 1, cut[0].Normal.Z, 1e-9)
	assert.Empty(t, facesTagged(below, TagEnd))
	assert.Len(t, below.Faces(), 6)

	above, err := b.Split(s, geom.Origin, geom.ZAxis, Above)
	require.NoError(t, err)
	cut = facesTagged(above, TagCut)
	require.Len(t, cut, 1)
	assert.InDelta(t, -1, cut[0].Normal.Z, 1e-9)
	assert.Empty(t, facesTagged(above, TagStart))
}

func TestSplitCutYieldsTwoSolids(t *testing.T) {
	b := newTestBuilder()
	s, err := b.Box("bar", geom.V(40, 10, 10), geom.Identity())
	require.NoError(t, err)

	cut, err := b.SplitCut(s, geom.Identity(), geom.V(1, 20, 20))
	require.NoError(t, err)
	n, err := b.Kernel().Components(cut.Volume(), 0.5)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, facesTagged(cut, "split-gap"), 2)
}

func TestExtrudeUntilStopsAtTarget(t *testing.T) {
	b := newTestBuilder()
	ceiling, err := b.Box("ceiling", geom.V(20, 20, 2), geom.Translate(geom.V(0, 0, 11)))
	require.NoError(t, err)
	stub, err := b.Box("stub", geom.V(4, 4, 2), geom.Identity())
	require.NoError(t, err)
	top := facesTagged(stub, TagEnd)
	require.Len(t, top, 1)

	col, err := b.ExtrudeUntil("column", stub, top[0], ceiling, Next)
	require.NoError(t, err)
	bb := col.Bounds()
	assert.InDelta(t, 1, bb.Min.Z, 1e-6)
	assert.InDelta(t, 10, bb.Max.Z, 1e-2)

	_, err = b.ExtrudeUntil("nowhere", stub, top[0], ceiling, Previous)
	assert.ErrorIs(t, err, kernel.ErrGeometryOperationFailed)
}

func TestLoftTopology(t *testing.T) {
	b := newTestBuilder()
	square := func(z, h float64) []geom.Vec {
		return []geom.Vec{geom.V(-h, -h, z), geom.V(h, -h, z), geom.V(h, h, z), geom.V(-h, h, z)}
	}
	s, err := b.Loft("frustum", [][]geom.Vec{square(0, 5), square(10, 2)})
	require.NoError(t, err)
	assert.Len(t, s.Faces(), 6)
	assert.Len(t, s.Edges(), 12)
	assert.Len(t, edgesTagged(s, TagLongitudinal), 4)
	for _, f := range s.Faces() {
		onSurface(t, s, f, 1e-3)
	}

	_, err = b.Loft("bad", [][]geom.Vec{square(0, 5), square(10, 2)[:3]})
	assert.ErrorIs(t, err, kernel.ErrGeometryOperationFailed)
	_, err = b.Loft("short", [][]geom.Vec{square(0, 5)})
	assert.ErrorIs(t, err, kernel.ErrGeometryOperationFailed)
}

func TestRevolveTopology(t *testing.T) {
	b := newTestBuilder()
	ring := geom.RectMinMax(geom.P(8, 0), geom.P(10, 3))

	full, err := b.Revolve("ring", ring, geom.Identity(), 360)
	require.NoError(t, err)
	assert.Len(t, full.Faces(), 4)
	assert.Len(t, edgesOfKind(full, Circle), 4)

	half, err := b.Revolve("arch", ring, geom.Identity(), 180)
	require.NoError(t, err)
	assert.Len(t, half.Faces(), 6)
	assert.Len(t, edgesOfKind(half, Arc), 4)
	for _, f := range facesTagged(half, TagStart) {
		onSurface(t, half, f, 1e-3)
	}
}

func TestConnectRoundTrip(t *testing.T) {
	b := newTestBuilder()
	base, err := b.Box("base", geom.V(10, 10, 10), geom.Identity())
	require.NoError(t, err)
	base, err = b.WithJoint(base, "top", geom.Translate(geom.V(0, 0, 5)), geom.Transform{})
	require.NoError(t, err)

	arm, err := b.Box("arm", geom.V(4, 4, 20), geom.Identity())
	require.NoError(t, err)
	arm, err = b.WithJoint(arm, "foot", geom.RotateX(30).Then(geom.Translate(geom.V(1, 2, -10))), geom.Transform{})
	require.NoError(t, err)

	placed, err := b.Connect(base, "top", arm, "foot")
	require.NoError(t, err)
	want, _ := base.Joint("top")
	got, ok := placed.Joint("foot")
	require.True(t, ok)
	assert.True(t, got.Frame.ApproxEqual(want.Frame, 1e-9), "got %v want %v", got.Frame, want.Frame)

	_, err = b.Connect(base, "missing", arm, "foot")
	assert.ErrorIs(t, err, kernel.ErrSelectionEmpty)
}

func TestConnectAppliesOffset(t *testing.T) {
	b := newTestBuilder()
	base, err := b.Box("base", geom.V(10, 10, 10), geom.Identity())
	require.NoError(t, err)
	base, err = b.WithJoint(base, "back", geom.Translate(geom.V(5, 0, 0)), geom.RotateZ(180))
	require.NoError(t, err)
	peg, err := b.Box("peg", geom.V(2, 2, 2), geom.Identity())
	require.NoError(t, err)
	peg, err = b.WithJoint(peg, "tip", geom.Translate(geom.V(1, 0, 0)), geom.Transform{})
	require.NoError(t, err)

	placed, err := b.Connect(base, "back", peg, "tip")
	require.NoError(t, err)
	got, _ := placed.Joint("tip")
	assert.True(t, geom.NearVec(got.Frame.Origin(), geom.V(5, 0, 0), 1e-9))
	assert.True(t, geom.NearVec(got.Frame.AxisX(), geom.V(-1, 0, 0), 1e-9))
}

func TestMirrorKeepsFramesRightHanded(t *testing.T) {
	b := newTestBuilder()
	s, err := b.Box("block", geom.V(4, 6, 8), geom.Translate(geom.V(0, 10, 0)))
	require.NoError(t, err)
	s, err = b.WithJoint(s, "split_joint", geom.Translate(geom.V(0, 10, 4)), geom.Transform{})
	require.NoError(t, err)

	m := b.Mirror(s, geom.Origin, geom.YAxis, "_mirror")
	assert.InDelta(t, -13, m.Bounds().Min.Y, 1e-6)
	_, ok := m.Joint("split_joint")
	assert.False(t, ok)
	j, ok := m.Joint("split_joint_mirror")
	require.True(t, ok)
	assert.False(t, j.Frame.Mirrors())
	assert.True(t, geom.NearVec(j.Frame.Origin(), geom.V(0, -10, 4), 1e-9))

	for _, f := range m.Faces() {
		require.True(t, f.Planar())
		assert.False(t, f.Frame.Mirrors())
		assert.InDelta(t, 1, f.Frame.AxisZ().Dot(f.Normal), 1e-9)
		for _, p := range f.Outline() {
			assert.InDelta(t, 0, m.Volume().Distance(p), 1e-6)
		}
	}
	for _, e := range m.Edges() {
		assert.True(t, e.Convex())
	}
}

func TestCopyIsIndependent(t *testing.T) {
	b := newTestBuilder()
	s, err := b.Box("cube", geom.V(2, 2, 2), geom.Identity())
	require.NoError(t, err)
	c := b.Copy(s)
	assert.NotEqual(t, s.ID(), c.ID())
	assert.Equal(t, len(s.Faces()), len(c.Faces()))
	for _, f := range c.Faces() {
		assert.Equal(t, c.ID(), f.Owner)
	}
	require.NoError(t, c.Valid())
}

func TestFuseBridgesGap(t *testing.T) {
	b := newTestBuilder()
	a, err := b.Box("a", geom.V(4, 4, 4), geom.Identity())
	require.NoError(t, err)
	c, err := b.Box("c", geom.V(4, 4, 4), geom.Translate(geom.V(4.2, 0, 0)))
	require.NoError(t, err)

	plain := b.Union(a, c)
	fused, err := b.Fuse(a, c, 1)
	require.NoError(t, err)
	mid := geom.V(2.1, 0, 0)
	assert.Greater(t, plain.Volume().Distance(mid), 0.0)
	assert.Less(t, fused.Volume().Distance(mid), 0.0)
	assert.False(t, math.IsNaN(fused.Volume().Distance(geom.Origin)))

	_, err = b.Fuse(a, c, -1)
	assert.ErrorIs(t, err, kernel.ErrGeometryOperationFailed)
}

func TestWithJointRejectsMirroredFrame(t *testing.T) {
	b := newTestBuilder()
	s, err := b.Box("block", geom.V(2, 2, 2), geom.Identity())
	require.NoError(t, err)

	_, err = b.WithJoint(s, "split_joint", geom.Mirror(geom.Origin, geom.YAxis), geom.Transform{})
	assert.ErrorIs(t, err, kernel.ErrGeometryOperationFailed)
	_, err = b.WithJoint(s, "split_joint", geom.Identity(), geom.Mirror(geom.Origin, geom.XAxis))
	assert.ErrorIs(t, err, kernel.ErrGeometryOperationFailed)
	_, err = b.WithJoint(s, "", geom.Identity(), geom.Transform{})
	assert.ErrorIs(t, err, kernel.ErrGeometryOperationFailed)
}

func TestIntersectClipsToBand(t *testing.T) {
	b := newTestBuilder()
	wide, err := b.Box("wide", geom.V(10, 10, 2), geom.Identity())
	require.NoError(t, err)
	band, err := b.Box("band", geom.V(20, 4, 20), geom.Identity())
	require.NoError(t, err)

	s := b.Intersect(wide, band)
	assert.Equal(t, "wide", s.Name())
	bb := s.Bounds()
	assert.InDelta(t, 4, bb.Size().Y, 1e-6)
	assert.InDelta(t, 10, bb.Size().X, 1e-6)
	assert.Less(t, s.Volume().Distance(geom.Origin), 0.0)
	assert.Greater(t, s.Volume().Distance(geom.V(0, 3, 0)), 0.0)
	assert.NotEmpty(t, s.Faces())
}
