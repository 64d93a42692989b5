package sdfx

import (
	"errors"
	"math"
	"runtime"
	"testing"

	"github.com/chazu/stemmount/pkg/geom"
	"github.com/chazu/stemmount/pkg/kernel"
)

func mustBox(t *testing.T, k *SdfxKernel, x, y, z float64) kernel.Volume {
	t.Helper()
	v, err := k.Box(geom.V(x, y, z))
	if err != nil {
		t.Fatalf("Box: %v", err)
	}
	return v
}

func near(t *testing.T, name string, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Fatalf("%s = %v, want %v", name, got, want)
	}
}

func TestBoundingBox(t *testing.T) {
	k := New()
	box := mustBox(t, k, 100, 50, 25)
	bb := box.Bounds()

	const tol = 0.01
	expectMin := [3]float64{-50, -25, -12.5}
	expectMax := [3]float64{50, 25, 12.5}
	gotMin := [3]float64{bb.Min.X, bb.Min.Y, bb.Min.Z}
	gotMax := [3]float64{bb.Max.X, bb.Max.Y, bb.Max.Z}

	for i := 0; i < 3; i++ {
		if math.Abs(gotMin[i]-expectMin[i]) > tol {
			t.Errorf("min[%d] = %f, expected %f", i, gotMin[i], expectMin[i])
		}
		if math.Abs(gotMax[i]-expectMax[i]) > tol {
			t.Errorf("max[%d] = %f, expected %f", i, gotMax[i], expectMax[i])
		}
	}
	near(t, "centre distance", box.Distance(geom.Origin), -12.5, 1e-9)
}

func TestBoxRejectsZeroSize(t *testing.T) {
	k := New()
	_, err := k.Box(geom.V(1, 0, 1))
	if !errors.Is(err, kernel.ErrGeometryOperationFailed) {
		t.Fatalf("err = %v, want geometry operation failed", err)
	}
}

func TestCylinderSitsOnBase(t *testing.T) {
	k := New()
	cyl, err := k.Cylinder(10, 2)
	if err != nil {
		t.Fatalf("Cylinder: %v", err)
	}
	near(t, "axis distance", cyl.Distance(geom.V(0, 0, 5)), -2, 1e-9)
	if d := cyl.Distance(geom.V(0, 0, -1)); d <= 0 {
		t.Fatalf("below base distance = %v, want > 0", d)
	}
	bb := cyl.Bounds()
	near(t, "min z", bb.Min.Z, 0, 1e-9)
	near(t, "max z", bb.Max.Z, 10, 1e-9)
}

func TestPrismProfiles(t *testing.T) {
	k := New()
	tests := []struct {
		name    string
		sk      geom.Sketch
		inside  geom.Vec
		outside geom.Vec
	}{
		{"rect", geom.Rect(4, 2), geom.V(1.5, 0.5, 1), geom.V(2.5, 0, 1)},
		{"circle", geom.Circle(2), geom.V(0, 1.9, 1), geom.V(1.5, 1.5, 1)},
		{"offset circle", geom.Circle(1).Offset(geom.P(5, 0)), geom.V(5.5, 0, 1), geom.V(0, 0, 1)},
		{"dprofile", geom.DProfile(2), geom.V(-1.9, 0, 1), geom.V(-1.9, 1.9, 1)},
		{"hexagon", geom.Hexagon(3), geom.V(0, 2.9, 1), geom.V(0, 3.1, 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := k.Prism(tt.sk, 3)
			if err != nil {
				t.Fatalf("Prism: %v", err)
			}
			if d := v.Distance(tt.inside); d >= 0 {
				t.Fatalf("inside distance = %v", d)
			}
			if d := v.Distance(tt.outside); d <= 0 {
				t.Fatalf("outside distance = %v", d)
			}
			if d := v.Distance(tt.inside.Add(geom.V(0, 0, 3))); d <= 0 {
				t.Fatalf("above top distance = %v", d)
			}
		})
	}
}

func TestRevolvePartialSweep(t *testing.T) {
	k := New()
	ring := geom.RectMinMax(geom.P(5, 0), geom.P(6, 1))
	at := func(deg float64) geom.Vec {
		a := geom.Deg2Rad(deg)
		return geom.V(5.5*math.Cos(a), 5.5*math.Sin(a), 0.5)
	}

	quarter, err := k.Revolve(ring, 90)
	if err != nil {
		t.Fatalf("Revolve: %v", err)
	}
	if d := quarter.Distance(at(45)); d >= 0 {
		t.Fatalf("45 deg distance = %v, want inside", d)
	}
	if d := quarter.Distance(at(135)); d <= 0 {
		t.Fatalf("135 deg distance = %v, want outside", d)
	}

	wide, err := k.Revolve(ring, 270)
	if err != nil {
		t.Fatalf("Revolve: %v", err)
	}
	if d := wide.Distance(at(200)); d >= 0 {
		t.Fatalf("200 deg distance = %v, want inside", d)
	}
	if d := wide.Distance(at(300)); d <= 0 {
		t.Fatalf("300 deg distance = %v, want outside", d)
	}

	if _, err := k.Revolve(geom.RectMinMax(geom.P(-1, 0), geom.P(1, 1)), 360); !errors.Is(err, kernel.ErrGeometryOperationFailed) {
		t.Fatalf("profile across the axis: err = %v", err)
	}
}

func TestHull(t *testing.T) {
	k := New()
	var pts []geom.Vec
	for _, c := range (geom.Box{Min: geom.Origin, Max: geom.V(1, 1, 1)}).Corners() {
		pts = append(pts, c)
	}
	// Interior points do not add facets.
	pts = append(pts, geom.V(0.5, 0.5, 0.5))
	h, err := k.Hull(pts)
	if err != nil {
		t.Fatalf("Hull: %v", err)
	}
	near(t, "centre", h.Distance(geom.V(0.5, 0.5, 0.5)), -0.5, 1e-9)
	near(t, "outside", h.Distance(geom.V(2, 0.5, 0.5)), 1, 1e-9)

	flat := []geom.Vec{geom.V(0, 0, 0), geom.V(1, 0, 0), geom.V(0, 1, 0), geom.V(1, 1, 0)}
	if _, err := k.Hull(flat); !errors.Is(err, kernel.ErrGeometryOperationFailed) {
		t.Fatalf("coplanar hull: err = %v", err)
	}
}

func TestHalfSpaceIntersection(t *testing.T) {
	k := New()
	box := mustBox(t, k, 2, 2, 2)
	half := k.Intersection(box, k.HalfSpace(geom.Origin, geom.XAxis))
	if d := half.Distance(geom.V(-0.5, 0, 0)); d >= 0 {
		t.Fatalf("kept side distance = %v", d)
	}
	if d := half.Distance(geom.V(0.5, 0, 0)); d <= 0 {
		t.Fatalf("cut side distance = %v", d)
	}
	if bb := half.Bounds(); bb.Max.X > 1+1e-9 {
		t.Fatalf("intersection bounds %v escape the box", bb)
	}
}

func TestTransformMirror(t *testing.T) {
	k := New()
	box := k.Transform(mustBox(t, k, 2, 2, 2), geom.Translate(geom.V(5, 0, 0)))
	m := k.Transform(box, geom.Mirror(geom.Origin, geom.XAxis))
	near(t, "mirrored centre", m.Distance(geom.V(-5, 0, 0)), -1, 1e-9)
	near(t, "mirrored bounds", m.Bounds().Max.X, -4, 1e-9)
}

type sphere struct{ r float64 }

func (s sphere) Bounds() geom.Box {
	return geom.Box{Min: geom.V(-s.r, -s.r, -s.r), Max: geom.V(s.r, s.r, s.r)}
}
func (s sphere) Distance(p geom.Vec) float64 { return p.Length() - s.r }

func TestUnionAcceptsForeignVolumes(t *testing.T) {
	k := New()
	box := k.Transform(mustBox(t, k, 2, 2, 2), geom.Translate(geom.V(10, 0, 0)))
	u := k.Union(box, sphere{r: 1})
	near(t, "sphere centre", u.Distance(geom.Origin), -1, 1e-9)
	near(t, "box centre", u.Distance(geom.V(10, 0, 0)), -1, 1e-9)
}

func TestCulledUnionMatchesMinimum(t *testing.T) {
	k := New()
	var vs []kernel.Volume
	for i := 0; i < 5; i++ {
		vs = append(vs, k.Transform(mustBox(t, k, 1, 1, 1), geom.Translate(geom.V(float64(i)*3, 0, 0))))
	}
	u := k.Union(vs...)
	for _, p := range []geom.Vec{geom.V(0, 0, 0), geom.V(6.2, 0, 0), geom.V(7.5, 0, 0), geom.V(20, 3, 1)} {
		want := math.Inf(1)
		for _, v := range vs {
			want = math.Min(want, v.Distance(p))
		}
		got := u.Distance(p)
		if (got < 0) != (want < 0) || got > want+1e-12 {
			t.Fatalf("at %v: union = %v, min = %v", p, got, want)
		}
	}
}

func TestComponents(t *testing.T) {
	k := New()
	a := mustBox(t, k, 4, 4, 4)
	far := k.Transform(mustBox(t, k, 4, 4, 4), geom.Translate(geom.V(10, 0, 0)))
	touching := k.Transform(mustBox(t, k, 4, 4, 4), geom.Translate(geom.V(3, 0, 0)))
	slab := mustBox(t, k, 0.6, 10, 10)

	tests := []struct {
		name string
		v    kernel.Volume
		want int
	}{
		{"single", a, 1},
		{"separated", k.Union(a, far), 2},
		{"overlapping", k.Union(a, touching), 1},
		{"three", k.Union(a, far, k.Transform(a, geom.Translate(geom.V(0, 10, 0)))), 3},
		{"cut in two", k.Difference(a, slab), 2},
		{"empty", k.Intersection(a, far), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := k.Components(tt.v, 0.25)
			if err != nil {
				t.Fatalf("Components: %v", err)
			}
			if n != tt.want {
				t.Fatalf("components = %d, want %d", n, tt.want)
			}
		})
	}
}

func TestComponentsAcrossSlabs(t *testing.T) {
	k := New()
	column := mustBox(t, k, 2, 2, 40)
	stack := k.Union(
		k.Transform(mustBox(t, k, 2, 2, 10), geom.Translate(geom.V(0, 0, -12))),
		mustBox(t, k, 2, 2, 10),
		k.Transform(mustBox(t, k, 2, 2, 10), geom.Translate(geom.V(0, 0, 12))),
	)
	defer runtime.GOMAXPROCS(runtime.GOMAXPROCS(0))
	for _, procs := range []int{1, 3, 8} {
		runtime.GOMAXPROCS(procs)
		if n, err := k.Components(column, 0.5); err != nil || n != 1 {
			t.Errorf("procs %d: column = %d (%v), want 1", procs, n, err)
		}
		if n, err := k.Components(stack, 0.5); err != nil || n != 3 {
			t.Errorf("procs %d: stack = %d (%v), want 3", procs, n, err)
		}
	}
}

func TestComponentsRejectsHugeGrid(t *testing.T) {
	k := New()
	_, err := k.Components(mustBox(t, k, 1000, 1000, 1000), 0.01)
	if !errors.Is(err, kernel.ErrGeometryOperationFailed) {
		t.Fatalf("err = %v, want geometry operation failed", err)
	}
}

func TestSmoothUnionBridgesGap(t *testing.T) {
	k := New()
	a := mustBox(t, k, 2, 2, 2)
	b := k.Transform(mustBox(t, k, 2, 2, 2), geom.Translate(geom.V(2.4, 0, 0)))

	n, err := k.Components(k.Union(a, b), 0.1)
	if err != nil {
		t.Fatalf("Components: %v", err)
	}
	if n != 2 {
		t.Fatalf("plain union components = %d, want 2", n)
	}
	n, err = k.Components(k.SmoothUnion(a, b, 1), 0.1)
	if err != nil {
		t.Fatalf("Components: %v", err)
	}
	if n != 1 {
		t.Fatalf("smooth union components = %d, want 1", n)
	}
}

func TestLineBlendRoundsBoxEdge(t *testing.T) {
	k := New()
	box := mustBox(t, k, 2, 2, 2)
	blend, err := k.LineBlend(kernel.LineBlend{
		Kind:   kernel.Fillet,
		A:      geom.V(1, 1, -1),
		B:      geom.V(1, 1, 1),
		N1:     geom.YAxis,
		N2:     geom.XAxis,
		U1:     geom.Neg(geom.XAxis),
		U2:     geom.Neg(geom.YAxis),
		Radius: 0.5,
	})
	if err != nil {
		t.Fatalf("LineBlend: %v", err)
	}
	rounded := k.Difference(box, blend)
	if d := rounded.Distance(geom.V(0.95, 0.95, 0)); d <= 0 {
		t.Fatalf("corner point distance = %v, want removed", d)
	}
	if d := rounded.Distance(geom.V(0.6, 0.6, 0)); d >= 0 {
		t.Fatalf("point inside the fillet arc = %v, want kept", d)
	}
	if d := rounded.Distance(geom.V(0.95, 0.95, 1.5)); d <= 0 {
		t.Fatalf("point beyond the box = %v", d)
	}

	_, err = k.LineBlend(kernel.LineBlend{Kind: kernel.Fillet, A: geom.Origin, B: geom.Origin, N1: geom.YAxis, N2: geom.XAxis, Radius: 1})
	if !errors.Is(err, kernel.ErrGeometryOperationFailed) {
		t.Fatalf("zero-length edge: err = %v", err)
	}
}

func TestArcBlendChamfersRim(t *testing.T) {
	k := New()
	cyl, err := k.Cylinder(2, 1)
	if err != nil {
		t.Fatalf("Cylinder: %v", err)
	}
	rim := kernel.ArcBlend{
		Kind:       kernel.Chamfer,
		Center:     geom.V(0, 0, 2),
		Axis:       geom.ZAxis,
		Start:      geom.XAxis,
		EdgeRadius: 1,
		Sweep:      360,
		N1:         geom.ZAxis,
		N2:         geom.XAxis,
		U1:         geom.Neg(geom.XAxis),
		U2:         geom.Neg(geom.ZAxis),
		D1:         0.3,
		D2:         0.3,
	}
	blend, err := k.ArcBlend(rim)
	if err != nil {
		t.Fatalf("ArcBlend: %v", err)
	}
	cut := k.Difference(cyl, blend)
	for _, p := range []geom.Vec{geom.V(0.95, 0, 1.95), geom.V(0, -0.95, 1.95)} {
		if d := cut.Distance(p); d <= 0 {
			t.Fatalf("rim point %v distance = %v, want removed", p, d)
		}
	}
	if d := cut.Distance(geom.V(0.5, 0, 1.5)); d >= 0 {
		t.Fatalf("interior distance = %v, want kept", d)
	}

	rim.Sweep = 90
	part, err := k.ArcBlend(rim)
	if err != nil {
		t.Fatalf("ArcBlend: %v", err)
	}
	if d := part.Distance(geom.V(-0.95, 0, 1.95)); d <= 0 {
		t.Fatalf("quarter blend reaches the far side: %v", d)
	}
	if d := part.Distance(geom.V(0.95*math.Sqrt2/2, 0.95*math.Sqrt2/2, 1.95)); d >= 0 {
		t.Fatalf("quarter blend misses 45 deg: %v", d)
	}
}

func TestToMesh(t *testing.T) {
	k := New()
	box := mustBox(t, k, 10, 10, 10)
	cyl, err := k.Cylinder(12, 2)
	if err != nil {
		t.Fatalf("Cylinder: %v", err)
	}
	boxMesh, err := k.ToMesh(box, 40)
	if err != nil {
		t.Fatalf("ToMesh(box) failed: %v", err)
	}
	if boxMesh.IsEmpty() {
		t.Fatal("mesh is empty")
	}
	// Verify vertex and index array sizes are consistent.
	if len(boxMesh.Vertices) != len(boxMesh.Normals) {
		t.Fatalf("vertices length %d != normals length %d", len(boxMesh.Vertices), len(boxMesh.Normals))
	}
	if len(boxMesh.Indices) != boxMesh.TriangleCount()*3 {
		t.Fatalf("indices length %d != triCount*3 %d", len(boxMesh.Indices), boxMesh.TriangleCount()*3)
	}

	diffMesh, err := k.ToMesh(k.Difference(box, k.Transform(cyl, geom.Translate(geom.V(0, 0, -6)))), 40)
	if err != nil {
		t.Fatalf("ToMesh(diff) failed: %v", err)
	}
	// A box with a hole should have more triangles than a plain box.
	if diffMesh.TriangleCount() <= boxMesh.TriangleCount() {
		t.Fatalf("difference (%d triangles) should have more triangles than box (%d triangles)",
			diffMesh.TriangleCount(), boxMesh.TriangleCount())
	}
}

func TestToMeshRejectsUnbounded(t *testing.T) {
	k := New()
	if _, err := k.ToMesh(k.HalfSpace(geom.Origin, geom.ZAxis), 10); err == nil {
		t.Fatal("expected error meshing a half space")
	}
}
