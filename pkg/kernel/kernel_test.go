package kernel

import (
	"errors"
	"math"
	"testing"

	"github.com/chazu/stemmount/pkg/geom"
)

// --- Mesh helper method tests ---

func TestMeshVertexCount(t *testing.T) {
	tests := []struct {
		name     string
		vertices []float32
		want     int
	}{
		{"empty", nil, 0},
		{"one vertex", []float32{1, 2, 3}, 1},
		{"four vertices", []float32{0, 0, 0, 1, 0, 0, 1, 1, 0, 0, 1, 0}, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Mesh{Vertices: tt.vertices}
			if got := m.VertexCount(); got != tt.want {
				t.Errorf("VertexCount() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMeshTriangleCount(t *testing.T) {
	tests := []struct {
		name    string
		indices []uint32
		want    int
	}{
		{"empty", nil, 0},
		{"one triangle", []uint32{0, 1, 2}, 1},
		{"two triangles", []uint32{0, 1, 2, 2, 3, 0}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Mesh{Indices: tt.indices}
			if got := m.TriangleCount(); got != tt.want {
				t.Errorf("TriangleCount() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMeshIsEmpty(t *testing.T) {
	t.Run("empty mesh", func(t *testing.T) {
		m := &Mesh{}
		if !m.IsEmpty() {
			t.Error("IsEmpty() = false for empty mesh, want true")
		}
	})
	t.Run("non-empty mesh", func(t *testing.T) {
		m := &Mesh{Vertices: []float32{1, 2, 3}}
		if m.IsEmpty() {
			t.Error("IsEmpty() = true for non-empty mesh, want false")
		}
	})
}

func TestMeshTrianglesAndBounds(t *testing.T) {
	m := &Mesh{
		Vertices: []float32{0, 0, 0, 2, 0, 0, 0, 3, 0, 0, 0, 0, 0, 3, 0, 0, 0, -1},
		Indices:  []uint32{0, 1, 2, 3, 4, 5},
	}
	tri := m.Triangle(1)
	if tri[1] != geom.V(0, 3, 0) || tri[2] != geom.V(0, 0, -1) {
		t.Errorf("Triangle(1) = %v", tri)
	}
	b := m.Bounds()
	if b.Min != geom.V(0, 0, -1) || b.Max != geom.V(2, 3, 0) {
		t.Errorf("Bounds() = %v..%v", b.Min, b.Max)
	}
	if !(&Mesh{}).Bounds().IsEmpty() {
		t.Error("an empty mesh should have empty bounds")
	}
}

// --- Corner geometry ---

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

// square is a convex 90 degree corner: material in x<0, y<0.
var square = Corner{
	N1: geom.P(0, 1), U1: geom.P(-1, 0),
	N2: geom.P(1, 0), U2: geom.P(0, -1),
}

func TestCornerConvexity(t *testing.T) {
	if !square.Convex() {
		t.Fatal("square corner should be convex")
	}
	// Material in x<0 or y<0: the inside corner of an L.
	inner := Corner{
		N1: geom.P(0, 1), U1: geom.P(1, 0),
		N2: geom.P(1, 0), U2: geom.P(0, 1),
	}
	if inner.Convex() {
		t.Fatal("inner corner should be concave")
	}
}

func TestFilletRegionConvex(t *testing.T) {
	c := square.FilletCenter(1)
	if !near(c.X, -1) || !near(c.Y, -1) {
		t.Fatalf("fillet centre = %v, want (-1,-1)", c)
	}
	tests := []struct {
		name   string
		q      geom.Vec2
		inside bool
	}{
		{"corner tip", geom.P(-0.05, -0.05), true},
		{"fillet centre", geom.P(-1, -1), false},
		{"far along face", geom.P(-3, -0.01), false},
		{"outside material", geom.P(1, 1), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := square.FilletRegion(tt.q, 1) < 0
			if got != tt.inside {
				t.Errorf("inside = %v, want %v", got, tt.inside)
			}
		})
	}
}

func TestFilletRegionConcaveFillsAir(t *testing.T) {
	inner := Corner{
		N1: geom.P(0, 1), U1: geom.P(1, 0),
		N2: geom.P(1, 0), U2: geom.P(0, 1),
	}
	c := inner.FilletCenter(1)
	if !near(c.X, 1) || !near(c.Y, 1) {
		t.Fatalf("fillet centre = %v, want (1,1)", c)
	}
	if inner.FilletRegion(geom.P(0.05, 0.05), 1) >= 0 {
		t.Fatal("air next to the inside corner should be filled")
	}
	n := inner.FilletNormal(0.5)
	if n.X < 0.7 || n.Y < 0.7 {
		t.Fatalf("concave fillet normal = %v, want toward (1,1)", n)
	}
}

func TestChamferRegion(t *testing.T) {
	p1, p2 := square.ChamferPoints(1, 2)
	if !near(p1.X, -1) || !near(p2.Y, -2) {
		t.Fatalf("chamfer points = %v %v", p1, p2)
	}
	if square.ChamferRegion(geom.P(-0.2, -0.2), 1, 2) >= 0 {
		t.Fatal("corner tip should be cut")
	}
	if square.ChamferRegion(geom.P(-0.9, -1.9), 1, 2) <= 0 {
		t.Fatal("point behind the bevel should remain")
	}
	n := square.ChamferNormal(1, 1)
	if n.X < 0.7 || n.Y < 0.7 {
		t.Fatalf("chamfer normal = %v, want toward the corner", n)
	}
}

func TestCornerValidate(t *testing.T) {
	flat := Corner{N1: geom.P(0, 1), N2: geom.P(0, 1), U1: geom.P(-1, 0), U2: geom.P(1, 0)}
	if err := flat.Validate(); err == nil {
		t.Fatal("tangent faces should not validate")
	}
	if err := square.Validate(); err != nil {
		t.Fatalf("square corner: %v", err)
	}
}

func TestLineBlendSection(t *testing.T) {
	b := LineBlend{
		Kind: Fillet,
		A:    geom.V(0, 0, 0), B: geom.V(0, 0, 10),
		N1: geom.V(0, 1, 0), U1: geom.V(-1, 0, 0),
		N2: geom.V(1, 0, 0), U2: geom.V(0, -1, 0),
		Radius: 1,
	}
	if err := b.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	_, _, _, c := b.Section()
	if !c.Convex() {
		t.Fatal("box edge should be convex")
	}
	b.Radius = 0
	if err := b.Validate(); err == nil {
		t.Fatal("zero radius should not validate")
	}
}

// --- Errors ---

func TestOpErrorWrapsSentinel(t *testing.T) {
	err := Failed("fillet", "radius too large", A("radius", 5), A("edges", 2))
	if !errors.Is(err, ErrGeometryOperationFailed) {
		t.Fatalf("errors.Is failed for %v", err)
	}
	err = WithStage(err, "stem")
	var oe *OpError
	if !errors.As(err, &oe) {
		t.Fatal("expected *OpError")
	}
	want := "stem: fillet(radius=5, edges=2): radius too large: geometry operation failed"
	if err.Error() != want {
		t.Fatalf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestMismatch(t *testing.T) {
	err := Mismatch("compose", 4, 3)
	if !errors.Is(err, ErrAssemblyTopologyMismatch) {
		t.Fatalf("errors.Is failed for %v", err)
	}
	if errors.Is(err, ErrSelectionEmpty) {
		t.Fatal("mismatch should not be a selection error")
	}
}
