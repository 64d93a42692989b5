// Package sdfx implements the kernel.Kernel interface using the
// github.com/deadsy/sdfx SDF-based CAD library.
package sdfx

import (
	"fmt"

	"github.com/chazu/stemmount/pkg/geom"
	"github.com/chazu/stemmount/pkg/kernel"
	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Compile-time interface check.
var _ kernel.Kernel = (*SdfxKernel)(nil)

// defaultMeshCells controls marching cubes tessellation resolution.
const defaultMeshCells = 200

// sdfxVolume wraps an sdf.SDF3 to implement kernel.Volume.
type sdfxVolume struct {
	s sdf.SDF3
}

// Bounds returns the axis-aligned bounding box.
func (v *sdfxVolume) Bounds() geom.Box {
	bb := v.s.BoundingBox()
	return geom.Box{Min: bb.Min, Max: bb.Max}
}

// Distance evaluates the signed distance field.
func (v *sdfxVolume) Distance(p geom.Vec) float64 {
	return v.s.Evaluate(p)
}

// SdfxKernel implements kernel.Kernel using sdfx.
type SdfxKernel struct{}

// New returns a new SdfxKernel.
func New() *SdfxKernel {
	return &SdfxKernel{}
}

// unwrap extracts the underlying sdf.SDF3 from a kernel.Volume. Volumes
// from other kernels are adapted through their Distance method.
func unwrap(v kernel.Volume) sdf.SDF3 {
	if s, ok := v.(*sdfxVolume); ok {
		return s.s
	}
	return foreign{v}
}

// wrap creates a kernel.Volume from an sdf.SDF3.
func wrap(s sdf.SDF3) kernel.Volume {
	return &sdfxVolume{s: s}
}

func box3(b geom.Box) sdf.Box3 {
	return sdf.Box3{Min: b.Min, Max: b.Max}
}

// Box creates a box with the given dimensions centred on the origin.
func (k *SdfxKernel) Box(size geom.Vec) (kernel.Volume, error) {
	if size.X <= 0 || size.Y <= 0 || size.Z <= 0 {
		return nil, kernel.Failed("box", "non-positive size", kernel.A("x", size.X), kernel.A("y", size.Y), kernel.A("z", size.Z))
	}
	s, err := sdf.Box3D(size, 0)
	if err != nil {
		return nil, fmt.Errorf("sdfx: Box3D: %w", err)
	}
	return wrap(s), nil
}

// Cylinder creates a cylinder along +Z with its base on z=0.
// sdf.Cylinder3D centres the cylinder at the origin, so we translate by half the height.
func (k *SdfxKernel) Cylinder(height, radius float64) (kernel.Volume, error) {
	if height <= 0 || radius <= 0 {
		return nil, kernel.Failed("cylinder", "non-positive size", kernel.A("height", height), kernel.A("radius", radius))
	}
	s, err := sdf.Cylinder3D(height, radius, 0)
	if err != nil {
		return nil, fmt.Errorf("sdfx: Cylinder3D: %w", err)
	}
	m := sdf.Translate3d(v3.Vec{Z: height / 2})
	return wrap(sdf.Transform3D(s, m)), nil
}

// Prism extrudes a closed profile from z=0 to z=height. Lone circles and
// straight-sided profiles use the sdfx primitives; mixed profiles use an
// exact segment distance.
func (k *SdfxKernel) Prism(profile geom.Sketch, height float64) (kernel.Volume, error) {
	if height <= 0 {
		return nil, kernel.Failed("prism", "non-positive height", kernel.A("height", height))
	}
	if err := profile.Validate(); err != nil {
		return nil, kernel.Failed("prism", err.Error(), kernel.A("height", height))
	}
	if c, ok := loneCircle(profile); ok && c.C.X == 0 && c.C.Y == 0 {
		return k.Cylinder(height, c.R)
	}
	var s2 sdf.SDF2
	if straight(profile) {
		p, err := sdf.Polygon2D(profile.Vertices())
		if err != nil {
			return nil, fmt.Errorf("sdfx: Polygon2D: %w", err)
		}
		s2 = p
	} else {
		s2 = newProfile2(profile)
	}
	s := sdf.Extrude3D(s2, height)
	return wrap(sdf.Transform3D(s, sdf.Translate3d(v3.Vec{Z: height / 2}))), nil
}

func loneCircle(sk geom.Sketch) (geom.Segment, bool) {
	if len(sk.Segments) == 1 && sk.Segments[0].Kind == geom.SegArc {
		return sk.Segments[0], true
	}
	return geom.Segment{}, false
}

func straight(sk geom.Sketch) bool {
	for _, s := range sk.Segments {
		if s.Kind != geom.SegLine {
			return false
		}
	}
	return true
}

// Revolve sweeps a profile in the (radius, axial) half plane about +Z,
// starting at +X and turning toward +Y.
func (k *SdfxKernel) Revolve(profile geom.Sketch, degrees float64) (kernel.Volume, error) {
	if degrees <= 0 || degrees > 360 {
		return nil, kernel.Failed("revolve", "angle out of range", kernel.A("degrees", degrees))
	}
	if err := profile.Validate(); err != nil {
		return nil, kernel.Failed("revolve", err.Error(), kernel.A("degrees", degrees))
	}
	lo, _ := profile.Bounds()
	if lo.X < -1e-9 {
		return nil, kernel.Failed("revolve", "profile crosses the axis", kernel.A("degrees", degrees), kernel.A("min_radius", lo.X))
	}
	return wrap(newRevolve(newProfile2(profile), geom.Deg2Rad(degrees))), nil
}

// Hull returns the convex hull of a point set.
func (k *SdfxKernel) Hull(points []geom.Vec) (kernel.Volume, error) {
	h, err := newHull(points)
	if err != nil {
		return nil, kernel.Failed("hull", err.Error(), kernel.A("points", float64(len(points))))
	}
	return wrap(h), nil
}

// HalfSpace is the region behind the plane through origin with the given normal.
func (k *SdfxKernel) HalfSpace(origin, normal geom.Vec) kernel.Volume {
	return wrap(halfSpace{o: origin, n: geom.Unit(normal)})
}

// Union returns the union of volumes. Two operands use sdf.Union3D; larger
// unions skip operands whose bounds are farther than the current best.
func (k *SdfxKernel) Union(vs ...kernel.Volume) kernel.Volume {
	switch len(vs) {
	case 0:
		return nil
	case 1:
		return vs[0]
	case 2:
		return wrap(sdf.Union3D(unwrap(vs[0]), unwrap(vs[1])))
	}
	parts := make([]sdf.SDF3, len(vs))
	for i, v := range vs {
		parts[i] = unwrap(v)
	}
	return wrap(newCulledUnion(parts))
}

// Difference returns the difference a - b.
func (k *SdfxKernel) Difference(a, b kernel.Volume) kernel.Volume {
	return wrap(sdf.Difference3D(unwrap(a), unwrap(b)))
}

// Intersection returns the intersection of two volumes. sdf.Intersect3D
// keeps the first operand's bounding box, so the result is clipped to the
// overlap of both.
func (k *SdfxKernel) Intersection(a, b kernel.Volume) kernel.Volume {
	bb := a.Bounds().Intersect(b.Bounds())
	return wrap(bounded{SDF3: sdf.Intersect3D(unwrap(a), unwrap(b)), bb: box3(bb)})
}

// SmoothUnion blends two volumes with a polynomial minimum of width k.
func (k *SdfxKernel) SmoothUnion(a, b kernel.Volume, width float64) kernel.Volume {
	if width <= 0 {
		return k.Union(a, b)
	}
	return wrap(smoothUnion{a: unwrap(a), b: unwrap(b), k: width})
}

// Transform places a volume with a rigid or mirror transform.
func (k *SdfxKernel) Transform(v kernel.Volume, t geom.Transform) kernel.Volume {
	return wrap(newPlaced(unwrap(v), t))
}

// LineBlend returns the region of a straight-edge fillet or chamfer.
func (k *SdfxKernel) LineBlend(b kernel.LineBlend) (kernel.Volume, error) {
	if err := b.Validate(); err != nil {
		return nil, kernel.Failed(b.Kind.String(), err.Error(), kernel.A("radius", b.Radius), kernel.A("d1", b.D1), kernel.A("d2", b.D2))
	}
	return wrap(newLineBlend(b)), nil
}

// ArcBlend returns the region of a circular-edge fillet or chamfer.
func (k *SdfxKernel) ArcBlend(b kernel.ArcBlend) (kernel.Volume, error) {
	if err := b.Validate(); err != nil {
		return nil, kernel.Failed(b.Kind.String(), err.Error(), kernel.A("radius", b.Radius), kernel.A("d1", b.D1), kernel.A("d2", b.D2))
	}
	return wrap(newArcBlend(b)), nil
}

// ToMesh converts a volume to a triangle mesh using marching cubes.
func (k *SdfxKernel) ToMesh(v kernel.Volume, cells int) (*kernel.Mesh, error) {
	if cells <= 0 {
		cells = defaultMeshCells
	}
	sdf3 := unwrap(v)
	bb := sdf3.BoundingBox()
	if size := bb.Max.Sub(bb.Min); size.X <= 0 || size.Y <= 0 || size.Z <= 0 ||
		size.X >= farBound || size.Y >= farBound || size.Z >= farBound {
		return nil, fmt.Errorf("sdfx: cannot mesh volume with bounds %v..%v", bb.Min, bb.Max)
	}

	renderer := render.NewMarchingCubesUniform(cells)
	triangles := render.ToTriangles(sdf3, renderer)

	numTri := len(triangles)
	numVerts := numTri * 3

	vertices := make([]float32, 0, numVerts*3)
	normals := make([]float32, 0, numVerts*3)
	indices := make([]uint32, 0, numVerts)

	for i, tri := range triangles {
		// Compute face normal.
		n := tri.Normal()
		nx := float32(n.X)
		ny := float32(n.Y)
		nz := float32(n.Z)

		for j := 0; j < 3; j++ {
			v := tri[j]
			vertices = append(vertices, float32(v.X), float32(v.Y), float32(v.Z))
			normals = append(normals, nx, ny, nz)
			indices = append(indices, uint32(i*3+j))
		}
	}

	return &kernel.Mesh{
		Vertices: vertices,
		Normals:  normals,
		Indices:  indices,
	}, nil
}
