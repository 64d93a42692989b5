// Package kernel defines the abstract geometry kernel interface.
// Implementations (sdfx) provide solid volumes, boolean operations, edge
// blends, connectivity analysis and meshing behind this interface. The
// feature layer builds boundary topology on top of it and never looks
// inside a Volume.
package kernel

import "github.com/chazu/stemmount/pkg/geom"

// Volume is an opaque, immutable solid region. Distance is a signed
// distance bound: negative inside, positive outside, and never larger in
// magnitude than the true distance to the boundary.
type Volume interface {
	Bounds() geom.Box
	Distance(p geom.Vec) float64
}

// Kernel is the abstract geometry kernel interface.
type Kernel interface {
	// Primitives
	Box(size geom.Vec) (Volume, error)                             // centred on the origin
	Cylinder(height, radius float64) (Volume, error)               // axis +Z, z in [0, height]
	Prism(profile geom.Sketch, height float64) (Volume, error)     // profile in XY, z in [0, height]
	Revolve(profile geom.Sketch, degrees float64) (Volume, error)  // profile X = radius, Y = axial; about +Z from +X
	Hull(points []geom.Vec) (Volume, error)                        // convex hull
	HalfSpace(origin, normal geom.Vec) Volume                      // material behind the plane

	// Boolean operations
	Union(vs ...Volume) Volume
	Difference(a, b Volume) Volume
	Intersection(a, b Volume) Volume
	SmoothUnion(a, b Volume, k float64) Volume // bridges gaps narrower than k

	// Transforms
	Transform(v Volume, t geom.Transform) Volume

	// Edge blends return the region a fillet or chamfer removes (convex
	// edges) or adds (concave edges).
	LineBlend(b LineBlend) (Volume, error)
	ArcBlend(b ArcBlend) (Volume, error)

	// Analysis and output
	Components(v Volume, cell float64) (int, error)
	ToMesh(v Volume, cells int) (*Mesh, error)
}
