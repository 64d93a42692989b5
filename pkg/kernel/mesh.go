package kernel

import "github.com/chazu/stemmount/pkg/geom"

// Mesh is the triangulated surface of one exported part. Vertices are not
// shared between triangles: triangle t uses vertices 3t, 3t+1 and 3t+2,
// and each vertex carries its triangle's face normal.
type Mesh struct {
	Part     string    // name of the part the mesh was made from
	Vertices []float32 // x, y, z per vertex, in mm
	Normals  []float32 // unit face normal per vertex
	Indices  []uint32  // three vertex indices per triangle
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int { return len(m.Vertices) / 3 }

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int { return len(m.Indices) / 3 }

// IsEmpty reports whether meshing found no surface.
func (m *Mesh) IsEmpty() bool { return len(m.Vertices) == 0 }

// Vertex returns vertex i.
func (m *Mesh) Vertex(i uint32) geom.Vec {
	return geom.V(float64(m.Vertices[3*i]), float64(m.Vertices[3*i+1]), float64(m.Vertices[3*i+2]))
}

// Triangle returns the corners of triangle t in winding order.
func (m *Mesh) Triangle(t int) [3]geom.Vec {
	return [3]geom.Vec{m.Vertex(m.Indices[3*t]), m.Vertex(m.Indices[3*t+1]), m.Vertex(m.Indices[3*t+2])}
}

// Bounds returns the box around every vertex.
func (m *Mesh) Bounds() geom.Box {
	b := geom.EmptyBox()
	for i := 0; i < m.VertexCount(); i++ {
		b = b.Extend(m.Vertex(uint32(i)))
	}
	return b
}
