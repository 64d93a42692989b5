// Package feature is the Primitive Feature Builder. It wraps single kernel
// calls (extrude, revolve, loft, booleans, blends, splits) and keeps a
// boundary description of every Solid it produces: the faces and edges a
// later selection can pick, each tagged with the names of the features
// that created it. Every operation returns a new Solid; inputs are never
// modified.
package feature

import (
	"fmt"
	"math"
	"slices"
	"sort"

	"github.com/chazu/stemmount/pkg/geom"
	"github.com/chazu/stemmount/pkg/kernel"
	"github.com/google/uuid"
)

// FaceKind classifies a face's surface.
type FaceKind int

const (
	Plane FaceKind = iota
	Cylinder
	Cone
	Freeform
)

func (k FaceKind) String() string {
	switch k {
	case Plane:
		return "plane"
	case Cylinder:
		return "cylinder"
	case Cone:
		return "cone"
	default:
		return "freeform"
	}
}

// EdgeKind classifies an edge's curve.
type EdgeKind int

const (
	Line EdgeKind = iota
	Circle
	Arc
	Spline
)

func (k EdgeKind) String() string {
	switch k {
	case Line:
		return "line"
	case Circle:
		return "circle"
	case Arc:
		return "arc"
	default:
		return "spline"
	}
}

// Sample is a point on a face with the outward normal there.
type Sample struct {
	P, N geom.Vec
}

// Face is one boundary face of a Solid.
type Face struct {
	Owner uuid.UUID
	Index int
	Kind  FaceKind

	Center geom.Vec // centroid for planes, axis midpoint for cylinders and cones
	Normal geom.Vec // outward normal (planes)
	Axis   geom.Vec // cylinders and cones
	Radius float64
	Area   float64

	// Frame and Profile describe planar faces: the profile lies in the
	// frame's XY plane and the frame's Z axis is the outward normal.
	Frame   geom.Transform
	Profile *geom.Sketch

	Samples []Sample
	Tags    []string
}

// Planar reports whether the face carries a profile.
func (f Face) Planar() bool { return f.Kind == Plane && f.Profile != nil }

// Outline returns the boundary of a planar face in world coordinates.
func (f Face) Outline() []geom.Vec {
	if f.Profile == nil {
		return nil
	}
	poly := f.Profile.Polygon()
	out := make([]geom.Vec, len(poly))
	for i, p := range poly {
		out[i] = f.Frame.Point(geom.V(p.X, p.Y, 0))
	}
	return out
}

// Corners returns the profile vertices of a planar face in world
// coordinates.
func (f Face) Corners() []geom.Vec {
	if f.Profile == nil {
		return nil
	}
	vs := f.Profile.Vertices()
	out := make([]geom.Vec, len(vs))
	for i, p := range vs {
		out[i] = f.Frame.Point(geom.V(p.X, p.Y, 0))
	}
	return out
}

// HasTag reports whether the face carries every given tag.
func (f Face) HasTag(tags ...string) bool { return hasAll(f.Tags, tags) }

// Side describes one face at an edge: its outward normal and the direction
// that runs along the face away from the edge.
type Side struct {
	Normal geom.Vec
	Dir    geom.Vec
}

// PathPoint is one vertex of a polyline edge with the faces beside it.
type PathPoint struct {
	P     geom.Vec
	Sides [2]Side
}

// Edge is one boundary edge of a Solid.
type Edge struct {
	Owner uuid.UUID
	Index int
	Kind  EdgeKind

	Start, End geom.Vec
	Center     geom.Vec // circles and arcs
	Axis       geom.Vec // circles and arcs turn counter-clockwise about Axis
	Radius     float64
	Sweep      float64 // degrees
	Length     float64

	Sides  [2]Side     // at Start
	Path   []PathPoint // splines
	Smooth bool        // the faces meet tangentially (seams)
	Tags   []string
}

// Convex reports whether the material angle at the edge is below 180
// degrees.
func (e Edge) Convex() bool {
	return e.Sides[0].Dir.Dot(e.Sides[1].Normal) < 0
}

// Midpoint returns the point halfway along the edge.
func (e Edge) Midpoint() geom.Vec {
	switch e.Kind {
	case Circle, Arc:
		start := geom.Unit(e.Start.Sub(e.Center))
		return e.Center.Add(geom.RotateAbout(start, e.Axis, geom.Deg2Rad(e.Sweep/2)).MulScalar(e.Radius))
	case Spline:
		if len(e.Path) > 0 {
			return polylineAt(e.Path, 0.5)
		}
	}
	return geom.Lerp(e.Start, e.End, 0.5)
}

// Direction returns the unit direction of a line edge from Start to End.
func (e Edge) Direction() geom.Vec { return geom.Unit(e.End.Sub(e.Start)) }

// HasTag reports whether the edge carries every given tag.
func (e Edge) HasTag(tags ...string) bool { return hasAll(e.Tags, tags) }

func polylineAt(path []PathPoint, t float64) geom.Vec {
	var total float64
	for i := 1; i < len(path); i++ {
		total += path[i].P.Sub(path[i-1].P).Length()
	}
	want := t * total
	for i := 1; i < len(path); i++ {
		l := path[i].P.Sub(path[i-1].P).Length()
		if want <= l && l > 0 {
			return geom.Lerp(path[i-1].P, path[i].P, want/l)
		}
		want -= l
	}
	return path[len(path)-1].P
}

// Joint is a named frame on a Solid. Offset is composed between the two
// frames when another Solid is connected to this joint.
type Joint struct {
	Name   string
	Frame  geom.Transform
	Offset geom.Transform
}

// Solid is an immutable body: a kernel volume plus its tracked boundary and
// joints.
type Solid struct {
	id     uuid.UUID
	name   string
	vol    kernel.Volume
	faces  []Face
	edges  []Edge
	joints map[string]Joint
}

func newSolid(name string, vol kernel.Volume, faces []Face, edges []Edge, joints map[string]Joint) *Solid {
	s := &Solid{
		id:     uuid.New(),
		name:   name,
		vol:    vol,
		faces:  make([]Face, len(faces)),
		edges:  make([]Edge, len(edges)),
		joints: make(map[string]Joint, len(joints)),
	}
	for i, f := range faces {
		f.Owner, f.Index = s.id, i
		s.faces[i] = f
	}
	for i, e := range edges {
		e.Owner, e.Index = s.id, i
		s.edges[i] = e
	}
	for k, j := range joints {
		s.joints[k] = j
	}
	return s
}

// ID identifies this generation of the solid.
func (s *Solid) ID() uuid.UUID { return s.id }

// Name is the name of the feature that started the solid.
func (s *Solid) Name() string { return s.name }

// Volume returns the kernel volume.
func (s *Solid) Volume() kernel.Volume { return s.vol }

// Bounds returns the bounding box.
func (s *Solid) Bounds() geom.Box { return s.vol.Bounds() }

// Faces returns a copy of the face list.
func (s *Solid) Faces() []Face { return slices.Clone(s.faces) }

// Edges returns a copy of the edge list.
func (s *Solid) Edges() []Edge { return slices.Clone(s.edges) }

// Joint looks up a joint by name.
func (s *Solid) Joint(name string) (Joint, bool) {
	j, ok := s.joints[name]
	return j, ok
}

// Joints returns every joint sorted by name.
func (s *Solid) Joints() []Joint {
	out := make([]Joint, 0, len(s.joints))
	for _, j := range s.joints {
		out = append(out, j)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Name < out[b].Name })
	return out
}

// Copy returns an independent deep copy with a new identity. Selections
// taken from the original do not apply to the copy.
func (s *Solid) Copy() *Solid {
	faces := make([]Face, len(s.faces))
	for i, f := range s.faces {
		faces[i] = f.clone()
	}
	edges := make([]Edge, len(s.edges))
	for i, e := range s.edges {
		edges[i] = e.clone()
	}
	return newSolid(s.name, s.vol, faces, edges, s.joints)
}

// Valid checks that the solid has finite, non-empty bounds and a tracked
// boundary.
func (s *Solid) Valid() error {
	bb := s.Bounds()
	size := bb.Size()
	switch {
	case bb.IsEmpty():
		return kernel.Failed("valid", "empty bounds")
	case math.IsNaN(size.X+size.Y+size.Z) || math.IsInf(size.X+size.Y+size.Z, 0):
		return kernel.Failed("valid", "non-finite bounds")
	case size.X <= 0 || size.Y <= 0 || size.Z <= 0:
		return kernel.Failed("valid", "degenerate bounds")
	case len(s.faces) == 0:
		return kernel.Failed("valid", "no faces")
	}
	if d := s.vol.Distance(bb.Center()); math.IsNaN(d) {
		return kernel.Failed("valid", "distance is NaN")
	}
	return nil
}

func (s *Solid) String() string {
	return fmt.Sprintf("%s[%s faces=%d edges=%d joints=%d]",
		s.name, s.id.String()[:8], len(s.faces), len(s.edges), len(s.joints))
}

// owns checks that every feature was taken from this generation.
func (s *Solid) owns(op string, owners ...uuid.UUID) error {
	for _, o := range owners {
		if o != s.id {
			return kernel.Failed(op, "stale selection: feature belongs to another solid")
		}
	}
	return nil
}

func (f Face) clone() Face {
	f.Samples = slices.Clone(f.Samples)
	f.Tags = slices.Clone(f.Tags)
	if f.Profile != nil {
		p := geom.Sketch{Segments: slices.Clone(f.Profile.Segments)}
		f.Profile = &p
	}
	return f
}

func (e Edge) clone() Edge {
	e.Path = slices.Clone(e.Path)
	e.Tags = slices.Clone(e.Tags)
	return e
}

func hasAll(have, want []string) bool {
	for _, w := range want {
		if !slices.Contains(have, w) {
			return false
		}
	}
	return true
}

func addTags(have []string, more ...string) []string {
	out := slices.Clone(have)
	for _, t := range more {
		if t != "" && !slices.Contains(out, t) {
			out = append(out, t)
		}
	}
	return out
}
