package feature

import "github.com/chazu/stemmount/pkg/geom"

// flipY negates the local Y axis of a frame it is applied before.
func flipY() geom.Transform {
	return geom.Transform{M: [3][3]float64{{1, 0, 0}, {0, -1, 0}, {0, 0, 1}}}
}

// mapFace moves a face through t. Under a reflection the profile is
// mirrored so that face frames stay right-handed.
func mapFace(f Face, t geom.Transform) Face {
	f = f.clone()
	f.Center = t.Point(f.Center)
	f.Normal = t.Dir(f.Normal)
	f.Axis = t.Dir(f.Axis)
	f.Frame = f.Frame.Then(t)
	if t.Mirrors() {
		f.Frame = flipY().Then(f.Frame)
		if f.Profile != nil {
			p := f.Profile.MirrorY()
			f.Profile = &p
		}
	}
	for i, s := range f.Samples {
		f.Samples[i] = Sample{P: t.Point(s.P), N: t.Dir(s.N)}
	}
	return f
}

// mapEdge moves an edge through t. Under a reflection circular edges turn
// the other way, so their axis is reversed.
func mapEdge(e Edge, t geom.Transform) Edge {
	e = e.clone()
	e.Start, e.End = t.Point(e.Start), t.Point(e.End)
	e.Center = t.Point(e.Center)
	e.Axis = t.Dir(e.Axis)
	if t.Mirrors() {
		e.Axis = geom.Neg(e.Axis)
	}
	side := func(s Side) Side { return Side{Normal: t.Dir(s.Normal), Dir: t.Dir(s.Dir)} }
	e.Sides = [2]Side{side(e.Sides[0]), side(e.Sides[1])}
	for i, p := range e.Path {
		e.Path[i] = PathPoint{P: t.Point(p.P), Sides: [2]Side{side(p.Sides[0]), side(p.Sides[1])}}
	}
	return e
}

// mapJoint moves a joint frame through t, keeping it right-handed.
func mapJoint(j Joint, t geom.Transform) Joint {
	j.Frame = j.Frame.Then(t)
	if t.Mirrors() {
		j.Frame = flipY().Then(j.Frame)
	}
	return j
}

func mapAll(faces []Face, edges []Edge, t geom.Transform) ([]Face, []Edge) {
	fs := make([]Face, len(faces))
	for i, f := range faces {
		fs[i] = mapFace(f, t)
	}
	es := make([]Edge, len(edges))
	for i, e := range edges {
		es[i] = mapEdge(e, t)
	}
	return fs, es
}
