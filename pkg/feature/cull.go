package feature

import (
	"math"

	"github.com/chazu/stemmount/pkg/geom"
	"github.com/chazu/stemmount/pkg/kernel"
)

// sampleStep is how far from a face or edge the other operand is sampled.
const sampleStep = kernel.BlendMargin

// witness is a point on an edge with the two faces beside it there.
type witness struct {
	p     geom.Vec
	sides [2]Side
}

// witnesses spreads test points along the interior of an edge.
func (e Edge) witnesses() []witness {
	switch e.Kind {
	case Circle, Arc:
		m := 8
		if e.Kind == Arc {
			m = max(3, int(math.Ceil(e.Sweep/45)))
		}
		start := e.Start.Sub(e.Center)
		out := make([]witness, m)
		for k := range out {
			a := geom.Deg2Rad(e.Sweep * (float64(k) + 0.5) / float64(m))
			rot := func(v geom.Vec) geom.Vec { return geom.RotateAbout(v, e.Axis, a) }
			out[k] = witness{
				p: e.Center.Add(rot(start)),
				sides: [2]Side{
					{Normal: rot(e.Sides[0].Normal), Dir: rot(e.Sides[0].Dir)},
					{Normal: rot(e.Sides[1].Normal), Dir: rot(e.Sides[1].Dir)},
				},
			}
		}
		return out
	case Spline:
		out := make([]witness, 0, len(e.Path))
		for i := 0; i+1 < len(e.Path); i++ {
			out = append(out, witness{p: geom.Lerp(e.Path[i].P, e.Path[i+1].P, 0.5), sides: e.Path[i].Sides})
		}
		return out
	}
	out := make([]witness, 0, 3)
	for _, t := range []float64{0.2, 0.5, 0.8} {
		out = append(out, witness{p: geom.Lerp(e.Start, e.End, t), sides: e.Sides})
	}
	return out
}

// fate says whether an edge survives and which of its side vectors turn
// around.
type fate struct {
	keep    bool
	flipN   [2]bool
	flipDir [2]bool
}

func keepFaces(faces []Face, keep func(Sample) bool, flip bool) []Face {
	out := make([]Face, 0, len(faces))
	for _, f := range faces {
		var kept []Sample
		for _, s := range f.Samples {
			if keep(s) {
				kept = append(kept, s)
			}
		}
		if len(kept) == 0 {
			continue
		}
		f = f.clone()
		f.Samples = kept
		if flip {
			f = f.flipped()
		}
		out = append(out, f)
	}
	return out
}

func keepEdges(edges []Edge, judge func(witness) fate) []Edge {
	out := make([]Edge, 0, len(edges))
	for _, e := range edges {
		for _, pr := range e.witnesses() {
			if f := judge(pr); f.keep {
				out = append(out, e.apply(f))
				break
			}
		}
	}
	return out
}

// flipped turns a face inside out: a tool face that becomes a cavity wall.
func (f Face) flipped() Face {
	f.Normal = geom.Neg(f.Normal)
	for i := range f.Samples {
		f.Samples[i].N = geom.Neg(f.Samples[i].N)
	}
	if f.Profile != nil {
		p := f.Profile.MirrorY()
		f.Profile = &p
		f.Frame = flipYZ().Then(f.Frame)
	}
	return f
}

// flipYZ negates the local Y and Z axes of a frame it is applied before.
func flipYZ() geom.Transform {
	return geom.Transform{M: [3][3]float64{{1, 0, 0}, {0, -1, 0}, {0, 0, -1}}}
}

func (e Edge) apply(f fate) Edge {
	e = e.clone()
	fix := func(sides [2]Side) [2]Side {
		for i := 0; i < 2; i++ {
			if f.flipN[i] {
				sides[i].Normal = geom.Neg(sides[i].Normal)
			}
			if f.flipDir[i] {
				sides[i].Dir = geom.Neg(sides[i].Dir)
			}
		}
		return sides
	}
	e.Sides = fix(e.Sides)
	for i := range e.Path {
		e.Path[i].Sides = fix(e.Path[i].Sides)
	}
	return e
}

// ----------------------------------------------------------------------------
// Boolean rules
// ----------------------------------------------------------------------------

// outside reports whether v leaves the point empty.
func outside(v kernel.Volume, p geom.Vec) bool { return v.Distance(p) > 0 }

// inside reports whether v fills the point.
func inside(v kernel.Volume, p geom.Vec) bool { return v.Distance(p) < 0 }

// near offsets a point by d along dir and d along n.
func near(p, dir, n geom.Vec, d, s float64) geom.Vec {
	return p.Add(dir.MulScalar(d)).Add(n.MulScalar(s))
}

// unionKeep keeps the features of one operand that the other leaves
// uncovered.
func unionKeep(faces []Face, edges []Edge, other kernel.Volume) ([]Face, []Edge) {
	fs := keepFaces(faces, func(s Sample) bool {
		return outside(other, s.P.Add(s.N.MulScalar(sampleStep)))
	}, false)
	es := keepEdges(edges, func(pr witness) fate {
		for _, sd := range pr.sides {
			if !outside(other, near(pr.p, sd.Dir, sd.Normal, sampleStep, sampleStep)) {
				return fate{}
			}
		}
		return fate{keep: true}
	})
	return fs, es
}

// cutKeep keeps the features of a that survive removing the tool.
func cutKeep(faces []Face, edges []Edge, tool kernel.Volume) ([]Face, []Edge) {
	fs := keepFaces(faces, func(s Sample) bool {
		return outside(tool, s.P.Sub(s.N.MulScalar(sampleStep)))
	}, false)
	es := keepEdges(edges, func(pr witness) fate {
		for _, sd := range pr.sides {
			if !outside(tool, near(pr.p, sd.Dir, sd.Normal, sampleStep, -sampleStep)) {
				return fate{}
			}
		}
		return fate{keep: true}
	})
	return fs, es
}

// toolKeep turns the features of a cutting tool that lie inside a into
// cavity features. A tool face lying on a's surface yields the rim edge of
// the cavity.
func toolKeep(faces []Face, edges []Edge, a kernel.Volume) ([]Face, []Edge) {
	fs := keepFaces(faces, func(s Sample) bool {
		return inside(a, s.P.Add(s.N.MulScalar(sampleStep)))
	}, true)
	es := keepEdges(edges, func(pr witness) fate {
		var flush [2]bool
		for i, sd := range pr.sides {
			flush[i] = math.Abs(a.Distance(pr.p.Add(sd.Dir.MulScalar(sampleStep)))) < sampleStep/2
		}
		out := func(i int) geom.Vec {
			sd := pr.sides[i]
			return near(pr.p, sd.Dir, sd.Normal, sampleStep, sampleStep)
		}
		switch {
		case flush[0] && flush[1]:
			return fate{}
		case flush[0] || flush[1]:
			i, j := 0, 1
			if flush[1] {
				i, j = 1, 0
			}
			if !inside(a, out(j)) {
				return fate{}
			}
			f := fate{keep: true}
			f.flipDir[i] = true
			f.flipN[j] = true
			return f
		}
		if inside(a, out(0)) && inside(a, out(1)) {
			return fate{keep: true, flipN: [2]bool{true, true}}
		}
		return fate{}
	})
	return fs, es
}

// commonKeep keeps the features of one operand that lie inside the other.
func commonKeep(faces []Face, edges []Edge, other kernel.Volume) ([]Face, []Edge) {
	fs := keepFaces(faces, func(s Sample) bool {
		return inside(other, s.P.Sub(s.N.MulScalar(sampleStep)))
	}, false)
	es := keepEdges(edges, func(pr witness) fate {
		for _, sd := range pr.sides {
			if !inside(other, near(pr.p, sd.Dir, sd.Normal, sampleStep, -sampleStep)) {
				return fate{}
			}
		}
		return fate{keep: true}
	})
	return fs, es
}

// mergeJoints keeps a's joints and adds b's joints whose names are free.
func mergeJoints(a, b map[string]Joint) map[string]Joint {
	out := make(map[string]Joint, len(a)+len(b))
	for k, j := range b {
		out[k] = j
	}
	for k, j := range a {
		out[k] = j
	}
	return out
}
