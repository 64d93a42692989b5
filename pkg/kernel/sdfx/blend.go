package sdfx

import (
	"math"

	"github.com/chazu/stemmount/pkg/geom"
	"github.com/chazu/stemmount/pkg/kernel"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// region evaluates a fillet or chamfer cross-section.
func region(c kernel.Corner, kind kernel.BlendKind, q geom.Vec2, r, d1, d2 float64) float64 {
	if kind == kernel.Chamfer {
		return c.ChamferRegion(q, d1, d2)
	}
	return c.FilletRegion(q, r)
}

// lineBlend sweeps a blend cross-section along a straight edge.
type lineBlend struct {
	b           kernel.LineBlend
	dir, e1, e2 geom.Vec
	length      float64
	c           kernel.Corner
	bb          sdf.Box3
}

func newLineBlend(b kernel.LineBlend) *lineBlend {
	dir, e1, e2, c := b.Section()
	reach := c.Reach(b.Kind, b.Radius, b.D1, b.D2)
	return &lineBlend{
		b: b, dir: dir, e1: e1, e2: e2, c: c,
		length: b.B.Sub(b.A).Length(),
		bb:     box3(geom.BoxOf(b.A, b.B).Expand(reach)),
	}
}

func (l *lineBlend) Evaluate(q v3.Vec) float64 {
	w := q.Sub(l.b.A)
	t := w.Dot(l.dir)
	d := region(l.c, l.b.Kind, geom.P(w.Dot(l.e1), w.Dot(l.e2)), l.b.Radius, l.b.D1, l.b.D2)
	d = math.Max(d, -t)
	return math.Max(d, t-l.length)
}

func (l *lineBlend) BoundingBox() sdf.Box3 { return l.bb }

// arcBlend turns a blend cross-section about a circular edge.
type arcBlend struct {
	b      kernel.ArcBlend
	c      kernel.Corner
	v0, w1 geom.Vec
	full   bool
	wide   bool
	bb     sdf.Box3
}

func newArcBlend(b kernel.ArcBlend) *arcBlend {
	c := b.Corner()
	sweep := geom.Deg2Rad(b.Sweep)
	u1 := geom.RotateAbout(b.Start, b.Axis, sweep)
	reach := c.Reach(b.Kind, b.Radius, b.D1, b.D2)
	return &arcBlend{
		b: b, c: c,
		v0:   b.Axis.Cross(b.Start),
		w1:   b.Axis.Cross(u1),
		full: sweep >= 2*math.Pi-1e-9,
		wide: sweep > math.Pi,
		bb:   box3(geom.BoxOf(b.Center).Expand(b.EdgeRadius + reach)),
	}
}

func (a *arcBlend) Evaluate(q v3.Vec) float64 {
	w := q.Sub(a.b.Center)
	h := w.Dot(a.b.Axis)
	radial := w.Sub(a.b.Axis.MulScalar(h))
	rho := radial.Length()
	d := region(a.c, a.b.Kind, geom.P(rho-a.b.EdgeRadius, h), a.b.Radius, a.b.D1, a.b.D2)
	if a.full {
		return d
	}
	s, e := -radial.Dot(a.v0), radial.Dot(a.w1)
	wedge := math.Max(s, e)
	if a.wide {
		wedge = math.Min(s, e)
	}
	return math.Max(d, wedge)
}

func (a *arcBlend) BoundingBox() sdf.Box3 { return a.bb }
