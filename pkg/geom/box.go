package geom

import (
	"math"
	"sort"
)

// Box is an axis-aligned bounding box.
type Box struct {
	Min, Max Vec
}

// EmptyBox returns a box that contains nothing; extending it with a point
// yields a degenerate box at that point.
func EmptyBox() Box {
	inf := math.Inf(1)
	return Box{Min: V(inf, inf, inf), Max: V(-inf, -inf, -inf)}
}

// BoxOf returns the bounds of a set of points.
func BoxOf(pts ...Vec) Box {
	b := EmptyBox()
	for _, p := range pts {
		b = b.Extend(p)
	}
	return b
}

// IsEmpty reports whether the box contains no points.
func (b Box) IsEmpty() bool {
	return b.Min.X > b.Max.X || b.Min.Y > b.Max.Y || b.Min.Z > b.Max.Z
}

// Extend grows the box to include p.
func (b Box) Extend(p Vec) Box {
	return Box{
		Min: V(math.Min(b.Min.X, p.X), math.Min(b.Min.Y, p.Y), math.Min(b.Min.Z, p.Z)),
		Max: V(math.Max(b.Max.X, p.X), math.Max(b.Max.Y, p.Y), math.Max(b.Max.Z, p.Z)),
	}
}

// Union returns the smallest box containing both.
func (b Box) Union(o Box) Box {
	if o.IsEmpty() {
		return b
	}
	return b.Extend(o.Min).Extend(o.Max)
}

// Intersect returns the overlap of two boxes (possibly empty).
func (b Box) Intersect(o Box) Box {
	return Box{
		Min: V(math.Max(b.Min.X, o.Min.X), math.Max(b.Min.Y, o.Min.Y), math.Max(b.Min.Z, o.Min.Z)),
		Max: V(math.Min(b.Max.X, o.Max.X), math.Min(b.Max.Y, o.Max.Y), math.Min(b.Max.Z, o.Max.Z)),
	}
}

// Expand grows the box by d on every side.
func (b Box) Expand(d float64) Box {
	return Box{Min: b.Min.Sub(V(d, d, d)), Max: b.Max.Add(V(d, d, d))}
}

// Size returns the box extents.
func (b Box) Size() Vec { return b.Max.Sub(b.Min) }

// Center returns the box midpoint.
func (b Box) Center() Vec { return b.Min.Add(b.Max).MulScalar(0.5) }

// Contains reports whether p lies inside the box grown by tol.
func (b Box) Contains(p Vec, tol float64) bool {
	return p.X >= b.Min.X-tol && p.X <= b.Max.X+tol &&
		p.Y >= b.Min.Y-tol && p.Y <= b.Max.Y+tol &&
		p.Z >= b.Min.Z-tol && p.Z <= b.Max.Z+tol
}

// Distance is a lower bound on the distance from p to the box; zero inside.
func (b Box) Distance(p Vec) float64 {
	dx := math.Max(math.Max(b.Min.X-p.X, p.X-b.Max.X), 0)
	dy := math.Max(math.Max(b.Min.Y-p.Y, p.Y-b.Max.Y), 0)
	dz := math.Max(math.Max(b.Min.Z-p.Z, p.Z-b.Max.Z), 0)
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Corners returns the eight corners.
func (b Box) Corners() [8]Vec {
	var c [8]Vec
	for i := 0; i < 8; i++ {
		x, y, z := b.Min.X, b.Min.Y, b.Min.Z
		if i&1 != 0 {
			x = b.Max.X
		}
		if i&2 != 0 {
			y = b.Max.Y
		}
		if i&4 != 0 {
			z = b.Max.Z
		}
		c[i] = V(x, y, z)
	}
	return c
}

// Transform returns the bounds of the transformed box.
func (b Box) Transform(t Transform) Box {
	if b.IsEmpty() {
		return b
	}
	out := EmptyBox()
	for _, c := range b.Corners() {
		out = out.Extend(t.Point(c))
	}
	return out
}

// Extent returns the length of the box projected onto a unit direction.
func (b Box) Extent(dir Vec) float64 {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, c := range b.Corners() {
		d := c.Dot(dir)
		lo = math.Min(lo, d)
		hi = math.Max(hi, d)
	}
	return hi - lo
}

// Section returns the polygon where the plane through o with normal n cuts
// the box, counter-clockwise about n. It is empty when the plane misses.
func (b Box) Section(o, n Vec) []Vec {
	if b.IsEmpty() {
		return nil
	}
	n = Unit(n)
	c := b.Corners()
	var pts []Vec
	for i := 0; i < 8; i++ {
		for _, bit := range []int{1, 2, 4} {
			j := i | bit
			if j == i {
				continue
			}
			di, dj := c[i].Sub(o).Dot(n), c[j].Sub(o).Dot(n)
			if (di > 0) == (dj > 0) && di != 0 && dj != 0 {
				continue
			}
			if math.Abs(di-dj) < 1e-12 {
				pts = append(pts, c[i])
				continue
			}
			pts = append(pts, Lerp(c[i], c[j], di/(di-dj)))
		}
	}
	var uniq []Vec
	for _, p := range pts {
		dup := false
		for _, q := range uniq {
			if NearVec(p, q, 1e-9) {
				dup = true
				break
			}
		}
		if !dup {
			uniq = append(uniq, p)
		}
	}
	if len(uniq) < 3 {
		return nil
	}
	var ctr Vec
	for _, p := range uniq {
		ctr = ctr.Add(p)
	}
	ctr = ctr.MulScalar(1 / float64(len(uniq)))
	u := Perpendicular(n)
	v := n.Cross(u)
	angle := func(p Vec) float64 {
		d := p.Sub(ctr)
		return math.Atan2(d.Dot(v), d.Dot(u))
	}
	sort.Slice(uniq, func(i, j int) bool { return angle(uniq[i]) < angle(uniq[j]) })
	return uniq
}
