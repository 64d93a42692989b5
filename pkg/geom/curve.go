package geom

// Hermite is a cubic curve from P0 to P1 with end derivatives M0 and M1.
type Hermite struct {
	P0, P1 Vec
	M0, M1 Vec
}

// HermiteTangents builds a curve whose end derivatives are the unit
// tangents t0 and t1 scaled by s0 and s1 times the chord length.
func HermiteTangents(p0, p1, t0, t1 Vec, s0, s1 float64) Hermite {
	l := p1.Sub(p0).Length()
	return Hermite{
		P0: p0, P1: p1,
		M0: Unit(t0).MulScalar(s0 * l),
		M1: Unit(t1).MulScalar(s1 * l),
	}
}

// Point evaluates the curve at t in [0,1].
func (h Hermite) Point(t float64) Vec {
	t2, t3 := t*t, t*t*t
	h00 := 2*t3 - 3*t2 + 1
	h10 := t3 - 2*t2 + t
	h01 := -2*t3 + 3*t2
	h11 := t3 - t2
	return h.P0.MulScalar(h00).
		Add(h.M0.MulScalar(h10)).
		Add(h.P1.MulScalar(h01)).
		Add(h.M1.MulScalar(h11))
}

// Derivative returns dP/dt.
func (h Hermite) Derivative(t float64) Vec {
	t2 := t * t
	d00 := 6*t2 - 6*t
	d10 := 3*t2 - 4*t + 1
	d01 := -6*t2 + 6*t
	d11 := 3*t2 - 2*t
	return h.P0.MulScalar(d00).
		Add(h.M0.MulScalar(d10)).
		Add(h.P1.MulScalar(d01)).
		Add(h.M1.MulScalar(d11))
}

// Tangent returns the unit tangent at t.
func (h Hermite) Tangent(t float64) Vec { return Unit(h.Derivative(t)) }

// Sample returns n+1 points at uniform parameter steps together with the
// cumulative chord length at each point.
func (h Hermite) Sample(n int) (pts []Vec, arc []float64) {
	pts = make([]Vec, n+1)
	arc = make([]float64, n+1)
	for i := 0; i <= n; i++ {
		pts[i] = h.Point(float64(i) / float64(n))
		if i > 0 {
			arc[i] = arc[i-1] + pts[i].Sub(pts[i-1]).Length()
		}
	}
	return pts, arc
}

// Length approximates the arc length with n chords.
func (h Hermite) Length(n int) float64 {
	_, arc := h.Sample(n)
	return arc[n]
}
