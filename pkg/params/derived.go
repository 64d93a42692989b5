package params

import "math"

// InsertShaftRadius is the clearance radius of the screw shaft hole.
func (s Set) InsertShaftRadius() float64 {
	return (s.Insert.ScrewDiameter + 2*s.Global.Tol) / 2
}

// InsertHeadRadius is the clearance radius of the head counterbore.
func (s Set) InsertHeadRadius() float64 {
	return (s.Insert.HeadDiameter + 2*s.Global.Tol) / 2
}

// InsertNutApothem is half the clearance distance across the nut flats.
func (s Set) InsertNutApothem() float64 {
	return (s.Insert.NutInscribedDiameter + 2*s.Global.Tol) / 2
}

// InsertNutCornerRadius is the circumradius of the nut pocket.
func (s Set) InsertNutCornerRadius() float64 {
	return s.InsertNutApothem() / math.Cos(math.Pi/6)
}

// InsertOuterRadius is the radius of the insert column: the largest cavity
// plus one wall.
func (s Set) InsertOuterRadius() float64 {
	r := math.Max(s.InsertShaftRadius(), s.InsertHeadRadius())
	r = math.Max(r, s.InsertNutCornerRadius())
	return r + s.Global.Wall
}

// InsertHeight is the length of the insert column.
func (s Set) InsertHeight() float64 {
	return s.Insert.ScrewLength + s.Insert.HeadHeight
}

// CollarHeight is the thickness of the headset collar.
func (s Set) CollarHeight() float64 {
	return s.Headset.CircleMaxHeight + s.Global.Wall
}

// StemDeckWidth is the outer width of the stem across Y.
func (s Set) StemDeckWidth() float64 {
	return s.Stem.Width + 2*s.Global.Wall
}

// StemDepth is the outer height of the stem box profile.
func (s Set) StemDepth() float64 {
	return s.Stem.Height + 2*s.Global.Wall
}

// StemLength is the length of the straight distal segment.
func (s Set) StemLength() float64 {
	return (s.Stem.RangeEnd - s.Stem.RangeStart) / math.Cos(s.stemAngle())
}

// StemRise is the height the distal segment gains or loses over the
// horizontal stem range.
func (s Set) StemRise() float64 {
	return (s.Stem.RangeEnd - s.Stem.RangeStart) * math.Tan(math.Abs(s.stemAngle()))
}

func (s Set) stemAngle() float64 { return s.Stem.Angle * math.Pi / 180 }

// HandlebarHeight is the arm and ring thickness.
func (s Set) HandlebarHeight() float64 {
	if s.Handlebar.Height > 0 {
		return s.Handlebar.Height
	}
	return s.Global.Wall
}
