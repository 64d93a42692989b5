// Package params holds the Parameter Set: the numeric constants every
// builder reads. A Set is a plain value; builders receive a copy and never
// modify it.
package params

import (
	"fmt"
	"math"
	"os"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// Global holds printing tolerances shared by every part.
type Global struct {
	Tol              float64 `yaml:"tol"`                // clearance added to holes
	WallMin          float64 `yaml:"wall_min"`           // thinnest printable wall
	Wall             float64 `yaml:"wall"`               // default wall, 3 * wall_min
	Eps              float64 `yaml:"eps"`                // offset that keeps axes off coincident edges
	ScrewFloatingCut float64 `yaml:"screw_floating_cut"` // gap between screw-connected halves
}

// Insert describes the fastener a screwable insert is sized for (M5 by
// default).
type Insert struct {
	ScrewLength          float64 `yaml:"screw_length"`
	ScrewDiameter        float64 `yaml:"screw_diameter"`
	HeadDiameter         float64 `yaml:"head_diameter"`
	HeadHeight           float64 `yaml:"head_height"`
	NutInscribedDiameter float64 `yaml:"nut_inscribed_diameter"`
	NutHeight            float64 `yaml:"nut_height"`
	Round                bool    `yaml:"round"`
}

// Headset describes the collar around the steering-column screw.
type Headset struct {
	ScrewRadius      float64 `yaml:"screw_radius"`
	ScrewFlatRadius  float64 `yaml:"screw_flat_radius"`
	CircleFlatRadius float64 `yaml:"circle_flat_radius"`
	CircleRadius     float64 `yaml:"circle_radius"`
	CircleMaxHeight  float64 `yaml:"circle_max_height"`
}

// Stem describes the bent connector between collar and handlebar.
type Stem struct {
	Angle           float64 `yaml:"angle"` // degrees, negative points the nose down
	RangeStart      float64 `yaml:"range_start"`
	RangeEnd        float64 `yaml:"range_end"`
	Width           float64 `yaml:"width"`
	Height          float64 `yaml:"height"`
	Fillet          float64 `yaml:"fillet"`
	SmoothingOffset float64 `yaml:"smoothing_offset"`
	CutAngle        float64 `yaml:"cut_angle"` // overhang the relief chamfers aim for
}

// Handlebar describes the arms and grip rings.
type Handlebar struct {
	OffsetXCenter float64 `yaml:"offset_x_center"`
	OffsetYStart  float64 `yaml:"offset_y_start"`
	Width         float64 `yaml:"width"`
	Height        float64 `yaml:"height"` // zero means global wall
	Rotation      float64 `yaml:"rotation"`
	Radius        float64 `yaml:"radius"`
	ThinOffset    float64 `yaml:"thin_offset"`
	FuseTolerance float64 `yaml:"fuse_tolerance"`
	TangentStart  float64 `yaml:"tangent_start"`
	TangentEnd    float64 `yaml:"tangent_end"`
	GripRounding  float64 `yaml:"grip_rounding"`
	Segments      int     `yaml:"segments"`
}

// Variants of the stem bend.
const (
	VariantRevolve = "revolve"
	VariantSweep   = "sweep"
)

// Assembly controls composition.
type Assembly struct {
	ExpectedSolids int    `yaml:"expected_solids"`
	Variant        string `yaml:"variant"`

	// FuseTolerance is the gap the handlebar is blended across when it is
	// joined onto the stem.
	FuseTolerance float64 `yaml:"fuse_tolerance"`
}

// Validation controls the checks run between stages.
type Validation struct {
	Cell        float64 `yaml:"cell"` // voxel size used to count solids
	MaxOverhang float64 `yaml:"max_overhang"`
}

// Export controls mesh output.
type Export struct {
	Path      string `yaml:"path"`
	MeshCells int    `yaml:"mesh_cells"`
}

// Set is the full Parameter Set.
type Set struct {
	Global     Global     `yaml:"global"`
	Insert     Insert     `yaml:"insert"`
	Headset    Headset    `yaml:"headset"`
	Stem       Stem       `yaml:"stem"`
	Handlebar  Handlebar  `yaml:"handlebar"`
	Assembly   Assembly   `yaml:"assembly"`
	Validation Validation `yaml:"validation"`
	Export     Export     `yaml:"export"`
}

// Default returns the documented default parameters.
func Default() Set {
	const wallMin = 0.4
	return Set{
		Global: Global{
			Tol:              0.2,
			WallMin:          wallMin,
			Wall:             3 * wallMin,
			Eps:              1e-5,
			ScrewFloatingCut: 2,
		},
		Insert: Insert{
			ScrewLength:          8,
			ScrewDiameter:        5,
			HeadDiameter:         8.5,
			HeadHeight:           5,
			NutInscribedDiameter: 7,
			NutHeight:            2.7,
		},
		Headset: Headset{
			ScrewRadius:      2,
			ScrewFlatRadius:  4,
			CircleFlatRadius: 10,
			CircleRadius:     16,
			CircleMaxHeight:  3,
		},
		Stem: Stem{
			Angle:           -9,
			RangeStart:      20,
			RangeEnd:        45,
			Width:           35,
			Height:          35,
			Fillet:          4.75,
			SmoothingOffset: 0.5,
			CutAngle:        45,
		},
		Handlebar: Handlebar{
			OffsetXCenter: 80,
			OffsetYStart:  25,
			Width:         10,
			Rotation:      5,
			Radius:        16,
			ThinOffset:    3,
			FuseTolerance: 1,
			TangentStart:  0.5,
			TangentEnd:    1,
			GripRounding:  0.3,
			Segments:      24,
		},
		Assembly: Assembly{
			ExpectedSolids: 4,
			Variant:        VariantRevolve,
			FuseTolerance:  0.5,
		},
		Validation: Validation{
			Cell:        0.5,
			MaxOverhang: 50,
		},
		Export: Export{
			Path:      "bike-stem-mount.stl",
			MeshCells: 200,
		},
	}
}

// Load reads a yaml file over the defaults and validates the result.
func Load(path string) (Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Set{}, fmt.Errorf("params: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes yaml over the defaults and validates the result. Keys left
// out of the document keep their default values.
func Parse(data []byte) (Set, error) {
	s := Default()
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Set{}, fmt.Errorf("params: decode: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Set{}, err
	}
	return s, nil
}

// YAML encodes the set.
func (s Set) YAML() ([]byte, error) {
	out, err := yaml.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("params: encode: %w", err)
	}
	return out, nil
}

// Validate rejects non-physical values. Every violation is reported.
func (s Set) Validate() error {
	var errs error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = multierr.Append(errs, fmt.Errorf("params: "+format, args...))
		}
	}
	positive := func(name string, v float64) {
		check(v > 0, "%s must be positive, got %g", name, v)
	}

	g := s.Global
	positive("global.tol", g.Tol)
	positive("global.wall_min", g.WallMin)
	positive("global.eps", g.Eps)
	positive("global.screw_floating_cut", g.ScrewFloatingCut)
	check(g.Wall >= 2*g.WallMin, "global.wall %g is below twice wall_min %g", g.Wall, g.WallMin)
	check(g.Eps < g.Tol, "global.eps %g must be smaller than tol %g", g.Eps, g.Tol)

	in := s.Insert
	positive("insert.screw_length", in.ScrewLength)
	positive("insert.screw_diameter", in.ScrewDiameter)
	positive("insert.head_height", in.HeadHeight)
	positive("insert.nut_height", in.NutHeight)
	check(in.HeadDiameter > in.ScrewDiameter, "insert.head_diameter %g must exceed screw_diameter %g", in.HeadDiameter, in.ScrewDiameter)
	check(in.NutInscribedDiameter > in.ScrewDiameter, "insert.nut_inscribed_diameter %g must exceed screw_diameter %g", in.NutInscribedDiameter, in.ScrewDiameter)
	check(in.NutHeight < in.ScrewLength, "insert.nut_height %g must be below screw_length %g", in.NutHeight, in.ScrewLength)

	h := s.Headset
	positive("headset.screw_radius", h.ScrewRadius)
	positive("headset.circle_max_height", h.CircleMaxHeight)
	check(h.ScrewFlatRadius > h.ScrewRadius, "headset.screw_flat_radius must exceed screw_radius")
	check(h.CircleFlatRadius > h.ScrewFlatRadius, "headset.circle_flat_radius must exceed screw_flat_radius")
	check(h.CircleRadius > h.CircleFlatRadius+g.Wall, "headset.circle_radius must exceed circle_flat_radius plus a wall")

	st := s.Stem
	check(math.Abs(st.Angle) < 45, "stem.angle %g must lie within (-45, 45)", st.Angle)
	check(st.RangeStart > h.CircleRadius, "stem.range_start %g must clear the collar radius %g", st.RangeStart, h.CircleRadius)
	check(st.RangeEnd > st.RangeStart, "stem.range_end %g must exceed range_start %g", st.RangeEnd, st.RangeStart)
	positive("stem.width", st.Width)
	positive("stem.height", st.Height)
	positive("stem.fillet", st.Fillet)
	positive("stem.smoothing_offset", st.SmoothingOffset)
	check(st.CutAngle > 0 && st.CutAngle < 90, "stem.cut_angle %g must lie within (0, 90)", st.CutAngle)
	check(st.Height > 2*s.InsertOuterRadius(), "stem.height %g leaves no room for an insert", st.Height)

	hb := s.Handlebar
	positive("handlebar.width", hb.Width)
	positive("handlebar.radius", hb.Radius)
	positive("handlebar.fuse_tolerance", hb.FuseTolerance)
	check(hb.Height >= 0, "handlebar.height must not be negative")
	check(hb.ThinOffset > 0 && hb.ThinOffset < hb.OffsetXCenter, "handlebar.thin_offset %g out of range", hb.ThinOffset)
	check(hb.TangentStart > 0 && hb.TangentEnd > 0, "handlebar tangent scalars must be positive")
	check(hb.GripRounding >= 0 && hb.GripRounding < s.HandlebarHeight()/2, "handlebar.grip_rounding %g must be below half the bar height", hb.GripRounding)
	check(hb.Segments >= 2, "handlebar.segments must be at least 2")
	check(hb.OffsetYStart > st.Width/2+g.Wall, "handlebar.offset_y_start %g must clear the stem side", hb.OffsetYStart)

	check(s.Assembly.ExpectedSolids >= 1, "assembly.expected_solids must be at least 1")
	positive("assembly.fuse_tolerance", s.Assembly.FuseTolerance)
	check(s.Assembly.Variant == VariantRevolve || s.Assembly.Variant == VariantSweep,
		"assembly.variant %q must be %q or %q", s.Assembly.Variant, VariantRevolve, VariantSweep)

	positive("validation.cell", s.Validation.Cell)
	// a split gap must leave a layer of empty cells for the halves to
	// count apart
	check(g.ScrewFloatingCut > 2*s.Validation.Cell,
		"global.screw_floating_cut %g must exceed twice validation.cell %g", g.ScrewFloatingCut, s.Validation.Cell)
	check(s.Validation.MaxOverhang > 0 && s.Validation.MaxOverhang <= 90, "validation.max_overhang %g must lie within (0, 90]", s.Validation.MaxOverhang)
	check(s.Export.MeshCells > 0, "export.mesh_cells must be positive")
	return errs
}
