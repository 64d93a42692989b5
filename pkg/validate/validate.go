// Package validate is the Validation Layer: it counts the disjoint solids
// in a volume, checks that solids are well formed, and rejects faces that
// overhang further than a printer can bridge. Builders call it right after
// the operations that are known to be fragile; the CLI uses Check to print
// a full report.
package validate

import (
	"fmt"
	"math"
	"strings"

	"github.com/chazu/stemmount/pkg/feature"
	"github.com/chazu/stemmount/pkg/geom"
	"github.com/chazu/stemmount/pkg/kernel"
	"github.com/chazu/stemmount/pkg/params"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Severity indicates whether a finding blocks export or is informational.
type Severity int

const (
	SeverityError   Severity = iota // blocks export
	SeverityWarning                 // informational
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// Finding is a single validation result.
type Finding struct {
	Stage    string
	Solid    string
	Message  string
	Severity Severity
	Err      error // the taxonomy error behind an error finding
}

func (f Finding) Error() string {
	return fmt.Sprintf("[%s] %s %s: %s", f.Severity, f.Stage, f.Solid, f.Message)
}

// Report bundles the findings of one or more checks.
type Report struct {
	Findings []Finding
}

// Errors returns the blocking findings.
func (r *Report) Errors() []Finding { return r.filter(SeverityError) }

// Warnings returns the advisory findings.
func (r *Report) Warnings() []Finding { return r.filter(SeverityWarning) }

func (r *Report) filter(sev Severity) []Finding {
	var out []Finding
	for _, f := range r.Findings {
		if f.Severity == sev {
			out = append(out, f)
		}
	}
	return out
}

// Err combines the errors behind every blocking finding, or returns nil.
func (r *Report) Err() error {
	var err error
	for _, f := range r.Errors() {
		err = multierr.Append(err, f.Err)
	}
	return err
}

func (r *Report) String() string {
	if len(r.Findings) == 0 {
		return "ok"
	}
	lines := make([]string, len(r.Findings))
	for i, f := range r.Findings {
		lines[i] = f.Error()
	}
	return strings.Join(lines, "\n")
}

func (r *Report) add(stage, solid string, err error) {
	if err != nil {
		r.Findings = append(r.Findings, Finding{Stage: stage, Solid: solid, Message: err.Error(), Severity: SeverityError, Err: err})
	}
}

func (r *Report) warn(stage, solid, msg string) {
	r.Findings = append(r.Findings, Finding{Stage: stage, Solid: solid, Message: msg, Severity: SeverityWarning})
}

// ----------------------------------------------------------------------------
// Validator
// ----------------------------------------------------------------------------

// countCacheSize bounds how many solid counts are remembered.
const countCacheSize = 256

// Validator runs the checks against one kernel. Solids are immutable, so
// solid counts are cached by Solid ID.
type Validator struct {
	k           kernel.Kernel
	cell        float64
	maxOverhang float64
	up          geom.Vec
	counts      *lru.Cache[uuid.UUID, int]
	log         *zap.Logger
}

// New returns a Validator using the cell size and overhang limit from cfg.
// Overhangs are measured against +Z.
func New(k kernel.Kernel, cfg params.Validation, log *zap.Logger) (*Validator, error) {
	if cfg.Cell <= 0 {
		return nil, fmt.Errorf("validate: cell size must be positive, got %g", cfg.Cell)
	}
	cache, err := lru.New[uuid.UUID, int](countCacheSize)
	if err != nil {
		return nil, fmt.Errorf("validate: count cache: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Validator{
		k:           k,
		cell:        cfg.Cell,
		maxOverhang: cfg.MaxOverhang,
		up:          geom.ZAxis,
		counts:      cache,
		log:         log,
	}, nil
}

// MaxOverhang returns the overhang limit in degrees from vertical.
func (v *Validator) MaxOverhang() float64 { return v.maxOverhang }

// Count returns the number of disjoint solids in s.
func (v *Validator) Count(s *feature.Solid) (int, error) {
	if n, ok := v.counts.Get(s.ID()); ok {
		return n, nil
	}
	n, err := v.k.Components(s.Volume(), v.cell)
	if err != nil {
		return 0, err
	}
	v.counts.Add(s.ID(), n)
	v.log.Debug("count", zap.String("solid", s.Name()), zap.Int("solids", n), zap.Float64("cell", v.cell))
	return n, nil
}

// ExpectSolids fails with AssemblyTopologyMismatch unless s holds exactly
// want disjoint solids.
func (v *Validator) ExpectSolids(stage string, s *feature.Solid, want int) error {
	n, err := v.Count(s)
	if err != nil {
		return kernel.WithStage(err, stage)
	}
	if n != want {
		return kernel.WithStage(kernel.Mismatch("solid count", want, n), stage)
	}
	return nil
}

// ExpectValid checks that s is well formed and holds material.
func (v *Validator) ExpectValid(stage string, s *feature.Solid) error {
	if err := s.Valid(); err != nil {
		return kernel.WithStage(err, stage)
	}
	n, err := v.Count(s)
	if err != nil {
		return kernel.WithStage(err, stage)
	}
	if n == 0 {
		return kernel.WithStage(kernel.Failed("valid", "no material"), stage)
	}
	return nil
}

// OverhangAngle is how far a surface with outward normal n leans past
// vertical, in degrees: 0 for walls and upward faces, 90 for ceilings.
func OverhangAngle(n, up geom.Vec) float64 {
	down := -geom.Unit(n).Dot(geom.Unit(up))
	if down <= 0 {
		return 0
	}
	return geom.Rad2Deg(math.Asin(math.Min(1, down)))
}

// Overhang fails with InvalidOverhang when a face of s carrying every given
// tag leans past the limit anywhere it was sampled. It returns the worst
// angle found.
func (v *Validator) Overhang(stage string, s *feature.Solid, tags ...string) (float64, error) {
	worst, checked := 0.0, 0
	var err error
	for _, f := range s.Faces() {
		if !f.HasTag(tags...) {
			continue
		}
		checked++
		angle := 0.0
		for _, smp := range f.Samples {
			angle = math.Max(angle, OverhangAngle(smp.N, v.up))
		}
		worst = math.Max(worst, angle)
		if angle > v.maxOverhang+1e-9 {
			err = multierr.Append(err, kernel.WithStage(kernel.Overhang("overhang",
				fmt.Sprintf("%s face %d leans %.1f degrees past vertical", f.Kind, f.Index, angle),
				kernel.A("angle", angle), kernel.A("max", v.maxOverhang)), stage))
		}
	}
	v.log.Debug("overhang", zap.String("stage", stage), zap.Strings("tags", tags),
		zap.Int("faces", checked), zap.Float64("worst", worst))
	return worst, err
}

// Check runs every check against s and collects the findings. want is the
// expected solid count; faces carrying overhangTags are checked for
// overhang.
func (v *Validator) Check(stage string, s *feature.Solid, want int, overhangTags ...string) *Report {
	r := &Report{}
	r.add(stage, s.Name(), v.ExpectValid(stage, s))
	r.add(stage, s.Name(), v.ExpectSolids(stage, s, want))
	if len(overhangTags) > 0 {
		worst, err := v.Overhang(stage, s, overhangTags...)
		for _, e := range multierr.Errors(err) {
			r.add(stage, s.Name(), e)
		}
		if err == nil && worst == 0 {
			r.warn(stage, s.Name(), fmt.Sprintf("no downward faces tagged %s", strings.Join(overhangTags, ",")))
		}
	}
	if len(s.Joints()) == 0 {
		r.warn(stage, s.Name(), "solid carries no joints")
	}
	return r
}
