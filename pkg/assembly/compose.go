package assembly

import (
	"github.com/chazu/stemmount/pkg/feature"
	"github.com/chazu/stemmount/pkg/kernel"
	"github.com/chazu/stemmount/pkg/validate"
	"go.uber.org/zap"
)

// Composer joins the registered parts into the final assembly.
type Composer struct {
	fb   *feature.Builder
	v    *validate.Validator
	want int
	log  *zap.Logger
}

// NewComposer returns a Composer expecting want disjoint solids in the
// composed assembly. A nil validator skips the count.
func NewComposer(k kernel.Kernel, v *validate.Validator, want int, log *zap.Logger) *Composer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Composer{fb: feature.NewBuilder(k, log), v: v, want: want, log: log}
}

// Compose joins every registered part, in definition order, and asserts
// the expected solid count. Parts registered with a fuse tolerance are
// blended on; the rest are unioned.
func (c *Composer) Compose(r *Registry) (*feature.Solid, error) {
	parts := r.Parts()
	if len(parts) == 0 {
		return nil, kernel.WithStage(kernel.Empty("compose", "no parts registered"), "assembly")
	}
	asm := parts[0].Solid
	for _, p := range parts[1:] {
		if p.Tol == 0 {
			asm = c.fb.Union(asm, p.Solid)
			continue
		}
		var err error
		if asm, err = c.fb.Fuse(asm, p.Solid, p.Tol); err != nil {
			return nil, kernel.WithStage(err, "assembly")
		}
		c.log.Debug("fused", zap.String("part", p.Name), zap.Float64("tol", p.Tol))
	}
	if c.v != nil {
		if err := c.v.ExpectSolids("assembly", asm, c.want); err != nil {
			return nil, err
		}
	}
	c.log.Info("assembly composed", zap.Strings("parts", r.Names()), zap.Int("expected_solids", c.want))
	return asm, nil
}
