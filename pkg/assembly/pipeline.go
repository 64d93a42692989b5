package assembly

import (
	"context"
	"errors"
	"fmt"

	"github.com/chazu/stemmount/pkg/feature"
	"github.com/chazu/stemmount/pkg/kernel"
	"github.com/chazu/stemmount/pkg/params"
	"github.com/chazu/stemmount/pkg/parts/collar"
	"github.com/chazu/stemmount/pkg/parts/handlebar"
	"github.com/chazu/stemmount/pkg/parts/insert"
	"github.com/chazu/stemmount/pkg/parts/stem"
	"github.com/chazu/stemmount/pkg/tessellate"
	"github.com/chazu/stemmount/pkg/validate"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// Output is everything one pipeline run produced.
type Output struct {
	Collar    *collar.Result
	Stem      *stem.Result
	Handlebar *handlebar.Result
	Parts     *Registry
	Assembly  *feature.Solid
	Report    *validate.Report
}

// Pipeline builds the collar, the stem and the handlebar from one
// parameter set and composes them.
type Pipeline struct {
	k      kernel.Kernel
	p      params.Set
	viewer Viewer
	log    *zap.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithViewer sets the viewer Present tries before exporting.
func WithViewer(v Viewer) Option {
	return func(pl *Pipeline) { pl.viewer = v }
}

// WithLogger sets the logger handed to every builder.
func WithLogger(log *zap.Logger) Option {
	return func(pl *Pipeline) {
		if log != nil {
			pl.log = log
		}
	}
}

// NewPipeline returns a pipeline over k and p.
func NewPipeline(k kernel.Kernel, p params.Set, opts ...Option) *Pipeline {
	pl := &Pipeline{k: k, p: p, log: zap.NewNop()}
	for _, opt := range opts {
		opt(pl)
	}
	return pl
}

// Params returns the parameter set the pipeline builds from.
func (pl *Pipeline) Params() params.Set { return pl.p }

// Run builds and composes the parts, then checks the assembly. The run
// stops at the first failed operation. When only the final checks fail,
// the output is returned along with the report's error.
func (pl *Pipeline) Run(ctx context.Context) (*Output, error) {
	p := pl.p
	if err := p.Validate(); err != nil {
		return nil, err
	}
	v, err := validate.New(pl.k, p.Validation, pl.log)
	if err != nil {
		return nil, err
	}
	step := func(stage string) error {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%s: %w", stage, err)
		}
		pl.log.Debug("stage", zap.String("stage", stage))
		return nil
	}
	out := &Output{Parts: NewRegistry()}

	if err := step("collar"); err != nil {
		return nil, err
	}
	if out.Collar, err = collar.New(pl.k, p, v, pl.log).Build(); err != nil {
		return nil, err
	}
	if err := step("stem"); err != nil {
		return nil, err
	}
	if out.Stem, err = stem.New(pl.k, p, v, pl.log).Build(out.Collar); err != nil {
		return nil, err
	}
	if err := step("handlebar"); err != nil {
		return nil, err
	}
	if out.Handlebar, err = handlebar.New(pl.k, p, v, pl.log).Build(out.Stem); err != nil {
		return nil, err
	}

	if err := step("assembly"); err != nil {
		return nil, err
	}
	// the arms only touch the stem's side faces, so the handlebar is
	// blended on
	if err := out.Parts.Define(PartCollar, out.Collar.Solid); err != nil {
		return nil, err
	}
	if err := out.Parts.Define(PartStem, out.Stem.Solid); err != nil {
		return nil, err
	}
	if err := out.Parts.DefineFused(PartHandlebar, out.Handlebar.Solid, p.Assembly.FuseTolerance); err != nil {
		return nil, err
	}
	want := p.Assembly.ExpectedSolids
	if out.Assembly, err = NewComposer(pl.k, v, want, pl.log).Compose(out.Parts); err != nil {
		return nil, err
	}

	out.Report = v.Check("assembly", out.Assembly, want, insert.TagHead)
	for _, w := range out.Report.Warnings() {
		pl.log.Warn("check", zap.String("stage", w.Stage), zap.String("solid", w.Solid), zap.String("finding", w.Message))
	}
	if err := out.Report.Err(); err != nil {
		return out, err
	}
	pl.log.Info("assembly checked", zap.Int("solids", want))
	return out, nil
}

// Meshes tessellates every registered part, one mesh per part named after
// it.
func (pl *Pipeline) Meshes(ctx context.Context, out *Output) ([]*kernel.Mesh, error) {
	parts := lo.Map(out.Parts.Parts(), func(part *Part, _ int) tessellate.Part {
		return tessellate.Part{Name: part.Name, Volume: part.Solid.Volume()}
	})
	meshes, err := tessellate.Tessellate(ctx, pl.k, parts, tessellate.Options{Cells: pl.p.Export.MeshCells})
	if err != nil {
		return nil, err
	}
	for _, m := range meshes {
		pl.log.Debug("mesh", zap.String("part", m.Part), zap.Int("triangles", m.TriangleCount()))
	}
	return meshes, nil
}

// Export writes the parts to path as one binary STL.
func (pl *Pipeline) Export(ctx context.Context, out *Output, path string) error {
	if out == nil || out.Parts == nil || out.Parts.Len() == 0 {
		return errors.New("assembly: nothing to export")
	}
	meshes, err := pl.Meshes(ctx, out)
	if err != nil {
		return err
	}
	if err := tessellate.SaveSTL(path, meshes); err != nil {
		return err
	}
	pl.log.Info("exported", zap.String("path", path), zap.Strings("parts", out.Parts.Names()),
		zap.Int("triangles", lo.SumBy(meshes, func(m *kernel.Mesh) int { return m.TriangleCount() })))
	return nil
}

// Present shows the assembly in the viewer. Without a viewer, or when it
// fails, the parts are exported to path instead. It reports whether the
// viewer took the assembly.
func (pl *Pipeline) Present(ctx context.Context, out *Output, path string) (bool, error) {
	if pl.viewer == nil {
		pl.log.Warn("no viewer, exporting STL")
	} else {
		err := pl.viewer.Show(ctx, out.Parts.Parts(), out.Assembly.Joints())
		if err == nil {
			return true, nil
		}
		pl.log.Warn("viewer failed, exporting STL", zap.Error(err))
	}
	return false, pl.Export(ctx, out, path)
}
