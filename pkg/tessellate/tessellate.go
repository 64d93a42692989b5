// Package tessellate meshes finished parts with a geometry kernel and
// writes them out as binary STL. One mesh is produced per part; parts are
// meshed concurrently and returned in input order.
package tessellate

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/chazu/stemmount/pkg/kernel"
	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	"golang.org/x/sync/errgroup"
)

// Part is one named volume to mesh.
type Part struct {
	Name   string
	Volume kernel.Volume
}

// Options tunes meshing.
type Options struct {
	// Cells is the marching cubes resolution along the longest side.
	Cells int
	// Workers bounds concurrent meshing; zero means GOMAXPROCS.
	Workers int
}

// Tessellate meshes every part. The tessellator is read-only and never
// mutates the parts. The first failure cancels the remaining work.
func Tessellate(ctx context.Context, k kernel.Kernel, parts []Part, opts Options) ([]*kernel.Mesh, error) {
	if len(parts) == 0 {
		return nil, nil
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	meshes := make([]*kernel.Mesh, len(parts))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, part := range parts {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if part.Volume == nil {
				return fmt.Errorf("tessellate: part %q has no volume", part.Name)
			}
			m, err := k.ToMesh(part.Volume, opts.Cells)
			if err != nil {
				return fmt.Errorf("tessellate: mesh %q: %w", part.Name, err)
			}
			m.Part = part.Name
			meshes[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return meshes, nil
}

// Triangles flattens the meshes into sdfx triangles, in mesh order.
func Triangles(meshes []*kernel.Mesh) []*sdf.Triangle3 {
	var n int
	for _, m := range meshes {
		n += m.TriangleCount()
	}
	out := make([]*sdf.Triangle3, 0, n)
	for _, m := range meshes {
		for t := 0; t < m.TriangleCount(); t++ {
			tri := sdf.Triangle3(m.Triangle(t))
			out = append(out, &tri)
		}
	}
	return out
}

// SaveSTL writes the meshes to path as one binary STL through sdfx. A
// partly written file is removed.
func SaveSTL(path string, meshes []*kernel.Mesh) error {
	tris := Triangles(meshes)
	if len(tris) == 0 {
		return fmt.Errorf("tessellate: no triangles to write to %s", path)
	}
	if err := render.SaveSTL(path, tris); err != nil {
		_ = os.Remove(path)
		return fmt.Errorf("tessellate: write %s: %w", path, err)
	}
	return nil
}
