package sdfx

import (
	"math"
	"runtime"
	"sync"

	"github.com/chazu/stemmount/pkg/geom"
	"github.com/chazu/stemmount/pkg/kernel"
)

// maxComponentCells bounds the voxel grid used to count solids.
const maxComponentCells = 64 << 20

// voxels is a solid/empty grid split into z slabs so that slabs can be
// classified concurrently.
type voxels struct {
	nx, ny, nz int
	depth      int // z layers per slab
	origin     geom.Vec
	cell       float64
	slabs      [][]uint64
}

func (g *voxels) local(i, j, k int) (slab, bit int) {
	s := k / g.depth
	return s, ((k-s*g.depth)*g.ny+j)*g.nx + i
}

func (g *voxels) set(i, j, k int) {
	s, b := g.local(i, j, k)
	g.slabs[s][b>>6] |= 1 << (b & 63)
}

func (g *voxels) solid(i, j, k int) bool {
	s, b := g.local(i, j, k)
	return g.slabs[s][b>>6]&(1<<(b&63)) != 0
}

func (g *voxels) center(i, j, k float64) geom.Vec {
	return g.origin.Add(geom.V(i+0.5, j+0.5, k+0.5).MulScalar(g.cell))
}

// classify marks the solid cells of the block [i0,i1)x[j0,j1)x[k0,k1).
// Blocks whose centre lies farther from the surface than their half
// diagonal are settled with one evaluation.
func (g *voxels) classify(v kernel.Volume, i0, i1, j0, j1, k0, k1 int) {
	di, dj, dk := i1-i0, j1-j0, k1-k0
	if di == 1 && dj == 1 && dk == 1 {
		if v.Distance(g.center(float64(i0), float64(j0), float64(k0))) < 0 {
			g.set(i0, j0, k0)
		}
		return
	}
	c := g.center(float64(i0)+float64(di-1)/2, float64(j0)+float64(dj-1)/2, float64(k0)+float64(dk-1)/2)
	half := 0.5 * g.cell * math.Sqrt(float64((di-1)*(di-1)+(dj-1)*(dj-1)+(dk-1)*(dk-1)))
	d := v.Distance(c)
	switch {
	case d > half:
		return
	case d < -half-1e-9:
		for k := k0; k < k1; k++ {
			for j := j0; j < j1; j++ {
				for i := i0; i < i1; i++ {
					g.set(i, j, k)
				}
			}
		}
		return
	}
	switch {
	case di >= dj && di >= dk:
		m := i0 + di/2
		g.classify(v, i0, m, j0, j1, k0, k1)
		g.classify(v, m, i1, j0, j1, k0, k1)
	case dj >= dk:
		m := j0 + dj/2
		g.classify(v, i0, i1, j0, m, k0, k1)
		g.classify(v, i0, i1, m, j1, k0, k1)
	default:
		m := k0 + dk/2
		g.classify(v, i0, i1, j0, j1, k0, m)
		g.classify(v, i0, i1, j0, j1, m, k1)
	}
}

// Components counts the 6-connected solid regions of a volume sampled on a
// grid of the given cell size.
func (k *SdfxKernel) Components(v kernel.Volume, cell float64) (int, error) {
	if cell <= 0 {
		return 0, kernel.Failed("components", "non-positive cell size", kernel.A("cell", cell))
	}
	bb := v.Bounds()
	if bb.IsEmpty() {
		return 0, nil
	}
	bb = bb.Expand(cell)
	size := bb.Size()
	if size.X >= farBound || size.Y >= farBound || size.Z >= farBound {
		return 0, kernel.Failed("components", "volume is unbounded", kernel.A("cell", cell))
	}
	g := &voxels{
		nx:     int(math.Ceil(size.X / cell)),
		ny:     int(math.Ceil(size.Y / cell)),
		nz:     int(math.Ceil(size.Z / cell)),
		origin: bb.Min,
		cell:   cell,
	}
	total := g.nx * g.ny * g.nz
	if total > maxComponentCells {
		return 0, kernel.Failed("components", "grid too fine", kernel.A("cell", cell), kernel.A("cells", float64(total)))
	}

	workers := runtime.GOMAXPROCS(0)
	g.depth = (g.nz + workers - 1) / workers
	words := (g.nx*g.ny*g.depth + 63) / 64
	for k0 := 0; k0 < g.nz; k0 += g.depth {
		g.slabs = append(g.slabs, make([]uint64, words))
	}
	var wg sync.WaitGroup
	for k0 := 0; k0 < g.nz; k0 += g.depth {
		k1 := min(k0+g.depth, g.nz)
		wg.Add(1)
		go func() {
			defer wg.Done()
			g.classify(v, 0, g.nx, 0, g.ny, k0, k1)
		}()
	}
	wg.Wait()

	return g.count(), nil
}

// count labels 6-connected regions with a flood fill.
func (g *voxels) count() int {
	seen := make([]uint64, (g.nx*g.ny*g.nz+63)/64)
	index := func(i, j, k int) int { return (k*g.ny+j)*g.nx + i }
	var queue [][3]int
	n := 0
	for k := 0; k < g.nz; k++ {
		for j := 0; j < g.ny; j++ {
			for i := 0; i < g.nx; i++ {
				id := index(i, j, k)
				if seen[id>>6]&(1<<(id&63)) != 0 || !g.solid(i, j, k) {
					continue
				}
				n++
				seen[id>>6] |= 1 << (id & 63)
				queue = append(queue[:0], [3]int{i, j, k})
				for len(queue) > 0 {
					c := queue[len(queue)-1]
					queue = queue[:len(queue)-1]
					for _, d := range [6][3]int{{1, 0, 0}, {-1, 0, 0}, {0, 1, 0}, {0, -1, 0}, {0, 0, 1}, {0, 0, -1}} {
						x, y, z := c[0]+d[0], c[1]+d[1], c[2]+d[2]
						if x < 0 || y < 0 || z < 0 || x >= g.nx || y >= g.ny || z >= g.nz {
							continue
						}
						nid := index(x, y, z)
						if seen[nid>>6]&(1<<(nid&63)) != 0 || !g.solid(x, y, z) {
							continue
						}
						seen[nid>>6] |= 1 << (nid & 63)
						queue = append(queue, [3]int{x, y, z})
					}
				}
			}
		}
	}
	return n
}
