// Package selector picks faces and edges of a Solid with ranked geometric
// predicates: filter by tag, kind or direction, sort along an axis or by
// size, group by position or size, and combine selections with union and
// difference. Lists are plain slices in a fixed order, so running the same
// chain against the same Solid always yields the same elements.
//
// Selections belong to one Solid generation. Take them again after every
// operation that returns a new Solid.
package selector

import (
	"math"
	"slices"

	"github.com/chazu/stemmount/pkg/feature"
	"github.com/chazu/stemmount/pkg/geom"
	"github.com/chazu/stemmount/pkg/kernel"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

// Element is a selectable boundary feature.
type Element interface {
	feature.Face | feature.Edge
}

// List is an ordered selection.
type List[T Element] []T

// Faces starts a selection with every face of s in index order.
func Faces(s *feature.Solid) List[feature.Face] { return s.Faces() }

// Edges starts a selection with every edge of s in index order.
func Edges(s *feature.Solid) List[feature.Edge] { return s.Edges() }

type key struct {
	owner uuid.UUID
	index int
}

func keyOf[T Element](v T) key {
	switch x := any(v).(type) {
	case feature.Face:
		return key{x.Owner, x.Index}
	case feature.Edge:
		return key{x.Owner, x.Index}
	}
	panic("unreachable")
}

// position is the face center or edge midpoint.
func position[T Element](v T) geom.Vec {
	switch x := any(v).(type) {
	case feature.Face:
		return x.Center
	case feature.Edge:
		return x.Midpoint()
	}
	panic("unreachable")
}

// size is the face area or edge length.
func size[T Element](v T) float64 {
	switch x := any(v).(type) {
	case feature.Face:
		return x.Area
	case feature.Edge:
		return x.Length
	}
	panic("unreachable")
}

func tags[T Element](v T) []string {
	switch x := any(v).(type) {
	case feature.Face:
		return x.Tags
	case feature.Edge:
		return x.Tags
	}
	panic("unreachable")
}

// ----------------------------------------------------------------------------
// Filters
// ----------------------------------------------------------------------------

// Filter keeps the elements for which keep returns true.
func (l List[T]) Filter(keep func(T) bool) List[T] {
	return lo.Filter(l, func(v T, _ int) bool { return keep(v) })
}

// Tagged keeps elements carrying every given tag.
func (l List[T]) Tagged(want ...string) List[T] {
	return l.Filter(func(v T) bool {
		have := tags(v)
		return lo.EveryBy(want, func(t string) bool { return slices.Contains(have, t) })
	})
}

// Untagged drops elements carrying any of the given tags.
func (l List[T]) Untagged(drop ...string) List[T] {
	return l.Filter(func(v T) bool {
		return !lo.SomeBy(drop, func(t string) bool { return slices.Contains(tags(v), t) })
	})
}

// Within keeps elements whose position lies in box b (grown by tol).
func (l List[T]) Within(b geom.Box, tol float64) List[T] {
	return l.Filter(func(v T) bool { return b.Contains(position(v), tol) })
}

// ----------------------------------------------------------------------------
// Ordering and grouping
// ----------------------------------------------------------------------------

// SortBy orders elements by the projection of their position on axis.
// Ties keep index order.
func (l List[T]) SortBy(axis geom.Vec) List[T] {
	axis = geom.Unit(axis)
	return l.sorted(func(v T) float64 { return position(v).Dot(axis) })
}

// SortBySize orders elements by area (faces) or length (edges).
func (l List[T]) SortBySize() List[T] { return l.sorted(size[T]) }

func (l List[T]) sorted(by func(T) float64) List[T] {
	out := slices.Clone(l)
	slices.SortStableFunc(out, func(a, b T) int {
		da, db := by(a), by(b)
		switch {
		case da < db-1e-9:
			return -1
		case da > db+1e-9:
			return 1
		}
		return keyOf(a).index - keyOf(b).index
	})
	return out
}

// GroupBy splits the list into runs of elements whose positions along axis
// lie within tol of their neighbours, ordered along axis.
func (l List[T]) GroupBy(axis geom.Vec, tol float64) Groups[T] {
	axis = geom.Unit(axis)
	return l.group(func(v T) float64 { return position(v).Dot(axis) }, tol)
}

// GroupBySize splits the list into runs of similar area or length, smallest
// first.
func (l List[T]) GroupBySize(tol float64) Groups[T] { return l.group(size[T], tol) }

func (l List[T]) group(by func(T) float64, tol float64) Groups[T] {
	var out Groups[T]
	last := math.Inf(-1)
	for _, v := range l.sorted(by) {
		d := by(v)
		if len(out) == 0 || d-last > tol {
			out = append(out, nil)
		}
		out[len(out)-1] = append(out[len(out)-1], v)
		last = d
	}
	return out
}

// Groups is an ordered list of selections.
type Groups[T Element] []List[T]

// First returns the lowest group.
func (g Groups[T]) First() (List[T], error) { return g.At(0) }

// Last returns the highest group.
func (g Groups[T]) Last() (List[T], error) { return g.At(len(g) - 1) }

// At returns group i; negative i counts from the end.
func (g Groups[T]) At(i int) (List[T], error) {
	if i < 0 {
		i += len(g)
	}
	if i < 0 || i >= len(g) {
		return nil, kernel.Empty("group", "no such group", kernel.A("index", float64(i)), kernel.A("groups", float64(len(g))))
	}
	return g[i], nil
}

// Flatten joins the groups back into one list.
func (g Groups[T]) Flatten() List[T] { return lo.Flatten(g) }

// ----------------------------------------------------------------------------
// Set algebra
// ----------------------------------------------------------------------------

// Union adds the elements of o not already present.
func (l List[T]) Union(o List[T]) List[T] {
	return lo.UniqBy(append(slices.Clone(l), o...), keyOf[T])
}

// Minus drops the elements present in o.
func (l List[T]) Minus(o List[T]) List[T] {
	drop := lo.SliceToMap(o, func(v T) (key, bool) { return keyOf(v), true })
	return l.Filter(func(v T) bool { return !drop[keyOf(v)] })
}

// ----------------------------------------------------------------------------
// Terminal picks
// ----------------------------------------------------------------------------

// First returns the first element.
func (l List[T]) First() (T, error) {
	if len(l) == 0 {
		var zero T
		return zero, kernel.Empty("first", "selection is empty")
	}
	return l[0], nil
}

// Last returns the last element.
func (l List[T]) Last() (T, error) {
	if len(l) == 0 {
		var zero T
		return zero, kernel.Empty("last", "selection is empty")
	}
	return l[len(l)-1], nil
}

// Head returns the first n elements.
func (l List[T]) Head(n int) (List[T], error) {
	if n <= 0 || len(l) < n {
		return nil, kernel.Empty("head", "selection is too short", kernel.A("want", float64(n)), kernel.A("have", float64(len(l))))
	}
	return l[:n], nil
}

// Tail returns the last n elements.
func (l List[T]) Tail(n int) (List[T], error) {
	if n <= 0 || len(l) < n {
		return nil, kernel.Empty("tail", "selection is too short", kernel.A("want", float64(n)), kernel.A("have", float64(len(l))))
	}
	return l[len(l)-n:], nil
}

// NonEmpty returns the list, or SelectionEmpty when there is nothing in it.
func (l List[T]) NonEmpty(what string) (List[T], error) {
	if len(l) == 0 {
		return nil, kernel.Empty("select", what+": selection is empty")
	}
	return l, nil
}

// Exactly returns the list when it holds n elements. An empty list is
// SelectionEmpty; any other wrong count is GeometryOperationFailed.
func (l List[T]) Exactly(what string, n int) (List[T], error) {
	switch {
	case len(l) == 0:
		return nil, kernel.Empty("select", what+": selection is empty", kernel.A("want", float64(n)))
	case len(l) != n:
		return nil, kernel.Failed("select", what+": unexpected element count", kernel.A("want", float64(n)), kernel.A("have", float64(len(l))))
	}
	return l, nil
}
