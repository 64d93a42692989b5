// Package assembly registers the finished parts, joins them into one body
// and checks the result before it is shown or exported.
package assembly

import (
	"fmt"

	"github.com/chazu/stemmount/pkg/feature"
	"github.com/samber/lo"
)

// Part names used for registration and export.
const (
	PartCollar    = "collar"
	PartStem      = "stem"
	PartHandlebar = "handlebar"
)

// Part is one finished solid registered under a name.
type Part struct {
	Name  string
	Solid *feature.Solid
	// Tol is the fuse tolerance used to join the part onto the parts
	// before it; zero means a plain union.
	Tol float64
}

// Registry keeps named parts in definition order.
type Registry struct {
	parts map[string]*Part
	order []string
}

// NewRegistry creates a new empty part registry.
func NewRegistry() *Registry {
	return &Registry{parts: make(map[string]*Part)}
}

// Define registers a part. Names are unique.
func (r *Registry) Define(name string, s *feature.Solid) error {
	return r.define(&Part{Name: name, Solid: s})
}

// DefineFused registers a part that is joined onto the earlier parts with
// a smooth blend bridging gaps up to tol.
func (r *Registry) DefineFused(name string, s *feature.Solid, tol float64) error {
	if tol <= 0 {
		return fmt.Errorf("assembly: part '%s' needs a positive fuse tolerance, got %g", name, tol)
	}
	return r.define(&Part{Name: name, Solid: s, Tol: tol})
}

func (r *Registry) define(part *Part) error {
	if part.Name == "" {
		return fmt.Errorf("assembly: part name is empty")
	}
	if part.Solid == nil {
		return fmt.Errorf("assembly: part '%s' has no solid", part.Name)
	}
	if _, exists := r.parts[part.Name]; exists {
		return fmt.Errorf("assembly: part '%s' already defined", part.Name)
	}
	r.parts[part.Name] = part
	r.order = append(r.order, part.Name)
	return nil
}

// Get returns a part by name.
func (r *Registry) Get(name string) (*Part, error) {
	part, exists := r.parts[name]
	if !exists {
		return nil, fmt.Errorf("assembly: part '%s' not found", name)
	}
	return part, nil
}

// Names lists the part names in definition order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Parts lists the parts in definition order.
func (r *Registry) Parts() []*Part {
	return lo.Map(r.order, func(name string, _ int) *Part { return r.parts[name] })
}

// Len is the number of defined parts.
func (r *Registry) Len() int { return len(r.order) }
