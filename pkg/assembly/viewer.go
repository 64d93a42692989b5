package assembly

import (
	"context"

	"github.com/chazu/stemmount/pkg/feature"
)

// Viewer previews a finished assembly. It is optional; a missing or failing
// viewer never affects the build.
type Viewer interface {
	// Show displays the parts and, when supported, the joint frames.
	Show(ctx context.Context, parts []*Part, joints []feature.Joint) error
}

// ViewerFunc adapts a function to the Viewer interface.
type ViewerFunc func(ctx context.Context, parts []*Part, joints []feature.Joint) error

// Show calls f.
func (f ViewerFunc) Show(ctx context.Context, parts []*Part, joints []feature.Joint) error {
	return f(ctx, parts, joints)
}
