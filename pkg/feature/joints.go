package feature

import (
	"github.com/chazu/stemmount/pkg/geom"
	"github.com/chazu/stemmount/pkg/kernel"
	"go.uber.org/zap"
)

// WithJoint returns s with a joint added or replaced. A zero offset means
// the connected frames coincide.
func (b *Builder) WithJoint(s *Solid, name string, frame geom.Transform, offset geom.Transform) (*Solid, error) {
	if name == "" {
		return nil, kernel.Failed("joint", "empty joint name")
	}
	if frame.Mirrors() || offset.Mirrors() {
		return nil, kernel.Failed("joint", "joint frames must be right-handed")
	}
	if offset == (geom.Transform{}) {
		offset = geom.Identity()
	}
	joints := make(map[string]Joint, len(s.joints)+1)
	for k, j := range s.joints {
		joints[k] = j
	}
	joints[name] = Joint{Name: name, Frame: frame, Offset: offset}
	out := newSolid(s.name, s.vol, s.faces, s.edges, joints)
	b.log.Debug("joint", zap.String("solid", s.name), zap.String("joint", name), zap.Stringer("frame", frame))
	return out, nil
}

// Connect moves a copy of moving so that its joint movingJoint lands on
// fixed's joint fixedJoint, composed with the fixed joint's offset.
func (b *Builder) Connect(fixed *Solid, fixedJoint string, moving *Solid, movingJoint string) (*Solid, error) {
	jf, ok := fixed.Joint(fixedJoint)
	if !ok {
		return nil, kernel.Empty("connect", "no joint "+fixedJoint+" on "+fixed.name)
	}
	jm, ok := moving.Joint(movingJoint)
	if !ok {
		return nil, kernel.Empty("connect", "no joint "+movingJoint+" on "+moving.name)
	}
	t := jm.Frame.Inverse().Then(jf.Offset).Then(jf.Frame)
	out := b.Transform(moving, t)
	b.log.Debug("connect",
		zap.String("fixed", fixed.name+"."+fixedJoint),
		zap.String("moving", moving.name+"."+movingJoint))
	return out, nil
}
