package kernel

import (
	"errors"
	"fmt"
	"strings"
)

// Error taxonomy. Every pipeline failure wraps exactly one of these; none of
// them is retried.
var (
	ErrSelectionEmpty           = errors.New("selection empty")
	ErrGeometryOperationFailed  = errors.New("geometry operation failed")
	ErrInvalidOverhang          = errors.New("invalid overhang")
	ErrAssemblyTopologyMismatch = errors.New("assembly topology mismatch")
)

// Arg is one named numeric input of a failed operation.
type Arg struct {
	Name  string
	Value float64
}

// A is shorthand for an Arg.
func A(name string, v float64) Arg { return Arg{Name: name, Value: v} }

// OpError reports the stage, operation and numeric inputs of a failure.
type OpError struct {
	Stage  string
	Op     string
	Args   []Arg
	Reason string
	Err    error
}

func (e *OpError) Error() string {
	var b strings.Builder
	if e.Stage != "" {
		b.WriteString(e.Stage)
		b.WriteString(": ")
	}
	b.WriteString(e.Op)
	b.WriteString("(")
	for i, a := range e.Args {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s=%g", a.Name, a.Value)
	}
	b.WriteString(")")
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *OpError) Unwrap() error { return e.Err }

// Failed builds a GeometryOperationFailed error.
func Failed(op, reason string, args ...Arg) error {
	return &OpError{Op: op, Args: args, Reason: reason, Err: ErrGeometryOperationFailed}
}

// Empty builds a SelectionEmpty error.
func Empty(op, reason string, args ...Arg) error {
	return &OpError{Op: op, Args: args, Reason: reason, Err: ErrSelectionEmpty}
}

// Mismatch builds an AssemblyTopologyMismatch error for a solid count.
func Mismatch(op string, want, got int) error {
	return &OpError{
		Op:     op,
		Args:   []Arg{A("want", float64(want)), A("got", float64(got))},
		Reason: "unexpected solid count",
		Err:    ErrAssemblyTopologyMismatch,
	}
}

// Overhang builds an InvalidOverhang error.
func Overhang(op, reason string, args ...Arg) error {
	return &OpError{Op: op, Args: args, Reason: reason, Err: ErrInvalidOverhang}
}

// WithStage records the pipeline stage on an OpError that has none yet.
// Other errors are wrapped with the stage as a prefix.
func WithStage(err error, stage string) error {
	if err == nil {
		return nil
	}
	var oe *OpError
	if errors.As(err, &oe) && oe.Stage == "" {
		oe.Stage = stage
		return err
	}
	return fmt.Errorf("%s: %w", stage, err)
}
