package engine

import (
	"errors"
	"fmt"
	"time"
)

// EvalTimeout is the default limit for running one parameter script.
const EvalTimeout = 5 * time.Second

var (
	// ErrTimeout is returned when a script runs past the engine's limit.
	ErrTimeout = errors.New("script timed out")
	// ErrSuperseded is returned for a script whose result arrived after a
	// newer Evaluate call started.
	ErrSuperseded = errors.New("script superseded by a newer evaluation")
)

type evalResult struct {
	result *Result
	errors []EvalError
	err    error
}

// await collects the outcome of evaluation gen. The interpreter keeps
// running after a timeout and its late result is dropped by the buffered
// channel.
func await(ch <-chan evalResult, gen uint64, limit time.Duration, latest func() uint64) (*Result, []EvalError, error) {
	timer := time.NewTimer(limit)
	defer timer.Stop()

	select {
	case res := <-ch:
		if gen != latest() {
			return nil, nil, ErrSuperseded
		}
		return res.result, res.errors, res.err
	case <-timer.C:
		return nil, nil, fmt.Errorf("%w after %s", ErrTimeout, limit)
	}
}
