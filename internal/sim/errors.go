package sim

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig indicates a timestep or policy that cannot drive a run.
	ErrInvalidConfig = errors.New("sim: invalid config")

	// ErrNoSeed indicates a simulator built without a sizing result.
	ErrNoSeed = errors.New("sim: no sizing result to seed the run")

	// ErrInvalidState indicates a step produced a non-finite or non-physical state.
	ErrInvalidState = errors.New("sim: invalid state")
)

// StepError reports the step at which a run failed.
type StepError struct {
	Step    int
	Time    float64
	Wrapped error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f): %v", e.Step, e.Time, e.Wrapped)
}

func (e *StepError) Unwrap() error {
	return e.Wrapped
}
