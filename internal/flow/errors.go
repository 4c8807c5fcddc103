package flow

import (
	"fmt"
)

// SequenceAbort is returned when a step the flow cannot do without failed.
type SequenceAbort struct {
	Step string
	Err  error
}

func (e *SequenceAbort) Error() string {
	return fmt.Sprintf("flow aborted at step %s: %v", e.Step, e.Err)
}

func (e *SequenceAbort) Unwrap() error {
	return e.Err
}
