package flow

import (
	"context"
	"fmt"
)

// Policy decides what happens to the flow when a step fails.
type Policy int

const (
	// Abort stops the flow.
	Abort Policy = iota
	// Continue reports the failure and moves on with the state unchanged.
	Continue
	// ContinueWithWarning tolerates a "not found" failure, anything else
	// aborts unless the executor is lenient.
	ContinueWithWarning
)

func (p Policy) String() string {
	switch p {
	case Abort:
		return "abort"
	case Continue:
		return "continue"
	case ContinueWithWarning:
		return "continue-with-warning"
	}
	return fmt.Sprintf("policy(%d)", int(p))
}

// Outcome is the result of executing a step, it is a success when Err is nil.
type Outcome struct {
	Value any
	Err   error
}

func Success(value any) Outcome {
	return Outcome{Value: value}
}

func Failure(err error) Outcome {
	return Outcome{Err: err}
}

// FromErr is a success without a value when err is nil.
func FromErr(err error) Outcome {
	return Outcome{Err: err}
}

func (o Outcome) Ok() bool {
	return o.Err == nil
}

// Step is a named operation of a flow.
//
// Execute receives a copy of the state and must not change it, Apply is
// called with the outcome's value only when Execute succeeded. This keeps
// the state untouched by failed steps.
type Step struct {
	Name   string
	Policy Policy
	// When is an optional guard, the step is skipped when it returns false.
	When    func(state *SessionState) bool
	Execute func(ctx context.Context, state SessionState) Outcome
	Apply   func(state *SessionState, value any)
}
