package flow

import (
	"context"
	"fmt"
	"time"

	"ddfeed/internal/components/assert"
	"ddfeed/internal/components/telemetry"
	"ddfeed/internal/scrapers/doordash"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
)

const (
	report_executor_step    = "executor.step"
	report_executor_metrics = "executor.metrics"
)

const (
	OutcomeSuccess   = "success"
	OutcomeFailure   = "failure"
	OutcomeSkipped   = "skipped"
	OutcomeTolerated = "tolerated"
)

// StepResult is what happened to a single step during a run.
type StepResult struct {
	Name     string
	Outcome  string
	Err      error
	Duration time.Duration
}

type Executor struct {
	steps []Step
	// lenient makes ContinueWithWarning steps tolerate every failure instead
	// of only "not found" failures.
	lenient bool

	tel      telemetry.API
	tracer   trace.Tracer
	outcomes metric.Int64Counter
}

func NewExecutor(steps []Step, lenient bool, tel telemetry.API) *Executor {
	assert.NotNil(tel)

	tel = telemetry.NewScopedAPI("flow", tel)

	outcomes, err := otel.Meter("ddfeed/flow").Int64Counter(
		"flow.step_outcomes",
		metric.WithDescription("Outcomes of flow steps."),
	)
	if err != nil {
		tel.ReportBroken(report_executor_metrics, fmt.Errorf("create counter: %w", err))
		outcomes = noop.Int64Counter{}
	}

	return &Executor{
		steps:    steps,
		lenient:  lenient,
		tel:      tel,
		tracer:   otel.Tracer("ddfeed/flow"),
		outcomes: outcomes,
	}
}

// Run executes the steps in order against the state. The only error it
// returns is a *SequenceAbort, the results of the steps that ran (including
// the aborting one) are returned either way.
func (e *Executor) Run(ctx context.Context, state *SessionState) ([]StepResult, error) {
	assert.NotNil(state)

	var results []StepResult
	for _, step := range e.steps {
		result, err := e.runStep(ctx, step, state)
		results = append(results, result)
		e.outcomes.Add(ctx, 1, metric.WithAttributes(
			attribute.String("step", step.Name),
			attribute.String("outcome", result.Outcome),
		))
		if err != nil {
			return results, err
		}
	}
	return results, nil
}

func (e *Executor) runStep(ctx context.Context, step Step, state *SessionState) (StepResult, error) {
	if step.When != nil && !step.When(state) {
		e.tel.ReportDebug(report_executor_step, "skipped", step.Name)
		return StepResult{Name: step.Name, Outcome: OutcomeSkipped}, nil
	}

	ctx, span := e.tracer.Start(ctx, "step:"+step.Name, trace.WithAttributes(
		attribute.String("step.policy", step.Policy.String()),
	))
	defer span.End()

	e.tel.ReportDebug(report_executor_step, "start", step.Name)
	start := time.Now()
	outcome := step.Execute(ctx, *state)
	result := StepResult{
		Name:     step.Name,
		Err:      outcome.Err,
		Duration: time.Since(start),
	}

	if outcome.Ok() {
		if step.Apply != nil {
			step.Apply(state, outcome.Value)
		}
		result.Outcome = OutcomeSuccess
		return result, nil
	}

	span.RecordError(outcome.Err)
	span.SetStatus(codes.Error, outcome.Err.Error())

	switch step.Policy {
	case Continue:
		e.tel.ReportWarning(report_executor_step, step.Name, outcome.Err)
		result.Outcome = OutcomeFailure
		return result, nil
	case ContinueWithWarning:
		if doordash.IsNotFound(outcome.Err) {
			e.tel.ReportWarning(report_executor_step, step.Name, outcome.Err)
			result.Outcome = OutcomeTolerated
			return result, nil
		}
		if e.lenient {
			e.tel.ReportBroken(report_executor_step, step.Name, outcome.Err)
			result.Outcome = OutcomeTolerated
			return result, nil
		}
	}

	e.tel.ReportBroken(report_executor_step, step.Name, outcome.Err)
	result.Outcome = OutcomeFailure
	return result, &SequenceAbort{Step: step.Name, Err: outcome.Err}
}
