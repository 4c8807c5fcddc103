package flow

import (
	"context"
	"errors"
	"testing"

	"ddfeed/internal/components/telemetry"

	"github.com/stretchr/testify/require"
)

func TestExecutorPolicies(t *testing.T) {
	failing := errors.New("boom")
	applied := []string{}

	apply := func(name string) func(*SessionState, any) {
		return func(state *SessionState, value any) {
			applied = append(applied, name)
			state.FeedLabel = value.(string)
		}
	}

	steps := []Step{
		{
			Name:   "first",
			Policy: Abort,
			Execute: func(ctx context.Context, state SessionState) Outcome {
				return Success("first")
			},
			Apply: apply("first"),
		},
		{
			Name:   "continue",
			Policy: Continue,
			Execute: func(ctx context.Context, state SessionState) Outcome {
				state.FeedLabel = "mutated copy"
				return Outcome{Value: "continue", Err: failing}
			},
			Apply: apply("continue"),
		},
		{
			Name:   "guarded",
			Policy: Abort,
			When: func(state *SessionState) bool {
				return state.FeedLabel == "never"
			},
			Execute: func(ctx context.Context, state SessionState) Outcome {
				panic("guarded step executed")
			},
		},
		{
			Name:   "abort",
			Policy: Abort,
			Execute: func(ctx context.Context, state SessionState) Outcome {
				return Failure(failing)
			},
		},
		{
			Name:   "after",
			Policy: Abort,
			Execute: func(ctx context.Context, state SessionState) Outcome {
				panic("step after abort executed")
			},
		},
	}

	state := NewSessionState()
	rec := &telemetry.Recorder{}
	results, err := NewExecutor(steps, false, rec).Run(context.Background(), state)

	var abort *SequenceAbort
	require.ErrorAs(t, err, &abort)
	require.Equal(t, "abort", abort.Step)
	require.ErrorIs(t, err, failing)

	require.Equal(t, []string{"first"}, applied)
	require.Equal(t, "first", state.FeedLabel)

	require.Len(t, results, 4)
	require.Equal(t, OutcomeSuccess, results[0].Outcome)
	require.Equal(t, OutcomeFailure, results[1].Outcome)
	require.ErrorIs(t, results[1].Err, failing)
	require.Equal(t, OutcomeSkipped, results[2].Outcome)
	require.Equal(t, OutcomeFailure, results[3].Outcome)

	require.True(t, rec.Has(telemetry.REPORT_WARNING, report_executor_step))
	require.True(t, rec.Has(telemetry.REPORT_BROKEN, report_executor_step))
}

func TestExecutorContinueWithWarningNonNotFound(t *testing.T) {
	steps := []Step{{
		Name:   "set-default",
		Policy: ContinueWithWarning,
		Execute: func(ctx context.Context, state SessionState) Outcome {
			return Failure(errors.New("conflict"))
		},
	}}

	_, err := NewExecutor(steps, false, &telemetry.Recorder{}).Run(context.Background(), NewSessionState())
	require.Error(t, err)

	results, err := NewExecutor(steps, true, &telemetry.Recorder{}).Run(context.Background(), NewSessionState())
	require.NoError(t, err)
	require.Equal(t, OutcomeTolerated, results[0].Outcome)
}

func TestSessionStateAccessorsPanicWhenUnset(t *testing.T) {
	state := NewSessionState()

	require.Panics(t, func() { state.Credential() })
	require.Panics(t, func() { state.Coords() })
	require.Panics(t, func() { state.RequirePlaceId() })
	require.Panics(t, func() { state.RequireAddressId() })
	require.Panics(t, func() { state.requireFeedPrerequisites() })

	require.False(t, state.HasCredential())
	require.False(t, state.HasCoords())
	require.Empty(t, state.Session().Credential)
	require.NotEmpty(t, state.Session().Identity.SessionId)
}

func TestPolicyString(t *testing.T) {
	require.Equal(t, "abort", Abort.String())
	require.Equal(t, "continue", Continue.String())
	require.Equal(t, "continue-with-warning", ContinueWithWarning.String())
	require.Equal(t, "policy(9)", Policy(9).String())
}
