package workflows

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/activity"
	sdktemporal "go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"

	"github.com/wms-platform/asrs-service/pkg/temporal"
)

func newEnv() *testsuite.TestWorkflowEnvironment {
	testSuite := &testsuite.WorkflowTestSuite{}
	env := testSuite.NewTestWorkflowEnvironment()
	env.RegisterActivityWithOptions(
		func(ctx context.Context, input RobotCommandInput) (*RobotCommandResult, error) { return nil, nil },
		activity.RegisterOptions{Name: temporal.ActivityNames.ExecuteRobotCommand},
	)
	return env
}

func TestRobotCommandWorkflowCompletes(t *testing.T) {
	env := newEnv()
	input := RobotCommandInput{CommandID: "CMD-1", RobotID: "R1", Type: "MOVE"}

	env.OnActivity(temporal.ActivityNames.ExecuteRobotCommand, mock.Anything, input).
		Return(&RobotCommandResult{CommandID: "CMD-1", Status: "COMPLETED"}, nil).Once()

	env.ExecuteWorkflow(RobotCommandWorkflow, input)

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var result RobotCommandResult
	require.NoError(t, env.GetWorkflowResult(&result))
	require.Equal(t, "COMPLETED", result.Status)
	env.AssertExpectations(t)
}

func TestRobotCommandWorkflowReportsFailedCommand(t *testing.T) {
	env := newEnv()
	input := RobotCommandInput{CommandID: "CMD-2", RobotID: "R1", Type: "PICK"}

	env.OnActivity(temporal.ActivityNames.ExecuteRobotCommand, mock.Anything, input).
		Return(&RobotCommandResult{CommandID: "CMD-2", Status: "FAILED", ErrorMessage: "insufficient stock"}, nil)

	env.ExecuteWorkflow(RobotCommandWorkflow, input)

	require.NoError(t, env.GetWorkflowError())
	var result RobotCommandResult
	require.NoError(t, env.GetWorkflowResult(&result))
	require.Equal(t, "FAILED", result.Status)
	require.Equal(t, "insufficient stock", result.ErrorMessage)
}

func TestRobotCommandWorkflowDoesNotRetry(t *testing.T) {
	env := newEnv()
	input := RobotCommandInput{CommandID: "CMD-3", RobotID: "R1", Type: "CALIBRATE"}

	calls := 0
	env.OnActivity(temporal.ActivityNames.ExecuteRobotCommand, mock.Anything, input).
		Return(func(ctx context.Context, in RobotCommandInput) (*RobotCommandResult, error) {
			calls++
			return nil, sdktemporal.NewApplicationError("store unavailable", "Unavailable")
		})

	env.ExecuteWorkflow(RobotCommandWorkflow, input)

	require.True(t, env.IsWorkflowCompleted())
	err := env.GetWorkflowError()
	require.Error(t, err)
	var appErr *sdktemporal.ApplicationError
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, 1, calls)
}
