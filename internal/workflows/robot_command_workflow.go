package workflows

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/workflow"

	"github.com/wms-platform/asrs-service/pkg/temporal"
)

// RobotCommandTimeout bounds one command execution
const RobotCommandTimeout = 10 * time.Minute

// RobotCommandInput identifies the command to run
type RobotCommandInput struct {
	CommandID string `json:"commandId"`
	RobotID   string `json:"robotId"`
	Type      string `json:"type"`
}

// RobotCommandResult is the terminal state of a command
type RobotCommandResult struct {
	CommandID    string `json:"commandId"`
	Status       string `json:"status"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

// RobotCommandWorkflow executes one robot command exactly once. A command
// that fails on the floor completes the workflow with a FAILED result; the
// workflow itself only fails when the command could not be run at all.
func RobotCommandWorkflow(ctx workflow.Context, input RobotCommandInput) (*RobotCommandResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting robot command workflow", "commandId", input.CommandID, "robotId", input.RobotID, "type", input.Type)

	ao := workflow.ActivityOptions{
		StartToCloseTimeout: RobotCommandTimeout,
		RetryPolicy:         temporal.NoRetryPolicy(),
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	var result RobotCommandResult
	err := workflow.ExecuteActivity(ctx, temporal.ActivityNames.ExecuteRobotCommand, input).Get(ctx, &result)
	if err != nil {
		logger.Error("Robot command could not be executed", "commandId", input.CommandID, "error", err)
		return nil, fmt.Errorf("failed to execute command %s: %w", input.CommandID, err)
	}

	logger.Info("Robot command finished", "commandId", input.CommandID, "status", result.Status)
	return &result, nil
}
