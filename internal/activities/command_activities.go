package activities

import (
	"context"
	"errors"
	"time"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/wms-platform/asrs-service/internal/domain"
	"github.com/wms-platform/asrs-service/internal/workflows"
	"github.com/wms-platform/asrs-service/pkg/logging"
	"github.com/wms-platform/asrs-service/pkg/metrics"
)

// CommandRunner executes one stored command to a terminal status
type CommandRunner interface {
	Execute(ctx context.Context, commandID string) (*domain.Command, error)
}

// CommandActivities contains the robot command activities
type CommandActivities struct {
	runner  CommandRunner
	metrics *metrics.Metrics
	logger  *logging.Logger
}

// NewCommandActivities creates a new CommandActivities instance
func NewCommandActivities(runner CommandRunner, logger *logging.Logger) *CommandActivities {
	return &CommandActivities{
		runner: runner,
		logger: logger.WithComponent("command-activities"),
	}
}

// WithMetrics records activity outcomes on m
func (a *CommandActivities) WithMetrics(m *metrics.Metrics) *CommandActivities {
	a.metrics = m
	return a
}

// ExecuteRobotCommand runs the command. A command that fails on the floor is
// a normal result; errors are reserved for commands that could not be run,
// and those are never retried.
func (a *CommandActivities) ExecuteRobotCommand(ctx context.Context, input workflows.RobotCommandInput) (*workflows.RobotCommandResult, error) {
	info := activity.GetInfo(ctx)
	start := time.Now()

	cmd, err := a.runner.Execute(ctx, input.CommandID)
	if a.metrics != nil {
		a.metrics.RecordActivityCompleted(info.ActivityType.Name, cmd != nil && cmd.Status == domain.CommandStatusCompleted, time.Since(start))
	}
	if cmd == nil {
		a.logger.WithError(err).Error("Command rejected", "commandId", input.CommandID)
		errType := "CommandRejected"
		if errors.Is(err, domain.ErrNotFound) {
			errType = "CommandNotFound"
		}
		return nil, temporal.NewNonRetryableApplicationError(err.Error(), errType, err)
	}

	result := &workflows.RobotCommandResult{
		CommandID:    cmd.ID,
		Status:       string(cmd.Status),
		ErrorMessage: cmd.ErrorMessage,
	}
	a.logger.ActivityComplete(ctx, info.ActivityType.Name, time.Since(start), err == nil)
	return result, nil
}
