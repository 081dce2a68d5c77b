// Package temporal dispatches robot commands as Temporal workflows so they
// survive API restarts and run on dedicated workers.
package temporal

import (
	"context"
	"fmt"

	"go.temporal.io/sdk/client"

	"github.com/wms-platform/asrs-service/internal/domain"
	"github.com/wms-platform/asrs-service/internal/workflows"
	"github.com/wms-platform/asrs-service/pkg/logging"
	"github.com/wms-platform/asrs-service/pkg/metrics"
	"github.com/wms-platform/asrs-service/pkg/resilience"
	"github.com/wms-platform/asrs-service/pkg/temporal"
)

// WorkflowStarter starts workflow executions; *temporal.Client satisfies it
type WorkflowStarter interface {
	StartWorkflow(ctx context.Context, workflowID, taskQueue, workflowName string, args ...interface{}) (client.WorkflowRun, error)
}

// WorkflowID is the workflow ID of a command. Temporal rejects a second start
// with the same ID, so a command is never run twice.
func WorkflowID(commandID string) string {
	return "robot-command-" + commandID
}

// Dispatcher starts one RobotCommandWorkflow per command
type Dispatcher struct {
	starter   WorkflowStarter
	breaker   *resilience.CircuitBreaker
	taskQueue string
	metrics   *metrics.Metrics
	logger    *logging.Logger
}

// NewDispatcher creates a new Dispatcher. breaker may be nil.
func NewDispatcher(starter WorkflowStarter, breaker *resilience.CircuitBreaker, logger *logging.Logger) *Dispatcher {
	return &Dispatcher{
		starter:   starter,
		breaker:   breaker,
		taskQueue: temporal.TaskQueues.RobotCommands,
		logger:    logger.WithComponent("temporal-dispatcher"),
	}
}

// WithTaskQueue routes workflows to queue instead of the default robot
// command queue. Workers must poll the same queue.
func (d *Dispatcher) WithTaskQueue(queue string) *Dispatcher {
	if queue != "" {
		d.taskQueue = queue
	}
	return d
}

// WithMetrics counts started workflows on m
func (d *Dispatcher) WithMetrics(m *metrics.Metrics) *Dispatcher {
	d.metrics = m
	return d
}

// Dispatch starts the command workflow
func (d *Dispatcher) Dispatch(ctx context.Context, cmd *domain.Command) error {
	input := workflows.RobotCommandInput{
		CommandID: cmd.ID,
		RobotID:   cmd.RobotID,
		Type:      string(cmd.Type),
	}

	start := func() (interface{}, error) {
		return d.starter.StartWorkflow(ctx, WorkflowID(cmd.ID), d.taskQueue,
			temporal.WorkflowNames.RobotCommand, input)
	}

	var (
		res interface{}
		err error
	)
	if d.breaker != nil {
		res, err = d.breaker.Execute(ctx, start)
	} else {
		res, err = start()
	}
	if err != nil {
		return fmt.Errorf("failed to start workflow for command %s: %w", cmd.ID, err)
	}

	if run, ok := res.(client.WorkflowRun); ok && run != nil {
		d.logger.WorkflowStart(ctx, temporal.WorkflowNames.RobotCommand, run.GetID())
	}
	if d.metrics != nil {
		d.metrics.RecordWorkflowStarted(temporal.WorkflowNames.RobotCommand)
	}
	return nil
}
