package application

import (
	"context"
	"fmt"
	"time"

	"github.com/wms-platform/asrs-service/internal/domain"
	"github.com/wms-platform/asrs-service/pkg/logging"
)

// CommandDispatcher hands a scheduled command to whatever runs it
type CommandDispatcher interface {
	Dispatch(ctx context.Context, cmd *domain.Command) error
}

// TaskScheduler admits commands for robots. A robot holds at most one
// non-terminal command; the reservation is a compare-and-swap on its status.
type TaskScheduler struct {
	robots     domain.RobotRepository
	commands   domain.CommandRepository
	publisher  domain.EventPublisher
	locker     domain.Locker
	dispatcher CommandDispatcher
	lockTTL    time.Duration
	logger     *logging.Logger
}

// NewTaskScheduler creates a new TaskScheduler
func NewTaskScheduler(
	robots domain.RobotRepository,
	commands domain.CommandRepository,
	publisher domain.EventPublisher,
	locker domain.Locker,
	dispatcher CommandDispatcher,
	lockTTL time.Duration,
	logger *logging.Logger,
) *TaskScheduler {
	if lockTTL <= 0 {
		lockTTL = DefaultLockTTL
	}
	return &TaskScheduler{
		robots:     robots,
		commands:   commands,
		publisher:  publisher,
		locker:     locker,
		dispatcher: dispatcher,
		lockTTL:    lockTTL,
		logger:     logger.WithComponent("scheduler"),
	}
}

// SetDispatcher replaces the dispatcher; used when the dispatcher is built
// after the scheduler.
func (s *TaskScheduler) SetDispatcher(d CommandDispatcher) {
	s.dispatcher = d
}

// Schedule validates, reserves the robot, stores the PENDING command, and
// dispatches it.
func (s *TaskScheduler) Schedule(ctx context.Context, cmd ScheduleCommand) (*domain.Command, error) {
	commandType, err := domain.ParseCommandType(cmd.Type)
	if err != nil {
		return nil, err
	}
	if err := cmd.Parameters.Validate(commandType); err != nil {
		return nil, err
	}

	release, err := acquireLocks(ctx, s.locker, []string{domain.RobotLockKey(cmd.RobotID)}, s.lockTTL, s.logger)
	if err != nil {
		return nil, &domain.RobotUnavailableError{RobotID: cmd.RobotID, Reason: "robot is locked by another request"}
	}
	defer release()

	robot, err := s.robots.FindByID(ctx, cmd.RobotID)
	if err != nil {
		return nil, err
	}
	if !robot.Status.AcceptsCommands() {
		return nil, &domain.RobotUnavailableError{RobotID: robot.ID, Status: robot.Status}
	}

	command := domain.NewCommand(robot.ID, commandType, cmd.Parameters, cmd.RequestedBy)
	command.PlanID = cmd.PlanID

	reserved, err := s.robots.CompareAndSwapStatus(ctx, robot.ID, domain.RobotStatusIdle, domain.RobotStatusWorking, command.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to reserve robot: %w", err)
	}
	if !reserved {
		return nil, &domain.RobotUnavailableError{
			RobotID: robot.ID,
			Status:  robot.Status,
			Reason:  "busy with command " + robot.CurrentCommandID,
		}
	}

	if err := s.commands.Create(ctx, command); err != nil {
		s.logger.WithError(err).Error("Failed to create command", "commandId", command.ID, "robotId", robot.ID)
		s.releaseRobot(ctx, robot.ID, command.ID)
		return nil, fmt.Errorf("failed to create command: %w", err)
	}

	now := time.Now().UTC()
	if err := s.publisher.Publish(ctx,
		&domain.CommandScheduledEvent{
			CommandID:   command.ID,
			RobotID:     robot.ID,
			Type:        command.Type,
			RequestedBy: command.RequestedBy,
			ScheduledAt: now,
		},
		&domain.RobotStatusChangedEvent{
			RobotID:   robot.ID,
			From:      domain.RobotStatusIdle,
			To:        domain.RobotStatusWorking,
			CommandID: command.ID,
			ChangedAt: now,
		},
	); err != nil {
		s.logger.WithError(err).Warn("Failed to record schedule events", "commandId", command.ID)
	}

	if err := s.dispatcher.Dispatch(ctx, command); err != nil {
		s.logger.WithError(err).Error("Failed to dispatch command", "commandId", command.ID)
		s.withdraw(ctx, command)
		return nil, fmt.Errorf("failed to dispatch command %s: %w", command.ID, err)
	}

	s.logger.LogBusinessEvent(ctx, logging.BusinessEvent{
		EventType:  "command.scheduled",
		EntityType: "command",
		EntityID:   command.ID,
		Action:     "scheduled",
		RelatedIDs: map[string]string{
			"robotId": robot.ID,
			"type":    string(command.Type),
		},
	})

	return command, nil
}

// releaseRobot undoes the reservation held for commandID
func (s *TaskScheduler) releaseRobot(ctx context.Context, robotID, commandID string) {
	ok, err := s.robots.ReleaseCommand(ctx, robotID, commandID, domain.RobotStatusIdle)
	if err != nil || !ok {
		s.logger.Warn("Failed to release robot reservation", "robotId", robotID, "error", err)
	}
}

// withdraw cancels a command that could not be dispatched
func (s *TaskScheduler) withdraw(ctx context.Context, command *domain.Command) {
	cancelled := *command
	if err := cancelled.Cancel(time.Now().UTC()); err == nil {
		cancelled.ErrorMessage = "dispatch failed"
		if ok, err := s.commands.Update(ctx, &cancelled, domain.CommandStatusPending); err != nil || !ok {
			s.logger.Warn("Failed to cancel undispatched command", "commandId", command.ID, "error", err)
			return
		}
	}
	s.releaseRobot(ctx, command.RobotID, command.ID)
}
