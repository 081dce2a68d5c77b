package application

import (
	"context"
	"fmt"
	"time"

	"github.com/wms-platform/asrs-service/internal/domain"
	"github.com/wms-platform/asrs-service/pkg/logging"
)

// CommandApplicationService handles the robot command lifecycle
type CommandApplicationService struct {
	scheduler *TaskScheduler
	commands  domain.CommandRepository
	robots    domain.RobotRepository
	publisher domain.EventPublisher
	logger    *logging.Logger
}

// NewCommandApplicationService creates a new CommandApplicationService
func NewCommandApplicationService(
	scheduler *TaskScheduler,
	commands domain.CommandRepository,
	robots domain.RobotRepository,
	publisher domain.EventPublisher,
	logger *logging.Logger,
) *CommandApplicationService {
	return &CommandApplicationService{
		scheduler: scheduler,
		commands:  commands,
		robots:    robots,
		publisher: publisher,
		logger:    logger,
	}
}

// ScheduleCommand admits a command for a robot
func (s *CommandApplicationService) ScheduleCommand(ctx context.Context, cmd ScheduleCommand) (*CommandDTO, error) {
	command, err := s.scheduler.Schedule(ctx, cmd)
	if err != nil {
		return nil, toAppError(err)
	}
	return ToCommandDTO(command), nil
}

// GetCommand retrieves a command by ID
func (s *CommandApplicationService) GetCommand(ctx context.Context, query GetCommandQuery) (*CommandDTO, error) {
	command, err := s.commands.FindByID(ctx, query.CommandID)
	if err != nil {
		return nil, toAppError(err)
	}
	return ToCommandDTO(command), nil
}

// ListCommands returns commands matching the filter, newest first
func (s *CommandApplicationService) ListCommands(ctx context.Context, query ListCommandsQuery) (*PageDTO[CommandDTO], error) {
	filter := query.Filter
	filter.Pagination = filter.Pagination.Normalize()
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, toAppError(domain.NewValidationError("status", "unknown command status "+string(filter.Status)))
	}
	if filter.Type != "" && !filter.Type.IsValid() {
		return nil, toAppError(&domain.UnknownCommandTypeError{Type: string(filter.Type)})
	}

	commands, total, err := s.commands.Find(ctx, filter)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list commands")
		return nil, fmt.Errorf("failed to list commands: %w", err)
	}

	return &PageDTO[CommandDTO]{
		Items:  ToCommandDTOs(commands),
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}, nil
}

// UpdateParameters replaces the parameters of a pending command. A no-op
// update of a completed command succeeds with Changed=false.
func (s *CommandApplicationService) UpdateParameters(ctx context.Context, cmd UpdateCommandParametersCommand) (*UpdateParametersResultDTO, error) {
	command, err := s.commands.FindByID(ctx, cmd.CommandID)
	if err != nil {
		return nil, toAppError(err)
	}

	changed, err := command.UpdateParameters(cmd.Parameters, time.Now().UTC())
	if err != nil {
		return nil, toAppError(err)
	}
	if !changed {
		return &UpdateParametersResultDTO{Command: ToCommandDTO(command)}, nil
	}

	ok, err := s.commands.Update(ctx, command, domain.CommandStatusPending)
	if err != nil {
		s.logger.WithError(err).Error("Failed to update command", "commandId", command.ID)
		return nil, fmt.Errorf("failed to update command: %w", err)
	}
	if !ok {
		return nil, toAppError(&domain.TransactionConflictError{
			Reason: "command " + command.ID + " left PENDING before the update was applied",
		})
	}

	s.logger.Info("Command parameters updated", "commandId", command.ID)
	return &UpdateParametersResultDTO{Command: ToCommandDTO(command), Changed: true}, nil
}

// CancelCommand cancels a pending command and frees its robot
func (s *CommandApplicationService) CancelCommand(ctx context.Context, cmd CancelCommandCommand) (*CommandDTO, error) {
	command, err := s.commands.FindByID(ctx, cmd.CommandID)
	if err != nil {
		return nil, toAppError(err)
	}

	if err := s.cancel(ctx, command, cmd.Reason); err != nil {
		return nil, toAppError(err)
	}

	s.logger.LogBusinessEvent(ctx, logging.BusinessEvent{
		EventType:  "command.cancelled",
		EntityType: "command",
		EntityID:   command.ID,
		Action:     "cancelled",
		RelatedIDs: map[string]string{"robotId": command.RobotID},
	})

	return ToCommandDTO(command), nil
}

// DeleteCommand removes a command. Running and completed commands are kept
// for the audit trail; a pending command is cancelled first.
func (s *CommandApplicationService) DeleteCommand(ctx context.Context, cmd DeleteCommandCommand) error {
	command, err := s.commands.FindByID(ctx, cmd.CommandID)
	if err != nil {
		return toAppError(err)
	}
	if err := command.CheckDeletable(); err != nil {
		return toAppError(err)
	}

	if command.Status == domain.CommandStatusPending {
		if err := s.cancel(ctx, command, "deleted"); err != nil {
			return toAppError(err)
		}
	}

	if err := s.commands.Delete(ctx, command.ID); err != nil {
		s.logger.WithError(err).Error("Failed to delete command", "commandId", command.ID)
		return toAppError(fmt.Errorf("failed to delete command: %w", err))
	}

	s.logger.Info("Command deleted", "commandId", command.ID, "status", command.Status)
	return nil
}

func (s *CommandApplicationService) cancel(ctx context.Context, command *domain.Command, reason string) error {
	now := time.Now().UTC()
	if err := command.Cancel(now); err != nil {
		return err
	}
	command.ErrorMessage = reason

	ok, err := s.commands.Update(ctx, command, domain.CommandStatusPending)
	if err != nil {
		s.logger.WithError(err).Error("Failed to cancel command", "commandId", command.ID)
		return fmt.Errorf("failed to cancel command: %w", err)
	}
	if !ok {
		current, err := s.commands.FindByID(ctx, command.ID)
		if err != nil {
			return err
		}
		return &domain.InvalidTransitionError{
			Entity: "command",
			ID:     command.ID,
			From:   string(current.Status),
			To:     string(domain.CommandStatusCancelled),
		}
	}

	events := []domain.DomainEvent{&domain.CommandCancelledEvent{
		CommandID:   command.ID,
		RobotID:     command.RobotID,
		CancelledAt: now,
	}}

	released, err := s.robots.ReleaseCommand(ctx, command.RobotID, command.ID, domain.RobotStatusIdle)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to release robot after cancel", "robotId", command.RobotID)
	} else if released {
		events = append(events, &domain.RobotStatusChangedEvent{
			RobotID:   command.RobotID,
			From:      domain.RobotStatusWorking,
			To:        domain.RobotStatusIdle,
			CommandID: command.ID,
			Reason:    "command cancelled",
			ChangedAt: now,
		})
	}

	if err := s.publisher.Publish(ctx, events...); err != nil {
		s.logger.WithError(err).Warn("Failed to record cancel events", "commandId", command.ID)
	}
	return nil
}
