package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wms-platform/asrs-service/internal/domain"
	"github.com/wms-platform/asrs-service/pkg/logging"
)

// RobotApplicationService manages the robot registry
type RobotApplicationService struct {
	robots       domain.RobotRepository
	commands     domain.CommandRepository
	layout       domain.LayoutRepository
	publisher    domain.EventPublisher
	defaultSpeed float64
	logger       *logging.Logger
}

// NewRobotApplicationService creates a new RobotApplicationService
func NewRobotApplicationService(
	robots domain.RobotRepository,
	commands domain.CommandRepository,
	layout domain.LayoutRepository,
	publisher domain.EventPublisher,
	logger *logging.Logger,
) *RobotApplicationService {
	return &RobotApplicationService{
		robots:       robots,
		commands:     commands,
		layout:       layout,
		publisher:    publisher,
		defaultSpeed: domain.DefaultRobotSpeed,
		logger:       logger,
	}
}

// WithDefaultSpeed sets the speed given to robots registered without one
func (s *RobotApplicationService) WithDefaultSpeed(speed float64) *RobotApplicationService {
	if speed > 0 {
		s.defaultSpeed = speed
	}
	return s
}

// RegisterRobot adds an idle robot, optionally parked at a bin
func (s *RobotApplicationService) RegisterRobot(ctx context.Context, cmd RegisterRobotCommand) (*RobotDTO, error) {
	speed := cmd.SpeedMetersPerSecond
	if speed == 0 {
		speed = s.defaultSpeed
	}
	robot, err := domain.NewRobot(cmd.RobotID, cmd.Name, cmd.AssignedZone, speed)
	if err != nil {
		return nil, toAppError(err)
	}

	if cmd.StartBinID != "" {
		bin, err := s.layout.FindBin(ctx, cmd.StartBinID)
		if err != nil {
			return nil, toAppError(err)
		}
		robot.MoveTo(bin.Coordinate, bin.ID)
	}

	if err := s.robots.Create(ctx, robot); err != nil {
		s.logger.WithError(err).Error("Failed to register robot", "robotId", robot.ID)
		return nil, toAppError(fmt.Errorf("failed to register robot %s: %w", robot.ID, err))
	}

	s.logger.LogBusinessEvent(ctx, logging.BusinessEvent{
		EventType:  "robot.registered",
		EntityType: "robot",
		EntityID:   robot.ID,
		Action:     "registered",
		RelatedIDs: map[string]string{"zone": robot.AssignedZone},
	})

	return ToRobotDTO(robot), nil
}

// GetRobot retrieves a robot by ID
func (s *RobotApplicationService) GetRobot(ctx context.Context, query GetRobotQuery) (*RobotDTO, error) {
	robot, err := s.robots.FindByID(ctx, query.RobotID)
	if err != nil {
		return nil, toAppError(err)
	}
	return ToRobotDTO(robot), nil
}

// ListRobots returns robots matching the filter
func (s *RobotApplicationService) ListRobots(ctx context.Context, query ListRobotsQuery) (*PageDTO[RobotDTO], error) {
	filter := query.Filter
	filter.Pagination = filter.Pagination.Normalize()
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, toAppError(domain.NewValidationError("status", "unknown robot status "+string(filter.Status)))
	}

	robots, total, err := s.robots.Find(ctx, filter)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list robots")
		return nil, fmt.Errorf("failed to list robots: %w", err)
	}

	items := make([]RobotDTO, 0, len(robots))
	for _, r := range robots {
		items = append(items, *ToRobotDTO(r))
	}
	return &PageDTO[RobotDTO]{Items: items, Total: total, Limit: filter.Limit, Offset: filter.Offset}, nil
}

// ChangeStatus applies an operator status change, typically recovery out of
// ERROR or MAINTENANCE. WORKING is reserved for the scheduler, and a robot
// cannot leave WORKING while its command is still pending or executing.
func (s *RobotApplicationService) ChangeStatus(ctx context.Context, cmd ChangeRobotStatusCommand) (*RobotDTO, error) {
	if !cmd.Status.IsValid() {
		return nil, toAppError(domain.NewValidationError("status", "unknown robot status "+string(cmd.Status)))
	}

	robot, err := s.robots.FindByID(ctx, cmd.RobotID)
	if err != nil {
		return nil, toAppError(err)
	}

	from := robot.Status
	if cmd.Status == domain.RobotStatusWorking {
		return nil, toAppError(&domain.InvalidTransitionError{
			Entity: "robot", ID: robot.ID, From: string(from), To: string(cmd.Status),
		})
	}
	commandID := robot.CurrentCommandID
	if from == domain.RobotStatusWorking && commandID != "" {
		if err := s.ensureCommandFinished(ctx, robot); err != nil {
			return nil, toAppError(err)
		}
	}
	if err := robot.TransitionTo(cmd.Status); err != nil {
		return nil, toAppError(err)
	}

	var ok bool
	if from == domain.RobotStatusWorking {
		ok, err = s.robots.ReleaseCommand(ctx, robot.ID, commandID, cmd.Status)
	} else {
		ok, err = s.robots.CompareAndSwapStatus(ctx, robot.ID, from, cmd.Status, "")
	}
	if err != nil {
		s.logger.WithError(err).Error("Failed to change robot status", "robotId", robot.ID)
		return nil, fmt.Errorf("failed to change robot status: %w", err)
	}
	if !ok {
		return nil, toAppError(&domain.TransactionConflictError{
			Reason: "robot " + robot.ID + " changed status concurrently",
		})
	}

	if err := s.publisher.Publish(ctx, &domain.RobotStatusChangedEvent{
		RobotID:   robot.ID,
		From:      from,
		To:        cmd.Status,
		CommandID: commandID,
		Reason:    cmd.Reason,
		ChangedAt: time.Now().UTC(),
	}); err != nil {
		s.logger.WithError(err).Warn("Failed to record robot status event", "robotId", robot.ID)
	}

	s.logger.Audit(ctx, "robot.status.changed", "robot", robot.ID, cmd.OperatorID, map[string]any{
		"from":   string(from),
		"to":     string(cmd.Status),
		"reason": cmd.Reason,
	})

	return ToRobotDTO(robot), nil
}

// ensureCommandFinished rejects a status change while the robot's reserved
// command can still run. A reservation whose command is gone or terminal is
// stale and may be cleared.
func (s *RobotApplicationService) ensureCommandFinished(ctx context.Context, robot *domain.Robot) error {
	command, err := s.commands.FindByID(ctx, robot.CurrentCommandID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		s.logger.WithError(err).Error("Failed to load current command", "robotId", robot.ID, "commandId", robot.CurrentCommandID)
		return fmt.Errorf("failed to load command %s: %w", robot.CurrentCommandID, err)
	}
	if !command.Status.IsTerminal() {
		return &domain.RobotUnavailableError{
			RobotID: robot.ID,
			Status:  robot.Status,
			Reason:  "command " + command.ID + " is " + string(command.Status),
		}
	}
	return nil
}
