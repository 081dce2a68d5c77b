package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wms-platform/asrs-service/internal/domain"
	"github.com/wms-platform/asrs-service/pkg/logging"
	"github.com/wms-platform/asrs-service/pkg/metrics"
	"github.com/wms-platform/asrs-service/pkg/tracing"
)

// Sleeper waits for simulated physical work
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// ClockSleeper sleeps on the wall clock
type ClockSleeper struct{}

func (ClockSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ExecutorConfig bounds the simulated durations
type ExecutorConfig struct {
	MoveWaitCeiling   time.Duration `mapstructure:"moveWaitCeiling"`
	CalibrateDuration time.Duration `mapstructure:"calibrateDuration"`
}

// DefaultExecutorConfig returns the standard simulation timings
func DefaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{
		MoveWaitCeiling:   5 * time.Second,
		CalibrateDuration: 2 * time.Second,
	}
}

// CommandExecutor runs one command to a terminal status. Failures are final;
// nothing is retried.
type CommandExecutor struct {
	robots    domain.RobotRepository
	commands  domain.CommandRepository
	layout    domain.LayoutRepository
	items     domain.ItemRepository
	shipments domain.ShipmentLookup
	stockOps  *StockOperations
	publisher domain.EventPublisher
	sleeper   Sleeper
	config    ExecutorConfig
	metrics   *metrics.Metrics
	logger    *logging.Logger
}

// NewCommandExecutor creates a new CommandExecutor. m may be nil.
func NewCommandExecutor(
	robots domain.RobotRepository,
	commands domain.CommandRepository,
	layout domain.LayoutRepository,
	items domain.ItemRepository,
	shipments domain.ShipmentLookup,
	stockOps *StockOperations,
	publisher domain.EventPublisher,
	sleeper Sleeper,
	config ExecutorConfig,
	m *metrics.Metrics,
	logger *logging.Logger,
) *CommandExecutor {
	if sleeper == nil {
		sleeper = ClockSleeper{}
	}
	return &CommandExecutor{
		robots:    robots,
		commands:  commands,
		layout:    layout,
		items:     items,
		shipments: shipments,
		stockOps:  stockOps,
		publisher: publisher,
		sleeper:   sleeper,
		config:    config,
		metrics:   m,
		logger:    logger.WithComponent("executor"),
	}
}

// Execute moves the command from PENDING to EXECUTING, runs it, and records
// the outcome. When the command itself fails the returned command is FAILED
// and the error is the cause. A command that is no longer PENDING is rejected
// with domain.ErrInvalidTransition and left untouched.
func (e *CommandExecutor) Execute(ctx context.Context, commandID string) (*domain.Command, error) {
	cmd, err := e.commands.FindByID(ctx, commandID)
	if err != nil {
		return nil, err
	}

	if err := cmd.Start(time.Now().UTC()); err != nil {
		return nil, err
	}
	started, err := e.commands.Update(ctx, cmd, domain.CommandStatusPending)
	if err != nil {
		return nil, fmt.Errorf("failed to start command: %w", err)
	}
	if !started {
		current, ferr := e.commands.FindByID(ctx, commandID)
		if ferr != nil {
			return nil, ferr
		}
		return nil, &domain.InvalidTransitionError{
			Entity: "command",
			ID:     commandID,
			From:   string(current.Status),
			To:     string(domain.CommandStatusExecuting),
		}
	}

	e.logger.Info("Executing command", "commandId", cmd.ID, "robotId", cmd.RobotID, "type", cmd.Type)

	result, runErr := e.run(ctx, cmd)
	if runErr != nil {
		e.fail(ctx, cmd, runErr)
		return cmd, runErr
	}

	e.complete(ctx, cmd, result)
	return cmd, nil
}

func (e *CommandExecutor) run(ctx context.Context, cmd *domain.Command) (*domain.CommandResult, error) {
	robot, err := e.robots.FindByID(ctx, cmd.RobotID)
	if err != nil {
		return nil, err
	}

	switch cmd.Type {
	case domain.CommandTypeMove:
		return e.move(ctx, robot, cmd.Parameters)
	case domain.CommandTypePick:
		p := cmd.Parameters
		if err := e.stockOps.Pick(ctx, p.BinID, p.ItemID, p.Quantity, cmd.ID); err != nil {
			return nil, err
		}
		return &domain.CommandResult{Kind: "stock", ID: domain.StockKey(p.BinID, p.ItemID), Quantity: p.Quantity}, nil
	case domain.CommandTypePlace:
		p := cmd.Parameters
		bin, err := e.stockOps.Place(ctx, PlaceRequest{
			BinID:      p.BinID,
			ItemID:     p.ItemID,
			Quantity:   p.Quantity,
			ExpiryDate: p.ExpiryDate,
			BatchID:    p.BatchID,
			CommandID:  cmd.ID,
		})
		if err != nil {
			return nil, err
		}
		return &domain.CommandResult{Kind: "stock", ID: domain.StockKey(bin.ID, p.ItemID), Quantity: p.Quantity}, nil
	case domain.CommandTypeScan:
		return e.scan(ctx, cmd.Parameters.Barcode)
	case domain.CommandTypeCalibrate:
		if err := e.sleeper.Sleep(ctx, e.config.CalibrateDuration); err != nil {
			return nil, err
		}
		return &domain.CommandResult{Kind: "calibration", ID: robot.ID}, nil
	case domain.CommandTypeEmergencyStop:
		return &domain.CommandResult{Kind: "emergency-stop", ID: robot.ID}, nil
	default:
		return nil, &domain.UnknownCommandTypeError{Type: string(cmd.Type)}
	}
}

// move walks the waypoints in order and updates the robot after each leg.
// The simulated wait across all legs never exceeds MoveWaitCeiling.
func (e *CommandExecutor) move(ctx context.Context, robot *domain.Robot, params domain.CommandParameters) (*domain.CommandResult, error) {
	route := params.Route()
	if len(route) == 0 {
		return nil, domain.NewValidationError("parameters", "MOVE requires destinationBinId or waypoints")
	}

	position := robot.Location
	total := 0.0
	budget := e.config.MoveWaitCeiling
	for _, binID := range route {
		bin, err := e.layout.FindBin(ctx, binID)
		if err != nil {
			return nil, err
		}

		distance := position.DistanceTo(bin.Coordinate)
		travel := time.Duration(robot.TravelSeconds(distance) * float64(time.Second))
		if wait := min(travel, budget); wait > 0 {
			if err := e.sleeper.Sleep(ctx, wait); err != nil {
				return nil, err
			}
			budget -= wait
		}

		if err := e.robots.UpdateLocation(ctx, robot.ID, bin.Coordinate, bin.ID); err != nil {
			return nil, fmt.Errorf("failed to update robot location: %w", err)
		}
		position = bin.Coordinate
		total += distance
	}

	return &domain.CommandResult{
		Kind:     "location",
		ID:       route[len(route)-1],
		Location: &position,
		Distance: total,
	}, nil
}

// scan resolves a barcode against items, then bins, then shipments
func (e *CommandExecutor) scan(ctx context.Context, barcode string) (*domain.CommandResult, error) {
	item, err := e.items.FindByBarcode(ctx, barcode)
	if err == nil {
		return &domain.CommandResult{Kind: "item", ID: item.ID}, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	bin, err := e.layout.FindBinByBarcode(ctx, barcode)
	if err == nil {
		return &domain.CommandResult{Kind: "bin", ID: bin.ID, Location: &bin.Coordinate}, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	if e.shipments != nil {
		shipmentID, err := e.shipments.FindShipmentIDByBarcode(ctx, barcode)
		if err == nil {
			return &domain.CommandResult{Kind: "shipment", ID: shipmentID}, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
	}

	return nil, &domain.NotFoundError{Resource: "barcode", ID: barcode}
}

func (e *CommandExecutor) complete(ctx context.Context, cmd *domain.Command, result *domain.CommandResult) {
	ctx = context.WithoutCancel(ctx)
	now := time.Now().UTC()

	if err := cmd.Complete(result, now); err != nil {
		e.logger.WithError(err).Error("Failed to complete command", "commandId", cmd.ID)
		return
	}
	if ok, err := e.commands.Update(ctx, cmd, domain.CommandStatusExecuting); err != nil || !ok {
		e.logger.Error("Failed to persist completed command", "commandId", cmd.ID, "error", err)
	}

	next := domain.RobotStatusIdle
	if cmd.Type == domain.CommandTypeEmergencyStop {
		next = domain.RobotStatusMaintenance
	}
	e.settleRobot(ctx, cmd, next)

	if err := e.publisher.Publish(ctx, &domain.CommandCompletedEvent{
		CommandID:   cmd.ID,
		RobotID:     cmd.RobotID,
		Type:        cmd.Type,
		Result:      result,
		CompletedAt: now,
	}); err != nil {
		e.logger.WithError(err).Warn("Failed to record completion event", "commandId", cmd.ID)
	}

	if e.metrics != nil {
		e.metrics.RecordCommandFinished(string(cmd.Type), string(cmd.Status), cmd.Duration())
	}
	e.logger.LogBusinessEvent(ctx, logging.BusinessEvent{
		EventType:  "command.completed",
		EntityType: "command",
		EntityID:   cmd.ID,
		Action:     "completed",
		RelatedIDs: map[string]string{"robotId": cmd.RobotID, "type": string(cmd.Type)},
	})
}

func (e *CommandExecutor) fail(ctx context.Context, cmd *domain.Command, cause error) {
	tracing.RecordError(ctx, cause)
	ctx = context.WithoutCancel(ctx)
	now := time.Now().UTC()

	if err := cmd.Fail(cause.Error(), now); err != nil {
		e.logger.WithError(err).Error("Failed to fail command", "commandId", cmd.ID)
		return
	}
	if ok, err := e.commands.Update(ctx, cmd, domain.CommandStatusExecuting); err != nil || !ok {
		e.logger.Error("Failed to persist failed command", "commandId", cmd.ID, "error", err)
	}

	e.settleRobot(ctx, cmd, domain.RobotStatusError)

	if err := e.publisher.Publish(ctx, &domain.CommandFailedEvent{
		CommandID:    cmd.ID,
		RobotID:      cmd.RobotID,
		Type:         cmd.Type,
		ErrorMessage: cmd.ErrorMessage,
		FailedAt:     now,
	}); err != nil {
		e.logger.WithError(err).Warn("Failed to record failure event", "commandId", cmd.ID)
	}

	if e.metrics != nil {
		e.metrics.RecordCommandFinished(string(cmd.Type), string(cmd.Status), cmd.Duration())
	}
	e.logger.WithError(cause).Warn("Command failed", "commandId", cmd.ID, "robotId", cmd.RobotID, "type", cmd.Type)
}

// settleRobot moves the robot out of WORKING, but only while it is still
// reserved for cmd.
func (e *CommandExecutor) settleRobot(ctx context.Context, cmd *domain.Command, next domain.RobotStatus) {
	ok, err := e.robots.ReleaseCommand(ctx, cmd.RobotID, cmd.ID, next)
	if err != nil {
		e.logger.WithError(err).Error("Failed to update robot status", "robotId", cmd.RobotID)
		return
	}
	if !ok {
		e.logger.Warn("Robot no longer reserved for command", "robotId", cmd.RobotID, "commandId", cmd.ID)
		return
	}

	if err := e.publisher.Publish(ctx, &domain.RobotStatusChangedEvent{
		RobotID:   cmd.RobotID,
		From:      domain.RobotStatusWorking,
		To:        next,
		CommandID: cmd.ID,
		ChangedAt: time.Now().UTC(),
	}); err != nil {
		e.logger.WithError(err).Warn("Failed to record robot status event", "robotId", cmd.RobotID)
	}
}
