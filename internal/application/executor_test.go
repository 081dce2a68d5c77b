package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/asrs-service/internal/domain"
)

func scheduleAndRun(t *testing.T, h *harness, cmd ScheduleCommand) (*domain.Command, error) {
	t.Helper()
	scheduled, err := h.scheduler.Schedule(context.Background(), cmd)
	require.NoError(t, err)
	return h.executor.Execute(context.Background(), scheduled.ID)
}

func TestExecuteMoveUpdatesLocation(t *testing.T) {
	h := newHarness(t)
	h.bin(t, "B1", 1, 4, 10)
	h.robot(t, "R1")

	cmd, err := scheduleAndRun(t, h, ScheduleCommand{RobotID: "R1", Type: "MOVE",
		Parameters: domain.CommandParameters{DestinationBinID: "B1"}})
	require.NoError(t, err)
	assert.Equal(t, domain.CommandStatusCompleted, cmd.Status)
	require.NotNil(t, cmd.Result)
	assert.Equal(t, "B1", cmd.Result.ID)

	robot, err := h.store.Robots().FindByID(context.Background(), "R1")
	require.NoError(t, err)
	want := domain.Coordinate{X: 3, Y: 4, Z: 0.4}
	assert.InDelta(t, want.X, robot.Location.X, 1e-9)
	assert.InDelta(t, want.Y, robot.Location.Y, 1e-9)
	assert.InDelta(t, want.Z, robot.Location.Z, 1e-9)
	assert.Equal(t, "B1", robot.LocationBinID)
	assert.Equal(t, domain.RobotStatusIdle, robot.Status)
	assert.Empty(t, robot.CurrentCommandID)

	// travel time is distance over the default speed
	require.Len(t, h.sleeper.waits, 1)
	distance := domain.Coordinate{}.DistanceTo(want)
	assert.InDelta(t, distance/domain.DefaultRobotSpeed, h.sleeper.waits[0].Seconds(), 1e-6)
	assert.InDelta(t, distance, cmd.Result.Distance, 1e-9)
}

func TestExecuteMoveWalksWaypoints(t *testing.T) {
	h := newHarness(t)
	h.bin(t, "B1", 0, 0, 10)
	h.bin(t, "B2", 0, 1, 10)
	h.bin(t, "B3", 0, 2, 10)
	h.robot(t, "R1")

	cmd, err := scheduleAndRun(t, h, ScheduleCommand{RobotID: "R1", Type: "MOVE",
		Parameters: domain.CommandParameters{Waypoints: []string{"B1", "B2"}, DestinationBinID: "B3"}})
	require.NoError(t, err)
	assert.Equal(t, "B3", cmd.Result.ID)
	assert.Len(t, h.sleeper.waits, 3)

	robot, err := h.store.Robots().FindByID(context.Background(), "R1")
	require.NoError(t, err)
	assert.Equal(t, "B3", robot.LocationBinID)
}

func TestExecuteMoveCapsWait(t *testing.T) {
	tests := []struct {
		name   string
		params domain.CommandParameters
	}{
		{"single leg", domain.CommandParameters{DestinationBinID: "B1"}},
		{"ceiling spans all legs", domain.CommandParameters{Waypoints: []string{"B1", "B2"}, DestinationBinID: "B3"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.bin(t, "B1", 0, 0, 10)
			h.bin(t, "B2", 0, 1, 10)
			h.bin(t, "B3", 0, 2, 10)
			h.robot(t, "R1")
			h.executor.config.MoveWaitCeiling = 100 * time.Millisecond

			cmd, err := scheduleAndRun(t, h, ScheduleCommand{RobotID: "R1", Type: "MOVE", Parameters: tt.params})
			require.NoError(t, err)
			assert.Equal(t, domain.CommandStatusCompleted, cmd.Status)

			var total time.Duration
			for _, w := range h.sleeper.waits {
				total += w
			}
			assert.Equal(t, 100*time.Millisecond, total)
			assert.Equal(t, []time.Duration{100 * time.Millisecond}, h.sleeper.waits)

			robot, err := h.store.Robots().FindByID(context.Background(), "R1")
			require.NoError(t, err)
			assert.Equal(t, cmd.Result.ID, robot.LocationBinID)
		})
	}
}

func TestExecuteMoveToUnknownBinFails(t *testing.T) {
	h := newHarness(t)
	h.robot(t, "R1")

	cmd, err := scheduleAndRun(t, h, ScheduleCommand{RobotID: "R1", Type: "MOVE",
		Parameters: domain.CommandParameters{DestinationBinID: "ghost"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	assert.Equal(t, domain.CommandStatusFailed, cmd.Status)
	assert.NotEmpty(t, cmd.ErrorMessage)
	assert.Equal(t, domain.RobotStatusError, h.robotStatus(t, "R1"))
}

func TestExecutePick(t *testing.T) {
	h := newHarness(t)
	h.bin(t, "B1", 0, 0, 100)
	h.item(t, "I1", 1)
	h.stock(t, "B1", "I1", 30, nil)
	h.robot(t, "R1")

	cmd, err := scheduleAndRun(t, h, ScheduleCommand{RobotID: "R1", Type: "PICK",
		Parameters: domain.CommandParameters{BinID: "B1", ItemID: "I1", Quantity: 10}})
	require.NoError(t, err)
	assert.Equal(t, domain.CommandStatusCompleted, cmd.Status)
	assert.Equal(t, 20, h.unit(t, "B1", "I1"))
	assert.Equal(t, 20, h.load(t, "B1"))
}

func TestExecutePickShortFails(t *testing.T) {
	h := newHarness(t)
	h.bin(t, "B1", 0, 0, 100)
	h.item(t, "I1", 1)
	h.stock(t, "B1", "I1", 5, nil)
	h.robot(t, "R1")

	cmd, err := scheduleAndRun(t, h, ScheduleCommand{RobotID: "R1", Type: "PICK",
		Parameters: domain.CommandParameters{BinID: "B1", ItemID: "I1", Quantity: 10}})
	assert.True(t, errors.Is(err, domain.ErrInsufficientStock))
	assert.Equal(t, domain.CommandStatusFailed, cmd.Status)
	assert.Equal(t, 5, h.unit(t, "B1", "I1"))
	assert.Equal(t, 5, h.load(t, "B1"))
	assert.Equal(t, domain.RobotStatusError, h.robotStatus(t, "R1"))
}

func TestExecutePlaceOverCapacityLeavesBinUntouched(t *testing.T) {
	h := newHarness(t)
	h.bin(t, "B1", 0, 0, 100)
	h.item(t, "I1", 1)
	h.stock(t, "B1", "I1", 90, nil)
	h.robot(t, "R1")

	cmd, err := scheduleAndRun(t, h, ScheduleCommand{RobotID: "R1", Type: "PLACE",
		Parameters: domain.CommandParameters{BinID: "B1", ItemID: "I1", Quantity: 20}})

	var capErr *domain.CapacityExceededError
	require.True(t, errors.As(err, &capErr))
	assert.Equal(t, "B1", capErr.BinID)
	assert.Equal(t, 100, capErr.Capacity)
	assert.Equal(t, 90, capErr.CurrentLoad)
	assert.Equal(t, 20, capErr.Requested)

	assert.Equal(t, domain.CommandStatusFailed, cmd.Status)
	assert.Equal(t, 90, h.load(t, "B1"))
	assert.Equal(t, 90, h.unit(t, "B1", "I1"))
}

func TestExecutePlaceMergesStock(t *testing.T) {
	h := newHarness(t)
	h.bin(t, "B1", 0, 0, 100)
	h.item(t, "I1", 1)
	h.stock(t, "B1", "I1", 10, day(20))
	h.robot(t, "R1")

	_, err := scheduleAndRun(t, h, ScheduleCommand{RobotID: "R1", Type: "PLACE",
		Parameters: domain.CommandParameters{BinID: "B1", ItemID: "I1", Quantity: 15, ExpiryDate: day(5)}})
	require.NoError(t, err)

	unit, err := h.store.Stock().FindOne(context.Background(), "B1", "I1")
	require.NoError(t, err)
	assert.Equal(t, 25, unit.Quantity)
	require.NotNil(t, unit.ExpiryDate)
	assert.True(t, unit.ExpiryDate.Equal(*day(5)))
	assert.Equal(t, 25, h.load(t, "B1"))
}

func TestExecuteScanResolvesInOrder(t *testing.T) {
	h := newHarness(t)
	h.bin(t, "B1", 0, 0, 10)
	h.item(t, "I1", 1)
	h.store.AddShipment(context.Background(), "SHP-1", "SHIP-BC")

	tests := []struct {
		barcode string
		kind    string
		id      string
	}{
		{"IT-I1", "item", "I1"},
		{"BC-B1", "bin", "B1"},
		{"SHIP-BC", "shipment", "SHP-1"},
	}
	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			robotID := "R-" + tt.kind
			h.robot(t, robotID)
			cmd, err := scheduleAndRun(t, h, ScheduleCommand{RobotID: robotID, Type: "SCAN",
				Parameters: domain.CommandParameters{Barcode: tt.barcode}})
			require.NoError(t, err)
			assert.Equal(t, tt.kind, cmd.Result.Kind)
			assert.Equal(t, tt.id, cmd.Result.ID)
		})
	}

	h.robot(t, "R-miss")
	cmd, err := scheduleAndRun(t, h, ScheduleCommand{RobotID: "R-miss", Type: "SCAN",
		Parameters: domain.CommandParameters{Barcode: "nothing"}})
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	assert.Equal(t, domain.CommandStatusFailed, cmd.Status)
}

func TestExecuteCalibrateAndEmergencyStop(t *testing.T) {
	h := newHarness(t)
	h.robot(t, "R1")
	h.robot(t, "R2")

	cmd, err := scheduleAndRun(t, h, ScheduleCommand{RobotID: "R1", Type: "CALIBRATE"})
	require.NoError(t, err)
	assert.Equal(t, domain.CommandStatusCompleted, cmd.Status)
	assert.Equal(t, []time.Duration{DefaultExecutorConfig().CalibrateDuration}, h.sleeper.waits)
	assert.Equal(t, domain.RobotStatusIdle, h.robotStatus(t, "R1"))

	cmd, err = scheduleAndRun(t, h, ScheduleCommand{RobotID: "R2", Type: "EMERGENCY_STOP"})
	require.NoError(t, err)
	assert.Equal(t, domain.CommandStatusCompleted, cmd.Status)
	assert.Equal(t, domain.RobotStatusMaintenance, h.robotStatus(t, "R2"))
}

func TestExecuteRejectsNonPendingCommand(t *testing.T) {
	h := newHarness(t)
	h.robot(t, "R1")
	ctx := context.Background()

	scheduled, err := h.scheduler.Schedule(ctx, ScheduleCommand{RobotID: "R1", Type: "CALIBRATE"})
	require.NoError(t, err)
	_, err = h.commands.CancelCommand(ctx, CancelCommandCommand{CommandID: scheduled.ID})
	require.NoError(t, err)

	cmd, err := h.executor.Execute(ctx, scheduled.ID)
	assert.Nil(t, cmd)
	assert.True(t, errors.Is(err, domain.ErrInvalidTransition))
	assert.Empty(t, h.sleeper.waits)
}

func TestExecuteRecordsOutcomeEvents(t *testing.T) {
	h := newHarness(t)
	h.robot(t, "R1")
	h.robot(t, "R2")

	_, err := scheduleAndRun(t, h, ScheduleCommand{RobotID: "R1", Type: "CALIBRATE"})
	require.NoError(t, err)
	_, err = scheduleAndRun(t, h, ScheduleCommand{RobotID: "R2", Type: "MOVE",
		Parameters: domain.CommandParameters{DestinationBinID: "ghost"}})
	require.Error(t, err)

	types := h.store.Outbox().EventTypes(context.Background())
	assert.Contains(t, types, "asrs.robot.command-scheduled")
	assert.Contains(t, types, "asrs.robot.command-completed")
	assert.Contains(t, types, "asrs.robot.command-failed")
	assert.Contains(t, types, "asrs.robot.status-changed")
}
