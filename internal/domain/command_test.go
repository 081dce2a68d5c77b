package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommandType(t *testing.T) {
	for _, raw := range []string{"MOVE", "PICK", "PLACE", "SCAN", "CALIBRATE", "EMERGENCY_STOP"} {
		ct, err := ParseCommandType(raw)
		require.NoError(t, err)
		assert.Equal(t, CommandType(raw), ct)
	}

	_, err := ParseCommandType("DANCE")
	assert.ErrorIs(t, err, ErrUnknownCommandType)
}

func TestCommandTransitionTable(t *testing.T) {
	assert.True(t, CommandStatusPending.CanTransitionTo(CommandStatusExecuting))
	assert.True(t, CommandStatusPending.CanTransitionTo(CommandStatusCancelled))
	assert.True(t, CommandStatusExecuting.CanTransitionTo(CommandStatusCompleted))
	assert.True(t, CommandStatusExecuting.CanTransitionTo(CommandStatusFailed))

	assert.False(t, CommandStatusPending.CanTransitionTo(CommandStatusCompleted))
	assert.False(t, CommandStatusExecuting.CanTransitionTo(CommandStatusCancelled))
	for _, terminal := range []CommandStatus{CommandStatusCompleted, CommandStatusFailed, CommandStatusCancelled} {
		assert.True(t, terminal.IsTerminal())
		assert.False(t, terminal.CanTransitionTo(CommandStatusPending))
	}
}

func TestCommandLifecycle(t *testing.T) {
	now := time.Now().UTC()

	t.Run("Pending to completed", func(t *testing.T) {
		cmd := NewCommand("R-1", CommandTypeCalibrate, CommandParameters{}, "op")
		require.NoError(t, cmd.Start(now))
		require.NotNil(t, cmd.StartedAt)
		require.NoError(t, cmd.Complete(&CommandResult{Kind: "calibration"}, now.Add(time.Second)))
		assert.Equal(t, CommandStatusCompleted, cmd.Status)
		assert.Equal(t, time.Second, cmd.Duration())
	})

	t.Run("Pending to failed is not allowed", func(t *testing.T) {
		cmd := NewCommand("R-1", CommandTypeCalibrate, CommandParameters{}, "op")
		assert.ErrorIs(t, cmd.Fail("boom", now), ErrInvalidTransition)
		assert.Equal(t, CommandStatusPending, cmd.Status)
	})

	t.Run("Executing cannot be cancelled", func(t *testing.T) {
		cmd := NewCommand("R-1", CommandTypeCalibrate, CommandParameters{}, "op")
		require.NoError(t, cmd.Start(now))
		assert.ErrorIs(t, cmd.Cancel(now), ErrInvalidTransition)
	})
}

func TestCommandUpdateParameters(t *testing.T) {
	now := time.Now().UTC()
	params := CommandParameters{BinID: "B1", ItemID: "I1", Quantity: 5}

	cmd := NewCommand("R-1", CommandTypePick, params, "op")
	changed, err := cmd.UpdateParameters(CommandParameters{BinID: "B1", ItemID: "I1", Quantity: 7}, now)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 7, cmd.Parameters.Quantity)

	_, err = cmd.UpdateParameters(CommandParameters{BinID: "B1", ItemID: "I1"}, now)
	assert.ErrorIs(t, err, ErrValidation)

	require.NoError(t, cmd.Start(now))
	_, err = cmd.UpdateParameters(params, now)
	assert.ErrorIs(t, err, ErrTransactionConflict)

	require.NoError(t, cmd.Complete(nil, now))
	changed, err = cmd.UpdateParameters(cmd.Parameters, now)
	require.NoError(t, err, "no-op update of a completed command is accepted")
	assert.False(t, changed)

	_, err = cmd.UpdateParameters(params, now)
	assert.ErrorIs(t, err, ErrTransactionConflict)
}

func TestCommandCheckDeletable(t *testing.T) {
	now := time.Now().UTC()
	tests := []struct {
		name    string
		prepare func(*Command)
		wantErr bool
	}{
		{"Pending", func(*Command) {}, false},
		{"Cancelled", func(c *Command) { _ = c.Cancel(now) }, false},
		{"Executing", func(c *Command) { _ = c.Start(now) }, true},
		{"Completed", func(c *Command) { _ = c.Start(now); _ = c.Complete(nil, now) }, true},
		{"Failed", func(c *Command) { _ = c.Start(now); _ = c.Fail("x", now) }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := NewCommand("R-1", CommandTypeCalibrate, CommandParameters{}, "op")
			tt.prepare(cmd)
			err := cmd.CheckDeletable()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrTransactionConflict)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCommandParametersRoute(t *testing.T) {
	assert.Equal(t, []string{"B9"}, CommandParameters{DestinationBinID: "B9"}.Route())
	assert.Equal(t, []string{"B1", "B2"}, CommandParameters{Waypoints: []string{"B1", "B2"}}.Route())
	assert.Equal(t, []string{"B1", "B2", "B9"}, CommandParameters{Waypoints: []string{"B1", "B2"}, DestinationBinID: "B9"}.Route())
	assert.Nil(t, CommandParameters{}.Route())
}

func TestPickRequestValidate(t *testing.T) {
	req := &PickRequest{Lines: []PickLine{{ItemID: "I1", Quantity: 3}}}
	require.NoError(t, req.Validate())
	assert.Equal(t, PriorityMedium, req.Lines[0].Priority)

	assert.ErrorIs(t, (&PickRequest{}).Validate(), ErrValidation)
	assert.ErrorIs(t, (&PickRequest{Lines: []PickLine{{ItemID: "I1", Quantity: 0}}}).Validate(), ErrValidation)
	assert.ErrorIs(t, (&PickRequest{Lines: []PickLine{{ItemID: "I1", Quantity: 1, Priority: "NOW"}}}).Validate(), ErrValidation)
}
