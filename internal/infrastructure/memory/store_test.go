package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/asrs-service/internal/domain"
	"github.com/wms-platform/asrs-service/pkg/outbox"
)

func seedStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	s := NewStore(domain.DefaultLayoutGeometry())
	layout := s.Layout()
	require.NoError(t, layout.SaveZone(ctx, &domain.Zone{ID: "Z1", Code: "A"}))
	require.NoError(t, layout.SaveAisle(ctx, &domain.Aisle{ID: "AI1", ZoneID: "Z1", Number: 1}))
	require.NoError(t, layout.SaveRack(ctx, &domain.Rack{ID: "R1", AisleID: "AI1", Number: 1}))
	require.NoError(t, layout.SaveBin(ctx, &domain.Bin{ID: "B1", RackID: "R1", Capacity: 100, CurrentLoad: 50}))
	require.NoError(t, s.Stock().Merge(ctx, &domain.StockUnit{BinID: "B1", ItemID: "I1", Quantity: 50}))
	return s
}

func TestTransactionRollback(t *testing.T) {
	ctx := context.Background()
	s := seedStore(t)
	boom := errors.New("boom")

	err := s.WithinTransaction(ctx, func(txCtx context.Context) error {
		ok, err := s.Stock().Decrement(txCtx, "B1", "I1", 20)
		require.NoError(t, err)
		require.True(t, ok)
		ok, err = s.Layout().DecrementBinLoad(txCtx, "B1", 20)
		require.NoError(t, err)
		require.True(t, ok)
		require.NoError(t, s.Movements().Append(txCtx, domain.NewPickMovement("P1", 1, "I1", "B1", 20, "t", time.Now())))
		require.NoError(t, s.Outbox().SaveAll(txCtx, []*outbox.OutboxEvent{{ID: "E1", MaxRetries: 1}}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	unit, err := s.Stock().FindOne(ctx, "B1", "I1")
	require.NoError(t, err)
	assert.Equal(t, 50, unit.Quantity)

	bin, err := s.Layout().FindBin(ctx, "B1")
	require.NoError(t, err)
	assert.Equal(t, 50, bin.CurrentLoad)

	exists, err := s.Movements().ExistsForPlan(ctx, "P1")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Empty(t, s.Outbox().EventTypes(ctx))
}

func TestTransactionCommitAndNesting(t *testing.T) {
	ctx := context.Background()
	s := seedStore(t)

	err := s.WithinTransaction(ctx, func(txCtx context.Context) error {
		return s.WithinTransaction(txCtx, func(inner context.Context) error {
			_, err := s.Stock().Decrement(inner, "B1", "I1", 5)
			return err
		})
	})
	require.NoError(t, err)

	unit, err := s.Stock().FindOne(ctx, "B1", "I1")
	require.NoError(t, err)
	assert.Equal(t, 45, unit.Quantity)
}

func TestConditionalUpdates(t *testing.T) {
	ctx := context.Background()
	s := seedStore(t)

	ok, err := s.Stock().Decrement(ctx, "B1", "I1", 51)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.Layout().IncrementBinLoad(ctx, "B1", 51)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.Layout().IncrementBinLoad(ctx, "B1", 50)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = s.Layout().DecrementBinLoad(ctx, "missing", 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStockMergeKeepsEarliestExpiry(t *testing.T) {
	ctx := context.Background()
	s := seedStore(t)
	early := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	late := early.AddDate(0, 2, 0)

	require.NoError(t, s.Stock().Merge(ctx, &domain.StockUnit{BinID: "B1", ItemID: "I1", Quantity: 5, ExpiryDate: &late}))
	require.NoError(t, s.Stock().Merge(ctx, &domain.StockUnit{BinID: "B1", ItemID: "I1", Quantity: 5, ExpiryDate: &early}))
	require.NoError(t, s.Stock().Merge(ctx, &domain.StockUnit{BinID: "B1", ItemID: "I1", Quantity: 5, ExpiryDate: &late}))

	unit, err := s.Stock().FindOne(ctx, "B1", "I1")
	require.NoError(t, err)
	assert.Equal(t, 65, unit.Quantity)
	require.NotNil(t, unit.ExpiryDate)
	assert.True(t, unit.ExpiryDate.Equal(early))
}

func TestRobotCompareAndSwap(t *testing.T) {
	ctx := context.Background()
	s := seedStore(t)
	robot, err := domain.NewRobot("R-1", "", "", 1)
	require.NoError(t, err)
	require.NoError(t, s.Robots().Create(ctx, robot))
	assert.ErrorIs(t, s.Robots().Create(ctx, robot), domain.ErrAlreadyExists)

	ok, err := s.Robots().CompareAndSwapStatus(ctx, "R-1", domain.RobotStatusIdle, domain.RobotStatusWorking, "CMD-1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Robots().CompareAndSwapStatus(ctx, "R-1", domain.RobotStatusIdle, domain.RobotStatusWorking, "CMD-2")
	require.NoError(t, err)
	assert.False(t, ok, "second reservation must fail")

	stored, err := s.Robots().FindByID(ctx, "R-1")
	require.NoError(t, err)
	assert.Equal(t, "CMD-1", stored.CurrentCommandID)
}

func TestCommandUpdateIsConditional(t *testing.T) {
	ctx := context.Background()
	s := seedStore(t)
	cmd := domain.NewCommand("R-1", domain.CommandTypeCalibrate, domain.CommandParameters{}, "op")
	require.NoError(t, s.Commands().Create(ctx, cmd))

	started := *cmd
	require.NoError(t, started.Start(time.Now()))
	ok, err := s.Commands().Update(ctx, &started, domain.CommandStatusPending)
	require.NoError(t, err)
	assert.True(t, ok)

	cancelled := *cmd
	require.NoError(t, cancelled.Cancel(time.Now()))
	ok, err = s.Commands().Update(ctx, &cancelled, domain.CommandStatusPending)
	require.NoError(t, err)
	assert.False(t, ok)

	stalled, err := s.Commands().FindExecutingSince(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Len(t, stalled, 1)
}

func TestLockerSerializesKeys(t *testing.T) {
	ctx := context.Background()
	locker := NewLocker()

	held, err := locker.Obtain(ctx, "k", time.Second)
	require.NoError(t, err)

	_, err = locker.Obtain(ctx, "k", 20*time.Millisecond)
	assert.ErrorIs(t, err, domain.ErrLockNotObtained)

	other, err := locker.Obtain(ctx, "other", 20*time.Millisecond)
	require.NoError(t, err)
	require.NoError(t, other.Release(ctx))

	require.NoError(t, held.Release(ctx))
	require.NoError(t, held.Release(ctx))

	again, err := locker.Obtain(ctx, "k", 20*time.Millisecond)
	require.NoError(t, err)
	require.NoError(t, again.Release(ctx))
}
