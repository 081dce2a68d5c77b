package application

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/asrs-service/internal/domain"
	apperrors "github.com/wms-platform/asrs-service/pkg/errors"
	"github.com/wms-platform/asrs-service/pkg/logging"
)

func TestCreateBinDerivesPlacement(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	dto, err := h.inventory.CreateBin(ctx, CreateBinCommand{
		ZoneID: "Z-B", ZoneCode: "B",
		AisleID: "AI-2", AisleNumber: 2,
		RackID: "R-3", RackNumber: 3,
		BinID: "B1", Level: 1, Position: 4, Capacity: 40,
	})
	require.NoError(t, err)
	assert.Equal(t, "B-2-3-1-4", dto.LocationCode)
	assert.Equal(t, dto.LocationCode, dto.Code)
	assert.Equal(t, "Z-B", dto.ZoneID)
	assert.Equal(t, "AI-2", dto.AisleID)
	assert.InDelta(t, 6.0, dto.Coordinate.X, 1e-9)
	assert.InDelta(t, 8.0, dto.Coordinate.Y, 1e-9)
	assert.InDelta(t, 0.4, dto.Coordinate.Z, 1e-9)
	assert.Equal(t, 40, dto.AvailableCapacity)

	got, err := h.inventory.GetBin(ctx, GetBinQuery{BinID: "B1"})
	require.NoError(t, err)
	assert.Equal(t, dto.LocationCode, got.LocationCode)
}

func TestCreateBinRejectsInconsistentParents(t *testing.T) {
	h := newHarness(t)
	h.bin(t, "B1", 0, 0, 10)

	tests := []struct {
		name string
		cmd  CreateBinCommand
		code string
	}{
		{
			name: "aisle in another zone",
			cmd: CreateBinCommand{ZoneID: "Z-X", ZoneCode: "X", AisleID: "AI-1", AisleNumber: 1,
				RackID: "R-9", RackNumber: 9, BinID: "B9", Capacity: 10},
			code: apperrors.CodeValidationError,
		},
		{
			name: "rack in another aisle",
			cmd: CreateBinCommand{ZoneID: "Z-A", ZoneCode: "A", AisleID: "AI-7", AisleNumber: 7,
				RackID: "R-1", RackNumber: 1, BinID: "B9", Capacity: 10},
			code: apperrors.CodeValidationError,
		},
		{
			name: "duplicate bin",
			cmd: CreateBinCommand{ZoneID: "Z-A", ZoneCode: "A", AisleID: "AI-1", AisleNumber: 1,
				RackID: "R-1", RackNumber: 1, BinID: "B1", Capacity: 10},
			code: apperrors.CodeConflict,
		},
		{
			name: "zero capacity",
			cmd: CreateBinCommand{ZoneID: "Z-A", ZoneCode: "A", AisleID: "AI-1", AisleNumber: 1,
				RackID: "R-1", RackNumber: 1, BinID: "B2"},
			code: apperrors.CodeValidationError,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.inventory.CreateBin(context.Background(), tt.cmd)
			requireCode(t, err, tt.code)
		})
	}

	_, err := h.inventory.GetBin(context.Background(), GetBinQuery{BinID: "B9"})
	requireCode(t, err, apperrors.CodeNotFound)
}

// failingBinLookup fails every bin lookup with a store error
type failingBinLookup struct {
	domain.LayoutRepository
	err error
}

func (f failingBinLookup) FindBin(ctx context.Context, binID string) (*domain.Bin, error) {
	return nil, f.err
}

func TestCreateBinReturnsLayoutErrors(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.store.Layout().SaveZone(ctx, &domain.Zone{ID: "Z-BAD"}))

	_, err := h.inventory.CreateBin(ctx, CreateBinCommand{
		ZoneID: "Z-BAD", ZoneCode: "Q",
		AisleID: "AI-5", AisleNumber: 5,
		RackID: "R-5", RackNumber: 5,
		BinID: "B5", Capacity: 10,
	})
	requireCode(t, err, apperrors.CodeValidationError)
	_, err = h.store.Layout().FindAisle(ctx, "AI-5")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	storeErr := errors.New("layout store unavailable")
	inventory := NewInventoryApplicationService(h.store, failingBinLookup{LayoutRepository: h.store.Layout(), err: storeErr},
		h.store.Items(), h.store.Stock(), h.stockOps, domain.DefaultLayoutGeometry(), logging.New(logging.DefaultConfig("test")))
	_, err = inventory.CreateBin(ctx, CreateBinCommand{
		ZoneID: "Z-C", ZoneCode: "C",
		AisleID: "AI-6", AisleNumber: 6,
		RackID: "R-6", RackNumber: 6,
		BinID: "B6", Capacity: 10,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, storeErr)
	_, err = h.store.Layout().FindBin(ctx, "B6")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestReceiveStockGuardsCapacity(t *testing.T) {
	h := newHarness(t)
	h.bin(t, "B1", 0, 0, 100)
	h.item(t, "I1", 1)
	ctx := context.Background()

	dto, err := h.inventory.ReceiveStock(ctx, ReceiveStockCommand{BinID: "B1", ItemID: "I1", Quantity: 90})
	require.NoError(t, err)
	assert.Equal(t, 90, dto.CurrentLoad)
	assert.Equal(t, 10, dto.AvailableCapacity)

	_, err = h.inventory.ReceiveStock(ctx, ReceiveStockCommand{BinID: "B1", ItemID: "I1", Quantity: 20})
	requireCode(t, err, apperrors.CodeCapacityExceeded)
	appErr, _ := apperrors.AsAppError(err)
	assert.Equal(t, "90", appErr.Details["currentLoad"])
	assert.Equal(t, "100", appErr.Details["capacity"])
	assert.Equal(t, 90, h.load(t, "B1"))

	_, err = h.inventory.ReceiveStock(ctx, ReceiveStockCommand{BinID: "B1", ItemID: "ghost", Quantity: 1})
	requireCode(t, err, apperrors.CodeNotFound)

	_, err = h.inventory.ReceiveStock(ctx, ReceiveStockCommand{BinID: "B1", ItemID: "I1", Quantity: 0})
	requireCode(t, err, apperrors.CodeValidationError)
}

func TestStockLevels(t *testing.T) {
	h := newHarness(t)
	h.bin(t, "B1", 0, 0, 100)
	h.bin(t, "B2", 0, 1, 100)
	h.item(t, "I1", 1)
	h.stock(t, "B1", "I1", 5, nil)
	h.stock(t, "B2", "I1", 7, day(3))
	ctx := context.Background()

	levels, err := h.inventory.StockLevels(ctx, StockLevelsQuery{ItemID: "I1"})
	require.NoError(t, err)
	assert.Equal(t, 12, levels.Total)
	assert.Len(t, levels.Units, 2)

	_, err = h.inventory.StockLevels(ctx, StockLevelsQuery{})
	requireCode(t, err, apperrors.CodeValidationError)
}

func TestRegisterItemValidates(t *testing.T) {
	h := newHarness(t)
	_, err := h.inventory.RegisterItem(context.Background(), RegisterItemCommand{ItemID: "I1"})
	requireCode(t, err, apperrors.CodeValidationError)
}
