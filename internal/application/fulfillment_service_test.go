package application

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/asrs-service/internal/domain"
	pkgerrors "github.com/wms-platform/asrs-service/pkg/errors"
)

func seedTwoBins(t *testing.T, h *harness) {
	t.Helper()
	h.bin(t, "B1", 0, 0, 200)
	h.bin(t, "B2", 1, 0, 200)
	h.item(t, "I1", 1.0)
	h.stock(t, "B1", "I1", 50, day(10))
	h.stock(t, "B2", "I1", 100, day(20))
}

func TestPlanAndExecuteSplitsAcrossBins(t *testing.T) {
	h := newHarness(t)
	seedTwoBins(t, h)
	ctx := context.Background()

	plan, err := h.fulfillment.PlanFulfillment(ctx, PlanFulfillmentCommand{Request: domain.PickRequest{
		RequestID: "REQ-1",
		Lines:     []domain.PickLine{{ItemID: "I1", Quantity: 120}},
	}})
	require.NoError(t, err)
	require.Len(t, plan.Steps, 2)

	assert.Equal(t, 1, plan.Steps[0].Sequence)
	assert.Equal(t, "B1", plan.Steps[0].BinID)
	assert.Equal(t, 50, plan.Steps[0].Quantity)
	assert.Equal(t, 2, plan.Steps[1].Sequence)
	assert.Equal(t, "B2", plan.Steps[1].BinID)
	assert.Equal(t, 70, plan.Steps[1].Quantity)

	// planning alone does not touch stock
	assert.Equal(t, 50, h.unit(t, "B1", "I1"))
	assert.Equal(t, 100, h.unit(t, "B2", "I1"))

	result, err := h.fulfillment.ExecutePlan(ctx, ExecutePlanCommand{PlanID: plan.PlanID, PerformedBy: "operator-1"})
	require.NoError(t, err)
	require.Len(t, result.Movements, 2)
	assert.Empty(t, result.CommandIDs)

	moved := 0
	for _, m := range result.Movements {
		assert.Equal(t, "PICK", m.Type)
		assert.Equal(t, "COMPLETED", m.Status)
		assert.Equal(t, "operator-1", m.PerformedBy)
		moved += m.Quantity
	}
	assert.Equal(t, 120, moved)

	assert.Equal(t, 0, h.unit(t, "B1", "I1"))
	assert.Equal(t, 30, h.unit(t, "B2", "I1"))
	assert.Equal(t, 0, h.load(t, "B1"))
	assert.Equal(t, 30, h.load(t, "B2"))
}

func TestAllocationPrefersEarliestExpiry(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.bin(t, "B1", 0, 0, 100)
	h.bin(t, "B2", 0, 1, 100)
	h.bin(t, "B3", 0, 2, 100)
	h.item(t, "I1", 0)
	h.stock(t, "B1", "I1", 40, nil)
	h.stock(t, "B2", "I1", 40, day(30))
	h.stock(t, "B3", "I1", 40, day(5))

	draws, err := h.allocator.Allocate(ctx, "I1", 30)
	require.NoError(t, err)
	require.Len(t, draws, 1)
	assert.Equal(t, "B3", draws[0].Bin.ID)

	draws, err = h.allocator.Allocate(ctx, "I1", 100)
	require.NoError(t, err)
	require.Len(t, draws, 3)
	assert.Equal(t, []string{"B3", "B2", "B1"}, []string{draws[0].Bin.ID, draws[1].Bin.ID, draws[2].Bin.ID})
	assert.Equal(t, []int{40, 40, 20}, []int{draws[0].Quantity, draws[1].Quantity, draws[2].Quantity})
}

func TestAllocationTieBreaksOnLevelThenBin(t *testing.T) {
	h := newHarness(t)
	h.bin(t, "B9", 0, 0, 100)
	h.bin(t, "B1", 2, 0, 100)
	h.bin(t, "B5", 0, 1, 100)
	h.item(t, "I1", 0)
	for _, b := range []string{"B9", "B1", "B5"} {
		h.stock(t, b, "I1", 10, day(1))
	}

	draws, err := h.allocator.Allocate(context.Background(), "I1", 30)
	require.NoError(t, err)
	require.Len(t, draws, 3)
	assert.Equal(t, "B5", draws[0].Bin.ID)
	assert.Equal(t, "B9", draws[1].Bin.ID)
	assert.Equal(t, "B1", draws[2].Bin.ID)
}

func TestPlanFailsOnShortfall(t *testing.T) {
	h := newHarness(t)
	seedTwoBins(t, h)

	_, err := h.fulfillment.PlanFulfillment(context.Background(), PlanFulfillmentCommand{Request: domain.PickRequest{
		Lines: []domain.PickLine{{ItemID: "I1", Quantity: 151}},
	}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInsufficientStock))

	appErr, ok := pkgerrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, pkgerrors.CodeInsufficientStock, appErr.Code)
	assert.Equal(t, "150", appErr.Details["available"])
	assert.Equal(t, "1", appErr.Details["shortfall"])
}

func TestPlanRejectsUnknownItem(t *testing.T) {
	h := newHarness(t)
	seedTwoBins(t, h)

	_, err := h.fulfillment.PlanFulfillment(context.Background(), PlanFulfillmentCommand{Request: domain.PickRequest{
		Lines: []domain.PickLine{{ItemID: "missing", Quantity: 1}},
	}})
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestPlanMergesDuplicateLines(t *testing.T) {
	h := newHarness(t)
	seedTwoBins(t, h)

	plan, err := h.fulfillment.PlanFulfillment(context.Background(), PlanFulfillmentCommand{Request: domain.PickRequest{
		Lines: []domain.PickLine{
			{ItemID: "I1", Quantity: 30, Priority: domain.PriorityLow},
			{ItemID: "I1", Quantity: 30, Priority: domain.PriorityUrgent},
		},
	}})
	require.NoError(t, err)

	total := 0
	for _, s := range plan.Steps {
		total += s.Quantity
	}
	assert.Equal(t, 60, total)
	assert.NotEmpty(t, plan.RequestID)
}

func TestExecuteTwiceConflicts(t *testing.T) {
	h := newHarness(t)
	seedTwoBins(t, h)
	ctx := context.Background()

	plan, err := h.fulfillment.PlanFulfillment(ctx, PlanFulfillmentCommand{Request: domain.PickRequest{
		Lines: []domain.PickLine{{ItemID: "I1", Quantity: 10}},
	}})
	require.NoError(t, err)

	_, err = h.fulfillment.ExecutePlan(ctx, ExecutePlanCommand{PlanID: plan.PlanID, PerformedBy: "op"})
	require.NoError(t, err)

	_, err = h.fulfillment.ExecutePlan(ctx, ExecutePlanCommand{PlanID: plan.PlanID, PerformedBy: "op"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrTransactionConflict))
	assert.Equal(t, 40, h.unit(t, "B1", "I1"))
}

func TestExecuteRollsBackWhenStockChanged(t *testing.T) {
	h := newHarness(t)
	seedTwoBins(t, h)
	ctx := context.Background()

	plan, err := h.fulfillment.PlanFulfillment(ctx, PlanFulfillmentCommand{Request: domain.PickRequest{
		Lines: []domain.PickLine{{ItemID: "I1", Quantity: 120}},
	}})
	require.NoError(t, err)

	// someone drains B2 between planning and execution
	require.NoError(t, h.stockOps.Pick(ctx, "B2", "I1", 90, ""))

	_, err = h.fulfillment.ExecutePlan(ctx, ExecutePlanCommand{PlanID: plan.PlanID, PerformedBy: "op"})
	require.Error(t, err)

	var conflict *domain.TransactionConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, 2, conflict.Sequence)
	assert.Equal(t, "B2", conflict.BinID)
	assert.Equal(t, 70, conflict.Requested)
	assert.Equal(t, 10, conflict.Available)

	// step 1 was rolled back with the rest
	assert.Equal(t, 50, h.unit(t, "B1", "I1"))
	assert.Equal(t, 50, h.load(t, "B1"))

	page, err := h.fulfillment.ListMovements(ctx, ListMovementsQuery{Filter: domain.MovementFilter{PlanID: plan.PlanID}})
	require.NoError(t, err)
	assert.Zero(t, page.Total)
}

func TestExecuteRequiresPerformer(t *testing.T) {
	h := newHarness(t)
	seedTwoBins(t, h)

	_, err := h.fulfillment.ExecuteRequest(context.Background(), ExecuteRequestCommand{Request: domain.PickRequest{
		Lines: []domain.PickLine{{ItemID: "I1", Quantity: 1}},
	}})
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

func TestExecuteRequestWithRobotSchedulesRoute(t *testing.T) {
	h := newHarness(t)
	seedTwoBins(t, h)
	h.robot(t, "R1")
	ctx := context.Background()

	result, err := h.fulfillment.ExecuteRequest(ctx, ExecuteRequestCommand{
		Request: domain.PickRequest{
			Lines:   []domain.PickLine{{ItemID: "I1", Quantity: 120}},
			RobotID: "R1",
		},
		PerformedBy: "op",
	})
	require.NoError(t, err)
	require.NotNil(t, result.Plan)
	require.Len(t, result.CommandIDs, 1)
	assert.Empty(t, result.Warnings)

	cmd, err := h.store.Commands().FindByID(ctx, result.CommandIDs[0])
	require.NoError(t, err)
	assert.Equal(t, domain.CommandTypeMove, cmd.Type)
	assert.Equal(t, []string{"B1", "B2"}, cmd.Parameters.Waypoints)
	assert.Equal(t, result.PlanID, cmd.PlanID)
	assert.Equal(t, domain.RobotStatusWorking, h.robotStatus(t, "R1"))

	// the route itself moves no stock
	_, err = h.executor.Execute(ctx, cmd.ID)
	require.NoError(t, err)
	assert.Equal(t, 30, h.unit(t, "B2", "I1"))
	assert.Equal(t, domain.RobotStatusIdle, h.robotStatus(t, "R1"))
}

func TestExecuteWithBusyRobotLeavesStockAlone(t *testing.T) {
	h := newHarness(t)
	seedTwoBins(t, h)
	h.robot(t, "R1")
	ctx := context.Background()

	_, err := h.scheduler.Schedule(ctx, ScheduleCommand{RobotID: "R1", Type: "CALIBRATE"})
	require.NoError(t, err)

	plan, err := h.fulfillment.PlanFulfillment(ctx, PlanFulfillmentCommand{Request: domain.PickRequest{
		Lines: []domain.PickLine{{ItemID: "I1", Quantity: 10}},
	}})
	require.NoError(t, err)

	_, err = h.fulfillment.ExecutePlan(ctx, ExecutePlanCommand{PlanID: plan.PlanID, PerformedBy: "op", RobotID: "R1"})
	assert.True(t, errors.Is(err, domain.ErrRobotUnavailable))
	assert.Equal(t, 50, h.unit(t, "B1", "I1"))
}

func TestListMovementsFilters(t *testing.T) {
	h := newHarness(t)
	seedTwoBins(t, h)
	ctx := context.Background()

	_, err := h.fulfillment.ExecuteRequest(ctx, ExecuteRequestCommand{
		Request:     domain.PickRequest{Lines: []domain.PickLine{{ItemID: "I1", Quantity: 120}}},
		PerformedBy: "op",
	})
	require.NoError(t, err)

	tests := []struct {
		name   string
		filter domain.MovementFilter
		want   int64
	}{
		{"all", domain.MovementFilter{}, 2},
		{"by item", domain.MovementFilter{ItemID: "I1"}, 2},
		{"by bin", domain.MovementFilter{BinID: "B2"}, 1},
		{"unknown plan", domain.MovementFilter{PlanID: "PLN-x"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := h.fulfillment.ListMovements(ctx, ListMovementsQuery{Filter: tt.filter})
			require.NoError(t, err)
			assert.Equal(t, tt.want, page.Total)
			assert.Equal(t, domain.DefaultPageLimit, page.Limit)
		})
	}
}

func TestPlanRecordsOutboxEvents(t *testing.T) {
	h := newHarness(t)
	seedTwoBins(t, h)
	ctx := context.Background()

	_, err := h.fulfillment.ExecuteRequest(ctx, ExecuteRequestCommand{
		Request:     domain.PickRequest{Lines: []domain.PickLine{{ItemID: "I1", Quantity: 120}}},
		PerformedBy: "op",
	})
	require.NoError(t, err)

	types := h.store.Outbox().EventTypes(ctx)
	assert.Contains(t, types, "asrs.fulfillment.plan-generated")
	assert.Contains(t, types, "asrs.fulfillment.plan-executed")
	assert.Contains(t, types, "asrs.inventory.stock-picked")

	events, err := h.store.Outbox().FindUnpublished(ctx, 100)
	require.NoError(t, err)
	var executed struct {
		Data struct {
			TotalQuantity int            `json:"totalQuantity"`
			Quantities    map[string]int `json:"quantities"`
		} `json:"data"`
	}
	found := false
	for _, e := range events {
		if e.EventType == "asrs.fulfillment.plan-executed" {
			require.NoError(t, json.Unmarshal(e.Payload, &executed))
			found = true
		}
	}
	require.True(t, found)
	assert.Equal(t, 120, executed.Data.TotalQuantity)
	assert.Equal(t, map[string]int{"I1": 120}, executed.Data.Quantities)
}

func TestConcurrentExecutionsDetectConflict(t *testing.T) {
	h := newHarness(t)
	seedTwoBins(t, h)
	ctx := context.Background()

	var planIDs []string
	for i := 0; i < 2; i++ {
		plan, err := h.fulfillment.PlanFulfillment(ctx, PlanFulfillmentCommand{Request: domain.PickRequest{
			Lines: []domain.PickLine{{ItemID: "I1", Quantity: 120}},
		}})
		require.NoError(t, err)
		planIDs = append(planIDs, plan.PlanID)
	}

	errs := make([]error, len(planIDs))
	var wg sync.WaitGroup
	for i, planID := range planIDs {
		wg.Add(1)
		go func(i int, planID string) {
			defer wg.Done()
			_, errs[i] = h.fulfillment.ExecutePlan(ctx, ExecutePlanCommand{PlanID: planID, PerformedBy: "op"})
		}(i, planID)
	}
	wg.Wait()

	succeeded, conflicted := 0, 0
	for _, err := range errs {
		var conflict *domain.TransactionConflictError
		switch {
		case err == nil:
			succeeded++
		case errors.As(err, &conflict):
			conflicted++
		default:
			t.Errorf("unexpected execution error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, conflicted)

	// exactly one plan's worth of stock left the bins
	assert.Equal(t, 0, h.unit(t, "B1", "I1"))
	assert.Equal(t, 30, h.unit(t, "B2", "I1"))
	assert.Equal(t, 0, h.load(t, "B1"))
	assert.Equal(t, 30, h.load(t, "B2"))

	page, err := h.fulfillment.ListMovements(ctx, ListMovementsQuery{Filter: domain.MovementFilter{ItemID: "I1"}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
}
