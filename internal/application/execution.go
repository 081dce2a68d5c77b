package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/wms-platform/asrs-service/internal/domain"
	"github.com/wms-platform/asrs-service/pkg/logging"
	"github.com/wms-platform/asrs-service/pkg/metrics"
)

// ExecutionTransaction commits a fulfillment plan: it consumes the planned
// stock and writes one movement record per step, all or nothing.
type ExecutionTransaction struct {
	transactor domain.Transactor
	stock      domain.StockRepository
	layout     domain.LayoutRepository
	movements  domain.MovementRepository
	publisher  domain.EventPublisher
	locker     domain.Locker
	lockTTL    time.Duration
	metrics    *metrics.Metrics
	logger     *logging.Logger
}

// NewExecutionTransaction creates a new ExecutionTransaction. m may be nil.
func NewExecutionTransaction(
	transactor domain.Transactor,
	stock domain.StockRepository,
	layout domain.LayoutRepository,
	movements domain.MovementRepository,
	publisher domain.EventPublisher,
	locker domain.Locker,
	lockTTL time.Duration,
	m *metrics.Metrics,
	logger *logging.Logger,
) *ExecutionTransaction {
	if lockTTL <= 0 {
		lockTTL = DefaultLockTTL
	}
	return &ExecutionTransaction{
		transactor: transactor,
		stock:      stock,
		layout:     layout,
		movements:  movements,
		publisher:  publisher,
		locker:     locker,
		lockTTL:    lockTTL,
		metrics:    m,
		logger:     logger.WithComponent("execution"),
	}
}

// Execute applies plan. Stock that changed since planning surfaces as a
// *domain.TransactionConflictError and nothing is written.
func (t *ExecutionTransaction) Execute(ctx context.Context, plan *domain.FulfillmentPlan, performedBy string) ([]*domain.MovementRecord, error) {
	if performedBy == "" {
		return nil, domain.NewValidationError("performedBy", "is required")
	}
	if len(plan.Steps) == 0 {
		return nil, domain.NewValidationError("plan", "has no steps")
	}

	keys := make([]string, 0, len(plan.Steps))
	for _, binID := range plan.BinIDs() {
		keys = append(keys, domain.BinLockKey(binID))
	}
	release, err := acquireLocks(ctx, t.locker, keys, t.lockTTL, t.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to lock bins for plan %s: %w", plan.PlanID, err)
	}
	defer release()

	steps := make([]domain.PickStep, len(plan.Steps))
	copy(steps, plan.Steps)
	sort.SliceStable(steps, func(i, j int) bool { return steps[i].Sequence < steps[j].Sequence })

	var records []*domain.MovementRecord
	err = t.transactor.WithinTransaction(ctx, func(txCtx context.Context) error {
		records = make([]*domain.MovementRecord, 0, len(steps))

		executed, err := t.movements.ExistsForPlan(txCtx, plan.PlanID)
		if err != nil {
			return fmt.Errorf("failed to check plan movements: %w", err)
		}
		if executed {
			return &domain.TransactionConflictError{
				PlanID: plan.PlanID,
				Reason: fmt.Sprintf("plan %s has already been executed", plan.PlanID),
			}
		}

		now := time.Now().UTC()
		events := make([]domain.DomainEvent, 0, len(steps)+1)
		total := 0
		for _, step := range steps {
			if err := t.applyStep(txCtx, plan.PlanID, step); err != nil {
				return err
			}

			records = append(records, domain.NewPickMovement(plan.PlanID, step.Sequence, step.ItemID, step.BinID, step.Quantity, performedBy, now))
			events = append(events, &domain.StockPickedEvent{
				BinID:    step.BinID,
				ItemID:   step.ItemID,
				Quantity: step.Quantity,
				PlanID:   plan.PlanID,
				PickedAt: now,
			})
			total += step.Quantity
		}

		if err := t.movements.Append(txCtx, records...); err != nil {
			return fmt.Errorf("failed to append movements: %w", err)
		}

		events = append(events, &domain.PlanExecutedEvent{
			PlanID:        plan.PlanID,
			PerformedBy:   performedBy,
			MovementCount: len(records),
			TotalQuantity: total,
			Quantities:    plan.QuantityByItem(),
			ExecutedAt:    now,
		})
		return t.publisher.Publish(txCtx, events...)
	})
	if err != nil {
		if errors.Is(err, domain.ErrTransactionConflict) && t.metrics != nil {
			t.metrics.RecordTransactionConflict("execution")
		}
		t.logger.WithError(err).Warn("Plan execution rolled back", "planId", plan.PlanID)
		return nil, err
	}

	if t.metrics != nil {
		for _, step := range steps {
			t.metrics.RecordUnitsPicked(step.Zone, step.Quantity)
		}
	}

	return records, nil
}

func (t *ExecutionTransaction) applyStep(ctx context.Context, planID string, step domain.PickStep) error {
	conflict := &domain.TransactionConflictError{
		PlanID:    planID,
		Sequence:  step.Sequence,
		BinID:     step.BinID,
		ItemID:    step.ItemID,
		Requested: step.Quantity,
	}

	unit, err := t.stock.FindOne(ctx, step.BinID, step.ItemID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return conflict
		}
		return fmt.Errorf("failed to read stock: %w", err)
	}
	conflict.Available = unit.Quantity
	if unit.Quantity < step.Quantity {
		return conflict
	}

	ok, err := t.stock.Decrement(ctx, step.BinID, step.ItemID, step.Quantity)
	if err != nil {
		return fmt.Errorf("failed to decrement stock: %w", err)
	}
	if !ok {
		return conflict
	}

	ok, err = t.layout.DecrementBinLoad(ctx, step.BinID, step.Quantity)
	if err != nil {
		return fmt.Errorf("failed to decrement bin load: %w", err)
	}
	if !ok {
		conflict.Reason = fmt.Sprintf("bin %s load is below %d at step %d", step.BinID, step.Quantity, step.Sequence)
		return conflict
	}

	return nil
}
