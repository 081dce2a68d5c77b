package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wms-platform/asrs-service/internal/domain"
	"github.com/wms-platform/asrs-service/pkg/logging"
)

// PlaceRequest puts units of an item into a bin
type PlaceRequest struct {
	BinID      string
	ItemID     string
	Quantity   int
	ExpiryDate *time.Time
	BatchID    string
	CommandID  string
}

// StockOperations applies single-bin pick and place mutations. Each call runs
// in its own transaction under the bin lock and leaves no trace on failure.
type StockOperations struct {
	transactor domain.Transactor
	layout     domain.LayoutRepository
	stock      domain.StockRepository
	items      domain.ItemRepository
	publisher  domain.EventPublisher
	locker     domain.Locker
	lockTTL    time.Duration
	logger     *logging.Logger
}

// NewStockOperations creates a new StockOperations
func NewStockOperations(
	transactor domain.Transactor,
	layout domain.LayoutRepository,
	stock domain.StockRepository,
	items domain.ItemRepository,
	publisher domain.EventPublisher,
	locker domain.Locker,
	lockTTL time.Duration,
	logger *logging.Logger,
) *StockOperations {
	if lockTTL <= 0 {
		lockTTL = DefaultLockTTL
	}
	return &StockOperations{
		transactor: transactor,
		layout:     layout,
		stock:      stock,
		items:      items,
		publisher:  publisher,
		locker:     locker,
		lockTTL:    lockTTL,
		logger:     logger.WithComponent("stock-operations"),
	}
}

// Pick removes quantity units of itemID from binID
func (o *StockOperations) Pick(ctx context.Context, binID, itemID string, quantity int, commandID string) error {
	if quantity <= 0 {
		return domain.NewValidationError("quantity", "must be positive")
	}

	release, err := acquireLocks(ctx, o.locker, []string{domain.BinLockKey(binID)}, o.lockTTL, o.logger)
	if err != nil {
		return fmt.Errorf("failed to lock bin %s: %w", binID, err)
	}
	defer release()

	return o.transactor.WithinTransaction(ctx, func(txCtx context.Context) error {
		unit, err := o.stock.FindOne(txCtx, binID, itemID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.NewInsufficientStockError(itemID, quantity, 0)
			}
			return err
		}
		if unit.Quantity < quantity {
			return domain.NewInsufficientStockError(itemID, quantity, unit.Quantity)
		}

		ok, err := o.stock.Decrement(txCtx, binID, itemID, quantity)
		if err != nil {
			return fmt.Errorf("failed to decrement stock: %w", err)
		}
		if !ok {
			return domain.NewInsufficientStockError(itemID, quantity, unit.Quantity)
		}

		ok, err = o.layout.DecrementBinLoad(txCtx, binID, quantity)
		if err != nil {
			return fmt.Errorf("failed to decrement bin load: %w", err)
		}
		if !ok {
			return &domain.TransactionConflictError{BinID: binID, ItemID: itemID, Requested: quantity,
				Reason: fmt.Sprintf("bin %s load is below %d", binID, quantity)}
		}

		return o.publisher.Publish(txCtx, &domain.StockPickedEvent{
			BinID:     binID,
			ItemID:    itemID,
			Quantity:  quantity,
			CommandID: commandID,
			PickedAt:  time.Now().UTC(),
		})
	})
}

// Place adds units to a bin, merging into an existing stock unit. The bin
// load must stay within capacity.
func (o *StockOperations) Place(ctx context.Context, req PlaceRequest) (*domain.Bin, error) {
	if req.Quantity <= 0 {
		return nil, domain.NewValidationError("quantity", "must be positive")
	}

	release, err := acquireLocks(ctx, o.locker, []string{domain.BinLockKey(req.BinID)}, o.lockTTL, o.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to lock bin %s: %w", req.BinID, err)
	}
	defer release()

	var placed *domain.Bin
	err = o.transactor.WithinTransaction(ctx, func(txCtx context.Context) error {
		if _, err := o.items.FindByID(txCtx, req.ItemID); err != nil {
			return err
		}

		bin, err := o.layout.FindBin(txCtx, req.BinID)
		if err != nil {
			return err
		}
		capErr := &domain.CapacityExceededError{
			BinID:       bin.ID,
			Capacity:    bin.Capacity,
			CurrentLoad: bin.CurrentLoad,
			Requested:   req.Quantity,
		}
		if bin.CurrentLoad+req.Quantity > bin.Capacity {
			return capErr
		}

		ok, err := o.layout.IncrementBinLoad(txCtx, bin.ID, req.Quantity)
		if err != nil {
			return fmt.Errorf("failed to increment bin load: %w", err)
		}
		if !ok {
			return capErr
		}

		if err := o.stock.Merge(txCtx, &domain.StockUnit{
			BinID:      req.BinID,
			ItemID:     req.ItemID,
			Quantity:   req.Quantity,
			ExpiryDate: req.ExpiryDate,
			BatchID:    req.BatchID,
			UpdatedAt:  time.Now().UTC(),
		}); err != nil {
			return fmt.Errorf("failed to merge stock: %w", err)
		}

		bin.CurrentLoad += req.Quantity
		placed = bin

		return o.publisher.Publish(txCtx, &domain.StockPlacedEvent{
			BinID:     req.BinID,
			ItemID:    req.ItemID,
			Quantity:  req.Quantity,
			BinLoad:   bin.CurrentLoad,
			CommandID: req.CommandID,
			PlacedAt:  time.Now().UTC(),
		})
	})
	if err != nil {
		return nil, err
	}

	return placed, nil
}
