package application

import (
	"context"
	"fmt"
	"sort"

	"github.com/wms-platform/asrs-service/internal/domain"
	"github.com/wms-platform/asrs-service/pkg/logging"
)

// Draw is the quantity taken from one stock unit
type Draw struct {
	Unit     *domain.StockUnit
	Bin      *domain.Bin
	Quantity int
}

// InventoryAllocator selects stock units for pick requests. It reads a
// snapshot without locking; the execution transaction re-checks at commit.
type InventoryAllocator struct {
	stock  domain.StockRepository
	layout domain.LayoutRepository
	items  domain.ItemRepository
	logger *logging.Logger
}

// NewInventoryAllocator creates a new InventoryAllocator
func NewInventoryAllocator(
	stock domain.StockRepository,
	layout domain.LayoutRepository,
	items domain.ItemRepository,
	logger *logging.Logger,
) *InventoryAllocator {
	return &InventoryAllocator{
		stock:  stock,
		layout: layout,
		items:  items,
		logger: logger.WithComponent("allocator"),
	}
}

// Allocate draws quantity units of itemID, earliest expiry first, then lowest
// rack level, then bin ID. Either the full quantity is drawn or nothing is.
func (a *InventoryAllocator) Allocate(ctx context.Context, itemID string, quantity int) ([]Draw, error) {
	if quantity <= 0 {
		return nil, domain.NewValidationError("quantity", "must be positive")
	}

	units, err := a.stock.FindByItem(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to load stock for item %s: %w", itemID, err)
	}

	candidates := make([]Draw, 0, len(units))
	available := 0
	for _, unit := range units {
		if unit.Quantity <= 0 {
			continue
		}
		bin, err := a.layout.FindBin(ctx, unit.BinID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve bin %s: %w", unit.BinID, err)
		}
		candidates = append(candidates, Draw{Unit: unit, Bin: bin})
		available += unit.Quantity
	}

	if available < quantity {
		return nil, domain.NewInsufficientStockError(itemID, quantity, available)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		ui, uj := candidates[i].Unit, candidates[j].Unit
		if !ui.SameExpiry(uj) {
			return ui.ExpiresBefore(uj)
		}
		if candidates[i].Bin.Level != candidates[j].Bin.Level {
			return candidates[i].Bin.Level < candidates[j].Bin.Level
		}
		return ui.BinID < uj.BinID
	})

	draws := make([]Draw, 0, len(candidates))
	remaining := quantity
	for _, c := range candidates {
		if remaining == 0 {
			break
		}
		take := min(c.Unit.Quantity, remaining)
		c.Quantity = take
		draws = append(draws, c)
		remaining -= take
	}

	return draws, nil
}

// AllocateRequest merges the request lines per item and turns each draw into
// a pick task. Merged lines sum their quantities, keep the most urgent
// priority, and keep the order in which items first appeared.
func (a *InventoryAllocator) AllocateRequest(ctx context.Context, req domain.PickRequest) ([]domain.PickTask, error) {
	lines := mergeLines(req.Lines)

	tasks := make([]domain.PickTask, 0, len(lines))
	for _, line := range lines {
		item, err := a.items.FindByID(ctx, line.ItemID)
		if err != nil {
			return nil, err
		}

		draws, err := a.Allocate(ctx, line.ItemID, line.Quantity)
		if err != nil {
			a.logger.WithError(err).Warn("Allocation failed", "itemId", line.ItemID, "quantity", line.Quantity)
			return nil, err
		}

		for _, d := range draws {
			tasks = append(tasks, domain.PickTask{
				ItemID:       line.ItemID,
				BinID:        d.Bin.ID,
				Quantity:     d.Quantity,
				LocationCode: d.Bin.LocationCode,
				Zone:         d.Bin.ZoneCode,
				Coordinate:   d.Bin.Coordinate,
				Weight:       item.Weight * float64(d.Quantity),
				Priority:     line.Priority,
			})
		}
	}

	return tasks, nil
}

func mergeLines(lines []domain.PickLine) []domain.PickLine {
	index := make(map[string]int, len(lines))
	merged := make([]domain.PickLine, 0, len(lines))
	for _, line := range lines {
		if i, ok := index[line.ItemID]; ok {
			merged[i].Quantity += line.Quantity
			if line.Priority.Rank() < merged[i].Priority.Rank() {
				merged[i].Priority = line.Priority
			}
			continue
		}
		index[line.ItemID] = len(merged)
		merged = append(merged, line)
	}
	return merged
}
