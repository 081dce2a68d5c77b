package application

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/wms-platform/asrs-service/internal/domain"
	"github.com/wms-platform/asrs-service/pkg/logging"
)

// InventoryApplicationService seeds the layout, the item catalog, and stock
type InventoryApplicationService struct {
	transactor domain.Transactor
	layout     domain.LayoutRepository
	items      domain.ItemRepository
	stock      domain.StockRepository
	stockOps   *StockOperations
	geometry   domain.LayoutGeometry
	logger     *logging.Logger
}

// NewInventoryApplicationService creates a new InventoryApplicationService
func NewInventoryApplicationService(
	transactor domain.Transactor,
	layout domain.LayoutRepository,
	items domain.ItemRepository,
	stock domain.StockRepository,
	stockOps *StockOperations,
	geometry domain.LayoutGeometry,
	logger *logging.Logger,
) *InventoryApplicationService {
	return &InventoryApplicationService{
		transactor: transactor,
		layout:     layout,
		items:      items,
		stock:      stock,
		stockOps:   stockOps,
		geometry:   geometry,
		logger:     logger,
	}
}

// CreateBin stores a bin, creating its zone, aisle, and rack when they do not
// exist yet. The bin's coordinate and location code are derived here.
func (s *InventoryApplicationService) CreateBin(ctx context.Context, cmd CreateBinCommand) (*BinDTO, error) {
	var placed *domain.Bin
	err := s.transactor.WithinTransaction(ctx, func(txCtx context.Context) error {
		layout := domain.NewLayout(s.geometry)

		zone, err := s.layout.FindZone(txCtx, cmd.ZoneID)
		newZone := errors.Is(err, domain.ErrNotFound)
		switch {
		case newZone:
			zone = &domain.Zone{ID: cmd.ZoneID, Code: cmd.ZoneCode, Name: cmd.ZoneName}
		case err != nil:
			return fmt.Errorf("failed to load zone: %w", err)
		}
		if err := layout.AddZone(*zone); err != nil {
			return err
		}
		if newZone {
			if err := s.layout.SaveZone(txCtx, zone); err != nil {
				return fmt.Errorf("failed to save zone: %w", err)
			}
		}

		aisle, err := s.layout.FindAisle(txCtx, cmd.AisleID)
		newAisle := errors.Is(err, domain.ErrNotFound)
		switch {
		case newAisle:
			aisle = &domain.Aisle{ID: cmd.AisleID, ZoneID: zone.ID, Number: cmd.AisleNumber}
		case err != nil:
			return fmt.Errorf("failed to load aisle: %w", err)
		case aisle.ZoneID != zone.ID:
			return domain.NewValidationError("aisleId", "aisle "+aisle.ID+" belongs to zone "+aisle.ZoneID)
		}
		if err := layout.AddAisle(*aisle); err != nil {
			return err
		}
		if newAisle {
			if err := s.layout.SaveAisle(txCtx, aisle); err != nil {
				return fmt.Errorf("failed to save aisle: %w", err)
			}
		}

		rack, err := s.layout.FindRack(txCtx, cmd.RackID)
		newRack := errors.Is(err, domain.ErrNotFound)
		switch {
		case newRack:
			rack = &domain.Rack{ID: cmd.RackID, AisleID: aisle.ID, Number: cmd.RackNumber}
		case err != nil:
			return fmt.Errorf("failed to load rack: %w", err)
		case rack.AisleID != aisle.ID:
			return domain.NewValidationError("rackId", "rack "+rack.ID+" belongs to aisle "+rack.AisleID)
		}
		if err := layout.AddRack(*rack); err != nil {
			return err
		}
		if newRack {
			if err := s.layout.SaveRack(txCtx, rack); err != nil {
				return fmt.Errorf("failed to save rack: %w", err)
			}
		}

		_, err = s.layout.FindBin(txCtx, cmd.BinID)
		switch {
		case err == nil:
			return fmt.Errorf("bin %s: %w", cmd.BinID, domain.ErrAlreadyExists)
		case !errors.Is(err, domain.ErrNotFound):
			return fmt.Errorf("failed to check bin %s: %w", cmd.BinID, err)
		}

		bin, err := layout.PlaceBin(domain.Bin{
			ID:       cmd.BinID,
			RackID:   rack.ID,
			Code:     cmd.Code,
			Level:    cmd.Level,
			Position: cmd.Position,
			Capacity: cmd.Capacity,
			Barcode:  cmd.Barcode,
		})
		if err != nil {
			return err
		}
		if err := s.layout.SaveBin(txCtx, bin); err != nil {
			return fmt.Errorf("failed to save bin: %w", err)
		}
		placed = bin
		return nil
	})
	if err != nil {
		s.logger.WithError(err).Warn("Failed to create bin", "binId", cmd.BinID)
		return nil, toAppError(err)
	}

	s.logger.Info("Bin created", "binId", placed.ID, "locationCode", placed.LocationCode)
	return ToBinDTO(placed), nil
}

// GetBin retrieves a bin by ID
func (s *InventoryApplicationService) GetBin(ctx context.Context, query GetBinQuery) (*BinDTO, error) {
	bin, err := s.layout.FindBin(ctx, query.BinID)
	if err != nil {
		return nil, toAppError(err)
	}
	return ToBinDTO(bin), nil
}

// RegisterItem adds an item to the catalog
func (s *InventoryApplicationService) RegisterItem(ctx context.Context, cmd RegisterItemCommand) (*ItemDTO, error) {
	item := &domain.Item{
		ID:        cmd.ItemID,
		SKU:       cmd.SKU,
		Name:      cmd.Name,
		Barcode:   cmd.Barcode,
		Weight:    cmd.Weight,
		CreatedAt: time.Now().UTC(),
	}
	if err := item.Validate(); err != nil {
		return nil, toAppError(err)
	}

	if err := s.items.Save(ctx, item); err != nil {
		s.logger.WithError(err).Error("Failed to save item", "itemId", item.ID)
		return nil, fmt.Errorf("failed to save item: %w", err)
	}

	s.logger.Info("Item registered", "itemId", item.ID, "sku", item.SKU)
	return ToItemDTO(item), nil
}

// ReceiveStock puts stock away through the same capacity guard as a PLACE
// command.
func (s *InventoryApplicationService) ReceiveStock(ctx context.Context, cmd ReceiveStockCommand) (*BinDTO, error) {
	bin, err := s.stockOps.Place(ctx, PlaceRequest{
		BinID:      cmd.BinID,
		ItemID:     cmd.ItemID,
		Quantity:   cmd.Quantity,
		ExpiryDate: cmd.ExpiryDate,
		BatchID:    cmd.BatchID,
	})
	if err != nil {
		s.logger.WithError(err).Warn("Failed to receive stock", "binId", cmd.BinID, "itemId", cmd.ItemID)
		return nil, toAppError(err)
	}

	s.logger.LogBusinessEvent(ctx, logging.BusinessEvent{
		EventType:  "stock.received",
		EntityType: "stockUnit",
		EntityID:   domain.StockKey(cmd.BinID, cmd.ItemID),
		Action:     "received",
		RelatedIDs: map[string]string{
			"binId":    cmd.BinID,
			"itemId":   cmd.ItemID,
			"quantity": strconv.Itoa(cmd.Quantity),
		},
	})

	return ToBinDTO(bin), nil
}

// StockLevels returns the positive stock units of an item
func (s *InventoryApplicationService) StockLevels(ctx context.Context, query StockLevelsQuery) (*StockLevelsDTO, error) {
	if query.ItemID == "" {
		return nil, toAppError(domain.NewValidationError("itemId", "is required"))
	}
	units, err := s.stock.FindByItem(ctx, query.ItemID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to load stock", "itemId", query.ItemID)
		return nil, fmt.Errorf("failed to load stock: %w", err)
	}
	return ToStockLevelsDTO(query.ItemID, units), nil
}
