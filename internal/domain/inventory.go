package domain

import (
	"time"

	"github.com/google/uuid"
)

// Item is a catalog entry. Weight is kilograms per unit.
type Item struct {
	ID        string    `bson:"_id" json:"id"`
	SKU       string    `bson:"sku" json:"sku"`
	Name      string    `bson:"name" json:"name"`
	Barcode   string    `bson:"barcode,omitempty" json:"barcode,omitempty"`
	Weight    float64   `bson:"weight" json:"weight"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

// Validate checks the catalog fields
func (i *Item) Validate() error {
	if i.ID == "" {
		return NewValidationError("id", "is required")
	}
	if i.SKU == "" {
		return NewValidationError("sku", "is required")
	}
	if i.Weight < 0 {
		return NewValidationError("weight", "must not be negative")
	}
	return nil
}

// StockUnit is the quantity of one item held in one bin
type StockUnit struct {
	BinID      string     `bson:"binId" json:"binId"`
	ItemID     string     `bson:"itemId" json:"itemId"`
	Quantity   int        `bson:"quantity" json:"quantity"`
	ExpiryDate *time.Time `bson:"expiryDate,omitempty" json:"expiryDate,omitempty"`
	BatchID    string     `bson:"batchId,omitempty" json:"batchId,omitempty"`
	UpdatedAt  time.Time  `bson:"updatedAt" json:"updatedAt"`
}

// Key identifies the unit by bin and item
func (s *StockUnit) Key() string {
	return StockKey(s.BinID, s.ItemID)
}

// StockKey builds the bin x item identity
func StockKey(binID, itemID string) string {
	return binID + "/" + itemID
}

// ExpiresBefore orders dated units ahead of undated ones
func (s *StockUnit) ExpiresBefore(other *StockUnit) bool {
	switch {
	case s.ExpiryDate == nil:
		return false
	case other.ExpiryDate == nil:
		return true
	default:
		return s.ExpiryDate.Before(*other.ExpiryDate)
	}
}

// SameExpiry reports whether both units share an expiry (or both have none)
func (s *StockUnit) SameExpiry(other *StockUnit) bool {
	if s.ExpiryDate == nil || other.ExpiryDate == nil {
		return s.ExpiryDate == nil && other.ExpiryDate == nil
	}
	return s.ExpiryDate.Equal(*other.ExpiryDate)
}

// MovementType classifies a stock movement
type MovementType string

const (
	MovementTypePick MovementType = "PICK"
)

// MovementStatus of a movement record
type MovementStatus string

const (
	MovementStatusCompleted MovementStatus = "COMPLETED"
)

// MovementRecord is an append-only audit entry for consumed stock
type MovementRecord struct {
	ID          string         `bson:"_id" json:"id"`
	Type        MovementType   `bson:"type" json:"type"`
	PlanID      string         `bson:"planId" json:"planId"`
	Sequence    int            `bson:"sequence" json:"sequence"`
	ItemID      string         `bson:"itemId" json:"itemId"`
	SourceBinID string         `bson:"sourceBinId" json:"sourceBinId"`
	Quantity    int            `bson:"quantity" json:"quantity"`
	Status      MovementStatus `bson:"status" json:"status"`
	PerformedBy string         `bson:"performedBy" json:"performedBy"`
	Timestamp   time.Time      `bson:"timestamp" json:"timestamp"`
}

// NewPickMovement records a completed pick of one plan step
func NewPickMovement(planID string, sequence int, itemID, binID string, quantity int, performedBy string, at time.Time) *MovementRecord {
	return &MovementRecord{
		ID:          uuid.New().String(),
		Type:        MovementTypePick,
		PlanID:      planID,
		Sequence:    sequence,
		ItemID:      itemID,
		SourceBinID: binID,
		Quantity:    quantity,
		Status:      MovementStatusCompleted,
		PerformedBy: performedBy,
		Timestamp:   at,
	}
}
