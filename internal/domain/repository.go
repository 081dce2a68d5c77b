package domain

import (
	"context"
	"time"
)

// Pagination bounds a list query
type Pagination struct {
	Limit  int
	Offset int
}

// DefaultPageLimit applies when a list query has no limit
const DefaultPageLimit = 50

// Normalize clamps limit and offset into a usable range
func (p Pagination) Normalize() Pagination {
	if p.Limit <= 0 || p.Limit > 500 {
		p.Limit = DefaultPageLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// LayoutRepository persists the spatial model
type LayoutRepository interface {
	SaveZone(ctx context.Context, zone *Zone) error
	SaveAisle(ctx context.Context, aisle *Aisle) error
	SaveRack(ctx context.Context, rack *Rack) error
	SaveBin(ctx context.Context, bin *Bin) error

	FindZone(ctx context.Context, zoneID string) (*Zone, error)
	FindAisle(ctx context.Context, aisleID string) (*Aisle, error)
	FindRack(ctx context.Context, rackID string) (*Rack, error)
	FindBin(ctx context.Context, binID string) (*Bin, error)
	FindBinByBarcode(ctx context.Context, barcode string) (*Bin, error)

	// DecrementBinLoad lowers the load only if currentLoad >= quantity
	DecrementBinLoad(ctx context.Context, binID string, quantity int) (bool, error)

	// IncrementBinLoad raises the load only if currentLoad+quantity <= capacity
	IncrementBinLoad(ctx context.Context, binID string, quantity int) (bool, error)
}

// ItemRepository persists the item catalog
type ItemRepository interface {
	Save(ctx context.Context, item *Item) error
	FindByID(ctx context.Context, itemID string) (*Item, error)
	FindByBarcode(ctx context.Context, barcode string) (*Item, error)
}

// StockRepository persists the inventory ledger
type StockRepository interface {
	// FindByItem returns units of the item with a positive quantity
	FindByItem(ctx context.Context, itemID string) ([]*StockUnit, error)

	FindOne(ctx context.Context, binID, itemID string) (*StockUnit, error)

	// Decrement lowers the quantity only if quantity >= amount
	Decrement(ctx context.Context, binID, itemID string, amount int) (bool, error)

	// Merge adds unit.Quantity to the (bin, item) unit, creating it if absent.
	// The earliest expiry is kept.
	Merge(ctx context.Context, unit *StockUnit) error
}

// MovementFilter narrows a movement log query
type MovementFilter struct {
	PlanID string
	ItemID string
	BinID  string
	Pagination
}

// MovementRepository is the append-only movement log
type MovementRepository interface {
	Append(ctx context.Context, records ...*MovementRecord) error
	ExistsForPlan(ctx context.Context, planID string) (bool, error)
	Find(ctx context.Context, filter MovementFilter) ([]*MovementRecord, int64, error)
}

// PlanRepository persists fulfillment plans
type PlanRepository interface {
	Save(ctx context.Context, plan *FulfillmentPlan) error
	FindByID(ctx context.Context, planID string) (*FulfillmentPlan, error)
}

// RobotFilter narrows a robot list query
type RobotFilter struct {
	Status RobotStatus
	Zone   string
	Pagination
}

// RobotRepository persists the robot registry
type RobotRepository interface {
	Create(ctx context.Context, robot *Robot) error
	FindByID(ctx context.Context, robotID string) (*Robot, error)
	Find(ctx context.Context, filter RobotFilter) ([]*Robot, int64, error)

	// CompareAndSwapStatus sets next and the current command only if the
	// stored status equals expected.
	CompareAndSwapStatus(ctx context.Context, robotID string, expected, next RobotStatus, commandID string) (bool, error)

	// ReleaseCommand moves a WORKING robot to next and clears its command,
	// only while commandID is still the robot's current command.
	ReleaseCommand(ctx context.Context, robotID, commandID string, next RobotStatus) (bool, error)

	UpdateLocation(ctx context.Context, robotID string, location Coordinate, binID string) error
}

// CommandFilter narrows a command list query
type CommandFilter struct {
	RobotID string
	Status  CommandStatus
	Type    CommandType
	Pagination
}

// CommandRepository persists robot commands
type CommandRepository interface {
	Create(ctx context.Context, cmd *Command) error
	FindByID(ctx context.Context, commandID string) (*Command, error)
	Find(ctx context.Context, filter CommandFilter) ([]*Command, int64, error)

	// Update replaces the command only if the stored status equals expected
	Update(ctx context.Context, cmd *Command, expected CommandStatus) (bool, error)

	Delete(ctx context.Context, commandID string) error

	// FindExecutingSince returns EXECUTING commands started before the cutoff
	FindExecutingSince(ctx context.Context, cutoff time.Time) ([]*Command, error)
}

// ShipmentLookup resolves shipment barcodes owned by the shipping system
type ShipmentLookup interface {
	FindShipmentIDByBarcode(ctx context.Context, barcode string) (string, error)
}

// Transactor runs fn atomically. Repositories called with the context passed
// to fn take part in the transaction.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// EventPublisher records domain events for delivery
type EventPublisher interface {
	Publish(ctx context.Context, events ...DomainEvent) error
}

// Lock is a held lock
type Lock interface {
	Release(ctx context.Context) error
}

// Locker hands out best-effort mutual exclusion on keys
type Locker interface {
	Obtain(ctx context.Context, key string, ttl time.Duration) (Lock, error)
}

// BinLockKey is the lock key of a bin
func BinLockKey(binID string) string {
	return "asrs:lock:bin:" + binID
}

// RobotLockKey is the lock key of a robot
func RobotLockKey(robotID string) string {
	return "asrs:lock:robot:" + robotID
}
