// Package memory provides in-process implementations of the domain
// repositories. All repositories of one Store share a single mutex, and
// WithinTransaction restores a snapshot when the callback fails.
package memory

import (
	"context"
	"sync"

	"github.com/wms-platform/asrs-service/internal/domain"
	"github.com/wms-platform/asrs-service/pkg/outbox"
)

type txKey struct{}

type state struct {
	layout    *domain.Layout
	items     map[string]*domain.Item
	stock     map[string]*domain.StockUnit
	movements []*domain.MovementRecord
	plans     map[string]*domain.FulfillmentPlan
	robots    map[string]*domain.Robot
	commands  map[string]*domain.Command
	shipments map[string]string
	outbox    []*outbox.OutboxEvent
}

func (s *state) clone() *state {
	c := &state{
		layout:    s.layout.Clone(),
		items:     make(map[string]*domain.Item, len(s.items)),
		stock:     make(map[string]*domain.StockUnit, len(s.stock)),
		movements: make([]*domain.MovementRecord, len(s.movements)),
		plans:     make(map[string]*domain.FulfillmentPlan, len(s.plans)),
		robots:    make(map[string]*domain.Robot, len(s.robots)),
		commands:  make(map[string]*domain.Command, len(s.commands)),
		shipments: make(map[string]string, len(s.shipments)),
		outbox:    make([]*outbox.OutboxEvent, len(s.outbox)),
	}
	for k, v := range s.items {
		c.items[k] = copyItem(v)
	}
	for k, v := range s.stock {
		c.stock[k] = copyStock(v)
	}
	// movements and plans are immutable once written
	copy(c.movements, s.movements)
	for k, v := range s.plans {
		c.plans[k] = v
	}
	for k, v := range s.robots {
		c.robots[k] = copyRobot(v)
	}
	for k, v := range s.commands {
		c.commands[k] = copyCommand(v)
	}
	for k, v := range s.shipments {
		c.shipments[k] = v
	}
	for i, e := range s.outbox {
		ee := *e
		c.outbox[i] = &ee
	}
	return c
}

// Store holds every aggregate in memory
type Store struct {
	mu sync.Mutex
	st *state
}

// NewStore creates an empty store with the given layout geometry
func NewStore(geometry domain.LayoutGeometry) *Store {
	return &Store{st: &state{
		layout:    domain.NewLayout(geometry),
		items:     make(map[string]*domain.Item),
		stock:     make(map[string]*domain.StockUnit),
		plans:     make(map[string]*domain.FulfillmentPlan),
		robots:    make(map[string]*domain.Robot),
		commands:  make(map[string]*domain.Command),
		shipments: make(map[string]string),
	}}
}

// lock takes the store mutex unless ctx already runs inside one of this
// store's transactions.
func (s *Store) lock(ctx context.Context) func() {
	if owner, ok := ctx.Value(txKey{}).(*Store); ok && owner == s {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// WithinTransaction implements domain.Transactor. Nested calls join the
// outer transaction.
func (s *Store) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if owner, ok := ctx.Value(txKey{}).(*Store); ok && owner == s {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		s.st = snapshot
		return err
	}
	return nil
}

// AddShipment registers a shipment barcode for SCAN lookups
func (s *Store) AddShipment(ctx context.Context, shipmentID, barcode string) {
	defer s.lock(ctx)()
	s.st.shipments[barcode] = shipmentID
}

// FindShipmentIDByBarcode implements domain.ShipmentLookup
func (s *Store) FindShipmentIDByBarcode(ctx context.Context, barcode string) (string, error) {
	defer s.lock(ctx)()
	id, ok := s.st.shipments[barcode]
	if !ok {
		return "", &domain.NotFoundError{Resource: "shipment", ID: barcode}
	}
	return id, nil
}

// Layout returns the layout repository view
func (s *Store) Layout() *LayoutRepository { return &LayoutRepository{s: s} }

// Items returns the item repository view
func (s *Store) Items() *ItemRepository { return &ItemRepository{s: s} }

// Stock returns the stock repository view
func (s *Store) Stock() *StockRepository { return &StockRepository{s: s} }

// Movements returns the movement repository view
func (s *Store) Movements() *MovementRepository { return &MovementRepository{s: s} }

// Plans returns the plan repository view
func (s *Store) Plans() *PlanRepository { return &PlanRepository{s: s} }

// Robots returns the robot repository view
func (s *Store) Robots() *RobotRepository { return &RobotRepository{s: s} }

// Commands returns the command repository view
func (s *Store) Commands() *CommandRepository { return &CommandRepository{s: s} }

// Outbox returns the outbox repository view
func (s *Store) Outbox() *OutboxRepository { return &OutboxRepository{s: s} }

func copyItem(i *domain.Item) *domain.Item {
	c := *i
	return &c
}

func copyStock(u *domain.StockUnit) *domain.StockUnit {
	c := *u
	if u.ExpiryDate != nil {
		e := *u.ExpiryDate
		c.ExpiryDate = &e
	}
	return &c
}

func copyRobot(r *domain.Robot) *domain.Robot {
	c := *r
	return &c
}

func copyCommand(cmd *domain.Command) *domain.Command {
	c := *cmd
	if cmd.Parameters.Waypoints != nil {
		c.Parameters.Waypoints = append([]string(nil), cmd.Parameters.Waypoints...)
	}
	if cmd.Result != nil {
		r := *cmd.Result
		c.Result = &r
	}
	return &c
}

func paginate[T any](all []T, p domain.Pagination) []T {
	p = p.Normalize()
	if p.Offset >= len(all) {
		return []T{}
	}
	end := p.Offset + p.Limit
	if end > len(all) {
		end = len(all)
	}
	return all[p.Offset:end]
}
