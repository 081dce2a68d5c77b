package domain

import (
	"fmt"
	"math"
	"time"
)

// Coordinate is a point in warehouse space, in meters
type Coordinate struct {
	X float64 `bson:"x" json:"x"`
	Y float64 `bson:"y" json:"y"`
	Z float64 `bson:"z" json:"z"`
}

// DistanceTo returns the Euclidean distance to another coordinate
func (c Coordinate) DistanceTo(other Coordinate) float64 {
	dx := c.X - other.X
	dy := c.Y - other.Y
	dz := c.Z - other.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// LayoutGeometry holds the spacing constants used to derive bin coordinates
type LayoutGeometry struct {
	AisleSpacing float64 `mapstructure:"aisleSpacing" json:"aisleSpacing"`
	RackWidth    float64 `mapstructure:"rackWidth" json:"rackWidth"`
	SlotWidth    float64 `mapstructure:"slotWidth" json:"slotWidth"`
	LevelHeight  float64 `mapstructure:"levelHeight" json:"levelHeight"`
}

// DefaultLayoutGeometry returns the standard ASRS grid spacing
func DefaultLayoutGeometry() LayoutGeometry {
	return LayoutGeometry{
		AisleSpacing: 3.0,
		RackWidth:    2.0,
		SlotWidth:    0.5,
		LevelHeight:  0.4,
	}
}

// CoordinateOf derives the canonical coordinate of a slot
func (g LayoutGeometry) CoordinateOf(aisleNumber, rackNumber, level, position int) Coordinate {
	return Coordinate{
		X: float64(aisleNumber) * g.AisleSpacing,
		Y: float64(rackNumber)*g.RackWidth + float64(position)*g.SlotWidth,
		Z: float64(level) * g.LevelHeight,
	}
}

// Zone is a named area of the warehouse
type Zone struct {
	ID   string `bson:"_id" json:"id"`
	Code string `bson:"code" json:"code"`
	Name string `bson:"name,omitempty" json:"name,omitempty"`
}

// Aisle belongs to a zone
type Aisle struct {
	ID     string `bson:"_id" json:"id"`
	ZoneID string `bson:"zoneId" json:"zoneId"`
	Number int    `bson:"number" json:"number"`
}

// Rack belongs to an aisle
type Rack struct {
	ID      string `bson:"_id" json:"id"`
	AisleID string `bson:"aisleId" json:"aisleId"`
	Number  int    `bson:"number" json:"number"`
}

// Bin is a storage slot. Coordinate and LocationCode are derived when the bin
// is placed into a layout and never change afterwards.
type Bin struct {
	ID           string     `bson:"_id" json:"id"`
	RackID       string     `bson:"rackId" json:"rackId"`
	AisleID      string     `bson:"aisleId" json:"aisleId"`
	ZoneID       string     `bson:"zoneId" json:"zoneId"`
	ZoneCode     string     `bson:"zoneCode" json:"zoneCode"`
	Code         string     `bson:"code" json:"code"`
	Level        int        `bson:"level" json:"level"`
	Position     int        `bson:"position" json:"position"`
	Capacity     int        `bson:"capacity" json:"capacity"`
	CurrentLoad  int        `bson:"currentLoad" json:"currentLoad"`
	Barcode      string     `bson:"barcode,omitempty" json:"barcode,omitempty"`
	Coordinate   Coordinate `bson:"coordinate" json:"coordinate"`
	LocationCode string     `bson:"locationCode" json:"locationCode"`
	UpdatedAt    time.Time  `bson:"updatedAt" json:"updatedAt"`
}

// AvailableCapacity returns the free units in the bin
func (b *Bin) AvailableCapacity() int {
	return b.Capacity - b.CurrentLoad
}

// Deposit adds units to the bin load
func (b *Bin) Deposit(quantity int) error {
	if quantity <= 0 {
		return NewValidationError("quantity", "must be positive")
	}
	if b.CurrentLoad+quantity > b.Capacity {
		return &CapacityExceededError{
			BinID:       b.ID,
			Capacity:    b.Capacity,
			CurrentLoad: b.CurrentLoad,
			Requested:   quantity,
		}
	}
	b.CurrentLoad += quantity
	b.UpdatedAt = time.Now().UTC()
	return nil
}

// Withdraw removes units from the bin load
func (b *Bin) Withdraw(quantity int) error {
	if quantity <= 0 {
		return NewValidationError("quantity", "must be positive")
	}
	if quantity > b.CurrentLoad {
		return fmt.Errorf("bin %s holds %d units, cannot withdraw %d: %w", b.ID, b.CurrentLoad, quantity, ErrTransactionConflict)
	}
	b.CurrentLoad -= quantity
	b.UpdatedAt = time.Now().UTC()
	return nil
}

// LocationCodeOf formats zoneCode-aisle-rack-level-position
func LocationCodeOf(zoneCode string, aisleNumber, rackNumber, level, position int) string {
	return fmt.Sprintf("%s-%d-%d-%d-%d", zoneCode, aisleNumber, rackNumber, level, position)
}

// Layout is an ID-indexed arena of the physical warehouse. Children reference
// their parents by ID only.
type Layout struct {
	Geometry LayoutGeometry
	Zones    map[string]*Zone
	Aisles   map[string]*Aisle
	Racks    map[string]*Rack
	Bins     map[string]*Bin
}

// NewLayout creates an empty layout
func NewLayout(geometry LayoutGeometry) *Layout {
	return &Layout{
		Geometry: geometry,
		Zones:    make(map[string]*Zone),
		Aisles:   make(map[string]*Aisle),
		Racks:    make(map[string]*Rack),
		Bins:     make(map[string]*Bin),
	}
}

// AddZone registers a zone, replacing any zone with the same ID
func (l *Layout) AddZone(zone Zone) error {
	if zone.ID == "" || zone.Code == "" {
		return NewValidationError("zone", "id and code are required")
	}
	l.Zones[zone.ID] = &zone
	return nil
}

// AddAisle registers an aisle under an existing zone
func (l *Layout) AddAisle(aisle Aisle) error {
	if aisle.ID == "" {
		return NewValidationError("aisle", "id is required")
	}
	if _, ok := l.Zones[aisle.ZoneID]; !ok {
		return &NotFoundError{Resource: "zone", ID: aisle.ZoneID}
	}
	l.Aisles[aisle.ID] = &aisle
	return nil
}

// AddRack registers a rack under an existing aisle
func (l *Layout) AddRack(rack Rack) error {
	if rack.ID == "" {
		return NewValidationError("rack", "id is required")
	}
	if _, ok := l.Aisles[rack.AisleID]; !ok {
		return &NotFoundError{Resource: "aisle", ID: rack.AisleID}
	}
	l.Racks[rack.ID] = &rack
	return nil
}

// PlaceBin resolves the bin's parents, derives its coordinate and location
// code, and stores it in the arena.
func (l *Layout) PlaceBin(bin Bin) (*Bin, error) {
	if bin.ID == "" {
		return nil, NewValidationError("bin", "id is required")
	}
	if bin.Capacity <= 0 {
		return nil, NewValidationError("capacity", "must be positive")
	}
	if bin.Level < 0 || bin.Position < 0 {
		return nil, NewValidationError("bin", "level and position must not be negative")
	}
	if bin.CurrentLoad < 0 || bin.CurrentLoad > bin.Capacity {
		return nil, NewValidationError("currentLoad", "must be within capacity")
	}

	rack, ok := l.Racks[bin.RackID]
	if !ok {
		return nil, &NotFoundError{Resource: "rack", ID: bin.RackID}
	}
	aisle := l.Aisles[rack.AisleID]
	zone := l.Zones[aisle.ZoneID]

	bin.AisleID = aisle.ID
	bin.ZoneID = zone.ID
	bin.ZoneCode = zone.Code
	bin.Coordinate = l.Geometry.CoordinateOf(aisle.Number, rack.Number, bin.Level, bin.Position)
	bin.LocationCode = LocationCodeOf(zone.Code, aisle.Number, rack.Number, bin.Level, bin.Position)
	if bin.Code == "" {
		bin.Code = bin.LocationCode
	}
	bin.UpdatedAt = time.Now().UTC()

	l.Bins[bin.ID] = &bin
	return &bin, nil
}

// Bin looks up a bin by ID
func (l *Layout) Bin(binID string) (*Bin, error) {
	bin, ok := l.Bins[binID]
	if !ok {
		return nil, &NotFoundError{Resource: "bin", ID: binID}
	}
	return bin, nil
}

// Clone returns a deep copy of the arena
func (l *Layout) Clone() *Layout {
	c := NewLayout(l.Geometry)
	for id, z := range l.Zones {
		zz := *z
		c.Zones[id] = &zz
	}
	for id, a := range l.Aisles {
		aa := *a
		c.Aisles[id] = &aa
	}
	for id, r := range l.Racks {
		rr := *r
		c.Racks[id] = &rr
	}
	for id, b := range l.Bins {
		bb := *b
		c.Bins[id] = &bb
	}
	return c
}
