package application

import "time"

// CoordinateDTO represents a point in warehouse space
type CoordinateDTO struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// PickStepDTO represents one step of a plan
type PickStepDTO struct {
	Sequence     int     `json:"sequence"`
	ItemID       string  `json:"itemId"`
	BinID        string  `json:"binId"`
	LocationCode string  `json:"locationCode"`
	Zone         string  `json:"zone"`
	Quantity     int     `json:"quantity"`
	Distance     float64 `json:"distance"`
	Time         float64 `json:"time"` // seconds
}

// FulfillmentPlanDTO represents a fulfillment plan in responses
type FulfillmentPlanDTO struct {
	PlanID          string        `json:"planId"`
	RequestID       string        `json:"requestId"`
	Steps           []PickStepDTO `json:"steps"`
	TotalDistance   float64       `json:"totalDistance"`
	TotalTime       float64       `json:"totalTime"` // seconds
	EfficiencyScore float64       `json:"efficiencyScore"`
	CreatedAt       time.Time     `json:"createdAt"`
}

// MovementRecordDTO represents a movement log entry
type MovementRecordDTO struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	PlanID      string    `json:"planId"`
	Sequence    int       `json:"sequence"`
	ItemID      string    `json:"itemId"`
	SourceBinID string    `json:"sourceBinId"`
	Quantity    int       `json:"quantity"`
	Status      string    `json:"status"`
	PerformedBy string    `json:"performedBy"`
	Timestamp   time.Time `json:"timestamp"`
}

// ExecutionResultDTO is the outcome of executing a plan
type ExecutionResultDTO struct {
	PlanID     string              `json:"planId"`
	Plan       *FulfillmentPlanDTO `json:"plan,omitempty"`
	Movements  []MovementRecordDTO `json:"movements"`
	CommandIDs []string            `json:"commandIds"`
	Warnings   []string            `json:"warnings,omitempty"`
}

// RobotDTO represents a robot in responses
type RobotDTO struct {
	ID                   string        `json:"id"`
	Name                 string        `json:"name"`
	Status               string        `json:"status"`
	Location             CoordinateDTO `json:"location"`
	LocationBinID        string        `json:"locationBinId,omitempty"`
	AssignedZone         string        `json:"assignedZone,omitempty"`
	SpeedMetersPerSecond float64       `json:"speedMetersPerSecond"`
	CurrentCommandID     string        `json:"currentCommandId,omitempty"`
	CreatedAt            time.Time     `json:"createdAt"`
	UpdatedAt            time.Time     `json:"updatedAt"`
}

// CommandParametersDTO is the wire form of command parameters
type CommandParametersDTO struct {
	DestinationBinID string     `json:"destinationBinId,omitempty"`
	Waypoints        []string   `json:"waypoints,omitempty"`
	BinID            string     `json:"binId,omitempty"`
	ItemID           string     `json:"itemId,omitempty"`
	Quantity         int        `json:"quantity,omitempty"`
	ExpiryDate       *time.Time `json:"expiryDate,omitempty"`
	BatchID          string     `json:"batchId,omitempty"`
	Barcode          string     `json:"barcode,omitempty"`
}

// CommandResultDTO describes what a completed command produced
type CommandResultDTO struct {
	Kind     string         `json:"kind"`
	ID       string         `json:"id"`
	Location *CoordinateDTO `json:"location,omitempty"`
	Distance float64        `json:"distance,omitempty"`
	Quantity int            `json:"quantity,omitempty"`
}

// CommandDTO represents a robot command in responses
type CommandDTO struct {
	ID           string               `json:"id"`
	RobotID      string               `json:"robotId"`
	Type         string               `json:"type"`
	Parameters   CommandParametersDTO `json:"parameters"`
	Status       string               `json:"status"`
	RequestedBy  string               `json:"requestedBy,omitempty"`
	PlanID       string               `json:"planId,omitempty"`
	CreatedAt    time.Time            `json:"createdAt"`
	UpdatedAt    time.Time            `json:"updatedAt"`
	StartedAt    *time.Time           `json:"startedAt,omitempty"`
	CompletedAt  *time.Time           `json:"completedAt,omitempty"`
	ErrorMessage string               `json:"errorMessage,omitempty"`
	Result       *CommandResultDTO    `json:"result,omitempty"`
}

// UpdateParametersResultDTO reports whether an update changed anything
type UpdateParametersResultDTO struct {
	Command *CommandDTO `json:"command"`
	Changed bool        `json:"changed"`
}

// BinDTO represents a storage bin
type BinDTO struct {
	ID                string        `json:"id"`
	RackID            string        `json:"rackId"`
	AisleID           string        `json:"aisleId"`
	ZoneID            string        `json:"zoneId"`
	Code              string        `json:"code"`
	LocationCode      string        `json:"locationCode"`
	Level             int           `json:"level"`
	Position          int           `json:"position"`
	Capacity          int           `json:"capacity"`
	CurrentLoad       int           `json:"currentLoad"`
	AvailableCapacity int           `json:"availableCapacity"`
	Barcode           string        `json:"barcode,omitempty"`
	Coordinate        CoordinateDTO `json:"coordinate"`
}

// ItemDTO represents a catalog item
type ItemDTO struct {
	ID        string    `json:"id"`
	SKU       string    `json:"sku"`
	Name      string    `json:"name"`
	Barcode   string    `json:"barcode,omitempty"`
	Weight    float64   `json:"weight"`
	CreatedAt time.Time `json:"createdAt"`
}

// StockUnitDTO represents the stock of one item in one bin
type StockUnitDTO struct {
	BinID      string     `json:"binId"`
	ItemID     string     `json:"itemId"`
	Quantity   int        `json:"quantity"`
	ExpiryDate *time.Time `json:"expiryDate,omitempty"`
	BatchID    string     `json:"batchId,omitempty"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// StockLevelsDTO summarises the stock of an item
type StockLevelsDTO struct {
	ItemID string         `json:"itemId"`
	Total  int            `json:"total"`
	Units  []StockUnitDTO `json:"units"`
}

// PageDTO wraps a page of results
type PageDTO[T any] struct {
	Items  []T   `json:"items"`
	Total  int64 `json:"total"`
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
}
