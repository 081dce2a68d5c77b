package application

import (
	"time"

	"github.com/wms-platform/asrs-service/internal/domain"
)

// PlanFulfillmentCommand plans a pick request without touching stock
type PlanFulfillmentCommand struct {
	Request domain.PickRequest
}

// ExecutePlanCommand commits a stored plan and optionally hands the route to a robot
type ExecutePlanCommand struct {
	PlanID      string
	PerformedBy string
	RobotID     string
}

// ExecuteRequestCommand plans and executes a pick request in one call
type ExecuteRequestCommand struct {
	Request     domain.PickRequest
	PerformedBy string
}

// ScheduleCommand asks a robot to do one unit of work
type ScheduleCommand struct {
	RobotID     string
	Type        string
	Parameters  domain.CommandParameters
	RequestedBy string
	PlanID      string
}

// UpdateCommandParametersCommand replaces the parameters of a pending command
type UpdateCommandParametersCommand struct {
	CommandID  string
	Parameters domain.CommandParameters
}

// CancelCommandCommand cancels a pending command
type CancelCommandCommand struct {
	CommandID string
	Reason    string
}

// DeleteCommandCommand removes a command that is not running or completed
type DeleteCommandCommand struct {
	CommandID string
}

// RegisterRobotCommand adds a robot to the registry
type RegisterRobotCommand struct {
	RobotID              string
	Name                 string
	AssignedZone         string
	SpeedMetersPerSecond float64
	StartBinID           string
}

// ChangeRobotStatusCommand is an operator status change
type ChangeRobotStatusCommand struct {
	RobotID    string
	Status     domain.RobotStatus
	Reason     string
	OperatorID string
}

// CreateBinCommand seeds a bin together with its zone, aisle, and rack
type CreateBinCommand struct {
	ZoneID      string
	ZoneCode    string
	ZoneName    string
	AisleID     string
	AisleNumber int
	RackID      string
	RackNumber  int
	BinID       string
	Code        string
	Level       int
	Position    int
	Capacity    int
	Barcode     string
}

// RegisterItemCommand adds an item to the catalog
type RegisterItemCommand struct {
	ItemID  string
	SKU     string
	Name    string
	Barcode string
	Weight  float64
}

// ReceiveStockCommand puts stock into a bin
type ReceiveStockCommand struct {
	BinID      string
	ItemID     string
	Quantity   int
	ExpiryDate *time.Time
	BatchID    string
}

// GetPlanQuery retrieves a plan by ID
type GetPlanQuery struct {
	PlanID string
}

// ListMovementsQuery retrieves movement records
type ListMovementsQuery struct {
	Filter domain.MovementFilter
}

// GetRobotQuery retrieves a robot by ID
type GetRobotQuery struct {
	RobotID string
}

// ListRobotsQuery retrieves robots
type ListRobotsQuery struct {
	Filter domain.RobotFilter
}

// GetCommandQuery retrieves a command by ID
type GetCommandQuery struct {
	CommandID string
}

// ListCommandsQuery retrieves commands
type ListCommandsQuery struct {
	Filter domain.CommandFilter
}

// GetBinQuery retrieves a bin by ID
type GetBinQuery struct {
	BinID string
}

// StockLevelsQuery retrieves the stock of an item
type StockLevelsQuery struct {
	ItemID string
}
