package domain

import "time"

// DomainEvent is the interface for all domain events
type DomainEvent interface {
	EventType() string
	OccurredAt() time.Time
	AggregateID() string
}

// PlanGeneratedEvent is published when a fulfillment plan is stored
type PlanGeneratedEvent struct {
	PlanID          string    `json:"planId"`
	RequestID       string    `json:"requestId"`
	StepCount       int       `json:"stepCount"`
	TotalDistance   float64   `json:"totalDistance"`
	TotalTime       float64   `json:"totalTime"`
	EfficiencyScore float64   `json:"efficiencyScore"`
	CreatedAt       time.Time `json:"createdAt"`
}

func (e *PlanGeneratedEvent) EventType() string     { return "asrs.fulfillment.plan-generated" }
func (e *PlanGeneratedEvent) OccurredAt() time.Time { return e.CreatedAt }
func (e *PlanGeneratedEvent) AggregateID() string   { return e.PlanID }

// PlanExecutedEvent is published when the execution transaction commits
type PlanExecutedEvent struct {
	PlanID        string         `json:"planId"`
	PerformedBy   string         `json:"performedBy"`
	MovementCount int            `json:"movementCount"`
	TotalQuantity int            `json:"totalQuantity"`
	Quantities    map[string]int `json:"quantities"`
	ExecutedAt    time.Time      `json:"executedAt"`
}

func (e *PlanExecutedEvent) EventType() string     { return "asrs.fulfillment.plan-executed" }
func (e *PlanExecutedEvent) OccurredAt() time.Time { return e.ExecutedAt }
func (e *PlanExecutedEvent) AggregateID() string   { return e.PlanID }

// StockPickedEvent is published for each unit of stock consumed
type StockPickedEvent struct {
	BinID     string    `json:"binId"`
	ItemID    string    `json:"itemId"`
	Quantity  int       `json:"quantity"`
	PlanID    string    `json:"planId,omitempty"`
	CommandID string    `json:"commandId,omitempty"`
	PickedAt  time.Time `json:"pickedAt"`
}

func (e *StockPickedEvent) EventType() string     { return "asrs.inventory.stock-picked" }
func (e *StockPickedEvent) OccurredAt() time.Time { return e.PickedAt }
func (e *StockPickedEvent) AggregateID() string   { return StockKey(e.BinID, e.ItemID) }

// StockPlacedEvent is published when stock is put away
type StockPlacedEvent struct {
	BinID     string    `json:"binId"`
	ItemID    string    `json:"itemId"`
	Quantity  int       `json:"quantity"`
	BinLoad   int       `json:"binLoad"`
	CommandID string    `json:"commandId,omitempty"`
	PlacedAt  time.Time `json:"placedAt"`
}

func (e *StockPlacedEvent) EventType() string     { return "asrs.inventory.stock-placed" }
func (e *StockPlacedEvent) OccurredAt() time.Time { return e.PlacedAt }
func (e *StockPlacedEvent) AggregateID() string   { return StockKey(e.BinID, e.ItemID) }

// CommandScheduledEvent is published when a command is accepted
type CommandScheduledEvent struct {
	CommandID   string      `json:"commandId"`
	RobotID     string      `json:"robotId"`
	Type        CommandType `json:"type"`
	RequestedBy string      `json:"requestedBy,omitempty"`
	ScheduledAt time.Time   `json:"scheduledAt"`
}

func (e *CommandScheduledEvent) EventType() string     { return "asrs.robot.command-scheduled" }
func (e *CommandScheduledEvent) OccurredAt() time.Time { return e.ScheduledAt }
func (e *CommandScheduledEvent) AggregateID() string   { return e.CommandID }

// CommandCompletedEvent is published when a command succeeds
type CommandCompletedEvent struct {
	CommandID   string         `json:"commandId"`
	RobotID     string         `json:"robotId"`
	Type        CommandType    `json:"type"`
	Result      *CommandResult `json:"result,omitempty"`
	CompletedAt time.Time      `json:"completedAt"`
}

func (e *CommandCompletedEvent) EventType() string     { return "asrs.robot.command-completed" }
func (e *CommandCompletedEvent) OccurredAt() time.Time { return e.CompletedAt }
func (e *CommandCompletedEvent) AggregateID() string   { return e.CommandID }

// CommandFailedEvent is published when a command fails
type CommandFailedEvent struct {
	CommandID    string      `json:"commandId"`
	RobotID      string      `json:"robotId"`
	Type         CommandType `json:"type"`
	ErrorMessage string      `json:"errorMessage"`
	FailedAt     time.Time   `json:"failedAt"`
}

func (e *CommandFailedEvent) EventType() string     { return "asrs.robot.command-failed" }
func (e *CommandFailedEvent) OccurredAt() time.Time { return e.FailedAt }
func (e *CommandFailedEvent) AggregateID() string   { return e.CommandID }

// CommandCancelledEvent is published when a pending command is cancelled
type CommandCancelledEvent struct {
	CommandID   string    `json:"commandId"`
	RobotID     string    `json:"robotId"`
	CancelledAt time.Time `json:"cancelledAt"`
}

func (e *CommandCancelledEvent) EventType() string     { return "asrs.robot.command-cancelled" }
func (e *CommandCancelledEvent) OccurredAt() time.Time { return e.CancelledAt }
func (e *CommandCancelledEvent) AggregateID() string   { return e.CommandID }

// RobotStatusChangedEvent is published on every robot status change
type RobotStatusChangedEvent struct {
	RobotID   string      `json:"robotId"`
	From      RobotStatus `json:"from"`
	To        RobotStatus `json:"to"`
	CommandID string      `json:"commandId,omitempty"`
	Reason    string      `json:"reason,omitempty"`
	ChangedAt time.Time   `json:"changedAt"`
}

func (e *RobotStatusChangedEvent) EventType() string     { return "asrs.robot.status-changed" }
func (e *RobotStatusChangedEvent) OccurredAt() time.Time { return e.ChangedAt }
func (e *RobotStatusChangedEvent) AggregateID() string   { return e.RobotID }
