package domain

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// CommandType identifies a robot operation
type CommandType string

const (
	CommandTypeMove          CommandType = "MOVE"
	CommandTypePick          CommandType = "PICK"
	CommandTypePlace         CommandType = "PLACE"
	CommandTypeScan          CommandType = "SCAN"
	CommandTypeCalibrate     CommandType = "CALIBRATE"
	CommandTypeEmergencyStop CommandType = "EMERGENCY_STOP"
)

// IsValid reports whether t is a supported command type
func (t CommandType) IsValid() bool {
	switch t {
	case CommandTypeMove, CommandTypePick, CommandTypePlace,
		CommandTypeScan, CommandTypeCalibrate, CommandTypeEmergencyStop:
		return true
	}
	return false
}

// ParseCommandType converts a raw type into a CommandType
func ParseCommandType(raw string) (CommandType, error) {
	t := CommandType(raw)
	if !t.IsValid() {
		return "", &UnknownCommandTypeError{Type: raw}
	}
	return t, nil
}

// CommandStatus is the lifecycle state of a command
type CommandStatus string

const (
	CommandStatusPending   CommandStatus = "PENDING"
	CommandStatusExecuting CommandStatus = "EXECUTING"
	CommandStatusCompleted CommandStatus = "COMPLETED"
	CommandStatusFailed    CommandStatus = "FAILED"
	CommandStatusCancelled CommandStatus = "CANCELLED"
)

var commandTransitions = map[CommandStatus][]CommandStatus{
	CommandStatusPending:   {CommandStatusExecuting, CommandStatusCancelled},
	CommandStatusExecuting: {CommandStatusCompleted, CommandStatusFailed},
	CommandStatusCompleted: {},
	CommandStatusFailed:    {},
	CommandStatusCancelled: {},
}

// IsValid reports whether s is a known command status
func (s CommandStatus) IsValid() bool {
	_, ok := commandTransitions[s]
	return ok
}

// CanTransitionTo checks the command transition table
func (s CommandStatus) CanTransitionTo(next CommandStatus) bool {
	return slices.Contains(commandTransitions[s], next)
}

// IsTerminal reports whether no further transition is possible
func (s CommandStatus) IsTerminal() bool {
	return s.IsValid() && len(commandTransitions[s]) == 0
}

// CommandParameters carries the type-specific arguments of a command
type CommandParameters struct {
	DestinationBinID string     `bson:"destinationBinId,omitempty" json:"destinationBinId,omitempty"`
	Waypoints        []string   `bson:"waypoints,omitempty" json:"waypoints,omitempty"`
	BinID            string     `bson:"binId,omitempty" json:"binId,omitempty"`
	ItemID           string     `bson:"itemId,omitempty" json:"itemId,omitempty"`
	Quantity         int        `bson:"quantity,omitempty" json:"quantity,omitempty"`
	ExpiryDate       *time.Time `bson:"expiryDate,omitempty" json:"expiryDate,omitempty"`
	BatchID          string     `bson:"batchId,omitempty" json:"batchId,omitempty"`
	Barcode          string     `bson:"barcode,omitempty" json:"barcode,omitempty"`
}

// Validate checks that the fields required by commandType are present
func (p CommandParameters) Validate(commandType CommandType) error {
	switch commandType {
	case CommandTypeMove:
		if p.DestinationBinID == "" && len(p.Waypoints) == 0 {
			return NewValidationError("parameters", "MOVE requires destinationBinId or waypoints")
		}
	case CommandTypePick, CommandTypePlace:
		if p.BinID == "" || p.ItemID == "" {
			return NewValidationError("parameters", string(commandType)+" requires binId and itemId")
		}
		if p.Quantity <= 0 {
			return NewValidationError("quantity", "must be positive")
		}
	case CommandTypeScan:
		if p.Barcode == "" {
			return NewValidationError("parameters", "SCAN requires barcode")
		}
	case CommandTypeCalibrate, CommandTypeEmergencyStop:
	default:
		return &UnknownCommandTypeError{Type: string(commandType)}
	}
	return nil
}

// Route returns the bins a MOVE visits in order
func (p CommandParameters) Route() []string {
	if len(p.Waypoints) > 0 {
		route := slices.Clone(p.Waypoints)
		if p.DestinationBinID != "" && route[len(route)-1] != p.DestinationBinID {
			route = append(route, p.DestinationBinID)
		}
		return route
	}
	if p.DestinationBinID != "" {
		return []string{p.DestinationBinID}
	}
	return nil
}

// Equal compares two parameter sets field by field
func (p CommandParameters) Equal(other CommandParameters) bool {
	sameExpiry := (p.ExpiryDate == nil && other.ExpiryDate == nil) ||
		(p.ExpiryDate != nil && other.ExpiryDate != nil && p.ExpiryDate.Equal(*other.ExpiryDate))
	return sameExpiry &&
		p.DestinationBinID == other.DestinationBinID &&
		slices.Equal(p.Waypoints, other.Waypoints) &&
		p.BinID == other.BinID &&
		p.ItemID == other.ItemID &&
		p.Quantity == other.Quantity &&
		p.BatchID == other.BatchID &&
		p.Barcode == other.Barcode
}

// CommandResult describes what a completed command produced
type CommandResult struct {
	Kind     string      `bson:"kind,omitempty" json:"kind,omitempty"`
	ID       string      `bson:"id,omitempty" json:"id,omitempty"`
	Location *Coordinate `bson:"location,omitempty" json:"location,omitempty"`
	Distance float64     `bson:"distance,omitempty" json:"distance,omitempty"`
	Quantity int         `bson:"quantity,omitempty" json:"quantity,omitempty"`
}

// Command is a unit of robot work
type Command struct {
	ID           string            `bson:"_id" json:"id"`
	RobotID      string            `bson:"robotId" json:"robotId"`
	Type         CommandType       `bson:"type" json:"type"`
	Parameters   CommandParameters `bson:"parameters" json:"parameters"`
	Status       CommandStatus     `bson:"status" json:"status"`
	RequestedBy  string            `bson:"requestedBy,omitempty" json:"requestedBy,omitempty"`
	PlanID       string            `bson:"planId,omitempty" json:"planId,omitempty"`
	CreatedAt    time.Time         `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time         `bson:"updatedAt" json:"updatedAt"`
	StartedAt    *time.Time        `bson:"startedAt,omitempty" json:"startedAt,omitempty"`
	CompletedAt  *time.Time        `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
	ErrorMessage string            `bson:"errorMessage,omitempty" json:"errorMessage,omitempty"`
	Result       *CommandResult    `bson:"result,omitempty" json:"result,omitempty"`
}

// NewCommand creates a PENDING command
func NewCommand(robotID string, commandType CommandType, params CommandParameters, requestedBy string) *Command {
	now := time.Now().UTC()
	return &Command{
		ID:          "CMD-" + uuid.New().String(),
		RobotID:     robotID,
		Type:        commandType,
		Parameters:  params,
		Status:      CommandStatusPending,
		RequestedBy: requestedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (c *Command) transition(next CommandStatus, now time.Time) error {
	if !c.Status.CanTransitionTo(next) {
		return &InvalidTransitionError{Entity: "command", ID: c.ID, From: string(c.Status), To: string(next)}
	}
	c.Status = next
	c.UpdatedAt = now
	return nil
}

// Start moves PENDING to EXECUTING
func (c *Command) Start(now time.Time) error {
	if err := c.transition(CommandStatusExecuting, now); err != nil {
		return err
	}
	c.StartedAt = &now
	return nil
}

// Complete moves EXECUTING to COMPLETED
func (c *Command) Complete(result *CommandResult, now time.Time) error {
	if err := c.transition(CommandStatusCompleted, now); err != nil {
		return err
	}
	c.Result = result
	c.CompletedAt = &now
	return nil
}

// Fail moves EXECUTING to FAILED
func (c *Command) Fail(message string, now time.Time) error {
	if err := c.transition(CommandStatusFailed, now); err != nil {
		return err
	}
	c.ErrorMessage = message
	c.CompletedAt = &now
	return nil
}

// Cancel moves PENDING to CANCELLED
func (c *Command) Cancel(now time.Time) error {
	if err := c.transition(CommandStatusCancelled, now); err != nil {
		return err
	}
	c.CompletedAt = &now
	return nil
}

// UpdateParameters replaces the parameters of a pending command. An update
// that changes nothing is accepted on a completed command and reports
// changed=false.
func (c *Command) UpdateParameters(params CommandParameters, now time.Time) (bool, error) {
	switch c.Status {
	case CommandStatusPending:
		if err := params.Validate(c.Type); err != nil {
			return false, err
		}
		if c.Parameters.Equal(params) {
			return false, nil
		}
		c.Parameters = params
		c.UpdatedAt = now
		return true, nil
	case CommandStatusCompleted:
		if c.Parameters.Equal(params) {
			return false, nil
		}
	}
	return false, &TransactionConflictError{
		Reason: "command " + c.ID + " is " + string(c.Status) + "; only PENDING commands accept parameter changes",
	}
}

// CheckDeletable rejects removal of running or completed commands
func (c *Command) CheckDeletable() error {
	switch c.Status {
	case CommandStatusExecuting, CommandStatusCompleted:
		return &TransactionConflictError{
			Reason: "command " + c.ID + " is " + string(c.Status) + " and cannot be deleted",
		}
	}
	return nil
}

// Duration returns the execution time of a finished command
func (c *Command) Duration() time.Duration {
	if c.StartedAt == nil || c.CompletedAt == nil {
		return 0
	}
	return c.CompletedAt.Sub(*c.StartedAt)
}
