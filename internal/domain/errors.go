package domain

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is checks against the typed errors below
var (
	ErrNotFound            = errors.New("not found")
	ErrAlreadyExists       = errors.New("already exists")
	ErrValidation          = errors.New("invalid request")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrCapacityExceeded    = errors.New("capacity exceeded")
	ErrRobotUnavailable    = errors.New("robot unavailable")
	ErrUnknownCommandType  = errors.New("unknown command type")
	ErrTransactionConflict = errors.New("transaction conflict")
	ErrInvalidTransition   = errors.New("invalid state transition")
	ErrLockNotObtained     = errors.New("lock not obtained")
)

// NotFoundError reports a missing entity
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// ValidationError reports a malformed input
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError creates a ValidationError
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// InsufficientStockError reports that an item cannot be fully allocated
type InsufficientStockError struct {
	ItemID    string
	Requested int
	Available int
	Shortfall int
}

// NewInsufficientStockError fills in the shortfall
func NewInsufficientStockError(itemID string, requested, available int) *InsufficientStockError {
	return &InsufficientStockError{
		ItemID:    itemID,
		Requested: requested,
		Available: available,
		Shortfall: requested - available,
	}
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for item %s: requested %d, available %d, short %d",
		e.ItemID, e.Requested, e.Available, e.Shortfall)
}

func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }

// CapacityExceededError reports a placement that would overflow a bin
type CapacityExceededError struct {
	BinID       string
	Capacity    int
	CurrentLoad int
	Requested   int
}

func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("bin %s capacity exceeded: capacity %d, load %d, requested %d",
		e.BinID, e.Capacity, e.CurrentLoad, e.Requested)
}

func (e *CapacityExceededError) Is(target error) bool { return target == ErrCapacityExceeded }

// RobotUnavailableError reports a robot that cannot accept a command
type RobotUnavailableError struct {
	RobotID string
	Status  RobotStatus
	Reason  string
}

func (e *RobotUnavailableError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("robot %s unavailable (%s): %s", e.RobotID, e.Status, e.Reason)
	}
	return fmt.Sprintf("robot %s unavailable (%s)", e.RobotID, e.Status)
}

func (e *RobotUnavailableError) Is(target error) bool { return target == ErrRobotUnavailable }

// UnknownCommandTypeError reports an unsupported command type
type UnknownCommandTypeError struct {
	Type string
}

func (e *UnknownCommandTypeError) Error() string {
	return fmt.Sprintf("unknown command type %q", e.Type)
}

func (e *UnknownCommandTypeError) Is(target error) bool { return target == ErrUnknownCommandType }

// TransactionConflictError reports state that changed between read and commit
type TransactionConflictError struct {
	PlanID    string
	Sequence  int
	BinID     string
	ItemID    string
	Requested int
	Available int
	Reason    string
}

func (e *TransactionConflictError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("transaction conflict: %s", e.Reason)
	}
	return fmt.Sprintf("transaction conflict on plan %s step %d: bin %s item %s requested %d, available %d",
		e.PlanID, e.Sequence, e.BinID, e.ItemID, e.Requested, e.Available)
}

func (e *TransactionConflictError) Is(target error) bool { return target == ErrTransactionConflict }

// InvalidTransitionError reports a status change not allowed by a transition table
type InvalidTransitionError struct {
	Entity string
	ID     string
	From   string
	To     string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("%s %s cannot transition from %s to %s", e.Entity, e.ID, e.From, e.To)
}

func (e *InvalidTransitionError) Is(target error) bool { return target == ErrInvalidTransition }
