package domain

import (
	"time"
)

// RobotStatus represents the operational state of a robot
type RobotStatus string

const (
	RobotStatusIdle        RobotStatus = "IDLE"
	RobotStatusWorking     RobotStatus = "WORKING"
	RobotStatusMaintenance RobotStatus = "MAINTENANCE"
	RobotStatusError       RobotStatus = "ERROR"
	RobotStatusOffline     RobotStatus = "OFFLINE"
)

var robotTransitions = map[RobotStatus][]RobotStatus{
	RobotStatusIdle:        {RobotStatusWorking, RobotStatusMaintenance, RobotStatusOffline},
	RobotStatusWorking:     {RobotStatusIdle, RobotStatusError, RobotStatusMaintenance},
	RobotStatusError:       {RobotStatusIdle, RobotStatusMaintenance, RobotStatusOffline},
	RobotStatusMaintenance: {RobotStatusIdle, RobotStatusOffline},
	RobotStatusOffline:     {RobotStatusIdle, RobotStatusMaintenance},
}

// IsValid reports whether s is a known robot status
func (s RobotStatus) IsValid() bool {
	_, ok := robotTransitions[s]
	return ok
}

// CanTransitionTo checks the robot transition table
func (s RobotStatus) CanTransitionTo(next RobotStatus) bool {
	for _, allowed := range robotTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// AcceptsCommands reports whether a robot in this status passes the
// availability gate. A WORKING robot passes the gate but is still rejected
// by the reservation because it already holds a command.
func (s RobotStatus) AcceptsCommands() bool {
	return s == RobotStatusIdle || s == RobotStatusWorking
}

// DefaultRobotSpeed is the travel speed in meters per second
const DefaultRobotSpeed = 1.5

// Robot is a storage and retrieval robot
type Robot struct {
	ID                   string      `bson:"_id" json:"id"`
	Name                 string      `bson:"name" json:"name"`
	Status               RobotStatus `bson:"status" json:"status"`
	Location             Coordinate  `bson:"location" json:"location"`
	LocationBinID        string      `bson:"locationBinId,omitempty" json:"locationBinId,omitempty"`
	AssignedZone         string      `bson:"assignedZone,omitempty" json:"assignedZone,omitempty"`
	SpeedMetersPerSecond float64     `bson:"speedMetersPerSecond" json:"speedMetersPerSecond"`
	CurrentCommandID     string      `bson:"currentCommandId,omitempty" json:"currentCommandId,omitempty"`
	CreatedAt            time.Time   `bson:"createdAt" json:"createdAt"`
	UpdatedAt            time.Time   `bson:"updatedAt" json:"updatedAt"`
}

// NewRobot registers an idle robot
func NewRobot(id, name, zone string, speed float64) (*Robot, error) {
	if id == "" {
		return nil, NewValidationError("id", "is required")
	}
	if speed < 0 {
		return nil, NewValidationError("speedMetersPerSecond", "must not be negative")
	}
	if speed == 0 {
		speed = DefaultRobotSpeed
	}
	if name == "" {
		name = id
	}

	now := time.Now().UTC()
	return &Robot{
		ID:                   id,
		Name:                 name,
		Status:               RobotStatusIdle,
		AssignedZone:         zone,
		SpeedMetersPerSecond: speed,
		CreatedAt:            now,
		UpdatedAt:            now,
	}, nil
}

// TransitionTo moves the robot to next if the table allows it. Leaving
// WORKING clears the current command.
func (r *Robot) TransitionTo(next RobotStatus) error {
	if !r.Status.CanTransitionTo(next) {
		return &InvalidTransitionError{Entity: "robot", ID: r.ID, From: string(r.Status), To: string(next)}
	}
	r.Status = next
	if next != RobotStatusWorking {
		r.CurrentCommandID = ""
	}
	r.UpdatedAt = time.Now().UTC()
	return nil
}

// MoveTo records a new robot position
func (r *Robot) MoveTo(location Coordinate, binID string) {
	r.Location = location
	r.LocationBinID = binID
	r.UpdatedAt = time.Now().UTC()
}

// TravelSeconds returns the time needed to cover distance at the robot's speed
func (r *Robot) TravelSeconds(distance float64) float64 {
	speed := r.SpeedMetersPerSecond
	if speed <= 0 {
		speed = DefaultRobotSpeed
	}
	return distance / speed
}
