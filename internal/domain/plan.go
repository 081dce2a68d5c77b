package domain

import (
	"time"

	"github.com/google/uuid"
)

// Priority of a pick line
type Priority string

const (
	PriorityUrgent Priority = "URGENT"
	PriorityHigh   Priority = "HIGH"
	PriorityMedium Priority = "MEDIUM"
	PriorityLow    Priority = "LOW"
)

var priorityRanks = map[Priority]int{
	PriorityUrgent: 0,
	PriorityHigh:   1,
	PriorityMedium: 2,
	PriorityLow:    3,
}

// Rank orders priorities, lower first. Unknown priorities rank as MEDIUM.
func (p Priority) Rank() int {
	if r, ok := priorityRanks[p]; ok {
		return r
	}
	return priorityRanks[PriorityMedium]
}

// IsValid reports whether p is a known priority
func (p Priority) IsValid() bool {
	_, ok := priorityRanks[p]
	return ok
}

// PickLine asks for a quantity of one item
type PickLine struct {
	ItemID   string   `json:"itemId"`
	Quantity int      `json:"quantity"`
	Priority Priority `json:"priority"`
}

// PickRequest is the input of fulfillment planning
type PickRequest struct {
	RequestID string     `json:"requestId"`
	Lines     []PickLine `json:"lines"`
	RobotID   string     `json:"robotId,omitempty"`
}

// Validate checks the request shape. An empty priority defaults to MEDIUM.
func (r *PickRequest) Validate() error {
	if len(r.Lines) == 0 {
		return NewValidationError("lines", "at least one line is required")
	}
	for i := range r.Lines {
		line := &r.Lines[i]
		if line.ItemID == "" {
			return NewValidationError("itemId", "is required")
		}
		if line.Quantity <= 0 {
			return NewValidationError("quantity", "must be positive")
		}
		if line.Priority == "" {
			line.Priority = PriorityMedium
		}
		if !line.Priority.IsValid() {
			return NewValidationError("priority", "must be one of URGENT, HIGH, MEDIUM, LOW")
		}
	}
	return nil
}

// PickTask is one allocated draw, ready for routing
type PickTask struct {
	ItemID       string     `json:"itemId"`
	BinID        string     `json:"binId"`
	Quantity     int        `json:"quantity"`
	LocationCode string     `json:"locationCode"`
	Zone         string     `json:"zone"`
	Coordinate   Coordinate `json:"coordinate"`
	Weight       float64    `json:"weight"`
	Priority     Priority   `json:"priority"`
}

// PickStep is a routed task
type PickStep struct {
	Sequence     int     `bson:"sequence" json:"sequence"`
	ItemID       string  `bson:"itemId" json:"itemId"`
	BinID        string  `bson:"binId" json:"binId"`
	LocationCode string  `bson:"locationCode" json:"locationCode"`
	Zone         string  `bson:"zone" json:"zone"`
	Quantity     int     `bson:"quantity" json:"quantity"`
	Distance     float64 `bson:"distance" json:"distance"`
	Time         float64 `bson:"time" json:"time"`
}

// FulfillmentPlan is the immutable result of planning
type FulfillmentPlan struct {
	PlanID          string     `bson:"_id" json:"planId"`
	RequestID       string     `bson:"requestId" json:"requestId"`
	Steps           []PickStep `bson:"steps" json:"steps"`
	TotalDistance   float64    `bson:"totalDistance" json:"totalDistance"`
	TotalTime       float64    `bson:"totalTime" json:"totalTime"`
	EfficiencyScore float64    `bson:"efficiencyScore" json:"efficiencyScore"`
	CreatedAt       time.Time  `bson:"createdAt" json:"createdAt"`
}

// NewFulfillmentPlan assembles a plan from routed steps and their summary
func NewFulfillmentPlan(requestID string, steps []PickStep, totalDistance, totalTime, efficiency float64) *FulfillmentPlan {
	if requestID == "" {
		requestID = uuid.New().String()
	}
	return &FulfillmentPlan{
		PlanID:          "PLN-" + uuid.New().String(),
		RequestID:       requestID,
		Steps:           steps,
		TotalDistance:   totalDistance,
		TotalTime:       totalTime,
		EfficiencyScore: efficiency,
		CreatedAt:       time.Now().UTC(),
	}
}

// QuantityByItem sums step quantities per item
func (p *FulfillmentPlan) QuantityByItem() map[string]int {
	totals := make(map[string]int)
	for _, s := range p.Steps {
		totals[s.ItemID] += s.Quantity
	}
	return totals
}

// BinIDs returns the distinct bins touched by the plan
func (p *FulfillmentPlan) BinIDs() []string {
	seen := make(map[string]bool, len(p.Steps))
	ids := make([]string, 0, len(p.Steps))
	for _, s := range p.Steps {
		if !seen[s.BinID] {
			seen[s.BinID] = true
			ids = append(ids, s.BinID)
		}
	}
	return ids
}
