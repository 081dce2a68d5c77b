package application

import "github.com/wms-platform/asrs-service/internal/domain"

// EfficiencyScorer rates a routed plan between 0 and 100
type EfficiencyScorer interface {
	Score(steps []domain.PickStep, totalDistance float64) float64
}

// RatioScorer compares the plan to an ideal of UnitDistance meters per step
type RatioScorer struct {
	UnitDistance float64
}

// DefaultUnitDistance is the ideal travel per step used by RatioScorer
const DefaultUnitDistance = 5.0

// Score returns 0 for an empty plan and 100 for a plan without travel
func (s RatioScorer) Score(steps []domain.PickStep, totalDistance float64) float64 {
	n := len(steps)
	if n == 0 {
		return 0
	}
	if totalDistance <= 0 {
		return 100
	}
	unit := s.UnitDistance
	if unit <= 0 {
		unit = DefaultUnitDistance
	}
	score := float64(n) * unit / totalDistance * 100
	return max(0, min(100, score))
}

// PlanSummary holds the totals of a routed plan
type PlanSummary struct {
	TotalDistance   float64
	TotalTime       float64
	EfficiencyScore float64
}

// PlanAggregator totals routed steps
type PlanAggregator struct {
	scorer EfficiencyScorer
}

// NewPlanAggregator creates a PlanAggregator. A nil scorer uses RatioScorer.
func NewPlanAggregator(scorer EfficiencyScorer) *PlanAggregator {
	if scorer == nil {
		scorer = RatioScorer{UnitDistance: DefaultUnitDistance}
	}
	return &PlanAggregator{scorer: scorer}
}

// Aggregate sums distance and time and scores the plan
func (a *PlanAggregator) Aggregate(steps []domain.PickStep) PlanSummary {
	var summary PlanSummary
	for _, s := range steps {
		summary.TotalDistance += s.Distance
		summary.TotalTime += s.Time
	}
	summary.EfficiencyScore = a.scorer.Score(steps, summary.TotalDistance)
	return summary
}
