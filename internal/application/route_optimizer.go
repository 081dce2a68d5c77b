package application

import (
	"sort"

	"github.com/wms-platform/asrs-service/internal/domain"
)

// RouteConfig holds the step time model
type RouteConfig struct {
	TravelSecondsPerUnit    float64 `mapstructure:"travelSecondsPerUnit"`
	FixedPickSeconds        float64 `mapstructure:"fixedPickSeconds"`
	WeightPenaltyPerKg      float64 `mapstructure:"weightPenaltyPerKg"`
	WeightPenaltyCapSeconds float64 `mapstructure:"weightPenaltyCapSeconds"`
}

// DefaultRouteConfig returns the standard time model
func DefaultRouteConfig() RouteConfig {
	return RouteConfig{
		TravelSecondsPerUnit:    1.2,
		FixedPickSeconds:        15,
		WeightPenaltyPerKg:      0.5,
		WeightPenaltyCapSeconds: 30,
	}
}

// RouteOptimizer orders pick tasks into a walk. It is a heuristic, not a
// shortest-tour solver.
type RouteOptimizer struct {
	config RouteConfig
}

// NewRouteOptimizer creates a new RouteOptimizer
func NewRouteOptimizer(config RouteConfig) *RouteOptimizer {
	return &RouteOptimizer{config: config}
}

// Optimize sorts tasks by priority, groups them by zone in order of first
// appearance, and walks each zone nearest-neighbour from the current
// position. Steps are numbered 1..n across all zones.
func (o *RouteOptimizer) Optimize(tasks []domain.PickTask, start domain.Coordinate) []domain.PickStep {
	ordered := make([]domain.PickTask, len(tasks))
	copy(ordered, tasks)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority.Rank() < ordered[j].Priority.Rank()
	})

	zones := make([]string, 0)
	byZone := make(map[string][]domain.PickTask)
	for _, t := range ordered {
		if _, seen := byZone[t.Zone]; !seen {
			zones = append(zones, t.Zone)
		}
		byZone[t.Zone] = append(byZone[t.Zone], t)
	}

	steps := make([]domain.PickStep, 0, len(tasks))
	position := start
	for _, zone := range zones {
		remaining := byZone[zone]
		for len(remaining) > 0 {
			best := 0
			bestDistance := position.DistanceTo(remaining[0].Coordinate)
			for i := 1; i < len(remaining); i++ {
				// strict comparison keeps input order on ties
				if d := position.DistanceTo(remaining[i].Coordinate); d < bestDistance {
					best, bestDistance = i, d
				}
			}

			t := remaining[best]
			steps = append(steps, domain.PickStep{
				Sequence:     len(steps) + 1,
				ItemID:       t.ItemID,
				BinID:        t.BinID,
				LocationCode: t.LocationCode,
				Zone:         t.Zone,
				Quantity:     t.Quantity,
				Distance:     bestDistance,
				Time:         o.StepTime(bestDistance, t.Weight),
			})

			position = t.Coordinate
			remaining = append(remaining[:best:best], remaining[best+1:]...)
		}
	}

	return steps
}

// StepTime estimates seconds to travel distance and pick a load of weight kg
func (o *RouteOptimizer) StepTime(distance, weight float64) float64 {
	penalty := min(weight*o.config.WeightPenaltyPerKg, o.config.WeightPenaltyCapSeconds)
	return distance*o.config.TravelSecondsPerUnit + o.config.FixedPickSeconds + penalty
}
