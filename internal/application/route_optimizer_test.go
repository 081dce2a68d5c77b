package application

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/asrs-service/internal/domain"
)

func task(bin, zone string, x, y float64, p domain.Priority) domain.PickTask {
	return domain.PickTask{
		ItemID:     "I-" + bin,
		BinID:      bin,
		Quantity:   1,
		Zone:       zone,
		Coordinate: domain.Coordinate{X: x, Y: y},
		Priority:   p,
	}
}

func binOrder(steps []domain.PickStep) []string {
	out := make([]string, 0, len(steps))
	for _, s := range steps {
		out = append(out, s.BinID)
	}
	return out
}

func TestOptimizeNearestNeighbour(t *testing.T) {
	o := NewRouteOptimizer(DefaultRouteConfig())

	steps := o.Optimize([]domain.PickTask{
		task("far", "A", 10, 0, domain.PriorityMedium),
		task("near", "A", 1, 0, domain.PriorityMedium),
		task("mid", "A", 5, 0, domain.PriorityMedium),
	}, domain.Coordinate{})

	assert.Equal(t, []string{"near", "mid", "far"}, binOrder(steps))
	assert.InDelta(t, 1.0, steps[0].Distance, 1e-9)
	assert.InDelta(t, 4.0, steps[1].Distance, 1e-9)
	assert.InDelta(t, 5.0, steps[2].Distance, 1e-9)
	for i, s := range steps {
		assert.Equal(t, i+1, s.Sequence)
	}
}

func TestOptimizeKeepsInputOrderOnTies(t *testing.T) {
	o := NewRouteOptimizer(DefaultRouteConfig())

	steps := o.Optimize([]domain.PickTask{
		task("right", "A", 3, 0, domain.PriorityMedium),
		task("left", "A", -3, 0, domain.PriorityMedium),
	}, domain.Coordinate{})

	assert.Equal(t, []string{"right", "left"}, binOrder(steps))
}

func TestOptimizeGroupsZonesInFirstAppearanceOrder(t *testing.T) {
	o := NewRouteOptimizer(DefaultRouteConfig())

	steps := o.Optimize([]domain.PickTask{
		task("b1", "B", 20, 0, domain.PriorityMedium),
		task("a1", "A", 1, 0, domain.PriorityMedium),
		task("b2", "B", 21, 0, domain.PriorityMedium),
	}, domain.Coordinate{})

	// zone B appeared first, so it is walked first even though A is closer
	assert.Equal(t, []string{"b1", "b2", "a1"}, binOrder(steps))
	assert.Equal(t, []int{1, 2, 3}, []int{steps[0].Sequence, steps[1].Sequence, steps[2].Sequence})
	// position carries across zones
	assert.InDelta(t, 20.0, steps[2].Distance, 1e-9)
}

func TestOptimizePriorityDecidesZoneOrder(t *testing.T) {
	o := NewRouteOptimizer(DefaultRouteConfig())

	steps := o.Optimize([]domain.PickTask{
		task("low", "A", 1, 0, domain.PriorityLow),
		task("urgent", "B", 50, 0, domain.PriorityUrgent),
	}, domain.Coordinate{})

	assert.Equal(t, []string{"urgent", "low"}, binOrder(steps))
}

func TestStepTime(t *testing.T) {
	o := NewRouteOptimizer(DefaultRouteConfig())

	tests := []struct {
		name     string
		distance float64
		weight   float64
		want     float64
	}{
		{"no travel no weight", 0, 0, 15},
		{"travel only", 10, 0, 10*1.2 + 15},
		{"weight under cap", 0, 20, 15 + 10},
		{"weight capped", 0, 200, 15 + 30},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, o.StepTime(tt.distance, tt.weight), 1e-9)
		})
	}
}

func TestOptimizeUsesThreeDimensionalDistance(t *testing.T) {
	o := NewRouteOptimizer(DefaultRouteConfig())
	tk := task("b", "A", 3, 4, domain.PriorityMedium)
	tk.Coordinate.Z = 12

	steps := o.Optimize([]domain.PickTask{tk}, domain.Coordinate{})
	require.Len(t, steps, 1)
	assert.InDelta(t, 13.0, steps[0].Distance, 1e-9)
}

func TestRatioScorer(t *testing.T) {
	steps := func(n int) []domain.PickStep { return make([]domain.PickStep, n) }

	tests := []struct {
		name     string
		steps    []domain.PickStep
		distance float64
		want     float64
	}{
		{"empty plan", nil, 0, 0},
		{"no travel", steps(2), 0, 100},
		{"ideal", steps(2), 10, 100},
		{"twice the ideal", steps(2), 20, 50},
		{"better than ideal is clamped", steps(4), 10, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RatioScorer{UnitDistance: 5}.Score(tt.steps, tt.distance)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

type constantScorer float64

func (c constantScorer) Score([]domain.PickStep, float64) float64 { return float64(c) }

func TestAggregate(t *testing.T) {
	steps := []domain.PickStep{{Distance: 8, Time: 20}, {Distance: 12, Time: 21}}

	summary := NewPlanAggregator(nil).Aggregate(steps)
	assert.InDelta(t, 20, summary.TotalDistance, 1e-9)
	assert.InDelta(t, 41, summary.TotalTime, 1e-9)
	assert.False(t, math.IsNaN(summary.EfficiencyScore))
	assert.InDelta(t, 50, summary.EfficiencyScore, 1e-9)

	summary = NewPlanAggregator(constantScorer(42)).Aggregate(steps)
	assert.InDelta(t, 42, summary.EfficiencyScore, 1e-9)
}
