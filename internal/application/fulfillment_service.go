package application

import (
	"context"
	"fmt"
	"strconv"

	"github.com/wms-platform/asrs-service/internal/domain"
	"github.com/wms-platform/asrs-service/pkg/logging"
	"github.com/wms-platform/asrs-service/pkg/metrics"
)

// FulfillmentApplicationService plans pick requests and executes plans
type FulfillmentApplicationService struct {
	allocator  *InventoryAllocator
	optimizer  *RouteOptimizer
	aggregator *PlanAggregator
	execution  *ExecutionTransaction
	scheduler  *TaskScheduler
	plans      domain.PlanRepository
	movements  domain.MovementRepository
	robots     domain.RobotRepository
	transactor domain.Transactor
	publisher  domain.EventPublisher
	metrics    *metrics.Metrics
	logger     *logging.Logger
}

// NewFulfillmentApplicationService creates a new FulfillmentApplicationService
func NewFulfillmentApplicationService(
	allocator *InventoryAllocator,
	optimizer *RouteOptimizer,
	aggregator *PlanAggregator,
	execution *ExecutionTransaction,
	scheduler *TaskScheduler,
	plans domain.PlanRepository,
	movements domain.MovementRepository,
	robots domain.RobotRepository,
	transactor domain.Transactor,
	publisher domain.EventPublisher,
	m *metrics.Metrics,
	logger *logging.Logger,
) *FulfillmentApplicationService {
	return &FulfillmentApplicationService{
		allocator:  allocator,
		optimizer:  optimizer,
		aggregator: aggregator,
		execution:  execution,
		scheduler:  scheduler,
		plans:      plans,
		movements:  movements,
		robots:     robots,
		transactor: transactor,
		publisher:  publisher,
		metrics:    m,
		logger:     logger,
	}
}

// PlanFulfillment allocates, routes, and scores a pick request. Stock is not
// touched; the plan is stored so it can be executed later.
func (s *FulfillmentApplicationService) PlanFulfillment(ctx context.Context, cmd PlanFulfillmentCommand) (*FulfillmentPlanDTO, error) {
	plan, err := s.plan(ctx, cmd.Request)
	if err != nil {
		return nil, err
	}
	return ToFulfillmentPlanDTO(plan), nil
}

func (s *FulfillmentApplicationService) plan(ctx context.Context, req domain.PickRequest) (*domain.FulfillmentPlan, error) {
	if err := req.Validate(); err != nil {
		return nil, toAppError(err)
	}

	var start domain.Coordinate
	if req.RobotID != "" {
		robot, err := s.robots.FindByID(ctx, req.RobotID)
		if err != nil {
			return nil, toAppError(err)
		}
		start = robot.Location
	}

	tasks, err := s.allocator.AllocateRequest(ctx, req)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordPlanGenerated(false, 0)
		}
		s.logger.WithError(err).Warn("Failed to allocate pick request", "requestId", req.RequestID)
		return nil, toAppError(err)
	}

	steps := s.optimizer.Optimize(tasks, start)
	summary := s.aggregator.Aggregate(steps)
	plan := domain.NewFulfillmentPlan(req.RequestID, steps, summary.TotalDistance, summary.TotalTime, summary.EfficiencyScore)

	err = s.transactor.WithinTransaction(ctx, func(txCtx context.Context) error {
		if err := s.plans.Save(txCtx, plan); err != nil {
			return err
		}
		return s.publisher.Publish(txCtx, &domain.PlanGeneratedEvent{
			PlanID:          plan.PlanID,
			RequestID:       plan.RequestID,
			StepCount:       len(plan.Steps),
			TotalDistance:   plan.TotalDistance,
			TotalTime:       plan.TotalTime,
			EfficiencyScore: plan.EfficiencyScore,
			CreatedAt:       plan.CreatedAt,
		})
	})
	if err != nil {
		s.logger.WithError(err).Error("Failed to save plan", "planId", plan.PlanID)
		return nil, fmt.Errorf("failed to save plan: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordPlanGenerated(true, plan.EfficiencyScore)
	}

	s.logger.LogBusinessEvent(ctx, logging.BusinessEvent{
		EventType:  "plan.generated",
		EntityType: "fulfillmentPlan",
		EntityID:   plan.PlanID,
		Action:     "generated",
		RelatedIDs: map[string]string{
			"requestId": plan.RequestID,
			"steps":     strconv.Itoa(len(plan.Steps)),
		},
	})

	return plan, nil
}

// GetPlan retrieves a plan by ID
func (s *FulfillmentApplicationService) GetPlan(ctx context.Context, query GetPlanQuery) (*FulfillmentPlanDTO, error) {
	plan, err := s.plans.FindByID(ctx, query.PlanID)
	if err != nil {
		return nil, toAppError(err)
	}
	return ToFulfillmentPlanDTO(plan), nil
}

// ExecutePlan commits a stored plan. When a robot is named, its availability
// is checked before the commit and one MOVE command visiting the plan's bins
// in step order is scheduled after it. A scheduling failure after commit does
// not undo the stock movement; it is reported as a warning.
func (s *FulfillmentApplicationService) ExecutePlan(ctx context.Context, cmd ExecutePlanCommand) (*ExecutionResultDTO, error) {
	plan, err := s.plans.FindByID(ctx, cmd.PlanID)
	if err != nil {
		return nil, toAppError(err)
	}
	return s.execute(ctx, plan, cmd.PerformedBy, cmd.RobotID)
}

// ExecuteRequest plans and executes a pick request in one call
func (s *FulfillmentApplicationService) ExecuteRequest(ctx context.Context, cmd ExecuteRequestCommand) (*ExecutionResultDTO, error) {
	if cmd.PerformedBy == "" {
		return nil, toAppError(domain.NewValidationError("performedBy", "is required"))
	}

	plan, err := s.plan(ctx, cmd.Request)
	if err != nil {
		return nil, err
	}

	result, err := s.execute(ctx, plan, cmd.PerformedBy, cmd.Request.RobotID)
	if err != nil {
		return nil, err
	}
	result.Plan = ToFulfillmentPlanDTO(plan)
	return result, nil
}

func (s *FulfillmentApplicationService) execute(ctx context.Context, plan *domain.FulfillmentPlan, performedBy, robotID string) (*ExecutionResultDTO, error) {
	if robotID != "" {
		robot, err := s.robots.FindByID(ctx, robotID)
		if err != nil {
			return nil, toAppError(err)
		}
		if robot.Status != domain.RobotStatusIdle {
			reason := ""
			if robot.CurrentCommandID != "" {
				reason = "busy with command " + robot.CurrentCommandID
			}
			return nil, toAppError(&domain.RobotUnavailableError{RobotID: robot.ID, Status: robot.Status, Reason: reason})
		}
	}

	records, err := s.execution.Execute(ctx, plan, performedBy)
	if err != nil {
		s.logger.WithError(err).Error("Failed to execute plan", "planId", plan.PlanID)
		return nil, toAppError(err)
	}

	result := &ExecutionResultDTO{
		PlanID:     plan.PlanID,
		Movements:  ToMovementRecordDTOs(records),
		CommandIDs: []string{},
	}

	if robotID != "" {
		command, err := s.scheduler.Schedule(ctx, ScheduleCommand{
			RobotID:     robotID,
			Type:        string(domain.CommandTypeMove),
			Parameters:  domain.CommandParameters{Waypoints: plan.BinIDs()},
			RequestedBy: performedBy,
			PlanID:      plan.PlanID,
		})
		if err != nil {
			s.logger.WithError(err).Warn("Plan committed but robot route was not scheduled", "planId", plan.PlanID, "robotId", robotID)
			result.Warnings = append(result.Warnings, fmt.Sprintf("robot %s was not scheduled: %v", robotID, err))
		} else {
			result.CommandIDs = append(result.CommandIDs, command.ID)
		}
	}

	s.logger.LogBusinessEvent(ctx, logging.BusinessEvent{
		EventType:  "plan.executed",
		EntityType: "fulfillmentPlan",
		EntityID:   plan.PlanID,
		Action:     "executed",
		RelatedIDs: map[string]string{
			"performedBy": performedBy,
			"movements":   strconv.Itoa(len(records)),
		},
	})

	return result, nil
}

// ListMovements returns movement records matching the filter
func (s *FulfillmentApplicationService) ListMovements(ctx context.Context, query ListMovementsQuery) (*PageDTO[MovementRecordDTO], error) {
	filter := query.Filter
	filter.Pagination = filter.Pagination.Normalize()

	records, total, err := s.movements.Find(ctx, filter)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list movements")
		return nil, fmt.Errorf("failed to list movements: %w", err)
	}

	return &PageDTO[MovementRecordDTO]{
		Items:  ToMovementRecordDTOs(records),
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}, nil
}
