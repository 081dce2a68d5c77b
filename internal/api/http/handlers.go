// Package http exposes the fulfillment engine over a gin REST API
package http

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/wms-platform/asrs-service/internal/application"
	"github.com/wms-platform/asrs-service/internal/domain"
	"github.com/wms-platform/asrs-service/pkg/logging"
	"github.com/wms-platform/asrs-service/pkg/middleware"
)

// FulfillmentService plans and executes pick requests
type FulfillmentService interface {
	PlanFulfillment(ctx context.Context, cmd application.PlanFulfillmentCommand) (*application.FulfillmentPlanDTO, error)
	GetPlan(ctx context.Context, query application.GetPlanQuery) (*application.FulfillmentPlanDTO, error)
	ExecutePlan(ctx context.Context, cmd application.ExecutePlanCommand) (*application.ExecutionResultDTO, error)
	ExecuteRequest(ctx context.Context, cmd application.ExecuteRequestCommand) (*application.ExecutionResultDTO, error)
	ListMovements(ctx context.Context, query application.ListMovementsQuery) (*application.PageDTO[application.MovementRecordDTO], error)
}

// RobotService manages the robot registry
type RobotService interface {
	RegisterRobot(ctx context.Context, cmd application.RegisterRobotCommand) (*application.RobotDTO, error)
	GetRobot(ctx context.Context, query application.GetRobotQuery) (*application.RobotDTO, error)
	ListRobots(ctx context.Context, query application.ListRobotsQuery) (*application.PageDTO[application.RobotDTO], error)
	ChangeStatus(ctx context.Context, cmd application.ChangeRobotStatusCommand) (*application.RobotDTO, error)
}

// CommandService manages robot commands
type CommandService interface {
	ScheduleCommand(ctx context.Context, cmd application.ScheduleCommand) (*application.CommandDTO, error)
	GetCommand(ctx context.Context, query application.GetCommandQuery) (*application.CommandDTO, error)
	ListCommands(ctx context.Context, query application.ListCommandsQuery) (*application.PageDTO[application.CommandDTO], error)
	UpdateParameters(ctx context.Context, cmd application.UpdateCommandParametersCommand) (*application.UpdateParametersResultDTO, error)
	CancelCommand(ctx context.Context, cmd application.CancelCommandCommand) (*application.CommandDTO, error)
	DeleteCommand(ctx context.Context, cmd application.DeleteCommandCommand) error
}

// InventoryService manages layout, catalog and stock seeding
type InventoryService interface {
	CreateBin(ctx context.Context, cmd application.CreateBinCommand) (*application.BinDTO, error)
	GetBin(ctx context.Context, query application.GetBinQuery) (*application.BinDTO, error)
	RegisterItem(ctx context.Context, cmd application.RegisterItemCommand) (*application.ItemDTO, error)
	ReceiveStock(ctx context.Context, cmd application.ReceiveStockCommand) (*application.BinDTO, error)
	StockLevels(ctx context.Context, query application.StockLevelsQuery) (*application.StockLevelsDTO, error)
}

// Handlers contains the HTTP handlers of the service
type Handlers struct {
	fulfillment FulfillmentService
	robots      RobotService
	commands    CommandService
	inventory   InventoryService
	logger      *logging.Logger
}

// NewHandlers creates new HTTP handlers
func NewHandlers(
	fulfillment FulfillmentService,
	robots RobotService,
	commands CommandService,
	inventory InventoryService,
	logger *logging.Logger,
) *Handlers {
	return &Handlers{
		fulfillment: fulfillment,
		robots:      robots,
		commands:    commands,
		inventory:   inventory,
		logger:      logger,
	}
}

// RegisterRoutes registers all routes on the versioned group
func (h *Handlers) RegisterRoutes(router *gin.RouterGroup) {
	fulfillment := router.Group("/fulfillment")
	{
		fulfillment.POST("/plans", h.PlanFulfillment)
		fulfillment.GET("/plans/:planId", h.GetPlan)
		fulfillment.POST("/plans/:planId/execute", h.ExecutePlan)
		fulfillment.POST("/execute", h.ExecuteRequest)
	}
	router.GET("/movements", h.ListMovements)

	robots := router.Group("/robots")
	{
		robots.POST("", h.RegisterRobot)
		robots.GET("", h.ListRobots)
		robots.GET("/:robotId", h.GetRobot)
		robots.POST("/:robotId/status", h.ChangeRobotStatus)
		robots.POST("/:robotId/commands", h.ScheduleCommand)
	}

	commands := router.Group("/commands")
	{
		commands.GET("", h.ListCommands)
		commands.GET("/:commandId", h.GetCommand)
		commands.PATCH("/:commandId", h.UpdateCommandParameters)
		commands.POST("/:commandId/cancel", h.CancelCommand)
		commands.DELETE("/:commandId", h.DeleteCommand)
	}

	router.POST("/layout/bins", h.CreateBin)
	router.GET("/layout/bins/:binId", h.GetBin)
	router.POST("/items", h.RegisterItem)
	router.POST("/stock/receive", h.ReceiveStock)
	router.GET("/stock", h.StockLevels)
}

func (h *Handlers) responder(c *gin.Context) *middleware.ErrorResponder {
	return middleware.NewErrorResponder(c, h.logger.Logger)
}

// bindPagination reads limit and offset. Absent values are left zero and
// normalised by the repositories.
func (h *Handlers) bindPagination(c *gin.Context) (domain.Pagination, bool) {
	var page domain.Pagination
	for _, q := range []struct {
		key string
		dst *int
	}{{"limit", &page.Limit}, {"offset", &page.Offset}} {
		raw := c.Query(q.key)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			h.responder(c).RespondBadRequest(q.key + " must be a non-negative integer")
			return page, false
		}
		*q.dst = n
	}
	return page, true
}
