package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wms-platform/asrs-service/internal/application"
	"github.com/wms-platform/asrs-service/internal/domain"
	"github.com/wms-platform/asrs-service/pkg/middleware"
)

type pickLineRequest struct {
	ItemID   string `json:"itemId" binding:"required"`
	Quantity int    `json:"quantity"`
	Priority string `json:"priority"`
}

type pickRequest struct {
	RequestID string            `json:"requestId"`
	Lines     []pickLineRequest `json:"lines" binding:"required,min=1,dive"`
	RobotID   string            `json:"robotId"`
}

func (r pickRequest) toDomain() domain.PickRequest {
	lines := make([]domain.PickLine, len(r.Lines))
	for i, l := range r.Lines {
		lines[i] = domain.PickLine{
			ItemID:   l.ItemID,
			Quantity: l.Quantity,
			Priority: domain.Priority(l.Priority),
		}
	}
	return domain.PickRequest{RequestID: r.RequestID, Lines: lines, RobotID: r.RobotID}
}

// PlanFulfillment handles POST /api/v1/fulfillment/plans
func (h *Handlers) PlanFulfillment(c *gin.Context) {
	var req pickRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.responder(c).RespondBadRequest(err.Error())
		return
	}

	middleware.AddSpanAttributes(c, map[string]interface{}{
		"request.id":    req.RequestID,
		"request.lines": len(req.Lines),
	})

	plan, err := h.fulfillment.PlanFulfillment(c.Request.Context(), application.PlanFulfillmentCommand{
		Request: req.toDomain(),
	})
	if err != nil {
		h.responder(c).RespondWithError(err)
		return
	}

	c.JSON(http.StatusCreated, plan)
}

// GetPlan handles GET /api/v1/fulfillment/plans/:planId
func (h *Handlers) GetPlan(c *gin.Context) {
	planID := c.Param("planId")

	plan, err := h.fulfillment.GetPlan(c.Request.Context(), application.GetPlanQuery{PlanID: planID})
	if err != nil {
		h.responder(c).RespondWithError(err)
		return
	}

	c.JSON(http.StatusOK, plan)
}

// ExecutePlan handles POST /api/v1/fulfillment/plans/:planId/execute
func (h *Handlers) ExecutePlan(c *gin.Context) {
	planID := c.Param("planId")

	var req struct {
		PerformedBy string `json:"performedBy" binding:"required"`
		RobotID     string `json:"robotId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.responder(c).RespondBadRequest(err.Error())
		return
	}

	middleware.AddSpanAttributes(c, map[string]interface{}{
		"plan.id":  planID,
		"robot.id": req.RobotID,
	})

	result, err := h.fulfillment.ExecutePlan(c.Request.Context(), application.ExecutePlanCommand{
		PlanID:      planID,
		PerformedBy: req.PerformedBy,
		RobotID:     req.RobotID,
	})
	if err != nil {
		h.responder(c).RespondWithError(err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ExecuteRequest handles POST /api/v1/fulfillment/execute
func (h *Handlers) ExecuteRequest(c *gin.Context) {
	var req struct {
		pickRequest
		PerformedBy string `json:"performedBy" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.responder(c).RespondBadRequest(err.Error())
		return
	}

	result, err := h.fulfillment.ExecuteRequest(c.Request.Context(), application.ExecuteRequestCommand{
		Request:     req.toDomain(),
		PerformedBy: req.PerformedBy,
	})
	if err != nil {
		h.responder(c).RespondWithError(err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ListMovements handles GET /api/v1/movements
func (h *Handlers) ListMovements(c *gin.Context) {
	page, ok := h.bindPagination(c)
	if !ok {
		return
	}

	result, err := h.fulfillment.ListMovements(c.Request.Context(), application.ListMovementsQuery{
		Filter: domain.MovementFilter{
			PlanID:     c.Query("planId"),
			ItemID:     c.Query("itemId"),
			BinID:      c.Query("binId"),
			Pagination: page,
		},
	})
	if err != nil {
		h.responder(c).RespondWithError(err)
		return
	}

	c.JSON(http.StatusOK, result)
}
