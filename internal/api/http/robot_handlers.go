package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wms-platform/asrs-service/internal/application"
	"github.com/wms-platform/asrs-service/internal/domain"
	"github.com/wms-platform/asrs-service/pkg/middleware"
)

// RegisterRobot handles POST /api/v1/robots
func (h *Handlers) RegisterRobot(c *gin.Context) {
	var req struct {
		RobotID              string  `json:"robotId" binding:"required"`
		Name                 string  `json:"name"`
		AssignedZone         string  `json:"assignedZone"`
		SpeedMetersPerSecond float64 `json:"speedMetersPerSecond"`
		StartBinID           string  `json:"startBinId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.responder(c).RespondBadRequest(err.Error())
		return
	}

	robot, err := h.robots.RegisterRobot(c.Request.Context(), application.RegisterRobotCommand{
		RobotID:              req.RobotID,
		Name:                 req.Name,
		AssignedZone:         req.AssignedZone,
		SpeedMetersPerSecond: req.SpeedMetersPerSecond,
		StartBinID:           req.StartBinID,
	})
	if err != nil {
		h.responder(c).RespondWithError(err)
		return
	}

	c.JSON(http.StatusCreated, robot)
}

// ListRobots handles GET /api/v1/robots
func (h *Handlers) ListRobots(c *gin.Context) {
	page, ok := h.bindPagination(c)
	if !ok {
		return
	}

	result, err := h.robots.ListRobots(c.Request.Context(), application.ListRobotsQuery{
		Filter: domain.RobotFilter{
			Status:     domain.RobotStatus(c.Query("status")),
			Zone:       c.Query("zone"),
			Pagination: page,
		},
	})
	if err != nil {
		h.responder(c).RespondWithError(err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetRobot handles GET /api/v1/robots/:robotId
func (h *Handlers) GetRobot(c *gin.Context) {
	robot, err := h.robots.GetRobot(c.Request.Context(), application.GetRobotQuery{RobotID: c.Param("robotId")})
	if err != nil {
		h.responder(c).RespondWithError(err)
		return
	}

	c.JSON(http.StatusOK, robot)
}

// ChangeRobotStatus handles POST /api/v1/robots/:robotId/status
func (h *Handlers) ChangeRobotStatus(c *gin.Context) {
	robotID := c.Param("robotId")

	var req struct {
		Status     string `json:"status" binding:"required"`
		Reason     string `json:"reason"`
		OperatorID string `json:"operatorId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.responder(c).RespondBadRequest(err.Error())
		return
	}

	operator := req.OperatorID
	if operator == "" {
		operator = middleware.GetUserID(c)
	}

	robot, err := h.robots.ChangeStatus(c.Request.Context(), application.ChangeRobotStatusCommand{
		RobotID:    robotID,
		Status:     domain.RobotStatus(req.Status),
		Reason:     req.Reason,
		OperatorID: operator,
	})
	if err != nil {
		h.responder(c).RespondWithError(err)
		return
	}

	c.JSON(http.StatusOK, robot)
}

// ScheduleCommand handles POST /api/v1/robots/:robotId/commands
func (h *Handlers) ScheduleCommand(c *gin.Context) {
	robotID := c.Param("robotId")

	var req struct {
		Type        string                           `json:"type" binding:"required"`
		Parameters  application.CommandParametersDTO `json:"parameters"`
		RequestedBy string                           `json:"requestedBy"`
		PlanID      string                           `json:"planId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.responder(c).RespondBadRequest(err.Error())
		return
	}

	middleware.AddSpanAttributes(c, map[string]interface{}{
		"robot.id":     robotID,
		"command.type": req.Type,
	})

	requestedBy := req.RequestedBy
	if requestedBy == "" {
		requestedBy = middleware.GetUserID(c)
	}

	command, err := h.commands.ScheduleCommand(c.Request.Context(), application.ScheduleCommand{
		RobotID:     robotID,
		Type:        req.Type,
		Parameters:  application.ToCommandParameters(req.Parameters),
		RequestedBy: requestedBy,
		PlanID:      req.PlanID,
	})
	if err != nil {
		h.responder(c).RespondWithError(err)
		return
	}

	c.JSON(http.StatusAccepted, command)
}
