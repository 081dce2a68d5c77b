package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wms-platform/asrs-service/internal/application"
	"github.com/wms-platform/asrs-service/internal/domain"
)

// ListCommands handles GET /api/v1/commands
func (h *Handlers) ListCommands(c *gin.Context) {
	page, ok := h.bindPagination(c)
	if !ok {
		return
	}

	result, err := h.commands.ListCommands(c.Request.Context(), application.ListCommandsQuery{
		Filter: domain.CommandFilter{
			RobotID:    c.Query("robotId"),
			Status:     domain.CommandStatus(c.Query("status")),
			Type:       domain.CommandType(c.Query("type")),
			Pagination: page,
		},
	})
	if err != nil {
		h.responder(c).RespondWithError(err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetCommand handles GET /api/v1/commands/:commandId
func (h *Handlers) GetCommand(c *gin.Context) {
	command, err := h.commands.GetCommand(c.Request.Context(), application.GetCommandQuery{CommandID: c.Param("commandId")})
	if err != nil {
		h.responder(c).RespondWithError(err)
		return
	}

	c.JSON(http.StatusOK, command)
}

// UpdateCommandParameters handles PATCH /api/v1/commands/:commandId
func (h *Handlers) UpdateCommandParameters(c *gin.Context) {
	var req struct {
		Parameters application.CommandParametersDTO `json:"parameters"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.responder(c).RespondBadRequest(err.Error())
		return
	}

	result, err := h.commands.UpdateParameters(c.Request.Context(), application.UpdateCommandParametersCommand{
		CommandID:  c.Param("commandId"),
		Parameters: application.ToCommandParameters(req.Parameters),
	})
	if err != nil {
		h.responder(c).RespondWithError(err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// CancelCommand handles POST /api/v1/commands/:commandId/cancel
func (h *Handlers) CancelCommand(c *gin.Context) {
	var req struct {
		Reason string `json:"reason"`
	}
	// the body is optional
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.responder(c).RespondBadRequest(err.Error())
			return
		}
	}

	command, err := h.commands.CancelCommand(c.Request.Context(), application.CancelCommandCommand{
		CommandID: c.Param("commandId"),
		Reason:    req.Reason,
	})
	if err != nil {
		h.responder(c).RespondWithError(err)
		return
	}

	c.JSON(http.StatusOK, command)
}

// DeleteCommand handles DELETE /api/v1/commands/:commandId
func (h *Handlers) DeleteCommand(c *gin.Context) {
	err := h.commands.DeleteCommand(c.Request.Context(), application.DeleteCommandCommand{CommandID: c.Param("commandId")})
	if err != nil {
		h.responder(c).RespondWithError(err)
		return
	}

	c.Status(http.StatusNoContent)
}
