package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wms-platform/asrs-service/internal/application"
)

// CreateBin handles POST /api/v1/layout/bins
func (h *Handlers) CreateBin(c *gin.Context) {
	var req struct {
		ZoneID      string `json:"zoneId" binding:"required"`
		ZoneCode    string `json:"zoneCode"`
		ZoneName    string `json:"zoneName"`
		AisleID     string `json:"aisleId" binding:"required"`
		AisleNumber int    `json:"aisleNumber"`
		RackID      string `json:"rackId" binding:"required"`
		RackNumber  int    `json:"rackNumber"`
		BinID       string `json:"binId" binding:"required"`
		Code        string `json:"code"`
		Level       int    `json:"level"`
		Position    int    `json:"position"`
		Capacity    int    `json:"capacity"`
		Barcode     string `json:"barcode"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.responder(c).RespondBadRequest(err.Error())
		return
	}

	bin, err := h.inventory.CreateBin(c.Request.Context(), application.CreateBinCommand{
		ZoneID:      req.ZoneID,
		ZoneCode:    req.ZoneCode,
		ZoneName:    req.ZoneName,
		AisleID:     req.AisleID,
		AisleNumber: req.AisleNumber,
		RackID:      req.RackID,
		RackNumber:  req.RackNumber,
		BinID:       req.BinID,
		Code:        req.Code,
		Level:       req.Level,
		Position:    req.Position,
		Capacity:    req.Capacity,
		Barcode:     req.Barcode,
	})
	if err != nil {
		h.responder(c).RespondWithError(err)
		return
	}

	c.JSON(http.StatusCreated, bin)
}

// GetBin handles GET /api/v1/layout/bins/:binId
func (h *Handlers) GetBin(c *gin.Context) {
	bin, err := h.inventory.GetBin(c.Request.Context(), application.GetBinQuery{BinID: c.Param("binId")})
	if err != nil {
		h.responder(c).RespondWithError(err)
		return
	}

	c.JSON(http.StatusOK, bin)
}

// RegisterItem handles POST /api/v1/items
func (h *Handlers) RegisterItem(c *gin.Context) {
	var req struct {
		ItemID  string  `json:"itemId" binding:"required"`
		SKU     string  `json:"sku"`
		Name    string  `json:"name"`
		Barcode string  `json:"barcode"`
		Weight  float64 `json:"weight"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.responder(c).RespondBadRequest(err.Error())
		return
	}

	item, err := h.inventory.RegisterItem(c.Request.Context(), application.RegisterItemCommand{
		ItemID:  req.ItemID,
		SKU:     req.SKU,
		Name:    req.Name,
		Barcode: req.Barcode,
		Weight:  req.Weight,
	})
	if err != nil {
		h.responder(c).RespondWithError(err)
		return
	}

	c.JSON(http.StatusCreated, item)
}

// ReceiveStock handles POST /api/v1/stock/receive
func (h *Handlers) ReceiveStock(c *gin.Context) {
	var req struct {
		BinID      string     `json:"binId" binding:"required"`
		ItemID     string     `json:"itemId" binding:"required"`
		Quantity   int        `json:"quantity"`
		ExpiryDate *time.Time `json:"expiryDate"`
		BatchID    string     `json:"batchId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.responder(c).RespondBadRequest(err.Error())
		return
	}

	bin, err := h.inventory.ReceiveStock(c.Request.Context(), application.ReceiveStockCommand{
		BinID:      req.BinID,
		ItemID:     req.ItemID,
		Quantity:   req.Quantity,
		ExpiryDate: req.ExpiryDate,
		BatchID:    req.BatchID,
	})
	if err != nil {
		h.responder(c).RespondWithError(err)
		return
	}

	c.JSON(http.StatusOK, bin)
}

// StockLevels handles GET /api/v1/stock?itemId=
func (h *Handlers) StockLevels(c *gin.Context) {
	levels, err := h.inventory.StockLevels(c.Request.Context(), application.StockLevelsQuery{ItemID: c.Query("itemId")})
	if err != nil {
		h.responder(c).RespondWithError(err)
		return
	}

	c.JSON(http.StatusOK, levels)
}
