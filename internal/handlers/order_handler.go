package handlers

import (
	"net/http"
	"strconv"

	"warkop_pos/internal/models"
	"warkop_pos/internal/repository"
	"warkop_pos/internal/services"

	"github.com/gin-gonic/gin"
)

func (h *APIHandler) CreateOrder(c *gin.Context) {
	var draft services.OrderDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		badRequest(c, err)
		return
	}

	order, err := h.orderService.CreateOrder(c.Request.Context(), draft)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func (h *APIHandler) GetOrder(c *gin.Context) {
	order, err := h.orderService.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *APIHandler) ListOrders(c *gin.Context) {
	filter := repository.OrderFilter{
		TableNumber:     c.Query("table"),
		ShiftID:         c.Query("shift_id"),
		IncludeArchived: c.Query("include_archived") == "true",
	}
	if raw := c.Query("status"); raw != "" {
		status, ok := models.ParseOrderStatus(raw)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status " + raw, "code": "validation", "field": "status"})
			return
		}
		filter.Status = status
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			badRequest(c, err)
			return
		}
		filter.Limit = limit
	}

	orders, err := h.orderService.ListOrders(c.Request.Context(), filter)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders, "count": len(orders)})
}

func (h *APIHandler) AdvanceOrderStatus(c *gin.Context) {
	var req struct {
		Status models.OrderStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	order, err := h.orderService.AdvanceOrderStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *APIHandler) ConfirmPayment(c *gin.Context) {
	var req struct {
		PaymentMethod models.PaymentMethod `json:"payment_method" binding:"required"`
		CashierID     string               `json:"cashier_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	order, err := h.orderService.ConfirmPayment(c.Request.Context(), c.Param("id"), req.PaymentMethod, req.CashierID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *APIHandler) MergeOrders(c *gin.Context) {
	var req struct {
		OrderIDs []string `json:"order_ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	order, err := h.billMerger.MergeOrders(c.Request.Context(), req.OrderIDs)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}
