package handlers

import (
	"net/http"
	"strconv"

	"warkop_pos/internal/models"

	"github.com/gin-gonic/gin"
)

func (h *APIHandler) OpenShift(c *gin.Context) {
	var req struct {
		CashierID   string `json:"cashier_id" binding:"required"`
		OpeningCash int64  `json:"opening_cash"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	shift, err := h.shiftLedger.Open(c.Request.Context(), req.CashierID, req.OpeningCash)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, shift)
}

// CurrentShift returns the cashier's open shift with its running balance.
func (h *APIHandler) CurrentShift(c *gin.Context) {
	balance, err := h.shiftLedger.CurrentBalance(c.Request.Context(), c.Query("cashier_id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, balance)
}

func (h *APIHandler) ShiftHistory(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	shifts, err := h.shiftLedger.History(c.Request.Context(), limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"shifts": shifts})
}

func (h *APIHandler) ShiftActivities(c *gin.Context) {
	activities, err := h.shiftLedger.Activities(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"activities": activities})
}

func (h *APIHandler) CashOut(c *gin.Context) {
	var req struct {
		Amount int64  `json:"amount" binding:"required"`
		Reason string `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	shift, err := h.shiftLedger.RecordCashOut(c.Request.Context(), c.Param("id"), req.Amount, req.Reason)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, shift)
}

func (h *APIHandler) CloseShift(c *gin.Context) {
	var req struct {
		CountedCash *int64 `json:"counted_cash" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	summary, err := h.shiftLedger.Close(c.Request.Context(), c.Param("id"), *req.CountedCash)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *APIHandler) ListTables(c *gin.Context) {
	tables, err := h.tableService.ListTables(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tables": tables})
}

func (h *APIHandler) CleanTable(c *gin.Context) {
	table, err := h.tableService.Clean(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, table)
}

func (h *APIHandler) CreateCashier(c *gin.Context) {
	var req struct {
		Name     string             `json:"name" binding:"required"`
		Username string             `json:"username" binding:"required"`
		Pin      string             `json:"pin" binding:"required"`
		Role     models.CashierRole `json:"role"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	cashier := &models.Cashier{Name: req.Name, Username: req.Username, Role: string(req.Role)}
	if err := h.cashierService.CreateCashier(c.Request.Context(), cashier, req.Pin); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, cashier)
}

func (h *APIHandler) LoginCashier(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Pin      string `json:"pin" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	cashier, err := h.cashierService.Authenticate(c.Request.Context(), req.Username, req.Pin)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cashier)
}
