package handlers

import (
	"context"
	"errors"
	"net/http"

	"warkop_pos/internal/apperrors"
	"warkop_pos/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type APIHandler struct {
	orderService   services.OrderService
	billMerger     services.BillMerger
	recipeResolver services.RecipeResolver
	stockLedger    services.StockLedger
	shiftLedger    services.ShiftLedger
	tableService   services.TableService
	cashierService services.CashierService
	store          Pinger
	log            *zap.Logger
}

func NewAPIHandler(
	orderService services.OrderService,
	billMerger services.BillMerger,
	recipeResolver services.RecipeResolver,
	stockLedger services.StockLedger,
	shiftLedger services.ShiftLedger,
	tableService services.TableService,
	cashierService services.CashierService,
	store Pinger,
	log *zap.Logger,
) *APIHandler {
	return &APIHandler{
		orderService:   orderService,
		billMerger:     billMerger,
		recipeResolver: recipeResolver,
		stockLedger:    stockLedger,
		shiftLedger:    shiftLedger,
		tableService:   tableService,
		cashierService: cashierService,
		store:          store,
		log:            log.Named("http"),
	}
}

func (h *APIHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/health", h.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	{
		api.POST("/orders", h.CreateOrder)
		api.GET("/orders", h.ListOrders)
		api.POST("/orders/merge", h.MergeOrders)
		api.GET("/orders/:id", h.GetOrder)
		api.PATCH("/orders/:id/status", h.AdvanceOrderStatus)
		api.POST("/orders/:id/pay", h.ConfirmPayment)

		api.GET("/menu", h.GetMenu)
		api.GET("/menu/:id/portions", h.GetAvailablePortions)
		api.GET("/recipes/diagnostics", h.DiagnoseRecipes)
		api.GET("/recipes/:menuId", h.GetRecipe)
		api.PUT("/recipes/:menuId", h.UpsertRecipe)

		api.GET("/ingredients", h.ListIngredients)
		api.POST("/ingredients", h.CreateIngredient)
		api.DELETE("/ingredients/:id", h.DeleteIngredient)
		api.POST("/ingredients/:id/replenish", h.ReplenishIngredient)
		api.PUT("/ingredients/:id/stock", h.AdjustIngredient)

		api.POST("/shifts/open", h.OpenShift)
		api.GET("/shifts/current", h.CurrentShift)
		api.GET("/shifts/history", h.ShiftHistory)
		api.GET("/shifts/:id/activities", h.ShiftActivities)
		api.POST("/shifts/:id/cash-out", h.CashOut)
		api.PUT("/shifts/:id/close", h.CloseShift)

		api.GET("/tables", h.ListTables)
		api.PATCH("/tables/:id/clean", h.CleanTable)

		api.POST("/cashiers", h.CreateCashier)
		api.POST("/cashiers/login", h.LoginCashier)
	}
}

func (h *APIHandler) Health(c *gin.Context) {
	if err := h.store.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error(), "code": "validation"})
}

// respondError maps the core error taxonomy onto HTTP statuses. Every body
// carries the resource that caused the failure.
func (h *APIHandler) respondError(c *gin.Context, err error) {
	var (
		validation *apperrors.ValidationError
		notFound   *apperrors.NotFoundError
		shiftNF    *apperrors.ShiftNotFoundError
		stock      *apperrors.InsufficientStockError
		transition *apperrors.InvalidTransitionError
		busy       *apperrors.BusyError
		shiftOpen  *apperrors.ShiftAlreadyOpenError
		shiftDone  *apperrors.ShiftClosedError
		merge      *apperrors.MergeError
		down       *apperrors.UnavailableError
	)

	body := gin.H{"error": err.Error()}
	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &validation):
		status, body["code"], body["field"] = http.StatusBadRequest, "validation", validation.Field
	case errors.As(err, &notFound):
		status, body["code"], body["resource"], body["id"] = http.StatusNotFound, "not_found", notFound.Resource, notFound.ID
	case errors.As(err, &shiftNF):
		status, body["code"] = http.StatusNotFound, "shift_not_found"
	case errors.As(err, &stock):
		status, body["code"] = http.StatusConflict, "insufficient_stock"
		body["ingredient_id"] = stock.IngredientID
		body["requested"] = stock.Requested
		body["available"] = stock.Available
		body["shortfall"] = stock.Shortfall()
	case errors.As(err, &transition):
		status, body["code"], body["from"], body["to"] = http.StatusConflict, "invalid_transition", transition.From, transition.To
	case errors.As(err, &busy):
		status, body["code"], body["order_id"] = http.StatusLocked, "busy", busy.OrderID
	case errors.As(err, &shiftOpen):
		status, body["code"], body["shift_id"] = http.StatusConflict, "shift_already_open", shiftOpen.ShiftID
	case errors.As(err, &shiftDone):
		status, body["code"], body["shift_id"] = http.StatusConflict, "shift_closed", shiftDone.ShiftID
	case errors.As(err, &merge):
		status, body["code"], body["kind"] = http.StatusUnprocessableEntity, "merge_error", merge.Kind
		if merge.OrderID != "" {
			body["order_id"] = merge.OrderID
		}
	case errors.As(err, &down), apperrors.IsRetryable(err), errors.Is(err, context.DeadlineExceeded):
		status, body["code"] = http.StatusServiceUnavailable, "unavailable"
	case errors.Is(err, services.ErrInvalidCredentials):
		status, body["code"] = http.StatusUnauthorized, "invalid_credentials"
	default:
		h.log.Error("unhandled error", zap.String("path", c.FullPath()), zap.Error(err))
		body["error"] = "internal server error"
	}
	c.JSON(status, body)
}
