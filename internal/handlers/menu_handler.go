package handlers

import (
	"net/http"

	"warkop_pos/internal/models"

	"github.com/gin-gonic/gin"
)

func (h *APIHandler) GetMenu(c *gin.Context) {
	menu, err := h.recipeResolver.Menu(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": menu})
}

func (h *APIHandler) GetAvailablePortions(c *gin.Context) {
	id := c.Param("id")
	portions, err := h.recipeResolver.AvailablePortions(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"menu_item_id":  id,
		"available_qty": portions,
		"unlimited":     portions >= models.UnlimitedPortions,
	})
}

func (h *APIHandler) GetRecipe(c *gin.Context) {
	recipe, err := h.recipeResolver.GetRecipe(c.Request.Context(), c.Param("menuId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, recipe)
}

func (h *APIHandler) UpsertRecipe(c *gin.Context) {
	var req struct {
		Lines []models.RecipeLine `json:"ingredient_lines"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	recipe := &models.Recipe{MenuItemID: c.Param("menuId"), Lines: req.Lines}
	if err := h.recipeResolver.UpsertRecipe(c.Request.Context(), recipe); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, recipe)
}

func (h *APIHandler) DiagnoseRecipes(c *gin.Context) {
	issues, err := h.recipeResolver.Diagnose(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"issues": issues, "count": len(issues)})
}

func (h *APIHandler) ListIngredients(c *gin.Context) {
	ingredients, err := h.stockLedger.ListIngredients(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ingredients": ingredients})
}

func (h *APIHandler) CreateIngredient(c *gin.Context) {
	var ingredient models.Ingredient
	if err := c.ShouldBindJSON(&ingredient); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.stockLedger.AddIngredient(c.Request.Context(), &ingredient); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ingredient)
}

func (h *APIHandler) DeleteIngredient(c *gin.Context) {
	if err := h.stockLedger.RemoveIngredient(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *APIHandler) ReplenishIngredient(c *gin.Context) {
	var req struct {
		Amount float64 `json:"amount" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	id := c.Param("id")
	qty, err := h.stockLedger.Replenish(c.Request.Context(), id, req.Amount)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ingredient_id": id, "stock_quantity": qty})
}

func (h *APIHandler) AdjustIngredient(c *gin.Context) {
	var req struct {
		Quantity *float64 `json:"stock_quantity" binding:"required"`
		Reason   string   `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	ingredient, err := h.stockLedger.Adjust(c.Request.Context(), c.Param("id"), *req.Quantity, req.Reason)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ingredient)
}
