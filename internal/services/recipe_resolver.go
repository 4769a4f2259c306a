package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"warkop_pos/internal/apperrors"
	"warkop_pos/internal/models"
	"warkop_pos/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PortionRequest asks for qty portions of one menu item.
type PortionRequest struct {
	MenuItemID string `json:"menu_item_id"`
	Qty        int    `json:"qty"`
}

type RecipeResolver interface {
	AvailablePortions(ctx context.Context, menuItemID string) (int, error)
	Menu(ctx context.Context) ([]models.MenuAvailability, error)
	// ReserveForOrder consumes the aggregated ingredients of all requests in
	// one transaction, or nothing.
	ReserveForOrder(ctx context.Context, items []PortionRequest) error
	ReserveIn(ctx context.Context, repos repository.Repositories, items []PortionRequest) error
	UpsertRecipe(ctx context.Context, recipe *models.Recipe) error
	GetRecipe(ctx context.Context, menuItemID string) (*models.Recipe, error)
	Diagnose(ctx context.Context) ([]models.RecipeIssue, error)
	Invalidate(ctx context.Context)
}

type recipeResolver struct {
	store    repository.Store
	stock    StockLedger
	cache    AvailabilityCache
	cacheTTL time.Duration
	retry    retrier
	log      *zap.Logger
}

func NewRecipeResolver(store repository.Store, stock StockLedger, cache AvailabilityCache, cacheTTL time.Duration, retry RetryPolicy, log *zap.Logger) RecipeResolver {
	if cache == nil {
		cache = noCache{}
	}
	return &recipeResolver{
		store:    store,
		stock:    stock,
		cache:    cache,
		cacheTTL: cacheTTL,
		retry:    newRetrier(retry, log),
		log:      log.Named("recipe"),
	}
}

func (r *recipeResolver) AvailablePortions(ctx context.Context, menuItemID string) (int, error) {
	item, err := r.store.Repos().MenuItems.GetByID(ctx, menuItemID)
	if err != nil {
		return 0, err
	}
	return r.portionsFor(ctx, item)
}

func (r *recipeResolver) portionsFor(ctx context.Context, item *models.MenuItem) (int, error) {
	if !item.UsesStockCheck {
		return models.UnlimitedPortions, nil
	}
	if cached, ok, err := r.cache.GetAvailability(ctx, item.ID); err != nil {
		r.log.Debug("availability cache read failed", zap.Error(err))
	} else if ok {
		return cached, nil
	}

	portions, err := r.computePortions(ctx, item)
	if err != nil {
		return 0, err
	}
	if err := r.cache.SetAvailability(ctx, item.ID, portions, r.cacheTTL); err != nil {
		r.log.Debug("availability cache write failed", zap.Error(err))
	}
	return portions, nil
}

func (r *recipeResolver) computePortions(ctx context.Context, item *models.MenuItem) (int, error) {
	repos := r.store.Repos()
	recipe, err := repos.Recipes.GetByMenuItem(ctx, item.ID)
	if err != nil {
		return 0, err
	}
	if recipe == nil || len(recipe.Lines) == 0 {
		return models.UnlimitedPortions, nil
	}

	ids := make([]string, 0, len(recipe.Lines))
	for _, line := range recipe.Lines {
		ids = append(ids, line.IngredientID)
	}
	ingredients, err := repos.Ingredients.GetByIDs(ctx, ids)
	if err != nil {
		return 0, err
	}

	portions := int64(models.UnlimitedPortions)
	for _, line := range recipe.Lines {
		ing, ok := ingredients[line.IngredientID]
		if !ok {
			r.log.Warn("recipe references missing ingredient",
				zap.String("menu_item_id", item.ID),
				zap.String("menu_item", item.Name),
				zap.String("ingredient_id", line.IngredientID))
			return 0, nil
		}
		if line.QuantityPerPortion <= 0 {
			continue
		}
		n := decimal.NewFromFloat(ing.StockQuantity).
			Div(decimal.NewFromFloat(line.QuantityPerPortion)).
			Floor().
			IntPart()
		if n < portions {
			portions = n
		}
	}
	if portions < 0 {
		portions = 0
	}
	return int(portions), nil
}

func (r *recipeResolver) Menu(ctx context.Context) ([]models.MenuAvailability, error) {
	items, err := r.store.Repos().MenuItems.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list menu: %w", err)
	}

	menu := make([]models.MenuAvailability, 0, len(items))
	for i := range items {
		portions, err := r.portionsFor(ctx, &items[i])
		if err != nil {
			return nil, err
		}
		menu = append(menu, models.MenuAvailability{
			MenuItemID:     items[i].ID,
			Name:           items[i].Name,
			Price:          items[i].Price,
			Category:       items[i].Category,
			UsesStockCheck: items[i].UsesStockCheck,
			Available:      portions,
			Unlimited:      portions >= models.UnlimitedPortions,
		})
	}
	return menu, nil
}

func (r *recipeResolver) ReserveForOrder(ctx context.Context, items []PortionRequest) error {
	err := r.retry.do(ctx, "reserve_stock", func(ctx context.Context) error {
		return r.store.Transaction(ctx, func(repos repository.Repositories) error {
			return r.ReserveIn(ctx, repos, items)
		})
	})
	if err != nil {
		return err
	}
	r.Invalidate(ctx)
	return nil
}

func (r *recipeResolver) ReserveIn(ctx context.Context, repos repository.Repositories, items []PortionRequest) error {
	required := make(map[string]decimal.Decimal)
	for _, req := range items {
		if req.Qty <= 0 {
			return apperrors.Validation("qty", fmt.Sprintf("quantity for %s must be positive", req.MenuItemID))
		}
		item, err := repos.MenuItems.GetByID(ctx, req.MenuItemID)
		if err != nil {
			return err
		}
		if !item.UsesStockCheck {
			continue
		}
		recipe, err := repos.Recipes.GetByMenuItem(ctx, item.ID)
		if err != nil {
			return err
		}
		if recipe == nil {
			continue
		}
		for _, line := range recipe.Lines {
			if line.QuantityPerPortion <= 0 {
				continue
			}
			need := decimal.NewFromFloat(line.QuantityPerPortion).Mul(decimal.NewFromInt(int64(req.Qty)))
			required[line.IngredientID] = required[line.IngredientID].Add(need)
		}
	}
	if len(required) == 0 {
		return nil
	}

	ids := make([]string, 0, len(required))
	for id := range required {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	ingredients, err := repos.Ingredients.GetByIDs(ctx, ids)
	if err != nil {
		return err
	}

	amounts := make(map[string]float64, len(required))
	for _, id := range ids {
		if _, ok := ingredients[id]; !ok {
			r.log.Warn("reservation hit a missing ingredient", zap.String("ingredient_id", id))
			return &apperrors.InsufficientStockError{
				IngredientID: id,
				Requested:    required[id].InexactFloat64(),
			}
		}
		amounts[id] = required[id].InexactFloat64()
	}
	return r.stock.ConsumeIn(ctx, repos, amounts)
}

func (r *recipeResolver) UpsertRecipe(ctx context.Context, recipe *models.Recipe) error {
	seen := make(map[string]bool, len(recipe.Lines))
	for i, line := range recipe.Lines {
		field := fmt.Sprintf("ingredient_lines[%d]", i)
		if line.IngredientID == "" {
			return apperrors.Validation(field, "ingredient_id is required")
		}
		if line.QuantityPerPortion <= 0 {
			return apperrors.Validation(field, fmt.Sprintf("quantity_per_portion for %s must be greater than zero", line.IngredientID))
		}
		if seen[line.IngredientID] {
			return apperrors.Validation(field, fmt.Sprintf("ingredient %s listed twice", line.IngredientID))
		}
		seen[line.IngredientID] = true
	}

	err := r.store.Transaction(ctx, func(repos repository.Repositories) error {
		if _, err := repos.MenuItems.GetByID(ctx, recipe.MenuItemID); err != nil {
			return err
		}
		ids := make([]string, 0, len(recipe.Lines))
		for _, line := range recipe.Lines {
			ids = append(ids, line.IngredientID)
		}
		found, err := repos.Ingredients.GetByIDs(ctx, ids)
		if err != nil {
			return err
		}
		for _, id := range ids {
			if _, ok := found[id]; !ok {
				return apperrors.NotFound("ingredient", id)
			}
		}
		return repos.Recipes.Upsert(ctx, recipe)
	})
	if err != nil {
		return err
	}
	r.Invalidate(ctx)
	return nil
}

func (r *recipeResolver) GetRecipe(ctx context.Context, menuItemID string) (*models.Recipe, error) {
	recipe, err := r.store.Repos().Recipes.GetByMenuItem(ctx, menuItemID)
	if err != nil {
		return nil, err
	}
	if recipe == nil {
		return nil, apperrors.NotFound("recipe", menuItemID)
	}
	return recipe, nil
}

// Diagnose lists every recipe line that points at a missing ingredient.
func (r *recipeResolver) Diagnose(ctx context.Context) ([]models.RecipeIssue, error) {
	repos := r.store.Repos()
	recipes, err := repos.Recipes.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list recipes: %w", err)
	}

	var ids []string
	for _, recipe := range recipes {
		for _, line := range recipe.Lines {
			ids = append(ids, line.IngredientID)
		}
	}
	ingredients, err := repos.Ingredients.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	issues := []models.RecipeIssue{}
	for _, recipe := range recipes {
		name := recipe.MenuItemID
		if item, err := repos.MenuItems.GetByID(ctx, recipe.MenuItemID); err == nil {
			name = item.Name
		}
		for _, line := range recipe.Lines {
			if _, ok := ingredients[line.IngredientID]; ok {
				continue
			}
			issues = append(issues, models.RecipeIssue{
				MenuItemID:   recipe.MenuItemID,
				MenuItemName: name,
				IngredientID: line.IngredientID,
				Needed:       line.QuantityPerPortion,
			})
		}
	}
	if len(issues) > 0 {
		r.log.Warn("dangling recipe references found", zap.Int("count", len(issues)))
	}
	return issues, nil
}

func (r *recipeResolver) Invalidate(ctx context.Context) {
	if err := r.cache.InvalidateAvailability(ctx); err != nil {
		r.log.Warn("failed to invalidate availability cache", zap.Error(err))
	}
}
