package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"warkop_pos/internal/apperrors"
	"warkop_pos/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type recipeRepository struct {
	db *gorm.DB
}

func NewRecipeRepository(db *gorm.DB) RecipeRepository {
	return &recipeRepository{db: db}
}

func (r *recipeRepository) Upsert(ctx context.Context, recipe *models.Recipe) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		recipe.UpdatedAt = time.Now()
		header := models.Recipe{MenuItemID: recipe.MenuItemID, UpdatedAt: recipe.UpdatedAt}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "menu_item_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"updated_at"}),
		}).Omit(clause.Associations).Create(&header).Error; err != nil {
			return err
		}

		// Lines are replaced wholesale.
		if err := tx.Where("menu_item_id = ?", recipe.MenuItemID).Delete(&models.RecipeLine{}).Error; err != nil {
			return err
		}
		if len(recipe.Lines) == 0 {
			return nil
		}
		for i := range recipe.Lines {
			recipe.Lines[i].ID = 0
			recipe.Lines[i].MenuItemID = recipe.MenuItemID
		}
		return tx.Create(&recipe.Lines).Error
	})
	if isForeignKeyViolation(err) {
		return apperrors.Validation("ingredient_lines", fmt.Sprintf("recipe for %s references an ingredient that no longer exists", recipe.MenuItemID))
	}
	return translateError(err)
}

func (r *recipeRepository) GetByMenuItem(ctx context.Context, menuItemID string) (*models.Recipe, error) {
	var recipe models.Recipe
	err := r.db.WithContext(ctx).Preload("Lines").First(&recipe, "menu_item_id = ?", menuItemID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, translateError(err)
	}
	return &recipe, nil
}

func (r *recipeRepository) List(ctx context.Context) ([]models.Recipe, error) {
	var recipes []models.Recipe
	err := r.db.WithContext(ctx).Preload("Lines").Find(&recipes).Error
	return recipes, translateError(err)
}

func (r *recipeRepository) FindByIngredient(ctx context.Context, ingredientID string) (string, bool, error) {
	var menuIDs []string
	err := r.db.WithContext(ctx).Model(&models.RecipeLine{}).
		Where("ingredient_id = ?", ingredientID).Limit(1).Pluck("menu_item_id", &menuIDs).Error
	if err != nil {
		return "", false, translateError(err)
	}
	if len(menuIDs) == 0 {
		return "", false, nil
	}
	return menuIDs[0], true, nil
}

type menuItemRepository struct {
	db *gorm.DB
}

func NewMenuItemRepository(db *gorm.DB) MenuItemRepository {
	return &menuItemRepository{db: db}
}

func (r *menuItemRepository) Create(ctx context.Context, item *models.MenuItem) error {
	return translateError(r.db.WithContext(ctx).Create(item).Error)
}

func (r *menuItemRepository) GetByID(ctx context.Context, id string) (*models.MenuItem, error) {
	var item models.MenuItem
	err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error
	if err != nil {
		return nil, notFoundOr(err, "menu item", id)
	}
	return &item, nil
}

func (r *menuItemRepository) ListActive(ctx context.Context) ([]models.MenuItem, error) {
	var items []models.MenuItem
	err := r.db.WithContext(ctx).Where("is_active = ?", true).Order("category, name").Find(&items).Error
	return items, translateError(err)
}

func (r *menuItemRepository) Update(ctx context.Context, item *models.MenuItem) error {
	res := r.db.WithContext(ctx).Model(&models.MenuItem{}).Where("id = ?", item.ID).
		Updates(map[string]interface{}{
			"name":             item.Name,
			"price":            item.Price,
			"category":         item.Category,
			"is_active":        item.IsActive,
			"uses_stock_check": item.UsesStockCheck,
			"updated_at":       time.Now(),
		})
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound("menu item", item.ID)
	}
	return nil
}
