package repository

import (
	"context"
	"fmt"
	"time"

	"warkop_pos/internal/apperrors"
	"warkop_pos/internal/models"

	"gorm.io/gorm"
)

type ingredientRepository struct {
	db *gorm.DB
}

func NewIngredientRepository(db *gorm.DB) IngredientRepository {
	return &ingredientRepository{db: db}
}

func (r *ingredientRepository) Create(ctx context.Context, ingredient *models.Ingredient) error {
	return translateError(r.db.WithContext(ctx).Create(ingredient).Error)
}

func (r *ingredientRepository) GetByID(ctx context.Context, id string) (*models.Ingredient, error) {
	var ingredient models.Ingredient
	err := r.db.WithContext(ctx).First(&ingredient, "id = ?", id).Error
	if err != nil {
		return nil, notFoundOr(err, "ingredient", id)
	}
	return &ingredient, nil
}

func (r *ingredientRepository) GetByIDs(ctx context.Context, ids []string) (map[string]*models.Ingredient, error) {
	result := make(map[string]*models.Ingredient, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	var ingredients []models.Ingredient
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&ingredients).Error; err != nil {
		return nil, translateError(err)
	}
	for i := range ingredients {
		result[ingredients[i].ID] = &ingredients[i]
	}
	return result, nil
}

func (r *ingredientRepository) List(ctx context.Context) ([]models.Ingredient, error) {
	var ingredients []models.Ingredient
	err := r.db.WithContext(ctx).Order("name").Find(&ingredients).Error
	return ingredients, translateError(err)
}

func (r *ingredientRepository) Update(ctx context.Context, ingredient *models.Ingredient) error {
	res := r.db.WithContext(ctx).Model(&models.Ingredient{}).Where("id = ?", ingredient.ID).
		Updates(map[string]interface{}{
			"name":       ingredient.Name,
			"unit":       ingredient.Unit,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound("ingredient", ingredient.ID)
	}
	return nil
}

// Delete relies on fk_recipe_lines_ingredient to refuse an ingredient that a
// recipe line picked up after the caller's usage check.
func (r *ingredientRepository) Delete(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).Delete(&models.Ingredient{}, "id = ?", id).Error
	if isForeignKeyViolation(err) {
		return apperrors.Validation("ingredient_id", fmt.Sprintf("ingredient %s is used by a recipe", id))
	}
	return translateError(err)
}

func (r *ingredientRepository) Decrement(ctx context.Context, id string, amount float64) (float64, bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Ingredient{}).
		Where("id = ? AND stock_quantity >= ?", id, amount).
		Updates(map[string]interface{}{
			"stock_quantity": gorm.Expr("stock_quantity - ?", amount),
			"version":        gorm.Expr("version + 1"),
			"updated_at":     time.Now(),
		})
	if res.Error != nil {
		return 0, false, translateError(res.Error)
	}

	current, err := r.GetByID(ctx, id)
	if err != nil {
		return 0, false, err
	}
	return current.StockQuantity, res.RowsAffected > 0, nil
}

func (r *ingredientRepository) Increment(ctx context.Context, id string, amount float64) (float64, error) {
	res := r.db.WithContext(ctx).Model(&models.Ingredient{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"stock_quantity": gorm.Expr("stock_quantity + ?", amount),
			"version":        gorm.Expr("version + 1"),
			"updated_at":     time.Now(),
		})
	if res.Error != nil {
		return 0, translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, apperrors.NotFound("ingredient", id)
	}

	current, err := r.GetByID(ctx, id)
	if err != nil {
		return 0, err
	}
	return current.StockQuantity, nil
}

func (r *ingredientRepository) SetQuantity(ctx context.Context, id string, qty float64) error {
	res := r.db.WithContext(ctx).Model(&models.Ingredient{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"stock_quantity": qty,
			"version":        gorm.Expr("version + 1"),
			"updated_at":     time.Now(),
		})
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound("ingredient", id)
	}
	return nil
}
