package memory

import (
	"context"
	"sort"
	"time"

	"warkop_pos/internal/apperrors"
	"warkop_pos/internal/models"
)

type ingredientRepo struct{ v *view }

func (r *ingredientRepo) Create(_ context.Context, ingredient *models.Ingredient) error {
	return r.v.do(func(st *state) error {
		if _, exists := st.ingredients[ingredient.ID]; exists {
			return apperrors.Validation("id", "ingredient "+ingredient.ID+" already exists")
		}
		now := time.Now()
		ingredient.CreatedAt, ingredient.UpdatedAt = now, now
		st.ingredients[ingredient.ID] = *ingredient
		return nil
	})
}

func (r *ingredientRepo) GetByID(_ context.Context, id string) (*models.Ingredient, error) {
	var out *models.Ingredient
	err := r.v.do(func(st *state) error {
		ing, ok := st.ingredients[id]
		if !ok {
			return apperrors.NotFound("ingredient", id)
		}
		out = &ing
		return nil
	})
	return out, err
}

func (r *ingredientRepo) GetByIDs(_ context.Context, ids []string) (map[string]*models.Ingredient, error) {
	out := make(map[string]*models.Ingredient, len(ids))
	err := r.v.do(func(st *state) error {
		for _, id := range ids {
			if ing, ok := st.ingredients[id]; ok {
				ing := ing
				out[id] = &ing
			}
		}
		return nil
	})
	return out, err
}

func (r *ingredientRepo) List(_ context.Context) ([]models.Ingredient, error) {
	var out []models.Ingredient
	err := r.v.do(func(st *state) error {
		for _, ing := range st.ingredients {
			out = append(out, ing)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, err
}

func (r *ingredientRepo) Update(_ context.Context, ingredient *models.Ingredient) error {
	return r.v.do(func(st *state) error {
		current, ok := st.ingredients[ingredient.ID]
		if !ok {
			return apperrors.NotFound("ingredient", ingredient.ID)
		}
		current.Name = ingredient.Name
		current.Unit = ingredient.Unit
		current.UpdatedAt = time.Now()
		st.ingredients[ingredient.ID] = current
		return nil
	})
}

func (r *ingredientRepo) Delete(_ context.Context, id string) error {
	return r.v.do(func(st *state) error {
		delete(st.ingredients, id)
		return nil
	})
}

func (r *ingredientRepo) Decrement(_ context.Context, id string, amount float64) (float64, bool, error) {
	var qty float64
	var ok bool
	err := r.v.do(func(st *state) error {
		current, exists := st.ingredients[id]
		if !exists {
			return apperrors.NotFound("ingredient", id)
		}
		if current.StockQuantity < amount {
			qty = current.StockQuantity
			return nil
		}
		current.StockQuantity -= amount
		current.Version++
		current.UpdatedAt = time.Now()
		st.ingredients[id] = current
		qty, ok = current.StockQuantity, true
		return nil
	})
	return qty, ok, err
}

func (r *ingredientRepo) Increment(_ context.Context, id string, amount float64) (float64, error) {
	var qty float64
	err := r.v.do(func(st *state) error {
		current, exists := st.ingredients[id]
		if !exists {
			return apperrors.NotFound("ingredient", id)
		}
		current.StockQuantity += amount
		current.Version++
		current.UpdatedAt = time.Now()
		st.ingredients[id] = current
		qty = current.StockQuantity
		return nil
	})
	return qty, err
}

func (r *ingredientRepo) SetQuantity(_ context.Context, id string, qty float64) error {
	return r.v.do(func(st *state) error {
		current, exists := st.ingredients[id]
		if !exists {
			return apperrors.NotFound("ingredient", id)
		}
		current.StockQuantity = qty
		current.Version++
		current.UpdatedAt = time.Now()
		st.ingredients[id] = current
		return nil
	})
}

type recipeRepo struct{ v *view }

func (r *recipeRepo) Upsert(_ context.Context, recipe *models.Recipe) error {
	return r.v.do(func(st *state) error {
		recipe.UpdatedAt = time.Now()
		for i := range recipe.Lines {
			st.nextLineID++
			recipe.Lines[i].ID = st.nextLineID
			recipe.Lines[i].MenuItemID = recipe.MenuItemID
		}
		st.recipes[recipe.MenuItemID] = cloneRecipe(*recipe)
		return nil
	})
}

func (r *recipeRepo) GetByMenuItem(_ context.Context, menuItemID string) (*models.Recipe, error) {
	var out *models.Recipe
	err := r.v.do(func(st *state) error {
		if recipe, ok := st.recipes[menuItemID]; ok {
			c := cloneRecipe(recipe)
			out = &c
		}
		return nil
	})
	return out, err
}

func (r *recipeRepo) List(_ context.Context) ([]models.Recipe, error) {
	var out []models.Recipe
	err := r.v.do(func(st *state) error {
		for _, recipe := range st.recipes {
			out = append(out, cloneRecipe(recipe))
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].MenuItemID < out[j].MenuItemID })
	return out, err
}

func (r *recipeRepo) FindByIngredient(_ context.Context, ingredientID string) (string, bool, error) {
	var menuID string
	var found bool
	err := r.v.do(func(st *state) error {
		for id, recipe := range st.recipes {
			for _, line := range recipe.Lines {
				if line.IngredientID == ingredientID {
					menuID, found = id, true
					return nil
				}
			}
		}
		return nil
	})
	return menuID, found, err
}

type menuItemRepo struct{ v *view }

func (r *menuItemRepo) Create(_ context.Context, item *models.MenuItem) error {
	return r.v.do(func(st *state) error {
		if _, exists := st.menuItems[item.ID]; exists {
			return apperrors.Validation("id", "menu item "+item.ID+" already exists")
		}
		now := time.Now()
		item.CreatedAt, item.UpdatedAt = now, now
		st.menuItems[item.ID] = *item
		return nil
	})
}

func (r *menuItemRepo) GetByID(_ context.Context, id string) (*models.MenuItem, error) {
	var out *models.MenuItem
	err := r.v.do(func(st *state) error {
		item, ok := st.menuItems[id]
		if !ok {
			return apperrors.NotFound("menu item", id)
		}
		out = &item
		return nil
	})
	return out, err
}

func (r *menuItemRepo) ListActive(_ context.Context) ([]models.MenuItem, error) {
	var out []models.MenuItem
	err := r.v.do(func(st *state) error {
		for _, item := range st.menuItems {
			if item.IsActive {
				out = append(out, item)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].Name < out[j].Name
	})
	return out, err
}

func (r *menuItemRepo) Update(_ context.Context, item *models.MenuItem) error {
	return r.v.do(func(st *state) error {
		current, ok := st.menuItems[item.ID]
		if !ok {
			return apperrors.NotFound("menu item", item.ID)
		}
		item.CreatedAt = current.CreatedAt
		item.UpdatedAt = time.Now()
		st.menuItems[item.ID] = *item
		return nil
	})
}
