package migrations

import (
	"context"
	"fmt"

	"warkop_pos/internal/models"
	"warkop_pos/internal/repository"
	"warkop_pos/internal/services"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RunMigrations creates or updates every POS table.
func RunMigrations(db *gorm.DB, log *zap.Logger) error {
	log.Info("running database migrations")

	err := db.AutoMigrate(
		&models.Cashier{},
		&models.Ingredient{},
		&models.MenuItem{},
		&models.Recipe{},
		&models.RecipeLine{},
		&models.Order{},
		&models.OrderItem{},
		&models.Shift{},
		&models.ShiftActivity{},
		&models.Table{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate tables: %w", err)
	}

	// one open shift per cashier, enforced by the database as well
	err = db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_shifts_open_cashier ON shifts (cashier_id) WHERE status = 'open'`).Error
	if err != nil {
		return fmt.Errorf("failed to create open shift index: %w", err)
	}
	err = db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_recipe_lines_ingredient ON recipe_lines (menu_item_id, ingredient_id)`).Error
	if err != nil {
		return fmt.Errorf("failed to create recipe line index: %w", err)
	}
	// an ingredient cannot be deleted while a recipe line still points at it
	err = db.Exec(`DO $$
BEGIN
	IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'fk_recipe_lines_ingredient') THEN
		ALTER TABLE recipe_lines ADD CONSTRAINT fk_recipe_lines_ingredient
			FOREIGN KEY (ingredient_id) REFERENCES ingredients (id) ON DELETE RESTRICT;
	END IF;
END $$`).Error
	if err != nil {
		return fmt.Errorf("failed to create recipe line foreign key: %w", err)
	}

	log.Info("database migrations completed")
	return nil
}

// SeedDefaults creates the admin cashier, the dining tables and a starter
// menu when the store is empty. It is safe to run on every start.
func SeedDefaults(ctx context.Context, store repository.Store, cashiers services.CashierService, log *zap.Logger) error {
	repos := store.Repos()

	if _, err := repos.Cashiers.GetByUsername(ctx, "admin"); err == nil {
		log.Debug("default data already present")
		return nil
	}

	admin := &models.Cashier{Name: "Administrator", Username: "admin", Role: string(models.RoleAdmin)}
	if err := cashiers.CreateCashier(ctx, admin, "1234"); err != nil {
		return fmt.Errorf("failed to create admin cashier: %w", err)
	}
	log.Info("admin cashier created", zap.String("cashier_id", admin.ID), zap.String("username", "admin"))

	for i := 1; i <= 10; i++ {
		table := &models.Table{ID: fmt.Sprintf("%d", i), Status: models.TableAvailable}
		if err := repos.Tables.Upsert(ctx, table); err != nil {
			return fmt.Errorf("failed to create table %s: %w", table.ID, err)
		}
	}

	ingredients := []models.Ingredient{
		{ID: "ING-susu", Name: "Susu Cair", StockQuantity: 5000, Unit: "ml"},
		{ID: "ING-kopi", Name: "Bubuk Kopi", StockQuantity: 1000, Unit: "gr"},
		{ID: "ING-gula", Name: "Gula Aren", StockQuantity: 2000, Unit: "ml"},
		{ID: "ING-mie", Name: "Mie Instan", StockQuantity: 48, Unit: "pcs"},
		{ID: "ING-telur", Name: "Telur", StockQuantity: 30, Unit: "pcs"},
	}
	for i := range ingredients {
		if err := repos.Ingredients.Create(ctx, &ingredients[i]); err != nil {
			return fmt.Errorf("failed to create ingredient %s: %w", ingredients[i].Name, err)
		}
	}

	menu := []struct {
		item  models.MenuItem
		lines []models.RecipeLine
	}{
		{
			models.MenuItem{ID: "MNU-kopi-susu", Name: "Es Kopi Susu Aren", Price: 18000, Category: "coffee", IsActive: true, UsesStockCheck: true},
			[]models.RecipeLine{
				{IngredientID: "ING-susu", QuantityPerPortion: 150},
				{IngredientID: "ING-kopi", QuantityPerPortion: 18},
				{IngredientID: "ING-gula", QuantityPerPortion: 25},
			},
		},
		{
			models.MenuItem{ID: "MNU-kopi-hitam", Name: "Kopi Tubruk", Price: 8000, Category: "coffee", IsActive: true, UsesStockCheck: true},
			[]models.RecipeLine{{IngredientID: "ING-kopi", QuantityPerPortion: 15}},
		},
		{
			models.MenuItem{ID: "MNU-indomie-telur", Name: "Indomie Telur", Price: 15000, Category: "food", IsActive: true, UsesStockCheck: true},
			[]models.RecipeLine{
				{IngredientID: "ING-mie", QuantityPerPortion: 1},
				{IngredientID: "ING-telur", QuantityPerPortion: 1},
			},
		},
		{
			models.MenuItem{ID: "MNU-es-teh", Name: "Es Teh Manis", Price: 5000, Category: "tea", IsActive: true},
			nil,
		},
	}
	for _, m := range menu {
		item := m.item
		if err := repos.MenuItems.Create(ctx, &item); err != nil {
			return fmt.Errorf("failed to create menu item %s: %w", item.Name, err)
		}
		if len(m.lines) == 0 {
			continue
		}
		if err := repos.Recipes.Upsert(ctx, &models.Recipe{MenuItemID: item.ID, Lines: m.lines}); err != nil {
			return fmt.Errorf("failed to create recipe for %s: %w", item.Name, err)
		}
	}

	log.Info("default data created",
		zap.Int("ingredients", len(ingredients)), zap.Int("menu_items", len(menu)))
	return nil
}
