package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"warkop_pos/internal/apperrors"
	"warkop_pos/internal/metrics"
	"warkop_pos/internal/models"
	"warkop_pos/internal/repository"

	"go.uber.org/zap"
)

type NegativeStockPolicy string

const (
	RejectNegative NegativeStockPolicy = "reject"
	ClampNegative  NegativeStockPolicy = "clamp"
)

func ParseNegativeStockPolicy(s string) NegativeStockPolicy {
	if NegativeStockPolicy(strings.ToLower(s)) == ClampNegative {
		return ClampNegative
	}
	return RejectNegative
}

// AvailabilityCache holds computed portion counts between stock movements.
type AvailabilityCache interface {
	GetAvailability(ctx context.Context, menuItemID string) (int, bool, error)
	SetAvailability(ctx context.Context, menuItemID string, portions int, ttl time.Duration) error
	InvalidateAvailability(ctx context.Context) error
}

type noCache struct{}

func (noCache) GetAvailability(context.Context, string) (int, bool, error) { return 0, false, nil }

func (noCache) SetAvailability(context.Context, string, int, time.Duration) error { return nil }

func (noCache) InvalidateAvailability(context.Context) error { return nil }

type StockLedger interface {
	Consume(ctx context.Context, ingredientID string, amount float64) (float64, error)
	// ConsumeMany decrements every ingredient or none of them.
	ConsumeMany(ctx context.Context, amounts map[string]float64) error
	// ConsumeIn is ConsumeMany bound to a caller's transaction.
	ConsumeIn(ctx context.Context, repos repository.Repositories, amounts map[string]float64) error
	Replenish(ctx context.Context, ingredientID string, amount float64) (float64, error)
	Peek(ctx context.Context, ingredientID string) (float64, error)
	// Adjust overwrites the counted quantity, e.g. after a cancelled order.
	Adjust(ctx context.Context, ingredientID string, quantity float64, reason string) (*models.Ingredient, error)

	AddIngredient(ctx context.Context, ingredient *models.Ingredient) error
	RemoveIngredient(ctx context.Context, ingredientID string) error
	ListIngredients(ctx context.Context) ([]models.Ingredient, error)
}

type stockLedger struct {
	store  repository.Store
	cache  AvailabilityCache
	policy NegativeStockPolicy
	retry  retrier
	log    *zap.Logger
}

func NewStockLedger(store repository.Store, cache AvailabilityCache, policy NegativeStockPolicy, retry RetryPolicy, log *zap.Logger) StockLedger {
	if cache == nil {
		cache = noCache{}
	}
	return &stockLedger{store: store, cache: cache, policy: policy, retry: newRetrier(retry, log), log: log.Named("stock")}
}

func (s *stockLedger) Consume(ctx context.Context, ingredientID string, amount float64) (float64, error) {
	var qty float64
	err := s.retry.do(ctx, "consume", func(ctx context.Context) error {
		return s.store.Transaction(ctx, func(repos repository.Repositories) error {
			if err := s.ConsumeIn(ctx, repos, map[string]float64{ingredientID: amount}); err != nil {
				return err
			}
			ing, err := repos.Ingredients.GetByID(ctx, ingredientID)
			if err != nil {
				return err
			}
			qty = ing.StockQuantity
			return nil
		})
	}, zap.String("ingredient_id", ingredientID))
	if err != nil {
		return 0, err
	}
	s.invalidate(ctx)
	return qty, nil
}

func (s *stockLedger) ConsumeMany(ctx context.Context, amounts map[string]float64) error {
	err := s.retry.do(ctx, "consume_many", func(ctx context.Context) error {
		return s.store.Transaction(ctx, func(repos repository.Repositories) error {
			return s.ConsumeIn(ctx, repos, amounts)
		})
	})
	if err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *stockLedger) ConsumeIn(ctx context.Context, repos repository.Repositories, amounts map[string]float64) error {
	ids := make([]string, 0, len(amounts))
	for id, amount := range amounts {
		if amount <= 0 {
			return apperrors.Validation("amount", fmt.Sprintf("consumption of %s must be positive, got %g", id, amount))
		}
		ids = append(ids, id)
	}
	// fixed order keeps concurrent reservations from deadlocking on row locks
	sort.Strings(ids)

	for _, id := range ids {
		amount := amounts[id]
		qty, ok, err := repos.Ingredients.Decrement(ctx, id, amount)
		if err != nil {
			return err
		}
		if ok {
			continue
		}

		ing, err := repos.Ingredients.GetByID(ctx, id)
		if err != nil {
			return err
		}
		metrics.StockShortfalls.WithLabelValues(id, string(s.policy)).Inc()
		if s.policy == ClampNegative {
			s.log.Warn("clamping stock to zero",
				zap.String("ingredient_id", id), zap.Float64("requested", amount), zap.Float64("available", qty))
			if err := repos.Ingredients.SetQuantity(ctx, id, 0); err != nil {
				return err
			}
			continue
		}
		return &apperrors.InsufficientStockError{
			IngredientID: id,
			Name:         ing.Name,
			Unit:         ing.Unit,
			Requested:    amount,
			Available:    qty,
		}
	}
	return nil
}

func (s *stockLedger) Replenish(ctx context.Context, ingredientID string, amount float64) (float64, error) {
	if amount <= 0 {
		return 0, apperrors.Validation("amount", "replenish amount must be positive")
	}
	var qty float64
	err := s.retry.do(ctx, "replenish", func(ctx context.Context) error {
		var err error
		qty, err = s.store.Repos().Ingredients.Increment(ctx, ingredientID, amount)
		return err
	}, zap.String("ingredient_id", ingredientID))
	if err != nil {
		return 0, err
	}
	s.log.Info("stock replenished",
		zap.String("ingredient_id", ingredientID), zap.Float64("amount", amount), zap.Float64("quantity", qty))
	s.invalidate(ctx)
	return qty, nil
}

func (s *stockLedger) Peek(ctx context.Context, ingredientID string) (float64, error) {
	ing, err := s.store.Repos().Ingredients.GetByID(ctx, ingredientID)
	if err != nil {
		return 0, err
	}
	return ing.StockQuantity, nil
}

func (s *stockLedger) Adjust(ctx context.Context, ingredientID string, quantity float64, reason string) (*models.Ingredient, error) {
	if quantity < 0 {
		return nil, apperrors.Validation("quantity", "stock cannot be set below zero")
	}
	if strings.TrimSpace(reason) == "" {
		return nil, apperrors.Validation("reason", "a reason is required for manual adjustments")
	}

	var ing *models.Ingredient
	err := s.retry.do(ctx, "adjust", func(ctx context.Context) error {
		return s.store.Transaction(ctx, func(repos repository.Repositories) error {
			before, err := repos.Ingredients.GetByID(ctx, ingredientID)
			if err != nil {
				return err
			}
			if err := repos.Ingredients.SetQuantity(ctx, ingredientID, quantity); err != nil {
				return err
			}
			s.log.Info("stock adjusted",
				zap.String("ingredient_id", ingredientID),
				zap.Float64("from", before.StockQuantity),
				zap.Float64("to", quantity),
				zap.String("reason", reason))
			ing, err = repos.Ingredients.GetByID(ctx, ingredientID)
			return err
		})
	}, zap.String("ingredient_id", ingredientID))
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return ing, nil
}

func (s *stockLedger) AddIngredient(ctx context.Context, ingredient *models.Ingredient) error {
	if strings.TrimSpace(ingredient.Name) == "" {
		return apperrors.Validation("name", "ingredient name is required")
	}
	if ingredient.StockQuantity < 0 {
		return apperrors.Validation("stock_quantity", "stock cannot be negative")
	}
	if ingredient.ID == "" {
		ingredient.ID = models.NewID(models.PrefixIngredient)
	}
	if err := s.store.Repos().Ingredients.Create(ctx, ingredient); err != nil {
		return fmt.Errorf("failed to create ingredient %s: %w", ingredient.Name, err)
	}
	return nil
}

// RemoveIngredient refuses to delete an ingredient that a recipe still uses.
func (s *stockLedger) RemoveIngredient(ctx context.Context, ingredientID string) error {
	return s.store.Transaction(ctx, func(repos repository.Repositories) error {
		if _, err := repos.Ingredients.GetByID(ctx, ingredientID); err != nil {
			return err
		}
		menuID, used, err := repos.Recipes.FindByIngredient(ctx, ingredientID)
		if err != nil {
			return err
		}
		if used {
			return apperrors.Validation("ingredient_id",
				fmt.Sprintf("ingredient %s is used by the recipe of menu item %s", ingredientID, menuID))
		}
		return repos.Ingredients.Delete(ctx, ingredientID)
	})
}

func (s *stockLedger) ListIngredients(ctx context.Context) ([]models.Ingredient, error) {
	return s.store.Repos().Ingredients.List(ctx)
}

func (s *stockLedger) invalidate(ctx context.Context) {
	if err := s.cache.InvalidateAvailability(ctx); err != nil {
		s.log.Warn("failed to invalidate availability cache", zap.Error(err))
	}
}
