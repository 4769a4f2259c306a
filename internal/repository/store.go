package repository

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"warkop_pos/internal/apperrors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

type gormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func newRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Ingredients: NewIngredientRepository(db),
		Recipes:     NewRecipeRepository(db),
		MenuItems:   NewMenuItemRepository(db),
		Orders:      NewOrderRepository(db),
		Shifts:      NewShiftRepository(db),
		Activities:  NewShiftActivityRepository(db),
		Tables:      NewTableRepository(db),
		Cashiers:    NewCashierRepository(db),
	}
}

func (s *gormStore) Repos() Repositories {
	return newRepositories(s.db)
}

func (s *gormStore) Transaction(ctx context.Context, fn func(repos Repositories) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(newRepositories(tx))
	})
	return translateError(err)
}

func (s *gormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrStoreUnavailable, err)
	}
	return nil
}

// translateError maps driver failures onto the transient sentinels so the
// service layer can decide whether to retry.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01": // serialization_failure, deadlock_detected
			return fmt.Errorf("%w: %s", apperrors.ErrConflict, pgErr.Message)
		case "08000", "08003", "08006", "57P01", "57P03":
			return fmt.Errorf("%w: %s", apperrors.ErrStoreUnavailable, pgErr.Message)
		}
		return err
	}
	var netErr net.Error
	if errors.Is(err, driver.ErrBadConn) || errors.As(err, &netErr) {
		return fmt.Errorf("%w: %v", apperrors.ErrStoreUnavailable, err)
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

func notFoundOr(err error, resource, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.NotFound(resource, id)
	}
	return translateError(err)
}
