package services

import (
	"context"
	"fmt"

	"warkop_pos/internal/apperrors"
	"warkop_pos/internal/models"
	"warkop_pos/internal/repository"

	"go.uber.org/zap"
)

type TableService interface {
	// SetStatus records the status of a table, registering it on first use.
	SetStatus(ctx context.Context, tableID string, status models.TableStatus) error
	Clean(ctx context.Context, tableID string) (*models.Table, error)
	ListTables(ctx context.Context) ([]models.Table, error)
}

type tableService struct {
	store repository.Store
	log   *zap.Logger
}

func NewTableService(store repository.Store, log *zap.Logger) TableService {
	return &tableService{store: store, log: log.Named("table")}
}

func (s *tableService) SetStatus(ctx context.Context, tableID string, status models.TableStatus) error {
	switch status {
	case models.TableAvailable, models.TableOccupied, models.TableDirty:
	default:
		return apperrors.Validation("status", fmt.Sprintf("unknown table status %q", status))
	}
	if tableID == "" {
		return apperrors.Validation("table_id", "table is required")
	}

	if err := s.store.Repos().Tables.Upsert(ctx, &models.Table{ID: tableID, Status: status}); err != nil {
		return fmt.Errorf("failed to set table %s to %s: %w", tableID, status, err)
	}
	s.log.Debug("table status changed", zap.String("table_id", tableID), zap.String("status", string(status)))
	return nil
}

// Clean makes a table available again once no open order is seated there.
func (s *tableService) Clean(ctx context.Context, tableID string) (*models.Table, error) {
	var table *models.Table
	err := s.store.Transaction(ctx, func(repos repository.Repositories) error {
		var err error
		if table, err = repos.Tables.GetByID(ctx, tableID); err != nil {
			return err
		}
		active, err := repos.Orders.CountActiveAtTable(ctx, tableID, "")
		if err != nil {
			return err
		}
		if active > 0 {
			return apperrors.Validation("table_id", fmt.Sprintf("table %s still has %d open order(s)", tableID, active))
		}
		if err := repos.Tables.SetStatus(ctx, tableID, models.TableAvailable); err != nil {
			return err
		}
		table.Status = models.TableAvailable
		return nil
	})
	if err != nil {
		return nil, err
	}
	return table, nil
}

func (s *tableService) ListTables(ctx context.Context) ([]models.Table, error) {
	return s.store.Repos().Tables.List(ctx)
}
