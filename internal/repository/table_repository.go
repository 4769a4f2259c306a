package repository

import (
	"context"
	"time"

	"warkop_pos/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type tableRepository struct {
	db *gorm.DB
}

func NewTableRepository(db *gorm.DB) TableRepository {
	return &tableRepository{db: db}
}

func (r *tableRepository) GetByID(ctx context.Context, id string) (*models.Table, error) {
	var table models.Table
	err := r.db.WithContext(ctx).First(&table, "id = ?", id).Error
	if err != nil {
		return nil, notFoundOr(err, "table", id)
	}
	return &table, nil
}

func (r *tableRepository) Upsert(ctx context.Context, table *models.Table) error {
	table.UpdatedAt = time.Now()
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "updated_at"}),
	}).Create(table).Error
	return translateError(err)
}

func (r *tableRepository) SetStatus(ctx context.Context, id string, status models.TableStatus) error {
	return r.Upsert(ctx, &models.Table{ID: id, Status: status})
}

func (r *tableRepository) List(ctx context.Context) ([]models.Table, error) {
	var tables []models.Table
	err := r.db.WithContext(ctx).Order("id").Find(&tables).Error
	return tables, translateError(err)
}
