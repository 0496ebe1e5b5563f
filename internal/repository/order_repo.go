package repository

import (
	"context"

	"pharmacy/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type OrderRepository interface {
	Create(ctx context.Context, order *model.Order) error
	FindByIDWithBatches(ctx context.Context, id uuid.UUID) (*model.Order, error)
	List(ctx context.Context, page, limit int) ([]model.Order, int64, error)
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Create(ctx context.Context, order *model.Order) error {
	return GetDB(ctx, r.db).Omit("Batches").Create(order).Error
}

func preloadOrderBatches(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Batches", func(db *gorm.DB) *gorm.DB {
			return db.Order("batch_number ASC")
		}).
		Preload("Batches.Medicine")
}

func (r *orderRepository) FindByIDWithBatches(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	var order model.Order
	if err := preloadOrderBatches(GetDB(ctx, r.db)).
		First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) List(ctx context.Context, page, limit int) ([]model.Order, int64, error) {
	var orders []model.Order
	var total int64

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.Order{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := preloadOrderBatches(db).
		Order("created_at DESC, order_number DESC").
		Offset(offset).Limit(limit).
		Find(&orders).Error; err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}
