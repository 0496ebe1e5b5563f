package repository

import (
	"context"
	"strings"
	"time"

	"pharmacy/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SaleQuery filters the transaction history.
type SaleQuery struct {
	Search      string
	BatchNumber *int64
	StartDate   *time.Time
	EndDate     *time.Time
}

type SaleRepository interface {
	Create(ctx context.Context, sale *model.Sale) error
	CreateItem(ctx context.Context, item *model.SaleItem) error
	FindByIDWithItems(ctx context.Context, id uuid.UUID) (*model.Sale, error)
	List(ctx context.Context, query SaleQuery, page, limit int) ([]model.Sale, int64, error)
}

type saleRepository struct {
	db *gorm.DB
}

func NewSaleRepository(db *gorm.DB) SaleRepository {
	return &saleRepository{db: db}
}

func (r *saleRepository) Create(ctx context.Context, sale *model.Sale) error {
	return GetDB(ctx, r.db).Omit("Items", "User").Create(sale).Error
}

func (r *saleRepository) CreateItem(ctx context.Context, item *model.SaleItem) error {
	return GetDB(ctx, r.db).Omit("Sale", "Batch", "Medicine", "Prescription").Create(item).Error
}

func preloadSaleItems(db *gorm.DB) *gorm.DB {
	return db.
		Preload("User").
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Preload("Items.Medicine").
		Preload("Items.Batch").
		Preload("Items.Prescription")
}

func (r *saleRepository) FindByIDWithItems(ctx context.Context, id uuid.UUID) (*model.Sale, error) {
	var sale model.Sale
	if err := preloadSaleItems(GetDB(ctx, r.db)).First(&sale, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &sale, nil
}

// List returns sales newest first. A sale matches the search when at least one of its
// items matches both the medicine name and, when set, the batch number.
func (r *saleRepository) List(ctx context.Context, query SaleQuery, page, limit int) ([]model.Sale, int64, error) {
	var sales []model.Sale
	var total int64

	db := GetDB(ctx, r.db).Model(&model.Sale{})
	if query.StartDate != nil {
		db = db.Where("sales.created_at >= ?", *query.StartDate)
	}
	if query.EndDate != nil {
		db = db.Where("sales.created_at <= ?", *query.EndDate)
	}
	if query.Search != "" || query.BatchNumber != nil {
		sub := GetDB(ctx, r.db).Table("sale_items").
			Select("1").
			Joins("JOIN medicines ON medicines.id = sale_items.medicine_id").
			Joins("JOIN batches ON batches.id = sale_items.batch_id").
			Where("sale_items.sale_id = sales.id")
		if query.Search != "" {
			sub = sub.Where("LOWER(medicines.name) LIKE ?", "%"+strings.ToLower(query.Search)+"%")
		}
		if query.BatchNumber != nil {
			sub = sub.Where("batches.batch_number = ?", *query.BatchNumber)
		}
		db = db.Where("EXISTS (?)", sub)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := preloadSaleItems(db).
		Order("sales.created_at DESC").
		Offset(offset).Limit(limit).
		Find(&sales).Error; err != nil {
		return nil, 0, err
	}

	return sales, total, nil
}
