package repository

import (
	"context"
	"time"

	"pharmacy/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BatchRepository interface {
	Create(ctx context.Context, batch *model.Batch) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Batch, error)
	// Decrement subtracts amount only when at least amount units remain.
	// It reports whether a row was changed.
	Decrement(ctx context.Context, id uuid.UUID, amount int) (bool, error)
	SumQuantity(ctx context.Context, medicineID uuid.UUID) (int64, error)
	ListByMedicine(ctx context.Context, medicineID uuid.UUID) ([]model.Batch, error)
	// LinkOrder sets order_id on the given batches that are not yet linked.
	LinkOrder(ctx context.Context, orderID uuid.UUID, batchIDs []uuid.UUID) (int64, error)
}

type batchRepository struct {
	db *gorm.DB
}

func NewBatchRepository(db *gorm.DB) BatchRepository {
	return &batchRepository{db: db}
}

func (r *batchRepository) Create(ctx context.Context, batch *model.Batch) error {
	return GetDB(ctx, r.db).Omit("Medicine").Create(batch).Error
}

func (r *batchRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Batch, error) {
	var batch model.Batch
	if err := GetDB(ctx, r.db).First(&batch, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &batch, nil
}

func (r *batchRepository) Decrement(ctx context.Context, id uuid.UUID, amount int) (bool, error) {
	res := GetDB(ctx, r.db).Model(&model.Batch{}).
		Where("id = ? AND quantity >= ?", id, amount).
		UpdateColumns(map[string]interface{}{
			"quantity":   gorm.Expr("quantity - ?", amount),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *batchRepository) SumQuantity(ctx context.Context, medicineID uuid.UUID) (int64, error) {
	var total int64
	if err := GetDB(ctx, r.db).Model(&model.Batch{}).
		Select("COALESCE(SUM(quantity), 0)").
		Where("medicine_id = ?", medicineID).
		Scan(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (r *batchRepository) ListByMedicine(ctx context.Context, medicineID uuid.UUID) ([]model.Batch, error) {
	var batches []model.Batch
	if err := GetDB(ctx, r.db).
		Where("medicine_id = ?", medicineID).
		Order("expiry_date ASC, batch_number ASC").
		Find(&batches).Error; err != nil {
		return nil, err
	}
	return batches, nil
}

func (r *batchRepository) LinkOrder(ctx context.Context, orderID uuid.UUID, batchIDs []uuid.UUID) (int64, error) {
	if len(batchIDs) == 0 {
		return 0, nil
	}
	res := GetDB(ctx, r.db).Model(&model.Batch{}).
		Where("id IN ? AND order_id IS NULL", batchIDs).
		UpdateColumns(map[string]interface{}{
			"order_id":   orderID,
			"updated_at": time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}
