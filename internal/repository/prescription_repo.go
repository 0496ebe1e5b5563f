package repository

import (
	"context"

	"pharmacy/internal/model"

	"gorm.io/gorm"
)

type PrescriptionRepository interface {
	Create(ctx context.Context, prescription *model.Prescription) error
	List(ctx context.Context, page, limit int) ([]model.Prescription, int64, error)
}

type prescriptionRepository struct {
	db *gorm.DB
}

func NewPrescriptionRepository(db *gorm.DB) PrescriptionRepository {
	return &prescriptionRepository{db: db}
}

func (r *prescriptionRepository) Create(ctx context.Context, prescription *model.Prescription) error {
	return GetDB(ctx, r.db).Omit("SaleItems").Create(prescription).Error
}

func (r *prescriptionRepository) List(ctx context.Context, page, limit int) ([]model.Prescription, int64, error) {
	var prescriptions []model.Prescription
	var total int64

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.Prescription{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.
		Preload("SaleItems").
		Preload("SaleItems.Medicine").
		Preload("SaleItems.Sale").
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&prescriptions).Error; err != nil {
		return nil, 0, err
	}

	return prescriptions, total, nil
}
