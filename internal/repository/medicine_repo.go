package repository

import (
	"context"
	"strings"
	"time"

	"pharmacy/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MedicineQuery narrows a catalog listing. Zero values mean no constraint.
type MedicineQuery struct {
	Name         string
	Category     string
	ExpiryBefore *time.Time
}

type MedicineRepository interface {
	Create(ctx context.Context, medicine *model.Medicine) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Medicine, error)
	FindByIDWithBatches(ctx context.Context, id uuid.UUID) (*model.Medicine, error)
	List(ctx context.Context, query MedicineQuery) ([]model.Medicine, error)
}

type medicineRepository struct {
	db *gorm.DB
}

func NewMedicineRepository(db *gorm.DB) MedicineRepository {
	return &medicineRepository{db: db}
}

func (r *medicineRepository) Create(ctx context.Context, medicine *model.Medicine) error {
	return GetDB(ctx, r.db).Omit("Batches").Create(medicine).Error
}

func (r *medicineRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Medicine, error) {
	var medicine model.Medicine
	if err := GetDB(ctx, r.db).First(&medicine, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &medicine, nil
}

func (r *medicineRepository) FindByIDWithBatches(ctx context.Context, id uuid.UUID) (*model.Medicine, error) {
	var medicine model.Medicine
	if err := GetDB(ctx, r.db).
		Preload("Batches", func(db *gorm.DB) *gorm.DB {
			return db.Order("expiry_date ASC, batch_number ASC")
		}).
		First(&medicine, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &medicine, nil
}

// List returns medicines sorted by name with their batches preloaded in expiry order.
func (r *medicineRepository) List(ctx context.Context, query MedicineQuery) ([]model.Medicine, error) {
	var medicines []model.Medicine

	db := GetDB(ctx, r.db).Model(&model.Medicine{})
	if query.Name != "" {
		db = db.Where("LOWER(medicines.name) LIKE ?", "%"+strings.ToLower(query.Name)+"%")
	}
	if query.Category != "" {
		db = db.Where("LOWER(medicines.category) LIKE ?", "%"+strings.ToLower(query.Category)+"%")
	}
	if query.ExpiryBefore != nil {
		db = db.Where(
			"(EXISTS (SELECT 1 FROM batches WHERE batches.medicine_id = medicines.id AND batches.expiry_date <= ?) OR (medicines.expiry_date IS NOT NULL AND medicines.expiry_date <= ?))",
			*query.ExpiryBefore, *query.ExpiryBefore,
		)
	}

	if err := db.
		Preload("Batches", func(db *gorm.DB) *gorm.DB {
			return db.Order("expiry_date ASC, batch_number ASC")
		}).
		Order("medicines.name ASC").
		Find(&medicines).Error; err != nil {
		return nil, err
	}
	return medicines, nil
}
