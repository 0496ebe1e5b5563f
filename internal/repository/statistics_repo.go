package repository

import (
	"context"
	"fmt"

	"pharmacy/internal/model"

	"gorm.io/gorm"
)

type DashboardRepository interface {
	// TopSold ranks medicines by total quantity sold. ascending=true yields the least sold.
	TopSold(ctx context.Context, limit int, ascending bool) ([]model.MedicineRanking, error)
	MostExpensive(ctx context.Context, limit int) ([]model.MedicineRanking, error)
}

type dashboardRepository struct {
	db *gorm.DB
}

func NewDashboardRepository(db *gorm.DB) DashboardRepository {
	return &dashboardRepository{db: db}
}

func (r *dashboardRepository) TopSold(ctx context.Context, limit int, ascending bool) ([]model.MedicineRanking, error) {
	direction := "DESC"
	if ascending {
		direction = "ASC"
	}

	var rankings []model.MedicineRanking
	if err := GetDB(ctx, r.db).Table("sale_items").
		Select("medicines.id as medicine_id, medicines.name as medicine_name, medicines.category as category, medicines.selling_price as selling_price, SUM(sale_items.quantity) as total_quantity").
		Joins("JOIN medicines ON medicines.id = sale_items.medicine_id").
		Group("medicines.id, medicines.name, medicines.category, medicines.selling_price").
		Order("total_quantity " + direction + ", medicines.name ASC").
		Limit(limit).
		Scan(&rankings).Error; err != nil {
		return nil, fmt.Errorf("failed to query sold rankings: %w", err)
	}
	return rankings, nil
}

func (r *dashboardRepository) MostExpensive(ctx context.Context, limit int) ([]model.MedicineRanking, error) {
	var rankings []model.MedicineRanking
	if err := GetDB(ctx, r.db).Table("medicines").
		Select("medicines.id as medicine_id, medicines.name as medicine_name, medicines.category as category, medicines.selling_price as selling_price, COALESCE((SELECT SUM(sale_items.quantity) FROM sale_items WHERE sale_items.medicine_id = medicines.id), 0) as total_quantity").
		Order("medicines.selling_price DESC, medicines.name ASC").
		Limit(limit).
		Scan(&rankings).Error; err != nil {
		return nil, fmt.Errorf("failed to query price rankings: %w", err)
	}
	return rankings, nil
}
