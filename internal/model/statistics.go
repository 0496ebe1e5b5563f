package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DashboardSummary aggregates sales rankings and pricing for the dashboard
type DashboardSummary struct {
	MostSold      []MedicineRanking `json:"most_sold"`
	LeastSold     []MedicineRanking `json:"least_sold"`
	MostExpensive []MedicineRanking `json:"most_expensive"`
	GeneratedAt   time.Time         `json:"generated_at"`
}

// MedicineRanking represents a ranked medicine based on accumulated sold quantities or price
type MedicineRanking struct {
	MedicineID    uuid.UUID       `json:"medicine_id"`
	MedicineName  string          `json:"medicine_name"`
	Category      string          `json:"category,omitempty"`
	TotalQuantity int64           `json:"total_quantity"`
	SellingPrice  decimal.Decimal `json:"selling_price"`
}
