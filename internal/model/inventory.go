package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Medicine is a catalog entry. Stock is held by its batches.
type Medicine struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Name         string          `gorm:"type:varchar(255);not null;index" json:"name"`
	GenericName  string          `gorm:"type:varchar(255)" json:"generic_name,omitempty"`
	Category     string          `gorm:"type:varchar(100);index" json:"category,omitempty"`
	Description  string          `gorm:"type:text" json:"description,omitempty"`
	SellingPrice decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"selling_price"`
	ExpiryDate   *time.Time      `json:"expiry_date,omitempty"` // informational, batches carry the real expiry
	ReorderLevel int             `gorm:"type:int;not null;default:0" json:"reorder_level"`
	Batches      []Batch         `gorm:"foreignKey:MedicineID" json:"batches,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

func (m *Medicine) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// Batch is a dated, priced quantity of one medicine. Quantity only moves through
// creation and the conditional decrement in the batch ledger.
type Batch struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	BatchNumber int64           `gorm:"not null;uniqueIndex" json:"batch_number"`
	MedicineID  uuid.UUID       `gorm:"type:uuid;not null;index" json:"medicine_id"`
	Medicine    *Medicine       `gorm:"foreignKey:MedicineID" json:"medicine,omitempty"`
	OrderID     *uuid.UUID      `gorm:"type:uuid;index" json:"order_id"` // nil until linked by order intake
	UserID      string          `gorm:"type:varchar(128);index" json:"user_id"`
	Quantity    int             `gorm:"type:int;not null;check:quantity >= 0" json:"quantity"`
	CostPrice   decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"cost_price"`
	ExpiryDate  time.Time       `gorm:"not null;index" json:"expiry_date"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (b *Batch) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// Order is a supplier shipment grouping the batches received together.
type Order struct {
	ID          uuid.UUID           `gorm:"type:uuid;primaryKey" json:"id"`
	OrderNumber int64               `gorm:"not null;uniqueIndex" json:"order_number"`
	Supplier    string              `gorm:"type:varchar(255)" json:"supplier,omitempty"`
	TotalCost   decimal.NullDecimal `gorm:"type:decimal(12,2)" json:"total_cost"`
	UserID      string              `gorm:"type:varchar(128);index" json:"user_id"`
	Batches     []Batch             `gorm:"foreignKey:OrderID" json:"batches,omitempty"`
	CreatedAt   time.Time           `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
