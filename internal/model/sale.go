package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Sale is a single dispensing transaction.
type Sale struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	UserID        string          `gorm:"type:varchar(128);not null;index" json:"user_id"`
	User          *User           `gorm:"foreignKey:UserID" json:"user,omitempty"`
	TotalAmount   decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total_amount"`
	Discount      decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"discount"`
	PaymentMethod string          `gorm:"type:varchar(50)" json:"payment_method,omitempty"`
	Items         []SaleItem      `gorm:"foreignKey:SaleID" json:"items,omitempty"`
	CreatedAt     time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (s *Sale) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// SaleItem is one line of a sale. Name and prices are snapshots taken at sale time.
type SaleItem struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	SaleID         uuid.UUID       `gorm:"type:uuid;not null;index" json:"sale_id"`
	Sale           *Sale           `gorm:"foreignKey:SaleID" json:"sale,omitempty"`
	BatchID        uuid.UUID       `gorm:"type:uuid;not null;index" json:"batch_id"`
	Batch          *Batch          `gorm:"foreignKey:BatchID" json:"batch,omitempty"`
	MedicineID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"medicine_id"`
	Medicine       *Medicine       `gorm:"foreignKey:MedicineID" json:"medicine,omitempty"`
	MedicineName   string          `gorm:"type:varchar(255);not null" json:"medicine_name"`
	Quantity       int             `gorm:"type:int;not null;check:quantity > 0" json:"quantity"`
	UnitPrice      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	TotalPrice     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total_price"`
	PrescriptionID *uuid.UUID      `gorm:"type:uuid;index" json:"prescription_id"`
	Prescription   *Prescription   `gorm:"foreignKey:PrescriptionID" json:"prescription,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

func (i *SaleItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// Prescription records the patient a sale was dispensed to.
type Prescription struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	PatientName string     `gorm:"type:varchar(255);not null" json:"patient_name"`
	DoctorName  string     `gorm:"type:varchar(255)" json:"doctor_name"`
	Notes       string     `gorm:"type:text" json:"notes,omitempty"`
	UserID      string     `gorm:"type:varchar(128);index" json:"user_id"`
	SaleItems   []SaleItem `gorm:"foreignKey:PrescriptionID" json:"sale_items,omitempty"`
	CreatedAt   time.Time  `gorm:"index" json:"created_at"`
}

func (p *Prescription) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
