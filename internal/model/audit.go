package model

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Record tables referenced by activity entries.
const (
	TableMedicine = "Medicine"
	TableOrder    = "Order"
	TableSale     = "Sale"
)

var ErrActivityLogImmutable = errors.New("activity log entries are append-only")

// ActivityLog is the append-only audit trail of inventory mutations.
type ActivityLog struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      string    `gorm:"type:varchar(128);index" json:"user_id"`
	User        *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Action      string    `gorm:"type:text;not null" json:"action"`
	RecordTable string    `gorm:"column:table_name;type:varchar(50);not null;index" json:"table_name"`
	RecordID    string    `gorm:"type:varchar(64);index" json:"record_id"`
	Details     string    `gorm:"type:jsonb" json:"details"` // serialized JSON payload of the action
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
}

func (a *ActivityLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.Details == "" {
		a.Details = "{}"
	}
	return nil
}

func (a *ActivityLog) BeforeUpdate(tx *gorm.DB) error {
	return ErrActivityLogImmutable
}

func (a *ActivityLog) BeforeDelete(tx *gorm.DB) error {
	return ErrActivityLogImmutable
}
