package model

import (
	"strings"
	"time"
)

// Roles issued by the identity provider.
const (
	RoleAdmin      = "ADMIN"
	RolePharmacist = "PHARMACIST"
	RoleCashier    = "CASHIER"
	RoleAccountant = "ACCOUNTANT"
)

// User mirrors the identity provider's view of an acting user so reports can show names.
// Rows are upserted from token claims; this service never manages credentials.
type User struct {
	ID        string    `gorm:"type:varchar(128);primaryKey" json:"id"`
	FirstName string    `gorm:"type:varchar(100)" json:"first_name"`
	LastName  string    `gorm:"type:varchar(100)" json:"last_name"`
	Email     string    `gorm:"type:varchar(255);index" json:"email"`
	Role      string    `gorm:"type:varchar(50)" json:"role"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// DisplayName is "first last", falling back to the id.
func (u User) DisplayName() string {
	name := strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
	if name == "" {
		return u.ID
	}
	return name
}
