package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// User is the profile record read at placement time. Accounts are managed by
// the external auth service; this service only reads them.
type User struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Email     string    `gorm:"column:email;type:text;not null;uniqueIndex"`
	Name      string    `gorm:"column:name;type:text;not null;default:''"`
	Phone     *string   `gorm:"column:phone"`
	Address   *string   `gorm:"column:address"`
	Role      string    `gorm:"column:role;type:text;not null;default:'customer'"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// ShippingSnapshot copies the contact fields used for fulfillment.
func (u User) ShippingSnapshot() types.ShippingAddress {
	snap := types.ShippingAddress{Name: u.Name, Email: u.Email}
	if u.Phone != nil {
		snap.Phone = *u.Phone
	}
	if u.Address != nil {
		snap.Address = *u.Address
	}
	return snap
}
