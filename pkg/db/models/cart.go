package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Cart is the single persisted cart owned by a user.
type Cart struct {
	ID             uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	UserID         uuid.UUID  `gorm:"column:user_id;type:uuid;not null;uniqueIndex:carts_user_id_key"`
	LastModifiedAt time.Time  `gorm:"column:last_modified_at;not null"`
	Items          []CartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *Cart) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.LastModifiedAt.IsZero() {
		c.LastModifiedAt = time.Now().UTC()
	}
	return nil
}

// CartItem is one line of a cart. Position preserves client ordering.
type CartItem struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	CartID    uuid.UUID       `gorm:"column:cart_id;type:uuid;not null;index"`
	Position  int             `gorm:"column:position;not null"`
	ProductID *string         `gorm:"column:product_id"`
	Title     string          `gorm:"column:title;not null"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	ImageSrc  string          `gorm:"column:image_src;not null;default:''"`
	Size      string          `gorm:"column:size;not null;default:''"`
	Length    string          `gorm:"column:length;not null;default:''"`
	Color     string          `gorm:"column:color;not null;default:''"`
	Quantity  int             `gorm:"column:quantity;not null"`
}

func (i *CartItem) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
