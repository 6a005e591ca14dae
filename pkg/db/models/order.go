package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// Order is the customer-facing record of a placed purchase. Only the status
// and approval columns change after creation.
type Order struct {
	ID              uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	UserID          uuid.UUID             `gorm:"column:user_id;type:uuid;not null;index"`
	OrderNumber     string                `gorm:"column:order_number;not null;uniqueIndex:orders_order_number_key"`
	Items           []OrderItem           `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	TotalAmount     decimal.Decimal       `gorm:"column:total_amount;type:numeric(12,2);not null"`
	Status          enums.OrderStatus     `gorm:"column:status;type:text;not null"`
	ApprovalStatus  enums.ApprovalStatus  `gorm:"column:approval_status;type:text;not null"`
	ApprovalDate    *time.Time            `gorm:"column:approval_date"`
	ApprovedBy      *uuid.UUID            `gorm:"column:approved_by;type:uuid"`
	RejectionReason *string               `gorm:"column:rejection_reason"`
	ShippingAddress types.ShippingAddress `gorm:"column:shipping_address;type:jsonb;serializer:json;not null"`
	CreatedAt       time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}
	return nil
}

// OrderItem is a frozen copy of a cart line at placement time.
type OrderItem struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderID   uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	Position  int             `gorm:"column:position;not null"`
	ProductID *string         `gorm:"column:product_id"`
	Title     string          `gorm:"column:title;not null"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	ImageSrc  string          `gorm:"column:image_src;not null"`
	Size      string          `gorm:"column:size;not null"`
	Length    string          `gorm:"column:length;not null;default:''"`
	Color     string          `gorm:"column:color;not null"`
	Quantity  int             `gorm:"column:quantity;not null"`
	LineTotal decimal.Decimal `gorm:"column:line_total;type:numeric(12,2);not null"`
}

func (i *OrderItem) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// Snapshot converts the persisted line back to its jsonb snapshot form.
func (i OrderItem) Snapshot() types.LineItemSnapshot {
	return types.LineItemSnapshot{
		ProductID: i.ProductID,
		Title:     i.Title,
		Price:     i.UnitPrice,
		ImageSrc:  i.ImageSrc,
		Size:      i.Size,
		Length:    i.Length,
		Color:     i.Color,
		Quantity:  i.Quantity,
	}
}
