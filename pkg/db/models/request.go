package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// Request is the admin approval ticket mirroring exactly one Order.
type Request struct {
	ID              uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	UserID          uuid.UUID               `gorm:"column:user_id;type:uuid;not null;index"`
	UserEmail       string                  `gorm:"column:user_email;not null"`
	Items           types.LineItemSnapshots `gorm:"column:items;type:jsonb;serializer:json;not null"`
	Total           decimal.Decimal         `gorm:"column:total;type:numeric(12,2);not null"`
	OrderID         uuid.UUID               `gorm:"column:order_id;type:uuid;not null;uniqueIndex:requests_order_id_key"`
	Status          enums.RequestStatus     `gorm:"column:status;type:text;not null;index"`
	ApprovalDate    *time.Time              `gorm:"column:approval_date"`
	ApprovedBy      *uuid.UUID              `gorm:"column:approved_by;type:uuid"`
	RejectionReason *string                 `gorm:"column:rejection_reason"`
	Notes           *string                 `gorm:"column:notes"`
	Date            time.Time               `gorm:"column:date;not null"`
	CreatedAt       time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

func (r *Request) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	now := time.Now().UTC()
	if r.Date.IsZero() {
		r.Date = now
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	return nil
}
