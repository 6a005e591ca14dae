package cart

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// ItemInput is a cart line as sent by clients.
type ItemInput struct {
	ProductID *string         `json:"productId"`
	Title     string          `json:"title" validate:"required"`
	Price     decimal.Decimal `json:"price"`
	ImageSrc  string          `json:"imageSrc"`
	Size      string          `json:"size"`
	Length    string          `json:"length"`
	Color     string          `json:"color"`
	Quantity  int             `json:"quantity"`
}

// Key returns the identity key of the input line.
func (i ItemInput) Key() ItemKey {
	return NewItemKey(i.ProductID, i.Size, i.Length, i.Color)
}

// Snapshot converts the input into the frozen order line shape.
func (i ItemInput) Snapshot() types.LineItemSnapshot {
	return types.LineItemSnapshot{
		ProductID: normalizeProductID(i.ProductID),
		Title:     i.Title,
		Price:     i.Price,
		ImageSrc:  i.ImageSrc,
		Size:      i.Size,
		Length:    i.Length,
		Color:     i.Color,
		Quantity:  i.Quantity,
	}
}

// ItemDTO is a stored cart line.
type ItemDTO struct {
	ProductID *string         `json:"productId"`
	Title     string          `json:"title"`
	Price     decimal.Decimal `json:"price"`
	ImageSrc  string          `json:"imageSrc"`
	Size      string          `json:"size"`
	Length    string          `json:"length"`
	Color     string          `json:"color"`
	Quantity  int             `json:"quantity"`
}

// Input converts the stored line back into input form.
func (i ItemDTO) Input() ItemInput {
	return ItemInput(i)
}

// CartDTO is the API view of a cart. A user without a cart gets an empty one.
type CartDTO struct {
	UserID         uuid.UUID       `json:"userId"`
	Items          []ItemDTO       `json:"items"`
	ItemCount      int             `json:"itemCount"`
	TotalAmount    decimal.Decimal `json:"totalAmount"`
	LastModifiedAt *time.Time      `json:"lastModifiedAt"`
}

func emptyCart(userID uuid.UUID) *CartDTO {
	return &CartDTO{UserID: userID, Items: []ItemDTO{}, TotalAmount: decimal.Zero}
}

// FromModel maps a persisted cart to its DTO.
func FromModel(cart *models.Cart) *CartDTO {
	if cart == nil {
		return nil
	}
	dto := emptyCart(cart.UserID)
	for _, item := range cart.Items {
		dto.Items = append(dto.Items, ItemDTO{
			ProductID: item.ProductID,
			Title:     item.Title,
			Price:     item.UnitPrice,
			ImageSrc:  item.ImageSrc,
			Size:      item.Size,
			Length:    item.Length,
			Color:     item.Color,
			Quantity:  item.Quantity,
		})
		dto.ItemCount += item.Quantity
		dto.TotalAmount = dto.TotalAmount.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	lastModified := cart.LastModifiedAt
	dto.LastModifiedAt = &lastModified
	return dto
}
