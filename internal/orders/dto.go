package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// Actor is the authenticated caller performing an operation.
type Actor struct {
	UserID uuid.UUID
	Role   enums.Role
}

func (a Actor) IsAdmin() bool {
	return a.Role == enums.RoleAdmin
}

// PlaceOrderInput is the checkout payload. An empty item list places the
// stored cart.
type PlaceOrderInput struct {
	Items       []cart.ItemInput `json:"items"`
	TotalAmount *decimal.Decimal `json:"totalAmount,omitempty"`
}

// PlaceOrderResult pairs the created order with its approval request.
type PlaceOrderResult struct {
	Order     *OrderDTO `json:"order"`
	RequestID uuid.UUID `json:"requestId"`
}

// DecisionUpdate carries the columns written by an approval decision.
type DecisionUpdate struct {
	RequestStatus  enums.RequestStatus
	OrderStatus    enums.OrderStatus
	ApprovalStatus enums.ApprovalStatus
	DecidedAt      time.Time
	DecidedBy      uuid.UUID
	Reason         *string
	Notes          *string
}

// OrderFilter narrows order listings.
type OrderFilter struct {
	Status *enums.OrderStatus
	UserID *uuid.UUID
}

// RequestFilter narrows request listings.
type RequestFilter struct {
	Status *enums.RequestStatus
	UserID *uuid.UUID
}

type OrderItemDTO struct {
	ProductID *string         `json:"productId"`
	Title     string          `json:"title"`
	Price     decimal.Decimal `json:"price"`
	ImageSrc  string          `json:"imageSrc"`
	Size      string          `json:"size"`
	Length    string          `json:"length"`
	Color     string          `json:"color"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"lineTotal"`
}

type OrderDTO struct {
	ID              uuid.UUID             `json:"id"`
	UserID          uuid.UUID             `json:"userId"`
	OrderNumber     string                `json:"orderNumber"`
	Items           []OrderItemDTO        `json:"items"`
	TotalAmount     decimal.Decimal       `json:"totalAmount"`
	Status          enums.OrderStatus     `json:"status"`
	ApprovalStatus  enums.ApprovalStatus  `json:"approvalStatus"`
	ApprovalDate    *time.Time            `json:"approvalDate,omitempty"`
	ApprovedBy      *uuid.UUID            `json:"approvedBy,omitempty"`
	RejectionReason *string               `json:"rejectionReason,omitempty"`
	ShippingAddress types.ShippingAddress `json:"shippingAddress"`
	CreatedAt       time.Time             `json:"createdAt"`
	UpdatedAt       time.Time             `json:"updatedAt"`
}

type RequestDTO struct {
	ID              uuid.UUID                `json:"id"`
	UserID          uuid.UUID                `json:"userId"`
	UserEmail       string                   `json:"userEmail"`
	Items           []types.LineItemSnapshot `json:"items"`
	Total           decimal.Decimal          `json:"total"`
	OrderID         uuid.UUID                `json:"orderId"`
	Status          enums.RequestStatus      `json:"status"`
	ApprovalDate    *time.Time               `json:"approvalDate,omitempty"`
	ApprovedBy      *uuid.UUID               `json:"approvedBy,omitempty"`
	RejectionReason *string                  `json:"rejectionReason,omitempty"`
	Notes           *string                  `json:"notes,omitempty"`
	Date            time.Time                `json:"date"`
}

type OrderList = pagination.Page[OrderDTO]

type RequestList = pagination.Page[RequestDTO]

func OrderFromModel(order *models.Order) *OrderDTO {
	if order == nil {
		return nil
	}
	dto := &OrderDTO{
		ID:              order.ID,
		UserID:          order.UserID,
		OrderNumber:     order.OrderNumber,
		Items:           make([]OrderItemDTO, 0, len(order.Items)),
		TotalAmount:     order.TotalAmount,
		Status:          order.Status,
		ApprovalStatus:  order.ApprovalStatus,
		ApprovalDate:    order.ApprovalDate,
		ApprovedBy:      order.ApprovedBy,
		RejectionReason: order.RejectionReason,
		ShippingAddress: order.ShippingAddress,
		CreatedAt:       order.CreatedAt,
		UpdatedAt:       order.UpdatedAt,
	}
	for _, item := range order.Items {
		dto.Items = append(dto.Items, OrderItemDTO{
			ProductID: item.ProductID,
			Title:     item.Title,
			Price:     item.UnitPrice,
			ImageSrc:  item.ImageSrc,
			Size:      item.Size,
			Length:    item.Length,
			Color:     item.Color,
			Quantity:  item.Quantity,
			LineTotal: item.LineTotal,
		})
	}
	return dto
}

func RequestFromModel(req *models.Request) *RequestDTO {
	if req == nil {
		return nil
	}
	items := []types.LineItemSnapshot(req.Items)
	if items == nil {
		items = []types.LineItemSnapshot{}
	}
	return &RequestDTO{
		ID:              req.ID,
		UserID:          req.UserID,
		UserEmail:       req.UserEmail,
		Items:           items,
		Total:           req.Total,
		OrderID:         req.OrderID,
		Status:          req.Status,
		ApprovalDate:    req.ApprovalDate,
		ApprovedBy:      req.ApprovedBy,
		RejectionReason: req.RejectionReason,
		Notes:           req.Notes,
		Date:            req.Date,
	}
}

func orderItemsFromSnapshots(lines types.LineItemSnapshots) []models.OrderItem {
	items := make([]models.OrderItem, 0, len(lines))
	for i, line := range lines {
		items = append(items, models.OrderItem{
			Position:  i,
			ProductID: line.ProductID,
			Title:     line.Title,
			UnitPrice: line.Price,
			ImageSrc:  line.ImageSrc,
			Size:      line.Size,
			Length:    line.Length,
			Color:     line.Color,
			Quantity:  line.Quantity,
			LineTotal: line.LineTotal(),
		})
	}
	return items
}

func snapshotsFromOrder(order *models.Order) types.LineItemSnapshots {
	lines := make(types.LineItemSnapshots, 0, len(order.Items))
	for _, item := range order.Items {
		lines = append(lines, item.Snapshot())
	}
	return lines
}
