package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// OrderPlacedEvent is emitted when a cart becomes an order awaiting approval.
type OrderPlacedEvent struct {
	OrderID     uuid.UUID       `json:"order_id"`
	RequestID   uuid.UUID       `json:"request_id"`
	UserID      uuid.UUID       `json:"user_id"`
	OrderNumber string          `json:"order_number"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	ItemCount   int             `json:"item_count"`
}

// OrderDecisionEvent is emitted for approve/reject/cancel decisions.
type OrderDecisionEvent struct {
	OrderID        uuid.UUID            `json:"order_id"`
	RequestID      uuid.UUID            `json:"request_id"`
	UserID         uuid.UUID            `json:"user_id"`
	RequestStatus  enums.RequestStatus  `json:"request_status"`
	OrderStatus    enums.OrderStatus    `json:"order_status"`
	ApprovalStatus enums.ApprovalStatus `json:"approval_status"`
	Reason         string               `json:"reason,omitempty"`
	DecidedAt      time.Time            `json:"decided_at"`
}

// OrderStatusChangedEvent tracks fulfillment progression after approval.
type OrderStatusChangedEvent struct {
	OrderID    uuid.UUID         `json:"order_id"`
	UserID     uuid.UUID         `json:"user_id"`
	FromStatus enums.OrderStatus `json:"from_status"`
	ToStatus   enums.OrderStatus `json:"to_status"`
	ChangedAt  time.Time         `json:"changed_at"`
}

// RequestReconciledEvent records a Request recreated for an orphaned order.
type RequestReconciledEvent struct {
	OrderID   uuid.UUID `json:"order_id"`
	RequestID uuid.UUID `json:"request_id"`
}
