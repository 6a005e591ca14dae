package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// Repository defines persistence operations for the orders and requests tables.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.Order) error
	CreateRequest(ctx context.Context, request *models.Request) error
	FindOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindRequestByID(ctx context.Context, id uuid.UUID) (*models.Request, error)
	FindRequestByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Request, error)
	UpdateRequestDecision(ctx context.Context, id uuid.UUID, update DecisionUpdate) (bool, error)
	UpdateOrderApproval(ctx context.Context, orderID uuid.UUID, update DecisionUpdate) (bool, error)
	UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, from, to enums.OrderStatus) (bool, error)
	ListOrders(ctx context.Context, filter OrderFilter, cursor *pagination.Cursor, limit int) ([]models.Order, *pagination.Cursor, error)
	ListRequests(ctx context.Context, filter RequestFilter, cursor *pagination.Cursor, limit int) ([]models.Request, *pagination.Cursor, error)
	FindOrdersMissingRequest(ctx context.Context, createdBefore time.Time, limit int) ([]models.Order, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// UserReader loads the profile used for the shipping snapshot.
type UserReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// CartStore is the slice of the cart service the placer needs.
type CartStore interface {
	Get(ctx context.Context, userID uuid.UUID) (*cart.CartDTO, error)
	Clear(ctx context.Context, userID uuid.UUID) error
}

// OrderNumberSource hands out unique order numbers.
type OrderNumberSource interface {
	NextOrderNumber(ctx context.Context) (string, error)
}
