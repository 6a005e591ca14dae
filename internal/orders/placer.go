package orders

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// TotalTolerance is the largest accepted difference between the client's
// total hint and the computed total.
var TotalTolerance = decimal.NewFromFloat(0.01)

// PlacerDeps bundles the collaborators of the order placer.
type PlacerDeps struct {
	Repo           Repository
	Tx             txRunner
	Users          UserReader
	Carts          CartStore
	Numbers        OrderNumberSource
	Outbox         outbox.Emitter
	Metrics        *metrics.OrderMetrics
	Logger         *logger.Logger
	MismatchPolicy string
}

// Placer converts a cart into an order plus its approval request.
type Placer struct {
	repo    Repository
	tx      txRunner
	users   UserReader
	carts   CartStore
	numbers OrderNumberSource
	outbox  outbox.Emitter
	metrics *metrics.OrderMetrics
	logg    *logger.Logger
	policy  string
	now     func() time.Time
}

func NewPlacer(deps PlacerDeps) (*Placer, error) {
	switch {
	case deps.Repo == nil:
		return nil, fmt.Errorf("orders repository required")
	case deps.Tx == nil:
		return nil, fmt.Errorf("transaction runner required")
	case deps.Users == nil:
		return nil, fmt.Errorf("user reader required")
	case deps.Carts == nil:
		return nil, fmt.Errorf("cart store required")
	case deps.Numbers == nil:
		return nil, fmt.Errorf("order number source required")
	case deps.Outbox == nil:
		return nil, fmt.Errorf("outbox emitter required")
	}
	policy := strings.ToLower(strings.TrimSpace(deps.MismatchPolicy))
	if policy == "" {
		policy = config.TotalMismatchReject
	}
	if policy != config.TotalMismatchReject && policy != config.TotalMismatchLog {
		return nil, fmt.Errorf("unknown total mismatch policy %q", deps.MismatchPolicy)
	}
	logg := deps.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &Placer{
		repo:    deps.Repo,
		tx:      deps.Tx,
		users:   deps.Users,
		carts:   deps.Carts,
		numbers: deps.Numbers,
		outbox:  deps.Outbox,
		metrics: deps.Metrics,
		logg:    logg,
		policy:  policy,
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

// Place validates the items, snapshots the user's shipping profile and writes
// the order and its pending request in one transaction. The cart is cleared
// after commit.
func (p *Placer) Place(ctx context.Context, userID uuid.UUID, input PlaceOrderInput) (*PlaceOrderResult, error) {
	result, err := p.place(ctx, userID, input)
	if err != nil {
		p.metrics.IncPlaceFailure(string(pkgerrors.CodeOf(err)))
		return nil, err
	}
	p.metrics.IncPlaced()
	return result, nil
}

func (p *Placer) place(ctx context.Context, userID uuid.UUID, input PlaceOrderInput) (*PlaceOrderResult, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	ctx = p.logg.WithUserID(ctx, userID.String())

	items := input.Items
	if len(items) == 0 {
		stored, err := p.carts.Get(ctx, userID)
		if err != nil {
			return nil, err
		}
		for _, item := range stored.Items {
			items = append(items, item.Input())
		}
	}
	lines, err := validatePlaceItems(items)
	if err != nil {
		return nil, err
	}

	user, err := p.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "load user")
	}
	shipping := user.ShippingSnapshot()
	if missing := shipping.MissingFields(); len(missing) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeIncompleteProfile, "profile is missing shipping details").
			WithDetails(map[string]any{"missing_fields": missing})
	}

	total, err := p.resolveTotal(ctx, lines.Total(), input.TotalAmount)
	if err != nil {
		return nil, err
	}

	orderNumber, err := p.numbers.NextOrderNumber(ctx)
	if err != nil {
		p.metrics.IncSequenceFailure()
		return nil, err
	}

	order := &models.Order{
		UserID:          userID,
		OrderNumber:     orderNumber,
		Items:           orderItemsFromSnapshots(lines),
		TotalAmount:     total,
		Status:          enums.OrderStatusAwaitingApproval,
		ApprovalStatus:  enums.ApprovalStatusPending,
		ShippingAddress: shipping,
		CreatedAt:       p.now(),
	}
	request := &models.Request{
		UserID:    userID,
		UserEmail: user.Email,
		Items:     lines,
		Total:     total,
		Status:    enums.RequestStatusPending,
		Date:      order.CreatedAt,
		CreatedAt: order.CreatedAt,
	}

	err = p.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := p.repo.WithTx(tx)
		if err := repo.CreateOrder(ctx, order); err != nil {
			if db.IsUniqueViolation(err, "orders_order_number_key") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "order number already issued")
			}
			return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "create order")
		}
		request.OrderID = order.ID
		if err := repo.CreateRequest(ctx, request); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "create approval request")
		}
		event := outbox.DomainEvent{
			EventType:     enums.EventOrderPlaced,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: userID, Role: string(enums.RoleCustomer)},
			OccurredAt:    order.CreatedAt,
			Data: payloads.OrderPlacedEvent{
				OrderID:     order.ID,
				RequestID:   request.ID,
				UserID:      userID,
				OrderNumber: orderNumber,
				TotalAmount: total,
				ItemCount:   len(lines),
			},
		}
		if err := p.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "emit order placed event")
		}
		return nil
	})
	if err != nil {
		p.logg.Error(p.logg.WithField(ctx, "order_number", orderNumber), "orders.place_failed", err)
		return nil, err
	}

	ctx = p.logg.WithFields(ctx, map[string]any{
		"order_id":     order.ID.String(),
		"order_number": orderNumber,
		"request_id":   request.ID.String(),
	})
	if err := p.carts.Clear(ctx, userID); err != nil {
		p.metrics.IncCartClearFailure()
		p.logg.Error(p.logg.WithField(ctx, "reconciliation_candidate", true), "orders.cart_clear_failed", err)
	}
	p.logg.Info(ctx, "orders.placed")

	return &PlaceOrderResult{Order: OrderFromModel(order), RequestID: request.ID}, nil
}

// resolveTotal compares the client hint with the computed total. Under the
// log policy a mismatched hint is persisted as sent.
func (p *Placer) resolveTotal(ctx context.Context, computed decimal.Decimal, hint *decimal.Decimal) (decimal.Decimal, error) {
	if hint == nil {
		return computed, nil
	}
	if hint.Sub(computed).Abs().LessThanOrEqual(TotalTolerance) {
		return computed, nil
	}
	details := map[string]any{
		"expected": computed.StringFixed(2),
		"provided": hint.StringFixed(2),
	}
	if p.policy == config.TotalMismatchLog {
		p.logg.Warn(p.logg.WithFields(ctx, details), "orders.total_mismatch")
		return *hint, nil
	}
	return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "totalAmount does not match items").
		WithDetails(map[string]any{"totalAmount": details})
}

type placeLine struct {
	Title    string `json:"title" validate:"required"`
	ImageSrc string `json:"imageSrc" validate:"required"`
	Size     string `json:"size" validate:"required"`
	Color    string `json:"color" validate:"required"`
	Quantity int    `json:"quantity" validate:"gte=1"`
}

var lineValidator = newLineValidator()

func newLineValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	})
	return v
}

func validatePlaceItems(items []cart.ItemInput) (types.LineItemSnapshots, error) {
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order must contain at least one item").
			WithDetails(map[string]any{"items": "is required"})
	}
	details := map[string]string{}
	lines := make(types.LineItemSnapshots, 0, len(items))
	for i, item := range items {
		line := placeLine{
			Title:    strings.TrimSpace(item.Title),
			ImageSrc: strings.TrimSpace(item.ImageSrc),
			Size:     strings.TrimSpace(item.Size),
			Color:    strings.TrimSpace(item.Color),
			Quantity: item.Quantity,
		}
		if err := lineValidator.Struct(line); err != nil {
			var verrs validator.ValidationErrors
			if !errors.As(err, &verrs) {
				return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order items")
			}
			for _, fe := range verrs {
				details[fmt.Sprintf("items[%d].%s", i, fe.Field())] = lineMessage(fe)
			}
		}
		if item.Price.IsNegative() {
			details[fmt.Sprintf("items[%d].price", i)] = "must be at least 0"
		} else if !types.HasMoneyScale(item.Price) {
			details[fmt.Sprintf("items[%d].price", i)] = "must have at most 2 decimal places"
		}
		lines = append(lines, item.Snapshot())
	}
	if len(details) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order items").WithDetails(details)
	}
	return lines, nil
}

func lineMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gte":
		return "must be at least " + fe.Param()
	}
	return "is invalid"
}
