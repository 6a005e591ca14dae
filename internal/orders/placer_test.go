package orders

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/users"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
)

func TestPlaceCreatesOrderRequestAndClearsCart(t *testing.T) {
	h := newHarness(t, config.TotalMismatchReject)
	ctx := context.Background()
	u := h.customer(t)

	_, err := h.carts.UpsertItem(ctx, u.ID, tee(1))
	require.NoError(t, err)

	res, err := h.placer.Place(ctx, u.ID, PlaceOrderInput{Items: []cart.ItemInput{tee(1)}})
	require.NoError(t, err)

	order := res.Order
	assert.Regexp(t, regexp.MustCompile(`^ORD\d{6}$`), order.OrderNumber)
	assert.Equal(t, enums.OrderStatusAwaitingApproval, order.Status)
	assert.Equal(t, enums.ApprovalStatusPending, order.ApprovalStatus)
	assert.True(t, order.TotalAmount.Equal(decimal.RequireFromString("20.00")))
	assert.Equal(t, "Jordan Lee", order.ShippingAddress.Name)
	assert.Equal(t, "1 Main St", order.ShippingAddress.Address)
	require.Len(t, order.Items, 1)
	assert.Equal(t, "M", order.Items[0].Size)
	assert.Equal(t, "Blue", order.Items[0].Color)

	req, err := h.repo.FindRequestByID(ctx, res.RequestID)
	require.NoError(t, err)
	assert.Equal(t, enums.RequestStatusPending, req.Status)
	assert.Equal(t, order.ID, req.OrderID)
	assert.Equal(t, u.Email, req.UserEmail)
	assert.True(t, req.Total.Equal(order.TotalAmount))
	require.Len(t, req.Items, 1)
	assert.Equal(t, "T", req.Items[0].Title)

	stored, err := h.carts.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Items)

	events, err := h.outbox.ListForAggregate(enums.AggregateOrder, order.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, enums.EventOrderPlaced, events[0].EventType)
	var placed payloads.OrderPlacedEvent
	_, err = outbox.DecodeEnvelope(events[0], &placed)
	require.NoError(t, err)
	assert.Equal(t, res.RequestID, placed.RequestID)
	assert.Equal(t, order.OrderNumber, placed.OrderNumber)
}

func TestPlaceComputesTotalFromItems(t *testing.T) {
	h := newHarness(t, config.TotalMismatchReject)
	u := h.customer(t)
	a := tee(2)
	a.Price = decimal.RequireFromString("10")
	b := tee(1)
	b.ProductID = strPtr("p-2")
	b.Price = decimal.RequireFromString("5")
	hint := decimal.RequireFromString("25.00")

	res, err := h.placer.Place(context.Background(), u.ID, PlaceOrderInput{Items: []cart.ItemInput{a, b}, TotalAmount: &hint})
	require.NoError(t, err)
	assert.True(t, res.Order.TotalAmount.Equal(decimal.RequireFromString("25")))
	require.Len(t, res.Order.Items, 2)
	assert.True(t, res.Order.Items[0].LineTotal.Equal(decimal.RequireFromString("20")))
}

func TestPlaceTotalMismatchPolicies(t *testing.T) {
	hint := decimal.RequireFromString("99.99")

	t.Run("reject", func(t *testing.T) {
		h := newHarness(t, config.TotalMismatchReject)
		u := h.customer(t)
		_, err := h.placer.Place(context.Background(), u.ID, PlaceOrderInput{Items: []cart.ItemInput{tee(1)}, TotalAmount: &hint})
		require.Error(t, err)
		assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
	})

	t.Run("log keeps the hint", func(t *testing.T) {
		h := newHarness(t, config.TotalMismatchLog)
		u := h.customer(t)
		res, err := h.placer.Place(context.Background(), u.ID, PlaceOrderInput{Items: []cart.ItemInput{tee(1)}, TotalAmount: &hint})
		require.NoError(t, err)
		assert.True(t, res.Order.TotalAmount.Equal(hint))
	})

	t.Run("within tolerance uses computed total", func(t *testing.T) {
		h := newHarness(t, config.TotalMismatchReject)
		u := h.customer(t)
		near := decimal.RequireFromString("20.01")
		res, err := h.placer.Place(context.Background(), u.ID, PlaceOrderInput{Items: []cart.ItemInput{tee(1)}, TotalAmount: &near})
		require.NoError(t, err)
		assert.True(t, res.Order.TotalAmount.Equal(decimal.RequireFromString("20")))
	})
}

func TestPlaceRejectsIncompleteProfile(t *testing.T) {
	h := newHarness(t, config.TotalMismatchReject)
	u, err := h.users.Create(context.Background(), users.CreateUserDTO{Email: "np@example.com", Name: "No Phone"})
	require.NoError(t, err)

	_, err = h.placer.Place(context.Background(), u.ID, PlaceOrderInput{Items: []cart.ItemInput{tee(1)}})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeIncompleteProfile, typed.Code())
	details := typed.Details().(map[string]any)
	assert.Equal(t, []string{"phone", "address"}, details["missing_fields"])

	list, err := h.query.ListForUser(context.Background(), u.ID, paginationParams(0))
	require.NoError(t, err)
	assert.Empty(t, list.Items)
}

func TestPlaceUnknownUser(t *testing.T) {
	h := newHarness(t, config.TotalMismatchReject)
	_, err := h.placer.Place(context.Background(), uuid.New(), PlaceOrderInput{Items: []cart.ItemInput{tee(1)}})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))
}

func TestPlaceValidatesItems(t *testing.T) {
	h := newHarness(t, config.TotalMismatchReject)
	u := h.customer(t)
	bad := tee(0)
	bad.Title = " "
	bad.Price = decimal.RequireFromString("-1")
	bad.ImageSrc = ""

	_, err := h.placer.Place(context.Background(), u.ID, PlaceOrderInput{Items: []cart.ItemInput{tee(1), bad}})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	details := typed.Details().(map[string]string)
	assert.Equal(t, "is required", details["items[1].title"])
	assert.Equal(t, "is required", details["items[1].imageSrc"])
	assert.Equal(t, "must be at least 1", details["items[1].quantity"])
	assert.Equal(t, "must be at least 0", details["items[1].price"])
	assert.NotContains(t, details, "items[0].title")
}

func TestPlaceRejectsSubCentPrices(t *testing.T) {
	h := newHarness(t, config.TotalMismatchReject)
	u := h.customer(t)
	fine := tee(3)
	fine.Price = decimal.RequireFromString("0.004")

	_, err := h.placer.Place(context.Background(), u.ID, PlaceOrderInput{Items: []cart.ItemInput{fine}})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	details := typed.Details().(map[string]string)
	assert.Equal(t, "must have at most 2 decimal places", details["items[0].price"])

	trailing := tee(1)
	trailing.Price = decimal.RequireFromString("20.000")
	_, err = h.placer.Place(context.Background(), u.ID, PlaceOrderInput{Items: []cart.ItemInput{trailing}})
	require.NoError(t, err)
}

func TestPlaceMapsOrderNumberCollisionToConflict(t *testing.T) {
	h := newHarness(t, config.TotalMismatchReject)
	u := h.customer(t)
	first := h.place(t, u)

	// rewind the counter so the next number is reissued
	require.NoError(t, h.db.DB().Exec("UPDATE sequence_counters SET seq = 0").Error)

	_, err := h.placer.Place(context.Background(), u.ID, PlaceOrderInput{Items: []cart.ItemInput{tee(1)}})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeConflict), "got %v", err)

	list, err := h.query.ListForUser(context.Background(), u.ID, paginationParams(10))
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	assert.Equal(t, first.Order.OrderNumber, list.Items[0].OrderNumber)
}

func TestPlaceWithoutItemsUsesStoredCart(t *testing.T) {
	h := newHarness(t, config.TotalMismatchReject)
	ctx := context.Background()
	u := h.customer(t)

	_, err := h.placer.Place(ctx, u.ID, PlaceOrderInput{})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation), "empty cart cannot be placed")

	_, err = h.carts.UpsertItem(ctx, u.ID, tee(3))
	require.NoError(t, err)
	res, err := h.placer.Place(ctx, u.ID, PlaceOrderInput{})
	require.NoError(t, err)
	require.Len(t, res.Order.Items, 1)
	assert.Equal(t, 3, res.Order.Items[0].Quantity)
	assert.True(t, res.Order.TotalAmount.Equal(decimal.RequireFromString("60")))
}

func TestPlaceIssuesIncreasingOrderNumbers(t *testing.T) {
	h := newHarness(t, config.TotalMismatchReject)
	u := h.customer(t)
	seen := map[string]bool{}
	prev := ""
	for i := 0; i < 5; i++ {
		res := h.place(t, u)
		require.False(t, seen[res.Order.OrderNumber])
		seen[res.Order.OrderNumber] = true
		assert.Greater(t, res.Order.OrderNumber, prev)
		prev = res.Order.OrderNumber
	}
}

type failingNumbers struct{}

func (failingNumbers) NextOrderNumber(context.Context) (string, error) {
	return "", pkgerrors.Wrap(pkgerrors.CodeSequenceUnavailable, errors.New("redis down"), "order number counter unavailable")
}

func TestPlaceFailsWhenSequenceUnavailable(t *testing.T) {
	h := newHarness(t, config.TotalMismatchReject)
	u := h.customer(t)
	h.placer.numbers = failingNumbers{}

	_, err := h.placer.Place(context.Background(), u.ID, PlaceOrderInput{Items: []cart.ItemInput{tee(1)}})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeSequenceUnavailable))

	list, err := h.query.ListForUser(context.Background(), u.ID, paginationParams(0))
	require.NoError(t, err)
	assert.Empty(t, list.Items)
}

type stickyCart struct {
	CartStore
}

func (stickyCart) Clear(context.Context, uuid.UUID) error {
	return errors.New("cart store unavailable")
}

func TestPlaceSucceedsWhenCartClearFails(t *testing.T) {
	h := newHarness(t, config.TotalMismatchReject)
	u := h.customer(t)
	h.placer.carts = stickyCart{CartStore: h.carts}

	res, err := h.placer.Place(context.Background(), u.ID, PlaceOrderInput{Items: []cart.ItemInput{tee(1)}})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, res.RequestID)
}

func TestNewPlacerRejectsUnknownPolicy(t *testing.T) {
	h := newHarness(t, config.TotalMismatchReject)
	_, err := NewPlacer(PlacerDeps{
		Repo:           h.repo,
		Tx:             h.db,
		Users:          h.users,
		Carts:          h.carts,
		Numbers:        failingNumbers{},
		Outbox:         outbox.NewService(h.outbox, nil),
		MismatchPolicy: "ignore",
	})
	assert.Error(t, err)
}
