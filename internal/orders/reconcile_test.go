package orders

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

func orphanOrder(u *models.User, number string, approval enums.ApprovalStatus, age time.Duration) *models.Order {
	line := tee(2).Snapshot()
	status := enums.OrderStatusAwaitingApproval
	if approval == enums.ApprovalStatusApproved {
		status = enums.OrderStatusApproved
	}
	return &models.Order{
		UserID:          u.ID,
		OrderNumber:     number,
		Items:           orderItemsFromSnapshots(types.LineItemSnapshots{line}),
		TotalAmount:     line.LineTotal(),
		Status:          status,
		ApprovalStatus:  approval,
		ShippingAddress: u.ShippingSnapshot(),
		CreatedAt:       time.Now().UTC().Add(-age),
	}
}

func TestReconcileCreatesMissingRequests(t *testing.T) {
	h := newHarness(t, config.TotalMismatchReject)
	ctx := context.Background()
	u := h.customer(t)
	h.place(t, u)

	stale := orphanOrder(u, "ORD900001", enums.ApprovalStatusPending, time.Hour)
	settled := orphanOrder(u, "ORD900002", enums.ApprovalStatusApproved, time.Hour)
	fresh := orphanOrder(u, "ORD900003", enums.ApprovalStatusPending, 0)
	for _, o := range []*models.Order{stale, settled, fresh} {
		require.NoError(t, h.repo.CreateOrder(ctx, o))
	}

	reconciler, err := NewReconciler(h.repo, h.db, outbox.NewService(h.outbox, nil), nil)
	require.NoError(t, err)

	cutoff := time.Now().UTC().Add(-time.Minute)
	created, err := reconciler.ReconcileMissingRequests(ctx, cutoff, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, created)

	req, err := h.repo.FindRequestByOrderID(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.RequestStatusPending, req.Status)
	assert.Equal(t, u.Email, req.UserEmail)
	assert.True(t, req.Total.Equal(stale.TotalAmount))
	require.Len(t, req.Items, 1)
	assert.Equal(t, 2, req.Items[0].Quantity)

	req, err = h.repo.FindRequestByOrderID(ctx, settled.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.RequestStatusApproved, req.Status)

	_, err = h.repo.FindRequestByOrderID(ctx, fresh.ID)
	assert.Error(t, err, "orders inside the grace window are left alone")

	events, err := h.outbox.ListForAggregate(enums.AggregateRequest, req.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, enums.EventOrderRequestReconciled, events[0].EventType)

	created, err = reconciler.ReconcileMissingRequests(ctx, cutoff, 10)
	require.NoError(t, err)
	assert.Zero(t, created)
}
