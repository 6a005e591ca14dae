package orders

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

func TestEveryStatusHasTransitionRow(t *testing.T) {
	for _, status := range enums.OrderStatuses() {
		next, ok := statusTransitions[status]
		require.True(t, ok, "missing transition row for %s", status)
		if status.IsTerminal() {
			assert.Empty(t, next, "%s is terminal", status)
		} else {
			assert.NotEmpty(t, next, "%s should lead somewhere", status)
		}
		for _, to := range next {
			assert.True(t, to.IsValid())
		}
	}
	assert.Len(t, statusTransitions, len(enums.OrderStatuses()))
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(enums.OrderStatusApproved, enums.OrderStatusProcessing))
	assert.True(t, CanTransition(enums.OrderStatusApproved, enums.OrderStatusCancelled))
	assert.False(t, CanTransition(enums.OrderStatusApproved, enums.OrderStatusRejected))
	assert.False(t, CanTransition(enums.OrderStatusDelivered, enums.OrderStatusCancelled))
	assert.False(t, CanTransition(enums.OrderStatusAwaitingApproval, enums.OrderStatusShipped))
}

func TestUpdateStatusRoutesApprovalThroughRequest(t *testing.T) {
	h := newHarness(t, config.TotalMismatchReject)
	ctx := context.Background()
	u := h.customer(t)
	placed := h.place(t, u)

	order, err := h.workflow.UpdateStatus(ctx, admin(), placed.Order.ID, UpdateStatusInput{Status: enums.OrderStatusApproved})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusApproved, order.Status)
	assert.Equal(t, enums.ApprovalStatusApproved, order.ApprovalStatus)

	req, err := h.repo.FindRequestByID(ctx, placed.RequestID)
	require.NoError(t, err)
	assert.Equal(t, enums.RequestStatusApproved, req.Status)
}

func TestUpdateStatusRejectWhilePendingUsesDefaultReason(t *testing.T) {
	h := newHarness(t, config.TotalMismatchReject)
	ctx := context.Background()
	u := h.customer(t)
	placed := h.place(t, u)

	order, err := h.workflow.UpdateStatus(ctx, admin(), placed.Order.ID, UpdateStatusInput{Status: enums.OrderStatusRejected})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusRejected, order.Status)
	require.NotNil(t, order.RejectionReason)
	assert.Equal(t, defaultStatusRejectReason, *order.RejectionReason)

	req, err := h.repo.FindRequestByID(ctx, placed.RequestID)
	require.NoError(t, err)
	assert.Equal(t, enums.RequestStatusRejected, req.Status)
}

func TestUpdateStatusFulfillmentPath(t *testing.T) {
	h := newHarness(t, config.TotalMismatchReject)
	ctx := context.Background()
	u := h.customer(t)
	placed := h.place(t, u)
	id := placed.Order.ID

	_, err := h.workflow.Approve(ctx, admin(), placed.RequestID, nil)
	require.NoError(t, err)

	_, err = h.workflow.UpdateStatus(ctx, admin(), id, UpdateStatusInput{Status: enums.OrderStatusRejected})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeStateConflict), "rejection after approval is refused")

	for _, next := range []enums.OrderStatus{enums.OrderStatusProcessing, enums.OrderStatusShipped, enums.OrderStatusDelivered} {
		order, err := h.workflow.UpdateStatus(ctx, admin(), id, UpdateStatusInput{Status: next})
		require.NoError(t, err)
		assert.Equal(t, next, order.Status)
		assert.Equal(t, enums.ApprovalStatusApproved, order.ApprovalStatus)
	}

	_, err = h.workflow.UpdateStatus(ctx, admin(), id, UpdateStatusInput{Status: enums.OrderStatusCancelled})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
	assert.Equal(t, "delivered", typed.Details().(map[string]any)["from"])

	events, err := h.outbox.ListForAggregate(enums.AggregateOrder, id)
	require.NoError(t, err)
	assert.Len(t, events, 5)
}

func TestUpdateStatusCancelAfterApprovalKeepsRequest(t *testing.T) {
	h := newHarness(t, config.TotalMismatchReject)
	ctx := context.Background()
	u := h.customer(t)
	placed := h.place(t, u)

	_, err := h.workflow.Approve(ctx, admin(), placed.RequestID, nil)
	require.NoError(t, err)
	order, err := h.workflow.UpdateStatus(ctx, admin(), placed.Order.ID, UpdateStatusInput{Status: enums.OrderStatusCancelled})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, order.Status)

	req, err := h.repo.FindRequestByID(ctx, placed.RequestID)
	require.NoError(t, err)
	assert.Equal(t, enums.RequestStatusApproved, req.Status)
}

func TestUpdateStatusGuards(t *testing.T) {
	h := newHarness(t, config.TotalMismatchReject)
	ctx := context.Background()
	u := h.customer(t)
	placed := h.place(t, u)

	_, err := h.workflow.UpdateStatus(ctx, owner(u), placed.Order.ID, UpdateStatusInput{Status: enums.OrderStatusApproved})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeForbidden))

	_, err = h.workflow.UpdateStatus(ctx, admin(), placed.Order.ID, UpdateStatusInput{Status: "lost"})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	_, err = h.workflow.UpdateStatus(ctx, admin(), placed.Order.ID, UpdateStatusInput{Status: enums.OrderStatusShipped})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeStateConflict))

	order, err := h.workflow.UpdateStatus(ctx, admin(), placed.Order.ID, UpdateStatusInput{Status: enums.OrderStatusAwaitingApproval})
	require.NoError(t, err, "same status is a no-op")
	assert.Equal(t, enums.OrderStatusAwaitingApproval, order.Status)
}
