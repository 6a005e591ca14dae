package orders

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
)

// statusTransitions lists the allowed next statuses for every order status.
// Terminal statuses map to an empty set.
var statusTransitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPending:          {enums.OrderStatusAwaitingApproval, enums.OrderStatusCancelled, enums.OrderStatusRejected},
	enums.OrderStatusAwaitingApproval: {enums.OrderStatusApproved, enums.OrderStatusCancelled, enums.OrderStatusRejected},
	enums.OrderStatusApproved:         {enums.OrderStatusProcessing, enums.OrderStatusCancelled},
	enums.OrderStatusProcessing:       {enums.OrderStatusShipped, enums.OrderStatusCancelled},
	enums.OrderStatusShipped:          {enums.OrderStatusDelivered, enums.OrderStatusCancelled},
	enums.OrderStatusDelivered:        {},
	enums.OrderStatusCancelled:        {},
	enums.OrderStatusRejected:         {},
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to enums.OrderStatus) bool {
	for _, next := range statusTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// UpdateStatusInput is the admin status change payload. Reason is used when
// the change rejects an order whose approval is pending.
type UpdateStatusInput struct {
	Status enums.OrderStatus
	Reason *string
}

const defaultStatusRejectReason = "rejected by administrator"

// UpdateStatus moves an order along its fulfillment path. While approval is
// pending, approve/reject/cancel targets go through the request decision so
// the paired request stays in sync.
func (w *Workflow) UpdateStatus(ctx context.Context, actor Actor, orderID uuid.UUID, input UpdateStatusInput) (*OrderDTO, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	target := input.Status
	if !target.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status").
			WithDetails(map[string]any{"status": string(target)})
	}
	ctx = w.logg.WithFields(ctx, map[string]any{
		"order_id": orderID.String(),
		"to":       string(target),
		"actor_id": actor.UserID.String(),
	})

	var out *OrderDTO
	changed := false
	err := w.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := w.repo.WithTx(tx)
		order, err := repo.FindOrderByID(ctx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "load order")
		}
		from := order.Status
		if from == target {
			out = OrderFromModel(order)
			return nil
		}
		if !CanTransition(from, target) {
			return transitionConflict(from, target)
		}

		if order.ApprovalStatus == enums.ApprovalStatusPending && routesThroughWorkflow(target) {
			req, err := repo.FindRequestByOrderID(ctx, orderID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return pkgerrors.New(pkgerrors.CodeStateConflict, "order has no approval request").
						WithDetails(map[string]any{"order_id": orderID.String()})
				}
				return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "load request")
			}
			if _, err := w.decideTx(ctx, tx, actor, req.ID, decisionFor(target), statusReason(target, input.Reason), nil); err != nil {
				return err
			}
		} else {
			ok, err := repo.UpdateOrderStatus(ctx, orderID, from, target)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "update order status")
			}
			if !ok {
				return transitionConflict(from, target)
			}
			event := outbox.DomainEvent{
				EventType:     enums.EventOrderStatusChanged,
				AggregateType: enums.AggregateOrder,
				AggregateID:   orderID,
				Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: string(actor.Role)},
				Data: payloads.OrderStatusChangedEvent{
					OrderID:    orderID,
					UserID:     order.UserID,
					FromStatus: from,
					ToStatus:   target,
					ChangedAt:  w.now(),
				},
			}
			if err := w.outbox.Emit(ctx, tx, event); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "emit status event")
			}
		}

		updated, err := repo.FindOrderByID(ctx, orderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "reload order")
		}
		out = OrderFromModel(updated)
		changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if changed {
		w.metrics.IncStatusChange(string(target))
		w.logg.Info(ctx, "orders.status_changed")
	}
	return out, nil
}

func routesThroughWorkflow(target enums.OrderStatus) bool {
	switch target {
	case enums.OrderStatusApproved, enums.OrderStatusRejected, enums.OrderStatusCancelled:
		return true
	}
	return false
}

func decisionFor(target enums.OrderStatus) decision {
	switch target {
	case enums.OrderStatusApproved:
		return approveDecision
	case enums.OrderStatusRejected:
		return rejectDecision
	default:
		return cancelDecision
	}
}

func statusReason(target enums.OrderStatus, reason *string) *string {
	if reason != nil {
		trimmed := strings.TrimSpace(*reason)
		if trimmed != "" {
			return &trimmed
		}
	}
	if target == enums.OrderStatusRejected {
		fallback := defaultStatusRejectReason
		return &fallback
	}
	return nil
}

func transitionConflict(from, to enums.OrderStatus) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, "order status transition not allowed").
		WithDetails(map[string]any{"from": string(from), "to": string(to)})
}
