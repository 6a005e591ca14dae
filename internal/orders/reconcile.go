package orders

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
)

// Reconciler recreates the approval request for orders that were committed
// without one.
type Reconciler struct {
	repo   Repository
	tx     txRunner
	outbox outbox.Emitter
	logg   *logger.Logger
}

func NewReconciler(repo Repository, tx txRunner, emitter outbox.Emitter, logg *logger.Logger) (*Reconciler, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Reconciler{repo: repo, tx: tx, outbox: emitter, logg: logg}, nil
}

// ReconcileMissingRequests repairs up to limit orders created before the
// cutoff and returns how many requests were created.
func (r *Reconciler) ReconcileMissingRequests(ctx context.Context, createdBefore time.Time, limit int) (int, error) {
	orphans, err := r.repo.FindOrdersMissingRequest(ctx, createdBefore, limit)
	if err != nil {
		return 0, fmt.Errorf("find orders missing request: %w", err)
	}
	var errs error
	created := 0
	for i := range orphans {
		order := &orphans[i]
		ok, err := r.repair(ctx, order)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("order %s: %w", order.ID, err))
			continue
		}
		if ok {
			created++
		}
	}
	return created, errs
}

func (r *Reconciler) repair(ctx context.Context, order *models.Order) (bool, error) {
	ctx = r.logg.WithFields(ctx, map[string]any{
		"order_id":     order.ID.String(),
		"order_number": order.OrderNumber,
	})
	request := &models.Request{
		UserID:    order.UserID,
		UserEmail: order.ShippingAddress.Email,
		Items:     snapshotsFromOrder(order),
		Total:     order.TotalAmount,
		OrderID:   order.ID,
		Status:    requestStatusFor(order.ApprovalStatus),
		Date:      order.CreatedAt,
	}
	if request.Status.IsTerminal() {
		request.ApprovalDate = order.ApprovalDate
		request.ApprovedBy = order.ApprovedBy
		request.RejectionReason = order.RejectionReason
	}

	duplicate := false
	err := r.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := r.repo.WithTx(tx).CreateRequest(ctx, request); err != nil {
			duplicate = db.IsUniqueViolation(err, "requests_order_id_key")
			return err
		}
		return r.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderRequestReconciled,
			AggregateType: enums.AggregateRequest,
			AggregateID:   request.ID,
			Data: payloads.RequestReconciledEvent{
				OrderID:   order.ID,
				RequestID: request.ID,
			},
		})
	})
	if duplicate {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	r.logg.Warn(r.logg.WithField(ctx, "request_id", request.ID.String()), "orders.request_reconciled")
	return true, nil
}

func requestStatusFor(status enums.ApprovalStatus) enums.RequestStatus {
	switch status {
	case enums.ApprovalStatusApproved:
		return enums.RequestStatusApproved
	case enums.ApprovalStatusRejected:
		return enums.RequestStatusRejected
	case enums.ApprovalStatusCancelled:
		return enums.RequestStatusCancelled
	default:
		return enums.RequestStatusPending
	}
}
