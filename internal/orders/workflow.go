package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/identity"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
)

// Workflow applies approval decisions to a Request and its Order together.
type Workflow struct {
	repo    Repository
	tx      txRunner
	outbox  outbox.Emitter
	metrics *metrics.OrderMetrics
	logg    *logger.Logger
	now     func() time.Time
}

func NewWorkflow(repo Repository, tx txRunner, emitter outbox.Emitter, m *metrics.OrderMetrics, logg *logger.Logger) (*Workflow, error) {
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
	return &Workflow{
		repo:    repo,
		tx:      tx,
		outbox:  emitter,
		metrics: m,
		logg:    logg,
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

type decision struct {
	request  enums.RequestStatus
	order    enums.OrderStatus
	approval enums.ApprovalStatus
	event    enums.OutboxEventType
}

var (
	approveDecision = decision{enums.RequestStatusApproved, enums.OrderStatusApproved, enums.ApprovalStatusApproved, enums.EventOrderApproved}
	rejectDecision  = decision{enums.RequestStatusRejected, enums.OrderStatusRejected, enums.ApprovalStatusRejected, enums.EventOrderRejected}
	cancelDecision  = decision{enums.RequestStatusCancelled, enums.OrderStatusCancelled, enums.ApprovalStatusCancelled, enums.EventOrderCancelled}
)

// Approve marks a pending request and its order approved. Admin only.
func (w *Workflow) Approve(ctx context.Context, actor Actor, requestID uuid.UUID, notes *string) (*RequestDTO, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return w.decide(ctx, actor, requestID, approveDecision, nil, notes)
}

// Reject marks a pending request and its order rejected. Admin only; the
// reason is mandatory.
func (w *Workflow) Reject(ctx context.Context, actor Actor, requestID uuid.UUID, reason string, notes *string) (*RequestDTO, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rejection reason is required").
			WithDetails(map[string]string{"reason": "is required"})
	}
	return w.decide(ctx, actor, requestID, rejectDecision, &reason, notes)
}

// Cancel withdraws a pending request. Admins may cancel any request; customers
// only their own.
func (w *Workflow) Cancel(ctx context.Context, actor Actor, requestID uuid.UUID, reason *string, notes *string) (*RequestDTO, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if reason != nil {
		trimmed := strings.TrimSpace(*reason)
		reason = &trimmed
		if trimmed == "" {
			reason = nil
		}
	}
	return w.decide(ctx, actor, requestID, cancelDecision, reason, notes)
}

func requireAdmin(actor Actor) error {
	if actor.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !actor.IsAdmin() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	return nil
}

func (w *Workflow) decide(ctx context.Context, actor Actor, requestID uuid.UUID, d decision, reason, notes *string) (*RequestDTO, error) {
	if requestID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "request id is required")
	}
	ctx = w.logg.WithFields(ctx, map[string]any{
		"request_id": requestID.String(),
		"decision":   string(d.request),
		"actor_id":   actor.UserID.String(),
	})

	var out *RequestDTO
	err := w.tx.WithTx(ctx, func(tx *gorm.DB) error {
		dto, err := w.decideTx(ctx, tx, actor, requestID, d, reason, notes)
		out = dto
		return err
	})
	if err != nil {
		return nil, err
	}
	w.metrics.IncDecision(string(d.request))
	w.logg.Info(ctx, "orders.request_decided")
	return out, nil
}

// decideTx runs the decision inside an existing transaction so the status
// route can share it.
func (w *Workflow) decideTx(ctx context.Context, tx *gorm.DB, actor Actor, requestID uuid.UUID, d decision, reason, notes *string) (*RequestDTO, error) {
	repo := w.repo.WithTx(tx)
	req, err := repo.FindRequestByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "request not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "load request")
	}
	if !actor.IsAdmin() && !identity.Equal(req.UserID, actor.UserID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "request belongs to another user")
	}
	if req.Status.IsTerminal() {
		return nil, alreadyProcessed(req.Status)
	}

	update := DecisionUpdate{
		RequestStatus:  d.request,
		OrderStatus:    d.order,
		ApprovalStatus: d.approval,
		DecidedAt:      w.now(),
		DecidedBy:      actor.UserID,
		Reason:         reason,
		Notes:          notes,
	}
	changed, err := repo.UpdateRequestDecision(ctx, requestID, update)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "update request")
	}
	if !changed {
		current, err := repo.FindRequestByID(ctx, requestID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "request not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "reload request")
		}
		return nil, alreadyProcessed(current.Status)
	}

	changed, err = repo.UpdateOrderApproval(ctx, req.OrderID, update)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "update order approval")
	}
	if !changed {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order approval already settled").
			WithDetails(map[string]any{"order_id": req.OrderID.String()})
	}

	event := outbox.DomainEvent{
		EventType:     d.event,
		AggregateType: enums.AggregateOrder,
		AggregateID:   req.OrderID,
		Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: string(actor.Role)},
		OccurredAt:    update.DecidedAt,
		Data: payloads.OrderDecisionEvent{
			OrderID:        req.OrderID,
			RequestID:      req.ID,
			UserID:         req.UserID,
			RequestStatus:  d.request,
			OrderStatus:    d.order,
			ApprovalStatus: d.approval,
			Reason:         derefString(reason),
			DecidedAt:      update.DecidedAt,
		},
	}
	if err := w.outbox.Emit(ctx, tx, event); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "emit decision event")
	}

	updated, err := repo.FindRequestByID(ctx, requestID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "reload request")
	}
	return RequestFromModel(updated), nil
}

func alreadyProcessed(status enums.RequestStatus) error {
	return pkgerrors.New(pkgerrors.CodeAlreadyProcessed, "request already processed").
		WithDetails(map[string]any{"current_status": status})
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
