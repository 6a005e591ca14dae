package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/identity"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// QueryService serves read access to orders and requests.
type QueryService struct {
	repo Repository
}

func NewQueryService(repo Repository) (*QueryService, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	return &QueryService{repo: repo}, nil
}

// GetOwn returns the order only when it belongs to userID.
func (q *QueryService) GetOwn(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	order, err := q.repo.FindOrderByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "load order")
	}
	if !identity.Equal(order.UserID, userID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another user")
	}
	return OrderFromModel(order), nil
}

// ListForUser returns the user's orders, newest first.
func (q *QueryService) ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	return q.ListAll(ctx, OrderFilter{UserID: &userID}, params)
}

// ListAll returns every order matching the filter, newest first.
func (q *QueryService) ListAll(ctx context.Context, filter OrderFilter, params pagination.Params) (*OrderList, error) {
	cursor, err := parseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	rows, next, err := q.repo.ListOrders(ctx, filter, cursor, params.Limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "list orders")
	}
	list := &OrderList{Items: make([]OrderDTO, 0, len(rows)), NextCursor: pagination.EncodeCursor(next)}
	for i := range rows {
		list.Items = append(list.Items, *OrderFromModel(&rows[i]))
	}
	return list, nil
}

// ListRequests returns approval requests matching the filter, newest first.
func (q *QueryService) ListRequests(ctx context.Context, filter RequestFilter, params pagination.Params) (*RequestList, error) {
	cursor, err := parseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	rows, next, err := q.repo.ListRequests(ctx, filter, cursor, params.Limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "list requests")
	}
	list := &RequestList{Items: make([]RequestDTO, 0, len(rows)), NextCursor: pagination.EncodeCursor(next)}
	for i := range rows {
		list.Items = append(list.Items, *RequestFromModel(&rows[i]))
	}
	return list, nil
}

// AuthorizeSubject checks that actor may read data owned by subject. Admins
// pass when allowAdmin is set. Only admins see VALIDATION_ERROR for a
// malformed subject; everyone else gets FORBIDDEN.
func AuthorizeSubject(actor Actor, subject string, allowAdmin bool) (uuid.UUID, error) {
	privileged := allowAdmin && actor.IsAdmin()
	subjectID, err := identity.Parse(subject)
	if err != nil {
		if !privileged {
			return uuid.Nil, forbiddenSubject()
		}
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user id").
			WithDetails(map[string]string{"userId": "must be a uuid"})
	}
	if privileged {
		return subjectID, nil
	}
	if !identity.Equal(actor.UserID, subjectID) {
		return uuid.Nil, forbiddenSubject()
	}
	return subjectID, nil
}

func forbiddenSubject() error {
	return pkgerrors.New(pkgerrors.CodeForbidden, "cannot access another user's data")
}

func parseCursor(value string) (*pagination.Cursor, error) {
	cursor, err := pagination.ParseCursor(value)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor").
			WithDetails(map[string]string{"cursor": "is invalid"})
	}
	return cursor, nil
}
