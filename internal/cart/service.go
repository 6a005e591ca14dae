package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service owns per-user cart contents.
//
// Merge is additive and does not remember previous calls: merging the same
// list twice doubles quantities. Callers that replay a guest cart must
// de-duplicate before calling.
type Service interface {
	Get(ctx context.Context, userID uuid.UUID) (*CartDTO, error)
	UpsertItem(ctx context.Context, userID uuid.UUID, item ItemInput) (*CartDTO, error)
	ReplaceAll(ctx context.Context, userID uuid.UUID, items []ItemInput) (*CartDTO, error)
	UpdateItemQuantity(ctx context.Context, userID uuid.UUID, key ItemKey, quantity int) (*CartDTO, error)
	RemoveItem(ctx context.Context, userID uuid.UUID, key ItemKey) (*CartDTO, error)
	Merge(ctx context.Context, userID uuid.UUID, items []ItemInput) (*CartDTO, error)
	Clear(ctx context.Context, userID uuid.UUID) error
}

type service struct {
	repo CartRepository
	tx   txRunner
	logg *logger.Logger
	now  func() time.Time
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo CartRepository, tx txRunner, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{
		repo: repo,
		tx:   tx,
		logg: logg,
		now:  func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Get(ctx context.Context, userID uuid.UUID) (*CartDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	cart, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return emptyCart(userID), nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "load cart")
	}
	return FromModel(cart), nil
}

func (s *service) UpsertItem(ctx context.Context, userID uuid.UUID, item ItemInput) (*CartDTO, error) {
	if err := validateItems([]ItemInput{item}); err != nil {
		return nil, err
	}
	return s.mutate(ctx, userID, true, func(items []models.CartItem) ([]models.CartItem, error) {
		return mergeInto(items, []ItemInput{item}), nil
	})
}

// ReplaceAll swaps the stored items for the provided list. Duplicate keys in
// the list collapse into one line with the summed quantity.
func (s *service) ReplaceAll(ctx context.Context, userID uuid.UUID, items []ItemInput) (*CartDTO, error) {
	if err := validateItems(items); err != nil {
		return nil, err
	}
	return s.mutate(ctx, userID, true, func([]models.CartItem) ([]models.CartItem, error) {
		return mergeInto(nil, items), nil
	})
}

// UpdateItemQuantity sets the quantity of one line; zero or less removes it.
func (s *service) UpdateItemQuantity(ctx context.Context, userID uuid.UUID, key ItemKey, quantity int) (*CartDTO, error) {
	return s.mutate(ctx, userID, false, func(items []models.CartItem) ([]models.CartItem, error) {
		pos := findItem(items, key)
		if pos < 0 {
			return nil, itemNotFound(key)
		}
		if quantity <= 0 {
			return removeAt(items, pos), nil
		}
		items[pos].Quantity = quantity
		return items, nil
	})
}

func (s *service) RemoveItem(ctx context.Context, userID uuid.UUID, key ItemKey) (*CartDTO, error) {
	return s.mutate(ctx, userID, false, func(items []models.CartItem) ([]models.CartItem, error) {
		pos := findItem(items, key)
		if pos < 0 {
			return nil, itemNotFound(key)
		}
		return removeAt(items, pos), nil
	})
}

func (s *service) Merge(ctx context.Context, userID uuid.UUID, incoming []ItemInput) (*CartDTO, error) {
	if err := validateItems(incoming); err != nil {
		return nil, err
	}
	return s.mutate(ctx, userID, true, func(items []models.CartItem) ([]models.CartItem, error) {
		return mergeInto(items, incoming), nil
	})
}

func (s *service) Clear(ctx context.Context, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).DeleteByUser(ctx, userID)
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "clear cart")
	}
	return nil
}

// mutate runs fn against the locked item list and persists the result in one
// transaction. When create is false a missing cart is reported as not found.
func (s *service) mutate(ctx context.Context, userID uuid.UUID, create bool, fn func([]models.CartItem) ([]models.CartItem, error)) (*CartDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}

	var result *models.Cart
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if create {
			if err := repo.EnsureForUser(ctx, userID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "create cart")
			}
		}
		cart, err := repo.LockByUser(ctx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "lock cart")
		}

		items, err := fn(cart.Items)
		if err != nil {
			return err
		}
		if err := repo.ReplaceItems(ctx, cart.ID, items); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "save cart items")
		}
		now := s.now()
		if err := repo.Touch(ctx, cart.ID, now); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "touch cart")
		}

		cart.Items = items
		cart.LastModifiedAt = now
		result = cart
		return nil
	})
	if err != nil {
		return nil, err
	}
	return FromModel(result), nil
}

func itemNotFound(key ItemKey) error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found").WithDetails(map[string]any{
		"productId": key.ProductID,
		"size":      key.Size,
		"length":    key.Length,
		"color":     key.Color,
	})
}

func validateItems(items []ItemInput) error {
	var fields []map[string]any
	for i, item := range items {
		if strings.TrimSpace(item.Title) == "" {
			fields = append(fields, map[string]any{"index": i, "field": "title", "reason": "required"})
		}
		if item.Price.IsNegative() {
			fields = append(fields, map[string]any{"index": i, "field": "price", "reason": "must be >= 0"})
		} else if !types.HasMoneyScale(item.Price) {
			fields = append(fields, map[string]any{"index": i, "field": "price", "reason": "at most 2 decimal places"})
		}
		if item.Quantity <= 0 {
			fields = append(fields, map[string]any{"index": i, "field": "quantity", "reason": "must be >= 1"})
		}
	}
	if len(fields) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid cart items").WithDetails(map[string]any{"fields": fields})
	}
	return nil
}
