package cart

import (
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// ItemKey is the identity of a cart line. Two lines with equal keys are the
// same line item and their quantities add.
type ItemKey struct {
	ProductID string
	Size      string
	Length    string
	Color     string
}

// NewItemKey normalizes the identity fields. A nil or blank product id marks a
// legacy line without a catalog reference. Product ids are compared exactly
// after trimming; only uuid-shaped ids are canonicalized.
func NewItemKey(productID *string, size, length, color string) ItemKey {
	key := ItemKey{
		Size:   strings.TrimSpace(size),
		Length: strings.TrimSpace(length),
		Color:  strings.TrimSpace(color),
	}
	if trimmed := normalizeProductID(productID); trimmed != nil {
		key.ProductID = canonicalProductID(*trimmed)
	}
	return key
}

func canonicalProductID(id string) string {
	if parsed, err := uuid.Parse(id); err == nil {
		return parsed.String()
	}
	return id
}

func keyOf(item models.CartItem) ItemKey {
	return NewItemKey(item.ProductID, item.Size, item.Length, item.Color)
}

func normalizeProductID(productID *string) *string {
	if productID == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*productID)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// mergeInto adds each incoming line to items: matching keys sum quantities,
// new keys append in arrival order.
func mergeInto(items []models.CartItem, incoming []ItemInput) []models.CartItem {
	index := make(map[ItemKey]int, len(items))
	for i, item := range items {
		index[keyOf(item)] = i
	}
	for _, in := range incoming {
		key := in.Key()
		if pos, ok := index[key]; ok {
			items[pos].Quantity += in.Quantity
			continue
		}
		index[key] = len(items)
		items = append(items, toModel(in))
	}
	return items
}

func findItem(items []models.CartItem, key ItemKey) int {
	for i, item := range items {
		if keyOf(item) == key {
			return i
		}
	}
	return -1
}

func removeAt(items []models.CartItem, pos int) []models.CartItem {
	return append(items[:pos], items[pos+1:]...)
}

func toModel(in ItemInput) models.CartItem {
	return models.CartItem{
		ProductID: normalizeProductID(in.ProductID),
		Title:     strings.TrimSpace(in.Title),
		UnitPrice: in.Price,
		ImageSrc:  in.ImageSrc,
		Size:      strings.TrimSpace(in.Size),
		Length:    strings.TrimSpace(in.Length),
		Color:     strings.TrimSpace(in.Color),
		Quantity:  in.Quantity,
	}
}
