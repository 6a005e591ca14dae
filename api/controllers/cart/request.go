package cart

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	cartsvc "github.com/angelmondragon/storefront-backend/internal/cart"
)

// legacyProductID addresses cart lines stored without a catalog reference.
const legacyProductID = "null"

type itemsRequest struct {
	Items []cartsvc.ItemInput `json:"items"`
}

type quantityRequest struct {
	Size     string `json:"size"`
	Length   string `json:"length"`
	Color    string `json:"color"`
	Quantity int    `json:"quantity"`
}

func productIDParam(r *http.Request) *string {
	raw := strings.TrimSpace(chi.URLParam(r, "productId"))
	if raw == "" || strings.EqualFold(raw, legacyProductID) {
		return nil
	}
	return &raw
}

func itemKeyFromQuery(r *http.Request) cartsvc.ItemKey {
	q := r.URL.Query()
	return cartsvc.NewItemKey(productIDParam(r), q.Get("size"), q.Get("length"), q.Get("color"))
}
