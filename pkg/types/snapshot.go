package types

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ShippingAddress is the contact snapshot copied from the user profile when an
// order is placed. It is never re-derived from the live profile.
type ShippingAddress struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	Email   string `json:"email"`
}

// MissingFields lists the profile fields that are blank.
func (s ShippingAddress) MissingFields() []string {
	var missing []string
	if strings.TrimSpace(s.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(s.Email) == "" {
		missing = append(missing, "email")
	}
	if strings.TrimSpace(s.Phone) == "" {
		missing = append(missing, "phone")
	}
	if strings.TrimSpace(s.Address) == "" {
		missing = append(missing, "address")
	}
	return missing
}

// MoneyScale is the number of decimal places stored for prices and totals.
const MoneyScale = 2

// HasMoneyScale reports whether d carries no more precision than the stored
// numeric(12,2) columns. Trailing zeros are allowed ("1.500").
func HasMoneyScale(d decimal.Decimal) bool {
	return d.Equal(d.Round(MoneyScale))
}

// LineItemSnapshot is a frozen copy of a purchased item.
type LineItemSnapshot struct {
	ProductID *string         `json:"productId"`
	Title     string          `json:"title"`
	Price     decimal.Decimal `json:"price"`
	ImageSrc  string          `json:"imageSrc"`
	Size      string          `json:"size"`
	Length    string          `json:"length,omitempty"`
	Color     string          `json:"color"`
	Quantity  int             `json:"quantity"`
}

// LineTotal returns price x quantity.
func (l LineItemSnapshot) LineTotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// LineItemSnapshots is stored as a jsonb array.
type LineItemSnapshots []LineItemSnapshot

// Total sums every line.
func (s LineItemSnapshots) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range s {
		total = total.Add(item.LineTotal())
	}
	return total
}
