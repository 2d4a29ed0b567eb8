package domain

import "time"

// Cart holds the in-progress selection for one session.
// Items keep insertion order.
type Cart struct {
	SessionID string        `json:"session_id"`
	Items     []CartItem    `json:"items"`
	Promo     *AppliedPromo `json:"promo,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

type CartItem struct {
	MealID    string `json:"meal_id"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"unit_price"` // minor currency units
	Quantity  int    `json:"quantity"`
	Image     string `json:"image"`
	Category  string `json:"category"`
}

// AppliedPromo is the single discount active on a cart, if any.
type AppliedPromo struct {
	Code            string `json:"code"`
	DiscountPercent int    `json:"discount_percent"`
}

// TotalItems is the sum of all quantities, recomputed on every call.
func (c *Cart) TotalItems() int {
	total := 0
	for _, item := range c.Items {
		total += item.Quantity
	}
	return total
}

// Subtotal is the sum of unit price times quantity over all items,
// recomputed on every call.
func (c *Cart) Subtotal() int64 {
	var total int64
	for _, item := range c.Items {
		total += item.UnitPrice * int64(item.Quantity)
	}
	return total
}

func (c *Cart) IsEmpty() bool {
	return c.TotalItems() == 0
}

// DiscountPercent returns the active discount, zero when no promo is applied.
func (c *Cart) DiscountPercent() int {
	if c.Promo == nil {
		return 0
	}
	return c.Promo.DiscountPercent
}

// EffectiveTotal applies a percentage discount to a subtotal in minor
// currency units, rounding half-up to the smallest unit. The result is
// never negative and never exceeds the subtotal.
func EffectiveTotal(subtotal int64, discountPercent int) int64 {
	if discountPercent <= 0 {
		return subtotal
	}
	if discountPercent >= 100 {
		return 0
	}
	return (subtotal*int64(100-discountPercent) + 50) / 100
}
