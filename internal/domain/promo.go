package domain

import "time"

// PromoCode is a named discount rule. Codes are case-sensitive and
// immutable once issued except for the active flag.
type PromoCode struct {
	Code            string     `json:"code"`
	DiscountPercent int        `json:"discount_percent"` // 0..100
	Active          bool       `json:"active"`
	ValidUntil      *time.Time `json:"valid_until,omitempty"`
}

// ExpiredAt reports whether the code's validity window has passed.
// Codes without ValidUntil never expire.
func (p PromoCode) ExpiredAt(now time.Time) bool {
	return p.ValidUntil != nil && p.ValidUntil.Before(now)
}
