package promo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fjod/go_canteen/internal/domain"
	"github.com/fjod/go_canteen/internal/repository"
)

var (
	ErrInvalidCode = errors.New("promo code must not be empty")
	ErrNotFound    = errors.New("promo code not found")
	ErrInactive    = errors.New("promo code is not active")
	ErrExpired     = errors.New("promo code has expired")
)

// CartPromoSetter records a validated discount on a session's cart.
type CartPromoSetter interface {
	SetPromo(ctx context.Context, sessionID string, promo domain.AppliedPromo) (*domain.Cart, error)
}

// Validator checks a code against the registry and applies it to the
// cart. Only one discount can be active; applying a second valid code
// replaces the first. A failed application leaves the cart untouched.
type Validator struct {
	store repository.PromoStore
	carts CartPromoSetter
	now   func() time.Time
	log   *zap.Logger
}

func NewValidator(store repository.PromoStore, carts CartPromoSetter, log *zap.Logger) *Validator {
	return &Validator{
		store: store,
		carts: carts,
		now:   time.Now,
		log:   log,
	}
}

func (v *Validator) Apply(ctx context.Context, sessionID, code string) (*domain.Cart, error) {
	if strings.TrimSpace(code) == "" {
		return nil, ErrInvalidCode
	}

	promo, err := v.store.PromoCode(ctx, code)
	if errors.Is(err, repository.ErrPromoNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("promo lookup failed: %w", err)
	}

	if promo.ExpiredAt(v.now().UTC()) {
		return nil, ErrExpired
	}
	if !promo.Active {
		return nil, ErrInactive
	}

	cart, err := v.carts.SetPromo(ctx, sessionID, domain.AppliedPromo{
		Code:            promo.Code,
		DiscountPercent: promo.DiscountPercent,
	})
	if err != nil {
		return nil, err
	}

	v.log.Info("promo code applied",
		zap.String("session_id", sessionID),
		zap.String("code", promo.Code),
		zap.Int("discount_percent", promo.DiscountPercent))
	return cart, nil
}
