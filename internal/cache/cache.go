package cache

import (
	"context"
	"errors"

	"github.com/fjod/go_canteen/internal/domain"
)

// CartCache mirrors session carts so they survive a process restart.
// It is a rebuild source only; the in-process cart store stays the
// source of truth and balance decisions never read the cache.
type CartCache interface {
	Get(ctx context.Context, sessionID string) (*domain.Cart, error)
	Set(ctx context.Context, sessionID string, cart *domain.Cart) error
	Delete(ctx context.Context, sessionID string) error
}

var ErrCacheMiss = errors.New("cache miss")
