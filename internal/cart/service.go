package cart

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/fjod/go_canteen/internal/cache"
	"github.com/fjod/go_canteen/internal/catalog"
	"github.com/fjod/go_canteen/internal/domain"
)

// Service owns the in-progress carts, one per session. The in-memory
// state is authoritative; the cache only lets a session survive a
// restart and is rebuilt from here on every mutation.
type Service struct {
	mu    sync.RWMutex
	carts map[string]*domain.Cart
	cache cache.CartCache
	sfg   singleflight.Group // Prevents concurrent rebuilds of the same session
	log   *zap.Logger
}

func NewService(cartCache cache.CartCache, log *zap.Logger) *Service {
	return &Service{
		carts: make(map[string]*domain.Cart),
		cache: cartCache,
		log:   log,
	}
}

// Get returns a snapshot copy of the session's cart with totals
// recomputed. A session unknown to this process is rebuilt from the
// cache; a cache miss yields an empty cart.
func (s *Service) Get(ctx context.Context, sessionID string) (*domain.Cart, error) {
	s.mu.RLock()
	if cart, ok := s.carts[sessionID]; ok {
		snapshot := snapshotCart(cart)
		s.mu.RUnlock()
		return snapshot, nil
	}
	s.mu.RUnlock()

	v, err, _ := s.sfg.Do(sessionID, func() (interface{}, error) {
		s.mu.RLock()
		if cart, ok := s.carts[sessionID]; ok {
			snapshot := snapshotCart(cart)
			s.mu.RUnlock()
			return snapshot, nil
		}
		s.mu.RUnlock()

		cached, err := s.cache.Get(ctx, sessionID)
		if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
			s.log.Warn("cart cache get failed", zap.String("session_id", sessionID), zap.Error(err))
		}

		now := time.Now().UTC()
		cart := cached
		if cart == nil {
			cart = &domain.Cart{SessionID: sessionID, CreatedAt: now, UpdatedAt: now}
		}

		s.mu.Lock()
		s.carts[sessionID] = cart
		snapshot := snapshotCart(cart)
		s.mu.Unlock()
		return snapshot, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Cart), nil
}

// AddItem increments the quantity when the meal is already in the cart,
// otherwise appends it with quantity 1.
func (s *Service) AddItem(ctx context.Context, sessionID string, item *catalog.ItemDescriptor) (*domain.Cart, error) {
	return s.mutate(ctx, sessionID, func(cart *domain.Cart) {
		for i := range cart.Items {
			if cart.Items[i].MealID == item.MealID {
				cart.Items[i].Quantity++
				return
			}
		}
		cart.Items = append(cart.Items, domain.CartItem{
			MealID:    item.MealID,
			Name:      item.Name,
			UnitPrice: item.UnitPrice,
			Quantity:  1,
			Image:     item.Image,
			Category:  item.Category,
		})
	})
}

// RemoveItem deletes the entry; removing an absent meal is a no-op.
func (s *Service) RemoveItem(ctx context.Context, sessionID, mealID string) (*domain.Cart, error) {
	return s.mutate(ctx, sessionID, func(cart *domain.Cart) {
		for i := range cart.Items {
			if cart.Items[i].MealID == mealID {
				cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)
				return
			}
		}
	})
}

// UpdateQuantity sets the quantity; a quantity of zero or less removes
// the item.
func (s *Service) UpdateQuantity(ctx context.Context, sessionID, mealID string, quantity int) (*domain.Cart, error) {
	if quantity <= 0 {
		return s.RemoveItem(ctx, sessionID, mealID)
	}
	return s.mutate(ctx, sessionID, func(cart *domain.Cart) {
		for i := range cart.Items {
			if cart.Items[i].MealID == mealID {
				cart.Items[i].Quantity = quantity
				return
			}
		}
	})
}

// Clear empties the cart and drops any applied promo.
func (s *Service) Clear(ctx context.Context, sessionID string) error {
	_, err := s.mutate(ctx, sessionID, func(cart *domain.Cart) {
		cart.Items = nil
		cart.Promo = nil
	})
	return err
}

// SetPromo records the discount for this session's cart, replacing any
// previously applied code.
func (s *Service) SetPromo(ctx context.Context, sessionID string, promo domain.AppliedPromo) (*domain.Cart, error) {
	return s.mutate(ctx, sessionID, func(cart *domain.Cart) {
		cart.Promo = &promo
	})
}

func (s *Service) mutate(ctx context.Context, sessionID string, fn func(*domain.Cart)) (*domain.Cart, error) {
	// Rebuild the session first so a mutation after a restart does not
	// silently start from an empty cart.
	if _, err := s.Get(ctx, sessionID); err != nil {
		return nil, err
	}

	s.mu.Lock()
	cart := s.carts[sessionID]
	fn(cart)
	cart.UpdatedAt = time.Now().UTC()
	snapshot := snapshotCart(cart)
	s.mu.Unlock()

	s.writeThrough(sessionID, snapshot)
	return snapshot, nil
}

func (s *Service) writeThrough(sessionID string, cart *domain.Cart) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Set(ctx, sessionID, cart); err != nil {
		s.log.Warn("cart cache set failed", zap.String("session_id", sessionID), zap.Error(err))
	}
}

func snapshotCart(cart *domain.Cart) *domain.Cart {
	snapshot := *cart
	snapshot.Items = make([]domain.CartItem, len(cart.Items))
	copy(snapshot.Items, cart.Items)
	if cart.Promo != nil {
		promo := *cart.Promo
		snapshot.Promo = &promo
	}
	return &snapshot
}
