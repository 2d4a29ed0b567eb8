package httpapi

import (
	"context"

	"github.com/fjod/go_canteen/internal/catalog"
	"github.com/fjod/go_canteen/internal/domain"
)

// mockCartService implements CartService for handler tests.
type mockCartService struct {
	cart    *domain.Cart
	err     error
	cleared bool
}

func (m *mockCartService) Get(_ context.Context, _ string) (*domain.Cart, error) {
	return m.cart, m.err
}

func (m *mockCartService) AddItem(_ context.Context, _ string, _ *catalog.ItemDescriptor) (*domain.Cart, error) {
	return m.cart, m.err
}

func (m *mockCartService) RemoveItem(_ context.Context, _, _ string) (*domain.Cart, error) {
	return m.cart, m.err
}

func (m *mockCartService) UpdateQuantity(_ context.Context, _, _ string, _ int) (*domain.Cart, error) {
	return m.cart, m.err
}

func (m *mockCartService) Clear(_ context.Context, _ string) error {
	m.cleared = true
	return m.err
}

// mockPromoApplier implements PromoApplier.
type mockPromoApplier struct {
	cart *domain.Cart
	err  error
}

func (m *mockPromoApplier) Apply(_ context.Context, _, _ string) (*domain.Cart, error) {
	return m.cart, m.err
}

// mockCatalog implements catalog.Catalog.
type mockCatalog struct {
	items map[string]*catalog.ItemDescriptor
}

func (m *mockCatalog) Item(_ context.Context, mealID string) (*catalog.ItemDescriptor, bool) {
	item, ok := m.items[mealID]
	return item, ok
}

// mockWalletService implements WalletService.
type mockWalletService struct {
	balance     int64
	txn         *domain.BalanceTransaction
	txns        []domain.BalanceTransaction
	registerErr error
	creditErr   error
	balanceErr  error
}

func (m *mockWalletService) Register(_ context.Context, _ string) error {
	return m.registerErr
}

func (m *mockWalletService) Credit(_ context.Context, _ string, _ int64, _ string) (*domain.BalanceTransaction, error) {
	return m.txn, m.creditErr
}

func (m *mockWalletService) BalanceOf(_ context.Context, _ string) (int64, error) {
	return m.balance, m.balanceErr
}

func (m *mockWalletService) TransactionsOf(_ context.Context, _ string) ([]domain.BalanceTransaction, error) {
	return m.txns, nil
}

// mockCheckoutService implements CheckoutService.
type mockCheckoutService struct {
	order  *domain.Order
	orders []*domain.Order
	err    error
}

func (m *mockCheckoutService) Checkout(_ context.Context, _, _, _ string) (*domain.Order, error) {
	return m.order, m.err
}

func (m *mockCheckoutService) Orders(_ context.Context, _ string) ([]*domain.Order, error) {
	return m.orders, m.err
}
