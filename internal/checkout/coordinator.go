package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fjod/go_canteen/internal/domain"
	"github.com/fjod/go_canteen/internal/repository"
)

var (
	ErrEmptyCart             = errors.New("cart is empty, nothing to checkout")
	ErrMissingIdempotencyKey = errors.New("idempotency key is required")
	// ErrCheckoutFailed means the order could not be persisted after the
	// debit succeeded; the debit has been compensated.
	ErrCheckoutFailed = errors.New("checkout failed, charge was refunded")
)

// CartService is the slice of the cart store the coordinator needs.
type CartService interface {
	Get(ctx context.Context, sessionID string) (*domain.Cart, error)
	Clear(ctx context.Context, sessionID string) error
}

// Ledger is the slice of the balance ledger the coordinator needs.
type Ledger interface {
	Debit(ctx context.Context, userID string, amount int64, description string) (*domain.BalanceTransaction, error)
	Credit(ctx context.Context, userID string, amount int64, description string) (*domain.BalanceTransaction, error)
}

// Coordinator turns a cart into a committed order: debit first, then
// order + item snapshots + outbox event in one store transaction. If the
// order write fails after the debit, the charge is credited back so the
// ledger never reflects a debit for an order that does not exist.
type Coordinator struct {
	orders repository.OrderStore
	ledger Ledger
	carts  CartService
	log    *zap.Logger
}

func NewCoordinator(orders repository.OrderStore, ledger Ledger, carts CartService, log *zap.Logger) *Coordinator {
	return &Coordinator{
		orders: orders,
		ledger: ledger,
		carts:  carts,
		log:    log,
	}
}

func (c *Coordinator) Checkout(ctx context.Context, userID, sessionID, idempotencyKey string) (*domain.Order, error) {
	if idempotencyKey == "" {
		return nil, ErrMissingIdempotencyKey
	}

	// A replayed request returns the already-committed order without a
	// second debit.
	existing, err := c.orders.OrderByIdempotencyKey(ctx, idempotencyKey)
	if err == nil {
		c.log.Info("duplicate checkout request",
			zap.String("idempotency_key", idempotencyKey),
			zap.String("order_id", existing.ID))
		return existing, nil
	}
	if !errors.Is(err, repository.ErrOrderNotFound) {
		return nil, fmt.Errorf("failed to check idempotency: %w", err)
	}

	cart, err := c.carts.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to read cart: %w", err)
	}
	if cart.IsEmpty() {
		return nil, ErrEmptyCart
	}

	total := domain.EffectiveTotal(cart.Subtotal(), cart.DiscountPercent())
	order := buildOrder(userID, idempotencyKey, total, cart)

	// A fully discounted order charges nothing; the ledger rejects
	// zero-amount movements.
	if total > 0 {
		if _, err := c.ledger.Debit(ctx, userID, total, "Order #"+order.ID); err != nil {
			return nil, err
		}
	}

	order.Status = domain.OrderStatusCompleted
	if err := c.orders.PlaceOrder(ctx, order); err != nil {
		return nil, c.compensate(ctx, order, total, err)
	}

	if err := c.carts.Clear(ctx, sessionID); err != nil {
		c.log.Warn("failed to clear cart after checkout",
			zap.String("session_id", sessionID), zap.Error(err))
	}

	c.log.Info("order placed",
		zap.String("order_id", order.ID),
		zap.String("user_id", userID),
		zap.Int64("total_charged", total),
		zap.Int("items", len(order.Items)))
	return order, nil
}

func (c *Coordinator) compensate(ctx context.Context, order *domain.Order, total int64, cause error) error {
	order.Status = domain.OrderStatusFailed

	if errors.Is(cause, repository.ErrDuplicateOrder) {
		// A concurrent request with the same key won the unique
		// constraint; refund our debit and return its order.
		if refundErr := c.refund(ctx, order, total); refundErr != nil {
			return refundErr
		}
		return repository.ErrDuplicateOrder
	}

	if refundErr := c.refund(ctx, order, total); refundErr != nil {
		return refundErr
	}
	c.log.Error("order persist failed, charge refunded",
		zap.String("order_id", order.ID), zap.Error(cause))
	return fmt.Errorf("%w: %v", ErrCheckoutFailed, cause)
}

func (c *Coordinator) refund(ctx context.Context, order *domain.Order, total int64) error {
	if total == 0 {
		return nil
	}
	_, err := c.ledger.Credit(ctx, order.UserID, total, "Refund for failed order #"+order.ID)
	if err != nil {
		// The debit is committed and the refund did not land; this is
		// the one state an operator has to reconcile by hand.
		c.log.Error("compensation credit failed",
			zap.String("order_id", order.ID),
			zap.String("user_id", order.UserID),
			zap.Int64("amount", total),
			zap.Error(err))
		return fmt.Errorf("%w: compensation failed: %v", ErrCheckoutFailed, err)
	}
	return nil
}

func buildOrder(userID, idempotencyKey string, total int64, cart *domain.Cart) *domain.Order {
	order := &domain.Order{
		ID:             uuid.New().String(),
		UserID:         userID,
		TotalCharged:   total,
		Status:         domain.OrderStatusPending,
		IdempotencyKey: idempotencyKey,
		Items:          make([]domain.OrderItem, 0, len(cart.Items)),
		CreatedAt:      time.Now().UTC(),
	}
	for _, item := range cart.Items {
		order.Items = append(order.Items, domain.OrderItem{
			MealID:    item.MealID,
			Name:      item.Name,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
			Image:     item.Image,
			Category:  item.Category,
		})
	}
	return order
}

// Orders lists a user's committed orders, newest first.
func (c *Coordinator) Orders(ctx context.Context, userID string) ([]*domain.Order, error) {
	return c.orders.OrdersByUser(ctx, userID)
}
