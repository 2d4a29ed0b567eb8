package repository

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fjod/go_canteen/internal/domain"
)

// Memory implements Store with in-memory storage. It backs the dev
// profile and the unit tests; semantics match the postgres store,
// including the conditional debit and the idempotency-key constraint.
type Memory struct {
	mu           sync.RWMutex
	balances     map[string]int64
	transactions map[string][]domain.BalanceTransaction
	orders       map[string]*domain.Order
	ordersByKey  map[string]string // idempotency key -> order id
	promos       map[string]domain.PromoCode
	outbox       []*OutboxEvent
	nextOutboxID int64

	// walletLocks serializes credit/debit per user so operations on
	// different wallets do not contend on mu for the check-and-act pair.
	walletLocks sync.Map
}

func NewMemory() *Memory {
	return &Memory{
		balances:     make(map[string]int64),
		transactions: make(map[string][]domain.BalanceTransaction),
		orders:       make(map[string]*domain.Order),
		ordersByKey:  make(map[string]string),
		promos:       make(map[string]domain.PromoCode),
		nextOutboxID: 1,
	}
}

func (m *Memory) walletLock(userID string) *sync.Mutex {
	v, _ := m.walletLocks.LoadOrStore(userID, &sync.Mutex{})
	return v.(*sync.Mutex)
}

func (m *Memory) CreateWallet(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.balances[userID]; !exists {
		m.balances[userID] = 0
	}
	return nil
}

func (m *Memory) Balance(_ context.Context, userID string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	balance, exists := m.balances[userID]
	if !exists {
		return 0, ErrWalletNotFound
	}
	return balance, nil
}

func (m *Memory) Credit(_ context.Context, userID string, amount int64, description string) (*domain.BalanceTransaction, error) {
	lock := m.walletLock(userID)
	lock.Lock()
	defer lock.Unlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.balances[userID]; !exists {
		return nil, ErrWalletNotFound
	}
	m.balances[userID] += amount
	return m.appendTransaction(userID, amount, domain.TransactionDeposit, description), nil
}

func (m *Memory) Debit(_ context.Context, userID string, amount int64, description string) (*domain.BalanceTransaction, error) {
	lock := m.walletLock(userID)
	lock.Lock()
	defer lock.Unlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	balance, exists := m.balances[userID]
	if !exists {
		return nil, ErrWalletNotFound
	}
	if balance < amount {
		return nil, ErrInsufficientFunds
	}
	m.balances[userID] = balance - amount
	return m.appendTransaction(userID, -amount, domain.TransactionPurchase, description), nil
}

// appendTransaction must be called with mu held.
func (m *Memory) appendTransaction(userID string, amount int64, kind domain.TransactionKind, description string) *domain.BalanceTransaction {
	txn := domain.BalanceTransaction{
		ID:          uuid.New().String(),
		UserID:      userID,
		Amount:      amount,
		Kind:        kind,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}
	m.transactions[userID] = append(m.transactions[userID], txn)
	return &txn
}

func (m *Memory) Transactions(_ context.Context, userID string) ([]domain.BalanceTransaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	txns := make([]domain.BalanceTransaction, len(m.transactions[userID]))
	copy(txns, m.transactions[userID])
	sort.SliceStable(txns, func(i, j int) bool {
		return txns[i].CreatedAt.After(txns[j].CreatedAt)
	})
	return txns, nil
}

func (m *Memory) PlaceOrder(_ context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.ordersByKey[order.IdempotencyKey]; exists {
		return ErrDuplicateOrder
	}

	stored := *order
	stored.Items = make([]domain.OrderItem, len(order.Items))
	copy(stored.Items, order.Items)
	m.orders[stored.ID] = &stored
	m.ordersByKey[stored.IdempotencyKey] = stored.ID

	payload, err := json.Marshal(map[string]interface{}{
		"order_id":      stored.ID,
		"user_id":       stored.UserID,
		"total_charged": stored.TotalCharged,
		"items":         stored.Items,
		"completed_at":  stored.CreatedAt,
	})
	if err != nil {
		return err
	}
	m.outbox = append(m.outbox, &OutboxEvent{
		ID:          m.nextOutboxID,
		AggregateID: stored.ID,
		EventType:   "order.completed",
		Payload:     payload,
		CreatedAt:   time.Now().UTC(),
	})
	m.nextOutboxID++
	return nil
}

func (m *Memory) OrderByIdempotencyKey(_ context.Context, key string) (*domain.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, exists := m.ordersByKey[key]
	if !exists {
		return nil, ErrOrderNotFound
	}
	return copyOrder(m.orders[id]), nil
}

func (m *Memory) OrdersByUser(_ context.Context, userID string) ([]*domain.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var orders []*domain.Order
	for _, order := range m.orders {
		if order.UserID == userID {
			orders = append(orders, copyOrder(order))
		}
	}
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	return orders, nil
}

func copyOrder(order *domain.Order) *domain.Order {
	cp := *order
	cp.Items = make([]domain.OrderItem, len(order.Items))
	copy(cp.Items, order.Items)
	return &cp
}

func (m *Memory) PromoCode(_ context.Context, code string) (*domain.PromoCode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	promo, exists := m.promos[code]
	if !exists {
		return nil, ErrPromoNotFound
	}
	return &promo, nil
}

// SetPromoCode registers a code; promo edits are an external admin
// capability, exposed here for seeding and tests.
func (m *Memory) SetPromoCode(promo domain.PromoCode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.promos[promo.Code] = promo
}

func (m *Memory) UnprocessedEvents(_ context.Context, limit int) ([]*OutboxEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var events []*OutboxEvent
	for _, ev := range m.outbox {
		if len(events) == limit {
			break
		}
		cp := *ev
		events = append(events, &cp)
	}
	return events, nil
}

func (m *Memory) MarkEventProcessed(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, ev := range m.outbox {
		if ev.ID == id {
			m.outbox = append(m.outbox[:i], m.outbox[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *Memory) Close() error {
	return nil
}
