package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/fjod/go_canteen/internal/domain"
)

func (r *Postgres) CreateWallet(ctx context.Context, userID string) error {
	query := `INSERT INTO users (id, balance) VALUES ($1, 0)
	          ON CONFLICT (id) DO NOTHING`

	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("create wallet: %w", err)
	}
	return nil
}

func (r *Postgres) Balance(ctx context.Context, userID string) (int64, error) {
	var balance int64
	err := r.db.QueryRowContext(ctx,
		`SELECT balance FROM users WHERE id = $1`, userID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrWalletNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("query balance: %w", err)
	}
	return balance, nil
}

func (r *Postgres) Credit(ctx context.Context, userID string, amount int64, description string) (*domain.BalanceTransaction, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin credit tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE users SET balance = balance + $1 WHERE id = $2`, amount, userID)
	if err != nil {
		return nil, fmt.Errorf("credit balance: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("credit rows affected: %w", err)
	}
	if affected == 0 {
		return nil, ErrWalletNotFound
	}

	txn, err := appendTransaction(ctx, tx, userID, amount, domain.TransactionDeposit, description)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit credit tx: %w", err)
	}
	return txn, nil
}

// Debit runs the sufficiency check and the decrement as a single
// conditional update, so two racing debits for the same wallet can never
// both pass when only one could be funded.
func (r *Postgres) Debit(ctx context.Context, userID string, amount int64, description string) (*domain.BalanceTransaction, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin debit tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE users SET balance = balance - $1 WHERE id = $2 AND balance >= $1`,
		amount, userID)
	if err != nil {
		return nil, fmt.Errorf("debit balance: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("debit rows affected: %w", err)
	}
	if affected == 0 {
		var exists bool
		if e2 := tx.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists); e2 != nil {
			return nil, fmt.Errorf("debit wallet lookup: %w", e2)
		}
		if !exists {
			return nil, ErrWalletNotFound
		}
		return nil, ErrInsufficientFunds
	}

	txn, err := appendTransaction(ctx, tx, userID, -amount, domain.TransactionPurchase, description)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit debit tx: %w", err)
	}
	return txn, nil
}

func appendTransaction(ctx context.Context, tx *sql.Tx, userID string, amount int64, kind domain.TransactionKind, description string) (*domain.BalanceTransaction, error) {
	txn := &domain.BalanceTransaction{
		ID:          uuid.New().String(),
		UserID:      userID,
		Amount:      amount,
		Kind:        kind,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}

	_, err := tx.ExecContext(ctx,
		`INSERT INTO balance_transactions (id, user_id, amount, kind, description, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		txn.ID, txn.UserID, txn.Amount, txn.Kind, txn.Description, txn.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("append balance transaction: %w", err)
	}
	return txn, nil
}

func (r *Postgres) Transactions(ctx context.Context, userID string) ([]domain.BalanceTransaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, amount, kind, description, created_at
		 FROM balance_transactions WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var txns []domain.BalanceTransaction
	for rows.Next() {
		var txn domain.BalanceTransaction
		if err := rows.Scan(&txn.ID, &txn.UserID, &txn.Amount, &txn.Kind, &txn.Description, &txn.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transaction row: %w", err)
		}
		txns = append(txns, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return txns, nil
}

func (r *Postgres) PlaceOrder(ctx context.Context, order *domain.Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin order tx: %w", err)
	}
	defer tx.Rollback()

	_, insertErr := tx.ExecContext(ctx,
		`INSERT INTO orders (id, user_id, total_price, status, idempotency_key, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		order.ID, order.UserID, order.TotalCharged, order.Status, order.IdempotencyKey, order.CreatedAt)
	if insertErr != nil {
		var pqErr *pq.Error
		if errors.As(insertErr, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateOrder
		}
		return fmt.Errorf("insert order: %w", insertErr)
	}

	for i, item := range order.Items {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO order_items (order_id, meal_id, name, price, quantity, image, category, position)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			order.ID, item.MealID, item.Name, item.UnitPrice, item.Quantity, item.Image, item.Category, i)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	payload, err := json.Marshal(map[string]interface{}{
		"order_id":      order.ID,
		"user_id":       order.UserID,
		"total_charged": order.TotalCharged,
		"items":         order.Items,
		"completed_at":  order.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("marshal order payload: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO order_outbox (aggregate_id, event_type, payload) VALUES ($1, $2, $3)`,
		order.ID, "order.completed", payload)
	if err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit order tx: %w", err)
	}
	return nil
}

func (r *Postgres) OrderByIdempotencyKey(ctx context.Context, key string) (*domain.Order, error) {
	var order domain.Order
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, total_price, status, idempotency_key, created_at
		 FROM orders WHERE idempotency_key = $1`, key).Scan(
		&order.ID, &order.UserID, &order.TotalCharged, &order.Status, &order.IdempotencyKey, &order.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query order by idempotency key: %w", err)
	}

	items, err := r.orderItems(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	order.Items = items
	return &order, nil
}

func (r *Postgres) OrdersByUser(ctx context.Context, userID string) ([]*domain.Order, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, total_price, status, idempotency_key, created_at
		 FROM orders WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query orders by user: %w", err)
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		var order domain.Order
		if err := rows.Scan(&order.ID, &order.UserID, &order.TotalCharged, &order.Status, &order.IdempotencyKey, &order.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, &order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	for _, order := range orders {
		items, err := r.orderItems(ctx, order.ID)
		if err != nil {
			return nil, err
		}
		order.Items = items
	}
	return orders, nil
}

func (r *Postgres) orderItems(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT meal_id, name, price, quantity, image, category
		 FROM order_items WHERE order_id = $1 ORDER BY position`, orderID)
	if err != nil {
		return nil, fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	var items []domain.OrderItem
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.MealID, &item.Name, &item.UnitPrice, &item.Quantity, &item.Image, &item.Category); err != nil {
			return nil, fmt.Errorf("scan order item row: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return items, nil
}

func (r *Postgres) PromoCode(ctx context.Context, code string) (*domain.PromoCode, error) {
	var promo domain.PromoCode
	var validUntil sql.NullTime
	err := r.db.QueryRowContext(ctx,
		`SELECT code, discount_percent, active, valid_until
		 FROM promo_codes WHERE code = $1`, code).Scan(
		&promo.Code, &promo.DiscountPercent, &promo.Active, &validUntil)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPromoNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query promo code: %w", err)
	}
	if validUntil.Valid {
		t := validUntil.Time
		promo.ValidUntil = &t
	}
	return &promo, nil
}

func (r *Postgres) UnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, aggregate_id, event_type, payload, created_at
		 FROM order_outbox WHERE processed = FALSE ORDER BY id LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query outbox events: %w", err)
	}
	defer rows.Close()

	var events []*OutboxEvent
	for rows.Next() {
		var ev OutboxEvent
		if err := rows.Scan(&ev.ID, &ev.AggregateID, &ev.EventType, &ev.Payload, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox row: %w", err)
		}
		events = append(events, &ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return events, nil
}

func (r *Postgres) MarkEventProcessed(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE order_outbox SET processed = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark outbox event processed: %w", err)
	}
	return nil
}
