package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/fjod/go_canteen/internal/domain"
)

func setupTestDB(t *testing.T) (*Postgres, func()) {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)

	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	creds := &Credentials{
		Host:              host,
		Port:              port.Int(),
		User:              "testuser",
		Password:          "testpass",
		DBName:            "testdb",
		MigrationsDirPath: "../../migrations",
	}

	repo, err := NewPostgres(creds)
	require.NoError(t, err)

	err = repo.RunMigrations(creds)
	require.NoError(t, err)

	cleanup := func() {
		repo.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}

	return repo, cleanup
}

func TestPostgres_WalletLifecycle(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	require.NoError(t, repo.CreateWallet(ctx, "user-1"))
	// Registering again must keep the balance untouched.
	require.NoError(t, repo.CreateWallet(ctx, "user-1"))

	balance, err := repo.Balance(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance)

	txn, err := repo.Credit(ctx, "user-1", 850, "Balance top-up")
	require.NoError(t, err)
	assert.Equal(t, int64(850), txn.Amount)
	assert.Equal(t, domain.TransactionDeposit, txn.Kind)

	txn, err = repo.Debit(ctx, "user-1", 400, "Order #abc")
	require.NoError(t, err)
	assert.Equal(t, int64(-400), txn.Amount)
	assert.Equal(t, domain.TransactionPurchase, txn.Kind)

	balance, err = repo.Balance(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(450), balance)

	txns, err := repo.Transactions(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, txns, 2)
	assert.Equal(t, int64(-400), txns[0].Amount) // newest first
	assert.Equal(t, int64(850), txns[1].Amount)
}

func TestPostgres_BalanceUnknownWallet(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := repo.Balance(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrWalletNotFound)
}

func TestPostgres_DebitInsufficientFunds(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, repo.CreateWallet(ctx, "user-1"))
	_, err := repo.Credit(ctx, "user-1", 100, "Balance top-up")
	require.NoError(t, err)

	_, err = repo.Debit(ctx, "user-1", 400, "Order #abc")
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	balance, err := repo.Balance(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(100), balance)

	txns, err := repo.Transactions(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, txns, 1)
}

func TestPostgres_DebitUnknownWallet(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := repo.Debit(context.Background(), "ghost", 100, "Order #abc")
	assert.ErrorIs(t, err, ErrWalletNotFound)
}

func TestPostgres_PlaceOrderAndReadBack(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, repo.CreateWallet(ctx, "user-1"))
	order := &domain.Order{
		ID:             uuid.New().String(),
		UserID:         "user-1",
		TotalCharged:   400,
		Status:         domain.OrderStatusCompleted,
		IdempotencyKey: "key-1",
		Items: []domain.OrderItem{
			{MealID: "borscht", Name: "Borscht", UnitPrice: 180, Quantity: 1, Category: "soups"},
			{MealID: "pelmeni", Name: "Pelmeni", UnitPrice: 220, Quantity: 1, Category: "mains"},
		},
		CreatedAt: time.Now().UTC(),
	}

	require.NoError(t, repo.PlaceOrder(ctx, order))

	got, err := repo.OrderByIdempotencyKey(ctx, "key-1")
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)
	assert.Equal(t, int64(400), got.TotalCharged)
	assert.Equal(t, domain.OrderStatusCompleted, got.Status)
	require.Len(t, got.Items, 2)
	assert.Equal(t, "borscht", got.Items[0].MealID)
	assert.Equal(t, "pelmeni", got.Items[1].MealID)
}

func TestPostgres_PlaceOrderDuplicateKey(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, repo.CreateWallet(ctx, "user-1"))
	first := &domain.Order{
		ID:             uuid.New().String(),
		UserID:         "user-1",
		TotalCharged:   400,
		Status:         domain.OrderStatusCompleted,
		IdempotencyKey: "dup-key",
		CreatedAt:      time.Now().UTC(),
	}
	require.NoError(t, repo.PlaceOrder(ctx, first))

	second := &domain.Order{
		ID:             uuid.New().String(),
		UserID:         "user-1",
		TotalCharged:   400,
		Status:         domain.OrderStatusCompleted,
		IdempotencyKey: "dup-key",
		CreatedAt:      time.Now().UTC(),
	}
	err := repo.PlaceOrder(ctx, second)
	assert.ErrorIs(t, err, ErrDuplicateOrder)
}

func TestPostgres_OrderByIdempotencyKeyNotFound(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := repo.OrderByIdempotencyKey(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestPostgres_OutboxEventWrittenWithOrder(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, repo.CreateWallet(ctx, "user-1"))
	order := &domain.Order{
		ID:             uuid.New().String(),
		UserID:         "user-1",
		TotalCharged:   400,
		Status:         domain.OrderStatusCompleted,
		IdempotencyKey: "key-1",
		CreatedAt:      time.Now().UTC(),
	}
	require.NoError(t, repo.PlaceOrder(ctx, order))

	events, err := repo.UnprocessedEvents(ctx, 100)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, order.ID, events[0].AggregateID)
	assert.Equal(t, "order.completed", events[0].EventType)

	require.NoError(t, repo.MarkEventProcessed(ctx, events[0].ID))

	events, err = repo.UnprocessedEvents(ctx, 100)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestPostgres_PromoCodeLookup(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	until := time.Now().UTC().Add(24 * time.Hour)
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO promo_codes (code, discount_percent, active, valid_until) VALUES ($1, $2, $3, $4)`,
		"WELCOME10", 10, true, until)
	require.NoError(t, err)

	promo, err := repo.PromoCode(ctx, "WELCOME10")
	require.NoError(t, err)
	assert.Equal(t, 10, promo.DiscountPercent)
	assert.True(t, promo.Active)
	require.NotNil(t, promo.ValidUntil)

	_, err = repo.PromoCode(ctx, "NOPE")
	assert.ErrorIs(t, err, ErrPromoNotFound)
}

func TestPostgres_ContextCancellation(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Nanosecond)
	defer cancel()

	time.Sleep(10 * time.Millisecond)

	_, err := repo.Balance(ctx, "any-user")
	assert.Error(t, err)
}
