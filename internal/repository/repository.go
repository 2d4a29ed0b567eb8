package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"

	"github.com/fjod/go_canteen/internal/domain"
)

var (
	ErrWalletNotFound    = errors.New("wallet not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrOrderNotFound     = errors.New("order not found")
	ErrDuplicateOrder    = errors.New("order with this idempotency key already exists")
	ErrPromoNotFound     = errors.New("promo code not found")
)

// OutboxEvent is a pending notification row written in the same
// transaction as the order it describes.
type OutboxEvent struct {
	ID          int64
	AggregateID string
	EventType   string
	Payload     []byte
	CreatedAt   time.Time
}

type WalletStore interface {
	// CreateWallet opens a wallet with balance 0. Calling it again for the
	// same user is a no-op.
	CreateWallet(ctx context.Context, userID string) error
	Balance(ctx context.Context, userID string) (int64, error)
	// Credit atomically increments the balance and appends a deposit
	// transaction for the same amount.
	Credit(ctx context.Context, userID string, amount int64, description string) (*domain.BalanceTransaction, error)
	// Debit atomically checks sufficiency, decrements the balance and
	// appends a purchase transaction of -amount. A debit that would make
	// the balance negative fails with ErrInsufficientFunds and changes
	// nothing.
	Debit(ctx context.Context, userID string, amount int64, description string) (*domain.BalanceTransaction, error)
	Transactions(ctx context.Context, userID string) ([]domain.BalanceTransaction, error)
}

type OrderStore interface {
	// PlaceOrder persists the order header, its item snapshots and an
	// order.completed outbox event as one atomic unit.
	PlaceOrder(ctx context.Context, order *domain.Order) error
	OrderByIdempotencyKey(ctx context.Context, key string) (*domain.Order, error)
	OrdersByUser(ctx context.Context, userID string) ([]*domain.Order, error)
}

type PromoStore interface {
	PromoCode(ctx context.Context, code string) (*domain.PromoCode, error)
}

type OutboxStore interface {
	UnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkEventProcessed(ctx context.Context, id int64) error
}

type Store interface {
	WalletStore
	OrderStore
	PromoStore
	OutboxStore
	Close() error
}

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

type Postgres struct {
	db *sql.DB
}

func NewPostgres(cred *Credentials) (*Postgres, error) {
	psqlconn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cred.Host,
		cred.Port,
		cred.User,
		cred.Password,
		cred.DBName)

	db, err := sql.Open("postgres", psqlconn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if e2 := db.Ping(); e2 != nil {
		return nil, fmt.Errorf("failed to ping database: %w", e2)
	}

	db.SetMaxOpenConns(100)
	db.SetMaxIdleConns(10)
	return &Postgres{db: db}, nil
}

func (r *Postgres) RunMigrations(cred *Credentials) error {
	driver, err := postgres.WithInstance(r.db, &postgres.Config{
		MigrationsTable: "canteen_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", cred.MigrationsDirPath),
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if e2 := m.Up(); e2 != nil && !errors.Is(e2, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", e2)
	}

	return nil
}

func (r *Postgres) Close() error {
	return r.db.Close()
}
