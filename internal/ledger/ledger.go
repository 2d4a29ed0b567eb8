package ledger

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/fjod/go_canteen/internal/domain"
	"github.com/fjod/go_canteen/internal/repository"
)

var ErrInvalidAmount = errors.New("amount must be positive")

// Ledger is the authoritative source of spendable balances. The
// sufficiency check and the mutation are one atomic step inside the
// store; no caller-side balance check is ever trusted.
type Ledger struct {
	store repository.WalletStore
	log   *zap.Logger
}

func New(store repository.WalletStore, log *zap.Logger) *Ledger {
	return &Ledger{store: store, log: log}
}

// Register opens a wallet with balance 0; registering twice is a no-op.
func (l *Ledger) Register(ctx context.Context, userID string) error {
	return l.store.CreateWallet(ctx, userID)
}

func (l *Ledger) Credit(ctx context.Context, userID string, amount int64, description string) (*domain.BalanceTransaction, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	txn, err := l.store.Credit(ctx, userID, amount, description)
	if err != nil {
		return nil, err
	}

	l.log.Info("balance credited",
		zap.String("user_id", userID),
		zap.Int64("amount", amount))
	return txn, nil
}

// Debit fails with repository.ErrInsufficientFunds when the balance
// cannot fund the amount, leaving all state unchanged. A concurrent
// debit that loses the conditional update surfaces the same way.
func (l *Ledger) Debit(ctx context.Context, userID string, amount int64, description string) (*domain.BalanceTransaction, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	txn, err := l.store.Debit(ctx, userID, amount, description)
	if err != nil {
		return nil, err
	}

	l.log.Info("balance debited",
		zap.String("user_id", userID),
		zap.Int64("amount", amount))
	return txn, nil
}

// BalanceOf reads the latest committed balance, never a cached copy.
func (l *Ledger) BalanceOf(ctx context.Context, userID string) (int64, error) {
	return l.store.Balance(ctx, userID)
}

// TransactionsOf returns the user's audit trail, newest first.
func (l *Ledger) TransactionsOf(ctx context.Context, userID string) ([]domain.BalanceTransaction, error) {
	return l.store.Transactions(ctx, userID)
}
