package domain

import "time"

// Wallet is a user's prepaid balance in minor currency units.
// The balance is never negative at any observable instant and always
// equals the running sum of the user's transactions.
type Wallet struct {
	UserID  string `json:"user_id"`
	Balance int64  `json:"balance"`
}

type TransactionKind string

const (
	TransactionDeposit  TransactionKind = "deposit"
	TransactionPurchase TransactionKind = "purchase"
)

// BalanceTransaction is an append-only audit record. Amounts are signed:
// deposits positive, purchases negative.
type BalanceTransaction struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	Amount      int64           `json:"amount"`
	Kind        TransactionKind `json:"kind"`
	Description string          `json:"description"`
	CreatedAt   time.Time       `json:"created_at"`
}
