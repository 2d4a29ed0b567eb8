package domain

import "time"

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusCompleted OrderStatus = "COMPLETED"
	OrderStatusFailed    OrderStatus = "FAILED"
)

func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusFailed
}

// String representation (for logging)
func (s OrderStatus) String() string {
	return string(s)
}

// CanTransitionTo reports whether an order may move from one status to
// another. Orders start pending and end completed or failed.
func CanTransitionTo(from, to OrderStatus) bool {
	if from.IsTerminal() {
		return false
	}
	return to == OrderStatusCompleted || to == OrderStatusFailed
}

type Order struct {
	ID             string      `json:"id"`
	UserID         string      `json:"user_id"`
	TotalCharged   int64       `json:"total_charged"`
	Status         OrderStatus `json:"status"`
	IdempotencyKey string      `json:"idempotency_key"`
	Items          []OrderItem `json:"items"`
	CreatedAt      time.Time   `json:"created_at"`
}

// OrderItem is a snapshot of a cart line copied at checkout time.
// It is immutable afterwards and decoupled from later catalog changes.
type OrderItem struct {
	MealID    string `json:"meal_id"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"unit_price"`
	Quantity  int    `json:"quantity"`
	Image     string `json:"image"`
	Category  string `json:"category"`
}
