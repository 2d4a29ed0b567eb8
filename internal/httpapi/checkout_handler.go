package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/fjod/go_canteen/internal/domain"
)

// CheckoutService is what the checkout endpoints need from the
// coordinator.
type CheckoutService interface {
	Checkout(ctx context.Context, userID, sessionID, idempotencyKey string) (*domain.Order, error)
	Orders(ctx context.Context, userID string) ([]*domain.Order, error)
}

type CheckoutHandler struct {
	checkout CheckoutService
	timeout  time.Duration
}

func NewCheckoutHandler(checkout CheckoutService, timeout time.Duration) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkout, timeout: timeout}
}

type CheckoutRequestDTO struct {
	IdempotencyKey string `json:"idempotency_key"`
}

type OrderResponseDTO struct {
	ID           string             `json:"id"`
	TotalCharged int64              `json:"total_charged"`
	Status       string             `json:"status"`
	Items        []domain.OrderItem `json:"items"`
	CreatedAt    string             `json:"created_at"`
}

func orderResponse(order *domain.Order) OrderResponseDTO {
	return OrderResponseDTO{
		ID:           order.ID,
		TotalCharged: order.TotalCharged,
		Status:       order.Status.String(),
		Items:        order.Items,
		CreatedAt:    order.CreatedAt.Format(time.RFC3339),
	}
}

// POST /api/v1/checkout
func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}
	sessionID := getSessionIDFromContext(r.Context())

	var req CheckoutRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.IdempotencyKey == "" {
		respondError(w, http.StatusBadRequest, "missing_idempotency_key",
			"idempotency_key is required")
		return
	}

	order, err := h.checkout.Checkout(ctx, userID, sessionID, req.IdempotencyKey)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, orderResponse(order))
}

// GET /api/v1/orders
func (h *CheckoutHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	orders, err := h.checkout.Orders(ctx, userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	dtos := make([]OrderResponseDTO, 0, len(orders))
	for _, order := range orders {
		dtos = append(dtos, orderResponse(order))
	}
	respondJSON(w, http.StatusOK, dtos)
}
