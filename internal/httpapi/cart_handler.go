package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fjod/go_canteen/internal/catalog"
	"github.com/fjod/go_canteen/internal/domain"
)

// CartService is what the cart endpoints need from the cart store.
type CartService interface {
	Get(ctx context.Context, sessionID string) (*domain.Cart, error)
	AddItem(ctx context.Context, sessionID string, item *catalog.ItemDescriptor) (*domain.Cart, error)
	RemoveItem(ctx context.Context, sessionID, mealID string) (*domain.Cart, error)
	UpdateQuantity(ctx context.Context, sessionID, mealID string, quantity int) (*domain.Cart, error)
	Clear(ctx context.Context, sessionID string) error
}

// PromoApplier validates a code and records it on the session's cart.
type PromoApplier interface {
	Apply(ctx context.Context, sessionID, code string) (*domain.Cart, error)
}

type CartHandler struct {
	carts   CartService
	catalog catalog.Catalog
	promos  PromoApplier
	timeout time.Duration
}

func NewCartHandler(carts CartService, cat catalog.Catalog, promos PromoApplier, timeout time.Duration) *CartHandler {
	return &CartHandler{
		carts:   carts,
		catalog: cat,
		promos:  promos,
		timeout: timeout,
	}
}

type AddItemRequestDTO struct {
	MealID string `json:"meal_id"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

type ApplyPromoRequestDTO struct {
	Code string `json:"code"`
}

type CartResponseDTO struct {
	SessionID  string               `json:"session_id"`
	Items      []domain.CartItem    `json:"items"`
	Promo      *domain.AppliedPromo `json:"promo,omitempty"`
	TotalItems int                  `json:"total_items"`
	Subtotal   int64                `json:"subtotal"`
	Total      int64                `json:"total"`
}

func cartResponse(cart *domain.Cart) CartResponseDTO {
	subtotal := cart.Subtotal()
	return CartResponseDTO{
		SessionID:  cart.SessionID,
		Items:      cart.Items,
		Promo:      cart.Promo,
		TotalItems: cart.TotalItems(),
		Subtotal:   subtotal,
		Total:      domain.EffectiveTotal(subtotal, cart.DiscountPercent()),
	}
}

// GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sessionID := getSessionIDFromContext(r.Context())
	if sessionID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}

	cart, err := h.carts.Get(ctx, sessionID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, cartResponse(cart))
}

// POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sessionID := getSessionIDFromContext(r.Context())
	if sessionID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.MealID == "" {
		respondError(w, http.StatusBadRequest, "invalid_meal_id", "meal_id is required")
		return
	}

	item, ok := h.catalog.Item(ctx, req.MealID)
	if !ok {
		respondError(w, http.StatusNotFound, "meal_not_found", "no such meal")
		return
	}
	if !item.Available {
		respondError(w, http.StatusUnprocessableEntity, "meal_unavailable", "meal is not available")
		return
	}

	cart, err := h.carts.AddItem(ctx, sessionID, item)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, cartResponse(cart))
}

// PUT /api/v1/cart/items/{meal_id}
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sessionID := getSessionIDFromContext(r.Context())
	if sessionID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}

	mealID := chi.URLParam(r, "meal_id")
	if mealID == "" {
		respondError(w, http.StatusBadRequest, "invalid_meal_id", "meal_id is required")
		return
	}

	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Quantity > 99 {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be at most 99")
		return
	}

	// A quantity of zero or less removes the item.
	cart, err := h.carts.UpdateQuantity(ctx, sessionID, mealID, req.Quantity)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, cartResponse(cart))
}

// DELETE /api/v1/cart/items/{meal_id}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sessionID := getSessionIDFromContext(r.Context())
	if sessionID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}

	mealID := chi.URLParam(r, "meal_id")
	if mealID == "" {
		respondError(w, http.StatusBadRequest, "invalid_meal_id", "meal_id is required")
		return
	}

	cart, err := h.carts.RemoveItem(ctx, sessionID, mealID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, cartResponse(cart))
}

// DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sessionID := getSessionIDFromContext(r.Context())
	if sessionID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}

	if err := h.carts.Clear(ctx, sessionID); err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// POST /api/v1/cart/promo
func (h *CartHandler) ApplyPromo(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sessionID := getSessionIDFromContext(r.Context())
	if sessionID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}

	var req ApplyPromoRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	cart, err := h.promos.Apply(ctx, sessionID, req.Code)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, cartResponse(cart))
}
