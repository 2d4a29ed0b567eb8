package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fjod/go_canteen/internal/catalog"
	"github.com/fjod/go_canteen/internal/domain"
	"github.com/fjod/go_canteen/internal/promo"
)

func sessionRequest(method, target string, body []byte) *http.Request {
	var request *http.Request
	if body != nil {
		request = httptest.NewRequest(method, target, bytes.NewReader(body))
	} else {
		request = httptest.NewRequest(method, target, nil)
	}
	ctx := context.WithValue(request.Context(), "session_id", "session-1")
	ctx = context.WithValue(ctx, "user_id", "user-1")
	return request.WithContext(ctx)
}

func testCatalog() *mockCatalog {
	return &mockCatalog{items: map[string]*catalog.ItemDescriptor{
		"borscht": {MealID: "borscht", Name: "Borscht", UnitPrice: 180, Available: true},
		"soldout": {MealID: "soldout", Name: "Sold Out", UnitPrice: 100, Available: false},
	}}
}

func TestGetCart_Success(t *testing.T) {
	carts := &mockCartService{cart: &domain.Cart{
		SessionID: "session-1",
		Items:     []domain.CartItem{{MealID: "borscht", Name: "Borscht", UnitPrice: 180, Quantity: 2}},
		Promo:     &domain.AppliedPromo{Code: "WELCOME10", DiscountPercent: 10},
	}}
	handler := NewCartHandler(carts, testCatalog(), &mockPromoApplier{}, 5*time.Second)

	recorder := httptest.NewRecorder()
	handler.GetCart(recorder, sessionRequest("GET", "/api/v1/cart", nil))

	require.Equal(t, http.StatusOK, recorder.Code)

	var response CartResponseDTO
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))
	assert.Equal(t, "session-1", response.SessionID)
	assert.Equal(t, 2, response.TotalItems)
	assert.Equal(t, int64(360), response.Subtotal)
	assert.Equal(t, int64(324), response.Total) // 360 minus 10%
}

func TestGetCart_Unauthorized(t *testing.T) {
	handler := NewCartHandler(&mockCartService{}, testCatalog(), &mockPromoApplier{}, 5*time.Second)

	recorder := httptest.NewRecorder()
	handler.GetCart(recorder, httptest.NewRequest("GET", "/api/v1/cart", nil))

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestAddItem_Success(t *testing.T) {
	carts := &mockCartService{cart: &domain.Cart{
		SessionID: "session-1",
		Items:     []domain.CartItem{{MealID: "borscht", Name: "Borscht", UnitPrice: 180, Quantity: 1}},
	}}
	handler := NewCartHandler(carts, testCatalog(), &mockPromoApplier{}, 5*time.Second)

	body, _ := json.Marshal(AddItemRequestDTO{MealID: "borscht"})
	recorder := httptest.NewRecorder()
	handler.AddItem(recorder, sessionRequest("POST", "/api/v1/cart/items", body))

	require.Equal(t, http.StatusCreated, recorder.Code)

	var response CartResponseDTO
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))
	assert.Equal(t, int64(180), response.Subtotal)
}

func TestAddItem_UnknownMeal(t *testing.T) {
	handler := NewCartHandler(&mockCartService{}, testCatalog(), &mockPromoApplier{}, 5*time.Second)

	body, _ := json.Marshal(AddItemRequestDTO{MealID: "unknown"})
	recorder := httptest.NewRecorder()
	handler.AddItem(recorder, sessionRequest("POST", "/api/v1/cart/items", body))

	assert.Equal(t, http.StatusNotFound, recorder.Code)

	var response ErrorResponse
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))
	assert.Equal(t, "meal_not_found", response.Code)
}

func TestAddItem_UnavailableMeal(t *testing.T) {
	handler := NewCartHandler(&mockCartService{}, testCatalog(), &mockPromoApplier{}, 5*time.Second)

	body, _ := json.Marshal(AddItemRequestDTO{MealID: "soldout"})
	recorder := httptest.NewRecorder()
	handler.AddItem(recorder, sessionRequest("POST", "/api/v1/cart/items", body))

	assert.Equal(t, http.StatusUnprocessableEntity, recorder.Code)
}

func TestAddItem_InvalidBody(t *testing.T) {
	handler := NewCartHandler(&mockCartService{}, testCatalog(), &mockPromoApplier{}, 5*time.Second)

	recorder := httptest.NewRecorder()
	handler.AddItem(recorder, sessionRequest("POST", "/api/v1/cart/items", []byte("{not json")))

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestUpdateQuantity_TooLarge(t *testing.T) {
	handler := NewCartHandler(&mockCartService{}, testCatalog(), &mockPromoApplier{}, 5*time.Second)

	body, _ := json.Marshal(UpdateQuantityRequestDTO{Quantity: 100})
	request := sessionRequest("PUT", "/api/v1/cart/items/borscht", body)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("meal_id", "borscht")
	request = request.WithContext(context.WithValue(request.Context(), chi.RouteCtxKey, rctx))

	recorder := httptest.NewRecorder()
	handler.UpdateQuantity(recorder, request)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestUpdateQuantity_Success(t *testing.T) {
	carts := &mockCartService{cart: &domain.Cart{
		SessionID: "session-1",
		Items:     []domain.CartItem{{MealID: "borscht", UnitPrice: 180, Quantity: 3}},
	}}
	handler := NewCartHandler(carts, testCatalog(), &mockPromoApplier{}, 5*time.Second)

	body, _ := json.Marshal(UpdateQuantityRequestDTO{Quantity: 3})
	request := sessionRequest("PUT", "/api/v1/cart/items/borscht", body)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("meal_id", "borscht")
	request = request.WithContext(context.WithValue(request.Context(), chi.RouteCtxKey, rctx))

	recorder := httptest.NewRecorder()
	handler.UpdateQuantity(recorder, request)

	require.Equal(t, http.StatusOK, recorder.Code)

	var response CartResponseDTO
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))
	assert.Equal(t, 3, response.TotalItems)
}

func TestClearCart_Success(t *testing.T) {
	carts := &mockCartService{}
	handler := NewCartHandler(carts, testCatalog(), &mockPromoApplier{}, 5*time.Second)

	recorder := httptest.NewRecorder()
	handler.ClearCart(recorder, sessionRequest("DELETE", "/api/v1/cart", nil))

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.True(t, carts.cleared)
}

func TestApplyPromo_Success(t *testing.T) {
	promos := &mockPromoApplier{cart: &domain.Cart{
		SessionID: "session-1",
		Items:     []domain.CartItem{{MealID: "borscht", UnitPrice: 180, Quantity: 1}},
		Promo:     &domain.AppliedPromo{Code: "WELCOME10", DiscountPercent: 10},
	}}
	handler := NewCartHandler(&mockCartService{}, testCatalog(), promos, 5*time.Second)

	body, _ := json.Marshal(ApplyPromoRequestDTO{Code: "WELCOME10"})
	recorder := httptest.NewRecorder()
	handler.ApplyPromo(recorder, sessionRequest("POST", "/api/v1/cart/promo", body))

	require.Equal(t, http.StatusOK, recorder.Code)

	var response CartResponseDTO
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))
	require.NotNil(t, response.Promo)
	assert.Equal(t, "WELCOME10", response.Promo.Code)
	assert.Equal(t, int64(162), response.Total)
}

func TestApplyPromo_ExpiredCode(t *testing.T) {
	promos := &mockPromoApplier{err: promo.ErrExpired}
	handler := NewCartHandler(&mockCartService{}, testCatalog(), promos, 5*time.Second)

	body, _ := json.Marshal(ApplyPromoRequestDTO{Code: "EXPIRED2023"})
	recorder := httptest.NewRecorder()
	handler.ApplyPromo(recorder, sessionRequest("POST", "/api/v1/cart/promo", body))

	assert.Equal(t, http.StatusUnprocessableEntity, recorder.Code)

	var response ErrorResponse
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))
	assert.Equal(t, "promo_expired", response.Code)
}

func TestApplyPromo_UnknownCode(t *testing.T) {
	promos := &mockPromoApplier{err: promo.ErrNotFound}
	handler := NewCartHandler(&mockCartService{}, testCatalog(), promos, 5*time.Second)

	body, _ := json.Marshal(ApplyPromoRequestDTO{Code: "NOPE"})
	recorder := httptest.NewRecorder()
	handler.ApplyPromo(recorder, sessionRequest("POST", "/api/v1/cart/promo", body))

	assert.Equal(t, http.StatusNotFound, recorder.Code)
}
