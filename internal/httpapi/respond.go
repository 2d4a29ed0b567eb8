package httpapi

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/fjod/go_canteen/internal/checkout"
	"github.com/fjod/go_canteen/internal/ledger"
	"github.com/fjod/go_canteen/internal/promo"
	"github.com/fjod/go_canteen/internal/repository"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error:   message,
		Code:    code,
		Details: "",
	})
}

// handleServiceError maps service errors to HTTP status codes. No
// failure is swallowed: anything unrecognized surfaces as a 500.
func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, promo.ErrInvalidCode),
		errors.Is(err, checkout.ErrMissingIdempotencyKey),
		errors.Is(err, checkout.ErrEmptyCart):
		respondError(w, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, promo.ErrNotFound):
		respondError(w, http.StatusNotFound, "promo_not_found", err.Error())
	case errors.Is(err, promo.ErrExpired):
		respondError(w, http.StatusUnprocessableEntity, "promo_expired", err.Error())
	case errors.Is(err, promo.ErrInactive):
		respondError(w, http.StatusUnprocessableEntity, "promo_inactive", err.Error())
	case errors.Is(err, repository.ErrInsufficientFunds):
		respondError(w, http.StatusPaymentRequired, "insufficient_funds", err.Error())
	case errors.Is(err, repository.ErrWalletNotFound):
		respondError(w, http.StatusNotFound, "wallet_not_found", err.Error())
	case errors.Is(err, repository.ErrDuplicateOrder):
		respondError(w, http.StatusConflict, "duplicate_order", err.Error())
	case errors.Is(err, checkout.ErrCheckoutFailed):
		respondError(w, http.StatusServiceUnavailable, "checkout_failed", err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
