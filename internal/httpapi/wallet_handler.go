package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/fjod/go_canteen/internal/domain"
)

// WalletService is what the wallet endpoints need from the ledger.
type WalletService interface {
	Register(ctx context.Context, userID string) error
	Credit(ctx context.Context, userID string, amount int64, description string) (*domain.BalanceTransaction, error)
	BalanceOf(ctx context.Context, userID string) (int64, error)
	TransactionsOf(ctx context.Context, userID string) ([]domain.BalanceTransaction, error)
}

type WalletHandler struct {
	ledger  WalletService
	timeout time.Duration
}

func NewWalletHandler(ledger WalletService, timeout time.Duration) *WalletHandler {
	return &WalletHandler{ledger: ledger, timeout: timeout}
}

type TopUpRequestDTO struct {
	Amount int64 `json:"amount"`
}

type WalletResponseDTO struct {
	UserID       string                      `json:"user_id"`
	Balance      int64                       `json:"balance"`
	Transactions []domain.BalanceTransaction `json:"transactions"`
}

// POST /api/v1/wallet
// Opens a wallet with balance 0 when a user registers; repeating the
// call is a no-op.
func (h *WalletHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	if err := h.ledger.Register(ctx, userID); err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]string{"user_id": userID})
}

// GET /api/v1/wallet
func (h *WalletHandler) GetWallet(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	balance, err := h.ledger.BalanceOf(ctx, userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	txns, err := h.ledger.TransactionsOf(ctx, userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, WalletResponseDTO{
		UserID:       userID,
		Balance:      balance,
		Transactions: txns,
	})
}

// POST /api/v1/wallet/topup
func (h *WalletHandler) TopUp(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	var req TopUpRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	txn, err := h.ledger.Credit(ctx, userID, req.Amount, "Balance top-up")
	if err != nil {
		handleServiceError(w, err)
		return
	}

	balance, err := h.ledger.BalanceOf(ctx, userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"balance":     balance,
		"transaction": txn,
	})
}
