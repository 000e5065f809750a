package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ferreirogomes/quotapool/services"
)

// LedgerHandler serves share purchases and holding queries.
type LedgerHandler struct {
	Ledger *services.LedgerService
}

func NewLedgerHandler(ledger *services.LedgerService) *LedgerHandler {
	return &LedgerHandler{Ledger: ledger}
}

// Purchase buys shares in a pool.
// POST /pools/{id}/purchase
func (h *LedgerHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	poolID, err := poolIDParam(r)
	if err != nil {
		http.Error(w, "pool id must be an integer", http.StatusBadRequest)
		return
	}

	var requestBody struct {
		BuyerID string `json:"buyer_id"`
		Shares  int64  `json:"shares"`
	}
	if err := json.NewDecoder(r.Body).Decode(&requestBody); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	receipt, err := h.Ledger.Purchase(r.Context(), poolID, requestBody.BuyerID, requestBody.Shares)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

// GetHolding returns one user's position in a pool.
// GET /pools/{id}/holdings/{userID}
func (h *LedgerHandler) GetHolding(w http.ResponseWriter, r *http.Request) {
	poolID, err := poolIDParam(r)
	if err != nil {
		http.Error(w, "pool id must be an integer", http.StatusBadRequest)
		return
	}

	holding, err := h.Ledger.GetHolding(r.Context(), chi.URLParam(r, "userID"), poolID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, holding)
}

// GetUserShares returns a user's all-pool share total.
// GET /users/{id}/shares
func (h *LedgerHandler) GetUserShares(w http.ResponseWriter, r *http.Request) {
	total, err := h.Ledger.GetUserTotalShares(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"total_shares": total})
}
