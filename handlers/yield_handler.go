package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ferreirogomes/quotapool/services"
)

// YieldHandler serves yield distributions, claims and yield-state queries.
type YieldHandler struct {
	Yield *services.YieldService
}

func NewYieldHandler(yield *services.YieldService) *YieldHandler {
	return &YieldHandler{Yield: yield}
}

// Distribute deposits yield into a pool.
// POST /pools/{id}/distribute
func (h *YieldHandler) Distribute(w http.ResponseWriter, r *http.Request) {
	poolID, err := poolIDParam(r)
	if err != nil {
		http.Error(w, "pool id must be an integer", http.StatusBadRequest)
		return
	}

	var requestBody struct {
		CallerID string `json:"caller_id"`
		Amount   int64  `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&requestBody); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	record, err := h.Yield.Distribute(r.Context(), poolID, requestBody.CallerID, requestBody.Amount)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// Claim pays out the caller's accrued yield.
// POST /pools/{id}/claim
func (h *YieldHandler) Claim(w http.ResponseWriter, r *http.Request) {
	poolID, err := poolIDParam(r)
	if err != nil {
		http.Error(w, "pool id must be an integer", http.StatusBadRequest)
		return
	}

	var requestBody struct {
		CallerID string `json:"caller_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&requestBody); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	claimed, err := h.Yield.Claim(r.Context(), poolID, requestBody.CallerID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"claimed": claimed})
}

// GetYieldState returns a pool's cumulative yield accounting.
// GET /pools/{id}/yield
func (h *YieldHandler) GetYieldState(w http.ResponseWriter, r *http.Request) {
	poolID, err := poolIDParam(r)
	if err != nil {
		http.Error(w, "pool id must be an integer", http.StatusBadRequest)
		return
	}

	state, err := h.Yield.GetYieldState(r.Context(), poolID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// GetDistribution returns one distribution audit record.
// GET /distributions/{id}
func (h *YieldHandler) GetDistribution(w http.ResponseWriter, r *http.Request) {
	record, err := h.Yield.GetDistribution(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}
