package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ferreirogomes/quotapool/services"
)

// PoolHandler serves pool creation, lookup, lifecycle and platform settings.
type PoolHandler struct {
	Registry *services.RegistryService
}

func NewPoolHandler(registry *services.RegistryService) *PoolHandler {
	return &PoolHandler{Registry: registry}
}

func poolIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

// CreatePool creates a new asset pool.
// POST /pools
func (h *PoolHandler) CreatePool(w http.ResponseWriter, r *http.Request) {
	var requestBody struct {
		Creator string `json:"creator"`
		services.CreatePoolParams
	}
	if err := json.NewDecoder(r.Body).Decode(&requestBody); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	pool, err := h.Registry.CreatePool(r.Context(), requestBody.Creator, requestBody.CreatePoolParams)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, pool)
}

// GetPool returns a pool by id.
// GET /pools/{id}
func (h *PoolHandler) GetPool(w http.ResponseWriter, r *http.Request) {
	poolID, err := poolIDParam(r)
	if err != nil {
		http.Error(w, "pool id must be an integer", http.StatusBadRequest)
		return
	}

	pool, err := h.Registry.GetPool(r.Context(), poolID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pool)
}

// SetActive flips a pool's active flag.
// PUT /pools/{id}/active
func (h *PoolHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	poolID, err := poolIDParam(r)
	if err != nil {
		http.Error(w, "pool id must be an integer", http.StatusBadRequest)
		return
	}

	var requestBody struct {
		Caller string `json:"caller"`
		Active bool   `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&requestBody); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	pool, err := h.Registry.SetActive(r.Context(), poolID, requestBody.Caller, requestBody.Active)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pool)
}

// SetFeeRate updates the platform fee rate (administrator only).
// PUT /platform/fee-rate
func (h *PoolHandler) SetFeeRate(w http.ResponseWriter, r *http.Request) {
	var requestBody struct {
		Caller     string `json:"caller"`
		FeeRateBps int64  `json:"fee_rate_bps"`
	}
	if err := json.NewDecoder(r.Body).Decode(&requestBody); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	settings, err := h.Registry.SetPlatformFeeRate(r.Context(), requestBody.Caller, requestBody.FeeRateBps)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// GetSettings returns the platform settings.
// GET /platform/settings
func (h *PoolHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.Registry.GetSettings(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}
