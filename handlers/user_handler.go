package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ferreirogomes/quotapool/models"
	"github.com/ferreirogomes/quotapool/services"
)

// UserHandler registers users and their wallet addresses. The gateway needs
// the wallet mapping for every purchase, distribution and claim.
type UserHandler struct {
	Store services.Store
}

func NewUserHandler(store services.Store) *UserHandler {
	return &UserHandler{Store: store}
}

// CreateUser registers a new user.
// POST /users
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var requestBody struct {
		Name   string `json:"name"`
		Email  string `json:"email"`
		Wallet string `json:"wallet"`
	}
	if err := json.NewDecoder(r.Body).Decode(&requestBody); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if requestBody.Name == "" || requestBody.Wallet == "" {
		http.Error(w, "name and wallet are required", http.StatusBadRequest)
		return
	}

	user := models.User{
		ID:        uuid.New().String(),
		Name:      requestBody.Name,
		Email:     requestBody.Email,
		Wallet:    requestBody.Wallet,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.Store.SaveUser(r.Context(), user); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// GetUser returns a user by id.
// GET /users/{id}
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.Store.GetUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
