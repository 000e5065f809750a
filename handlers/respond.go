package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ferreirogomes/quotapool/services"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps engine errors to HTTP statuses. Every engine failure is a
// typed outcome, so anything unrecognized is a genuine server error.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrPoolNotFound),
		errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrHoldingNotFound),
		errors.Is(err, services.ErrDistributionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, services.ErrInvalidParameter),
		errors.Is(err, services.ErrInvalidAmount):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrInsufficientBalance),
		errors.Is(err, services.ErrPoolInactive),
		errors.Is(err, services.ErrCapacityExceeded),
		errors.Is(err, services.ErrInsufficientShares),
		errors.Is(err, services.ErrNothingToClaim):
		status = http.StatusConflict
	case errors.Is(err, services.ErrGatewayFailure):
		status = http.StatusBadGateway
	}
	http.Error(w, err.Error(), status)
}
