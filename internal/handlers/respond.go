package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/ayoubkh/schedula/internal/model"
)

var validate = validator.New()

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain sentinels onto the HTTP surface. SlotUnavailable is
// an expected outcome and gets a machine-readable code so clients can offer
// "pick another time" instead of a generic failure.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var verrs validator.ValidationErrors
	switch {
	case errors.Is(err, model.ErrSlotUnavailable):
		respondJSON(w, http.StatusConflict, errorResponse{Error: "slot_unavailable"})
	case errors.Is(err, model.ErrNotFound):
		respondJSON(w, http.StatusNotFound, errorResponse{Error: "not_found"})
	case errors.Is(err, model.ErrInvalidInput), errors.As(err, &verrs):
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_input", Message: err.Error()})
	case errors.Is(err, model.ErrInvalidState):
		respondJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "invalid_state", Message: err.Error()})
	default:
		logger.Error("request failed", "err", err)
		respondJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal"})
	}
}

// decodeJSON parses and validates the request body. Returns false after
// writing the error response.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_input", Message: "invalid json body"})
		return false
	}
	if err := validate.Struct(v); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_input", Message: err.Error()})
		return false
	}
	return true
}

func requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}
