package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ayoubkh/schedula/internal/model"
)

func TestWriteErrorMapping(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"slot unavailable", model.ErrSlotUnavailable, http.StatusConflict, "slot_unavailable"},
		{"wrapped slot unavailable", fmt.Errorf("create: %w", model.ErrSlotUnavailable), http.StatusConflict, "slot_unavailable"},
		{"not found", model.ErrNotFound, http.StatusNotFound, "not_found"},
		{"invalid input", fmt.Errorf("%w: weekday out of range", model.ErrInvalidInput), http.StatusBadRequest, "invalid_input"},
		{"invalid state", fmt.Errorf("%w: cannot reschedule a canceled appointment", model.ErrInvalidState), http.StatusUnprocessableEntity, "invalid_state"},
		{"storage failure", fmt.Errorf("connection refused"), http.StatusInternalServerError, "internal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeError(rec, logger, tt.err)
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			var body errorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("bad body: %v", err)
			}
			if body.Error != tt.code {
				t.Errorf("error code = %q, want %q", body.Error, tt.code)
			}
		})
	}
}

func TestDecodeJSONValidates(t *testing.T) {
	type payload struct {
		BusinessID string `json:"business_id" validate:"required,uuid"`
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Body = http.NoBody
	var p payload
	if decodeJSON(rec, req, &p) {
		t.Error("expected empty body to fail decoding")
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}
