package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/billbatista/acasinha-ledger/ledger"
	"github.com/billbatista/acasinha-ledger/money"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error   string `json:"error"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return &ledger.ValidationError{Field: "body", Message: err.Error()}
	}
	return nil
}

// writeError maps ledger errors onto HTTP statuses. Invariant violations
// and unexpected errors get a generic message; the details are already in
// the logs.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := h.errorBody(w, r, err)
	writeJSON(w, status, resp)
}

func (h *Handler) errorBody(w http.ResponseWriter, r *http.Request, err error) (int, errorResponse) {
	var verr *ledger.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, errorResponse{Error: "validation_failed", Field: verr.Field, Message: verr.Message}
	case errors.Is(err, ledger.ErrGroupNotFound):
		return http.StatusNotFound, errorResponse{Error: "group_not_found"}
	case errors.Is(err, ledger.ErrNotMember):
		return http.StatusForbidden, errorResponse{Error: "not_a_member"}
	case ledger.IsRetryable(err):
		w.Header().Set("Retry-After", "1")
		return http.StatusServiceUnavailable, errorResponse{Error: "conflict", Message: "the group is busy, retry the request"}
	case errors.Is(err, ledger.ErrInvariant):
		return http.StatusInternalServerError, errorResponse{Error: "internal_error"}
	default:
		h.logger.Error("request failed", "error", err, "method", r.Method, "path", r.URL.Path)
		return http.StatusInternalServerError, errorResponse{Error: "internal_error"}
	}
}

// parseAmount reads a decimal string such as "90.00" in the group currency.
func parseAmount(field, s, currency string) (money.Money, error) {
	m, err := money.Parse(s, currency)
	if err != nil {
		return money.Money{}, &ledger.ValidationError{Field: field, Message: fmt.Sprintf("invalid amount %q: %v", s, err)}
	}
	return m, nil
}
