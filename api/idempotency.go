package api

import (
	"bytes"
	"errors"
	"net/http"

	"github.com/billbatista/acasinha-ledger/idempotency"
	"github.com/billbatista/acasinha-ledger/ledger"
)

const replayedHeader = "Idempotent-Replayed"

type capturingWriter struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (c *capturingWriter) WriteHeader(status int) {
	c.status = status
	c.ResponseWriter.WriteHeader(status)
}

func (c *capturingWriter) Write(b []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	c.body.Write(b)
	return c.ResponseWriter.Write(b)
}

// idempotent replays the stored response when a request repeats an
// Idempotency-Key already used in the group. Only successful responses are
// remembered, so a rejected request can be corrected and resent. A key is
// bound to the method and path it was first used with; reusing it for
// another request is refused with 422.
func (h *Handler) idempotent(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(idempotency.HeaderName)
		if key == "" || h.keys == nil {
			next.ServeHTTP(w, r)
			return
		}
		if err := idempotency.ValidKey(key); err != nil {
			h.writeError(w, r, &ledger.ValidationError{Field: idempotency.HeaderName, Message: err.Error()})
			return
		}

		gid := groupID(r)
		request := r.Method + " " + r.URL.Path
		rec, err := h.keys.Get(r.Context(), gid, key)
		switch {
		case err == nil && rec.Request != request:
			writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
				Error:   "idempotency_key_reused",
				Field:   idempotency.HeaderName,
				Message: "key was already used for " + rec.Request,
			})
			return
		case err == nil:
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set(replayedHeader, "true")
			w.WriteHeader(rec.Status)
			w.Write(rec.Body)
			return
		case errors.Is(err, idempotency.ErrNotFound), errors.Is(err, idempotency.ErrExpired):
		default:
			h.writeError(w, r, err)
			return
		}

		cw := &capturingWriter{ResponseWriter: w}
		next.ServeHTTP(cw, r)

		if cw.status < 200 || cw.status >= 300 {
			return
		}
		if _, err := h.keys.Save(r.Context(), gid, key, request, cw.status, cw.body.Bytes()); err != nil {
			h.logger.Warn("failed to remember idempotency key", "error", err, "group_id", gid)
		}
	})
}
