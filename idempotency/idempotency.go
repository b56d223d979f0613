// Package idempotency remembers the response to a write request so that a
// client retrying with the same Idempotency-Key gets the original answer
// instead of recording the expense or settlement twice.
package idempotency

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound   = errors.New("idempotency key not found")
	ErrExpired    = errors.New("idempotency key expired")
	ErrKeyExists  = errors.New("idempotency key already used")
	ErrInvalidKey = errors.New("idempotency key must be 1 to 255 characters")
)

const (
	HeaderName = "Idempotency-Key"
	DefaultTTL = 24 * time.Hour
	maxKeyLen  = 255
)

type Record struct {
	GroupID   uuid.UUID
	Key       string
	Request   string
	Status    int
	Body      []byte
	ExpiresAt time.Time
	CreatedAt time.Time
}

type Store interface {
	// Save stores the response to request (method and path) for
	// (groupID, key). It fails with ErrKeyExists when the key is already
	// taken.
	Save(ctx context.Context, groupID uuid.UUID, key, request string, status int, body []byte) (*Record, error)
	// Get returns the stored response, or ErrNotFound / ErrExpired.
	Get(ctx context.Context, groupID uuid.UUID, key string) (*Record, error)
	// Purge deletes expired records and reports how many were removed.
	Purge(ctx context.Context) (int64, error)
}

func ValidKey(key string) error {
	if key == "" || len(key) > maxKeyLen {
		return ErrInvalidKey
	}
	return nil
}
