package idempotency

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryKey struct {
	groupID uuid.UUID
	key     string
}

type memoryRepository struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	records map[memoryKey]Record
}

func NewMemoryRepository(ttl time.Duration) *memoryRepository {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &memoryRepository{ttl: ttl, now: time.Now, records: make(map[memoryKey]Record)}
}

func (r *memoryRepository) Save(_ context.Context, groupID uuid.UUID, key, request string, status int, body []byte) (*Record, error) {
	if err := ValidKey(key); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now().UTC()
	k := memoryKey{groupID, key}
	if existing, ok := r.records[k]; ok && !now.After(existing.ExpiresAt) {
		return nil, ErrKeyExists
	}
	rec := Record{
		GroupID:   groupID,
		Key:       key,
		Request:   request,
		Status:    status,
		Body:      slices.Clone(body),
		ExpiresAt: now.Add(r.ttl),
		CreatedAt: now,
	}
	r.records[k] = rec
	return &rec, nil
}

func (r *memoryRepository) Get(_ context.Context, groupID uuid.UUID, key string) (*Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[memoryKey{groupID, key}]
	if !ok {
		return nil, ErrNotFound
	}
	if r.now().After(rec.ExpiresAt) {
		return nil, ErrExpired
	}
	rec.Body = slices.Clone(rec.Body)
	return &rec, nil
}

func (r *memoryRepository) Purge(context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	var n int64
	for k, rec := range r.records {
		if now.After(rec.ExpiresAt) {
			delete(r.records, k)
			n++
		}
	}
	return n, nil
}
