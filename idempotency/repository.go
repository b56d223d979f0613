package idempotency

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/billbatista/acasinha-ledger/storage"
)

type repository struct {
	db  *storage.DB
	ttl time.Duration
	now func() time.Time
}

func NewRepository(db *storage.DB, ttl time.Duration) *repository {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &repository{db: db, ttl: ttl, now: time.Now}
}

func (r *repository) Save(ctx context.Context, groupID uuid.UUID, key, request string, status int, body []byte) (*Record, error) {
	if err := ValidKey(key); err != nil {
		return nil, err
	}

	now := r.now().UTC()
	rec := &Record{
		GroupID:   groupID,
		Key:       key,
		Request:   request,
		Status:    status,
		Body:      body,
		ExpiresAt: now.Add(r.ttl),
		CreatedAt: now,
	}

	// an expired record may still hold the key until it is purged
	query := r.db.Dialect.Rebind(`DELETE FROM idempotency_keys WHERE group_id = $1 AND key = $2 AND expires_at < $3`)
	if _, err := r.db.ExecContext(ctx, query, groupID, key, now); err != nil {
		return nil, err
	}

	query = r.db.Dialect.Rebind(`
        INSERT INTO idempotency_keys (group_id, key, request, status, body, expires_at, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
    `)
	_, err := r.db.ExecContext(ctx, query,
		rec.GroupID,
		rec.Key,
		rec.Request,
		rec.Status,
		string(rec.Body),
		rec.ExpiresAt,
		rec.CreatedAt,
	)
	if err != nil {
		if r.db.Dialect.IsUniqueViolation(err) {
			return nil, ErrKeyExists
		}
		return nil, err
	}

	return rec, nil
}

// Get retrieves a record by key and checks it has not expired.
func (r *repository) Get(ctx context.Context, groupID uuid.UUID, key string) (*Record, error) {
	var (
		rec  Record
		body string
	)

	query := r.db.Dialect.Rebind(`
        SELECT group_id, key, request, status, body, expires_at, created_at
        FROM idempotency_keys
        WHERE group_id = $1 AND key = $2
    `)

	err := r.db.QueryRowContext(ctx, query, groupID, key).Scan(
		&rec.GroupID,
		&rec.Key,
		&rec.Request,
		&rec.Status,
		&body,
		&rec.ExpiresAt,
		&rec.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	rec.Body = []byte(body)

	if r.now().After(rec.ExpiresAt) {
		return nil, ErrExpired
	}

	return &rec, nil
}

func (r *repository) Purge(ctx context.Context) (int64, error) {
	query := r.db.Dialect.Rebind(`DELETE FROM idempotency_keys WHERE expires_at < $1`)
	res, err := r.db.ExecContext(ctx, query, r.now().UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
