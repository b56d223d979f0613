package eventstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"iter"

	"github.com/google/uuid"

	"github.com/billbatista/acasinha-ledger/ledger"
	"github.com/billbatista/acasinha-ledger/storage"
)

// SQL is a Backend over the ledger_events table. The (group_id, seq)
// primary key is the conditional write: a second writer that read the same
// head loses with a unique violation.
type SQL struct {
	db *storage.DB
}

func NewSQL(db *storage.DB) *SQL {
	return &SQL{db: db}
}

func (s *SQL) Head(ctx context.Context, groupID uuid.UUID) (ledger.Seq, []byte, error) {
	query := s.db.Dialect.Rebind(`SELECT seq, digest FROM ledger_events WHERE group_id = $1 ORDER BY seq DESC LIMIT 1`)

	var (
		seq    ledger.Seq
		digest []byte
	)
	err := s.db.QueryRowContext(ctx, query, groupID).Scan(&seq, &digest)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil, nil
	}
	if err != nil {
		return 0, nil, err
	}
	return seq, digest, nil
}

func (s *SQL) Insert(ctx context.Context, ev ledger.Event) error {
	body, err := jsonPayload(ev)
	if err != nil {
		return err
	}

	statement := s.db.Dialect.Rebind(`INSERT INTO ledger_events (group_id, seq, event_id, kind, payload, digest, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`)
	_, err = s.db.ExecContext(ctx, statement,
		ev.GroupID(),
		ev.Seq,
		ev.ID(),
		string(ev.Kind()),
		body,
		ev.Digest,
		ev.CreatedAt(),
	)
	if err != nil {
		if s.db.Dialect.IsUniqueViolation(err) {
			return fmt.Errorf("group %s seq %d: %w", ev.GroupID(), ev.Seq, ledger.ErrConcurrencyConflict)
		}
		return err
	}
	return nil
}

func (s *SQL) Scan(ctx context.Context, groupID uuid.UUID, after ledger.Seq) iter.Seq2[ledger.Event, error] {
	return func(yield func(ledger.Event, error) bool) {
		query := s.db.Dialect.Rebind(`SELECT seq, kind, payload, digest FROM ledger_events WHERE group_id = $1 AND seq > $2 ORDER BY seq`)
		rows, err := s.db.QueryContext(ctx, query, groupID, after)
		if err != nil {
			yield(ledger.Event{}, err)
			return
		}
		defer rows.Close()

		for rows.Next() {
			var (
				ev   ledger.Event
				kind string
				body []byte
			)
			if err := rows.Scan(&ev.Seq, &kind, &body, &ev.Digest); err != nil {
				yield(ledger.Event{}, err)
				return
			}
			ev.Payload, err = ledger.DecodePayload(ledger.Kind(kind), body)
			if err != nil {
				yield(ledger.Event{}, fmt.Errorf("event %d of group %s: %w", ev.Seq, groupID, err))
				return
			}
			if !yield(ev, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(ledger.Event{}, err)
		}
	}
}

// jsonPayload encodes the payload as text; lib/pq sends []byte as bytea,
// which a jsonb column rejects.
func jsonPayload(ev ledger.Event) (string, error) {
	body, err := json.Marshal(ev.Payload)
	if err != nil {
		return "", fmt.Errorf("encoding payload of event %s: %w", ev.ID(), err)
	}
	return string(body), nil
}
