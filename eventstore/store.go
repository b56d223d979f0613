// Package eventstore keeps the ordered, append-only event log of every group.
//
// Store validates each payload against the group roster, assigns the next
// sequence number and hands the event to a Backend. Sequence assignment is
// serialized per group inside the process, and backends reject a sequence
// number that is already taken so that several processes sharing one
// database cannot fork a group's history either.
package eventstore

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/billbatista/acasinha-ledger/ledger"
)

const defaultAppendRetries = 5

// Directory resolves the roster events are validated against.
type Directory interface {
	Roster(ctx context.Context, groupID uuid.UUID) (ledger.Roster, error)
}

// Backend persists sequenced events.
//
// Insert must return an error wrapping ledger.ErrConcurrencyConflict when
// the event's sequence number is already taken for its group.
type Backend interface {
	Head(ctx context.Context, groupID uuid.UUID) (ledger.Seq, []byte, error)
	Insert(ctx context.Context, ev ledger.Event) error
	Scan(ctx context.Context, groupID uuid.UUID, after ledger.Seq) iter.Seq2[ledger.Event, error]
}

// ConflictFunc is notified every time an append loses a sequence race.
type ConflictFunc func(ctx context.Context, groupID uuid.UUID, seq ledger.Seq, attempt int)

type Store struct {
	backend    Backend
	dir        Directory
	retries    int
	logger     *slog.Logger
	onConflict ConflictFunc

	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

type Option func(*Store)

// WithRetries sets how many times a lost sequence race is retried before
// the conflict is returned to the caller.
func WithRetries(n int) Option {
	return func(s *Store) {
		if n >= 0 {
			s.retries = n
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

func WithConflictHook(fn ConflictFunc) Option {
	return func(s *Store) { s.onConflict = fn }
}

func New(b Backend, dir Directory, opts ...Option) *Store {
	s := &Store{
		backend: b,
		dir:     dir,
		retries: defaultAppendRetries,
		logger:  slog.Default(),
		locks:   make(map[uuid.UUID]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Precondition decides whether an append may go ahead given the current log.
// head is the sequence number the new event will follow.
type Precondition func(ctx context.Context, head ledger.Seq) error

// Append validates the payload and records it as the next event of its group.
func (s *Store) Append(ctx context.Context, p ledger.Payload) (ledger.Event, error) {
	return s.AppendIf(ctx, p, nil)
}

// AppendIf is Append guarded by check. The check runs while the group's
// append lock is held, after the head is read and again on every retry, so
// a rule over earlier events (such as "reversed at most once") holds even
// when several callers race. A check error is returned unchanged and no
// sequence number is used.
func (s *Store) AppendIf(ctx context.Context, p ledger.Payload, check Precondition) (ledger.Event, error) {
	groupID := p.Meta().GroupID

	roster, err := s.dir.Roster(ctx, groupID)
	if err != nil {
		return ledger.Event{}, err
	}
	if err := ledger.Validate(roster, p); err != nil {
		return ledger.Event{}, err
	}

	unlock := s.lock(groupID)
	defer unlock()

	for attempt := 0; ; attempt++ {
		head, prev, err := s.backend.Head(ctx, groupID)
		if err != nil {
			return ledger.Event{}, fmt.Errorf("reading head of group %s: %w", groupID, err)
		}
		if check != nil {
			if err := check(ctx, head); err != nil {
				return ledger.Event{}, err
			}
		}

		ev := ledger.Event{Seq: head + 1, Payload: p}
		ev.Digest, err = Digest(prev, ev)
		if err != nil {
			return ledger.Event{}, err
		}

		err = s.backend.Insert(ctx, ev)
		if err == nil {
			return ev, nil
		}
		if !errors.Is(err, ledger.ErrConcurrencyConflict) {
			return ledger.Event{}, fmt.Errorf("inserting event %s: %w", ev.ID(), err)
		}

		s.logger.Warn("sequence number taken, retrying append",
			"group_id", groupID,
			"seq", ev.Seq,
			"attempt", attempt+1,
		)
		if s.onConflict != nil {
			s.onConflict(ctx, groupID, ev.Seq, attempt+1)
		}
		if attempt >= s.retries {
			return ledger.Event{}, fmt.Errorf("appending to group %s after %d attempts: %w", groupID, attempt+1, err)
		}
	}
}

// EventsSince yields the events of a group with a sequence number greater
// than seq, in ascending order. Ranging over the result again re-reads the
// log, so the sequence can be restarted.
func (s *Store) EventsSince(ctx context.Context, groupID uuid.UUID, seq ledger.Seq) iter.Seq2[ledger.Event, error] {
	return s.backend.Scan(ctx, groupID, seq)
}

// Find returns the event with the given id.
func (s *Store) Find(ctx context.Context, groupID, eventID uuid.UUID) (ledger.Event, error) {
	for ev, err := range s.EventsSince(ctx, groupID, 0) {
		if err != nil {
			return ledger.Event{}, err
		}
		if ev.ID() == eventID {
			return ev, nil
		}
	}
	return ledger.Event{}, fmt.Errorf("event %s in group %s: %w", eventID, groupID, ledger.ErrEventNotFound)
}

// Verify walks the whole log of a group and checks that sequence numbers
// are contiguous and that every digest chains onto the previous one. It
// returns the last verified sequence number.
func (s *Store) Verify(ctx context.Context, groupID uuid.UUID) (ledger.Seq, error) {
	var (
		last ledger.Seq
		prev []byte
	)
	for ev, err := range s.EventsSince(ctx, groupID, 0) {
		if err != nil {
			return last, err
		}
		if ev.Seq != last+1 {
			return last, &ledger.InvariantViolation{
				GroupID: groupID,
				Seq:     ev.Seq,
				Detail:  fmt.Sprintf("sequence gap: expected %d", last+1),
			}
		}
		want, err := Digest(prev, ev)
		if err != nil {
			return last, err
		}
		if !equalDigest(want, ev.Digest) {
			return last, &ledger.InvariantViolation{
				GroupID: groupID,
				Seq:     ev.Seq,
				Detail:  "digest does not chain onto the previous event",
			}
		}
		last, prev = ev.Seq, ev.Digest
	}
	return last, nil
}

// lock serializes sequence assignment for one group; other groups are not
// affected.
func (s *Store) lock(groupID uuid.UUID) func() {
	s.mu.Lock()
	m, ok := s.locks[groupID]
	if !ok {
		m = &sync.Mutex{}
		s.locks[groupID] = m
	}
	s.mu.Unlock()

	m.Lock()
	return m.Unlock
}
