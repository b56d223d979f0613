package eventstore

import (
	"context"
	"fmt"
	"iter"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/billbatista/acasinha-ledger/ledger"
)

// Memory is a Backend that keeps every log in process memory. It is used by
// tests and by the "memory" database driver.
type Memory struct {
	mu     sync.RWMutex
	events map[uuid.UUID][]ledger.Event
}

func NewMemory() *Memory {
	return &Memory{events: make(map[uuid.UUID][]ledger.Event)}
}

func (m *Memory) Head(_ context.Context, groupID uuid.UUID) (ledger.Seq, []byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	evs := m.events[groupID]
	if len(evs) == 0 {
		return 0, nil, nil
	}
	last := evs[len(evs)-1]
	return last.Seq, slices.Clone(last.Digest), nil
}

func (m *Memory) Insert(_ context.Context, ev ledger.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	groupID := ev.GroupID()
	evs := m.events[groupID]
	if want := ledger.Seq(len(evs) + 1); ev.Seq != want {
		return fmt.Errorf("group %s seq %d (next free is %d): %w", groupID, ev.Seq, want, ledger.ErrConcurrencyConflict)
	}
	m.events[groupID] = append(evs, ev)
	return nil
}

// Scan iterates over a snapshot taken when iteration starts. Events are
// never modified after insertion, so the snapshot shares the backing array.
func (m *Memory) Scan(ctx context.Context, groupID uuid.UUID, after ledger.Seq) iter.Seq2[ledger.Event, error] {
	return func(yield func(ledger.Event, error) bool) {
		m.mu.RLock()
		evs := m.events[groupID]
		m.mu.RUnlock()

		start := max(int(after), 0)
		if start >= len(evs) {
			return
		}
		for _, ev := range evs[start:] {
			if err := ctx.Err(); err != nil {
				yield(ledger.Event{}, err)
				return
			}
			if !yield(ev, nil) {
				return
			}
		}
	}
}
