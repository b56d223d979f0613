package projector

import (
	"context"
	"iter"
	"sync"

	"github.com/google/uuid"

	"github.com/billbatista/acasinha-ledger/ledger"
)

// Source yields the events of a group after a given sequence number.
type Source interface {
	EventsSince(ctx context.Context, groupID uuid.UUID, seq ledger.Seq) iter.Seq2[ledger.Event, error]
}

// Projector keeps the last folded State of every group it has been asked
// about. A query folds only the events appended since that state, which
// gives the same result as replaying the whole log.
type Projector struct {
	src Source

	mu    sync.Mutex
	cache map[uuid.UUID]State
}

func New(src Source) *Projector {
	return &Projector{src: src, cache: make(map[uuid.UUID]State)}
}

// Current returns the balances of the roster's group as of the newest event.
func (p *Projector) Current(ctx context.Context, r ledger.Roster) (State, error) {
	p.mu.Lock()
	st, ok := p.cache[r.GroupID]
	p.mu.Unlock()
	if !ok {
		st = NewState(r.GroupID, r.Currency)
	}

	st, err := Fold(st, p.src.EventsSince(ctx, r.GroupID, st.Seq))
	if err != nil {
		return State{}, err
	}

	p.mu.Lock()
	if cached, ok := p.cache[r.GroupID]; !ok || cached.Seq < st.Seq {
		p.cache[r.GroupID] = st.Clone()
	}
	p.mu.Unlock()
	return st, nil
}

// Replay folds the whole log of a group, ignoring the cache.
func (p *Projector) Replay(ctx context.Context, r ledger.Roster) (State, error) {
	return Fold(NewState(r.GroupID, r.Currency), p.src.EventsSince(ctx, r.GroupID, 0))
}

// Invalidate drops the cached state of a group.
func (p *Projector) Invalidate(groupID uuid.UUID) {
	p.mu.Lock()
	delete(p.cache, groupID)
	p.mu.Unlock()
}
