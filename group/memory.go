package group

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/billbatista/acasinha-ledger/ledger"
)

type memoryRepository struct {
	mu     sync.RWMutex
	groups map[uuid.UUID]Group
}

func NewMemoryRepository() *memoryRepository {
	return &memoryRepository{groups: make(map[uuid.UUID]Group)}
}

func (r *memoryRepository) Create(_ context.Context, g *Group) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.groups[g.ID]; ok {
		return fmt.Errorf("group %s already exists", g.ID)
	}
	stored := *g
	stored.Members = slices.Clone(g.Members)
	r.groups[g.ID] = stored
	return nil
}

func (r *memoryRepository) GetByID(_ context.Context, id uuid.UUID) (*Group, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g, ok := r.groups[id]
	if !ok {
		return nil, fmt.Errorf("group %s: %w", id, ledger.ErrGroupNotFound)
	}
	g.Members = slices.Clone(g.Members)
	return &g, nil
}

func (r *memoryRepository) Roster(ctx context.Context, id uuid.UUID) (ledger.Roster, error) {
	g, err := r.GetByID(ctx, id)
	if err != nil {
		return ledger.Roster{}, err
	}
	return g.Roster(), nil
}
