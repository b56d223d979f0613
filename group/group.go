package group

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/billbatista/acasinha-ledger/ledger"
	"github.com/billbatista/acasinha-ledger/money"
)

type Group struct {
	ID        uuid.UUID       `json:"id"`
	Name      string          `json:"name"`
	Currency  string          `json:"currency"`
	Members   []ledger.Member `json:"members"`
	CreatedAt time.Time       `json:"created_at"`
}

// Roster is the view of the group the ledger validates events against.
func (g Group) Roster() ledger.Roster {
	return ledger.Roster{GroupID: g.ID, Currency: g.Currency, Members: slices.Clone(g.Members)}
}

// Member finds a member by id or, case-insensitively, by name.
func (g Group) Member(ref string) (ledger.Member, bool) {
	if id, err := uuid.Parse(ref); err == nil {
		for _, m := range g.Members {
			if m.ID == id {
				return m, true
			}
		}
		return ledger.Member{}, false
	}
	for _, m := range g.Members {
		if strings.EqualFold(m.Name, ref) {
			return m, true
		}
	}
	return ledger.Member{}, false
}

type Repository interface {
	Create(ctx context.Context, g *Group) error
	GetByID(ctx context.Context, id uuid.UUID) (*Group, error)
	Roster(ctx context.Context, id uuid.UUID) (ledger.Roster, error)
}

// New builds a group with a fresh member id for every name.
func New(name, currency string, memberNames []string) (*Group, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &ledger.ValidationError{Field: "name", Message: "group name can't be empty"}
	}
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if !money.Known(currency) {
		return nil, &ledger.ValidationError{Field: "currency", Message: "unknown currency " + currency}
	}
	if len(memberNames) == 0 {
		return nil, &ledger.ValidationError{Field: "members", Message: "a group needs at least one member"}
	}

	g := &Group{
		ID:        uuid.New(),
		Name:      name,
		Currency:  currency,
		Members:   make([]ledger.Member, 0, len(memberNames)),
		CreatedAt: time.Now().UTC(),
	}
	seen := make(map[string]bool, len(memberNames))
	for _, n := range memberNames {
		n = strings.TrimSpace(n)
		if n == "" {
			return nil, &ledger.ValidationError{Field: "members", Message: "member name can't be empty"}
		}
		key := strings.ToLower(n)
		if seen[key] {
			return nil, &ledger.ValidationError{Field: "members", Message: "member " + n + " is listed more than once"}
		}
		seen[key] = true
		g.Members = append(g.Members, ledger.Member{ID: uuid.New(), Name: n})
	}
	return g, nil
}
