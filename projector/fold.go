// Package projector derives member balances from a group's event log.
//
// The fold is pure: starting from all-zero balances, events are applied one
// at a time in sequence order. Projector adds a per-group cache on top so
// that a query only folds the events appended since the previous one.
package projector

import (
	"errors"
	"fmt"
	"iter"
	"maps"
	"slices"

	"github.com/google/uuid"

	"github.com/billbatista/acasinha-ledger/ledger"
	"github.com/billbatista/acasinha-ledger/money"
)

// Balance is a member's net position: positive when the group owes the
// member, negative when the member owes the group.
type Balance struct {
	MemberID uuid.UUID   `json:"member_id"`
	Net      money.Money `json:"net"`
}

// State is the balance map after applying every event up to Seq.
type State struct {
	GroupID  uuid.UUID
	Seq      ledger.Seq
	Currency string
	Net      map[uuid.UUID]money.Money
}

func NewState(groupID uuid.UUID, currency string) State {
	return State{GroupID: groupID, Currency: currency, Net: make(map[uuid.UUID]money.Money)}
}

func (s State) Clone() State {
	s.Net = maps.Clone(s.Net)
	if s.Net == nil {
		s.Net = make(map[uuid.UUID]money.Money)
	}
	return s
}

// Sum adds every balance. It fails instead of wrapping around when the
// balances are too large to add up.
func (s State) Sum() (money.Money, error) {
	return money.Sum(s.Currency, slices.Collect(maps.Values(s.Net))...)
}

// Balances lists every roster member in ascending id order, members with a
// zero balance included.
func (s State) Balances(r ledger.Roster) []Balance {
	members := r.Sorted()
	out := make([]Balance, 0, len(members))
	for _, m := range members {
		net, ok := s.Net[m.ID]
		if !ok {
			net = money.Zero(s.Currency)
		}
		out = append(out, Balance{MemberID: m.ID, Net: net})
	}
	return out
}

// Apply folds one event into s. Events must arrive in strictly increasing
// sequence order, and the balances must still sum to zero afterwards.
func (s *State) Apply(ev ledger.Event) error {
	if ev.Seq <= s.Seq {
		return s.violation(ev.Seq, fmt.Sprintf("event applied out of order after seq %d", s.Seq))
	}
	if s.Net == nil {
		s.Net = make(map[uuid.UUID]money.Money)
	}

	var err error
	switch p := ev.Payload.(type) {
	case ledger.Expense:
		for _, payer := range p.Payers {
			err = errors.Join(err, s.credit(payer.MemberID, payer.Amount))
		}
		for _, share := range p.Shares {
			err = errors.Join(err, s.credit(share.MemberID, share.Amount.Neg()))
		}
	case ledger.Settlement:
		err = errors.Join(s.credit(p.From, p.Amount), s.credit(p.To, p.Amount.Neg()))
	default:
		return s.violation(ev.Seq, fmt.Sprintf("unsupported payload %T", ev.Payload))
	}
	if err != nil {
		return s.violation(ev.Seq, err.Error())
	}
	s.Seq = ev.Seq

	sum, err := s.Sum()
	if err != nil {
		return s.violation(ev.Seq, "balances overflow: "+err.Error())
	}
	if !sum.IsZero() {
		return s.violation(ev.Seq, fmt.Sprintf("balances sum to %s instead of zero", sum.FormatMajor()))
	}
	return nil
}

func (s *State) credit(memberID uuid.UUID, amount money.Money) error {
	net, err := s.Net[memberID].CheckedAdd(amount)
	if err != nil {
		return fmt.Errorf("balance of %s: %w", memberID, err)
	}
	s.Net[memberID] = net
	return nil
}

func (s *State) violation(seq ledger.Seq, detail string) error {
	return &ledger.InvariantViolation{GroupID: s.GroupID, Seq: seq, Detail: detail}
}

// Fold applies events onto a copy of from and returns the result.
func Fold(from State, events iter.Seq2[ledger.Event, error]) (State, error) {
	st := from.Clone()
	for ev, err := range events {
		if err != nil {
			return from, err
		}
		if err := st.Apply(ev); err != nil {
			return from, err
		}
	}
	return st, nil
}

// HistoryEntry is an event together with every member's balance right
// after it was applied.
type HistoryEntry struct {
	Event    ledger.Event `json:"event"`
	Balances []Balance    `json:"balances"`
}

// History replays events from the start and records a snapshot after each
// one, oldest first.
func History(r ledger.Roster, events iter.Seq2[ledger.Event, error]) ([]HistoryEntry, error) {
	st := NewState(r.GroupID, r.Currency)
	var entries []HistoryEntry
	for ev, err := range events {
		if err != nil {
			return nil, err
		}
		if err := st.Apply(ev); err != nil {
			return nil, err
		}
		entries = append(entries, HistoryEntry{Event: ev, Balances: st.Balances(r)})
	}
	return entries, nil
}
