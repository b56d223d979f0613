package ledger

import (
	"bytes"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/billbatista/acasinha-ledger/money"
)

type Member struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// Roster is the engine's read-only view of a group: its currency and the
// members events may reference.
type Roster struct {
	GroupID  uuid.UUID
	Currency string
	Members  []Member
}

// Has reports whether memberID belongs to the roster.
func (r Roster) Has(memberID uuid.UUID) bool {
	return slices.ContainsFunc(r.Members, func(m Member) bool { return m.ID == memberID })
}

// Sorted returns the members in ascending id order, the fixed order used
// for remainder distribution and tie-breaking.
func (r Roster) Sorted() []Member {
	out := slices.Clone(r.Members)
	slices.SortFunc(out, func(a, b Member) int { return CompareIDs(a.ID, b.ID) })
	return out
}

// CompareIDs orders member ids ascending.
func CompareIDs(a, b uuid.UUID) int { return bytes.Compare(a[:], b[:]) }

// Portion is one member's part of an expense: what they paid, or what they owe.
type Portion struct {
	MemberID uuid.UUID   `json:"member_id"`
	Amount   money.Money `json:"amount"`
}

type Expense struct {
	Header
	Name       string      `json:"name"`
	Total      money.Money `json:"total"`
	Payers     []Portion   `json:"payers"`
	Shares     []Portion   `json:"shares"`
	Category   string      `json:"category,omitempty"`
	Notes      string      `json:"notes,omitempty"`
	ReversalOf *uuid.UUID  `json:"reversal_of,omitempty"`
}

type Settlement struct {
	Header
	From   uuid.UUID   `json:"from"`
	To     uuid.UUID   `json:"to"`
	Amount money.Money `json:"amount"`
	Notes  string      `json:"notes,omitempty"`
}

// ExpenseInput is what a collaborator submits. Shares may be left empty to
// request an equal split across the whole roster.
type ExpenseInput struct {
	Name     string
	Total    money.Money
	Payers   []Portion
	Shares   []Portion
	Category string
	Notes    string
}

type SettlementInput struct {
	From   uuid.UUID
	To     uuid.UUID
	Amount money.Money
	Notes  string
}

// NewExpense builds and validates an expense against the roster.
func NewExpense(r Roster, in ExpenseInput) (Expense, error) {
	shares := in.Shares
	if len(shares) == 0 {
		var err error
		shares, err = EqualSplit(in.Total, r.Members)
		if err != nil {
			return Expense{}, err
		}
	}

	exp := Expense{
		Header:   newHeader(r.GroupID),
		Name:     strings.TrimSpace(in.Name),
		Total:    in.Total,
		Payers:   normalize(in.Payers, r.Currency),
		Shares:   normalize(shares, r.Currency),
		Category: in.Category,
		Notes:    in.Notes,
	}
	if exp.Total.Currency == "" {
		exp.Total.Currency = r.Currency
	}

	if err := ValidateExpense(r, exp); err != nil {
		return Expense{}, err
	}
	return exp, nil
}

// NewSettlement builds and validates a settlement against the roster.
func NewSettlement(r Roster, in SettlementInput) (Settlement, error) {
	s := Settlement{
		Header: newHeader(r.GroupID),
		From:   in.From,
		To:     in.To,
		Amount: in.Amount,
		Notes:  in.Notes,
	}
	if s.Amount.Currency == "" {
		s.Amount.Currency = r.Currency
	}
	if err := ValidateSettlement(r, s); err != nil {
		return Settlement{}, err
	}
	return s, nil
}

// NewReversal builds the expense that offsets orig: every share becomes a
// payment and every payment becomes a share, so applying both nets to zero.
func NewReversal(r Roster, orig Expense) (Expense, error) {
	origID := orig.ID
	rev := Expense{
		Header:     newHeader(r.GroupID),
		Name:       "Reversal: " + orig.Name,
		Total:      orig.Total,
		Payers:     slices.Clone(orig.Shares),
		Shares:     slices.Clone(orig.Payers),
		Category:   orig.Category,
		ReversalOf: &origID,
	}
	if err := ValidateExpense(r, rev); err != nil {
		return Expense{}, err
	}
	return rev, nil
}

// EqualSplit divides total across members. The remainder left by integer
// division is handed out one minor unit at a time to the first members in
// ascending id order, so 100 over three members is 34, 33, 33.
func EqualSplit(total money.Money, members []Member) ([]Portion, error) {
	numMembers := int64(len(members))
	if numMembers == 0 {
		return nil, invalid("shares", "no members to split expense")
	}
	if !total.IsPositive() {
		return nil, invalid("total", "amount must be positive, got %s", total.FormatMajor())
	}

	ordered := Roster{Members: members}.Sorted()
	baseAmount := total.Amount / numMembers
	remainder := total.Amount % numMembers

	splits := make([]Portion, 0, numMembers)
	for i, m := range ordered {
		share := baseAmount
		if int64(i) < remainder {
			share++
		}
		splits = append(splits, Portion{
			MemberID: m.ID,
			Amount:   money.New(share, total.Currency),
		})
	}
	return splits, nil
}

func newHeader(groupID uuid.UUID) Header {
	return Header{
		ID:        uuid.New(),
		GroupID:   groupID,
		CreatedAt: time.Now().UTC(),
	}
}

// normalize fills in the group currency on amounts submitted without one.
func normalize(portions []Portion, currency string) []Portion {
	out := slices.Clone(portions)
	for i := range out {
		if out[i].Amount.Currency == "" {
			out[i].Amount.Currency = currency
		}
	}
	return out
}
