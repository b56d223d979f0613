package ledger

import (
	"github.com/google/uuid"

	"github.com/billbatista/acasinha-ledger/money"
)

// ValidateExpense checks the structural invariants of an expense: a name,
// a positive total, payer and share amounts that each add up to the total,
// and member references that belong to the roster.
func ValidateExpense(r Roster, e Expense) error {
	if e.GroupID != r.GroupID {
		return invalid("group_id", "expense belongs to group %s, not %s", e.GroupID, r.GroupID)
	}
	if e.Name == "" {
		return invalid("name", "name can't be empty")
	}
	if e.Total.Currency != r.Currency {
		return invalid("total", "currency %q does not match group currency %q", e.Total.Currency, r.Currency)
	}
	if !e.Total.IsPositive() {
		return invalid("total", "amount must be positive, got %s", e.Total.FormatMajor())
	}
	if !e.Total.InRange() {
		return invalid("total", "amount out of range")
	}
	if len(e.Payers) == 0 {
		return invalid("payers", "at least one payer is required")
	}
	if len(e.Shares) == 0 {
		return invalid("shares", "at least one share is required")
	}

	paid, err := sumPortions(r, "payers", "payer", e.Payers)
	if err != nil {
		return err
	}
	if paid.Amount != e.Total.Amount {
		return invalid("payers", "payer amounts sum to %s but total is %s (difference %s)",
			paid.FormatMajor(), e.Total.FormatMajor(), e.Total.Sub(paid).Abs().FormatMajor())
	}

	owed, err := sumPortions(r, "shares", "share", e.Shares)
	if err != nil {
		return err
	}
	if owed.Amount != e.Total.Amount {
		return invalid("shares", "share amounts sum to %s but total is %s (difference %s)",
			owed.FormatMajor(), e.Total.FormatMajor(), e.Total.Sub(owed).Abs().FormatMajor())
	}
	return nil
}

// ValidateSettlement checks that a settlement moves a positive amount
// between two distinct members of the roster.
func ValidateSettlement(r Roster, s Settlement) error {
	if s.GroupID != r.GroupID {
		return invalid("group_id", "settlement belongs to group %s, not %s", s.GroupID, r.GroupID)
	}
	if s.Amount.Currency != r.Currency {
		return invalid("amount", "currency %q does not match group currency %q", s.Amount.Currency, r.Currency)
	}
	if !s.Amount.IsPositive() {
		return invalid("amount", "amount must be positive, got %s", s.Amount.FormatMajor())
	}
	if !s.Amount.InRange() {
		return invalid("amount", "amount out of range")
	}
	if s.From == s.To {
		return invalid("to", "a member can't settle with themselves")
	}
	if !r.Has(s.From) {
		return invalid("from", "member %s does not belong to the group", s.From)
	}
	if !r.Has(s.To) {
		return invalid("to", "member %s does not belong to the group", s.To)
	}
	return nil
}

// Validate dispatches on the payload kind.
func Validate(r Roster, p Payload) error {
	switch v := p.(type) {
	case Expense:
		return ValidateExpense(r, v)
	case Settlement:
		return ValidateSettlement(r, v)
	default:
		return invalid("kind", "unsupported event payload %T", p)
	}
}

func sumPortions(r Roster, field, noun string, portions []Portion) (money.Money, error) {
	total := money.Zero(r.Currency)
	seen := make(map[uuid.UUID]bool, len(portions))
	for _, p := range portions {
		if !r.Has(p.MemberID) {
			return money.Money{}, invalid(field, "%s %s does not belong to the group", noun, p.MemberID)
		}
		if seen[p.MemberID] {
			return money.Money{}, invalid(field, "%s %s is listed more than once", noun, p.MemberID)
		}
		seen[p.MemberID] = true
		if p.Amount.Currency != r.Currency {
			return money.Money{}, invalid(field, "%s %s has currency %q, group uses %q", noun, p.MemberID, p.Amount.Currency, r.Currency)
		}
		if p.Amount.IsNegative() {
			return money.Money{}, invalid(field, "%s %s has a negative amount %s", noun, p.MemberID, p.Amount.FormatMajor())
		}
		if !p.Amount.InRange() {
			return money.Money{}, invalid(field, "amount out of range")
		}
		var err error
		if total, err = total.CheckedAdd(p.Amount); err != nil {
			return money.Money{}, invalid(field, "amount out of range")
		}
	}
	return total, nil
}
