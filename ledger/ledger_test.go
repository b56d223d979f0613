package ledger

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/billbatista/acasinha-ledger/money"
)

var (
	groupID  = uuid.MustParse("00000000-0000-0000-0000-0000000000f0")
	alice    = Member{ID: uuid.MustParse("00000000-0000-0000-0000-00000000000a"), Name: "Alice"}
	bob      = Member{ID: uuid.MustParse("00000000-0000-0000-0000-00000000000b"), Name: "Bob"}
	carol    = Member{ID: uuid.MustParse("00000000-0000-0000-0000-00000000000c"), Name: "Carol"}
	outsider = uuid.MustParse("00000000-0000-0000-0000-0000000000ee")
)

func roster() Roster {
	// deliberately unsorted
	return Roster{GroupID: groupID, Currency: "INR", Members: []Member{carol, alice, bob}}
}

func inr(minor int64) money.Money { return money.New(minor, "INR") }

func TestEqualSplitDistributesRemainderInIDOrder(t *testing.T) {
	tests := []struct {
		name  string
		total int64
		want  []int64 // alice, bob, carol
	}{
		{"exact", 90, []int64{30, 30, 30}},
		{"one leftover", 100, []int64{34, 33, 33}},
		{"two leftover", 101, []int64{34, 34, 33}},
		{"less than members", 2, []int64{1, 1, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shares, err := EqualSplit(inr(tt.total), roster().Members)
			if err != nil {
				t.Fatalf("EqualSplit() error = %v", err)
			}
			order := []uuid.UUID{alice.ID, bob.ID, carol.ID}
			var sum int64
			for i, s := range shares {
				if s.MemberID != order[i] {
					t.Errorf("share %d: got member %s, want %s", i, s.MemberID, order[i])
				}
				if s.Amount.Amount != tt.want[i] {
					t.Errorf("share %d: got %d, want %d", i, s.Amount.Amount, tt.want[i])
				}
				sum += s.Amount.Amount
			}
			if sum != tt.total {
				t.Errorf("shares sum to %d, want %d", sum, tt.total)
			}
		})
	}
}

func TestNewExpenseDerivesEqualSplit(t *testing.T) {
	exp, err := NewExpense(roster(), ExpenseInput{
		Name:   "Dinner",
		Total:  inr(9000),
		Payers: []Portion{{MemberID: alice.ID, Amount: inr(9000)}},
	})
	if err != nil {
		t.Fatalf("NewExpense() error = %v", err)
	}
	if len(exp.Shares) != 3 {
		t.Fatalf("got %d shares, want 3", len(exp.Shares))
	}
	for _, s := range exp.Shares {
		if s.Amount != inr(3000) {
			t.Errorf("share for %s: got %v, want 30.00 INR", s.MemberID, s.Amount)
		}
	}
	if exp.ID == uuid.Nil || exp.GroupID != groupID || exp.CreatedAt.IsZero() {
		t.Errorf("header not populated: %+v", exp.Header)
	}
}

func TestValidateExpense(t *testing.T) {
	tests := []struct {
		name      string
		in        ExpenseInput
		wantField string
		wantMsg   string
	}{
		{
			name: "shares short of total",
			in: ExpenseInput{
				Name: "Groceries", Total: inr(5000),
				Payers: []Portion{{alice.ID, inr(5000)}},
				Shares: []Portion{{alice.ID, inr(2000)}, {bob.ID, inr(2000)}},
			},
			wantField: "shares",
			wantMsg:   "share amounts sum to 40.00 but total is 50.00 (difference 10.00)",
		},
		{
			name: "payers short of total",
			in: ExpenseInput{
				Name: "Groceries", Total: inr(5000),
				Payers: []Portion{{alice.ID, inr(4500)}},
			},
			wantField: "payers",
			wantMsg:   "payer amounts sum to 45.00 but total is 50.00",
		},
		{
			name:      "non positive total",
			in:        ExpenseInput{Name: "Nothing", Total: inr(0), Payers: []Portion{{alice.ID, inr(0)}}, Shares: []Portion{{alice.ID, inr(0)}}},
			wantField: "total",
			wantMsg:   "must be positive",
		},
		{
			name:      "unknown payer",
			in:        ExpenseInput{Name: "Taxi", Total: inr(100), Payers: []Portion{{outsider, inr(100)}}},
			wantField: "payers",
			wantMsg:   "does not belong to the group",
		},
		{
			name: "unknown share",
			in: ExpenseInput{
				Name: "Taxi", Total: inr(100),
				Payers: []Portion{{alice.ID, inr(100)}},
				Shares: []Portion{{outsider, inr(100)}},
			},
			wantField: "shares",
			wantMsg:   "does not belong to the group",
		},
		{
			name:      "no payers",
			in:        ExpenseInput{Name: "Taxi", Total: inr(100)},
			wantField: "payers",
			wantMsg:   "at least one payer",
		},
		{
			name: "duplicate payer",
			in: ExpenseInput{
				Name: "Taxi", Total: inr(100),
				Payers: []Portion{{alice.ID, inr(50)}, {alice.ID, inr(50)}},
			},
			wantField: "payers",
			wantMsg:   "more than once",
		},
		{
			name:      "empty name",
			in:        ExpenseInput{Name: "  ", Total: inr(100), Payers: []Portion{{alice.ID, inr(100)}}},
			wantField: "name",
			wantMsg:   "can't be empty",
		},
		{
			name:      "foreign currency",
			in:        ExpenseInput{Name: "Taxi", Total: money.New(100, "USD"), Payers: []Portion{{alice.ID, inr(100)}}},
			wantField: "total",
			wantMsg:   "does not match group currency",
		},
		{
			name: "payers wrap around int64",
			in: ExpenseInput{
				Name: "Bogus", Total: inr(2),
				Payers: []Portion{{alice.ID, inr(math.MaxInt64)}, {bob.ID, inr(math.MaxInt64)}, {carol.ID, inr(4)}},
				Shares: []Portion{{alice.ID, inr(2)}},
			},
			wantField: "payers",
			wantMsg:   "amount out of range",
		},
		{
			name: "share above max amount",
			in: ExpenseInput{
				Name: "Bogus", Total: inr(2),
				Payers: []Portion{{alice.ID, inr(2)}},
				Shares: []Portion{{alice.ID, inr(money.MaxAmount + 1)}, {bob.ID, inr(0)}},
			},
			wantField: "shares",
			wantMsg:   "amount out of range",
		},
		{
			name:      "total above max amount",
			in:        ExpenseInput{Name: "Yacht", Total: inr(money.MaxAmount + 1), Payers: []Portion{{alice.ID, inr(money.MaxAmount + 1)}}},
			wantField: "total",
			wantMsg:   "amount out of range",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewExpense(roster(), tt.in)
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("NewExpense() error = %v, want validation error", err)
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("error %T is not a *ValidationError", err)
			}
			if verr.Field != tt.wantField {
				t.Errorf("Field: got %q, want %q", verr.Field, tt.wantField)
			}
			if !strings.Contains(verr.Message, tt.wantMsg) {
				t.Errorf("Message: got %q, want it to contain %q", verr.Message, tt.wantMsg)
			}
		})
	}
}

func TestValidateSettlement(t *testing.T) {
	tests := []struct {
		name      string
		in        SettlementInput
		wantField string
	}{
		{"self settlement", SettlementInput{From: alice.ID, To: alice.ID, Amount: inr(100)}, "to"},
		{"zero amount", SettlementInput{From: bob.ID, To: alice.ID, Amount: inr(0)}, "amount"},
		{"negative amount", SettlementInput{From: bob.ID, To: alice.ID, Amount: inr(-5)}, "amount"},
		{"unknown debtor", SettlementInput{From: outsider, To: alice.ID, Amount: inr(100)}, "from"},
		{"unknown creditor", SettlementInput{From: bob.ID, To: outsider, Amount: inr(100)}, "to"},
		{"above max amount", SettlementInput{From: bob.ID, To: alice.ID, Amount: inr(math.MaxInt64)}, "amount"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSettlement(roster(), tt.in)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("NewSettlement() error = %v, want *ValidationError", err)
			}
			if verr.Field != tt.wantField {
				t.Errorf("Field: got %q, want %q", verr.Field, tt.wantField)
			}
		})
	}

	s, err := NewSettlement(roster(), SettlementInput{From: bob.ID, To: alice.ID, Amount: inr(3000)})
	if err != nil {
		t.Fatalf("valid settlement rejected: %v", err)
	}
	if s.Amount != inr(3000) {
		t.Errorf("Amount: got %v, want 30.00 INR", s.Amount)
	}
}

func TestNewReversalSwapsPayersAndShares(t *testing.T) {
	orig, err := NewExpense(roster(), ExpenseInput{
		Name:   "Dinner",
		Total:  inr(9000),
		Payers: []Portion{{alice.ID, inr(6000)}, {bob.ID, inr(3000)}},
	})
	if err != nil {
		t.Fatalf("NewExpense() error = %v", err)
	}

	rev, err := NewReversal(roster(), orig)
	if err != nil {
		t.Fatalf("NewReversal() error = %v", err)
	}
	if rev.ReversalOf == nil || *rev.ReversalOf != orig.ID {
		t.Errorf("ReversalOf: got %v, want %s", rev.ReversalOf, orig.ID)
	}
	if rev.Name != "Reversal: Dinner" {
		t.Errorf("Name: got %q", rev.Name)
	}
	if len(rev.Payers) != len(orig.Shares) || len(rev.Shares) != len(orig.Payers) {
		t.Errorf("payers/shares were not swapped: %+v", rev)
	}
}

func TestEventJSONRoundTripKeepsVariant(t *testing.T) {
	s, err := NewSettlement(roster(), SettlementInput{From: bob.ID, To: alice.ID, Amount: inr(3000)})
	if err != nil {
		t.Fatalf("NewSettlement() error = %v", err)
	}
	in := Event{Seq: 7, Payload: s}

	data, err := in.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON() error = %v", err)
	}
	var out Event
	if err := out.UnmarshalJSON(data); err != nil {
		t.Fatalf("UnmarshalJSON() error = %v", err)
	}

	got, ok := out.Payload.(Settlement)
	if !ok {
		t.Fatalf("payload decoded as %T, want Settlement", out.Payload)
	}
	if out.Seq != 7 || got.From != bob.ID || got.To != alice.ID || got.Amount != inr(3000) {
		t.Errorf("round trip mismatch: %+v", out)
	}
}
