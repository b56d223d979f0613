package settlement

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"github.com/billbatista/acasinha-ledger/ledger"
	"github.com/billbatista/acasinha-ledger/money"
	"github.com/billbatista/acasinha-ledger/projector"
)

var (
	groupID = uuid.MustParse("00000000-0000-0000-0000-0000000000f0")
	a       = uuid.MustParse("00000000-0000-0000-0000-00000000000a")
	b       = uuid.MustParse("00000000-0000-0000-0000-00000000000b")
	c       = uuid.MustParse("00000000-0000-0000-0000-00000000000c")
	d       = uuid.MustParse("00000000-0000-0000-0000-00000000000d")
)

func inr(minor int64) money.Money { return money.New(minor, "INR") }

func bal(id uuid.UUID, net int64) projector.Balance {
	return projector.Balance{MemberID: id, Net: inr(net)}
}

func TestPlan(t *testing.T) {
	tests := []struct {
		name     string
		balances []projector.Balance
		want     []Transfer
	}{
		{
			name:     "dinner",
			balances: []projector.Balance{bal(a, 6000), bal(b, -3000), bal(c, -3000)},
			want: []Transfer{
				{From: b, To: a, Amount: inr(3000)},
				{From: c, To: a, Amount: inr(3000)},
			},
		},
		{
			name:     "already settled",
			balances: []projector.Balance{bal(a, 0), bal(b, 0)},
			want:     nil,
		},
		{
			name:     "largest debtor pays largest creditor first",
			balances: []projector.Balance{bal(a, 1000), bal(b, 4000), bal(c, -500), bal(d, -4500)},
			want: []Transfer{
				{From: d, To: b, Amount: inr(4000)},
				{From: c, To: a, Amount: inr(500)},
				{From: d, To: a, Amount: inr(500)},
			},
		},
		{
			name:     "ties go to the lower member id",
			balances: []projector.Balance{bal(d, 100), bal(c, 100), bal(b, -100), bal(a, -100)},
			want: []Transfer{
				{From: a, To: c, Amount: inr(100)},
				{From: b, To: d, Amount: inr(100)},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Plan(groupID, tt.balances)
			if err != nil {
				t.Fatalf("Plan() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Plan() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPlanRejectsUnbalancedInput(t *testing.T) {
	_, err := Plan(groupID, []projector.Balance{bal(a, 100), bal(b, -40)})
	if !errors.Is(err, ledger.ErrInvariant) {
		t.Fatalf("Plan() error = %v, want invariant violation", err)
	}

	_, residual := Greedy([]projector.Balance{bal(a, 100), bal(b, -40)})
	if diff := cmp.Diff([]projector.Balance{bal(a, 60)}, residual); diff != "" {
		t.Errorf("residual mismatch (-want +got):\n%s", diff)
	}
}

func TestPlanClosesTheLoop(t *testing.T) {
	ids := []uuid.UUID{a, b, c, d}
	for seed := range uint64(50) {
		rng := rand.New(rand.NewPCG(seed, 1))

		balances := make([]projector.Balance, len(ids))
		var sum int64
		for i, id := range ids[:len(ids)-1] {
			net := rng.Int64N(20001) - 10000
			balances[i] = bal(id, net)
			sum += net
		}
		balances[len(ids)-1] = bal(ids[len(ids)-1], -sum)

		transfers, err := Plan(groupID, balances)
		if err != nil {
			t.Fatalf("seed %d: Plan() error = %v", seed, err)
		}
		if len(transfers) > len(ids)-1 {
			t.Errorf("seed %d: %d transfers for %d members", seed, len(transfers), len(ids))
		}

		net := make(map[uuid.UUID]money.Money)
		for _, bl := range balances {
			net[bl.MemberID] = bl.Net
		}
		for _, tr := range transfers {
			if !tr.Amount.IsPositive() {
				t.Fatalf("seed %d: non-positive transfer %+v", seed, tr)
			}
			net[tr.From] = net[tr.From].Add(tr.Amount)
			net[tr.To] = net[tr.To].Sub(tr.Amount)
		}
		for id, m := range net {
			if !m.IsZero() {
				t.Errorf("seed %d: member %s left at %v after the plan", seed, id, m)
			}
		}
	}
}
