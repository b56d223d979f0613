package projector

import (
	"context"
	"errors"
	"iter"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"github.com/billbatista/acasinha-ledger/eventstore"
	"github.com/billbatista/acasinha-ledger/ledger"
	"github.com/billbatista/acasinha-ledger/money"
)

var (
	groupID = uuid.MustParse("00000000-0000-0000-0000-0000000000f0")
	alice   = ledger.Member{ID: uuid.MustParse("00000000-0000-0000-0000-00000000000a"), Name: "Alice"}
	bob     = ledger.Member{ID: uuid.MustParse("00000000-0000-0000-0000-00000000000b"), Name: "Bob"}
	carol   = ledger.Member{ID: uuid.MustParse("00000000-0000-0000-0000-00000000000c"), Name: "Carol"}
)

func roster() ledger.Roster {
	return ledger.Roster{GroupID: groupID, Currency: "INR", Members: []ledger.Member{carol, bob, alice}}
}

func inr(minor int64) money.Money { return money.New(minor, "INR") }

func sequence(payloads ...ledger.Payload) []ledger.Event {
	events := make([]ledger.Event, len(payloads))
	for i, p := range payloads {
		events[i] = ledger.Event{Seq: ledger.Seq(i + 1), Payload: p}
	}
	return events
}

func each(events []ledger.Event) iter.Seq2[ledger.Event, error] {
	return func(yield func(ledger.Event, error) bool) {
		for _, ev := range events {
			if !yield(ev, nil) {
				return
			}
		}
	}
}

func dinner(t *testing.T) ledger.Expense {
	t.Helper()
	exp, err := ledger.NewExpense(roster(), ledger.ExpenseInput{
		Name:   "Dinner",
		Total:  inr(9000),
		Payers: []ledger.Portion{{MemberID: alice.ID, Amount: inr(9000)}},
	})
	if err != nil {
		t.Fatalf("NewExpense() error = %v", err)
	}
	return exp
}

func settle(t *testing.T, from, to ledger.Member, amount int64) ledger.Settlement {
	t.Helper()
	s, err := ledger.NewSettlement(roster(), ledger.SettlementInput{From: from.ID, To: to.ID, Amount: inr(amount)})
	if err != nil {
		t.Fatalf("NewSettlement() error = %v", err)
	}
	return s
}

func TestDinnerScenario(t *testing.T) {
	r := roster()
	st, err := Fold(NewState(groupID, "INR"), each(sequence(dinner(t))))
	if err != nil {
		t.Fatalf("Fold() error = %v", err)
	}

	want := []Balance{
		{MemberID: alice.ID, Net: inr(6000)},
		{MemberID: bob.ID, Net: inr(-3000)},
		{MemberID: carol.ID, Net: inr(-3000)},
	}
	if diff := cmp.Diff(want, st.Balances(r)); diff != "" {
		t.Errorf("Balances() mismatch (-want +got):\n%s", diff)
	}
}

func TestSettlementMovesDebtorTowardZero(t *testing.T) {
	r := roster()
	st, err := Fold(NewState(groupID, "INR"), each(sequence(dinner(t), settle(t, bob, alice, 3000))))
	if err != nil {
		t.Fatalf("Fold() error = %v", err)
	}

	want := []Balance{
		{MemberID: alice.ID, Net: inr(3000)},
		{MemberID: bob.ID, Net: inr(0)},
		{MemberID: carol.ID, Net: inr(-3000)},
	}
	if diff := cmp.Diff(want, st.Balances(r)); diff != "" {
		t.Errorf("Balances() mismatch (-want +got):\n%s", diff)
	}
}

func TestBalancesIncludeMembersWithoutEvents(t *testing.T) {
	got := NewState(groupID, "INR").Balances(roster())
	if len(got) != 3 {
		t.Fatalf("got %d balances, want 3", len(got))
	}
	for _, b := range got {
		if b.Net != inr(0) {
			t.Errorf("member %s: got %v, want zero", b.MemberID, b.Net)
		}
	}
}

// randomEvents builds a valid mix of expenses and settlements.
func randomEvents(t *testing.T, seed uint64, n int) []ledger.Event {
	t.Helper()
	rng := rand.New(rand.NewPCG(seed, seed))
	r := roster()
	members := r.Sorted()

	payloads := make([]ledger.Payload, 0, n)
	for range n {
		if rng.IntN(4) == 0 {
			from := members[rng.IntN(len(members))]
			to := members[(slicesIndex(members, from)+1+rng.IntN(len(members)-1))%len(members)]
			payloads = append(payloads, settle(t, from, to, 1+rng.Int64N(5000)))
			continue
		}
		total := 1 + rng.Int64N(100000)
		first := rng.Int64N(total + 1)
		in := ledger.ExpenseInput{
			Name:  "Random",
			Total: inr(total),
			Payers: []ledger.Portion{
				{MemberID: members[0].ID, Amount: inr(first)},
				{MemberID: members[1+rng.IntN(2)].ID, Amount: inr(total - first)},
			},
		}
		exp, err := ledger.NewExpense(r, in)
		if err != nil {
			t.Fatalf("NewExpense() error = %v", err)
		}
		payloads = append(payloads, exp)
	}
	return sequence(payloads...)
}

func slicesIndex(ms []ledger.Member, m ledger.Member) int {
	for i := range ms {
		if ms[i].ID == m.ID {
			return i
		}
	}
	return -1
}

func TestConservation(t *testing.T) {
	for seed := range uint64(20) {
		events := randomEvents(t, seed, 40)
		st := NewState(groupID, "INR")
		for _, ev := range events {
			if err := st.Apply(ev); err != nil {
				t.Fatalf("seed %d: Apply(seq %d) error = %v", seed, ev.Seq, err)
			}
			if sum, err := st.Sum(); err != nil || !sum.IsZero() {
				t.Fatalf("seed %d: balances sum to %v (%v) after seq %d", seed, sum, err, ev.Seq)
			}
		}
	}
}

func TestReplayIsDeterministic(t *testing.T) {
	r := roster()
	events := randomEvents(t, 7, 30)

	first, err := History(r, each(events))
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	second, err := History(r, each(events))
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("two replays differ (-first +second):\n%s", diff)
	}
	if len(first) != len(events) {
		t.Fatalf("got %d history entries, want %d", len(first), len(events))
	}
	for i, entry := range first {
		if entry.Event.Seq != ledger.Seq(i+1) {
			t.Errorf("entry %d has seq %d, want ascending order", i, entry.Event.Seq)
		}
	}
}

func TestFoldFromPrefixMatchesFullReplay(t *testing.T) {
	events := randomEvents(t, 11, 25)
	full, err := Fold(NewState(groupID, "INR"), each(events))
	if err != nil {
		t.Fatalf("Fold() error = %v", err)
	}

	for k := range len(events) + 1 {
		prefix, err := Fold(NewState(groupID, "INR"), each(events[:k]))
		if err != nil {
			t.Fatalf("Fold(prefix %d) error = %v", k, err)
		}
		rest, err := Fold(prefix, each(events[k:]))
		if err != nil {
			t.Fatalf("Fold(rest %d) error = %v", k, err)
		}
		if diff := cmp.Diff(full, rest); diff != "" {
			t.Fatalf("k=%d: incremental fold differs (-full +incremental):\n%s", k, diff)
		}
	}
}

func TestFoldLeavesInputUntouched(t *testing.T) {
	start, err := Fold(NewState(groupID, "INR"), each(sequence(dinner(t))))
	if err != nil {
		t.Fatalf("Fold() error = %v", err)
	}
	snapshot := start.Clone()

	if _, err := Fold(start, each([]ledger.Event{{Seq: 2, Payload: settle(t, bob, alice, 3000)}})); err != nil {
		t.Fatalf("Fold() error = %v", err)
	}
	if diff := cmp.Diff(snapshot, start); diff != "" {
		t.Errorf("Fold mutated its input (-before +after):\n%s", diff)
	}
}

func TestApplyDetectsInvariantViolations(t *testing.T) {
	unbalanced := dinner(t)
	unbalanced.Shares = unbalanced.Shares[:2]
	wrapping := dinner(t)
	wrapping.Payers = []ledger.Portion{
		{MemberID: alice.ID, Amount: inr(math.MaxInt64)},
		{MemberID: bob.ID, Amount: inr(math.MaxInt64)},
		{MemberID: carol.ID, Amount: inr(4)},
	}

	tests := []struct {
		name   string
		events []ledger.Event
	}{
		{"shares short of total", sequence(unbalanced)},
		{"amounts that wrap around", sequence(wrapping)},
		{"out of order", []ledger.Event{
			{Seq: 2, Payload: dinner(t)},
			{Seq: 2, Payload: settle(t, bob, alice, 100)},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Fold(NewState(groupID, "INR"), each(tt.events))
			var iv *ledger.InvariantViolation
			if !errors.As(err, &iv) {
				t.Fatalf("Fold() error = %v, want *InvariantViolation", err)
			}
			if iv.GroupID != groupID {
				t.Errorf("GroupID: got %s, want %s", iv.GroupID, groupID)
			}
		})
	}
}

type directory struct{ r ledger.Roster }

func (d directory) Roster(context.Context, uuid.UUID) (ledger.Roster, error) { return d.r, nil }

func TestProjectorCacheMatchesReplay(t *testing.T) {
	ctx := context.Background()
	r := roster()
	store := eventstore.New(eventstore.NewMemory(), directory{r})
	p := New(store)

	for i, ev := range randomEvents(t, 3, 15) {
		if _, err := store.Append(ctx, ev.Payload); err != nil {
			t.Fatalf("Append(%d) error = %v", i, err)
		}
		if i%4 != 0 {
			continue
		}
		cached, err := p.Current(ctx, r)
		if err != nil {
			t.Fatalf("Current() error = %v", err)
		}
		replayed, err := p.Replay(ctx, r)
		if err != nil {
			t.Fatalf("Replay() error = %v", err)
		}
		if diff := cmp.Diff(replayed, cached); diff != "" {
			t.Fatalf("after %d events the cache drifted (-replay +cache):\n%s", i+1, diff)
		}
	}

	p.Invalidate(groupID)
	cached, err := p.Current(ctx, r)
	if err != nil {
		t.Fatalf("Current() error = %v", err)
	}
	if cached.Seq != 15 {
		t.Errorf("Seq after invalidation: got %d, want 15", cached.Seq)
	}
}

func TestSummarize(t *testing.T) {
	r := roster()
	d := dinner(t)
	rev, err := ledger.NewReversal(r, d)
	if err != nil {
		t.Fatalf("NewReversal() error = %v", err)
	}
	taxi, err := ledger.NewExpense(r, ledger.ExpenseInput{
		Name:   "Taxi",
		Total:  inr(600),
		Payers: []ledger.Portion{{MemberID: bob.ID, Amount: inr(600)}},
		Shares: []ledger.Portion{{MemberID: bob.ID, Amount: inr(300)}, {MemberID: carol.ID, Amount: inr(300)}},
	})
	if err != nil {
		t.Fatalf("NewExpense() error = %v", err)
	}

	events := sequence(d, taxi, settle(t, carol, bob, 300), rev)
	got, err := Summarize(r, each(events))
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}

	if got.TotalExpenses != inr(600) || got.ExpenseCount != 2 || got.ReversalCount != 1 || got.SettlementCount != 1 {
		t.Errorf("totals: got %v / %d expenses / %d reversals / %d settlements",
			got.TotalExpenses, got.ExpenseCount, got.ReversalCount, got.SettlementCount)
	}
	if got.LastSeq != 4 {
		t.Errorf("LastSeq: got %d, want 4", got.LastSeq)
	}

	zero := inr(0)
	want := []MemberSummary{
		{MemberID: alice.ID, Name: "Alice", Paid: zero, Share: zero, SettledOut: zero, SettledIn: zero, Net: zero},
		{MemberID: bob.ID, Name: "Bob", Paid: inr(600), Share: inr(300), SettledOut: zero, SettledIn: inr(300), Net: zero},
		{MemberID: carol.ID, Name: "Carol", Paid: zero, Share: inr(300), SettledOut: inr(300), SettledIn: zero, Net: zero},
	}
	if diff := cmp.Diff(want, got.Members); diff != "" {
		t.Errorf("Members mismatch (-want +got):\n%s", diff)
	}
}
