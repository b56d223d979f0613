// Package service is the entry point collaborators use to record expenses
// and settlements and to ask who owes whom.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/billbatista/acasinha-ledger/eventlogger"
	"github.com/billbatista/acasinha-ledger/eventstore"
	"github.com/billbatista/acasinha-ledger/group"
	"github.com/billbatista/acasinha-ledger/ledger"
	"github.com/billbatista/acasinha-ledger/projector"
	"github.com/billbatista/acasinha-ledger/settlement"
)

// Diagnostics receives operator events. *eventlogger.Worker satisfies it.
type Diagnostics interface {
	Log(event eventlogger.Event)
}

type discard struct{}

func (discard) Log(eventlogger.Event) {}

type Service struct {
	groups group.Repository
	store  *eventstore.Store
	proj   *projector.Projector
	diag   Diagnostics
	logger *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithDiagnostics(d Diagnostics) Option {
	return func(s *Service) { s.diag = d }
}

func New(groups group.Repository, store *eventstore.Store, proj *projector.Projector, opts ...Option) *Service {
	s := &Service{
		groups: groups,
		store:  store,
		proj:   proj,
		diag:   discard{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) CreateGroup(ctx context.Context, name, currency string, memberNames []string) (*group.Group, error) {
	g, err := group.New(name, currency, memberNames)
	if err != nil {
		return nil, err
	}
	if err := s.groups.Create(ctx, g); err != nil {
		return nil, err
	}

	s.logger.Info("group created", "group_id", g.ID, "members", len(g.Members), "currency", g.Currency)
	s.diag.Log(eventlogger.NewEvent(
		eventlogger.WithType(eventlogger.TypeGroupCreated),
		eventlogger.WithGroup(g.ID),
		eventlogger.WithData(map[string]string{"name": g.Name, "currency": g.Currency}),
	))
	return g, nil
}

func (s *Service) Group(ctx context.Context, groupID uuid.UUID) (*group.Group, error) {
	return s.groups.GetByID(ctx, groupID)
}

// RecordExpense validates and appends an expense. Leaving in.Shares empty
// splits the total equally across the group.
func (s *Service) RecordExpense(ctx context.Context, groupID uuid.UUID, in ledger.ExpenseInput) (ledger.Expense, error) {
	r, err := s.groups.Roster(ctx, groupID)
	if err != nil {
		return ledger.Expense{}, err
	}
	exp, err := ledger.NewExpense(r, in)
	if err != nil {
		return ledger.Expense{}, err
	}
	ev, err := s.store.Append(ctx, exp)
	if err != nil {
		return ledger.Expense{}, s.fail(ctx, groupID, "record expense", err)
	}

	s.logger.Info("expense recorded", "group_id", groupID, "expense_id", exp.ID, "seq", ev.Seq, "total", exp.Total.String())
	s.diag.Log(eventlogger.NewEvent(
		eventlogger.WithType(eventlogger.TypeExpenseRecorded),
		eventlogger.WithGroup(groupID),
		eventlogger.WithActor(actor(ctx)),
		eventlogger.WithData(map[string]any{"expense_id": exp.ID, "seq": ev.Seq, "total": exp.Total}),
	))
	return exp, nil
}

func (s *Service) RecordSettlement(ctx context.Context, groupID uuid.UUID, in ledger.SettlementInput) (ledger.Settlement, error) {
	r, err := s.groups.Roster(ctx, groupID)
	if err != nil {
		return ledger.Settlement{}, err
	}
	st, err := ledger.NewSettlement(r, in)
	if err != nil {
		return ledger.Settlement{}, err
	}
	if err := s.appendSettlement(ctx, st); err != nil {
		return ledger.Settlement{}, err
	}
	return st, nil
}

func (s *Service) appendSettlement(ctx context.Context, st ledger.Settlement) error {
	ev, err := s.store.Append(ctx, st)
	if err != nil {
		return s.fail(ctx, st.GroupID, "record settlement", err)
	}

	s.logger.Info("settlement recorded", "group_id", st.GroupID, "settlement_id", st.ID, "seq", ev.Seq, "amount", st.Amount.String())
	s.diag.Log(eventlogger.NewEvent(
		eventlogger.WithType(eventlogger.TypeSettlementRecorded),
		eventlogger.WithGroup(st.GroupID),
		eventlogger.WithActor(actor(ctx)),
		eventlogger.WithData(map[string]any{"settlement_id": st.ID, "seq": ev.Seq, "from": st.From, "to": st.To, "amount": st.Amount}),
	))
	return nil
}

// CurrentBalances returns every member's net balance in ascending member id
// order, zero balances included.
func (s *Service) CurrentBalances(ctx context.Context, groupID uuid.UUID) ([]projector.Balance, error) {
	r, st, err := s.current(ctx, groupID)
	if err != nil {
		return nil, err
	}
	return st.Balances(r), nil
}

// History returns every event of the group, oldest first, each with the
// balances right after it.
func (s *Service) History(ctx context.Context, groupID uuid.UUID) ([]projector.HistoryEntry, error) {
	r, err := s.groups.Roster(ctx, groupID)
	if err != nil {
		return nil, err
	}
	entries, err := projector.History(r, s.store.EventsSince(ctx, groupID, 0))
	if err != nil {
		return nil, s.fail(ctx, groupID, "build history", err)
	}
	return entries, nil
}

// ProposeSettlementPlan suggests the transfers that clear every balance.
// Nothing is recorded until the plan is accepted.
func (s *Service) ProposeSettlementPlan(ctx context.Context, groupID uuid.UUID) ([]settlement.Transfer, error) {
	r, st, err := s.current(ctx, groupID)
	if err != nil {
		return nil, err
	}
	transfers, err := settlement.Plan(groupID, st.Balances(r))
	if err != nil {
		return nil, s.fail(ctx, groupID, "plan settlements", err)
	}
	return transfers, nil
}

// AcceptTransfers records each transfer as a settlement, in order. Every
// transfer is validated before the first one is appended, so an invalid
// plan records nothing. A storage failure part way stops the loop; the
// settlements recorded before it are returned with the error.
func (s *Service) AcceptTransfers(ctx context.Context, groupID uuid.UUID, transfers []settlement.Transfer) ([]ledger.Settlement, error) {
	r, err := s.groups.Roster(ctx, groupID)
	if err != nil {
		return nil, err
	}

	pending := make([]ledger.Settlement, 0, len(transfers))
	for i, t := range transfers {
		st, err := ledger.NewSettlement(r, ledger.SettlementInput{
			From:   t.From,
			To:     t.To,
			Amount: t.Amount,
			Notes:  "settlement plan",
		})
		if err != nil {
			var verr *ledger.ValidationError
			if errors.As(err, &verr) {
				verr.Field = fmt.Sprintf("transfers[%d].%s", i, verr.Field)
			}
			return nil, err
		}
		pending = append(pending, st)
	}

	recorded := make([]ledger.Settlement, 0, len(pending))
	for _, st := range pending {
		if err := s.appendSettlement(ctx, st); err != nil {
			return recorded, err
		}
		recorded = append(recorded, st)
	}

	s.diag.Log(eventlogger.NewEvent(
		eventlogger.WithType(eventlogger.TypePlanAccepted),
		eventlogger.WithGroup(groupID),
		eventlogger.WithActor(actor(ctx)),
		eventlogger.WithData(map[string]int{"transfers": len(recorded)}),
	))
	return recorded, nil
}

// ReverseExpense appends the expense that cancels expenseID out.
func (s *Service) ReverseExpense(ctx context.Context, groupID, expenseID uuid.UUID) (ledger.Expense, error) {
	r, err := s.groups.Roster(ctx, groupID)
	if err != nil {
		return ledger.Expense{}, err
	}

	var (
		orig  ledger.Expense
		found bool
	)
	for ev, err := range s.store.EventsSince(ctx, groupID, 0) {
		if err != nil {
			return ledger.Expense{}, err
		}
		if exp, ok := ev.Payload.(ledger.Expense); ok && exp.ID == expenseID {
			orig, found = exp, true
			break
		}
	}

	switch {
	case !found:
		return ledger.Expense{}, &ledger.ValidationError{Field: "expense_id", Message: "no expense " + expenseID.String() + " in this group"}
	case orig.ReversalOf != nil:
		return ledger.Expense{}, &ledger.ValidationError{Field: "expense_id", Message: "a reversal can't be reversed"}
	}

	rev, err := ledger.NewReversal(r, orig)
	if err != nil {
		return ledger.Expense{}, err
	}
	// checked under the append lock so concurrent reversals can't both pass
	ev, err := s.store.AppendIf(ctx, rev, func(ctx context.Context, _ ledger.Seq) error {
		for ev, err := range s.store.EventsSince(ctx, groupID, 0) {
			if err != nil {
				return err
			}
			if exp, ok := ev.Payload.(ledger.Expense); ok && exp.ReversalOf != nil && *exp.ReversalOf == expenseID {
				return &ledger.ValidationError{Field: "expense_id", Message: "expense " + expenseID.String() + " was already reversed"}
			}
		}
		return nil
	})
	if err != nil {
		return ledger.Expense{}, s.fail(ctx, groupID, "reverse expense", err)
	}

	s.logger.Info("expense reversed", "group_id", groupID, "expense_id", expenseID, "reversal_id", rev.ID, "seq", ev.Seq)
	s.diag.Log(eventlogger.NewEvent(
		eventlogger.WithType(eventlogger.TypeExpenseReversed),
		eventlogger.WithGroup(groupID),
		eventlogger.WithActor(actor(ctx)),
		eventlogger.WithData(map[string]any{"expense_id": expenseID, "reversal_id": rev.ID, "seq": ev.Seq}),
	))
	return rev, nil
}

func (s *Service) Summary(ctx context.Context, groupID uuid.UUID) (projector.Summary, error) {
	r, err := s.groups.Roster(ctx, groupID)
	if err != nil {
		return projector.Summary{}, err
	}
	sum, err := projector.Summarize(r, s.store.EventsSince(ctx, groupID, 0))
	if err != nil {
		return projector.Summary{}, s.fail(ctx, groupID, "summarize", err)
	}
	return sum, nil
}

// VerifyIntegrity checks the digest chain of the group's log and that a
// full replay still balances. It returns the last verified sequence number.
func (s *Service) VerifyIntegrity(ctx context.Context, groupID uuid.UUID) (ledger.Seq, error) {
	r, err := s.groups.Roster(ctx, groupID)
	if err != nil {
		return 0, err
	}
	last, err := s.store.Verify(ctx, groupID)
	if err != nil {
		return last, s.fail(ctx, groupID, "verify integrity", err)
	}
	if _, err := s.proj.Replay(ctx, r); err != nil {
		return last, s.fail(ctx, groupID, "verify integrity", err)
	}
	return last, nil
}

func (s *Service) current(ctx context.Context, groupID uuid.UUID) (ledger.Roster, projector.State, error) {
	r, err := s.groups.Roster(ctx, groupID)
	if err != nil {
		return ledger.Roster{}, projector.State{}, err
	}
	st, err := s.proj.Current(ctx, r)
	if err != nil {
		return ledger.Roster{}, projector.State{}, s.fail(ctx, groupID, "derive balances", err)
	}
	return r, st, nil
}

// fail reports invariant violations with full detail before handing the
// error back; callers only show a generic failure for them.
func (s *Service) fail(ctx context.Context, groupID uuid.UUID, op string, err error) error {
	var iv *ledger.InvariantViolation
	if errors.As(err, &iv) {
		s.logger.Error("ledger invariant violated", "op", op, "group_id", groupID, "seq", iv.Seq, "detail", iv.Detail)
		s.diag.Log(eventlogger.NewEvent(
			eventlogger.WithType(eventlogger.TypeInvariantViolated),
			eventlogger.WithGroup(groupID),
			eventlogger.WithActor(actor(ctx)),
			eventlogger.WithData(map[string]any{"op": op, "seq": iv.Seq, "detail": iv.Detail}),
		))
	}
	return err
}

func actor(ctx context.Context) uuid.UUID {
	id, _ := ledger.ActorFrom(ctx)
	return id
}
