// Package views renders ledger results as terminal tables.
package views

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/pterm/pterm"

	"github.com/billbatista/acasinha-ledger/group"
	"github.com/billbatista/acasinha-ledger/ledger"
	"github.com/billbatista/acasinha-ledger/money"
	"github.com/billbatista/acasinha-ledger/projector"
	"github.com/billbatista/acasinha-ledger/settlement"
)

func Title(format string, a ...any) {
	style := pterm.NewStyle(pterm.BgCyan, pterm.FgBlack, pterm.Bold)
	style.Println(fmt.Sprintf(" %s   ", fmt.Sprintf(format, a...)))
}

// Names maps member ids to display names; unknown ids show as their uuid.
type Names map[uuid.UUID]string

func NamesOf(g *group.Group) Names {
	n := make(Names, len(g.Members))
	for _, m := range g.Members {
		n[m.ID] = m.Name
	}
	return n
}

func (n Names) Of(id uuid.UUID) string {
	if name, ok := n[id]; ok {
		return name
	}
	return id.String()
}

func RenderGroup(g *group.Group) error {
	Title("%s", g.Name)
	data := pterm.TableData{
		{pterm.Blue("Group ID"), g.ID.String()},
		{pterm.Blue("Currency"), g.Currency},
		{pterm.Blue("Created"), g.CreatedAt.Local().Format("2006-01-02 15:04")},
	}
	if err := pterm.DefaultTable.WithData(data).Render(); err != nil {
		return err
	}

	members := pterm.TableData{{"Member", "ID"}}
	for _, m := range g.Members {
		members = append(members, []string{m.Name, m.ID.String()})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(members).Render()
}

// signed colours a balance: green when the group owes the member, red when
// the member owes the group.
func signed(m money.Money) string {
	switch {
	case m.IsPositive():
		return pterm.Green("+" + m.Display())
	case m.IsNegative():
		return pterm.Red(m.Display())
	}
	return pterm.Gray(m.Display())
}

func RenderBalances(names Names, balances []projector.Balance) error {
	data := pterm.TableData{{"Member", "Net"}}
	for _, b := range balances {
		data = append(data, []string{names.Of(b.MemberID), signed(b.Net)})
	}
	return pterm.DefaultTable.WithHasHeader().WithRightAlignment().WithData(data).Render()
}

func RenderPlan(names Names, transfers []settlement.Transfer) error {
	if len(transfers) == 0 {
		pterm.Success.Println("Everyone is settled up.")
		return nil
	}
	data := pterm.TableData{{"From", "", "To", "Amount"}}
	for _, t := range transfers {
		data = append(data, []string{names.Of(t.From), "→", names.Of(t.To), t.Amount.Display()})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

func RenderHistory(names Names, entries []projector.HistoryEntry) error {
	if len(entries) == 0 {
		pterm.Info.Println("No events recorded yet.")
		return nil
	}
	data := pterm.TableData{{"Seq", "When", "Event", "Amount", "Balances"}}
	for _, e := range entries {
		data = append(data, []string{
			fmt.Sprintf("%d", e.Event.Seq),
			e.Event.CreatedAt().Local().Format("2006-01-02 15:04"),
			describe(names, e.Event.Payload),
			amount(e.Event.Payload).Display(),
			balanceLine(names, e.Balances),
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

func describe(names Names, p ledger.Payload) string {
	switch p := p.(type) {
	case ledger.Expense:
		if p.Category != "" {
			return p.Name + " [" + p.Category + "]"
		}
		return p.Name
	case ledger.Settlement:
		return names.Of(p.From) + " paid " + names.Of(p.To)
	}
	return string(p.Kind())
}

func amount(p ledger.Payload) money.Money {
	switch p := p.(type) {
	case ledger.Expense:
		return p.Total
	case ledger.Settlement:
		return p.Amount
	}
	return money.Money{}
}

func balanceLine(names Names, balances []projector.Balance) string {
	var line string
	for i, b := range balances {
		if i > 0 {
			line += "  "
		}
		line += names.Of(b.MemberID) + " " + b.Net.FormatMajor()
	}
	return line
}

func RenderSummary(sum projector.Summary) error {
	data := pterm.TableData{
		{pterm.Blue("Total spent"), sum.TotalExpenses.Display()},
		{pterm.Blue("Expenses"), fmt.Sprintf("%d", sum.ExpenseCount)},
		{pterm.Blue("Reversals"), fmt.Sprintf("%d", sum.ReversalCount)},
		{pterm.Blue("Settlements"), fmt.Sprintf("%d", sum.SettlementCount)},
		{pterm.Blue("Last event"), fmt.Sprintf("%d", sum.LastSeq)},
	}
	if err := pterm.DefaultTable.WithData(data).Render(); err != nil {
		return err
	}

	members := pterm.TableData{{"Member", "Paid", "Share", "Settled out", "Settled in", "Net"}}
	for _, m := range sum.Members {
		members = append(members, []string{
			m.Name,
			m.Paid.Display(),
			m.Share.Display(),
			m.SettledOut.Display(),
			m.SettledIn.Display(),
			signed(m.Net),
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithRightAlignment().WithData(members).Render()
}

func RenderExpense(names Names, e ledger.Expense) error {
	data := pterm.TableData{
		{pterm.Blue("Expense ID"), e.ID.String()},
		{pterm.Blue("Name"), e.Name},
		{pterm.Blue("Total"), e.Total.Display()},
	}
	for _, p := range e.Payers {
		data = append(data, []string{pterm.Blue("Paid by"), names.Of(p.MemberID) + " " + p.Amount.Display()})
	}
	for _, s := range e.Shares {
		data = append(data, []string{pterm.Blue("Owed by"), names.Of(s.MemberID) + " " + s.Amount.Display()})
	}
	if err := pterm.DefaultTable.WithData(data).Render(); err != nil {
		return err
	}
	pterm.Success.Println("Expense recorded.")
	return nil
}

func RenderSettlement(names Names, s ledger.Settlement) error {
	pterm.Success.Printf("%s paid %s %s (%s)\n", names.Of(s.From), names.Of(s.To), s.Amount.Display(), s.ID)
	return nil
}
