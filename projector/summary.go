package projector

import (
	"iter"

	"github.com/google/uuid"

	"github.com/billbatista/acasinha-ledger/ledger"
	"github.com/billbatista/acasinha-ledger/money"
)

type MemberSummary struct {
	MemberID   uuid.UUID   `json:"member_id"`
	Name       string      `json:"name"`
	Paid       money.Money `json:"paid"`
	Share      money.Money `json:"share"`
	SettledOut money.Money `json:"settled_out"`
	SettledIn  money.Money `json:"settled_in"`
	Net        money.Money `json:"net"`
}

type Summary struct {
	GroupID         uuid.UUID       `json:"group_id"`
	Currency        string          `json:"currency"`
	TotalExpenses   money.Money     `json:"total_expenses"`
	ExpenseCount    int             `json:"expense_count"`
	ReversalCount   int             `json:"reversal_count"`
	SettlementCount int             `json:"settlement_count"`
	LastSeq         ledger.Seq      `json:"last_seq"`
	Members         []MemberSummary `json:"members"`
}

// Summarize totals what every member paid, owed and settled. A reversal
// takes its original's amounts back out rather than counting as new
// spending, so Net always equals Paid - Share + SettledOut - SettledIn.
func Summarize(r ledger.Roster, events iter.Seq2[ledger.Event, error]) (Summary, error) {
	zero := money.Zero(r.Currency)
	sum := Summary{
		GroupID:       r.GroupID,
		Currency:      r.Currency,
		TotalExpenses: zero,
	}

	byID := make(map[uuid.UUID]*MemberSummary, len(r.Members))
	for _, m := range r.Sorted() {
		sum.Members = append(sum.Members, MemberSummary{
			MemberID: m.ID, Name: m.Name,
			Paid: zero, Share: zero, SettledOut: zero, SettledIn: zero, Net: zero,
		})
	}
	for i := range sum.Members {
		byID[sum.Members[i].MemberID] = &sum.Members[i]
	}

	st := NewState(r.GroupID, r.Currency)
	for ev, err := range events {
		if err != nil {
			return Summary{}, err
		}
		if err := st.Apply(ev); err != nil {
			return Summary{}, err
		}

		switch p := ev.Payload.(type) {
		case ledger.Expense:
			if p.ReversalOf != nil {
				sum.ReversalCount++
				sum.TotalExpenses = sum.TotalExpenses.Sub(p.Total)
				// payers of a reversal are the original's shares and vice versa
				for _, pp := range p.Payers {
					if m := byID[pp.MemberID]; m != nil {
						m.Share = m.Share.Sub(pp.Amount)
					}
				}
				for _, sh := range p.Shares {
					if m := byID[sh.MemberID]; m != nil {
						m.Paid = m.Paid.Sub(sh.Amount)
					}
				}
				continue
			}
			sum.ExpenseCount++
			sum.TotalExpenses = sum.TotalExpenses.Add(p.Total)
			for _, pp := range p.Payers {
				if m := byID[pp.MemberID]; m != nil {
					m.Paid = m.Paid.Add(pp.Amount)
				}
			}
			for _, sh := range p.Shares {
				if m := byID[sh.MemberID]; m != nil {
					m.Share = m.Share.Add(sh.Amount)
				}
			}
		case ledger.Settlement:
			sum.SettlementCount++
			if m := byID[p.From]; m != nil {
				m.SettledOut = m.SettledOut.Add(p.Amount)
			}
			if m := byID[p.To]; m != nil {
				m.SettledIn = m.SettledIn.Add(p.Amount)
			}
		}
	}

	sum.LastSeq = st.Seq
	for i := range sum.Members {
		m := &sum.Members[i]
		if net, ok := st.Net[m.MemberID]; ok {
			m.Net = net
		}
	}
	return sum, nil
}
