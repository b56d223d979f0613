// Package settlement turns net balances into the transfers that clear them.
package settlement

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/billbatista/acasinha-ledger/ledger"
	"github.com/billbatista/acasinha-ledger/money"
	"github.com/billbatista/acasinha-ledger/projector"
)

// Transfer is one payment from a debtor to a creditor.
type Transfer struct {
	From   uuid.UUID   `json:"from"`
	To     uuid.UUID   `json:"to"`
	Amount money.Money `json:"amount"`
}

// Greedy matches the largest creditor with the largest debtor, moves as
// much as it can between them and repeats until one side runs out. Ties are
// broken by the lower member id. Whatever is left over is returned as the
// residual, which is empty whenever the balances sum to zero.
func Greedy(balances []projector.Balance) (transfers []Transfer, residual []projector.Balance) {
	var creditors, debtors []projector.Balance
	for _, b := range balances {
		switch {
		case b.Net.IsPositive():
			creditors = append(creditors, b)
		case b.Net.IsNegative():
			debtors = append(debtors, projector.Balance{MemberID: b.MemberID, Net: b.Net.Neg()})
		}
	}

	for len(creditors) > 0 && len(debtors) > 0 {
		ci, di := largest(creditors), largest(debtors)
		amount := creditors[ci].Net.Min(debtors[di].Net)

		transfers = append(transfers, Transfer{
			From:   debtors[di].MemberID,
			To:     creditors[ci].MemberID,
			Amount: amount,
		})

		creditors[ci].Net = creditors[ci].Net.Sub(amount)
		debtors[di].Net = debtors[di].Net.Sub(amount)
		if creditors[ci].Net.IsZero() {
			creditors = append(creditors[:ci], creditors[ci+1:]...)
		}
		if debtors[di].Net.IsZero() {
			debtors = append(debtors[:di], debtors[di+1:]...)
		}
	}

	residual = append(residual, creditors...)
	for _, d := range debtors {
		residual = append(residual, projector.Balance{MemberID: d.MemberID, Net: d.Net.Neg()})
	}
	return transfers, residual
}

// Plan proposes the transfers that bring every balance of a group to zero.
// Balances that do not net out are an invariant violation.
func Plan(groupID uuid.UUID, balances []projector.Balance) ([]Transfer, error) {
	transfers, residual := Greedy(balances)
	if len(residual) > 0 {
		return nil, &ledger.InvariantViolation{
			GroupID: groupID,
			Detail:  fmt.Sprintf("settlement plan leaves %d member(s) unsettled", len(residual)),
		}
	}
	return transfers, nil
}

// largest returns the index of the biggest amount, preferring the lower
// member id on ties.
func largest(bs []projector.Balance) int {
	best := 0
	for i := 1; i < len(bs); i++ {
		c := bs[i].Net.Cmp(bs[best].Net)
		if c > 0 || (c == 0 && ledger.CompareIDs(bs[i].MemberID, bs[best].MemberID) < 0) {
			best = i
		}
	}
	return best
}
