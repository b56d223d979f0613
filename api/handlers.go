package api

import (
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/billbatista/acasinha-ledger/group"
	"github.com/billbatista/acasinha-ledger/ledger"
	"github.com/billbatista/acasinha-ledger/money"
	"github.com/billbatista/acasinha-ledger/projector"
	"github.com/billbatista/acasinha-ledger/settlement"
)

type createGroupRequest struct {
	Name     string   `json:"name"`
	Currency string   `json:"currency"`
	Members  []string `json:"members"`
}

type portionRequest struct {
	MemberID uuid.UUID `json:"member_id"`
	Amount   string    `json:"amount"`
}

type expenseRequest struct {
	Name     string           `json:"name"`
	Total    string           `json:"total"`
	Payers   []portionRequest `json:"payers"`
	Shares   []portionRequest `json:"shares,omitempty"`
	Category string           `json:"category,omitempty"`
	Notes    string           `json:"notes,omitempty"`
}

type settlementRequest struct {
	From   uuid.UUID `json:"from"`
	To     uuid.UUID `json:"to"`
	Amount string    `json:"amount"`
	Notes  string    `json:"notes,omitempty"`
}

type acceptRequest struct {
	Transfers []settlementRequest `json:"transfers"`
}

type acceptResponse struct {
	Settlements []ledger.Settlement `json:"settlements"`
	Error       *errorResponse      `json:"error,omitempty"`
}

type balanceResponse struct {
	MemberID uuid.UUID   `json:"member_id"`
	Name     string      `json:"name"`
	Net      money.Money `json:"net"`
}

type balancesResponse struct {
	GroupID  uuid.UUID         `json:"group_id"`
	Currency string            `json:"currency"`
	Balances []balanceResponse `json:"balances"`
}

type planResponse struct {
	Transfers []settlement.Transfer `json:"transfers"`
}

type verifyResponse struct {
	LastSeq ledger.Seq `json:"last_seq"`
	OK      bool       `json:"ok"`
}

func (h *Handler) createGroup(w http.ResponseWriter, r *http.Request) {
	var req createGroupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	g, err := h.svc.CreateGroup(r.Context(), req.Name, req.Currency, req.Members)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, g)
}

func (h *Handler) getGroup(w http.ResponseWriter, r *http.Request) {
	g, err := h.svc.Group(r.Context(), groupID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (h *Handler) recordExpense(w http.ResponseWriter, r *http.Request) {
	g, err := h.svc.Group(r.Context(), groupID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var req expenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	in := ledger.ExpenseInput{Name: req.Name, Category: req.Category, Notes: req.Notes}
	if in.Total, err = parseAmount("total", req.Total, g.Currency); err != nil {
		h.writeError(w, r, err)
		return
	}
	if in.Payers, err = portions("payers", req.Payers, g.Currency); err != nil {
		h.writeError(w, r, err)
		return
	}
	if in.Shares, err = portions("shares", req.Shares, g.Currency); err != nil {
		h.writeError(w, r, err)
		return
	}

	exp, err := h.svc.RecordExpense(r.Context(), g.ID, in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, exp)
}

func (h *Handler) reverseExpense(w http.ResponseWriter, r *http.Request) {
	expenseID, err := uuid.Parse(chi.URLParam(r, "expenseID"))
	if err != nil {
		h.writeError(w, r, &ledger.ValidationError{Field: "expense_id", Message: "invalid expense id"})
		return
	}
	rev, err := h.svc.ReverseExpense(r.Context(), groupID(r), expenseID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rev)
}

func (h *Handler) recordSettlement(w http.ResponseWriter, r *http.Request) {
	g, err := h.svc.Group(r.Context(), groupID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var req settlementRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	in, err := settlementInput(req, g.Currency)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	st, err := h.svc.RecordSettlement(r.Context(), g.ID, in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, st)
}

func (h *Handler) balances(w http.ResponseWriter, r *http.Request) {
	g, err := h.svc.Group(r.Context(), groupID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	balances, err := h.svc.CurrentBalances(r.Context(), g.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, balancesResponse{
		GroupID:  g.ID,
		Currency: g.Currency,
		Balances: named(g, balances),
	})
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	entries, err := h.svc.History(r.Context(), groupID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	switch r.URL.Query().Get("order") {
	case "", "asc":
	case "desc":
		slices.Reverse(entries)
	default:
		h.writeError(w, r, &ledger.ValidationError{Field: "order", Message: `order must be "asc" or "desc"`})
		return
	}
	if entries == nil {
		entries = []projector.HistoryEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *Handler) plan(w http.ResponseWriter, r *http.Request) {
	transfers, err := h.svc.ProposeSettlementPlan(r.Context(), groupID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, planResponse{Transfers: nonNil(transfers)})
}

// acceptPlan records the transfers in the body, or the currently proposed
// plan when the body lists none. When a failure interrupts the plan after
// some settlements were committed, the response is 207 with what was
// recorded and the error; being a success status it is remembered under the
// Idempotency-Key, so a retry cannot record those settlements twice.
func (h *Handler) acceptPlan(w http.ResponseWriter, r *http.Request) {
	g, err := h.svc.Group(r.Context(), groupID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var req acceptRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			h.writeError(w, r, err)
			return
		}
	}

	var transfers []settlement.Transfer
	if len(req.Transfers) == 0 {
		transfers, err = h.svc.ProposeSettlementPlan(r.Context(), g.ID)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
	}
	for _, t := range req.Transfers {
		in, err := settlementInput(t, g.Currency)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		transfers = append(transfers, settlement.Transfer{From: in.From, To: in.To, Amount: in.Amount})
	}

	recorded, err := h.svc.AcceptTransfers(r.Context(), g.ID, transfers)
	switch {
	case err != nil && len(recorded) > 0:
		_, resp := h.errorBody(w, r, err)
		writeJSON(w, http.StatusMultiStatus, acceptResponse{Settlements: recorded, Error: &resp})
	case err != nil:
		h.writeError(w, r, err)
	default:
		writeJSON(w, http.StatusCreated, acceptResponse{Settlements: nonNil(recorded)})
	}
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.svc.Summary(r.Context(), groupID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (h *Handler) verify(w http.ResponseWriter, r *http.Request) {
	last, err := h.svc.VerifyIntegrity(r.Context(), groupID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, verifyResponse{LastSeq: last, OK: true})
}

// groupID has already been validated by RequireMember.
func groupID(r *http.Request) uuid.UUID {
	id, _ := uuid.Parse(chi.URLParam(r, "groupID"))
	return id
}

func portions(field string, reqs []portionRequest, currency string) ([]ledger.Portion, error) {
	if len(reqs) == 0 {
		return nil, nil
	}
	out := make([]ledger.Portion, 0, len(reqs))
	for _, p := range reqs {
		amount, err := parseAmount(field, p.Amount, currency)
		if err != nil {
			return nil, err
		}
		out = append(out, ledger.Portion{MemberID: p.MemberID, Amount: amount})
	}
	return out, nil
}

func settlementInput(req settlementRequest, currency string) (ledger.SettlementInput, error) {
	amount, err := parseAmount("amount", req.Amount, currency)
	if err != nil {
		return ledger.SettlementInput{}, err
	}
	return ledger.SettlementInput{From: req.From, To: req.To, Amount: amount, Notes: req.Notes}, nil
}

func named(g *group.Group, balances []projector.Balance) []balanceResponse {
	names := make(map[uuid.UUID]string, len(g.Members))
	for _, m := range g.Members {
		names[m.ID] = m.Name
	}
	out := make([]balanceResponse, 0, len(balances))
	for _, b := range balances {
		out = append(out, balanceResponse{MemberID: b.MemberID, Name: names[b.MemberID], Net: b.Net})
	}
	return out
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
