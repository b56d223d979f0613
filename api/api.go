// Package api exposes the ledger over HTTP with JSON bodies.
//
// Amounts are sent as decimal strings in the group currency ("90.00") and
// returned as integer minor units ({"amount": 9000, "currency": "INR"}).
// The acting member is named by the X-Member-ID header.
package api

import (
	"log/slog"
	"net/http"
	"strconv"

	chimiddleware "github.com/go-chi/chi/middleware"
	"github.com/go-chi/chi/v5"

	"github.com/billbatista/acasinha-ledger/eventlogger"
	"github.com/billbatista/acasinha-ledger/group"
	"github.com/billbatista/acasinha-ledger/idempotency"
	"github.com/billbatista/acasinha-ledger/middleware"
	"github.com/billbatista/acasinha-ledger/service"
)

type Handler struct {
	svc    *service.Service
	groups group.Repository
	keys   idempotency.Store
	diag   service.Diagnostics
	logger *slog.Logger
}

func NewHandler(svc *service.Service, groups group.Repository, keys idempotency.Store, diag service.Diagnostics, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{svc: svc, groups: groups, keys: keys, diag: diag, logger: logger}
}

func (h *Handler) Router() http.Handler {
	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.Logger)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.MemberMiddleware)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if h.diag != nil {
			h.diag.Log(eventlogger.NewEvent(
				eventlogger.WithType(eventlogger.TypeHealthRequest),
				eventlogger.WithData(map[string]string{
					"message":     "ok",
					"http_status": strconv.Itoa(http.StatusOK),
				}),
			))
		}
		w.Write([]byte("ok"))
	})

	router.Post("/groups", h.createGroup)

	router.Route("/groups/{groupID}", func(r chi.Router) {
		r.Use(middleware.RequireMember(h.groups))

		r.Get("/", h.getGroup)
		r.With(h.idempotent).Post("/expenses", h.recordExpense)
		r.With(h.idempotent).Post("/expenses/{expenseID}/reverse", h.reverseExpense)
		r.With(h.idempotent).Post("/settlements", h.recordSettlement)
		r.Get("/balances", h.balances)
		r.Get("/history", h.history)
		r.Get("/plan", h.plan)
		r.With(h.idempotent).Post("/plan/accept", h.acceptPlan)
		r.Get("/summary", h.summary)
		r.Get("/verify", h.verify)
	})

	return router
}
