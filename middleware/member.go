package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/billbatista/acasinha-ledger/ledger"
)

const MemberIDHeader = "X-Member-ID"

// RosterSource looks up the members of a group.
type RosterSource interface {
	Roster(ctx context.Context, groupID uuid.UUID) (ledger.Roster, error)
}

// MemberMiddleware puts the member named by the X-Member-ID header into the
// request context. Requests without a valid header pass through anonymous.
func MemberMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get(MemberIDHeader)
		if raw == "" {
			next.ServeHTTP(w, r)
			return
		}

		memberID, err := uuid.Parse(raw)
		if err != nil {
			slog.Info("ignoring malformed member header", "value", raw)
			next.ServeHTTP(w, r)
			return
		}

		next.ServeHTTP(w, r.WithContext(ledger.WithActor(r.Context(), memberID)))
	})
}

// RequireMember rejects requests whose acting member does not belong to the
// group named by the {groupID} route parameter.
func RequireMember(groups RosterSource) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			memberID, ok := GetMemberID(r.Context())
			if !ok {
				http.Error(w, "missing or invalid "+MemberIDHeader+" header", http.StatusUnauthorized)
				return
			}

			groupID, err := uuid.Parse(chi.URLParam(r, "groupID"))
			if err != nil {
				http.Error(w, "invalid group id", http.StatusBadRequest)
				return
			}

			roster, err := groups.Roster(r.Context(), groupID)
			if err != nil {
				if errors.Is(err, ledger.ErrGroupNotFound) {
					http.Error(w, "group not found", http.StatusNotFound)
					return
				}
				slog.Error("failed to load roster", "error", err, "group_id", groupID)
				http.Error(w, "internal server error", http.StatusInternalServerError)
				return
			}
			if !roster.Has(memberID) {
				slog.Info("member rejected", "member_id", memberID, "group_id", groupID)
				http.Error(w, ledger.ErrNotMember.Error(), http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// GetMemberID extracts the acting member from the context.
func GetMemberID(ctx context.Context) (uuid.UUID, bool) {
	return ledger.ActorFrom(ctx)
}
