package ledger

import (
	"context"

	"github.com/google/uuid"
)

type actorKey struct{}

// WithActor returns a context carrying the member on whose behalf the
// request runs.
func WithActor(ctx context.Context, memberID uuid.UUID) context.Context {
	return context.WithValue(ctx, actorKey{}, memberID)
}

// ActorFrom extracts the acting member from ctx.
func ActorFrom(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(actorKey{}).(uuid.UUID)
	return id, ok
}
