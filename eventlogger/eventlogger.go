// Package eventlogger records operator diagnostics: what happened to which
// group, and faults worth investigating. Diagnostics are not ledger events;
// losing one never affects balances.
package eventlogger

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	TypeGroupCreated       = "group.created"
	TypeExpenseRecorded    = "expense.recorded"
	TypeExpenseReversed    = "expense.reversed"
	TypeSettlementRecorded = "settlement.recorded"
	TypePlanAccepted       = "plan.accepted"
	TypeInvariantViolated  = "invariant.violated"
	TypeAppendConflict     = "append.conflict"
	TypeHealthRequest      = "health_request"
)

type Event struct {
	ID        uuid.UUID         `json:"id,omitempty"`
	Type      string            `json:"event_type,omitempty"`
	Data      any               `json:"event_data,omitempty"`
	Metadata  map[string]string `json:"event_metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

type EventOption func(*Event)

func WithType(eventType string) EventOption {
	return func(e *Event) {
		e.Type = eventType
	}
}

func WithData(data any) EventOption {
	return func(e *Event) {
		e.Data = data
	}
}

func WithMetadata(metadata map[string]string) EventOption {
	return func(e *Event) {
		for k, v := range metadata {
			e.Metadata[k] = v
		}
	}
}

func WithGroup(groupID uuid.UUID) EventOption {
	return func(e *Event) {
		e.Metadata["group_id"] = groupID.String()
	}
}

// WithActor records the member on whose behalf the operation ran.
func WithActor(memberID uuid.UUID) EventOption {
	return func(e *Event) {
		if memberID != uuid.Nil {
			e.Metadata["member_id"] = memberID.String()
		}
	}
}

func NewEvent(opts ...EventOption) Event {
	e := Event{
		ID:        uuid.New(),
		CreatedAt: time.Now().UTC(),
		Metadata:  make(map[string]string),
	}
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

type EventLogger interface {
	Save(ctx context.Context, e Event) error
	GetByType(ctx context.Context, eventType string) ([]Event, error)
}
