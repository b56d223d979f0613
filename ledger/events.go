package ledger

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Seq is the per-group position of an event. The first event of a group
// has Seq 1; zero means "before any event".
type Seq int64

type Kind string

const (
	KindExpense    Kind = "expense"
	KindSettlement Kind = "settlement"
)

// Header holds the fields every ledger event carries.
type Header struct {
	ID        uuid.UUID `json:"id"`
	GroupID   uuid.UUID `json:"group_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (h Header) Meta() Header { return h }

// Payload is the body of an event: an Expense or a Settlement.
// The set is closed; consumers switch over both types.
type Payload interface {
	Meta() Header
	Kind() Kind
	payload()
}

func (Expense) Kind() Kind    { return KindExpense }
func (Settlement) Kind() Kind { return KindSettlement }

func (Expense) payload()    {}
func (Settlement) payload() {}

// Event is an immutable, sequenced fact recorded for a group.
type Event struct {
	Seq     Seq
	Digest  []byte
	Payload Payload
}

func (e Event) ID() uuid.UUID        { return e.Payload.Meta().ID }
func (e Event) GroupID() uuid.UUID   { return e.Payload.Meta().GroupID }
func (e Event) CreatedAt() time.Time { return e.Payload.Meta().CreatedAt }
func (e Event) Kind() Kind           { return e.Payload.Kind() }

type eventJSON struct {
	Seq     Seq             `json:"seq"`
	Kind    Kind            `json:"kind"`
	Digest  []byte          `json:"digest,omitempty"`
	Payload json.RawMessage `json:"payload"`
}

func (e Event) MarshalJSON() ([]byte, error) {
	if e.Payload == nil {
		return nil, fmt.Errorf("ledger: event %d has no payload", e.Seq)
	}
	body, err := json.Marshal(e.Payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(eventJSON{Seq: e.Seq, Kind: e.Payload.Kind(), Digest: e.Digest, Payload: body})
}

func (e *Event) UnmarshalJSON(data []byte) error {
	var raw eventJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	p, err := DecodePayload(raw.Kind, raw.Payload)
	if err != nil {
		return err
	}
	*e = Event{Seq: raw.Seq, Digest: raw.Digest, Payload: p}
	return nil
}

// DecodePayload rebuilds a payload from its kind tag and JSON body, the
// shape in which events are persisted.
func DecodePayload(kind Kind, body []byte) (Payload, error) {
	switch kind {
	case KindExpense:
		var exp Expense
		if err := json.Unmarshal(body, &exp); err != nil {
			return nil, fmt.Errorf("decoding expense: %w", err)
		}
		return exp, nil
	case KindSettlement:
		var s Settlement
		if err := json.Unmarshal(body, &s); err != nil {
			return nil, fmt.Errorf("decoding settlement: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("ledger: unknown event kind %q", kind)
	}
}
