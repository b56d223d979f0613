package eventlogger

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

func TestWorkerDrainsOnShutdown(t *testing.T) {
	store := NewMemoryEventLogger()
	w := NewWorker(store, 16, nil)
	w.Start()

	groupID := uuid.New()
	for range 5 {
		w.Log(NewEvent(WithType(TypeExpenseRecorded), WithGroup(groupID)))
	}
	w.Log(NewEvent(WithType(TypeAppendConflict)))
	w.Shutdown()

	got, err := store.GetByType(context.Background(), TypeExpenseRecorded)
	if err != nil {
		t.Fatalf("GetByType() error = %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("got %d events, want 5", len(got))
	}
	if got[0].Metadata["group_id"] != groupID.String() {
		t.Errorf("group_id metadata: got %q, want %q", got[0].Metadata["group_id"], groupID)
	}
}

func TestWorkerDropsWhenBufferIsFull(t *testing.T) {
	w := NewWorker(NewMemoryEventLogger(), 1, nil)
	w.Log(NewEvent(WithType(TypeHealthRequest)))
	w.Log(NewEvent(WithType(TypeHealthRequest)))

	if got := w.Dropped(); got != 1 {
		t.Errorf("Dropped() = %d, want 1", got)
	}
}

func TestNewEventOptions(t *testing.T) {
	actor := uuid.New()
	e := NewEvent(
		WithType(TypeSettlementRecorded),
		WithActor(actor),
		WithActor(uuid.Nil),
		WithMetadata(map[string]string{"source": "cli"}),
		WithData(map[string]int{"seq": 3}),
	)

	if e.ID == uuid.Nil || e.CreatedAt.IsZero() {
		t.Errorf("event id and timestamp not set: %+v", e)
	}
	if e.Metadata["member_id"] != actor.String() {
		t.Errorf("member_id: got %q, want %q", e.Metadata["member_id"], actor)
	}
	if e.Metadata["source"] != "cli" {
		t.Errorf("source: got %q, want cli", e.Metadata["source"])
	}
}
