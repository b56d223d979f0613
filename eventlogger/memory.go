package eventlogger

import (
	"context"
	"sync"
)

// MemoryEventLogger keeps diagnostics in process memory.
type MemoryEventLogger struct {
	mu     sync.Mutex
	events []Event
}

func NewMemoryEventLogger() *MemoryEventLogger {
	return &MemoryEventLogger{}
}

func (el *MemoryEventLogger) Save(_ context.Context, e Event) error {
	el.mu.Lock()
	defer el.mu.Unlock()
	el.events = append(el.events, e)
	return nil
}

func (el *MemoryEventLogger) GetByType(_ context.Context, eventType string) ([]Event, error) {
	el.mu.Lock()
	defer el.mu.Unlock()

	events := make([]Event, 0)
	for _, e := range el.events {
		if e.Type == eventType {
			events = append(events, e)
		}
	}
	return events, nil
}
