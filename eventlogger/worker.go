package eventlogger

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Worker saves diagnostics in the background so request paths never wait
// on the diagnostics table. When the buffer is full new events are dropped.
type Worker struct {
	eventCh chan Event
	store   EventLogger
	logger  *slog.Logger
	dropped atomic.Int64
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewWorker(store EventLogger, bufferSize int, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		eventCh: make(chan Event, max(bufferSize, 1)),
		store:   store,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (w *Worker) Start() {
	w.wg.Go(func() {
		for {
			select {
			case <-w.ctx.Done():
				w.logger.Info("draining diagnostics before shutdown", "remaining_events", len(w.eventCh))
				for {
					select {
					case event := <-w.eventCh:
						w.save(context.Background(), event)
					default:
						return
					}
				}
			case event := <-w.eventCh:
				w.save(w.ctx, event)
			}
		}
	})
}

func (w *Worker) save(ctx context.Context, event Event) {
	if err := w.store.Save(ctx, event); err != nil {
		w.logger.Error("failed to save diagnostic", "error", err, "event_type", event.Type)
	}
}

func (w *Worker) Log(event Event) {
	select {
	case w.eventCh <- event:
	default:
		w.dropped.Add(1)
		w.logger.Warn("diagnostics channel full, dropping event", "event_type", event.Type)
	}
}

// Dropped reports how many events were discarded because the buffer was full.
func (w *Worker) Dropped() int64 {
	return w.dropped.Load()
}

// Shutdown stops the worker after saving everything already queued.
func (w *Worker) Shutdown() {
	w.cancel()
	w.wg.Wait()
}
