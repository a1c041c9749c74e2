package event

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

type Handler func(ctx context.Context, e Event) error

// Listener fans events out to the registered handlers from a single goroutine. Send never
// blocks the tick loop: when the queue is full the event is dropped and logged.
type Listener struct {
	logger   *slog.Logger
	events   chan Event
	mu       sync.RWMutex
	handlers []Handler
}

func NewListener(logger *slog.Logger, queueSize int) *Listener {
	if queueSize < 1 {
		queueSize = 1
	}

	return &Listener{
		logger: logger,
		events: make(chan Event, queueSize),
	}
}

func (l *Listener) Register(h Handler) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.handlers = append(l.handlers, h)
}

func (l *Listener) Send(e Event) {
	if l == nil {
		return
	}

	select {
	case l.events <- e:
	default:
		l.logger.Warn("Event queue is full, dropping event", slog.String("message", e.Message()))
	}
}

func (l *Listener) Listen(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case e := <-l.events:
			l.mu.RLock()
			handlers := append([]Handler(nil), l.handlers...)
			l.mu.RUnlock()

			for _, h := range handlers {
				if err := h(ctx, e); err != nil {
					l.logger.Error(fmt.Sprintf("Error running event handler: %s", err.Error()))
				}
			}
		}
	}
}
