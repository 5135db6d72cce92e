// internal/events/bus.go
package events

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Bus is an in-memory publish/subscribe hub connecting the trading
// service to the websocket stream, metrics and persistence consumers.
// Publish is non-blocking: when the buffer is full the event is dropped
// and counted rather than stalling a trade.
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType]map[string]Handler

	logger  *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	queue   chan Event
	dropped atomic.Uint64
}

// NewBus creates a bus and starts its dispatch loop. bufferSize bounds
// the number of in-flight events before Publish starts dropping.
func NewBus(logger *zap.Logger, bufferSize int) *Bus {
	ctx, cancel := context.WithCancel(context.Background())
	b := &Bus{
		handlers: make(map[EventType]map[string]Handler),
		logger:   logger.Named("event_bus"),
		ctx:      ctx,
		cancel:   cancel,
		queue:    make(chan Event, bufferSize),
	}

	b.wg.Add(1)
	go b.dispatch()

	return b
}

// Subscribe registers a handler for one event type and returns the
// subscription handle.
func (b *Bus) Subscribe(t EventType, h Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := uuid.New().String()
	if b.handlers[t] == nil {
		b.handlers[t] = make(map[string]Handler)
	}
	b.handlers[t][id] = h

	b.logger.Debug("handler subscribed",
		zap.String("event_type", string(t)),
		zap.String("subscription_id", id))

	return &subscription{id: id, bus: b, typ: t}
}

// SubscribeFunc registers a plain function as a handler.
func (b *Bus) SubscribeFunc(t EventType, fn func(context.Context, Event) error) Subscription {
	return b.Subscribe(t, HandlerFunc(fn))
}

// Publish queues an event for asynchronous delivery. Returns an error if
// the bus is shutting down or the buffer is full; the caller's trade has
// already happened either way, so callers normally just log the error.
func (b *Bus) Publish(event Event) error {
	select {
	case <-b.ctx.Done():
		return fmt.Errorf("event bus is shut down")
	default:
	}

	select {
	case b.queue <- event:
		return nil
	default:
		b.dropped.Add(1)
		b.logger.Warn("event buffer full, dropping",
			zap.String("event_type", string(event.Type())))
		return fmt.Errorf("event buffer full")
	}
}

// PublishSync delivers an event to all current handlers before returning.
// Used on shutdown paths and in tests where ordering matters.
func (b *Bus) PublishSync(ctx context.Context, event Event) error {
	b.mu.RLock()
	registered := b.handlers[event.Type()]
	handlers := make(map[string]Handler, len(registered))
	for id, h := range registered {
		handlers[id] = h
	}
	b.mu.RUnlock()

	var errs []error
	for id, h := range handlers {
		if err := h.Handle(ctx, event); err != nil {
			b.logger.Error("event handler failed",
				zap.String("event_type", string(event.Type())),
				zap.String("subscription_id", id),
				zap.Error(err))
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%d handler(s) failed: %v", len(errs), errs)
	}
	return nil
}

func (b *Bus) dispatch() {
	defer b.wg.Done()

	for {
		select {
		case <-b.ctx.Done():
			// Drain whatever is still queued so shutdown loses nothing
			// that was accepted.
			for {
				select {
				case event := <-b.queue:
					_ = b.PublishSync(context.Background(), event)
				default:
					return
				}
			}
		case event := <-b.queue:
			b.wg.Add(1)
			go func(e Event) {
				defer b.wg.Done()
				if err := b.PublishSync(b.ctx, e); err != nil {
					b.logger.Error("event delivery failed",
						zap.String("event_type", string(e.Type())),
						zap.Error(err))
				}
			}(event)
		}
	}
}

func (b *Bus) unsubscribe(id string, t EventType) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if handlers, ok := b.handlers[t]; ok {
		delete(handlers, id)
		if len(handlers) == 0 {
			delete(b.handlers, t)
		}
	}
}

// Shutdown stops the dispatch loop and waits for in-flight deliveries,
// bounded by ctx.
func (b *Bus) Shutdown(ctx context.Context) error {
	b.logger.Info("shutting down event bus",
		zap.Uint64("dropped_total", b.dropped.Load()))

	b.cancel()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		b.logger.Warn("event bus shutdown timed out")
		return ctx.Err()
	}
}

// Stats describes the current state of the bus.
type Stats struct {
	Pending         int               `json:"pending"`
	Dropped         uint64            `json:"dropped"`
	HandlersPerType map[EventType]int `json:"handlers_per_type"`
}

// Stats returns a snapshot of queue depth, drop count and handler counts.
func (b *Bus) Stats() Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()

	perType := make(map[EventType]int, len(b.handlers))
	for t, handlers := range b.handlers {
		perType[t] = len(handlers)
	}
	return Stats{
		Pending:         len(b.queue),
		Dropped:         b.dropped.Load(),
		HandlersPerType: perType,
	}
}
