// internal/events/bus.go
package events

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// anyType subscribes a handler to every event type.
const anyType EventType = "*"

// ErrBusClosed is returned by Publish after Shutdown.
var ErrBusClosed = errors.New("event bus is shutting down")

// Bus is an in-memory asynchronous event bus.
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType]map[string]Handler
	logger   *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	queue  chan Event
}

// NewBus creates a bus with a buffered queue of bufferSize events.
func NewBus(logger *zap.Logger, bufferSize int) *Bus {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	ctx, cancel := context.WithCancel(context.Background())
	b := &Bus{
		handlers: make(map[EventType]map[string]Handler),
		logger:   logger.Named("event_bus"),
		ctx:      ctx,
		cancel:   cancel,
		queue:    make(chan Event, bufferSize),
	}

	b.wg.Add(1)
	go b.run()
	return b
}

// Subscribe registers a handler for one event type.
func (b *Bus) Subscribe(eventType EventType, handler Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := uuid.NewString()
	if b.handlers[eventType] == nil {
		b.handlers[eventType] = make(map[string]Handler)
	}
	b.handlers[eventType][id] = handler

	b.logger.Debug("Handler subscribed",
		zap.String("event_type", string(eventType)),
		zap.String("subscription_id", id))
	return &subscription{id: id, bus: b, typ: eventType}
}

// SubscribeAll registers a handler that receives every event.
func (b *Bus) SubscribeAll(handler Handler) Subscription {
	return b.Subscribe(anyType, handler)
}

// SubscribeFunc is a convenience method for subscribing with a function.
func (b *Bus) SubscribeFunc(eventType EventType, fn func(context.Context, Event) error) Subscription {
	return b.Subscribe(eventType, HandlerFunc(fn))
}

// Publish queues the event for asynchronous delivery. A full queue drops the event.
func (b *Bus) Publish(event Event) error {
	select {
	case <-b.ctx.Done():
		return ErrBusClosed
	default:
	}

	select {
	case b.queue <- event:
		return nil
	default:
		b.logger.Warn("Event queue full, dropping event",
			zap.String("event_type", string(event.Type())))
		return fmt.Errorf("event queue full, dropped %s", event.Type())
	}
}

// PublishSync delivers the event to every matching handler before returning.
func (b *Bus) PublishSync(ctx context.Context, event Event) error {
	handlers := b.snapshot(event.Type())
	if len(handlers) == 0 {
		return nil
	}

	var errs []error
	for id, h := range handlers {
		if err := h.Handle(ctx, event); err != nil {
			b.logger.Error("Handler error",
				zap.String("event_type", string(event.Type())),
				zap.String("handler_id", id),
				zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (b *Bus) snapshot(t EventType) map[string]Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make(map[string]Handler, len(b.handlers[t])+len(b.handlers[anyType]))
	for id, h := range b.handlers[t] {
		out[id] = h
	}
	for id, h := range b.handlers[anyType] {
		out[id] = h
	}
	return out
}

func (b *Bus) run() {
	defer b.wg.Done()

	for {
		select {
		case <-b.ctx.Done():
			// доставляем то, что уже в очереди
			for {
				select {
				case event := <-b.queue:
					_ = b.PublishSync(context.Background(), event)
				default:
					return
				}
			}
		case event := <-b.queue:
			_ = b.PublishSync(b.ctx, event)
		}
	}
}

func (b *Bus) unsubscribe(id string, eventType EventType) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if handlers, ok := b.handlers[eventType]; ok {
		delete(handlers, id)
		if len(handlers) == 0 {
			delete(b.handlers, eventType)
		}
	}
}

// Shutdown stops accepting events and waits for queued ones to be delivered.
func (b *Bus) Shutdown(ctx context.Context) error {
	b.logger.Info("Shutting down event bus")
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
		b.logger.Warn("Event bus shutdown timeout")
		return ctx.Err()
	}
}
