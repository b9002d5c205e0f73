package events

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// subscriberQueueSize bounds how far a slow subscriber may fall behind
// before Emit starts dropping its events.
const subscriberQueueSize = 256

// HandlerFunc is a function that handles an event.
type HandlerFunc func(ctx context.Context, event Event) error

// Emitter is what a session needs from the bus.
type Emitter interface {
	Emit(ctx context.Context, event Event)
}

// EventBus fans session events out to subscribers. Each subscriber has its
// own goroutine and queue, so it sees events in emit order and a slow one
// never stalls the session.
type EventBus struct {
	mu       sync.RWMutex
	handlers map[EventType][]*subscriber
	stopCh   chan struct{}
	stopped  bool
	wg       sync.WaitGroup
	logger   zerolog.Logger
}

type subscriber struct {
	name    string
	handler HandlerFunc
	queue   chan delivery
	done    chan struct{}
}

type delivery struct {
	ctx   context.Context
	event Event
}

// NewEventBus creates a new EventBus instance.
func NewEventBus() *EventBus {
	return &EventBus{
		handlers: make(map[EventType][]*subscriber),
		stopCh:   make(chan struct{}),
		logger:   log.With().Str("component", "event_bus").Logger(),
	}
}

// Subscribe registers a handler for the given event types under one name.
// The name is used for logging and Unsubscribe.
func (eb *EventBus) Subscribe(name string, handler HandlerFunc, types ...EventType) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.stopped {
		return
	}

	sub := &subscriber{
		name:    name,
		handler: handler,
		queue:   make(chan delivery, subscriberQueueSize),
		done:    make(chan struct{}),
	}
	for _, t := range types {
		eb.handlers[t] = append(eb.handlers[t], sub)
	}

	eb.wg.Add(1)
	go eb.run(sub)

	eb.logger.Debug().
		Str("handler", name).
		Int("events", len(types)).
		Msg("subscribed to events")
}

// SubscribeAll registers a handler for every event type.
func (eb *EventBus) SubscribeAll(name string, handler HandlerFunc) {
	eb.Subscribe(name, handler, AllEventTypes...)
}

func (eb *EventBus) run(sub *subscriber) {
	defer eb.wg.Done()
	for {
		select {
		case d := <-sub.queue:
			eb.deliver(sub, d)
		case <-sub.done:
			return
		case <-eb.stopCh:
			// drain what was already accepted
			for {
				select {
				case d := <-sub.queue:
					eb.deliver(sub, d)
				default:
					return
				}
			}
		}
	}
}

func (eb *EventBus) deliver(sub *subscriber, d delivery) {
	defer func() {
		if r := recover(); r != nil {
			eb.logger.Error().
				Str("event", string(d.event.Type)).
				Str("handler", sub.name).
				Interface("panic", r).
				Msg("handler panicked")
		}
	}()

	if err := sub.handler(d.ctx, d.event); err != nil {
		eb.logger.Error().
			Err(err).
			Str("event", string(d.event.Type)).
			Str("handler", sub.name).
			Msg("handler returned error")
	}
}

// Unsubscribe removes a named handler from every event type.
func (eb *EventBus) Unsubscribe(name string) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	var removed *subscriber
	for t, subs := range eb.handlers {
		filtered := make([]*subscriber, 0, len(subs))
		for _, s := range subs {
			if s.name == name {
				removed = s
				continue
			}
			filtered = append(filtered, s)
		}
		eb.handlers[t] = filtered
	}
	if removed != nil {
		close(removed.done)
		eb.logger.Debug().Str("handler", name).Msg("unsubscribed from events")
	}
}

// Emit queues an event for every subscriber of its type. A zero Time is
// set to now.
func (eb *EventBus) Emit(ctx context.Context, event Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	if eb.stopped {
		return
	}
	if event.Time.IsZero() {
		event.Time = time.Now()
	}

	subs := eb.handlers[event.Type]
	if len(subs) == 0 {
		return
	}

	eb.logger.Trace().
		Str("event", string(event.Type)).
		Str("source", event.Source).
		Int("handlers", len(subs)).
		Msg("emitting event")

	for _, s := range subs {
		select {
		case s.queue <- delivery{ctx: context.WithoutCancel(ctx), event: event}:
		default:
			eb.logger.Warn().
				Str("event", string(event.Type)).
				Str("handler", s.name).
				Msg("subscriber queue full, event dropped")
		}
	}
}

// EmitSync runs every handler for the event on the caller's goroutine and
// returns the first error.
func (eb *EventBus) EmitSync(ctx context.Context, event Event) error {
	eb.mu.RLock()
	if eb.stopped {
		eb.mu.RUnlock()
		return nil
	}
	subs := make([]*subscriber, len(eb.handlers[event.Type]))
	copy(subs, eb.handlers[event.Type])
	eb.mu.RUnlock()

	if event.Time.IsZero() {
		event.Time = time.Now()
	}

	var firstErr error
	for _, s := range subs {
		if err := s.handler(ctx, event); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Stop signals the EventBus to stop accepting new events and waits for
// subscribers to finish what they already accepted.
func (eb *EventBus) Stop() {
	eb.mu.Lock()
	if eb.stopped {
		eb.mu.Unlock()
		return
	}
	eb.stopped = true
	close(eb.stopCh)
	eb.mu.Unlock()

	eb.wg.Wait()
	eb.logger.Info().Msg("event bus stopped")
}

// StopCh returns a channel that is closed when the EventBus is stopped.
func (eb *EventBus) StopCh() <-chan struct{} {
	return eb.stopCh
}

// HandlerCount returns the number of handlers registered for a specific event type.
func (eb *EventBus) HandlerCount(eventType EventType) int {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	return len(eb.handlers[eventType])
}
