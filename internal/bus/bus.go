// Package bus provides an internal event bus for component communication.
package bus

import (
	"sync"
)

// EventType identifies different event types.
type EventType string

const (
	// Playback events
	EventUnitStarted   EventType = "playback.unit_started"
	EventUnitCompleted EventType = "playback.unit_completed"
	EventQueueDrained  EventType = "playback.queue_drained"
	EventPlaybackReset EventType = "playback.reset"

	// Rig events
	EventAnimationChanged  EventType = "rig.animation_changed"
	EventExpressionChanged EventType = "rig.expression_changed"
	EventVisemeChanged     EventType = "rig.viseme_changed"

	// Caption events
	EventCaptionShown  EventType = "caption.shown"
	EventCaptionHidden EventType = "caption.hidden"

	// Chat boundary events
	EventBatchReceived EventType = "chat.batch_received"
	EventProducts      EventType = "chat.products"
	EventChatError     EventType = "chat.error"
)

// Event represents a bus event.
type Event struct {
	Type EventType
	Data map[string]any
}

// Handler is a function that handles events.
type Handler func(Event)

// EventBus is a simple pub/sub event bus.
type EventBus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

// NewEventBus creates a new event bus.
func NewEventBus() *EventBus {
	return &EventBus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for an event type.
func (b *EventBus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// SubscribeMultiple adds a handler for multiple event types.
func (b *EventBus) SubscribeMultiple(eventTypes []EventType, handler Handler) {
	for _, et := range eventTypes {
		b.Subscribe(et, handler)
	}
}

// Publish sends an event to all subscribed handlers without blocking.
func (b *EventBus) Publish(event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type]))
	copy(handlers, b.handlers[event.Type])
	b.mu.RUnlock()

	for _, handler := range handlers {
		go handler(event)
	}
}

// PublishSync sends an event and waits for all handlers to complete.
func (b *EventBus) PublishSync(event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type]))
	copy(handlers, b.handlers[event.Type])
	b.mu.RUnlock()

	var wg sync.WaitGroup
	for _, handler := range handlers {
		wg.Add(1)
		go func(h Handler) {
			defer wg.Done()
			h(event)
		}(handler)
	}
	wg.Wait()
}

// Clear removes all handlers.
func (b *EventBus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = make(map[EventType][]Handler)
}
