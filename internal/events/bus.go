// Package events provides the internal event bus and event types for qbench.
package events

import (
	"sync"
	"time"
)

// EventType identifies a class of system event
type EventType string

const (
	// BenchmarkStarted is emitted when a benchmark run begins
	BenchmarkStarted EventType = "benchmark_started"
	// BenchmarkCompleted is emitted when a benchmark run finishes and is persisted
	BenchmarkCompleted EventType = "benchmark_completed"
	// BenchmarkFailed is emitted when a benchmark run errors out
	BenchmarkFailed EventType = "benchmark_failed"
	// BackupCompleted is emitted when a results database backup is uploaded
	BackupCompleted EventType = "backup_completed"
	// SystemStatusChanged is emitted when the service health state changes
	SystemStatusChanged EventType = "system_status_changed"
)

// Event is a single bus message
type Event struct {
	Type      EventType              `json:"type"`
	Module    string                 `json:"module"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// Handler receives published events. Handlers must not block; slow consumers
// should buffer on their own channel and drop when full.
type Handler func(event *Event)

// Bus is an in-process publish/subscribe event bus
type Bus struct {
	handlers map[EventType][]Handler
	mu       sync.RWMutex
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe registers a handler for an event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// Publish delivers an event to all handlers subscribed to its type.
// The timestamp is filled in if the caller left it zero.
func (b *Bus) Publish(event *Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type]))
	copy(handlers, b.handlers[event.Type])
	b.mu.RUnlock()

	for _, h := range handlers {
		h(event)
	}
}

// Emit is a convenience wrapper building the Event from its parts
func (b *Bus) Emit(eventType EventType, module string, data map[string]interface{}) {
	b.Publish(&Event{
		Type:      eventType,
		Module:    module,
		Timestamp: time.Now(),
		Data:      data,
	})
}
