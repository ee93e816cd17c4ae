package kouzou

import (
	"reflect"
	"sync"
)

// MaxEventTypes defines the maximum number of unique event types that can be
// registered in the EventBus. This value is fixed at 256.
const MaxEventTypes = 256

// EventBus provides a simple, type-safe event bus for decoupled communication
// between systems. Handlers are called synchronously, in subscription order,
// on the publishing goroutine.
//
// A World publishes ArchetypeCreated, EntityCreated and EntityDestroyed on its
// bus after releasing its lock, so handlers may call back into the world.
type EventBus struct {
	mu              sync.RWMutex
	eventTypeMap    map[reflect.Type]uint8
	handlers        [MaxEventTypes][]any
	nextEventTypeID uint16
}

// Subscribe registers a handler function to be called when an event of type
// T is published.
//
// Parameters:
//   - bus: The EventBus instance to subscribe to.
//   - handler: A function that takes a single argument of type T.
func Subscribe[T any](bus *EventBus, handler func(T)) {
	t := reflect.TypeFor[T]()
	bus.mu.Lock()
	defer bus.mu.Unlock()
	id := bus.getEventTypeID(t)
	if cap(bus.handlers[id]) == 0 {
		bus.handlers[id] = make([]any, 0, 4)
	}
	bus.handlers[id] = append(bus.handlers[id], handler)
}

// Publish broadcasts an event of type T to all registered handlers for that
// type. Publishing a type nobody subscribed to is a map lookup and nothing
// more.
func Publish[T any](bus *EventBus, event T) {
	t := reflect.TypeFor[T]()
	bus.mu.RLock()
	id, ok := bus.eventTypeMap[t]
	var hs []any
	if ok {
		hs = bus.handlers[id]
	}
	bus.mu.RUnlock()
	for _, h := range hs {
		h.(func(T))(event)
	}
}

// HasSubscribers reports whether any handler listens for T.
func HasSubscribers[T any](bus *EventBus) bool {
	t := reflect.TypeFor[T]()
	bus.mu.RLock()
	defer bus.mu.RUnlock()
	id, ok := bus.eventTypeMap[t]
	return ok && len(bus.handlers[id]) > 0
}

// getEventTypeID retrieves or assigns an ID for the event type. Must be
// called with bus.mu held for writing.
func (bus *EventBus) getEventTypeID(t reflect.Type) uint8 {
	if bus.eventTypeMap == nil {
		bus.eventTypeMap = make(map[reflect.Type]uint8)
	}
	if id, ok := bus.eventTypeMap[t]; ok {
		return id
	}
	if int(bus.nextEventTypeID) >= MaxEventTypes {
		panic("kouzou: too many event types")
	}
	id := uint8(bus.nextEventTypeID)
	bus.nextEventTypeID++
	bus.eventTypeMap[t] = id
	return id
}

// ArchetypeCreated is published when a world creates a new archetype.
type ArchetypeCreated struct {
	Archetype *Archetype
}

// EntityCreated is published for every entity a world creates, including
// clones and batch creations.
type EntityCreated struct {
	Entity Entity
}

// EntityDestroyed is published after an entity's components were disposed
// and its slot freed.
type EntityDestroyed struct {
	Entity Entity
}

type eventKind uint8

const (
	eventArchetypeCreated eventKind = iota
	eventEntityCreated
	eventEntityDestroyed
)

// worldEvent is an event raised under the world lock and published once the
// lock is released.
type worldEvent struct {
	arch   *Archetype
	entity Entity
	kind   eventKind
}

func (ev worldEvent) publish(bus *EventBus) {
	switch ev.kind {
	case eventArchetypeCreated:
		Publish(bus, ArchetypeCreated{Archetype: ev.arch})
	case eventEntityCreated:
		Publish(bus, EntityCreated{Entity: ev.entity})
	case eventEntityDestroyed:
		Publish(bus, EntityDestroyed{Entity: ev.entity})
	}
}
