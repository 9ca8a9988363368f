package eventtree

import "github.com/google/uuid"

// BindingID is a stable identity for an EventBinding, reused across every
// call to Consumer so that repeated registration of the *same* binding
// value is recognized as a duplicate rather than a fresh consumer — the
// stability spec §9 requires and that Go closure identity cannot give us.
type BindingID = uuid.UUID

// EventBinding is a bulk registration that emits one consumer per event
// type it covers.
type EventBinding interface {
	// ID returns this binding's stable identity.
	ID() BindingID
	// EventTypes returns the event types this binding covers.
	EventTypes() []EventType
	// Consumer returns the closure to run for events of the given type.
	Consumer(t EventType) func(Event)
}

type binding struct {
	id         BindingID
	eventTypes []EventType
	consumer   func(EventType) func(Event)
}

// NewBinding builds an EventBinding from the event types it covers and a
// function that produces a per-type consumer closure. The binding's
// identity (uuid.New, grounded on jemygraw-langgraphgo's use of
// github.com/google/uuid) is generated once and held for the binding's
// lifetime.
func NewBinding(consumer func(EventType) func(Event), eventTypes ...EventType) EventBinding {
	return &binding{id: uuid.New(), eventTypes: eventTypes, consumer: consumer}
}

// ID implements EventBinding.
func (b *binding) ID() BindingID { return b.id }

// EventTypes implements EventBinding.
func (b *binding) EventTypes() []EventType { return b.eventTypes }

// Consumer implements EventBinding.
func (b *binding) Consumer(t EventType) func(Event) { return b.consumer(t) }

// bindingID is the identity type used internally to de-duplicate consumers;
// aliased separately from BindingID so ListenerEntry doesn't need to import
// the binding type directly.
type bindingID = BindingID

// bindingConsumer is a registered EventBinding consumer inside a ListenerEntry.
type bindingConsumer struct {
	id bindingID
	fn func(Event)
}
