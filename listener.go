package eventtree

// Result is returned by an EventListener after handling an event.
type Result int

const (
	// ResultSuccess indicates the listener ran without error.
	ResultSuccess Result = iota
	// ResultInvalid indicates the listener declined the event (e.g. a type
	// assertion inside a generic listener failed).
	ResultInvalid
	// ResultExpired indicates the listener should be removed from its Node
	// after this call.
	ResultExpired
	// ResultException indicates the listener panicked or reported a failure;
	// the dispatch closure reports this via the ExceptionReporter.
	ResultException
)

// EventListener handles events of a single event type at a Node.
//
// Implementations should be used through a pointer (or otherwise have a
// stable identity under ==) since add/remove match listeners by plain
// interface equality (spec: "removal compares by listener identity").
type EventListener interface {
	// EventType returns the type of event this listener handles.
	EventType() EventType
	// Run processes the dispatched event.
	Run(event Event) Result
}

// listenerFunc adapts a typed handler function into an EventListener.
// Always constructed and returned through Listen as a pointer, so identity
// comparisons via == are stable and inexpensive.
type listenerFunc[H ~func(E) Result, E Event] struct {
	eventType EventType
	handler   H
}

// EventType implements EventListener.
func (l *listenerFunc[H, E]) EventType() EventType { return l.eventType }

// Run implements EventListener.
func (l *listenerFunc[H, E]) Run(event Event) Result {
	e, ok := event.(E)
	if !ok {
		return ResultInvalid
	}
	return l.handler(e)
}

// Listen creates an EventListener for the given event type and typed
// handler function, the way gopherd-core's event.Listen adapts a
// func(context.Context, E) error into a Listener[T]; here the handler
// signature is func(E) Result to match this package's Result-based
// listener contract.
func Listen[H ~func(E) Result, E Event](eventType EventType, handler H) EventListener {
	return &listenerFunc[H, E]{eventType: eventType, handler: handler}
}

// ListenerEntry is the per-node, per-event-class bag of direct listeners
// and binding consumers backing a Node's listener_entries map.
type ListenerEntry struct {
	listeners []EventListener
	consumers []bindingConsumer
}

// addListener appends l in insertion order. Returns false if l is already present (idempotent).
func (le *ListenerEntry) addListener(l EventListener) bool {
	for _, existing := range le.listeners {
		if existing == l {
			return false
		}
	}
	le.listeners = append(le.listeners, l)
	return true
}

// removeListener removes l by identity. Returns true if a removal occurred.
func (le *ListenerEntry) removeListener(l EventListener) bool {
	for i, existing := range le.listeners {
		if existing == l {
			le.listeners = append(le.listeners[:i], le.listeners[i+1:]...)
			return true
		}
	}
	return false
}

// addConsumer inserts c, de-duplicating on identity (spec: binding_consumers
// tolerates duplicate registration attempts).
func (le *ListenerEntry) addConsumer(c bindingConsumer) bool {
	for _, existing := range le.consumers {
		if existing.id == c.id {
			return false
		}
	}
	le.consumers = append(le.consumers, c)
	return true
}

// removeConsumer removes the consumer registered under id. Returns true if a removal occurred.
func (le *ListenerEntry) removeConsumer(id bindingID) bool {
	for i, existing := range le.consumers {
		if existing.id == id {
			le.consumers = append(le.consumers[:i], le.consumers[i+1:]...)
			return true
		}
	}
	return false
}

// empty reports whether the entry has neither direct listeners nor binding consumers.
func (le *ListenerEntry) empty() bool {
	return le == nil || (len(le.listeners) == 0 && len(le.consumers) == 0)
}
