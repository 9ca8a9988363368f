package eventtree_test

import (
	"reflect"

	"github.com/dhui/eventtree"
)

// testEvent carries a routing key used by filter/predicate/mapped-routing tests.
type testEvent struct {
	PlayerID string
}

func (testEvent) EventType() eventtree.EventType { return reflect.TypeOf(testEvent{}) }

var testEventType = reflect.TypeOf(testEvent{})

// otherEvent is a second, unrelated event type used for type-mismatch tests.
type otherEvent struct{}

func (otherEvent) EventType() eventtree.EventType { return reflect.TypeOf(otherEvent{}) }

var otherEventType = reflect.TypeOf(otherEvent{})

// Recursive class hierarchy: baseEvent :< recursiveBaseEvent :< leafEvent,
// with recursiveBaseEvent and leafEvent marked recursive (spec §8 scenario 4).
type baseEvent struct{}

func (baseEvent) EventType() eventtree.EventType { return reflect.TypeOf(baseEvent{}) }

var baseEventType = reflect.TypeOf(baseEvent{})

type recursiveBaseEvent struct{}

func (recursiveBaseEvent) EventType() eventtree.EventType { return reflect.TypeOf(recursiveBaseEvent{}) }
func (recursiveBaseEvent) Recursive() bool                { return true }

var recursiveBaseEventType = reflect.TypeOf(recursiveBaseEvent{})

type leafEvent struct{}

func (leafEvent) EventType() eventtree.EventType { return reflect.TypeOf(leafEvent{}) }
func (leafEvent) Recursive() bool                { return true }

var leafEventType = reflect.TypeOf(leafEvent{})

func init() {
	eventtree.RegisterEventClass(recursiveBaseEvent{}, baseEventType)
	eventtree.RegisterEventClass(leafEvent{}, recursiveBaseEventType)
}

// anyKeyFilter accepts every event of t and never resolves a routing key.
func anyKeyFilter(t eventtree.EventType) eventtree.Filter {
	return eventtree.NewFilter(t, func(eventtree.Event) (any, bool) { return nil, false })
}

// playerIDFilter extracts testEvent.PlayerID as the routing key.
func playerIDFilter() eventtree.Filter {
	return eventtree.NewFilter(testEventType, func(e eventtree.Event) (any, bool) {
		te, ok := e.(testEvent)
		if !ok {
			return nil, false
		}
		return te.PlayerID, true
	})
}

// listen builds an EventListener for event type E from a typed handler func,
// wiring eventtree.Listen exactly as spec §6's EventListener<E> expects.
func listen[E eventtree.Event](t eventtree.EventType, fn func(E) eventtree.Result) eventtree.EventListener {
	return eventtree.Listen[func(E) eventtree.Result, E](t, fn)
}

// successListener returns a listener that records every call it receives and
// always reports ResultSuccess.
func successListener[E eventtree.Event](t eventtree.EventType, calls *[]string, name string) eventtree.EventListener {
	return listen[E](t, func(E) eventtree.Result {
		*calls = append(*calls, name)
		return eventtree.ResultSuccess
	})
}

// reporterFunc adapts a plain function into an eventtree.ExceptionReporter.
type reporterFunc func(*eventtree.Node, eventtree.EventType, error)

func (f reporterFunc) HandleException(n *eventtree.Node, et eventtree.EventType, err error) {
	f(n, et, err)
}
