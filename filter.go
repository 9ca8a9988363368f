package eventtree

// Filter extracts a routing key from an event. A Node's filter determines
// both its base event type (TargetType) and the handler key used for
// mapped-child routing and predicate evaluation.
type Filter interface {
	// TargetType is the greatest event class this filter (and therefore the
	// owning Node) will ever observe.
	TargetType() EventType
	// ExtractKey pulls the routing key out of an event of TargetType, e.g.
	// the player, instance, or block the event pertains to. ok is false if
	// the event carries no resolvable key.
	ExtractKey(event Event) (key any, ok bool)
}

// Predicate gates a listener at dispatch time given the event and the key
// extracted by the owning Node's Filter.
type Predicate func(event Event, key any) bool

// filterFunc adapts a pair of plain functions into a Filter.
type filterFunc struct {
	targetType EventType
	extract    func(Event) (any, bool)
}

// NewFilter builds a Filter from its two constituent functions.
func NewFilter(targetType EventType, extract func(Event) (any, bool)) Filter {
	return filterFunc{targetType: targetType, extract: extract}
}

func (f filterFunc) TargetType() EventType { return f.targetType }

func (f filterFunc) ExtractKey(event Event) (any, bool) { return f.extract(event) }
