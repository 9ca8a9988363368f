package eventtree

import (
	"fmt"
	"sync/atomic"
)

// Node is a named vertex in the dispatch tree, parameterized by the base
// event type its filter accepts. It owns children, mapped children,
// listener entries, and a per-event-type Handle table (spec §3).
type Node struct {
	name     string
	baseType EventType
	filter   Filter
	predicate Predicate

	priority atomic.Int32
	parent   atomic.Pointer[Node]

	// children, mappedChildren, listenerEntries, and handles are only ever
	// read or written while holding structuralLock (including from inside
	// Handle.update, which runs under the same lock).
	children       []*Node
	mappedChildren map[any]*Node
	listenerEntries map[EventType]*ListenerEntry
	handles         map[EventType]*Handle
}

// NewNode creates a detached Node. base_event_type is derived from
// filter.TargetType() (spec §6).
func NewNode(name string, filter Filter, predicate Predicate) *Node {
	return &Node{
		name:            name,
		baseType:        filter.TargetType(),
		filter:          filter,
		predicate:       predicate,
		mappedChildren:  make(map[any]*Node),
		listenerEntries: make(map[EventType]*ListenerEntry),
		handles:         make(map[EventType]*Handle),
	}
}

// Name returns the node's (non-unique) name.
func (n *Node) Name() string { return n.name }

// BaseType returns the greatest event class this node will ever observe.
func (n *Node) BaseType() EventType { return n.baseType }

// Filter returns the node's routing-key filter.
func (n *Node) Filter() Filter { return n.filter }

// Priority returns the node's current sibling-ordering priority.
func (n *Node) Priority() int32 { return n.priority.Load() }

// SetPriority changes the node's sibling-ordering priority.
//
// Per spec §9's documented gap, this does NOT invalidate any Handle: the
// flattened order depends on priority, but the source the original
// implementation reproduces never propagates on a priority change. Callers
// that need an up-to-date order after reprioritizing must force one, e.g.
// by removing and re-adding the node, or by any other edit in the subtree
// that invalidates the affected Handles.
func (n *Node) SetPriority(p int32) { n.priority.Store(p) }

// Parent returns the node's current parent, or nil for a root. Stale reads
// are possible under concurrent mutation; callers must not use the result
// for ownership decisions (spec §5).
func (n *Node) Parent() *Node { return n.parent.Load() }

// AddChild attaches child as a direct child of n.
func (n *Node) AddChild(child *Node) error {
	if !IsSubtype(child.baseType, n.baseType) {
		return TypeError{fmt.Errorf("%w: child %q base type %s is not a subtype of %q's base type %s",
			ErrTypeMismatch, child.name, child.baseType, n.name, n.baseType)}
	}

	structuralLock.Lock()
	defer structuralLock.Unlock()

	if child == n {
		return TypeError{fmt.Errorf("%w: node %q cannot be its own child", ErrCycle, n.name)}
	}
	if child.parent.Load() == n {
		return nil // already attached here: idempotent no-op (spec §8 law)
	}
	if child.parent.Load() != nil {
		return TypeError{fmt.Errorf("%w: node %q", ErrAlreadyParented, child.name)}
	}
	if child == n.parent.Load() {
		return TypeError{fmt.Errorf("%w: node %q is already %q's parent", ErrCycle, child.name, n.name)}
	}

	n.children = append(n.children, child)
	child.parent.Store(n)
	propagateEvents(child)
	return nil
}

// RemoveChild detaches child if it is a direct child of n. Unknown children
// are a silent no-op (spec §7).
func (n *Node) RemoveChild(child *Node) {
	structuralLock.Lock()
	defer structuralLock.Unlock()

	idx := n.indexOfChild(child)
	if idx < 0 {
		return
	}
	propagateEvents(child) // propagate while still attached, so ancestors invalidate
	n.children = append(n.children[:idx], n.children[idx+1:]...)
	child.parent.Store(nil)
}

func (n *Node) indexOfChild(child *Node) int {
	for i, c := range n.children {
		if c == child {
			return i
		}
	}
	return -1
}

// Map attaches node under mapped_children[key], evicting and detaching any
// node previously mapped at key.
func (n *Node) Map(node *Node, key any) error {
	if !IsSubtype(node.baseType, n.baseType) {
		return TypeError{fmt.Errorf("%w: mapped node %q base type %s is not a subtype of %q's base type %s",
			ErrTypeMismatch, node.name, node.baseType, n.name, n.baseType)}
	}

	structuralLock.Lock()
	defer structuralLock.Unlock()

	if node == n {
		return TypeError{fmt.Errorf("%w: node %q cannot be mapped under itself", ErrSelfMap, n.name)}
	}
	if existing, ok := n.mappedChildren[key]; ok && existing == node {
		return nil // already mapped at this key: idempotent no-op
	}
	if node.parent.Load() != nil {
		return TypeError{fmt.Errorf("%w: node %q", ErrAlreadyParented, node.name)}
	}
	if node == n.parent.Load() {
		return TypeError{fmt.Errorf("%w: node %q is already %q's parent", ErrSelfMap, node.name, n.name)}
	}

	if prev, ok := n.mappedChildren[key]; ok {
		// Evicted without its own propagation: node's propagation below covers
		// the same handle types (spec §4.3).
		prev.parent.Store(nil)
	}
	n.mappedChildren[key] = node
	node.parent.Store(n)
	propagateEvents(node)
	return nil
}

// Unmap removes the mapped entry at key, if present, and detaches its node.
func (n *Node) Unmap(key any) {
	structuralLock.Lock()
	defer structuralLock.Unlock()

	node, ok := n.mappedChildren[key]
	if !ok {
		return
	}
	propagateEvents(node)
	delete(n.mappedChildren, key)
	node.parent.Store(nil)
}

// AddListener appends listener to the ListenerEntry for its event type.
// Adding a listener already present is an idempotent no-op.
func (n *Node) AddListener(listener EventListener) {
	structuralLock.Lock()
	defer structuralLock.Unlock()

	entry := n.entryFor(listener.EventType())
	if entry.addListener(listener) {
		propagateEvent(n, listener.EventType())
	}
}

// RemoveListener removes listener by identity. Removing a listener that was
// never registered is a silent no-op (spec §7).
func (n *Node) RemoveListener(listener EventListener) {
	structuralLock.Lock()
	defer structuralLock.Unlock()

	entry, ok := n.listenerEntries[listener.EventType()]
	if !ok || !entry.removeListener(listener) {
		return
	}
	propagateEvent(n, listener.EventType())
}

// Register inserts binding's consumer into the matching ListenerEntry for
// every event type it covers.
func (n *Node) Register(b EventBinding) {
	structuralLock.Lock()
	defer structuralLock.Unlock()

	for _, t := range b.EventTypes() {
		entry := n.entryFor(t)
		if entry.addConsumer(bindingConsumer{id: b.ID(), fn: b.Consumer(t)}) {
			propagateEvent(n, t)
		}
	}
}

// Unregister removes binding's consumer for every event type it covers.
// Removing a binding that was never registered is a silent no-op.
func (n *Node) Unregister(b EventBinding) {
	structuralLock.Lock()
	defer structuralLock.Unlock()

	for _, t := range b.EventTypes() {
		entry, ok := n.listenerEntries[t]
		if !ok || !entry.removeConsumer(b.ID()) {
			continue
		}
		propagateEvent(n, t)
	}
}

func (n *Node) entryFor(t EventType) *ListenerEntry {
	e, ok := n.listenerEntries[t]
	if !ok {
		e = &ListenerEntry{}
		n.listenerEntries[t] = e
	}
	return e
}

// GetHandle returns (creating if absent) the Handle keyed by t.
func (n *Node) GetHandle(t EventType) (*Handle, error) {
	if !IsSubtype(t, n.baseType) {
		return nil, TypeError{fmt.Errorf("%w: event type %s is not a subtype of node %q's base type %s",
			ErrTypeMismatch, t, n.name, n.baseType)}
	}

	structuralLock.Lock()
	defer structuralLock.Unlock()
	return n.getOrCreateHandleLocked(t), nil
}

func (n *Node) getOrCreateHandleLocked(t EventType) *Handle {
	h, ok := n.handles[t]
	if !ok {
		h = &Handle{owner: n, eventType: t}
		n.handles[t] = h
	}
	return h
}

// Call dispatches event through handle's cached listener sequence, rebuilding
// it first if invalid.
func (n *Node) Call(event Event, handle *Handle) error {
	return callWithHandle(n, event, handle)
}

// HasListener ensures handle is valid and reports whether its flattened
// listener sequence is non-empty.
func (n *Node) HasListener(handle *Handle) (bool, error) {
	if handle.owner != n {
		return false, TypeError{fmt.Errorf("%w", ErrWrongOwner)}
	}
	handle.ensureValid()
	return len(*handle.flattened.Load()) > 0, nil
}

// FindChildren depth-first searches the subtree rooted at n (n itself is
// not considered) for every Node whose name matches and whose base type is
// a supertype of eventType.
func (n *Node) FindChildren(name string, eventType EventType) []*Node {
	structuralLock.Lock()
	defer structuralLock.Unlock()

	var out []*Node
	n.findChildrenLocked(name, eventType, &out)
	return out
}

func (n *Node) findChildrenLocked(name string, eventType EventType, out *[]*Node) {
	for _, c := range n.children {
		if c.name == name && IsSubtype(eventType, c.baseType) {
			*out = append(*out, c)
		}
		c.findChildrenLocked(name, eventType, out)
	}
}

// ReplaceChildren replaces every direct-level match of (name, eventType) in
// the subtree with replacement, recursing into non-matches.
func (n *Node) ReplaceChildren(name string, eventType EventType, replacement *Node) error {
	structuralLock.Lock()
	defer structuralLock.Unlock()
	return n.replaceChildrenLocked(name, eventType, replacement)
}

func (n *Node) replaceChildrenLocked(name string, eventType EventType, replacement *Node) error {
	for i := 0; i < len(n.children); i++ {
		c := n.children[i]
		if c.name == name && IsSubtype(eventType, c.baseType) {
			if !IsSubtype(replacement.baseType, n.baseType) {
				return TypeError{fmt.Errorf("%w: replacement %q base type %s is not a subtype of %q's base type %s",
					ErrTypeMismatch, replacement.name, replacement.baseType, n.name, n.baseType)}
			}
			if replacement.parent.Load() != nil {
				return TypeError{fmt.Errorf("%w: node %q", ErrAlreadyParented, replacement.name)}
			}
			propagateEvents(c)
			n.children = append(n.children[:i], n.children[i+1:]...)
			c.parent.Store(nil)

			n.children = append(n.children, replacement)
			replacement.parent.Store(n)
			propagateEvents(replacement)
			i--
			continue
		}
		if err := c.replaceChildrenLocked(name, eventType, replacement); err != nil {
			return err
		}
	}
	return nil
}

// RemoveChildren removes every match of (name, eventType) anywhere in the
// subtree rooted at n.
func (n *Node) RemoveChildren(name string, eventType EventType) {
	structuralLock.Lock()
	defer structuralLock.Unlock()
	n.removeChildrenLocked(name, eventType)
}

// RemoveChildrenNamed removes every descendant named name regardless of its
// base event type (the single-argument remove_children overload in spec §4.3).
func (n *Node) RemoveChildrenNamed(name string) {
	structuralLock.Lock()
	defer structuralLock.Unlock()
	n.removeChildrenLocked(name, nil)
}

func (n *Node) removeChildrenLocked(name string, eventType EventType) {
	for i := 0; i < len(n.children); i++ {
		c := n.children[i]
		if c.name == name && (eventType == nil || IsSubtype(eventType, c.baseType)) {
			propagateEvents(c)
			n.children = append(n.children[:i], n.children[i+1:]...)
			c.parent.Store(nil)
			i--
			continue
		}
		c.removeChildrenLocked(name, eventType)
	}
}

// Children returns a snapshot copy of n's direct children. Iteration order
// reflects insertion, not dispatch priority order.
func (n *Node) Children() []*Node {
	structuralLock.Lock()
	defer structuralLock.Unlock()
	out := make([]*Node, len(n.children))
	copy(out, n.children)
	return out
}

// MappedChild returns the node mapped at key, if any.
func (n *Node) MappedChild(key any) (*Node, bool) {
	structuralLock.Lock()
	defer structuralLock.Unlock()
	c, ok := n.mappedChildren[key]
	return c, ok
}
