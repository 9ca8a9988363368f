package eventtree

import (
	"fmt"
	"sort"
	"sync/atomic"
)

// Handle is the per-(Node, event-type) cache: a flattened, priority-ordered
// list of effective listener closures, published behind a validity flag
// (spec §4.5).
type Handle struct {
	owner     *Node
	eventType EventType

	valid     atomic.Bool
	flattened atomic.Pointer[[]func(Event)]
}

// Owner returns the Node this Handle was created for.
func (h *Handle) Owner() *Node { return h.owner }

// EventType returns the event type this Handle was created for.
func (h *Handle) EventType() EventType { return h.eventType }

// Valid reports whether the cached flattened list currently reflects the
// owner's subtree. A single atomic load — no lock.
func (h *Handle) Valid() bool { return h.valid.Load() }

// ensureValid rebuilds the flattened list if it's stale. The fast path (no
// concurrent invalidation) is a single atomic load and no lock.
func (h *Handle) ensureValid() {
	if h.valid.Load() {
		return
	}
	structuralLock.Lock()
	defer structuralLock.Unlock()
	if !h.valid.Load() {
		h.update()
	}
}

// update rebuilds the flattened list. Must be called with structuralLock
// held (by the caller, possibly via the lock's reentrancy).
func (h *Handle) update() {
	var out []func(Event)
	flattenNode(h.owner, h.eventType, &out)
	snapshot := out
	h.flattened.Store(&snapshot)
	h.valid.Store(true)
}

// callWithHandle is the shared fast path used by both Node.Call and the
// mapped-child router closures built during flatten.
func callWithHandle(n *Node, event Event, h *Handle) error {
	if h.owner != n {
		return TypeError{fmt.Errorf("%w: handle belongs to %q, not %q", ErrWrongOwner, h.owner.Name(), n.Name())}
	}
	h.ensureValid()
	for _, fn := range *h.flattened.Load() {
		fn(event)
	}
	return nil
}

// mappedRoute is a single mapped-child candidate captured at flatten time.
type mappedRoute struct {
	key    any
	filter Filter
	child  *Node
	handle *Handle
}

// flattenNode implements spec §4.5's recursive_update: it clears nothing
// itself (the caller owns a fresh slice) and appends, in order: n's direct
// listeners for every type TypeWalker yields on eventType, one router
// closure for n's qualifying mapped children, then each admissible child's
// own flattened contribution, recursing in ascending-priority order.
//
// Must be called with structuralLock held.
func flattenNode(n *Node, eventType EventType, out *[]func(Event)) {
	for _, t := range TypeWalker(eventType) {
		if entry, ok := n.listenerEntries[t]; ok && !entry.empty() {
			appendEntries(n, entry, out)
		}
	}

	if len(n.mappedChildren) > 0 {
		var routes []mappedRoute
		for key, child := range n.mappedChildren {
			if !IsSubtype(eventType, child.baseType) {
				continue
			}
			childHandle := child.getOrCreateHandleLocked(eventType)
			childHandle.ensureValid()
			if len(*childHandle.flattened.Load()) == 0 {
				continue
			}
			routes = append(routes, mappedRoute{key: key, filter: child.filter, child: child, handle: childHandle})
		}
		if len(routes) > 0 {
			captured := routes
			*out = append(*out, func(event Event) {
				for _, r := range captured {
					key, ok := r.filter.ExtractKey(event)
					if !ok || key != r.key {
						continue
					}
					_ = callWithHandle(r.child, event, r.handle)
				}
			})
		}
	}

	children := make([]*Node, len(n.children))
	copy(children, n.children)
	sort.SliceStable(children, func(i, j int) bool {
		return children[i].Priority() < children[j].Priority()
	})
	for _, c := range children {
		if IsSubtype(eventType, c.baseType) {
			flattenNode(c, eventType, out)
		}
	}
}

// appendEntries appends one closure per direct listener (gated by n's
// predicate, reporting and self-removing on ResultExpired) followed by one
// closure per binding consumer (spec §4.5's append_entries).
func appendEntries(n *Node, entry *ListenerEntry, out *[]func(Event)) {
	for _, l := range entry.listeners {
		l := l
		*out = append(*out, func(event Event) {
			if n.predicate != nil {
				key, _ := n.filter.ExtractKey(event)
				if !n.predicate(event, key) {
					return
				}
			}
			if runListener(n, l, event) == ResultExpired {
				n.RemoveListener(l)
			}
		})
	}
	for _, c := range entry.consumers {
		c := c
		*out = append(*out, func(event Event) { c.fn(event) })
	}
}

// runListener invokes l, recovering a panic as an exception and reporting
// any ResultException (panic-derived or returned directly) through the
// process-wide ExceptionReporter. Listener failure is never surfaced to the
// caller of Call (spec §7).
func runListener(n *Node, l EventListener, event Event) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			err, ok := r.(error)
			if !ok {
				err = fmt.Errorf("%v", r)
			}
			currentReporter().HandleException(n, l.EventType(), err)
			result = ResultException
		}
	}()
	result = l.Run(event)
	if result == ResultException {
		currentReporter().HandleException(n, l.EventType(),
			fmt.Errorf("listener for event type %s reported an exception", l.EventType()))
	}
	return result
}

// propagateEvent walks from n upward, invalidating every ancestor's (and
// n's own) Handle keyed by any type TypeWalker yields on t.
//
// Must be called with structuralLock held.
func propagateEvent(n *Node, t EventType) {
	for cur := n; cur != nil; cur = cur.parent.Load() {
		for _, et := range TypeWalker(t) {
			if h, ok := cur.handles[et]; ok {
				h.valid.Store(false)
			}
		}
	}
}

// propagateEvents is the bulk variant of propagateEvent used on attach and
// detach, since a subtree exposes its entire listener set at once: every
// Handle on n and every ancestor is invalidated, regardless of event type.
//
// Must be called with structuralLock held.
func propagateEvents(n *Node) {
	for cur := n; cur != nil; cur = cur.parent.Load() {
		for _, h := range cur.handles {
			h.valid.Store(false)
		}
	}
}
