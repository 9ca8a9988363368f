package eventtree_test

import (
	"testing"

	"github.com/dhui/eventtree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestChildPriorityOrdering covers spec §8 scenario 2: children dispatch in
// ascending priority order, and a SetPriority change alone does not reorder
// an already-valid Handle (the documented gap) until something else forces
// a rebuild.
func TestChildPriorityOrdering(t *testing.T) {
	root := newTestNode("root")
	hi := newTestNode("hi")
	lo := newTestNode("lo")
	require.NoError(t, root.AddChild(hi))
	require.NoError(t, root.AddChild(lo))
	hi.SetPriority(10)
	lo.SetPriority(1)

	var calls []string
	hi.AddListener(successListener[testEvent](testEventType, &calls, "hi"))
	lo.AddListener(successListener[testEvent](testEventType, &calls, "lo"))

	handle, err := root.GetHandle(testEventType)
	require.NoError(t, err)

	require.NoError(t, root.Call(testEvent{}, handle))
	assert.Equal(t, []string{"lo", "hi"}, calls)

	// Reprioritize hi below lo: the cached Handle stays valid, so the stale
	// order is observed on the very next call.
	hi.SetPriority(0)
	calls = nil
	require.NoError(t, root.Call(testEvent{}, handle))
	assert.Equal(t, []string{"lo", "hi"}, calls)

	// Any unrelated structural edit forces a rebuild, which then honors the
	// new priority.
	dummy := listen[testEvent](testEventType, func(testEvent) eventtree.Result { return eventtree.ResultSuccess })
	hi.AddListener(dummy)
	hi.RemoveListener(dummy)
	calls = nil
	require.NoError(t, root.Call(testEvent{}, handle))
	assert.Equal(t, []string{"hi", "lo"}, calls)
}

// TestMappedRouting covers spec §8 scenario 3: a mapped child only receives
// events whose extracted key matches its registration key.
func TestMappedRouting(t *testing.T) {
	root := newTestNode("root")
	mapped := eventtree.NewNode("mapped", playerIDFilter(), nil)
	require.NoError(t, root.Map(mapped, "player-42"))

	var calls []string
	mapped.AddListener(successListener[testEvent](testEventType, &calls, "mapped"))

	handle, err := root.GetHandle(testEventType)
	require.NoError(t, err)

	require.NoError(t, root.Call(testEvent{PlayerID: "player-42"}, handle))
	assert.Equal(t, []string{"mapped"}, calls)

	calls = nil
	require.NoError(t, root.Call(testEvent{PlayerID: "player-7"}, handle))
	assert.Empty(t, calls)
}

// TestRecursiveEventDispatch covers spec §8 scenario 4: a listener registered
// on a recursive ancestor class runs for a dispatched subclass event, while a
// listener registered on a non-recursive ancestor does not.
func TestRecursiveEventDispatch(t *testing.T) {
	node := eventtree.NewNode("node", anyKeyFilter(leafEventType), nil)

	var calls []string
	node.AddListener(successListener[leafEvent](recursiveBaseEventType, &calls, "recursive-base"))
	node.AddListener(successListener[leafEvent](baseEventType, &calls, "base"))

	handle, err := node.GetHandle(leafEventType)
	require.NoError(t, err)
	require.NoError(t, node.Call(leafEvent{}, handle))

	assert.Equal(t, []string{"recursive-base"}, calls)
}

// TestListenerExpiration covers spec §8 scenario 5: a listener reporting
// ResultExpired is removed from its Node after the call that triggered it.
func TestListenerExpiration(t *testing.T) {
	node := newTestNode("node")
	calls := 0
	l := listen[testEvent](testEventType, func(testEvent) eventtree.Result {
		calls++
		return eventtree.ResultExpired
	})
	node.AddListener(l)

	handle, err := node.GetHandle(testEventType)
	require.NoError(t, err)

	require.NoError(t, node.Call(testEvent{}, handle))
	assert.Equal(t, 1, calls)

	has, err := node.HasListener(handle)
	require.NoError(t, err)
	assert.False(t, has)

	require.NoError(t, node.Call(testEvent{}, handle))
	assert.Equal(t, 1, calls)
}

// TestExceptionIsolation covers spec §8 scenario 6: a panicking listener is
// recovered and reported, and sibling listeners still run.
func TestExceptionIsolation(t *testing.T) {
	node := newTestNode("node")
	var calls []string
	var reported []string

	eventtree.SetExceptionReporter(reporterFunc(func(n *eventtree.Node, et eventtree.EventType, err error) {
		reported = append(reported, err.Error())
	}))
	defer eventtree.SetExceptionReporter(eventtree.NewDefaultReporter())

	l1 := successListener[testEvent](testEventType, &calls, "l1")
	l2 := listen[testEvent](testEventType, func(testEvent) eventtree.Result {
		panic("boom")
	})
	l3 := successListener[testEvent](testEventType, &calls, "l3")
	node.AddListener(l1)
	node.AddListener(l2)
	node.AddListener(l3)

	handle, err := node.GetHandle(testEventType)
	require.NoError(t, err)
	require.NoError(t, node.Call(testEvent{}, handle))

	assert.Equal(t, []string{"l1", "l3"}, calls)
	assert.Len(t, reported, 1)
}

// TestExceptionResultIsolation covers the ResultException return path (as
// opposed to a panic): the reporter still fires and siblings still run.
func TestExceptionResultIsolation(t *testing.T) {
	node := newTestNode("node")
	var calls []string
	var reported int

	eventtree.SetExceptionReporter(reporterFunc(func(n *eventtree.Node, et eventtree.EventType, err error) {
		reported++
	}))
	defer eventtree.SetExceptionReporter(eventtree.NewDefaultReporter())

	node.AddListener(successListener[testEvent](testEventType, &calls, "l1"))
	node.AddListener(listen[testEvent](testEventType, func(testEvent) eventtree.Result {
		return eventtree.ResultException
	}))
	node.AddListener(successListener[testEvent](testEventType, &calls, "l3"))

	handle, err := node.GetHandle(testEventType)
	require.NoError(t, err)
	require.NoError(t, node.Call(testEvent{}, handle))

	assert.Equal(t, []string{"l1", "l3"}, calls)
	assert.Equal(t, 1, reported)
}
