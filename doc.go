// Package eventtree provides a hierarchical, type-routed event dispatch
// tree: listeners subscribe to event classes at named Nodes, Nodes form a
// tree (plus keyed mapped children), and events dispatched at any Node are
// routed to every applicable listener in the subtree in priority order.
package eventtree
