package eventtree

import (
	"fmt"

	"github.com/xlab/treeprint"
)

// Dump renders the live tree rooted at n — names, priorities, and mapped
// keys — using github.com/xlab/treeprint, the same library npillmayer-fp
// uses to render its parse trees. It is a debugging aid only; it takes the
// structural lock for the duration of the walk.
func (n *Node) Dump() string {
	structuralLock.Lock()
	defer structuralLock.Unlock()

	root := treeprint.New()
	root.SetValue(n.describeLocked())
	n.dumpLocked(root)
	return root.String()
}

func (n *Node) describeLocked() string {
	return fmt.Sprintf("%s (type=%s, priority=%d)", n.name, n.baseType, n.priority.Load())
}

func (n *Node) dumpLocked(branch treeprint.Tree) {
	for _, c := range n.children {
		child := branch.AddBranch(c.describeLocked())
		c.dumpLocked(child)
	}
	for key, c := range n.mappedChildren {
		child := branch.AddBranch(fmt.Sprintf("[mapped:%v] %s", key, c.describeLocked()))
		c.dumpLocked(child)
	}
}
