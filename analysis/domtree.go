package analysis

import (
	mapset "github.com/deckarep/golang-set/v2"

	"github.com/gogpu/xir/ir"
)

// DomNode is the dominance information of one reachable block.
type DomNode struct {
	block    *ir.BasicBlock
	parent   *DomNode
	children []*DomNode
	pre      int32 // preorder number within the tree
	post     int32 // postorder number within the tree
	frontier []*ir.BasicBlock
}

// Block returns the block the node describes.
func (n *DomNode) Block() *ir.BasicBlock { return n.block }

// Parent returns the immediate dominator node, nil for the root.
func (n *DomNode) Parent() *DomNode { return n.parent }

// Children returns the nodes immediately dominated by n.
func (n *DomNode) Children() []*DomNode { return n.children }

// DomTree is the dominator tree of a function definition together with the
// dominance frontier of every node. Blocks unreachable from the body are not
// part of the tree.
type DomTree struct {
	function *ir.Function
	root     *DomNode
	nodes    map[*ir.BasicBlock]*DomNode
	order    []*ir.BasicBlock // reverse post-order of the CFG
}

// ComputeDomTree builds the dominator tree of f with the iterative
// Cooper-Harvey-Kennedy algorithm over reverse post-order.
func ComputeDomTree(f *ir.Function) *DomTree {
	ir.Assertf(f != nil && f.IsDefinition(), "dominator tree requires a function definition")
	t := &DomTree{
		function: f,
		nodes:    make(map[*ir.BasicBlock]*DomNode),
	}
	if f.BodyBlock() == nil {
		return t
	}

	t.order = f.ReversePostOrderBlocks()
	postnum := make(map[*ir.BasicBlock]int, len(t.order))
	for i, b := range t.order {
		postnum[b] = len(t.order) - 1 - i
	}

	// predecessors restricted to the reachable subgraph
	preds := make(map[*ir.BasicBlock][]*ir.BasicBlock, len(t.order))
	for _, b := range t.order {
		for _, p := range b.Predecessors() {
			if _, ok := postnum[p]; ok {
				preds[b] = append(preds[b], p)
			}
		}
	}

	entry := t.order[0]
	idom := map[*ir.BasicBlock]*ir.BasicBlock{entry: entry}
	for changed := true; changed; {
		changed = false
		for _, b := range t.order[1:] {
			var newIdom *ir.BasicBlock
			for _, p := range preds[b] {
				if _, ok := idom[p]; !ok {
					continue
				}
				if newIdom == nil {
					newIdom = p
				} else {
					newIdom = intersect(p, newIdom, postnum, idom)
				}
			}
			if newIdom != nil && idom[b] != newIdom {
				idom[b] = newIdom
				changed = true
			}
		}
	}

	for _, b := range t.order {
		t.nodes[b] = &DomNode{block: b}
	}
	t.root = t.nodes[entry]
	for _, b := range t.order[1:] {
		n := t.nodes[b]
		n.parent = t.nodes[idom[b]]
		n.parent.children = append(n.parent.children, n)
	}
	numberDomTree(t.root)
	t.buildFrontiers(preds)
	return t
}

// intersect finds the closest common dominator of b and c.
func intersect(b, c *ir.BasicBlock, postnum map[*ir.BasicBlock]int, idom map[*ir.BasicBlock]*ir.BasicBlock) *ir.BasicBlock {
	for b != c {
		for postnum[b] < postnum[c] {
			b = idom[b]
		}
		for postnum[c] < postnum[b] {
			c = idom[c]
		}
	}
	return b
}

// numberDomTree assigns pre- and post-order numbers with an explicit stack,
// so dominance queries are answered in constant time.
func numberDomTree(root *DomNode) {
	type frame struct {
		node *DomNode
		next int
	}
	var pre, post int32
	root.pre = pre
	pre++
	stack := []frame{{node: root}}
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.next < len(top.node.children) {
			child := top.node.children[top.next]
			top.next++
			child.pre = pre
			pre++
			stack = append(stack, frame{node: child})
			continue
		}
		top.node.post = post
		post++
		stack = stack[:len(stack)-1]
	}
}

// buildFrontiers computes dominance frontiers by walking up from every
// predecessor until the immediate dominator of the joining block is reached.
func (t *DomTree) buildFrontiers(preds map[*ir.BasicBlock][]*ir.BasicBlock) {
	seen := make(map[*DomNode]mapset.Set[*ir.BasicBlock], len(t.nodes))
	for _, b := range t.order {
		n := t.nodes[b]
		for _, p := range preds[b] {
			for runner := t.nodes[p]; runner != nil && runner != n.parent; runner = runner.parent {
				s, ok := seen[runner]
				if !ok {
					s = mapset.NewThreadUnsafeSet[*ir.BasicBlock]()
					seen[runner] = s
				}
				if s.Add(b) {
					runner.frontier = append(runner.frontier, b)
				}
			}
		}
	}
}

// Function returns the function the tree was computed for.
func (t *DomTree) Function() *ir.Function {
	return t.function
}

// Root returns the entry block, nil for a function without body.
func (t *DomTree) Root() *ir.BasicBlock {
	if t.root == nil {
		return nil
	}
	return t.root.block
}

// Blocks returns the blocks of the tree in reverse post-order of the CFG.
func (t *DomTree) Blocks() []*ir.BasicBlock {
	return t.order
}

// Node returns the node of b, or nil when b is not in the tree.
func (t *DomTree) Node(b *ir.BasicBlock) *DomNode {
	return t.nodes[b]
}

// Contains reports whether b is reachable and thus part of the tree.
func (t *DomTree) Contains(b *ir.BasicBlock) bool {
	_, ok := t.nodes[b]
	return ok
}

// Parent returns the immediate dominator of b, nil for the root and for
// blocks outside the tree.
func (t *DomTree) Parent(b *ir.BasicBlock) *ir.BasicBlock {
	n := t.nodes[b]
	if n == nil || n.parent == nil {
		return nil
	}
	return n.parent.block
}

// Children returns the blocks immediately dominated by b.
func (t *DomTree) Children(b *ir.BasicBlock) []*ir.BasicBlock {
	n := t.nodes[b]
	if n == nil {
		return nil
	}
	children := make([]*ir.BasicBlock, len(n.children))
	for i, c := range n.children {
		children[i] = c.block
	}
	return children
}

// Dominates reports whether a dominates b. Every block dominates itself;
// blocks outside the tree neither dominate nor are dominated.
func (t *DomTree) Dominates(a, b *ir.BasicBlock) bool {
	na, nb := t.nodes[a], t.nodes[b]
	if na == nil || nb == nil {
		return false
	}
	return na.pre <= nb.pre && nb.post <= na.post
}

// StrictlyDominates reports whether a dominates b and a != b.
func (t *DomTree) StrictlyDominates(a, b *ir.BasicBlock) bool {
	return a != b && t.Dominates(a, b)
}

// Frontier returns the dominance frontier of b in discovery order.
func (t *DomTree) Frontier(b *ir.BasicBlock) []*ir.BasicBlock {
	n := t.nodes[b]
	if n == nil {
		return nil
	}
	return n.frontier
}
