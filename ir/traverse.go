package ir

// PostOrder returns the blocks reachable from start in depth-first
// post-order, following terminator successors in operand order. Blocks for
// which stop returns true are neither visited nor traversed through; stop
// may be nil.
func PostOrder(start *BasicBlock, stop func(*BasicBlock) bool) []*BasicBlock {
	if start == nil || (stop != nil && stop(start)) {
		return nil
	}
	type frame struct {
		block *BasicBlock
		succs []*BasicBlock
		next  int
	}
	visited := map[*BasicBlock]bool{start: true}
	stack := []frame{{block: start, succs: start.Successors()}}
	var order []*BasicBlock
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.next < len(top.succs) {
			s := top.succs[top.next]
			top.next++
			if visited[s] || (stop != nil && stop(s)) {
				continue
			}
			visited[s] = true
			stack = append(stack, frame{block: s, succs: s.Successors()})
			continue
		}
		order = append(order, top.block)
		stack = stack[:len(stack)-1]
	}
	return order
}

// ReversePostOrder returns PostOrder(start, stop) reversed, so that every
// block comes before its successors except along back edges.
func ReversePostOrder(start *BasicBlock, stop func(*BasicBlock) bool) []*BasicBlock {
	order := PostOrder(start, stop)
	for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
		order[i], order[j] = order[j], order[i]
	}
	return order
}

// PostOrderBlocks returns the blocks reachable from the body in post-order.
func (f *Function) PostOrderBlocks() []*BasicBlock {
	return PostOrder(f.body, nil)
}

// ReversePostOrderBlocks returns the blocks reachable from the body in
// reverse post-order.
func (f *Function) ReversePostOrderBlocks() []*BasicBlock {
	return ReversePostOrder(f.body, nil)
}

// TraverseBasicBlocks calls visit for every reachable block in reverse
// post-order.
func (f *Function) TraverseBasicBlocks(visit func(*BasicBlock)) {
	for _, b := range f.ReversePostOrderBlocks() {
		visit(b)
	}
}

// TraverseInstructions calls visit for every instruction of every reachable
// block in reverse post-order. Visiting a snapshot allows visit to unlink
// the instruction it is given.
func (f *Function) TraverseInstructions(visit func(Instruction)) {
	for _, b := range f.ReversePostOrderBlocks() {
		for _, inst := range b.Instructions() {
			visit(inst)
		}
	}
}
