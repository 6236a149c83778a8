package ir

// BasicBlock is an ordered list of instructions owned by one function.
// A block reachable from the function body is non-empty and its last
// instruction is a terminator.
//
// Blocks are never deleted. Passes that find a block unreachable empty it
// and terminate it with an UnreachableInst instead.
type BasicBlock struct {
	valueBase
	parent *Function
	head   Instruction
	tail   Instruction
	count  int
}

// Kind implements Value.
func (*BasicBlock) Kind() ValueKind { return ValueBasicBlock }

// Function returns the function owning the block.
func (b *BasicBlock) Function() *Function {
	return b.parent
}

// First returns the first instruction or nil.
func (b *BasicBlock) First() Instruction {
	return b.head
}

// Last returns the last instruction or nil.
func (b *BasicBlock) Last() Instruction {
	return b.tail
}

// Len returns the number of instructions in the block.
func (b *BasicBlock) Len() int {
	return b.count
}

// Empty reports whether the block holds no instruction.
func (b *BasicBlock) Empty() bool {
	return b.count == 0
}

// Instructions returns a snapshot of the block's instructions, so callers
// may freely unlink instructions while iterating.
func (b *BasicBlock) Instructions() []Instruction {
	insts := make([]Instruction, 0, b.count)
	for i := b.head; i != nil; i = i.Next() {
		insts = append(insts, i)
	}
	return insts
}

// Terminator returns the block terminator, or nil when the block is not
// terminated.
func (b *BasicBlock) Terminator() Terminator {
	if b.tail == nil {
		return nil
	}
	t, _ := b.tail.(Terminator)
	return t
}

// IsTerminated reports whether the last instruction is a terminator.
func (b *BasicBlock) IsTerminated() bool {
	return b.Terminator() != nil
}

// Successors returns the distinct blocks the terminator may transfer control
// to, in operand order. Merge blocks are structural annotations, not
// successors.
func (b *BasicBlock) Successors() []*BasicBlock {
	t := b.Terminator()
	if t == nil {
		return nil
	}
	var succs []*BasicBlock
	for _, u := range t.OperandUses() {
		if s, ok := u.Value().(*BasicBlock); ok && s != nil && !containsBlock(succs, s) {
			succs = append(succs, s)
		}
	}
	return succs
}

// Predecessors returns the distinct blocks whose linked terminator targets b.
func (b *BasicBlock) Predecessors() []*BasicBlock {
	var preds []*BasicBlock
	for u := b.useHead; u != nil; u = u.next {
		user := u.User()
		if !user.IsTerminator() {
			continue
		}
		if p := user.Block(); p != nil && p.parent == b.parent && !containsBlock(preds, p) {
			preds = append(preds, p)
		}
	}
	return preds
}

// Phis returns the phi instructions at the head of the block.
func (b *BasicBlock) Phis() []*PhiInst {
	var phis []*PhiInst
	for i := b.head; i != nil; i = i.Next() {
		phi, ok := i.(*PhiInst)
		if !ok {
			break
		}
		phis = append(phis, phi)
	}
	return phis
}

// FirstNonPhi returns the first instruction that is not a phi, or nil.
func (b *BasicBlock) FirstNonPhi() Instruction {
	for i := b.head; i != nil; i = i.Next() {
		if _, ok := i.(*PhiInst); !ok {
			return i
		}
	}
	return nil
}

// Append links inst at the end of the block.
func (b *BasicBlock) Append(inst Instruction) {
	inst.unlinkIfLinked()
	b.insertAfter(inst, b.tail)
}

// Prepend links inst at the beginning of the block.
func (b *BasicBlock) Prepend(inst Instruction) {
	inst.unlinkIfLinked()
	b.insertAfter(inst, nil)
}

// insertAfter links a detached inst after pos, or at the head when pos is
// nil, and attaches its operand uses.
func (b *BasicBlock) insertAfter(inst Instruction, pos Instruction) {
	Assertf(inst.Module() == b.module, "instruction and block should be in the same pool")
	ib := inst.inst()
	Assertf(ib.block == nil, "instruction is already linked")
	var next Instruction
	if pos == nil {
		next = b.head
		b.head = inst
	} else {
		Assertf(pos.Block() == b, "insertion point is not in the block")
		pb := pos.inst()
		next = pb.next
		pb.next = inst
	}
	ib.prev = pos
	ib.next = next
	if next != nil {
		next.inst().prev = inst
	} else {
		b.tail = inst
	}
	ib.block = b
	b.count++
	for _, u := range ib.operands {
		u.attach()
	}
}

// remove unlinks inst from the block and detaches its operand uses.
func (b *BasicBlock) remove(inst Instruction) {
	ib := inst.inst()
	if ib.prev != nil {
		ib.prev.inst().next = ib.next
	} else {
		b.head = ib.next
	}
	if ib.next != nil {
		ib.next.inst().prev = ib.prev
	} else {
		b.tail = ib.prev
	}
	ib.prev, ib.next, ib.block = nil, nil, nil
	b.count--
	for _, u := range ib.operands {
		u.detach()
	}
}

func containsBlock(blocks []*BasicBlock, b *BasicBlock) bool {
	for _, x := range blocks {
		if x == b {
			return true
		}
	}
	return false
}
