package passes

import (
	mapset "github.com/deckarep/golang-set/v2"

	"github.com/gogpu/xir/ir"
)

// DCEInfo reports the work of dead code elimination.
type DCEInfo struct {
	// RemovedInstructions holds every instruction unlinked by the pass,
	// including the contents of neutralized blocks.
	RemovedInstructions mapset.Set[ir.Instruction]
	// NeutralizedBlocks counts blocks whose terminator was replaced by an
	// unreachable.
	NeutralizedBlocks int
}

func newDCEInfo() *DCEInfo {
	return &DCEInfo{RemovedInstructions: mapset.NewThreadUnsafeSet[ir.Instruction]()}
}

func (info *DCEInfo) merge(other *DCEInfo) {
	info.RemovedInstructions.Append(other.RemovedInstructions.ToSlice()...)
	info.NeutralizedBlocks += other.NeutralizedBlocks
}

// DCE runs DCEFunction on every definition of m.
func DCE(m *ir.Module) *DCEInfo {
	info := newDCEInfo()
	for _, f := range m.Definitions() {
		info.merge(DCEFunction(f))
	}
	return info
}

// isRemovableWhenUnused reports whether inst has no effect besides its value.
func isRemovableWhenUnused(inst ir.Instruction) bool {
	switch inst := inst.(type) {
	case *ir.PhiInst, *ir.AllocaInst, *ir.LoadInst, *ir.GEPInst,
		*ir.ArithmeticInst, *ir.CastInst, *ir.ClockInst,
		*ir.RayQueryObjectReadInst, *ir.ResourceQueryInst, *ir.ResourceReadInst:
		return true
	case *ir.AutodiffIntrinsicInst:
		return inst.Op() == ir.AutodiffGradient
	}
	return false
}

// dce holds the state of one function.
type dce struct {
	function *ir.Function
	info     *DCEInfo
	builder  *ir.Builder
}

// DCEFunction removes dead code from f until nothing changes:
//
//   - blocks from which control can only reach unreachable terminators, and
//     targets statically excluded by constant branch conditions, are
//     neutralized to a single unreachable terminator;
//   - merge annotations pointing at neutralized blocks are cleared;
//   - phi incomings from blocks that no longer branch to the phi are dropped;
//   - side-effect free instructions whose values are not needed, variables
//     that are only written and redundant phis are removed.
//
// Stores, atomics, calls, prints, assertions and terminators of reachable
// blocks are never removed.
func DCEFunction(f *ir.Function) *DCEInfo {
	d := &dce{function: f, info: newDCEInfo(), builder: ir.NewBuilder()}
	if f.BodyBlock() == nil {
		return d.info
	}
	for rounds := 1; ; rounds++ {
		removed, neutralized := d.info.RemovedInstructions.Cardinality(), d.info.NeutralizedBlocks
		d.propagateUnreachable()
		d.eliminateUnreachableBlocks()
		d.fixControlFlowMerges()
		phis := d.fixPhiNodes()
		d.eliminateDeadCode(phis)
		if d.info.RemovedInstructions.Cardinality() == removed && d.info.NeutralizedBlocks == neutralized {
			passLogger("dce", f).Debugf("removed %d instructions, neutralized %d blocks in %d rounds",
				removed, neutralized, rounds)
			return d.info
		}
	}
}

// propagateUnreachable neutralizes the blocks from which every path ends in
// an unreachable terminator. Self loops do not keep a block alive.
func (d *dce) propagateUnreachable() {
	postOrder := d.function.PostOrderBlocks()
	unreachable := mapset.NewThreadUnsafeSet[*ir.BasicBlock]()
	var found []*ir.BasicBlock
	for changed := true; changed; {
		changed = false
		for _, blk := range postOrder {
			if unreachable.Contains(blk) || !d.endsInUnreachable(blk, unreachable) {
				continue
			}
			unreachable.Add(blk)
			found = append(found, blk)
			changed = true
		}
	}
	for _, blk := range found {
		d.neutralize(blk)
	}
}

func (d *dce) endsInUnreachable(blk *ir.BasicBlock, unreachable mapset.Set[*ir.BasicBlock]) bool {
	if _, ok := blk.Terminator().(*ir.UnreachableInst); ok {
		return true
	}
	hasSuccessor := false
	for _, s := range blk.Successors() {
		if s == blk {
			continue
		}
		hasSuccessor = true
		if unreachable.Contains(s) {
			continue
		}
		if _, ok := s.Terminator().(*ir.UnreachableInst); !ok {
			return false
		}
	}
	return hasSuccessor
}

// neutralize empties blk and terminates it with an unreachable. A block that
// already is a lone unreachable is left alone.
func (d *dce) neutralize(blk *ir.BasicBlock) {
	if _, ok := blk.Terminator().(*ir.UnreachableInst); ok && blk.Len() == 1 {
		return
	}
	for _, inst := range blk.Instructions() {
		if _, ok := inst.(*ir.UnreachableInst); ok {
			continue
		}
		inst.RemoveSelf()
		d.info.RemovedInstructions.Add(inst)
	}
	if blk.Empty() {
		d.builder.SetInsertionPointToEnd(blk)
		d.builder.Unreachable("")
	}
	d.info.NeutralizedBlocks++
}

// eliminateUnreachableBlocks neutralizes the blocks that are not reachable
// from the body but still use values of reachable blocks, and the branch
// targets excluded by constant conditions.
func (d *dce) eliminateUnreachableBlocks() {
	rpo := d.function.ReversePostOrderBlocks()
	reachable := mapset.NewThreadUnsafeSet(rpo...)
	marked := mapset.NewThreadUnsafeSet[*ir.BasicBlock]()
	var dead []*ir.BasicBlock
	mark := func(blk *ir.BasicBlock) {
		if blk != nil && marked.Add(blk) {
			dead = append(dead, blk)
		}
	}

	for _, blk := range rpo {
		for inst := blk.First(); inst != nil; inst = inst.Next() {
			for _, u := range inst.Uses() {
				ub := u.User().Block()
				if ub != nil && ub.Function() == d.function && !reachable.Contains(ub) {
					mark(ub)
				}
			}
		}
		for _, target := range staticallyExcludedTargets(blk) {
			mark(target)
		}
	}
	for _, blk := range dead {
		d.neutralize(blk)
	}
}

// staticallyExcludedTargets returns the successors of blk that its constant
// branch condition never selects and that no other block branches to.
func staticallyExcludedTargets(blk *ir.BasicBlock) []*ir.BasicBlock {
	var taken *ir.BasicBlock
	var candidates []*ir.BasicBlock
	switch term := blk.Terminator().(type) {
	case ir.ConditionalBranch:
		c, ok := term.Condition().(*ir.Constant)
		if !ok {
			return nil
		}
		if c.Bool() {
			taken, candidates = term.TrueBlock(), []*ir.BasicBlock{term.FalseBlock()}
		} else {
			taken, candidates = term.FalseBlock(), []*ir.BasicBlock{term.TrueBlock()}
		}
	case *ir.SwitchInst:
		c, ok := term.Selector().(*ir.Constant)
		if !ok {
			return nil
		}
		matched := false
		for i := 0; i < term.CaseCount(); i++ {
			if term.CaseValue(i) == c.Int() {
				matched = true
				taken = term.CaseBlock(i)
			} else {
				candidates = append(candidates, term.CaseBlock(i))
			}
		}
		if matched {
			candidates = append(candidates, term.DefaultBlock())
		} else {
			taken = term.DefaultBlock()
		}
	default:
		return nil
	}

	var excluded []*ir.BasicBlock
	for _, c := range candidates {
		if c == nil || c == taken || c == blk {
			continue
		}
		preds := c.Predecessors()
		if len(preds) == 1 && preds[0] == blk {
			excluded = append(excluded, c)
		}
	}
	return excluded
}

// fixControlFlowMerges clears merge annotations that point at neutralized
// blocks.
func (d *dce) fixControlFlowMerges() {
	for _, blk := range d.function.ReversePostOrderBlocks() {
		cfm, ok := blk.Terminator().(ir.ControlFlowMerge)
		if !ok || cfm.MergeBlock() == nil {
			continue
		}
		if _, ok := cfm.MergeBlock().Terminator().(*ir.UnreachableInst); ok {
			cfm.SetMergeBlock(nil)
		}
	}
}

// fixPhiNodes drops the incomings of blocks that are no longer predecessors
// and returns every phi of the reachable blocks.
func (d *dce) fixPhiNodes() []*ir.PhiInst {
	var all []*ir.PhiInst
	for _, blk := range d.function.ReversePostOrderBlocks() {
		phis := blk.Phis()
		if len(phis) == 0 {
			continue
		}
		preds := mapset.NewThreadUnsafeSet(blk.Predecessors()...)
		for _, phi := range phis {
			for i := phi.IncomingCount() - 1; i >= 0; i-- {
				if !preds.Contains(phi.Incoming(i).Block) {
					phi.RemoveIncoming(i)
				}
			}
		}
		all = append(all, phis...)
	}
	return all
}

// eliminateDeadCode removes dead instructions, write-only variables and
// redundant phis until none is left.
func (d *dce) eliminateDeadCode(phis []*ir.PhiInst) {
	for {
		before := d.info.RemovedInstructions.Cardinality()
		d.removeDeadInstructions()
		d.removeDeadAllocas()
		for _, phi := range phis {
			if phi.Block() != nil && RemoveRedundantPhi(phi) {
				d.info.RemovedInstructions.Add(phi)
			}
		}
		if d.info.RemovedInstructions.Cardinality() == before {
			return
		}
	}
}

// removeDeadInstructions removes the side-effect free instructions whose
// values no live instruction needs. Liveness flows from instructions with
// effects, and from users outside the reachable blocks, to their operands.
func (d *dce) removeDeadInstructions() {
	rpo := d.function.ReversePostOrderBlocks()
	reachable := mapset.NewThreadUnsafeSet(rpo...)
	live := mapset.NewThreadUnsafeSet[ir.Instruction]()
	var candidates []ir.Instruction
	var work []ir.Instruction

	for _, blk := range rpo {
		for inst := blk.First(); inst != nil; inst = inst.Next() {
			if !isRemovableWhenUnused(inst) || hasUserOutside(inst, reachable) {
				live.Add(inst)
				work = append(work, inst)
				continue
			}
			candidates = append(candidates, inst)
		}
	}
	for len(work) > 0 {
		inst := work[len(work)-1]
		work = work[:len(work)-1]
		for _, op := range inst.Operands() {
			opInst, ok := op.(ir.Instruction)
			if ok && opInst.Block() != nil && live.Add(opInst) {
				work = append(work, opInst)
			}
		}
	}
	for _, inst := range candidates {
		if !live.Contains(inst) {
			inst.RemoveSelf()
			d.info.RemovedInstructions.Add(inst)
		}
	}
}

func hasUserOutside(inst ir.Instruction, reachable mapset.Set[*ir.BasicBlock]) bool {
	for _, u := range inst.Uses() {
		if !reachable.Contains(u.User().Block()) {
			return true
		}
	}
	return false
}

// removeDeadAllocas removes variables that are written but never read,
// together with the stores and GEPs writing them.
func (d *dce) removeDeadAllocas() {
	var allocas []*ir.AllocaInst
	d.function.TraverseInstructions(func(inst ir.Instruction) {
		if a, ok := inst.(*ir.AllocaInst); ok {
			allocas = append(allocas, a)
		}
	})
	for _, a := range allocas {
		if a.Block() == nil || !isPointerWriteOnly(a, mapset.NewThreadUnsafeSet[ir.Value]()) {
			continue
		}
		d.removeWithUsers(a)
	}
}

// isPointerWriteOnly reports whether ptr, and every GEP derived from it, is
// only ever the destination of stores.
func isPointerWriteOnly(ptr ir.Value, known mapset.Set[ir.Value]) bool {
	if !known.Add(ptr) {
		return true
	}
	for _, u := range ptr.Uses() {
		switch user := u.User().(type) {
		case *ir.StoreInst:
			if user.Variable() != ptr || user.Value() == ptr {
				return false
			}
		case *ir.GEPInst:
			if user.Base() != ptr || !isPointerWriteOnly(user, known) {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func (d *dce) removeWithUsers(inst ir.Instruction) {
	for _, u := range inst.Uses() {
		if user := u.User(); user.Block() != nil {
			d.removeWithUsers(user)
		}
	}
	inst.RemoveSelf()
	d.info.RemovedInstructions.Add(inst)
}
