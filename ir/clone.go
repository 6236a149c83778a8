package ir

// ValueResolver maps the operands of an instruction being cloned to the
// values the copy should reference.
type ValueResolver interface {
	Resolve(v Value) Value
}

// ValueResolverFunc adapts a function to a ValueResolver.
type ValueResolverFunc func(v Value) Value

// Resolve implements ValueResolver.
func (f ValueResolverFunc) Resolve(v Value) Value {
	return f(v)
}

// IdentityResolver resolves every value to itself.
var IdentityResolver ValueResolver = ValueResolverFunc(func(v Value) Value { return v })

// Clone creates a copy of inst at the insertion point. Operands, phi incoming
// blocks and structural block fields (merge, loop body and update) are mapped
// through r; absent operands stay absent, and a structural block field that
// resolves to nil is dropped.
func (b *Builder) Clone(inst Instruction, r ValueResolver) Instruction {
	var c Instruction
	switch src := inst.(type) {
	case *IfInst:
		n := &IfInst{}
		n.merge = resolveBlock(src.merge, r)
		c = n
	case *SwitchInst:
		n := &SwitchInst{caseValues: append([]int64(nil), src.caseValues...)}
		n.merge = resolveBlock(src.merge, r)
		c = n
	case *LoopInst:
		n := &LoopInst{body: resolveBlock(src.body, r), update: resolveBlock(src.update, r)}
		n.merge = resolveBlock(src.merge, r)
		c = n
	case *SimpleLoopInst:
		n := &SimpleLoopInst{}
		n.merge = resolveBlock(src.merge, r)
		c = n
	case *BranchInst:
		c = &BranchInst{}
	case *ConditionalBranchInst:
		c = &ConditionalBranchInst{}
	case *BreakInst:
		c = &BreakInst{}
	case *ContinueInst:
		c = &ContinueInst{}
	case *OutlineInst:
		n := &OutlineInst{}
		n.merge = resolveBlock(src.merge, r)
		c = n
	case *UnreachableInst:
		c = &UnreachableInst{Message: src.Message}
	case *ReturnInst:
		c = &ReturnInst{}
	case *RasterDiscardInst:
		c = &RasterDiscardInst{}
	case *RayQueryLoopInst:
		n := &RayQueryLoopInst{}
		n.merge = resolveBlock(src.merge, r)
		c = n
	case *RayQueryDispatchInst:
		c = &RayQueryDispatchInst{}
	case *AutodiffScopeInst:
		n := &AutodiffScopeInst{}
		n.merge = resolveBlock(src.merge, r)
		c = n
	case *PhiInst:
		n := &PhiInst{blocks: make([]*BasicBlock, len(src.blocks))}
		for i, blk := range src.blocks {
			n.blocks[i] = resolveBlock(blk, r)
		}
		c = n
	case *AllocaInst:
		c = &AllocaInst{space: src.space}
	case *LoadInst:
		c = &LoadInst{}
	case *StoreInst:
		c = &StoreInst{}
	case *GEPInst:
		c = &GEPInst{}
	case *AtomicInst:
		c = &AtomicInst{op: src.op}
	case *ArithmeticInst:
		c = &ArithmeticInst{op: src.op}
	case *CastInst:
		c = &CastInst{op: src.op}
	case *CallInst:
		c = &CallInst{}
	case *ThreadGroupInst:
		c = &ThreadGroupInst{op: src.op}
	case *ResourceQueryInst:
		c = &ResourceQueryInst{op: src.op}
	case *ResourceReadInst:
		c = &ResourceReadInst{op: src.op}
	case *ResourceWriteInst:
		c = &ResourceWriteInst{op: src.op}
	case *RayQueryObjectReadInst:
		c = &RayQueryObjectReadInst{op: src.op}
	case *RayQueryObjectWriteInst:
		c = &RayQueryObjectWriteInst{op: src.op}
	case *RayQueryPipelineInst:
		c = &RayQueryPipelineInst{}
	case *PrintInst:
		c = &PrintInst{Format: src.Format}
	case *ClockInst:
		c = &ClockInst{}
	case *AssertInst:
		c = &AssertInst{Message: src.Message}
	case *AssumeInst:
		c = &AssumeInst{Message: src.Message}
	case *AutodiffIntrinsicInst:
		c = &AutodiffIntrinsicInst{op: src.op}
	default:
		Assertf(false, "cannot clone instruction %s", inst.Tag())
	}

	ops := inst.Operands()
	for i, op := range ops {
		if op != nil {
			ops[i] = r.Resolve(op)
		}
	}
	b.alloc(c, inst.Type()).setOperands(ops...)
	c.SetName(inst.Name())
	b.insert(c)
	return c
}

func resolveBlock(blk *BasicBlock, r ValueResolver) *BasicBlock {
	if blk == nil {
		return nil
	}
	v := r.Resolve(blk)
	if v == nil {
		return nil
	}
	resolved, ok := v.(*BasicBlock)
	Assertf(ok, "block must resolve to a block")
	return resolved
}
