package ir

// Builder creates instructions at an insertion point.
//
// The insertion point is a position inside a block: new instructions are
// linked right after it, and the point then advances past them, so a
// sequence of builder calls produces instructions in program order.
type Builder struct {
	block *BasicBlock
	after Instruction // nil means the head of block
}

// NewBuilder returns a builder without an insertion point.
func NewBuilder() *Builder {
	return &Builder{}
}

// SetInsertionPoint places new instructions right after inst.
func (b *Builder) SetInsertionPoint(inst Instruction) {
	Assertf(inst != nil && inst.Block() != nil, "insertion point must be a linked instruction")
	b.block = inst.Block()
	b.after = inst
}

// SetInsertionPointBefore places new instructions right before inst.
func (b *Builder) SetInsertionPointBefore(inst Instruction) {
	Assertf(inst != nil && inst.Block() != nil, "insertion point must be a linked instruction")
	b.block = inst.Block()
	b.after = inst.Prev()
}

// SetInsertionPointToHead places new instructions at the head of block.
func (b *Builder) SetInsertionPointToHead(block *BasicBlock) {
	b.block = block
	b.after = nil
}

// SetInsertionPointToEnd places new instructions at the end of block.
func (b *Builder) SetInsertionPointToEnd(block *BasicBlock) {
	b.block = block
	b.after = block.Last()
}

// Block returns the block of the insertion point.
func (b *Builder) Block() *BasicBlock {
	return b.block
}

// Module returns the module of the insertion point.
func (b *Builder) Module() *Module {
	Assertf(b.block != nil, "builder has no insertion point")
	return b.block.module
}

// Append moves an existing instruction to the insertion point.
func (b *Builder) Append(inst Instruction) {
	Assertf(b.block != nil, "builder has no insertion point")
	inst.unlinkIfLinked()
	b.insert(inst)
}

func (b *Builder) alloc(inst Instruction, t *Type) *instBase {
	Assertf(b.block != nil, "builder has no insertion point")
	ib := inst.inst()
	ib.self = inst
	b.block.module.initValue(inst, t)
	return ib
}

func (b *Builder) insert(inst Instruction) {
	b.block.insertAfter(inst, b.after)
	b.after = inst
}

// If creates a structured two-way branch.
func (b *Builder) If(cond Value) *IfInst {
	inst := &IfInst{}
	b.alloc(inst, nil).setOperandCount(3)
	inst.SetCondition(cond)
	b.insert(inst)
	return inst
}

// CondBr creates an unstructured two-way branch.
func (b *Builder) CondBr(cond Value, trueBlock, falseBlock *BasicBlock) *ConditionalBranchInst {
	inst := &ConditionalBranchInst{}
	b.alloc(inst, nil).setOperandCount(3)
	inst.SetCondition(cond)
	inst.SetTrueBlock(trueBlock)
	inst.SetFalseBlock(falseBlock)
	b.insert(inst)
	return inst
}

// Switch creates a structured multi-way branch on selector.
func (b *Builder) Switch(selector Value) *SwitchInst {
	inst := &SwitchInst{}
	b.alloc(inst, nil).setOperandCount(2)
	inst.SetSelector(selector)
	b.insert(inst)
	return inst
}

// Loop creates a structured loop.
func (b *Builder) Loop() *LoopInst {
	inst := &LoopInst{}
	b.alloc(inst, nil).setOperandCount(1)
	b.insert(inst)
	return inst
}

// SimpleLoop creates a structured loop with a single body.
func (b *Builder) SimpleLoop() *SimpleLoopInst {
	inst := &SimpleLoopInst{}
	b.alloc(inst, nil).setOperandCount(1)
	b.insert(inst)
	return inst
}

// Br creates an unconditional branch.
func (b *Builder) Br(target *BasicBlock) *BranchInst {
	inst := &BranchInst{}
	b.alloc(inst, nil).setOperands(valueOrNil(target))
	b.insert(inst)
	return inst
}

// Break creates a break to target.
func (b *Builder) Break(target *BasicBlock) *BreakInst {
	inst := &BreakInst{}
	b.alloc(inst, nil).setOperands(valueOrNil(target))
	b.insert(inst)
	return inst
}

// Continue creates a continue to target.
func (b *Builder) Continue(target *BasicBlock) *ContinueInst {
	inst := &ContinueInst{}
	b.alloc(inst, nil).setOperands(valueOrNil(target))
	b.insert(inst)
	return inst
}

// Outline creates an outline region marker.
func (b *Builder) Outline() *OutlineInst {
	inst := &OutlineInst{}
	b.alloc(inst, nil).setOperandCount(1)
	b.insert(inst)
	return inst
}

// Unreachable creates an unreachable terminator.
func (b *Builder) Unreachable(message string) *UnreachableInst {
	inst := &UnreachableInst{Message: message}
	b.alloc(inst, nil)
	b.insert(inst)
	return inst
}

// Return creates a return of v.
func (b *Builder) Return(v Value) *ReturnInst {
	Assertf(v != nil, "use ReturnVoid for void returns")
	f := b.block.Function()
	Assertf(v.Type() == f.Type(), "return value of type %s does not match function type %s", v.Type(), f.Type())
	inst := &ReturnInst{}
	b.alloc(inst, nil).setOperands(v)
	b.insert(inst)
	return inst
}

// ReturnVoid creates a return without value.
func (b *Builder) ReturnVoid() *ReturnInst {
	inst := &ReturnInst{}
	b.alloc(inst, nil)
	b.insert(inst)
	return inst
}

// RasterDiscard creates a fragment discard.
func (b *Builder) RasterDiscard() *RasterDiscardInst {
	inst := &RasterDiscardInst{}
	b.alloc(inst, nil)
	b.insert(inst)
	return inst
}

// RayQueryLoop creates a ray query loop.
func (b *Builder) RayQueryLoop() *RayQueryLoopInst {
	inst := &RayQueryLoopInst{}
	b.alloc(inst, nil).setOperandCount(1)
	b.insert(inst)
	return inst
}

// RayQueryDispatch creates the dispatch terminator of a ray query loop.
func (b *Builder) RayQueryDispatch(query Value, exit *BasicBlock) *RayQueryDispatchInst {
	Assertf(query != nil && query.IsLValue() && query.Type().IsRayQuery(), "ray query dispatch requires a ray query variable")
	inst := &RayQueryDispatchInst{}
	b.alloc(inst, nil).setOperands(query, valueOrNil(exit), nil, nil)
	b.insert(inst)
	return inst
}

// AutodiffScope creates an autodiff region.
func (b *Builder) AutodiffScope() *AutodiffScopeInst {
	inst := &AutodiffScopeInst{}
	b.alloc(inst, nil).setOperandCount(1)
	b.insert(inst)
	return inst
}

// Phi creates a phi of type t with the given incomings.
func (b *Builder) Phi(t *Type, incomings ...PhiIncoming) *PhiInst {
	Assertf(t != nil, "phi type must not be void")
	inst := &PhiInst{}
	b.alloc(inst, t)
	for _, in := range incomings {
		inst.AddIncoming(in.Value, in.Block)
	}
	b.insert(inst)
	return inst
}

// Alloca creates a variable of type t in the given space.
func (b *Builder) Alloca(t *Type, space AllocSpace) *AllocaInst {
	Assertf(t != nil, "alloca type must not be void")
	inst := &AllocaInst{space: space}
	b.alloc(inst, t)
	b.insert(inst)
	return inst
}

// AllocaLocal creates a function-local variable.
func (b *Builder) AllocaLocal(t *Type) *AllocaInst {
	return b.Alloca(t, SpaceLocal)
}

// AllocaShared creates a block-shared variable.
func (b *Builder) AllocaShared(t *Type) *AllocaInst {
	return b.Alloca(t, SpaceShared)
}

// Load reads variable, whose type must be t.
func (b *Builder) Load(t *Type, variable Value) *LoadInst {
	Assertf(variable != nil && variable.IsLValue(), "load requires an lvalue")
	Assertf(variable.Type() == t, "load type %s does not match variable type %s", t, variable.Type())
	inst := &LoadInst{}
	b.alloc(inst, t).setOperands(variable)
	b.insert(inst)
	return inst
}

// Store writes value into variable.
func (b *Builder) Store(variable, value Value) *StoreInst {
	Assertf(variable != nil && variable.IsLValue(), "store requires an lvalue")
	Assertf(value != nil && value.Type() == variable.Type(), "store value type %s does not match variable type %s", typeOf(value), variable.Type())
	inst := &StoreInst{}
	b.alloc(inst, nil).setOperands(variable, value)
	b.insert(inst)
	return inst
}

// GEP creates a reference of type t to an element of base.
func (b *Builder) GEP(t *Type, base Value, indices ...Value) *GEPInst {
	Assertf(base != nil && base.IsLValue(), "gep base must be an lvalue")
	checkElementType(t, base.Type(), indices)
	inst := &GEPInst{}
	b.alloc(inst, t).setOperands(append([]Value{base}, indices...)...)
	b.insert(inst)
	return inst
}

// Atomic creates an atomic operation on base.
func (b *Builder) Atomic(t *Type, op AtomicOp, base Value, indices, values []Value) *AtomicInst {
	Assertf(base != nil, "atomic base must not be nil")
	Assertf(len(values) == op.ValueCount(), "atomic %s takes %d values, got %d", op, op.ValueCount(), len(values))
	inst := &AtomicInst{op: op}
	ops := make([]Value, 0, 1+len(indices)+len(values))
	ops = append(ops, base)
	ops = append(ops, indices...)
	ops = append(ops, values...)
	b.alloc(inst, t).setOperands(ops...)
	b.insert(inst)
	return inst
}

// Arithmetic creates an arithmetic operation producing type t.
func (b *Builder) Arithmetic(t *Type, op ArithmeticOp, operands ...Value) *ArithmeticInst {
	switch op {
	case OpExtract:
		Assertf(len(operands) >= 1, "extract requires an aggregate")
		checkElementType(t, operands[0].Type(), operands[1:])
	case OpInsert:
		Assertf(len(operands) >= 2, "insert requires an aggregate and an element")
		Assertf(operands[0].Type() == t, "insert result type %s does not match aggregate type %s", t, operands[0].Type())
		checkElementType(operands[1].Type(), t, operands[2:])
	case OpSelect:
		Assertf(len(operands) == 3 && operands[0].Type().IsBool(), "select requires (bool, value, value)")
	}
	inst := &ArithmeticInst{op: op}
	b.alloc(inst, t).setOperands(operands...)
	b.insert(inst)
	return inst
}

// Extract reads an element of an aggregate value.
func (b *Builder) Extract(t *Type, aggregate Value, indices ...Value) *ArithmeticInst {
	return b.Arithmetic(t, OpExtract, append([]Value{aggregate}, indices...)...)
}

// Insert returns aggregate with the element at indices replaced.
func (b *Builder) Insert(aggregate, element Value, indices ...Value) *ArithmeticInst {
	return b.Arithmetic(aggregate.Type(), OpInsert, append([]Value{aggregate, element}, indices...)...)
}

// Cast converts v to type t.
func (b *Builder) Cast(t *Type, op CastOp, v Value) *CastInst {
	Assertf(v != nil, "cast operand must not be nil")
	if op == CastBitwise {
		Assertf(t.Size() == v.Type().Size(), "bitcast between %s and %s changes size", v.Type(), t)
	}
	inst := &CastInst{op: op}
	b.alloc(inst, t).setOperands(v)
	b.insert(inst)
	return inst
}

// StaticCast converts v to type t by value.
func (b *Builder) StaticCast(t *Type, v Value) *CastInst {
	return b.Cast(t, CastStatic, v)
}

// BitCast reinterprets the bits of v as type t.
func (b *Builder) BitCast(t *Type, v Value) *CastInst {
	return b.Cast(t, CastBitwise, v)
}

// Call calls callee with args.
func (b *Builder) Call(t *Type, callee *Function, args ...Value) *CallInst {
	Assertf(callee != nil, "callee must not be nil")
	Assertf(callee.Type() == t, "call type %s does not match callee type %s", t, callee.Type())
	params := callee.Arguments()
	Assertf(len(params) == len(args), "callee takes %d arguments, got %d", len(params), len(args))
	for i, a := range args {
		Assertf(a != nil && a.Type() == params[i].Type(), "argument %d type mismatch", i)
		if params[i].IsLValue() {
			Assertf(a.IsLValue(), "argument %d must be passed by reference", i)
		}
	}
	inst := &CallInst{}
	b.alloc(inst, t).setOperands(append([]Value{callee}, args...)...)
	b.insert(inst)
	return inst
}

// ThreadGroup creates a block or warp level operation.
func (b *Builder) ThreadGroup(t *Type, op ThreadGroupOp, operands ...Value) *ThreadGroupInst {
	inst := &ThreadGroupInst{op: op}
	b.alloc(inst, t).setOperands(operands...)
	b.insert(inst)
	return inst
}

// ResourceQuery creates a resource query.
func (b *Builder) ResourceQuery(t *Type, op ResourceQueryOp, operands ...Value) *ResourceQueryInst {
	inst := &ResourceQueryInst{op: op}
	b.alloc(inst, t).setOperands(operands...)
	b.insert(inst)
	return inst
}

// ResourceRead creates a resource read.
func (b *Builder) ResourceRead(t *Type, op ResourceReadOp, operands ...Value) *ResourceReadInst {
	inst := &ResourceReadInst{op: op}
	b.alloc(inst, t).setOperands(operands...)
	b.insert(inst)
	return inst
}

// ResourceWrite creates a resource write.
func (b *Builder) ResourceWrite(op ResourceWriteOp, operands ...Value) *ResourceWriteInst {
	inst := &ResourceWriteInst{op: op}
	b.alloc(inst, nil).setOperands(operands...)
	b.insert(inst)
	return inst
}

// RayQueryObjectRead reads state of a ray query object.
func (b *Builder) RayQueryObjectRead(t *Type, op RayQueryObjectReadOp, query Value, operands ...Value) *RayQueryObjectReadInst {
	inst := &RayQueryObjectReadInst{op: op}
	b.alloc(inst, t).setOperands(append([]Value{query}, operands...)...)
	b.insert(inst)
	return inst
}

// RayQueryObjectWrite updates a ray query object.
func (b *Builder) RayQueryObjectWrite(op RayQueryObjectWriteOp, query Value, operands ...Value) *RayQueryObjectWriteInst {
	inst := &RayQueryObjectWriteInst{op: op}
	b.alloc(inst, nil).setOperands(append([]Value{query}, operands...)...)
	b.insert(inst)
	return inst
}

// RayQueryPipeline creates a ray query pipeline running the outlined
// handlers with the captured arguments.
func (b *Builder) RayQueryPipeline(query Value, onSurface, onProcedural *Function, captured []Value) *RayQueryPipelineInst {
	Assertf(query != nil && query.IsLValue(), "ray query pipeline requires a query variable")
	inst := &RayQueryPipelineInst{}
	ops := make([]Value, 0, 3+len(captured))
	ops = append(ops, query, functionOrNil(onSurface), functionOrNil(onProcedural))
	ops = append(ops, captured...)
	b.alloc(inst, nil).setOperands(ops...)
	b.insert(inst)
	return inst
}

// Print creates a formatted print.
func (b *Builder) Print(format string, values ...Value) *PrintInst {
	inst := &PrintInst{Format: format}
	b.alloc(inst, nil).setOperands(values...)
	b.insert(inst)
	return inst
}

// Clock reads the device clock.
func (b *Builder) Clock() *ClockInst {
	inst := &ClockInst{}
	b.alloc(inst, b.Module().Types().Uint64())
	b.insert(inst)
	return inst
}

// Assert creates an assertion on cond.
func (b *Builder) Assert(cond Value, message string) *AssertInst {
	Assertf(cond != nil && cond.Type().IsBool(), "assert condition must be a bool")
	inst := &AssertInst{Message: message}
	b.alloc(inst, nil).setOperands(cond)
	b.insert(inst)
	return inst
}

// Assume creates an assumption on cond.
func (b *Builder) Assume(cond Value, message string) *AssumeInst {
	Assertf(cond != nil && cond.Type().IsBool(), "assume condition must be a bool")
	inst := &AssumeInst{Message: message}
	b.alloc(inst, nil).setOperands(cond)
	b.insert(inst)
	return inst
}

// AutodiffIntrinsic creates an autodiff intrinsic.
func (b *Builder) AutodiffIntrinsic(t *Type, op AutodiffIntrinsicOp, operands ...Value) *AutodiffIntrinsicInst {
	inst := &AutodiffIntrinsicInst{op: op}
	b.alloc(inst, t).setOperands(operands...)
	b.insert(inst)
	return inst
}

func functionOrNil(f *Function) Value {
	if f == nil {
		return nil
	}
	return f
}

// ElementType returns the type reached by applying indices to t, or nil when
// the path is invalid. Struct members must be indexed by integer constants;
// other aggregates accept any integer index.
func ElementType(t *Type, indices []Value) *Type {
	for _, idx := range indices {
		if t == nil || idx == nil || !idx.Type().IsInteger() {
			return nil
		}
		if _, ok := t.Inner.(StructType); ok {
			c, ok := idx.(*Constant)
			if !ok {
				return nil
			}
			t = t.Element(int(c.Int()))
			continue
		}
		if c, ok := idx.(*Constant); ok {
			t = t.Element(int(c.Int()))
			continue
		}
		t = t.Element(0)
	}
	return t
}

func checkElementType(want, aggregate *Type, indices []Value) {
	got := ElementType(aggregate, indices)
	Assertf(got == want, "element of %s at %d indices has type %s, want %s", aggregate, len(indices), got, want)
}
