package passes

import (
	mapset "github.com/deckarep/golang-set/v2"

	"github.com/gogpu/xir/ir"
)

// RayQueryLoweringInfo reports the ray query loops replaced by pipelines.
type RayQueryLoweringInfo struct {
	LoweredLoops map[*ir.RayQueryLoopInst]*ir.RayQueryPipelineInst
}

func newRayQueryLoweringInfo() *RayQueryLoweringInfo {
	return &RayQueryLoweringInfo{LoweredLoops: make(map[*ir.RayQueryLoopInst]*ir.RayQueryPipelineInst)}
}

// LowerRayQueryLoops runs LowerRayQueryLoopsFunction on every definition that
// exists when the pass starts. Outlined callables are not revisited.
func LowerRayQueryLoops(m *ir.Module) *RayQueryLoweringInfo {
	info := newRayQueryLoweringInfo()
	for _, f := range m.Definitions() {
		for loop, pipeline := range LowerRayQueryLoopsFunction(f).LoweredLoops {
			info.LoweredLoops[loop] = pipeline
		}
	}
	return info
}

// LowerRayQueryLoopsFunction replaces every ray query loop of f by a
// RayQueryPipelineInst. The on-surface and on-procedural candidate handlers
// are outlined into new callables taking the query object, the values the
// loop reads from outside, and one reference per value the loop defines for
// code after it. Loops are lowered innermost first, and the function is
// cleaned up with DCE afterwards.
func LowerRayQueryLoopsFunction(f *ir.Function) *RayQueryLoweringInfo {
	info := newRayQueryLoweringInfo()
	var loops []*ir.RayQueryLoopInst
	f.TraverseInstructions(func(inst ir.Instruction) {
		if loop, ok := inst.(*ir.RayQueryLoopInst); ok {
			loops = append(loops, loop)
		}
	})
	if len(loops) == 0 {
		return info
	}

	log := passLogger("lower_ray_query_loop", f)
	for i := len(loops) - 1; i >= 0; i-- {
		loop := loops[i]
		lowerDispatchBlockPhis(loop)
		HoistAllocas(f)
		pipeline := lowerRayQueryLoop(loop)
		info.LoweredLoops[loop] = pipeline
		log.WithField("loop", loop.ID()).Debugf("outlined loop into pipeline %%%d with %d captured values",
			pipeline.ID(), len(pipeline.CapturedArguments()))
	}
	DCEFunction(f)
	return info
}

// dispatchOf returns the dispatch terminator of the loop's dispatch block.
func dispatchOf(loop *ir.RayQueryLoopInst) *ir.RayQueryDispatchInst {
	blk := loop.DispatchBlock()
	ir.Assertf(blk != nil, "ray query loop has no dispatch block")
	dispatch, ok := blk.Terminator().(*ir.RayQueryDispatchInst)
	ir.Assertf(ok, "ray query dispatch block must end in a ray query dispatch")
	return dispatch
}

// blocksUntil returns the blocks reachable from start without passing
// through stop.
func blocksUntil(start, stop *ir.BasicBlock) mapset.Set[*ir.BasicBlock] {
	return mapset.NewThreadUnsafeSet(ir.PostOrder(start, func(b *ir.BasicBlock) bool { return b == stop })...)
}

// lowerDispatchBlockPhis turns the phis of the dispatch block into a local
// variable per phi. Each handler reloads the variable on entry and the exit
// block reloads it for the code after the loop.
func lowerDispatchBlockPhis(loop *ir.RayQueryLoopInst) {
	dispatchBlock := loop.DispatchBlock()
	dispatch := dispatchOf(loop)
	for inst := dispatchBlock.First(); inst != nil; inst = inst.Next() {
		_, isPhi := inst.(*ir.PhiInst)
		ir.Assertf(isPhi || inst == ir.Instruction(dispatch),
			"ray query dispatch block may only hold phis and the dispatch, found %s", inst.Tag())
	}
	phis := dispatchBlock.Phis()
	if len(phis) == 0 {
		return
	}

	type branch struct {
		entry  *ir.BasicBlock
		blocks mapset.Set[*ir.BasicBlock]
	}
	branches := []branch{
		{dispatch.OnSurfaceCandidateBlock(), blocksUntil(dispatch.OnSurfaceCandidateBlock(), dispatchBlock)},
		{dispatch.OnProceduralCandidateBlock(), blocksUntil(dispatch.OnProceduralCandidateBlock(), dispatchBlock)},
	}

	f := loop.Function()
	b := ir.NewBuilder()
	variables := make([]*ir.AllocaInst, len(phis))
	// all stores read the phis before any phi is replaced
	for i, phi := range phis {
		setInsertionPointAfterPhis(b, f.BodyBlock())
		variables[i] = b.AllocaLocal(phi.Type())
		variables[i].AddComment("alloca to lower phi node in ray query loop")
		for _, in := range phi.Incomings() {
			if in.Value == nil || ir.IsUndefined(in.Value) {
				continue
			}
			b.SetInsertionPointBefore(in.Block.Terminator())
			b.Store(variables[i], in.Value)
		}
	}

	for i, phi := range phis {
		for _, br := range branches {
			if br.entry == nil {
				continue
			}
			var uses []*ir.Use
			for _, u := range phi.Uses() {
				if br.blocks.Contains(u.User().Block()) {
					uses = append(uses, u)
				}
			}
			if len(uses) == 0 {
				continue
			}
			setInsertionPointAfterPhis(b, br.entry)
			load := b.Load(phi.Type(), variables[i])
			load.AddComment("load from phi alloca")
			for _, u := range uses {
				u.Set(load)
			}
		}
		if phi.HasUses() {
			exit := dispatch.ExitBlock()
			ir.Assertf(exit != nil, "ray query dispatch has no exit block")
			setInsertionPointAfterPhis(b, exit)
			load := b.Load(phi.Type(), variables[i])
			load.AddComment("load from phi alloca in ray query exit block")
			phi.ReplaceAllUsesWith(load)
		}
		phi.RemoveSelf()
	}
}

// captureList holds the values crossing the boundary of a loop subgraph.
type captureList struct {
	internal mapset.Set[ir.Instruction]
	// instructions of the subgraph used outside of it
	outValues []ir.Instruction
	// values defined outside of the subgraph and used inside, by first use
	inValues []ir.Value
}

func isPassedThrough(v ir.Value) bool {
	switch v.Kind() {
	case ir.ValueUndefined, ir.ValueFunction, ir.ValueBasicBlock, ir.ValueConstant, ir.ValueSpecialRegister:
		return true
	}
	return false
}

func collectCaptures(blocks []*ir.BasicBlock, query ir.Value) *captureList {
	c := &captureList{internal: mapset.NewThreadUnsafeSet[ir.Instruction]()}
	for _, blk := range blocks {
		for inst := blk.First(); inst != nil; inst = inst.Next() {
			c.internal.Add(inst)
		}
	}
	seen := mapset.NewThreadUnsafeSet[ir.Value]()
	for _, blk := range blocks {
		for inst := blk.First(); inst != nil; inst = inst.Next() {
			for _, u := range inst.Uses() {
				if !c.internal.Contains(u.User()) {
					c.outValues = append(c.outValues, inst)
					break
				}
			}
			for _, op := range inst.Operands() {
				if op == nil || op == query || isPassedThrough(op) {
					continue
				}
				if opInst, ok := op.(ir.Instruction); ok && c.internal.Contains(opInst) {
					continue
				}
				if seen.Add(op) {
					c.inValues = append(c.inValues, op)
				}
			}
		}
	}
	return c
}

// lowerRayQueryLoop outlines the handlers of loop and replaces the loop by a
// pipeline followed by the contents of the merge block.
func lowerRayQueryLoop(loop *ir.RayQueryLoopInst) *ir.RayQueryPipelineInst {
	f := loop.Function()
	m := f.Module()
	dispatchBlock := loop.DispatchBlock()
	dispatch := dispatchOf(loop)
	merge := loop.MergeBlock()
	ir.Assertf(merge != nil, "ray query loop has no merge block")
	ir.Assertf(dispatch.ExitBlock() == merge, "ray query exit block should be the loop merge block")
	ir.Assertf(dispatchBlock.First() == ir.Instruction(dispatch), "ray query dispatch block must only hold the dispatch")

	subgraph := ir.ReversePostOrder(dispatchBlock, func(b *ir.BasicBlock) bool { return b == merge })
	ir.Assertf(len(subgraph) > 0 && subgraph[0] == dispatchBlock, "ray query subgraph must start at the dispatch block")
	query := dispatch.QueryObject()
	captures := collectCaptures(subgraph, query)

	o := &outliner{
		module:        m,
		query:         query,
		dispatchBlock: dispatchBlock,
		captures:      captures,
	}
	onSurface := o.outline(dispatch.OnSurfaceCandidateBlock(), "on_surface function outlined from ray query loop")
	onProcedural := o.outline(dispatch.OnProceduralCandidateBlock(), "on_procedural function outlined from ray query loop")

	b := ir.NewBuilder()
	captured := append([]ir.Value(nil), captures.inValues...)
	outVariables := make([]*ir.AllocaInst, len(captures.outValues))
	setInsertionPointAfterPhis(b, f.BodyBlock())
	for i, out := range captures.outValues {
		outVariables[i] = b.AllocaLocal(out.Type())
		outVariables[i].AddComment("alloca for ray query output value")
		captured = append(captured, outVariables[i])
	}

	b.SetInsertionPointBefore(loop)
	pipeline := b.RayQueryPipeline(query, onSurface, onProcedural, captured)
	for i, out := range captures.outValues {
		load := b.Load(out.Type(), outVariables[i])
		load.AddComment("load from ray query output alloca")
		for _, u := range out.Uses() {
			if !captures.internal.Contains(u.User()) {
				u.Set(load)
			}
		}
	}

	loopBlock := loop.Block()
	loop.RemoveSelf()
	for _, phi := range merge.Phis() {
		ir.Assertf(phi.IncomingCount() == 1, "ray query merge block phi must have a single incoming")
		phi.ReplaceAllUsesWith(phi.Incoming(0).Value)
		phi.RemoveSelf()
	}
	for _, inst := range merge.Instructions() {
		b.Append(inst)
	}
	for _, succ := range loopBlock.Successors() {
		for _, phi := range succ.Phis() {
			for i := 0; i < phi.IncomingCount(); i++ {
				if in := phi.Incoming(i); in.Block == merge {
					phi.SetIncoming(i, in.Value, loopBlock)
				}
			}
		}
	}
	return pipeline
}

// outliner copies one handler subgraph of a ray query loop into a callable.
type outliner struct {
	module        *ir.Module
	query         ir.Value
	dispatchBlock *ir.BasicBlock
	captures      *captureList
}

func (o *outliner) outline(entry *ir.BasicBlock, comment string) *ir.Function {
	if entry == nil {
		return nil
	}
	fn := o.module.CreateCallable(nil)
	fn.AddComment(comment)

	resolved := make(map[ir.Value]ir.Value)
	resolved[o.query] = fn.CreateReferenceArgument(o.query.Type())
	for _, in := range o.captures.inValues {
		resolved[in] = fn.CreateArgument(in.Type(), in.IsLValue())
	}
	outArgs := make([]*ir.Argument, len(o.captures.outValues))
	for i, out := range o.captures.outValues {
		outArgs[i] = fn.CreateReferenceArgument(out.Type())
	}

	blocks := ir.ReversePostOrder(entry, func(b *ir.BasicBlock) bool { return b == o.dispatchBlock })
	for _, blk := range blocks {
		resolved[blk] = fn.CreateBasicBlock()
	}
	fn.SetBodyBlock(resolved[entry].(*ir.BasicBlock))

	resolver := ir.ValueResolverFunc(func(v ir.Value) ir.Value {
		if v == ir.Value(o.dispatchBlock) {
			return nil
		}
		if isPassedThrough(v) && v.Kind() != ir.ValueBasicBlock {
			return v
		}
		r, ok := resolved[v]
		ir.Assertf(ok, "cannot resolve %s %%%d in outlined ray query handler", v.Kind(), v.ID())
		return r
	})

	type phiPair struct{ old, new *ir.PhiInst }
	var phis []phiPair
	b := ir.NewBuilder()
	for _, blk := range blocks {
		b.SetInsertionPointToEnd(resolved[blk].(*ir.BasicBlock))
		for inst := blk.First(); inst != nil; inst = inst.Next() {
			switch inst := inst.(type) {
			case *ir.BranchInst:
				if inst.TargetBlock() != o.dispatchBlock {
					resolved[inst] = b.Clone(inst, resolver)
					continue
				}
				for i, out := range o.captures.outValues {
					if v, ok := resolved[out]; ok {
						b.Store(outArgs[i], v)
					}
				}
				b.ReturnVoid()
			case *ir.PhiInst:
				phi := b.Phi(inst.Type())
				resolved[inst] = phi
				phis = append(phis, phiPair{old: inst, new: phi})
			default:
				resolved[inst] = b.Clone(inst, resolver)
			}
		}
	}
	for _, p := range phis {
		for _, in := range p.old.Incomings() {
			blk, ok := resolver.Resolve(in.Block).(*ir.BasicBlock)
			ir.Assertf(ok, "phi incoming block must lie inside the outlined handler")
			p.new.AddIncoming(resolver.Resolve(in.Value), blk)
		}
	}
	return fn
}
