package passes_test

import (
	"testing"

	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"

	"github.com/gogpu/xir/internal/samples"
	"github.com/gogpu/xir/ir"
	"github.com/gogpu/xir/passes"
)

func TestReg2Mem_LoopSum(t *testing.T) {
	m := samples.LoopSum()
	main := samples.Entry(m)
	passes.Mem2Reg(m)
	assert.Equal(t, countTag(main, ir.TagPhi), 2)

	info := passes.Reg2Mem(m)
	assertValid(t, m)

	assert.Equal(t, len(info.LoweredPhis), 2)
	assert.Check(t, is.Len(info.RemovedPhis, 0))
	assert.Equal(t, countTag(main, ir.TagPhi), 0)
	for _, load := range info.LoweredPhis {
		assert.DeepEqual(t, load.Comments(), []string{"load from phi alloca"})
		variable := load.Variable().(*ir.AllocaInst)
		assert.DeepEqual(t, variable.Comments(), []string{"alloca to lower phi node"})
		assert.Equal(t, variable.Block(), main.BodyBlock())
	}
	for _, n := range []int64{0, 3, 7} {
		assert.Equal(t, mustRun(t, main, n).Value, n*(n-1)/2, "n=%d", n)
	}

	// promoting again restores the loop phis
	passes.Mem2Reg(m)
	assertValid(t, m)
	assert.Equal(t, countTag(main, ir.TagPhi), 2)
	assert.Equal(t, countTag(main, ir.TagAlloca), 0)
	assert.Equal(t, mustRun(t, main, int64(7)).Value, int64(21))
}

func TestReg2Mem_NoPhis(t *testing.T) {
	m := samples.IfElse()
	info := passes.Reg2Mem(m)
	assert.Equal(t, len(info.LoweredPhis), 0)
	assert.Check(t, is.Len(info.RemovedPhis, 0))
}

// diamond holds f(c: bool, a: i32) -> i32 branching on c into a merge
// block, with the builder positioned in the unterminated merge block.
type diamond struct {
	m     *ir.Module
	f     *ir.Function
	b     *ir.Builder
	cond  *ir.Argument
	arg   *ir.Argument
	entry *ir.BasicBlock
	left  *ir.BasicBlock
	right *ir.BasicBlock
	merge *ir.BasicBlock

	leftValue  ir.Value
	entryValue ir.Value
}

func newDiamond(t *testing.T) *diamond {
	d := &diamond{m: ir.NewModule(t.Name()), b: ir.NewBuilder()}
	i32 := d.m.Types().Int32()
	d.f = d.m.CreateCallable(i32)
	d.cond = d.f.CreateValueArgument(d.m.Types().Bool())
	d.arg = d.f.CreateValueArgument(i32)
	d.entry = d.f.CreateBodyBlock()
	d.b.SetInsertionPointToEnd(d.entry)
	d.entryValue = d.b.Arithmetic(i32, ir.OpMul, d.arg, d.m.ConstantInt32(3))
	br := d.b.If(d.cond)
	d.left, d.right, d.merge = br.CreateTrueBlock(), br.CreateFalseBlock(), br.CreateMergeBlock()
	d.b.SetInsertionPointToEnd(d.left)
	d.leftValue = d.b.Arithmetic(i32, ir.OpAdd, d.arg, d.m.ConstantInt32(1))
	d.b.Br(d.merge)
	d.b.SetInsertionPointToEnd(d.right)
	d.b.Br(d.merge)
	d.b.SetInsertionPointToEnd(d.merge)
	return d
}

func (d *diamond) phi(left, right ir.Value) *ir.PhiInst {
	return d.b.Phi(d.m.Types().Int32(),
		ir.PhiIncoming{Value: left, Block: d.left},
		ir.PhiIncoming{Value: right, Block: d.right})
}

func TestRemoveRedundantPhi(t *testing.T) {
	tests := []struct {
		name    string
		values  func(d *diamond) (left, right ir.Value)
		removed bool
		// replacement returns the value expected to replace the phi
		replacement func(d *diamond) ir.Value
	}{
		{
			name:        "same value",
			values:      func(d *diamond) (ir.Value, ir.Value) { return d.entryValue, d.entryValue },
			removed:     true,
			replacement: func(d *diamond) ir.Value { return d.entryValue },
		},
		{
			name: "undefined and argument",
			values: func(d *diamond) (ir.Value, ir.Value) {
				return d.m.Undefined(d.m.Types().Int32()), d.arg
			},
			removed:     true,
			replacement: func(d *diamond) ir.Value { return d.arg },
		},
		{
			name: "undefined and instruction",
			values: func(d *diamond) (ir.Value, ir.Value) {
				return d.leftValue, d.m.Undefined(d.m.Types().Int32())
			},
		},
		{
			name:   "different values",
			values: func(d *diamond) (ir.Value, ir.Value) { return d.leftValue, d.arg },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newDiamond(t)
			phi := d.phi(tt.values(d))
			ret := d.b.Return(phi)

			assert.Equal(t, passes.RemoveRedundantPhi(phi), tt.removed)
			if !tt.removed {
				assert.Equal(t, ret.ReturnValue(), ir.Value(phi))
				assert.Check(t, phi.Block() != nil)
				return
			}
			assert.Check(t, phi.Block() == nil)
			assert.Equal(t, ret.ReturnValue(), tt.replacement(d))
			assertValid(t, d.m)
		})
	}
}

func TestRemoveRedundantPhi_Unused(t *testing.T) {
	d := newDiamond(t)
	phi := d.phi(d.leftValue, d.arg)
	d.b.Return(d.arg)

	assert.Check(t, passes.RemoveRedundantPhi(phi))
	assert.Check(t, is.Len(d.merge.Phis(), 0))
	assert.Check(t, !passes.RemoveRedundantPhi(phi))
}

func TestHoistAllocas(t *testing.T) {
	d := newDiamond(t)
	i32 := d.m.Types().Int32()
	d.b.SetInsertionPointToHead(d.left)
	scratch := d.b.AllocaLocal(i32)
	d.b.SetInsertionPointToHead(d.merge)
	result := d.b.AllocaLocal(i32)
	d.b.SetInsertionPointToEnd(d.merge)
	d.b.Store(result, d.arg)
	d.b.Return(d.b.Load(i32, result))

	assert.Equal(t, passes.HoistAllocas(d.f), 2)
	assertValid(t, d.m)

	assert.Equal(t, scratch.Block(), d.entry)
	assert.Equal(t, result.Block(), d.entry)
	allocas := instructionsWithTag(d.f, ir.TagAlloca)
	assert.DeepEqual(t, ids(allocas), []uint32{scratch.ID(), result.ID()})
	assert.Equal(t, d.entry.First(), ir.Instruction(scratch))
	assert.Equal(t, mustRun(t, d.f, true, int64(5)).Value, int64(5))
}

func TestRemoveUnusedCallables_CallGraph(t *testing.T) {
	m := samples.CallGraph()
	byName := map[string]*ir.Function{}
	for _, f := range m.Functions() {
		byName[f.Name()] = f
	}

	info := passes.RemoveUnusedCallables(m)
	assertValid(t, m)

	assert.DeepEqual(t, ids(info.RemovedCallables), []uint32{byName["orphan"].ID()})
	assert.Check(t, byName["orphan"].IsRemoved())
	assert.Equal(t, len(m.Functions()), 3)
	for _, name := range []string{"leaf", "helper", "main"} {
		assert.Check(t, !byName[name].IsRemoved(), name)
	}
	assert.DeepEqual(t, mustRun(t, byName["main"], int64(20)).Output, []string{"result 41"})
}

func TestRemoveUnusedCallables_KeepsPipelineHandlers(t *testing.T) {
	m := samples.RayQuery()
	passes.LowerRayQueryLoops(m)
	assert.Equal(t, len(m.Functions()), 3)

	info := passes.RemoveUnusedCallables(m)
	assert.Check(t, is.Len(info.RemovedCallables, 0))
	assert.Equal(t, len(m.Functions()), 3)
}

// Without a kernel there is nothing to measure reachability from.
func TestRemoveUnusedCallables_NoKernel(t *testing.T) {
	for _, name := range []string{"loop_sum", "if_else"} {
		t.Run(name, func(t *testing.T) {
			s, ok := samples.Lookup(name)
			assert.Assert(t, ok)
			m := s.Build()
			entry := samples.Entry(m)
			assert.Equal(t, entry.FunctionKind(), ir.FunctionCallable)

			info := passes.RemoveUnusedCallables(m)
			assert.Check(t, is.Len(info.RemovedCallables, 0))
			assert.Check(t, !entry.IsRemoved())
			assert.Equal(t, samples.Entry(m), entry)
		})
	}
}
