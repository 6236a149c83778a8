package ir

import (
	"strings"
	"testing"
)

// expectInvariant runs fn and checks that it panics with an *InvariantError
// whose message contains want.
func expectInvariant(t *testing.T, want string, fn func()) {
	t.Helper()
	defer func() {
		t.Helper()
		r := recover()
		err, ok := r.(*InvariantError)
		if !ok {
			t.Fatalf("Expected *InvariantError panic, got %v", r)
		}
		if !strings.Contains(err.Message, want) {
			t.Errorf("Expected message containing %q, got %q", want, err.Message)
		}
	}()
	fn()
}

func TestModule_ConstantInterning(t *testing.T) {
	m := NewModule("constants")

	a := m.ConstantInt32(7)
	b := m.ConstantInt32(7)
	if a != b {
		t.Error("Expected equal constants to be the same object")
	}
	if m.ConstantUint32(7) == Value(a) {
		t.Error("Expected constants of different types to differ")
	}
	if m.ConstantInt32(8) == a {
		t.Error("Expected constants with different bytes to differ")
	}
	if a.Int() != 7 {
		t.Errorf("Expected 7, got %d", a.Int())
	}
	if m.ConstantInt32(-2).Int() != -2 {
		t.Errorf("Expected sign extension, got %d", m.ConstantInt32(-2).Int())
	}
	if m.ConstantCount() != 3+1 {
		t.Errorf("Expected 4 constants, got %d", m.ConstantCount())
	}
}

func TestModule_AggregateConstant(t *testing.T) {
	m := NewModule("aggregate")
	pair := m.Types().Struct(m.Types().Float32(), m.Types().Float32())

	zero := m.ConstantZero(pair)
	if len(zero.Data()) != 8 {
		t.Errorf("Expected 8 bytes, got %d", len(zero.Data()))
	}
	if m.Constant(pair, make([]byte, 8)) != zero {
		t.Error("Expected zero aggregate to be interned")
	}
	expectInvariant(t, "needs 8 bytes", func() {
		m.Constant(pair, make([]byte, 4))
	})
}

func TestModule_UndefinedAndRegisters(t *testing.T) {
	m := NewModule("singletons")
	i32 := m.Types().Int32()

	if m.Undefined(i32) != m.Undefined(i32) {
		t.Error("Expected undefined values to be interned per type")
	}
	if !IsUndefined(m.Undefined(i32)) {
		t.Error("Expected IsUndefined to hold")
	}
	tid := m.SpecialRegister(RegisterThreadID)
	if tid != m.SpecialRegister(RegisterThreadID) {
		t.Error("Expected special registers to be interned")
	}
	if tid.Type().String() != "vec3<u32>" {
		t.Errorf("Expected vec3<u32>, got %s", tid.Type())
	}
	if m.SpecialRegister(RegisterWarpSize).Type() != m.Types().Uint32() {
		t.Error("Expected warp size to be u32")
	}
}

func TestPool_IDsAreDense(t *testing.T) {
	m := NewModule("pool")
	f := m.CreateKernel()
	body := f.CreateBodyBlock()
	c := m.ConstantInt32(1)

	if f.ID() != 0 || body.ID() != 1 || c.ID() != 2 {
		t.Errorf("Expected ids 0, 1, 2, got %d, %d, %d", f.ID(), body.ID(), c.ID())
	}
	if m.Pool().Len() != 3 {
		t.Errorf("Expected 3 pooled values, got %d", m.Pool().Len())
	}
	if m.Pool().Value(1) != Value(body) {
		t.Error("Expected pool lookup to return the block")
	}
}

func TestFunction_Label(t *testing.T) {
	m := NewModule("labels")
	f := m.CreateKernel()
	g := m.CreateCallable(m.Types().Int32())
	g.SetName("helper")

	if got := f.Label(); got != "@0" {
		t.Errorf("Expected unnamed function label @0, got %s", got)
	}
	if got := g.Label(); got != "@helper" {
		t.Errorf("Expected named function label @helper, got %s", got)
	}
}

func TestUse_DetachedInstructionsAreNotUsers(t *testing.T) {
	m := NewModule("uses")
	i32 := m.Types().Int32()
	f := m.CreateKernel()
	body := f.CreateBodyBlock()
	b := NewBuilder()
	b.SetInsertionPointToEnd(body)

	v := b.AllocaLocal(i32)
	st := b.Store(v, m.ConstantInt32(1))
	ld := b.Load(i32, v)
	b.ReturnVoid()

	if v.UseCount() != 2 {
		t.Fatalf("Expected 2 uses, got %d", v.UseCount())
	}
	st.RemoveSelf()
	if v.UseCount() != 1 || v.Uses()[0].User() != ld {
		t.Errorf("Expected only the load to use the variable, got %d uses", v.UseCount())
	}
	if st.Block() != nil {
		t.Error("Expected removed store to be detached")
	}
	st.InsertBefore(ld)
	if v.UseCount() != 2 {
		t.Errorf("Expected reinserted store to use the variable again, got %d", v.UseCount())
	}
	if ld.Prev() != Instruction(st) {
		t.Error("Expected the store right before the load")
	}
}

func TestUse_ReplaceAllUsesWith(t *testing.T) {
	m := NewModule("rauw")
	i32 := m.Types().Int32()
	f := m.CreateCallable(i32)
	x := f.CreateValueArgument(i32)
	body := f.CreateBodyBlock()
	b := NewBuilder()
	b.SetInsertionPointToEnd(body)

	sum := b.Arithmetic(i32, OpAdd, x, x)
	ret := b.Return(sum)

	ReplaceAllUsesWith(x, m.ConstantInt32(2))
	if x.HasUses() {
		t.Errorf("Expected argument to have no uses, got %d", x.UseCount())
	}
	if sum.Operand(0) != Value(m.ConstantInt32(2)) || sum.Operand(1) != Value(m.ConstantInt32(2)) {
		t.Error("Expected both operands to be replaced")
	}
	if m.ConstantInt32(2).UseCount() != 2 {
		t.Errorf("Expected 2 uses of the constant, got %d", m.ConstantInt32(2).UseCount())
	}
	if ret.ReturnValue() != Value(sum) {
		t.Error("Expected return to be unaffected")
	}
}

func TestUse_CrossPoolOperandPanics(t *testing.T) {
	m1 := NewModule("a")
	m2 := NewModule("b")
	f := m1.CreateKernel()
	b := NewBuilder()
	b.SetInsertionPointToEnd(f.CreateBodyBlock())
	foreign := m2.ConstantInt32(1)

	expectInvariant(t, "same pool", func() {
		b.Arithmetic(m1.Types().Int32(), OpAdd, foreign, foreign)
	})
}

func TestBasicBlock_PredecessorsAndSuccessors(t *testing.T) {
	m := NewModule("cfg")
	f := m.CreateKernel()
	entry := f.CreateBodyBlock()
	b := NewBuilder()
	b.SetInsertionPointToEnd(entry)
	br := b.If(m.ConstantBool(true))
	thenBlock := br.CreateTrueBlock()
	elseBlock := br.CreateFalseBlock()
	merge := br.CreateMergeBlock()
	b.SetInsertionPointToEnd(thenBlock)
	b.Br(merge)
	b.SetInsertionPointToEnd(elseBlock)
	b.Br(merge)
	b.SetInsertionPointToEnd(merge)
	b.ReturnVoid()

	succs := entry.Successors()
	if len(succs) != 2 || succs[0] != thenBlock || succs[1] != elseBlock {
		t.Errorf("Expected [then, else] successors, got %d blocks", len(succs))
	}
	preds := merge.Predecessors()
	if len(preds) != 2 {
		t.Fatalf("Expected 2 predecessors, got %d", len(preds))
	}
	if br.MergeBlock() != merge {
		t.Error("Expected merge block to be recorded")
	}
	for _, p := range merge.Predecessors() {
		if p == entry {
			t.Error("Expected merge annotation not to create an edge")
		}
	}
}

func TestTraversal_ReversePostOrder(t *testing.T) {
	m := NewModule("rpo")
	f := m.CreateKernel()
	entry := f.CreateBodyBlock()
	b := NewBuilder()
	b.SetInsertionPointToEnd(entry)
	loop := b.SimpleLoop()
	header := loop.CreateBodyBlock()
	exit := loop.CreateMergeBlock()
	b.SetInsertionPointToEnd(header)
	b.CondBr(m.ConstantBool(false), header, exit)
	b.SetInsertionPointToEnd(exit)
	b.ReturnVoid()
	unreachable := f.CreateBasicBlock()
	b.SetInsertionPointToEnd(unreachable)
	b.Br(exit)

	rpo := f.ReversePostOrderBlocks()
	want := []*BasicBlock{entry, header, exit}
	if len(rpo) != len(want) {
		t.Fatalf("Expected %d blocks, got %d", len(want), len(rpo))
	}
	for i := range want {
		if rpo[i] != want[i] {
			t.Errorf("Expected bb%d at %d, got bb%d", want[i].ID(), i, rpo[i].ID())
		}
	}

	stopped := PostOrder(entry, func(blk *BasicBlock) bool { return blk == exit })
	if len(stopped) != 2 || stopped[0] != header || stopped[1] != entry {
		t.Errorf("Expected [header, entry] when stopping at exit, got %d blocks", len(stopped))
	}
}
