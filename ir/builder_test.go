package ir

import (
	"testing"
)

func newTestFunction(t *testing.T) (*Module, *Function, *Builder) {
	t.Helper()
	m := NewModule(t.Name())
	f := m.CreateKernel()
	b := NewBuilder()
	b.SetInsertionPointToEnd(f.CreateBodyBlock())
	return m, f, b
}

func TestBuilder_InsertionPointAdvances(t *testing.T) {
	m, f, b := newTestFunction(t)
	i32 := m.Types().Int32()

	v := b.AllocaLocal(i32)
	ld := b.Load(i32, v)
	ret := b.ReturnVoid()

	b.SetInsertionPointBefore(ld)
	st := b.Store(v, m.ConstantInt32(3))
	clk := b.Clock()

	got := f.BodyBlock().Instructions()
	want := []Instruction{v, st, clk, ld, ret}
	if len(got) != len(want) {
		t.Fatalf("Expected %d instructions, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Expected %s at %d, got %s", want[i].Tag(), i, got[i].Tag())
		}
	}
	if f.BodyBlock().Terminator() != Terminator(ret) {
		t.Error("Expected the return to terminate the block")
	}
	if clk.Type() != m.Types().Uint64() {
		t.Errorf("Expected clock to return u64, got %s", clk.Type())
	}
}

func TestBuilder_TypeContracts(t *testing.T) {
	m, _, b := newTestFunction(t)
	i32 := m.Types().Int32()
	f32 := m.Types().Float32()
	v := b.AllocaLocal(i32)

	tests := []struct {
		name string
		want string
		fn   func()
	}{
		{"load type", "load type", func() { b.Load(f32, v) }},
		{"load rvalue", "requires an lvalue", func() { b.Load(i32, m.ConstantInt32(1)) }},
		{"store type", "store value type", func() { b.Store(v, m.ConstantFloat32(1)) }},
		{"branch condition", "must be a bool", func() { b.If(m.ConstantInt32(1)) }},
		{"gep element", "element of", func() { b.GEP(f32, v, m.ConstantInt32(0)) }},
		{"atomic values", "takes 2 values", func() {
			b.Atomic(i32, AtomicCompareExchange, v, nil, []Value{m.ConstantInt32(1)})
		}},
		{"bitcast size", "changes size", func() { b.BitCast(m.Types().Uint64(), m.ConstantInt32(1)) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectInvariant(t, tt.want, tt.fn)
		})
	}
}

func TestBuilder_GEPAndAggregates(t *testing.T) {
	m, _, b := newTestFunction(t)
	f32 := m.Types().Float32()
	pair := m.Types().Struct(f32, m.Types().Vector(f32, Vec2))
	v := b.AllocaLocal(pair)

	g := b.GEP(f32, v, m.ConstantInt32(1), m.ConstantInt32(0))
	if !g.IsLValue() || g.Base() != Value(v) || g.IndexCount() != 2 {
		t.Errorf("Unexpected gep shape: base %v, %d indices", g.Base(), g.IndexCount())
	}
	agg := b.Load(pair, v)
	ext := b.Extract(f32, agg, m.ConstantInt32(1), m.ConstantInt32(1))
	ins := b.Insert(agg, ext, m.ConstantInt32(1), m.ConstantInt32(0))
	if ins.Type() != pair {
		t.Errorf("Expected insert to produce %s, got %s", pair, ins.Type())
	}
	if ins.Op() != OpInsert || ext.Op() != OpExtract {
		t.Error("Expected extract and insert opcodes")
	}
}

func TestBuilder_CallChecksArguments(t *testing.T) {
	m, _, b := newTestFunction(t)
	i32 := m.Types().Int32()
	callee := m.CreateCallable(i32)
	callee.CreateReferenceArgument(i32)

	expectInvariant(t, "passed by reference", func() {
		b.Call(i32, callee, m.ConstantInt32(1))
	})
	expectInvariant(t, "takes 1 arguments", func() {
		b.Call(i32, callee)
	})

	v := b.AllocaLocal(i32)
	call := b.Call(i32, callee, v)
	if call.Callee() != callee || len(call.Arguments()) != 1 {
		t.Error("Expected callee and one argument")
	}
	if callee.UseCount() != 1 {
		t.Errorf("Expected callee to have 1 use, got %d", callee.UseCount())
	}
}

func TestBuilder_Phi(t *testing.T) {
	m, f, b := newTestFunction(t)
	i32 := m.Types().Int32()
	entry := f.BodyBlock()
	other := f.CreateBasicBlock()
	merge := f.CreateBasicBlock()
	b.CondBr(m.ConstantBool(true), merge, other)
	b.SetInsertionPointToEnd(other)
	b.Br(merge)
	b.SetInsertionPointToEnd(merge)

	phi := b.Phi(i32,
		PhiIncoming{Value: m.ConstantInt32(1), Block: entry},
		PhiIncoming{Value: m.ConstantInt32(2), Block: other},
	)
	b.ReturnVoid()

	if v, ok := phi.IncomingFor(other); !ok || v != Value(m.ConstantInt32(2)) {
		t.Error("Expected incoming 2 from the other block")
	}
	phi.RemoveIncoming(0)
	if phi.IncomingCount() != 1 || phi.Incoming(0).Block != other {
		t.Errorf("Expected one incoming from the other block, got %d", phi.IncomingCount())
	}
	if m.ConstantInt32(1).HasUses() {
		t.Error("Expected removed incoming to release its use")
	}
	expectInvariant(t, "phi incoming", func() {
		phi.AddIncoming(m.ConstantFloat32(1), entry)
	})
}

func TestBuilder_SwitchCases(t *testing.T) {
	m, _, b := newTestFunction(t)
	sw := b.Switch(m.ConstantInt32(3))
	one := sw.CreateCaseBlock(1)
	three := sw.CreateCaseBlock(3)
	def := sw.CreateDefaultBlock()

	if sw.CaseCount() != 2 || sw.CaseBlock(1) != three || sw.CaseBlock(0) != one {
		t.Error("Expected two cases in creation order")
	}
	if sw.DefaultBlock() != def {
		t.Error("Expected default block")
	}
	expectInvariant(t, "duplicate switch case", func() {
		sw.AddCase(3, def)
	})
}

func TestBuilder_CloneResolvesOperands(t *testing.T) {
	m, f, b := newTestFunction(t)
	i32 := m.Types().Int32()
	x := b.AllocaLocal(i32)
	y := b.AllocaLocal(i32)
	ld := b.Load(i32, x)
	ld.SetName("value")
	b.ReturnVoid()

	b.SetInsertionPointBefore(f.BodyBlock().Terminator())
	clone := b.Clone(ld, ValueResolverFunc(func(v Value) Value {
		if v == Value(x) {
			return y
		}
		return v
	})).(*LoadInst)

	if clone == ld {
		t.Fatal("Expected a new instruction")
	}
	if clone.Variable() != Value(y) {
		t.Error("Expected the clone to load from y")
	}
	if clone.Name() != "value" {
		t.Errorf("Expected name to be copied, got %q", clone.Name())
	}
	if x.UseCount() != 1 || y.UseCount() != 1 {
		t.Errorf("Expected one use each, got %d and %d", x.UseCount(), y.UseCount())
	}
}

func TestBuilder_CloneStructuredTerminator(t *testing.T) {
	m, f, b := newTestFunction(t)
	br := b.If(m.ConstantBool(true))
	thenBlock := br.CreateTrueBlock()
	elseBlock := br.CreateFalseBlock()
	merge := br.CreateMergeBlock()

	target := f.CreateBasicBlock()
	mapping := map[Value]Value{thenBlock: elseBlock, elseBlock: thenBlock, merge: target}
	b.SetInsertionPointToEnd(target)
	clone := b.Clone(br, ValueResolverFunc(func(v Value) Value {
		if r, ok := mapping[v]; ok {
			return r
		}
		return v
	})).(*IfInst)

	if clone.TrueBlock() != elseBlock || clone.FalseBlock() != thenBlock {
		t.Error("Expected targets to be swapped by the resolver")
	}
	if clone.MergeBlock() != target {
		t.Error("Expected merge block to be resolved")
	}
}
