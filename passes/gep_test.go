package passes_test

import (
	"testing"

	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
	"pgregory.net/rapid"

	"github.com/gogpu/xir/internal/samples"
	"github.com/gogpu/xir/interp"
	"github.com/gogpu/xir/ir"
	"github.com/gogpu/xir/passes"
)

func TestTraceGEP_FlattensChains(t *testing.T) {
	m := samples.StructGEP()
	main := samples.Entry(m)
	before := mustRun(t, main, 2.5)

	info := passes.TraceGEP(m)
	assertValid(t, m)

	assert.Check(t, is.Len(info.TracedGEPs, 2))
	assert.Check(t, is.Len(info.RemovedGEPs, 0))
	for _, gep := range info.TracedGEPs {
		assert.Check(t, is.Len(gep.Indices(), 2))
		_, nested := gep.Base().(*ir.GEPInst)
		assert.Check(t, !nested, "gep %%%d still has a gep base", gep.ID())
	}
	for _, inst := range instructionsWithTag(main, ir.TagGEP) {
		_, nested := inst.(*ir.GEPInst).Base().(*ir.GEPInst)
		assert.Check(t, !nested)
	}
	assertSameBehavior(t, before, mustRun(t, main, 2.5))
}

func TestTraceGEP_RemovesIndexlessGEPs(t *testing.T) {
	m := ir.NewModule(t.Name())
	i32 := m.Types().Int32()
	f := m.CreateCallable(i32)
	b := ir.NewBuilder()
	b.SetInsertionPointToEnd(f.CreateBodyBlock())
	v := b.AllocaLocal(i32)
	alias := b.GEP(i32, v)
	b.Store(alias, m.ConstantInt32(9))
	b.Return(b.Load(i32, v))

	info := passes.TraceGEPFunction(f)
	assertValid(t, m)

	assert.DeepEqual(t, ids(info.RemovedGEPs), []uint32{alias.ID()})
	assert.Equal(t, countTag(f, ir.TagGEP), 0)
	store := instructionsWithTag(f, ir.TagStore)[0].(*ir.StoreInst)
	assert.Equal(t, store.Variable(), ir.Value(v))
	assert.Equal(t, mustRun(t, f).Value, int64(9))
}

func TestTransposeGEP_StructAccesses(t *testing.T) {
	m := samples.StructGEP()
	main := samples.Entry(m)
	before := mustRun(t, main, 2.5)

	info := passes.TransposeGEP(m)
	assertValid(t, m)

	assert.Equal(t, len(info.LoadToExtract), 3)
	assert.Equal(t, len(info.StoreToStore), 3)
	assert.Equal(t, countTag(main, ir.TagGEP), 0)
	assert.Equal(t, countTag(main, ir.TagStore), 3)
	for _, extract := range info.LoadToExtract {
		assert.Equal(t, extract.Op(), ir.OpExtract)
		_, fromLoad := extract.Operand(0).(*ir.LoadInst)
		assert.Check(t, fromLoad)
	}
	for _, store := range info.StoreToStore {
		_, isAlloca := store.Variable().(*ir.AllocaInst)
		assert.Check(t, isAlloca)
	}
	assertSameBehavior(t, before, mustRun(t, main, 2.5))

	passes.Mem2Reg(m)
	assertValid(t, m)
	assert.Equal(t, countTag(main, ir.TagAlloca), 0)
	assertSameBehavior(t, before, mustRun(t, main, 2.5))
}

func TestTransposeGEP_SkipsEscapingVariables(t *testing.T) {
	m := ir.NewModule(t.Name())
	ty := m.Types()
	i32 := ty.Int32()
	pair := ty.Struct(i32, i32)

	touch := m.CreateCallable(nil)
	touch.CreateReferenceArgument(i32)
	b := ir.NewBuilder()
	b.SetInsertionPointToEnd(touch.CreateBodyBlock())
	b.ReturnVoid()

	f := m.CreateCallable(i32)
	b.SetInsertionPointToEnd(f.CreateBodyBlock())
	v := b.AllocaLocal(pair)
	second := b.GEP(i32, v, m.ConstantInt32(1))
	b.Store(second, m.ConstantInt32(4))
	b.Call(nil, touch, second)
	b.Return(b.Load(i32, second))

	info := passes.TransposeGEPFunction(f)
	assertValid(t, m)

	assert.Equal(t, len(info.LoadToExtract), 0)
	assert.Equal(t, len(info.StoreToStore), 0)
	assert.Equal(t, countTag(f, ir.TagGEP), 1)
	assert.Equal(t, mustRun(t, f).Value, int64(4))
}

// leafPaths lists the scalar leaves of struct { i32, vec3<i32>, array<struct { i32, i32 }, 2> }.
var leafPaths = [][]int32{
	{0},
	{1, 0}, {1, 1}, {1, 2},
	{2, 0, 0}, {2, 0, 1}, {2, 1, 0}, {2, 1, 1},
}

// leafPointer builds a GEP chain to path, split at a random position.
func leafPointer(t *rapid.T, m *ir.Module, b *ir.Builder, base ir.Value, path []int32) ir.Value {
	indices := make([]ir.Value, len(path))
	for i, idx := range path {
		indices[i] = m.ConstantInt32(idx)
	}
	split := rapid.IntRange(0, len(indices)-1).Draw(t, "split")
	if split > 0 {
		base = b.GEP(ir.ElementType(base.Type(), indices[:split]), base, indices[:split]...)
		indices = indices[split:]
	}
	return b.GEP(m.Types().Int32(), base, indices...)
}

// Rewriting element accesses into whole-variable accesses never changes
// what a program prints or returns.
func TestTransposeGEP_Soundness(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		m := ir.NewModule("transpose")
		ty := m.Types()
		i32 := ty.Int32()
		record := ty.Struct(i32, ty.Vector(i32, ir.Vec3), ty.Array(ty.Struct(i32, i32), 2))
		f := m.CreateCallable(i32)
		arg := f.CreateValueArgument(i32)
		b := ir.NewBuilder()
		b.SetInsertionPointToEnd(f.CreateBodyBlock())

		v := b.AllocaLocal(record)
		b.Store(v, m.ConstantZero(record))
		for i := rapid.IntRange(1, 12).Draw(t, "accesses"); i > 0; i-- {
			path := leafPaths[rapid.IntRange(0, len(leafPaths)-1).Draw(t, "leaf")]
			ptr := leafPointer(t, m, b, v, path)
			if rapid.Bool().Draw(t, "store") {
				k := m.ConstantInt32(rapid.Int32Range(-5, 5).Draw(t, "k"))
				b.Store(ptr, b.Arithmetic(i32, ir.OpAdd, arg, k))
			} else {
				b.Print("{}", b.Load(i32, ptr))
			}
		}
		b.Return(b.Load(i32, leafPointer(t, m, b, v, leafPaths[len(leafPaths)-1])))

		before, err := interp.Run(f, int64(7))
		if err != nil {
			t.Fatalf("interpreting before transpose: %v", err)
		}
		passes.TransposeGEPFunction(f)
		if errs, _ := ir.Validate(m); len(errs) != 0 {
			t.Fatalf("invalid module after transpose: %v", errs)
		}
		if n := countTag(f, ir.TagGEP); n != 0 {
			t.Fatalf("Expected every gep to be rewritten, %d left", n)
		}
		after, err := interp.Run(f, int64(7))
		if err != nil {
			t.Fatalf("interpreting after transpose: %v", err)
		}
		if before.Value != after.Value {
			t.Fatalf("Expected return value %v, got %v", before.Value, after.Value)
		}
		if len(before.Output) != len(after.Output) {
			t.Fatalf("Expected %d printed lines, got %d", len(before.Output), len(after.Output))
		}
		for i := range before.Output {
			if before.Output[i] != after.Output[i] {
				t.Fatalf("Expected line %d to be %q, got %q", i, before.Output[i], after.Output[i])
			}
		}
	})
}

func BenchmarkTransposeGEP(b *testing.B) {
	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		m := samples.StructGEP()
		passes.TransposeGEP(m)
	}
}
