// Package samples builds the canonical XIR modules used by tests, golden
// snapshots and the xiropt command.
//
// Every sample names its entry function "main". Samples are rebuilt on each
// call, so callers may optimize the returned module in place.
package samples

import (
	"sort"

	"github.com/gogpu/xir/interp"
	"github.com/gogpu/xir/ir"
)

// Sample describes one buildable module.
type Sample struct {
	Name        string
	Description string
	Build       func() *ir.Module
	// Args returns fresh interpreter arguments for the entry function.
	Args func() []interp.Value
}

func noArgs() []interp.Value { return nil }

var registry = map[string]Sample{
	"if_else": {
		Name:        "if_else",
		Description: "local variable written on both sides of an if and read at the merge",
		Build:       IfElse,
		Args:        func() []interp.Value { return []interp.Value{true} },
	},
	"constant_switch": {
		Name:        "constant_switch",
		Description: "switch on the constant 3 with cases 1 and 3 and a default",
		Build:       ConstantSwitch,
		Args:        noArgs,
	},
	"loop_sum": {
		Name:        "loop_sum",
		Description: "structured loop summing 0..n-1 through local variables",
		Build:       LoopSum,
		Args:        func() []interp.Value { return []interp.Value{int64(6)} },
	},
	"struct_gep": {
		Name:        "struct_gep",
		Description: "struct variable accessed through chained element pointers",
		Build:       StructGEP,
		Args:        func() []interp.Value { return []interp.Value{2.5} },
	},
	"dead_code": {
		Name:        "dead_code",
		Description: "unused values, a write-only variable and a branch ending in unreachable",
		Build:       DeadCode,
		Args:        func() []interp.Value { return []interp.Value{int64(3)} },
	},
	"ray_query": {
		Name:        "ray_query",
		Description: "ray query loop with surface and procedural handlers sharing a counter",
		Build:       RayQuery,
		Args: func() []interp.Value {
			q := &interp.RayQuery{Candidates: []interp.CandidateKind{
				interp.CandidateTriangle,
				interp.CandidateProcedural,
				interp.CandidateTriangle,
			}}
			return []interp.Value{interp.NewVariable(q), int64(4)}
		},
	},
	"call_graph": {
		Name:        "call_graph",
		Description: "kernel calling a chain of callables next to an unused callable",
		Build:       CallGraph,
		Args:        func() []interp.Value { return []interp.Value{int64(20)} },
	},
}

// All returns every sample sorted by name.
func All() []Sample {
	all := make([]Sample, 0, len(registry))
	for _, s := range registry {
		all = append(all, s)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	return all
}

// Lookup returns the sample with the given name.
func Lookup(name string) (Sample, bool) {
	s, ok := registry[name]
	return s, ok
}

// Entry returns the function named "main" of m, or nil.
func Entry(m *ir.Module) *ir.Function {
	for _, f := range m.Functions() {
		if f.Name() == "main" {
			return f
		}
	}
	return nil
}

func newFunction(f *ir.Function, name string) *ir.Builder {
	f.SetName(name)
	b := ir.NewBuilder()
	b.SetInsertionPointToEnd(f.CreateBodyBlock())
	return b
}

// IfElse builds
//
//	fn main(cond: bool) -> i32 {
//	    var v: i32
//	    if cond { v = 1 } else { v = 2 }
//	    return v
//	}
func IfElse() *ir.Module {
	m := ir.NewModule("if_else")
	i32 := m.Types().Int32()
	f := m.CreateCallable(i32)
	cond := f.CreateValueArgument(m.Types().Bool())
	cond.SetName("cond")
	b := newFunction(f, "main")

	v := b.AllocaLocal(i32)
	v.SetName("v")
	br := b.If(cond)
	thenBlock := br.CreateTrueBlock()
	elseBlock := br.CreateFalseBlock()
	merge := br.CreateMergeBlock()

	b.SetInsertionPointToEnd(thenBlock)
	b.Store(v, m.ConstantInt32(1))
	b.Br(merge)

	b.SetInsertionPointToEnd(elseBlock)
	b.Store(v, m.ConstantInt32(2))
	b.Br(merge)

	b.SetInsertionPointToEnd(merge)
	b.Return(b.Load(i32, v))
	return m
}

// ConstantSwitch builds
//
//	fn main() -> i32 {
//	    var v: i32
//	    switch 3 {
//	    case 1: print("one"); v = 10
//	    case 3: print("three"); v = 30
//	    default: v = 0
//	    }
//	    return v
//	}
func ConstantSwitch() *ir.Module {
	m := ir.NewModule("constant_switch")
	i32 := m.Types().Int32()
	f := m.CreateCallable(i32)
	b := newFunction(f, "main")

	v := b.AllocaLocal(i32)
	v.SetName("v")
	sw := b.Switch(m.ConstantInt32(3))
	one := sw.CreateCaseBlock(1)
	three := sw.CreateCaseBlock(3)
	def := sw.CreateDefaultBlock()
	merge := sw.CreateMergeBlock()

	b.SetInsertionPointToEnd(one)
	b.Print("one")
	b.Store(v, m.ConstantInt32(10))
	b.Break(merge)

	b.SetInsertionPointToEnd(three)
	b.Print("three")
	b.Store(v, m.ConstantInt32(30))
	b.Break(merge)

	b.SetInsertionPointToEnd(def)
	b.Store(v, m.ConstantInt32(0))
	b.Break(merge)

	b.SetInsertionPointToEnd(merge)
	b.Return(b.Load(i32, v))
	return m
}

// LoopSum builds
//
//	fn main(n: i32) -> i32 {
//	    var i: i32 = 0
//	    var sum: i32 = 0
//	    loop { if !(i < n) break; sum += i; i += 1 }
//	    return sum
//	}
func LoopSum() *ir.Module {
	m := ir.NewModule("loop_sum")
	i32 := m.Types().Int32()
	f := m.CreateCallable(i32)
	n := f.CreateValueArgument(i32)
	n.SetName("n")
	b := newFunction(f, "main")

	i := b.AllocaLocal(i32)
	i.SetName("i")
	sum := b.AllocaLocal(i32)
	sum.SetName("sum")
	b.Store(i, m.ConstantInt32(0))
	b.Store(sum, m.ConstantInt32(0))
	loop := b.Loop()
	prepare := loop.CreatePrepareBlock()
	body := loop.CreateBodyBlock()
	update := loop.CreateUpdateBlock()
	merge := loop.CreateMergeBlock()

	b.SetInsertionPointToEnd(prepare)
	cond := b.Arithmetic(m.Types().Bool(), ir.OpLess, b.Load(i32, i), n)
	b.CondBr(cond, body, merge)

	b.SetInsertionPointToEnd(body)
	b.Store(sum, b.Arithmetic(i32, ir.OpAdd, b.Load(i32, sum), b.Load(i32, i)))
	b.Continue(update)

	b.SetInsertionPointToEnd(update)
	b.Store(i, b.Arithmetic(i32, ir.OpAdd, b.Load(i32, i), m.ConstantInt32(1)))
	b.Br(prepare)

	b.SetInsertionPointToEnd(merge)
	b.Return(b.Load(i32, sum))
	return m
}

// StructGEP builds
//
//	fn main(x: f32) -> f32 {
//	    var p: struct{f32, vec2<f32>}
//	    p.0 = x; p.1.x = x * 2; p.1.y = 3
//	    return p.0 + p.1.y + p.1.x
//	}
//
// The vector member is reached through a GEP of a GEP.
func StructGEP() *ir.Module {
	m := ir.NewModule("struct_gep")
	t := m.Types()
	f32 := t.Float32()
	vec2 := t.Vector(f32, ir.Vec2)
	pair := t.Struct(f32, vec2)
	f := m.CreateCallable(f32)
	x := f.CreateValueArgument(f32)
	x.SetName("x")
	b := newFunction(f, "main")

	zero, one := m.ConstantInt32(0), m.ConstantInt32(1)
	p := b.AllocaLocal(pair)
	p.SetName("p")
	b.Store(b.GEP(f32, p, zero), x)
	inner := b.GEP(vec2, p, one)
	b.Store(b.GEP(f32, inner, zero), b.Arithmetic(f32, ir.OpMul, x, m.ConstantFloat32(2)))
	b.Store(b.GEP(f32, p, one, one), m.ConstantFloat32(3))

	a := b.Load(f32, b.GEP(f32, p, zero))
	y := b.Load(f32, b.GEP(f32, inner, one))
	c := b.Load(f32, b.GEP(f32, p, one, zero))
	b.Return(b.Arithmetic(f32, ir.OpAdd, b.Arithmetic(f32, ir.OpAdd, a, y), c))
	return m
}

// DeadCode builds a kernel holding unused arithmetic, a variable that is
// only written and an if whose true side ends in unreachable.
func DeadCode() *ir.Module {
	m := ir.NewModule("dead_code")
	i32 := m.Types().Int32()
	f := m.CreateKernel()
	x := f.CreateValueArgument(i32)
	x.SetName("x")
	b := newFunction(f, "main")

	unused := b.Arithmetic(i32, ir.OpMul, x, m.ConstantInt32(7))
	b.Arithmetic(i32, ir.OpAdd, unused, m.ConstantInt32(1))
	sink := b.AllocaLocal(i32)
	sink.SetName("sink")
	b.Store(sink, x)
	live := b.Arithmetic(i32, ir.OpAdd, x, m.ConstantInt32(1))

	br := b.If(b.Arithmetic(m.Types().Bool(), ir.OpLess, x, m.ConstantInt32(0)))
	bad := br.CreateTrueBlock()
	good := br.CreateFalseBlock()
	merge := br.CreateMergeBlock()

	b.SetInsertionPointToEnd(bad)
	b.Arithmetic(i32, ir.OpSub, m.ConstantInt32(0), x)
	b.Unreachable("negative input")

	b.SetInsertionPointToEnd(good)
	b.Br(merge)

	b.SetInsertionPointToEnd(merge)
	b.Print("value {}", live)
	b.ReturnVoid()
	return m
}

// RayQuery builds a kernel that counts surface candidates in a local
// variable while traversing a ray query:
//
//	fn main(q: &ray_query_all, base: i32) {
//	    var hits: i32 = 0
//	    let scaled = base * 2
//	    ray_query q {
//	        on_surface    { print("surface {}", scaled); hits += 1; commit_triangle(q) }
//	        on_procedural { print("procedural {}", base); terminate(q) }
//	    }
//	    print("hits {}", hits)
//	}
func RayQuery() *ir.Module {
	m := ir.NewModule("ray_query")
	i32 := m.Types().Int32()
	f := m.CreateKernel()
	q := f.CreateReferenceArgument(m.Types().RayQuery(false))
	q.SetName("q")
	base := f.CreateValueArgument(i32)
	base.SetName("base")
	b := newFunction(f, "main")

	hits := b.AllocaLocal(i32)
	hits.SetName("hits")
	b.Store(hits, m.ConstantInt32(0))
	scaled := b.Arithmetic(i32, ir.OpMul, base, m.ConstantInt32(2))
	loop := b.RayQueryLoop()
	dispatchBlock := loop.CreateDispatchBlock()
	merge := loop.CreateMergeBlock()

	b.SetInsertionPointToEnd(dispatchBlock)
	dispatch := b.RayQueryDispatch(q, merge)
	surface := dispatch.CreateOnSurfaceCandidateBlock()
	procedural := dispatch.CreateOnProceduralCandidateBlock()

	b.SetInsertionPointToEnd(surface)
	b.Print("surface {}", scaled)
	b.Store(hits, b.Arithmetic(i32, ir.OpAdd, b.Load(i32, hits), m.ConstantInt32(1)))
	b.RayQueryObjectWrite(ir.RayQueryCommitTriangle, q)
	b.Br(dispatchBlock)

	b.SetInsertionPointToEnd(procedural)
	b.Print("procedural {}", base)
	b.RayQueryObjectWrite(ir.RayQueryTerminate, q)
	b.Br(dispatchBlock)

	b.SetInsertionPointToEnd(merge)
	b.Print("hits {}", b.Load(i32, hits))
	b.ReturnVoid()
	return m
}

// CallGraph builds a kernel main calling helper, which calls leaf, and a
// callable orphan that also calls leaf but is never called.
func CallGraph() *ir.Module {
	m := ir.NewModule("call_graph")
	i32 := m.Types().Int32()

	leaf := m.CreateCallable(i32)
	lx := leaf.CreateValueArgument(i32)
	b := newFunction(leaf, "leaf")
	b.Return(b.Arithmetic(i32, ir.OpAdd, lx, m.ConstantInt32(1)))

	helper := m.CreateCallable(i32)
	hx := helper.CreateValueArgument(i32)
	b = newFunction(helper, "helper")
	b.Return(b.Call(i32, leaf, b.Arithmetic(i32, ir.OpMul, hx, m.ConstantInt32(2))))

	orphan := m.CreateCallable(i32)
	b = newFunction(orphan, "orphan")
	b.Return(b.Call(i32, leaf, m.ConstantInt32(0)))

	kernel := m.CreateKernel()
	kx := kernel.CreateValueArgument(i32)
	b = newFunction(kernel, "main")
	b.Print("result {}", b.Call(i32, helper, kx))
	b.ReturnVoid()
	return m
}
