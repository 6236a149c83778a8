package analysis

import (
	mapset "github.com/deckarep/golang-set/v2"

	"github.com/gogpu/xir/ir"
)

// CallGraph records which calls each function definition makes.
type CallGraph struct {
	roots []*ir.Function
	edges map[*ir.Function][]*ir.CallInst
}

// ComputeCallGraph builds the call graph of m from the use-lists of its
// functions. Only linked call instructions count as edges, so calls inside
// detached or removed code are ignored.
func ComputeCallGraph(m *ir.Module) *CallGraph {
	g := &CallGraph{edges: make(map[*ir.Function][]*ir.CallInst)}
	called := mapset.NewThreadUnsafeSet[*ir.Function]()
	for _, f := range m.Functions() {
		for _, u := range f.Uses() {
			call, ok := u.User().(*ir.CallInst)
			if !ok || call.Callee() != f {
				continue
			}
			caller := call.Function()
			if caller == nil || caller.IsRemoved() {
				continue
			}
			g.edges[caller] = append(g.edges[caller], call)
			called.Add(f)
		}
	}
	for _, f := range m.Functions() {
		if !called.Contains(f) {
			g.roots = append(g.roots, f)
		}
	}
	return g
}

// RootFunctions returns the functions no call instruction targets, in
// module order.
func (g *CallGraph) RootFunctions() []*ir.Function {
	return g.roots
}

// CallEdges returns the calls made by def, grouped by callee in module order.
func (g *CallGraph) CallEdges(def *ir.Function) []*ir.CallInst {
	return g.edges[def]
}

// Callees returns the distinct functions def calls.
func (g *CallGraph) Callees(def *ir.Function) []*ir.Function {
	var callees []*ir.Function
	seen := mapset.NewThreadUnsafeSet[*ir.Function]()
	for _, call := range g.edges[def] {
		if seen.Add(call.Callee()) {
			callees = append(callees, call.Callee())
		}
	}
	return callees
}
