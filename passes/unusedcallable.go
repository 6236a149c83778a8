package passes

import (
	mapset "github.com/deckarep/golang-set/v2"

	"github.com/gogpu/xir/ir"
)

// UnusedCallableRemovalInfo lists the callables removed from the module.
type UnusedCallableRemovalInfo struct {
	RemovedCallables []*ir.Function
}

// RemoveUnusedCallables removes the callables that no kernel can reach.
// A function is reachable when a reachable definition mentions it as an
// operand of any instruction, which covers calls as well as functions
// passed to ray query pipelines. A module without kernels is a library
// and is left untouched.
func RemoveUnusedCallables(m *ir.Module) *UnusedCallableRemovalInfo {
	info := &UnusedCallableRemovalInfo{}
	reachable := mapset.NewThreadUnsafeSet[*ir.Function]()
	var work []*ir.Function
	for _, f := range m.Functions() {
		if f.FunctionKind() == ir.FunctionKernel {
			reachable.Add(f)
			work = append(work, f)
		}
	}
	if len(work) == 0 {
		return info
	}
	for len(work) > 0 {
		f := work[len(work)-1]
		work = work[:len(work)-1]
		if !f.IsDefinition() {
			continue
		}
		f.TraverseInstructions(func(inst ir.Instruction) {
			for _, op := range inst.Operands() {
				if callee, ok := op.(*ir.Function); ok && reachable.Add(callee) {
					work = append(work, callee)
				}
			}
		})
	}

	for _, f := range append([]*ir.Function(nil), m.Functions()...) {
		if f.FunctionKind() == ir.FunctionCallable && !reachable.Contains(f) {
			m.RemoveFunction(f)
			info.RemovedCallables = append(info.RemovedCallables, f)
		}
	}
	if len(info.RemovedCallables) > 0 {
		logger.WithField("pass", "remove_unused_callables").Debugf("removed %d callables", len(info.RemovedCallables))
	}
	return info
}
