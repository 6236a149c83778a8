package passes

import (
	"github.com/sirupsen/logrus"

	"github.com/gogpu/xir/ir"
)

var logger = logrus.WithField("component", "xir/passes")

// passLogger returns the logger used by pass for function f.
func passLogger(pass string, f *ir.Function) *logrus.Entry {
	return logger.WithFields(logrus.Fields{
		"pass":     pass,
		"function": f.Label(),
	})
}

// TracePointerBaseValue follows GEP bases from v to the root variable.
func TracePointerBaseValue(v ir.Value) ir.Value {
	for {
		gep, ok := v.(*ir.GEPInst)
		if !ok {
			return v
		}
		v = gep.Base()
	}
}

// TracePointerBaseLocalAlloca returns the local variable v points into, or
// nil when the root of v is not a local alloca.
func TracePointerBaseLocalAlloca(v ir.Value) *ir.AllocaInst {
	if v == nil {
		return nil
	}
	a, ok := TracePointerBaseValue(v).(*ir.AllocaInst)
	if !ok || a.Space() != ir.SpaceLocal {
		return nil
	}
	return a
}

// isInvariant reports whether v has the same value wherever it is visible.
func isInvariant(v ir.Value) bool {
	if v == nil {
		return true
	}
	switch v.Kind() {
	case ir.ValueUndefined, ir.ValueConstant, ir.ValueArgument, ir.ValueSpecialRegister:
		return true
	}
	return false
}

// RemoveRedundantPhi removes phi when it is unused or merges a single value,
// replacing its uses with that value. Incomings referring to the phi itself
// are ignored. Undefined incomings are only folded away when the merged value
// is invariant, because an instruction taken from one path need not dominate
// the phi. It reports whether the phi was removed.
func RemoveRedundantPhi(phi *ir.PhiInst) bool {
	if phi.Block() == nil {
		return false
	}
	if !phi.HasUses() {
		phi.RemoveSelf()
		return true
	}
	var same ir.Value
	anyUndef := false
	for _, in := range phi.Incomings() {
		v := in.Value
		if v == ir.Value(phi) {
			continue
		}
		if ir.IsUndefined(v) {
			anyUndef = true
			if same == nil {
				same = v
			}
			continue
		}
		if same == nil || ir.IsUndefined(same) {
			same = v
			continue
		}
		if same != v {
			return false
		}
	}
	if anyUndef && !isInvariant(same) {
		return false
	}
	if same == nil {
		same = phi.Module().Undefined(phi.Type())
	}
	phi.ReplaceAllUsesWith(same)
	phi.RemoveSelf()
	return true
}

// setInsertionPointAfterPhis places b after the phis at the head of block.
func setInsertionPointAfterPhis(b *ir.Builder, block *ir.BasicBlock) {
	if phis := block.Phis(); len(phis) > 0 {
		b.SetInsertionPoint(phis[len(phis)-1])
		return
	}
	b.SetInsertionPointToHead(block)
}

// LowerPhiToLocal replaces phi by a local variable: each incoming block
// stores its value right before its terminator and a load takes the place of
// the phi. Redundant phis are simply removed. It returns the new load, or nil
// when no lowering was needed.
func LowerPhiToLocal(phi *ir.PhiInst) *ir.LoadInst {
	if phi.Block() == nil || RemoveRedundantPhi(phi) {
		return nil
	}
	f := phi.Function()
	b := ir.NewBuilder()
	setInsertionPointAfterPhis(b, f.BodyBlock())
	variable := b.AllocaLocal(phi.Type())
	variable.AddComment("alloca to lower phi node")

	for _, in := range phi.Incomings() {
		if in.Value == nil || ir.IsUndefined(in.Value) {
			continue
		}
		term := in.Block.Terminator()
		ir.Assertf(term != nil, "phi incoming block must be terminated")
		b.SetInsertionPointBefore(term)
		b.Store(variable, in.Value)
	}

	setInsertionPointAfterPhis(b, phi.Block())
	load := b.Load(phi.Type(), variable)
	load.AddComment("load from phi alloca")
	phi.ReplaceAllUsesWith(load)
	phi.RemoveSelf()
	return load
}

// HoistAllocas moves every alloca of f into the entry block, after its phis,
// keeping traversal order. It returns the number of allocas visited.
func HoistAllocas(f *ir.Function) int {
	var allocas []*ir.AllocaInst
	f.TraverseInstructions(func(inst ir.Instruction) {
		if a, ok := inst.(*ir.AllocaInst); ok {
			allocas = append(allocas, a)
		}
	})
	if len(allocas) == 0 {
		return 0
	}
	b := ir.NewBuilder()
	setInsertionPointAfterPhis(b, f.BodyBlock())
	for _, a := range allocas {
		b.Append(a)
	}
	return len(allocas)
}
