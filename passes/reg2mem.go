package passes

import (
	"github.com/gogpu/xir/ir"
)

// Reg2MemInfo reports the phis lowered to local variables.
type Reg2MemInfo struct {
	// LoweredPhis maps each lowered phi to the load replacing it.
	LoweredPhis map[*ir.PhiInst]*ir.LoadInst
	// RemovedPhis lists redundant phis removed instead of lowered.
	RemovedPhis []*ir.PhiInst
}

func newReg2MemInfo() *Reg2MemInfo {
	return &Reg2MemInfo{LoweredPhis: make(map[*ir.PhiInst]*ir.LoadInst)}
}

// Reg2Mem runs Reg2MemFunction on every definition of m.
func Reg2Mem(m *ir.Module) *Reg2MemInfo {
	info := newReg2MemInfo()
	for _, f := range m.Definitions() {
		other := Reg2MemFunction(f)
		for phi, load := range other.LoweredPhis {
			info.LoweredPhis[phi] = load
		}
		info.RemovedPhis = append(info.RemovedPhis, other.RemovedPhis...)
	}
	return info
}

// Reg2MemFunction lowers every phi of f to a local variable, undoing SSA
// construction for backends without phi support.
func Reg2MemFunction(f *ir.Function) *Reg2MemInfo {
	info := newReg2MemInfo()
	var phis []*ir.PhiInst
	f.TraverseInstructions(func(inst ir.Instruction) {
		if phi, ok := inst.(*ir.PhiInst); ok {
			phis = append(phis, phi)
		}
	})
	for _, phi := range phis {
		if load := LowerPhiToLocal(phi); load != nil {
			info.LoweredPhis[phi] = load
		} else {
			info.RemovedPhis = append(info.RemovedPhis, phi)
		}
	}
	if len(phis) > 0 {
		passLogger("reg2mem", f).Debugf("lowered %d phis, removed %d redundant",
			len(info.LoweredPhis), len(info.RemovedPhis))
	}
	return info
}
