package passes

import (
	"github.com/gogpu/xir/ir"
)

// TraceGEPInfo reports the work of the trace-GEP pass.
type TraceGEPInfo struct {
	// TracedGEPs lists the GEPs whose base was rewritten to a non-GEP value.
	TracedGEPs []*ir.GEPInst
	// RemovedGEPs lists the index-less GEPs replaced by their base.
	RemovedGEPs []*ir.GEPInst
}

func (info *TraceGEPInfo) merge(other *TraceGEPInfo) {
	info.TracedGEPs = append(info.TracedGEPs, other.TracedGEPs...)
	info.RemovedGEPs = append(info.RemovedGEPs, other.RemovedGEPs...)
}

// TraceGEP flattens GEP chains in every definition of m.
func TraceGEP(m *ir.Module) *TraceGEPInfo {
	info := &TraceGEPInfo{}
	for _, f := range m.Definitions() {
		info.merge(TraceGEPFunction(f))
	}
	return info
}

// TraceGEPFunction rewrites GEP(GEP(base, i...), j...) into
// GEP(base, i..., j...) and replaces GEPs without indices by their base.
func TraceGEPFunction(f *ir.Function) *TraceGEPInfo {
	info := &TraceGEPInfo{}
	var geps []*ir.GEPInst
	f.TraverseInstructions(func(inst ir.Instruction) {
		if gep, ok := inst.(*ir.GEPInst); ok {
			geps = append(geps, gep)
		}
	})

	for _, gep := range geps {
		if inner, ok := gep.Base().(*ir.GEPInst); ok {
			var prefix []ir.Value
			var base ir.Value
			for inner != nil {
				prefix = append(inner.Indices(), prefix...)
				base = inner.Base()
				inner, _ = base.(*ir.GEPInst)
			}
			gep.SetBaseAndIndices(base, append(prefix, gep.Indices()...))
			info.TracedGEPs = append(info.TracedGEPs, gep)
		}
		if gep.IndexCount() == 0 {
			gep.ReplaceAllUsesWith(gep.Base())
			gep.RemoveSelf()
			info.RemovedGEPs = append(info.RemovedGEPs, gep)
		}
	}

	if len(geps) > 0 {
		passLogger("trace_gep", f).Debugf("traced %d of %d geps, removed %d",
			len(info.TracedGEPs), len(geps), len(info.RemovedGEPs))
	}
	return info
}
