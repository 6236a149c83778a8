package passes

import (
	mapset "github.com/deckarep/golang-set/v2"

	"github.com/gogpu/xir/ir"
)

// TransposeGEPInfo reports the accesses rewritten by the transpose-GEP pass.
type TransposeGEPInfo struct {
	// LoadToExtract maps each load through a GEP to the extract replacing it.
	LoadToExtract map[*ir.LoadInst]*ir.ArithmeticInst
	// StoreToStore maps each store through a GEP to the whole-variable store
	// replacing it.
	StoreToStore map[*ir.StoreInst]*ir.StoreInst
}

func newTransposeGEPInfo() *TransposeGEPInfo {
	return &TransposeGEPInfo{
		LoadToExtract: make(map[*ir.LoadInst]*ir.ArithmeticInst),
		StoreToStore:  make(map[*ir.StoreInst]*ir.StoreInst),
	}
}

func (info *TransposeGEPInfo) merge(other *TransposeGEPInfo) {
	for k, v := range other.LoadToExtract {
		info.LoadToExtract[k] = v
	}
	for k, v := range other.StoreToStore {
		info.StoreToStore[k] = v
	}
}

// TransposeGEP runs TransposeGEPFunction on every definition of m.
func TransposeGEP(m *ir.Module) *TransposeGEPInfo {
	info := newTransposeGEPInfo()
	for _, f := range m.Definitions() {
		info.merge(TransposeGEPFunction(f))
	}
	return info
}

// TransposeGEPFunction rewrites element accesses of local variables into
// whole-variable accesses, so that the variables become promotable:
//
//	load(gep(v, i...))     => extract(load(v), i...)
//	store(gep(v, i...), x) => store(v, insert(load(v), x, i...))
//
// A variable is only rewritten when every instruction referring to it, or to
// a GEP into it, is an alloca, load, store or GEP. GEP chains are flattened
// first.
func TransposeGEPFunction(f *ir.Function) *TransposeGEPInfo {
	TraceGEPFunction(f)
	info := newTransposeGEPInfo()

	var geps []*ir.GEPInst
	nonApplicable := mapset.NewThreadUnsafeSet[*ir.AllocaInst]()
	f.TraverseInstructions(func(inst ir.Instruction) {
		switch inst := inst.(type) {
		case *ir.GEPInst:
			if inst.IndexCount() > 0 {
				geps = append(geps, inst)
			}
		case *ir.AllocaInst, *ir.LoadInst, *ir.StoreInst:
		default:
			for _, op := range inst.Operands() {
				if a := TracePointerBaseLocalAlloca(op); a != nil {
					nonApplicable.Add(a)
				}
			}
		}
	})

	b := ir.NewBuilder()
	rewritten := 0
	for _, gep := range geps {
		variable := TracePointerBaseLocalAlloca(gep)
		if variable == nil || nonApplicable.Contains(variable) || variable != gep.Base() {
			continue
		}
		indices := gep.Indices()
		for _, u := range gep.Uses() {
			switch user := u.User().(type) {
			case *ir.LoadInst:
				b.SetInsertionPointBefore(user)
				whole := b.Load(variable.Type(), variable)
				extract := b.Extract(user.Type(), whole, indices...)
				user.ReplaceAllUsesWith(extract)
				user.RemoveSelf()
				info.LoadToExtract[user] = extract
			case *ir.StoreInst:
				ir.Assertf(user.Variable() == ir.Value(gep), "gep must only be stored through")
				b.SetInsertionPointBefore(user)
				whole := b.Load(variable.Type(), variable)
				insert := b.Insert(whole, user.Value(), indices...)
				store := b.Store(variable, insert)
				user.RemoveSelf()
				info.StoreToStore[user] = store
			default:
				ir.Assertf(false, "unexpected %s user of a transposable gep", user.Tag())
			}
		}
		gep.RemoveSelf()
		rewritten++
	}

	if rewritten > 0 {
		passLogger("transpose_gep", f).Debugf("rewrote %d geps: %d loads, %d stores",
			rewritten, len(info.LoadToExtract), len(info.StoreToStore))
	}
	return info
}
