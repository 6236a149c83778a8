package passes

import (
	mapset "github.com/deckarep/golang-set/v2"

	"github.com/gogpu/xir/analysis"
	"github.com/gogpu/xir/ir"
)

// Mem2RegInfo reports the work of the mem2reg pass.
type Mem2RegInfo struct {
	RemovedLoads    mapset.Set[*ir.LoadInst]
	RemovedStores   mapset.Set[*ir.StoreInst]
	PromotedAllocas mapset.Set[*ir.AllocaInst]
	// InsertedPhis holds the phis that survived redundant-phi cleanup.
	InsertedPhis mapset.Set[*ir.PhiInst]
}

func newMem2RegInfo() *Mem2RegInfo {
	return &Mem2RegInfo{
		RemovedLoads:    mapset.NewThreadUnsafeSet[*ir.LoadInst](),
		RemovedStores:   mapset.NewThreadUnsafeSet[*ir.StoreInst](),
		PromotedAllocas: mapset.NewThreadUnsafeSet[*ir.AllocaInst](),
		InsertedPhis:    mapset.NewThreadUnsafeSet[*ir.PhiInst](),
	}
}

func (info *Mem2RegInfo) merge(other *Mem2RegInfo) {
	info.RemovedLoads.Append(other.RemovedLoads.ToSlice()...)
	info.RemovedStores.Append(other.RemovedStores.ToSlice()...)
	info.PromotedAllocas.Append(other.PromotedAllocas.ToSlice()...)
	info.InsertedPhis.Append(other.InsertedPhis.ToSlice()...)
}

// Mem2Reg runs Mem2RegFunction on every definition of m.
func Mem2Reg(m *ir.Module) *Mem2RegInfo {
	info := newMem2RegInfo()
	for _, f := range m.Definitions() {
		info.merge(Mem2RegFunction(f))
	}
	return info
}

// promotion tracks the accesses of one promotable variable.
type promotion struct {
	variable *ir.AllocaInst
	// first load of each block that reads the variable before writing it
	loads     map[*ir.BasicBlock]*ir.LoadInst
	useBlocks []*ir.BasicBlock
	// last store of each block writing the variable
	stores    map[*ir.BasicBlock]*ir.StoreInst
	defBlocks []*ir.BasicBlock
	allStores []*ir.StoreInst
}

// mem2reg holds the state of one function.
type mem2reg struct {
	function   *ir.Function
	info       *Mem2RegInfo
	builder    *ir.Builder
	promotions map[*ir.AllocaInst]*promotion
	order      []*promotion
	dom        *analysis.DomTree
}

// Mem2RegFunction promotes the local variables of f that are only loaded
// and stored as a whole into SSA values. GEP accesses are transposed first,
// phis are placed on the iterated dominance frontier of the stores, pruned to
// blocks where the variable is live-in, and reads without a reaching store
// become undefined values.
func Mem2RegFunction(f *ir.Function) *Mem2RegInfo {
	TransposeGEPFunction(f)
	p := &mem2reg{
		function:   f,
		info:       newMem2RegInfo(),
		builder:    ir.NewBuilder(),
		promotions: make(map[*ir.AllocaInst]*promotion),
	}
	p.collectPromotableAllocas()
	if len(p.order) == 0 {
		return p.info
	}
	p.simplifySingleBlockAccesses()

	p.dom = analysis.ComputeDomTree(f)
	var inserted []*ir.PhiInst
	for _, pr := range p.order {
		if p.info.PromotedAllocas.Contains(pr.variable) {
			continue
		}
		inserted = append(inserted, p.promote(pr)...)
	}
	p.simplifyPhis(inserted)

	passLogger("mem2reg", f).Debugf("promoted %d allocas, removed %d loads and %d stores, inserted %d phis",
		p.info.PromotedAllocas.Cardinality(), p.info.RemovedLoads.Cardinality(),
		p.info.RemovedStores.Cardinality(), p.info.InsertedPhis.Cardinality())
	return p.info
}

// collectPromotableAllocas finds, in reverse post-order, the local allocas
// whose users are all whole-variable loads and stores.
func (p *mem2reg) collectPromotableAllocas() {
	p.function.TraverseInstructions(func(inst ir.Instruction) {
		a, ok := inst.(*ir.AllocaInst)
		if !ok || a.Space() != ir.SpaceLocal || !isPromotable(a) {
			return
		}
		pr := &promotion{
			variable: a,
			loads:    make(map[*ir.BasicBlock]*ir.LoadInst),
			stores:   make(map[*ir.BasicBlock]*ir.StoreInst),
		}
		p.promotions[a] = pr
		p.order = append(p.order, pr)
	})
}

func isPromotable(a *ir.AllocaInst) bool {
	for _, u := range a.Uses() {
		switch user := u.User().(type) {
		case *ir.LoadInst:
			if user.Variable() != ir.Value(a) {
				return false
			}
			ir.Assertf(user.Type() == a.Type(), "load %%%d of type %s from variable %%%d of type %s",
				user.ID(), user.Type(), a.ID(), a.Type())
		case *ir.StoreInst:
			if user.Variable() != ir.Value(a) || user.Value() == ir.Value(a) {
				return false
			}
			ir.Assertf(user.Value().Type() == a.Type(), "store %%%d of type %s to variable %%%d of type %s",
				user.ID(), user.Value().Type(), a.ID(), a.Type())
		default:
			return false
		}
	}
	return true
}

// blocksInOrder returns the reachable blocks in reverse post-order followed
// by the remaining blocks of the function.
func blocksInOrder(f *ir.Function) []*ir.BasicBlock {
	rpo := f.ReversePostOrderBlocks()
	seen := mapset.NewThreadUnsafeSet(rpo...)
	for _, b := range f.BasicBlocks() {
		if !seen.Contains(b) {
			rpo = append(rpo, b)
		}
	}
	return rpo
}

// simplifySingleBlockAccesses forwards values inside each block: a load
// preceded in its block by a load or a store of the same variable is
// replaced by that value. Afterwards every block holds at most one load per
// variable, located before any store to it. Variables left without loads are
// removed together with their stores.
func (p *mem2reg) simplifySingleBlockAccesses() {
	for _, blk := range blocksInOrder(p.function) {
		current := make(map[*ir.AllocaInst]ir.Value)
		for _, inst := range blk.Instructions() {
			switch inst := inst.(type) {
			case *ir.LoadInst:
				a, _ := inst.Variable().(*ir.AllocaInst)
				pr := p.promotions[a]
				if pr == nil {
					continue
				}
				if v, ok := current[a]; ok {
					inst.ReplaceAllUsesWith(v)
					inst.RemoveSelf()
					p.info.RemovedLoads.Add(inst)
					continue
				}
				current[a] = inst
				pr.loads[blk] = inst
				pr.useBlocks = append(pr.useBlocks, blk)
			case *ir.StoreInst:
				a, _ := inst.Variable().(*ir.AllocaInst)
				pr := p.promotions[a]
				if pr == nil {
					continue
				}
				current[a] = inst.Value()
				if _, ok := pr.stores[blk]; !ok {
					pr.defBlocks = append(pr.defBlocks, blk)
				}
				pr.stores[blk] = inst
				pr.allStores = append(pr.allStores, inst)
			}
		}
	}

	for _, pr := range p.order {
		if len(pr.loads) == 0 {
			p.removeVariable(pr)
		}
	}
}

// removeVariable unlinks every store of pr and its alloca.
func (p *mem2reg) removeVariable(pr *promotion) {
	for _, st := range pr.allStores {
		st.RemoveSelf()
		p.info.RemovedStores.Add(st)
	}
	ir.Assertf(!pr.variable.HasUses(), "promoted variable %%%d still has %d uses", pr.variable.ID(), pr.variable.UseCount())
	pr.variable.RemoveSelf()
	p.info.PromotedAllocas.Add(pr.variable)
}

// liveInBlocks returns the blocks on entry to which the variable may still
// be read before being written.
func liveInBlocks(pr *promotion) mapset.Set[*ir.BasicBlock] {
	defs := mapset.NewThreadUnsafeSet(pr.defBlocks...)
	live := mapset.NewThreadUnsafeSet(pr.useBlocks...)
	work := append([]*ir.BasicBlock(nil), pr.useBlocks...)
	for len(work) > 0 {
		blk := work[len(work)-1]
		work = work[:len(work)-1]
		for _, pred := range blk.Predecessors() {
			if defs.Contains(pred) || live.Contains(pred) {
				continue
			}
			live.Add(pred)
			work = append(work, pred)
		}
	}
	return live
}

// promote places the phis of one variable, renames its loads and removes its
// stores and alloca. It returns the inserted phis.
func (p *mem2reg) promote(pr *promotion) []*ir.PhiInst {
	live := liveInBlocks(pr)
	blockToPhi := make(map[*ir.BasicBlock]*ir.PhiInst)
	outValues := make(map[*ir.BasicBlock]ir.Value)
	// removed loads of the variable may still be stored back into it, so
	// out values are resolved through their replacements
	replaced := make(map[ir.Value]ir.Value)
	resolve := func(v ir.Value) ir.Value {
		for {
			r, ok := replaced[v]
			if !ok {
				return v
			}
			v = r
		}
	}
	var phis []*ir.PhiInst

	var work []*ir.BasicBlock
	for _, blk := range pr.defBlocks {
		if p.dom.Contains(blk) {
			work = append(work, blk)
		}
	}
	for len(work) > 0 {
		blk := work[len(work)-1]
		work = work[:len(work)-1]
		for _, fb := range p.dom.Frontier(blk) {
			if !live.Contains(fb) {
				continue
			}
			if _, ok := blockToPhi[fb]; ok {
				continue
			}
			p.builder.SetInsertionPointToHead(fb)
			phi := p.builder.Phi(pr.variable.Type())
			blockToPhi[fb] = phi
			outValues[fb] = phi
			phis = append(phis, phi)
			if load := pr.loads[fb]; load != nil {
				load.ReplaceAllUsesWith(phi)
				load.RemoveSelf()
				p.info.RemovedLoads.Add(load)
				replaced[load] = phi
				delete(pr.loads, fb)
			}
			work = append(work, fb)
		}
	}
	for _, blk := range pr.defBlocks {
		outValues[blk] = pr.stores[blk].Value()
	}

	for _, blk := range pr.useBlocks {
		load, ok := pr.loads[blk]
		if !ok {
			continue
		}
		var v ir.Value
		if phi, ok := blockToPhi[blk]; ok {
			v = phi
		} else {
			v = resolve(p.findDomValue(pr, p.dom.Parent(blk), outValues))
		}
		load.ReplaceAllUsesWith(v)
		load.RemoveSelf()
		p.info.RemovedLoads.Add(load)
		replaced[load] = v
	}

	for _, phi := range phis {
		for _, pred := range phi.Block().Predecessors() {
			phi.AddIncoming(resolve(p.findDomValue(pr, pred, outValues)), pred)
		}
	}

	p.removeVariable(pr)
	return phis
}

// findDomValue returns the value of the variable on exit from blk: the out
// value of blk or of its nearest dominator that has one, else undefined.
// Blocks outside the dominator tree see undefined.
func (p *mem2reg) findDomValue(pr *promotion, blk *ir.BasicBlock, outValues map[*ir.BasicBlock]ir.Value) ir.Value {
	for d := blk; d != nil && p.dom.Contains(d); d = p.dom.Parent(d) {
		if v, ok := outValues[d]; ok {
			return v
		}
	}
	return p.function.Module().Undefined(pr.variable.Type())
}

// simplifyPhis removes redundant inserted phis until none is left.
func (p *mem2reg) simplifyPhis(phis []*ir.PhiInst) {
	for changed := true; changed; {
		changed = false
		for _, phi := range phis {
			if RemoveRedundantPhi(phi) {
				changed = true
			}
		}
	}
	for _, phi := range phis {
		if phi.Block() != nil {
			p.info.InsertedPhis.Add(phi)
		}
	}
}
