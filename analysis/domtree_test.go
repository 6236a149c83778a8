package analysis

import (
	"testing"

	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
	"pgregory.net/rapid"

	"github.com/gogpu/xir/ir"
)

func blockIDs(blocks []*ir.BasicBlock) []uint32 {
	ids := make([]uint32, len(blocks))
	for i, b := range blocks {
		ids[i] = b.ID()
	}
	return ids
}

// buildDiamond builds entry -> {then, else} -> merge.
func buildDiamond(t *testing.T) (f *ir.Function, entry, thenBlock, elseBlock, merge *ir.BasicBlock) {
	t.Helper()
	m := ir.NewModule(t.Name())
	f = m.CreateKernel()
	entry = f.CreateBodyBlock()
	b := ir.NewBuilder()
	b.SetInsertionPointToEnd(entry)
	br := b.If(m.ConstantBool(true))
	thenBlock = br.CreateTrueBlock()
	elseBlock = br.CreateFalseBlock()
	merge = br.CreateMergeBlock()
	b.SetInsertionPointToEnd(thenBlock)
	b.Br(merge)
	b.SetInsertionPointToEnd(elseBlock)
	b.Br(merge)
	b.SetInsertionPointToEnd(merge)
	b.ReturnVoid()
	return f, entry, thenBlock, elseBlock, merge
}

func TestDomTree_Diamond(t *testing.T) {
	f, entry, thenBlock, elseBlock, merge := buildDiamond(t)
	tree := ComputeDomTree(f)

	assert.Equal(t, tree.Root(), entry)
	assert.Assert(t, tree.Parent(entry) == nil)
	for _, b := range []*ir.BasicBlock{thenBlock, elseBlock, merge} {
		assert.Equal(t, tree.Parent(b), entry)
		assert.Assert(t, tree.Dominates(entry, b))
	}
	assert.Assert(t, !tree.Dominates(thenBlock, merge))
	assert.Assert(t, tree.Dominates(merge, merge))
	assert.Assert(t, !tree.StrictlyDominates(merge, merge))

	assert.DeepEqual(t, blockIDs(tree.Frontier(thenBlock)), []uint32{merge.ID()})
	assert.DeepEqual(t, blockIDs(tree.Frontier(elseBlock)), []uint32{merge.ID()})
	assert.Check(t, is.Len(tree.Frontier(entry), 0))
	assert.Check(t, is.Len(tree.Frontier(merge), 0))
	assert.Check(t, is.Len(tree.Children(entry), 3))
}

func TestDomTree_LoopFrontier(t *testing.T) {
	m := ir.NewModule(t.Name())
	f := m.CreateKernel()
	entry := f.CreateBodyBlock()
	b := ir.NewBuilder()
	b.SetInsertionPointToEnd(entry)
	loop := b.SimpleLoop()
	header := loop.CreateBodyBlock()
	exit := loop.CreateMergeBlock()
	latch := f.CreateBasicBlock()
	b.SetInsertionPointToEnd(header)
	b.CondBr(m.ConstantBool(true), latch, exit)
	b.SetInsertionPointToEnd(latch)
	b.Br(header)
	b.SetInsertionPointToEnd(exit)
	b.ReturnVoid()

	tree := ComputeDomTree(f)
	assert.Equal(t, tree.Parent(header), entry)
	assert.Equal(t, tree.Parent(latch), header)
	assert.Equal(t, tree.Parent(exit), header)
	assert.DeepEqual(t, blockIDs(tree.Frontier(latch)), []uint32{header.ID()})
	assert.DeepEqual(t, blockIDs(tree.Frontier(header)), []uint32{header.ID()})
	assert.Check(t, is.Len(tree.Frontier(exit), 0))
}

func TestDomTree_UnreachableBlocksAreExcluded(t *testing.T) {
	f, entry, _, _, merge := buildDiamond(t)
	dead := f.CreateBasicBlock()
	b := ir.NewBuilder()
	b.SetInsertionPointToEnd(dead)
	b.Br(merge)

	tree := ComputeDomTree(f)
	assert.Assert(t, !tree.Contains(dead))
	assert.Assert(t, !tree.Dominates(dead, merge))
	assert.Assert(t, !tree.Dominates(entry, dead))
	assert.Assert(t, tree.Parent(dead) == nil)
	assert.Check(t, is.Len(tree.Blocks(), 4))
	// the unreachable predecessor does not add merge to any frontier
	assert.Check(t, is.Len(tree.Frontier(entry), 0))
}

// reachableWithout returns the blocks reachable from entry when removed is
// taken out of the graph.
func reachableWithout(entry, removed *ir.BasicBlock) map[*ir.BasicBlock]bool {
	seen := map[*ir.BasicBlock]bool{}
	if entry == removed {
		return seen
	}
	work := []*ir.BasicBlock{entry}
	seen[entry] = true
	for len(work) > 0 {
		b := work[len(work)-1]
		work = work[:len(work)-1]
		for _, s := range b.Successors() {
			if s != removed && !seen[s] {
				seen[s] = true
				work = append(work, s)
			}
		}
	}
	return seen
}

// TestDomTree_MatchesDefinition checks the tree and the frontiers against
// the path-based definitions on random control flow graphs.
func TestDomTree_MatchesDefinition(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		m := ir.NewModule("random")
		f := m.CreateKernel()
		n := rapid.IntRange(1, 8).Draw(rt, "blocks")
		blocks := []*ir.BasicBlock{f.CreateBodyBlock()}
		for len(blocks) < n {
			blocks = append(blocks, f.CreateBasicBlock())
		}
		b := ir.NewBuilder()
		for i, blk := range blocks {
			b.SetInsertionPointToEnd(blk)
			switch rapid.IntRange(0, 2).Draw(rt, "terminator") {
			case 0:
				b.ReturnVoid()
			case 1:
				b.Br(blocks[rapid.IntRange(0, n-1).Draw(rt, "target")])
			default:
				b.CondBr(m.ConstantBool(i%2 == 0),
					blocks[rapid.IntRange(0, n-1).Draw(rt, "true")],
					blocks[rapid.IntRange(0, n-1).Draw(rt, "false")])
			}
		}

		tree := ComputeDomTree(f)
		entry := blocks[0]
		reachable := reachableWithout(entry, nil)
		for _, a := range blocks {
			assert.Equal(rt, tree.Contains(a), reachable[a])
		}
		for _, a := range tree.Blocks() {
			without := reachableWithout(entry, a)
			for _, c := range tree.Blocks() {
				want := a == c || !without[c]
				if tree.Dominates(a, c) != want {
					rt.Fatalf("dominates(bb%d, bb%d) = %v, want %v", a.ID(), c.ID(), !want, want)
				}
			}
		}
		for _, a := range tree.Blocks() {
			want := map[*ir.BasicBlock]bool{}
			for _, c := range tree.Blocks() {
				for _, p := range c.Predecessors() {
					if tree.Contains(p) && tree.Dominates(a, p) && !tree.StrictlyDominates(a, c) {
						want[c] = true
					}
				}
			}
			got := tree.Frontier(a)
			if len(got) != len(want) {
				rt.Fatalf("frontier of bb%d has %d blocks, want %d", a.ID(), len(got), len(want))
			}
			for _, c := range got {
				if !want[c] {
					rt.Fatalf("unexpected bb%d in frontier of bb%d", c.ID(), a.ID())
				}
			}
		}
	})
}

func BenchmarkComputeDomTree(b *testing.B) {
	m := ir.NewModule("bench")
	f := m.CreateKernel()
	builder := ir.NewBuilder()
	blk := f.CreateBodyBlock()
	for i := 0; i < 128; i++ {
		builder.SetInsertionPointToEnd(blk)
		br := builder.If(m.ConstantBool(true))
		thenBlock := br.CreateTrueBlock()
		merge := br.CreateMergeBlock()
		br.SetFalseBlock(merge)
		builder.SetInsertionPointToEnd(thenBlock)
		builder.Br(merge)
		blk = merge
	}
	builder.SetInsertionPointToEnd(blk)
	builder.ReturnVoid()

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		ComputeDomTree(f)
	}
}
