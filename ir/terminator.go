package ir

// ConditionalBranch is implemented by terminators choosing between a true
// and a false block: IfInst and ConditionalBranchInst.
type ConditionalBranch interface {
	Terminator
	Condition() Value
	TrueBlock() *BasicBlock
	FalseBlock() *BasicBlock
}

type condBranchBase struct {
	terminatorBase
}

// Condition returns the boolean condition.
func (c *condBranchBase) Condition() Value { return c.Operand(0) }

// TrueBlock returns the block taken when the condition holds.
func (c *condBranchBase) TrueBlock() *BasicBlock { return blockOperand(c.Operand(1)) }

// FalseBlock returns the block taken otherwise.
func (c *condBranchBase) FalseBlock() *BasicBlock { return blockOperand(c.Operand(2)) }

// SetCondition sets the boolean condition.
func (c *condBranchBase) SetCondition(v Value) {
	Assertf(v == nil || v.Type().IsBool(), "branch condition must be a bool, got %s", typeOf(v))
	c.SetOperand(0, v)
}

// SetTrueBlock sets the block taken when the condition holds.
func (c *condBranchBase) SetTrueBlock(b *BasicBlock) { c.SetOperand(1, valueOrNil(b)) }

// SetFalseBlock sets the block taken otherwise.
func (c *condBranchBase) SetFalseBlock(b *BasicBlock) { c.SetOperand(2, valueOrNil(b)) }

// IfInst is a structured two-way branch with a merge block.
type IfInst struct {
	condBranchBase
	mergeBase
}

func (*IfInst) Tag() Tag { return TagIf }

// CreateTrueBlock creates and sets a new true block.
func (i *IfInst) CreateTrueBlock() *BasicBlock {
	b := createBlockFor(i)
	i.SetTrueBlock(b)
	return b
}

// CreateFalseBlock creates and sets a new false block.
func (i *IfInst) CreateFalseBlock() *BasicBlock {
	b := createBlockFor(i)
	i.SetFalseBlock(b)
	return b
}

// CreateMergeBlock creates and sets a new merge block.
func (i *IfInst) CreateMergeBlock() *BasicBlock {
	b := createBlockFor(i)
	i.SetMergeBlock(b)
	return b
}

// ConditionalBranchInst is an unstructured two-way branch.
type ConditionalBranchInst struct {
	condBranchBase
}

func (*ConditionalBranchInst) Tag() Tag { return TagConditionalBranch }

// SwitchInst is a structured multi-way branch on an integer selector.
// Operands are the selector, the default block and one block per case.
type SwitchInst struct {
	terminatorBase
	mergeBase
	caseValues []int64
}

func (*SwitchInst) Tag() Tag { return TagSwitch }

// Selector returns the switched-on value.
func (s *SwitchInst) Selector() Value { return s.Operand(0) }

// SetSelector sets the switched-on value.
func (s *SwitchInst) SetSelector(v Value) {
	Assertf(v == nil || v.Type().IsInteger() || v.Type().IsBool(), "switch selector must be an integer, got %s", typeOf(v))
	s.SetOperand(0, v)
}

// DefaultBlock returns the default target.
func (s *SwitchInst) DefaultBlock() *BasicBlock { return blockOperand(s.Operand(1)) }

// SetDefaultBlock sets the default target.
func (s *SwitchInst) SetDefaultBlock(b *BasicBlock) { s.SetOperand(1, valueOrNil(b)) }

// CreateDefaultBlock creates and sets a new default block.
func (s *SwitchInst) CreateDefaultBlock() *BasicBlock {
	b := createBlockFor(s)
	s.SetDefaultBlock(b)
	return b
}

// CaseCount returns the number of cases.
func (s *SwitchInst) CaseCount() int { return len(s.caseValues) }

// CaseValue returns the value of the i-th case.
func (s *SwitchInst) CaseValue(i int) int64 { return s.caseValues[i] }

// CaseBlock returns the target of the i-th case.
func (s *SwitchInst) CaseBlock(i int) *BasicBlock { return blockOperand(s.Operand(2 + i)) }

// AddCase appends a case targeting b.
func (s *SwitchInst) AddCase(value int64, b *BasicBlock) {
	for _, v := range s.caseValues {
		Assertf(v != value, "duplicate switch case %d", value)
	}
	s.caseValues = append(s.caseValues, value)
	s.addOperand(valueOrNil(b))
}

// CreateCaseBlock appends a case targeting a new block.
func (s *SwitchInst) CreateCaseBlock(value int64) *BasicBlock {
	b := createBlockFor(s)
	s.AddCase(value, b)
	return b
}

// CreateMergeBlock creates and sets a new merge block.
func (s *SwitchInst) CreateMergeBlock() *BasicBlock {
	b := createBlockFor(s)
	s.SetMergeBlock(b)
	return b
}

// LoopInst is a structured loop. Control enters the prepare block, which
// branches to the body or the merge block; the body continues to the update
// block, which branches back to prepare.
type LoopInst struct {
	terminatorBase
	mergeBase
	body   *BasicBlock
	update *BasicBlock
}

func (*LoopInst) Tag() Tag { return TagLoop }

// PrepareBlock returns the loop header.
func (l *LoopInst) PrepareBlock() *BasicBlock { return blockOperand(l.Operand(0)) }

// SetPrepareBlock sets the loop header.
func (l *LoopInst) SetPrepareBlock(b *BasicBlock) { l.SetOperand(0, valueOrNil(b)) }

// BodyBlock returns the loop body entry.
func (l *LoopInst) BodyBlock() *BasicBlock { return l.body }

// SetBodyBlock sets the loop body entry.
func (l *LoopInst) SetBodyBlock(b *BasicBlock) { l.body = b }

// UpdateBlock returns the loop update block.
func (l *LoopInst) UpdateBlock() *BasicBlock { return l.update }

// SetUpdateBlock sets the loop update block.
func (l *LoopInst) SetUpdateBlock(b *BasicBlock) { l.update = b }

// CreatePrepareBlock creates and sets a new prepare block.
func (l *LoopInst) CreatePrepareBlock() *BasicBlock {
	b := createBlockFor(l)
	l.SetPrepareBlock(b)
	return b
}

// CreateBodyBlock creates and sets a new body block.
func (l *LoopInst) CreateBodyBlock() *BasicBlock {
	b := createBlockFor(l)
	l.body = b
	return b
}

// CreateUpdateBlock creates and sets a new update block.
func (l *LoopInst) CreateUpdateBlock() *BasicBlock {
	b := createBlockFor(l)
	l.update = b
	return b
}

// CreateMergeBlock creates and sets a new merge block.
func (l *LoopInst) CreateMergeBlock() *BasicBlock {
	b := createBlockFor(l)
	l.SetMergeBlock(b)
	return b
}

// SimpleLoopInst is a structured loop whose body is its only operand.
type SimpleLoopInst struct {
	terminatorBase
	mergeBase
}

func (*SimpleLoopInst) Tag() Tag { return TagSimpleLoop }

// BodyBlock returns the loop body.
func (l *SimpleLoopInst) BodyBlock() *BasicBlock { return blockOperand(l.Operand(0)) }

// SetBodyBlock sets the loop body.
func (l *SimpleLoopInst) SetBodyBlock(b *BasicBlock) { l.SetOperand(0, valueOrNil(b)) }

// CreateBodyBlock creates and sets a new body block.
func (l *SimpleLoopInst) CreateBodyBlock() *BasicBlock {
	b := createBlockFor(l)
	l.SetBodyBlock(b)
	return b
}

// CreateMergeBlock creates and sets a new merge block.
func (l *SimpleLoopInst) CreateMergeBlock() *BasicBlock {
	b := createBlockFor(l)
	l.SetMergeBlock(b)
	return b
}

// Branch is implemented by single-target terminators.
type Branch interface {
	Terminator
	TargetBlock() *BasicBlock
	SetTargetBlock(b *BasicBlock)
}

type branchBase struct {
	terminatorBase
}

// TargetBlock returns the branch target.
func (b *branchBase) TargetBlock() *BasicBlock { return blockOperand(b.Operand(0)) }

// SetTargetBlock sets the branch target.
func (b *branchBase) SetTargetBlock(target *BasicBlock) { b.SetOperand(0, valueOrNil(target)) }

// BranchInst is an unconditional branch.
type BranchInst struct {
	branchBase
}

func (*BranchInst) Tag() Tag { return TagBranch }

// BreakInst leaves the innermost structured loop or switch.
type BreakInst struct {
	branchBase
}

func (*BreakInst) Tag() Tag { return TagBreak }

// ContinueInst jumps to the update block of the innermost structured loop.
type ContinueInst struct {
	branchBase
}

func (*ContinueInst) Tag() Tag { return TagContinue }

// OutlineInst marks a region starting at its target that backends may emit
// as a separate function. The region reconverges at the merge block.
type OutlineInst struct {
	branchBase
	mergeBase
}

func (*OutlineInst) Tag() Tag { return TagOutline }

// UnreachableInst terminates a block control never reaches.
type UnreachableInst struct {
	terminatorBase
	Message string
}

func (*UnreachableInst) Tag() Tag { return TagUnreachable }

// ReturnInst returns from the function, optionally with a value.
type ReturnInst struct {
	terminatorBase
}

func (*ReturnInst) Tag() Tag { return TagReturn }

// ReturnValue returns the returned value, or nil for void returns.
func (r *ReturnInst) ReturnValue() Value {
	if r.OperandCount() == 0 {
		return nil
	}
	return r.Operand(0)
}

// RasterDiscardInst discards the current fragment.
type RasterDiscardInst struct {
	terminatorBase
}

func (*RasterDiscardInst) Tag() Tag { return TagRasterDiscard }

// RayQueryLoopInst is the structured ray query construct. Control enters the
// dispatch block, whose RayQueryDispatchInst chooses between the candidate
// handlers and the merge block.
type RayQueryLoopInst struct {
	terminatorBase
	mergeBase
}

func (*RayQueryLoopInst) Tag() Tag { return TagRayQueryLoop }

// DispatchBlock returns the dispatch block.
func (l *RayQueryLoopInst) DispatchBlock() *BasicBlock { return blockOperand(l.Operand(0)) }

// SetDispatchBlock sets the dispatch block.
func (l *RayQueryLoopInst) SetDispatchBlock(b *BasicBlock) { l.SetOperand(0, valueOrNil(b)) }

// CreateDispatchBlock creates and sets a new dispatch block.
func (l *RayQueryLoopInst) CreateDispatchBlock() *BasicBlock {
	b := createBlockFor(l)
	l.SetDispatchBlock(b)
	return b
}

// CreateMergeBlock creates and sets a new merge block.
func (l *RayQueryLoopInst) CreateMergeBlock() *BasicBlock {
	b := createBlockFor(l)
	l.SetMergeBlock(b)
	return b
}

// RayQueryDispatchInst terminates the dispatch block of a ray query loop.
// Operands are the query object, the exit block and the optional on-surface
// and on-procedural candidate blocks.
type RayQueryDispatchInst struct {
	terminatorBase
}

func (*RayQueryDispatchInst) Tag() Tag { return TagRayQueryDispatch }

// QueryObject returns the ray query object.
func (d *RayQueryDispatchInst) QueryObject() Value { return d.Operand(0) }

// ExitBlock returns the block reached when traversal finishes.
func (d *RayQueryDispatchInst) ExitBlock() *BasicBlock { return blockOperand(d.Operand(1)) }

// OnSurfaceCandidateBlock returns the triangle candidate handler.
func (d *RayQueryDispatchInst) OnSurfaceCandidateBlock() *BasicBlock {
	return blockOperand(d.Operand(2))
}

// OnProceduralCandidateBlock returns the procedural candidate handler.
func (d *RayQueryDispatchInst) OnProceduralCandidateBlock() *BasicBlock {
	return blockOperand(d.Operand(3))
}

// SetExitBlock sets the exit block.
func (d *RayQueryDispatchInst) SetExitBlock(b *BasicBlock) { d.SetOperand(1, valueOrNil(b)) }

// SetOnSurfaceCandidateBlock sets the triangle candidate handler.
func (d *RayQueryDispatchInst) SetOnSurfaceCandidateBlock(b *BasicBlock) {
	d.SetOperand(2, valueOrNil(b))
}

// SetOnProceduralCandidateBlock sets the procedural candidate handler.
func (d *RayQueryDispatchInst) SetOnProceduralCandidateBlock(b *BasicBlock) {
	d.SetOperand(3, valueOrNil(b))
}

// CreateOnSurfaceCandidateBlock creates and sets a new triangle handler.
func (d *RayQueryDispatchInst) CreateOnSurfaceCandidateBlock() *BasicBlock {
	b := createBlockFor(d)
	d.SetOnSurfaceCandidateBlock(b)
	return b
}

// CreateOnProceduralCandidateBlock creates and sets a new procedural handler.
func (d *RayQueryDispatchInst) CreateOnProceduralCandidateBlock() *BasicBlock {
	b := createBlockFor(d)
	d.SetOnProceduralCandidateBlock(b)
	return b
}

// AutodiffScopeInst opens an automatic differentiation region starting at
// its entry block and reconverging at the merge block.
type AutodiffScopeInst struct {
	terminatorBase
	mergeBase
}

func (*AutodiffScopeInst) Tag() Tag { return TagAutodiffScope }

// EntryBlock returns the scope entry.
func (a *AutodiffScopeInst) EntryBlock() *BasicBlock { return blockOperand(a.Operand(0)) }

// SetEntryBlock sets the scope entry.
func (a *AutodiffScopeInst) SetEntryBlock(b *BasicBlock) { a.SetOperand(0, valueOrNil(b)) }

// CreateEntryBlock creates and sets a new entry block.
func (a *AutodiffScopeInst) CreateEntryBlock() *BasicBlock {
	b := createBlockFor(a)
	a.SetEntryBlock(b)
	return b
}

// CreateMergeBlock creates and sets a new merge block.
func (a *AutodiffScopeInst) CreateMergeBlock() *BasicBlock {
	b := createBlockFor(a)
	a.SetMergeBlock(b)
	return b
}

// valueOrNil converts a possibly nil block into a Value without producing a
// non-nil interface holding a nil pointer.
func valueOrNil(b *BasicBlock) Value {
	if b == nil {
		return nil
	}
	return b
}

func typeOf(v Value) *Type {
	if v == nil {
		return nil
	}
	return v.Type()
}
