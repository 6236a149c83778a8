package ir

// Tag identifies the concrete kind of an instruction.
type Tag uint8

const (
	// Control flow terminators
	TagIf Tag = iota
	TagSwitch
	TagLoop
	TagSimpleLoop
	TagBranch
	TagConditionalBranch
	TagUnreachable
	TagBreak
	TagContinue
	TagReturn
	TagRasterDiscard
	TagRayQueryLoop
	TagRayQueryDispatch
	TagOutline
	TagAutodiffScope

	// Variables and memory
	TagPhi
	TagAlloca
	TagLoad
	TagStore
	TagGEP
	TagAtomic

	// Computation
	TagArithmetic
	TagCast
	TagCall
	TagThreadGroup
	TagResourceQuery
	TagResourceRead
	TagResourceWrite
	TagRayQueryObjectRead
	TagRayQueryObjectWrite
	TagRayQueryPipeline
	TagPrint
	TagClock
	TagAssert
	TagAssume
	TagAutodiffIntrinsic
)

var tagNames = [...]string{
	TagIf:                  "if",
	TagSwitch:              "switch",
	TagLoop:                "loop",
	TagSimpleLoop:          "simple_loop",
	TagBranch:              "br",
	TagConditionalBranch:   "cond_br",
	TagUnreachable:         "unreachable",
	TagBreak:               "break",
	TagContinue:            "continue",
	TagReturn:              "return",
	TagRasterDiscard:       "raster_discard",
	TagRayQueryLoop:        "ray_query_loop",
	TagRayQueryDispatch:    "ray_query_dispatch",
	TagOutline:             "outline",
	TagAutodiffScope:       "autodiff_scope",
	TagPhi:                 "phi",
	TagAlloca:              "alloca",
	TagLoad:                "load",
	TagStore:               "store",
	TagGEP:                 "gep",
	TagAtomic:              "atomic",
	TagArithmetic:          "arith",
	TagCast:                "cast",
	TagCall:                "call",
	TagThreadGroup:         "thread_group",
	TagResourceQuery:       "resource_query",
	TagResourceRead:        "resource_read",
	TagResourceWrite:       "resource_write",
	TagRayQueryObjectRead:  "ray_query_read",
	TagRayQueryObjectWrite: "ray_query_write",
	TagRayQueryPipeline:    "ray_query_pipeline",
	TagPrint:               "print",
	TagClock:               "clock",
	TagAssert:              "assert",
	TagAssume:              "assume",
	TagAutodiffIntrinsic:   "autodiff",
}

// String returns the textual mnemonic of the tag.
func (t Tag) String() string {
	if int(t) < len(tagNames) {
		return tagNames[t]
	}
	return "unknown"
}

// Instruction is a value produced by, and a user of, other values.
//
// Instructions are created detached by a Builder and become visible in their
// operands' use-lists only while linked into a basic block.
type Instruction interface {
	Value

	// Tag returns the instruction kind.
	Tag() Tag
	// Block returns the containing block, or nil when detached.
	Block() *BasicBlock
	// Function returns the function of the containing block, or nil.
	Function() *Function
	Prev() Instruction
	Next() Instruction
	IsTerminator() bool

	Operand(i int) Value
	Operands() []Value
	OperandUses() []*Use
	OperandCount() int
	SetOperand(i int, v Value)

	// InsertBefore links the instruction right before pos, unlinking it
	// from its current position first.
	InsertBefore(pos Instruction)
	// InsertAfter links the instruction right after pos, unlinking it from
	// its current position first.
	InsertAfter(pos Instruction)
	// RemoveSelf unlinks the instruction from its block and detaches its
	// operand uses. Removing a detached instruction is a no-op.
	RemoveSelf()

	inst() *instBase
	unlinkIfLinked()
}

// instBase carries the state shared by every instruction.
type instBase struct {
	valueBase
	self     Instruction
	block    *BasicBlock
	prev     Instruction
	next     Instruction
	operands []*Use
}

func (*instBase) Kind() ValueKind             { return ValueInstruction }
func (i *instBase) Block() *BasicBlock        { return i.block }
func (i *instBase) Prev() Instruction         { return i.prev }
func (i *instBase) Next() Instruction         { return i.next }
func (*instBase) IsTerminator() bool          { return false }
func (i *instBase) OperandCount() int         { return len(i.operands) }
func (i *instBase) OperandUses() []*Use       { return i.operands }
func (i *instBase) Operand(n int) Value       { return i.operands[n].value }
func (i *instBase) SetOperand(n int, v Value) { i.operands[n].Set(v) }
func (i *instBase) inst() *instBase           { return i }

func (i *instBase) Function() *Function {
	if i.block == nil {
		return nil
	}
	return i.block.parent
}

func (i *instBase) Operands() []Value {
	ops := make([]Value, len(i.operands))
	for n, u := range i.operands {
		ops[n] = u.value
	}
	return ops
}

func (i *instBase) InsertBefore(pos Instruction) {
	Assertf(pos != nil && pos.Block() != nil, "insertion point must be linked")
	if pos == i.self {
		return
	}
	i.unlinkIfLinked()
	pos.Block().insertAfter(i.self, pos.Prev())
}

func (i *instBase) InsertAfter(pos Instruction) {
	Assertf(pos != nil && pos.Block() != nil, "insertion point must be linked")
	if pos == i.self {
		return
	}
	i.unlinkIfLinked()
	pos.Block().insertAfter(i.self, pos)
}

func (i *instBase) RemoveSelf() {
	i.unlinkIfLinked()
}

func (i *instBase) unlinkIfLinked() {
	if i.block != nil {
		i.block.remove(i.self)
	}
}

// newUse creates an operand use owned by the instruction.
func (i *instBase) newUse(v Value) *Use {
	u := &Use{user: i.self}
	u.Set(v)
	return u
}

// setOperands replaces the whole operand list.
func (i *instBase) setOperands(vs ...Value) {
	for _, u := range i.operands {
		u.detach()
	}
	i.operands = i.operands[:0]
	for _, v := range vs {
		i.operands = append(i.operands, i.newUse(v))
	}
}

// setOperandCount grows the operand list with nil operands or truncates it.
func (i *instBase) setOperandCount(n int) {
	for len(i.operands) > n {
		last := i.operands[len(i.operands)-1]
		last.detach()
		i.operands = i.operands[:len(i.operands)-1]
	}
	for len(i.operands) < n {
		i.operands = append(i.operands, i.newUse(nil))
	}
}

// addOperand appends an operand.
func (i *instBase) addOperand(v Value) {
	i.operands = append(i.operands, i.newUse(v))
}

// removeOperand removes the n-th operand.
func (i *instBase) removeOperand(n int) {
	i.operands[n].detach()
	i.operands = append(i.operands[:n], i.operands[n+1:]...)
}

// operandValues returns the values of operands[from:].
func (i *instBase) operandValues(from int) []Value {
	if from >= len(i.operands) {
		return nil
	}
	vs := make([]Value, 0, len(i.operands)-from)
	for _, u := range i.operands[from:] {
		vs = append(vs, u.value)
	}
	return vs
}

func blockOperand(v Value) *BasicBlock {
	b, _ := v.(*BasicBlock)
	return b
}

func functionOperand(v Value) *Function {
	f, _ := v.(*Function)
	return f
}

// Terminator is an instruction that ends a basic block.
type Terminator interface {
	Instruction
	terminator()
}

// ControlFlowMerge is implemented by structured terminators that record the
// block where their region reconverges.
type ControlFlowMerge interface {
	Terminator
	MergeBlock() *BasicBlock
	SetMergeBlock(b *BasicBlock)
}

type terminatorBase struct {
	instBase
}

func (*terminatorBase) IsTerminator() bool { return true }
func (*terminatorBase) terminator()        {}

type mergeBase struct {
	merge *BasicBlock
}

// MergeBlock returns the reconvergence block, which may be nil.
func (m *mergeBase) MergeBlock() *BasicBlock {
	return m.merge
}

// SetMergeBlock sets the reconvergence block.
func (m *mergeBase) SetMergeBlock(b *BasicBlock) {
	m.merge = b
}

// createBlockFor creates a new block in the function of inst.
func createBlockFor(inst Instruction) *BasicBlock {
	f := inst.Function()
	Assertf(f != nil, "instruction must be linked to create blocks")
	return f.CreateBasicBlock()
}
