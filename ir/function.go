package ir

import "strconv"

// FunctionKind distinguishes kernels, callables and external declarations.
type FunctionKind uint8

const (
	FunctionKernel FunctionKind = iota
	FunctionCallable
	FunctionExternal
)

// String returns the name of the function kind.
func (k FunctionKind) String() string {
	switch k {
	case FunctionKernel:
		return "kernel"
	case FunctionCallable:
		return "callable"
	default:
		return "external"
	}
}

// Function represents a kernel, a callable or an external declaration.
// Kernels and callables are definitions owning a graph of basic blocks.
type Function struct {
	valueBase
	kind    FunctionKind
	args    []*Argument
	body    *BasicBlock
	blocks  []*BasicBlock
	removed bool
}

// Kind implements Value.
func (*Function) Kind() ValueKind { return ValueFunction }

// FunctionKind returns whether f is a kernel, callable or external.
func (f *Function) FunctionKind() FunctionKind {
	return f.kind
}

// IsDefinition reports whether f has a body.
func (f *Function) IsDefinition() bool {
	return f.kind != FunctionExternal
}

// IsRemoved reports whether f was unlinked from its module.
func (f *Function) IsRemoved() bool {
	return f.removed
}

// Label returns "@name", or "@id" when f is unnamed. It is how functions
// are referred to in printed IR, diagnostics and logs.
func (f *Function) Label() string {
	if f.name != "" {
		return "@" + f.name
	}
	return "@" + strconv.FormatUint(uint64(f.id), 10)
}

// Arguments returns the ordered argument list.
func (f *Function) Arguments() []*Argument {
	return f.args
}

func (f *Function) createArgument(kind ArgumentKind, t *Type) *Argument {
	a := &Argument{kind: kind, parent: f, index: len(f.args)}
	f.module.initValue(a, t)
	f.args = append(f.args, a)
	return a
}

// CreateValueArgument appends a by-value argument.
func (f *Function) CreateValueArgument(t *Type) *Argument {
	return f.createArgument(ArgumentValue, t)
}

// CreateReferenceArgument appends a by-reference argument.
func (f *Function) CreateReferenceArgument(t *Type) *Argument {
	return f.createArgument(ArgumentReference, t)
}

// CreateResourceArgument appends a resource argument.
func (f *Function) CreateResourceArgument(t *Type) *Argument {
	Assertf(t.IsResource() || t.IsRayQuery(), "resource argument requires a resource type, got %s", t)
	return f.createArgument(ArgumentResource, t)
}

// CreateArgument appends a by-reference argument when byRef is set and a
// by-value argument otherwise.
func (f *Function) CreateArgument(t *Type, byRef bool) *Argument {
	if byRef {
		return f.CreateReferenceArgument(t)
	}
	return f.CreateValueArgument(t)
}

// CreateBasicBlock creates a new, empty basic block owned by f.
func (f *Function) CreateBasicBlock() *BasicBlock {
	Assertf(f.IsDefinition(), "external function cannot own basic blocks")
	b := &BasicBlock{parent: f}
	f.module.initValue(b, nil)
	f.blocks = append(f.blocks, b)
	return b
}

// CreateBodyBlock creates the entry block of f.
func (f *Function) CreateBodyBlock() *BasicBlock {
	Assertf(f.body == nil, "body block already exists")
	f.body = f.CreateBasicBlock()
	return f.body
}

// SetBodyBlock sets the entry block of f.
func (f *Function) SetBodyBlock(b *BasicBlock) {
	Assertf(b == nil || b.parent == f, "body block must belong to the function")
	f.body = b
}

// BodyBlock returns the entry block, nil for declarations.
func (f *Function) BodyBlock() *BasicBlock {
	return f.body
}

// BasicBlocks returns every block created for f, reachable or not, in
// creation order.
func (f *Function) BasicBlocks() []*BasicBlock {
	return f.blocks
}

// ArgumentKind distinguishes how an argument is passed.
type ArgumentKind uint8

const (
	ArgumentValue ArgumentKind = iota
	ArgumentReference
	ArgumentResource
)

// Argument is a formal parameter of a function definition.
type Argument struct {
	valueBase
	kind   ArgumentKind
	parent *Function
	index  int
}

// Kind implements Value.
func (*Argument) Kind() ValueKind { return ValueArgument }

// ArgumentKind returns how the argument is passed.
func (a *Argument) ArgumentKind() ArgumentKind {
	return a.kind
}

// IsLValue reports whether the argument is passed by reference.
func (a *Argument) IsLValue() bool {
	return a.kind == ArgumentReference
}

// Function returns the function declaring the argument.
func (a *Argument) Function() *Function {
	return a.parent
}

// Index returns the position of the argument.
func (a *Argument) Index() int {
	return a.index
}
