package ir

// PhiIncoming is one (value, predecessor) pair of a phi.
type PhiIncoming struct {
	Value Value
	Block *BasicBlock
}

// PhiInst selects a value depending on the predecessor control arrived from.
// Incoming values are operands; incoming blocks are kept alongside and are
// not uses of the blocks.
type PhiInst struct {
	instBase
	blocks []*BasicBlock
}

func (*PhiInst) Tag() Tag { return TagPhi }

// IncomingCount returns the number of incomings.
func (p *PhiInst) IncomingCount() int { return len(p.blocks) }

// Incoming returns the i-th incoming pair.
func (p *PhiInst) Incoming(i int) PhiIncoming {
	return PhiIncoming{Value: p.Operand(i), Block: p.blocks[i]}
}

// Incomings returns all incoming pairs.
func (p *PhiInst) Incomings() []PhiIncoming {
	in := make([]PhiIncoming, len(p.blocks))
	for i := range p.blocks {
		in[i] = p.Incoming(i)
	}
	return in
}

// IncomingFor returns the value flowing in from block b.
func (p *PhiInst) IncomingFor(b *BasicBlock) (Value, bool) {
	for i, blk := range p.blocks {
		if blk == b {
			return p.Operand(i), true
		}
	}
	return nil, false
}

// AddIncoming appends an incoming pair.
func (p *PhiInst) AddIncoming(v Value, b *BasicBlock) {
	Assertf(v == nil || v.Type() == p.Type(), "phi incoming of type %s does not match phi type %s", typeOf(v), p.Type())
	p.addOperand(v)
	p.blocks = append(p.blocks, b)
}

// SetIncoming replaces the i-th incoming pair.
func (p *PhiInst) SetIncoming(i int, v Value, b *BasicBlock) {
	Assertf(v == nil || v.Type() == p.Type(), "phi incoming of type %s does not match phi type %s", typeOf(v), p.Type())
	p.SetOperand(i, v)
	p.blocks[i] = b
}

// SetIncomingCount truncates the incoming list or grows it with empty pairs.
func (p *PhiInst) SetIncomingCount(n int) {
	p.setOperandCount(n)
	for len(p.blocks) > n {
		p.blocks = p.blocks[:len(p.blocks)-1]
	}
	for len(p.blocks) < n {
		p.blocks = append(p.blocks, nil)
	}
}

// RemoveIncoming removes the i-th incoming pair.
func (p *PhiInst) RemoveIncoming(i int) {
	p.removeOperand(i)
	p.blocks = append(p.blocks[:i], p.blocks[i+1:]...)
}

// AllocSpace is the address space of a variable.
type AllocSpace uint8

const (
	SpaceLocal AllocSpace = iota
	SpaceShared
)

// String returns the name of the space.
func (s AllocSpace) String() string {
	if s == SpaceShared {
		return "shared"
	}
	return "local"
}

// AllocaInst declares a variable. Its type is the type of the variable's
// content.
type AllocaInst struct {
	instBase
	space AllocSpace
}

func (*AllocaInst) Tag() Tag { return TagAlloca }

// IsLValue implements Value.
func (*AllocaInst) IsLValue() bool { return true }

// Space returns the variable's address space.
func (a *AllocaInst) Space() AllocSpace { return a.space }

// LoadInst reads the content of a variable.
type LoadInst struct {
	instBase
}

func (*LoadInst) Tag() Tag { return TagLoad }

// Variable returns the loaded variable.
func (l *LoadInst) Variable() Value { return l.Operand(0) }

// StoreInst writes a value into a variable.
type StoreInst struct {
	instBase
}

func (*StoreInst) Tag() Tag { return TagStore }

// Variable returns the written variable.
func (s *StoreInst) Variable() Value { return s.Operand(0) }

// Value returns the stored value.
func (s *StoreInst) Value() Value { return s.Operand(1) }

// SetValue replaces the stored value.
func (s *StoreInst) SetValue(v Value) {
	Assertf(v != nil && v.Type() == s.Variable().Type(), "store value type %s does not match variable type %s", typeOf(v), s.Variable().Type())
	s.SetOperand(1, v)
}

// GEPInst computes a reference to an element of an aggregate variable.
// Its type is the type of the addressed element.
type GEPInst struct {
	instBase
}

func (*GEPInst) Tag() Tag { return TagGEP }

// IsLValue implements Value.
func (*GEPInst) IsLValue() bool { return true }

// Base returns the indexed variable.
func (g *GEPInst) Base() Value { return g.Operand(0) }

// Indices returns the index operands.
func (g *GEPInst) Indices() []Value { return g.operandValues(1) }

// IndexCount returns the number of indices.
func (g *GEPInst) IndexCount() int { return g.OperandCount() - 1 }

// SetBaseAndIndices rewrites the whole operand list.
func (g *GEPInst) SetBaseAndIndices(base Value, indices []Value) {
	Assertf(base != nil && base.IsLValue(), "gep base must be an lvalue")
	g.setOperands(append([]Value{base}, indices...)...)
}

// AtomicOp enumerates atomic read-modify-write operations.
type AtomicOp uint8

const (
	AtomicExchange AtomicOp = iota
	AtomicCompareExchange
	AtomicFetchAdd
	AtomicFetchSub
	AtomicFetchAnd
	AtomicFetchOr
	AtomicFetchXor
	AtomicFetchMin
	AtomicFetchMax
)

var atomicOpNames = [...]string{
	"exchange", "compare_exchange", "fetch_add", "fetch_sub",
	"fetch_and", "fetch_or", "fetch_xor", "fetch_min", "fetch_max",
}

// String returns the name of the operation.
func (op AtomicOp) String() string {
	if int(op) < len(atomicOpNames) {
		return atomicOpNames[op]
	}
	return "unknown"
}

// ValueCount returns how many value operands the operation takes.
func (op AtomicOp) ValueCount() int {
	if op == AtomicCompareExchange {
		return 2
	}
	return 1
}

// AtomicInst performs an atomic operation on an element of a variable or
// buffer and returns the old value. Operands are the base, the indices and
// the operation values.
type AtomicInst struct {
	instBase
	op AtomicOp
}

func (*AtomicInst) Tag() Tag { return TagAtomic }

// Op returns the atomic operation.
func (a *AtomicInst) Op() AtomicOp { return a.op }

// Base returns the accessed variable or resource.
func (a *AtomicInst) Base() Value { return a.Operand(0) }

// Indices returns the index operands.
func (a *AtomicInst) Indices() []Value {
	return a.operandValues(1)[:a.OperandCount()-1-a.op.ValueCount()]
}

// Values returns the value operands.
func (a *AtomicInst) Values() []Value {
	return a.operandValues(a.OperandCount() - a.op.ValueCount())
}
