package ir

// ValueKind identifies the concrete family of a Value.
type ValueKind uint8

const (
	ValueUndefined ValueKind = iota
	ValueConstant
	ValueSpecialRegister
	ValueArgument
	ValueBasicBlock
	ValueFunction
	ValueInstruction
)

// String returns the name of the value kind.
func (k ValueKind) String() string {
	switch k {
	case ValueUndefined:
		return "undefined"
	case ValueConstant:
		return "constant"
	case ValueSpecialRegister:
		return "special_register"
	case ValueArgument:
		return "argument"
	case ValueBasicBlock:
		return "basic_block"
	case ValueFunction:
		return "function"
	case ValueInstruction:
		return "instruction"
	default:
		return "unknown"
	}
}

// Value is anything that can appear as an operand: instructions, constants,
// undefined values, special registers, arguments, basic blocks and functions.
type Value interface {
	// ID returns the pool-unique id of the value.
	ID() uint32
	// Kind returns the value family.
	Kind() ValueKind
	// Type returns the value type, nil for void.
	Type() *Type
	// Module returns the module whose pool owns the value.
	Module() *Module
	// IsLValue reports whether the value denotes a memory location.
	IsLValue() bool

	Name() string
	SetName(name string)
	Comments() []string
	AddComment(comment string)

	// Uses returns a snapshot of the value's use-list in insertion order.
	Uses() []*Use
	UseCount() int
	HasUses() bool
	// ReplaceAllUsesWith redirects every use of the value to repl.
	ReplaceAllUsesWith(repl Value)

	base() *valueBase
}

// valueBase carries the state shared by every Value.
type valueBase struct {
	id       uint32
	typ      *Type
	module   *Module
	name     string
	comments []string

	useHead  *Use
	useTail  *Use
	useCount int
}

func (v *valueBase) ID() uint32          { return v.id }
func (v *valueBase) Type() *Type         { return v.typ }
func (v *valueBase) Module() *Module     { return v.module }
func (v *valueBase) IsLValue() bool      { return false }
func (v *valueBase) Name() string        { return v.name }
func (v *valueBase) SetName(name string) { v.name = name }
func (v *valueBase) Comments() []string  { return v.comments }
func (v *valueBase) UseCount() int       { return v.useCount }
func (v *valueBase) HasUses() bool       { return v.useCount > 0 }
func (v *valueBase) base() *valueBase    { return v }

func (v *valueBase) AddComment(comment string) {
	v.comments = append(v.comments, comment)
}

func (v *valueBase) Uses() []*Use {
	uses := make([]*Use, 0, v.useCount)
	for u := v.useHead; u != nil; u = u.next {
		uses = append(uses, u)
	}
	return uses
}

func (v *valueBase) ReplaceAllUsesWith(repl Value) {
	for _, u := range v.Uses() {
		u.Set(repl)
	}
}

func (v *valueBase) link(u *Use) {
	u.prev = v.useTail
	u.next = nil
	if v.useTail != nil {
		v.useTail.next = u
	} else {
		v.useHead = u
	}
	v.useTail = u
	v.useCount++
	u.linked = true
}

func (v *valueBase) unlink(u *Use) {
	if u.prev != nil {
		u.prev.next = u.next
	} else {
		v.useHead = u.next
	}
	if u.next != nil {
		u.next.prev = u.prev
	} else {
		v.useTail = u.prev
	}
	u.prev, u.next = nil, nil
	v.useCount--
	u.linked = false
}

// Use is an operand edge from an instruction to a value.
//
// A Use is always in its owner's operand list. It is in the value's use-list
// exactly when the owning instruction is linked into a basic block.
type Use struct {
	user  Instruction
	value Value

	prev, next *Use
	linked     bool
}

// User returns the instruction owning the use.
func (u *Use) User() Instruction {
	return u.user
}

// Value returns the used value, which may be nil for absent operands.
func (u *Use) Value() Value {
	return u.value
}

// Set points the use at v, keeping use-lists consistent.
func (u *Use) Set(v Value) {
	if v != nil && u.user != nil {
		Assertf(v.Module() == u.user.Module(), "operand and user should be in the same pool")
	}
	attached := u.linked
	if attached {
		u.value.base().unlink(u)
	}
	u.value = v
	if attached || (u.user != nil && u.user.Block() != nil) {
		u.attach()
	}
}

// attach adds the use to its value's use-list.
func (u *Use) attach() {
	if u.value != nil && !u.linked {
		u.value.base().link(u)
	}
}

// detach removes the use from its value's use-list.
func (u *Use) detach() {
	if u.linked {
		u.value.base().unlink(u)
	}
}

// ReplaceAllUsesWith redirects every use of old to repl.
func ReplaceAllUsesWith(old, repl Value) {
	if old == repl {
		return
	}
	old.ReplaceAllUsesWith(repl)
}

// IsUndefined reports whether v is an Undefined value.
func IsUndefined(v Value) bool {
	return v != nil && v.Kind() == ValueUndefined
}

// IsConstant reports whether v is a Constant.
func IsConstant(v Value) bool {
	return v != nil && v.Kind() == ValueConstant
}
