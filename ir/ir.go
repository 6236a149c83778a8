// Package ir defines the XIR intermediate representation.
//
// XIR is a mutable, SSA-oriented graph of values, basic blocks and
// instructions that shader front-ends build and optimization passes rewrite
// in place before GPU code generation.
package ir

import (
	"bytes"
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// Pool owns every value created inside a module and hands out their ids.
//
// Values are never freed individually: passes only unlink them from blocks
// and use-lists, and their storage lives as long as the module.
type Pool struct {
	values []Value
}

// Len returns the number of values allocated from the pool.
func (p *Pool) Len() int {
	return len(p.values)
}

// Value returns the value with the given id.
func (p *Pool) Value(id uint32) Value {
	return p.values[id]
}

func (p *Pool) register(v Value) uint32 {
	id := uint32(len(p.values))
	p.values = append(p.values, v)
	return id
}

// Module represents one compilation unit in XIR form.
type Module struct {
	// Name is used for diagnostics only
	Name string

	pool      Pool
	types     *TypeRegistry
	functions []*Function

	constants map[uint64][]*Constant
	undefined map[*Type]*Undefined
	registers map[SpecialRegisterKind]*SpecialRegister
}

// NewModule creates an empty module.
func NewModule(name string) *Module {
	return &Module{
		Name:      name,
		types:     NewTypeRegistry(),
		constants: make(map[uint64][]*Constant),
		undefined: make(map[*Type]*Undefined),
		registers: make(map[SpecialRegisterKind]*SpecialRegister),
	}
}

// Pool returns the module's value pool.
func (m *Module) Pool() *Pool {
	return &m.pool
}

// Types returns the module's type registry.
func (m *Module) Types() *TypeRegistry {
	return m.types
}

// Functions returns the module's functions in creation order.
func (m *Module) Functions() []*Function {
	return m.functions
}

// Definitions returns the kernels and callables of the module.
func (m *Module) Definitions() []*Function {
	defs := make([]*Function, 0, len(m.functions))
	for _, f := range m.functions {
		if f.IsDefinition() {
			defs = append(defs, f)
		}
	}
	return defs
}

func (m *Module) initValue(v Value, t *Type) {
	b := v.base()
	b.typ = t
	b.module = m
	b.id = m.pool.register(v)
}

func (m *Module) createFunction(kind FunctionKind, ret *Type) *Function {
	f := &Function{kind: kind}
	m.initValue(f, ret)
	m.functions = append(m.functions, f)
	return f
}

// CreateKernel creates a kernel function definition.
func (m *Module) CreateKernel() *Function {
	return m.createFunction(FunctionKernel, nil)
}

// CreateCallable creates a callable function definition returning ret.
func (m *Module) CreateCallable(ret *Type) *Function {
	return m.createFunction(FunctionCallable, ret)
}

// CreateExternal creates an external function declaration returning ret.
func (m *Module) CreateExternal(ret *Type) *Function {
	return m.createFunction(FunctionExternal, ret)
}

// RemoveFunction unlinks f from the module's function list.
func (m *Module) RemoveFunction(f *Function) {
	for i, fn := range m.functions {
		if fn == f {
			m.functions = append(m.functions[:i], m.functions[i+1:]...)
			f.removed = true
			return
		}
	}
}

// Constant returns the interned constant of type t with the given byte
// payload. Two requests with equal type and bytes return the same object.
func (m *Module) Constant(t *Type, data []byte) *Constant {
	Assertf(t != nil, "constant type must not be void")
	Assertf(len(data) == t.Size(), "constant of type %s needs %d bytes, got %d", t, t.Size(), len(data))
	h := constantHash(t, data)
	for _, c := range m.constants[h] {
		if c.typ == t && bytes.Equal(c.data, data) {
			return c
		}
	}
	c := &Constant{data: bytes.Clone(data), hash: h}
	m.initValue(c, t)
	m.constants[h] = append(m.constants[h], c)
	return c
}

func constantHash(t *Type, data []byte) uint64 {
	var prefix [4]byte
	binary.LittleEndian.PutUint32(prefix[:], uint32(t.handle))
	d := xxhash.New()
	_, _ = d.Write(prefix[:])
	_, _ = d.Write(data)
	return d.Sum64()
}

// ConstantCount returns the number of interned constants.
func (m *Module) ConstantCount() int {
	n := 0
	for _, cs := range m.constants {
		n += len(cs)
	}
	return n
}

// Undefined returns the interned undefined value of type t.
func (m *Module) Undefined(t *Type) *Undefined {
	if u, ok := m.undefined[t]; ok {
		return u
	}
	u := &Undefined{}
	m.initValue(u, t)
	m.undefined[t] = u
	return u
}

// SpecialRegister returns the interned special register of the given kind.
func (m *Module) SpecialRegister(kind SpecialRegisterKind) *SpecialRegister {
	if r, ok := m.registers[kind]; ok {
		return r
	}
	var t *Type
	switch kind {
	case RegisterThreadID, RegisterBlockID, RegisterDispatchID, RegisterBlockSize, RegisterDispatchSize:
		t = m.types.Vector(m.types.Uint32(), Vec3)
	default:
		t = m.types.Uint32()
	}
	r := &SpecialRegister{kind: kind}
	m.initValue(r, t)
	m.registers[kind] = r
	return r
}
